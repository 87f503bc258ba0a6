package vorbis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildCommentPacket assembles a well-formed comment packet (spec.md §6).
func buildCommentPacket(vendor string, comments []string) []byte {
	var buf []byte
	buf = append(buf, packetTypeComment)
	buf = append(buf, vorbisSignature...)
	buf = appendLenPrefixed(buf, vendor)
	buf = appendU32(buf, uint32(len(comments)))
	for _, c := range comments {
		buf = appendLenPrefixed(buf, c)
	}
	return buf
}

func appendU32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendLenPrefixed(buf []byte, s string) []byte {
	buf = appendU32(buf, uint32(len(s)))
	return append(buf, s...)
}

func TestParseCommentHeader_Valid(t *testing.T) {
	pkt := buildCommentPacket("encoder 1.0", []string{"ARTIST=test", "TITLE=song"})
	h, err := parseCommentHeader(pkt)
	require.NoError(t, err)
	require.Equal(t, "encoder 1.0", h.Vendor)
	require.Equal(t, []string{"ARTIST=test", "TITLE=song"}, h.Comments)
}

func TestParseCommentHeader_EmptyCommentList(t *testing.T) {
	pkt := buildCommentPacket("enc", nil)
	h, err := parseCommentHeader(pkt)
	require.NoError(t, err)
	require.Empty(t, h.Comments)
}

func TestParseCommentHeader_TruncatedStringRejected(t *testing.T) {
	pkt := buildCommentPacket("enc", []string{"ARTIST=test"})
	truncated := pkt[:len(pkt)-3]
	_, err := parseCommentHeader(truncated)
	require.Error(t, err)
}

func TestParseCommentHeader_BadHeaderRejected(t *testing.T) {
	pkt := buildCommentPacket("enc", nil)
	pkt[0] = packetTypeIdent
	_, err := parseCommentHeader(pkt)
	require.Error(t, err)
}
