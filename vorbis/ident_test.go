package vorbis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/christosk92/WaveeVorbis/mediaerr"
)

// buildIdentPacket assembles a well-formed 30-byte ident header (spec.md
// scenario 1).
func buildIdentPacket(channels int, sampleRate uint32, bs0Exp, bs1Exp uint) []byte {
	pkt := make([]byte, identHeaderWireLen)
	pkt[0] = packetTypeIdent
	copy(pkt[1:7], vorbisSignature)
	// version stays zero
	pkt[11] = byte(channels)
	pkt[12] = byte(sampleRate)
	pkt[13] = byte(sampleRate >> 8)
	pkt[14] = byte(sampleRate >> 16)
	pkt[15] = byte(sampleRate >> 24)
	pkt[28] = byte(bs0Exp) | byte(bs1Exp<<4)
	pkt[29] = 0x01
	return pkt
}

func TestParseIdentHeader_Valid(t *testing.T) {
	pkt := buildIdentPacket(2, 44100, 8, 11)
	h, err := parseIdentHeader(pkt)
	require.NoError(t, err)
	require.Equal(t, 2, h.Channels)
	require.Equal(t, uint32(44100), h.SampleRate)
	require.Equal(t, 256, h.BlockSize0())
	require.Equal(t, 2048, h.BlockSize1())
}

func TestParseIdentHeader_WrongLength(t *testing.T) {
	_, err := parseIdentHeader(make([]byte, 29))
	require.Error(t, err)
	require.True(t, mediaerr.Is(err, mediaerr.Decode))
}

func TestParseIdentHeader_BadSignature(t *testing.T) {
	pkt := buildIdentPacket(1, 8000, 6, 6)
	pkt[3] = 'x'
	_, err := parseIdentHeader(pkt)
	require.Error(t, err)
}

func TestParseIdentHeader_ZeroChannelsRejected(t *testing.T) {
	pkt := buildIdentPacket(0, 8000, 6, 6)
	_, err := parseIdentHeader(pkt)
	require.Error(t, err)
}

func TestParseIdentHeader_BlockSizeOrderEnforced(t *testing.T) {
	// bs0 > bs1 is invalid regardless of each being in range.
	pkt := buildIdentPacket(1, 8000, 11, 8)
	_, err := parseIdentHeader(pkt)
	require.Error(t, err)
}

func TestParseIdentHeader_MissingFramingBit(t *testing.T) {
	pkt := buildIdentPacket(1, 8000, 8, 8)
	pkt[29] = 0x00
	_, err := parseIdentHeader(pkt)
	require.Error(t, err)
}
