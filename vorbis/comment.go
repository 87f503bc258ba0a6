package vorbis

import "github.com/christosk92/WaveeVorbis/mediaerr"

// CommentHeader is the second Vorbis header packet: a vendor string
// plus a list of "KEY=VALUE" user comments (spec.md §6). It is a
// supplemented feature — informational only, never consulted by the
// audio decode path.
type CommentHeader struct {
	Vendor   string
	Comments []string
}

// parseCommentHeader decodes the comment packet. Unlike the ident and
// setup packets, the comment packet carries no trailing framing bit
// inside an Ogg stream (spec.md §6).
func parseCommentHeader(pkt []byte) (*CommentHeader, error) {
	if len(pkt) < 7 || pkt[0] != packetTypeComment || string(pkt[1:7]) != vorbisSignature {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: comment header: bad packet header")
	}
	r := &lenPrefixedReader{buf: pkt, pos: 7}

	vendor, err := r.readString()
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: comment header: vendor string")
	}
	count, err := r.readU32()
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: comment header: comment count")
	}
	comments := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		c, err := r.readString()
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: comment header: comment %d", i)
		}
		comments = append(comments, c)
	}
	return &CommentHeader{Vendor: vendor, Comments: comments}, nil
}

// lenPrefixedReader reads LE-length-prefixed byte strings out of a flat
// buffer, the encoding the comment header uses throughout.
type lenPrefixedReader struct {
	buf []byte
	pos int
}

func (r *lenPrefixedReader) readU32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, mediaerr.New(mediaerr.EndOfStream, "comment: truncated length field")
	}
	v := leU32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *lenPrefixedReader) readString() (string, error) {
	n, err := r.readU32()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.buf) {
		return "", mediaerr.New(mediaerr.EndOfStream, "comment: truncated string of length %d", n)
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}
