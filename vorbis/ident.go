// Package vorbis implements a Vorbis I decoder operating on packets
// supplied by oggdemux: setup-header parsing (codebooks, floors,
// residues, mappings, modes), per-packet floor/residue/coupling
// reconstruction, and IMDCT/windowing synthesis into planar PCM.
package vorbis

import "github.com/christosk92/WaveeVorbis/mediaerr"

const (
	packetTypeIdent    = 1
	packetTypeComment  = 3
	packetTypeSetup    = 5
	vorbisSignature    = "vorbis"
	identHeaderWireLen = 30
)

// IdentHeader is the first of the three Vorbis header packets (spec.md
// §3 IdentHeader, §6 on-wire layout).
type IdentHeader struct {
	Channels   int
	SampleRate uint32
	Bs0Exp     uint // blocksize-0 exponent
	Bs1Exp     uint // blocksize-1 exponent
}

// BlockSize0 returns 2^Bs0Exp, the short block length in samples.
func (h *IdentHeader) BlockSize0() int { return 1 << h.Bs0Exp }

// BlockSize1 returns 2^Bs1Exp, the long block length in samples.
func (h *IdentHeader) BlockSize1() int { return 1 << h.Bs1Exp }

// parseIdentHeader decodes the fixed 30-byte identification packet
// (spec.md §6): packet-type 0x01, 6-byte "vorbis" signature, 4-byte LE
// version (must be 0), 1-byte channel count (>0), 4-byte LE sample
// rate, three unused 4-byte LE bitrate fields, one byte packing
// bs0_exp (low nibble) | bs1_exp (high nibble), and a trailing 0x01
// framing flag.
func parseIdentHeader(pkt []byte) (*IdentHeader, error) {
	if len(pkt) != identHeaderWireLen {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: ident header: want %d bytes, got %d", identHeaderWireLen, len(pkt))
	}
	if pkt[0] != packetTypeIdent {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: ident header: wrong packet type %#x", pkt[0])
	}
	if string(pkt[1:7]) != vorbisSignature {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: ident header: missing vorbis signature")
	}
	version := leU32(pkt[7:11])
	if version != 0 {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: ident header: unsupported version %d", version)
	}
	channels := int(pkt[11])
	if channels == 0 {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: ident header: zero channels")
	}
	sampleRate := leU32(pkt[12:16])
	if sampleRate == 0 {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: ident header: zero sample rate")
	}
	// pkt[16:28] holds bitrate_maximum/nominal/minimum, unused here.
	blockSizes := pkt[28]
	bs0 := uint(blockSizes & 0x0F)
	bs1 := uint(blockSizes >> 4)
	if !(6 <= bs0 && bs0 <= bs1 && bs1 <= 13) {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: ident header: block sizes out of range (%d, %d)", bs0, bs1)
	}
	if pkt[29]&0x01 == 0 {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: ident header: framing bit not set")
	}

	return &IdentHeader{
		Channels:   channels,
		SampleRate: sampleRate,
		Bs0Exp:     bs0,
		Bs1Exp:     bs1,
	}, nil
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
