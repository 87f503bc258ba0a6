package vorbis

import (
	"github.com/christosk92/WaveeVorbis/bitreader"
	"github.com/christosk92/WaveeVorbis/mediaerr"
	"github.com/christosk92/WaveeVorbis/oggdemux"
)

func init() {
	oggdemux.RegisterMapper(newMapper)
}

// mapper is the oggdemux.Mapper implementation for Vorbis: it owns the
// three header packets and the duration-only packet parser of spec.md
// §4.12, used by oggdemux's packet timestamping. OggReader.SeekTo's
// bisection probes use only AbsGpToTs, not the packet parser.
type mapper struct {
	ident   *IdentHeader
	comment *CommentHeader
	setup   *Setup

	modeBits      uint
	modeBlockFlag []bool

	havePrev bool
	prevBsExp uint
}

// newMapper probes a logical stream's first packet for the Vorbis
// identification header; a non-Vorbis stream fails here and oggdemux
// tries the next registered codec.
func newMapper(identPacket []byte) (oggdemux.Mapper, error) {
	ident, err := parseIdentHeader(identPacket)
	if err != nil {
		return nil, err
	}
	return &mapper{ident: ident}, nil
}

func (m *mapper) Name() string { return "vorbis" }

// MapPacket classifies a reassembled Vorbis packet (spec.md §6 header
// packet types, §4.12 duration parsing for audio packets).
func (m *mapper) MapPacket(pkt []byte) (oggdemux.MappedPacket, error) {
	if len(pkt) == 0 {
		return oggdemux.MappedPacket{}, mediaerr.New(mediaerr.Decode, "vorbis: empty packet")
	}

	// Header packets have an odd first byte (the packet-type byte is
	// always odd: 1, 3, or 5); this is equivalent to the LSb-first "is
	// this bit 1" test spec.md §4.12 describes for audio packets, since
	// bit 0 of the first byte is the packet's very first read bit.
	if pkt[0]&0x01 != 0 {
		switch pkt[0] {
		case packetTypeIdent:
			return oggdemux.MappedPacket{Kind: oggdemux.KindMetadata}, nil
		case packetTypeComment:
			cm, err := parseCommentHeader(pkt)
			if err != nil {
				return oggdemux.MappedPacket{}, err
			}
			m.comment = cm
			return oggdemux.MappedPacket{Kind: oggdemux.KindMetadata}, nil
		case packetTypeSetup:
			setup, err := parseSetupHeader(pkt, m.ident)
			if err != nil {
				return oggdemux.MappedPacket{}, err
			}
			m.setup = setup
			m.modeBits = setup.modeBits
			m.modeBlockFlag = make([]bool, len(setup.Modes))
			for i, mode := range setup.Modes {
				m.modeBlockFlag[i] = mode.BlockFlag
			}
			return oggdemux.MappedPacket{Kind: oggdemux.KindSetup}, nil
		default:
			return oggdemux.MappedPacket{}, mediaerr.New(mediaerr.Decode, "vorbis: unknown header packet type %d", pkt[0])
		}
	}

	if m.setup == nil {
		return oggdemux.MappedPacket{}, mediaerr.New(mediaerr.Decode, "vorbis: audio packet seen before setup header")
	}

	curBsExp, err := m.packetBlockSizeExp(pkt)
	if err != nil {
		return oggdemux.MappedPacket{}, err
	}

	var dur int64
	if m.havePrev {
		dur = int64(1<<m.prevBsExp)/4 + int64(1<<curBsExp)/4
	}
	m.prevBsExp = curBsExp
	m.havePrev = true
	return oggdemux.MappedPacket{Kind: oggdemux.KindStreamData, Dur: dur}, nil
}

// packetBlockSizeExp reads just enough of an audio packet to recover
// its block size exponent, without decoding the rest of the packet
// (spec.md §4.12): the first bit (must be 0) then the mode index, whose
// block_flag selects bs0_exp or bs1_exp.
func (m *mapper) packetBlockSizeExp(pkt []byte) (uint, error) {
	r := bitreader.NewReader(pkt)
	audioFlag, err := r.ReadBool()
	if err != nil {
		return 0, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: audio packet: flag bit")
	}
	if audioFlag {
		return 0, mediaerr.New(mediaerr.Decode, "vorbis: audio packet: first bit set (not an audio packet)")
	}
	modeIdx, err := r.ReadBitsLEQ32(m.modeBits)
	if err != nil {
		return 0, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: audio packet: mode index")
	}
	if int(modeIdx) >= len(m.modeBlockFlag) {
		return 0, mediaerr.New(mediaerr.Decode, "vorbis: audio packet: mode index %d out of range", modeIdx)
	}
	if m.modeBlockFlag[modeIdx] {
		return m.ident.Bs1Exp, nil
	}
	return m.ident.Bs0Exp, nil
}

// AbsGpToTs converts a Vorbis absolute granule position directly into a
// sample count; Vorbis's granule position is defined as the total
// sample count at the end of the page, with no additional codec delay
// to account for (spec.md §4.11 "Timestamping").
func (m *mapper) AbsGpToTs(absgp uint64) (int64, error) {
	return int64(absgp), nil
}

// Reset clears the per-stream lapping bookkeeping used for duration
// parsing; the immutable ident/comment/setup tables survive a seek.
func (m *mapper) Reset() {
	m.havePrev = false
	m.prevBsExp = 0
}
