package vorbis

import (
	"github.com/christosk92/WaveeVorbis/bitreader"
	"github.com/christosk92/WaveeVorbis/mediaerr"
)

// Setup is the immutable, one-shot-parsed contents of the Vorbis setup
// header: codebooks, floors, residues, mappings, and modes (spec.md §3
// Setup, §6 "Vorbis setup header").
type Setup struct {
	Codebooks []*Codebook
	Floors    []Floor
	Residues  []*Residue
	Mappings  []*Mapping
	Modes     []*Mode

	modeBits uint
}

// parseSetupHeader decodes the third Vorbis header packet in full
// (spec.md §6 bitwise layout).
func parseSetupHeader(pkt []byte, ident *IdentHeader) (*Setup, error) {
	if len(pkt) < 7 || pkt[0] != packetTypeSetup || string(pkt[1:7]) != vorbisSignature {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: setup header: bad packet header")
	}
	r := bitreader.NewReader(pkt[7:])
	s := &Setup{}

	countM1, err := r.ReadBitsLEQ32(8)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: setup: codebook count")
	}
	s.Codebooks = make([]*Codebook, int(countM1)+1)
	for i := range s.Codebooks {
		cb, err := ReadCodebook(r)
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: setup: codebook %d", i)
		}
		s.Codebooks[i] = cb
	}

	timeCountM1, err := r.ReadBitsLEQ32(6)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: setup: time-domain count")
	}
	for i := 0; i < int(timeCountM1)+1; i++ {
		v, err := r.ReadBitsLEQ32(16)
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: setup: time-domain transform %d", i)
		}
		if v != 0 {
			return nil, mediaerr.New(mediaerr.Decode, "vorbis: setup: time-domain transform %d must be 0, got %d", i, v)
		}
	}

	floorCountM1, err := r.ReadBitsLEQ32(6)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: setup: floor count")
	}
	s.Floors = make([]Floor, int(floorCountM1)+1)
	for i := range s.Floors {
		ftype, err := r.ReadBitsLEQ32(16)
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: setup: floor %d type", i)
		}
		switch ftype {
		case 0:
			s.Floors[i] = Floor0{}
		case 1:
			f1, err := readFloor1(r, s.Codebooks)
			if err != nil {
				return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: setup: floor %d", i)
			}
			s.Floors[i] = f1
		default:
			return nil, mediaerr.New(mediaerr.Decode, "vorbis: setup: unsupported floor type %d", ftype)
		}
	}

	residueCountM1, err := r.ReadBitsLEQ32(6)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: setup: residue count")
	}
	s.Residues = make([]*Residue, int(residueCountM1)+1)
	for i := range s.Residues {
		rtype, err := r.ReadBitsLEQ32(16)
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: setup: residue %d type", i)
		}
		if rtype > 2 {
			return nil, mediaerr.New(mediaerr.Decode, "vorbis: setup: unsupported residue type %d", rtype)
		}
		res, err := readResidue(r, int(rtype), s.Codebooks)
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: setup: residue %d", i)
		}
		s.Residues[i] = res
	}

	mappingCountM1, err := r.ReadBitsLEQ32(6)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: setup: mapping count")
	}
	s.Mappings = make([]*Mapping, int(mappingCountM1)+1)
	for i := range s.Mappings {
		m, err := readMapping(r, ident.Channels, len(s.Floors), len(s.Residues))
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: setup: mapping %d", i)
		}
		s.Mappings[i] = m
	}

	modeCountM1, err := r.ReadBitsLEQ32(6)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: setup: mode count")
	}
	s.Modes = make([]*Mode, int(modeCountM1)+1)
	for i := range s.Modes {
		mode, err := readMode(r, len(s.Mappings))
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: setup: mode %d", i)
		}
		s.Modes[i] = mode
	}
	s.modeBits = ilog(uint32(len(s.Modes) - 1))

	framing, err := r.ReadBool()
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: setup: framing flag")
	}
	if !framing {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: setup: framing flag not set")
	}

	return s, nil
}
