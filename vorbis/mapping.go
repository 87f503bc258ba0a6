package vorbis

import (
	"github.com/christosk92/WaveeVorbis/bitreader"
	"github.com/christosk92/WaveeVorbis/mediaerr"
)

// Submap pairs a floor and a residue index (spec.md §3 Mappings
// "per-submap (floor, residue) indices").
type Submap struct {
	Floor   int
	Residue int
}

// Mapping is a Vorbis mapping: always type 0 per spec.md §6 ("mapping
// type must be 0"). It assigns each channel to a submap, via an
// optional per-channel multiplex index, and lists the channel
// couplings applied before the dot product.
type Mapping struct {
	Submaps    []Submap
	Multiplex  []int // per-channel submap index
	Couplings  []Coupling
}

// readMapping parses one mapping block (spec.md §6 "mappings").
func readMapping(r *bitreader.Reader, channels int, floorCount, residueCount int) (*Mapping, error) {
	mtype, err := r.ReadBitsLEQ32(16)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mapping: type")
	}
	if mtype != 0 {
		return nil, mediaerr.New(mediaerr.UnsupportedFeature, "vorbis: mapping: type %d not supported", mtype)
	}

	m := &Mapping{}

	hasSubmaps, err := r.ReadBool()
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mapping: submap flag")
	}
	numSubmaps := 1
	if hasSubmaps {
		n, err := r.ReadBitsLEQ32(4)
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mapping: submap count")
		}
		numSubmaps = int(n) + 1
	}

	hasCoupling, err := r.ReadBool()
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mapping: coupling flag")
	}
	if hasCoupling {
		couplingStepsM1, err := r.ReadBitsLEQ32(8)
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mapping: coupling steps")
		}
		chanBits := ilog(uint32(channels - 1))
		for i := 0; i < int(couplingStepsM1)+1; i++ {
			mag, err := r.ReadBitsLEQ32(chanBits)
			if err != nil {
				return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mapping: coupling magnitude %d", i)
			}
			ang, err := r.ReadBitsLEQ32(chanBits)
			if err != nil {
				return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mapping: coupling angle %d", i)
			}
			if int(mag) >= channels || int(ang) >= channels {
				return nil, mediaerr.New(mediaerr.Decode, "vorbis: mapping: coupling channel out of range")
			}
			m.Couplings = append(m.Couplings, Coupling{Magnitude: int(mag), Angle: int(ang)})
		}
	}

	reserved, err := r.ReadBitsLEQ32(2)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mapping: reserved field")
	}
	if reserved != 0 {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: mapping: reserved field nonzero")
	}

	m.Multiplex = make([]int, channels)
	if numSubmaps > 1 {
		for c := 0; c < channels; c++ {
			v, err := r.ReadBitsLEQ32(4)
			if err != nil {
				return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mapping: multiplex channel %d", c)
			}
			if int(v) >= numSubmaps {
				return nil, mediaerr.New(mediaerr.Decode, "vorbis: mapping: multiplex index %d out of range", v)
			}
			m.Multiplex[c] = int(v)
		}
	}

	m.Submaps = make([]Submap, numSubmaps)
	for s := 0; s < numSubmaps; s++ {
		if _, err := r.ReadBitsLEQ32(8); err != nil { // unused time-domain placeholder
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mapping: submap %d unused field", s)
		}
		floorIdx, err := r.ReadBitsLEQ32(8)
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mapping: submap %d floor", s)
		}
		residueIdx, err := r.ReadBitsLEQ32(8)
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mapping: submap %d residue", s)
		}
		if int(floorIdx) >= floorCount || int(residueIdx) >= residueCount {
			return nil, mediaerr.New(mediaerr.Decode, "vorbis: mapping: submap %d floor/residue index out of range", s)
		}
		m.Submaps[s] = Submap{Floor: int(floorIdx), Residue: int(residueIdx)}
	}

	return m, nil
}

// Mode is a (block_flag, mapping_idx) pair (spec.md §3 "Modes").
type Mode struct {
	BlockFlag  bool
	MappingIdx int
}

// readMode parses one mode block.
func readMode(r *bitreader.Reader, mappingCount int) (*Mode, error) {
	blockFlag, err := r.ReadBool()
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mode: block flag")
	}
	windowType, err := r.ReadBitsLEQ32(16)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mode: window type")
	}
	if windowType != 0 {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: mode: unsupported window type %d", windowType)
	}
	transformType, err := r.ReadBitsLEQ32(16)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mode: transform type")
	}
	if transformType != 0 {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: mode: unsupported transform type %d", transformType)
	}
	mapping, err := r.ReadBitsLEQ32(8)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: mode: mapping index")
	}
	if int(mapping) >= mappingCount {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: mode: mapping index %d out of range", mapping)
	}
	return &Mode{BlockFlag: blockFlag, MappingIdx: int(mapping)}, nil
}
