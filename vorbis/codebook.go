package vorbis

import (
	"math"

	"github.com/christosk92/WaveeVorbis/bitreader"
	"github.com/christosk92/WaveeVorbis/mediaerr"
)

const codebookSyncWord = 0x564342

// Codebook is a Vorbis codebook: a canonical Huffman decode table plus
// an optional vector-quantization lookup table (spec.md §3 Codebook,
// §4.2 "Vorbis codebook read").
type Codebook struct {
	Dimensions int
	Entries    int

	tree *bitreader.Codebook

	// lookupType is 0 (no VQ payload), 1 (lattice/grid), or 2 (dense).
	lookupType int
	// vqTable holds, per codebook entry, Dimensions reconstructed float
	// values; only populated when lookupType != 0.
	vqTable [][]float32
}

// ReadCodebook parses one codebook from the setup header bitstream
// (spec.md §4.2).
func ReadCodebook(r *bitreader.Reader) (*Codebook, error) {
	sync, err := r.ReadBitsLEQ32(24)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: codebook: sync word")
	}
	if sync != codebookSyncWord {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: codebook: bad sync word %#x", sync)
	}
	dims, err := r.ReadBitsLEQ32(16)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: codebook: dimensions")
	}
	entries32, err := r.ReadBitsLEQ32(24)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: codebook: entry count")
	}
	entries := int(entries32)
	dimensions := int(dims)

	lengths := make([]uint, entries)
	ordered, err := r.ReadBool()
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: codebook: ordered flag")
	}
	sparse := false
	if !ordered {
		sp, err := r.ReadBool()
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: codebook: sparse flag")
		}
		sparse = sp
		for i := 0; i < entries; i++ {
			if sparse {
				flag, err := r.ReadBool()
				if err != nil {
					return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: codebook: sparse entry flag %d", i)
				}
				if !flag {
					continue
				}
			}
			l, err := r.ReadBitsLEQ32(5)
			if err != nil {
				return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: codebook: length entry %d", i)
			}
			lengths[i] = uint(l) + 1
		}
	} else {
		curLen, err := r.ReadBitsLEQ32(5)
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: codebook: ordered initial length")
		}
		length := uint(curLen) + 1
		i := 0
		for i < entries {
			numBits := ilog(uint32(entries - i))
			num, err := r.ReadBitsLEQ32(numBits)
			if err != nil {
				return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: codebook: ordered run length")
			}
			for j := 0; j < int(num) && i < entries; j++ {
				lengths[i] = length
				i++
			}
			length++
		}
	}

	values := make([]int32, entries)
	for i := range values {
		values[i] = int32(i)
	}
	tree, err := bitreader.BuildCodebook(lengths, values, bitreader.Reverse, bitreader.MaxBitsPerBlock, sparse || ordered)
	if err != nil {
		return nil, err
	}

	cb := &Codebook{Dimensions: dimensions, Entries: entries, tree: tree}

	lookupType, err := r.ReadBitsLEQ32(4)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: codebook: lookup type")
	}
	cb.lookupType = int(lookupType)
	switch cb.lookupType {
	case 0:
		// No VQ payload.
	case 1, 2:
		if err := cb.readVQLookup(r); err != nil {
			return nil, err
		}
	default:
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: codebook: unsupported lookup type %d", cb.lookupType)
	}

	return cb, nil
}

// readVQLookup parses the shared multiplicand table for lookup types 1
// and 2 and expands it into per-entry reconstructed vectors (spec.md
// §4.2): type 1 treats the multiplicands as a `lookup1_values`-radix
// mixed-base grid indexed digit by digit; type 2 reads one multiplicand
// per (entry, dimension) pair directly.
func (cb *Codebook) readVQLookup(r *bitreader.Reader) error {
	minValueBits, err := r.ReadBitsLEQ32(32)
	if err != nil {
		return mediaerr.Wrap(mediaerr.Decode, err, "vorbis: codebook: lookup min value")
	}
	deltaValueBits, err := r.ReadBitsLEQ32(32)
	if err != nil {
		return mediaerr.Wrap(mediaerr.Decode, err, "vorbis: codebook: lookup delta value")
	}
	minValue := float32(float32FromVorbisBits(minValueBits))
	deltaValue := float32(float32FromVorbisBits(deltaValueBits))

	valueBits, err := r.ReadBitsLEQ32(4)
	if err != nil {
		return mediaerr.Wrap(mediaerr.Decode, err, "vorbis: codebook: lookup value bits")
	}
	valueBits++
	sequenceP, err := r.ReadBool()
	if err != nil {
		return mediaerr.Wrap(mediaerr.Decode, err, "vorbis: codebook: lookup sequence flag")
	}

	var lookupValues int
	if cb.lookupType == 1 {
		lookupValues = lookup1Values(cb.Entries, cb.Dimensions)
	} else {
		lookupValues = cb.Entries * cb.Dimensions
	}

	multiplicands := make([]uint32, lookupValues)
	for i := range multiplicands {
		v, err := r.ReadBitsLEQ32(valueBits)
		if err != nil {
			return mediaerr.Wrap(mediaerr.Decode, err, "vorbis: codebook: multiplicand %d", i)
		}
		multiplicands[i] = v
	}

	cb.vqTable = make([][]float32, cb.Entries)
	for e := 0; e < cb.Entries; e++ {
		vec := make([]float32, cb.Dimensions)
		if cb.lookupType == 1 {
			last := float32(0)
			indexDivisor := 1
			for d := 0; d < cb.Dimensions; d++ {
				idx := (e / indexDivisor) % lookupValues
				v := float32(multiplicands[idx])*deltaValue + minValue + last
				if sequenceP {
					last = v
				}
				vec[d] = v
				indexDivisor *= lookupValues
			}
		} else {
			last := float32(0)
			for d := 0; d < cb.Dimensions; d++ {
				v := float32(multiplicands[e*cb.Dimensions+d])*deltaValue + minValue + last
				if sequenceP {
					last = v
				}
				vec[d] = v
			}
		}
		cb.vqTable[e] = vec
	}
	return nil
}

// ReadValue decodes one Huffman code and returns the corresponding VQ
// vector (nil if this codebook has lookupType 0). Used by residue
// decode; floor1 decode instead uses ReadScalar directly since it only
// needs the raw index.
func (cb *Codebook) ReadValue(r *bitreader.Reader) ([]float32, error) {
	idx, _, err := r.ReadCodebook(cb.tree)
	if err != nil {
		return nil, err
	}
	if cb.vqTable == nil {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: codebook: residue codebook has no VQ payload")
	}
	return cb.vqTable[idx], nil
}

// ReadScalar decodes one Huffman code and returns the raw entry index,
// used by floor1 classbook/subclass decode which interprets the index
// itself rather than a VQ vector.
func (cb *Codebook) ReadScalar(r *bitreader.Reader) (int32, error) {
	idx, _, err := r.ReadCodebook(cb.tree)
	return idx, err
}

// lookup1Values returns the largest r with r^dim <= entries (spec.md
// §4.2, §8 round-trip law), computed via floor(exp(ln(entries)/dim))
// then nudged upward to correct for floating-point rounding.
func lookup1Values(entries, dim int) int {
	if dim <= 0 {
		return 0
	}
	r := int(math.Floor(math.Exp(math.Log(float64(entries)) / float64(dim))))
	for {
		next := r + 1
		if pow(next, dim) <= entries {
			r = next
			continue
		}
		break
	}
	for r > 0 && pow(r, dim) > entries {
		r--
	}
	return r
}

func pow(base, exp int) int {
	result := 1
	for i := 0; i < exp; i++ {
		result *= base
		if result < 0 {
			return result // overflow guard; entries never approaches this
		}
	}
	return result
}

// ilog returns the position of the highest set bit of v, i.e. the
// number of bits required to represent v (ilog(0) == 0), matching the
// reference decoder's bit-count helper used for ordered codeword run
// lengths.
func ilog(v uint32) uint {
	var n uint
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}

// float32FromVorbisBits decodes Vorbis's packed 32-bit float encoding
// used for codebook lookup min/delta values: bit 31 sign, bits
// [30:21] a 10-bit exponent bias-788 field, bits [20:0] a 21-bit
// mantissa.
func float32FromVorbisBits(bits uint32) float64 {
	sign := int64(1)
	if bits&0x80000000 != 0 {
		sign = -1
	}
	exponent := int((bits >> 21) & 0x3FF)
	mantissa := int64(bits & 0x1FFFFF)
	value := float64(sign) * float64(mantissa) * math.Pow(2, float64(exponent-788))
	return value
}
