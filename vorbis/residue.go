package vorbis

import (
	"github.com/christosk92/WaveeVorbis/bitreader"
	"github.com/christosk92/WaveeVorbis/mediaerr"
)

// residueMaxPasses bounds how many VQ passes a single residue can
// specify (spec.md §4.4 "up to 8 passes").
const residueMaxPasses = 8

// Residue holds one residue's immutable setup parameters (spec.md §3
// Setup, §4.4).
type Residue struct {
	Type int // 0, 1, or 2

	begin, end      int
	partitionSize   int
	classifications int
	classbook       int

	// classCascade[c] is a bitmask over passes that class c uses; bit p
	// set means pass p reads a codebook for partitions of this class.
	classCascade []uint8
	// classBooks[c][p] is the codebook index used by class c on pass p,
	// or -1 if that pass is skipped for this class.
	classBooks [][residueMaxPasses]int
}

// readResidue parses one residue setup block (spec.md §4.4 "Common
// pipeline").
func readResidue(r *bitreader.Reader, resType int, codebooks []*Codebook) (*Residue, error) {
	begin, err := r.ReadBitsLEQ32(24)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: residue: begin")
	}
	end, err := r.ReadBitsLEQ32(24)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: residue: end")
	}
	partitionSizeM1, err := r.ReadBitsLEQ32(24)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: residue: partition size")
	}
	classificationsM1, err := r.ReadBitsLEQ32(6)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: residue: classifications")
	}
	classbook, err := r.ReadBitsLEQ32(8)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: residue: classbook")
	}
	if int(classbook) >= len(codebooks) {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: residue: classbook %d out of range", classbook)
	}

	res := &Residue{
		Type:            resType,
		begin:           int(begin),
		end:             int(end),
		partitionSize:   int(partitionSizeM1) + 1,
		classifications: int(classificationsM1) + 1,
		classbook:       int(classbook),
	}

	res.classCascade = make([]uint8, res.classifications)
	for c := range res.classCascade {
		lowBits, err := r.ReadBitsLEQ32(3)
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: residue: cascade low bits class %d", c)
		}
		cascade := uint8(lowBits)
		more, err := r.ReadBool()
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: residue: cascade bit flag class %d", c)
		}
		if more {
			highBits, err := r.ReadBitsLEQ32(5)
			if err != nil {
				return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: residue: cascade high bits class %d", c)
			}
			cascade |= uint8(highBits) << 3
		}
		res.classCascade[c] = cascade
	}

	res.classBooks = make([][residueMaxPasses]int, res.classifications)
	for c := 0; c < res.classifications; c++ {
		for p := 0; p < residueMaxPasses; p++ {
			res.classBooks[c][p] = -1
			if res.classCascade[c]&(1<<uint(p)) == 0 {
				continue
			}
			book, err := r.ReadBitsLEQ32(8)
			if err != nil {
				return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: residue: class %d pass %d book", c, p)
			}
			if int(book) >= len(codebooks) {
				return nil, mediaerr.New(mediaerr.Decode, "vorbis: residue: class %d pass %d book %d out of range", c, p, book)
			}
			res.classBooks[c][p] = int(book)
		}
	}

	return res, nil
}

// Decode reconstructs the residue vectors for the channels in
// chanMask (a bitset over channel indices) out of the interleaved
// output slices in out, one per channel, each of length n2 (spec.md
// §4.4). doNotDecode channels are left untouched (callers pre-zero
// them). An EndOfStream mid-residue is tolerated (fewer passes were
// encoded); any other error aborts.
func (res *Residue) Decode(r *bitreader.Reader, books []*Codebook, out [][]float32, chanMask []bool, n2 int) error {
	begin := res.begin
	if begin > n2 {
		begin = n2
	}
	end := res.end
	if end > n2 {
		end = n2
	}
	if begin >= end {
		return nil
	}

	switch res.Type {
	case 0, 1:
		for ch, use := range chanMask {
			if !use {
				continue
			}
			if err := res.decodeOnePass(r, books, out[ch], begin, end); err != nil {
				if mediaerr.Is(err, mediaerr.EndOfStream) {
					return nil
				}
				return err
			}
		}
		return nil
	case 2:
		return res.decodeType2(r, books, out, chanMask, begin, end, n2)
	default:
		return mediaerr.New(mediaerr.Decode, "vorbis: residue: unsupported type %d", res.Type)
	}
}

// decodeOnePass runs the full multi-pass partition loop for a single
// channel's residue vector (residue types 0 and 1).
func (res *Residue) decodeOnePass(r *bitreader.Reader, books []*Codebook, out []float32, begin, end int) error {
	classbook := books[res.classbook]
	partitions := (end - begin) / res.partitionSize
	classDim := classbook.Dimensions
	classWords := (partitions + classDim - 1) / classDim
	if classDim <= 0 {
		classDim = 1
	}

	classify := make([][]int, classWords)

	for pass := 0; pass < residueMaxPasses; pass++ {
		partitionNum := 0
		for word := 0; partitionNum < partitions; word++ {
			if pass == 0 {
				v, err := classbook.ReadScalar(r)
				if err != nil {
					return err
				}
				digits := make([]int, classDim)
				cval := v
				for d := classDim - 1; d >= 0; d-- {
					digits[d] = int(cval) % res.classifications
					cval /= int32(res.classifications)
				}
				classify[word] = digits
			}
			digits := classify[word]
			for d := 0; d < classDim && partitionNum < partitions; d, partitionNum = d+1, partitionNum+1 {
				class := digits[d]
				book := res.classBooks[class][pass]
				if book < 0 {
					continue
				}
				offset := begin + partitionNum*res.partitionSize
				if err := res.readPartition(r, books[book], out, offset, res.partitionSize); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// readPartition decodes one partition's VQ vectors into out[offset:
// offset+size] per the residue type's layout (spec.md §4.4 "Type 0/1
// partition read"). Type 2 reuses the type 1 (dense) layout, since it
// is decoded as a single interleaved type-1 stream by decodeType2.
func (res *Residue) readPartition(r *bitreader.Reader, book *Codebook, out []float32, offset, size int) error {
	dim := book.Dimensions
	if dim <= 0 {
		return mediaerr.New(mediaerr.Decode, "vorbis: residue: codebook has zero dimensions")
	}
	switch res.Type {
	case 0:
		step := size / dim
		for i := 0; i < step; i++ {
			vec, err := book.ReadValue(r)
			if err != nil {
				return err
			}
			for j := 0; j < dim; j++ {
				idx := offset + i + j*step
				if idx < len(out) {
					out[idx] += vec[j]
				}
			}
		}
	case 1, 2:
		// Type 2 is decoded as a single interleaved type-1 stream by
		// decodeType2 (spec.md §4.4: "residue type 2 is decoded
		// as if it were type 1"), so the partition layout is identical.
		switch dim {
		case 2:
			for i := 0; i < size; i += 2 {
				vec, err := book.ReadValue(r)
				if err != nil {
					return err
				}
				out[offset+i] += vec[0]
				out[offset+i+1] += vec[1]
			}
		case 4:
			for i := 0; i < size; i += 4 {
				vec, err := book.ReadValue(r)
				if err != nil {
					return err
				}
				out[offset+i] += vec[0]
				out[offset+i+1] += vec[1]
				out[offset+i+2] += vec[2]
				out[offset+i+3] += vec[3]
			}
		default:
			for i := 0; i < size; i += dim {
				vec, err := book.ReadValue(r)
				if err != nil {
					return err
				}
				for j := 0; j < dim && i+j < size; j++ {
					out[offset+i+j] += vec[j]
				}
			}
		}
	}
	return nil
}

// decodeType2 decodes all active channels as a single interleaved
// buffer (as if type 1) and de-interleaves back into per-channel
// vectors (spec.md §4.4 "Type 2").
func (res *Residue) decodeType2(r *bitreader.Reader, books []*Codebook, out [][]float32, chanMask []bool, begin, end, n2 int) error {
	var active []int
	for ch, use := range chanMask {
		if use {
			active = append(active, ch)
		}
	}
	if len(active) == 0 {
		return nil
	}
	interleaved := make([]float32, n2*len(active))

	interleavedBegin := begin * len(active)
	interleavedEnd := end * len(active)
	if err := res.decodeOnePass(r, books, interleaved, interleavedBegin, interleavedEnd); err != nil {
		if !mediaerr.Is(err, mediaerr.EndOfStream) {
			return err
		}
	}

	for i, ch := range active {
		dst := out[ch]
		for s := begin; s < end; s++ {
			dst[s] += interleaved[s*len(active)+i]
		}
	}
	return nil
}
