package bitreader

import "github.com/christosk92/WaveeVorbis/mediaerr"

// entry is the packed 64-bit Huffman table entry described in spec.md
// §9 "Codebook entry polymorphism": the MSB is the jump flag, the next
// 31 bits hold either a jump offset or a value payload, and the low 32
// bits hold either the jump width or the value's consumed bit width.
type entry uint64

const jumpFlag = uint64(1) << 63

func makeJumpEntry(offset uint32, width uint) entry {
	return entry(jumpFlag | uint64(offset)<<32 | uint64(width))
}

func makeValueEntry(value int32, width uint) entry {
	return entry(uint64(uint32(value))<<32 | uint64(width))
}

func (e entry) isJump() bool       { return uint64(e)&jumpFlag != 0 }
func (e entry) jumpOffset() uint32 { return uint32((uint64(e) &^ jumpFlag) >> 32) }
func (e entry) jumpWidth() uint    { return uint(uint32(e)) }
func (e entry) value() int32       { return int32(uint32(uint64(e) >> 32)) }
func (e entry) valueWidth() uint   { return uint(uint32(e)) }

// Codebook is a flat, sentinel-prefixed Huffman decode table built by
// BuildCodebook.
type Codebook struct {
	entries []entry
}

// BitOrder selects how a codeword's bits map onto table indices. Vorbis
// always uses Reverse; Verbatim is retained because spec.md §4.2
// describes the construction as supporting both.
type BitOrder int

const (
	// Verbatim indexes a block using the codeword bits in read order.
	Verbatim BitOrder = iota
	// Reverse indexes a block using the codeword bits in reverse read
	// order: table index at a given prefix is reverse_bits(prefix)
	// rotated left by the block width. Vorbis codebooks use this mode.
	Reverse
)

// MaxBitsPerBlock is the default block width used when splitting the
// prefix tree into table blocks; Vorbis runtime codebooks use 8.
const MaxBitsPerBlock = 8

// codeword pairs a Huffman codeword with its value and bit length, the
// parallel-array input to BuildCodebook.
type codeword struct {
	length uint // 0 means unused (sparse only)
	value  int32
	code   uint32 // only the low `length` bits are meaningful
}

// BuildCodebook constructs a canonical Huffman decode table from
// parallel arrays of codewords, lengths and values (spec.md §4.2). A
// zero length marks an unused entry and is only legal when sparse is
// true. order selects the bit-indexing convention; Vorbis always passes
// Reverse. blockBits caps each table block's width (<=32); Vorbis passes
// MaxBitsPerBlock (8).
func BuildCodebook(lengths []uint, values []int32, order BitOrder, blockBits uint, sparse bool) (*Codebook, error) {
	if len(lengths) != len(values) {
		panic("bitreader: BuildCodebook: lengths/values length mismatch")
	}

	used := 0
	maxLen := uint(0)
	for _, l := range lengths {
		if l == 0 {
			if !sparse {
				return nil, mediaerr.New(mediaerr.Decode, "codebook: zero-length codeword in non-sparse codebook")
			}
			continue
		}
		used++
		if l > maxLen {
			maxLen = l
		}
	}
	if used == 0 {
		return nil, mediaerr.New(mediaerr.Decode, "codebook: no used entries")
	}

	words, err := assignCanonicalCodewords(lengths, values)
	if err != nil {
		return nil, err
	}

	// Completeness check: a canonical tree is complete iff the Kraft sum
	// of 2^(maxLen-length) over used leaves equals 2^maxLen, unless
	// there is exactly one used leaf (a single-entry codebook needs zero
	// bits to disambiguate).
	if used > 1 {
		var sum uint64
		for _, w := range words {
			if w.length == 0 {
				continue
			}
			sum += uint64(1) << (maxLen - w.length)
		}
		if sum != uint64(1)<<maxLen {
			return nil, mediaerr.New(mediaerr.Decode, "codebook: incomplete Huffman tree")
		}
	}

	// Slot 0 is reserved for the sentinel, so every block offset the
	// builder records is already an index into the final entries slice.
	b := &treeBuilder{order: order, blockBits: blockBits, table: []entry{0}}
	root, err := b.buildBlock(words, 0, blockBits)
	if err != nil {
		return nil, err
	}

	b.table[0] = makeJumpEntry(root, blockBits)
	return &Codebook{entries: b.table}, nil
}

// assignCanonicalCodewords assigns canonical (lowest-value-first,
// left-justified) codewords to each non-zero length, per the standard
// canonical Huffman procedure used by Vorbis's own length-ordered
// codebook encoding. Each codeword's decoded value is taken from
// values[i], not from i itself: callers that want a plain index decode
// an identity slice, but the table is free to map entries to any
// value (e.g. a sparse codebook skipping unused entries).
func assignCanonicalCodewords(lengths []uint, values []int32) ([]codeword, error) {
	out := make([]codeword, len(lengths))
	for i, l := range lengths {
		out[i] = codeword{length: l, value: values[i]}
	}

	maxLen := uint(0)
	for _, l := range lengths {
		if l > maxLen {
			maxLen = l
		}
	}
	if maxLen == 0 {
		return out, nil
	}

	counts := make([]int, maxLen+1)
	for _, l := range lengths {
		if l > 0 {
			counts[l]++
		}
	}
	firstCode := make([]uint32, maxLen+2)
	var code uint32
	for l := uint(1); l <= maxLen; l++ {
		code = (code + uint32(counts[l-1])) << 1
		firstCode[l] = code
	}
	next := append([]uint32(nil), firstCode...)
	for i, l := range lengths {
		if l == 0 {
			continue
		}
		out[i].code = next[l]
		next[l]++
		if out[i].code>>l != 0 {
			return nil, mediaerr.New(mediaerr.Decode, "codebook: table overflow assigning canonical codes")
		}
	}
	return out, nil
}

// treeBuilder recursively partitions the prefix tree into fixed-width
// table blocks, appending entries to table and returning each block's
// offset within it.
type treeBuilder struct {
	order     BitOrder
	blockBits uint
	table     []entry
}

// buildBlock builds one table block covering codewords whose prefix (of
// length `consumed`) has already been stripped from the words passed in,
// using up to `width` further bits for this block. Returns the offset
// of the new block within b.table.
func (b *treeBuilder) buildBlock(words []codeword, consumed uint, width uint) (uint32, error) {
	size := uint32(1) << width
	if uint64(len(b.table))+uint64(size) > 0x7FFFFFFF {
		return 0, mediaerr.New(mediaerr.Decode, "codebook: table overflow beyond jump range")
	}
	block := make([]entry, size)
	filled := make([]bool, size)

	// remainingBits returns the `remaining`-bit value of w.code left
	// after stripping the already-consumed top bits (the low `remaining`
	// bits of w.code, since canonical codes are assigned MSb-first).
	remainingBits := func(w codeword) (uint32, uint) {
		remaining := w.length - consumed
		mask := uint32(1)<<remaining - 1
		return w.code & mask, remaining
	}

	// Leaves: codewords that terminate within this block's width.
	for _, w := range words {
		rem, remaining := remainingBits(w)
		if remaining > width {
			continue
		}
		idx := tableIndex(rem, remaining, width, b.order)
		e := makeValueEntry(w.value, remaining)
		for i := uint32(0); i < size; i++ {
			if matchesPrefix(i, idx, remaining, width, b.order) {
				block[i] = e
				filled[i] = true
			}
		}
	}

	// Any unfilled slot roots a deeper sub-block; collect the words that
	// fall under each such prefix and recurse.
	for i := uint32(0); i < size; i++ {
		if filled[i] {
			continue
		}
		prefix := slotPrefix(i, width, b.order)
		var sub []codeword
		for _, w := range words {
			rem, remaining := remainingBits(w)
			if remaining <= width {
				continue
			}
			chunk := rem >> (remaining - width)
			wp := tableIndex(chunk, width, width, b.order)
			if wp != prefix {
				continue
			}
			sub = append(sub, codeword{length: w.length, value: w.value, code: w.code})
		}
		if len(sub) == 0 {
			// Dead slot: never reached by any codeword. Leave it as a
			// zero-width value entry (value 0, no bits consumed) so a
			// malformed stream terminates the lookup rather than looping.
			block[i] = makeValueEntry(0, 0)
			filled[i] = true
			continue
		}
		subWidth := b.blockBits
		subOffset, err := b.buildBlock(sub, consumed+width, subWidth)
		if err != nil {
			return 0, err
		}
		block[i] = makeJumpEntry(subOffset, subWidth)
		filled[i] = true
	}

	// The offset must be captured only now: recursive buildBlock calls
	// above append their own sub-blocks to b.table first, so this
	// block's final position is wherever the table ends up once those
	// children are in place, not where it was when we started.
	offset := uint32(len(b.table))
	if uint64(offset)+uint64(size) > 0x7FFFFFFF {
		return 0, mediaerr.New(mediaerr.Decode, "codebook: table overflow beyond jump range")
	}
	b.table = append(b.table, block...)
	return offset, nil
}


// tableIndex maps a `bits`-wide prefix to its base slot in a
// `width`-wide block under the chosen bit order, with the don't-care
// bits zero; matchesPrefix enumerates every slot that shares the prefix.
func tableIndex(prefix uint32, bits uint, width uint, order BitOrder) uint32 {
	if bits == 0 {
		return 0
	}
	switch order {
	case Verbatim:
		return prefix << (width - bits)
	default: // Reverse
		return reverseBits(prefix, bits)
	}
}

// matchesPrefix reports whether table slot i (a `width`-bit index)
// falls under the `bits`-wide prefix `idx` was computed from.
func matchesPrefix(i uint32, idx uint32, bits uint, width uint, order BitOrder) bool {
	if bits == 0 {
		return true
	}
	switch order {
	case Verbatim:
		mask := uint32(1)<<width - uint32(1)<<(width-bits)
		return i&mask == idx
	default: // Reverse
		mask := uint32(1)<<bits - 1
		return i&mask == idx
	}
}

// slotPrefix extracts the `width`-bit prefix identifying which sub-block
// slot i belongs to (used when recursing past a block boundary).
func slotPrefix(i uint32, width uint, order BitOrder) uint32 {
	switch order {
	case Verbatim:
		return i
	default: // Reverse
		return i & (uint32(1)<<width - 1)
	}
}

// reverseBits reverses the low `bits` bits of v.
func reverseBits(v uint32, bits uint) uint32 {
	var r uint32
	for i := uint(0); i < bits; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}
