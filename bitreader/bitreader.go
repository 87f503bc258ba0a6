// Package bitreader implements the LSb-first ("rightmost bit is read
// first") bit reader used to parse Vorbis setup headers and audio
// packets, plus the generic canonical-Huffman codebook table it decodes
// against.
//
// The bit order and the codebook-tree descent algorithm are specific
// enough to Vorbis (and similar lapped-transform codecs) that no general
// purpose bit-I/O library in the surrounding ecosystem implements them
// directly; this package is hand-rolled against the standard library
// rather than wrapping one. See DESIGN.md for the full justification.
package bitreader

import "github.com/christosk92/WaveeVorbis/mediaerr"

// Reader reads bits LSb-first from an in-memory byte slice: within each
// byte, bit 0 (the least significant bit) is read first. A 64-bit
// rolling cache is refilled from the underlying buffer in 1-8 byte
// chunks, and partial refills (fewer than 8 bytes available) are
// permitted so that read_codebook can still decode a code straddling the
// last few bytes of a packet.
type Reader struct {
	buf    []byte
	pos    int    // next unread byte in buf
	cache  uint64 // rolling bit cache, valid bits are the low `bits` bits
	bits   uint   // number of valid bits currently in cache
	failed bool   // sticky EndOfStream flag once the buffer is exhausted
}

// NewReader builds a Reader over buf. buf is not copied; the caller must
// not mutate it while the Reader is in use.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// BitsRemaining returns the number of bits left to read, including those
// already cached.
func (r *Reader) BitsRemaining() int {
	return len(r.buf)*8 - r.pos*8 + int(r.bits)
}

// refill tops the cache up to at least n bits (n <= 32), consuming bytes
// from buf. It is not an error for fewer than n bits to become available
// if the underlying buffer is exhausted first; callers check bits after
// calling refill.
func (r *Reader) refill(n uint) {
	for r.bits < n && r.pos < len(r.buf) {
		r.cache |= uint64(r.buf[r.pos]) << r.bits
		r.pos++
		r.bits += 8
	}
}

// ReadBool consumes and returns one bit as a bool.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadBitsLEQ32(1)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// ReadBitsLEQ32 reads the next n bits (0 <= n <= 32) and returns them as
// an unsigned integer, LSb-first. It fails with mediaerr.EndOfStream if
// fewer than n bits remain in the stream.
func (r *Reader) ReadBitsLEQ32(n uint) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if n > 32 {
		panic("bitreader: ReadBitsLEQ32: n > 32")
	}
	r.refill(n)
	if r.bits < n {
		r.failed = true
		return 0, mediaerr.New(mediaerr.EndOfStream, "need %d bits, have %d", n, r.bits)
	}
	mask := uint64(1)<<n - 1
	v := uint32(r.cache & mask)
	r.cache >>= n
	r.bits -= n
	return v, nil
}

// IgnoreBits advances the stream by n bits without returning them. It
// fails with mediaerr.EndOfStream if fewer than n bits remain.
func (r *Reader) IgnoreBits(n uint) error {
	for n > 32 {
		if _, err := r.ReadBitsLEQ32(32); err != nil {
			return err
		}
		n -= 32
	}
	_, err := r.ReadBitsLEQ32(n)
	return err
}

// peekFull returns up to 32 bits without consuming them, refilling the
// cache first. The returned count may be less than want if the stream is
// close to exhausted; codebook descent uses whatever is available and
// only fails once it truly needs more bits than exist.
func (r *Reader) peekFull(want uint) (val uint32, have uint) {
	r.refill(want)
	have = r.bits
	if have > 32 {
		have = 32
	}
	mask := uint64(1)<<have - 1
	return uint32(r.cache & mask), have
}

// dropBits consumes n already-cached bits (n <= r.bits).
func (r *Reader) dropBits(n uint) {
	r.cache >>= n
	r.bits -= n
}

// ReadCodebook decodes one Huffman code using cb, returning the decoded
// value entry's payload and the number of bits consumed. It may fail
// with mediaerr.EndOfStream mid-codeword, at the tail of a packet.
//
// Algorithm (spec.md §4.1): the table begins with one sentinel jump
// entry whose jump-width is the initial peek width. The decoder peeks
// that many bits, indexes the table at (peek + sentinel offset), and
// while the indexed entry is a jump, consumes its width and re-peeks /
// re-indexes at the entry's jump target with the entry's own width.
// When a value entry is found, its value-width bits are consumed and its
// payload returned.
func (r *Reader) ReadCodebook(cb *Codebook) (int32, uint, error) {
	if len(cb.entries) == 0 {
		return 0, 0, mediaerr.New(mediaerr.Decode, "codebook has no entries")
	}

	sentinel := cb.entries[0]
	width := sentinel.jumpWidth()
	offset := sentinel.jumpOffset()
	var consumed uint

	for {
		peek, have := r.peekFull(width)
		if have < width {
			// Not enough bits left to safely index; if we can't make
			// any forward progress at all this is EndOfStream.
			if have == 0 {
				return 0, 0, mediaerr.New(mediaerr.EndOfStream, "codebook: no bits remain")
			}
			// Zero-extend the missing high bits; a well-formed stream
			// never actually walks into the padding because the last
			// codeword always terminates within the available bits.
		}
		idx := offset + uint32(peek&((1<<width)-1))
		if int(idx) >= len(cb.entries) {
			return 0, 0, mediaerr.New(mediaerr.Decode, "codebook: table index %d out of range", idx)
		}
		entry := cb.entries[idx]
		if entry.isJump() {
			if have < width {
				return 0, 0, mediaerr.New(mediaerr.EndOfStream, "codebook: mid-code truncation")
			}
			r.dropBits(width)
			consumed += width
			width = entry.jumpWidth()
			offset = entry.jumpOffset()
			continue
		}
		vw := entry.valueWidth()
		if have < vw {
			return 0, 0, mediaerr.New(mediaerr.EndOfStream, "codebook: mid-value truncation")
		}
		r.dropBits(vw)
		consumed += vw
		return entry.value(), consumed, nil
	}
}
