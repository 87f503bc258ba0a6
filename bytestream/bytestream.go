// Package bytestream implements the ring-buffered, seek-back byte
// source described in spec.md §5/§6: a block-fetching reader layered
// over a seekable stream, sized so that the Ogg page reader and
// bisection seek never need to re-open the underlying source.
package bytestream

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/christosk92/WaveeVorbis/mediaerr"
)

// SeekOrigin mirrors io.Seek* without forcing callers to import "io"
// just to drive a Source.
type SeekOrigin int

const (
	SeekStart   SeekOrigin = SeekOrigin(io.SeekStart)
	SeekCurrent SeekOrigin = SeekOrigin(io.SeekCurrent)
	SeekEnd     SeekOrigin = SeekOrigin(io.SeekEnd)
)

// MinBufferLength is the minimum ring buffer size spec.md §5 allows:
// 64 KiB, and it must exceed the largest legal Vorbis block (32 KiB).
const MinBufferLength = 64 * 1024

// Source is the abstract input byte source spec.md §6 defines: small
// fixed-size reads plus positional queries and seeking. Only the Ogg
// page reader's sync scan, bisection seek, and buffer growth ever call
// Seek/BufferedSeek/EnsureSeekBack; ordinary packet reassembly only uses
// the ReadX family.
type Source interface {
	ReadExact(buf []byte) error
	ReadByte() (byte, error)
	ReadQuad() ([4]byte, error)
	ReadU32LE() (uint32, error)
	ReadU64LE() (uint64, error)
	Position() int64
	Seek(origin SeekOrigin, offset int64) (int64, error)
	BufferedSeek(pos int64) error
	EnsureSeekBack(length int64) error
}

// Reader is the concrete Source: a ring buffer over an io.ReadSeeker
// with a separately tracked seek-back window, grown on demand up to the
// maximum Ogg page size.
type Reader struct {
	rs    io.ReadSeeker
	total int64 // total stream length, or -1 if unknown

	buf    []byte // ring buffer, length is a power of two
	head   int    // next unread logical byte, as an index mod len(buf)
	filled int    // number of valid bytes currently in buf
	pos    int64  // absolute stream position of the next unread byte

	seekBack int64 // extra bytes guaranteed retrievable via BufferedSeek
}

// NewReader wraps rs in a Reader with the given ring buffer length,
// rounded up to a power of two no smaller than MinBufferLength.
func NewReader(rs io.ReadSeeker, bufferLength int) (*Reader, error) {
	n := MinBufferLength
	for n < bufferLength {
		n <<= 1
	}
	total := int64(-1)
	if end, err := rs.Seek(0, io.SeekEnd); err == nil {
		total = end
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, mediaerr.Wrap(mediaerr.IO, err, "bytestream: seek to start")
		}
	}
	return &Reader{rs: rs, total: total, buf: make([]byte, n)}, nil
}

// Position returns the absolute offset of the next unread byte.
func (r *Reader) Position() int64 { return r.pos }

// Len returns the total stream length, or -1 if the underlying source
// is not seekable and the length is unknown.
func (r *Reader) Len() int64 { return r.total }

// fillAtLeast ensures at least n bytes are available in the ring buffer,
// pulling more from the underlying reader as needed.
func (r *Reader) fillAtLeast(n int) error {
	if n > len(r.buf) {
		return mediaerr.New(mediaerr.IO, "bytestream: requested read of %d exceeds buffer length %d", n, len(r.buf))
	}
	for r.filled < n {
		tail := (r.head + r.filled) % len(r.buf)
		// Read in one contiguous chunk up to the buffer wraparound.
		space := len(r.buf) - tail
		if space > len(r.buf)-r.filled {
			space = len(r.buf) - r.filled
		}
		m, err := r.rs.Read(r.buf[tail : tail+space])
		if m > 0 {
			r.filled += m
		}
		if err != nil {
			if errors.Is(err, io.EOF) && m > 0 {
				continue
			}
			return mediaerr.Wrap(mediaerr.IO, err, "bytestream: read")
		}
	}
	return nil
}

// take copies n bytes out of the ring buffer into dst (which must be
// exactly n bytes long) and advances head/pos/seekBack bookkeeping.
func (r *Reader) take(dst []byte) {
	n := len(dst)
	for i := 0; i < n; i++ {
		dst[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	r.head = (r.head + n) % len(r.buf)
	r.filled -= n
	r.pos += int64(n)
}

// ReadExact fills buf completely or fails with mediaerr.IO (EOF included).
func (r *Reader) ReadExact(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	if len(buf) > len(r.buf) {
		// Larger than the ring buffer itself (e.g. a maximal Ogg page
		// body): bypass the ring and read directly, first draining
		// whatever is already buffered.
		drained := r.filled
		if drained > 0 {
			r.take(buf[:drained])
		}
		if drained < len(buf) {
			m, err := io.ReadFull(r.rs, buf[drained:])
			r.pos += int64(m)
			if err != nil {
				return mediaerr.Wrap(mediaerr.IO, err, "bytestream: direct read")
			}
		}
		return nil
	}
	if err := r.fillAtLeast(len(buf)); err != nil {
		return err
	}
	r.take(buf)
	return nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	var b [1]byte
	if err := r.ReadExact(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadQuad reads 4 raw bytes, e.g. the "OggS" capture pattern.
func (r *Reader) ReadQuad() ([4]byte, error) {
	var b [4]byte
	if err := r.ReadExact(b[:]); err != nil {
		return b, err
	}
	return b, nil
}

// ReadU32LE reads a little-endian uint32.
func (r *Reader) ReadU32LE() (uint32, error) {
	var b [4]byte
	if err := r.ReadExact(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadU64LE reads a little-endian uint64.
func (r *Reader) ReadU64LE() (uint64, error) {
	var b [8]byte
	if err := r.ReadExact(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Seek discards the ring buffer contents and repositions the underlying
// stream. Used by page-sync resync and bisection seek.
func (r *Reader) Seek(origin SeekOrigin, offset int64) (int64, error) {
	abs, err := r.rs.Seek(offset, int(origin))
	if err != nil {
		return 0, mediaerr.NewSeek(mediaerr.Unseekable, "bytestream: seek: %v", err)
	}
	r.head, r.filled = 0, 0
	r.pos = abs
	return abs, nil
}

// BufferedSeek repositions to an absolute offset. An offset in
// [pos, pos+filled] is served from the buffered bytes without touching
// the underlying stream; any other offset, including one behind the
// current position, falls back to a real Seek.
func (r *Reader) BufferedSeek(pos int64) error {
	delta := pos - r.pos
	if delta >= 0 && delta <= int64(r.filled) {
		r.head = (r.head + int(delta)) % len(r.buf)
		r.filled -= int(delta)
		r.pos = pos
		return nil
	}
	_, err := r.Seek(SeekStart, pos)
	return err
}

// EnsureSeekBack grows the buffer, if needed, to hold at least length
// bytes and records length as the seek-back size. BufferedSeek does not
// serve backward offsets from the buffer; they go through a real Seek.
// The Ogg reader calls this with the maximum page size.
func (r *Reader) EnsureSeekBack(length int64) error {
	if length <= r.seekBack {
		return nil
	}
	want := MinBufferLength
	for int64(want) < length {
		want <<= 1
	}
	if want <= len(r.buf) {
		r.seekBack = length
		return nil
	}
	newBuf := make([]byte, want)
	n := copy(newBuf, r.linearize())
	r.buf = newBuf
	r.head = 0
	r.filled = n
	r.seekBack = length
	return nil
}

// linearize returns the currently buffered bytes in read order.
func (r *Reader) linearize() []byte {
	out := make([]byte, r.filled)
	for i := 0; i < r.filled; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}
