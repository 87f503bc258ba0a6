package oggdemux

import (
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/christosk92/WaveeVorbis/bytestream"
	"github.com/christosk92/WaveeVorbis/mediaerr"
)

// MaxPageBodyLength is the largest legal Ogg page body: 255 segments of
// up to 255 bytes each (spec.md §3).
const MaxPageBodyLength = 255 * 255

// MaxPageLength is the largest a page (header + segment table + body)
// can ever be; used to size seek-back capacity for bisection seeking.
const MaxPageLength = 27 + 255 + MaxPageBodyLength

const (
	flagContinuation = 0x01
	flagFirstPage    = 0x02
	flagLastPage     = 0x04
	flagReservedMask = 0xF8
)

// PageHeader is the fixed 27-byte Ogg page header plus its variable
// segment table (spec.md §3 OggPageHeader).
type PageHeader struct {
	Version       uint8
	Continuation  bool
	FirstPage     bool
	LastPage      bool
	AbsGranulePos uint64
	Serial        uint32
	Sequence      uint32
	CRC           uint32
	SegmentTable  []byte
}

// Page is a parsed Ogg page: its header plus the raw body bytes and the
// lengths of each packet completed within this page (spec.md §3
// OggPage). A packet ends at any segment whose length is < 255; a
// trailing run of 255s with no terminator leaves PartialLength non-zero.
type Page struct {
	Header PageHeader
	Body   []byte

	// PacketLengths holds the byte length of each packet that was
	// completed (terminated) within this page's body.
	PacketLengths []int
	// PartialLength is the length of a dangling, unterminated packet
	// tail at the end of the body (0 if the page ends cleanly).
	PartialLength int
}

// syncMarker is the Ogg capture pattern "OggS".
var syncMarker = [4]byte{'O', 'g', 'g', 'S'}

// PageReader scans a Source for well-formed, CRC-valid Ogg pages,
// resynchronizing past corrupt data automatically (spec.md §4.10).
type PageReader struct {
	src bytestream.Source
}

// NewPageReader wraps src. The caller must have already called
// src.EnsureSeekBack(MaxPageLength) if bisection seeking will be used.
func NewPageReader(src bytestream.Source) *PageReader {
	return &PageReader{src: src}
}

// sync advances past bytes until the 4-byte "OggS" capture pattern is
// found, one byte at a time (spec.md §4.10 "byte-wise shift-register
// scan"). It returns the absolute stream position at which the match
// started, so a CRC failure downstream can resync from just past it.
func (pr *PageReader) sync() (int64, error) {
	matchPos := pr.src.Position()
	b, err := pr.src.ReadQuad()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, mediaerr.New(mediaerr.EndOfStream, "oggdemux: end of stream")
		}
		return 0, mediaerr.Wrap(mediaerr.IO, err, "oggdemux: sync: initial read")
	}
	window := b
	for window != syncMarker {
		matchPos++
		next, err := pr.src.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, mediaerr.New(mediaerr.EndOfStream, "oggdemux: end of stream")
			}
			return 0, mediaerr.Wrap(mediaerr.IO, err, "oggdemux: sync: scanning for capture pattern")
		}
		window[0], window[1], window[2], window[3] = window[1], window[2], window[3], next
	}
	return matchPos, nil
}

// NextPage reads and CRC-verifies the next page from src. On a CRC
// mismatch it discards the page, seeks back to one byte past the failed
// sync point and returns a mediaerr.CrcMismatch error; the next call
// rescans for a capture pattern from there (spec.md §4.10).
func (pr *PageReader) NextPage() (*Page, error) {
	syncPos, err := pr.sync()
	if err != nil {
		return nil, err
	}

	var raw [23]byte
	if err := pr.src.ReadExact(raw[:]); err != nil {
		return nil, mediaerr.Wrap(mediaerr.IO, err, "oggdemux: reading page header")
	}

	hdr := PageHeader{Version: raw[0]}
	flags := raw[1]
	if flags&flagReservedMask != 0 {
		return nil, mediaerr.New(mediaerr.Decode, "oggdemux: reserved header flag bits set")
	}
	hdr.Continuation = flags&flagContinuation != 0
	hdr.FirstPage = flags&flagFirstPage != 0
	hdr.LastPage = flags&flagLastPage != 0
	if hdr.Version != 0 {
		return nil, mediaerr.New(mediaerr.Decode, "oggdemux: unsupported page version %d", hdr.Version)
	}

	hdr.AbsGranulePos = leU64(raw[2:10])
	hdr.Serial = leU32(raw[10:14])
	hdr.Sequence = leU32(raw[14:18])
	hdr.CRC = leU32(raw[18:22])
	segCount := int(raw[22])

	segTable := make([]byte, segCount)
	if err := pr.src.ReadExact(segTable); err != nil {
		return nil, mediaerr.Wrap(mediaerr.IO, err, "oggdemux: reading segment table")
	}
	hdr.SegmentTable = segTable

	bodyLen := 0
	for _, s := range segTable {
		bodyLen += int(s)
	}
	if bodyLen > MaxPageBodyLength {
		return nil, mediaerr.New(mediaerr.Decode, "oggdemux: page body %d exceeds maximum %d", bodyLen, MaxPageBodyLength)
	}

	body := make([]byte, bodyLen)
	if err := pr.src.ReadExact(body); err != nil {
		return nil, mediaerr.Wrap(mediaerr.IO, err, "oggdemux: reading page body")
	}

	if err := verifyCRC(raw[:], segTable, body, hdr.CRC); err != nil {
		log.WithFields(log.Fields{
			"serial":   hdr.Serial,
			"sequence": hdr.Sequence,
		}).Debugf("oggdemux: page CRC mismatch, resyncing: %v", err)
		if _, seekErr := pr.src.Seek(bytestream.SeekStart, syncPos+1); seekErr != nil {
			return nil, mediaerr.Wrap(mediaerr.IO, seekErr, "oggdemux: resync after CRC mismatch")
		}
		return nil, mediaerr.New(mediaerr.CrcMismatch, "oggdemux: page CRC mismatch")
	}

	page := &Page{Header: hdr, Body: body}
	run := 0
	for _, s := range segTable {
		run += int(s)
		if s < 255 {
			page.PacketLengths = append(page.PacketLengths, run)
			run = 0
		}
	}
	if run > 0 {
		page.PartialLength = run
	}
	return page, nil
}

// verifyCRC recomputes the Ogg CRC-32 over the 27-byte header (with its
// 4 CRC bytes zeroed) concatenated with the segment table and body, and
// compares it against want.
func verifyCRC(fixed23 []byte, segTable, body []byte, want uint32) error {
	var header [27]byte
	copy(header[0:4], syncMarker[:])
	copy(header[4:27], fixed23)
	// Zero the CRC field (bytes 22..25 of the full 27-byte header, i.e.
	// bytes 18..21 of fixed23).
	header[22], header[23], header[24], header[25] = 0, 0, 0, 0

	crc := crc32Ogg(0, header[:])
	crc = crc32Ogg(crc, segTable)
	crc = crc32Ogg(crc, body)
	if crc != want {
		return mediaerr.New(mediaerr.CrcMismatch, "computed %08x, want %08x", crc, want)
	}
	return nil
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leU64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
