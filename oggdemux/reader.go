package oggdemux

import (
	log "github.com/sirupsen/logrus"

	"github.com/christosk92/WaveeVorbis/bytestream"
	"github.com/christosk92/WaveeVorbis/mediaerr"
)

// lengther is implemented by bytestream.Reader; OggReader type-asserts
// for it to enable bisection seeking, which needs the total stream
// length as the initial search bound.
type lengther interface {
	Len() int64
}

// OggReader demultiplexes the physical Ogg stream on src into one or
// more logical streams, handling BOS/EOS bookkeeping, chained-stream
// boundaries, and bisection seeking (spec.md §4 "OggReader").
type OggReader struct {
	src    bytestream.Source
	pages  *PageReader
	length int64 // total byte length, or -1 if unknown/unseekable

	streams []*LogicalStream
	byID    map[uint32]*LogicalStream

	queue []Packet

	sawAnyEOS     bool
	chainBoundary bool
}

// NewOggReader consumes the leading run of beginning-of-stream pages,
// registering a LogicalStream (and, once its identification packet is
// known, a Mapper) for each, then returns a reader positioned to yield
// ordinary data packets via NextPacket.
func NewOggReader(src bytestream.Source) (*OggReader, error) {
	if err := src.EnsureSeekBack(int64(MaxPageLength)); err != nil {
		return nil, err
	}
	r := &OggReader{
		src:   src,
		pages: NewPageReader(src),
		byID:  make(map[uint32]*LogicalStream),
	}
	if l, ok := src.(lengther); ok {
		r.length = l.Len()
	} else {
		r.length = -1
	}

	for {
		page, err := r.pages.NextPage()
		if err != nil {
			if mediaerr.Is(err, mediaerr.CrcMismatch) {
				continue
			}
			return nil, err
		}
		if !page.Header.FirstPage {
			// The BOS run has ended; feed this page to its stream and
			// start ordinary demuxing from here.
			if err := r.dispatch(page); err != nil {
				return nil, err
			}
			break
		}
		ls := NewLogicalStream(page.Header.Serial)
		r.streams = append(r.streams, ls)
		r.byID[page.Header.Serial] = ls
		if err := r.dispatch(page); err != nil {
			return nil, err
		}
	}
	if len(r.streams) == 0 {
		return nil, mediaerr.New(mediaerr.Decode, "oggdemux: no logical streams found")
	}
	return r, nil
}

// dispatch feeds one page to its logical stream, probing for a codec
// mapper on that stream's very first completed packet.
func (r *OggReader) dispatch(page *Page) error {
	ls := r.byID[page.Header.Serial]
	if ls == nil {
		log.WithField("serial", page.Header.Serial).Warn("oggdemux: page for unknown serial, ignoring")
		return nil
	}

	needsProbe := ls.Mapper() == nil
	packets, err := ls.Feed(page, nil)
	if err != nil {
		return err
	}

	if needsProbe && len(packets) > 0 {
		m, err := ProbeMapper(packets[0].Data)
		if err != nil {
			return err
		}
		ls.SetMapper(m)
		// Re-classify everything after the ident packet now that the
		// mapper is attached: the ident packet itself carries no
		// timing and is kept as-is, subsequent packets on this same
		// page (rare, but legal for small pages) need real timestamps.
		for i := 1; i < len(packets); i++ {
			mapped, err := m.MapPacket(packets[i].Data)
			if err != nil {
				return err
			}
			if mapped.Kind == KindStreamData {
				packets[i].Ts = ls.runningTs
				packets[i].Dur = mapped.Dur
				ls.runningTs += mapped.Dur
			}
		}
	}

	if page.Header.LastPage && ls.Mapper() != nil && page.Header.AbsGranulePos != 0xFFFFFFFFFFFFFFFF {
		if total, err := ls.Mapper().AbsGpToTs(page.Header.AbsGranulePos); err == nil {
			applyEndTrim(packets, total)
		}
	}

	if err := ls.SyncToAbsGp(page.Header.AbsGranulePos); err != nil {
		return err
	}
	if page.Header.LastPage {
		r.sawAnyEOS = true
	}
	r.queue = append(r.queue, packets...)
	return nil
}

// applyEndTrim clamps the last stream-data packet on a stream's final
// page so that ts+dur never exceeds the page's authoritative granule
// position, trimming the encoder's end-of-stream padding into
// TrimEnd (spec.md §6 "gapless playback", "trim_end against the
// stream's total frame count").
func applyEndTrim(packets []Packet, total int64) {
	for i := len(packets) - 1; i >= 0; i-- {
		p := &packets[i]
		if p.Dur == 0 && p.Ts == 0 {
			continue
		}
		if end := p.Ts + p.Dur; end > total {
			p.TrimEnd = end - total
		}
		return
	}
}

// NextPacket returns the next demultiplexed packet across all logical
// streams, in arrival order. It returns a mediaerr.EndOfStream error
// once every logical stream has reached its last page and the queue is
// drained, or mediaerr.ResetRequired if a new chained physical stream
// (a fresh BOS run) begins immediately after (spec.md §4 "chained
// stream").
func (r *OggReader) NextPacket() (*Packet, error) {
	for len(r.queue) == 0 {
		page, err := r.pages.NextPage()
		if err != nil {
			if mediaerr.Is(err, mediaerr.CrcMismatch) {
				continue
			}
			if mediaerr.Is(err, mediaerr.EndOfStream) {
				return nil, mediaerr.New(mediaerr.EndOfStream, "oggdemux: end of physical stream")
			}
			return nil, err
		}
		if page.Header.FirstPage {
			if r.allEndOfStream() {
				r.chainBoundary = true
				return nil, mediaerr.New(mediaerr.ResetRequired, "oggdemux: new chained stream detected")
			}
			// A mid-stream BOS with other streams still open is a
			// multiplexed-in stream we don't track; register it so its
			// pages don't spam "unknown serial" warnings.
			ls := NewLogicalStream(page.Header.Serial)
			r.streams = append(r.streams, ls)
			r.byID[page.Header.Serial] = ls
		}
		if err := r.dispatch(page); err != nil {
			return nil, err
		}
	}
	pkt := r.queue[0]
	r.queue = r.queue[1:]
	return &pkt, nil
}

func (r *OggReader) allEndOfStream() bool {
	if len(r.streams) == 0 {
		return false
	}
	for _, ls := range r.streams {
		if !ls.EndOfStream() {
			return false
		}
	}
	return true
}

// Streams returns the logical streams discovered so far, in discovery
// order.
func (r *OggReader) Streams() []*LogicalStream { return r.streams }

// SeekTo relocates the primary logical stream (the first one
// discovered) to the page whose absolute granule position most closely
// precedes targetTs, via bisection over byte offsets (spec.md §4.13).
// It returns the timestamp actually landed on.
func (r *OggReader) SeekTo(targetTs int64) (int64, error) {
	if r.length < 0 {
		return 0, mediaerr.NewSeek(mediaerr.Unseekable, "oggdemux: underlying source is not seekable")
	}
	if len(r.streams) == 0 {
		return 0, mediaerr.NewSeek(mediaerr.InvalidTrack, "oggdemux: no logical streams")
	}
	primary := r.streams[0]
	if primary.Mapper() == nil {
		return 0, mediaerr.NewSeek(mediaerr.InvalidTrack, "oggdemux: primary stream has no codec mapper yet")
	}

	lo, hi := int64(0), r.length
	var landedTs int64
	var landedPos int64 = -1

	for iter := 0; iter < 64 && hi-lo > int64(MaxPageLength); iter++ {
		mid := lo + (hi-lo)/2
		pos, ts, ok, err := r.probeAt(mid, primary.Serial)
		if err != nil {
			return 0, err
		}
		if !ok {
			// No page found before EOF from mid; search the lower half.
			hi = mid
			continue
		}
		if ts <= targetTs {
			lo = pos
			landedPos = pos
			landedTs = ts
		} else {
			hi = mid
		}
	}

	if landedPos < 0 {
		landedPos = 0
	}
	if _, err := r.src.Seek(bytestream.SeekStart, landedPos); err != nil {
		return 0, mediaerr.Wrap(mediaerr.IO, err, "oggdemux: seek: repositioning")
	}

	r.queue = r.queue[:0]
	for _, ls := range r.streams {
		ls.Reset()
	}
	r.sawAnyEOS = false
	r.chainBoundary = false

	return landedTs, nil
}

// probeAt seeks to byte offset and scans forward for the first page
// belonging to serial, returning that page's start offset and the
// timestamp its absolute granule position maps to.
func (r *OggReader) probeAt(offset int64, serial uint32) (pos int64, ts int64, ok bool, err error) {
	if _, err = r.src.Seek(bytestream.SeekStart, offset); err != nil {
		return 0, 0, false, mediaerr.Wrap(mediaerr.IO, err, "oggdemux: seek: probe")
	}
	pr := NewPageReader(r.src)
	for i := 0; i < 4096; i++ {
		pageStart := r.src.Position()
		page, perr := pr.NextPage()
		if perr != nil {
			if mediaerr.Is(perr, mediaerr.CrcMismatch) {
				continue
			}
			return 0, 0, false, nil
		}
		if page.Header.Serial != serial {
			continue
		}
		if page.Header.AbsGranulePos == 0xFFFFFFFFFFFFFFFF {
			continue
		}
		ls := r.byID[serial]
		gts, gerr := ls.Mapper().AbsGpToTs(page.Header.AbsGranulePos)
		if gerr != nil {
			return 0, 0, false, gerr
		}
		return pageStart, gts, true, nil
	}
	return 0, 0, false, nil
}
