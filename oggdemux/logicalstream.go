package oggdemux

import (
	log "github.com/sirupsen/logrus"

	"github.com/christosk92/WaveeVorbis/mediaerr"
)

const (
	// partialGrowIncrement is how much the dangling-packet buffer grows
	// each time it needs more room (spec.md §4.11).
	partialGrowIncrement = 8 * 1024
	// partialHardCap is the largest a single reassembled packet may grow
	// to before reassembly is abandoned as corrupt.
	partialHardCap = 8 * 1024 * 1024
)

// LogicalStream reassembles the lace-delimited packets of one Ogg
// logical stream (one Serial) into whole packets, assigns them sample
// timestamps from the page's absolute granule position, and hands them
// to the registered Mapper for classification (spec.md §4.11).
type LogicalStream struct {
	Serial uint32

	mapper Mapper

	partial    []byte
	partialLen int
	hasPartial bool

	// lastSequence is the previous page's sequence number, used to
	// detect gaps (lost pages) and out-of-order delivery.
	lastSequence uint32
	haveSequence bool

	// runningTs is the sample position expected for the next completed
	// packet. It advances forward by each stream-data packet's duration
	// and is reset to the page-end timestamp by SyncToAbsGp (and to 0 by
	// Reset); timestamps are not derived backward from a page's absolute
	// granule position.
	runningTs int64
	eos       bool
}

// NewLogicalStream starts reassembly for a freshly observed serial. The
// Mapper is nil until the stream's identification packet has been seen;
// callers must call SetMapper once ProbeMapper succeeds.
func NewLogicalStream(serial uint32) *LogicalStream {
	return &LogicalStream{Serial: serial}
}

// SetMapper attaches the codec mapper once the identification packet
// has been recognized.
func (ls *LogicalStream) SetMapper(m Mapper) { ls.mapper = m }

// Mapper returns the attached codec mapper, or nil if none has claimed
// this stream yet.
func (ls *LogicalStream) Mapper() Mapper { return ls.mapper }

// Reset clears reassembly state and the attached mapper's own state,
// used when a seek invalidates everything accumulated so far.
func (ls *LogicalStream) Reset() {
	ls.partial = ls.partial[:0]
	ls.partialLen = 0
	ls.hasPartial = false
	ls.haveSequence = false
	ls.runningTs = 0
	ls.eos = false
	if ls.mapper != nil {
		ls.mapper.Reset()
	}
}

// Feed processes one page belonging to this stream, appending any
// packets it completes to out and returning the extended slice. A page
// that only continues a dangling tail (no completed packets) returns
// out unchanged.
func (ls *LogicalStream) Feed(page *Page, out []Packet) ([]Packet, error) {
	if ls.haveSequence {
		expected := ls.lastSequence + 1
		if page.Header.Sequence != expected {
			log.WithFields(log.Fields{
				"serial":   ls.Serial,
				"expected": expected,
				"got":      page.Header.Sequence,
			}).Warn("oggdemux: non-contiguous page sequence, discarding in-flight packet")
			ls.partial = ls.partial[:0]
			ls.partialLen = 0
			ls.hasPartial = false
		}
	}
	ls.lastSequence = page.Header.Sequence
	ls.haveSequence = true

	dropLeadIn := page.Header.Continuation && !ls.hasPartial
	if dropLeadIn {
		// A continuation page with nothing to continue: the page(s)
		// that started this packet were lost. Drop bytes belonging to
		// the first (already-partial) packet on this page, or the whole
		// page when it completes no packet.
		log.WithField("serial", ls.Serial).Warn("oggdemux: continuation page with no pending packet, dropping lead-in")
	}

	offset := 0
	for i, plen := range page.PacketLengths {
		raw := page.Body[offset : offset+plen]
		offset += plen
		if i == 0 && dropLeadIn {
			continue
		}

		var full []byte
		if i == 0 && ls.hasPartial {
			if err := ls.appendPartial(raw); err != nil {
				return out, err
			}
			full = append([]byte(nil), ls.partial[:ls.partialLen]...)
			ls.partial = ls.partial[:0]
			ls.partialLen = 0
			ls.hasPartial = false
		} else {
			full = append([]byte(nil), raw...)
		}

		pkt, keep, err := ls.classify(full)
		if err != nil {
			return out, err
		}
		if keep {
			out = append(out, pkt)
		}
	}

	if page.PartialLength > 0 && !(dropLeadIn && len(page.PacketLengths) == 0) {
		tail := page.Body[offset : offset+page.PartialLength]
		if err := ls.appendPartial(tail); err != nil {
			return out, err
		}
		ls.hasPartial = true
	}

	if page.Header.LastPage {
		ls.eos = true
	}
	return out, nil
}

// appendPartial grows the dangling-packet buffer and appends b,
// enforcing the 8 MiB hard cap (spec.md §4.11).
func (ls *LogicalStream) appendPartial(b []byte) error {
	need := ls.partialLen + len(b)
	if need > partialHardCap {
		return mediaerr.New(mediaerr.Decode, "oggdemux: reassembled packet exceeds %d bytes", partialHardCap)
	}
	if need > len(ls.partial) {
		grown := len(ls.partial)
		if grown == 0 {
			grown = partialGrowIncrement
		}
		for grown < need {
			grown += partialGrowIncrement
		}
		if grown > partialHardCap {
			grown = partialHardCap
		}
		newBuf := make([]byte, grown)
		copy(newBuf, ls.partial[:ls.partialLen])
		ls.partial = newBuf
	}
	copy(ls.partial[ls.partialLen:need], b)
	ls.partialLen = need
	return nil
}

// classify hands a complete packet to the attached mapper and fills in
// the Packet's timing fields. Packets seen before a mapper is attached
// (i.e. the identification packet itself) are always kept with zero
// duration; the caller (OggReader) is responsible for using the first
// packet to resolve the mapper via ProbeMapper before calling Feed
// again.
func (ls *LogicalStream) classify(data []byte) (Packet, bool, error) {
	if ls.mapper == nil {
		return Packet{Data: data, TrackID: ls.Serial}, true, nil
	}
	mapped, err := ls.mapper.MapPacket(data)
	if err != nil {
		return Packet{}, false, err
	}
	switch mapped.Kind {
	case KindStreamData:
		pkt := Packet{
			Data:    data,
			TrackID: ls.Serial,
			Ts:      ls.runningTs,
			Dur:     mapped.Dur,
		}
		ls.runningTs += mapped.Dur
		return pkt, true, nil
	case KindMetadata, KindSetup:
		return Packet{Data: data, TrackID: ls.Serial}, true, nil
	default:
		return Packet{}, false, nil
	}
}

// SyncToAbsGp reconciles the running sample-timestamp counter against a
// page's authoritative absolute granule position once all of that
// page's packets have been classified (spec.md §4.11 step 6): the
// decoder-side running total can drift from the container's own count
// when packets were dropped, so every page resets runningTs from
// ground truth rather than trusting accumulation indefinitely.
func (ls *LogicalStream) SyncToAbsGp(absgp uint64) error {
	if ls.mapper == nil || absgp == 0xFFFFFFFFFFFFFFFF {
		return nil
	}
	ts, err := ls.mapper.AbsGpToTs(absgp)
	if err != nil {
		return err
	}
	ls.runningTs = ts
	return nil
}

// EndOfStream reports whether this logical stream's final page has been
// consumed.
func (ls *LogicalStream) EndOfStream() bool { return ls.eos }
