package vorbis

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/christosk92/WaveeVorbis/bitreader"
	"github.com/christosk92/WaveeVorbis/bytestream"
	"github.com/christosk92/WaveeVorbis/mediaerr"
	"github.com/christosk92/WaveeVorbis/oggdemux"
	"github.com/christosk92/WaveeVorbis/vorbis/dsp"
)

// Decoder implements an OggVorbis decoder: it drives an
// oggdemux.OggReader for packet reassembly and runs the twelve-step
// per-packet orchestrator of spec.md §4.8 to produce planar PCM.
type Decoder struct {
	sync.Mutex

	reader *oggdemux.OggReader
	mapper *mapper

	lapper     *dsp.Lapper
	imdctShort *dsp.IMDCT
	imdctLong  *dsp.IMDCT

	channels   int
	sampleRate uint32
	order      []int // output slot for each Vorbis channel index

	// per-channel decode scratch, reused across packets and sized to
	// the long block's half-length (spec.md §3 DspChannel).
	floorScratch   [][]float32
	residueScratch [][]float32
	doNotDecode    []bool

	overlap       [][]float32 // per-channel saved right-half, nil before the first packet
	havePrevBlock bool
	prevBlockSize int

	closed bool
}

// Info is the subset of the Vorbis headers a caller needs to interpret
// decoded PCM (spec.md §3 IdentHeader, plus the supplemented comment
// header).
type Info struct {
	Channels   int
	SampleRate uint32
	Vendor     string
	Comments   []string
}

// New builds a Decoder over src, reading and parsing the Vorbis
// identification, comment, and setup headers before returning.
func New(src bytestream.Source) (*Decoder, error) {
	reader, err := oggdemux.NewOggReader(src)
	if err != nil {
		return nil, err
	}

	var m *mapper
	for _, ls := range reader.Streams() {
		if mm, ok := ls.Mapper().(*mapper); ok {
			m = mm
			break
		}
	}
	if m == nil {
		return nil, mediaerr.New(mediaerr.UnsupportedFeature, "vorbis: no Vorbis logical stream found")
	}

	for m.setup == nil {
		if _, err := reader.NextPacket(); err != nil {
			return nil, err
		}
	}

	d := &Decoder{
		reader:     reader,
		mapper:     m,
		channels:   m.ident.Channels,
		sampleRate: m.ident.SampleRate,
		order:      dsp.ChannelOrder(m.ident.Channels),
	}

	bs0, bs1 := m.ident.BlockSize0(), m.ident.BlockSize1()
	d.lapper = dsp.NewLapper(bs0, bs1)
	d.imdctShort = dsp.New(bs0 / 2)
	d.imdctLong = dsp.New(bs1 / 2)

	half1 := bs1 / 2
	d.floorScratch = make([][]float32, d.channels)
	d.residueScratch = make([][]float32, d.channels)
	d.doNotDecode = make([]bool, d.channels)
	d.overlap = make([][]float32, d.channels)
	for c := 0; c < d.channels; c++ {
		d.floorScratch[c] = make([]float32, half1)
		d.residueScratch[c] = make([]float32, half1)
	}

	return d, nil
}

// Info reports the stream's channel count, sample rate, and comment
// metadata (spec.md §5 "Vorbis comment header parsing").
func (d *Decoder) Info() Info {
	info := Info{Channels: d.channels, SampleRate: d.sampleRate}
	if d.mapper.comment != nil {
		info.Vendor = d.mapper.comment.Vendor
		info.Comments = d.mapper.comment.Comments
	}
	return info
}

// Close marks the decoder unusable. There are no OS resources to
// release (spec.md §5 "single-threaded and cooperative, no shared
// mutable state"); Close exists for lifecycle parity with callers that
// expect it.
func (d *Decoder) Close() {
	d.Lock()
	defer d.Unlock()
	d.closed = true
}

// NextFrame decodes the next audio packet into a PlanarAudioBuffer,
// skipping past the header/metadata packets. Returns
// mediaerr.EndOfStream at the end of the stream, mediaerr.ResetRequired
// at a chained-stream boundary.
func (d *Decoder) NextFrame() (*PlanarAudioBuffer, error) {
	d.Lock()
	defer d.Unlock()
	if d.closed {
		return nil, mediaerr.New(mediaerr.Decode, "vorbis: decoder is closed")
	}

	primary := d.reader.Streams()[0].Serial
	for {
		pkt, err := d.reader.NextPacket()
		if err != nil {
			return nil, err
		}
		if pkt.TrackID != primary {
			continue
		}
		buf, handled, err := d.decodePacket(pkt)
		if err != nil {
			d.havePrevBlock = false
			return nil, err
		}
		if handled {
			return buf, nil
		}
	}
}

// decodePacket runs the twelve-step orchestrator (spec.md §4.8) over
// one reassembled packet. handled is false for header/metadata packets
// that NextFrame should transparently skip past.
func (d *Decoder) decodePacket(pkt *oggdemux.Packet) (buf *PlanarAudioBuffer, handled bool, err error) {
	if len(pkt.Data) == 0 {
		return nil, false, nil
	}
	if pkt.Data[0]&0x01 != 0 {
		// Header packet (ident/comment/setup); nothing to decode.
		return nil, false, nil
	}

	setup := d.mapper.setup
	r := bitreader.NewReader(pkt.Data)

	// Step 1.
	audioFlag, err := r.ReadBool()
	if err != nil {
		return nil, true, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: packet: flag bit")
	}
	if audioFlag {
		return nil, true, mediaerr.New(mediaerr.Decode, "vorbis: packet: first bit set (not an audio packet)")
	}

	// Step 2.
	modeIdx, err := r.ReadBitsLEQ32(setup.modeBits)
	if err != nil {
		return nil, true, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: packet: mode index")
	}
	if int(modeIdx) >= len(setup.Modes) {
		return nil, true, mediaerr.New(mediaerr.Decode, "vorbis: packet: mode index %d out of range", modeIdx)
	}
	mode := setup.Modes[modeIdx]

	// Step 3.
	blockSize := d.mapper.ident.BlockSize0()
	if mode.BlockFlag {
		if _, werr := r.ReadBitsLEQ32(1); werr != nil {
			return nil, true, mediaerr.Wrap(mediaerr.Decode, werr, "vorbis: packet: window flag 0")
		}
		if _, werr := r.ReadBitsLEQ32(1); werr != nil {
			return nil, true, mediaerr.Wrap(mediaerr.Decode, werr, "vorbis: packet: window flag 1")
		}
		blockSize = d.mapper.ident.BlockSize1()
	}
	n2 := blockSize / 2

	mapping := setup.Mappings[mode.MappingIdx]

	for c := 0; c < d.channels; c++ {
		for i := 0; i < n2; i++ {
			d.floorScratch[c][i] = 0
			d.residueScratch[c][i] = 0
		}
	}

	// Step 4.
	for c := 0; c < d.channels; c++ {
		submap := mapping.Submaps[mapping.Multiplex[c]]
		floor := setup.Floors[submap.Floor]
		unused, ferr := floor.IsUnused(r)
		if ferr != nil {
			return nil, true, mediaerr.Wrap(mediaerr.Decode, ferr, "vorbis: packet: channel %d floor used flag", c)
		}
		d.doNotDecode[c] = unused
		if unused {
			continue
		}
		ch, ferr := floor.ReadChannel(r, setup.Codebooks)
		if ferr != nil {
			return nil, true, mediaerr.Wrap(mediaerr.Decode, ferr, "vorbis: packet: channel %d floor decode", c)
		}
		if serr := floor.Synthesis(ch, d.floorScratch[c][:n2]); serr != nil {
			return nil, true, mediaerr.Wrap(mediaerr.Decode, serr, "vorbis: packet: channel %d floor synthesis", c)
		}
	}

	// Step 5.
	if err := propagateNonzero(mapping.Couplings, d.doNotDecode); err != nil {
		return nil, true, err
	}

	// Step 6.
	for s, submap := range mapping.Submaps {
		mask := make([]bool, d.channels)
		any := false
		for c := 0; c < d.channels; c++ {
			if mapping.Multiplex[c] == s && !d.doNotDecode[c] {
				mask[c] = true
				any = true
			}
		}
		if !any {
			continue
		}
		res := setup.Residues[submap.Residue]
		if err := res.Decode(r, setup.Codebooks, d.residueScratch, mask, n2); err != nil {
			return nil, true, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: packet: submap %d residue decode", s)
		}
	}

	// Step 7.
	if err := applyCoupling(mapping.Couplings, d.residueScratch, n2); err != nil {
		return nil, true, err
	}

	// Step 8.
	dotProduct(d.floorScratch, d.residueScratch, d.doNotDecode, n2)

	// Step 9.
	var frames int
	if d.havePrevBlock {
		frames = (d.prevBlockSize + blockSize) / 4
	}

	imdct := d.imdctShort
	if blockSize == d.mapper.ident.BlockSize1() {
		imdct = d.imdctLong
	}

	out := newPlanarAudioBuffer(d.channels, frames, d.sampleRate)
	newOverlap := make([][]float32, d.channels)

	// Step 10.
	for c := 0; c < d.channels; c++ {
		spec := d.floorScratch[c][:n2]
		if d.doNotDecode[c] {
			for i := range spec {
				spec[i] = 0
			}
		}
		imdctOut := make([]float32, 2*n2)
		imdct.Transform(spec, imdctOut)

		var prevOverlap []float32
		if d.havePrevBlock {
			prevOverlap = d.overlap[c]
		}
		slot, saved := d.lapper.Overlap(d.prevBlockSize, blockSize, prevOverlap, imdctOut)
		newOverlap[c] = saved
		if slot != nil {
			copy(out.Channels[d.order[c]], slot)
		}
	}

	// Step 11.
	out.trim(pkt.TrimStart, pkt.TrimEnd)

	// Step 12.
	d.overlap = newOverlap
	d.prevBlockSize = blockSize
	d.havePrevBlock = true

	return out, true, nil
}

// SeekTo repositions the decoder to the page nearest targetTs (in
// samples) and clears lapping state, since the packet preceding the
// seek target is no longer available to overlap against (spec.md
// §4.13).
func (d *Decoder) SeekTo(targetTs int64) (int64, error) {
	d.Lock()
	defer d.Unlock()
	ts, err := d.reader.SeekTo(targetTs)
	if err != nil {
		return 0, err
	}
	d.havePrevBlock = false
	d.overlap = make([][]float32, d.channels)
	log.WithField("targetTs", targetTs).WithField("landedTs", ts).Debug("vorbis: seek complete")
	return ts, nil
}
