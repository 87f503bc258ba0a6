package oggdemux

import "github.com/christosk92/WaveeVorbis/mediaerr"

// Mapper is the codec-specific half of logical-stream demultiplexing
// (spec.md §9 "Codec mapper polymorphism"). oggdemux owns packet
// reassembly and timestamping; a Mapper only knows how to recognize a
// codec's identification header, classify packets, and translate
// absolute granule positions into sample timestamps. Keeping this as an
// interface lets oggdemux stay codec-agnostic and avoids an import
// cycle with the vorbis package, which provides the concrete
// implementation.
type Mapper interface {
	// Name identifies the codec, e.g. "vorbis".
	Name() string

	// MapPacket classifies a reassembled packet and, for stream-data
	// packets, reports its sample duration. The mapper may inspect and
	// retain setup state across calls (codebooks, mode list, etc.) but
	// must not mutate or retain pkt itself.
	MapPacket(pkt []byte) (MappedPacket, error)

	// AbsGpToTs converts an absolute granule position, as carried in an
	// Ogg page header, into a sample count in the codec's native
	// timebase. Codecs that delay output (e.g. Vorbis's lapped
	// transform) account for that here.
	AbsGpToTs(absgp uint64) (int64, error)

	// Reset clears any accumulated per-stream decode state, used when a
	// seek invalidates previously inferred continuity.
	Reset()
}

// NewMapperFunc constructs a Mapper from a logical stream's first
// packet (the identification header). The registry is populated by
// codec packages calling RegisterMapper from an init func (as vorbis
// does) so that
// oggdemux never imports them directly.
type NewMapperFunc func(identPacket []byte) (Mapper, error)

var mapperRegistry []NewMapperFunc

// RegisterMapper adds a codec probe to the registry consulted by
// ProbeMapper. Codec packages call this from an init function.
func RegisterMapper(fn NewMapperFunc) {
	mapperRegistry = append(mapperRegistry, fn)
}

// ProbeMapper tries every registered codec probe against a logical
// stream's first packet, returning the first one that claims it.
func ProbeMapper(identPacket []byte) (Mapper, error) {
	for _, fn := range mapperRegistry {
		m, err := fn(identPacket)
		if err == nil && m != nil {
			return m, nil
		}
	}
	return nil, mediaerr.New(mediaerr.UnsupportedFeature, "oggdemux: no registered codec claimed this logical stream")
}
