package oggdemux

// Packet is an owned, reassembled Ogg packet plus the timing metadata
// assigned during logical-stream demultiplexing (spec.md §3 OggPacket).
// All counts are in the codec's native timebase (1 / sample rate).
type Packet struct {
	Data []byte

	TrackID uint32 // equals the logical stream serial
	Ts      int64  // start timestamp, in codec samples
	Dur     int64  // sample count

	TrimStart int64
	TrimEnd   int64
}

// PacketKind classifies what MapPacket determined a freshly reassembled
// byte slice to be.
type PacketKind int

const (
	// KindUnknown means the mapper could not classify the packet; it is
	// dropped by LogicalStream without being queued.
	KindUnknown PacketKind = iota
	// KindStreamData is ordinary decodable audio data.
	KindStreamData
	// KindMetadata is a side-data (e.g. comment header) packet.
	KindMetadata
	// KindSetup is a codec setup-header packet.
	KindSetup
)

// MappedPacket is what a Mapper reports back about one reassembled byte
// slice (spec.md §4.11 step 4).
type MappedPacket struct {
	Kind PacketKind
	// Dur is the packet's sample duration; only meaningful when Kind ==
	// KindStreamData.
	Dur int64
}
