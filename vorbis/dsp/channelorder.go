package dsp

// channelOrder holds the fixed Vorbis-to-output channel permutation
// tables for channel counts 1-8 (spec.md §4.9), exactly as published:
// table[slot] is the Vorbis channel index that belongs at output slot
// i. Counts above 8 have no defined Vorbis mapping and use identity
// order.
var channelOrder = map[int][]int{
	1: {0},
	2: {0, 1},
	3: {0, 2, 1},
	4: {0, 1, 2, 3},
	5: {0, 2, 1, 3, 4},
	6: {0, 2, 1, 4, 5, 3},
	7: {0, 2, 1, 5, 6, 4, 3},
	8: {0, 2, 1, 6, 7, 4, 5, 3},
}

// ChannelOrder returns the Vorbis-channel-to-output-slot permutation
// for the given channel count: ChannelOrder(n)[vorbisChannel] is the
// slot that Vorbis channel should be written to in the output frame.
// This is the inverse of the published channelOrder table (whose
// entries are indexed by output slot, not by Vorbis channel). The
// returned slice is a bijection on [0, n) (spec.md §8).
func ChannelOrder(channels int) []int {
	if order, ok := channelOrder[channels]; ok {
		out := make([]int, len(order))
		for slot, vorbisIdx := range order {
			out[vorbisIdx] = slot
		}
		return out
	}
	identity := make([]int, channels)
	for i := range identity {
		identity[i] = i
	}
	return identity
}
