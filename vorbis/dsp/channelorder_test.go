package dsp

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelOrder_IsBijectionForKnownCounts(t *testing.T) {
	// spec.md §8: the permutation for each defined channel count must
	// be a bijection on [0, n).
	for channels := 1; channels <= 8; channels++ {
		order := ChannelOrder(channels)
		require.Len(t, order, channels)
		sorted := append([]int(nil), order...)
		sort.Ints(sorted)
		for i, v := range sorted {
			require.Equal(t, i, v)
		}
	}
}

func TestChannelOrder_StereoIsIdentity(t *testing.T) {
	require.Equal(t, []int{0, 1}, ChannelOrder(2))
}

func TestChannelOrder_FallsBackToIdentityBeyondEight(t *testing.T) {
	order := ChannelOrder(10)
	want := make([]int, 10)
	for i := range want {
		want[i] = i
	}
	require.Equal(t, want, order)
}

func TestChannelOrder_SixChannelInvertsPublishedTable(t *testing.T) {
	// The published table for 6 channels is indexed by output slot:
	// slot->vorbis {0:0, 1:2, 2:1, 3:4, 4:5, 5:3}. It contains the
	// 3-cycle (3 4 5), so ChannelOrder must return its inverse
	// (indexed by Vorbis channel), not the table itself.
	require.Equal(t, []int{0, 2, 1, 5, 3, 4}, ChannelOrder(6))
}

func TestChannelOrder_ReturnsIndependentCopies(t *testing.T) {
	a := ChannelOrder(6)
	b := ChannelOrder(6)
	a[0] = 99
	require.NotEqual(t, a[0], b[0])
}
