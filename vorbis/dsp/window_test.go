package dsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWindow_RisesFromNearZeroToNearOne(t *testing.T) {
	w := NewWindow(8)
	require.Len(t, w.Half, 4)
	require.Less(t, w.Half[0], float32(0.5))
	require.InDelta(t, 1.0, w.Half[len(w.Half)-1], 0.05)
	for i := 1; i < len(w.Half); i++ {
		require.GreaterOrEqual(t, w.Half[i], w.Half[i-1])
	}
}

func TestLapper_Overlap_FrameCountInvariant(t *testing.T) {
	// spec.md §8: lapped output totals (prevBlockSize+curBlockSize)/4
	// frames in every case but the very first packet.
	const bs0, bs1 = 256, 2048
	l := NewLapper(bs0, bs1)

	cases := []struct {
		name         string
		prev, cur    int
	}{
		{"short to short", bs0, bs0},
		{"long to long", bs1, bs1},
		{"long to short", bs1, bs0},
		{"short to long", bs0, bs1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prevOverlap := make([]float32, tc.prev/2)
			imdctOut := make([]float32, tc.cur)
			out, newOverlap := l.Overlap(tc.prev, tc.cur, prevOverlap, imdctOut)
			require.Len(t, out, (tc.prev+tc.cur)/4)
			require.Len(t, newOverlap, tc.cur/2)
		})
	}
}

func TestLapper_Overlap_FirstPacketHasNoOutput(t *testing.T) {
	l := NewLapper(256, 2048)
	imdctOut := make([]float32, 2048)
	out, newOverlap := l.Overlap(0, 2048, nil, imdctOut)
	require.Nil(t, out)
	require.Len(t, newOverlap, 1024)
}

func TestOverlapAdd_ClampsToUnitRange(t *testing.T) {
	out := make([]float32, 2)
	left := []float32{10, 10}
	right := []float32{10, 10}
	w := []float32{1, 1}
	overlapAdd(out, left, right, w)
	for _, v := range out {
		require.Equal(t, float32(1), v)
	}
}
