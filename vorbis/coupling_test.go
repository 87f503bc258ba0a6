package vorbis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyCoupling_QuadrantCases(t *testing.T) {
	// spec.md scenario 5: one case per (M,A) sign quadrant.
	for _, tc := range []struct {
		name     string
		m, a     float32
		wantM, wantA float32
	}{
		{"both positive", 10, 4, 10, 6},
		{"M positive, A negative", 10, -4, 6, 10},
		{"M negative, A positive", -10, 4, -10, -6},
		{"both negative", -10, -4, -6, -10},
	} {
		t.Run(tc.name, func(t *testing.T) {
			residue := [][]float32{{tc.m}, {tc.a}}
			err := applyCoupling([]Coupling{{Magnitude: 0, Angle: 1}}, residue, 1)
			require.NoError(t, err)
			require.InDelta(t, tc.wantM, residue[0][0], 1e-6)
			require.InDelta(t, tc.wantA, residue[1][0], 1e-6)
		})
	}
}

func TestApplyCoupling_SameChannelRejected(t *testing.T) {
	residue := [][]float32{{1}, {2}}
	err := applyCoupling([]Coupling{{Magnitude: 0, Angle: 0}}, residue, 1)
	require.Error(t, err)
}

func TestPropagateNonzero_ClearsMismatchedPair(t *testing.T) {
	doNotDecode := []bool{true, false}
	err := propagateNonzero([]Coupling{{Magnitude: 0, Angle: 1}}, doNotDecode)
	require.NoError(t, err)
	require.False(t, doNotDecode[0])
	require.False(t, doNotDecode[1])
}

func TestPropagateNonzero_LeavesMatchedPair(t *testing.T) {
	doNotDecode := []bool{true, true}
	err := propagateNonzero([]Coupling{{Magnitude: 0, Angle: 1}}, doNotDecode)
	require.NoError(t, err)
	require.True(t, doNotDecode[0])
	require.True(t, doNotDecode[1])
}

func TestDotProduct_SkipsDoNotDecodeChannels(t *testing.T) {
	floor := [][]float32{{2, 3}, {5, 7}}
	residue := [][]float32{{4, 4}, {4, 4}}
	doNotDecode := []bool{false, true}
	dotProduct(floor, residue, doNotDecode, 2)
	require.Equal(t, []float32{8, 12}, floor[0])
	require.Equal(t, []float32{5, 7}, floor[1]) // untouched
}
