package dsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIMDCT_ZeroSpectrumProducesZeroOutput(t *testing.T) {
	tr := New(8)
	spec := make([]float32, 8)
	out := make([]float32, 16)
	tr.Transform(spec, out)
	for _, v := range out {
		require.Equal(t, float32(0), v)
	}
}

func TestIMDCT_OutputLengthIsTwiceN(t *testing.T) {
	tr := New(16)
	require.Equal(t, 16, tr.N())
	require.NotPanics(t, func() { tr.Transform(make([]float32, 16), make([]float32, 32)) })
}

func TestIMDCT_PanicsOnSpectrumLengthMismatch(t *testing.T) {
	tr := New(8)
	require.Panics(t, func() {
		tr.Transform(make([]float32, 7), make([]float32, 16))
	})
}

func TestIMDCT_PanicsOnOutputLengthMismatch(t *testing.T) {
	tr := New(8)
	require.Panics(t, func() {
		tr.Transform(make([]float32, 8), make([]float32, 15))
	})
}

func TestIMDCT_PanicsOnNonPowerOfTwo(t *testing.T) {
	require.Panics(t, func() {
		New(6)
	})
}

func TestIMDCT_NonZeroCoefficientProducesNonZeroOutput(t *testing.T) {
	tr := New(8)
	spec := make([]float32, 8)
	spec[0] = 1
	out := make([]float32, 16)
	tr.Transform(spec, out)
	allZero := true
	for _, v := range out {
		if v != 0 {
			allZero = false
			break
		}
	}
	require.False(t, allZero)
}
