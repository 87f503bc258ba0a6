package vorbis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/christosk92/WaveeVorbis/bitreader"
)

func TestLookup1Values_FindsLargestRoot(t *testing.T) {
	// r^dim <= entries, r as large as possible.
	require.Equal(t, 3, lookup1Values(27, 3)) // 3^3 == 27
	require.Equal(t, 2, lookup1Values(26, 3)) // 2^3=8 <= 26 < 3^3=27
	require.Equal(t, 5, lookup1Values(25, 2)) // 5^2 == 25
	require.Equal(t, 0, lookup1Values(10, 0))
}

func TestFloat32FromVorbisBits_PositiveAndNegative(t *testing.T) {
	// bias-788 exponent field of exactly 788 with mantissa 1 yields 1.0.
	bits := uint32(788) << 21
	require.InDelta(t, 1.0, float32FromVorbisBits(bits|1), 1e-9)

	negBits := bits | 1 | 0x80000000
	require.InDelta(t, -1.0, float32FromVorbisBits(negBits), 1e-9)
}

func TestIlog(t *testing.T) {
	require.Equal(t, uint(0), ilog(0))
	require.Equal(t, uint(1), ilog(1))
	require.Equal(t, uint(3), ilog(4))
	require.Equal(t, uint(8), ilog(255))
}

func TestReadValue_NoLookupPayloadIsRejected(t *testing.T) {
	tree, err := bitreader.BuildCodebook([]uint{1}, []int32{42}, bitreader.Reverse, bitreader.MaxBitsPerBlock, false)
	require.NoError(t, err)
	cb := &Codebook{Dimensions: 1, Entries: 1, lookupType: 0, tree: tree}

	r := bitreader.NewReader([]byte{0x00})
	_, err = cb.ReadValue(r)
	require.Error(t, err)
}

func TestReadScalar_ReturnsEntryIndex(t *testing.T) {
	tree, err := bitreader.BuildCodebook([]uint{2, 2, 2, 2}, []int32{0, 1, 2, 3}, bitreader.Reverse, bitreader.MaxBitsPerBlock, false)
	require.NoError(t, err)
	cb := &Codebook{Dimensions: 1, Entries: 4, tree: tree}

	r := bitreader.NewReader([]byte{0b11})
	v, err := cb.ReadScalar(r)
	require.NoError(t, err)
	require.Equal(t, int32(3), v)
}
