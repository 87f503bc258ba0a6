package bitreader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadBitsLEQ32_LSbFirst(t *testing.T) {
	// byte 0: 0b1011_0010 -> bits read in order 0,1,0,0,1,1,0,1
	r := NewReader([]byte{0b10110010})
	for _, want := range []uint32{0, 1, 0, 0, 1, 1, 0, 1} {
		got, err := r.ReadBitsLEQ32(1)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := r.ReadBitsLEQ32(1)
	require.Error(t, err)
}

func TestReadBitsLEQ32_MultiBit(t *testing.T) {
	r := NewReader([]byte{0xFF, 0x00, 0xAB})
	v, err := r.ReadBitsLEQ32(8)
	require.NoError(t, err)
	require.Equal(t, uint32(0xFF), v)

	v, err = r.ReadBitsLEQ32(8)
	require.NoError(t, err)
	require.Equal(t, uint32(0x00), v)

	v, err = r.ReadBitsLEQ32(8)
	require.NoError(t, err)
	require.Equal(t, uint32(0xAB), v)
}

func TestIgnoreThenReadEquivalence(t *testing.T) {
	data := []byte{0x5A, 0xC3, 0x7E, 0x11}
	// concatenating ignore_bits(k) and read_bits_leq32(n) should yield
	// the same stream position as read_bits_leq32(k+n) when k+n <= 32.
	k, n := uint(5), uint(11)

	r1 := NewReader(data)
	require.NoError(t, r1.IgnoreBits(k))
	v1, err := r1.ReadBitsLEQ32(uint(n))
	require.NoError(t, err)

	r2 := NewReader(data)
	combined, err := r2.ReadBitsLEQ32(uint(k + n))
	require.NoError(t, err)
	mask := uint32(1)<<n - 1
	v2 := uint32(combined>>k) & mask

	require.Equal(t, v2, v1)
	require.Equal(t, r1.BitsRemaining(), r2.BitsRemaining())
}

func TestReadBool(t *testing.T) {
	r := NewReader([]byte{0b00000001})
	b, err := r.ReadBool()
	require.NoError(t, err)
	require.True(t, b)
	b, err = r.ReadBool()
	require.NoError(t, err)
	require.False(t, b)
}

func TestCodebookDecode_EqualLengths(t *testing.T) {
	// spec.md scenario 3: lengths [2,2,2,2] -> canonical codes 00,01,10,11
	cb, err := BuildCodebook([]uint{2, 2, 2, 2}, []int32{0, 1, 2, 3}, Reverse, 4, false)
	require.NoError(t, err)

	for _, tc := range []struct {
		bits  []byte
		width uint
		want  int32
	}{
		// Each byte holds the codeword's bits in read order (LSb first),
		// so code "01" is bit0=0, bit1=1 -> 0b10.
		{[]byte{0b00}, 2, 0},
		{[]byte{0b10}, 2, 1},
		{[]byte{0b01}, 2, 2},
		{[]byte{0b11}, 2, 3},
	} {
		r := NewReader(tc.bits)
		v, n, err := r.ReadCodebook(cb)
		require.NoError(t, err)
		require.Equal(t, tc.want, v)
		require.Equal(t, tc.width, n)
	}
}

func TestCodebookDecode_UnequalLengths(t *testing.T) {
	// spec.md scenario 3: lengths [1,2,2] -> 0 -> A(0), 10 -> B(1), 11 -> C(2)
	cb, err := BuildCodebook([]uint{1, 2, 2}, []int32{0, 1, 2}, Reverse, 4, false)
	require.NoError(t, err)

	r := NewReader([]byte{0b00000000})
	v, n, err := r.ReadCodebook(cb)
	require.NoError(t, err)
	require.Equal(t, int32(0), v)
	require.Equal(t, uint(1), n)

	r = NewReader([]byte{0b00000001}) // LSb-first: bit0=1,bit1=0 -> code "10" -> B(1)
	v, n, err = r.ReadCodebook(cb)
	require.NoError(t, err)
	require.Equal(t, uint(2), n)
	require.Equal(t, int32(1), v)

	r = NewReader([]byte{0b00000011})
	v, n, err = r.ReadCodebook(cb)
	require.NoError(t, err)
	require.Equal(t, int32(2), v)
	require.Equal(t, uint(2), n)
}

func TestBuildCodebook_IncompleteTreeFails(t *testing.T) {
	_, err := BuildCodebook([]uint{1, 1, 1}, []int32{0, 1, 2}, Reverse, 4, false)
	require.Error(t, err)
}

func TestBuildCodebook_SingleEntry(t *testing.T) {
	cb, err := BuildCodebook([]uint{1}, []int32{42}, Reverse, 4, false)
	require.NoError(t, err)
	r := NewReader([]byte{0x00})
	v, _, err := r.ReadCodebook(cb)
	require.NoError(t, err)
	require.Equal(t, int32(42), v)
}

func TestBuildCodebook_ZeroLengthRequiresSparse(t *testing.T) {
	_, err := BuildCodebook([]uint{0, 1, 1}, []int32{0, 1, 2}, Reverse, 4, false)
	require.Error(t, err)

	_, err = BuildCodebook([]uint{0, 1, 1}, []int32{0, 1, 2}, Reverse, 4, true)
	require.NoError(t, err)
}
