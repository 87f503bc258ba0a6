package bytestream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadExact_SmallReads(t *testing.T) {
	data := make([]byte, 10)
	for i := range data {
		data[i] = byte(i)
	}
	r, err := NewReader(bytes.NewReader(data), MinBufferLength)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		b, err := r.ReadByte()
		require.NoError(t, err)
		require.Equal(t, byte(i), b)
	}
	_, err = r.ReadByte()
	require.Error(t, err)
}

func TestReadU32LE(t *testing.T) {
	r, err := NewReader(bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04}), MinBufferLength)
	require.NoError(t, err)
	v, err := r.ReadU32LE()
	require.NoError(t, err)
	require.Equal(t, uint32(0x04030201), v)
}

func TestPositionAndSeek(t *testing.T) {
	data := bytes.Repeat([]byte{0xAA}, 1024)
	data[500] = 0x42
	r, err := NewReader(bytes.NewReader(data), MinBufferLength)
	require.NoError(t, err)

	require.Equal(t, int64(0), r.Position())
	_, err = r.Seek(SeekStart, 500)
	require.NoError(t, err)
	require.Equal(t, int64(500), r.Position())
	b, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x42), b)
}

func TestBufferedSeek_ForwardWithinWindow(t *testing.T) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}
	r, err := NewReader(bytes.NewReader(data), MinBufferLength)
	require.NoError(t, err)

	var probe [16]byte
	require.NoError(t, r.ReadExact(probe[:]))

	require.NoError(t, r.BufferedSeek(100))
	b, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(100), b)
}

func TestReadExact_LargerThanBuffer(t *testing.T) {
	data := make([]byte, MinBufferLength*3)
	for i := range data {
		data[i] = byte(i % 256)
	}
	r, err := NewReader(bytes.NewReader(data), MinBufferLength)
	require.NoError(t, err)

	var big [MinBufferLength * 2]byte
	require.NoError(t, r.ReadExact(big[:]))
	require.Equal(t, data[:len(big)], big[:])
}
