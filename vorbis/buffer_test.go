package vorbis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlanarAudioBuffer_Trim(t *testing.T) {
	b := &PlanarAudioBuffer{
		Channels: [][]float32{
			{0, 1, 2, 3, 4, 5},
			{10, 11, 12, 13, 14, 15},
		},
		SampleRate: 44100,
	}
	b.trim(2, 1)
	require.Equal(t, []float32{2, 3, 4}, b.Channels[0])
	require.Equal(t, []float32{12, 13, 14}, b.Channels[1])
}

func TestPlanarAudioBuffer_Trim_ClampsPastEnd(t *testing.T) {
	b := &PlanarAudioBuffer{Channels: [][]float32{{0, 1, 2}}}
	b.trim(0, 10)
	require.Empty(t, b.Channels[0])
}

func TestPlanarAudioBuffer_Trim_ZeroFramesIsNoop(t *testing.T) {
	b := newPlanarAudioBuffer(2, 0, 44100)
	b.trim(5, 5)
	require.Equal(t, 0, b.Frames())
}

func TestPlanarAudioBuffer_ToFloatBuffer_Interleaves(t *testing.T) {
	b := &PlanarAudioBuffer{
		Channels:   [][]float32{{1, 2}, {10, 20}},
		SampleRate: 48000,
	}
	fb := b.ToFloatBuffer(16)
	require.Equal(t, []float64{1, 10, 2, 20}, fb.Data)
	require.Equal(t, 2, fb.Format.NumChannels)
	require.Equal(t, 48000, fb.Format.SampleRate)
	require.Equal(t, 16, fb.SourceBitDepth)
}

func TestNewPlanarAudioBuffer_AllocatesPerChannel(t *testing.T) {
	b := newPlanarAudioBuffer(3, 10, 44100)
	require.Len(t, b.Channels, 3)
	for _, ch := range b.Channels {
		require.Len(t, ch, 10)
	}
	require.Equal(t, 10, b.Frames())
}
