package vorbis

import "github.com/go-audio/audio"

// PlanarAudioBuffer is one packet's decoded PCM: one slice per output
// channel, already in the permuted channel order of spec.md §4.9 and
// with gapless trim (spec.md §4.8 step 11) already applied. The first
// packet of a stream always yields zero frames (lapping has nothing to
// overlap yet).
type PlanarAudioBuffer struct {
	Channels   [][]float32
	SampleRate uint32
}

// newPlanarAudioBuffer allocates a buffer of the given frame count for
// channels output channels.
func newPlanarAudioBuffer(channels, frames int, sampleRate uint32) *PlanarAudioBuffer {
	b := &PlanarAudioBuffer{Channels: make([][]float32, channels), SampleRate: sampleRate}
	for c := range b.Channels {
		b.Channels[c] = make([]float32, frames)
	}
	return b
}

// Frames reports the number of samples per channel.
func (b *PlanarAudioBuffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// trim removes trimStart samples from the front and trimEnd samples
// from the back of every channel (spec.md §4.8 step 11, §6 "gapless").
func (b *PlanarAudioBuffer) trim(trimStart, trimEnd int64) {
	frames := b.Frames()
	if frames == 0 {
		return
	}
	start := int(trimStart)
	if start < 0 {
		start = 0
	}
	if start > frames {
		start = frames
	}
	end := frames - int(trimEnd)
	if end < start {
		end = start
	}
	if end > frames {
		end = frames
	}
	for c := range b.Channels {
		b.Channels[c] = append([]float32(nil), b.Channels[c][start:end]...)
	}
}

// ToFloatBuffer converts the planar buffer into a go-audio/audio
// interleaved FloatBuffer, the shared PCM interop type the surrounding
// ecosystem's sinks (go-audio/wav among them) consume (spec.md §1
// "external collaborators consuming only the public... interfaces").
func (b *PlanarAudioBuffer) ToFloatBuffer(sourceBitDepth int) *audio.FloatBuffer {
	frames := b.Frames()
	channels := len(b.Channels)
	data := make([]float64, frames*channels)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			data[i*channels+c] = float64(b.Channels[c][i])
		}
	}
	return &audio.FloatBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: channels, SampleRate: int(b.SampleRate)},
		SourceBitDepth: sourceBitDepth,
	}
}
