// Package audio implements the codec adapter: decoding arbitrary input into
// canonical PCM and encoding canonical PCM back into an export container.
package audio

import "time"

// Canonical PCM: every decoded buffer is normalized to this form before any
// processing touches it.
const (
	CanonicalSampleRate = 44100
	CanonicalChannels   = 2
	CanonicalBitDepth   = 16
)

// Buffer holds decoded PCM as one float64 slice per channel, samples in
// [-1, 1]. A buffer is owned by the stage processing it and treated as
// immutable once passed downstream; processing stages return new buffers.
type Buffer struct {
	Samples    [][]float64
	SampleRate int
	BitDepth   int
}

// Channels returns the channel count.
func (b *Buffer) Channels() int { return len(b.Samples) }

// Frames returns the number of sample frames per channel.
func (b *Buffer) Frames() int {
	if len(b.Samples) == 0 {
		return 0
	}
	return len(b.Samples[0])
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{
		Samples:    make([][]float64, len(b.Samples)),
		SampleRate: b.SampleRate,
		BitDepth:   b.BitDepth,
	}
	for i, ch := range b.Samples {
		out.Samples[i] = make([]float64, len(ch))
		copy(out.Samples[i], ch)
	}
	return out
}

// IsCanonical reports whether the buffer is already in canonical form.
func (b *Buffer) IsCanonical() bool {
	return b.SampleRate == CanonicalSampleRate &&
		b.Channels() == CanonicalChannels &&
		b.Frames() > 0
}

// NewBuffer allocates a silent buffer with the given shape.
func NewBuffer(channels, frames, sampleRate int) *Buffer {
	samples := make([][]float64, channels)
	for i := range samples {
		samples[i] = make([]float64, frames)
	}
	return &Buffer{Samples: samples, SampleRate: sampleRate, BitDepth: CanonicalBitDepth}
}
