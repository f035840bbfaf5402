// Package audio defines the read-only buffer abstraction the analysis
// pipeline consumes. Decoding from compressed media is a collaborator's job;
// see the transcode package for WAV input.
package audio

import (
	"fmt"
	"sync"
	"time"
)

// Buffer represents decoded audio as per-channel float samples. A Buffer is
// a read-only view: no pipeline stage mutates the sample data, and callers
// must not modify it after construction.
type Buffer struct {
	channels   [][]float64
	sampleRate int

	monoOnce sync.Once
	mono     []float64
}

// NewBuffer creates a buffer over the given channel data. All channels must
// have equal length and the sample rate must be positive.
func NewBuffer(channels [][]float64, sampleRate int) (*Buffer, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("audio buffer needs at least one channel")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	n := len(channels[0])
	for i, ch := range channels[1:] {
		if len(ch) != n {
			return nil, fmt.Errorf("channel %d length %d does not match channel 0 length %d", i+1, len(ch), n)
		}
	}

	return &Buffer{
		channels:   channels,
		sampleRate: sampleRate,
	}, nil
}

// NewMonoBuffer creates a single-channel buffer.
func NewMonoBuffer(samples []float64, sampleRate int) (*Buffer, error) {
	return NewBuffer([][]float64{samples}, sampleRate)
}

// SampleRate returns the sample rate in Hz.
func (b *Buffer) SampleRate() int {
	return b.sampleRate
}

// Channels returns the channel count.
func (b *Buffer) Channels() int {
	return len(b.channels)
}

// NumSamples returns the per-channel sample count.
func (b *Buffer) NumSamples() int {
	return len(b.channels[0])
}

// Duration returns the buffer duration.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(float64(b.NumSamples()) / float64(b.sampleRate) * float64(time.Second))
}

// Seconds returns the buffer duration in seconds.
func (b *Buffer) Seconds() float64 {
	return float64(b.NumSamples()) / float64(b.sampleRate)
}

// Channel returns the sample view for channel i. The returned slice is the
// buffer's backing data and must not be modified.
func (b *Buffer) Channel(i int) []float64 {
	return b.channels[i]
}

// Mono returns a mono mixdown of all channels, computed once and cached.
// Single-channel buffers return the channel view directly.
func (b *Buffer) Mono() []float64 {
	b.monoOnce.Do(func() {
		if len(b.channels) == 1 {
			b.mono = b.channels[0]
			return
		}

		n := b.NumSamples()
		scale := 1.0 / float64(len(b.channels))
		mixed := make([]float64, n)
		for _, ch := range b.channels {
			for i, s := range ch {
				mixed[i] += s * scale
			}
		}
		b.mono = mixed
	})
	return b.mono
}
