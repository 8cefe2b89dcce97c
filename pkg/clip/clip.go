// Package clip extracts and normalizes fixed-length audio excerpts
// centered on laugh-event timestamps.
package clip

import (
	"errors"
	"time"
)

// ErrInsufficientAudio is returned when the source buffer is shorter than
// one clip duration; the window cannot fit even after clamping. This is
// an expected per-candidate outcome, not a fault.
var ErrInsufficientAudio = errors.New("clip: insufficient audio for clip window")

// Config holds clip extraction and normalization parameters.
type Config struct {
	// Duration is the fixed clip length. Default: 3s
	Duration time.Duration `yaml:"duration" json:"duration"`

	// TargetDb is the normalization ceiling in dBFS. Default: -3
	TargetDb float64 `yaml:"target_db" json:"target_db"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Duration: 3 * time.Second,
		TargetDb: -3,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Duration <= 0 {
		return errors.New("clip: duration must be positive")
	}
	if c.TargetDb > 0 {
		return errors.New("clip: target_db must be <= 0")
	}
	return nil
}

// Buffer is decoded session audio: per-channel float32 samples in [-1,1].
type Buffer struct {
	// Channels holds one sample slice per channel, all the same length.
	Channels [][]float32

	// SampleRate is the sample rate in Hz.
	SampleRate int
}

// NumSamples returns the per-channel sample count.
func (b *Buffer) NumSamples() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// DurationMs returns the buffer duration in milliseconds.
func (b *Buffer) DurationMs() int64 {
	if b.SampleRate == 0 {
		return 0
	}
	return int64(b.NumSamples()) * 1000 / int64(b.SampleRate)
}

// BufferFromPCM builds a Buffer from interleaved PCM16 samples.
func BufferFromPCM(samples []int16, sampleRate, channels int) *Buffer {
	if channels <= 0 {
		channels = 1
	}
	n := len(samples) / channels
	buf := &Buffer{
		Channels:   make([][]float32, channels),
		SampleRate: sampleRate,
	}
	for ch := 0; ch < channels; ch++ {
		data := make([]float32, n)
		for i := 0; i < n; i++ {
			data[i] = float32(samples[i*channels+ch]) / 32768
		}
		buf.Channels[ch] = data
	}
	return buf
}

// Segment is a fixed-duration excerpt of a Buffer.
type Segment struct {
	// Channels holds one sample slice per channel, all the same length.
	Channels [][]float32

	// SampleRate is the sample rate in Hz.
	SampleRate int
}

// NumSamples returns the per-channel sample count.
func (s *Segment) NumSamples() int {
	if len(s.Channels) == 0 {
		return 0
	}
	return len(s.Channels[0])
}

// Peak returns the maximum absolute sample value across all channels.
func (s *Segment) Peak() float32 {
	var peak float32
	for _, ch := range s.Channels {
		for _, v := range ch {
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
	}
	return peak
}
