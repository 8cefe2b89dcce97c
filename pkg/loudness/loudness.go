// Package loudness converts captured audio frames into a smoothed 0-100
// loudness signal suitable for burst detection and live display.
package loudness

import (
	"math"

	"github.com/hahalabs/laughtrack/pkg/audioio"
)

// Frame is a buffer of frequency-magnitude samples in the 0-255 range,
// derived from one capture chunk (~100ms of audio).
type Frame []byte

// FrameFromChunk maps a PCM16 chunk to a magnitude frame.
// Each sample's absolute amplitude is scaled into the 0-255 range.
func FrameFromChunk(chunk audioio.Chunk) Frame {
	frame := make(Frame, len(chunk.Samples))
	for i, s := range chunk.Samples {
		v := int32(s)
		if v < 0 {
			v = -v
		}
		if v > 32767 { // -32768 negates out of int16 range
			v = 32767
		}
		// 32767 >> 7 == 255
		frame[i] = byte(v >> 7)
	}
	return frame
}

// Config holds estimator tuning parameters.
type Config struct {
	// Smoothing is the exponential smoothing factor α: the new value is
	// α·previous + (1−α)·normalized. Higher is steadier, lower is more
	// responsive. Default: 0.8
	Smoothing float64 `yaml:"smoothing" json:"smoothing"`

	// ReferenceCeiling is the magnitude mapped to full loudness on the
	// 0-255 scale. Default: 128
	ReferenceCeiling float64 `yaml:"reference_ceiling" json:"reference_ceiling"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Smoothing:        0.8,
		ReferenceCeiling: 128,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Smoothing < 0 || c.Smoothing >= 1 {
		return errSmoothingRange
	}
	if c.ReferenceCeiling <= 0 {
		return errCeilingRange
	}
	return nil
}

// Estimator converts magnitude frames into smoothed loudness samples.
// It is stateless: the previous smoothed value is passed in explicitly,
// so one estimator can serve any number of concurrent sessions.
type Estimator struct {
	cfg Config
}

// NewEstimator creates an Estimator with the given configuration.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Estimate derives the next smoothed loudness sample from a frame.
// The result is always in [0,100]; an empty frame contributes a raw
// loudness of 0 and the signal decays toward silence.
func (e *Estimator) Estimate(frame Frame, previous float64) float64 {
	normalized := 0.0
	if len(frame) > 0 {
		var sum float64
		for _, m := range frame {
			sum += float64(m) * float64(m)
		}
		rms := math.Sqrt(sum / float64(len(frame)))
		normalized = rms / e.cfg.ReferenceCeiling * 100
		if normalized > 100 {
			normalized = 100
		}
	}

	smoothed := e.cfg.Smoothing*previous + (1-e.cfg.Smoothing)*normalized
	return clamp(smoothed, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
