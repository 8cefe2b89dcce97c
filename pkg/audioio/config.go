// Package audioio provides microphone capture for laughtrack.
//
// This package supports multiple backends:
//   - WS - PCM16 frames streamed from a browser capture relay over websocket
//   - RTP - L16 audio received over UDP (pion/rtp)
//   - Mock - synthetic audio for CI/testing without a capture device
//
// The backend is selected via configuration; "auto" picks the mock backend
// so the daemon always starts even without a relay configured.
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio capture backend type.
type Backend string

const (
	// BackendAuto automatically selects the best available backend.
	BackendAuto Backend = "auto"
	// BackendWS receives PCM16 frames from a capture relay over websocket.
	BackendWS Backend = "ws"
	// BackendRTP receives L16 audio over UDP as RTP packets.
	BackendRTP Backend = "rtp"
	// BackendMock uses a synthetic source for testing.
	BackendMock Backend = "mock"
)

// Config holds audio capture configuration.
type Config struct {
	// Backend specifies which capture backend to use.
	// Default: "auto"
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate is the audio sample rate in Hz.
	// Default: 48000
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `yaml:"channels" json:"channels"`

	// FrameDuration is the capture cadence, i.e. the duration of one chunk.
	// Default: 100ms
	FrameDuration time.Duration `yaml:"frame_duration" json:"frame_duration"`

	// Address is the backend-specific endpoint.
	// Examples:
	//   - WS: "ws://localhost:9090/capture"
	//   - RTP: "0.0.0.0:5004" (UDP listen address)
	//   - Mock: ignored
	Address string `yaml:"address" json:"address"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendAuto,
		SampleRate:    48000,
		Channels:      1,
		FrameDuration: 100 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.FrameDuration <= 0 {
		return fmt.Errorf("frame_duration must be positive, got %v", c.FrameDuration)
	}
	switch c.Backend {
	case BackendWS, BackendRTP:
		if c.Address == "" {
			return fmt.Errorf("address required for backend %q", c.Backend)
		}
	}
	return nil
}

// FrameSize returns the number of samples per channel in one chunk.
func (c *Config) FrameSize() int {
	return int(float64(c.SampleRate) * c.FrameDuration.Seconds())
}

// FrameBytes returns the size of one chunk in bytes (int16 samples).
func (c *Config) FrameBytes() int {
	return c.FrameSize() * c.Channels * 2
}
