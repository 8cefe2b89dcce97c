package audioio

import (
	"context"
	"errors"
	"io"
)

// Capture errors reported by sources when a session cannot begin.
var (
	// ErrPermissionDenied is returned when the capture relay refuses access
	// to the microphone (the user denied the browser permission prompt).
	ErrPermissionDenied = errors.New("audioio: microphone permission denied")

	// ErrNotAvailable is returned when no capture endpoint is reachable.
	ErrNotAvailable = errors.New("audioio: capture device not available")
)

// Chunk represents one captured frame of audio data.
type Chunk struct {
	// Samples contains interleaved PCM16 audio samples (little-endian).
	Samples []int16

	// SampleRate is the sample rate of this chunk.
	SampleRate int

	// Channels is the number of channels in this chunk.
	Channels int
}

// Bytes returns the raw PCM16 little-endian bytes of the chunk.
func (c *Chunk) Bytes() []byte {
	buf := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

// FromBytes populates the chunk from raw PCM16 bytes.
func (c *Chunk) FromBytes(data []byte, sampleRate, channels int) {
	c.SampleRate = sampleRate
	c.Channels = channels
	c.Samples = make([]int16, len(data)/2)
	for i := range c.Samples {
		c.Samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
}

// Duration returns the duration of this chunk in seconds.
func (c *Chunk) Duration() float64 {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate*c.Channels)
}

// Source captures audio from a microphone relay or other input.
type Source interface {
	// Start begins audio capture.
	// After calling Start, chunks are available via Stream.
	// Returns ErrPermissionDenied or ErrNotAvailable (possibly wrapped)
	// when capture cannot be initiated.
	Start(ctx context.Context) error

	// Stop halts audio capture.
	// It is safe to call Stop multiple times.
	Stop() error

	// Stream returns a channel that receives chunks in capture order.
	// The channel is closed when the source is stopped.
	Stream() <-chan Chunk

	// Config returns the current capture configuration.
	Config() Config

	// Name returns the backend name (e.g., "ws", "rtp", "mock").
	Name() string

	// Close releases all resources.
	// After Close, the source cannot be restarted.
	io.Closer
}

// SourceStats contains statistics about the audio source.
type SourceStats struct {
	// ChunksRead is the total number of chunks delivered.
	ChunksRead int64 `json:"chunks_read"`

	// SamplesRead is the total number of samples delivered.
	SamplesRead int64 `json:"samples_read"`

	// Dropped is the number of chunks dropped (slow consumer or packet loss).
	Dropped int64 `json:"dropped"`

	// Running indicates if the source is currently capturing.
	Running bool `json:"running"`

	// Backend is the name of the capture backend.
	Backend string `json:"backend"`
}

// SourceWithStats extends Source with statistics.
type SourceWithStats interface {
	Source
	Stats() SourceStats
}
