// Package encode turns captured audio chunks into a single encoded
// artifact. The container is negotiated from a preference list at session
// start; WAV is always available as the fallback.
package encode

import (
	"errors"
	"log/slog"

	"github.com/hahalabs/laughtrack/pkg/audioio"
)

// ErrNoData is returned by Finalize when nothing was captured.
var ErrNoData = errors.New("encode: no audio captured")

// Artifact is the finalized recording.
type Artifact struct {
	// Data is the encoded audio.
	Data []byte

	// MIME is the container type, e.g. "audio/wav" or "audio/opus".
	MIME string
}

// Encoder accepts live chunks and emits one encoded artifact on Finalize.
type Encoder interface {
	// Write appends one captured chunk. Chunks must arrive in capture
	// order.
	Write(chunk audioio.Chunk) error

	// Finalize closes the stream and returns the artifact.
	// Returns ErrNoData when no audio was written.
	Finalize() (Artifact, error)

	// MIME returns the container type this encoder produces.
	MIME() string
}

// Factory creates an encoder for the given stream format, or fails when
// the container cannot handle it (e.g. an unsupported opus sample rate).
type Factory func(sampleRate, channels int) (Encoder, error)

// containers maps preference names to factories.
var containers = map[string]Factory{
	"wav":  newWAV,
	"opus": newOpus,
}

// DefaultPreferences is the container preference order: first supported
// wins.
var DefaultPreferences = []string{"opus", "wav"}

// Negotiate returns the first preference whose encoder can be built for
// the stream format. When nothing in the list works it falls back to WAV
// rather than failing; WAV accepts any PCM format.
func Negotiate(preferences []string, sampleRate, channels int, logger *slog.Logger) Encoder {
	if logger == nil {
		logger = slog.Default()
	}
	if len(preferences) == 0 {
		preferences = DefaultPreferences
	}

	for _, name := range preferences {
		factory, ok := containers[name]
		if !ok {
			logger.Warn("encode: unknown container preference", "container", name)
			continue
		}
		enc, err := factory(sampleRate, channels)
		if err != nil {
			logger.Debug("encode: container unavailable",
				"container", name,
				"error", err,
			)
			continue
		}
		logger.Info("encode: container selected", "container", name, "mime", enc.MIME())
		return enc
	}

	logger.Warn("encode: no preferred container supported, using wav")
	enc, _ := newWAV(sampleRate, channels)
	return enc
}
