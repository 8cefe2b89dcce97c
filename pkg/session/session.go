// Package session owns the recording lifecycle: it drives the capture
// source, routes loudness samples through estimation and laugh detection,
// and finalizes the encoded artifact plus the laugh-event list.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hahalabs/laughtrack/pkg/audioio"
	"github.com/hahalabs/laughtrack/pkg/clip"
	"github.com/hahalabs/laughtrack/pkg/encode"
	"github.com/hahalabs/laughtrack/pkg/laugh"
	"github.com/hahalabs/laughtrack/pkg/loudness"
)

// Lifecycle errors returned by the controller.
var (
	// ErrSessionActive is returned by Start while a session is recording
	// or paused. Exactly one session per controller at a time.
	ErrSessionActive = errors.New("session: a session is already active")

	// ErrNotRecording is returned by Stop when nothing is recording.
	ErrNotRecording = errors.New("session: no active recording")

	// ErrInvalidTransition is returned by Pause/Resume from the wrong
	// state.
	ErrInvalidTransition = errors.New("session: invalid state transition")

	// ErrNoAudioCaptured is returned by Stop when finalization produced
	// no artifact. The Result still carries the accumulated duration and
	// laugh events for partial recovery.
	ErrNoAudioCaptured = errors.New("session: no audio captured")
)

// Status is the session lifecycle state.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusRecording    Status = "recording"
	StatusPaused       Status = "paused"
	StatusFinalizing   Status = "finalizing"
	StatusCompleted    Status = "completed"
	StatusOfflineSaved Status = "offline_saved"
	StatusErrored      Status = "errored"
)

// Config holds session controller parameters.
type Config struct {
	// EncoderPreferences is the container preference order handed to
	// encode.Negotiate. Default: ["opus", "wav"]
	EncoderPreferences []string `yaml:"encoder_preferences" json:"encoder_preferences"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EncoderPreferences: append([]string(nil), encode.DefaultPreferences...),
	}
}

// Result is the finalized session handed to persistence and sharing.
type Result struct {
	// SessionID identifies the session.
	SessionID uuid.UUID `json:"session_id"`

	// StartedAt is when recording began.
	StartedAt time.Time `json:"started_at"`

	// DurationSec is the recorded duration, pauses excluded.
	DurationSec float64 `json:"duration_sec"`

	// Events is the ordered laugh-event sequence.
	Events []laugh.Event `json:"events"`

	// Artifact is the encoded recording. Empty when finalization failed.
	Artifact encode.Artifact `json:"-"`

	// PCM is the raw decoded audio, kept for clip extraction.
	PCM *clip.Buffer `json:"-"`

	// Status is the session's final state.
	Status Status `json:"status"`
}

// Snapshot is a point-in-time view of the controller for live display.
type Snapshot struct {
	Status      Status  `json:"status"`
	SessionID   string  `json:"session_id,omitempty"`
	Loudness    float64 `json:"loudness"`
	LaughCount  int     `json:"laugh_count"`
	DurationSec float64 `json:"duration_sec"`
}

// Controller owns the capture source for the lifetime of one session and
// serializes all frame handling on a single consumer goroutine, so
// loudness samples and laugh events are processed strictly in capture
// order.
type Controller struct {
	cfg       Config
	source    audioio.Source
	estimator *loudness.Estimator
	detector  *laugh.Detector
	logger    *slog.Logger

	mu         sync.Mutex
	status     Status
	sessionID  uuid.UUID
	startedAt  time.Time
	encoder    encode.Encoder
	raw        []int16
	elapsed    time.Duration
	level      float64
	events     []laugh.Event
	doneCh     chan struct{}
	onLoudness func(level float64, laughCount int)
}

// NewController creates a Controller around the given source.
// The controller takes exclusive ownership of the source.
func NewController(cfg Config, source audioio.Source, estimator *loudness.Estimator, detector *laugh.Detector, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:       cfg,
		source:    source,
		estimator: estimator,
		detector:  detector,
		logger:    logger,
		status:    StatusIdle,
	}
}

// OnLoudness registers a live observer invoked for every processed
// frame, from the capture goroutine, in frame order. Set before Start.
func (c *Controller) OnLoudness(fn func(level float64, laughCount int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLoudness = fn
}

// Start begins a new recording session.
// Capture failures (permission denied, no device) are returned as
// explicit errors wrapping the audioio sentinels, and the controller
// stays Idle.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.status {
	case StatusRecording, StatusPaused, StatusFinalizing:
		return ErrSessionActive
	}

	if err := c.source.Start(ctx); err != nil {
		return fmt.Errorf("session: start capture: %w", err)
	}

	srcCfg := c.source.Config()

	c.sessionID = uuid.New()
	c.startedAt = time.Now()
	c.encoder = encode.Negotiate(c.cfg.EncoderPreferences, srcCfg.SampleRate, srcCfg.Channels, c.logger)
	c.raw = nil
	c.elapsed = 0
	c.level = 0
	c.events = nil
	c.detector.Reset()
	c.doneCh = make(chan struct{})
	c.status = StatusRecording

	go c.consumeLoop(c.source.Stream())

	c.logger.Info("session started",
		"session_id", c.sessionID,
		"backend", c.source.Name(),
		"container", c.encoder.MIME(),
	)

	return nil
}

// consumeLoop drains the capture stream until the source stops.
// Single consumer: frames are processed strictly in capture order.
func (c *Controller) consumeLoop(stream <-chan audioio.Chunk) {
	for chunk := range stream {
		c.handleChunk(chunk)
	}
	close(c.doneCh)
}

func (c *Controller) handleChunk(chunk audioio.Chunk) {
	c.mu.Lock()

	if c.status != StatusRecording && c.status != StatusFinalizing {
		// Paused: drop the frame, accumulate nothing. Finalizing still
		// drains the tail of the stream so no captured audio is lost.
		c.mu.Unlock()
		return
	}

	c.elapsed += time.Duration(chunk.Duration() * float64(time.Second))

	frame := loudness.FrameFromChunk(chunk)
	c.level = c.estimator.Estimate(frame, c.level)

	if ev := c.detector.Process(c.level, c.elapsed); ev != nil {
		c.events = append(c.events, *ev)
		c.logger.Debug("laugh detected",
			"session_id", c.sessionID,
			"offset_ms", ev.OffsetMs,
			"duration_ms", ev.DurationMs,
		)
	}

	c.raw = append(c.raw, chunk.Samples...)
	if err := c.encoder.Write(chunk); err != nil {
		c.logger.Warn("session: encoder write failed", "error", err)
	}

	level := c.level
	count := len(c.events)
	fn := c.onLoudness
	c.mu.Unlock()

	if fn != nil {
		fn(level, count)
	}
}

// Pause suspends frame accumulation. Valid only while recording.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusRecording {
		return ErrInvalidTransition
	}
	c.status = StatusPaused
	c.logger.Info("session paused", "session_id", c.sessionID)
	return nil
}

// Resume continues a paused session. Valid only while paused.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusPaused {
		return ErrInvalidTransition
	}
	c.status = StatusRecording
	c.logger.Info("session resumed", "session_id", c.sessionID)
	return nil
}

// Stop halts capture, finalizes the artifact and returns the Result.
// The capture source is released on every path. When finalization fails
// the Result still carries duration and laugh events, alongside
// ErrNoAudioCaptured.
func (c *Controller) Stop() (*Result, error) {
	c.mu.Lock()
	if c.status != StatusRecording && c.status != StatusPaused {
		c.mu.Unlock()
		return nil, ErrNotRecording
	}
	c.status = StatusFinalizing
	doneCh := c.doneCh
	c.mu.Unlock()

	// Stopping the source closes the stream; wait for the consumer to
	// drain everything already captured.
	if err := c.source.Stop(); err != nil {
		c.logger.Warn("session: source stop failed", "error", err)
	}
	<-doneCh

	c.mu.Lock()
	defer c.mu.Unlock()

	srcCfg := c.source.Config()
	result := &Result{
		SessionID:   c.sessionID,
		StartedAt:   c.startedAt,
		DurationSec: c.elapsed.Seconds(),
		Events:      c.events,
		PCM:         clip.BufferFromPCM(c.raw, srcCfg.SampleRate, srcCfg.Channels),
	}

	artifact, err := c.encoder.Finalize()
	if err != nil {
		result.Status = StatusErrored
		c.status = StatusIdle
		c.logger.Error("session finalization failed",
			"session_id", c.sessionID,
			"duration_sec", result.DurationSec,
			"laugh_count", len(result.Events),
			"error", err,
		)
		if errors.Is(err, encode.ErrNoData) {
			return result, ErrNoAudioCaptured
		}
		return result, fmt.Errorf("session: finalize artifact: %w", err)
	}

	result.Artifact = artifact
	result.Status = StatusCompleted
	c.status = StatusIdle

	c.logger.Info("session completed",
		"session_id", c.sessionID,
		"duration_sec", result.DurationSec,
		"laugh_count", len(result.Events),
		"artifact_bytes", len(artifact.Data),
		"mime", artifact.MIME,
	)

	return result, nil
}

// Snapshot returns the current controller state for live display.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Status:      c.status,
		Loudness:    c.level,
		LaughCount:  len(c.events),
		DurationSec: c.elapsed.Seconds(),
	}
	if c.status != StatusIdle {
		snap.SessionID = c.sessionID.String()
	}
	return snap
}

// Close releases the capture source. An active session is stopped first.
func (c *Controller) Close() error {
	c.mu.Lock()
	active := c.status == StatusRecording || c.status == StatusPaused
	c.mu.Unlock()

	if active {
		if _, err := c.Stop(); err != nil && !errors.Is(err, ErrNoAudioCaptured) {
			c.logger.Warn("session: stop during close failed", "error", err)
		}
	}
	return c.source.Close()
}
