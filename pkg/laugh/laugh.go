// Package laugh detects discrete laugh events in a loudness stream.
//
// Detection is a two-state machine: a loudness sample above the threshold
// starts a sustained-loud period, and an event fires once the period has
// lasted MinSustain and the previous event is at least Cooldown in the
// past. Firing re-arms the machine: a new sustained period must accrue
// before the next event, so one continuous loud stretch fires at most once
// per cooldown window.
package laugh

import "time"

// Event is a discrete, timestamped detection of a sustained loudness burst.
// Offsets are relative to session start. Events are immutable once created
// and appended in strictly non-decreasing offset order.
type Event struct {
	// OffsetMs is when the detection rule was satisfied, in milliseconds
	// from session start.
	OffsetMs int64 `json:"offset_ms"`

	// DurationMs is how long the triggering loud period had lasted when
	// the event fired. Always >= the configured minimum sustain.
	DurationMs int64 `json:"duration_ms"`
}

// Config holds detector tuning parameters.
type Config struct {
	// Threshold is the loudness (0-100) a sample must exceed to count as
	// loud. Useful range is roughly 20-60. Default: 40
	Threshold float64 `yaml:"threshold" json:"threshold"`

	// MinSustain is how long loudness must stay above the threshold
	// before an event can fire. Filters clicks and door slams.
	// Default: 300ms
	MinSustain time.Duration `yaml:"min_sustain" json:"min_sustain"`

	// Cooldown is the minimum spacing between two events. Prevents one
	// laugh from registering several times. Default: 1500ms
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:  40,
		MinSustain: 300 * time.Millisecond,
		Cooldown:   1500 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 100 {
		return errThresholdRange
	}
	if c.MinSustain <= 0 {
		return errSustainRange
	}
	if c.Cooldown <= 0 {
		return errCooldownRange
	}
	return nil
}

// State is the detector's per-session tracking state.
type State struct {
	// LoudSince is when the current sustained-loud period began.
	// Meaningful only while LoudActive is true.
	LoudSince time.Duration

	// LoudActive reports whether a sustained-loud period is being tracked.
	LoudActive bool

	// LastEventAt is when the most recent event fired.
	// Meaningful only once Fired is true; a fresh session never waits out
	// a cooldown from a prior one.
	LastEventAt time.Duration

	// Fired reports whether any event has fired this session.
	Fired bool
}

// Detector consumes loudness samples and emits laugh events.
// It owns its state privately; Reset restores the initial state and must
// be called at session start. Not safe for concurrent use.
type Detector struct {
	cfg   Config
	state State
}

// NewDetector creates a Detector with the given configuration.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Reset clears all tracking state for a new session.
func (d *Detector) Reset() {
	d.state = State{}
}

// State returns a copy of the current tracking state.
func (d *Detector) State() State {
	return d.state
}

// Process handles one loudness sample taken at the given elapsed time
// since session start. It returns a non-nil Event the instant the
// sustain and cooldown conditions are both satisfied, and nil otherwise.
//
// Samples must be processed in elapsed-time order. Every sample is
// handled deterministically; there are no failure modes.
func (d *Detector) Process(sample float64, elapsed time.Duration) *Event {
	if sample <= d.cfg.Threshold {
		// Loud -> Quiet: the period ends whether or not it fired.
		d.state.LoudActive = false
		return nil
	}

	if !d.state.LoudActive {
		// Quiet -> Loud
		d.state.LoudActive = true
		d.state.LoudSince = elapsed
	}

	sustained := elapsed - d.state.LoudSince
	if sustained < d.cfg.MinSustain {
		return nil
	}
	if d.state.Fired && elapsed-d.state.LastEventAt < d.cfg.Cooldown {
		return nil
	}

	ev := &Event{
		OffsetMs:   elapsed.Milliseconds(),
		DurationMs: sustained.Milliseconds(),
	}

	// Re-arm: a new sustained period must begin before the next event,
	// so one long loud stretch cannot fire at the sustain boundary again.
	d.state.LastEventAt = elapsed
	d.state.Fired = true
	d.state.LoudActive = false

	return ev
}
