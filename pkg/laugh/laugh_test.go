package laugh

import (
	"testing"
	"time"
)

// feed runs samples through the detector at a 100ms cadence starting at
// elapsed 0, returning all emitted events.
func feed(d *Detector, samples []float64) []Event {
	var events []Event
	for i, s := range samples {
		if ev := d.Process(s, time.Duration(i)*100*time.Millisecond); ev != nil {
			events = append(events, *ev)
		}
	}
	return events
}

// loudFor builds a constant-loudness sample run of the given length.
func loudFor(level float64, n int) []float64 {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = level
	}
	return samples
}

func TestDetector_SustainedLoudCadence(t *testing.T) {
	// Threshold 55, sustain 300ms, cooldown 1500ms. A single sustained
	// loud period of minSustain + cooldown*3 = 4800ms, sampled every
	// 100ms, fires exactly 3 events at 300, 1800 and 3300ms: the first
	// when sustain is reached, then one per cooldown window, with the
	// fourth window cut off by the end of the loud period.
	d := NewDetector(Config{
		Threshold:  55,
		MinSustain: 300 * time.Millisecond,
		Cooldown:   1500 * time.Millisecond,
	})

	samples := loudFor(80, 48)            // loud at 0..4700ms
	samples = append(samples, 0, 0, 0, 0) // quiet through 5100ms
	events := feed(d, samples)

	if len(events) != 3 {
		t.Fatalf("Expected exactly 3 events, got %d: %+v", len(events), events)
	}

	wantOffsets := []int64{300, 1800, 3300}
	for i, want := range wantOffsets {
		if events[i].OffsetMs != want {
			t.Errorf("Event %d: expected offset %dms, got %dms", i, want, events[i].OffsetMs)
		}
	}
}

func TestDetector_CooldownSpacing(t *testing.T) {
	cfg := DefaultConfig()
	d := NewDetector(cfg)

	// A long continuous loud stretch; no two events may be closer than
	// the cooldown.
	events := feed(d, loudFor(90, 200))

	if len(events) < 2 {
		t.Fatalf("Expected multiple events, got %d", len(events))
	}

	cooldownMs := cfg.Cooldown.Milliseconds()
	for i := 1; i < len(events); i++ {
		gap := events[i].OffsetMs - events[i-1].OffsetMs
		if gap < cooldownMs {
			t.Errorf("Events %d and %d only %dms apart (cooldown %dms)", i-1, i, gap, cooldownMs)
		}
	}
}

func TestDetector_OffsetsMonotonic(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// Alternating bursts and silence.
	var samples []float64
	for burst := 0; burst < 5; burst++ {
		samples = append(samples, loudFor(70, 8)...)
		samples = append(samples, loudFor(0, 12)...)
	}
	events := feed(d, samples)

	for i := 1; i < len(events); i++ {
		if events[i].OffsetMs < events[i-1].OffsetMs {
			t.Errorf("Event %d offset %dms before event %d offset %dms",
				i, events[i].OffsetMs, i-1, events[i-1].OffsetMs)
		}
	}
}

func TestDetector_ShortSpikeIgnored(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// Two samples above threshold (200ms) is under the 300ms sustain.
	samples := []float64{0, 90, 90, 0, 0, 0}
	events := feed(d, samples)

	if len(events) != 0 {
		t.Errorf("Expected no events for a short spike, got %d", len(events))
	}
}

func TestDetector_AtThresholdIsQuiet(t *testing.T) {
	cfg := DefaultConfig()
	d := NewDetector(cfg)

	// Samples exactly at the threshold never count as loud.
	events := feed(d, loudFor(cfg.Threshold, 50))

	if len(events) != 0 {
		t.Errorf("Expected no events at threshold, got %d", len(events))
	}
}

func TestDetector_FirstEventNeedsNoCooldown(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// The first event fires as soon as sustain is satisfied, without
	// waiting out a cooldown from a prior session.
	events := feed(d, loudFor(90, 5))

	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].OffsetMs != 300 {
		t.Errorf("Expected first event at 300ms, got %dms", events[0].OffsetMs)
	}
	if events[0].DurationMs != 300 {
		t.Errorf("Expected duration 300ms, got %dms", events[0].DurationMs)
	}
}

func TestDetector_QuietDropResetsSustain(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// Loudness dips below threshold right before sustain would be
	// reached; the period must restart from zero.
	samples := []float64{90, 90, 90, 10, 90, 90, 90, 90}
	events := feed(d, samples)

	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	// Period restarts at 400ms, sustain reached at 700ms.
	if events[0].OffsetMs != 700 {
		t.Errorf("Expected event at 700ms, got %dms", events[0].OffsetMs)
	}
}

func TestDetector_Reset(t *testing.T) {
	d := NewDetector(DefaultConfig())

	feed(d, loudFor(90, 10))
	if !d.State().Fired {
		t.Fatal("Expected state to record a fired event")
	}

	d.Reset()
	st := d.State()
	if st.Fired || st.LoudActive || st.LastEventAt != 0 || st.LoudSince != 0 {
		t.Errorf("Expected zero state after reset, got %+v", st)
	}

	// After reset the first event again fires at sustain boundary.
	events := feed(d, loudFor(90, 5))
	if len(events) != 1 || events[0].OffsetMs != 300 {
		t.Errorf("Expected fresh first event at 300ms, got %+v", events)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	bad := []Config{
		{Threshold: -1, MinSustain: time.Second, Cooldown: time.Second},
		{Threshold: 101, MinSustain: time.Second, Cooldown: time.Second},
		{Threshold: 40, MinSustain: 0, Cooldown: time.Second},
		{Threshold: 40, MinSustain: time.Second, Cooldown: 0},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
