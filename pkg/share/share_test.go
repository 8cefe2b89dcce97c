package share

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/hahalabs/laughtrack/pkg/clip"
	"github.com/hahalabs/laughtrack/pkg/laugh"
	"github.com/hahalabs/laughtrack/pkg/score"
	"github.com/hahalabs/laughtrack/pkg/session"
	"github.com/hahalabs/laughtrack/pkg/store"
)

type fakeRemote struct {
	fail     bool
	uploaded []*store.Entry
}

func (f *fakeRemote) Upload(ctx context.Context, e *store.Entry) error {
	if f.fail {
		return store.ErrRemoteUnavailable
	}
	f.uploaded = append(f.uploaded, e)
	return nil
}

// sequenceModel returns preset scores in call order.
func sequenceModel(scores ...float64) *score.MockModel {
	i := 0
	m := score.NewMockModel()
	m.PredictFunc = func(ctx context.Context, samples []float32) (float64, error) {
		s := scores[i%len(scores)]
		i++
		return s, nil
	}
	return m
}

// sessionResult builds a finished session with the given audio length
// and laugh event offsets.
func sessionResult(durationSec float64, offsets ...int64) *session.Result {
	const rate = 8000
	n := int(durationSec * rate)
	mono := make([]float32, n)
	for i := range mono {
		mono[i] = 0.25
	}
	events := make([]laugh.Event, len(offsets))
	for i, off := range offsets {
		events[i] = laugh.Event{OffsetMs: off, DurationMs: 300}
	}
	return &session.Result{
		SessionID:   uuid.New(),
		DurationSec: durationSec,
		Events:      events,
		PCM:         &clip.Buffer{Channels: [][]float32{mono}, SampleRate: rate},
		Status:      session.StatusCompleted,
	}
}

func newTestPipeline(t *testing.T, model score.Model, remote store.Remote) (*Pipeline, *store.JSONStore) {
	t.Helper()
	local, err := store.NewJSONStore(filepath.Join(t.TempDir(), "pending.json"))
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	scorer := score.NewScorer(score.DefaultConfig(), model, nil)
	saver := store.NewSaver(local, remote, nil)
	return NewPipeline(clip.DefaultConfig(), scorer, saver, nil), local
}

func TestShareSelectsBestClip(t *testing.T) {
	remote := &fakeRemote{}
	p, local := newTestPipeline(t, sequenceModel(0.5, 0.9, 0.6), remote)

	result := sessionResult(10, 2000, 5000, 8000)
	shared, err := p.Share(context.Background(), result)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}

	if shared.OffsetMs != 5000 {
		t.Errorf("OffsetMs = %d, want 5000 (highest score)", shared.OffsetMs)
	}
	if shared.Quality != 0.9 {
		t.Errorf("Quality = %v, want 0.9", shared.Quality)
	}
	if shared.Outcome != store.OutcomeSaved {
		t.Errorf("Outcome = %q, want %q", shared.Outcome, store.OutcomeSaved)
	}
	if local.Count() != 0 {
		t.Errorf("local cache has %d entries, want 0", local.Count())
	}

	if len(remote.uploaded) != 1 {
		t.Fatalf("remote received %d uploads, want 1", len(remote.uploaded))
	}
	up := remote.uploaded[0]
	if up.MIME != "audio/wav" {
		t.Errorf("MIME = %q, want audio/wav", up.MIME)
	}
	if len(up.Data) < 44 || string(up.Data[:4]) != "RIFF" {
		t.Errorf("uploaded clip is not a RIFF container (%d bytes)", len(up.Data))
	}
	if up.LaughCount != 3 {
		t.Errorf("LaughCount = %d, want 3", up.LaughCount)
	}
	if up.DurationSec < 2.99 || up.DurationSec > 3.01 {
		t.Errorf("DurationSec = %v, want ~3.0", up.DurationSec)
	}
}

func TestShareNoEvents(t *testing.T) {
	p, _ := newTestPipeline(t, sequenceModel(0.9), &fakeRemote{})

	if _, err := p.Share(context.Background(), sessionResult(10)); !errors.Is(err, ErrNoLaughEvents) {
		t.Errorf("Share = %v, want ErrNoLaughEvents", err)
	}
	if _, err := p.Share(context.Background(), nil); !errors.Is(err, ErrNoLaughEvents) {
		t.Errorf("Share(nil) = %v, want ErrNoLaughEvents", err)
	}
}

func TestShareNothingSurvivesFloor(t *testing.T) {
	p, _ := newTestPipeline(t, sequenceModel(0.1, 0.2), &fakeRemote{})

	_, err := p.Share(context.Background(), sessionResult(10, 2000, 5000))
	if !errors.Is(err, score.ErrNoSuitableClip) {
		t.Errorf("Share = %v, want ErrNoSuitableClip", err)
	}
}

func TestShareAudioTooShort(t *testing.T) {
	p, _ := newTestPipeline(t, sequenceModel(0.9), &fakeRemote{})

	// 1s of audio cannot fit a 3s clip window for any event.
	_, err := p.Share(context.Background(), sessionResult(1, 500))
	if !errors.Is(err, score.ErrNoSuitableClip) {
		t.Errorf("Share = %v, want ErrNoSuitableClip", err)
	}
}

func TestShareFallsBackToLocalCache(t *testing.T) {
	p, local := newTestPipeline(t, sequenceModel(0.8), &fakeRemote{fail: true})

	shared, err := p.Share(context.Background(), sessionResult(10, 4000))
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if shared.Outcome != store.OutcomeSavedLocally {
		t.Errorf("Outcome = %q, want %q", shared.Outcome, store.OutcomeSavedLocally)
	}
	if shared.EntryID == "" {
		t.Error("EntryID missing for locally cached clip")
	}
	if local.Count() != 1 {
		t.Errorf("local cache has %d entries, want 1", local.Count())
	}
}
