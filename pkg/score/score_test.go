package score

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hahalabs/laughtrack/pkg/clip"
)

func segment(rate, n int) *clip.Segment {
	return &clip.Segment{
		Channels:   [][]float32{make([]float32, n)},
		SampleRate: rate,
	}
}

// scriptedModel returns per-call scores in order.
func scriptedModel(scores ...float64) *MockModel {
	m := NewMockModel()
	i := 0
	m.PredictFunc = func(ctx context.Context, samples []float32) (float64, error) {
		s := scores[i%len(scores)]
		i++
		return s, nil
	}
	return m
}

func TestSelectBest_PicksMaximum(t *testing.T) {
	model := scriptedModel(0.3, 0.5, 0.9)
	scorer := NewScorer(DefaultConfig(), model, nil)

	candidates := []Candidate{
		{Segment: segment(16000, 16000), OffsetMs: 1000},
		{Segment: segment(16000, 16000), OffsetMs: 2000},
		{Segment: segment(16000, 16000), OffsetMs: 3000},
	}

	best, err := scorer.SelectBest(context.Background(), candidates)
	if err != nil {
		t.Fatalf("SelectBest failed: %v", err)
	}
	if best.OffsetMs != 3000 {
		t.Errorf("Expected candidate at 3000ms, got %dms", best.OffsetMs)
	}
	if best.Quality != 0.9 {
		t.Errorf("Expected quality 0.9, got %v", best.Quality)
	}
}

func TestSelectBest_AllBelowFloor(t *testing.T) {
	model := scriptedModel(0.1, 0.2)
	scorer := NewScorer(DefaultConfig(), model, nil)

	candidates := []Candidate{
		{Segment: segment(16000, 16000), OffsetMs: 1000},
		{Segment: segment(16000, 16000), OffsetMs: 2000},
	}

	best, err := scorer.SelectBest(context.Background(), candidates)
	if !errors.Is(err, ErrNoSuitableClip) {
		t.Fatalf("Expected ErrNoSuitableClip, got %v", err)
	}
	if best != nil {
		t.Error("Expected nil candidate")
	}
}

func TestSelectBest_EmptyInput(t *testing.T) {
	scorer := NewScorer(DefaultConfig(), NewMockModel(), nil)

	if _, err := scorer.SelectBest(context.Background(), nil); !errors.Is(err, ErrNoSuitableClip) {
		t.Fatalf("Expected ErrNoSuitableClip, got %v", err)
	}
}

func TestSelectBest_TieGoesToEarliest(t *testing.T) {
	model := scriptedModel(0.7, 0.7)
	scorer := NewScorer(DefaultConfig(), model, nil)

	candidates := []Candidate{
		{Segment: segment(16000, 16000), OffsetMs: 5000},
		{Segment: segment(16000, 16000), OffsetMs: 1000},
	}

	best, err := scorer.SelectBest(context.Background(), candidates)
	if err != nil {
		t.Fatalf("SelectBest failed: %v", err)
	}
	if best.OffsetMs != 1000 {
		t.Errorf("Expected tie to go to earliest offset, got %dms", best.OffsetMs)
	}
}

func TestSelectBest_UnloadedModelScoresZero(t *testing.T) {
	model := NewMockModel()
	model.NotReady = true
	scorer := NewScorer(DefaultConfig(), model, nil)

	candidates := []Candidate{{Segment: segment(16000, 16000), OffsetMs: 1000}}

	if _, err := scorer.SelectBest(context.Background(), candidates); !errors.Is(err, ErrNoSuitableClip) {
		t.Fatalf("Expected ErrNoSuitableClip from unloaded model, got %v", err)
	}
	if model.PredictCalls() != 0 {
		t.Errorf("Expected no predictions from unloaded model, got %d", model.PredictCalls())
	}
}

func TestSelectBest_PredictionErrorScoresZero(t *testing.T) {
	model := NewMockModel()
	calls := 0
	model.PredictFunc = func(ctx context.Context, samples []float32) (float64, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("inference exploded")
		}
		return 0.6, nil
	}
	scorer := NewScorer(DefaultConfig(), model, nil)

	candidates := []Candidate{
		{Segment: segment(16000, 16000), OffsetMs: 1000},
		{Segment: segment(16000, 16000), OffsetMs: 2000},
	}

	best, err := scorer.SelectBest(context.Background(), candidates)
	if err != nil {
		t.Fatalf("SelectBest failed: %v", err)
	}
	if best.OffsetMs != 2000 {
		t.Errorf("Expected surviving candidate at 2000ms, got %dms", best.OffsetMs)
	}
}

func TestSelectBest_ResamplesToModelRate(t *testing.T) {
	model := NewMockModel()
	var gotLen int
	model.PredictFunc = func(ctx context.Context, samples []float32) (float64, error) {
		gotLen = len(samples)
		return 0.8, nil
	}
	scorer := NewScorer(DefaultConfig(), model, nil)

	// 3s at 48kHz stereo; model wants 16kHz mono.
	seg := &clip.Segment{
		Channels:   [][]float32{make([]float32, 144000), make([]float32, 144000)},
		SampleRate: 48000,
	}

	if _, err := scorer.SelectBest(context.Background(), []Candidate{{Segment: seg, OffsetMs: 0}}); err != nil {
		t.Fatalf("SelectBest failed: %v", err)
	}
	if gotLen != 48000 {
		t.Errorf("Expected 48000 samples at 16kHz, got %d", gotLen)
	}
}

func TestHTTPModel_LoadAndPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/predict":
			var req struct {
				SampleRate int       `json:"sample_rate"`
				Samples    []float32 `json:"samples"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("bad predict payload: %v", err)
			}
			if req.SampleRate != 16000 {
				t.Errorf("Expected sample_rate 16000, got %d", req.SampleRate)
			}
			json.NewEncoder(w).Encode(map[string]float64{"score": 0.73})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	model := NewHTTPModel(srv.URL)
	if model.Ready() {
		t.Error("Expected not ready before Load")
	}

	if err := model.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !model.Ready() {
		t.Error("Expected ready after Load")
	}

	score, err := model.Predict(context.Background(), make([]float32, 160))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if score != 0.73 {
		t.Errorf("Expected score 0.73, got %v", score)
	}
}

func TestHTTPModel_LoadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	model := NewHTTPModel(srv.URL)
	if err := model.Load(context.Background()); err == nil {
		t.Fatal("Expected load error")
	}
	if model.Ready() {
		t.Error("Expected not ready after failed load")
	}
}

func TestHTTPModel_ClampsScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]float64{"score": 1.7})
	}))
	defer srv.Close()

	model := NewHTTPModel(srv.URL)
	score, err := model.Predict(context.Background(), make([]float32, 16))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if score != 1.0 {
		t.Errorf("Expected clamp to 1.0, got %v", score)
	}
}
