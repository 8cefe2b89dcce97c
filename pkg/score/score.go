// Package score rates clip candidates with an external laughter-quality
// model and selects the best one for sharing.
package score

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hahalabs/laughtrack/pkg/audioio"
	"github.com/hahalabs/laughtrack/pkg/clip"
)

// ErrNoSuitableClip is returned when no candidate survives the quality
// floor, or when there are no candidates at all. Absence of a good laugh
// is an expected outcome, not a fault.
var ErrNoSuitableClip = errors.New("score: no suitable clip")

// Config holds scoring parameters.
type Config struct {
	// MinScore is the quality floor; candidates scoring below it are
	// discarded. Default: 0.4
	MinScore float64 `yaml:"min_score" json:"min_score"`

	// Endpoint is the HTTP scoring service base URL. Empty selects the
	// unloaded no-op model (all candidates score 0).
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinScore: 0.4,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.MinScore < 0 || c.MinScore > 1 {
		return errors.New("score: min_score must be in [0,1]")
	}
	return nil
}

// Model is the external laughter-quality classifier.
// Predict takes mono float32 audio at the model's required sample rate
// and returns a quality score in [0,1].
type Model interface {
	// Load prepares the model for inference.
	Load(ctx context.Context) error

	// Ready reports whether the model can serve predictions.
	Ready() bool

	// SampleRate returns the input sample rate the model requires.
	SampleRate() int

	// Predict scores one mono clip. The result is in [0,1].
	Predict(ctx context.Context, samples []float32) (float64, error)
}

// Candidate pairs a clip segment with the laugh event that produced it.
type Candidate struct {
	Segment  *clip.Segment
	OffsetMs int64
}

// ScoredCandidate is a candidate that survived the quality floor.
type ScoredCandidate struct {
	Segment  *clip.Segment
	OffsetMs int64
	Quality  float64
}

// Scorer resamples candidates to the model's input format, scores them,
// and selects the maximum-quality survivor.
type Scorer struct {
	cfg    Config
	model  Model
	logger *slog.Logger
}

// NewScorer creates a Scorer backed by the given model.
// The model is an explicit dependency so tests can substitute a mock.
func NewScorer(cfg Config, model Model, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{cfg: cfg, model: model, logger: logger}
}

// SelectBest scores every candidate and returns the one with the strictly
// highest quality at or above the floor; ties go to the earliest offset.
// Returns ErrNoSuitableClip when the input is empty or nothing survives.
// Scoring failures degrade to a 0 score for that candidate instead of
// aborting the pass.
func (s *Scorer) SelectBest(ctx context.Context, candidates []Candidate) (*ScoredCandidate, error) {
	if len(candidates) == 0 {
		return nil, ErrNoSuitableClip
	}

	var best *ScoredCandidate
	for _, cand := range candidates {
		quality := s.scoreOne(ctx, cand)
		if quality < s.cfg.MinScore {
			// Rejected candidates are dropped here; their audio is not
			// retained past this iteration.
			continue
		}
		if best == nil || quality > best.Quality ||
			(quality == best.Quality && cand.OffsetMs < best.OffsetMs) {
			best = &ScoredCandidate{
				Segment:  cand.Segment,
				OffsetMs: cand.OffsetMs,
				Quality:  quality,
			}
		}
	}

	if best == nil {
		return nil, ErrNoSuitableClip
	}
	return best, nil
}

// scoreOne resamples a candidate to the model's input format and scores
// it. An unloaded model or a failed prediction scores 0.
func (s *Scorer) scoreOne(ctx context.Context, cand Candidate) float64 {
	if s.model == nil || !s.model.Ready() {
		return 0
	}

	mono := downmix(cand.Segment)
	mono = audioio.ResampleFloat32(mono, cand.Segment.SampleRate, s.model.SampleRate())

	quality, err := s.model.Predict(ctx, mono)
	if err != nil {
		s.logger.Debug("score: prediction failed, scoring 0",
			"offset_ms", cand.OffsetMs,
			"error", err,
		)
		return 0
	}

	return clamp01(quality)
}

// downmix averages all channels into mono.
func downmix(seg *clip.Segment) []float32 {
	if len(seg.Channels) == 1 {
		return seg.Channels[0]
	}

	n := seg.NumSamples()
	mono := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for _, ch := range seg.Channels {
			sum += ch[i]
		}
		mono[i] = sum / float32(len(seg.Channels))
	}
	return mono
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
