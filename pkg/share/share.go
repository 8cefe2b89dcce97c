// Package share turns a finished session into one shareable clip: it
// cuts a window around every laugh event, normalizes each, picks the
// best-scoring one, and hands it to the store.
package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hahalabs/laughtrack/pkg/clip"
	"github.com/hahalabs/laughtrack/pkg/encode"
	"github.com/hahalabs/laughtrack/pkg/score"
	"github.com/hahalabs/laughtrack/pkg/session"
	"github.com/hahalabs/laughtrack/pkg/store"
)

// ErrNoLaughEvents is returned when the session has nothing to clip.
var ErrNoLaughEvents = errors.New("share: session has no laugh events")

// Shared describes the clip that was saved.
type Shared struct {
	// EntryID identifies the stored entry when it was cached locally.
	EntryID string `json:"entry_id,omitempty"`

	// OffsetMs is the laugh event the clip is centered on.
	OffsetMs int64 `json:"offset_ms"`

	// Quality is the model score of the selected clip.
	Quality float64 `json:"quality"`

	// Outcome reports where the clip ended up.
	Outcome store.Outcome `json:"outcome"`
}

// Pipeline wires extraction, normalization, scoring and persistence.
type Pipeline struct {
	extractor  *clip.Extractor
	normalizer *clip.Normalizer
	scorer     *score.Scorer
	saver      *store.Saver
	logger     *slog.Logger
}

// NewPipeline creates a share pipeline.
func NewPipeline(clipCfg clip.Config, scorer *score.Scorer, saver *store.Saver, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor:  clip.NewExtractor(clipCfg),
		normalizer: clip.NewNormalizer(clipCfg),
		scorer:     scorer,
		saver:      saver,
		logger:     logger,
	}
}

// Share selects and saves the best clip of the session.
// A single candidate failing to extract does not abort the pass; the
// remaining events still compete. Returns score.ErrNoSuitableClip when
// nothing survives the quality floor.
func (p *Pipeline) Share(ctx context.Context, result *session.Result) (*Shared, error) {
	if result == nil || result.PCM == nil || len(result.Events) == 0 {
		return nil, ErrNoLaughEvents
	}

	candidates := make([]score.Candidate, 0, len(result.Events))
	for _, ev := range result.Events {
		seg, err := p.extractor.Extract(result.PCM, ev.OffsetMs)
		if err != nil {
			p.logger.Debug("share: skipping event",
				"offset_ms", ev.OffsetMs,
				"error", err,
			)
			continue
		}
		p.normalizer.Normalize(seg)
		candidates = append(candidates, score.Candidate{
			Segment:  seg,
			OffsetMs: ev.OffsetMs,
		})
	}

	best, err := p.scorer.SelectBest(ctx, candidates)
	if err != nil {
		return nil, err
	}

	data := encode.WAVFromFloat32(best.Segment.Channels, best.Segment.SampleRate)

	entry := &store.Entry{
		SessionID:   result.SessionID.String(),
		DurationSec: float64(best.Segment.NumSamples()) / float64(best.Segment.SampleRate),
		LaughCount:  len(result.Events),
		MIME:        "audio/wav",
		Data:        data,
	}

	outcome, err := p.saver.Save(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("share: save clip: %w", err)
	}

	p.logger.Info("clip shared",
		"session_id", result.SessionID,
		"offset_ms", best.OffsetMs,
		"quality", best.Quality,
		"outcome", outcome,
		"bytes", len(data),
	)

	shared := &Shared{
		OffsetMs: best.OffsetMs,
		Quality:  best.Quality,
		Outcome:  outcome,
	}
	if outcome == store.OutcomeSavedLocally {
		shared.EntryID = entry.ID
	}
	return shared, nil
}
