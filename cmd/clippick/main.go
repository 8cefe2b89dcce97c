// clippick picks the best laugh clip out of a recorded WAV file.
// It runs the same loudness, detection, and scoring pass as the daemon,
// but offline, and writes the winning clip as a new WAV.
//
// Usage:
//
//	clippick -in practice.wav -out best.wav
//	clippick -in practice.wav -endpoint http://localhost:9000
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/hahalabs/laughtrack/internal/log"
	"github.com/hahalabs/laughtrack/pkg/audioio"
	"github.com/hahalabs/laughtrack/pkg/clip"
	"github.com/hahalabs/laughtrack/pkg/encode"
	"github.com/hahalabs/laughtrack/pkg/laugh"
	"github.com/hahalabs/laughtrack/pkg/loudness"
	"github.com/hahalabs/laughtrack/pkg/score"
)

// frameDuration matches the daemon's capture cadence so detection
// behaves the same offline.
const frameDuration = 100 * time.Millisecond

func main() {
	in := flag.String("in", "", "Input WAV file (PCM16)")
	out := flag.String("out", "clip.wav", "Output WAV file for the best clip")
	endpoint := flag.String("endpoint", "", "Scoring service URL (empty: local energy heuristic)")
	threshold := flag.Float64("threshold", laugh.DefaultConfig().Threshold, "Loudness threshold (0-100)")
	minScore := flag.Float64("min-score", score.DefaultConfig().MinScore, "Quality floor (0-1)")
	clipDur := flag.Duration("clip", clip.DefaultConfig().Duration, "Clip duration")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)
	logger := log.L()

	if *in == "" {
		logger.Error("missing required -in flag")
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		logger.Error("read input", "error", err)
		os.Exit(1)
	}
	samples, rate, channels, err := encode.ParseWAV(data)
	if err != nil {
		logger.Error("parse input", "error", err)
		os.Exit(1)
	}

	logger.Info("loaded recording",
		"file", *in,
		"sample_rate", rate,
		"channels", channels,
		"duration_sec", float64(len(samples))/float64(rate*channels),
	)

	events := detectEvents(samples, rate, channels, *threshold)
	if len(events) == 0 {
		logger.Error("no laugh events detected")
		os.Exit(1)
	}
	logger.Info("detection finished", "laugh_count", len(events))

	ctx := context.Background()

	var model score.Model = energyModel{rate: rate}
	if *endpoint != "" {
		httpModel := score.NewHTTPModel(*endpoint)
		if err := httpModel.Load(ctx); err != nil {
			logger.Error("score model unavailable", "error", err)
			os.Exit(1)
		}
		model = httpModel
	}

	clipCfg := clip.DefaultConfig()
	clipCfg.Duration = *clipDur
	scoreCfg := score.DefaultConfig()
	scoreCfg.MinScore = *minScore

	extractor := clip.NewExtractor(clipCfg)
	normalizer := clip.NewNormalizer(clipCfg)
	scorer := score.NewScorer(scoreCfg, model, logger)

	buffer := clip.BufferFromPCM(samples, rate, channels)
	candidates := make([]score.Candidate, 0, len(events))
	for _, ev := range events {
		seg, err := extractor.Extract(buffer, ev.OffsetMs)
		if err != nil {
			logger.Debug("skipping event", "offset_ms", ev.OffsetMs, "error", err)
			continue
		}
		normalizer.Normalize(seg)
		candidates = append(candidates, score.Candidate{Segment: seg, OffsetMs: ev.OffsetMs})
	}

	best, err := scorer.SelectBest(ctx, candidates)
	if err != nil {
		logger.Error("no clip selected", "error", err)
		os.Exit(1)
	}

	clipData := encode.WAVFromFloat32(best.Segment.Channels, best.Segment.SampleRate)
	if err := os.WriteFile(*out, clipData, 0644); err != nil {
		logger.Error("write output", "error", err)
		os.Exit(1)
	}

	logger.Info("best clip written",
		"file", *out,
		"offset_ms", best.OffsetMs,
		"quality", best.Quality,
		"bytes", len(clipData),
	)
}

// detectEvents replays the recording through the live detection chain
// at the daemon's frame cadence.
func detectEvents(samples []int16, rate, channels int, threshold float64) []laugh.Event {
	laughCfg := laugh.DefaultConfig()
	laughCfg.Threshold = threshold

	estimator := loudness.NewEstimator(loudness.DefaultConfig())
	detector := laugh.NewDetector(laughCfg)

	frameSamples := int(float64(rate)*frameDuration.Seconds()) * channels

	var events []laugh.Event
	var level float64
	var elapsed time.Duration

	for start := 0; start+frameSamples <= len(samples); start += frameSamples {
		chunk := audioio.Chunk{
			Samples:    samples[start : start+frameSamples],
			SampleRate: rate,
			Channels:   channels,
		}
		elapsed += frameDuration
		level = estimator.Estimate(loudness.FrameFromChunk(chunk), level)
		if ev := detector.Process(level, elapsed); ev != nil {
			events = append(events, *ev)
		}
	}

	return events
}

// energyModel is the offline fallback scorer: louder clips score higher.
// Mean absolute amplitude maps directly to [0,1].
type energyModel struct {
	rate int
}

func (m energyModel) Load(ctx context.Context) error { return nil }
func (m energyModel) Ready() bool                    { return true }
func (m energyModel) SampleRate() int                { return m.rate }

func (m energyModel) Predict(ctx context.Context, samples []float32) (float64, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	var sum float64
	for _, v := range samples {
		if v < 0 {
			v = -v
		}
		sum += float64(v)
	}
	return sum / float64(len(samples)), nil
}
