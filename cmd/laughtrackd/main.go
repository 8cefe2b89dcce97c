// laughtrackd runs the laughter practice daemon: microphone capture,
// live loudness feed, laugh detection, and the practice UI API.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hahalabs/laughtrack/internal/config"
	"github.com/hahalabs/laughtrack/internal/log"
	"github.com/hahalabs/laughtrack/pkg/audioio"
	"github.com/hahalabs/laughtrack/pkg/laugh"
	"github.com/hahalabs/laughtrack/pkg/loudness"
	"github.com/hahalabs/laughtrack/pkg/score"
	"github.com/hahalabs/laughtrack/pkg/session"
	"github.com/hahalabs/laughtrack/pkg/share"
	"github.com/hahalabs/laughtrack/pkg/store"
	"github.com/hahalabs/laughtrack/pkg/web"
)

// syncInterval is how often pending uploads are retried.
const syncInterval = 5 * time.Minute

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	port := flag.String("port", "", "HTTP port (overrides config)")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)
	logger := log.L()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Web.Port = *port
	}

	source, err := audioio.NewSource(cfg.Audio, logger)
	if err != nil {
		logger.Error("audio source error", "error", err)
		os.Exit(1)
	}

	controller := session.NewController(cfg.Session, source,
		loudness.NewEstimator(cfg.Loudness),
		laugh.NewDetector(cfg.Laugh),
		logger,
	)
	defer controller.Close()

	local, err := openStore(cfg.StorePath)
	if err != nil {
		logger.Error("store error", "error", err)
		os.Exit(1)
	}
	saver := store.NewSaver(local, store.NewHTTPRemote(cfg.Remote, logger), logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var model score.Model
	if cfg.Score.Endpoint != "" {
		httpModel := score.NewHTTPModel(cfg.Score.Endpoint)
		if err := httpModel.Load(ctx); err != nil {
			// Scoring degrades to "no suitable clip"; recording still works.
			logger.Warn("score model unavailable", "error", err)
		}
		model = httpModel
	}
	scorer := score.NewScorer(cfg.Score, model, logger)
	pipeline := share.NewPipeline(cfg.Clip, scorer, saver, logger)

	server := web.NewServer(cfg.Web, controller, pipeline, saver, logger)
	server.StartAsync()

	go syncLoop(ctx, saver, logger)

	<-ctx.Done()
	logger.Info("shutting down")
	if err := server.Shutdown(); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
}

func openStore(path string) (*store.JSONStore, error) {
	if path == "" {
		return store.NewDefaultStore()
	}
	return store.NewJSONStore(path)
}

// syncLoop retries locally cached recordings until the context ends.
func syncLoop(ctx context.Context, saver *store.Saver, logger *slog.Logger) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if saver.Pending() == 0 {
				continue
			}
			if _, err := saver.Sync(ctx); err != nil {
				logger.Warn("sync failed", "error", err)
			}
		}
	}
}
