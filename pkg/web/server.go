// Package web serves the practice UI: the session control API and the
// live loudness feed the browser meter is driven by.
package web

import (
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/hahalabs/laughtrack/pkg/hub"
	"github.com/hahalabs/laughtrack/pkg/session"
	"github.com/hahalabs/laughtrack/pkg/share"
	"github.com/hahalabs/laughtrack/pkg/store"
)

// Config holds web server parameters.
type Config struct {
	// Port to listen on. Default: "8080"
	Port string `yaml:"port" json:"port"`

	// StaticDir is served at /. Empty disables static files.
	StaticDir string `yaml:"static_dir" json:"static_dir"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:      "8080",
		StaticDir: "./web",
	}
}

// feedUpdate is one frame of the live loudness feed.
type feedUpdate struct {
	Loudness   float64 `json:"loudness"`
	LaughCount int     `json:"laugh_count"`
}

// Server is the practice UI server.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	controller *session.Controller
	pipeline   *share.Pipeline
	saver      *store.Saver

	// feedHub broadcasts loudness samples to every connected tab.
	feedHub *hub.Hub

	// lastResult is the most recently finished session, kept for share.
	lastResult   *session.Result
	lastResultMu sync.RWMutex
}

// NewServer creates the practice UI server and wires the live feed to
// the session controller.
func NewServer(cfg Config, controller *session.Controller, pipeline *share.Pipeline, saver *store.Saver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		controller: controller,
		pipeline:   pipeline,
		saver:      saver,
		feedHub:    hub.New("loudness", logger),
	}

	// Loudness samples flow from the capture goroutine straight to the
	// browser meter.
	controller.OnLoudness(func(level float64, laughCount int) {
		s.feedHub.BroadcastJSON(feedUpdate{Loudness: level, LaughCount: laughCount})
	})

	app := fiber.New(fiber.Config{
		AppName:               "LaughTrack",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/session/start", s.handleStart)
	api.Post("/session/pause", s.handlePause)
	api.Post("/session/resume", s.handleResume)
	api.Post("/session/stop", s.handleStop)
	api.Post("/session/share", s.handleShare)
	api.Post("/sync", s.handleSync)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/loudness", websocket.New(s.handleLoudnessWS))

	s.app = app
	return s
}

// Start starts the web server.
func (s *Server) Start() error {
	s.logger.Info("practice UI listening", "port", s.cfg.Port)

	go s.feedHub.Run()

	return s.app.Listen(":" + s.cfg.Port)
}

// StartAsync starts the web server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server error", "error", err)
		}
	}()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// setLastResult records a finished session for a later share request.
func (s *Server) setLastResult(r *session.Result) {
	s.lastResultMu.Lock()
	s.lastResult = r
	s.lastResultMu.Unlock()
}

func (s *Server) getLastResult() *session.Result {
	s.lastResultMu.RLock()
	defer s.lastResultMu.RUnlock()
	return s.lastResult
}

// Shutdown gracefully stops the web server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
