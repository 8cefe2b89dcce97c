package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/hahalabs/laughtrack/internal/httpc"
)

// ErrRemoteUnavailable is returned when the library service cannot be
// reached or answers with a server error. Callers fall back to the
// local pending cache.
var ErrRemoteUnavailable = errors.New("store: remote unavailable")

// Remote uploads finished recordings to the library service.
type Remote interface {
	Upload(ctx context.Context, e *Entry) error
}

// RemoteConfig holds library service connection parameters.
type RemoteConfig struct {
	// BaseURL of the library service, e.g. "https://api.hahalabs.dev"
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Token is the bearer token for authenticated uploads. Empty means
	// unauthenticated (local development).
	Token string `yaml:"token" json:"token"`

	// Timeout for upload requests. Default: 30s
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// DefaultRemoteConfig returns a RemoteConfig with sensible defaults.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		BaseURL: "http://localhost:8090",
		Timeout: httpc.DefaultTimeout,
	}
}

// HTTPRemote talks to the library service over HTTP.
type HTTPRemote struct {
	cfg    RemoteConfig
	client *http.Client
	tokens oauth2.TokenSource
	logger *slog.Logger
}

// NewHTTPRemote creates a Remote for the given library service.
func NewHTTPRemote(cfg RemoteConfig, logger *slog.Logger) *HTTPRemote {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = httpc.DefaultTimeout
	}

	var tokens oauth2.TokenSource
	if cfg.Token != "" {
		tokens = oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Token,
			TokenType:   "Bearer",
		})
	}

	return &HTTPRemote{
		cfg:    cfg,
		client: httpc.NewClient(cfg.Timeout),
		tokens: tokens,
		logger: logger,
	}
}

// uploadRequest is the wire format for POST /v1/recordings.
type uploadRequest struct {
	SessionID   string  `json:"session_id"`
	DurationSec float64 `json:"duration_sec"`
	LaughCount  int     `json:"laugh_count"`
	MIME        string  `json:"mime"`
	Data        []byte  `json:"data"`
}

// Upload sends a recording to the library service.
func (r *HTTPRemote) Upload(ctx context.Context, e *Entry) error {
	body, err := json.Marshal(uploadRequest{
		SessionID:   e.SessionID,
		DurationSec: e.DurationSec,
		LaughCount:  e.LaughCount,
		MIME:        e.MIME,
		Data:        e.Data,
	})
	if err != nil {
		return fmt.Errorf("store: marshal upload: %w", err)
	}

	url := strings.TrimRight(r.cfg.BaseURL, "/") + "/v1/recordings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("store: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if r.tokens != nil {
		token, err := r.tokens.Token()
		if err != nil {
			return fmt.Errorf("store: token source: %w", err)
		}
		token.SetAuthHeader(req)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: server returned %d", ErrRemoteUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("store: upload rejected: %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	r.logger.Debug("recording uploaded",
		"session_id", e.SessionID,
		"bytes", len(e.Data),
	)

	return nil
}
