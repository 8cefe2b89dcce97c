package score

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/hahalabs/laughtrack/internal/httpc"
)

// Default input format for the hosted laughter classifier.
const (
	defaultModelRate = 16000
)

// HTTPModel scores clips through a remote inference service.
//
// The service exposes GET /health and POST /predict; predict takes
// {"sample_rate": N, "samples": [...]} and answers {"score": S}.
type HTTPModel struct {
	baseURL string
	rate    int
	http    *http.Client
	ready   atomic.Bool
}

// HTTPModelOption configures an HTTPModel.
type HTTPModelOption func(*HTTPModel)

// WithSampleRate overrides the model's required input sample rate.
func WithSampleRate(rate int) HTTPModelOption {
	return func(m *HTTPModel) {
		m.rate = rate
	}
}

// WithHTTPClient overrides the HTTP client (for tests).
func WithHTTPClient(client *http.Client) HTTPModelOption {
	return func(m *HTTPModel) {
		m.http = client
	}
}

// NewHTTPModel creates a scoring client for the given base URL.
func NewHTTPModel(baseURL string, opts ...HTTPModelOption) *HTTPModel {
	m := &HTTPModel{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		rate:    defaultModelRate,
		http:    httpc.Client,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load checks the service's health endpoint and marks the model ready.
func (m *HTTPModel) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("score: build health request: %w", err)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("score: health check: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("score: health check: status %d", resp.StatusCode)
	}

	m.ready.Store(true)
	return nil
}

// Ready reports whether Load has succeeded.
func (m *HTTPModel) Ready() bool {
	return m.ready.Load()
}

// SampleRate returns the model's required input sample rate.
func (m *HTTPModel) SampleRate() int {
	return m.rate
}

// Predict posts mono samples to the service and returns the score.
func (m *HTTPModel) Predict(ctx context.Context, samples []float32) (float64, error) {
	payload := map[string]interface{}{
		"sample_rate": m.rate,
		"samples":     samples,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("score: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("score: build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("score: predict: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("score: predict: status %d", resp.StatusCode)
	}

	var result struct {
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("score: decode response: %w", err)
	}

	return clamp01(result.Score), nil
}

var _ Model = (*HTTPModel)(nil)
