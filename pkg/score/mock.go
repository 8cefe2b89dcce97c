package score

import (
	"context"
	"sync"
)

// MockModel implements Model for testing.
type MockModel struct {
	// LoadFunc is called when Load is invoked.
	LoadFunc func(ctx context.Context) error

	// PredictFunc is called when Predict is invoked.
	PredictFunc func(ctx context.Context, samples []float32) (float64, error)

	// Rate is the sample rate reported by SampleRate. Defaults to 16000.
	Rate int

	// NotReady forces Ready to report false.
	NotReady bool

	mu       sync.Mutex
	predicts int
}

// NewMockModel creates a mock model that scores every clip 0.5.
func NewMockModel() *MockModel {
	return &MockModel{
		PredictFunc: func(ctx context.Context, samples []float32) (float64, error) {
			return 0.5, nil
		},
	}
}

// Load calls LoadFunc if set.
func (m *MockModel) Load(ctx context.Context) error {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	return nil
}

// Ready reports the inverse of NotReady.
func (m *MockModel) Ready() bool {
	return !m.NotReady
}

// SampleRate returns Rate, defaulting to 16000.
func (m *MockModel) SampleRate() int {
	if m.Rate == 0 {
		return 16000
	}
	return m.Rate
}

// Predict calls PredictFunc and counts the invocation.
func (m *MockModel) Predict(ctx context.Context, samples []float32) (float64, error) {
	m.mu.Lock()
	m.predicts++
	m.mu.Unlock()

	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, samples)
	}
	return 0, nil
}

// PredictCalls returns how many times Predict was invoked.
func (m *MockModel) PredictCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predicts
}

var _ Model = (*MockModel)(nil)
