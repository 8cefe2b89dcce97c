package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// wsHandshakeTimeout bounds the initial permission wait: the relay does not
// answer until the user has responded to the browser permission prompt, so
// the dial context is the only way to abandon a pending request.
const wsHandshakeTimeout = 60 * time.Second

// WSSource receives PCM16 audio from a browser capture relay over websocket.
//
// Protocol: after the dial succeeds, the relay sends one text message,
// "granted" or "denied", reflecting the browser's microphone permission
// prompt. Every subsequent binary message is one frame of interleaved
// little-endian PCM16 at the configured rate and channel count.
type WSSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	running  bool
	closed   bool
	streamCh chan Chunk
	stopCh   chan struct{}

	chunksRead  atomic.Int64
	samplesRead atomic.Int64
	dropped     atomic.Int64
}

// NewWSSource creates a websocket capture source for the given relay URL.
func NewWSSource(cfg Config, logger *slog.Logger) *WSSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSSource{
		cfg:    cfg,
		logger: logger,
	}
}

// Start dials the relay and waits for the permission verdict.
// The wait is cancellable through ctx; cancelling abandons the pending
// permission request and closes the connection.
func (s *WSSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, wsHandshakeTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, s.cfg.Address, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrNotAvailable, s.cfg.Address, err)
	}

	// Close the connection if ctx is cancelled while we block on the
	// permission verdict, so a pending request never leaks the handle.
	verdictDone := make(chan struct{})
	go func() {
		select {
		case <-dialCtx.Done():
			conn.Close()
		case <-verdictDone:
		}
	}()

	msgType, msg, err := conn.ReadMessage()
	close(verdictDone)
	if err != nil {
		conn.Close()
		if dialCtx.Err() != nil {
			return fmt.Errorf("%w: permission request abandoned: %v", ErrNotAvailable, dialCtx.Err())
		}
		return fmt.Errorf("%w: relay handshake: %v", ErrNotAvailable, err)
	}
	if msgType != websocket.TextMessage || string(msg) != "granted" {
		conn.Close()
		return ErrPermissionDenied
	}

	s.conn = conn
	s.running = true
	s.stopCh = make(chan struct{})
	s.streamCh = make(chan Chunk, 10)

	go s.readLoop(conn, s.streamCh, s.stopCh)

	s.logger.Info("ws audio source started",
		"address", s.cfg.Address,
		"sample_rate", s.cfg.SampleRate,
	)

	return nil
}

func (s *WSSource) readLoop(conn *websocket.Conn, streamCh chan Chunk, stopCh chan struct{}) {
	// The reader owns the stream channel; closing it here guarantees Stop
	// never races a pending send.
	defer close(streamCh)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-stopCh:
				// Normal shutdown, Stop closed the connection.
			default:
				s.logger.Debug("ws source: read ended", "error", err)
				s.Stop()
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		var chunk Chunk
		chunk.FromBytes(data, s.cfg.SampleRate, s.cfg.Channels)

		select {
		case streamCh <- chunk:
			s.chunksRead.Add(1)
			s.samplesRead.Add(int64(len(chunk.Samples)))
		default:
			s.dropped.Add(1)
			s.logger.Debug("ws source: buffer full, dropping chunk")
		}
	}
}

// Stop halts capture and closes the relay connection.
func (s *WSSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	close(s.stopCh)

	err := s.conn.Close()
	s.conn = nil

	s.logger.Info("ws audio source stopped")

	return err
}

// Stream returns the chunk channel.
func (s *WSSource) Stream() <-chan Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCh
}

// Config returns the capture configuration.
func (s *WSSource) Config() Config {
	return s.cfg
}

// Name returns "ws".
func (s *WSSource) Name() string {
	return "ws"
}

// Close releases resources.
func (s *WSSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Stop()
}

// Stats returns source statistics.
func (s *WSSource) Stats() SourceStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SourceStats{
		ChunksRead:  s.chunksRead.Load(),
		SamplesRead: s.samplesRead.Load(),
		Dropped:     s.dropped.Load(),
		Running:     running,
		Backend:     "ws",
	}
}

var _ SourceWithStats = (*WSSource)(nil)
