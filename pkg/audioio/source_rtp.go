package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
)

// RTPSource receives L16 audio over UDP as RTP packets.
//
// Payload is big-endian PCM16 per RFC 3551. Packets are delivered strictly
// in arrival order; sequence gaps are counted but never reordered, since
// downstream loudness estimation tolerates loss better than latency.
type RTPSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	conn     *net.UDPConn
	running  bool
	closed   bool
	streamCh chan Chunk
	stopCh   chan struct{}

	chunksRead  atomic.Int64
	samplesRead atomic.Int64
	dropped     atomic.Int64

	lastSeq uint16
	haveSeq bool
}

// NewRTPSource creates an RTP capture source listening on cfg.Address.
func NewRTPSource(cfg Config, logger *slog.Logger) *RTPSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &RTPSource{
		cfg:    cfg,
		logger: logger,
	}
}

// Start binds the UDP listener and begins reading packets.
func (s *RTPSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %v", ErrNotAvailable, s.cfg.Address, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("%w: listen %s: %v", ErrNotAvailable, s.cfg.Address, err)
	}

	s.conn = conn
	s.running = true
	s.stopCh = make(chan struct{})
	s.streamCh = make(chan Chunk, 10)
	s.haveSeq = false

	go s.readLoop(conn, s.streamCh, s.stopCh)

	s.logger.Info("rtp audio source started",
		"address", s.cfg.Address,
		"sample_rate", s.cfg.SampleRate,
	)

	return nil
}

func (s *RTPSource) readLoop(conn *net.UDPConn, streamCh chan Chunk, stopCh chan struct{}) {
	defer close(streamCh)

	buf := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-stopCh:
			default:
				s.logger.Debug("rtp source: read ended", "error", err)
				s.Stop()
			}
			return
		}

		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			s.logger.Debug("rtp source: bad packet", "error", err)
			continue
		}

		if s.haveSeq {
			expected := s.lastSeq + 1
			if pkt.SequenceNumber != expected {
				gap := int64(pkt.SequenceNumber - expected)
				if gap > 0 && gap < 1000 {
					s.dropped.Add(gap)
				}
			}
		}
		s.lastSeq = pkt.SequenceNumber
		s.haveSeq = true

		chunk := s.chunkFromPayload(pkt.Payload)
		if len(chunk.Samples) == 0 {
			continue
		}

		select {
		case streamCh <- chunk:
			s.chunksRead.Add(1)
			s.samplesRead.Add(int64(len(chunk.Samples)))
		default:
			s.dropped.Add(1)
			s.logger.Debug("rtp source: buffer full, dropping chunk")
		}
	}
}

// chunkFromPayload converts a big-endian L16 payload to a Chunk.
func (s *RTPSource) chunkFromPayload(payload []byte) Chunk {
	samples := make([]int16, len(payload)/2)
	for i := range samples {
		samples[i] = int16(payload[i*2])<<8 | int16(payload[i*2+1])
	}
	return Chunk{
		Samples:    samples,
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
	}
}

// Stop halts capture and closes the listener.
func (s *RTPSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	close(s.stopCh)

	err := s.conn.Close()
	s.conn = nil

	s.logger.Info("rtp audio source stopped")

	return err
}

// Stream returns the chunk channel.
func (s *RTPSource) Stream() <-chan Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCh
}

// Config returns the capture configuration.
func (s *RTPSource) Config() Config {
	return s.cfg
}

// Name returns "rtp".
func (s *RTPSource) Name() string {
	return "rtp"
}

// Close releases resources.
func (s *RTPSource) Close() error {
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
func (s *RTPSource) Stats() SourceStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SourceStats{
		ChunksRead:  s.chunksRead.Load(),
		SamplesRead: s.samplesRead.Load(),
		Dropped:     s.dropped.Load(),
		Running:     running,
		Backend:     "rtp",
	}
}

var _ SourceWithStats = (*RTPSource)(nil)
