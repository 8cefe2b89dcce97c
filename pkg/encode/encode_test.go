package encode

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/hahalabs/laughtrack/pkg/audioio"
)

func TestWAV_RoundTripHeader(t *testing.T) {
	enc, err := newWAV(48000, 1)
	if err != nil {
		t.Fatalf("newWAV failed: %v", err)
	}

	chunk := audioio.Chunk{
		Samples:    make([]int16, 4800),
		SampleRate: 48000,
		Channels:   1,
	}
	if err := enc.Write(chunk); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	artifact, err := enc.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if artifact.MIME != "audio/wav" {
		t.Errorf("Expected audio/wav, got %s", artifact.MIME)
	}

	data := artifact.Data
	if len(data) != 44+4800*2 {
		t.Fatalf("Expected %d bytes, got %d", 44+4800*2, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("Missing RIFF/WAVE markers")
	}

	rate := binary.LittleEndian.Uint32(data[24:28])
	if rate != 48000 {
		t.Errorf("Expected sample rate 48000, got %d", rate)
	}
	channels := binary.LittleEndian.Uint16(data[22:24])
	if channels != 1 {
		t.Errorf("Expected 1 channel, got %d", channels)
	}
	dataLen := binary.LittleEndian.Uint32(data[40:44])
	if dataLen != 4800*2 {
		t.Errorf("Expected data length %d, got %d", 4800*2, dataLen)
	}
}

func TestWAV_EmptyFinalize(t *testing.T) {
	enc, _ := newWAV(48000, 1)

	_, err := enc.Finalize()
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("Expected ErrNoData, got %v", err)
	}
}

func TestWAVFromFloat32_Clipping(t *testing.T) {
	data := WAVFromFloat32([][]float32{{1.5, -1.5, 0}}, 16000)

	if len(data) != 44+3*2 {
		t.Fatalf("Expected %d bytes, got %d", 44+6, len(data))
	}

	s0 := int16(binary.LittleEndian.Uint16(data[44:46]))
	s1 := int16(binary.LittleEndian.Uint16(data[46:48]))
	if s0 != 32767 {
		t.Errorf("Expected clamp to 32767, got %d", s0)
	}
	if s1 != -32767 {
		t.Errorf("Expected clamp to -32767, got %d", s1)
	}
}

func TestNegotiate_PrefersFirstSupported(t *testing.T) {
	// 48kHz mono is opus-compatible; the first preference wins.
	enc := Negotiate([]string{"opus", "wav"}, 48000, 1, nil)
	if enc.MIME() != "audio/opus" {
		t.Errorf("Expected audio/opus, got %s", enc.MIME())
	}
}

func TestNegotiate_FallsThroughUnsupported(t *testing.T) {
	// 44100 Hz is not an opus rate; negotiation falls through to wav.
	enc := Negotiate([]string{"opus", "wav"}, 44100, 1, nil)
	if enc.MIME() != "audio/wav" {
		t.Errorf("Expected audio/wav, got %s", enc.MIME())
	}
}

func TestNegotiate_AllUnknownFallsBackToWAV(t *testing.T) {
	enc := Negotiate([]string{"flac", "webm"}, 48000, 2, nil)
	if enc.MIME() != "audio/wav" {
		t.Errorf("Expected wav fallback, got %s", enc.MIME())
	}
}

func TestOpus_PacketFraming(t *testing.T) {
	enc, err := newOpus(48000, 1)
	if err != nil {
		t.Fatalf("newOpus failed: %v", err)
	}

	// 100ms chunk = five 20ms frames.
	chunk := audioio.Chunk{
		Samples:    make([]int16, 4800),
		SampleRate: 48000,
		Channels:   1,
	}
	if err := enc.Write(chunk); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	artifact, err := enc.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if artifact.MIME != "audio/opus" {
		t.Errorf("Expected audio/opus, got %s", artifact.MIME)
	}

	// Walk the length-prefixed stream; it must parse cleanly into 5 packets.
	data := artifact.Data
	packets := 0
	for len(data) > 0 {
		if len(data) < 2 {
			t.Fatal("truncated packet length")
		}
		n := int(binary.BigEndian.Uint16(data[:2]))
		if len(data) < 2+n {
			t.Fatal("truncated packet body")
		}
		data = data[2+n:]
		packets++
	}
	if packets != 5 {
		t.Errorf("Expected 5 packets, got %d", packets)
	}
}

func TestOpus_EmptyFinalize(t *testing.T) {
	enc, err := newOpus(48000, 1)
	if err != nil {
		t.Fatalf("newOpus failed: %v", err)
	}

	_, err = enc.Finalize()
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("Expected ErrNoData, got %v", err)
	}
}

func TestParseWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768, 7}
	data := WAVBytes(samples, 44100, 2)

	got, rate, channels, err := ParseWAV(data)
	if err != nil {
		t.Fatalf("ParseWAV: %v", err)
	}
	if rate != 44100 || channels != 2 {
		t.Errorf("rate/channels = %d/%d, want 44100/2", rate, channels)
	}
	if len(got) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestParseWAVRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"empty":      nil,
		"not riff":   []byte("OGGS this is not a wav file at all"),
		"no data":    WAVBytes([]int16{1, 2, 3}, 8000, 1)[:40],
		"bad header": append([]byte("RIFF1234WAVE"), []byte("junk")...),
	}
	for name, data := range cases {
		if _, _, _, err := ParseWAV(data); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
