package audioio

import (
	"math"
	"testing"
)

func TestResample_SameRate(t *testing.T) {
	samples := []int16{100, 200, 300, 400, 500}
	result := Resample(samples, 48000, 48000)

	if len(result) != len(samples) {
		t.Errorf("Expected %d samples, got %d", len(samples), len(result))
	}

	for i, s := range samples {
		if result[i] != s {
			t.Errorf("Sample %d: expected %d, got %d", i, s, result[i])
		}
	}
}

func TestResample_Downsample(t *testing.T) {
	// 48kHz -> 16kHz (3:1 ratio)
	samples := make([]int16, 4800) // 100ms at 48kHz
	for i := range samples {
		samples[i] = int16(i)
	}

	result := Resample(samples, 48000, 16000)

	expectedLen := 1600
	if len(result) != expectedLen {
		t.Errorf("Expected %d samples, got %d", expectedLen, len(result))
	}
}

func TestResample_Upsample(t *testing.T) {
	// 16kHz -> 48kHz (1:3 ratio)
	samples := make([]int16, 320) // 20ms at 16kHz
	for i := range samples {
		samples[i] = int16(i * 100)
	}

	result := Resample(samples, 16000, 48000)

	expectedLen := 960
	if len(result) != expectedLen {
		t.Errorf("Expected %d samples, got %d", expectedLen, len(result))
	}
}

func TestResample_Empty(t *testing.T) {
	result := Resample(nil, 48000, 16000)
	if len(result) != 0 {
		t.Errorf("Expected empty result for nil input")
	}

	result = Resample([]int16{}, 48000, 16000)
	if len(result) != 0 {
		t.Errorf("Expected empty result for empty input")
	}
}

func TestResampleFloat32_NoOp(t *testing.T) {
	samples := []float32{0.1, 0.2, 0.3}
	result := ResampleFloat32(samples, 16000, 16000)

	if len(result) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(result))
	}
	for i := range samples {
		if result[i] != samples[i] {
			t.Errorf("Sample %d: expected %v, got %v", i, samples[i], result[i])
		}
	}
}

func TestResampleFloat32_Downsample(t *testing.T) {
	samples := make([]float32, 4800)
	for i := range samples {
		samples[i] = float32(i) / 4800
	}

	result := ResampleFloat32(samples, 48000, 16000)

	if len(result) != 1600 {
		t.Errorf("Expected 1600 samples, got %d", len(result))
	}

	// Values should stay within the input range after interpolation
	for i, v := range result {
		if v < 0 || v > 1 {
			t.Errorf("Sample %d out of range: %v", i, v)
		}
	}
}

func TestBytesToSamples(t *testing.T) {
	data := []byte{0x02, 0x01, 0x04, 0x03}
	samples := BytesToSamples(data)

	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}

	if samples[0] != 0x0102 {
		t.Errorf("Sample 0: expected 0x0102, got 0x%04x", samples[0])
	}

	if samples[1] != 0x0304 {
		t.Errorf("Sample 1: expected 0x0304, got 0x%04x", samples[1])
	}
}

func TestSamplesToBytes(t *testing.T) {
	samples := []int16{0x0102, 0x0304}
	data := SamplesToBytes(samples)

	if len(data) != 4 {
		t.Fatalf("Expected 4 bytes, got %d", len(data))
	}

	expected := []byte{0x02, 0x01, 0x04, 0x03}
	for i, b := range expected {
		if data[i] != b {
			t.Errorf("Byte %d: expected 0x%02x, got 0x%02x", i, b, data[i])
		}
	}
}

func TestStereoToMono(t *testing.T) {
	stereo := []int16{100, 200, 300, 400}
	mono := StereoToMono(stereo)

	if len(mono) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(mono))
	}

	if mono[0] != 150 || mono[1] != 350 {
		t.Errorf("Expected [150 350], got %v", mono)
	}
}

func TestCalculateRMS_Silence(t *testing.T) {
	samples := make([]int16, 480)
	if rms := CalculateRMS(samples); rms != 0 {
		t.Errorf("Expected 0 for silence, got %v", rms)
	}
}

func TestCalculateRMS_FullScale(t *testing.T) {
	samples := make([]int16, 480)
	for i := range samples {
		samples[i] = 32767
	}

	rms := CalculateRMS(samples)
	if math.Abs(rms-1.0) > 1e-6 {
		t.Errorf("Expected ~1.0 for full scale, got %v", rms)
	}
}

func TestChunk_RoundTrip(t *testing.T) {
	orig := Chunk{
		Samples:    []int16{-32768, -1, 0, 1, 32767},
		SampleRate: 48000,
		Channels:   1,
	}

	var decoded Chunk
	decoded.FromBytes(orig.Bytes(), 48000, 1)

	if len(decoded.Samples) != len(orig.Samples) {
		t.Fatalf("Expected %d samples, got %d", len(orig.Samples), len(decoded.Samples))
	}
	for i := range orig.Samples {
		if decoded.Samples[i] != orig.Samples[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, orig.Samples[i], decoded.Samples[i])
		}
	}
}

func TestChunk_Duration(t *testing.T) {
	chunk := Chunk{
		Samples:    make([]int16, 4800),
		SampleRate: 48000,
		Channels:   1,
	}

	if d := chunk.Duration(); math.Abs(d-0.1) > 1e-9 {
		t.Errorf("Expected 0.1s, got %v", d)
	}

	empty := Chunk{}
	if d := empty.Duration(); d != 0 {
		t.Errorf("Expected 0 for empty chunk, got %v", d)
	}
}
