package encode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hahalabs/laughtrack/pkg/audioio"
)

// wavEncoder accumulates PCM16 samples and wraps them in a RIFF header.
type wavEncoder struct {
	sampleRate int
	channels   int
	samples    []int16
}

func newWAV(sampleRate, channels int) (Encoder, error) {
	return &wavEncoder{
		sampleRate: sampleRate,
		channels:   channels,
	}, nil
}

func (w *wavEncoder) Write(chunk audioio.Chunk) error {
	w.samples = append(w.samples, chunk.Samples...)
	return nil
}

func (w *wavEncoder) Finalize() (Artifact, error) {
	if len(w.samples) == 0 {
		return Artifact{}, ErrNoData
	}
	return Artifact{
		Data: WAVBytes(w.samples, w.sampleRate, w.channels),
		MIME: w.MIME(),
	}, nil
}

func (w *wavEncoder) MIME() string {
	return "audio/wav"
}

// WAVBytes wraps interleaved PCM16 samples in a RIFF/WAVE container.
func WAVBytes(samples []int16, sampleRate, channels int) []byte {
	dataLen := len(samples) * 2
	var buf bytes.Buffer
	buf.Grow(44 + dataLen)

	// RIFF chunk
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	// fmt chunk: PCM16
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))            // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))                    // bits per sample

	// data chunk
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, s)
	}

	return buf.Bytes()
}

// WAVFromFloat32 converts per-channel float32 samples in [-1,1] to a
// PCM16 WAV container. Used to encode a selected clip for upload.
func WAVFromFloat32(channels [][]float32, sampleRate int) []byte {
	if len(channels) == 0 {
		return WAVBytes(nil, sampleRate, 1)
	}

	n := len(channels[0])
	interleaved := make([]int16, n*len(channels))
	for i := 0; i < n; i++ {
		for ch := range channels {
			v := channels[ch][i]
			if v > 1 {
				v = 1
			}
			if v < -1 {
				v = -1
			}
			interleaved[i*len(channels)+ch] = int16(v * 32767)
		}
	}

	return WAVBytes(interleaved, sampleRate, len(channels))
}

// ParseWAV decodes a PCM16 RIFF/WAVE container into interleaved samples.
// Only the linear-PCM 16-bit format written by this package is accepted.
func ParseWAV(data []byte) (samples []int16, sampleRate, channels int, err error) {
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, errors.New("encode: not a RIFF/WAVE file")
	}

	var haveFmt bool
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			return nil, 0, 0, errors.New("encode: truncated chunk")
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, errors.New("encode: short fmt chunk")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if format != 1 || bits != 16 {
				return nil, 0, 0, fmt.Errorf("encode: unsupported format %d/%d-bit, want PCM16", format, bits)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, 0, 0, errors.New("encode: data chunk before fmt")
			}
			samples = make([]int16, size/2)
			for i := range samples {
				samples[i] = int16(binary.LittleEndian.Uint16(data[body+i*2 : body+i*2+2]))
			}
			return samples, sampleRate, channels, nil
		}

		// Chunks are word-aligned.
		pos = body + size + (size & 1)
	}

	return nil, 0, 0, errors.New("encode: no data chunk")
}
