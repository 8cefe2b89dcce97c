package encode

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/hahalabs/laughtrack/pkg/audioio"
)

// opusFrameMs is the frame size fed to the codec. 20ms is the opus
// default and keeps encode latency well under the capture cadence.
const opusFrameMs = 20

// opusEncoder compresses PCM16 chunks with libopus. Packets are stored
// as a length-prefixed stream (uint16 big-endian length per packet).
type opusEncoder struct {
	enc        *opus.Encoder
	sampleRate int
	channels   int
	frameSize  int // samples per channel per frame
	pending    []int16
	out        bytes.Buffer
	packets    int
}

func newOpus(sampleRate, channels int) (Encoder, error) {
	// libopus only accepts these rates; negotiation falls through to
	// wav for anything else.
	switch sampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return nil, fmt.Errorf("encode: opus does not support %d Hz", sampleRate)
	}
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("encode: opus does not support %d channels", channels)
	}

	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("encode: create opus encoder: %w", err)
	}

	return &opusEncoder{
		enc:        enc,
		sampleRate: sampleRate,
		channels:   channels,
		frameSize:  sampleRate * opusFrameMs / 1000,
	}, nil
}

func (o *opusEncoder) Write(chunk audioio.Chunk) error {
	o.pending = append(o.pending, chunk.Samples...)

	frameLen := o.frameSize * o.channels
	for len(o.pending) >= frameLen {
		if err := o.encodeFrame(o.pending[:frameLen]); err != nil {
			return err
		}
		o.pending = o.pending[frameLen:]
	}
	return nil
}

func (o *opusEncoder) encodeFrame(pcm []int16) error {
	buf := make([]byte, 4000)
	n, err := o.enc.Encode(pcm, buf)
	if err != nil {
		return fmt.Errorf("encode: opus frame: %w", err)
	}

	var size [2]byte
	binary.BigEndian.PutUint16(size[:], uint16(n))
	o.out.Write(size[:])
	o.out.Write(buf[:n])
	o.packets++
	return nil
}

func (o *opusEncoder) Finalize() (Artifact, error) {
	// Flush the tail by zero-padding up to one frame.
	if len(o.pending) > 0 {
		frameLen := o.frameSize * o.channels
		tail := make([]int16, frameLen)
		copy(tail, o.pending)
		if err := o.encodeFrame(tail); err != nil {
			return Artifact{}, err
		}
		o.pending = nil
	}

	if o.packets == 0 {
		return Artifact{}, ErrNoData
	}

	return Artifact{
		Data: o.out.Bytes(),
		MIME: o.MIME(),
	}, nil
}

func (o *opusEncoder) MIME() string {
	return "audio/opus"
}
