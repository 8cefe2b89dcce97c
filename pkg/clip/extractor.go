package clip

// Extractor cuts fixed-duration windows out of session audio.
type Extractor struct {
	cfg Config
}

// NewExtractor creates an Extractor with the given configuration.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{cfg: cfg}
}

// Extract copies a window of the configured clip duration centered on
// offsetMs out of the source buffer. Windows that would run past either
// edge are shifted to fit, never padded, so the result is always exactly
// one clip duration long. Returns ErrInsufficientAudio when the source is
// shorter than the clip duration.
func (e *Extractor) Extract(src *Buffer, offsetMs int64) (*Segment, error) {
	clipSamples := int(float64(src.SampleRate) * e.cfg.Duration.Seconds())
	total := src.NumSamples()

	if clipSamples <= 0 || total < clipSamples {
		return nil, ErrInsufficientAudio
	}

	center := int(offsetMs * int64(src.SampleRate) / 1000)
	start := center - clipSamples/2
	if start < 0 {
		start = 0
	}
	if start+clipSamples > total {
		start = total - clipSamples
	}

	seg := &Segment{
		Channels:   make([][]float32, len(src.Channels)),
		SampleRate: src.SampleRate,
	}
	for ch, data := range src.Channels {
		out := make([]float32, clipSamples)
		copy(out, data[start:start+clipSamples])
		seg.Channels[ch] = out
	}

	return seg, nil
}
