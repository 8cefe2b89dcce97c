package clip

import "math"

// Normalizer scales clip segments toward a target loudness ceiling.
type Normalizer struct {
	cfg Config
}

// NewNormalizer creates a Normalizer with the given configuration.
func NewNormalizer(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Normalize peak-normalizes the segment in place and returns it.
// The gain is target/peak capped at 1.0, so audio is only ever attenuated
// toward the ceiling, never amplified into clipping. A silent segment
// (peak 0) is returned unchanged.
func (n *Normalizer) Normalize(seg *Segment) *Segment {
	peak := seg.Peak()
	if peak == 0 {
		return seg
	}

	target := math.Pow(10, n.cfg.TargetDb/20)
	gain := float32(target) / peak
	if gain > 1 {
		gain = 1
	}

	for _, ch := range seg.Channels {
		for i := range ch {
			ch[i] *= gain
		}
	}

	return seg
}
