package laugh

import "errors"

// Configuration errors.
var (
	errThresholdRange = errors.New("laugh: threshold must be in [0,100]")
	errSustainRange   = errors.New("laugh: min_sustain must be positive")
	errCooldownRange  = errors.New("laugh: cooldown must be positive")
)
