package loudness

import "errors"

// Configuration errors.
var (
	errSmoothingRange = errors.New("loudness: smoothing must be in [0,1)")
	errCeilingRange   = errors.New("loudness: reference ceiling must be positive")
)
