package cancel

import "errors"

// Sentinel errors for the cancellation workflow.
var (
	ErrInvalidTransition = errors.New("invalid cancellation transition")
	ErrTallyUnavailable  = errors.New("poll tally unavailable")
	ErrCasePanic         = errors.New("cancellation case panicked")
)
