package model

import "errors"

// Sentinel errors for malformed upstream data.
var (
	ErrMalformedClock         = errors.New("malformed game clock")
	ErrMalformedFieldPosition = errors.New("malformed field position")
)
