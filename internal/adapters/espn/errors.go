package espn

import "errors"

// Sentinel errors for the ESPN client.
var (
	ErrUpstreamStatus    = errors.New("unexpected upstream status")
	ErrMalformedResponse = errors.New("malformed upstream response")
)
