package social

import "errors"

// Sentinel errors for the publish collaborator.
var (
	ErrUnknownFeed = errors.New("no account configured for feed")
	ErrAPIStatus   = errors.New("unexpected api status")
	ErrNoPoll      = errors.New("post carries no poll")
)
