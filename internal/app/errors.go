package service

import (
	"errors"
	"fmt"
)

var (
	// ErrCyclePanic wraps a panic recovered from a polling cycle.
	ErrCyclePanic = errors.New("polling cycle panicked")
	// ErrNotStarted is returned by Run before Start succeeded.
	ErrNotStarted = errors.New("service not started")
)

// Pipeline stages, used as metric labels.
const (
	stageIdentity = "identity"
	stageScore    = "score"
	stageRank     = "rank"
	stagePublish  = "publish"
	stageRecord   = "record"
	stageCancel   = "cancel"
)

// eventError is a per-event fault tagged with the stage that failed.
type eventError struct {
	stage string
	err   error
}

func (e *eventError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }

func (e *eventError) Unwrap() error { return e.err }

func failAt(stage string, err error) error {
	return &eventError{stage: stage, err: err}
}
