package repository

import "errors"

// Sentinel kinds for state errors.
var (
	ErrInvalidScore  = errors.New("score cannot be ranked")
	ErrCorruptState  = errors.New("corrupt state file")
	ErrPersistFailed = errors.New("persist state failed")
)
