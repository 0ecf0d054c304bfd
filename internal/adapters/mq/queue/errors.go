package queue

import "errors"

var (
	// ErrClosed is returned by Enqueue after Close.
	ErrClosed = errors.New("notification queue closed")
	// ErrFull is returned when the buffer is at capacity; the caller drops the notification.
	ErrFull = errors.New("notification queue full")
)
