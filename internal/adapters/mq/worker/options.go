package worker

import (
	"time"

	"github.com/okian/surrender/pkg/logger"
)

// Option tunes an InMemoryWorker. Pool applies the same options to every worker.
type Option func(*InMemoryWorker)

// WithName labels the worker in its log lines.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger replaces the process logger.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithSendTimeout bounds a single delivery to the backend.
func WithSendTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.sendTimeout = d
		}
	}
}
