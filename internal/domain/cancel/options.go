package cancel

import (
	"time"

	"github.com/okian/surrender/pkg/logger"
)

// Option applies a configuration option to the Workflow.
type Option func(*Workflow)

// WithThreshold sets the Yes percentage that confirms a cancellation.
func WithThreshold(pct float64) Option {
	return func(w *Workflow) {
		if pct >= 0 && pct <= 100 {
			w.threshold = pct
		}
	}
}

// WithPollDuration sets how long the confirmation poll stays open.
func WithPollDuration(d time.Duration) Option {
	return func(w *Workflow) {
		if d > 0 {
			w.pollDuration = d
		}
	}
}

// WithVerifyDelay sets the wait before reading the tally.
func WithVerifyDelay(d time.Duration) Option {
	return func(w *Workflow) {
		if d >= 0 {
			w.verifyDelay = d
		}
	}
}

// WithRetractPause sets the wait between the re-post and the quote.
func WithRetractPause(d time.Duration) Option {
	return func(w *Workflow) {
		if d >= 0 {
			w.retractPause = d
		}
	}
}

// WithSleep replaces the blocking wait; tests pass a recorder.
func WithSleep(sleep func(time.Duration)) Option {
	return func(w *Workflow) {
		if sleep != nil {
			w.sleep = sleep
		}
	}
}

// LauncherOption applies a configuration option to the Launcher.
type LauncherOption func(*Launcher)

// WithLauncherLogger sets the launcher logger.
func WithLauncherLogger(l logger.Logger) LauncherOption {
	return func(la *Launcher) {
		if l != nil {
			la.logger = l
		}
	}
}

// WithOnDone registers a callback receiving every case once terminal.
func WithOnDone(fn func(*Case)) LauncherOption {
	return func(la *Launcher) {
		la.onDone = fn
	}
}

// WithNow sets the time source stamped on new cases.
func WithNow(now func() time.Time) LauncherOption {
	return func(la *Launcher) {
		if now != nil {
			la.now = now
		}
	}
}
