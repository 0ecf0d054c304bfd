package notify

import (
	"net/http"
	"time"

	"github.com/okian/surrender/pkg/logger"
)

// SlackOption applies a configuration option to the Slack sender.
type SlackOption func(*Slack)

// WithHTTPClient sets the client used for webhook calls.
func WithHTTPClient(c *http.Client) SlackOption {
	return func(s *Slack) {
		if c != nil {
			s.client = c
		}
	}
}

// DispatcherOption applies a configuration option to the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDisabled turns every Dispatcher method into a logged no-op.
func WithDisabled(disabled bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.disabled = disabled
	}
}

// WithDispatcherLogger sets the dispatcher logger.
func WithDispatcherLogger(l logger.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithClock sets the time source stamped on messages.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}
