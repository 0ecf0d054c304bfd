package social

import (
	"github.com/okian/surrender/internal/domain/cancel"
	"github.com/okian/surrender/pkg/logger"
)

// Option applies a configuration option to the X publisher.
type Option func(*X)

// WithLogger sets the publisher logger.
func WithLogger(l logger.Logger) Option {
	return func(x *X) {
		if l != nil {
			x.logger = l
		}
	}
}

// DryRunOption applies a configuration option to the DryRun publisher.
type DryRunOption func(*DryRun)

// WithTally sets the tally every poll reads back.
func WithTally(t cancel.Tally) DryRunOption {
	return func(d *DryRun) {
		d.tally = t
	}
}

// WithDryRunLogger sets the dry-run logger.
func WithDryRunLogger(l logger.Logger) DryRunOption {
	return func(d *DryRun) {
		if l != nil {
			d.logger = l
		}
	}
}
