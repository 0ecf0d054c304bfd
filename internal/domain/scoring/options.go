package scoring

import "github.com/okian/surrender/pkg/logger"

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithLogger sets the logger that receives per-sub-score debug lines.
func WithLogger(l logger.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.logger = l
		}
	}
}
