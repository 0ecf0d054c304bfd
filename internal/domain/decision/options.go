package decision

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithNotablePercentile sets the current-season percentile at which a punt
// is also posted to the notable feed.
func WithNotablePercentile(p float64) Option {
	return func(e *Engine) {
		if p >= 0 && p <= 100 {
			e.notablePercentile = p
		}
	}
}

// WithSinceYear sets the first season of the historical baseline, as quoted in the text.
func WithSinceYear(year int) Option {
	return func(e *Engine) {
		if year > 0 {
			e.sinceYear = year
		}
	}
}
