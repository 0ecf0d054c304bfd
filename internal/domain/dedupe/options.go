package dedupe

// Option applies a configuration option to the in-memory resolver.
type Option func(*inMemoryResolver)

// WithTolerance sets the clock window in seconds; two plays of the same team
// and period match when their clocks differ by strictly less than it.
func WithTolerance(seconds int) Option {
	return func(r *inMemoryResolver) {
		if seconds > 0 {
			r.tolerance = seconds
		}
	}
}

// WithMaxGames bounds how many games are tracked.
// If maxGames > 0: the game seen first is evicted when the bound is hit.
// If maxGames <= 0: unbounded.
func WithMaxGames(maxGames int) Option {
	return func(r *inMemoryResolver) {
		r.maxGames = maxGames
	}
}
