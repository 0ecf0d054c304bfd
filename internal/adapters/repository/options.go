package repository

import "time"

// Option applies a configuration option to the FileRankStore.
type Option func(*FileRankStore)

// withWriter swaps the durable writer; tests use it to inject flush failures.
func withWriter(w func(path string, v any) error) Option {
	return func(s *FileRankStore) {
		if w != nil {
			s.write = w
		}
	}
}

// IndexOption applies a configuration option to the PublishedIndex.
type IndexOption func(*PublishedIndex)

// WithFreshness sets the age after which the index file is treated as empty.
func WithFreshness(d time.Duration) IndexOption {
	return func(p *PublishedIndex) {
		if d > 0 {
			p.freshness = d
		}
	}
}

// WithIndexTolerance sets the clock window used to match published plays.
func WithIndexTolerance(seconds int) IndexOption {
	return func(p *PublishedIndex) {
		if seconds > 0 {
			p.tolerance = seconds
		}
	}
}

// WithIndexClock sets the time source used for the freshness check.
func WithIndexClock(now func() time.Time) IndexOption {
	return func(p *PublishedIndex) {
		if now != nil {
			p.now = now
		}
	}
}
