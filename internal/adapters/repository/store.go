// Package repository holds the bot's persisted state: the rank distributions
// and the published-play index.
package repository

import (
	"context"

	"github.com/okian/surrender/internal/domain/dedupe"
)

// Percentiles is the strict percentile rank of one value.
type Percentiles struct {
	Current    float64 // against the current season
	Historical float64 // against the baseline plus the current season
}

// RankStore ranks scores against the season and historical distributions.
type RankStore interface {
	// Rank returns the strict percentiles of score against the values held
	// before the call. When persist is true the score is then appended to
	// the current season and durably flushed before Rank returns.
	Rank(ctx context.Context, score float64, persist bool) (Percentiles, error)

	// Sizes returns the number of current-season and baseline values.
	Sizes() (current, historical int)
}

// PublishedStore tracks which plays were already posted, per game.
type PublishedStore interface {
	Has(ctx context.Context, gameID string, key dedupe.PlayKey) bool
	Add(ctx context.Context, gameID string, key dedupe.PlayKey) error
	// Refresh drops every entry when the backing file went stale.
	Refresh(ctx context.Context) error
}
