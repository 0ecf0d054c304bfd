// Package decision picks the publish tiers of a scored punt and composes its text.
package decision

import (
	"github.com/okian/surrender/internal/domain/model"
	"github.com/okian/surrender/internal/domain/scoring"
)

const (
	defaultNotablePercentile = 90
	defaultSinceYear         = 1999
)

// Rank is the strict percentile rank of one index.
type Rank struct {
	Current    float64
	Historical float64
}

// Input is a scored, non-duplicate punt.
type Input struct {
	Play   model.PlayEvent
	Drive  model.DriveContext // Previous holds the play before the punt
	Game   model.GameContext
	Result scoring.Result
	Rank   Rank

	// AsIfUnintentionalRank ranks Result.AsIfUnintentional; only read when
	// Result.DelayOfGame is set.
	AsIfUnintentionalRank Rank

	Season int
}

// Decision is the outcome for one punt.
type Decision struct {
	Feeds   []model.Feed
	Notable bool

	// Text is the main post; Reply, when set, is threaded under it on every feed.
	Text  string
	Reply string
}

// Engine decides publish tiers. It is pure.
type Engine struct {
	notablePercentile float64
	sinceYear         int
}

// NewEngine creates an engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		notablePercentile: defaultNotablePercentile,
		sinceYear:         defaultSinceYear,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide always targets the main feed, and the notable feed once the
// current-season percentile reaches the threshold.
func (e *Engine) Decide(in Input) Decision {
	d := Decision{
		Feeds: []model.Feed{model.FeedMain},
		Text:  e.composeMain(in),
	}
	if in.Rank.Current >= e.notablePercentile {
		d.Notable = true
		d.Feeds = append(d.Feeds, model.FeedNotable)
	}
	if in.Result.DelayOfGame {
		d.Reply = composeDelayOfGame(in)
	}
	return d
}
