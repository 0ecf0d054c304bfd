package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/surrender/internal/adapters/repository"
	"github.com/okian/surrender/internal/domain/cancel"
	"github.com/okian/surrender/internal/domain/decision"
	"github.com/okian/surrender/internal/domain/dedupe"
	"github.com/okian/surrender/internal/domain/model"
	"github.com/okian/surrender/internal/domain/scoring"
	"github.com/okian/surrender/pkg/logger"
	"github.com/okian/surrender/pkg/metrics"
)

// Publisher is the part of the publish collaborator the pipeline uses.
type Publisher interface {
	Post(ctx context.Context, feed model.Feed, text string) (model.Publication, error)
	Reply(ctx context.Context, feed model.Feed, parent model.Publication, text string) (model.Publication, error)
}

// Notifier delivers best-effort operator messages.
type Notifier interface {
	Heartbeat(ctx context.Context)
	Fault(ctx context.Context, what string, err error)
}

// Deps are the collaborators of a Pipeline. Starter and Notifier may be nil.
type Deps struct {
	Scorer    scoring.Scorer
	Resolver  dedupe.Resolver
	Ranks     repository.RankStore
	Published repository.PublishedStore
	Engine    *decision.Engine
	Publisher Publisher
	Starter   cancel.Starter
	Notifier  Notifier

	// Season labels publication text; defaults to the calendar year.
	Season func(time.Time) int
	Now    func() time.Time
	Logger logger.Logger
}

// Pipeline turns the punts of one game snapshot into publications, in
// order: identity, dedup, score, rank, publish.
type Pipeline struct {
	Deps

	mu      sync.Mutex
	faulted map[string]struct{}
}

// NewPipeline creates a pipeline over d.
func NewPipeline(d Deps) *Pipeline { //nolint:gocritic // hugeParam: built once
	if d.Season == nil {
		d.Season = func(t time.Time) int { return t.Year() }
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = logger.GetOrDiscard().Named("pipeline")
	}
	return &Pipeline{Deps: d, faulted: make(map[string]struct{})}
}

// Process handles every punt of game and returns how many were published.
// Per-event faults are logged and reported; they never stop the game.
func (p *Pipeline) Process(ctx context.Context, game model.GameContext) int { //nolint:gocritic // hugeParam
	published := 0
	for _, d := range game.Drives {
		play, drive, ok := d.Punt()
		if !ok {
			continue
		}
		done, err := p.handle(ctx, game, play, drive)
		if err != nil {
			p.fault(ctx, game, play, err)
			continue
		}
		if done {
			published++
		}
	}
	return published
}

func (p *Pipeline) handle(ctx context.Context, game model.GameContext, play model.PlayEvent, drive model.DriveContext) (bool, error) { //nolint:gocritic // hugeParam
	key, err := dedupe.KeyOf(play, drive)
	if err != nil {
		return false, failAt(stageIdentity, err)
	}
	if p.Published.Has(ctx, game.ID, key) {
		metrics.RecordAlreadyPublished()
		return false, nil
	}
	if p.Resolver.IsDuplicate(ctx, game.ID, key) {
		metrics.RecordDuplicate()
		return false, nil
	}

	res, err := p.Scorer.Score(ctx, play, drive, game)
	if err != nil {
		return false, failAt(stageScore, err)
	}

	pct, err := p.Ranks.Rank(ctx, res.Index, true)
	if err != nil {
		// Nothing was persisted, so the next poll may retry the play.
		p.Resolver.Unrecord(ctx, game.ID, key)
		return false, failAt(stageRank, err)
	}
	metrics.RecordPuntScored(res.Index)

	in := decision.Input{
		Play:   play,
		Drive:  drive,
		Game:   game,
		Result: res,
		Rank:   decision.Rank{Current: pct.Current, Historical: pct.Historical},
		Season: p.Season(p.Now()),
	}
	if res.DelayOfGame {
		alt, err := p.Ranks.Rank(ctx, res.AsIfUnintentional.Index, false)
		if err != nil {
			return false, failAt(stageRank, err)
		}
		in.AsIfUnintentionalRank = decision.Rank{Current: alt.Current, Historical: alt.Historical}
	}

	d := p.Engine.Decide(in)
	p.Logger.Info(ctx, "punt scored",
		logger.String("game_id", game.ID),
		logger.String("play_id", play.ID),
		logger.Float64("index", res.Index),
		logger.Float64("current_percentile", pct.Current),
		logger.Float64("historical_percentile", pct.Historical),
		logger.Bool("notable", d.Notable))

	if err := p.publish(ctx, game.ID, key, d); err != nil {
		return false, err
	}
	return true, nil
}

// publish posts to every feed of d. The play is recorded as published as
// soon as the main post exists.
func (p *Pipeline) publish(ctx context.Context, gameID string, key dedupe.PlayKey, d decision.Decision) error { //nolint:gocritic // hugeParam
	for _, feed := range d.Feeds {
		pub, err := p.Publisher.Post(ctx, feed, d.Text)
		if err != nil {
			return failAt(stagePublish, err)
		}
		if feed == model.FeedMain {
			if err := p.Published.Add(ctx, gameID, key); err != nil {
				p.report(ctx, "published index", failAt(stageRecord, err))
			}
		}
		if d.Reply != "" {
			if _, err := p.Publisher.Reply(ctx, feed, pub, d.Reply); err != nil {
				p.report(ctx, "delay of game reply", failAt(stagePublish, err))
			}
		}
		if feed == model.FeedNotable && p.Starter != nil {
			if _, err := p.Starter.Start(ctx, pub, d.Text); err != nil {
				p.report(ctx, "cancellation start", failAt(stageCancel, err))
			}
		}
	}
	return nil
}

func (p *Pipeline) fault(ctx context.Context, game model.GameContext, play model.PlayEvent, err error) { //nolint:gocritic // hugeParam
	p.Logger.Error(ctx, "punt dropped",
		logger.String("game_id", game.ID),
		logger.String("play_id", play.ID),
		logger.Error(err))

	id := game.ID + "/" + play.ID
	p.mu.Lock()
	_, seen := p.faulted[id]
	p.faulted[id] = struct{}{}
	p.mu.Unlock()

	p.count(err)
	if !seen && p.Notifier != nil {
		p.Notifier.Fault(ctx, "play "+play.ID+" of game "+game.ID, err)
	}
}

// report handles a fault that happens after the play is already public.
func (p *Pipeline) report(ctx context.Context, what string, err error) {
	p.Logger.Error(ctx, what+" failed", logger.Error(err))
	p.count(err)
	if p.Notifier != nil {
		p.Notifier.Fault(ctx, what, err)
	}
}

func (p *Pipeline) count(err error) {
	stage := "unknown"
	var ee *eventError
	if errors.As(err, &ee) {
		stage = ee.stage
	}
	metrics.RecordEventFailure(stage)
}
