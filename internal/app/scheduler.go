package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/okian/surrender/internal/domain/model"
	"github.com/okian/surrender/pkg/logger"
	"github.com/okian/surrender/pkg/metrics"
)

// Scheduler defaults.
const (
	defaultPreGame      = 15 * time.Minute
	defaultPostGame     = 6 * time.Hour
	defaultIdleSleep    = 14 * time.Minute
	defaultPollInterval = 30 * time.Second
	defaultRestartHour  = 5

	defaultBackoffInitial = time.Minute
	defaultBackoffMax     = 12 * time.Hour

	// finalSightings is the number of final snapshots a game gets before it
	// is completed, so plays appended after the final flip are still seen.
	finalSightings = 2
)

// GameSource is the schedule and game-state collaborator.
type GameSource interface {
	Schedule(ctx context.Context) ([]model.GameSummary, error)
	GameState(ctx context.Context, gameID string) (model.GameContext, error)
}

// Processor consumes one game snapshot per poll.
type Processor interface {
	Process(ctx context.Context, game model.GameContext) int
}

// Refresher resets stale persisted state at the start of a day.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Clock abstracts wall time so the daily cycle can be driven in tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() then.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SchedulerStats is a point-in-time view of the loop.
type SchedulerStats struct {
	LastCycleAt      time.Time
	ActiveGames      []string
	CompletedGames   int
	Backoff          time.Duration
	ConsecutiveFails int
}

// Scheduler drives one sequential polling loop restarted every day at a
// fixed local hour.
type Scheduler struct {
	source    GameSource
	proc      Processor
	refresher Refresher
	notifier  Notifier
	clock     Clock
	logger    logger.Logger

	preGame      time.Duration
	postGame     time.Duration
	idleSleep    time.Duration
	pollInterval time.Duration
	restartHour  int
	finalCheck   bool

	backoffInitial time.Duration
	backoffMax     time.Duration
	backoff        *backoff.ExponentialBackOff

	mu        sync.Mutex
	finals    map[string]int
	completed map[string]struct{}
	active    []string
	lastCycle time.Time
	fails     int
	current   time.Duration
}

// NewScheduler creates a scheduler feeding proc from source.
func NewScheduler(source GameSource, proc Processor, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		source:         source,
		proc:           proc,
		clock:          realClock{},
		logger:         logger.GetOrDiscard().Named("scheduler"),
		preGame:        defaultPreGame,
		postGame:       defaultPostGame,
		idleSleep:      defaultIdleSleep,
		pollInterval:   defaultPollInterval,
		restartHour:    defaultRestartHour,
		finalCheck:     true,
		backoffInitial: defaultBackoffInitial,
		backoffMax:     defaultBackoffMax,
		finals:         make(map[string]int),
		completed:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.backoffInitial
	b.MaxInterval = s.backoffMax
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	s.backoff = b
	return s
}

// Run repeats daily cycles until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := s.RunDay(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		s.logger.Info(ctx, "daily cycle finished, restarting")
	}
}

// RunDay runs one cycle from now until the next restart hour. It only
// returns an error when ctx is done.
func (s *Scheduler) RunDay(ctx context.Context) error {
	start := s.clock.Now()
	stop := NextRestart(start, s.restartHour)
	s.resetDay()
	s.logger.Info(ctx, "daily cycle started", logger.Time("until", stop))
	if s.notifier != nil {
		s.notifier.Heartbeat(ctx)
	}

	var (
		games      []model.GameSummary
		discovered bool
	)
	for s.clock.Now().Before(stop) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !discovered {
			g, err := s.discover(ctx)
			if err != nil {
				if err := s.fail(ctx, err, stop); err != nil {
					return err
				}
				continue
			}
			games, discovered = g, true
		}

		if err := s.guard(ctx, games, stop); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err := s.fail(ctx, err, stop); err != nil {
				return err
			}
			continue
		}
		s.succeed()
	}
	return nil
}

// NextRestart returns the first time after now at hour:00 local time.
func NextRestart(now time.Time, hour int) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func (s *Scheduler) discover(ctx context.Context) ([]model.GameSummary, error) {
	if s.refresher != nil {
		if err := s.refresher.Refresh(ctx); err != nil {
			return nil, fmt.Errorf("refresh published index: %w", err)
		}
	}
	games, err := s.source.Schedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	s.logger.Info(ctx, "schedule loaded", logger.Int("games", len(games)))
	return games, nil
}

// guard runs one cycle, turning a panic into an error.
func (s *Scheduler) guard(ctx context.Context, games []model.GameSummary, stop time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCyclePanic, r)
		}
	}()
	return s.cycle(ctx, games, stop)
}

func (s *Scheduler) cycle(ctx context.Context, games []model.GameSummary, stop time.Time) error {
	started := s.clock.Now()
	active := s.activeGames(started, games)
	s.setActive(active)
	if len(active) == 0 {
		s.logger.Debug(ctx, "no active games", logger.Duration("sleep", s.idleSleep))
		return s.sleepUntil(ctx, s.idleSleep, stop)
	}

	for _, g := range active {
		state, err := s.source.GameState(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("game %s: %w", g.ID, err)
		}
		s.proc.Process(ctx, state)
		if state.Final {
			s.sawFinal(ctx, g.ID)
		}
	}

	elapsed := s.clock.Now().Sub(started)
	metrics.RecordPollCycle(elapsed)
	return s.sleepUntil(ctx, s.pollInterval-elapsed, stop)
}

// activeGames keeps the games whose kickoff is within the polling window
// around now and that are not completed.
func (s *Scheduler) activeGames(now time.Time, games []model.GameSummary) []model.GameSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.GameSummary
	for _, g := range games {
		if _, done := s.completed[g.ID]; done {
			continue
		}
		if now.After(g.Kickoff.Add(-s.preGame)) && now.Before(g.Kickoff.Add(s.postGame)) {
			out = append(out, g)
		}
	}
	return out
}

func (s *Scheduler) sawFinal(ctx context.Context, gameID string) {
	if !s.finalCheck {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finals[gameID]++
	if s.finals[gameID] < finalSightings {
		return
	}
	if _, done := s.completed[gameID]; done {
		return
	}
	s.completed[gameID] = struct{}{}
	metrics.RecordGameCompleted()
	s.logger.Info(ctx, "game completed", logger.String("game_id", gameID))
}

func (s *Scheduler) fail(ctx context.Context, err error, stop time.Time) error {
	d := s.backoff.NextBackOff()
	s.mu.Lock()
	s.fails++
	s.current = d
	fails := s.fails
	s.mu.Unlock()

	metrics.RecordCycleFailure()
	metrics.UpdateBackoff(d)
	s.logger.Error(ctx, "polling cycle failed",
		logger.Int("consecutive_failures", fails),
		logger.Duration("backoff", d),
		logger.Error(err))
	if s.notifier != nil {
		s.notifier.Fault(ctx, "polling cycle", err)
	}
	return s.sleepUntil(ctx, d, stop)
}

func (s *Scheduler) succeed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCycle = s.clock.Now()
	if s.fails == 0 {
		return
	}
	s.fails = 0
	s.current = 0
	s.backoff.Reset()
	metrics.UpdateBackoff(0)
}

// sleepUntil sleeps for d, never past stop.
func (s *Scheduler) sleepUntil(ctx context.Context, d time.Duration, stop time.Time) error {
	if left := stop.Sub(s.clock.Now()); d > left {
		d = left
	}
	if d <= 0 {
		return ctx.Err()
	}
	return s.clock.Sleep(ctx, d)
}

func (s *Scheduler) resetDay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finals = make(map[string]int)
	s.completed = make(map[string]struct{})
	s.active = nil
}

func (s *Scheduler) setActive(games []model.GameSummary) {
	ids := make([]string, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.ID)
	}
	sort.Strings(ids)
	s.mu.Lock()
	s.active = ids
	s.mu.Unlock()
	metrics.UpdateActiveGames(len(ids))
}

// Stats returns a snapshot of the loop state.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerStats{
		LastCycleAt:      s.lastCycle,
		ActiveGames:      append([]string(nil), s.active...),
		CompletedGames:   len(s.completed),
		Backoff:          s.current,
		ConsecutiveFails: s.fails,
	}
}
