// Package service wires the bot: the polling scheduler, the per-game
// pipeline and the collaborators chosen from configuration.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/surrender/internal/adapters/espn"
	"github.com/okian/surrender/internal/adapters/http/api"
	"github.com/okian/surrender/internal/adapters/mq/queue"
	"github.com/okian/surrender/internal/adapters/mq/worker"
	"github.com/okian/surrender/internal/adapters/notify"
	"github.com/okian/surrender/internal/adapters/repository"
	"github.com/okian/surrender/internal/adapters/social"
	"github.com/okian/surrender/internal/adapters/temporal"
	"github.com/okian/surrender/internal/config"
	"github.com/okian/surrender/internal/domain/cancel"
	"github.com/okian/surrender/internal/domain/decision"
	"github.com/okian/surrender/internal/domain/dedupe"
	"github.com/okian/surrender/internal/domain/model"
	"github.com/okian/surrender/internal/domain/scoring"
	"github.com/okian/surrender/pkg/logger"
)

const (
	notifyWorkers     = 2
	notifySendTimeout = 10 * time.Second
)

// SocialPublisher is a publisher usable by both the pipeline and the
// cancellation workflow.
type SocialPublisher interface {
	cancel.Publisher
	Reply(ctx context.Context, feed model.Feed, parent model.Publication, text string) (model.Publication, error)
}

// Service owns every long-lived component of the bot.
type Service struct {
	mu sync.RWMutex

	cfg    *config.Config
	clock  Clock
	logger logger.Logger

	// Overridable collaborators; nil picks the configured one.
	pub    SocialPublisher
	source GameSource
	sender worker.Sender

	ranks      *repository.FileRankStore
	published  *repository.PublishedIndex
	resolver   dedupe.Resolver
	queue      *queue.InMemoryQueue
	pool       *worker.Pool
	dispatcher *notify.Dispatcher
	pipeline   *Pipeline
	scheduler  *Scheduler

	temporalClient interface{ Close() }
	temporalWorker interface{ Stop() }

	started   bool
	startedAt time.Time
}

// New constructs a Service from cfg.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:   cfg,
		clock: realClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the state files and starts the background workers.
func (s *Service) Start(ctx context.Context) error { //nolint:funlen // one place for the wiring
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.GetOrDiscard().Named("service")
	}
	cfg := s.cfg

	ranks, err := repository.OpenRankStore(ctx,
		s.path(cfg.HistoricalFile), s.path(cfg.CurrentFile))
	if err != nil {
		return fmt.Errorf("open rank store: %w", err)
	}
	published, err := repository.OpenPublishedIndex(ctx, s.path(cfg.PublishedFile),
		repository.WithFreshness(cfg.PublishedFreshness),
		repository.WithIndexTolerance(cfg.ClockToleranceSeconds),
		repository.WithIndexClock(s.clock.Now))
	if err != nil {
		return fmt.Errorf("open published index: %w", err)
	}
	s.ranks, s.published = ranks, published
	s.resolver = dedupe.NewInMemoryResolver(dedupe.WithTolerance(cfg.ClockToleranceSeconds))

	if err := s.startNotifications(ctx); err != nil {
		return err
	}
	if err := s.choosePublisher(ctx); err != nil {
		return err
	}
	if s.source == nil {
		s.source = espn.NewClient(
			espn.WithBaseURL(cfg.ESPNBaseURL),
			espn.WithRate(cfg.ESPNRatePerSecond),
			espn.WithMaxRetries(cfg.ESPNMaxRetries))
	}

	starter, err := s.startCancellation(ctx)
	if err != nil {
		return err
	}

	s.pipeline = NewPipeline(Deps{
		Scorer:    scoring.NewCalculator(),
		Resolver:  s.resolver,
		Ranks:     s.ranks,
		Published: s.published,
		Engine: decision.NewEngine(
			decision.WithNotablePercentile(cfg.NotablePercentile),
			decision.WithSinceYear(cfg.HistorySinceYear)),
		Publisher: s.pub,
		Starter:   starter,
		Notifier:  s.dispatcher,
		Season:    cfg.Season,
		Now:       s.clock.Now,
	})
	s.scheduler = NewScheduler(s.source, s.pipeline,
		WithClock(s.clock),
		WithWindow(cfg.PreGameWindow, cfg.PostGameWindow),
		WithIdleSleep(cfg.IdleSleep),
		WithPollInterval(cfg.PollInterval),
		WithRestartHour(cfg.RestartHour),
		WithBackoff(cfg.BackoffInitial, cfg.BackoffMax),
		WithFinalCheck(cfg.FinalCheckEnabled),
		WithNotifier(s.dispatcher),
		WithRefresher(s.published))

	s.started = true
	s.startedAt = s.clock.Now()
	current, historical := s.ranks.Sizes()
	s.logger.Info(ctx, "surrender index service started",
		logger.Bool("publishing", cfg.PublishingEnabled),
		logger.Bool("notifications", cfg.NotificationsEnabled),
		logger.Bool("cancel", cfg.CancelEnabled),
		logger.String("cancel_driver", cfg.CancelDriver),
		logger.Int("current_scores", current),
		logger.Int("historical_scores", historical))
	return nil
}

func (s *Service) startNotifications(ctx context.Context) error {
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.NotifyQueueSize))
	sender := s.sender
	if sender == nil {
		if s.cfg.SlackWebhookURL != "" {
			slack, err := notify.NewSlack(s.cfg.SlackWebhookURL)
			if err != nil {
				return fmt.Errorf("slack notifier: %w", err)
			}
			sender = slack
		} else {
			sender = notify.NewLog(s.logger.Named("operator"))
		}
	}
	s.pool = worker.NewPool(notifyWorkers, s.queue, sender,
		worker.WithLogger(s.logger.Named("notify-worker")),
		worker.WithSendTimeout(notifySendTimeout))
	// Workers outlive ctx so Stop can drain what is queued.
	s.pool.Start(context.WithoutCancel(ctx))
	s.dispatcher = notify.NewDispatcher(s.queue,
		notify.WithDisabled(!s.cfg.NotificationsEnabled),
		notify.WithClock(s.clock.Now))
	return nil
}

func (s *Service) choosePublisher(ctx context.Context) error {
	if s.pub != nil {
		return nil
	}
	if !s.cfg.PublishingEnabled {
		s.pub = social.NewDryRun(social.WithDryRunLogger(s.logger.Named("dry-run")))
		return nil
	}
	if err := s.cfg.RequireXCredentials(); err != nil {
		return err
	}
	s.pub = social.NewX(ctx, social.Credentials{
		BaseURL:      s.cfg.XAPIBaseURL,
		TokenURL:     s.cfg.XTokenURL,
		ClientID:     s.cfg.XClientID,
		ClientSecret: s.cfg.XClientSecret,
		Accounts: map[model.Feed]social.Account{
			model.FeedMain:    {AccessToken: s.cfg.MainAccessToken, RefreshToken: s.cfg.MainRefreshToken},
			model.FeedNotable: {AccessToken: s.cfg.NotableAccessToken, RefreshToken: s.cfg.NotableRefreshToken},
			model.FeedCancel:  {AccessToken: s.cfg.CancelAccessToken, RefreshToken: s.cfg.CancelRefreshToken},
		},
	})
	return nil
}

// startCancellation returns nil when cancellation is disabled.
func (s *Service) startCancellation(ctx context.Context) (cancel.Starter, error) {
	if !s.cfg.CancelEnabled {
		return nil, nil //nolint:nilnil // disabled
	}
	wf := cancel.NewWorkflow(s.pub,
		cancel.WithThreshold(s.cfg.CancelThreshold),
		cancel.WithPollDuration(s.cfg.CancelPollDuration),
		cancel.WithVerifyDelay(s.cfg.CancelVerifyDelay))

	if s.cfg.CancelDriver != config.CancelDriverTemporal {
		return cancel.NewLauncher(wf, s.dispatcher, cancel.WithNow(s.clock.Now)), nil
	}

	c, err := temporal.Dial(s.cfg.TemporalHost, s.cfg.TemporalNamespace)
	if err != nil {
		return nil, err
	}
	w := temporal.NewWorker(c, s.cfg.TemporalTaskQueue, &temporal.Activities{
		Publisher: s.pub,
		Workflow:  wf,
		Notifier:  s.dispatcher,
	})
	if err := w.Start(); err != nil {
		c.Close()
		return nil, fmt.Errorf("start temporal worker: %w", err)
	}
	s.temporalClient, s.temporalWorker = c, w
	s.logger.Info(ctx, "temporal cancellation driver ready",
		logger.String("host", s.cfg.TemporalHost),
		logger.String("task_queue", s.cfg.TemporalTaskQueue))
	return temporal.NewStarter(c, s.cfg.TemporalTaskQueue, wf), nil
}

// Run drives the scheduler until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.mu.RLock()
	sched := s.scheduler
	s.mu.RUnlock()
	if sched == nil {
		return ErrNotStarted
	}
	return sched.Run(ctx)
}

// Pipeline returns the per-game pipeline, nil before Start.
func (s *Service) Pipeline() *Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipeline
}

// Stop drains pending notifications and releases the cancellation driver.
// Local cancellation cases still waiting are abandoned.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping surrender index service...")

	if s.temporalWorker != nil {
		s.temporalWorker.Stop()
	}
	if s.temporalClient != nil {
		s.temporalClient.Close()
	}
	var err error
	if s.pool != nil {
		err = s.pool.Shutdown(ctx)
	}

	s.started = false
	s.logger.Info(ctx, "surrender index service stopped")
	return err
}

// Stats implements api.StatsProvider.
func (s *Service) Stats() api.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := api.Stats{StartedAt: s.startedAt, ActiveGames: []string{}}
	if s.scheduler == nil {
		return st
	}
	sched := s.scheduler.Stats()
	st.LastCycleAt = sched.LastCycleAt
	if sched.ActiveGames != nil {
		st.ActiveGames = sched.ActiveGames
	}
	st.CompletedGames = sched.CompletedGames
	st.Backoff = sched.Backoff.String()
	st.ConsecutiveFails = sched.ConsecutiveFails
	st.CurrentScores, st.HistoricalScores = s.ranks.Sizes()
	st.SeenPlays = s.resolver.Size()
	return st
}

// path resolves name against the data directory. Empty stays empty.
func (s *Service) path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.cfg.DataDir, name)
}
