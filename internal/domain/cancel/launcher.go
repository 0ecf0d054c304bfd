package cancel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/surrender/internal/domain/model"
	"github.com/okian/surrender/pkg/logger"
	"github.com/okian/surrender/pkg/metrics"
)

// Starter begins a cancellation case for a notable publication and returns
// without waiting for it.
type Starter interface {
	Start(ctx context.Context, target model.Publication, text string) (string, error)
}

// Notifier receives operator messages about finished cases.
type Notifier interface {
	Cancellation(ctx context.Context, msg string)
}

// Launcher runs every case on its own goroutine in process. Restarting the
// process drops the in-flight cases.
type Launcher struct {
	wf       *Workflow
	notifier Notifier
	logger   logger.Logger
	onDone   func(*Case)
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewLauncher creates a local launcher driving wf.
func NewLauncher(wf *Workflow, notifier Notifier, opts ...LauncherOption) *Launcher {
	la := &Launcher{
		wf:       wf,
		notifier: notifier,
		logger:   logger.GetOrDiscard().Named("cancel"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(la)
	}
	return la
}

// Start implements Starter.
func (la *Launcher) Start(ctx context.Context, target model.Publication, text string) (string, error) {
	c := NewCase(target, text, la.now())
	metrics.AddOpenCancellations(1)
	la.wg.Add(1)
	go func() {
		defer la.wg.Done()
		defer metrics.AddOpenCancellations(-1)
		state := la.run(context.WithoutCancel(ctx), c)
		metrics.RecordCancellationTerminal(string(state))
		la.finish(ctx, c)
	}()
	la.logger.Info(ctx, "cancellation case opened",
		logger.String("case_id", c.ID),
		logger.String("target", target.ID))
	return c.ID, nil
}

// run drives c to a terminal state. A panic in a publisher step ends c in
// ERROR like any other fault.
func (la *Launcher) run(ctx context.Context, c *Case) (state State) {
	defer func() {
		if r := recover(); r != nil {
			c.Fail(fmt.Errorf("%w: %v", ErrCasePanic, r))
			state = c.State
		}
	}()
	return la.wf.Run(ctx, c)
}

func (la *Launcher) finish(ctx context.Context, c *Case) {
	ctx = context.WithoutCancel(ctx)
	switch c.State {
	case StateError:
		la.logger.Error(ctx, "cancellation case failed",
			logger.String("case_id", c.ID),
			logger.Error(c.Err))
		if la.notifier != nil {
			la.notifier.Cancellation(ctx, fmt.Sprintf("Cancellation of %s failed: %v", c.Target.ID, c.Err))
		}
	case StateRetracted:
		la.logger.Info(ctx, "notable post retracted",
			logger.String("case_id", c.ID),
			logger.Float64("yes", c.Tally.Yes))
		if la.notifier != nil {
			la.notifier.Cancellation(ctx, fmt.Sprintf("Punt %s was canceled with %.2f%% Yes", c.Target.ID, c.Tally.Yes))
		}
	default:
		la.logger.Info(ctx, "notable post kept",
			logger.String("case_id", c.ID),
			logger.Float64("yes", c.Tally.Yes))
	}
	if la.onDone != nil {
		la.onDone(c)
	}
}

// Wait blocks until every launched case is terminal.
func (la *Launcher) Wait() {
	la.wg.Wait()
}
