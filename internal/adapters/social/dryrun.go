package social

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/surrender/internal/domain/cancel"
	"github.com/okian/surrender/internal/domain/model"
	"github.com/okian/surrender/pkg/logger"
)

// Action is one call recorded by DryRun.
type Action struct {
	Op   string
	Feed model.Feed
	Text string
	Ref  string // parent, quoted or deleted post id
}

// DryRun logs every publication instead of sending it.
type DryRun struct {
	mu      sync.Mutex
	actions []Action
	tally   cancel.Tally
	logger  logger.Logger
}

// NewDryRun creates a dry-run publisher.
func NewDryRun(opts ...DryRunOption) *DryRun {
	d := &DryRun{logger: logger.GetOrDiscard().Named("dry-run")}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DryRun) record(ctx context.Context, a Action) model.Publication {
	d.mu.Lock()
	d.actions = append(d.actions, a)
	d.mu.Unlock()

	d.logger.Info(ctx, "would "+a.Op,
		logger.String("feed", string(a.Feed)),
		logger.String("ref", a.Ref),
		logger.String("text", a.Text))
	return model.Publication{ID: uuid.NewString(), Feed: a.Feed, Text: a.Text}
}

// Actions returns a copy of the recorded calls.
func (d *DryRun) Actions() []Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Action(nil), d.actions...)
}

// Post implements the publisher contract.
func (d *DryRun) Post(ctx context.Context, feed model.Feed, text string) (model.Publication, error) {
	return d.record(ctx, Action{Op: "post", Feed: feed, Text: text}), nil
}

// Reply implements the publisher contract.
func (d *DryRun) Reply(ctx context.Context, feed model.Feed, parent model.Publication, text string) (model.Publication, error) {
	return d.record(ctx, Action{Op: "reply", Feed: feed, Text: text, Ref: parent.ID}), nil
}

// PostPoll implements cancel.Publisher.
func (d *DryRun) PostPoll(ctx context.Context, feed model.Feed, replyTo model.Publication, text string, _ []string, _ time.Duration) (model.Publication, error) {
	return d.record(ctx, Action{Op: "poll", Feed: feed, Text: text, Ref: replyTo.ID}), nil
}

// Quote implements cancel.Publisher.
func (d *DryRun) Quote(ctx context.Context, feed model.Feed, text string, quoted model.Publication) (model.Publication, error) {
	return d.record(ctx, Action{Op: "quote", Feed: feed, Text: text, Ref: quoted.ID}), nil
}

// Delete implements cancel.Publisher.
func (d *DryRun) Delete(ctx context.Context, pub model.Publication) error {
	d.record(ctx, Action{Op: "delete", Feed: pub.Feed, Ref: pub.ID})
	return nil
}

// ReadPollTally returns the configured tally.
func (d *DryRun) ReadPollTally(_ context.Context, _ model.Publication) (cancel.Tally, error) {
	return d.tally, nil
}
