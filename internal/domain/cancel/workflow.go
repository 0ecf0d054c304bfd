package cancel

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/surrender/internal/domain/model"
)

// Defaults of the reference workflow.
const (
	DefaultThreshold    = 66.67
	DefaultPollDuration = 60 * time.Minute
	DefaultVerifyDelay  = 61 * time.Minute
	DefaultRetractPause = 10 * time.Second

	Question     = "Should this punt's Surrender Index be canceled?"
	CanceledText = "CANCELED"
)

// PollOptions are the two choices of the confirmation poll, Yes first.
var PollOptions = []string{"Yes", "No"} //nolint:gochecknoglobals // poll layout

// Publisher is the publish collaborator the workflow drives.
type Publisher interface {
	Post(ctx context.Context, feed model.Feed, text string) (model.Publication, error)
	PostPoll(ctx context.Context, feed model.Feed, replyTo model.Publication, text string, options []string, duration time.Duration) (model.Publication, error)
	Quote(ctx context.Context, feed model.Feed, text string, quoted model.Publication) (model.Publication, error)
	Delete(ctx context.Context, pub model.Publication) error
	// ReadPollTally wraps ErrTallyUnavailable when the poll cannot be read.
	ReadPollTally(ctx context.Context, poll model.Publication) (Tally, error)
}

// Confirms reports whether t meets the super-majority threshold. The
// boundary is inclusive.
func Confirms(t Tally, threshold float64) bool {
	return t.Yes >= threshold
}

// Workflow holds the steps of a case. Each step is a single transition so
// drivers can run them with their own timers.
type Workflow struct {
	pub          Publisher
	threshold    float64
	pollDuration time.Duration
	verifyDelay  time.Duration
	retractPause time.Duration
	sleep        func(time.Duration)
}

// NewWorkflow creates a workflow over pub with configuration options.
func NewWorkflow(pub Publisher, opts ...Option) *Workflow {
	w := &Workflow{
		pub:          pub,
		threshold:    DefaultThreshold,
		pollDuration: DefaultPollDuration,
		verifyDelay:  DefaultVerifyDelay,
		retractPause: DefaultRetractPause,
		sleep:        time.Sleep,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Threshold is the Yes percentage that confirms a cancellation.
func (w *Workflow) Threshold() float64 { return w.threshold }

// VerifyDelay is the wait between opening the poll and reading it.
func (w *Workflow) VerifyDelay() time.Duration { return w.verifyDelay }

// RetractPause is the wait between the cancel re-post and the quote.
func (w *Workflow) RetractPause() time.Duration { return w.retractPause }

// Open posts the confirmation poll under the target: POSTED -> AWAITING_VERIFICATION.
func (w *Workflow) Open(ctx context.Context, c *Case) error {
	if c.State != StatePosted {
		return fmt.Errorf("%w: open from %s", ErrInvalidTransition, c.State)
	}
	poll, err := w.pub.PostPoll(ctx, model.FeedCancel, c.Target, Question, PollOptions, w.pollDuration)
	if err != nil {
		return fmt.Errorf("post poll for %s: %w", c.Target.ID, err)
	}
	c.Poll = poll
	return c.To(StateAwaitingVerification)
}

// Verify reads the tally: AWAITING_VERIFICATION -> CONFIRMED or KEPT.
func (w *Workflow) Verify(ctx context.Context, c *Case) error {
	if c.State != StateAwaitingVerification {
		return fmt.Errorf("%w: verify from %s", ErrInvalidTransition, c.State)
	}
	t, err := w.pub.ReadPollTally(ctx, c.Poll)
	if err != nil {
		return fmt.Errorf("read tally of %s: %w", c.Poll.ID, err)
	}
	return w.Decide(c, t)
}

// Decide applies a tally read by any driver.
func (w *Workflow) Decide(c *Case, t Tally) error {
	c.Tally = t
	if Confirms(t, w.threshold) {
		return c.To(StateConfirmed)
	}
	return c.To(StateKept)
}

// Retract deletes the target, re-posts its text from the cancel account and
// quotes that re-post as canceled from the notable account: CONFIRMED -> RETRACTED.
func (w *Workflow) Retract(ctx context.Context, c *Case) error {
	repost, err := w.Repost(ctx, c)
	if err != nil {
		return err
	}
	w.sleep(w.retractPause)
	return w.MarkCanceled(ctx, c, repost)
}

// Repost is the first half of Retract.
func (w *Workflow) Repost(ctx context.Context, c *Case) (model.Publication, error) {
	if c.State != StateConfirmed {
		return model.Publication{}, fmt.Errorf("%w: retract from %s", ErrInvalidTransition, c.State)
	}
	if err := w.pub.Delete(ctx, c.Target); err != nil {
		return model.Publication{}, fmt.Errorf("delete %s: %w", c.Target.ID, err)
	}
	repost, err := w.pub.Post(ctx, model.FeedCancel, c.Text)
	if err != nil {
		return model.Publication{}, fmt.Errorf("re-post canceled text: %w", err)
	}
	return repost, nil
}

// MarkCanceled is the second half of Retract.
func (w *Workflow) MarkCanceled(ctx context.Context, c *Case, repost model.Publication) error {
	if _, err := w.pub.Quote(ctx, model.FeedNotable, CanceledText, repost); err != nil {
		return fmt.Errorf("quote %s: %w", repost.ID, err)
	}
	return c.To(StateRetracted)
}

// Run drives c to a terminal state. The verification wait ignores ctx
// cancellation; there is no early exit.
func (w *Workflow) Run(ctx context.Context, c *Case) State {
	ctx = context.WithoutCancel(ctx)
	if err := w.Open(ctx, c); err != nil {
		c.Fail(err)
		return c.State
	}
	w.sleep(w.verifyDelay)
	if err := w.Verify(ctx, c); err != nil {
		c.Fail(err)
		return c.State
	}
	if c.State != StateConfirmed {
		return c.State
	}
	if err := w.Retract(ctx, c); err != nil {
		c.Fail(err)
	}
	return c.State
}
