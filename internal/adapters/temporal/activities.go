package temporal

import (
	"context"
	"time"

	"github.com/okian/surrender/internal/domain/cancel"
	"github.com/okian/surrender/internal/domain/model"
)

// Activities are the side-effecting steps of CancellationWorkflow. Each
// rebuilds the case in the state its step starts from and delegates to the
// domain workflow.
type Activities struct {
	Publisher cancel.Publisher
	Workflow  *cancel.Workflow
	Notifier  cancel.Notifier
}

func (in CaseInput) caseIn(state cancel.State) *cancel.Case { //nolint:gocritic // hugeParam
	c := cancel.NewCaseID(in.CaseID, in.Target, in.Text, time.Time{})
	c.State = state
	return c
}

// OpenPoll posts the confirmation poll under the target.
func (a *Activities) OpenPoll(ctx context.Context, in CaseInput) (model.Publication, error) { //nolint:gocritic // hugeParam
	c := in.caseIn(cancel.StatePosted)
	if err := a.Workflow.Open(ctx, c); err != nil {
		return model.Publication{}, err
	}
	return c.Poll, nil
}

// ReadTally reads the poll shares.
func (a *Activities) ReadTally(ctx context.Context, poll model.Publication) (cancel.Tally, error) {
	return a.Publisher.ReadPollTally(ctx, poll)
}

// Repost deletes the target and re-posts its text from the cancel account.
func (a *Activities) Repost(ctx context.Context, in CaseInput) (model.Publication, error) { //nolint:gocritic // hugeParam
	return a.Workflow.Repost(ctx, in.caseIn(cancel.StateConfirmed))
}

// MarkCanceled quotes the re-post as canceled.
func (a *Activities) MarkCanceled(ctx context.Context, in CaseInput, repost model.Publication) error { //nolint:gocritic // hugeParam
	return a.Workflow.MarkCanceled(ctx, in.caseIn(cancel.StateConfirmed), repost)
}

// NotifyOperator forwards msg; it never fails.
func (a *Activities) NotifyOperator(ctx context.Context, msg string) error {
	if a.Notifier != nil {
		a.Notifier.Cancellation(ctx, msg)
	}
	return nil
}
