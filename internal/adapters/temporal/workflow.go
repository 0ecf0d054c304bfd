// Package temporal runs cancellation cases as Temporal workflows so the
// hour-long verification wait survives process restarts.
package temporal

import (
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/okian/surrender/internal/domain/cancel"
	"github.com/okian/surrender/internal/domain/model"
)

// WorkflowName is the registered name of CancellationWorkflow.
const WorkflowName = "SurrenderCancellation"

const activityTimeout = time.Minute

// CaseInput starts one workflow. Every value the workflow needs is carried
// here so replays stay deterministic.
type CaseInput struct {
	CaseID       string
	Target       model.Publication
	Text         string
	Threshold    float64
	VerifyDelay  time.Duration
	RetractPause time.Duration
}

// Result is the terminal outcome of a case.
type Result struct {
	State   cancel.State
	Tally   cancel.Tally
	History []cancel.State
	Error   string
}

func resultOf(c *cancel.Case) Result {
	r := Result{State: c.State, Tally: c.Tally, History: c.History}
	if c.Err != nil {
		r.Error = c.Err.Error()
	}
	return r
}

// CancellationWorkflow drives a case through poll, wait, tally and
// retraction. Activities are attempted once; a failure ends the case in
// ERROR and the workflow itself completes without error.
func CancellationWorkflow(ctx workflow.Context, in CaseInput) (Result, error) {
	logger := workflow.GetLogger(ctx)
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: activityTimeout,
		RetryPolicy:         &sdktemporal.RetryPolicy{MaximumAttempts: 1},
	})

	var a *Activities
	c := cancel.NewCaseID(in.CaseID, in.Target, in.Text, workflow.Now(ctx))

	fail := func(err error) (Result, error) {
		c.Fail(err)
		logger.Error("cancellation case failed", "caseID", c.ID, "error", err)
		_ = workflow.ExecuteActivity(ctx, a.NotifyOperator, "Cancellation of "+in.Target.ID+" failed: "+err.Error()).Get(ctx, nil)
		return resultOf(c), nil
	}

	var poll model.Publication
	if err := workflow.ExecuteActivity(ctx, a.OpenPoll, in).Get(ctx, &poll); err != nil {
		return fail(err)
	}
	c.Poll = poll
	if err := c.To(cancel.StateAwaitingVerification); err != nil {
		return fail(err)
	}

	if err := workflow.Sleep(ctx, in.VerifyDelay); err != nil {
		return fail(err)
	}

	var tally cancel.Tally
	if err := workflow.ExecuteActivity(ctx, a.ReadTally, poll).Get(ctx, &tally); err != nil {
		return fail(err)
	}
	c.Tally = tally
	if !cancel.Confirms(tally, in.Threshold) {
		_ = c.To(cancel.StateKept)
		logger.Info("notable post kept", "caseID", c.ID, "yes", tally.Yes)
		return resultOf(c), nil
	}
	if err := c.To(cancel.StateConfirmed); err != nil {
		return fail(err)
	}

	var repost model.Publication
	if err := workflow.ExecuteActivity(ctx, a.Repost, in).Get(ctx, &repost); err != nil {
		return fail(err)
	}
	if err := workflow.Sleep(ctx, in.RetractPause); err != nil {
		return fail(err)
	}
	if err := workflow.ExecuteActivity(ctx, a.MarkCanceled, in, repost).Get(ctx, nil); err != nil {
		return fail(err)
	}
	if err := c.To(cancel.StateRetracted); err != nil {
		return fail(err)
	}

	logger.Info("notable post retracted", "caseID", c.ID, "yes", tally.Yes)
	_ = workflow.ExecuteActivity(ctx, a.NotifyOperator, "Punt "+in.Target.ID+" was canceled").Get(ctx, nil)
	return resultOf(c), nil
}
