package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/okian/surrender/internal/domain/cancel"
	"github.com/okian/surrender/internal/domain/model"
	"github.com/okian/surrender/pkg/logger"
)

// Starter implements cancel.Starter on a Temporal cluster.
type Starter struct {
	client    client.Client
	taskQueue string
	wf        *cancel.Workflow
	logger    logger.Logger
}

// Dial connects to the cluster.
func Dial(host, namespace string) (client.Client, error) {
	c, err := client.Dial(client.Options{HostPort: host, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("dial temporal %s: %w", host, err)
	}
	return c, nil
}

// NewStarter creates a starter. wf supplies the threshold and delays copied
// into every workflow input.
func NewStarter(c client.Client, taskQueue string, wf *cancel.Workflow) *Starter {
	return &Starter{
		client:    c,
		taskQueue: taskQueue,
		wf:        wf,
		logger:    logger.GetOrDiscard().Named("temporal"),
	}
}

// Start implements cancel.Starter. The workflow id is derived from the
// target so one publication never gets two cases.
func (s *Starter) Start(ctx context.Context, target model.Publication, text string) (string, error) {
	id := "surrender-cancel-" + target.ID
	in := CaseInput{
		CaseID:       id,
		Target:       target,
		Text:         text,
		Threshold:    s.wf.Threshold(),
		VerifyDelay:  s.wf.VerifyDelay(),
		RetractPause: s.wf.RetractPause(),
	}
	opts := client.StartWorkflowOptions{
		ID:                    id,
		TaskQueue:             s.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, WorkflowName, in)
	if err != nil {
		return "", fmt.Errorf("start cancellation workflow: %w", err)
	}
	s.logger.Info(ctx, "cancellation workflow started",
		logger.String("workflow_id", run.GetID()),
		logger.String("run_id", run.GetRunID()))
	return run.GetID(), nil
}

// NewWorker registers the workflow and activities on taskQueue.
func NewWorker(c client.Client, taskQueue string, acts *Activities) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(CancellationWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivity(acts)
	return w
}
