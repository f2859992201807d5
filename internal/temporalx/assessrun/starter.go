package assessrun

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"
)

// Starter launches assessment workflows on a task queue.
type Starter struct {
	Client    temporalsdkclient.Client
	TaskQueue string
	// BatchTimeoutSeconds is copied into every input that does not set one.
	BatchTimeoutSeconds int
}

// Start returns the workflow and run ids of the new execution.
func (s *Starter) Start(ctx context.Context, in Input) (string, string, error) {
	if s == nil || s.Client == nil {
		return "", "", fmt.Errorf("assessrun: temporal not configured")
	}
	if in.BatchTimeoutSeconds <= 0 {
		in.BatchTimeoutSeconds = s.BatchTimeoutSeconds
	}
	run, err := s.Client.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        WorkflowID(in.ProjectID),
		TaskQueue: s.TaskQueue,
	}, WorkflowName, in)
	if err != nil {
		return "", "", fmt.Errorf("start assessment workflow: %w", err)
	}
	return run.GetID(), run.GetRunID(), nil
}

func WorkflowID(projectID string) string {
	return "assess-" + projectID + "-" + uuid.NewString()
}
