package assessrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow runs one project assessment. The activity is attempted once: a
// failed assessment is terminal and a rerun creates a new one.
func Workflow(ctx workflow.Context, in Input) (Output, error) {
	if strings.TrimSpace(in.ProjectID) == "" {
		return Output{}, temporal.NewNonRetryableApplicationError("assessrun: missing project_id", "InvalidInput", nil)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: activityTimeout(in),
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var out Output
	if err := workflow.ExecuteActivity(ctx, ActivityProcess, in).Get(ctx, &out); err != nil {
		workflow.GetLogger(ctx).Error("Assessment activity failed", "project_id", in.ProjectID, "error", err)
		return out, fmt.Errorf("assess project %s: %w", in.ProjectID, err)
	}
	workflow.GetLogger(ctx).Info("Assessment finished",
		"project_id", in.ProjectID,
		"assessment_id", out.AssessmentID,
		"status", out.Status,
	)
	return out, nil
}
