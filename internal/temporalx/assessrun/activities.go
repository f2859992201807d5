package assessrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
	"github.com/yungbote/riskwarning-backend/internal/services/assessment"
)

type Activities struct {
	Log     *logger.Logger
	Service assessment.Service
}

func (a *Activities) ProcessProjectBehaviors(ctx context.Context, in Input) (Output, error) {
	if a == nil || a.Service == nil {
		return Output{}, fmt.Errorf("assessrun: activity not configured")
	}
	projectID, err := uuid.Parse(in.ProjectID)
	if err != nil || projectID == uuid.Nil {
		return Output{}, temporal.NewNonRetryableApplicationError("assessrun: invalid project_id", "InvalidInput", err)
	}

	stop := startHeartbeat(ctx)
	defer stop()

	res, err := a.Service.ProcessBehaviors(ctx, assessment.ProcessInput{ProjectID: projectID, ActorID: in.ActorID})
	out := toOutput(res)
	if err != nil {
		if a.Log != nil {
			a.Log.Warn("Assessment activity failed", "project_id", projectID, "error", err)
		}
		if assessment.IsInputError(err) || errors.Is(err, assessment.ErrPersistFailed) {
			return out, temporal.NewNonRetryableApplicationError(err.Error(), "AssessmentFailed", err, out)
		}
		return out, err
	}
	return out, nil
}

func toOutput(res *assessment.AggregatedResult) Output {
	if res == nil {
		return Output{}
	}
	return Output{
		AssessmentID:       res.AssessmentID.String(),
		Status:             res.Status,
		IndicatorScores:    res.IndicatorScores,
		BehaviorsProcessed: res.Summary.BehaviorsProcessed,
		WarningCount:       len(res.Warnings),
	}
}

func startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
