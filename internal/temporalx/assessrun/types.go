package assessrun

import (
	"time"

	"github.com/yungbote/riskwarning-backend/internal/services/assessment"
)

const (
	WorkflowName    = "assess_project"
	ActivityProcess = "process_project_behaviors"

	// activityMargin covers persistence and event publishing after the batch settles.
	activityMargin = 60 * time.Second
)

type Input struct {
	ProjectID string `json:"project_id"`
	ActorID   string `json:"actor_id,omitempty"`
	// BatchTimeoutSeconds sizes the activity deadline; zero uses the engine default.
	BatchTimeoutSeconds int `json:"batch_timeout_seconds,omitempty"`
}

type Output struct {
	AssessmentID       string             `json:"assessment_id"`
	Status             string             `json:"status"`
	IndicatorScores    map[string]float64 `json:"indicator_scores"`
	BehaviorsProcessed int                `json:"behaviors_processed"`
	WarningCount       int                `json:"warning_count"`
}

func activityTimeout(in Input) time.Duration {
	batch := assessment.DefaultBatchTimeout
	if in.BatchTimeoutSeconds > 0 {
		batch = time.Duration(in.BatchTimeoutSeconds) * time.Second
	}
	return batch + activityMargin
}
