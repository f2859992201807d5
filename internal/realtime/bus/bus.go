package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AssessmentCompleted is published once an assessment reaches a terminal status.
type AssessmentCompleted struct {
	EventID            uuid.UUID          `json:"event_id"`
	AssessmentID       uuid.UUID          `json:"assessment_id"`
	ProjectID          uuid.UUID          `json:"project_id"`
	ActorID            string             `json:"actor_id,omitempty"`
	Status             string             `json:"status"`
	IndicatorScores    map[string]float64 `json:"indicator_scores,omitempty"`
	BehaviorsProcessed int                `json:"behaviors_processed"`
	WarningCount       int                `json:"warning_count"`
	CompletedAt        time.Time          `json:"completed_at"`
}

type Bus interface {
	PublishAssessmentCompleted(ctx context.Context, ev AssessmentCompleted) error
	Subscribe(ctx context.Context, onEvent func(ev AssessmentCompleted)) error
	Close() error
}
