package risk

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AssessmentPending    = "pending"
	AssessmentInProgress = "in_progress"
	AssessmentCompleted  = "completed"
	AssessmentFailed     = "failed"
)

// AssessmentResult is the parent record of one batch run over a project.
type AssessmentResult struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID      uuid.UUID      `gorm:"type:uuid;column:project_id;not null;index" json:"project_id"`
	Status         string         `gorm:"column:status;not null;index" json:"status"`
	AssessmentDate time.Time      `gorm:"column:assessment_date;not null" json:"assessment_date"`
	OverallScore   *float64       `gorm:"column:overall_score" json:"overall_score,omitempty"`
	Details        datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	Error          string         `gorm:"column:error" json:"error,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (AssessmentResult) TableName() string { return "assessment_results" }

// AssessmentSummary is stored in AssessmentResult.Details.
type AssessmentSummary struct {
	BehaviorsTotal     int      `json:"behaviorsTotal"`
	BehaviorsProcessed int      `json:"behaviorsProcessed"`
	BehaviorsFailed    int      `json:"behaviorsFailed"`
	BehaviorsTimedOut  int      `json:"behaviorsTimedOut"`
	IndicatorsScored   int      `json:"indicatorsScored"`
	Warnings           []string `json:"warnings,omitempty"`
}

// CanTransition implements pending -> in_progress -> completed|failed.
// A pending assessment may also fail directly.
func CanTransition(from, to string) bool {
	switch from {
	case AssessmentPending:
		return to == AssessmentInProgress || to == AssessmentFailed
	case AssessmentInProgress:
		return to == AssessmentCompleted || to == AssessmentFailed
	default:
		return false
	}
}
