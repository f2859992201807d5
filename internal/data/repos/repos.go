package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/riskwarning-backend/internal/data/repos/assessment"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

type BehaviorRepo = assessment.BehaviorRepo
type AssessmentResultRepo = assessment.AssessmentResultRepo
type IndicatorResultRepo = assessment.IndicatorResultRepo

// Set groups the repositories the assessment service depends on.
type Set struct {
	Behaviors        BehaviorRepo
	Assessments      AssessmentResultRepo
	IndicatorResults IndicatorResultRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Behaviors:        assessment.NewBehaviorRepo(db, log),
		Assessments:      assessment.NewAssessmentResultRepo(db, log),
		IndicatorResults: assessment.NewIndicatorResultRepo(db, log),
	}
}

var IsUniqueViolation = assessment.IsUniqueViolation
