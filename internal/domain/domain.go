package domain

import "github.com/yungbote/riskwarning-backend/internal/domain/risk"

type Behavior = risk.Behavior
type Indicator = risk.Indicator
type Regulation = risk.Regulation
type AssessmentResult = risk.AssessmentResult
type AssessmentSummary = risk.AssessmentSummary
type IndicatorResult = risk.IndicatorResult
type CalculationDetails = risk.CalculationDetails

const (
	AssessmentPending    = risk.AssessmentPending
	AssessmentInProgress = risk.AssessmentInProgress
	AssessmentCompleted  = risk.AssessmentCompleted
	AssessmentFailed     = risk.AssessmentFailed

	RuleTypeAuto           = risk.RuleTypeAuto
	RiskStatusNotEvaluated = risk.RiskStatusNotEvaluated
	RiskStatusEvaluated    = risk.RiskStatusEvaluated
)

var CanTransition = risk.CanTransition
