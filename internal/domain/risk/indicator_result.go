package risk

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RuleTypeAuto = "auto"

	RiskStatusNotEvaluated = "not_evaluated"
	RiskStatusEvaluated    = "evaluated"
)

// IndicatorResult holds the merged score of one indicator within one assessment.
// (assessment_id, indicator_id) is unique.
type IndicatorResult struct {
	ID                      uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID               uuid.UUID      `gorm:"type:uuid;column:project_id;not null;index" json:"project_id"`
	AssessmentID            uuid.UUID      `gorm:"type:uuid;column:assessment_id;not null;uniqueIndex:idx_indicator_result_assessment_indicator" json:"assessment_id"`
	IndicatorID             string         `gorm:"column:indicator_id;not null;uniqueIndex:idx_indicator_result_assessment_indicator" json:"indicator_id"`
	IndicatorName           string         `gorm:"column:indicator_name;not null" json:"indicator_name"`
	IndicatorLevel          int            `gorm:"column:indicator_level;not null;default:0" json:"indicator_level"`
	Dimension               string         `gorm:"column:dimension" json:"dimension,omitempty"`
	Type                    string         `gorm:"column:type" json:"type,omitempty"`
	CalculatedScore         float64        `gorm:"column:calculated_score;not null" json:"calculated_score"`
	MaxPossibleScore        float64        `gorm:"column:max_possible_score;not null" json:"max_possible_score"`
	UsedCalculationRuleType string         `gorm:"column:used_calculation_rule_type;not null" json:"used_calculation_rule_type"`
	CalculationDetails      datatypes.JSON `gorm:"column:calculation_details;type:jsonb" json:"calculation_details"`
	MatchedBehaviorIDs      []string       `gorm:"column:matched_behavior_ids;serializer:json" json:"matched_behavior_ids"`
	RiskTriggered           bool           `gorm:"column:risk_triggered;not null;default:false" json:"risk_triggered"`
	RiskStatus              string         `gorm:"column:risk_status;not null" json:"risk_status"`
	CalculatedAt            time.Time      `gorm:"column:calculated_at;not null" json:"calculated_at"`
	CreatedAt               time.Time      `gorm:"not null;index" json:"created_at"`
}

func (IndicatorResult) TableName() string { return "indicator_results" }

// CalculationDetails is stored in IndicatorResult.CalculationDetails.
type CalculationDetails struct {
	Score                  float64  `json:"score"`
	AbsoluteScore          float64  `json:"absoluteScore"`
	InfluencingRegulations []string `json:"influencingRegulations"`
	BehaviorCount          int      `json:"behaviorCount"`
}
