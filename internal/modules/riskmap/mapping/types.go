package mapping

import (
	"github.com/yungbote/riskwarning-backend/internal/domain/risk"
)

// FallbackMarker stands in for regulation ids when an indicator was scored by
// the fallback formula.
const FallbackMarker = "FALLBACK"

const (
	DefaultApplicabilityThreshold = 0.15
	DefaultInfluenceThreshold     = 0.2
)

// Scored pairs a candidate with its retrieval-time relevance score.
type Scored[T any] struct {
	Item  T       `json:"item"`
	Score float64 `json:"score"`
}

type Thresholds struct {
	// Applicability is the minimum behavior->regulation similarity.
	Applicability float64 `json:"applicability" yaml:"applicability"`
	// Influence is the minimum regulation->indicator influence.
	Influence float64 `json:"influence" yaml:"influence"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Applicability: DefaultApplicabilityThreshold,
		Influence:     DefaultInfluenceThreshold,
	}
}

// Contribution is one regulation's effect on one indicator.
type Contribution struct {
	RegulationID     string  `json:"regulationId"`
	Score            float64 `json:"score"`
	HierarchyWeight  float64 `json:"hierarchyWeight"`
	TimelinessWeight float64 `json:"timelinessWeight"`
	SimilarityWeight float64 `json:"similarityWeight"`
	Influence        float64 `json:"influence"`
	Quantitative     bool    `json:"quantitative"`
}

// Weight is the mean of the three weights.
func (c Contribution) Weight() float64 {
	return (c.HierarchyWeight + c.TimelinessWeight + c.SimilarityWeight) / 3
}

// Result is the outcome of mapping one behavior onto its candidate indicators.
type Result struct {
	BehaviorID             string                    `json:"behaviorId"`
	IndicatorScores        map[string]float64        `json:"indicatorScores"`
	InfluencingRegulations map[string][]string       `json:"indicatorInfluencingRegulations"`
	Contributions          map[string][]Contribution `json:"contributions,omitempty"`
	Indicators             map[string]risk.Indicator `json:"-"`
	Warnings               []string                  `json:"warnings"`
}
