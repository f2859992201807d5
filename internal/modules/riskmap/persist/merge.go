package persist

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/riskwarning-backend/internal/domain"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/mapping"
)

// DefaultMaxScore is used when an indicator has no usable max score.
const DefaultMaxScore = 100.0

// MaxPossible resolves the absolute scale for an indicator.
func MaxPossible(ind *types.Indicator) float64 {
	if ind == nil || ind.MaxScore == nil || *ind.MaxScore <= 0 {
		return DefaultMaxScore
	}
	return *ind.MaxScore
}

// NewRow builds the first IndicatorResult of an assessment for one indicator.
func NewRow(a *types.AssessmentResult, indicatorID string, ind *types.Indicator, behaviorID string, normalized float64, influencing []string, at time.Time) *types.IndicatorResult {
	maxPossible := MaxPossible(ind)
	row := &types.IndicatorResult{
		ID:                      uuid.New(),
		ProjectID:               a.ProjectID,
		AssessmentID:            a.ID,
		IndicatorID:             indicatorID,
		IndicatorName:           indicatorID,
		CalculatedScore:         normalized * maxPossible,
		MaxPossibleScore:        maxPossible,
		UsedCalculationRuleType: types.RuleTypeAuto,
		MatchedBehaviorIDs:      []string{behaviorID},
		RiskTriggered:           false,
		RiskStatus:              types.RiskStatusNotEvaluated,
		CalculatedAt:            at,
		CreatedAt:               at,
	}
	if ind != nil {
		if strings.TrimSpace(ind.Name) != "" {
			row.IndicatorName = ind.Name
		}
		row.IndicatorLevel = ind.IndicatorLevel
		row.Dimension = ind.Dimension
		row.Type = ind.Type
	}
	row.CalculationDetails = encodeDetails(types.CalculationDetails{
		Score:                  normalized,
		AbsoluteScore:          row.CalculatedScore,
		InfluencingRegulations: unionSorted(nil, influencing),
		BehaviorCount:          1,
	})
	return row
}

// Merge folds one behavior's absolute score into row as a running average.
// It reports false and leaves row untouched when the behavior was already counted.
func Merge(row *types.IndicatorResult, behaviorID string, absolute float64, influencing []string, at time.Time) bool {
	if row == nil {
		return false
	}
	for _, id := range row.MatchedBehaviorIDs {
		if id == behaviorID {
			return false
		}
	}
	count := float64(len(row.MatchedBehaviorIDs))
	row.CalculatedScore = (row.CalculatedScore*count + absolute) / (count + 1)
	row.MatchedBehaviorIDs = append(append([]string{}, row.MatchedBehaviorIDs...), behaviorID)
	row.CalculatedAt = at

	prev := DecodeDetails(row.CalculationDetails)
	normalized := 0.0
	if row.MaxPossibleScore > 0 {
		normalized = row.CalculatedScore / row.MaxPossibleScore
	}
	row.CalculationDetails = encodeDetails(types.CalculationDetails{
		Score:                  normalized,
		AbsoluteScore:          row.CalculatedScore,
		InfluencingRegulations: unionSorted(prev.InfluencingRegulations, influencing),
		BehaviorCount:          len(row.MatchedBehaviorIDs),
	})
	return true
}

func DecodeDetails(raw datatypes.JSON) types.CalculationDetails {
	var out types.CalculationDetails
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

func encodeDetails(d types.CalculationDetails) datatypes.JSON {
	if d.InfluencingRegulations == nil {
		d.InfluencingRegulations = []string{}
	}
	b, err := json.Marshal(d)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(b)
}

// unionSorted merges two id lists, dropping blanks and duplicates.
func unionSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// indicatorFor returns the indicator metadata carried by a mapping result.
func indicatorFor(res mapping.Result, indicatorID string) *types.Indicator {
	if res.Indicators == nil {
		return nil
	}
	ind, ok := res.Indicators[indicatorID]
	if !ok {
		return nil
	}
	return &ind
}
