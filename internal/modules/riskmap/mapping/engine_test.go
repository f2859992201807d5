package mapping

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/riskwarning-backend/internal/domain/risk"
)

func fp(v float64) *float64 { return &v }

func newTestEngine() *Engine {
	return NewEngine(nil, DefaultThresholds())
}

// indicatorVecFor returns a unit vector whose cosine with (1,0) is c.
func indicatorVecFor(c float64) []float32 {
	return []float32{float32(c), float32(math.Sqrt(1 - c*c))}
}

func TestMapRequiredRegulationCompletedBehavior(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	created := date.AddDate(-1, 0, 0)

	behavior := risk.Behavior{
		ID:           "b-1",
		Status:       "completed",
		Tags:         []string{"a", "b", "c", "d", "e", "f"},
		Vector:       []float32{1, 0},
		BehaviorDate: &date,
	}
	// cosine 1 and jaccard 5/7 give an applicability of 0.65 + 0.25 = 0.9.
	reg := risk.Regulation{
		ID:                "reg-1",
		Direction:         "必须",
		ApplicableSubject: "上市公司",
		Tags:              []string{"a", "b", "c", "d", "e", "g"},
		Vector:            []float32{1, 0},
		CreatedAt:         &created,
	}
	// regulation->indicator relevance chosen so influence is 0.5.
	ind := risk.Indicator{
		ID:         "ind-1",
		Name:       "Disclosure compliance",
		MaxScore:   fp(80),
		NameVector: indicatorVecFor(0.5 / (0.9 * 0.65)),
	}

	res := newTestEngine().Map(behavior,
		[]Scored[risk.Indicator]{{Item: ind, Score: 3.1}},
		[]Scored[risk.Regulation]{{Item: reg, Score: 7.2}},
	)

	require.Equal(t, "b-1", res.BehaviorID)
	require.Len(t, res.Contributions["ind-1"], 1)
	c := res.Contributions["ind-1"][0]
	assert.InDelta(t, 0.9, c.SimilarityWeight, 1e-6)
	assert.InDelta(t, 0.5, c.Influence, 1e-5)
	assert.Equal(t, 1.0, c.Score)
	assert.False(t, c.Quantitative)
	assert.Equal(t, 0.9, c.HierarchyWeight)
	assert.Equal(t, 0.7, c.TimelinessWeight)

	assert.InDelta(t, 1.0, res.IndicatorScores["ind-1"], 1e-12)
	assert.Equal(t, []string{"reg-1"}, res.InfluencingRegulations["ind-1"])
	assert.Empty(t, res.Warnings)
}

func TestMapWeightedAverageAcrossRegulations(t *testing.T) {
	behavior := risk.Behavior{
		ID:     "b-2",
		Status: "已完成",
		Tags:   []string{"emissions"},
		Vector: []float32{1, 0},
	}
	prohibited := risk.Regulation{ID: "reg-p", Direction: "禁止", ApplicableSubject: "国务院", Tags: []string{"emissions"}, Vector: []float32{1, 0}}
	required := risk.Regulation{ID: "reg-r", Direction: "required", ApplicableSubject: "劳动者", Tags: []string{"emissions"}, Vector: []float32{1, 0}}
	ind := risk.Indicator{ID: "ind-1", Tags: []string{"emissions"}, NameVector: []float32{1, 0}}

	res := newTestEngine().Map(behavior,
		[]Scored[risk.Indicator]{{Item: ind}},
		[]Scored[risk.Regulation]{{Item: prohibited}, {Item: required}},
	)

	// Both regulations have similarity 1 and no dates (timeliness 0.5).
	wP := (1.0 + 0.5 + 1.0) / 3
	wR := (0.6 + 0.5 + 1.0) / 3
	want := (0.0*wP + 1.0*wR) / (wP + wR)
	assert.InDelta(t, want, res.IndicatorScores["ind-1"], 1e-12)
	assert.Equal(t, []string{"reg-p", "reg-r"}, res.InfluencingRegulations["ind-1"])
}

func TestMapQuantitativeRegulation(t *testing.T) {
	behavior := risk.Behavior{
		ID:               "b-3",
		Status:           "paused",
		QuantitativeData: fp(80),
		Tags:             []string{"water"},
		Vector:           []float32{0, 1},
	}
	reg := risk.Regulation{ID: "reg-q", Direction: "mandatory", QuantitativeIndicator: fp(100), Tags: []string{"water"}, Vector: []float32{0, 1}}
	ind := risk.Indicator{ID: "ind-w", Tags: []string{"water"}, NameVector: []float32{0, 1}}

	res := newTestEngine().Map(behavior, []Scored[risk.Indicator]{{Item: ind}}, []Scored[risk.Regulation]{{Item: reg}})

	require.Len(t, res.Contributions["ind-w"], 1)
	assert.True(t, res.Contributions["ind-w"][0].Quantitative)
	assert.InDelta(t, 0.72, res.IndicatorScores["ind-w"], 1e-12)
}

func TestMapFallbackWhenNoRegulationApplies(t *testing.T) {
	behavior := risk.Behavior{ID: "b-4", Status: "进行中", Tags: []string{"x"}, Vector: []float32{1, 0}}
	unrelated := risk.Regulation{ID: "reg-u", Direction: "禁止", Tags: []string{"y"}, Vector: []float32{0, 1}}
	ind := risk.Indicator{ID: "ind-1", Tags: []string{"x"}, NameVector: []float32{1, 0}}

	res := newTestEngine().Map(behavior, []Scored[risk.Indicator]{{Item: ind}}, []Scored[risk.Regulation]{{Item: unrelated, Score: 0.1}})

	assert.Equal(t, 0.8, res.IndicatorScores["ind-1"])
	assert.Equal(t, []string{FallbackMarker}, res.InfluencingRegulations["ind-1"])
	assert.NotContains(t, res.Contributions, "ind-1")
	assert.Empty(t, res.Warnings)
}

func TestMapFallbackUsesMeasurementAgainstIndicatorMax(t *testing.T) {
	behavior := risk.Behavior{ID: "b-5", Status: "terminated", QuantitativeData: fp(60)}
	ind := risk.Indicator{ID: "ind-1", MaxScore: fp(100)}

	res := newTestEngine().Map(behavior, []Scored[risk.Indicator]{{Item: ind}}, nil)

	assert.InDelta(t, 0.6, res.IndicatorScores["ind-1"], 1e-12)
	assert.Equal(t, []string{FallbackMarker}, res.InfluencingRegulations["ind-1"])
}

func TestMapZeroFallbackWarns(t *testing.T) {
	behavior := risk.Behavior{ID: "b-6", Status: "终止"}
	ind := risk.Indicator{ID: "ind-1"}

	res := newTestEngine().Map(behavior, []Scored[risk.Indicator]{{Item: ind}}, nil)

	assert.Equal(t, 0.0, res.IndicatorScores["ind-1"])
	assert.Equal(t, []string{}, res.InfluencingRegulations["ind-1"])
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "ind-1")
}

func TestMapUsesRetrievalScoreWhenSimilarityIsZero(t *testing.T) {
	// No vector and no tags on the behavior: computed applicability is zero.
	behavior := risk.Behavior{ID: "b-7", Status: "completed"}
	reg := risk.Regulation{ID: "reg-1", Direction: "必须", Vector: []float32{1, 0}, Tags: []string{"t"}}
	ind := risk.Indicator{ID: "ind-1", NameVector: []float32{1, 0}, Tags: []string{"t"}}

	res := newTestEngine().Map(behavior,
		[]Scored[risk.Indicator]{{Item: ind}},
		[]Scored[risk.Regulation]{{Item: reg, Score: 0.4}},
	)

	require.Len(t, res.Contributions["ind-1"], 1)
	c := res.Contributions["ind-1"][0]
	assert.Equal(t, 0.4, c.SimilarityWeight)
	// regInd = 0.65 + 0.25 = 0.9, influence = 0.36
	assert.InDelta(t, 0.36, c.Influence, 1e-9)
	assert.Equal(t, 1.0, res.IndicatorScores["ind-1"])
}

func TestMapThresholds(t *testing.T) {
	behavior := risk.Behavior{ID: "b-8", Status: "completed", Tags: []string{"a"}}
	reg := risk.Regulation{ID: "reg-1", Direction: "必须", Tags: []string{"a"}, Vector: []float32{1, 0}}
	ind := risk.Indicator{ID: "ind-1", Tags: []string{"a"}, NameVector: []float32{1, 0}}

	// Applicability 0.35 and influence 0.315 clear the defaults.
	res := newTestEngine().Map(behavior, []Scored[risk.Indicator]{{Item: ind}}, []Scored[risk.Regulation]{{Item: reg}})
	assert.Equal(t, []string{"reg-1"}, res.InfluencingRegulations["ind-1"])

	strict := NewEngine(nil, Thresholds{Applicability: 0.4, Influence: 0.2})
	res = strict.Map(behavior, []Scored[risk.Indicator]{{Item: ind}}, []Scored[risk.Regulation]{{Item: reg}})
	assert.Equal(t, []string{FallbackMarker}, res.InfluencingRegulations["ind-1"])

	noInfluence := NewEngine(nil, Thresholds{Applicability: 0.15, Influence: 0.32})
	res = noInfluence.Map(behavior, []Scored[risk.Indicator]{{Item: ind}}, []Scored[risk.Regulation]{{Item: reg}})
	assert.Equal(t, []string{FallbackMarker}, res.InfluencingRegulations["ind-1"])
}

func TestMapSkipsDuplicateAndAnonymousCandidates(t *testing.T) {
	behavior := risk.Behavior{ID: "b-9", Status: "completed"}
	ind := risk.Indicator{ID: "ind-1"}

	res := newTestEngine().Map(behavior,
		[]Scored[risk.Indicator]{{Item: ind}, {Item: ind}, {Item: risk.Indicator{Name: "no id"}}},
		nil,
	)

	assert.Len(t, res.IndicatorScores, 1)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "without id")
}

func TestMapScoresAlwaysBounded(t *testing.T) {
	behavior := risk.Behavior{ID: "b-10", Status: "in_progress", QuantitativeData: fp(1e9), Tags: []string{"a"}, Vector: []float32{1, 1}}
	regs := []Scored[risk.Regulation]{
		{Item: risk.Regulation{ID: "r1", Direction: "optional", QuantitativeIndicator: fp(1), Tags: []string{"a"}, Vector: []float32{1, 1}}},
		{Item: risk.Regulation{ID: "r2", Direction: "禁止", Tags: []string{"a"}, Vector: []float32{1, 1}}},
	}
	inds := []Scored[risk.Indicator]{
		{Item: risk.Indicator{ID: "i1", Tags: []string{"a"}, NameVector: []float32{1, 1}}},
		{Item: risk.Indicator{ID: "i2", MaxScore: fp(0)}},
	}
	res := newTestEngine().Map(behavior, inds, regs)
	for id, s := range res.IndicatorScores {
		assert.GreaterOrEqual(t, s, 0.0, id)
		assert.LessOrEqual(t, s, 1.0, id)
	}
}
