package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/riskwarning-backend/internal/data/repos"
	"github.com/yungbote/riskwarning-backend/internal/data/repos/testutil"
	types "github.com/yungbote/riskwarning-backend/internal/domain"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/mapping"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/retrieval"
	"github.com/yungbote/riskwarning-backend/internal/observability"
	"github.com/yungbote/riskwarning-backend/internal/pkg/dbctx"
	apperrors "github.com/yungbote/riskwarning-backend/internal/pkg/errors"
	"github.com/yungbote/riskwarning-backend/internal/realtime/bus"
)

func f64(v float64) *float64 { return &v }

// knowledgeBase always returns one safety indicator and one regulation that
// requires the behavior to be completed.
type knowledgeBase struct {
	failIndicators bool
}

func (k knowledgeBase) SearchIndicators(ctx context.Context, q retrieval.Query) ([]mapping.Scored[types.Indicator], error) {
	if k.failIndicators {
		return nil, errors.New("index unavailable")
	}
	return []mapping.Scored[types.Indicator]{{
		Item: types.Indicator{
			ID:         "ind-safety",
			Name:       "Safety compliance",
			Tags:       []string{"safety"},
			MaxScore:   f64(50),
			NameVector: []float32{1, 0},
		},
		Score: 3.2,
	}}, nil
}

func (k knowledgeBase) SearchRegulations(ctx context.Context, q retrieval.Query) ([]mapping.Scored[types.Regulation], error) {
	return []mapping.Scored[types.Regulation]{{
		Item: types.Regulation{
			ID:        "reg-1",
			Name:      "Site safety rule",
			Tags:      []string{"safety"},
			Direction: "required",
			Vector:    []float32{1, 0},
		},
		Score: 2.1,
	}}, nil
}

type recordingBus struct {
	events []bus.AssessmentCompleted
	err    error
}

func (r *recordingBus) PublishAssessmentCompleted(ctx context.Context, ev bus.AssessmentCompleted) error {
	r.events = append(r.events, ev)
	return r.err
}
func (r *recordingBus) Subscribe(context.Context, func(bus.AssessmentCompleted)) error { return nil }
func (r *recordingBus) Close() error                                                 { return nil }

func newTestService(t *testing.T, db *gorm.DB, searcher retrieval.Searcher, opts ...Option) Service {
	t.Helper()
	settings := DefaultSettings()
	settings.BatchTimeout = 10 * time.Second
	return NewService(db, testutil.Logger(t), repos.NewSet(db, testutil.Logger(t)), searcher, settings, opts...)
}

func loadAssessment(t *testing.T, db *gorm.DB, id uuid.UUID) *types.AssessmentResult {
	t.Helper()
	var a types.AssessmentResult
	require.NoError(t, db.Where("id = ?", id).Take(&a).Error)
	return &a
}

func TestProcessBehaviorsPersistsAndCompletes(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	projectID := uuid.New()
	behaviors := testutil.SeedBehaviors(t, ctx, db, projectID, 3)

	events := &recordingBus{}
	metrics := observability.NewMetrics()
	svc := newTestService(t, db, knowledgeBase{}, WithBus(events), WithMetrics(metrics))

	out, err := svc.ProcessBehaviors(ctx, ProcessInput{ProjectID: projectID, ActorID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, types.AssessmentCompleted, out.Status)
	assert.InDelta(t, 1.0, out.IndicatorScores["ind-safety"], 1e-9)
	assert.Equal(t, []string{"reg-1"}, out.InfluencingRegulations["ind-safety"])
	assert.Equal(t, 3, out.Summary.BehaviorsProcessed)
	assert.Equal(t, 1, out.Persisted.Inserted)
	assert.Zero(t, out.Persisted.Skipped)

	a := loadAssessment(t, db, out.AssessmentID)
	assert.Equal(t, types.AssessmentCompleted, a.Status)
	require.NotNil(t, a.OverallScore)
	assert.InDelta(t, 1.0, *a.OverallScore, 1e-9)
	var summary types.AssessmentSummary
	require.NoError(t, json.Unmarshal(a.Details, &summary))
	assert.Equal(t, 3, summary.BehaviorsTotal)

	view, err := svc.Results(ctx, out.AssessmentID)
	require.NoError(t, err)
	require.Len(t, view.Indicators, 1)
	row := view.Indicators[0]
	assert.Equal(t, "Safety compliance", row.IndicatorName)
	assert.InDelta(t, 50.0, row.CalculatedScore, 1e-9)
	assert.Equal(t, 50.0, row.MaxPossibleScore)
	assert.ElementsMatch(t, []string{behaviors[0].ID, behaviors[1].ID, behaviors[2].ID}, row.MatchedBehaviorIDs)

	require.Len(t, events.events, 1)
	assert.Equal(t, out.AssessmentID, events.events[0].AssessmentID)
	assert.Equal(t, "user-1", events.events[0].ActorID)

	list, err := svc.ListAssessments(ctx, projectID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, out.AssessmentID, list[0].ID)
}

func TestProcessBehaviorsRetrievalFailureDegrades(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	projectID := uuid.New()
	testutil.SeedBehaviors(t, ctx, db, projectID, 2)

	svc := newTestService(t, db, knowledgeBase{failIndicators: true})
	out, err := svc.ProcessBehaviors(ctx, ProcessInput{ProjectID: projectID})
	require.NoError(t, err)

	assert.Equal(t, types.AssessmentCompleted, out.Status)
	assert.Empty(t, out.IndicatorScores)
	require.Len(t, out.Warnings, 2)
	assert.Contains(t, out.Warnings[0], "indicator search failed")
}

func TestProcessBehaviorsInputErrors(t *testing.T) {
	db := testutil.DB(t)
	svc := newTestService(t, db, knowledgeBase{})

	_, err := svc.ProcessBehaviors(context.Background(), ProcessInput{})
	assert.ErrorIs(t, err, ErrMissingProject)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	projectID := uuid.New()
	_, err = svc.ProcessBehaviors(context.Background(), ProcessInput{ProjectID: projectID})
	assert.ErrorIs(t, err, ErrNoBehaviors)
	assert.True(t, IsInputError(err))

	var count int64
	require.NoError(t, db.Model(&types.AssessmentResult{}).Where("project_id = ?", projectID).Count(&count).Error)
	assert.Zero(t, count, "input errors must not create an assessment")
}

func TestProcessBehaviorsZeroProcessedFails(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	projectID := uuid.New()
	testutil.SeedBehaviors(t, ctx, db, projectID, 2)

	task := func(context.Context, types.Behavior) (mapping.Result, error) {
		return mapping.Result{}, errors.New("scoring exploded")
	}
	svc := newTestService(t, db, knowledgeBase{}, WithTask(task))

	out, err := svc.ProcessBehaviors(ctx, ProcessInput{ProjectID: projectID})
	require.ErrorIs(t, err, ErrNoBehaviorsProcessed)
	require.NotNil(t, out)
	assert.Equal(t, types.AssessmentFailed, out.Status)
	assert.Len(t, out.Warnings, 2)

	a := loadAssessment(t, db, out.AssessmentID)
	assert.Equal(t, types.AssessmentFailed, a.Status)
	assert.NotEmpty(t, a.Error)
}

type brokenResultRepo struct {
	repos.IndicatorResultRepo
}

func (brokenResultRepo) Create(dbctx.Context, []*types.IndicatorResult) error {
	return errors.New("disk full")
}

func TestProcessBehaviorsPersistenceFailureMarksFailed(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	projectID := uuid.New()
	testutil.SeedBehaviors(t, ctx, db, projectID, 2)

	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	set.IndicatorResults = brokenResultRepo{IndicatorResultRepo: set.IndicatorResults}
	events := &recordingBus{}
	svc := NewService(db, log, set, knowledgeBase{}, DefaultSettings(), WithBus(events))

	out, err := svc.ProcessBehaviors(ctx, ProcessInput{ProjectID: projectID})
	require.ErrorIs(t, err, ErrPersistFailed)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, types.AssessmentFailed, out.Status)
	assert.Empty(t, events.events, "failed batches are not announced")

	a := loadAssessment(t, db, out.AssessmentID)
	assert.Equal(t, types.AssessmentFailed, a.Status)

	var rows int64
	require.NoError(t, db.Model(&types.IndicatorResult{}).Where("assessment_id = ?", out.AssessmentID).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestProcessBehaviorPublishFailureBecomesWarning(t *testing.T) {
	db := testutil.DB(t)
	events := &recordingBus{err: errors.New("redis down")}
	svc := newTestService(t, db, knowledgeBase{}, WithBus(events))

	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	out, err := svc.ProcessBehavior(context.Background(), ProcessBehaviorInput{
		Behavior: types.Behavior{
			ProjectID:    uuid.New(),
			Description:  "quarterly fire drill",
			Tags:         []string{"safety"},
			Status:       "completed",
			BehaviorDate: &date,
			Vector:       []float32{1, 0},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, types.AssessmentCompleted, out.Status)
	assert.Equal(t, 1, out.Summary.BehaviorsProcessed)
	require.NotEmpty(t, out.Warnings)
	assert.Contains(t, out.Warnings[len(out.Warnings)-1], "redis down")
}

func TestProcessBehaviorValidation(t *testing.T) {
	svc := newTestService(t, testutil.DB(t), knowledgeBase{})
	_, err := svc.ProcessBehavior(context.Background(), ProcessBehaviorInput{})
	assert.ErrorIs(t, err, ErrMissingProject)

	_, err = svc.ProcessBehavior(context.Background(), ProcessBehaviorInput{Behavior: types.Behavior{ProjectID: uuid.New()}})
	assert.ErrorIs(t, err, ErrMissingBehavior)
}

func TestResultsUnknownAssessment(t *testing.T) {
	svc := newTestService(t, testutil.DB(t), knowledgeBase{})
	_, err := svc.Results(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAssessmentNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProvenanceRows(t *testing.T) {
	results := []mapping.Result{
		{
			BehaviorID:             "b1",
			IndicatorScores:        map[string]float64{"i1": 0.8, "i2": 0.5},
			InfluencingRegulations: map[string][]string{"i1": {"r1"}, "i2": {mapping.FallbackMarker}},
			Contributions: map[string][]mapping.Contribution{
				"i1": {{RegulationID: "r1", Score: 1, HierarchyWeight: 0.6, TimelinessWeight: 0.9, SimilarityWeight: 0.9, Influence: 0.5}},
			},
			Indicators: map[string]types.Indicator{"i1": {ID: "i1", Name: "One"}},
		},
	}
	scores, links := provenance(results, map[string]float64{"i2": 0.5, "i1": 0.8})
	require.Len(t, scores, 2)
	assert.Equal(t, "i1", scores[0].IndicatorID)
	assert.Equal(t, "One", scores[0].Name)
	require.Len(t, links, 2)
	assert.Equal(t, "r1", links[0].RegulationID)
	assert.InDelta(t, 0.8, links[0].Weight, 1e-12)
	assert.Equal(t, "", links[1].RegulationID)
	assert.Equal(t, "i2", links[1].IndicatorID)
}
