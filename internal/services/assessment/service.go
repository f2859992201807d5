package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/riskwarning-backend/internal/data/graph"
	"github.com/yungbote/riskwarning-backend/internal/data/repos"
	types "github.com/yungbote/riskwarning-backend/internal/domain"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/mapping"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/persist"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/retrieval"
	"github.com/yungbote/riskwarning-backend/internal/observability"
	"github.com/yungbote/riskwarning-backend/internal/pkg/dbctx"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
	"github.com/yungbote/riskwarning-backend/internal/platform/neo4jdb"
	"github.com/yungbote/riskwarning-backend/internal/realtime/bus"
)

type ProcessInput struct {
	ProjectID uuid.UUID `json:"project_id"`
	ActorID   string    `json:"actor_id,omitempty"`
}

type ProcessBehaviorInput struct {
	Behavior types.Behavior `json:"behavior"`
	ActorID  string         `json:"actor_id,omitempty"`
}

// AggregatedResult is returned to callers once a batch settles.
type AggregatedResult struct {
	AssessmentID           uuid.UUID               `json:"assessmentId"`
	ProjectID              uuid.UUID               `json:"projectId"`
	Status                 string                  `json:"status"`
	IndicatorScores        map[string]float64      `json:"indicatorScores"`
	InfluencingRegulations map[string][]string     `json:"indicatorInfluencingRegulations"`
	Warnings               []string                `json:"warnings"`
	Summary                types.AssessmentSummary `json:"summary"`
	Persisted              persist.Stats           `json:"persisted"`
}

// AssessmentView is a stored assessment with its indicator rows.
type AssessmentView struct {
	Assessment *types.AssessmentResult  `json:"assessment"`
	Indicators []*types.IndicatorResult `json:"indicators"`
}

type Service interface {
	ProcessBehaviors(ctx context.Context, in ProcessInput) (*AggregatedResult, error)
	ProcessBehavior(ctx context.Context, in ProcessBehaviorInput) (*AggregatedResult, error)
	Results(ctx context.Context, assessmentID uuid.UUID) (*AssessmentView, error)
	ListAssessments(ctx context.Context, projectID uuid.UUID, limit int) ([]*types.AssessmentResult, error)
}

type Option func(*service)

// WithBus publishes an AssessmentCompleted event after every terminal batch.
func WithBus(b bus.Bus) Option { return func(s *service) { s.bus = b } }

// WithGraph mirrors scores and contributions into the provenance graph.
func WithGraph(c *neo4jdb.Client) Option { return func(s *service) { s.graph = c } }

func WithMetrics(m *observability.Metrics) Option { return func(s *service) { s.metrics = m } }

// WithTask replaces the retrieve-and-map task; used by tests.
func WithTask(task TaskFunc) Option { return func(s *service) { s.task = task } }

type service struct {
	db       *gorm.DB
	log      *logger.Logger
	repos    repos.Set
	settings Settings
	task     TaskFunc
	runner   *Runner
	writer   *persist.Writer
	bus      bus.Bus
	graph    *neo4jdb.Client
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewService(
	db *gorm.DB,
	baseLog *logger.Logger,
	rs repos.Set,
	searcher retrieval.Searcher,
	settings Settings,
	opts ...Option,
) Service {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	s := &service{
		db:       db,
		log:      baseLog.With("service", "AssessmentService"),
		repos:    rs,
		settings: settings.normalized(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.task == nil {
		var obs retrieval.FailureObserver
		if s.metrics != nil {
			obs = s.metrics
		}
		retriever := retrieval.NewRetriever(searcher, s.settings.retrievalOptions(obs), baseLog)
		engine := mapping.NewEngine(baseLog, s.settings.Thresholds())
		s.task = MapTask(retriever, engine)
	}
	s.runner = NewRunner(s.settings, s.task, baseLog)
	s.writer = persist.NewWriter(db, rs.IndicatorResults, baseLog)
	return s
}

func (s *service) ProcessBehaviors(ctx context.Context, in ProcessInput) (*AggregatedResult, error) {
	if in.ProjectID == uuid.Nil {
		return nil, ErrMissingProject
	}
	behaviors, err := s.repos.Behaviors.ListByProject(dbctx.Context{Ctx: ctx}, in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("list behaviors: %w", err)
	}
	if len(behaviors) == 0 {
		return nil, ErrNoBehaviors
	}
	return s.run(ctx, in.ProjectID, in.ActorID, behaviors)
}

func (s *service) ProcessBehavior(ctx context.Context, in ProcessBehaviorInput) (*AggregatedResult, error) {
	b := in.Behavior
	if b.ProjectID == uuid.Nil {
		return nil, ErrMissingProject
	}
	if strings.TrimSpace(b.Description) == "" && len(b.Tags) == 0 && len(b.Vector) == 0 {
		return nil, ErrMissingBehavior
	}
	if strings.TrimSpace(b.ID) == "" {
		b.ID = uuid.NewString()
	}
	return s.run(ctx, b.ProjectID, in.ActorID, []*types.Behavior{&b})
}

func (s *service) run(ctx context.Context, projectID uuid.UUID, actorID string, behaviors []*types.Behavior) (*AggregatedResult, error) {
	log := s.log.With("project_id", projectID, "actor_id", actorID)
	started := time.Now()

	a, err := s.repos.Assessments.Create(dbctx.Context{Ctx: ctx}, &types.AssessmentResult{
		ProjectID:      projectID,
		Status:         types.AssessmentPending,
		AssessmentDate: s.now(),
	})
	if err != nil {
		log.Error("Create assessment failed", "error", err)
		return nil, fmt.Errorf("%w: create assessment: %w", ErrPersistFailed, err)
	}
	log = log.With("assessment_id", a.ID)

	ok, err := s.repos.Assessments.Transition(dbctx.Context{Ctx: ctx}, a.ID, types.AssessmentPending, types.AssessmentInProgress, nil)
	if err != nil || !ok {
		if err == nil {
			err = ErrAssessmentTransition
		}
		log.Error("Start assessment failed", "error", err)
		return nil, fmt.Errorf("%w: start assessment %s: %w", ErrAssessmentTransition, a.ID, err)
	}
	a.Status = types.AssessmentInProgress

	report := s.runner.Run(ctx, behaviors)
	s.metrics.ObserveBehavior(observability.OutcomeProcessed, report.Processed)
	s.metrics.ObserveBehavior(observability.OutcomeFailed, report.Failed)
	s.metrics.ObserveBehavior(observability.OutcomeTimedOut, report.Unfinished)
	s.metrics.AddFallbackIndicators(countFallback(report.Results))

	scores, influencing := Aggregate(report.Results)
	out := &AggregatedResult{
		AssessmentID:           a.ID,
		ProjectID:              projectID,
		IndicatorScores:        scores,
		InfluencingRegulations: influencing,
		Warnings:               append([]string{}, report.Warnings...),
		Summary: types.AssessmentSummary{
			BehaviorsTotal:     report.Total,
			BehaviorsProcessed: report.Processed,
			BehaviorsFailed:    report.Failed,
			BehaviorsTimedOut:  report.Unfinished,
			IndicatorsScored:   len(scores),
		},
	}

	if report.Processed == 0 {
		s.finish(ctx, log, a, types.AssessmentFailed, out, ErrNoBehaviorsProcessed.Error(), started)
		return out, ErrNoBehaviorsProcessed
	}

	stats, err := s.writer.Apply(dbctx.Context{Ctx: ctx}, a, report.Results)
	if err != nil {
		s.finish(ctx, log, a, types.AssessmentFailed, out, err.Error(), started)
		return out, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	out.Persisted = stats
	s.metrics.ObservePersisted(stats.Inserted, stats.Updated, stats.Skipped)

	if err := s.finish(ctx, log, a, types.AssessmentCompleted, out, "", started); err != nil {
		return out, err
	}

	s.afterCompletion(ctx, log, a, actorID, report.Results, out)
	log.Info("Assessment completed",
		"behaviors", report.Total,
		"processed", report.Processed,
		"indicators", len(scores),
		"warnings", len(out.Warnings),
	)
	return out, nil
}

// finish moves the assessment to a terminal status. It runs detached from
// ctx cancellation so a canceled caller still leaves a terminal record.
func (s *service) finish(ctx context.Context, log *logger.Logger, a *types.AssessmentResult, to string, out *AggregatedResult, errMsg string, started time.Time) error {
	out.Status = to
	out.Summary.Warnings = out.Warnings
	updates := map[string]interface{}{
		"details": encodeSummary(out.Summary),
	}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	if to == types.AssessmentCompleted && len(out.IndicatorScores) > 0 {
		overall := meanScore(out.IndicatorScores)
		updates["overall_score"] = overall
		a.OverallScore = &overall
	}

	wctx := context.WithoutCancel(ctx)
	ok, err := s.repos.Assessments.Transition(dbctx.Context{Ctx: wctx}, a.ID, types.AssessmentInProgress, to, updates)
	s.metrics.ObserveBatch(to, time.Since(started))
	if err != nil || !ok {
		if err == nil {
			err = ErrAssessmentTransition
		}
		log.Error("Finish assessment failed", "to", to, "error", err)
		if to == types.AssessmentCompleted {
			return fmt.Errorf("%w: complete assessment %s: %w", ErrAssessmentTransition, a.ID, err)
		}
		return err
	}
	a.Status = to
	return nil
}

// afterCompletion runs the optional collaborators. Their failures become warnings.
func (s *service) afterCompletion(ctx context.Context, log *logger.Logger, a *types.AssessmentResult, actorID string, results []mapping.Result, out *AggregatedResult) {
	if s.bus != nil {
		ev := bus.AssessmentCompleted{
			EventID:            uuid.New(),
			AssessmentID:       a.ID,
			ProjectID:          a.ProjectID,
			ActorID:            actorID,
			Status:             out.Status,
			IndicatorScores:    out.IndicatorScores,
			BehaviorsProcessed: out.Summary.BehaviorsProcessed,
			WarningCount:       len(out.Warnings),
			CompletedAt:        s.now(),
		}
		if err := s.bus.PublishAssessmentCompleted(ctx, ev); err != nil {
			log.Warn("Publish assessment event failed", "error", err)
			out.Warnings = append(out.Warnings, fmt.Sprintf("assessment event not published: %v", err))
		}
	}
	if s.graph != nil {
		scores, links := provenance(results, out.IndicatorScores)
		if err := graph.UpsertAssessmentProvenance(ctx, s.graph, log, a, scores, links); err != nil {
			log.Warn("Provenance sync failed", "error", err)
			out.Warnings = append(out.Warnings, fmt.Sprintf("provenance graph not updated: %v", err))
		}
	}
}

func (s *service) Results(ctx context.Context, assessmentID uuid.UUID) (*AssessmentView, error) {
	if assessmentID == uuid.Nil {
		return nil, ErrAssessmentNotFound
	}
	dbc := dbctx.Context{Ctx: ctx}
	a, err := s.repos.Assessments.GetByID(dbc, assessmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAssessmentNotFound
	}
	rows, err := s.repos.IndicatorResults.ListByAssessment(dbc, assessmentID)
	if err != nil {
		return nil, err
	}
	return &AssessmentView{Assessment: a, Indicators: rows}, nil
}

func (s *service) ListAssessments(ctx context.Context, projectID uuid.UUID, limit int) ([]*types.AssessmentResult, error) {
	if projectID == uuid.Nil {
		return nil, ErrMissingProject
	}
	return s.repos.Assessments.ListByProject(dbctx.Context{Ctx: ctx}, projectID, limit)
}

// IsInputError reports whether err should be shown to the caller as a validation failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingProject) ||
		errors.Is(err, ErrMissingBehavior) ||
		errors.Is(err, ErrNoBehaviors) ||
		errors.Is(err, ErrNoBehaviorsProcessed)
}

func encodeSummary(sum types.AssessmentSummary) datatypes.JSON {
	raw, err := json.Marshal(sum)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(raw)
}

func meanScore(scores map[string]float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sum float64
	for _, k := range keys {
		sum += scores[k]
	}
	return sum / float64(len(scores))
}

func countFallback(results []mapping.Result) int {
	n := 0
	for _, res := range results {
		for _, regs := range res.InfluencingRegulations {
			if len(regs) == 1 && regs[0] == mapping.FallbackMarker {
				n++
			}
		}
	}
	return n
}
