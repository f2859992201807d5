package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/riskwarning-backend/internal/domain/risk"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/mapping"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

const (
	DefaultIndicatorLimit  = 3
	DefaultRegulationLimit = 5
	DefaultTimeout         = 10 * time.Second
)

// Query is one search request derived from a behavior.
type Query struct {
	Text   string
	Vector []float32
	Limit  int
}

// Searcher is the search collaborator holding indicator and regulation documents.
type Searcher interface {
	SearchIndicators(ctx context.Context, q Query) ([]mapping.Scored[risk.Indicator], error)
	SearchRegulations(ctx context.Context, q Query) ([]mapping.Scored[risk.Regulation], error)
}

// FailureObserver is notified about every failed query.
type FailureObserver interface {
	ObserveRetrievalFailure(target, kind string)
}

type Candidates struct {
	Indicators  []mapping.Scored[risk.Indicator]
	Regulations []mapping.Scored[risk.Regulation]
	Warnings    []string
}

type Options struct {
	IndicatorLimit  int
	RegulationLimit int
	// Timeout bounds each query separately.
	Timeout  time.Duration
	Observer FailureObserver
}

type Retriever struct {
	searcher Searcher
	opts     Options
	log      *logger.Logger
}

func NewRetriever(searcher Searcher, opts Options, log *logger.Logger) *Retriever {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.IndicatorLimit <= 0 {
		opts.IndicatorLimit = DefaultIndicatorLimit
	}
	if opts.RegulationLimit <= 0 {
		opts.RegulationLimit = DefaultRegulationLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Retriever{
		searcher: searcher,
		opts:     opts,
		log:      log.With("service", "CandidateRetriever"),
	}
}

// BuildQueryText joins the description with the behavior's tags.
func BuildQueryText(b risk.Behavior) string {
	parts := make([]string, 0, len(b.Tags)+1)
	if d := strings.TrimSpace(b.Description); d != "" {
		parts = append(parts, d)
	}
	for _, t := range b.Tags {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Fetch never fails. A failed query yields an empty list and a warning.
func (r *Retriever) Fetch(ctx context.Context, b risk.Behavior) Candidates {
	var out Candidates
	if r == nil || r.searcher == nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("behavior %s: no search collaborator configured", b.ID))
		return out
	}
	text := BuildQueryText(b)
	if text == "" && len(b.Vector) == 0 {
		out.Warnings = append(out.Warnings, fmt.Sprintf("behavior %s: empty query, no candidates retrieved", b.ID))
		return out
	}

	ind, err := runQuery(ctx, r, "indicators", b.ID, func(qctx context.Context) ([]mapping.Scored[risk.Indicator], error) {
		return r.searcher.SearchIndicators(qctx, Query{Text: text, Vector: b.Vector, Limit: r.opts.IndicatorLimit})
	})
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("behavior %s: indicator search failed: %v", b.ID, err))
	}
	out.Indicators = truncate(ind, r.opts.IndicatorLimit)

	regs, err := runQuery(ctx, r, "regulations", b.ID, func(qctx context.Context) ([]mapping.Scored[risk.Regulation], error) {
		return r.searcher.SearchRegulations(qctx, Query{Text: text, Vector: b.Vector, Limit: r.opts.RegulationLimit})
	})
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("behavior %s: regulation search failed: %v", b.ID, err))
	}
	out.Regulations = truncate(regs, r.opts.RegulationLimit)
	return out
}

func runQuery[T any](ctx context.Context, r *Retriever, target, behaviorID string, fn func(context.Context) ([]mapping.Scored[T], error)) (res []mapping.Scored[T], err error) {
	ctx, span := otel.Tracer("riskwarning/retrieval").Start(ctx, "retrieval."+target)
	span.SetAttributes(
		attribute.String("behavior.id", behaviorID),
		attribute.String("retrieval.target", target),
	)
	defer span.End()

	qctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			res, err = nil, fmt.Errorf("search panicked: %v", rec)
		}
		if err != nil {
			res = nil
			kind := ErrorKind(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, kind)
			r.log.Warn("Candidate retrieval failed", "behavior_id", behaviorID, "target", target, "kind", kind, "error", err)
			if r.opts.Observer != nil {
				r.opts.Observer.ObserveRetrievalFailure(target, kind)
			}
			return
		}
		span.SetAttributes(attribute.Int("retrieval.results", len(res)))
	}()

	return fn(qctx)
}

// ErrorKind labels a search error for logs and metrics.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		if c := coded.ErrorCode(); c != "" {
			return c
		}
	}
	return "query_failed"
}

func truncate[T any](in []mapping.Scored[T], limit int) []mapping.Scored[T] {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}
