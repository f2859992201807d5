package assessment

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/riskwarning-backend/internal/domain"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/mapping"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/retrieval"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

// TaskFunc maps one behavior. It must not touch shared state.
type TaskFunc func(ctx context.Context, b types.Behavior) (mapping.Result, error)

// MapTask retrieves candidates for a behavior and maps it with engine.
func MapTask(r *retrieval.Retriever, engine *mapping.Engine) TaskFunc {
	return func(ctx context.Context, b types.Behavior) (mapping.Result, error) {
		cands := r.Fetch(ctx, b)
		res := engine.Map(b, cands.Indicators, cands.Regulations)
		if len(cands.Warnings) > 0 {
			res.Warnings = append(append([]string{}, cands.Warnings...), res.Warnings...)
		}
		return res, nil
	}
}

// RunReport is what a batch produced. Results are sorted by behavior id.
type RunReport struct {
	Results    []mapping.Result
	Warnings   []string
	Total      int
	Processed  int
	Failed     int
	Unfinished int
	Duration   time.Duration
}

type Runner struct {
	settings Settings
	task     TaskFunc
	log      *logger.Logger
}

func NewRunner(settings Settings, task TaskFunc, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{
		settings: settings.normalized(),
		task:     task,
		log:      log.With("service", "BatchRunner"),
	}
}

// Run fans behaviors out to a fixed pool of workers fed through a bounded
// queue. It returns when every task settled or the batch timeout elapsed,
// whichever is first. Abandoned tasks keep running but their results are
// dropped; ctx is handed to tasks unchanged so in-flight calls are governed by
// their own timeouts.
func (r *Runner) Run(ctx context.Context, behaviors []*types.Behavior) RunReport {
	start := time.Now()
	ctx, span := otel.Tracer("riskwarning/assessment").Start(ctx, "assessment.batch")
	defer span.End()

	acc := newAccumulator()
	batchCtx, cancel := context.WithTimeout(ctx, r.settings.BatchTimeout)
	defer cancel()

	list := uniqueBehaviors(behaviors)
	total := len(list)
	span.SetAttributes(attribute.Int("behaviors", total))

	workers := r.settings.WorkerPoolSize
	if workers > total {
		workers = total
	}
	queue := make(chan types.Behavior, r.settings.QueueDepth)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for b := range queue {
				if batchCtx.Err() != nil {
					continue
				}
				r.runOne(ctx, acc, b)
			}
			return nil
		})
	}

	go func() {
		defer close(queue)
		for _, b := range list {
			select {
			case queue <- b:
			case <-batchCtx.Done():
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-batchCtx.Done():
	}
	acc.seal()

	snap := acc.snapshot()
	report := RunReport{
		Results:   snap.results,
		Warnings:  snap.warnings,
		Total:     total,
		Processed: len(snap.results),
		Failed:    snap.failed,
		Duration:  time.Since(start),
	}
	report.Unfinished = total - report.Processed - report.Failed
	if report.Unfinished > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d behaviors did not finish before the batch timeout", report.Unfinished))
		span.SetStatus(codes.Error, "batch timeout")
		r.log.Warn("Batch timed out", "unfinished", report.Unfinished, "total", total, "timeout", r.settings.BatchTimeout)
	}

	r.log.Info("Batch settled",
		"total", total,
		"processed", report.Processed,
		"failed", report.Failed,
		"unfinished", report.Unfinished,
		"duration", report.Duration,
	)
	return report
}

func (r *Runner) runOne(ctx context.Context, acc *accumulator, b types.Behavior) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Behavior task panicked", "behavior_id", b.ID, "panic", rec)
			acc.fail(b.ID, fmt.Sprintf("behavior %s: unexpected failure: %v", b.ID, rec))
		}
	}()

	ctx, span := otel.Tracer("riskwarning/assessment").Start(ctx, "assessment.behavior")
	span.SetAttributes(attribute.String("behavior.id", b.ID))
	defer span.End()

	if r.task == nil {
		acc.fail(b.ID, fmt.Sprintf("behavior %s: no mapping task configured", b.ID))
		return
	}
	res, err := r.task(ctx, b)
	if err != nil {
		span.RecordError(err)
		r.log.Warn("Behavior task failed", "behavior_id", b.ID, "error", err)
		acc.fail(b.ID, fmt.Sprintf("behavior %s: %v", b.ID, err))
		return
	}
	res.BehaviorID = b.ID
	acc.add(res)
}

// uniqueBehaviors drops nil entries and repeated ids, keeping the first.
func uniqueBehaviors(in []*types.Behavior) []types.Behavior {
	out := make([]types.Behavior, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, b := range in {
		if b == nil {
			continue
		}
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		out = append(out, *b)
	}
	return out
}
