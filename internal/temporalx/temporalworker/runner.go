package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/riskwarning-backend/internal/platform/envutil"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
	"github.com/yungbote/riskwarning-backend/internal/services/assessment"
	"github.com/yungbote/riskwarning-backend/internal/temporalx"
	"github.com/yungbote/riskwarning-backend/internal/temporalx/assessrun"
)

type Runner struct {
	log *logger.Logger
	tc  temporalsdkclient.Client
	cfg temporalx.Config
	svc assessment.Service
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, svc assessment.Service) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if svc == nil {
		return nil, fmt.Errorf("temporal worker missing assessment service")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.TaskQueue == "" {
		cfg.TaskQueue = temporalx.DefaultTaskQueue
	}
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}
	return &Runner{
		log: log.With("service", "TemporalWorker"),
		tc:  tc,
		cfg: cfg,
		svc: svc,
	}, nil
}

// Start polls the task queue until ctx is done. Start failures are retried
// until TEMPORAL_WORKER_START_MAX_WAIT_SECONDS elapses.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	r.log.Info("Starting Temporal worker", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	maxWait := envutil.Seconds("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60*time.Second)
	deadline := time.Now().Add(maxWait)

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && r.cfg.AutoRegister {
			if err := temporalx.EnsureNamespace(ctx, r.log, r.cfg); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}

		if maxWait <= 0 || time.Now().After(deadline) {
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "attempt", attempt, "error", startErr)
		time.Sleep(time.Duration(attempt) * 250 * time.Millisecond)
	}
}

func (r *Runner) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.cfg.WorkerConcurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.cfg.WorkerConcurrency,
	})
	acts := &assessrun.Activities{Log: r.log, Service: r.svc}
	w.RegisterWorkflowWithOptions(assessrun.Workflow, workflow.RegisterOptions{Name: assessrun.WorkflowName})
	w.RegisterActivityWithOptions(acts.ProcessProjectBehaviors, activity.RegisterOptions{Name: assessrun.ActivityProcess})
	return w
}
