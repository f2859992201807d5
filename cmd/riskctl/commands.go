package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/riskwarning-backend/internal/app"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/retrieval"
	"github.com/yungbote/riskwarning-backend/internal/platform/envutil"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
	"github.com/yungbote/riskwarning-backend/internal/realtime/bus"
	"github.com/yungbote/riskwarning-backend/internal/services/assessment"
)

type deps struct {
	openApp      func(ctx context.Context) (*app.App, error)
	openBus      func(log *logger.Logger) (bus.Bus, error)
	openSearcher func(ctx context.Context, log *logger.Logger) (retrieval.Searcher, error)
}

func defaultDeps() deps {
	return deps{
		openApp: app.New,
		openBus: func(log *logger.Logger) (bus.Bus, error) {
			return bus.New(log, bus.ConfigFromEnv())
		},
		openSearcher: app.OpenSearcher,
	}
}

func newRootCmd(d deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "riskctl",
		Short:         "Operate the behavior-to-indicator risk mapping engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newProcessCmd(d),
		newServeCmd(d),
		newWorkerCmd(d),
		newWatchCmd(d),
		newIndexCmd(d),
		newLoadBehaviorsCmd(d),
	)
	return root
}

func newProcessCmd(d deps) *cobra.Command {
	var (
		projectID string
		actorID   string
	)
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Assess every behavior of a project and print the aggregated result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := uuid.Parse(projectID)
			if err != nil {
				return fmt.Errorf("invalid --project %q: %w", projectID, err)
			}
			a, err := d.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(a)

			out, runErr := a.Service.ProcessBehaviors(cmd.Context(), assessment.ProcessInput{
				ProjectID: pid,
				ActorID:   actorID,
			})
			if out != nil {
				if err := printJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id (uuid)")
	cmd.Flags().StringVar(&actorID, "actor", envutil.String("RISK_ACTOR_ID", ""), "actor recorded on the assessment")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newServeCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, plus the Temporal worker when configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := d.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(a)
			if err := a.StartWorker(cmd.Context()); err != nil {
				a.Log.Warn("Temporal worker not started", "error", err)
			}
			return a.Run(cmd.Context())
		},
	}
}

func newWorkerCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run only the Temporal worker for asynchronous assessments",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := d.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(a)
			if a.Temporal == nil {
				return fmt.Errorf("temporal is not configured (set TEMPORAL_ADDRESS)")
			}
			if err := a.StartWorker(cmd.Context()); err != nil {
				return err
			}
			<-cmd.Context().Done()
			return nil
		},
	}
}

func newWatchCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print assessment-completed events from the event bus as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(envutil.String("LOG_MODE", "production"))
			if err != nil {
				return err
			}
			defer log.Sync()

			b, err := d.openBus(log)
			if err != nil {
				return err
			}
			if b == nil {
				return fmt.Errorf("event bus is not configured (set REDIS_ADDR or NATS_URL)")
			}
			defer b.Close()

			w := cmd.OutOrStdout()
			events := make(chan bus.AssessmentCompleted, 16)
			if err := b.Subscribe(cmd.Context(), func(ev bus.AssessmentCompleted) {
				select {
				case events <- ev:
				case <-cmd.Context().Done():
				}
			}); err != nil {
				return err
			}
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case ev := <-events:
					if err := writeJSONLine(w, ev); err != nil {
						return err
					}
				}
			}
		},
	}
}

func newIndexCmd(d deps) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Load indicators and regulations from a JSON or YAML file into the search index",
		RunE: func(cmd *cobra.Command, args []string) error {
			var kb app.KnowledgeBase
			if err := app.ReadDocumentFile(file, &kb); err != nil {
				return err
			}
			log, err := logger.New(envutil.String("LOG_MODE", "production"))
			if err != nil {
				return err
			}
			defer log.Sync()

			s, err := d.openSearcher(cmd.Context(), log)
			if err != nil {
				return err
			}
			stats, err := app.IndexKnowledgeBase(cmd.Context(), log, s, kb)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "knowledge base file (.json, .yaml)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newLoadBehaviorsCmd(d deps) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "load-behaviors",
		Short: "Store a project's behaviors from a JSON or YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var f app.BehaviorFile
			if err := app.ReadDocumentFile(file, &f); err != nil {
				return err
			}
			a, err := d.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(a)

			n, err := app.LoadBehaviors(cmd.Context(), a.Repos, f)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"project_id": f.ProjectID, "behaviors": n})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "behavior file (.json, .yaml)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func closeApp(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Close(ctx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
