package app

import (
	"context"
	"errors"
	"fmt"
	"net"

	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/yungbote/riskwarning-backend/internal/data/db"
	"github.com/yungbote/riskwarning-backend/internal/data/repos"
	httpserver "github.com/yungbote/riskwarning-backend/internal/http"
	httpH "github.com/yungbote/riskwarning-backend/internal/http/handlers"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/retrieval"
	"github.com/yungbote/riskwarning-backend/internal/observability"
	"github.com/yungbote/riskwarning-backend/internal/platform/envutil"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
	"github.com/yungbote/riskwarning-backend/internal/platform/neo4jdb"
	"github.com/yungbote/riskwarning-backend/internal/realtime/bus"
	"github.com/yungbote/riskwarning-backend/internal/services/assessment"
	"github.com/yungbote/riskwarning-backend/internal/temporalx"
	"github.com/yungbote/riskwarning-backend/internal/temporalx/assessrun"
	"github.com/yungbote/riskwarning-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Repos    repos.Set
	Searcher retrieval.Searcher
	Metrics  *observability.Metrics
	Bus      bus.Bus
	Graph    *neo4jdb.Client
	Temporal temporalsdkclient.Client
	Service  assessment.Service
	Server   *httpserver.Server

	pg           *db.PostgresService
	worker       *temporalworker.Runner
	otelShutdown func(context.Context) error
}

// New connects every configured collaborator and wires the service and HTTP
// surface. Optional collaborators without an address stay nil.
func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: envutil.String("APP_ENV", ""),
		Version:     envutil.String("APP_VERSION", ""),
	})

	pg, err := db.NewPostgresService(log, cfg.Postgres)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	gdb := pg.DB()
	if err := db.AutoMigrateAll(gdb); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	if err := db.EnsureRiskIndexes(gdb); err != nil {
		_ = pg.Close()
		return nil, err
	}

	searcher, err := resolveSearcher(ctx, log, cfg)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	a, err := assemble(ctx, log, cfg, gdb, searcher)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}
	a.pg = pg
	a.otelShutdown = otelShutdown
	if sqlDB, err := gdb.DB(); err == nil {
		if err := a.Metrics.RegisterDB(sqlDB, "postgres"); err != nil {
			log.Warn("Database pool metrics not registered", "error", err)
		}
	}
	return a, nil
}

// assemble wires everything downstream of the database and search collaborator.
func assemble(ctx context.Context, log *logger.Logger, cfg Config, gdb *gorm.DB, searcher retrieval.Searcher) (*App, error) {
	a := &App{
		Log:      log,
		Cfg:      cfg,
		DB:       gdb,
		Metrics:  observability.Init(log),
		Searcher: searcher,
	}
	a.Repos = repos.NewSet(gdb, log)

	var err error
	if a.Bus, err = bus.New(log, cfg.Bus); err != nil {
		return nil, fmt.Errorf("init event bus: %w", err)
	}
	if a.Graph, err = neo4jdb.New(log, cfg.Neo4j); err != nil {
		a.closeCollaborators(ctx)
		return nil, fmt.Errorf("init neo4j: %w", err)
	}
	if a.Temporal, err = temporalx.NewClient(log, cfg.Temporal); err != nil {
		a.closeCollaborators(ctx)
		return nil, fmt.Errorf("init temporal: %w", err)
	}

	opts := []assessment.Option{assessment.WithMetrics(a.Metrics)}
	if a.Bus != nil {
		opts = append(opts, assessment.WithBus(a.Bus))
	}
	if a.Graph != nil {
		opts = append(opts, assessment.WithGraph(a.Graph))
	}
	a.Service = assessment.NewService(gdb, log, a.Repos, searcher, cfg.Engine, opts...)

	var starter httpH.AssessmentStarter
	if a.Temporal != nil {
		starter = &assessrun.Starter{
			Client:              a.Temporal,
			TaskQueue:           cfg.Temporal.TaskQueue,
			BatchTimeoutSeconds: int(cfg.Engine.BatchTimeout.Seconds()),
		}
		if a.worker, err = temporalworker.NewRunner(log, a.Temporal, cfg.Temporal, a.Service); err != nil {
			a.closeCollaborators(ctx)
			return nil, err
		}
	}

	log.Info("Wiring handlers...")
	a.Server = httpserver.NewServer(httpserver.RouterConfig{
		Log:               log,
		Metrics:           a.Metrics,
		ServiceName:       cfg.ServiceName,
		HealthHandler:     httpH.NewHealthHandler(gormPinger{db: gdb}),
		AssessmentHandler: httpH.NewAssessmentHandler(log, a.Service, starter),
	})
	return a, nil
}

// StartWorker polls the Temporal task queue until ctx is done. It is a no-op
// when Temporal is not configured.
func (a *App) StartWorker(ctx context.Context) error {
	if a == nil || a.worker == nil {
		return nil
	}
	return a.worker.Start(ctx)
}

// Run serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := net.JoinHostPort("", a.Cfg.Port)
	a.Log.Info("Serving HTTP", "addr", addr)
	return a.Server.Run(ctx, addr, a.Cfg.ShutdownTimeout)
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	a.closeCollaborators(ctx)
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("Postgres close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("Tracer shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}

func (a *App) closeCollaborators(ctx context.Context) {
	if a.Temporal != nil {
		a.Temporal.Close()
		a.Temporal = nil
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			a.Log.Warn("Event bus close failed", "error", err)
		}
		a.Bus = nil
	}
	if a.Graph != nil {
		if err := a.Graph.Close(ctx); err != nil {
			a.Log.Warn("Neo4j close failed", "error", err)
		}
		a.Graph = nil
	}
}

type gormPinger struct {
	db *gorm.DB
}

func (p gormPinger) Ping(ctx context.Context) error {
	if p.db == nil {
		return errors.New("database not configured")
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
