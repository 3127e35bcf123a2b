package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	agendavoting "assembly/contexts/governance/agenda-voting"
	postgresadapter "assembly/contexts/governance/agenda-voting/adapters/postgres"
	"assembly/contexts/governance/agenda-voting/domain/entities"
	agendaerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/internal/platform/config"
	"assembly/internal/platform/db"
	"assembly/internal/platform/httpserver"
	"assembly/internal/platform/idempotency"
	"assembly/internal/platform/messaging"
	"assembly/internal/platform/scheduler"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server    *httpserver.Server
	scheduler *scheduler.Scheduler
	postgres  *db.Postgres
	logger    *slog.Logger
}

type WorkerApp struct {
	scheduler *scheduler.Scheduler
	postgres  *db.Postgres
	logger    *slog.Logger
}

// Runtime is the wired module plus the resources that back it.
type Runtime struct {
	Config     config.Config
	Module     agendavoting.Module
	Postgres   *db.Postgres
	Repository *postgresadapter.Repository
	Bus        *messaging.Bus
	Logger     *slog.Logger
}

func (r *Runtime) Close() error {
	if r.Postgres != nil {
		return r.Postgres.Close()
	}
	return nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "text") {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler).With("service", cfg.ServiceName)
}

// BuildRuntime loads configuration and wires the agenda module on the
// configured storage.
func BuildRuntime(ctx context.Context, process string) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg).With("process", process)
	bus := messaging.NewBus(cfg.EventBrokers, logger)

	runtime := &Runtime{Config: cfg, Bus: bus, Logger: logger}
	voters := make([]entities.Voter, 0, len(cfg.SeedVoters))
	for _, voter := range cfg.SeedVoters {
		voters = append(voters, entities.Voter{UserID: voter.ID, Name: voter.Name})
	}

	switch cfg.Storage {
	case config.StorageMemory:
		runtime.Module = agendavoting.NewInMemoryModule(voters, bus, logger)
	case config.StoragePostgres:
		pg, err := db.Connect(ctx, cfg.PostgresDSN, db.Options{})
		if err != nil {
			return nil, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		if cfg.AutoMigrate {
			if err := repo.Migrate(ctx); err != nil {
				_ = pg.Close()
				return nil, err
			}
		}
		for _, voter := range voters {
			if err := repo.UpsertUser(ctx, voter); err != nil {
				_ = pg.Close()
				return nil, err
			}
		}
		postgresadapter.RegisterErrorRules(agendaerrors.DefaultClassifier)

		replays := idempotency.New()
		runtime.Postgres = pg
		runtime.Repository = repo
		runtime.Module = agendavoting.NewModule(agendavoting.Dependencies{
			Agendas:        repo,
			Sessions:       repo,
			Votes:          repo,
			Users:          repo,
			UnitOfWork:     repo,
			Outbox:         repo,
			Publisher:      bus,
			Idempotency:    replays,
			Clock:          postgresadapter.SystemClock{},
			IDGen:          postgresadapter.UUIDGenerator{},
			IdempotencyTTL: cfg.IdempotencyTTL,
			SweepBatchSize: cfg.SweepBatchSize,
			Logger:         logger,
		})
		runtime.Module.Replays = replays
	default:
		return nil, errors.New("unsupported storage " + cfg.Storage)
	}
	return runtime, nil
}

// Jobs lists the periodic work of the module at the configured cadence.
func (r *Runtime) Jobs() []scheduler.Job {
	workers := r.Module.Workers
	jobs := []scheduler.Job{{
		Name:       "agenda-expiry-sweep",
		Interval:   r.Config.ExpirySweepInterval,
		RunOnStart: true,
		Run:        workers.ExpirySweeper.RunOnce,
	}}
	if workers.IdempotencySweeper.Cache != nil {
		jobs = append(jobs, scheduler.Job{
			Name:     "idempotency-sweep",
			Interval: r.Config.IdempotencySweepInterval,
			Run:      workers.IdempotencySweeper.RunOnce,
		})
	}
	if workers.OutboxRelay.Outbox != nil {
		jobs = append(jobs, scheduler.Job{
			Name:     "agenda-outbox-relay",
			Interval: r.Config.OutboxRelayInterval,
			Run:      workers.OutboxRelay.RunOnce,
		})
	}
	return jobs
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	runtime, err := BuildRuntime(ctx, "api")
	if err != nil {
		return nil, err
	}
	app := &APIApp{
		server: httpserver.New(
			runtime.Module,
			agendaerrors.DefaultClassifier,
			runtime.Logger,
			normalizeAddr(runtime.Config.HTTPPort),
		),
		postgres: runtime.Postgres,
		logger:   runtime.Logger,
	}
	// The in-memory store is only visible to this process, so its sweepers
	// must run here too.
	if runtime.Config.EnableInProcessWorkers || runtime.Config.Storage == config.StorageMemory {
		app.scheduler = scheduler.New(runtime.Logger, runtime.Jobs()...)
	}
	return app, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	runtime, err := BuildRuntime(ctx, "worker")
	if err != nil {
		return nil, err
	}
	if runtime.Config.Storage != config.StoragePostgres {
		_ = runtime.Close()
		return nil, errors.New("worker process requires STORAGE=postgres")
	}
	return &WorkerApp{
		scheduler: scheduler.New(runtime.Logger, runtime.Jobs()...),
		postgres:  runtime.Postgres,
		logger:    runtime.Logger,
	}, nil
}

// Run serves HTTP until ctx is done, then drains requests and background jobs.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"in_process_workers", a.scheduler != nil,
	)
	group, ctx := errgroup.WithContext(ctx)
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return err
		}
		defer a.scheduler.Stop()
	}
	group.Go(a.server.Start)
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return w.scheduler.Run(ctx)
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
