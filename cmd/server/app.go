package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/atelierhq/atelier-api/internal/config"
	"github.com/atelierhq/atelier-api/internal/events"
	"github.com/atelierhq/atelier-api/internal/platform/genimage"
	"github.com/atelierhq/atelier-api/internal/platform/postgres"
	"github.com/atelierhq/atelier-api/internal/platform/runner"
	"github.com/atelierhq/atelier-api/internal/service"
	"github.com/atelierhq/atelier-api/internal/service/auth"
	"github.com/atelierhq/atelier-api/internal/store"
	"github.com/atelierhq/atelier-api/internal/task"
)

// application holds the server's wired dependencies. Everything hangs off
// this struct so the router and shutdown paths share one set of instances.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	jwtService auth.JWTService

	userService       service.UserService
	generationService service.GenerationService

	dispatcher *task.Dispatcher
	sweeper    *task.Sweeper
}

// newApplication wires the full dependency graph: database, stores, the
// dispatch pipeline, and the services the HTTP handlers sit on.
func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	logger := slog.Default()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	userStore := postgres.NewPostgresUserStore(db, logger)
	batchStore := postgres.NewPostgresGenerationBatchStore(db, logger)
	generationStore := postgres.NewPostgresGenerationStore(db, logger)
	taskStore := postgres.NewPostgresAsyncTaskStore(db, logger)
	fileStore := postgres.NewPostgresFileStore(db, logger)

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	userService, err := service.NewUserService(userStore, jwtService, auth.NewBcryptVerifier(0), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}

	factory := runnerClientFactory(cfg, generationStore, taskStore, logger)
	dispatcher := task.NewDispatcher(factory, taskStore, cfg.Runner.RunnerTimeout(), logger)

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(task.NewDispatchEventHandler(dispatcher, logger))

	generationService, err := service.NewGenerationService(
		db,
		batchStore,
		generationStore,
		taskStore,
		fileStore,
		emitter,
		cfg.Generation.MaxBatchSize,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation service: %w", err)
	}

	app := &application{
		config:            cfg,
		logger:            logger,
		db:                db,
		jwtService:        jwtService,
		userService:       userService,
		generationService: generationService,
		dispatcher:        dispatcher,
	}

	if cfg.Generation.SweeperEnabled {
		app.sweeper = task.NewSweeper(
			taskStore,
			cfg.Generation.StaleTaskAge,
			cfg.Generation.SweepInterval,
			logger,
		)
		app.sweeper.Start()
	}

	return app, nil
}

// runnerClientFactory returns the factory the dispatcher uses to build a
// runner client per batch. A configured endpoint selects the remote HTTP
// runner; otherwise the in-process Gemini provider renders images directly.
func runnerClientFactory(
	cfg *config.Config,
	generations store.GenerationStore,
	tasks store.AsyncTaskStore,
	logger *slog.Logger,
) task.RunnerClientFactory {
	if cfg.Runner.Endpoint != "" {
		return func() (task.RunnerClient, error) {
			return runner.NewClient(cfg.Runner, logger)
		}
	}
	return func() (task.RunnerClient, error) {
		sink, err := genimage.NewDiskSink(cfg.Gemini.AssetDir)
		if err != nil {
			return nil, err
		}
		return genimage.NewProvider(context.Background(), cfg.Gemini, sink, generations, tasks, logger)
	}
}

// cleanup releases application resources during shutdown. The dispatcher is
// stopped first so in-flight status writes still have a live database.
func (app *application) cleanup() {
	app.dispatcher.Stop()
	if app.sweeper != nil {
		app.sweeper.Stop()
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database connection", "error", err)
	}
}
