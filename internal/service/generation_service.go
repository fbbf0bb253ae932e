package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/events"
	"github.com/atelierhq/atelier-api/internal/store"
	"github.com/atelierhq/atelier-api/internal/task"
	"github.com/google/uuid"
)

// CreateImageParams carries a validated create-image request into the
// service layer.
type CreateImageParams struct {
	TopicID  uuid.UUID
	Provider string
	Model    string
	ImageNum int
	Config   domain.GenerationConfig
}

// GenerationDetail pairs a generation with the async task tracking it.
type GenerationDetail struct {
	Generation *domain.Generation `json:"generation"`
	Task       *domain.AsyncTask  `json:"task"`
}

// BatchDetail is a batch together with its generations and their tasks,
// the shape the API returns.
type BatchDetail struct {
	Batch       *domain.GenerationBatch `json:"batch"`
	Generations []GenerationDetail      `json:"generations"`
}

// GenerationService provides image generation batch operations.
type GenerationService interface {
	// CreateImage creates a batch with ImageNum generations and pending
	// tasks in one transaction, then dispatches the remote work.
	CreateImage(ctx context.Context, userID uuid.UUID, params CreateImageParams) (*BatchDetail, error)

	// GetBatch retrieves a batch with its generations and task statuses.
	GetBatch(ctx context.Context, userID, batchID uuid.UUID) (*BatchDetail, error)

	// ListBatches retrieves all batches under a topic, newest first.
	ListBatches(ctx context.Context, userID, topicID uuid.UUID) ([]*BatchDetail, error)

	// RecreateBatch deletes a batch and re-runs it with the same
	// configuration and generation count.
	RecreateBatch(ctx context.Context, userID, batchID uuid.UUID) (*BatchDetail, error)

	// DeleteBatch removes a batch with its generations and tasks.
	DeleteBatch(ctx context.Context, userID, batchID uuid.UUID) error

	// UpdateTaskStatus records a terminal task outcome reported by the
	// runner. Duplicate and unknown task reports are no-ops.
	UpdateTaskStatus(
		ctx context.Context,
		taskID uuid.UUID,
		status domain.TaskStatus,
		taskErr *domain.TaskError,
		asset *domain.GeneratedAsset,
	) error
}

// generationServiceImpl implements the GenerationService interface.
type generationServiceImpl struct {
	db           *sql.DB
	batches      store.GenerationBatchStore
	generations  store.GenerationStore
	tasks        store.AsyncTaskStore
	files        store.FileStore
	emitter      events.EventEmitter
	maxBatchSize int
	logger       *slog.Logger

	// runTx is store.RunInTransaction, replaceable in tests.
	runTx func(ctx context.Context, db *sql.DB, fn store.TxFn) error
}

// NewGenerationService creates a new GenerationService.
// It returns an error if any of the required dependencies are nil.
func NewGenerationService(
	db *sql.DB,
	batches store.GenerationBatchStore,
	generations store.GenerationStore,
	tasks store.AsyncTaskStore,
	files store.FileStore,
	emitter events.EventEmitter,
	maxBatchSize int,
	logger *slog.Logger,
) (GenerationService, error) {
	if db == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "db cannot be nil"}
	}
	if batches == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "batch store cannot be nil"}
	}
	if generations == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "generation store cannot be nil"}
	}
	if tasks == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "task store cannot be nil"}
	}
	if files == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "file store cannot be nil"}
	}
	if emitter == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "event emitter cannot be nil"}
	}
	if maxBatchSize <= 0 {
		return nil, &ServiceError{Operation: "create_service", Message: "max batch size must be positive"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &generationServiceImpl{
		db:           db,
		batches:      batches,
		generations:  generations,
		tasks:        tasks,
		files:        files,
		emitter:      emitter,
		maxBatchSize: maxBatchSize,
		logger:       logger.With(slog.String("component", "generation_service")),
		runTx:        store.RunInTransaction,
	}, nil
}

// CreateImage implements GenerationService.CreateImage.
func (s *generationServiceImpl) CreateImage(
	ctx context.Context,
	userID uuid.UUID,
	params CreateImageParams,
) (*BatchDetail, error) {
	if err := s.validateCreateParams(params); err != nil {
		return nil, err
	}

	// The persisted copy carries storage keys in place of full URLs; the
	// dispatch plan below keeps the caller's original parameters.
	persisted := s.rewriteImageURLs(ctx, params.Config)

	detail, err := s.createBatch(ctx, userID, params, persisted)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, detail, params.Config)
	return detail, nil
}

// validateCreateParams rejects requests the pipeline cannot run.
func (s *generationServiceImpl) validateCreateParams(params CreateImageParams) error {
	if params.TopicID == uuid.Nil {
		return fmt.Errorf("%w: topic ID is required", ErrInvalidRequest)
	}
	if params.Provider == "" {
		return fmt.Errorf("%w: provider is required", ErrInvalidRequest)
	}
	if params.Model == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidRequest)
	}
	if params.Config.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}
	if params.ImageNum < 1 {
		return fmt.Errorf("%w: image count must be at least 1", ErrInvalidRequest)
	}
	if params.ImageNum > s.maxBatchSize {
		return fmt.Errorf("%w: requested %d, limit is %d",
			ErrBatchTooLarge, params.ImageNum, s.maxBatchSize)
	}
	return nil
}

// rewriteImageURLs returns a copy of the config with reference image URLs
// replaced by their storage keys. The rewrite is all-or-nothing: if any URL
// fails to resolve, the caller's original config is persisted unchanged so
// an incomplete file index never blocks a batch.
func (s *generationServiceImpl) rewriteImageURLs(
	ctx context.Context,
	config domain.GenerationConfig,
) domain.GenerationConfig {
	out := config.Clone()
	for i, url := range out.ImageURLs {
		key, err := s.files.ResolveKey(ctx, url)
		if err != nil {
			if !errors.Is(err, store.ErrFileNotFound) {
				s.logger.Warn("image URL lookup failed, keeping original config",
					slog.String("error", err.Error()))
			}
			return config.Clone()
		}
		out.ImageURLs[i] = key
	}
	return out
}

// createBatch builds the batch, generations, and pending tasks and writes
// all of them in a single transaction. On any error nothing is visible.
func (s *generationServiceImpl) createBatch(
	ctx context.Context,
	userID uuid.UUID,
	params CreateImageParams,
	persisted domain.GenerationConfig,
) (*BatchDetail, error) {
	// A seeded request gets pairwise-distinct seeds, one per generation.
	// Without a seed every generation stays unseeded.
	var seeds []int64
	if params.Config.Seed != nil {
		var err error
		seeds, err = task.NewDistinctSeeds(params.ImageNum)
		if err != nil {
			return nil, NewServiceError("create_image", "failed to generate seeds", err)
		}
	}

	batch, err := domain.NewGenerationBatch(userID, params.TopicID, params.Provider, params.Model, persisted)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	asyncTasks := make([]*domain.AsyncTask, 0, params.ImageNum)
	gens := make([]*domain.Generation, 0, params.ImageNum)
	for i := 0; i < params.ImageNum; i++ {
		t, err := domain.NewAsyncTask(userID, domain.TaskTypeImageGeneration)
		if err != nil {
			return nil, NewServiceError("create_image", "failed to build task", err)
		}
		var seed *int64
		if seeds != nil {
			v := seeds[i]
			seed = &v
		}
		g, err := domain.NewGeneration(batch.ID, t.ID, seed)
		if err != nil {
			return nil, NewServiceError("create_image", "failed to build generation", err)
		}
		asyncTasks = append(asyncTasks, t)
		gens = append(gens, g)
	}

	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.batches.WithTx(tx).Create(ctx, batch); err != nil {
			return fmt.Errorf("failed to create batch: %w", err)
		}
		// Tasks before generations: each generation row references its task.
		if err := s.tasks.WithTx(tx).CreateMultiple(ctx, asyncTasks); err != nil {
			return fmt.Errorf("failed to create tasks: %w", err)
		}
		if err := s.generations.WithTx(tx).CreateMultiple(ctx, gens); err != nil {
			return fmt.Errorf("failed to create generations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, NewServiceError("create_image", "transaction failed", err)
	}

	s.logger.Info("generation batch created",
		slog.String("batch_id", batch.ID.String()),
		slog.String("user_id", userID.String()),
		slog.Int("image_count", params.ImageNum))

	detail := &BatchDetail{Batch: batch}
	for i := range gens {
		detail.Generations = append(detail.Generations, GenerationDetail{
			Generation: gens[i],
			Task:       asyncTasks[i],
		})
	}
	return detail, nil
}

// dispatch emits the post-commit event carrying the dispatch plan. The
// batch is already durable; an emission failure is logged and the tasks
// stay pending for the sweeper.
func (s *generationServiceImpl) dispatch(
	ctx context.Context,
	detail *BatchDetail,
	original domain.GenerationConfig,
) {
	plan := task.BatchDispatch{BatchID: detail.Batch.ID}
	for _, gd := range detail.Generations {
		params := original.Clone()
		params.Seed = gd.Generation.Seed
		plan.Dispatches = append(plan.Dispatches, task.Dispatch{
			TaskID:       gd.Task.ID,
			GenerationID: gd.Generation.ID,
			UserID:       detail.Batch.UserID,
			Provider:     detail.Batch.Provider,
			Model:        detail.Batch.Model,
			Params:       params,
		})
	}

	event, err := events.NewDispatchEvent(events.EventTypeImageGeneration, detail.Batch.ID, plan)
	if err != nil {
		s.logger.Error("failed to build dispatch event",
			slog.String("batch_id", detail.Batch.ID.String()),
			slog.String("error", err.Error()))
		return
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit dispatch event",
			slog.String("batch_id", detail.Batch.ID.String()),
			slog.String("error", err.Error()))
	}
}

// GetBatch implements GenerationService.GetBatch.
func (s *generationServiceImpl) GetBatch(
	ctx context.Context,
	userID, batchID uuid.UUID,
) (*BatchDetail, error) {
	batch, err := s.batches.GetByID(ctx, batchID, userID)
	if err != nil {
		return nil, NewServiceError("get_batch", "failed to load batch", err)
	}
	return s.loadDetail(ctx, batch)
}

// ListBatches implements GenerationService.ListBatches.
func (s *generationServiceImpl) ListBatches(
	ctx context.Context,
	userID, topicID uuid.UUID,
) ([]*BatchDetail, error) {
	batches, err := s.batches.ListByTopic(ctx, userID, topicID)
	if err != nil {
		return nil, NewServiceError("list_batches", "failed to list batches", err)
	}

	details := make([]*BatchDetail, 0, len(batches))
	for _, batch := range batches {
		detail, err := s.loadDetail(ctx, batch)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

// loadDetail attaches generations and task statuses to a batch.
func (s *generationServiceImpl) loadDetail(
	ctx context.Context,
	batch *domain.GenerationBatch,
) (*BatchDetail, error) {
	gens, err := s.generations.ListByBatch(ctx, batch.ID)
	if err != nil {
		return nil, NewServiceError("get_batch", "failed to load generations", err)
	}

	detail := &BatchDetail{Batch: batch, Generations: make([]GenerationDetail, 0, len(gens))}
	for _, g := range gens {
		t, err := s.tasks.GetByID(ctx, g.AsyncTaskID)
		if err != nil {
			return nil, NewServiceError("get_batch", "failed to load task", err)
		}
		detail.Generations = append(detail.Generations, GenerationDetail{Generation: g, Task: t})
	}
	return detail, nil
}

// RecreateBatch implements GenerationService.RecreateBatch.
func (s *generationServiceImpl) RecreateBatch(
	ctx context.Context,
	userID, batchID uuid.UUID,
) (*BatchDetail, error) {
	old, err := s.batches.GetByID(ctx, batchID, userID)
	if err != nil {
		return nil, NewServiceError("recreate_batch", "failed to load batch", err)
	}

	gens, err := s.generations.ListByBatch(ctx, old.ID)
	if err != nil {
		return nil, NewServiceError("recreate_batch", "failed to load generations", err)
	}
	imageNum := len(gens)
	if imageNum == 0 {
		imageNum = 1
	}

	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.batches.WithTx(tx).Delete(ctx, batchID, userID)
	})
	if err != nil {
		return nil, NewServiceError("recreate_batch", "failed to delete batch", err)
	}

	params := CreateImageParams{
		TopicID:  old.TopicID,
		Provider: old.Provider,
		Model:    old.Model,
		ImageNum: imageNum,
		Config:   old.Config,
	}

	// The stored config already carries storage keys, so no rewrite pass.
	detail, err := s.createBatch(ctx, userID, params, old.Config.Clone())
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, detail, old.Config)
	return detail, nil
}

// DeleteBatch implements GenerationService.DeleteBatch. The task and batch
// deletes commit together.
func (s *generationServiceImpl) DeleteBatch(ctx context.Context, userID, batchID uuid.UUID) error {
	err := s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.batches.WithTx(tx).Delete(ctx, batchID, userID)
	})
	if err != nil {
		return NewServiceError("delete_batch", "failed to delete batch", err)
	}
	s.logger.Info("generation batch deleted", slog.String("batch_id", batchID.String()))
	return nil
}

// UpdateTaskStatus implements GenerationService.UpdateTaskStatus. The
// transition and the asset write commit together; a report for a missing
// or already-terminal task changes nothing and succeeds.
func (s *generationServiceImpl) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status domain.TaskStatus,
	taskErr *domain.TaskError,
	asset *domain.GeneratedAsset,
) error {
	if status != domain.TaskStatusSuccess && status != domain.TaskStatusError {
		return fmt.Errorf("%w: status must be terminal, got %q", ErrInvalidRequest, status)
	}
	if status == domain.TaskStatusError && taskErr == nil {
		taskErr = domain.NewServerTaskError("")
	}
	if status == domain.TaskStatusSuccess {
		taskErr = nil
	}

	err := s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		transitioned, err := s.tasks.WithTx(tx).MarkTerminal(ctx, taskID, status, taskErr)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		if !transitioned {
			s.logger.Info("ignoring status report for missing or finalized task",
				slog.String("task_id", taskID.String()),
				slog.String("status", string(status)))
			return nil
		}

		if status == domain.TaskStatusSuccess && asset != nil {
			g, err := s.generations.WithTx(tx).GetByTaskID(ctx, taskID)
			if err != nil {
				return fmt.Errorf("failed to load generation for task: %w", err)
			}
			if err := s.generations.WithTx(tx).AttachAsset(ctx, g.ID, *asset); err != nil {
				return fmt.Errorf("failed to attach asset: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return NewServiceError("update_task_status", "transaction failed", err)
	}
	return nil
}
