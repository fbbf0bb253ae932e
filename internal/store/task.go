package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/google/uuid"
)

// AsyncTaskStore defines the interface for async task persistence.
type AsyncTaskStore interface {
	// CreateMultiple saves all given tasks in one statement, in the pending
	// state. Composed with batch and generation creation inside a single
	// transaction.
	CreateMultiple(ctx context.Context, tasks []*domain.AsyncTask) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AsyncTask, error)

	// MarkTerminal transitions a pending task to the given terminal status.
	// The transition is guarded in SQL: a task that is missing or already
	// terminal is left untouched and (false, nil) is returned, making
	// duplicate terminal updates a no-op.
	MarkTerminal(
		ctx context.Context,
		taskID uuid.UUID,
		status domain.TaskStatus,
		taskErr *domain.TaskError,
	) (bool, error)

	// MarkBatchError transitions every still-pending task of a batch to
	// error. Used as the best-effort fallback when dispatch setup fails
	// before any per-task call is issued. Returns the number of tasks
	// transitioned.
	MarkBatchError(ctx context.Context, batchID uuid.UUID, taskErr *domain.TaskError) (int64, error)

	// ListPendingOlderThan retrieves pending tasks whose last update is
	// older than the given age. Used by the stale-task sweeper.
	ListPendingOlderThan(ctx context.Context, age time.Duration) ([]*domain.AsyncTask, error)

	// WithTx returns a new AsyncTaskStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) AsyncTaskStore
}
