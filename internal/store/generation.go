package store

import (
	"context"
	"database/sql"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/google/uuid"
)

// GenerationStore defines the interface for generation persistence.
type GenerationStore interface {
	// CreateMultiple saves all given generations in one statement.
	// Callers compose this with batch and task creation inside a single
	// transaction so the rows become visible together.
	CreateMultiple(ctx context.Context, generations []*domain.Generation) error

	// ListByBatch retrieves the generations of a batch in creation order.
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*domain.Generation, error)

	// GetByTaskID retrieves the generation owned by the given async task.
	// Returns ErrGenerationNotFound if no generation references the task.
	GetByTaskID(ctx context.Context, taskID uuid.UUID) (*domain.Generation, error)

	// AttachAsset records the completed asset on a generation.
	// Returns ErrGenerationNotFound if the generation does not exist.
	AttachAsset(ctx context.Context, generationID uuid.UUID, asset domain.GeneratedAsset) error

	// WithTx returns a new GenerationStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) GenerationStore
}
