package store

import (
	"context"
	"database/sql"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/google/uuid"
)

// GenerationBatchStore defines the interface for generation batch persistence.
type GenerationBatchStore interface {
	// Create saves a new batch to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, batch *domain.GenerationBatch) error

	// GetByID retrieves a batch owned by the given user.
	// Returns ErrBatchNotFound if the batch does not exist or belongs to
	// another user.
	GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.GenerationBatch, error)

	// ListByTopic retrieves all batches under a generation topic for the
	// given user, newest first. Returns an empty slice if none match.
	ListByTopic(ctx context.Context, userID, topicID uuid.UUID) ([]*domain.GenerationBatch, error)

	// Delete removes a batch owned by the given user. Generations and tasks
	// cascade at the database level.
	// Returns ErrBatchNotFound if the batch does not exist or belongs to
	// another user.
	Delete(ctx context.Context, id, userID uuid.UUID) error

	// WithTx returns a new GenerationBatchStore instance that uses the
	// provided transaction. The transaction is created and managed by the
	// caller (typically a service).
	WithTx(tx *sql.Tx) GenerationBatchStore
}
