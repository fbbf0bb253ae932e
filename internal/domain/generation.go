package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Generation
var (
	ErrEmptyGenerationID     = errors.New("generation ID cannot be empty")
	ErrEmptyGenerationBatch  = errors.New("generation batch ID cannot be empty")
	ErrEmptyGenerationTaskID = errors.New("generation task ID cannot be empty")
)

// GeneratedAsset describes the completed output of a generation. The blob
// itself lives in external object storage; only the storage key and
// dimensions are recorded here.
type GeneratedAsset struct {
	Key    string `json:"key"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Generation is one unit of output (one image) within a batch. It is
// created together with its batch and its async task in a single
// transaction, so a generation is never observable without the task that
// owns its background work. After creation it is mutated only to attach the
// completed asset.
type Generation struct {
	ID          uuid.UUID       `json:"id"`
	BatchID     uuid.UUID       `json:"batch_id"`
	AsyncTaskID uuid.UUID       `json:"async_task_id"`
	Seed        *int64          `json:"seed,omitempty"`
	Asset       *GeneratedAsset `json:"asset,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewGeneration creates a generation bound to its batch and async task.
// A nil seed means the provider picks its own.
func NewGeneration(batchID, taskID uuid.UUID, seed *int64) (*Generation, error) {
	now := time.Now().UTC()
	g := &Generation{
		ID:          uuid.New(),
		BatchID:     batchID,
		AsyncTaskID: taskID,
		Seed:        seed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return g, nil
}

// Validate checks if the Generation has valid data. Every generation must
// reference exactly one async task.
func (g *Generation) Validate() error {
	if g.ID == uuid.Nil {
		return ErrEmptyGenerationID
	}

	if g.BatchID == uuid.Nil {
		return ErrEmptyGenerationBatch
	}

	if g.AsyncTaskID == uuid.Nil {
		return ErrEmptyGenerationTaskID
	}

	return nil
}

// AttachAsset records the completed asset on the generation.
func (g *Generation) AttachAsset(asset GeneratedAsset) {
	g.Asset = &asset
	g.UpdatedAt = time.Now().UTC()
}
