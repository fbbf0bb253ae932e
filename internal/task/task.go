package task

import (
	"context"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/google/uuid"
)

// Dispatch describes one remote create-image call: a single generation
// paired with the async task that tracks it. Params carries the original
// request parameters, not the storage-key-rewritten copy persisted on the
// batch.
type Dispatch struct {
	TaskID       uuid.UUID               `json:"task_id"`
	GenerationID uuid.UUID               `json:"generation_id"`
	UserID       uuid.UUID               `json:"user_id"`
	Provider     string                  `json:"provider"`
	Model        string                  `json:"model"`
	Params       domain.GenerationConfig `json:"params"`
}

// BatchDispatch is the dispatch plan for a whole batch, one Dispatch per
// generation. It is the payload of an image_generation event.
type BatchDispatch struct {
	BatchID    uuid.UUID  `json:"batch_id"`
	Dispatches []Dispatch `json:"dispatches"`
}

// RunnerClient issues a single remote create-image call. The call is
// expected to enqueue work on the runner side; success means the runner
// accepted the task, not that the image exists yet.
type RunnerClient interface {
	CreateImage(ctx context.Context, d Dispatch) error
}

// RunnerClientFactory constructs a RunnerClient for one batch dispatch.
// Construction can fail (bad endpoint, missing credentials); the
// dispatcher treats that as a whole-batch failure.
type RunnerClientFactory func() (RunnerClient, error)

// StatusWriter is the narrow persistence surface the dispatcher needs to
// record task outcomes. Satisfied by store.AsyncTaskStore.
type StatusWriter interface {
	MarkTerminal(
		ctx context.Context,
		taskID uuid.UUID,
		status domain.TaskStatus,
		taskErr *domain.TaskError,
	) (bool, error)
	MarkBatchError(ctx context.Context, batchID uuid.UUID, taskErr *domain.TaskError) (int64, error)
}
