package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/redact"
	"github.com/google/uuid"
)

// defaultDispatchTimeout bounds a single remote create-image call.
const defaultDispatchTimeout = 60 * time.Second

// Dispatcher fans a batch dispatch plan out to the runner, one goroutine
// per generation. Calls are fire-and-forget: the dispatcher records
// failures as terminal task errors and never surfaces them to the request
// that created the batch. Successful calls write nothing; the runner
// reports completion through the task status endpoint.
//
// Nothing bounds the number of in-flight dispatches beyond the per-batch
// size limit enforced at creation time.
type Dispatcher struct {
	clientFactory RunnerClientFactory
	tasks         StatusWriter
	timeout       time.Duration
	logger        *slog.Logger

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. A zero timeout falls back to the
// default. Panics on nil dependencies since the dispatcher cannot operate
// without them.
func NewDispatcher(
	factory RunnerClientFactory,
	tasks StatusWriter,
	timeout time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	if factory == nil {
		panic("dispatcher requires a client factory")
	}
	if tasks == nil {
		panic("dispatcher requires a task status writer")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		clientFactory: factory,
		tasks:         tasks,
		timeout:       timeout,
		logger:        logger.With(slog.String("component", "dispatcher")),
		ctx:           ctx,
		cancelFunc:    cancel,
	}
}

// DispatchBatch launches one goroutine per dispatch and returns
// immediately. If the client cannot be constructed, every pending task of
// the batch is marked as errored instead, so the batch never sits pending
// with no work in flight.
func (d *Dispatcher) DispatchBatch(bd BatchDispatch) {
	log := d.logger.With(slog.String("batch_id", bd.BatchID.String()))

	client, err := d.clientFactory()
	if err != nil {
		log.Error("runner client construction failed",
			slog.String("error", redact.Error(err)))
		d.failBatch(bd.BatchID, err)
		return
	}

	log.Debug("dispatching batch", slog.Int("task_count", len(bd.Dispatches)))

	for _, dispatch := range bd.Dispatches {
		d.wg.Add(1)
		go d.dispatchOne(client, dispatch)
	}
}

// dispatchOne issues a single create-image call and records a terminal
// error on failure. A failure in one dispatch never touches the sibling
// tasks of the batch.
func (d *Dispatcher) dispatchOne(client RunnerClient, dispatch Dispatch) {
	defer d.wg.Done()

	log := d.logger.With(
		slog.String("task_id", dispatch.TaskID.String()),
		slog.String("generation_id", dispatch.GenerationID.String()),
	)

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	if err := client.CreateImage(ctx, dispatch); err != nil {
		log.Warn("create-image call failed",
			slog.String("error", redact.Error(err)))
		d.failTask(dispatch.TaskID, err)
		return
	}

	log.Debug("create-image call accepted")
}

// failTask records a terminal error for one task. Runs on a background
// context: the outcome must be persisted even when the dispatch context
// has expired.
func (d *Dispatcher) failTask(taskID uuid.UUID, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	taskErr := domain.NewServerTaskError(redact.Error(cause))
	if _, err := d.tasks.MarkTerminal(ctx, taskID, domain.TaskStatusError, taskErr); err != nil {
		d.logger.Error("failed to record task error",
			slog.String("task_id", taskID.String()),
			slog.String("error", redact.Error(err)))
	}
}

// failBatch records a terminal error for every still-pending task of the
// batch. Best effort: a persistence failure here is logged and dropped.
func (d *Dispatcher) failBatch(batchID uuid.UUID, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	taskErr := domain.NewServerTaskError(redact.Error(cause))
	count, err := d.tasks.MarkBatchError(ctx, batchID, taskErr)
	if err != nil {
		d.logger.Error("failed to record batch error",
			slog.String("batch_id", batchID.String()),
			slog.String("error", redact.Error(err)))
		return
	}

	d.logger.Info("batch marked as errored",
		slog.String("batch_id", batchID.String()),
		slog.Int64("task_count", count))
}

// Stop cancels in-flight dispatch contexts and waits for all dispatch
// goroutines to finish writing their outcomes.
func (d *Dispatcher) Stop() {
	d.cancelFunc()
	d.wg.Wait()
}

// Wait blocks until all currently launched dispatches have completed.
// Intended for tests and graceful drain without cancellation.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
