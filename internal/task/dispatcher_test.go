package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStatusWriter records terminal transitions under a lock so dispatch
// goroutines can report concurrently.
type fakeStatusWriter struct {
	mu            sync.Mutex
	terminal      map[uuid.UUID]*domain.TaskError
	batchErrors   map[uuid.UUID]*domain.TaskError
	markErr       error
	batchAffected int64
}

func newFakeStatusWriter() *fakeStatusWriter {
	return &fakeStatusWriter{
		terminal:    make(map[uuid.UUID]*domain.TaskError),
		batchErrors: make(map[uuid.UUID]*domain.TaskError),
	}
}

func (w *fakeStatusWriter) MarkTerminal(
	ctx context.Context,
	taskID uuid.UUID,
	status domain.TaskStatus,
	taskErr *domain.TaskError,
) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.markErr != nil {
		return false, w.markErr
	}
	if _, done := w.terminal[taskID]; done {
		return false, nil
	}
	w.terminal[taskID] = taskErr
	return true, nil
}

func (w *fakeStatusWriter) MarkBatchError(
	ctx context.Context,
	batchID uuid.UUID,
	taskErr *domain.TaskError,
) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.markErr != nil {
		return 0, w.markErr
	}
	w.batchErrors[batchID] = taskErr
	return w.batchAffected, nil
}

// fakeRunnerClient fails create-image calls for the listed task IDs.
type fakeRunnerClient struct {
	mu     sync.Mutex
	calls  []uuid.UUID
	failOn map[uuid.UUID]error
}

func (c *fakeRunnerClient) CreateImage(ctx context.Context, d Dispatch) error {
	c.mu.Lock()
	c.calls = append(c.calls, d.TaskID)
	c.mu.Unlock()
	if err, ok := c.failOn[d.TaskID]; ok {
		return err
	}
	return nil
}

func newBatchDispatch(n int) BatchDispatch {
	bd := BatchDispatch{BatchID: uuid.New()}
	for i := 0; i < n; i++ {
		bd.Dispatches = append(bd.Dispatches, Dispatch{
			TaskID:       uuid.New(),
			GenerationID: uuid.New(),
			UserID:       uuid.New(),
			Provider:     "runner",
			Model:        "flux-dev",
			Params:       domain.GenerationConfig{Prompt: fmt.Sprintf("prompt %d", i)},
		})
	}
	return bd
}

func TestDispatcherIsolatesFailures(t *testing.T) {
	writer := newFakeStatusWriter()
	client := &fakeRunnerClient{failOn: map[uuid.UUID]error{}}
	factory := func() (RunnerClient, error) { return client, nil }

	d := NewDispatcher(factory, writer, time.Second, nil)
	bd := newBatchDispatch(3)
	failing := bd.Dispatches[1].TaskID
	client.failOn[failing] = errors.New("runner returned 502")

	d.DispatchBatch(bd)
	d.Wait()

	assert.Len(t, client.calls, 3)

	writer.mu.Lock()
	defer writer.mu.Unlock()
	require.Len(t, writer.terminal, 1)
	taskErr := writer.terminal[failing]
	require.NotNil(t, taskErr)
	assert.Equal(t, domain.TaskErrorNameServerError, taskErr.Name)
	assert.Contains(t, taskErr.Body, "runner returned 502")
	assert.Empty(t, writer.batchErrors)
}

func TestDispatcherSuccessWritesNothing(t *testing.T) {
	writer := newFakeStatusWriter()
	client := &fakeRunnerClient{}
	d := NewDispatcher(func() (RunnerClient, error) { return client, nil }, writer, time.Second, nil)

	d.DispatchBatch(newBatchDispatch(2))
	d.Wait()

	writer.mu.Lock()
	defer writer.mu.Unlock()
	assert.Empty(t, writer.terminal)
	assert.Empty(t, writer.batchErrors)
}

func TestDispatcherClientConstructionFailureFailsBatch(t *testing.T) {
	writer := newFakeStatusWriter()
	writer.batchAffected = 4
	factory := func() (RunnerClient, error) {
		return nil, errors.New("invalid runner endpoint")
	}

	d := NewDispatcher(factory, writer, time.Second, nil)
	bd := newBatchDispatch(4)
	d.DispatchBatch(bd)
	d.Wait()

	writer.mu.Lock()
	defer writer.mu.Unlock()
	require.Len(t, writer.batchErrors, 1)
	taskErr := writer.batchErrors[bd.BatchID]
	require.NotNil(t, taskErr)
	assert.Contains(t, taskErr.Body, "invalid runner endpoint")
	// No per-task calls ever started.
	assert.Empty(t, writer.terminal)
}

func TestDispatcherStopWaitsForInFlight(t *testing.T) {
	writer := newFakeStatusWriter()
	started := make(chan struct{})

	client := clientFunc(func(ctx context.Context, d Dispatch) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	d := NewDispatcher(func() (RunnerClient, error) { return client, nil }, writer, time.Minute, nil)
	d.DispatchBatch(newBatchDispatch(1))

	<-started
	d.Stop()

	// Stop returned only after the dispatch goroutine finished. Cancelled
	// context means the call errored and the outcome was recorded.
	writer.mu.Lock()
	defer writer.mu.Unlock()
	assert.Len(t, writer.terminal, 1)
}

// clientFunc adapts a function to the RunnerClient interface.
type clientFunc func(ctx context.Context, d Dispatch) error

func (f clientFunc) CreateImage(ctx context.Context, d Dispatch) error {
	return f(ctx, d)
}
