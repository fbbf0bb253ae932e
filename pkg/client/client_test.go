package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serverBatch(id string, statuses ...TaskStatus) Batch {
	generations := make([]Generation, len(statuses))
	for i, status := range statuses {
		generations[i] = Generation{
			ID:   "gen-" + id,
			Task: Task{ID: "task-" + id, Status: status},
		}
		if status == TaskStatusSuccess {
			generations[i].Asset = &Asset{Key: "generations/" + id + ".png", Width: 1024, Height: 1024}
		}
	}
	return Batch{
		ID:          id,
		TopicID:     "11111111-1111-1111-1111-111111111111",
		Provider:    "gemini",
		Model:       "imagen-3",
		Prompt:      "a lighthouse at dusk",
		Generations: generations,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestCreateImageConfirmsOptimisticEntry(t *testing.T) {
	t.Parallel()

	var c *Client
	var lenDuringRequest atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/images", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req CreateImageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 4, req.ImageNum)
		assert.Equal(t, "a lighthouse at dusk", req.Params["prompt"])

		// The optimistic entry must already exist while the request is
		// still in flight.
		lenDuringRequest.Store(int32(c.Store().Len()))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		batch := serverBatch("batch-1", TaskStatusPending, TaskStatusPending, TaskStatusPending, TaskStatusPending)
		require.NoError(t, json.NewEncoder(w).Encode(batch))
	}))
	defer server.Close()

	var err error
	c, err = New(server.URL, "test-token")
	require.NoError(t, err)

	tempID, confirmed, err := c.CreateImage(context.Background(), CreateImageRequest{
		TopicID:  "11111111-1111-1111-1111-111111111111",
		Provider: "gemini",
		Model:    "imagen-3",
		ImageNum: 4,
		Params:   map[string]interface{}{"prompt": "a lighthouse at dusk"},
	})
	require.NoError(t, err)

	assert.Equal(t, int32(1), lenDuringRequest.Load())
	assert.Equal(t, "batch-1", confirmed.ID)

	entry, ok := c.Store().Get(tempID)
	require.True(t, ok)
	assert.Equal(t, StateConfirmed, entry.State)
	// Wholesale replacement: the stored batch is exactly the server's value,
	// not a merge with the optimistic one.
	assert.Equal(t, "batch-1", entry.Batch.ID)
	assert.Len(t, entry.Batch.Generations, 4)
}

func TestCreateImageFailureRemovesOptimisticEntry(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"imageNum exceeds the configured maximum"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	c, err := New(server.URL, "test-token")
	require.NoError(t, err)

	_, _, err = c.CreateImage(context.Background(), CreateImageRequest{
		TopicID:  "11111111-1111-1111-1111-111111111111",
		Provider: "gemini",
		Model:    "imagen-3",
		ImageNum: 99,
		Params:   map[string]interface{}{"prompt": "too many"},
	})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, 0, c.Store().Len())
}

func TestWaitForBatchPollsUntilTerminal(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/batches/batch-2", r.URL.Path)

		var batch Batch
		if polls.Add(1) < 3 {
			batch = serverBatch("batch-2", TaskStatusSuccess, TaskStatusPending)
		} else {
			batch = serverBatch("batch-2", TaskStatusSuccess, TaskStatusError)
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(batch))
	}))
	defer server.Close()

	c, err := New(server.URL, "test-token", WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)

	storeID := c.Store().PutOptimistic(CreateImageRequest{
		TopicID: "11111111-1111-1111-1111-111111111111",
		Params:  map[string]interface{}{"prompt": "slow render"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	batch, err := c.WaitForBatch(ctx, storeID, "batch-2")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
	assert.True(t, batch.Terminal())

	entry, ok := c.Store().Get(storeID)
	require.True(t, ok)
	assert.Equal(t, StateConfirmed, entry.State)
	assert.Equal(t, TaskStatusError, entry.Batch.Generations[1].Task.Status)
}

func TestWaitForBatchContextExpiry(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		batch := serverBatch("batch-3", TaskStatusPending)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(batch))
	}))
	defer server.Close()

	c, err := New(server.URL, "test-token", WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)

	storeID := c.Store().PutOptimistic(CreateImageRequest{
		Params: map[string]interface{}{"prompt": "never finishes"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	batch, err := c.WaitForBatch(ctx, storeID, "batch-3")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, batch)
	assert.False(t, batch.Terminal())
}

func TestWaitForBatchDeadlineDuringPoll(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The second poll outlives the caller's deadline.
		if requests.Add(1) > 1 {
			time.Sleep(200 * time.Millisecond)
		}
		batch := serverBatch("batch-4", TaskStatusPending)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(batch)
	}))
	defer server.Close()

	c, err := New(server.URL, "test-token", WithPollInterval(time.Millisecond))
	require.NoError(t, err)

	storeID := c.Store().PutOptimistic(CreateImageRequest{
		Params: map[string]interface{}{"prompt": "slow server"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	batch, err := c.WaitForBatch(ctx, storeID, "batch-4")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, batch)
	assert.Equal(t, "batch-4", batch.ID)
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	t.Parallel()

	_, err := New("not-a-url", "token")
	require.Error(t, err)
}

func TestOptimisticBatchShape(t *testing.T) {
	t.Parallel()

	store := NewBatchStore()
	id := store.PutOptimistic(CreateImageRequest{
		TopicID:  "22222222-2222-2222-2222-222222222222",
		Provider: "gemini",
		Model:    "imagen-3",
		ImageNum: 3,
		Params:   map[string]interface{}{"prompt": "three variations", "cfg": 7.5},
	})

	entry, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, StateOptimistic, entry.State)
	assert.Equal(t, "three variations", entry.Batch.Prompt)
	require.Len(t, entry.Batch.Generations, 3)
	for _, gen := range entry.Batch.Generations {
		assert.Equal(t, TaskStatusPending, gen.Task.Status)
		assert.Nil(t, gen.Asset)
	}
}
