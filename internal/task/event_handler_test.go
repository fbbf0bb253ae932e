package task

import (
	"context"
	"testing"
	"time"

	"github.com/atelierhq/atelier-api/internal/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchEventHandler(t *testing.T) {
	ctx := context.Background()

	newHandler := func(client *fakeRunnerClient) (*DispatchEventHandler, *Dispatcher) {
		d := NewDispatcher(func() (RunnerClient, error) { return client, nil },
			newFakeStatusWriter(), time.Second, nil)
		return NewDispatchEventHandler(d, nil), d
	}

	t.Run("image generation event triggers dispatch", func(t *testing.T) {
		client := &fakeRunnerClient{}
		handler, d := newHandler(client)

		bd := newBatchDispatch(2)
		event, err := events.NewDispatchEvent(events.EventTypeImageGeneration, bd.BatchID, bd)
		require.NoError(t, err)

		require.NoError(t, handler.HandleEvent(ctx, event))
		d.Wait()

		client.mu.Lock()
		defer client.mu.Unlock()
		assert.Len(t, client.calls, 2)
	})

	t.Run("other event types are ignored", func(t *testing.T) {
		client := &fakeRunnerClient{}
		handler, d := newHandler(client)

		event, err := events.NewDispatchEvent("image_upscale", uuid.Nil, nil)
		require.NoError(t, err)

		require.NoError(t, handler.HandleEvent(ctx, event))
		d.Wait()
		assert.Empty(t, client.calls)
	})

	t.Run("malformed payload is an error", func(t *testing.T) {
		client := &fakeRunnerClient{}
		handler, _ := newHandler(client)

		event, err := events.NewDispatchEvent(events.EventTypeImageGeneration, uuid.New(), "not a plan")
		require.NoError(t, err)
		assert.Error(t, handler.HandleEvent(ctx, event))
	})

	t.Run("nil event rejected", func(t *testing.T) {
		client := &fakeRunnerClient{}
		handler, _ := newHandler(client)
		assert.Error(t, handler.HandleEvent(ctx, nil))
	})
}
