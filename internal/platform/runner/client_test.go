package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atelierhq/atelier-api/internal/config"
	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/task"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDispatch() task.Dispatch {
	width := 512
	seed := int64(1234)
	return task.Dispatch{
		TaskID:       uuid.New(),
		GenerationID: uuid.New(),
		UserID:       uuid.New(),
		Provider:     "runner",
		Model:        "flux-dev",
		Params: domain.GenerationConfig{
			Prompt: "a lighthouse at dusk",
			Width:  &width,
			Seed:   &seed,
			Extra: map[string]json.RawMessage{
				"sampler": json.RawMessage(`"euler_a"`),
			},
		},
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		wantErr  bool
	}{
		{name: "valid endpoint", endpoint: "https://runner.internal:9000", wantErr: false},
		{name: "missing endpoint", endpoint: "", wantErr: true},
		{name: "relative endpoint", endpoint: "runner.internal", wantErr: true},
		{name: "garbage endpoint", endpoint: "://nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(config.RunnerConfig{Endpoint: tt.endpoint}, nil)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestCreateImage(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted call carries token and flat params", func(t *testing.T) {
		var got createImageRequest
		var auth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, createImagePath, r.URL.Path)
			auth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		client, err := NewClient(config.RunnerConfig{
			Endpoint:     srv.URL,
			ServiceToken: "runner-shared-secret-value-0123456789",
		}, nil)
		require.NoError(t, err)

		d := testDispatch()
		require.NoError(t, client.CreateImage(ctx, d))

		assert.Equal(t, "Bearer runner-shared-secret-value-0123456789", auth)
		assert.Equal(t, d.TaskID.String(), got.TaskID)
		assert.Equal(t, "a lighthouse at dusk", got.Params["prompt"])
		assert.Equal(t, "euler_a", got.Params["sampler"])
		assert.EqualValues(t, 512, got.Params["width"])
	})

	t.Run("rejection surfaces status and body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not available", http.StatusBadGateway)
		}))
		defer srv.Close()

		client, err := NewClient(config.RunnerConfig{Endpoint: srv.URL}, nil)
		require.NoError(t, err)

		err = client.CreateImage(ctx, testDispatch())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
		assert.Contains(t, err.Error(), "model not available")
	})

	t.Run("unreachable runner is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		client, err := NewClient(config.RunnerConfig{Endpoint: srv.URL}, nil)
		require.NoError(t, err)
		assert.Error(t, client.CreateImage(ctx, testDispatch()))
	})
}
