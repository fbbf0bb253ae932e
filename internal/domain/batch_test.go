package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func int64Ptr(v int64) *int64     { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestNewGenerationBatch(t *testing.T) {
	userID := uuid.New()
	topicID := uuid.New()

	t.Run("valid batch denormalizes prompt and dimensions", func(t *testing.T) {
		cfg := GenerationConfig{
			Prompt: "a lighthouse at dusk",
			Width:  intPtr(1024),
			Height: intPtr(768),
		}

		batch, err := NewGenerationBatch(userID, topicID, "openai", "gpt-image-1", cfg)
		require.NoError(t, err)
		assert.Equal(t, "a lighthouse at dusk", batch.Prompt)
		assert.Equal(t, 1024, *batch.Width)
		assert.Equal(t, 768, *batch.Height)
	})

	t.Run("missing prompt rejected", func(t *testing.T) {
		_, err := NewGenerationBatch(userID, topicID, "openai", "gpt-image-1", GenerationConfig{})
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	})

	t.Run("missing provider rejected", func(t *testing.T) {
		cfg := GenerationConfig{Prompt: "x"}
		_, err := NewGenerationBatch(userID, topicID, "", "gpt-image-1", cfg)
		assert.ErrorIs(t, err, ErrEmptyBatchProvider)
	})

	t.Run("missing topic rejected", func(t *testing.T) {
		cfg := GenerationConfig{Prompt: "x"}
		_, err := NewGenerationBatch(userID, uuid.Nil, "openai", "gpt-image-1", cfg)
		assert.ErrorIs(t, err, ErrEmptyBatchTopicID)
	})
}

func TestGenerationConfigJSONRoundTrip(t *testing.T) {
	t.Run("passthrough fields survive", func(t *testing.T) {
		in := []byte(`{
			"prompt": "red panda",
			"width": 512,
			"seed": 42,
			"cfg": 7.5,
			"sampler": "euler_a",
			"loras": [{"name": "detail", "weight": 0.8}]
		}`)

		var cfg GenerationConfig
		require.NoError(t, json.Unmarshal(in, &cfg))

		assert.Equal(t, "red panda", cfg.Prompt)
		assert.Equal(t, 512, *cfg.Width)
		assert.Equal(t, int64(42), *cfg.Seed)
		assert.Equal(t, 7.5, *cfg.CFG)
		assert.Contains(t, cfg.Extra, "sampler")
		assert.Contains(t, cfg.Extra, "loras")

		out, err := json.Marshal(cfg)
		require.NoError(t, err)

		var m map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(out, &m))
		assert.JSONEq(t, `"euler_a"`, string(m["sampler"]))
		assert.JSONEq(t, `[{"name": "detail", "weight": 0.8}]`, string(m["loras"]))
	})

	t.Run("absent optional fields stay absent", func(t *testing.T) {
		cfg := GenerationConfig{Prompt: "minimal"}
		out, err := json.Marshal(cfg)
		require.NoError(t, err)

		var m map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(out, &m))
		assert.Contains(t, m, "prompt")
		assert.NotContains(t, m, "seed")
		assert.NotContains(t, m, "width")
	})
}

func TestGenerationConfigClone(t *testing.T) {
	cfg := GenerationConfig{
		Prompt:    "original",
		ImageURLs: []string{"https://cdn.example.com/x.png"},
		Seed:      int64Ptr(7),
		CFG:       floatPtr(4.0),
	}

	clone := cfg.Clone()
	clone.ImageURLs[0] = "files/x.png"
	*clone.Seed = 99

	assert.Equal(t, "https://cdn.example.com/x.png", cfg.ImageURLs[0])
	assert.Equal(t, int64(7), *cfg.Seed)
}

func TestNewGeneration(t *testing.T) {
	batchID := uuid.New()
	taskID := uuid.New()

	t.Run("valid generation", func(t *testing.T) {
		gen, err := NewGeneration(batchID, taskID, int64Ptr(123))
		require.NoError(t, err)
		assert.Equal(t, batchID, gen.BatchID)
		assert.Equal(t, taskID, gen.AsyncTaskID)
		assert.Equal(t, int64(123), *gen.Seed)
		assert.Nil(t, gen.Asset)
	})

	t.Run("task reference required", func(t *testing.T) {
		_, err := NewGeneration(batchID, uuid.Nil, nil)
		assert.ErrorIs(t, err, ErrEmptyGenerationTaskID)
	})

	t.Run("attach asset", func(t *testing.T) {
		gen, err := NewGeneration(batchID, taskID, nil)
		require.NoError(t, err)

		gen.AttachAsset(GeneratedAsset{Key: "generations/abc.png", Width: 512, Height: 512})
		require.NotNil(t, gen.Asset)
		assert.Equal(t, "generations/abc.png", gen.Asset.Key)
	})
}
