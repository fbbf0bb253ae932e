package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for GenerationBatch
var (
	ErrEmptyBatchID       = errors.New("batch ID cannot be empty")
	ErrEmptyBatchUserID   = errors.New("batch user ID cannot be empty")
	ErrEmptyBatchTopicID  = errors.New("batch topic ID cannot be empty")
	ErrEmptyBatchProvider = errors.New("batch provider cannot be empty")
	ErrEmptyBatchModel    = errors.New("batch model cannot be empty")
	ErrEmptyPrompt        = errors.New("prompt cannot be empty")
)

// GenerationConfig holds the generation parameters of a batch. Known fields
// are typed; anything else the client sends is carried through unmodified in
// Extra so provider-specific knobs survive the round trip to the provider.
type GenerationConfig struct {
	Prompt    string
	ImageURLs []string
	Width     *int
	Height    *int
	Seed      *int64
	Steps     *int
	CFG       *float64
	Extra     map[string]json.RawMessage
}

// knownConfigFields are the JSON keys handled by the typed fields above.
var knownConfigFields = map[string]bool{
	"prompt":    true,
	"imageUrls": true,
	"width":     true,
	"height":    true,
	"seed":      true,
	"steps":     true,
	"cfg":       true,
}

// MarshalJSON flattens Extra alongside the typed fields so the persisted
// config is a single JSON object in the shape the client sent.
func (c GenerationConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(c.Extra)+7)
	for k, v := range c.Extra {
		if knownConfigFields[k] {
			continue
		}
		out[k] = v
	}

	put := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out[key] = raw
		return nil
	}

	if err := put("prompt", c.Prompt); err != nil {
		return nil, err
	}
	if c.ImageURLs != nil {
		if err := put("imageUrls", c.ImageURLs); err != nil {
			return nil, err
		}
	}
	if c.Width != nil {
		if err := put("width", c.Width); err != nil {
			return nil, err
		}
	}
	if c.Height != nil {
		if err := put("height", c.Height); err != nil {
			return nil, err
		}
	}
	if c.Seed != nil {
		if err := put("seed", c.Seed); err != nil {
			return nil, err
		}
	}
	if c.Steps != nil {
		if err := put("steps", c.Steps); err != nil {
			return nil, err
		}
	}
	if c.CFG != nil {
		if err := put("cfg", c.CFG); err != nil {
			return nil, err
		}
	}

	return json.Marshal(out)
}

// UnmarshalJSON splits a config object into the typed fields and Extra.
func (c *GenerationConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	take := func(key string, dst any) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		return json.Unmarshal(v, dst)
	}

	if err := take("prompt", &c.Prompt); err != nil {
		return err
	}
	if err := take("imageUrls", &c.ImageURLs); err != nil {
		return err
	}
	if err := take("width", &c.Width); err != nil {
		return err
	}
	if err := take("height", &c.Height); err != nil {
		return err
	}
	if err := take("seed", &c.Seed); err != nil {
		return err
	}
	if err := take("steps", &c.Steps); err != nil {
		return err
	}
	if err := take("cfg", &c.CFG); err != nil {
		return err
	}

	for k := range raw {
		if knownConfigFields[k] {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]json.RawMessage)
		}
		c.Extra[k] = raw[k]
	}

	return nil
}

// Clone returns a deep copy of the config. The dispatcher sends the original
// parameters to the provider while the persisted copy may carry rewritten
// image URLs, so the two must not share storage.
func (c GenerationConfig) Clone() GenerationConfig {
	out := c
	if c.ImageURLs != nil {
		out.ImageURLs = append([]string(nil), c.ImageURLs...)
	}
	if c.Width != nil {
		v := *c.Width
		out.Width = &v
	}
	if c.Height != nil {
		v := *c.Height
		out.Height = &v
	}
	if c.Seed != nil {
		v := *c.Seed
		out.Seed = &v
	}
	if c.Steps != nil {
		v := *c.Steps
		out.Steps = &v
	}
	if c.CFG != nil {
		v := *c.CFG
		out.CFG = &v
	}
	if c.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// GenerationBatch is one user request's worth of configuration: provider,
// model, prompt, dimensions, and arbitrary provider config. It owns N
// generations and is immutable after creation.
type GenerationBatch struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	TopicID   uuid.UUID        `json:"topic_id"`
	Provider  string           `json:"provider"`
	Model     string           `json:"model"`
	Prompt    string           `json:"prompt"`
	Width     *int             `json:"width,omitempty"`
	Height    *int             `json:"height,omitempty"`
	Config    GenerationConfig `json:"config"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewGenerationBatch creates a new batch for the given user and topic.
// The batch's prompt and dimensions are denormalized out of the config for
// cheap listing queries.
func NewGenerationBatch(
	userID, topicID uuid.UUID,
	provider, model string,
	config GenerationConfig,
) (*GenerationBatch, error) {
	now := time.Now().UTC()
	b := &GenerationBatch{
		ID:        uuid.New(),
		UserID:    userID,
		TopicID:   topicID,
		Provider:  provider,
		Model:     model,
		Prompt:    config.Prompt,
		Width:     config.Width,
		Height:    config.Height,
		Config:    config,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}

	return b, nil
}

// Validate checks if the GenerationBatch has valid data.
func (b *GenerationBatch) Validate() error {
	if b.ID == uuid.Nil {
		return ErrEmptyBatchID
	}

	if b.UserID == uuid.Nil {
		return ErrEmptyBatchUserID
	}

	if b.TopicID == uuid.Nil {
		return ErrEmptyBatchTopicID
	}

	if b.Provider == "" {
		return ErrEmptyBatchProvider
	}

	if b.Model == "" {
		return ErrEmptyBatchModel
	}

	if b.Prompt == "" {
		return ErrEmptyPrompt
	}

	return nil
}
