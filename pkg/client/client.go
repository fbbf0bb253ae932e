// Package client provides a Go consumer for the Atelier API with an
// optimistic local batch store: callers see a fabricated pending batch
// immediately and the store swaps in the server's confirmed batch when the
// create request lands.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultPollInterval = 2 * time.Second
)

// TaskStatus mirrors the server's async task states.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusSuccess TaskStatus = "success"
	TaskStatusError   TaskStatus = "error"
)

// TaskError is the structured failure detail attached to an errored task.
type TaskError struct {
	Name string `json:"name"`
	Body string `json:"body,omitempty"`
}

// Asset describes a completed generation's output.
type Asset struct {
	Key    string `json:"key"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Task is the status part of a generation.
type Task struct {
	ID     string     `json:"id"`
	Status TaskStatus `json:"status"`
	Error  *TaskError `json:"error,omitempty"`
}

// Generation is one image slot in a batch.
type Generation struct {
	ID        string    `json:"id"`
	Seed      *int64    `json:"seed,omitempty"`
	Asset     *Asset    `json:"asset,omitempty"`
	Task      Task      `json:"task"`
	CreatedAt time.Time `json:"created_at"`
}

// Batch is a generation batch as the server returns it.
type Batch struct {
	ID          string                 `json:"id"`
	TopicID     string                 `json:"topic_id"`
	Provider    string                 `json:"provider"`
	Model       string                 `json:"model"`
	Prompt      string                 `json:"prompt"`
	Width       *int                   `json:"width,omitempty"`
	Height      *int                   `json:"height,omitempty"`
	Config      map[string]interface{} `json:"config"`
	Generations []Generation           `json:"generations"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Terminal reports whether every task in the batch has finished.
func (b *Batch) Terminal() bool {
	for i := range b.Generations {
		if b.Generations[i].Task.Status == TaskStatusPending {
			return false
		}
	}
	return true
}

// CreateImageRequest is the payload for the create-image endpoint. Params
// carries the generation configuration; unknown fields pass through to the
// provider untouched.
type CreateImageRequest struct {
	TopicID  string                 `json:"topicId"`
	Provider string                 `json:"provider"`
	Model    string                 `json:"model"`
	ImageNum int                    `json:"imageNum,omitempty"`
	Params   map[string]interface{} `json:"params"`
}

// Client talks to the Atelier API.
type Client struct {
	baseURL      *url.URL
	token        string
	httpClient   *http.Client
	pollInterval time.Duration

	store *BatchStore
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPollInterval sets how often WaitForBatch re-fetches batch state.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// New creates a client for the API at baseURL authenticating with the given
// bearer token.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:      u,
		token:        token,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		pollInterval: defaultPollInterval,
		store:        NewBatchStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Store exposes the client's local batch store.
func (c *Client) Store() *BatchStore {
	return c.store
}

// CreateImage creates a generation batch. The local store gains an
// optimistic entry under a temporary id before the request is sent; once
// the server responds the entry is replaced wholesale with the confirmed
// batch. The temporary id remains the store key either way, so callers can
// keep rendering the same entry. On request failure the optimistic entry is
// removed.
func (c *Client) CreateImage(ctx context.Context, req CreateImageRequest) (uuid.UUID, *Batch, error) {
	tempID := c.store.PutOptimistic(req)

	confirmed, err := c.postCreateImage(ctx, req)
	if err != nil {
		c.store.Remove(tempID)
		return uuid.Nil, nil, err
	}

	c.store.Confirm(tempID, confirmed)
	return tempID, confirmed, nil
}

// GetBatch fetches the current server state of a batch.
func (c *Client) GetBatch(ctx context.Context, batchID string) (*Batch, error) {
	var batch Batch
	if err := c.do(ctx, http.MethodGet, "/api/batches/"+batchID, nil, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// WaitForBatch polls the batch until every task is terminal or the context
// expires. Each poll result also refreshes the store entry under storeID.
// On context expiry the last observed batch state is returned alongside the
// context's error.
func (c *Client) WaitForBatch(ctx context.Context, storeID uuid.UUID, batchID string) (*Batch, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var last *Batch
	for {
		batch, err := c.GetBatch(ctx, batchID)
		if err != nil {
			// A poll cut short by the deadline still reports what the
			// previous polls saw.
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			return nil, err
		}
		last = batch
		c.store.Confirm(storeID, batch)
		if batch.Terminal() {
			return batch, nil
		}

		select {
		case <-ctx.Done():
			return batch, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) postCreateImage(ctx context.Context, req CreateImageRequest) (*Batch, error) {
	var batch Batch
	if err := c.do(ctx, http.MethodPost, "/api/images", req, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{StatusCode: resp.StatusCode, Body: string(detail)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
}
