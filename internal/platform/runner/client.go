// Package runner provides the HTTP client for the remote image runner.
// The runner accepts create-image calls, renders asynchronously, and
// reports outcomes back through the task status endpoint.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/atelierhq/atelier-api/internal/config"
	"github.com/atelierhq/atelier-api/internal/task"
)

// createImagePath is the runner's task intake endpoint.
const createImagePath = "/v1/generations"

// maxErrorBodyBytes caps how much of a rejection body is read into the
// recorded error message.
const maxErrorBodyBytes = 2048

// Client implements task.RunnerClient against a remote runner over HTTP.
type Client struct {
	endpoint     *url.URL
	serviceToken string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient creates a runner client from configuration. Returns an error
// when the endpoint is missing or not an absolute URL.
func NewClient(cfg config.RunnerConfig, logger *slog.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("runner endpoint is not configured")
	}

	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid runner endpoint: %w", err)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("runner endpoint %q is not an absolute URL", cfg.Endpoint)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint:     endpoint,
		serviceToken: cfg.ServiceToken,
		httpClient:   &http.Client{Timeout: cfg.RunnerTimeout()},
		logger:       logger.With(slog.String("component", "runner_client")),
	}, nil
}

// Ensure Client implements task.RunnerClient
var _ task.RunnerClient = (*Client)(nil)

// createImageRequest is the wire shape of a create-image call.
type createImageRequest struct {
	TaskID       string                 `json:"taskId"`
	GenerationID string                 `json:"generationId"`
	UserID       string                 `json:"userId"`
	Provider     string                 `json:"provider"`
	Model        string                 `json:"model"`
	Params       map[string]interface{} `json:"params"`
}

// CreateImage submits one generation to the runner. A 2xx response means
// the runner accepted the task; any other outcome is an error.
func (c *Client) CreateImage(ctx context.Context, d task.Dispatch) error {
	params, err := paramsAsMap(d)
	if err != nil {
		return fmt.Errorf("failed to encode generation params: %w", err)
	}

	body, err := json.Marshal(createImageRequest{
		TaskID:       d.TaskID.String(),
		GenerationID: d.GenerationID.String(),
		UserID:       d.UserID.String(),
		Provider:     d.Provider,
		Model:        d.Model,
		Params:       params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode create-image request: %w", err)
	}

	reqURL := c.endpoint.JoinPath(createImagePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build create-image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("create-image call failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("runner rejected create-image call: status %d: %s",
			resp.StatusCode, bytes.TrimSpace(msg))
	}

	return nil
}

// paramsAsMap round-trips the generation config through JSON so the wire
// payload is the flat object shape the runner expects, provider-specific
// passthrough fields included.
func paramsAsMap(d task.Dispatch) (map[string]interface{}, error) {
	raw, err := json.Marshal(d.Params)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
