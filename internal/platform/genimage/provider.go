//go:build !test_without_external_deps
// +build !test_without_external_deps

package genimage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atelierhq/atelier-api/internal/config"
	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/task"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// ErrInvalidConfig indicates the provider cannot be constructed from the
// given configuration.
var ErrInvalidConfig = errors.New("invalid gemini provider configuration")

// AssetWriter records the completed asset on a generation. Satisfied by
// store.GenerationStore.
type AssetWriter interface {
	AttachAsset(ctx context.Context, generationID uuid.UUID, asset domain.GeneratedAsset) error
}

// Provider implements task.RunnerClient using the Gemini API in-process.
// Used when no remote runner endpoint is configured: it renders the image,
// stores the bytes through the sink, and writes the terminal task status
// directly instead of calling back over HTTP.
type Provider struct {
	client      *genai.Client
	model       string
	sink        AssetSink
	generations AssetWriter
	tasks       task.StatusWriter
	logger      *slog.Logger
}

// NewProvider creates an in-process Gemini image provider.
func NewProvider(
	ctx context.Context,
	cfg config.GeminiConfig,
	sink AssetSink,
	generations AssetWriter,
	tasks task.StatusWriter,
	logger *slog.Logger,
) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.ImageModel == "" {
		return nil, fmt.Errorf("%w: image model cannot be empty", ErrInvalidConfig)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: asset sink cannot be nil", ErrInvalidConfig)
	}
	if generations == nil {
		return nil, fmt.Errorf("%w: generation store cannot be nil", ErrInvalidConfig)
	}
	if tasks == nil {
		return nil, fmt.Errorf("%w: task store cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}

	return &Provider{
		client:      client,
		model:       cfg.ImageModel,
		sink:        sink,
		generations: generations,
		tasks:       tasks,
		logger:      logger.With(slog.String("component", "genimage_provider")),
	}, nil
}

// Ensure Provider implements task.RunnerClient
var _ task.RunnerClient = (*Provider)(nil)

// CreateImage renders one image synchronously and records the outcome. A
// returned error leaves the task pending for the dispatcher to mark as
// errored, mirroring a rejected remote call.
func (p *Provider) CreateImage(ctx context.Context, d task.Dispatch) error {
	log := p.logger.With(
		slog.String("task_id", d.TaskID.String()),
		slog.String("generation_id", d.GenerationID.String()),
	)

	resp, err := p.client.Models.GenerateImages(ctx, p.model, d.Params.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return fmt.Errorf("gemini image generation failed: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return fmt.Errorf("gemini returned no image")
	}
	image := resp.GeneratedImages[0].Image

	key := AssetKey(d.GenerationID)
	if err := p.sink.Save(ctx, key, image.ImageBytes); err != nil {
		return fmt.Errorf("failed to store generated image: %w", err)
	}

	asset := domain.GeneratedAsset{Key: key}
	if d.Params.Width != nil {
		asset.Width = *d.Params.Width
	}
	if d.Params.Height != nil {
		asset.Height = *d.Params.Height
	}
	if err := p.generations.AttachAsset(ctx, d.GenerationID, asset); err != nil {
		return fmt.Errorf("failed to attach asset: %w", err)
	}

	if _, err := p.tasks.MarkTerminal(ctx, d.TaskID, domain.TaskStatusSuccess, nil); err != nil {
		return fmt.Errorf("failed to mark task successful: %w", err)
	}

	log.Info("image generated in-process", slog.String("asset_key", key))
	return nil
}
