package api

import (
	"encoding/json"
	"time"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/service"
	"github.com/google/uuid"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	AccessToken string    `json:"token"`
}

// CreateImageRequest defines the payload for the create-image endpoint.
// Params is the generation configuration in the client's shape; unknown
// fields pass through to the provider untouched.
type CreateImageRequest struct {
	TopicID  string          `json:"topicId"  validate:"required,uuid"`
	Provider string          `json:"provider" validate:"required"`
	Model    string          `json:"model"    validate:"required"`
	ImageNum int             `json:"imageNum" validate:"omitempty,gte=1"`
	Params   json.RawMessage `json:"params"   validate:"required"`
}

// UpdateTaskStatusRequest defines the payload the runner sends when a task
// finishes.
type UpdateTaskStatusRequest struct {
	Status string            `json:"status" validate:"required,oneof=success error"`
	Error  *domain.TaskError `json:"error,omitempty"`
	Asset  *AssetResponse    `json:"asset,omitempty"`
}

// AssetResponse describes a completed generation's output.
type AssetResponse struct {
	Key    string `json:"key"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// TaskResponse is the task status part of a generation.
type TaskResponse struct {
	ID     string            `json:"id"`
	Status string            `json:"status"`
	Error  *domain.TaskError `json:"error,omitempty"`
}

// GenerationResponse represents one generation with its task status.
type GenerationResponse struct {
	ID        string         `json:"id"`
	Seed      *int64         `json:"seed,omitempty"`
	Asset     *AssetResponse `json:"asset,omitempty"`
	Task      TaskResponse   `json:"task"`
	CreatedAt time.Time      `json:"created_at"`
}

// BatchResponse represents a generation batch with its generations.
type BatchResponse struct {
	ID          string                  `json:"id"`
	TopicID     string                  `json:"topic_id"`
	Provider    string                  `json:"provider"`
	Model       string                  `json:"model"`
	Prompt      string                  `json:"prompt"`
	Width       *int                    `json:"width,omitempty"`
	Height      *int                    `json:"height,omitempty"`
	Config      domain.GenerationConfig `json:"config"`
	Generations []GenerationResponse    `json:"generations"`
	CreatedAt   time.Time               `json:"created_at"`
}

// batchToResponse converts a service.BatchDetail to a BatchResponse.
func batchToResponse(detail *service.BatchDetail) BatchResponse {
	resp := BatchResponse{
		ID:          detail.Batch.ID.String(),
		TopicID:     detail.Batch.TopicID.String(),
		Provider:    detail.Batch.Provider,
		Model:       detail.Batch.Model,
		Prompt:      detail.Batch.Prompt,
		Width:       detail.Batch.Width,
		Height:      detail.Batch.Height,
		Config:      detail.Batch.Config,
		Generations: make([]GenerationResponse, 0, len(detail.Generations)),
		CreatedAt:   detail.Batch.CreatedAt,
	}

	for _, gd := range detail.Generations {
		gen := GenerationResponse{
			ID:        gd.Generation.ID.String(),
			Seed:      gd.Generation.Seed,
			CreatedAt: gd.Generation.CreatedAt,
			Task: TaskResponse{
				ID:     gd.Task.ID.String(),
				Status: string(gd.Task.Status),
				Error:  gd.Task.Error,
			},
		}
		if gd.Generation.Asset != nil {
			gen.Asset = &AssetResponse{
				Key:    gd.Generation.Asset.Key,
				Width:  gd.Generation.Asset.Width,
				Height: gd.Generation.Asset.Height,
			}
		}
		resp.Generations = append(resp.Generations, gen)
	}

	return resp
}
