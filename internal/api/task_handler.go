package api

import (
	"net/http"

	"github.com/atelierhq/atelier-api/internal/api/shared"
	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// TaskHandler handles async task status reports from the image runner.
type TaskHandler struct {
	generationService service.GenerationService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(generationService service.GenerationService) *TaskHandler {
	return &TaskHandler{
		generationService: generationService,
	}
}

// UpdateStatus handles PATCH /api/tasks/{id} requests. The route sits
// behind service token auth, not user JWT auth. A report for a missing or
// already-finalized task succeeds without changing anything, so runner
// retries are harmless.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req UpdateTaskStatusRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	var asset *domain.GeneratedAsset
	if req.Asset != nil {
		asset = &domain.GeneratedAsset{
			Key:    req.Asset.Key,
			Width:  req.Asset.Width,
			Height: req.Asset.Height,
		}
	}

	err = h.generationService.UpdateTaskStatus(
		r.Context(),
		taskID,
		domain.TaskStatus(req.Status),
		req.Error,
		asset,
	)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
