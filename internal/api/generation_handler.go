package api

import (
	"encoding/json"
	"net/http"

	"github.com/atelierhq/atelier-api/internal/api/middleware"
	"github.com/atelierhq/atelier-api/internal/api/shared"
	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// defaultImageNum is the generation count when the request omits imageNum.
const defaultImageNum = 4

// GenerationHandler handles image generation batch HTTP requests.
type GenerationHandler struct {
	generationService service.GenerationService
}

// NewGenerationHandler creates a new GenerationHandler.
func NewGenerationHandler(generationService service.GenerationService) *GenerationHandler {
	return &GenerationHandler{
		generationService: generationService,
	}
}

// CreateImage handles POST /api/images requests. The response is 202
// Accepted: every generation starts pending and completes asynchronously.
func (h *GenerationHandler) CreateImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateImageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	topicID, err := uuid.Parse(req.TopicID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid topic ID")
		return
	}

	var config domain.GenerationConfig
	if err := json.Unmarshal(req.Params, &config); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid generation params")
		return
	}

	imageNum := req.ImageNum
	if imageNum == 0 {
		imageNum = defaultImageNum
	}

	detail, err := h.generationService.CreateImage(r.Context(), userID, service.CreateImageParams{
		TopicID:  topicID,
		Provider: req.Provider,
		Model:    req.Model,
		ImageNum: imageNum,
		Config:   config,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, batchToResponse(detail))
}

// GetBatch handles GET /api/batches/{id} requests.
func (h *GenerationHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	batchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid batch ID")
		return
	}

	detail, err := h.generationService.GetBatch(r.Context(), userID, batchID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, batchToResponse(detail))
}

// ListBatches handles GET /api/topics/{topicID}/batches requests.
func (h *GenerationHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	topicID, err := uuid.Parse(chi.URLParam(r, "topicID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid topic ID")
		return
	}

	details, err := h.generationService.ListBatches(r.Context(), userID, topicID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	responses := make([]BatchResponse, 0, len(details))
	for _, detail := range details {
		responses = append(responses, batchToResponse(detail))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// RecreateBatch handles POST /api/batches/{id}/recreate requests.
func (h *GenerationHandler) RecreateBatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	batchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid batch ID")
		return
	}

	detail, err := h.generationService.RecreateBatch(r.Context(), userID, batchID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, batchToResponse(detail))
}

// DeleteBatch handles DELETE /api/batches/{id} requests.
func (h *GenerationHandler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	batchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid batch ID")
		return
	}

	if err := h.generationService.DeleteBatch(r.Context(), userID, batchID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
