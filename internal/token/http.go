package token

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/opencourse/problem-bank/internal/question"
	httperrors "github.com/opencourse/problem-bank/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for the reward table. Both routes sit
// behind the teacher-role middleware.
type HTTPHandlers struct {
	svc    *Service
	logger zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for token value endpoints.
func NewHTTPHandlers(svc *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		svc:    svc,
		logger: logger.With().Str("component", "token_http").Logger(),
	}
}

// HandleGetTable handles GET /v1/token-values: the full reward table over
// leaf categories, materializing missing cells.
func (h *HTTPHandlers) HandleGetTable(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Table(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("token table fetch failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeTokenTableFetchFailed, "Failed to fetch token values")
		return
	}
	if rows == nil {
		rows = []TableRow{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"difficulties": Difficulties,
		"rows":         rows,
	})
}

// UpdateTableRequest carries bulk reward edits.
type UpdateTableRequest struct {
	Updates []CellUpdate `json:"updates"`
}

// HandleUpdateTable handles PUT /v1/token-values.
func (h *HTTPHandlers) HandleUpdateTable(w http.ResponseWriter, r *http.Request) {
	var req UpdateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	for _, u := range req.Updates {
		if _, err := question.ParseDifficulty(u.Difficulty); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeUnknownDifficulty, "Difficulty must be one of easy, medium or hard")
			return
		}
		if u.Value < 0 {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, "Token value cannot be negative")
			return
		}
	}

	if err := h.svc.UpdateTable(r.Context(), req.Updates); err != nil {
		h.logger.Error().Err(err).Msg("token table update failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeTokenTableUpdateFailed, "Failed to update token values")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"updated": len(req.Updates)})
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
