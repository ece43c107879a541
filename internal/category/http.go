package category

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	httperrors "github.com/opencourse/problem-bank/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for category browsing.
type HTTPHandlers struct {
	svc    *Service
	logger zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for category endpoints.
func NewHTTPHandlers(svc *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		svc:    svc,
		logger: logger.With().Str("component", "category_http").Logger(),
	}
}

// HandleList handles GET /v1/categories: the full two-level tree, parents
// first.
func (h *HTTPHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("category list failed")
		httperrors.RespondInternalError(w, "Failed to fetch categories")
		return
	}
	if categories == nil {
		categories = []Category{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"categories": categories})
}
