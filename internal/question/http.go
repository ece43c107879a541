package question

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opencourse/problem-bank/internal/auth"
	httperrors "github.com/opencourse/problem-bank/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for question authoring and browsing.
type HTTPHandlers struct {
	svc    *Service
	logger zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for question endpoints.
func NewHTTPHandlers(svc *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		svc:    svc,
		logger: logger.With().Str("component", "question_http").Logger(),
	}
}

// CreateQuestionRequest is the author payload for all variants.
type CreateQuestionRequest struct {
	Kind               string              `json:"kind"`
	Title              string              `json:"title"`
	Text               string              `json:"text"`
	CategoryID         *uuid.UUID          `json:"category_id"`
	Difficulty         string              `json:"difficulty"`
	VisibleDistractors int                 `json:"visible_distractors"`
	Answers            []string            `json:"answers"`
	Distractors        []string            `json:"distractors"`
	Variables          []map[string]string `json:"variables"`
	Language           string              `json:"language"`
	MaxSubmissions     int                 `json:"max_submissions"`
}

// HandleCreate handles POST /v1/questions.
func (h *HTTPHandlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	var req CreateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	authorID := claims.UserID
	choiceParams := CreateChoiceParams{
		Title:              req.Title,
		Text:               req.Text,
		AuthorID:           &authorID,
		AuthorIsTeacher:    claims.IsTeacher,
		CategoryID:         req.CategoryID,
		Difficulty:         req.Difficulty,
		VisibleDistractors: req.VisibleDistractors,
		AnswerTexts:        req.Answers,
		Distractors:        req.Distractors,
		Variables:          req.Variables,
		MaxSubmissions:     req.MaxSubmissions,
	}

	var (
		q   Question
		err error
	)
	switch Kind(req.Kind) {
	case KindMultipleChoice:
		q, err = h.svc.CreateMultipleChoice(r.Context(), choiceParams)
	case KindCheckbox:
		q, err = h.svc.CreateCheckbox(r.Context(), choiceParams)
	case KindCode:
		q, err = h.svc.CreateCode(r.Context(), CreateCodeParams{
			Title:           req.Title,
			Text:            req.Text,
			AuthorID:        &authorID,
			AuthorIsTeacher: claims.IsTeacher,
			CategoryID:      req.CategoryID,
			Difficulty:      req.Difficulty,
			Language:        req.Language,
			MaxSubmissions:  req.MaxSubmissions,
		})
	default:
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, "Unknown question kind")
		return
	}
	if err != nil {
		h.respondCreateError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, q)
}

// HandleList handles GET /v1/questions: the authoring list. Teachers see
// every question, other users only their own.
func (h *HTTPHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	var authorID *uuid.UUID
	if !claims.IsTeacher {
		authorID = &claims.UserID
	}

	questions, err := h.svc.List(r.Context(), authorID)
	if err != nil {
		h.logger.Error().Err(err).Msg("question list failed")
		httperrors.RespondInternalError(w, "Failed to fetch questions")
		return
	}
	if questions == nil {
		questions = []Question{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"questions": questions})
}

// HandleUpdate handles PUT /v1/questions/{id}. Teacher-only: a verified
// question's content must not be rewritable by its original author.
// Verification status and the submission limit survive the edit.
func (h *HTTPHandlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}
	if !claims.IsTeacher {
		httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "Teacher role required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid question ID")
		return
	}

	var req CreateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	authorID := claims.UserID
	q, err := h.svc.UpdateChoice(r.Context(), id, CreateChoiceParams{
		Title:              req.Title,
		Text:               req.Text,
		AuthorID:           &authorID,
		AuthorIsTeacher:    claims.IsTeacher,
		CategoryID:         req.CategoryID,
		Difficulty:         req.Difficulty,
		VisibleDistractors: req.VisibleDistractors,
		AnswerTexts:        req.Answers,
		Distractors:        req.Distractors,
		Variables:          req.Variables,
	})
	if err != nil {
		h.respondCreateError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, q)
}

// QuestionView is the per-user rendered view returned to solvers. Answer
// labels are never included.
type QuestionView struct {
	ID             uuid.UUID        `json:"id"`
	Kind           Kind             `json:"kind"`
	Title          string           `json:"title"`
	Text           string           `json:"text"`
	Difficulty     Difficulty       `json:"difficulty"`
	CategoryID     *uuid.UUID       `json:"category_id,omitempty"`
	MaxSubmissions int              `json:"max_submissions"`
	Choices        []RenderedChoice `json:"choices,omitempty"`
	Language       string           `json:"language,omitempty"`
}

// HandleGet handles GET /v1/questions/{id}: the requesting user's rendered
// view of the question.
func (h *HTTPHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid question ID")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	q, rendered, err := h.svc.View(r.Context(), id, userID)
	if err != nil {
		h.respondCreateError(w, err)
		return
	}

	view := QuestionView{
		ID:             q.ID,
		Kind:           q.Kind,
		Title:          rendered.Title,
		Text:           rendered.Text,
		Difficulty:     q.Difficulty,
		CategoryID:     q.CategoryID,
		MaxSubmissions: q.MaxSubmissions,
		Choices:        rendered.Choices,
	}
	if q.Code != nil {
		view.Language = q.Code.Language
	}

	h.respondJSON(w, http.StatusOK, view)
}

// HandleProblemSet handles GET /v1/problems with query, difficulty, category
// and solved filters, annotated with token values and the requesting user's
// status buckets.
func (h *HTTPHandlers) HandleProblemSet(w http.ResponseWriter, r *http.Request) {
	f := Filter{
		Query:  r.URL.Query().Get("query"),
		Solved: r.URL.Query().Get("solved"),
	}
	if raw := r.URL.Query().Get("difficulty"); raw != "" {
		difficulty, err := ParseDifficulty(raw)
		if err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeUnknownDifficulty, "Difficulty must be one of easy, medium or hard")
			return
		}
		f.Difficulty = string(difficulty)
	}
	if raw := r.URL.Query().Get("category"); raw != "" {
		catID, err := uuid.Parse(raw)
		if err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid category ID")
			return
		}
		f.CategoryID = &catID
	}

	userID := auth.UserIDFromContext(r.Context())
	problems, err := h.svc.ProblemSet(r.Context(), userID, f)
	if err != nil {
		h.logger.Error().Err(err).Msg("problem set fetch failed")
		httperrors.RespondInternalError(w, "Failed to fetch problems")
		return
	}
	if problems == nil {
		problems = []ProblemSummary{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"problems": problems})
}

func (h *HTTPHandlers) respondCreateError(w http.ResponseWriter, err error) {
	var createErr *CreateError
	switch {
	case errors.Is(err, ErrNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeQuestionNotFound, "Question not found")
	case errors.As(err, &createErr):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeQuestionCreateFailed, createErr.Error())
	default:
		h.logger.Error().Err(err).Msg("question operation failed")
		httperrors.RespondInternalError(w, "Internal error")
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
