package submission

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/opencourse/problem-bank/internal/auth"
	"github.com/opencourse/problem-bank/internal/evaluator"
	"github.com/opencourse/problem-bank/internal/question"
	httperrors "github.com/opencourse/problem-bank/pkg/http/errors"
	"github.com/opencourse/problem-bank/pkg/http/ws"
)

// HTTPHandlers provides REST endpoints for the submission lifecycle.
type HTTPHandlers struct {
	svc         *Service
	hub         *ws.Hub
	upgrader    websocket.Upgrader
	callbackKey string
	logger      zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for submission endpoints. callbackKey
// authenticates the evaluator's verdict callbacks.
func NewHTTPHandlers(svc *Service, hub *ws.Hub, callbackKey string, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		callbackKey: callbackKey,
		logger:      logger.With().Str("component", "submission_http").Logger(),
	}
}

// SubmitRequest is the answer payload. Choice questions use Answers; code
// questions use exactly one of CodeText and CodeFile.
type SubmitRequest struct {
	Answers  []string `json:"answers"`
	CodeText string   `json:"code_text"`
	CodeFile string   `json:"code_file"`
}

// SubmitResponse annotates the stored submission with the tokens granted.
type SubmitResponse struct {
	Submission
	TokensAwarded int `json:"tokens_awarded"`
}

// HandleSubmit handles POST /v1/questions/{id}/submissions.
func (h *HTTPHandlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, ErrNotEligible.Error())
		return
	}

	questionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid question ID")
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	var (
		sub     Submission
		awarded int
	)
	switch {
	case req.CodeText != "" || req.CodeFile != "":
		sub, err = h.svc.SubmitCode(r.Context(), userID, questionID, req.CodeText, req.CodeFile)
	case len(req.Answers) > 0:
		sub, awarded, err = h.svc.SubmitChoice(r.Context(), userID, questionID, req.Answers)
	default:
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMalformedAnswer, "Submission must include answers or code")
		return
	}
	if err != nil {
		h.respondSubmitError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, SubmitResponse{Submission: sub, TokensAwarded: awarded})
}

// HandleListForQuestion handles GET /v1/questions/{id}/submissions: the
// requesting user's own attempts, newest first.
func (h *HTTPHandlers) HandleListForQuestion(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	questionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid question ID")
		return
	}

	subs, err := h.svc.ListForUser(r.Context(), userID, questionID)
	if err != nil {
		h.logger.Error().Err(err).Msg("submission list failed")
		httperrors.RespondInternalError(w, "Failed to fetch submissions")
		return
	}
	if subs == nil {
		subs = []Submission{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"submissions": subs})
}

// HandleGet handles GET /v1/submissions/{id}. Other users' submissions are
// indistinguishable from missing ones.
func (h *HTTPHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid submission ID")
		return
	}

	sub, err := h.svc.GetOwn(r.Context(), userID, id)
	if err != nil {
		h.respondSubmitError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, sub)
}

// HandleEvaluatorCallback handles POST /v1/evaluations/callback. The judge
// authenticates with a shared key; replayed callbacks are acknowledged
// without effect.
func (h *HTTPHandlers) HandleEvaluatorCallback(w http.ResponseWriter, r *http.Request) {
	if h.callbackKey == "" || r.Header.Get("X-Callback-Key") != h.callbackKey {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidCallback, "Invalid callback key")
		return
	}

	var payload evaluator.CallbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidCallback, "Invalid callback payload")
		return
	}
	if payload.SubmissionID == uuid.Nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidCallback, "submission_id is required")
		return
	}

	update, err := h.svc.RecordVerdict(r.Context(), payload.SubmissionID, payload.Passed)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeSubmissionNotFound, "Submission not found")
			return
		}
		h.logger.Error().Err(err).Str("submission_id", payload.SubmissionID.String()).Msg("verdict write-back failed")
		httperrors.RespondInternalError(w, "Failed to record verdict")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"updated":        update.Updated,
		"tokens_awarded": update.Awarded,
	})
}

// HandleVerdictSocket handles GET /ws/verdicts: upgrades the connection and
// registers it for verdict pushes to the authenticated user.
func (h *HTTPHandlers) HandleVerdictSocket(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	wsConn := ws.NewConnection(conn, h.logger)
	h.hub.RegisterConnection(userID, wsConn)

	go wsConn.WritePump()
	go func() {
		defer h.hub.UnregisterConnection(userID)
		wsConn.ReadPump(func(msg ws.Message) error {
			if msg.Type == ws.TypePing {
				return wsConn.Send(ws.Message{Type: ws.TypePong})
			}
			return nil
		})
	}()
}

func (h *HTTPHandlers) respondSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, question.ErrNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeQuestionNotFound, "Question not found")
	case errors.Is(err, ErrNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeSubmissionNotFound, "Submission not found")
	case errors.Is(err, ErrNotEligible):
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, err.Error())
	case errors.Is(err, ErrSubmissionLimit):
		httperrors.RespondUnprocessable(w, httperrors.ErrCodeSubmissionLimit, err.Error())
	case errors.Is(err, ErrDuplicate):
		httperrors.RespondConflict(w, httperrors.ErrCodeDuplicateSubmission, err.Error())
	case errors.Is(err, ErrWrongKind), errors.Is(err, ErrNoCode), errors.Is(err, ErrBothCode), errors.Is(err, question.ErrEmptyAnswer):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMalformedAnswer, err.Error())
	default:
		h.logger.Error().Err(err).Msg("submission operation failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeSubmitFailed, "Failed to process submission")
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
