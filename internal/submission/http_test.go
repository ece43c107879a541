package submission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/opencourse/problem-bank/internal/auth"
	"github.com/opencourse/problem-bank/internal/auth/jwt"
	"github.com/opencourse/problem-bank/internal/evaluator"
	"github.com/opencourse/problem-bank/pkg/http/ws"
)

const testCallbackKey = "judge-callback-key"

func newTestServer(t *testing.T, f *fixture) (*httptest.Server, *jwt.Manager) {
	t.Helper()
	logger := zerolog.Nop()
	handlers := NewHTTPHandlers(f.svc, ws.NewHub(logger), testCallbackKey, logger)
	manager := jwt.NewManager(jwt.TokenConfig{Secret: []byte("test-secret")})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/questions/{id}/submissions", handlers.HandleSubmit)
	mux.HandleFunc("GET /v1/questions/{id}/submissions", handlers.HandleListForQuestion)
	mux.HandleFunc("GET /v1/submissions/{id}", handlers.HandleGet)
	mux.HandleFunc("POST /v1/evaluations/callback", handlers.HandleEvaluatorCallback)

	server := httptest.NewServer(auth.Middleware(manager, logger)(mux))
	t.Cleanup(server.Close)
	return server, manager
}

func bearerFor(t *testing.T, manager *jwt.Manager, userID uuid.UUID) string {
	t.Helper()
	token, err := manager.GenerateToken(jwt.User{ID: userID, DisplayName: "tester"})
	assert.NoError(t, err)
	return "Bearer " + token
}

func postJSON(t *testing.T, url, authHeader string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	assert.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	return resp
}

func TestHandleSubmitRequiresAuth(t *testing.T) {
	f := newFixture(0)
	server, _ := newTestServer(t, f)

	resp := postJSON(t, fmt.Sprintf("%s/v1/questions/%s/submissions", server.URL, f.mc.ID), "", SubmitRequest{Answers: []string{"a"}})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleSubmitChoiceStatusMapping(t *testing.T) {
	f := newFixture(3)
	server, manager := newTestServer(t, f)
	userID := uuid.New()
	header := bearerFor(t, manager, userID)
	url := fmt.Sprintf("%s/v1/questions/%s/submissions", server.URL, f.mc.ID)
	wrong := f.wrongLabel(userID)

	resp := postJSON(t, url, header, SubmitRequest{Answers: []string{wrong}})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Identical payload again: conflict, attempt not consumed.
	resp = postJSON(t, url, header, SubmitRequest{Answers: []string{wrong}})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Consume the remaining attempt, then hit the limit.
	resp = postJSON(t, url, header, SubmitRequest{Answers: f.correctLabels(userID)})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created SubmitResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, 3, created.TokensAwarded)

	resp = postJSON(t, url, header, SubmitRequest{Answers: []string{"zz"}})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandleSubmitEmptyPayload(t *testing.T) {
	f := newFixture(0)
	server, manager := newTestServer(t, f)
	header := bearerFor(t, manager, uuid.New())

	resp := postJSON(t, fmt.Sprintf("%s/v1/questions/%s/submissions", server.URL, f.mc.ID), header, SubmitRequest{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Message, "answers or code")
}

func TestHandleSubmitUnknownQuestion(t *testing.T) {
	f := newFixture(0)
	server, manager := newTestServer(t, f)
	header := bearerFor(t, manager, uuid.New())

	resp := postJSON(t, fmt.Sprintf("%s/v1/questions/%s/submissions", server.URL, uuid.New()), header, SubmitRequest{Answers: []string{"a"}})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleEvaluatorCallback(t *testing.T) {
	f := newFixture(4)
	server, manager := newTestServer(t, f)
	userID := uuid.New()
	header := bearerFor(t, manager, userID)

	resp := postJSON(t, fmt.Sprintf("%s/v1/questions/%s/submissions", server.URL, f.code.ID), header, SubmitRequest{CodeText: "class A {}"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created SubmitResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	callbackURL := server.URL + "/v1/evaluations/callback"
	payload := evaluator.CallbackPayload{SubmissionID: created.ID, Passed: true}

	// Missing key is rejected.
	resp = postJSON(t, callbackURL, "", payload)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	data, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, callbackURL, bytes.NewReader(data))
	assert.NoError(t, err)
	req.Header.Set("X-Callback-Key", testCallbackKey)
	resp, err = http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Updated       bool `json:"updated"`
		TokensAwarded int  `json:"tokens_awarded"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Updated)
	assert.Equal(t, 4, result.TokensAwarded)

	// Replay acknowledged without effect.
	req, err = http.NewRequest(http.MethodPost, callbackURL, bytes.NewReader(data))
	assert.NoError(t, err)
	req.Header.Set("X-Callback-Key", testCallbackKey)
	resp, err = http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.Updated)
	assert.Equal(t, 0, result.TokensAwarded)
}

func TestHandleGetHidesForeignSubmission(t *testing.T) {
	f := newFixture(0)
	server, manager := newTestServer(t, f)
	owner := uuid.New()

	resp := postJSON(t, fmt.Sprintf("%s/v1/questions/%s/submissions", server.URL, f.code.ID), bearerFor(t, manager, owner), SubmitRequest{CodeText: "class A {}"})
	defer resp.Body.Close()
	var created SubmitResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/v1/submissions/%s", server.URL, created.ID), nil)
	assert.NoError(t, err)
	req.Header.Set("Authorization", bearerFor(t, manager, uuid.New()))
	resp, err = http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
