package evaluator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestClientSubmit(t *testing.T) {
	var received SubmitRequest
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/evaluations", r.URL.Path)
		authHeader = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(server.URL, "judge-key", nil)
	req := SubmitRequest{
		SubmissionID: uuid.New(),
		QuestionID:   uuid.New(),
		Language:     "java",
		Code:         "class A {}",
	}
	assert.NoError(t, client.Submit(context.Background(), req))
	assert.Equal(t, req, received)
	assert.Equal(t, "Bearer judge-key", authHeader)
}

func TestClientSubmitNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil)
	err := client.Submit(context.Background(), SubmitRequest{SubmissionID: uuid.New()})
	assert.Error(t, err)
}
