package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SubmitRequest is the dispatch payload sent to the external code judge. The
// judge compiles and runs the code against a held-out test suite and reports
// the verdict back asynchronously via the callback endpoint.
type SubmitRequest struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	QuestionID   uuid.UUID `json:"question_id"`
	Language     string    `json:"language"`
	Code         string    `json:"code"`
}

// Client posts code submissions to the external evaluation service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 6 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Submit enqueues a submission on the judge. A 2xx answer means accepted for
// evaluation, not a verdict; the verdict arrives via the callback.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/evaluations", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("evaluator non-2xx: %d", resp.StatusCode)
	}
	return nil
}

// CallbackPayload is what the judge posts back once evaluation finishes.
type CallbackPayload struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	Passed       bool      `json:"passed"`
}
