package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypePing = "ping"

	// Server -> Client
	TypePong          = "pong"
	TypeVerdictUpdate = "verdict_update"
	TypeError         = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// Server Messages (outgoing)

type VerdictUpdatePayload struct {
	SubmissionID  string `json:"submission_id"`
	QuestionID    string `json:"question_id"`
	Verdict       string `json:"verdict"`
	TokensAwarded int    `json:"tokens_awarded"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
