package submission

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opencourse/problem-bank/internal/question"
)

// Submission records one attempt by one user on one question. Immutable after
// insert except for the asynchronous verdict write-back on code submissions.
// Payload is the canonical serialized answer: sorted deduplicated labels for
// choice questions, trimmed source text for code.
type Submission struct {
	ID         uuid.UUID        `json:"id"`
	QuestionID uuid.UUID        `json:"question_id"`
	UserID     uuid.UUID        `json:"user_id"`
	Kind       question.Kind    `json:"kind"`
	Payload    string           `json:"payload"`
	Verdict    question.Verdict `json:"verdict"`
	Partial    bool             `json:"is_partial"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Labels splits a choice payload back into its label set.
func (s Submission) Labels() []string {
	if s.Payload == "" {
		return nil
	}
	return question.NormalizeLabels(strings.Split(s.Payload, ","))
}

// Junction is the per-(user, question) record tracking how many submissions
// were made and whether tokens were already granted. It is maintained
// atomically with submission inserts and is the source of truth for
// eligibility and double-reward prevention.
type Junction struct {
	UserID          uuid.UUID `json:"user_id"`
	QuestionID      uuid.UUID `json:"question_id"`
	SubmissionCount int       `json:"submission_count"`
	TokensReceived  int       `json:"tokens_received"`
}

var (
	// ErrNotFound signals a submission lookup miss.
	ErrNotFound = errors.New("submission not found")
	// ErrNotEligible rejects anonymous submitters.
	ErrNotEligible = errors.New("you need to be logged in to submit answers")
	// ErrSubmissionLimit rejects attempts past max_submissions.
	ErrSubmissionLimit = errors.New("maximum number of submissions reached")
	// ErrDuplicate rejects resubmission of an identical payload.
	ErrDuplicate = errors.New("you have already submitted this answer")
	// ErrWrongKind rejects a payload that does not match the question variant.
	ErrWrongKind = errors.New("answer does not match the question type")
	// ErrNoCode rejects code submissions with neither text nor file.
	ErrNoCode = errors.New("please either submit the code as text or upload a source file")
	// ErrBothCode rejects code submissions with both text and file.
	ErrBothCode = errors.New("both text and file were submitted; please submit only one")
)
