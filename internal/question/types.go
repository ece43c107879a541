package question

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Difficulty levels. Stored as-is; the enum is closed.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty validates a raw difficulty value.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch Difficulty(raw) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(raw), nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", raw)
	}
}

// Kind tags the question variant.
type Kind string

const (
	KindMultipleChoice Kind = "multiple_choice"
	KindCheckbox       Kind = "checkbox"
	KindCode           Kind = "code"
)

// ChoiceSpec carries the fields owned by choice-based variants. Choices maps
// internal labels to display text; AnswerLabels references entries of that map
// (a single label for multiple choice, a set for checkbox). Labels are
// internal only: rendering reassigns display labels per user.
type ChoiceSpec struct {
	Choices            map[string]string `json:"choices"`
	AnswerLabels       []string          `json:"answer_labels"`
	VisibleDistractors int               `json:"visible_distractors"`
}

// DistractorLabels returns the labels that are not part of the answer.
func (c ChoiceSpec) DistractorLabels() []string {
	answer := make(map[string]struct{}, len(c.AnswerLabels))
	for _, l := range c.AnswerLabels {
		answer[l] = struct{}{}
	}
	var out []string
	for label := range c.Choices {
		if _, ok := answer[label]; !ok {
			out = append(out, label)
		}
	}
	return out
}

// CodeSpec carries the fields owned by the code variant. Grading is delegated
// to the external evaluator, so no answer lives here.
type CodeSpec struct {
	Language string `json:"language"`
}

// Question is the tagged variant over {MultipleChoice, Checkbox, Code}.
// Exactly one of Choice/Code is set, according to Kind.
type Question struct {
	ID             uuid.UUID           `json:"id"`
	Kind           Kind                `json:"kind"`
	Title          string              `json:"title"`
	Text           string              `json:"text"`
	CategoryID     *uuid.UUID          `json:"category_id,omitempty"`
	Difficulty     Difficulty          `json:"difficulty"`
	AuthorID       *uuid.UUID          `json:"author_id,omitempty"`
	Verified       bool                `json:"is_verified"`
	MaxSubmissions int                 `json:"max_submissions"`
	Variables      []map[string]string `json:"variables,omitempty"`
	Choice         *ChoiceSpec         `json:"choice,omitempty"`
	Code           *CodeSpec           `json:"code,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// HasChoices reports whether the variant owns a choice set.
func (q Question) HasChoices() bool {
	switch q.Kind {
	case KindMultipleChoice, KindCheckbox:
		return true
	case KindCode:
		return false
	}
	return false
}

// Status buckets for the problem set, relative to one user. Buckets are
// mutually exclusive and exhaustive.
type Status string

const (
	StatusNew              Status = "new"
	StatusSolved           Status = "solved"
	StatusPartiallyCorrect Status = "partially_correct"
	StatusWrong            Status = "wrong"
)
