package question

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotFound signals a lookup miss, surfaced generically at the boundary.
var ErrNotFound = errors.New("question not found")

// CreateError is an author-side validation failure. The message is safe to
// show to the author; the request boundary recovers it as a form error.
type CreateError struct {
	msg string
}

func (e *CreateError) Error() string { return e.msg }

func newCreateError(format string, args ...interface{}) error {
	return &CreateError{msg: fmt.Sprintf(format, args...)}
}

// Store defines the persistence operations the service needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (Question, error)
	Insert(ctx context.Context, q Question) (Question, error)
	Update(ctx context.Context, q Question) (Question, error)
	List(ctx context.Context, authorID *uuid.UUID) ([]Question, error)
	ListVerified(ctx context.Context, f Filter) ([]Question, error)
}

// tokenValues resolves the reward for a (category, difficulty) pair,
// lazily materializing missing pairs (implemented by the token service).
type tokenValues interface {
	Value(ctx context.Context, categoryID *uuid.UUID, difficulty string) (int, error)
}

// StatusAgg aggregates one user's submission history on one question.
type StatusAgg struct {
	Submitted  int
	AnyCorrect bool
	AnyPartial bool
}

// submissionStatuses supplies per-question aggregates for the requesting user.
type submissionStatuses interface {
	StatusSummary(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]StatusAgg, error)
}

// RenderCache caches rendered views (implemented by the Redis-backed Cache).
// Rendering is deterministic, so the cache is a read-path shortcut only.
type RenderCache interface {
	Get(ctx context.Context, userID, questionID uuid.UUID) (*Rendered, error)
	Set(ctx context.Context, userID, questionID uuid.UUID, rendered Rendered) error
}

// Filter selects problems for the problem set.
type Filter struct {
	Query      string
	Difficulty string
	CategoryID *uuid.UUID
	Solved     string
}

// Solved-filter values accepted by ProblemSet.
const (
	FilterSolved           = "solved"
	FilterUnsolved         = "unsolved"
	FilterWrong            = "wrong"
	FilterNew              = "new"
	FilterPartiallyCorrect = "partially_correct"
)

// ProblemSummary is a problem-set row: the question annotated with its token
// value and the requesting user's status bucket.
type ProblemSummary struct {
	Question
	TokenValue int    `json:"token_value"`
	Status     Status `json:"status"`
}

// ServiceOptions carries lifecycle defaults.
type ServiceOptions struct {
	DefaultMaxSubmissions int
}

// Service owns question authoring, rendering, and problem-set filtering.
type Service struct {
	store    Store
	tokens   tokenValues
	statuses submissionStatuses
	renderer *Renderer
	cache    RenderCache
	opts     ServiceOptions
	logger   zerolog.Logger
}

func NewService(store Store, tokens tokenValues, statuses submissionStatuses, renderer *Renderer, cache RenderCache, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.DefaultMaxSubmissions <= 0 {
		opts.DefaultMaxSubmissions = 4
	}
	return &Service{
		store:    store,
		tokens:   tokens,
		statuses: statuses,
		renderer: renderer,
		cache:    cache,
		opts:     opts,
		logger:   logger,
	}
}

// Renderer exposes the deterministic renderer for collaborating services.
func (s *Service) Renderer() *Renderer { return s.renderer }

// Get fetches a question by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Question, error) {
	return s.store.GetByID(ctx, id)
}

// List returns questions for the authoring surface. A nil authorID lists
// everything; otherwise only that author's questions.
func (s *Service) List(ctx context.Context, authorID *uuid.UUID) ([]Question, error) {
	return s.store.List(ctx, authorID)
}

// View fetches a question together with the requesting user's rendered view.
func (s *Service) View(ctx context.Context, id, userID uuid.UUID) (Question, Rendered, error) {
	q, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Question{}, Rendered{}, err
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, userID, id); err == nil && cached != nil {
			return q, *cached, nil
		}
	}

	rendered := s.renderer.Render(q, userID)
	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, id, rendered); err != nil {
			s.logger.Warn().Err(err).Str("question_id", id.String()).Msg("render cache store failed")
		}
	}
	return q, rendered, nil
}

// CreateChoiceParams carries author input for choice-based questions.
type CreateChoiceParams struct {
	Title              string
	Text               string
	AuthorID           *uuid.UUID
	AuthorIsTeacher    bool
	CategoryID         *uuid.UUID
	Difficulty         string
	VisibleDistractors int
	AnswerTexts        []string
	Distractors        []string
	Variables          []map[string]string

	// Seed-import path: an explicit choices map with canonical answer labels,
	// used instead of AnswerTexts/Distractors when non-nil.
	Choices      map[string]string
	AnswerLabels []string

	MaxSubmissions int
	Verified       *bool
}

// CreateMultipleChoice validates and persists a multiple-choice question.
func (s *Service) CreateMultipleChoice(ctx context.Context, p CreateChoiceParams) (Question, error) {
	answers := len(p.AnswerTexts)
	if len(p.Choices) > 0 {
		answers = len(NormalizeLabels(p.AnswerLabels))
	}
	if answers != 1 {
		return Question{}, newCreateError("A multiple choice question needs exactly one correct answer")
	}
	return s.createChoice(ctx, KindMultipleChoice, p)
}

// CreateCheckbox validates and persists a checkbox question.
func (s *Service) CreateCheckbox(ctx context.Context, p CreateChoiceParams) (Question, error) {
	return s.createChoice(ctx, KindCheckbox, p)
}

func (s *Service) createChoice(ctx context.Context, kind Kind, p CreateChoiceParams) (Question, error) {
	base, err := s.buildBase(kind, p)
	if err != nil {
		return Question{}, err
	}
	return s.store.Insert(ctx, base)
}

// UpdateChoice replaces an existing choice question's content. Verification
// status and the submission limit are carried over from the stored row, never
// reset by an edit.
func (s *Service) UpdateChoice(ctx context.Context, id uuid.UUID, p CreateChoiceParams) (Question, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Question{}, err
	}
	if !existing.HasChoices() {
		return Question{}, ErrNotFound
	}

	updated, err := s.buildBase(existing.Kind, p)
	if err != nil {
		return Question{}, err
	}
	updated.ID = existing.ID
	updated.Verified = existing.Verified
	updated.MaxSubmissions = existing.MaxSubmissions
	updated.CreatedAt = existing.CreatedAt
	return s.store.Update(ctx, updated)
}

// CreateCodeParams carries author input for code questions.
type CreateCodeParams struct {
	Title           string
	Text            string
	AuthorID        *uuid.UUID
	AuthorIsTeacher bool
	CategoryID      *uuid.UUID
	Difficulty      string
	Language        string
	MaxSubmissions  int
}

// CreateCode validates and persists a code question. Grading is external.
func (s *Service) CreateCode(ctx context.Context, p CreateCodeParams) (Question, error) {
	if strings.TrimSpace(p.Title) == "" {
		return Question{}, newCreateError("Title cannot be empty")
	}
	difficulty, err := ParseDifficulty(p.Difficulty)
	if err != nil {
		return Question{}, newCreateError("Difficulty must be one of easy, medium or hard")
	}
	language := p.Language
	if language == "" {
		language = "java"
	}
	maxSubs := p.MaxSubmissions
	if maxSubs <= 0 {
		maxSubs = s.opts.DefaultMaxSubmissions
	}
	return s.store.Insert(ctx, Question{
		Kind:           KindCode,
		Title:          strings.TrimSpace(p.Title),
		Text:           p.Text,
		CategoryID:     p.CategoryID,
		Difficulty:     difficulty,
		AuthorID:       p.AuthorID,
		Verified:       p.AuthorIsTeacher,
		MaxSubmissions: maxSubs,
		Code:           &CodeSpec{Language: language},
	})
}

func (s *Service) buildBase(kind Kind, p CreateChoiceParams) (Question, error) {
	if strings.TrimSpace(p.Title) == "" {
		return Question{}, newCreateError("Title cannot be empty")
	}
	difficulty, err := ParseDifficulty(p.Difficulty)
	if err != nil {
		return Question{}, newCreateError("Difficulty must be one of easy, medium or hard")
	}
	if p.VisibleDistractors < 0 {
		return Question{}, newCreateError("Visible distractor count cannot be negative")
	}

	spec, err := buildChoiceSpec(p)
	if err != nil {
		return Question{}, err
	}

	verified := p.AuthorIsTeacher
	if p.Verified != nil {
		verified = *p.Verified
	}
	maxSubs := p.MaxSubmissions
	if maxSubs <= 0 {
		maxSubs = s.opts.DefaultMaxSubmissions
	}
	variables := p.Variables
	if len(variables) == 0 {
		variables = []map[string]string{{}}
	}

	return Question{
		Kind:           kind,
		Title:          strings.TrimSpace(p.Title),
		Text:           p.Text,
		CategoryID:     p.CategoryID,
		Difficulty:     difficulty,
		AuthorID:       p.AuthorID,
		Verified:       verified,
		MaxSubmissions: maxSubs,
		Variables:      variables,
		Choice:         spec,
	}, nil
}

func buildChoiceSpec(p CreateChoiceParams) (*ChoiceSpec, error) {
	if len(p.Choices) > 0 {
		if len(p.AnswerLabels) == 0 {
			return nil, newCreateError("Answer is required")
		}
		for _, label := range p.AnswerLabels {
			if _, ok := p.Choices[label]; !ok {
				return nil, newCreateError("Answer label %q is not among the choices", label)
			}
		}
		pool := len(p.Choices) - len(p.AnswerLabels)
		if p.VisibleDistractors > pool {
			return nil, newCreateError("Visible distractor count (%d) exceeds the number of distractors (%d)", p.VisibleDistractors, pool)
		}
		return &ChoiceSpec{
			Choices:            p.Choices,
			AnswerLabels:       NormalizeLabels(p.AnswerLabels),
			VisibleDistractors: p.VisibleDistractors,
		}, nil
	}

	if len(p.AnswerTexts) == 0 {
		return nil, newCreateError("Answer is required")
	}
	for _, text := range p.AnswerTexts {
		if strings.TrimSpace(text) == "" {
			return nil, newCreateError("Answer text cannot be empty")
		}
	}
	if p.VisibleDistractors > len(p.Distractors) {
		return nil, newCreateError("Visible distractor count (%d) exceeds the number of distractors (%d)", p.VisibleDistractors, len(p.Distractors))
	}

	choices := make(map[string]string, len(p.AnswerTexts)+len(p.Distractors))
	answerLabels := make([]string, 0, len(p.AnswerTexts))
	i := 0
	for _, text := range p.AnswerTexts {
		label := displayLabel(i)
		choices[label] = text
		answerLabels = append(answerLabels, label)
		i++
	}
	for _, text := range p.Distractors {
		choices[displayLabel(i)] = text
		i++
	}
	return &ChoiceSpec{
		Choices:            choices,
		AnswerLabels:       answerLabels,
		VisibleDistractors: p.VisibleDistractors,
	}, nil
}

// ProblemSet returns the filtered, annotated list of verified questions for
// the requesting user (uuid.Nil for anonymous: everything is New).
func (s *Service) ProblemSet(ctx context.Context, userID uuid.UUID, f Filter) ([]ProblemSummary, error) {
	problems, err := s.store.ListVerified(ctx, f)
	if err != nil {
		return nil, err
	}

	statuses := map[uuid.UUID]StatusAgg{}
	if userID != uuid.Nil {
		statuses, err = s.statuses.StatusSummary(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	out := make([]ProblemSummary, 0, len(problems))
	for _, q := range problems {
		value, err := s.tokens.Value(ctx, q.CategoryID, string(q.Difficulty))
		if err != nil {
			return nil, fmt.Errorf("token value for question %s: %w", q.ID, err)
		}
		summary := ProblemSummary{
			Question:   q,
			TokenValue: value,
			Status:     bucketFor(statuses[q.ID]),
		}
		if matchesSolvedFilter(summary.Status, f.Solved) {
			out = append(out, summary)
		}
	}
	return out, nil
}

func bucketFor(agg StatusAgg) Status {
	switch {
	case agg.Submitted == 0:
		return StatusNew
	case agg.AnyCorrect:
		return StatusSolved
	case agg.AnyPartial:
		return StatusPartiallyCorrect
	default:
		return StatusWrong
	}
}

func matchesSolvedFilter(status Status, filter string) bool {
	switch filter {
	case "":
		return true
	case FilterSolved:
		return status == StatusSolved
	case FilterUnsolved:
		return status != StatusSolved
	case FilterWrong:
		return status == StatusWrong
	case FilterNew:
		return status == StatusNew
	case FilterPartiallyCorrect:
		return status == StatusPartiallyCorrect
	default:
		return true
	}
}
