package submission

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opencourse/problem-bank/internal/evaluator"
	"github.com/opencourse/problem-bank/internal/question"
)

// CreateParams is passed to the store for the transactional submit. The store
// locks the junction row, re-checks the count, inserts the submission (the
// unique (user, question, payload) index backs the duplicate guard against
// races), increments the count, and grants tokens exactly once per
// (user, question) when the verdict is already correct.
type CreateParams struct {
	Submission     Submission
	MaxSubmissions int
	TokenValue     int
}

// VerdictUpdate reports the outcome of a verdict write-back. Updated is false
// when the submission had already left the pending state (evaluator retries).
type VerdictUpdate struct {
	Updated    bool
	Awarded    int
	Submission Submission
}

// Store defines the persistence operations the service needs. Create and
// RecordVerdict must be atomic; they return the sentinel errors declared in
// this package.
type Store interface {
	Create(ctx context.Context, p CreateParams) (Submission, int, error)
	RecordVerdict(ctx context.Context, id uuid.UUID, verdict question.Verdict, tokenValue int) (VerdictUpdate, error)
	GetByID(ctx context.Context, id uuid.UUID) (Submission, error)
	ListForUser(ctx context.Context, userID, questionID uuid.UUID) ([]Submission, error)
	CountForUser(ctx context.Context, userID, questionID uuid.UUID) (int, error)
	HasPayload(ctx context.Context, userID, questionID uuid.UUID, payload string) (bool, error)
	StatusSummary(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]question.StatusAgg, error)
}

// questionGetter fetches questions (implemented by the question service).
type questionGetter interface {
	Get(ctx context.Context, id uuid.UUID) (question.Question, error)
}

// tokenValues resolves rewards (implemented by the token service).
type tokenValues interface {
	Value(ctx context.Context, categoryID *uuid.UUID, difficulty string) (int, error)
}

// rewardSink receives granted tokens (implemented by the leaderboard).
type rewardSink interface {
	Record(ctx context.Context, userID uuid.UUID, tokens int) error
}

// VerdictNotice is pushed to the submitting user when an async verdict lands.
type VerdictNotice struct {
	SubmissionID  uuid.UUID        `json:"submission_id"`
	QuestionID    uuid.UUID        `json:"question_id"`
	Verdict       question.Verdict `json:"verdict"`
	TokensAwarded int              `json:"tokens_awarded"`
}

// verdictNotifier delivers notices to connected users (ws hub adapter).
type verdictNotifier interface {
	NotifyVerdict(userID uuid.UUID, notice VerdictNotice)
}

// Service owns the submission lifecycle: eligibility, duplicate guard,
// grading, reward grant, and the async verdict write-back.
type Service struct {
	store     Store
	questions questionGetter
	tokens    tokenValues
	renderer  *question.Renderer
	rewards   rewardSink
	notifier  verdictNotifier
	dispatch  chan<- evaluator.SubmitRequest
	logger    zerolog.Logger
}

func NewService(store Store, questions questionGetter, tokens tokenValues, renderer *question.Renderer, rewards rewardSink, notifier verdictNotifier, dispatch chan<- evaluator.SubmitRequest, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		questions: questions,
		tokens:    tokens,
		renderer:  renderer,
		rewards:   rewards,
		notifier:  notifier,
		dispatch:  dispatch,
		logger:    logger,
	}
}

// IsAllowedToSubmit reports whether the user has submission headroom on the
// question. Anonymous users (uuid.Nil) are never eligible.
func (s *Service) IsAllowedToSubmit(ctx context.Context, userID uuid.UUID, q question.Question) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	count, err := s.store.CountForUser(ctx, userID, q.ID)
	if err != nil {
		return false, err
	}
	return count < q.MaxSubmissions, nil
}

// SubmitChoice grades and records a choice answer. Returns the stored
// submission and the tokens awarded (0 unless this is the user's first
// correct submission on the question).
func (s *Service) SubmitChoice(ctx context.Context, userID, questionID uuid.UUID, labels []string) (Submission, int, error) {
	q, err := s.questions.Get(ctx, questionID)
	if err != nil {
		return Submission{}, 0, err
	}
	if !q.HasChoices() {
		return Submission{}, 0, ErrWrongKind
	}

	payload := question.CanonicalPayload(labels)
	if err := s.guard(ctx, userID, q, payload); err != nil {
		return Submission{}, 0, err
	}

	result, err := s.renderer.Grade(q, userID, labels)
	if err != nil {
		return Submission{}, 0, err
	}

	tokenValue := 0
	if result.Verdict == question.VerdictCorrect {
		tokenValue, err = s.tokens.Value(ctx, q.CategoryID, string(q.Difficulty))
		if err != nil {
			return Submission{}, 0, err
		}
	}

	sub, awarded, err := s.store.Create(ctx, CreateParams{
		Submission: Submission{
			QuestionID: q.ID,
			UserID:     userID,
			Kind:       q.Kind,
			Payload:    payload,
			Verdict:    result.Verdict,
			Partial:    result.Partial,
		},
		MaxSubmissions: q.MaxSubmissions,
		TokenValue:     tokenValue,
	})
	if err != nil {
		s.countRejection(err)
		return Submission{}, 0, err
	}

	submissionsTotal.WithLabelValues(string(q.Kind), string(result.Verdict)).Inc()
	s.grantTokens(ctx, userID, awarded)
	return sub, awarded, nil
}

// SubmitCode records a code answer as pending and dispatches it to the
// external evaluator. Exactly one of text and file content must be provided.
func (s *Service) SubmitCode(ctx context.Context, userID, questionID uuid.UUID, text, fileContent string) (Submission, error) {
	text = strings.TrimSpace(text)
	fileContent = strings.TrimSpace(fileContent)

	if text == "" && fileContent == "" {
		return Submission{}, ErrNoCode
	}
	if text != "" && fileContent != "" {
		return Submission{}, ErrBothCode
	}
	code := text
	if code == "" {
		code = fileContent
	}

	q, err := s.questions.Get(ctx, questionID)
	if err != nil {
		return Submission{}, err
	}
	if q.Kind != question.KindCode {
		return Submission{}, ErrWrongKind
	}

	if err := s.guard(ctx, userID, q, code); err != nil {
		return Submission{}, err
	}

	sub, _, err := s.store.Create(ctx, CreateParams{
		Submission: Submission{
			QuestionID: q.ID,
			UserID:     userID,
			Kind:       q.Kind,
			Payload:    code,
			Verdict:    question.VerdictPending,
		},
		MaxSubmissions: q.MaxSubmissions,
	})
	if err != nil {
		s.countRejection(err)
		return Submission{}, err
	}
	submissionsTotal.WithLabelValues(string(q.Kind), string(question.VerdictPending)).Inc()

	language := "java"
	if q.Code != nil && q.Code.Language != "" {
		language = q.Code.Language
	}
	req := evaluator.SubmitRequest{
		SubmissionID: sub.ID,
		QuestionID:   q.ID,
		Language:     language,
		Code:         code,
	}
	select {
	case s.dispatch <- req:
	default:
		// Queue full: the submission stays pending; the worker drains in order.
		s.logger.Error().Str("submission_id", sub.ID.String()).Msg("evaluator dispatch queue full")
	}

	return sub, nil
}

// guard applies the eligibility and duplicate checks. Neither consumes an
// attempt; duplicates are rejected even with headroom remaining.
func (s *Service) guard(ctx context.Context, userID uuid.UUID, q question.Question, payload string) error {
	if userID == uuid.Nil {
		return ErrNotEligible
	}

	allowed, err := s.IsAllowedToSubmit(ctx, userID, q)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrSubmissionLimit
	}

	exists, err := s.store.HasPayload(ctx, userID, q.ID, payload)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicate
	}
	return nil
}

// RecordVerdict applies an evaluator verdict. Idempotent: only a pending
// submission transitions, and tokens are granted at most once per
// (user, question); replayed callbacks are acknowledged without effect.
func (s *Service) RecordVerdict(ctx context.Context, submissionID uuid.UUID, passed bool) (VerdictUpdate, error) {
	sub, err := s.store.GetByID(ctx, submissionID)
	if err != nil {
		return VerdictUpdate{}, err
	}

	verdict := question.VerdictWrong
	tokenValue := 0
	if passed {
		verdict = question.VerdictCorrect
		q, err := s.questions.Get(ctx, sub.QuestionID)
		if err != nil {
			return VerdictUpdate{}, err
		}
		tokenValue, err = s.tokens.Value(ctx, q.CategoryID, string(q.Difficulty))
		if err != nil {
			return VerdictUpdate{}, err
		}
	}

	update, err := s.store.RecordVerdict(ctx, submissionID, verdict, tokenValue)
	if err != nil {
		return VerdictUpdate{}, err
	}
	if !update.Updated {
		verdictWritebacksTotal.WithLabelValues("replayed").Inc()
		return update, nil
	}

	verdictWritebacksTotal.WithLabelValues(string(verdict)).Inc()
	s.grantTokens(ctx, update.Submission.UserID, update.Awarded)

	if s.notifier != nil {
		s.notifier.NotifyVerdict(update.Submission.UserID, VerdictNotice{
			SubmissionID:  update.Submission.ID,
			QuestionID:    update.Submission.QuestionID,
			Verdict:       verdict,
			TokensAwarded: update.Awarded,
		})
	}
	return update, nil
}

// ListForUser returns the user's submissions on a question, newest first.
func (s *Service) ListForUser(ctx context.Context, userID, questionID uuid.UUID) ([]Submission, error) {
	return s.store.ListForUser(ctx, userID, questionID)
}

// GetOwn fetches a submission, hiding other users' submissions behind a
// not-found so ownership cannot be probed.
func (s *Service) GetOwn(ctx context.Context, userID, submissionID uuid.UUID) (Submission, error) {
	sub, err := s.store.GetByID(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	if sub.UserID != userID {
		return Submission{}, ErrNotFound
	}
	return sub, nil
}

func (s *Service) grantTokens(ctx context.Context, userID uuid.UUID, awarded int) {
	if awarded <= 0 {
		return
	}
	tokensAwardedTotal.Add(float64(awarded))
	if s.rewards != nil {
		if err := s.rewards.Record(ctx, userID, awarded); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("leaderboard update failed")
		}
	}
}

func (s *Service) countRejection(err error) {
	switch {
	case errors.Is(err, ErrDuplicate):
		rejectionsTotal.WithLabelValues("duplicate").Inc()
	case errors.Is(err, ErrSubmissionLimit):
		rejectionsTotal.WithLabelValues("limit").Inc()
	}
}
