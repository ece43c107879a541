package submission

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/opencourse/problem-bank/internal/evaluator"
	"github.com/opencourse/problem-bank/internal/question"
)

type memoryStore struct {
	subs     map[uuid.UUID]Submission
	counts   map[[2]uuid.UUID]int
	granted  map[[2]uuid.UUID]int
	payloads map[string]struct{}
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		subs:     map[uuid.UUID]Submission{},
		counts:   map[[2]uuid.UUID]int{},
		granted:  map[[2]uuid.UUID]int{},
		payloads: map[string]struct{}{},
	}
}

func (m *memoryStore) junctionKey(userID, questionID uuid.UUID) [2]uuid.UUID {
	return [2]uuid.UUID{userID, questionID}
}

func (m *memoryStore) payloadKey(userID, questionID uuid.UUID, payload string) string {
	return userID.String() + "|" + questionID.String() + "|" + payload
}

func (m *memoryStore) Create(_ context.Context, p CreateParams) (Submission, int, error) {
	sub := p.Submission
	key := m.junctionKey(sub.UserID, sub.QuestionID)
	if m.counts[key] >= p.MaxSubmissions {
		return Submission{}, 0, ErrSubmissionLimit
	}
	pKey := m.payloadKey(sub.UserID, sub.QuestionID, sub.Payload)
	if _, ok := m.payloads[pKey]; ok {
		return Submission{}, 0, ErrDuplicate
	}

	sub.ID = uuid.New()
	m.subs[sub.ID] = sub
	m.counts[key]++
	m.payloads[pKey] = struct{}{}

	awarded := 0
	if sub.Verdict == question.VerdictCorrect && m.granted[key] == 0 && p.TokenValue > 0 {
		awarded = p.TokenValue
		m.granted[key] = awarded
	}
	return sub, awarded, nil
}

func (m *memoryStore) RecordVerdict(_ context.Context, id uuid.UUID, verdict question.Verdict, tokenValue int) (VerdictUpdate, error) {
	sub, ok := m.subs[id]
	if !ok {
		return VerdictUpdate{}, ErrNotFound
	}
	if sub.Verdict != question.VerdictPending {
		return VerdictUpdate{Updated: false}, nil
	}
	sub.Verdict = verdict
	m.subs[id] = sub

	awarded := 0
	key := m.junctionKey(sub.UserID, sub.QuestionID)
	if verdict == question.VerdictCorrect && m.granted[key] == 0 && tokenValue > 0 {
		awarded = tokenValue
		m.granted[key] = awarded
	}
	return VerdictUpdate{Updated: true, Awarded: awarded, Submission: sub}, nil
}

func (m *memoryStore) GetByID(_ context.Context, id uuid.UUID) (Submission, error) {
	sub, ok := m.subs[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return sub, nil
}

func (m *memoryStore) ListForUser(_ context.Context, userID, questionID uuid.UUID) ([]Submission, error) {
	var out []Submission
	for _, sub := range m.subs {
		if sub.UserID == userID && sub.QuestionID == questionID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (m *memoryStore) CountForUser(_ context.Context, userID, questionID uuid.UUID) (int, error) {
	return m.counts[m.junctionKey(userID, questionID)], nil
}

func (m *memoryStore) HasPayload(_ context.Context, userID, questionID uuid.UUID, payload string) (bool, error) {
	_, ok := m.payloads[m.payloadKey(userID, questionID, payload)]
	return ok, nil
}

func (m *memoryStore) StatusSummary(_ context.Context, _ uuid.UUID) (map[uuid.UUID]question.StatusAgg, error) {
	return nil, nil
}

type stubQuestions struct {
	byID map[uuid.UUID]question.Question
}

func (s *stubQuestions) Get(_ context.Context, id uuid.UUID) (question.Question, error) {
	q, ok := s.byID[id]
	if !ok {
		return question.Question{}, question.ErrNotFound
	}
	return q, nil
}

type stubTokens struct{ value int }

func (s *stubTokens) Value(_ context.Context, _ *uuid.UUID, _ string) (int, error) {
	return s.value, nil
}

type stubRewards struct {
	total map[uuid.UUID]int
}

func (s *stubRewards) Record(_ context.Context, userID uuid.UUID, tokens int) error {
	if s.total == nil {
		s.total = map[uuid.UUID]int{}
	}
	s.total[userID] += tokens
	return nil
}

type stubNotifier struct {
	notices []VerdictNotice
}

func (s *stubNotifier) NotifyVerdict(_ uuid.UUID, notice VerdictNotice) {
	s.notices = append(s.notices, notice)
}

type fixture struct {
	svc      *Service
	store    *memoryStore
	rewards  *stubRewards
	notifier *stubNotifier
	dispatch chan evaluator.SubmitRequest
	renderer *question.Renderer
	mc       question.Question
	code     question.Question
}

func newFixture(tokenValue int) *fixture {
	renderer := question.NewRenderer([]byte("secret"))
	mc := question.Question{
		ID:             uuid.New(),
		Kind:           question.KindMultipleChoice,
		Title:          "pick one",
		Difficulty:     question.DifficultyEasy,
		MaxSubmissions: 2,
		Choice: &question.ChoiceSpec{
			Choices:            map[string]string{"a": "right", "b": "wrong", "c": "also wrong"},
			AnswerLabels:       []string{"a"},
			VisibleDistractors: 2,
		},
	}
	code := question.Question{
		ID:             uuid.New(),
		Kind:           question.KindCode,
		Title:          "write code",
		Difficulty:     question.DifficultyHard,
		MaxSubmissions: 4,
		Code:           &question.CodeSpec{Language: "java"},
	}

	store := newMemoryStore()
	rewards := &stubRewards{}
	notifier := &stubNotifier{}
	dispatch := make(chan evaluator.SubmitRequest, 8)
	svc := NewService(
		store,
		&stubQuestions{byID: map[uuid.UUID]question.Question{mc.ID: mc, code.ID: code}},
		&stubTokens{value: tokenValue},
		renderer,
		rewards,
		notifier,
		dispatch,
		zerolog.Nop(),
	)
	return &fixture{svc: svc, store: store, rewards: rewards, notifier: notifier, dispatch: dispatch, renderer: renderer, mc: mc, code: code}
}

func (f *fixture) correctLabels(userID uuid.UUID) []string {
	return f.renderer.Render(f.mc, userID).CorrectLabels()
}

func (f *fixture) wrongLabel(userID uuid.UUID) string {
	rendered := f.renderer.Render(f.mc, userID)
	correct := rendered.CorrectLabels()[0]
	for _, c := range rendered.Choices {
		if c.Label != correct {
			return c.Label
		}
	}
	return ""
}

func TestSubmitChoiceAnonymousRejected(t *testing.T) {
	f := newFixture(0)
	_, _, err := f.svc.SubmitChoice(context.Background(), uuid.Nil, f.mc.ID, []string{"a"})
	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestSubmitChoiceCorrectAwardsOnce(t *testing.T) {
	f := newFixture(5)
	ctx := context.Background()
	userID := uuid.New()

	sub, awarded, err := f.svc.SubmitChoice(ctx, userID, f.mc.ID, f.correctLabels(userID))
	assert.NoError(t, err)
	assert.Equal(t, question.VerdictCorrect, sub.Verdict)
	assert.Equal(t, 5, awarded)
	assert.Equal(t, 5, f.rewards.total[userID])

	// Second user starts fresh and is rewarded independently.
	otherID := uuid.New()
	_, awarded, err = f.svc.SubmitChoice(ctx, otherID, f.mc.ID, f.correctLabels(otherID))
	assert.NoError(t, err)
	assert.Equal(t, 5, awarded)
}

func TestSubmitChoiceDuplicateRejected(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	userID := uuid.New()
	wrong := f.wrongLabel(userID)

	_, _, err := f.svc.SubmitChoice(ctx, userID, f.mc.ID, []string{wrong})
	assert.NoError(t, err)

	_, _, err = f.svc.SubmitChoice(ctx, userID, f.mc.ID, []string{wrong})
	assert.ErrorIs(t, err, ErrDuplicate)

	// The rejected duplicate must not consume an attempt.
	count, err := f.store.CountForUser(ctx, userID, f.mc.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubmitChoiceLimitEnforced(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	userID := uuid.New()
	rendered := f.renderer.Render(f.mc, userID)
	correct := rendered.CorrectLabels()[0]

	submitted := 0
	for _, c := range rendered.Choices {
		if c.Label == correct {
			continue
		}
		_, _, err := f.svc.SubmitChoice(ctx, userID, f.mc.ID, []string{c.Label})
		assert.NoError(t, err)
		submitted++
	}
	assert.Equal(t, f.mc.MaxSubmissions, submitted)

	_, _, err := f.svc.SubmitChoice(ctx, userID, f.mc.ID, f.correctLabels(userID))
	assert.ErrorIs(t, err, ErrSubmissionLimit)
}

func TestSubmitChoiceWrongKind(t *testing.T) {
	f := newFixture(0)
	_, _, err := f.svc.SubmitChoice(context.Background(), uuid.New(), f.code.ID, []string{"a"})
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestSubmitCodeValidation(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.svc.SubmitCode(ctx, userID, f.code.ID, "", "")
	assert.ErrorIs(t, err, ErrNoCode)

	_, err = f.svc.SubmitCode(ctx, userID, f.code.ID, "class A {}", "class B {}")
	assert.ErrorIs(t, err, ErrBothCode)

	_, err = f.svc.SubmitCode(ctx, userID, f.mc.ID, "class A {}", "")
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestSubmitCodePendingAndDispatched(t *testing.T) {
	f := newFixture(0)
	userID := uuid.New()

	sub, err := f.svc.SubmitCode(context.Background(), userID, f.code.ID, "class A {}", "")
	assert.NoError(t, err)
	assert.Equal(t, question.VerdictPending, sub.Verdict)

	req := <-f.dispatch
	assert.Equal(t, sub.ID, req.SubmissionID)
	assert.Equal(t, f.code.ID, req.QuestionID)
	assert.Equal(t, "java", req.Language)
	assert.Equal(t, "class A {}", req.Code)
}

func TestRecordVerdictPassedGrantsAndNotifies(t *testing.T) {
	f := newFixture(8)
	ctx := context.Background()
	userID := uuid.New()

	sub, err := f.svc.SubmitCode(ctx, userID, f.code.ID, "class A {}", "")
	assert.NoError(t, err)

	update, err := f.svc.RecordVerdict(ctx, sub.ID, true)
	assert.NoError(t, err)
	assert.True(t, update.Updated)
	assert.Equal(t, 8, update.Awarded)
	assert.Equal(t, 8, f.rewards.total[userID])

	assert.Len(t, f.notifier.notices, 1)
	assert.Equal(t, sub.ID, f.notifier.notices[0].SubmissionID)
	assert.Equal(t, question.VerdictCorrect, f.notifier.notices[0].Verdict)
}

func TestRecordVerdictReplayIsNoop(t *testing.T) {
	f := newFixture(8)
	ctx := context.Background()
	userID := uuid.New()

	sub, err := f.svc.SubmitCode(ctx, userID, f.code.ID, "class A {}", "")
	assert.NoError(t, err)

	_, err = f.svc.RecordVerdict(ctx, sub.ID, true)
	assert.NoError(t, err)

	update, err := f.svc.RecordVerdict(ctx, sub.ID, true)
	assert.NoError(t, err)
	assert.False(t, update.Updated)
	assert.Equal(t, 0, update.Awarded)
	assert.Equal(t, 8, f.rewards.total[userID])
	assert.Len(t, f.notifier.notices, 1)
}

func TestRecordVerdictFailed(t *testing.T) {
	f := newFixture(8)
	ctx := context.Background()
	userID := uuid.New()

	sub, err := f.svc.SubmitCode(ctx, userID, f.code.ID, "class A {}", "")
	assert.NoError(t, err)

	update, err := f.svc.RecordVerdict(ctx, sub.ID, false)
	assert.NoError(t, err)
	assert.True(t, update.Updated)
	assert.Equal(t, 0, update.Awarded)
	assert.Zero(t, f.rewards.total[userID])
}

func TestRecordVerdictUnknownSubmission(t *testing.T) {
	f := newFixture(0)
	_, err := f.svc.RecordVerdict(context.Background(), uuid.New(), true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOwnHidesOtherUsers(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	owner := uuid.New()

	sub, err := f.svc.SubmitCode(ctx, owner, f.code.ID, "class A {}", "")
	assert.NoError(t, err)

	got, err := f.svc.GetOwn(ctx, owner, sub.ID)
	assert.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)

	_, err = f.svc.GetOwn(ctx, uuid.New(), sub.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
