package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencourse/problem-bank/internal/question"
)

const questionColumns = `
	question_id, kind, title, body, category_id, difficulty, author_id,
	is_verified, max_submissions, variables, choices, answer_labels,
	visible_distractors, language, created_at, updated_at`

// QuestionRepository persists the tagged question variants in one table;
// variant-specific columns are NULL for the kinds that do not own them.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// GetByID fetches one question.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (question.Question, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE question_id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return question.Question{}, question.ErrNotFound
	}
	return q, err
}

// Insert stores a new question and returns it with generated fields.
func (r *QuestionRepository) Insert(ctx context.Context, q question.Question) (question.Question, error) {
	choices, answerLabels, visible, language := variantColumns(q)
	row := r.pool.QueryRow(ctx, `
		INSERT INTO questions (
			kind, title, body, category_id, difficulty, author_id,
			is_verified, max_submissions, variables, choices, answer_labels,
			visible_distractors, language
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+questionColumns,
		q.Kind, q.Title, q.Text, q.CategoryID, q.Difficulty, q.AuthorID,
		q.Verified, q.MaxSubmissions, q.Variables, choices, answerLabels,
		visible, language,
	)
	return scanQuestion(row)
}

// Update replaces a question's content in place.
func (r *QuestionRepository) Update(ctx context.Context, q question.Question) (question.Question, error) {
	choices, answerLabels, visible, language := variantColumns(q)
	row := r.pool.QueryRow(ctx, `
		UPDATE questions SET
			kind = $2, title = $3, body = $4, category_id = $5, difficulty = $6,
			author_id = $7, is_verified = $8, max_submissions = $9, variables = $10,
			choices = $11, answer_labels = $12, visible_distractors = $13,
			language = $14, updated_at = now()
		WHERE question_id = $1
		RETURNING `+questionColumns,
		q.ID, q.Kind, q.Title, q.Text, q.CategoryID, q.Difficulty,
		q.AuthorID, q.Verified, q.MaxSubmissions, q.Variables,
		choices, answerLabels, visible, language,
	)
	updated, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return question.Question{}, question.ErrNotFound
	}
	return updated, err
}

// List returns every question, or only one author's when authorID is set.
func (r *QuestionRepository) List(ctx context.Context, authorID *uuid.UUID) ([]question.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+questionColumns+`
		FROM questions
		WHERE $1::uuid IS NULL OR author_id = $1
		ORDER BY created_at`,
		authorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []question.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ListVerified returns verified questions matching the problem-set filter.
// The category filter matches the category itself or any of its children
// (one level, per the two-level tree).
func (r *QuestionRepository) ListVerified(ctx context.Context, f question.Filter) ([]question.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+questionColumns+`
		FROM questions
		WHERE is_verified
		  AND ($1 = '' OR title LIKE '%' || $1 || '%')
		  AND ($2 = '' OR difficulty = $2)
		  AND ($3::uuid IS NULL
		       OR category_id = $3
		       OR category_id IN (SELECT category_id FROM question_categories WHERE parent_id = $3))
		ORDER BY created_at`,
		escapeLike(f.Query), f.Difficulty, f.CategoryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []question.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// DeleteByKind removes all questions of one variant (seed refresh).
func (r *QuestionRepository) DeleteByKind(ctx context.Context, kind question.Kind) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE kind = $1`, kind)
	return err
}

// escapeLike makes user input safe as a LIKE substring: metacharacters match
// themselves instead of acting as wildcards.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func variantColumns(q question.Question) (choices map[string]string, answerLabels []string, visible int, language *string) {
	if q.Choice != nil {
		choices = q.Choice.Choices
		answerLabels = q.Choice.AnswerLabels
		visible = q.Choice.VisibleDistractors
	}
	if q.Code != nil {
		language = &q.Code.Language
	}
	return choices, answerLabels, visible, language
}

func scanQuestion(row pgx.Row) (question.Question, error) {
	var (
		q            question.Question
		choices      map[string]string
		answerLabels []string
		visible      int
		language     *string
	)
	err := row.Scan(
		&q.ID, &q.Kind, &q.Title, &q.Text, &q.CategoryID, &q.Difficulty, &q.AuthorID,
		&q.Verified, &q.MaxSubmissions, &q.Variables, &choices, &answerLabels,
		&visible, &language, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return question.Question{}, err
	}

	switch q.Kind {
	case question.KindMultipleChoice, question.KindCheckbox:
		q.Choice = &question.ChoiceSpec{
			Choices:            choices,
			AnswerLabels:       answerLabels,
			VisibleDistractors: visible,
		}
	case question.KindCode:
		spec := &question.CodeSpec{}
		if language != nil {
			spec.Language = *language
		}
		q.Code = spec
	}
	return q, nil
}
