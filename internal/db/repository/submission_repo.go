package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencourse/problem-bank/internal/question"
	"github.com/opencourse/problem-bank/internal/submission"
)

const submissionColumns = `
	submission_id, question_id, user_id, kind, payload, verdict, is_partial, created_at`

// SubmissionRepository persists submissions and the user-question junction.
// The junction is maintained in the same transaction as every insert, so the
// submission count and token grant cannot race.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Create inserts a submission atomically with the eligibility re-check, the
// junction increment, and the one-time token grant. Returns the tokens
// awarded alongside the stored row.
func (r *SubmissionRepository) Create(ctx context.Context, p submission.CreateParams) (submission.Submission, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return submission.Submission{}, 0, err
	}
	defer tx.Rollback(ctx)

	sub := p.Submission

	if _, err := tx.Exec(ctx, `
		INSERT INTO user_questions (user_id, question_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, question_id) DO NOTHING`,
		sub.UserID, sub.QuestionID,
	); err != nil {
		return submission.Submission{}, 0, err
	}

	var count, received int
	if err := tx.QueryRow(ctx, `
		SELECT submission_count, tokens_received
		FROM user_questions
		WHERE user_id = $1 AND question_id = $2
		FOR UPDATE`,
		sub.UserID, sub.QuestionID,
	).Scan(&count, &received); err != nil {
		return submission.Submission{}, 0, err
	}
	if count >= p.MaxSubmissions {
		return submission.Submission{}, 0, submission.ErrSubmissionLimit
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO submissions (question_id, user_id, kind, payload, verdict, is_partial)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING submission_id, created_at`,
		sub.QuestionID, sub.UserID, sub.Kind, sub.Payload, sub.Verdict, sub.Partial,
	).Scan(&sub.ID, &sub.CreatedAt)
	if isUniqueViolation(err) {
		return submission.Submission{}, 0, submission.ErrDuplicate
	}
	if err != nil {
		return submission.Submission{}, 0, err
	}

	awarded := 0
	if sub.Verdict == question.VerdictCorrect && received == 0 && p.TokenValue > 0 {
		awarded = p.TokenValue
	}
	if _, err := tx.Exec(ctx, `
		UPDATE user_questions
		SET submission_count = submission_count + 1,
		    tokens_received = tokens_received + $3
		WHERE user_id = $1 AND question_id = $2`,
		sub.UserID, sub.QuestionID, awarded,
	); err != nil {
		return submission.Submission{}, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return submission.Submission{}, 0, err
	}
	return sub, awarded, nil
}

// RecordVerdict transitions a pending submission and grants tokens at most
// once per (user, question). A submission already out of the pending state
// yields Updated=false with no effect, which makes evaluator retries safe.
func (r *SubmissionRepository) RecordVerdict(ctx context.Context, id uuid.UUID, verdict question.Verdict, tokenValue int) (submission.VerdictUpdate, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return submission.VerdictUpdate{}, err
	}
	defer tx.Rollback(ctx)

	sub := submission.Submission{ID: id, Verdict: verdict}
	err = tx.QueryRow(ctx, `
		UPDATE submissions
		SET verdict = $2
		WHERE submission_id = $1 AND verdict = 'pending'
		RETURNING question_id, user_id, kind, payload, is_partial, created_at`,
		id, verdict,
	).Scan(&sub.QuestionID, &sub.UserID, &sub.Kind, &sub.Payload, &sub.Partial, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM submissions WHERE submission_id = $1)`, id,
		).Scan(&exists); err != nil {
			return submission.VerdictUpdate{}, err
		}
		if !exists {
			return submission.VerdictUpdate{}, submission.ErrNotFound
		}
		return submission.VerdictUpdate{Updated: false}, tx.Commit(ctx)
	}
	if err != nil {
		return submission.VerdictUpdate{}, err
	}

	awarded := 0
	if verdict == question.VerdictCorrect && tokenValue > 0 {
		var received int
		if err := tx.QueryRow(ctx, `
			SELECT tokens_received
			FROM user_questions
			WHERE user_id = $1 AND question_id = $2
			FOR UPDATE`,
			sub.UserID, sub.QuestionID,
		).Scan(&received); err != nil {
			return submission.VerdictUpdate{}, err
		}
		if received == 0 {
			if _, err := tx.Exec(ctx, `
				UPDATE user_questions
				SET tokens_received = $3
				WHERE user_id = $1 AND question_id = $2`,
				sub.UserID, sub.QuestionID, tokenValue,
			); err != nil {
				return submission.VerdictUpdate{}, err
			}
			awarded = tokenValue
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return submission.VerdictUpdate{}, err
	}
	return submission.VerdictUpdate{Updated: true, Awarded: awarded, Submission: sub}, nil
}

// GetByID fetches one submission.
func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (submission.Submission, error) {
	var sub submission.Submission
	err := r.pool.QueryRow(ctx, `
		SELECT `+submissionColumns+` FROM submissions WHERE submission_id = $1`, id,
	).Scan(&sub.ID, &sub.QuestionID, &sub.UserID, &sub.Kind, &sub.Payload, &sub.Verdict, &sub.Partial, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return submission.Submission{}, submission.ErrNotFound
	}
	return sub, err
}

// ListForUser returns a user's submissions on a question, newest first.
func (r *SubmissionRepository) ListForUser(ctx context.Context, userID, questionID uuid.UUID) ([]submission.Submission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE user_id = $1 AND question_id = $2
		ORDER BY created_at DESC`,
		userID, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []submission.Submission
	for rows.Next() {
		var sub submission.Submission
		if err := rows.Scan(&sub.ID, &sub.QuestionID, &sub.UserID, &sub.Kind, &sub.Payload, &sub.Verdict, &sub.Partial, &sub.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// CountForUser reads the junction counter (0 when no attempts yet).
func (r *SubmissionRepository) CountForUser(ctx context.Context, userID, questionID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT submission_count FROM user_questions
		WHERE user_id = $1 AND question_id = $2`,
		userID, questionID,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

// HasPayload reports whether this user already submitted this exact payload.
func (r *SubmissionRepository) HasPayload(ctx context.Context, userID, questionID uuid.UUID, payload string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM submissions
			WHERE user_id = $1 AND question_id = $2
			  AND md5(payload) = md5($3) AND payload = $3
		)`,
		userID, questionID, payload,
	).Scan(&exists)
	return exists, err
}

// StatusSummary aggregates the user's history per question for the problem
// set's status buckets.
func (r *SubmissionRepository) StatusSummary(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]question.StatusAgg, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT question_id,
		       count(*),
		       bool_or(verdict = 'correct'),
		       bool_or(is_partial)
		FROM submissions
		WHERE user_id = $1
		GROUP BY question_id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]question.StatusAgg)
	for rows.Next() {
		var (
			questionID uuid.UUID
			agg        question.StatusAgg
		)
		if err := rows.Scan(&questionID, &agg.Submitted, &agg.AnyCorrect, &agg.AnyPartial); err != nil {
			return nil, err
		}
		out[questionID] = agg
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
