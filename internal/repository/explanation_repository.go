package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdeck/prepdeck-backend/internal/model"
)

// uniqueViolation is the PostgreSQL error code for unique-constraint hits.
const uniqueViolation = "23505"

// ExplanationRepository stores cached per-answer explanations keyed by
// (question_version_id, answer_pattern, model, language).
type ExplanationRepository struct {
	pool *pgxpool.Pool
}

// NewExplanationRepository creates a new ExplanationRepository.
func NewExplanationRepository(pool *pgxpool.Pool) *ExplanationRepository {
	return &ExplanationRepository{pool: pool}
}

// FindByQuestionAndPattern looks up a cached explanation for the question's
// current version. Returns (nil, nil) on a cache miss.
func (r *ExplanationRepository) FindByQuestionAndPattern(ctx context.Context, questionID uuid.UUID, pattern, model_, language string) (*model.QuestionAiExplanation, error) {
	e := &model.QuestionAiExplanation{}
	err := r.pool.QueryRow(ctx,
		`SELECT e.id, e.question_version_id, e.answer_pattern, e.model, e.language,
		        e.content_text, e.tokens_total, e.cost_cents, e.created_at
		 FROM question_ai_explanations e
		 JOIN questions q ON q.current_version_id = e.question_version_id
		 WHERE q.id = $1 AND e.answer_pattern = $2 AND e.model = $3 AND e.language = $4`,
		questionID, pattern, model_, language,
	).Scan(&e.ID, &e.QuestionVersionID, &e.AnswerPattern, &e.Model, &e.Language,
		&e.ContentText, &e.TokensTotal, &e.CostCents, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find explanation: %w", err)
	}
	return e, nil
}

// FindByVersionKey looks up a cached explanation by its full cache key.
// Old version references stay resolvable after the question moves on to a
// newer version. Returns (nil, nil) on a miss.
func (r *ExplanationRepository) FindByVersionKey(ctx context.Context, versionID uuid.UUID, pattern, model_, language string) (*model.QuestionAiExplanation, error) {
	e := &model.QuestionAiExplanation{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, question_version_id, answer_pattern, model, language,
		        content_text, tokens_total, cost_cents, created_at
		 FROM question_ai_explanations
		 WHERE question_version_id = $1 AND answer_pattern = $2 AND model = $3 AND language = $4`,
		versionID, pattern, model_, language,
	).Scan(&e.ID, &e.QuestionVersionID, &e.AnswerPattern, &e.Model, &e.Language,
		&e.ContentText, &e.TokensTotal, &e.CostCents, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find explanation by version: %w", err)
	}
	return e, nil
}

// GetOrCreate persists e, treating a unique-key collision as "someone else
// just cached this": the existing row is fetched and returned instead of an
// error. The second return value reports whether a new row was inserted.
func (r *ExplanationRepository) GetOrCreate(ctx context.Context, e *model.QuestionAiExplanation) (*model.QuestionAiExplanation, bool, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO question_ai_explanations
		 (question_version_id, answer_pattern, model, language, content_text, tokens_total, cost_cents)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		e.QuestionVersionID, e.AnswerPattern, e.Model, e.Language,
		e.ContentText, e.TokensTotal, e.CostCents,
	).Scan(&e.ID, &e.CreatedAt)
	if err == nil {
		return e, true, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil, false, fmt.Errorf("insert explanation: %w", err)
	}

	// Concurrent generation for the identical key; converge on the row
	// that won.
	existing, err := r.FindByVersionKey(ctx, e.QuestionVersionID, e.AnswerPattern, e.Model, e.Language)
	if err != nil {
		return nil, false, fmt.Errorf("refetch after conflict: %w", err)
	}
	if existing == nil {
		return nil, false, fmt.Errorf("explanation vanished after unique conflict")
	}
	return existing, false, nil
}

// ListRecent retrieves a page of explanation summaries joined with content
// context, newest first, plus the total count.
func (r *ExplanationRepository) ListRecent(ctx context.Context, limit, offset int) ([]model.ExplanationSummary, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM question_ai_explanations`,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count explanations: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT e.id, v.question_id, v.stem_text, s.name, ex.title,
		        e.answer_pattern, e.model, e.language, e.tokens_total, e.cost_cents, e.created_at
		 FROM question_ai_explanations e
		 JOIN question_versions v ON v.id = e.question_version_id
		 JOIN questions q ON q.id = v.question_id
		 JOIN subjects s ON s.id = q.subject_id
		 LEFT JOIN exams ex ON ex.id = q.exam_id
		 ORDER BY e.created_at DESC, e.id DESC
		 LIMIT $1 OFFSET $2`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list explanations: %w", err)
	}
	defer rows.Close()

	var summaries []model.ExplanationSummary
	for rows.Next() {
		var sum model.ExplanationSummary
		if err := rows.Scan(&sum.ID, &sum.QuestionID, &sum.StemText, &sum.SubjectName, &sum.ExamTitle,
			&sum.AnswerPattern, &sum.Model, &sum.Language, &sum.TokensTotal, &sum.CostCents, &sum.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, total, rows.Err()
}

// AggregateTotals returns all-time cache totals.
func (r *ExplanationRepository) AggregateTotals(ctx context.Context) (*model.AggregateTotals, error) {
	t := &model.AggregateTotals{}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(tokens_total), 0), COALESCE(SUM(cost_cents), 0)
		 FROM question_ai_explanations`,
	).Scan(&t.TotalCount, &t.TokensTotal, &t.CostCentsTotal)
	if err != nil {
		return nil, fmt.Errorf("aggregate totals: %w", err)
	}
	return t, nil
}

// DailyTotals returns one bucket per day for the trailing window, oldest
// first. Days with no activity appear zero-filled rather than being
// omitted, so window sums reconcile with the aggregate.
func (r *ExplanationRepository) DailyTotals(ctx context.Context, days int) ([]model.DailyTotal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT d::date,
		        COUNT(e.id),
		        COALESCE(SUM(e.tokens_total), 0),
		        COALESCE(SUM(e.cost_cents), 0)
		 FROM generate_series(
		          CURRENT_DATE - ($1::int - 1) * INTERVAL '1 day',
		          CURRENT_DATE,
		          INTERVAL '1 day') AS d
		 LEFT JOIN question_ai_explanations e ON e.created_at::date = d::date
		 GROUP BY d
		 ORDER BY d`, days,
	)
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	defer rows.Close()

	var buckets []model.DailyTotal
	for rows.Next() {
		var b model.DailyTotal
		if err := rows.Scan(&b.Date, &b.TotalCount, &b.TokensTotal, &b.CostCents); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}
