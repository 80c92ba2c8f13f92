package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdeck/prepdeck-backend/internal/model"
)

// QuestionRepository is the storage side of the content store. All content
// writes that span the question head row, a version and its choices run in
// a single transaction so a partial failure leaves no orphan rows.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// SnapshotEntry is one (question, current version) pair of an exam's
// published question set, used to freeze session membership.
type SnapshotEntry struct {
	QuestionID        uuid.UUID
	QuestionVersionID uuid.UUID
}

// Create inserts the question head row, its first version and its choices
// atomically, then points the head row at the version. The version and
// choice structs are filled with generated ids on return.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question, v *model.QuestionVersion, choices []model.Choice) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := createQuestionInTx(ctx, tx, q, v, choices); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CreateBatch inserts many questions in one transaction. Either every item
// commits or none do; the returned ids are in input order.
func (r *QuestionRepository) CreateBatch(ctx context.Context, items []BatchItem) ([]uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, len(items))
	for i := range items {
		item := &items[i]
		if err := createQuestionInTx(ctx, tx, item.Question, item.Version, item.Choices); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		ids = append(ids, item.Question.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return ids, nil
}

// BatchItem is one prepared question for CreateBatch.
type BatchItem struct {
	Question *model.Question
	Version  *model.QuestionVersion
	Choices  []model.Choice
}

func createQuestionInTx(ctx context.Context, tx pgx.Tx, q *model.Question, v *model.QuestionVersion, choices []model.Choice) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO questions (subject_id, exam_id, kind, difficulty, domain, source, year, published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		q.SubjectID, q.ExamID, q.Kind, q.Difficulty, q.Domain, q.Source, q.Year, q.Published,
	).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}

	v.QuestionID = q.ID
	if err := insertVersionInTx(ctx, tx, v, choices); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE questions SET current_version_id = $1 WHERE id = $2`,
		v.ID, q.ID,
	); err != nil {
		return fmt.Errorf("point current version: %w", err)
	}
	q.CurrentVersionID = v.ID
	return nil
}

func insertVersionInTx(ctx context.Context, tx pgx.Tx, v *model.QuestionVersion, choices []model.Choice) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO question_versions (question_id, stem_text, explanation_text, has_math_markup, is_current)
		 VALUES ($1, $2, $3, $4, TRUE)
		 RETURNING id, created_at`,
		v.QuestionID, v.StemText, v.ExplanationText, v.HasMathMarkup,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	v.IsCurrent = true

	for i := range choices {
		c := &choices[i]
		c.QuestionVersionID = v.ID
		err := tx.QueryRow(ctx,
			`INSERT INTO choices (question_version_id, label, content_text, is_correct, sort_order)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			c.QuestionVersionID, c.Label, c.ContentText, c.IsCorrect, c.SortOrder,
		).Scan(&c.ID)
		if err != nil {
			return fmt.Errorf("insert choice %d: %w", c.SortOrder, err)
		}
	}
	return nil
}

// ReplaceCurrentVersion retires the current version and installs v (with its
// choices) as the new current one, repointing the head row — all in one
// transaction. Returns pgx.ErrNoRows if the question has no current version.
func (r *QuestionRepository) ReplaceCurrentVersion(ctx context.Context, questionID uuid.UUID, v *model.QuestionVersion, choices []model.Choice) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var retired uuid.UUID
	err = tx.QueryRow(ctx,
		`UPDATE question_versions SET is_current = FALSE
		 WHERE question_id = $1 AND is_current
		 RETURNING id`,
		questionID,
	).Scan(&retired)
	if err != nil {
		return fmt.Errorf("retire current version: %w", err)
	}

	v.QuestionID = questionID
	if err := insertVersionInTx(ctx, tx, v, choices); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE questions SET current_version_id = $1 WHERE id = $2`,
		v.ID, questionID,
	); err != nil {
		return fmt.Errorf("repoint question: %w", err)
	}

	return tx.Commit(ctx)
}

// UpdateHead applies metadata-only changes to the question head row.
// Nil fields are left untouched.
func (r *QuestionRepository) UpdateHead(ctx context.Context, req *model.UpdateQuestionRequest) (bool, error) {
	query := `UPDATE questions SET id = id`
	args := []any{req.ID}

	appendSet := func(col string, val any) {
		args = append(args, val)
		query += fmt.Sprintf(", %s = $%d", col, len(args))
	}
	if req.Difficulty != nil {
		appendSet("difficulty", *req.Difficulty)
	}
	if req.Domain != nil {
		appendSet("domain", *req.Domain)
	}
	if req.Source != nil {
		appendSet("source", *req.Source)
	}
	if req.Year != nil {
		appendSet("year", *req.Year)
	}
	if req.Published != nil {
		appendSet("published", *req.Published)
	}
	query += ` WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update question: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetView loads a question joined with its current version and choices.
func (r *QuestionRepository) GetView(ctx context.Context, id uuid.UUID) (*model.QuestionView, error) {
	view := &model.QuestionView{}
	q := &view.Question
	v := &view.Version

	err := r.pool.QueryRow(ctx,
		`SELECT q.id, q.subject_id, q.exam_id, q.kind, q.difficulty, q.domain, q.source,
		        q.year, q.published, q.current_version_id, q.created_at,
		        v.id, v.question_id, v.stem_text, v.explanation_text, v.has_math_markup,
		        v.is_current, v.created_at
		 FROM questions q
		 JOIN question_versions v ON v.id = q.current_version_id
		 WHERE q.id = $1`, id,
	).Scan(&q.ID, &q.SubjectID, &q.ExamID, &q.Kind, &q.Difficulty, &q.Domain, &q.Source,
		&q.Year, &q.Published, &q.CurrentVersionID, &q.CreatedAt,
		&v.ID, &v.QuestionID, &v.StemText, &v.ExplanationText, &v.HasMathMarkup,
		&v.IsCurrent, &v.CreatedAt)
	if err != nil {
		return nil, err
	}

	choices, err := r.choicesForVersions(ctx, []uuid.UUID{v.ID})
	if err != nil {
		return nil, err
	}
	view.Choices = choices[v.ID]
	return view, nil
}

// HeadExists reports whether the question head row exists regardless of its
// version pointer. Used to tell an ordinary missing question apart from a
// question whose current version is gone (an invariant violation).
func (r *QuestionRepository) HeadExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM questions WHERE id = $1)`, id,
	).Scan(&exists)
	return exists, err
}

// ListByExam retrieves a filtered page of an exam's questions resolved
// through their current versions, plus the total match count.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID, f model.QuestionFilters, limit, offset int) ([]model.QuestionView, int, error) {
	baseQuery := `
		FROM questions q
		JOIN question_versions v ON v.id = q.current_version_id
		WHERE q.exam_id = $1
	`
	args := []any{examID}

	if f.SubjectID != nil {
		args = append(args, *f.SubjectID)
		baseQuery += fmt.Sprintf(" AND q.subject_id = $%d", len(args))
	}
	if f.Difficulty != nil && *f.Difficulty != "" {
		args = append(args, *f.Difficulty)
		baseQuery += fmt.Sprintf(" AND q.difficulty = $%d", len(args))
	}
	if f.Year != nil {
		args = append(args, *f.Year)
		baseQuery += fmt.Sprintf(" AND q.year = $%d", len(args))
	}
	if f.Domain != nil && *f.Domain != "" {
		args = append(args, *f.Domain)
		baseQuery += fmt.Sprintf(" AND q.domain = $%d", len(args))
	}
	if f.Published != nil {
		args = append(args, *f.Published)
		baseQuery += fmt.Sprintf(" AND q.published = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}

	query := `
		SELECT q.id, q.subject_id, q.exam_id, q.kind, q.difficulty, q.domain, q.source,
		       q.year, q.published, q.current_version_id, q.created_at,
		       v.id, v.question_id, v.stem_text, v.explanation_text, v.has_math_markup,
		       v.is_current, v.created_at
		` + baseQuery + fmt.Sprintf(`
		ORDER BY q.created_at ASC, q.id ASC
		LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var views []model.QuestionView
	var versionIDs []uuid.UUID
	for rows.Next() {
		var view model.QuestionView
		q := &view.Question
		v := &view.Version
		if err := rows.Scan(&q.ID, &q.SubjectID, &q.ExamID, &q.Kind, &q.Difficulty, &q.Domain,
			&q.Source, &q.Year, &q.Published, &q.CurrentVersionID, &q.CreatedAt,
			&v.ID, &v.QuestionID, &v.StemText, &v.ExplanationText, &v.HasMathMarkup,
			&v.IsCurrent, &v.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan question: %w", err)
		}
		views = append(views, view)
		versionIDs = append(versionIDs, v.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	choiceMap, err := r.choicesForVersions(ctx, versionIDs)
	if err != nil {
		return nil, 0, err
	}
	for i := range views {
		views[i].Choices = choiceMap[views[i].Version.ID]
	}

	return views, total, nil
}

// ExamSnapshot returns the exam's published question set in stable order,
// each paired with its current version id.
func (r *QuestionRepository) ExamSnapshot(ctx context.Context, examID uuid.UUID) ([]SnapshotEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.current_version_id
		 FROM questions q
		 WHERE q.exam_id = $1 AND q.published AND q.current_version_id IS NOT NULL
		 ORDER BY q.created_at ASC, q.id ASC`, examID,
	)
	if err != nil {
		return nil, fmt.Errorf("exam snapshot: %w", err)
	}
	defer rows.Close()

	var entries []SnapshotEntry
	for rows.Next() {
		var e SnapshotEntry
		if err := rows.Scan(&e.QuestionID, &e.QuestionVersionID); err != nil {
			return nil, fmt.Errorf("scan snapshot entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CorrectIndices returns the zero-based option indices marked correct on a
// version, ordered ascending. Indices are derived from sort_order, which is
// 1-based.
func (r *QuestionRepository) CorrectIndices(ctx context.Context, versionID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT sort_order - 1 FROM choices
		 WHERE question_version_id = $1 AND is_correct
		 ORDER BY sort_order`, versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("correct indices: %w", err)
	}
	defer rows.Close()

	var indices []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	return indices, rows.Err()
}

// Delete removes the question and, via cascades, every version, choice and
// explanation hanging off it. Irreversible.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete question: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *QuestionRepository) choicesForVersions(ctx context.Context, versionIDs []uuid.UUID) (map[uuid.UUID][]model.Choice, error) {
	result := make(map[uuid.UUID][]model.Choice, len(versionIDs))
	if len(versionIDs) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, question_version_id, label, content_text, is_correct, sort_order
		 FROM choices
		 WHERE question_version_id = ANY($1)
		 ORDER BY question_version_id, sort_order`, versionIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("get choices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.Choice
		if err := rows.Scan(&c.ID, &c.QuestionVersionID, &c.Label, &c.ContentText, &c.IsCorrect, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("scan choice: %w", err)
		}
		result[c.QuestionVersionID] = append(result[c.QuestionVersionID], c)
	}
	return result, rows.Err()
}
