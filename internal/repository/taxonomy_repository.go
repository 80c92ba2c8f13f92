package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdeck/prepdeck-backend/internal/model"
)

// TaxonomyRepository gives the core read-only access to subjects and exams.
// Those entities are owned by the taxonomy subsystem; this repository only
// validates references before content mutation.
type TaxonomyRepository struct {
	pool *pgxpool.Pool
}

// NewTaxonomyRepository creates a new TaxonomyRepository.
func NewTaxonomyRepository(pool *pgxpool.Pool) *TaxonomyRepository {
	return &TaxonomyRepository{pool: pool}
}

// SubjectExists reports whether the subject reference is valid.
func (r *TaxonomyRepository) SubjectExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM subjects WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("subject exists: %w", err)
	}
	return exists, nil
}

// ExamExists reports whether the exam reference is valid.
func (r *TaxonomyRepository) ExamExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM exams WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exam exists: %w", err)
	}
	return exists, nil
}

// GetExam retrieves one exam.
func (r *TaxonomyRepository) GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, subject_id, title, created_at FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.SubjectID, &e.Title, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}
