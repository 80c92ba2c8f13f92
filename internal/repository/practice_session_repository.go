package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdeck/prepdeck-backend/internal/model"
)

// ErrRevisionConflict is returned when the optimistic metadata update loses
// the revision race more times than the retry budget allows.
var ErrRevisionConflict = errors.New("session metadata revision conflict")

// metadataRetries bounds the CAS loop. Contention on a single learner's
// session is a couple of back-to-back requests at most.
const metadataRetries = 5

// PracticeSessionRepository handles practice session and snapshot storage.
type PracticeSessionRepository struct {
	pool *pgxpool.Pool
}

// NewPracticeSessionRepository creates a new PracticeSessionRepository.
func NewPracticeSessionRepository(pool *pgxpool.Pool) *PracticeSessionRepository {
	return &PracticeSessionRepository{pool: pool}
}

// CreateWithSnapshot inserts the session row and its frozen question slots
// in one transaction. Slot membership and ordering never change afterwards.
func (r *PracticeSessionRepository) CreateWithSnapshot(ctx context.Context, s *model.PracticeSession, slots []model.PracticeSessionQuestion) error {
	metaJSON, err := json.Marshal(s.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO practice_sessions (user_id, exam_id, status, metadata)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, started_at, revision`,
		s.UserID, s.ExamID, model.SessionStatusInProgress, metaJSON,
	).Scan(&s.ID, &s.StartedAt, &s.Revision)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	s.Status = model.SessionStatusInProgress

	for i := range slots {
		slot := &slots[i]
		slot.SessionID = s.ID
		if _, err := tx.Exec(ctx,
			`INSERT INTO practice_session_questions
			 (session_id, question_id, question_version_id, order_index, selected_answers)
			 VALUES ($1, $2, $3, $4, '[]')`,
			slot.SessionID, slot.QuestionID, slot.QuestionVersionID, slot.OrderIndex,
		); err != nil {
			return fmt.Errorf("insert session question %d: %w", slot.OrderIndex, err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a session with its metadata and revision.
func (r *PracticeSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PracticeSession, error) {
	s := &model.PracticeSession{}
	var metaJSON []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, exam_id, status, score_percent, metadata, revision, started_at, completed_at
		 FROM practice_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.ExamID, &s.Status, &s.ScorePercent, &metaJSON, &s.Revision, &s.StartedAt, &s.CompletedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metaJSON, &s.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return s, nil
}

// ListQuestions returns the session's snapshot slots in frozen order.
func (r *PracticeSessionRepository) ListQuestions(ctx context.Context, sessionID uuid.UUID) ([]model.PracticeSessionQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, question_id, question_version_id, order_index,
		        selected_answers, is_correct, time_spent_seconds, linked_explanation_id
		 FROM practice_session_questions
		 WHERE session_id = $1
		 ORDER BY order_index`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list session questions: %w", err)
	}
	defer rows.Close()

	var slots []model.PracticeSessionQuestion
	for rows.Next() {
		slot, err := scanSessionQuestion(rows.Scan)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *slot)
	}
	return slots, rows.Err()
}

// GetQuestion retrieves one snapshot slot.
func (r *PracticeSessionRepository) GetQuestion(ctx context.Context, sessionID, questionID uuid.UUID) (*model.PracticeSessionQuestion, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT session_id, question_id, question_version_id, order_index,
		        selected_answers, is_correct, time_spent_seconds, linked_explanation_id
		 FROM practice_session_questions
		 WHERE session_id = $1 AND question_id = $2`, sessionID, questionID,
	)
	return scanSessionQuestion(row.Scan)
}

func scanSessionQuestion(scan func(...any) error) (*model.PracticeSessionQuestion, error) {
	slot := &model.PracticeSessionQuestion{}
	var selectedJSON []byte
	if err := scan(&slot.SessionID, &slot.QuestionID, &slot.QuestionVersionID, &slot.OrderIndex,
		&selectedJSON, &slot.IsCorrect, &slot.TimeSpentSeconds, &slot.LinkedExplanationID); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(selectedJSON, &slot.SelectedAnswers); err != nil {
		return nil, fmt.Errorf("unmarshal selected answers: %w", err)
	}
	return slot, nil
}

// UpdateProgress persists a learner's selection and grade for one slot. The
// statement itself requires the session to still be in_progress, so an
// answer racing a terminal transition cannot land after it. Returns false
// when the slot is missing or the session is no longer mutable.
func (r *PracticeSessionRepository) UpdateProgress(ctx context.Context, sessionID, questionID uuid.UUID, selected []int, isCorrect bool, timeSpent *int) (bool, error) {
	selectedJSON, err := json.Marshal(selected)
	if err != nil {
		return false, fmt.Errorf("marshal selected answers: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE practice_session_questions
		 SET selected_answers = $1, is_correct = $2,
		     time_spent_seconds = COALESCE($3, time_spent_seconds)
		 WHERE session_id = $4 AND question_id = $5
		   AND EXISTS (SELECT 1 FROM practice_sessions WHERE id = $4 AND status = $6)`,
		selectedJSON, isCorrect, timeSpent, sessionID, questionID, model.SessionStatusInProgress,
	)
	if err != nil {
		return false, fmt.Errorf("update progress: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// LinkExplanation associates a cached explanation with a slot.
func (r *PracticeSessionRepository) LinkExplanation(ctx context.Context, sessionID, questionID, explanationID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE practice_session_questions
		 SET linked_explanation_id = $1
		 WHERE session_id = $2 AND question_id = $3`,
		explanationID, sessionID, questionID,
	)
	if err != nil {
		return false, fmt.Errorf("link explanation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MutateMetadata applies fn to the session under an optimistic revision
// check. fn sees the freshly loaded session (including status) and mutates
// s.Metadata in place; the write only lands if no concurrent writer bumped
// the revision in between, otherwise the load-merge-write cycle retries.
// A full blob overwrite without the revision guard would let two
// back-to-back requests silently drop one another's updates.
func (r *PracticeSessionRepository) MutateMetadata(ctx context.Context, id uuid.UUID, fn func(s *model.PracticeSession) error) (*model.PracticeSession, error) {
	for attempt := 0; attempt < metadataRetries; attempt++ {
		s, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := fn(s); err != nil {
			return nil, err
		}

		metaJSON, err := json.Marshal(s.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}

		tag, err := r.pool.Exec(ctx,
			`UPDATE practice_sessions
			 SET metadata = $1, revision = revision + 1
			 WHERE id = $2 AND revision = $3`,
			metaJSON, id, s.Revision,
		)
		if err != nil {
			return nil, fmt.Errorf("update metadata: %w", err)
		}
		if tag.RowsAffected() > 0 {
			s.Revision++
			return s, nil
		}
		// Lost the race; reload and retry.
	}
	return nil, ErrRevisionConflict
}

// Transition moves an in_progress session to a terminal state. Returns
// false when the session was not in_progress (already terminal) — callers
// distinguish that from a missing session themselves.
func (r *PracticeSessionRepository) Transition(ctx context.Context, id uuid.UUID, to model.SessionStatus, scorePercent *float64) (bool, error) {
	var completedAt *time.Time
	if to == model.SessionStatusCompleted {
		now := time.Now()
		completedAt = &now
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE practice_sessions
		 SET status = $1, score_percent = COALESCE($2, score_percent), completed_at = $3
		 WHERE id = $4 AND status = $5`,
		to, scorePercent, completedAt, id, model.SessionStatusInProgress,
	)
	if err != nil {
		return false, fmt.Errorf("transition session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ScoreCounts returns how many snapshot slots exist and how many were
// answered correctly, for final score computation.
func (r *PracticeSessionRepository) ScoreCounts(ctx context.Context, sessionID uuid.UUID) (total, correct int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_correct)
		 FROM practice_session_questions
		 WHERE session_id = $1`, sessionID,
	).Scan(&total, &correct)
	if err != nil {
		return 0, 0, fmt.Errorf("score counts: %w", err)
	}
	return total, correct, nil
}
