package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prepdeck/prepdeck-backend/internal/apperr"
	"github.com/prepdeck/prepdeck-backend/internal/audit"
	"github.com/prepdeck/prepdeck-backend/internal/config"
	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SessionService drives the practice session lifecycle: snapshot creation,
// answer grading against pinned versions, metadata merges and terminal
// transitions.
type SessionService struct {
	sessionRepo  *repository.PracticeSessionRepository
	questionRepo *repository.QuestionRepository
	taxonomyRepo *repository.TaxonomyRepository
	rdb          *redis.Client
	auditor      *audit.Recorder
	log          zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessionRepo *repository.PracticeSessionRepository,
	questionRepo *repository.QuestionRepository,
	taxonomyRepo *repository.TaxonomyRepository,
	rdb *redis.Client,
	auditor *audit.Recorder,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo:  sessionRepo,
		questionRepo: questionRepo,
		taxonomyRepo: taxonomyRepo,
		rdb:          rdb,
		auditor:      auditor,
		log:          log.With().Str("component", "session_service").Logger(),
	}
}

// SessionView is a session joined with its frozen question slots.
type SessionView struct {
	Session   *model.PracticeSession          `json:"session"`
	Questions []model.PracticeSessionQuestion `json:"questions"`
}

// StartSession freezes the exam's current published question set into a new
// session. Questions added to or edited in the exam afterwards do not affect
// this session.
func (s *SessionService) StartSession(ctx context.Context, req *model.StartSessionRequest) (*SessionView, error) {
	exam, err := s.taxonomyRepo.GetExam(ctx, req.ExamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("exam", req.ExamID.String())
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	entries, err := s.questionRepo.ExamSnapshot(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apperr.Validation("exam_id", "exam has no published questions")
	}

	session := &model.PracticeSession{
		UserID: req.UserID,
		ExamID: req.ExamID,
		Metadata: model.SessionMetadata{
			FlaggedQuestionIDs:    []uuid.UUID{},
			BookmarkedQuestionIDs: []uuid.UUID{},
			RemainingSeconds:      req.RemainingSeconds,
		},
	}
	slots := make([]model.PracticeSessionQuestion, len(entries))
	for i, e := range entries {
		slots[i] = model.PracticeSessionQuestion{
			QuestionID:        e.QuestionID,
			QuestionVersionID: e.QuestionVersionID,
			OrderIndex:        i,
			SelectedAnswers:   []int{},
		}
	}

	if err := s.sessionRepo.CreateWithSnapshot(ctx, session, slots); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.auditor.Record(ctx, req.UserID.String(), "session.start", "practice_session", session.ID.String(), map[string]any{
		"exam_id":        req.ExamID.String(),
		"exam_title":     exam.Title,
		"question_count": len(slots),
	})
	return &SessionView{Session: session, Questions: slots}, nil
}

// GetSession retrieves a session with its slots, regardless of status.
// Completed and abandoned sessions stay readable for review.
func (s *SessionService) GetSession(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	session, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.sessionRepo.ListQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SessionView{Session: session, Questions: questions}, nil
}

// RecordQuestionProgress grades a learner's selection against the pinned
// version's answer key and persists the result on the slot. Re-answering a
// slot overwrites the previous selection.
func (s *SessionService) RecordQuestionProgress(ctx context.Context, sessionID, questionID uuid.UUID, req *model.RecordProgressRequest) (*model.PracticeSessionQuestion, error) {
	if _, err := s.getActiveSession(ctx, sessionID, "record progress"); err != nil {
		return nil, err
	}

	slot, err := s.sessionRepo.GetQuestion(ctx, sessionID, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("session question", questionID.String())
		}
		return nil, fmt.Errorf("get session question: %w", err)
	}

	// Grade against the version frozen at session start, never the current
	// one.
	correct, err := s.questionRepo.CorrectIndices(ctx, slot.QuestionVersionID)
	if err != nil {
		return nil, err
	}
	isCorrect := evaluateSelection(req.SelectedAnswers, correct)

	ok, err := s.sessionRepo.UpdateProgress(ctx, sessionID, questionID, req.SelectedAnswers, isCorrect, req.TimeSpentSeconds)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The guarded UPDATE refuses both missing slots and sessions that
		// turned terminal since the check above; reload to tell them apart.
		if _, err := s.getActiveSession(ctx, sessionID, "record progress"); err != nil {
			return nil, err
		}
		return nil, apperr.NotFound("session question", questionID.String())
	}

	slot.SelectedAnswers = req.SelectedAnswers
	slot.IsCorrect = &isCorrect
	if req.TimeSpentSeconds != nil {
		slot.TimeSpentSeconds = req.TimeSpentSeconds
	}
	return slot, nil
}

// AdvanceQuestion moves the session cursor. Backwards navigation is allowed;
// indices past the snapshot are not.
func (s *SessionService) AdvanceQuestion(ctx context.Context, sessionID uuid.UUID, index int) (*model.PracticeSession, error) {
	total, _, err := s.sessionRepo.ScoreCounts(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return s.mutateActive(ctx, sessionID, "advance", func(m *model.SessionMetadata) error {
		if index >= total {
			return apperr.Validation("current_question_index", fmt.Sprintf("index %d out of range for %d questions", index, total))
		}
		m.Advance(index)
		return nil
	})
}

// ToggleFlag sets or clears the flagged bit on a snapshot question.
// Idempotent: setting a state that already holds succeeds without effect.
func (s *SessionService) ToggleFlag(ctx context.Context, sessionID uuid.UUID, req *model.ToggleRequest) (*model.PracticeSession, error) {
	if err := s.requireSlot(ctx, sessionID, req.QuestionID); err != nil {
		return nil, err
	}
	return s.mutateActive(ctx, sessionID, "flag", func(m *model.SessionMetadata) error {
		m.SetFlag(req.QuestionID, req.Desired)
		return nil
	})
}

// ToggleBookmark sets or clears the bookmarked bit on a snapshot question.
func (s *SessionService) ToggleBookmark(ctx context.Context, sessionID uuid.UUID, req *model.ToggleRequest) (*model.PracticeSession, error) {
	if err := s.requireSlot(ctx, sessionID, req.QuestionID); err != nil {
		return nil, err
	}
	return s.mutateActive(ctx, sessionID, "bookmark", func(m *model.SessionMetadata) error {
		m.SetBookmark(req.QuestionID, req.Desired)
		return nil
	})
}

// UpdateRemainingSeconds persists the client-reported countdown. The stored
// value only ever decreases; an increase is rejected rather than clamped so
// the client learns its clock disagrees with the record.
func (s *SessionService) UpdateRemainingSeconds(ctx context.Context, sessionID uuid.UUID, seconds int) (*model.PracticeSession, error) {
	session, err := s.mutateActive(ctx, sessionID, "update remaining time", func(m *model.SessionMetadata) error {
		if !m.SetRemaining(seconds) {
			return apperr.Validation("remaining_seconds", "cannot increase remaining time")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Best-effort mirror for cheap polling; the JSONB metadata stays the
	// source of truth.
	if err := s.rdb.Set(ctx, config.QueueKey.SessionRemainingKey(sessionID.String()), seconds, time.Duration(seconds+60)*time.Second).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Remaining time mirror write failed")
	}
	return session, nil
}

// CompleteSession computes the final score over the full snapshot
// (unanswered slots count as incorrect) and transitions to completed.
func (s *SessionService) CompleteSession(ctx context.Context, sessionID uuid.UUID) (*model.PracticeSession, error) {
	total, correct, err := s.sessionRepo.ScoreCounts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, apperr.NotFound("practice session", sessionID.String())
	}

	score := math.Round(float64(correct)/float64(total)*10000) / 100

	session, err := s.transition(ctx, sessionID, model.SessionStatusCompleted, &score, "complete")
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, session.UserID.String(), "session.complete", "practice_session", sessionID.String(), map[string]any{
		"score_percent": score,
	})
	return session, nil
}

// MarkAbandoned transitions an in-progress session to abandoned. No score is
// computed.
func (s *SessionService) MarkAbandoned(ctx context.Context, sessionID uuid.UUID) (*model.PracticeSession, error) {
	session, err := s.transition(ctx, sessionID, model.SessionStatusAbandoned, nil, "abandon")
	if err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, session.UserID.String(), "session.abandon", "practice_session", sessionID.String(), nil)
	return session, nil
}

// MarkExpired transitions an in-progress session to expired, for sessions
// whose countdown ran out.
func (s *SessionService) MarkExpired(ctx context.Context, sessionID uuid.UUID) (*model.PracticeSession, error) {
	session, err := s.transition(ctx, sessionID, model.SessionStatusExpired, nil, "expire")
	if err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, session.UserID.String(), "session.expire", "practice_session", sessionID.String(), nil)
	return session, nil
}

func (s *SessionService) transition(ctx context.Context, sessionID uuid.UUID, to model.SessionStatus, score *float64, op string) (*model.PracticeSession, error) {
	ok, err := s.sessionRepo.Transition(ctx, sessionID, to, score)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Either missing or already terminal; load to tell them apart.
		session, err := s.getSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return nil, &apperr.InvalidStateError{Entity: "practice session", State: string(session.Status), Op: op}
	}
	return s.getSession(ctx, sessionID)
}

func (s *SessionService) getSession(ctx context.Context, id uuid.UUID) (*model.PracticeSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("practice session", id.String())
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (s *SessionService) getActiveSession(ctx context.Context, id uuid.UUID, op string) (*model.PracticeSession, error) {
	session, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, &apperr.InvalidStateError{Entity: "practice session", State: string(session.Status), Op: op}
	}
	return session, nil
}

// mutateActive runs a metadata merge under the revision guard, refusing
// terminal sessions.
func (s *SessionService) mutateActive(ctx context.Context, sessionID uuid.UUID, op string, fn func(m *model.SessionMetadata) error) (*model.PracticeSession, error) {
	session, err := s.sessionRepo.MutateMetadata(ctx, sessionID, func(loaded *model.PracticeSession) error {
		if loaded.Status.Terminal() {
			return &apperr.InvalidStateError{Entity: "practice session", State: string(loaded.Status), Op: op}
		}
		return fn(&loaded.Metadata)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("practice session", sessionID.String())
		}
		return nil, err
	}
	return session, nil
}

func (s *SessionService) requireSlot(ctx context.Context, sessionID, questionID uuid.UUID) error {
	if _, err := s.sessionRepo.GetQuestion(ctx, sessionID, questionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("session question", questionID.String())
		}
		return fmt.Errorf("get session question: %w", err)
	}
	return nil
}
