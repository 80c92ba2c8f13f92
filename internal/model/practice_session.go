package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates practice session states. Transitions only move
// forward: in_progress is the sole non-terminal state.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusAbandoned  SessionStatus = "abandoned"
	SessionStatusExpired    SessionStatus = "expired"
)

// Terminal reports whether no further mutation is permitted.
func (s SessionStatus) Terminal() bool {
	return s != SessionStatusInProgress
}

// SessionMetadata is the per-session progress blob. It is persisted as a
// JSONB column guarded by a revision counter; every mutation goes through
// one of the explicit merge operations below so concurrent requests against
// the same session cannot silently drop each other's updates.
type SessionMetadata struct {
	CurrentQuestionIndex  int         `json:"current_question_index"`
	FlaggedQuestionIDs    []uuid.UUID `json:"flagged_question_ids"`
	BookmarkedQuestionIDs []uuid.UUID `json:"bookmarked_question_ids"`
	RemainingSeconds      *int        `json:"remaining_seconds,omitempty"`
}

// Advance overwrites the current question index. Navigation is permitted in
// either direction.
func (m *SessionMetadata) Advance(index int) {
	m.CurrentQuestionIndex = index
}

// SetFlag adds or removes a question from the flagged set. Setting a state
// that already holds is a no-op.
func (m *SessionMetadata) SetFlag(questionID uuid.UUID, flagged bool) {
	m.FlaggedQuestionIDs = applyMembership(m.FlaggedQuestionIDs, questionID, flagged)
}

// SetBookmark adds or removes a question from the bookmarked set.
func (m *SessionMetadata) SetBookmark(questionID uuid.UUID, bookmarked bool) {
	m.BookmarkedQuestionIDs = applyMembership(m.BookmarkedQuestionIDs, questionID, bookmarked)
}

// SetRemaining records a client-reported countdown. The server is not a
// timer authority, but it refuses values that would extend the previously
// stored remaining time.
func (m *SessionMetadata) SetRemaining(seconds int) bool {
	if seconds < 0 {
		return false
	}
	if m.RemainingSeconds != nil && seconds > *m.RemainingSeconds {
		return false
	}
	m.RemainingSeconds = &seconds
	return true
}

func applyMembership(set []uuid.UUID, id uuid.UUID, present bool) []uuid.UUID {
	idx := -1
	for i, existing := range set {
		if existing == id {
			idx = i
			break
		}
	}
	if present {
		if idx >= 0 {
			return set
		}
		return append(set, id)
	}
	if idx < 0 {
		return set
	}
	return append(set[:idx], set[idx+1:]...)
}

// PracticeSession is a learner's resumable attempt at an exam.
type PracticeSession struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	ExamID       uuid.UUID       `json:"exam_id"`
	Status       SessionStatus   `json:"status"`
	ScorePercent *float64        `json:"score_percent,omitempty"`
	Metadata     SessionMetadata `json:"metadata"`
	Revision     int64           `json:"-"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// PracticeSessionQuestion is one slot of the session's frozen snapshot. It
// pins the question version that was current at session start, so later
// edits to the question never change what the session is graded against.
type PracticeSessionQuestion struct {
	SessionID           uuid.UUID  `json:"session_id"`
	QuestionID          uuid.UUID  `json:"question_id"`
	QuestionVersionID   uuid.UUID  `json:"question_version_id"`
	OrderIndex          int        `json:"order_index"`
	SelectedAnswers     []int      `json:"selected_answers"`
	IsCorrect           *bool      `json:"is_correct,omitempty"`
	TimeSpentSeconds    *int       `json:"time_spent_seconds,omitempty"`
	LinkedExplanationID *uuid.UUID `json:"linked_explanation_id,omitempty"`
}

// StartSessionRequest is the payload for starting a practice session.
type StartSessionRequest struct {
	UserID           uuid.UUID `json:"user_id" binding:"required"`
	ExamID           uuid.UUID `json:"exam_id" binding:"required"`
	RemainingSeconds *int      `json:"remaining_seconds" binding:"omitempty,min=0"`
}

// RecordProgressRequest is the payload for recording an answer on a
// session-question slot.
type RecordProgressRequest struct {
	SelectedAnswers  []int `json:"selected_answers" binding:"required,min=1,dive,min=0"`
	TimeSpentSeconds *int  `json:"time_spent_seconds" binding:"omitempty,min=0"`
}

// ToggleRequest is the payload for flag/bookmark toggling.
type ToggleRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Desired    bool      `json:"desired"`
}

// AdvanceRequest is the payload for moving the session cursor.
type AdvanceRequest struct {
	CurrentQuestionIndex int `json:"current_question_index" binding:"min=0"`
}

// RemainingRequest is the payload for persisting the client countdown.
type RemainingRequest struct {
	RemainingSeconds int `json:"remaining_seconds" binding:"min=0"`
}
