package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionKind distinguishes single-answer from multi-answer questions.
type QuestionKind string

const (
	QuestionKindSingle QuestionKind = "single"
	QuestionKindMulti  QuestionKind = "multi"
)

// Question is the mutable head record of a versioned question. Everything a
// learner actually reads (stem, explanation, choices) lives on the version
// the CurrentVersionID pointer designates.
type Question struct {
	ID               uuid.UUID    `json:"id"`
	SubjectID        uuid.UUID    `json:"subject_id"`
	ExamID           *uuid.UUID   `json:"exam_id,omitempty"`
	Kind             QuestionKind `json:"kind"`
	Difficulty       string       `json:"difficulty"`
	Domain           string       `json:"domain"`
	Source           string       `json:"source"`
	Year             *int         `json:"year,omitempty"`
	Published        bool         `json:"published"`
	CurrentVersionID uuid.UUID    `json:"current_version_id"`
	CreatedAt        time.Time    `json:"created_at"`
}

// QuestionVersion is an immutable snapshot of a question's content. Editing
// a question inserts a new version and flips the previous one's IsCurrent;
// version rows are never rewritten and never deleted while the question
// exists, so sessions and explanations keyed to old versions stay valid.
type QuestionVersion struct {
	ID              uuid.UUID `json:"id"`
	QuestionID      uuid.UUID `json:"question_id"`
	StemText        string    `json:"stem_text"`
	ExplanationText *string   `json:"explanation_text,omitempty"`
	HasMathMarkup   bool      `json:"has_math_markup"`
	IsCurrent       bool      `json:"is_current"`
	CreatedAt       time.Time `json:"created_at"`
}

// Choice belongs to exactly one version and is never shared across versions.
type Choice struct {
	ID                uuid.UUID `json:"id"`
	QuestionVersionID uuid.UUID `json:"question_version_id"`
	Label             string    `json:"label"`
	ContentText       string    `json:"content_text"`
	IsCorrect         bool      `json:"is_correct"`
	SortOrder         int       `json:"sort_order"`
}

// QuestionView is a question joined with its current version and choices,
// the shape reads resolve to.
type QuestionView struct {
	Question Question        `json:"question"`
	Version  QuestionVersion `json:"version"`
	Choices  []Choice        `json:"choices"`
}

// CorrectSpec is the tagged union naming which options are correct,
// resolved against the input order of options. Exactly one arm is used:
// Index for single-select, Indices for multi-select.
type CorrectSpec struct {
	Index   *int  `json:"index,omitempty" binding:"omitempty,min=0"`
	Indices []int `json:"indices,omitempty" binding:"omitempty,dive,min=0"`
}

// OptionInput is one option in its authoring order. Label is optional;
// unlabeled options receive sequential labels A, B, C, …
type OptionInput struct {
	Label       string `json:"label" binding:"omitempty,max=8"`
	ContentText string `json:"content_text" binding:"required,min=1,max=4000"`
}

// CreateQuestionRequest is the payload for creating a question with its
// first version.
type CreateQuestionRequest struct {
	SubjectID       uuid.UUID     `json:"subject_id" binding:"required"`
	ExamID          *uuid.UUID    `json:"exam_id"`
	Kind            QuestionKind  `json:"kind" binding:"required,oneof=single multi"`
	Difficulty      string        `json:"difficulty" binding:"omitempty,max=32"`
	Domain          string        `json:"domain" binding:"omitempty,max=128"`
	Source          string        `json:"source" binding:"omitempty,max=256"`
	Year            *int          `json:"year" binding:"omitempty,min=1900,max=2100"`
	Published       bool          `json:"published"`
	StemText        string        `json:"stem_text" binding:"required,min=1,max=8000"`
	ExplanationText *string       `json:"explanation_text" binding:"omitempty,max=16000"`
	Options         []OptionInput `json:"options" binding:"dive"`
	Correct         CorrectSpec   `json:"correct"`
}

// UpdateQuestionRequest updates question metadata and, when any content
// field is present, spins a new version. Nil content fields mean "keep the
// current version's value".
type UpdateQuestionRequest struct {
	ID              uuid.UUID     `json:"-"`
	Difficulty      *string       `json:"difficulty" binding:"omitempty,max=32"`
	Domain          *string       `json:"domain" binding:"omitempty,max=128"`
	Source          *string       `json:"source" binding:"omitempty,max=256"`
	Year            *int          `json:"year" binding:"omitempty,min=1900,max=2100"`
	Published       *bool         `json:"published"`
	StemText        *string       `json:"stem_text" binding:"omitempty,min=1,max=8000"`
	ExplanationText *string       `json:"explanation_text" binding:"omitempty,max=16000"`
	Options         []OptionInput `json:"options" binding:"omitempty,dive"`
	Correct         *CorrectSpec  `json:"correct"`
}

// HasContentChange reports whether the update touches versioned content
// rather than head-row metadata only.
func (r *UpdateQuestionRequest) HasContentChange() bool {
	return r.StemText != nil || r.ExplanationText != nil || len(r.Options) > 0
}

// QuestionFilters are conjunctive list filters.
type QuestionFilters struct {
	SubjectID  *uuid.UUID
	Difficulty *string
	Year       *int
	Domain     *string
	Published  *bool
}

// BulkCreateRequest is the payload for a transactional batch import.
type BulkCreateRequest struct {
	Questions []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}
