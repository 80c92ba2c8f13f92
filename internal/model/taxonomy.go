package model

import (
	"time"

	"github.com/google/uuid"
)

// Subject and Exam are owned by the taxonomy subsystem; this core only
// reads them to validate references and to decorate explanation listings.

type Subject struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Exam struct {
	ID        uuid.UUID `json:"id"`
	SubjectID uuid.UUID `json:"subject_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
