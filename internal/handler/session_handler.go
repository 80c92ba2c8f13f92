package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/response"
	"github.com/prepdeck/prepdeck-backend/internal/service"
	"github.com/prepdeck/prepdeck-backend/internal/validator"
)

// SessionHandler handles practice session endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// StartSession godoc
// POST /api/v1/sessions
// Starts a practice session frozen against the exam's current question set.
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.sessionService.StartSession(c.Request.Context(), &req)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": view})
}

// GetSession godoc
// GET /api/v1/sessions/:id
// Retrieves a session with its frozen question slots.
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	view, err := h.sessionService.GetSession(c.Request.Context(), id)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// RecordProgress godoc
// POST /api/v1/sessions/:id/questions/:question_id/progress
// Records and grades an answer on one snapshot slot.
func (h *SessionHandler) RecordProgress(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.RecordProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	slot, err := h.sessionService.RecordQuestionProgress(c.Request.Context(), id, questionID, &req)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": slot})
}

// Advance godoc
// POST /api/v1/sessions/:id/advance
// Moves the session cursor.
func (h *SessionHandler) Advance(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req model.AdvanceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.AdvanceQuestion(c.Request.Context(), id, req.CurrentQuestionIndex)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// ToggleFlag godoc
// POST /api/v1/sessions/:id/flag
// Sets or clears the flagged bit on a snapshot question.
func (h *SessionHandler) ToggleFlag(c *gin.Context) {
	h.toggle(c, h.sessionService.ToggleFlag)
}

// ToggleBookmark godoc
// POST /api/v1/sessions/:id/bookmark
// Sets or clears the bookmarked bit on a snapshot question.
func (h *SessionHandler) ToggleBookmark(c *gin.Context) {
	h.toggle(c, h.sessionService.ToggleBookmark)
}

func (h *SessionHandler) toggle(c *gin.Context, fn func(ctx context.Context, sessionID uuid.UUID, req *model.ToggleRequest) (*model.PracticeSession, error)) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req model.ToggleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := fn(c.Request.Context(), id, &req)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// UpdateRemaining godoc
// POST /api/v1/sessions/:id/remaining
// Persists the client countdown; increases are rejected.
func (h *SessionHandler) UpdateRemaining(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req model.RemainingRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.UpdateRemainingSeconds(c.Request.Context(), id, req.RemainingSeconds)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// Complete godoc
// POST /api/v1/sessions/:id/complete
// Scores the full snapshot and transitions to completed.
func (h *SessionHandler) Complete(c *gin.Context) {
	h.transition(c, h.sessionService.CompleteSession)
}

// Abandon godoc
// POST /api/v1/sessions/:id/abandon
// Transitions the session to abandoned.
func (h *SessionHandler) Abandon(c *gin.Context) {
	h.transition(c, h.sessionService.MarkAbandoned)
}

// Expire godoc
// POST /api/v1/sessions/:id/expire
// Transitions the session to expired.
func (h *SessionHandler) Expire(c *gin.Context) {
	h.transition(c, h.sessionService.MarkExpired)
}

func (h *SessionHandler) transition(c *gin.Context, fn func(ctx context.Context, sessionID uuid.UUID) (*model.PracticeSession, error)) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := fn(c.Request.Context(), id)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
