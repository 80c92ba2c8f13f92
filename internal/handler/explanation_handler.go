package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-backend/internal/response"
	"github.com/prepdeck/prepdeck-backend/internal/service"
	"github.com/prepdeck/prepdeck-backend/internal/validator"
)

// ExplanationHandler handles explanation cache endpoints.
type ExplanationHandler struct {
	explanationService *service.ExplanationService
}

// NewExplanationHandler creates a new ExplanationHandler.
func NewExplanationHandler(explanationService *service.ExplanationService) *ExplanationHandler {
	return &ExplanationHandler{explanationService: explanationService}
}

// ExplainRequest is the payload for the get-or-create endpoint.
type ExplainRequest struct {
	SelectedAnswers []int `json:"selected_answers" binding:"required,min=1,dive,min=0"`
}

// LinkRequest links a cached explanation to a session slot.
type LinkRequest struct {
	QuestionID    uuid.UUID `json:"question_id" binding:"required"`
	ExplanationID uuid.UUID `json:"explanation_id" binding:"required"`
}

// Explain godoc
// POST /api/v1/questions/:id/explanations
// Returns the cached explanation for the selection, generating on a miss.
func (h *ExplanationHandler) Explain(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req ExplainRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	explanation, created, err := h.explanationService.GetOrCreateForQuestion(c.Request.Context(), questionID, req.SelectedAnswers)
	if err != nil {
		failWithError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{"explanation": explanation, "generated": created})
}

// GetByVersion godoc
// POST /api/v1/question-versions/:version_id/explanations/lookup
// Resolves a cached explanation by version key; never generates. Old
// versions stay resolvable after the question moves on.
func (h *ExplanationHandler) GetByVersion(c *gin.Context) {
	versionID, err := uuid.Parse(c.Param("version_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req ExplainRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	explanation, err := h.explanationService.FindByVersionKey(c.Request.Context(), versionID, req.SelectedAnswers)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"explanation": explanation})
}

// LinkToSession godoc
// POST /api/v1/sessions/:id/explanations
// Associates a cached explanation with a session slot.
func (h *ExplanationHandler) LinkToSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req LinkRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.explanationService.LinkToSession(c.Request.Context(), sessionID, req.QuestionID, req.ExplanationID); err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "explanation linked successfully"})
}

// ListRecent godoc
// GET /api/v1/explanations
// Lists cached explanations newest first with pagination.
func (h *ExplanationHandler) ListRecent(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	summaries, pagination, err := h.explanationService.ListRecent(c.Request.Context(), page, perPage)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"explanations": summaries}, pagination)
}

// Totals godoc
// GET /api/v1/explanations/totals
// Returns all-time cache totals.
func (h *ExplanationHandler) Totals(c *gin.Context) {
	totals, err := h.explanationService.AggregateTotals(c.Request.Context())
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"totals": totals})
}

// DailyTotals godoc
// GET /api/v1/explanations/totals/daily
// Returns zero-filled per-day buckets for the trailing window.
func (h *ExplanationHandler) DailyTotals(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	buckets, err := h.explanationService.DailyTotals(c.Request.Context(), days)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"days": buckets})
}
