package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/response"
	"github.com/prepdeck/prepdeck-backend/internal/service"
	"github.com/prepdeck/prepdeck-backend/internal/validator"
)

// QuestionHandler handles content store endpoints.
type QuestionHandler struct {
	contentService *service.ContentService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(contentService *service.ContentService) *QuestionHandler {
	return &QuestionHandler{contentService: contentService}
}

// CreateQuestion godoc
// POST /api/v1/questions
// Creates a question with its first version and choices.
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	id, err := h.contentService.CreateQuestion(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		failWithError(c, err)
		return
	}

	view, err := h.contentService.GetQuestion(c.Request.Context(), id)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": view})
}

// GetQuestion godoc
// GET /api/v1/questions/:id
// Retrieves a question resolved through its current version.
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.contentService.GetQuestion(c.Request.Context(), id)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": view})
}

// UpdateQuestion godoc
// PUT /api/v1/questions/:id
// Updates question metadata and versions any content change.
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	req.ID = id

	if err := h.contentService.UpdateQuestion(c.Request.Context(), actorFrom(c), &req); err != nil {
		failWithError(c, err)
		return
	}

	view, err := h.contentService.GetQuestion(c.Request.Context(), id)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": view})
}

// DeleteQuestion godoc
// DELETE /api/v1/questions/:id
// Deletes a question with all its versions, choices and explanations.
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.contentService.DeleteQuestion(c.Request.Context(), actorFrom(c), id); err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "question deleted successfully"})
}

// ListByExam godoc
// GET /api/v1/exams/:exam_id/questions
// Lists an exam's questions with conjunctive filters and pagination.
func (h *QuestionHandler) ListByExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	filters, ok := parseFilters(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	views, pagination, err := h.contentService.ListByExam(c.Request.Context(), examID, filters, page, perPage)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"questions": views}, pagination)
}

// BulkCreate godoc
// POST /api/v1/questions/bulk
// Imports a batch of questions in one transaction.
func (h *QuestionHandler) BulkCreate(c *gin.Context) {
	var req model.BulkCreateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ids, err := h.contentService.BulkCreate(c.Request.Context(), actorFrom(c), req.Questions)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question_ids": ids})
}

func parseFilters(c *gin.Context) (model.QuestionFilters, bool) {
	var filters model.QuestionFilters

	if raw := c.Query("subject_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return filters, false
		}
		filters.SubjectID = &id
	}
	if raw := c.Query("difficulty"); raw != "" {
		filters.Difficulty = &raw
	}
	if raw := c.Query("domain"); raw != "" {
		filters.Domain = &raw
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"year": "must be an integer"})
			return filters, false
		}
		filters.Year = &year
	}
	if raw := c.Query("published"); raw != "" {
		published, err := strconv.ParseBool(raw)
		if err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"published": "must be a boolean"})
			return filters, false
		}
		filters.Published = &published
	}
	return filters, true
}

// actorFrom names the mutation author for audit events. There is no
// authenticated principal on this surface; callers identify themselves via
// header, defaulting to anonymous.
func actorFrom(c *gin.Context) string {
	if actor := c.GetHeader("X-Actor"); actor != "" {
		return actor
	}
	return "anonymous"
}
