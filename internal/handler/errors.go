package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prepdeck/prepdeck-backend/internal/apperr"
	"github.com/prepdeck/prepdeck-backend/internal/response"
)

// failWithError maps the service error taxonomy onto HTTP responses so every
// handler reports the same way. Fatal not-founds are broken content, not
// ordinary 404s.
func failWithError(c *gin.Context, err error) {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			ve.Field: ve.Reason,
		})
		return
	}

	var nf *apperr.NotFoundError
	if errors.As(err, &nf) {
		if nf.Fatal {
			response.Fail(c, http.StatusInternalServerError, response.ErrBrokenContent)
			return
		}
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	var is *apperr.InvalidStateError
	if errors.As(err, &is) {
		response.FailWithMessage(c, http.StatusConflict, response.ErrInvalidState, is.Error())
		return
	}

	var cf *apperr.ConflictError
	if errors.As(err, &cf) {
		response.Fail(c, http.StatusConflict, response.ErrConflict)
		return
	}

	var pf *apperr.PartialFailureError
	if errors.As(err, &pf) {
		fields := make(map[string]string, len(pf.Failures))
		for _, f := range pf.Failures {
			fields[itemKey(f.Index)] = f.Err.Error()
		}
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrPartialFailure, fields)
		return
	}

	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

func itemKey(index int) string {
	return "questions[" + strconv.Itoa(index) + "]"
}
