package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-proctor/internal/model"
	"github.com/stemsi/exam-proctor/internal/response"
	"github.com/stemsi/exam-proctor/internal/service"
)

// failFromError maps a service error to the response envelope. Unknown
// errors are storage or infrastructure failures: logged, then 500.
func failFromError(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrProfileNotFound)
	case errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
	case errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
	case errors.Is(err, service.ErrQuestionNotFound):
		response.FailWithMessage(c, http.StatusNotFound, response.ErrQuestionNotFound, err.Error())

	case errors.Is(err, service.ErrNotEligible):
		response.Fail(c, http.StatusForbidden, response.ErrNotEligible)
	case errors.Is(err, service.ErrExamNotOpen):
		response.Fail(c, http.StatusForbidden, response.ErrExamNotOpen)
	case errors.Is(err, service.ErrExamClosed):
		response.Fail(c, http.StatusForbidden, response.ErrExamClosed)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusBadRequest, response.ErrAlreadySubmitted)

	case errors.Is(err, service.ErrInvalidOption), errors.Is(err, service.ErrDuplicateAnswer):
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrInvalidAnswer, err.Error())
	case errors.Is(err, service.ErrInvalidSchedule):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidSchedule)
	case errors.Is(err, model.ErrInvalidTimestamp):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidDatetime)

	case errors.Is(err, service.ErrNotTeacher):
		response.Fail(c, http.StatusForbidden, response.ErrTeacherAccessOnly)
	case errors.Is(err, service.ErrNotExamAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)

	case errors.Is(err, service.ErrSweepInProgress):
		response.Fail(c, http.StatusConflict, response.ErrSweepInProgress)

	default:
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// parseID reads a positive integer path parameter, replying 400 otherwise.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
