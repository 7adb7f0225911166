package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-proctor/internal/model"
	"github.com/stemsi/exam-proctor/internal/response"
	"github.com/stemsi/exam-proctor/internal/service"
	"github.com/stemsi/exam-proctor/internal/validator"
)

// ProctoringHandler records proctoring events and reports violation counts.
type ProctoringHandler struct {
	violationService *service.ViolationService
	log              zerolog.Logger
}

// NewProctoringHandler creates a new ProctoringHandler.
func NewProctoringHandler(violationService *service.ViolationService, log zerolog.Logger) *ProctoringHandler {
	return &ProctoringHandler{
		violationService: violationService,
		log:              log.With().Str("component", "proctoring_handler").Logger(),
	}
}

// LogEvent godoc
// POST /api/proctoring/log/
// Records one violation; the attempt is auto-submitted at the limit.
func (h *ProctoringHandler) LogEvent(c *gin.Context) {
	var req model.ProctorLogRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.violationService.Record(c.Request.Context(), req.UserID, req.ExamID, req.Event)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// GetViolations godoc
// GET /api/proctoring/violations/?user_id=&exam_id=
func (h *ProctoringHandler) GetViolations(c *gin.Context) {
	var q model.ViolationsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	status, err := h.violationService.Status(c.Request.Context(), q.UserID, q.ExamID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, status)
}
