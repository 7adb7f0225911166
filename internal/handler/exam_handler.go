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

// ExamHandler serves the student exam flow: listing, questions, start,
// submit and result.
type ExamHandler struct {
	examService    *service.ExamService
	attemptService *service.AttemptService
	log            zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, attemptService *service.AttemptService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService:    examService,
		attemptService: attemptService,
		log:            log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/exams/?user_id=
// Lists the eligible, currently open exams the student has not submitted.
func (h *ExamHandler) ListExams(c *gin.Context) {
	var q model.UserQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exams, err := h.examService.ListForStudent(c.Request.Context(), q.UserID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, exams)
}

// GetQuestions godoc
// GET /api/exams/:exam_id/questions/?user_id=
// Returns the questions without their correct options.
func (h *ExamHandler) GetQuestions(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	var q model.UserQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.examService.Questions(c.Request.Context(), q.UserID, examID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, questions)
}

// StartExam godoc
// POST /api/exams/:exam_id/start/
// Gets or creates the student's attempt.
func (h *ExamHandler) StartExam(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	var req model.StartExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.attemptService.Start(c.Request.Context(), req.UserID, examID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message":    "Exam started",
		"start_time": res.StartTime,
		"duration":   res.Duration,
		"resumed":    res.Resumed,
	})
}

// SubmitExam godoc
// POST /api/exams/:exam_id/submit/
// Submits the attempt; expired or over-limit attempts are closed without grading.
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	var req model.SubmitExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.attemptService.Submit(c.Request.Context(), req.UserID, examID, req.Answers)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": res.Message,
		"score":   res.Score,
		"outcome": res.Outcome,
	})
}

// GetResult godoc
// GET /api/exams/:exam_id/result/?user_id=
func (h *ExamHandler) GetResult(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	var q model.UserQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.attemptService.Result(c.Request.Context(), q.UserID, examID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}
