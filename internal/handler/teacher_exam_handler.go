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

// TeacherExamHandler serves exam authoring for teachers.
type TeacherExamHandler struct {
	examService *service.ExamService
	log         zerolog.Logger
}

// NewTeacherExamHandler creates a new TeacherExamHandler.
func NewTeacherExamHandler(examService *service.ExamService, log zerolog.Logger) *TeacherExamHandler {
	return &TeacherExamHandler{
		examService: examService,
		log:         log.With().Str("component", "teacher_exam_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/teacher/exams/?user_id=
func (h *TeacherExamHandler) ListExams(c *gin.Context) {
	var q model.UserQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exams, err := h.examService.ListForTeacher(c.Request.Context(), q.UserID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, exams)
}

// CreateExam godoc
// POST /api/teacher/exams/
// Creates an exam in the teacher's department.
func (h *TeacherExamHandler) CreateExam(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.CreateExam(c.Request.Context(), &req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/teacher/exams/:exam_id/
func (h *TeacherExamHandler) UpdateExam(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.UpdateExam(c.Request.Context(), examID, &req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/teacher/exams/:exam_id/?user_id=
func (h *TeacherExamHandler) DeleteExam(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	var q model.UserQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.examService.DeleteExam(c.Request.Context(), q.UserID, examID); err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Exam deleted"})
}

// AddQuestion godoc
// POST /api/teacher/exams/:exam_id/questions/
func (h *TeacherExamHandler) AddQuestion(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.examService.AddQuestion(c.Request.Context(), examID, &req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": q})
}
