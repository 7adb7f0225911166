package model

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidTimestamp is returned for datetime strings that are not RFC 3339.
var ErrInvalidTimestamp = errors.New("invalid datetime format")

// Exam represents a scheduled, department-restricted exam.
type Exam struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration"`
	Department      string    `json:"department"`
	AllowedBatch    string    `json:"allowed_batch"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	CreatedBy       *int64    `json:"created_by,omitempty"`
	QuestionCount   int       `json:"total_marks"`
	CreatedAt       time.Time `json:"created_at"`
}

// Duration returns the per-attempt time allowance.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// TotalMarks is one mark per question.
func (e *Exam) TotalMarks() int {
	return e.QuestionCount
}

// HasBatchRestriction reports whether the exam is limited to a single batch.
func (e *Exam) HasBatchRestriction() bool {
	return strings.TrimSpace(e.AllowedBatch) != ""
}

// IsActive reports whether now falls inside [StartTime, EndTime].
func (e *Exam) IsActive(now time.Time) bool {
	return !now.Before(e.StartTime) && !now.After(e.EndTime)
}

func (e *Exam) IsUpcoming(now time.Time) bool {
	return now.Before(e.StartTime)
}

func (e *Exam) IsExpired(now time.Time) bool {
	return now.After(e.EndTime)
}

// ExamSummary is the student-facing listing entry.
type ExamSummary struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Duration      int       `json:"duration"`
	Department    string    `json:"department"`
	AllowedBatch  string    `json:"allowed_batch"`
	TotalMarks    int       `json:"total_marks"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	IsActive      bool      `json:"is_active"`
	TimeRemaining float64   `json:"time_remaining"` // hours until EndTime
}

// NewExamSummary projects an exam for listing at the given instant.
func NewExamSummary(e *Exam, now time.Time) ExamSummary {
	remaining := e.EndTime.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return ExamSummary{
		ID:            e.ID,
		Title:         e.Title,
		Duration:      e.DurationMinutes,
		Department:    e.Department,
		AllowedBatch:  e.AllowedBatch,
		TotalMarks:    e.TotalMarks(),
		StartTime:     e.StartTime,
		EndTime:       e.EndTime,
		IsActive:      e.IsActive(now),
		TimeRemaining: remaining.Hours(),
	}
}

// TeacherExamSummary is the author-facing listing entry, covering every
// state of the exam window.
type TeacherExamSummary struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Duration     int       `json:"duration"`
	Department   string    `json:"department"`
	AllowedBatch string    `json:"allowed_batch"`
	TotalMarks   int       `json:"total_marks"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	CreatedAt    time.Time `json:"created_at"`
	IsActive     bool      `json:"is_active"`
	IsUpcoming   bool      `json:"is_upcoming"`
	IsExpired    bool      `json:"is_expired"`
}

func NewTeacherExamSummary(e *Exam, now time.Time) TeacherExamSummary {
	return TeacherExamSummary{
		ID:           e.ID,
		Title:        e.Title,
		Duration:     e.DurationMinutes,
		Department:   e.Department,
		AllowedBatch: e.AllowedBatch,
		TotalMarks:   e.TotalMarks(),
		StartTime:    e.StartTime,
		EndTime:      e.EndTime,
		CreatedAt:    e.CreatedAt,
		IsActive:     e.IsActive(now),
		IsUpcoming:   e.IsUpcoming(now),
		IsExpired:    e.IsExpired(now),
	}
}

// ParseTimestamp parses an RFC 3339 datetime. A trailing "Z" and numeric
// offsets are both accepted; the result is normalized to UTC. Datetimes
// without a zone are rejected.
func ParseTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, ErrInvalidTimestamp
	}
	return t.UTC(), nil
}

// CreateExamRequest is the payload for a teacher creating an exam.
type CreateExamRequest struct {
	UserID       int64  `json:"user_id" binding:"required,min=1"`
	Title        string `json:"title" binding:"required,min=1,max=100"`
	Duration     int    `json:"duration" binding:"required,min=1,max=600"`
	AllowedBatch string `json:"allowed_batch" binding:"omitempty,max=20"`
	StartTime    string `json:"start_time" binding:"required,datetime_tz"`
	EndTime      string `json:"end_time" binding:"required,datetime_tz"`
}

// UpdateExamRequest is a partial update; nil fields are left unchanged.
type UpdateExamRequest struct {
	UserID       int64   `json:"user_id" binding:"required,min=1"`
	Title        *string `json:"title" binding:"omitempty,min=1,max=100"`
	Duration     *int    `json:"duration" binding:"omitempty,min=1,max=600"`
	AllowedBatch *string `json:"allowed_batch" binding:"omitempty,max=20"`
	StartTime    *string `json:"start_time" binding:"omitempty,datetime_tz"`
	EndTime      *string `json:"end_time" binding:"omitempty,datetime_tz"`
}
