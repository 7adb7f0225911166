package model

import "time"

// AttemptStatus enumerates exam attempt states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
	AttemptStatusAbsent     AttemptStatus = "absent"
)

// ExamAttempt is a student's single attempt at an exam. There is at most one
// per (student, exam).
type ExamAttempt struct {
	ID             int64         `json:"id"`
	StudentID      int64         `json:"student_id"`
	ExamID         int64         `json:"exam_id"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        *time.Time    `json:"end_time,omitempty"`
	Score          int           `json:"score"`
	IsSubmitted    bool          `json:"is_submitted"`
	Status         AttemptStatus `json:"status"`
	ViolationCount int           `json:"violation_count"`
}

// Deadline is StartTime plus the exam duration.
func (a *ExamAttempt) Deadline(duration time.Duration) time.Time {
	return a.StartTime.Add(duration)
}

// Answer is a selected option for one question of an attempt.
type Answer struct {
	ID             int64  `json:"id"`
	AttemptID      int64  `json:"attempt_id"`
	QuestionID     int64  `json:"question_id"`
	SelectedOption Option `json:"selected_option"`
}

// UserQuery carries the user_id query parameter of student reads.
type UserQuery struct {
	UserID int64 `form:"user_id" binding:"required,min=1"`
}

// StartExamRequest is the payload for starting an exam.
type StartExamRequest struct {
	UserID int64 `json:"user_id" binding:"required,min=1"`
}

// AnswerInput is one submitted (question, option) pair. Its fields are
// checked by grading, which only runs when the attempt is still open.
type AnswerInput struct {
	QuestionID     int64  `json:"question_id"`
	SelectedOption string `json:"selected_option"`
}

// SubmitExamRequest is the payload for submitting an exam.
type SubmitExamRequest struct {
	UserID  int64         `json:"user_id" binding:"required,min=1"`
	Answers []AnswerInput `json:"answers"`
}
