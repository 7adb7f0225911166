package service

import "errors"

// Domain errors. Handlers map these to HTTP status codes with errors.Is.
var (
	ErrProfileNotFound  = errors.New("user profile not found")
	ErrExamNotFound     = errors.New("exam not found")
	ErrAttemptNotFound  = errors.New("exam attempt not found")
	ErrQuestionNotFound = errors.New("question not found in this exam")

	ErrNotEligible      = errors.New("student is not eligible for this exam")
	ErrExamNotOpen      = errors.New("exam has not started yet")
	ErrExamClosed       = errors.New("exam has ended")
	ErrAlreadySubmitted = errors.New("exam already submitted")

	ErrInvalidOption   = errors.New("selected option must be one of A, B, C, D")
	ErrDuplicateAnswer = errors.New("question answered more than once")
	ErrInvalidSchedule = errors.New("end_time must be after start_time")
	ErrNotTeacher      = errors.New("access denied, teachers only")
	ErrNotExamAuthor   = errors.New("exam not created by this teacher")

	ErrSweepInProgress = errors.New("absence sweep already running")
)
