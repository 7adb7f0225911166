package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Internal token ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"
	ErrNotExamAuthor     ErrCode = "NOT_EXAM_AUTHOR"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation      ErrCode = "VALIDATION_ERROR"
	ErrInvalidID       ErrCode = "INVALID_ID"
	ErrInvalidPayload  ErrCode = "INVALID_PAYLOAD"
	ErrInvalidAnswer   ErrCode = "INVALID_ANSWER"
	ErrInvalidSchedule ErrCode = "INVALID_SCHEDULE"
	ErrInvalidDatetime ErrCode = "INVALID_DATETIME"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrProfileNotFound  ErrCode = "PROFILE_NOT_FOUND"
	ErrExamNotFound     ErrCode = "EXAM_NOT_FOUND"
	ErrAttemptNotFound  ErrCode = "ATTEMPT_NOT_FOUND"
	ErrQuestionNotFound ErrCode = "QUESTION_NOT_FOUND"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrNotEligible      ErrCode = "NOT_ELIGIBLE"
	ErrExamNotOpen      ErrCode = "EXAM_NOT_OPEN"
	ErrExamClosed       ErrCode = "EXAM_CLOSED"
	ErrAlreadySubmitted ErrCode = "ALREADY_SUBMITTED"
	ErrSweepInProgress  ErrCode = "SWEEP_IN_PROGRESS"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Internal token ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrTeacherAccessOnly:
		return "This resource is restricted to teachers."
	case ErrNotExamAuthor:
		return "You are not the author of this exam."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrInvalidAnswer:
		return "Each question may be answered once with one of A, B, C, D."
	case ErrInvalidSchedule:
		return "end_time must be after start_time."
	case ErrInvalidDatetime:
		return "Datetimes must be ISO-8601 with a timezone, e.g. 2025-01-01T09:00:00Z."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrProfileNotFound:
		return "User profile not found."
	case ErrExamNotFound:
		return "Exam not found."
	case ErrAttemptNotFound:
		return "Exam attempt not found."
	case ErrQuestionNotFound:
		return "Question does not belong to this exam."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrNotEligible:
		return "Not allowed."
	case ErrExamNotOpen:
		return "Exam has not started yet."
	case ErrExamClosed:
		return "Exam has ended."
	case ErrAlreadySubmitted:
		return "Exam already submitted."
	case ErrSweepInProgress:
		return "An absence sweep is already running."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
