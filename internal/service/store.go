package service

import (
	"context"
	"time"

	"github.com/stemsi/exam-proctor/internal/model"
)

// The storage contracts below are implemented by the pgx repositories and by
// the in-memory memstore. Lookups that find nothing return pgx.ErrNoRows.

// ProfileDirectory resolves user profiles (role, department, batch).
type ProfileDirectory interface {
	GetByUserID(ctx context.Context, userID int64) (*model.StudentProfile, error)
	ListStudentsByDepartment(ctx context.Context, department string) ([]model.StudentProfile, error)
}

// ExamStore is the exam and question catalog.
type ExamStore interface {
	GetByID(ctx context.Context, id int64) (*model.Exam, error)
	ListOpenByDepartment(ctx context.Context, department string, now time.Time) ([]model.Exam, error)
	ListExpired(ctx context.Context, now time.Time) ([]model.Exam, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]model.Exam, error)
	ListQuestions(ctx context.Context, examID int64) ([]model.Question, error)
	CountQuestions(ctx context.Context, examID int64) (int, error)

	Create(ctx context.Context, e *model.Exam) error
	Update(ctx context.Context, e *model.Exam) error
	Delete(ctx context.Context, id int64) error
	AddQuestion(ctx context.Context, q *model.Question) error
}

// AttemptStore owns the single attempt row per (student, exam). Every
// mutating method is atomic at the storage layer.
type AttemptStore interface {
	GetByExamAndStudent(ctx context.Context, examID, studentID int64) (*model.ExamAttempt, error)
	ListSubmittedExamIDs(ctx context.Context, studentID int64) ([]int64, error)

	// GetOrCreate inserts an in-progress attempt unless one exists, then
	// returns whichever row is stored and whether this call created it.
	GetOrCreate(ctx context.Context, examID, studentID int64, startTime time.Time) (*model.ExamAttempt, bool, error)

	// ForceSubmit marks a not-yet-submitted attempt as submitted keeping its
	// current score. Returns pgx.ErrNoRows when it was already terminal.
	ForceSubmit(ctx context.Context, attemptID int64, endTime time.Time) (*model.ExamAttempt, error)

	// SubmitGraded replaces all answers, stores the score and marks the
	// attempt submitted in one transaction. Returns pgx.ErrNoRows when the
	// attempt was already terminal.
	SubmitGraded(ctx context.Context, attemptID int64, answers []model.Answer, score int, endTime time.Time) (*model.ExamAttempt, error)

	// IncrementViolations adds one to violation_count of a not-yet-submitted
	// attempt. Returns pgx.ErrNoRows when it was already terminal.
	IncrementViolations(ctx context.Context, attemptID int64) (*model.ExamAttempt, error)

	// MarkAbsent creates or updates the attempt as absent unless it is
	// already submitted. Reports whether a row was written.
	MarkAbsent(ctx context.Context, examID, studentID int64, endTime, now time.Time) (bool, error)
}

// ProctorLogSink accepts audit entries. Entries are never read back by the core.
type ProctorLogSink interface {
	Append(ctx context.Context, entry model.ProctorLog) error
}
