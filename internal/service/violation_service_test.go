package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/exam-proctor/internal/model"
	"github.com/stemsi/exam-proctor/internal/repository/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{}

func (failingSink) Append(context.Context, model.ProctorLog) error {
	return errors.New("sink unavailable")
}

func seedAttempt(f *fixture, examID int64, violations int) model.ExamAttempt {
	return f.store.PutAttempt(model.ExamAttempt{
		StudentID:      1,
		ExamID:         examID,
		StartTime:      baseTime,
		Status:         model.AttemptStatusInProgress,
		ViolationCount: violations,
	})
}

func TestRecordBelowLimit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, _ := f.openExam("CS", "", 30, model.OptionA)
	seedAttempt(f, exam.ID, 0)

	res, err := f.violations.Record(ctx, 1, exam.ID, model.EventTabSwitch)
	require.NoError(t, err)
	require.Equal(t, "Violation logged", res.Message)
	require.Equal(t, 1, res.Violations)
	require.Equal(t, 2, res.Remaining)
	require.False(t, res.AutoSubmitted)

	logs := f.store.Logs()
	require.Len(t, logs, 1)
	require.Equal(t, model.EventTabSwitch, logs[0].Event)
	require.Equal(t, baseTime, logs[0].Timestamp)
}

func TestRecordReachingLimitAutoSubmits(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, _ := f.openExam("CS", "", 30, model.OptionA)
	seedAttempt(f, exam.ID, 2)

	res, err := f.violations.Record(ctx, 1, exam.ID, model.EventMultipleFaces)
	require.NoError(t, err)
	require.True(t, res.AutoSubmitted)
	require.Equal(t, 3, res.Violations)
	require.Zero(t, res.Remaining)
	require.Equal(t, "Violation limit exceeded. Exam auto-submitted.", res.Message)

	attempt, err := f.store.GetByExamAndStudent(ctx, exam.ID, 1)
	require.NoError(t, err)
	require.True(t, attempt.IsSubmitted)
	require.Equal(t, model.AttemptStatusSubmitted, attempt.Status)
	require.Equal(t, baseTime, *attempt.EndTime)
}

func TestRecordOnSubmittedAttemptIsNoop(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, _ := f.openExam("CS", "", 30, model.OptionA)
	f.store.PutAttempt(model.ExamAttempt{
		StudentID:      1,
		ExamID:         exam.ID,
		StartTime:      baseTime,
		IsSubmitted:    true,
		Status:         model.AttemptStatusSubmitted,
		ViolationCount: 1,
	})

	res, err := f.violations.Record(ctx, 1, exam.ID, model.EventNoFace)
	require.NoError(t, err)
	require.True(t, res.AlreadySubmitted)
	require.Equal(t, "Exam already submitted", res.Message)
	require.Equal(t, 1, res.Violations)
	require.Empty(t, f.store.Logs())
}

func TestRecordWithoutAttempt(t *testing.T) {
	f := newFixture(t, nil)
	f.student(1, "CS", "")
	exam, _ := f.openExam("CS", "", 30, model.OptionA)

	_, err := f.violations.Record(context.Background(), 1, exam.ID, model.EventTabSwitch)
	require.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestRecordSinkFailureStillCounts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, _ := f.openExam("CS", "", 30, model.OptionA)
	seedAttempt(f, exam.ID, 0)
	svc := NewViolationService(f.store, f.attempts, failingSink{}, 3, zerolog.Nop())

	res, err := svc.Record(ctx, 1, exam.ID, model.EventTabSwitch)
	require.NoError(t, err)
	require.Equal(t, 1, res.Violations)

	attempt, err := f.store.GetByExamAndStudent(ctx, exam.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 1, attempt.ViolationCount)
}

// staleAttempts serves an open copy of an attempt that the store has
// already closed, as a reader racing a submit would see it.
type staleAttempts struct {
	*memstore.Store
}

func (s staleAttempts) GetByExamAndStudent(ctx context.Context, examID, studentID int64) (*model.ExamAttempt, error) {
	a, err := s.Store.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}
	a.IsSubmitted = false
	a.Status = model.AttemptStatusInProgress
	return a, nil
}

func TestRecordAfterConcurrentSubmitWritesNoLog(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, _ := f.openExam("CS", "", 30, model.OptionA)
	attempt := seedAttempt(f, exam.ID, 1)
	_, err := f.store.ForceSubmit(ctx, attempt.ID, baseTime)
	require.NoError(t, err)

	svc := NewViolationService(staleAttempts{f.store}, f.attempts, f.store, 3, zerolog.Nop())
	res, err := svc.Record(ctx, 1, exam.ID, model.EventNoFace)
	require.NoError(t, err)
	require.True(t, res.AlreadySubmitted)
	require.Equal(t, "Exam already submitted", res.Message)
	require.Empty(t, f.store.Logs())

	stored, err := f.store.GetByExamAndStudent(ctx, exam.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 1, stored.ViolationCount)
}

func TestConcurrentViolationsSubmitOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, _ := f.openExam("CS", "", 30, model.OptionA)
	seedAttempt(f, exam.ID, 1)

	var wg sync.WaitGroup
	results := make(chan *ViolationResult, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.violations.Record(ctx, 1, exam.ID, model.EventWindowBlur)
			if assert.NoError(t, err) {
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)

	auto := 0
	for res := range results {
		if res.AutoSubmitted {
			auto++
		}
	}
	require.Equal(t, 1, auto)

	attempt, err := f.store.GetByExamAndStudent(ctx, exam.ID, 1)
	require.NoError(t, err)
	require.True(t, attempt.IsSubmitted)
	require.GreaterOrEqual(t, attempt.ViolationCount, 3)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, _ := f.openExam("CS", "", 30, model.OptionA)

	status, err := f.violations.Status(ctx, 1, exam.ID)
	require.NoError(t, err)
	require.Equal(t, &ViolationStatus{Violations: 0, Remaining: 3, MaxViolations: 3}, status)

	seedAttempt(f, exam.ID, 5)
	status, err = f.violations.Status(ctx, 1, exam.ID)
	require.NoError(t, err)
	require.Equal(t, 5, status.Violations)
	require.Zero(t, status.Remaining)
}

func TestCustomMaxViolations(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, _ := f.openExam("CS", "", 30, model.OptionA)
	seedAttempt(f, exam.ID, 0)
	svc := NewViolationService(f.store, f.attempts, f.store, 1, zerolog.Nop())

	res, err := svc.Record(ctx, 1, exam.ID, "copy_paste")
	require.NoError(t, err)
	require.True(t, res.AutoSubmitted)
	require.Equal(t, 1, svc.MaxViolations())
}
