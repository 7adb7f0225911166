package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stemsi/exam-proctor/internal/model"
	"github.com/stemsi/exam-proctor/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answersFor(questions []model.Question, picks ...string) []model.AnswerInput {
	inputs := make([]model.AnswerInput, len(picks))
	for i, p := range picks {
		inputs[i] = model.AnswerInput{QuestionID: questions[i].ID, SelectedOption: p}
	}
	return inputs
}

func TestStartCreatesThenResumes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "B1")
	exam, _ := f.openExam("CS", "", 30, model.OptionA)

	first, err := f.attempts.Start(ctx, 1, exam.ID)
	require.NoError(t, err)
	require.False(t, first.Resumed)
	require.Equal(t, 30, first.Duration)
	require.Equal(t, baseTime, first.StartTime)

	f.clock.Advance(5 * time.Minute)
	second, err := f.attempts.Start(ctx, 1, exam.ID)
	require.NoError(t, err)
	require.True(t, second.Resumed)
	require.Equal(t, first.Attempt.ID, second.Attempt.ID)
	require.Equal(t, baseTime, second.StartTime, "resume keeps the original start time")
	require.Equal(t, 1, f.store.AttemptCount())
}

func TestStartRejectsIneligibleStudent(t *testing.T) {
	f := newFixture(t, nil)
	f.student(1, "CS", "B1")
	exam, _ := f.openExam("CS", "B2", 30, model.OptionA)

	_, err := f.attempts.Start(context.Background(), 1, exam.ID)
	require.ErrorIs(t, err, ErrNotEligible)
	require.Zero(t, f.store.AttemptCount())
}

func TestStartOutsideWindow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, _ := f.openExam("CS", "", 30, model.OptionA)

	f.clock.t = exam.StartTime.Add(-time.Minute)
	_, err := f.attempts.Start(ctx, 1, exam.ID)
	require.ErrorIs(t, err, ErrExamNotOpen)

	f.clock.t = exam.EndTime.Add(time.Minute)
	_, err = f.attempts.Start(ctx, 1, exam.ID)
	require.ErrorIs(t, err, ErrExamClosed)
}

func TestStartUnknownProfileOrExam(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, _ := f.openExam("CS", "", 30)

	_, err := f.attempts.Start(ctx, 42, exam.ID)
	require.ErrorIs(t, err, ErrProfileNotFound)

	_, err = f.attempts.Start(ctx, 1, 999)
	require.ErrorIs(t, err, ErrExamNotFound)
}

func TestConcurrentStartCreatesOneAttempt(t *testing.T) {
	f := newFixture(t, nil)
	f.student(1, "CS", "")
	exam, _ := f.openExam("CS", "", 30, model.OptionA)

	var wg sync.WaitGroup
	ids := make(chan int64, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.attempts.Start(context.Background(), 1, exam.ID)
			if assert.NoError(t, err) {
				ids <- res.Attempt.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		seen[id] = true
	}
	require.Len(t, seen, 1)
	require.Equal(t, 1, f.store.AttemptCount())
}

func TestSubmitGradesWithinWindow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, questions := f.openExam("CS", "", 30, model.OptionA, model.OptionB, model.OptionC, model.OptionD)

	_, err := f.attempts.Start(ctx, 1, exam.ID)
	require.NoError(t, err)
	f.clock.Advance(10 * time.Minute)

	res, err := f.attempts.Submit(ctx, 1, exam.ID, answersFor(questions, "A", "B", "C", "A"))
	require.NoError(t, err)
	require.Equal(t, OutcomeGraded, res.Outcome)
	require.Equal(t, "Exam submitted", res.Message)
	require.Equal(t, 3, res.Score)
	require.True(t, res.Attempt.IsSubmitted)
	require.Equal(t, model.AttemptStatusSubmitted, res.Attempt.Status)
	require.Equal(t, baseTime.Add(10*time.Minute), *res.Attempt.EndTime)
	require.Len(t, f.store.Answers(res.Attempt.ID), 4)

	result, err := f.attempts.Result(ctx, 1, exam.ID)
	require.NoError(t, err)
	require.Equal(t, &AttemptResult{Score: 3, TotalQuestions: 4, Submitted: true}, result)
}

func TestSubmitAtExactDeadlineIsGraded(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, questions := f.openExam("CS", "", 30, model.OptionA)

	_, err := f.attempts.Start(ctx, 1, exam.ID)
	require.NoError(t, err)
	f.clock.Advance(30 * time.Minute)

	res, err := f.attempts.Submit(ctx, 1, exam.ID, answersFor(questions, "A"))
	require.NoError(t, err)
	require.Equal(t, OutcomeGraded, res.Outcome)
	require.Equal(t, 1, res.Score)
}

func TestSubmitAfterDeadlineIsTimeOver(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, questions := f.openExam("CS", "", 30, model.OptionA, model.OptionB)

	_, err := f.attempts.Start(ctx, 1, exam.ID)
	require.NoError(t, err)
	f.clock.Advance(31 * time.Minute)

	counter := observability.AutoSubmissions().WithLabelValues(string(ReasonTimeOver))
	before := testutil.ToFloat64(counter)

	res, err := f.attempts.Submit(ctx, 1, exam.ID, answersFor(questions, "A", "B"))
	require.NoError(t, err)
	require.Equal(t, OutcomeTimeOver, res.Outcome)
	require.Equal(t, "Time over. Exam auto-submitted.", res.Message)
	require.Zero(t, res.Score, "late answers are not graded")
	require.Equal(t, baseTime.Add(30*time.Minute), *res.Attempt.EndTime)
	require.Empty(t, f.store.Answers(res.Attempt.ID))
	require.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestSubmitAtViolationLimit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, questions := f.openExam("CS", "", 30, model.OptionA)
	f.store.PutAttempt(model.ExamAttempt{
		StudentID:      1,
		ExamID:         exam.ID,
		StartTime:      baseTime,
		Status:         model.AttemptStatusInProgress,
		ViolationCount: 3,
	})

	res, err := f.attempts.Submit(ctx, 1, exam.ID, answersFor(questions, "A"))
	require.NoError(t, err)
	require.Equal(t, OutcomeViolationLimit, res.Outcome)
	require.Equal(t, "Violation limit exceeded. Exam auto-submitted.", res.Message)
	require.Zero(t, res.Score)
	require.True(t, res.Attempt.IsSubmitted)
}

func TestSubmitTwiceConflicts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, questions := f.openExam("CS", "", 30, model.OptionA)

	_, err := f.attempts.Start(ctx, 1, exam.ID)
	require.NoError(t, err)
	_, err = f.attempts.Submit(ctx, 1, exam.ID, answersFor(questions, "A"))
	require.NoError(t, err)

	_, err = f.attempts.Submit(ctx, 1, exam.ID, answersFor(questions, "B"))
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	_, err = f.attempts.Start(ctx, 1, exam.ID)
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	result, err := f.attempts.Result(ctx, 1, exam.ID)
	require.NoError(t, err)
	require.Equal(t, 1, result.Score, "the first submission stands")
}

func TestSubmitWithoutAttempt(t *testing.T) {
	f := newFixture(t, nil)
	f.student(1, "CS", "")
	exam, _ := f.openExam("CS", "", 30, model.OptionA)

	_, err := f.attempts.Submit(context.Background(), 1, exam.ID, nil)
	require.ErrorIs(t, err, ErrAttemptNotFound)

	_, err = f.attempts.Result(context.Background(), 1, exam.ID)
	require.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestSubmitRejectsQuestionFromAnotherExam(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, _ := f.openExam("CS", "", 30, model.OptionA)
	_, foreign := f.openExam("CS", "", 30, model.OptionB)

	_, err := f.attempts.Start(ctx, 1, exam.ID)
	require.NoError(t, err)

	_, err = f.attempts.Submit(ctx, 1, exam.ID, answersFor(foreign, "B"))
	require.ErrorIs(t, err, ErrQuestionNotFound)

	attempt, err := f.store.GetByExamAndStudent(ctx, exam.ID, 1)
	require.NoError(t, err)
	require.False(t, attempt.IsSubmitted, "a rejected submit leaves the attempt open")
}

func TestSubmitGradesFromRedisAnswerKey(t *testing.T) {
	_, rdb := newMiniRedis(t)
	f := newFixture(t, rdb)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, questions := f.openExam("CS", "", 30, model.OptionA, model.OptionB)

	_, err := f.exams.Questions(ctx, 1, exam.ID)
	require.NoError(t, err)
	_, err = f.attempts.Start(ctx, 1, exam.ID)
	require.NoError(t, err)

	res, err := f.attempts.Submit(ctx, 1, exam.ID, answersFor(questions, "A", "B"))
	require.NoError(t, err)
	require.Equal(t, 2, res.Score)
}

func TestSubmitAfterDeadlineSkipsAnswerChecks(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "")
	exam, _ := f.openExam("CS", "", 30, model.OptionA)

	_, err := f.attempts.Start(ctx, 1, exam.ID)
	require.NoError(t, err)
	f.clock.Advance(45 * time.Minute)

	res, err := f.attempts.Submit(ctx, 1, exam.ID, []model.AnswerInput{
		{QuestionID: 0, SelectedOption: "E"},
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeTimeOver, res.Outcome)
	require.Zero(t, res.Score)

	_, err = f.attempts.Submit(ctx, 1, exam.ID, []model.AnswerInput{{QuestionID: 0}})
	require.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestSubmitRacesViolationLimit(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newFixture(t, nil)
		ctx := context.Background()
		f.student(1, "CS", "")
		exam, questions := f.openExam("CS", "", 30, model.OptionA, model.OptionB)
		attempt := seedAttempt(f, exam.ID, 2)

		var (
			wg        sync.WaitGroup
			submitted *SubmitResult
			submitErr error
			recorded  *ViolationResult
			recordErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			submitted, submitErr = f.attempts.Submit(ctx, 1, exam.ID, answersFor(questions, "A", "B"))
		}()
		go func() {
			defer wg.Done()
			recorded, recordErr = f.violations.Record(ctx, 1, exam.ID, model.EventTabSwitch)
		}()
		wg.Wait()

		require.NoError(t, recordErr)
		submitWon := submitErr == nil
		if !submitWon {
			require.ErrorIs(t, submitErr, ErrAlreadySubmitted)
		}
		require.NotEqual(t, submitWon, recorded.AutoSubmitted, "exactly one terminal transition wins")
		if submitWon {
			require.True(t, recorded.AlreadySubmitted)
		}

		stored, err := f.store.GetByExamAndStudent(ctx, exam.ID, 1)
		require.NoError(t, err)
		require.True(t, stored.IsSubmitted)
		if submitWon && submitted.Outcome == OutcomeGraded {
			require.Equal(t, 2, stored.Score)
			require.Len(t, f.store.Answers(attempt.ID), 2)
		} else {
			require.Zero(t, stored.Score)
			require.Empty(t, f.store.Answers(attempt.ID))
		}
	}
}
