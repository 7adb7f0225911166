package service

import (
	"context"
	"testing"
	"time"

	"github.com/stemsi/exam-proctor/internal/model"
	"github.com/stretchr/testify/require"
)

func TestListForStudent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "B1")

	open, _ := f.openExam("CS", "", 30, model.OptionA, model.OptionB)
	batchOnly, _ := f.openExam("CS", "B1", 30, model.OptionA)
	f.openExam("CS", "B2", 30, model.OptionA)
	f.openExam("EE", "", 30, model.OptionA)
	f.store.PutExam(model.Exam{
		Title:      "Not yet",
		Department: "CS",
		StartTime:  baseTime.Add(time.Hour),
		EndTime:    baseTime.Add(3 * time.Hour),
	})
	done, _ := f.openExam("CS", "", 30, model.OptionA)
	f.store.PutAttempt(model.ExamAttempt{StudentID: 1, ExamID: done.ID, IsSubmitted: true, Status: model.AttemptStatusSubmitted})

	exams, err := f.exams.ListForStudent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, exams, 2)
	require.Equal(t, open.ID, exams[0].ID)
	require.Equal(t, batchOnly.ID, exams[1].ID)

	require.Equal(t, 2, exams[0].TotalMarks)
	require.True(t, exams[0].IsActive)
	require.InDelta(t, 2.0, exams[0].TimeRemaining, 1e-9)
}

func TestListForStudentUnknownUser(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.exams.ListForStudent(context.Background(), 404)
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestQuestionsRespectAccess(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.student(1, "CS", "B1")
	exam, questions := f.openExam("CS", "", 30, model.OptionA, model.OptionC)
	other, _ := f.openExam("CS", "B9", 30, model.OptionA)

	got, err := f.exams.Questions(ctx, 1, exam.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, questions[0].ID, got[0].ID)
	require.Equal(t, exam.ID, got[0].ExamID)

	_, err = f.exams.Questions(ctx, 1, other.ID)
	require.ErrorIs(t, err, ErrNotEligible)

	f.clock.t = exam.EndTime.Add(time.Second)
	_, err = f.exams.Questions(ctx, 1, exam.ID)
	require.ErrorIs(t, err, ErrExamClosed)
}

func (f *fixture) teacher(id int64, department string) {
	f.store.PutProfile(model.StudentProfile{UserID: id, Username: "teacher", Role: model.RoleTeacher, Department: department})
}

func TestCreateExam(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.teacher(50, "CS")
	f.student(1, "CS", "")

	exam, err := f.exams.CreateExam(ctx, &model.CreateExamRequest{
		UserID:       50,
		Title:        "  Networks Final ",
		Duration:     45,
		AllowedBatch: "B1",
		StartTime:    "2025-03-10T10:00:00Z",
		EndTime:      "2025-03-10T14:00:00+02:00",
	})
	require.NoError(t, err)
	require.NotZero(t, exam.ID)
	require.Equal(t, "Networks Final", exam.Title)
	require.Equal(t, "CS", exam.Department)
	require.Equal(t, int64(50), *exam.CreatedBy)
	require.Equal(t, time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC), exam.StartTime)
	require.Equal(t, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), exam.EndTime)

	_, err = f.exams.CreateExam(ctx, &model.CreateExamRequest{
		UserID: 1, Title: "x", Duration: 10,
		StartTime: "2025-03-10T10:00:00Z", EndTime: "2025-03-10T11:00:00Z",
	})
	require.ErrorIs(t, err, ErrNotTeacher)
}

func TestCreateExamRejectsBadSchedule(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.teacher(50, "CS")

	_, err := f.exams.CreateExam(ctx, &model.CreateExamRequest{
		UserID: 50, Title: "x", Duration: 10,
		StartTime: "2025-03-10T10:00:00Z", EndTime: "2025-03-10T10:00:00Z",
	})
	require.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = f.exams.CreateExam(ctx, &model.CreateExamRequest{
		UserID: 50, Title: "x", Duration: 10,
		StartTime: "2025-03-10 10:00", EndTime: "2025-03-10T11:00:00Z",
	})
	require.ErrorIs(t, err, model.ErrInvalidTimestamp)
}

func TestUpdateAndDeleteRequireAuthor(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.teacher(50, "CS")
	f.teacher(51, "CS")

	exam, err := f.exams.CreateExam(ctx, &model.CreateExamRequest{
		UserID: 50, Title: "Draft", Duration: 10,
		StartTime: "2025-03-10T10:00:00Z", EndTime: "2025-03-10T11:00:00Z",
	})
	require.NoError(t, err)

	title := "Final"
	_, err = f.exams.UpdateExam(ctx, exam.ID, &model.UpdateExamRequest{UserID: 51, Title: &title})
	require.ErrorIs(t, err, ErrNotExamAuthor)

	updated, err := f.exams.UpdateExam(ctx, exam.ID, &model.UpdateExamRequest{UserID: 50, Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Final", updated.Title)
	require.Equal(t, 10, updated.DurationMinutes)

	early := "2025-03-10T09:00:00Z"
	_, err = f.exams.UpdateExam(ctx, exam.ID, &model.UpdateExamRequest{UserID: 50, EndTime: &early})
	require.ErrorIs(t, err, ErrInvalidSchedule)

	require.ErrorIs(t, f.exams.DeleteExam(ctx, 51, exam.ID), ErrNotExamAuthor)
	require.NoError(t, f.exams.DeleteExam(ctx, 50, exam.ID))
	require.ErrorIs(t, f.exams.DeleteExam(ctx, 50, exam.ID), ErrExamNotFound)
}

func TestAddQuestionInvalidatesCache(t *testing.T) {
	_, rdb := newMiniRedis(t)
	f := newFixture(t, rdb)
	ctx := context.Background()
	f.teacher(50, "CS")
	f.student(1, "CS", "")

	exam, err := f.exams.CreateExam(ctx, &model.CreateExamRequest{
		UserID: 50, Title: "Quiz", Duration: 10,
		StartTime: "2025-03-10T08:00:00Z", EndTime: "2025-03-10T11:00:00Z",
	})
	require.NoError(t, err)

	got, err := f.exams.Questions(ctx, 1, exam.ID)
	require.NoError(t, err)
	require.Empty(t, got)

	q, err := f.exams.AddQuestion(ctx, exam.ID, &model.CreateQuestionRequest{
		UserID: 50, QuestionText: "2+2?", OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "6", CorrectOption: "B",
	})
	require.NoError(t, err)
	require.Equal(t, model.OptionB, q.CorrectOption)

	got, err = f.exams.Questions(ctx, 1, exam.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestListForTeacher(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.teacher(50, "CS")
	f.teacher(51, "CS")
	f.student(1, "CS", "")

	create := func(userID int64, title, start, end string) {
		t.Helper()
		_, err := f.exams.CreateExam(ctx, &model.CreateExamRequest{
			UserID: userID, Title: title, Duration: 30, StartTime: start, EndTime: end,
		})
		require.NoError(t, err)
	}
	create(50, "Past", "2025-03-10T07:00:00Z", "2025-03-10T08:00:00Z")
	create(50, "Live", "2025-03-10T08:00:00Z", "2025-03-10T10:00:00Z")
	create(50, "Next", "2025-03-10T10:00:00Z", "2025-03-10T11:00:00Z")
	create(51, "Someone else's", "2025-03-10T08:00:00Z", "2025-03-10T10:00:00Z")

	exams, err := f.exams.ListForTeacher(ctx, 50)
	require.NoError(t, err)
	require.Len(t, exams, 3)

	require.Equal(t, "Next", exams[0].Title)
	require.True(t, exams[0].IsUpcoming)
	require.False(t, exams[0].IsActive)

	require.Equal(t, "Live", exams[1].Title)
	require.True(t, exams[1].IsActive)
	require.False(t, exams[1].IsUpcoming)
	require.False(t, exams[1].IsExpired)

	require.Equal(t, "Past", exams[2].Title)
	require.True(t, exams[2].IsExpired)

	_, err = f.exams.ListForTeacher(ctx, 1)
	require.ErrorIs(t, err, ErrNotTeacher)
	_, err = f.exams.ListForTeacher(ctx, 99)
	require.ErrorIs(t, err, ErrProfileNotFound)
}
