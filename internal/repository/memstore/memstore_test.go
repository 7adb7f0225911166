package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exam-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateIsIdempotentUnderConcurrency(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	var wg sync.WaitGroup
	created := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, c, err := s.GetOrCreate(ctx, 1, 7, now)
			assert.NoError(t, err)
			created <- c
		}()
	}
	wg.Wait()
	close(created)

	n := 0
	for c := range created {
		if c {
			n++
		}
	}
	require.Equal(t, 1, n)
	require.Equal(t, 1, s.AttemptCount())
}

func TestTerminalTransitionsRejectSubmittedAttempt(t *testing.T) {
	s := New()
	ctx := context.Background()
	a, _, err := s.GetOrCreate(ctx, 1, 7, time.Now())
	require.NoError(t, err)

	_, err = s.ForceSubmit(ctx, a.ID, time.Now())
	require.NoError(t, err)

	_, err = s.ForceSubmit(ctx, a.ID, time.Now())
	require.True(t, errors.Is(err, pgx.ErrNoRows))
	_, err = s.IncrementViolations(ctx, a.ID)
	require.True(t, errors.Is(err, pgx.ErrNoRows))
	_, err = s.SubmitGraded(ctx, a.ID, nil, 5, time.Now())
	require.True(t, errors.Is(err, pgx.ErrNoRows))
}

func TestMarkAbsentNeverOverwritesSubmitted(t *testing.T) {
	s := New()
	ctx := context.Background()
	end := time.Now()

	s.PutAttempt(model.ExamAttempt{StudentID: 1, ExamID: 9, Score: 4, IsSubmitted: true, Status: model.AttemptStatusSubmitted})
	s.PutAttempt(model.ExamAttempt{StudentID: 2, ExamID: 9, Status: model.AttemptStatusInProgress})

	ok, err := s.MarkAbsent(ctx, 9, 1, end, end)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.MarkAbsent(ctx, 9, 2, end, end)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.MarkAbsent(ctx, 9, 3, end, end)
	require.NoError(t, err)
	require.True(t, ok)

	kept, err := s.GetByExamAndStudent(ctx, 9, 1)
	require.NoError(t, err)
	require.Equal(t, 4, kept.Score)
	require.Equal(t, model.AttemptStatusSubmitted, kept.Status)

	absent, err := s.GetByExamAndStudent(ctx, 9, 3)
	require.NoError(t, err)
	require.Equal(t, model.AttemptStatusAbsent, absent.Status)
	require.True(t, absent.IsSubmitted)
	require.Zero(t, absent.Score)
}

func TestDeleteExamCascades(t *testing.T) {
	s := New()
	ctx := context.Background()
	e := s.PutExam(model.Exam{Title: "Algebra", Department: "CSE"})
	s.PutQuestion(model.Question{ExamID: e.ID, CorrectOption: model.OptionA})
	a, _, err := s.GetOrCreate(ctx, e.ID, 1, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, model.ProctorLog{StudentID: 1, ExamID: e.ID, Event: "tab_switch"}))

	require.NoError(t, s.Delete(ctx, e.ID))

	_, err = s.GetByID(ctx, e.ID)
	require.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = s.GetByExamAndStudent(ctx, e.ID, 1)
	require.ErrorIs(t, err, pgx.ErrNoRows)
	require.Empty(t, s.Answers(a.ID))
	require.Empty(t, s.Logs())
	require.ErrorIs(t, s.Delete(ctx, e.ID), pgx.ErrNoRows)
}
