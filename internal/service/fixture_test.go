package service

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-proctor/internal/model"
	"github.com/stemsi/exam-proctor/internal/repository/memstore"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// clock is a settable time source shared by the services under test.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	store      *memstore.Store
	clock      *clock
	cache      *ExamCache
	exams      *ExamService
	attempts   *AttemptService
	violations *ViolationService
}

func newFixture(t *testing.T, rdb *redis.Client) *fixture {
	t.Helper()
	store := memstore.New()
	clk := &clock{t: baseTime}
	log := zerolog.Nop()

	cache := NewExamCache(store, rdb, time.Hour, log)
	examSvc := NewExamService(store, store, store, cache, log)
	examSvc.now = clk.Now
	attemptSvc := NewAttemptService(store, store, store, cache, 3, log)
	attemptSvc.now = clk.Now
	violationSvc := NewViolationService(store, attemptSvc, store, 3, log)
	violationSvc.now = clk.Now

	return &fixture{
		store:      store,
		clock:      clk,
		cache:      cache,
		exams:      examSvc,
		attempts:   attemptSvc,
		violations: violationSvc,
	}
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func (f *fixture) student(id int64, department, batch string) model.StudentProfile {
	p := model.StudentProfile{
		UserID:     id,
		Username:   "student",
		Role:       model.RoleStudent,
		Department: department,
		Batch:      batch,
	}
	f.store.PutProfile(p)
	return p
}

// openExam seeds an exam that opened an hour ago and closes in two hours,
// with the given correct options as its questions.
func (f *fixture) openExam(department, batch string, duration int, correct ...model.Option) (model.Exam, []model.Question) {
	exam := f.store.PutExam(model.Exam{
		Title:           "Data Structures Midterm",
		DurationMinutes: duration,
		Department:      department,
		AllowedBatch:    batch,
		StartTime:       baseTime.Add(-time.Hour),
		EndTime:         baseTime.Add(2 * time.Hour),
	})
	questions := make([]model.Question, 0, len(correct))
	for _, opt := range correct {
		questions = append(questions, f.store.PutQuestion(model.Question{
			ExamID:        exam.ID,
			QuestionText:  "Pick one",
			OptionA:       "a",
			OptionB:       "b",
			OptionC:       "c",
			OptionD:       "d",
			CorrectOption: opt,
		}))
	}
	return exam, questions
}
