// Package memstore is an in-memory implementation of the exam storage
// contracts. It backs the service and router tests and mirrors the
// conditional-update semantics of the Postgres repositories.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exam-proctor/internal/model"
)

type attemptKey struct {
	examID    int64
	studentID int64
}

// Store holds profiles, exams, questions, attempts, answers and proctor
// logs behind one mutex.
type Store struct {
	mu sync.Mutex

	profiles  map[int64]model.StudentProfile
	exams     map[int64]model.Exam
	questions map[int64][]model.Question
	attempts  map[attemptKey]*model.ExamAttempt
	answers   map[int64][]model.Answer
	logs      []model.ProctorLog

	nextExamID     int64
	nextQuestionID int64
	nextAttemptID  int64
	nextAnswerID   int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		profiles:  make(map[int64]model.StudentProfile),
		exams:     make(map[int64]model.Exam),
		questions: make(map[int64][]model.Question),
		attempts:  make(map[attemptKey]*model.ExamAttempt),
		answers:   make(map[int64][]model.Answer),
	}
}

// ─── Seeding ───────────────────────────────────────────────────────────

// PutProfile stores or replaces a profile.
func (s *Store) PutProfile(p model.StudentProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

// PutExam stores an exam, assigning an ID when it has none, and returns it.
func (s *Store) PutExam(e model.Exam) model.Exam {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		s.nextExamID++
		e.ID = s.nextExamID
	} else if e.ID > s.nextExamID {
		s.nextExamID = e.ID
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.exams[e.ID] = e
	return e
}

// PutQuestion appends a question, assigning an ID, and returns it.
func (s *Store) PutQuestion(q model.Question) model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQuestionID++
	q.ID = s.nextQuestionID
	s.questions[q.ExamID] = append(s.questions[q.ExamID], q)
	return q
}

// PutAttempt stores an attempt as-is, assigning an ID when it has none.
func (s *Store) PutAttempt(a model.ExamAttempt) model.ExamAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		s.nextAttemptID++
		a.ID = s.nextAttemptID
	}
	s.attempts[attemptKey{a.ExamID, a.StudentID}] = &a
	return a
}

// Answers returns a copy of the stored answers of an attempt.
func (s *Store) Answers(attemptID int64) []model.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Answer(nil), s.answers[attemptID]...)
}

// Logs returns a copy of every appended proctor log entry.
func (s *Store) Logs() []model.ProctorLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ProctorLog(nil), s.logs...)
}

// AttemptCount returns how many attempt rows exist.
func (s *Store) AttemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

// ─── Profiles ──────────────────────────────────────────────────────────

func (s *Store) GetByUserID(_ context.Context, userID int64) (*model.StudentProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (s *Store) ListStudentsByDepartment(_ context.Context, department string) ([]model.StudentProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.StudentProfile
	for _, p := range s.profiles {
		if p.Role == model.RoleStudent && p.Department == department {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// ─── Exams and questions ───────────────────────────────────────────────

func (s *Store) withCount(e model.Exam) model.Exam {
	e.QuestionCount = len(s.questions[e.ID])
	return e
}

func (s *Store) GetByID(_ context.Context, id int64) (*model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	e = s.withCount(e)
	return &e, nil
}

func (s *Store) filterExams(keep func(model.Exam) bool) []model.Exam {
	var out []model.Exam
	for _, e := range s.exams {
		if keep(e) {
			out = append(out, s.withCount(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) ListOpenByDepartment(_ context.Context, department string, now time.Time) ([]model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterExams(func(e model.Exam) bool {
		return e.Department == department && e.IsActive(now)
	}), nil
}

func (s *Store) ListExpired(_ context.Context, now time.Time) ([]model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterExams(func(e model.Exam) bool { return e.EndTime.Before(now) }), nil
}

func (s *Store) ListByAuthor(_ context.Context, authorID int64) ([]model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.filterExams(func(e model.Exam) bool {
		return e.CreatedBy != nil && *e.CreatedBy == authorID
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (s *Store) ListQuestions(_ context.Context, examID int64) ([]model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Question(nil), s.questions[examID]...), nil
}

func (s *Store) CountQuestions(_ context.Context, examID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions[examID]), nil
}

func (s *Store) Create(_ context.Context, e *model.Exam) error {
	*e = s.PutExam(*e)
	return nil
}

func (s *Store) Update(_ context.Context, e *model.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.exams[e.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	cur.Title = e.Title
	cur.DurationMinutes = e.DurationMinutes
	cur.AllowedBatch = strings.TrimSpace(e.AllowedBatch)
	cur.StartTime = e.StartTime
	cur.EndTime = e.EndTime
	s.exams[e.ID] = cur
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exams[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.exams, id)
	delete(s.questions, id)
	for k, a := range s.attempts {
		if k.examID == id {
			delete(s.answers, a.ID)
			delete(s.attempts, k)
		}
	}
	kept := s.logs[:0]
	for _, l := range s.logs {
		if l.ExamID != id {
			kept = append(kept, l)
		}
	}
	s.logs = kept
	return nil
}

func (s *Store) AddQuestion(_ context.Context, q *model.Question) error {
	s.mu.Lock()
	_, ok := s.exams[q.ExamID]
	s.mu.Unlock()
	if !ok {
		return pgx.ErrNoRows
	}
	*q = s.PutQuestion(*q)
	return nil
}

// ─── Attempts ──────────────────────────────────────────────────────────

func (s *Store) GetByExamAndStudent(_ context.Context, examID, studentID int64) (*model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptKey{examID, studentID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (s *Store) ListSubmittedExamIDs(_ context.Context, studentID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for k, a := range s.attempts {
		if k.studentID == studentID && a.IsSubmitted {
			ids = append(ids, k.examID)
		}
	}
	return ids, nil
}

func (s *Store) GetOrCreate(_ context.Context, examID, studentID int64, startTime time.Time) (*model.ExamAttempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := attemptKey{examID, studentID}
	if a, ok := s.attempts[k]; ok {
		cp := *a
		return &cp, false, nil
	}
	s.nextAttemptID++
	a := &model.ExamAttempt{
		ID:        s.nextAttemptID,
		StudentID: studentID,
		ExamID:    examID,
		StartTime: startTime,
		Status:    model.AttemptStatusInProgress,
	}
	s.attempts[k] = a
	cp := *a
	return &cp, true, nil
}

// openAttempt returns the stored, not-yet-submitted attempt with the ID.
func (s *Store) openAttempt(id int64) (*model.ExamAttempt, error) {
	for _, a := range s.attempts {
		if a.ID == id {
			if a.IsSubmitted {
				return nil, pgx.ErrNoRows
			}
			return a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *Store) ForceSubmit(_ context.Context, attemptID int64, endTime time.Time) (*model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.openAttempt(attemptID)
	if err != nil {
		return nil, err
	}
	a.IsSubmitted = true
	a.Status = model.AttemptStatusSubmitted
	a.EndTime = &endTime
	cp := *a
	return &cp, nil
}

func (s *Store) SubmitGraded(_ context.Context, attemptID int64, answers []model.Answer, score int, endTime time.Time) (*model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.openAttempt(attemptID)
	if err != nil {
		return nil, err
	}
	stored := make([]model.Answer, len(answers))
	for i, ans := range answers {
		s.nextAnswerID++
		ans.ID = s.nextAnswerID
		ans.AttemptID = attemptID
		stored[i] = ans
	}
	s.answers[attemptID] = stored
	a.Score = score
	a.IsSubmitted = true
	a.Status = model.AttemptStatusSubmitted
	a.EndTime = &endTime
	cp := *a
	return &cp, nil
}

func (s *Store) IncrementViolations(_ context.Context, attemptID int64) (*model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.openAttempt(attemptID)
	if err != nil {
		return nil, err
	}
	a.ViolationCount++
	cp := *a
	return &cp, nil
}

func (s *Store) MarkAbsent(_ context.Context, examID, studentID int64, endTime, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := attemptKey{examID, studentID}
	a, ok := s.attempts[k]
	if !ok {
		s.nextAttemptID++
		a = &model.ExamAttempt{
			ID:        s.nextAttemptID,
			StudentID: studentID,
			ExamID:    examID,
			StartTime: now,
		}
		s.attempts[k] = a
	} else if a.IsSubmitted {
		return false, nil
	}
	a.Status = model.AttemptStatusAbsent
	a.IsSubmitted = true
	a.Score = 0
	a.EndTime = &endTime
	return true, nil
}

// ─── Proctor logs ──────────────────────────────────────────────────────

func (s *Store) Append(_ context.Context, entry model.ProctorLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	return nil
}
