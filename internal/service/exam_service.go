package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-proctor/internal/model"
)

// ExamService serves the student-facing catalog and teacher authoring.
type ExamService struct {
	profiles ProfileDirectory
	exams    ExamStore
	attempts AttemptStore
	cache    *ExamCache
	log      zerolog.Logger
	now      func() time.Time
}

// NewExamService creates a new ExamService.
func NewExamService(
	profiles ProfileDirectory,
	exams ExamStore,
	attempts AttemptStore,
	cache *ExamCache,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		profiles: profiles,
		exams:    exams,
		attempts: attempts,
		cache:    cache,
		log:      log.With().Str("component", "exam_service").Logger(),
		now:      time.Now,
	}
}

// ListForStudent returns the eligible, currently open exams the student has
// not yet submitted.
func (s *ExamService) ListForStudent(ctx context.Context, userID int64) ([]model.ExamSummary, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	now := s.now()
	exams, err := s.exams.ListOpenByDepartment(ctx, profile.Department, now)
	if err != nil {
		return nil, fmt.Errorf("list open exams: %w", err)
	}

	submittedIDs, err := s.attempts.ListSubmittedExamIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list submitted exams: %w", err)
	}
	submitted := make(map[int64]struct{}, len(submittedIDs))
	for _, id := range submittedIDs {
		submitted[id] = struct{}{}
	}

	summaries := make([]model.ExamSummary, 0, len(exams))
	for i := range exams {
		exam := &exams[i]
		if !IsEligible(profile, exam) || !exam.IsActive(now) {
			continue
		}
		if _, done := submitted[exam.ID]; done {
			continue
		}
		summaries = append(summaries, model.NewExamSummary(exam, now))
	}

	return summaries, nil
}

// Questions returns the exam's questions without correct options, for an
// eligible student inside the exam window.
func (s *ExamService) Questions(ctx context.Context, userID, examID int64) ([]model.QuestionForStudent, error) {
	profile, exam, err := loadProfileAndExam(ctx, s.profiles, s.exams, userID, examID)
	if err != nil {
		return nil, err
	}

	if err := CheckAccess(profile, exam, s.now()); err != nil {
		return nil, err
	}

	questions, err := s.cache.StudentQuestions(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

// ─── Teacher authoring ─────────────────────────────────────────────────

// ListForTeacher returns every exam the teacher authored, whatever the
// state of its window.
func (s *ExamService) ListForTeacher(ctx context.Context, userID int64) ([]model.TeacherExamSummary, error) {
	teacher, err := s.requireTeacher(ctx, userID)
	if err != nil {
		return nil, err
	}

	exams, err := s.exams.ListByAuthor(ctx, teacher.UserID)
	if err != nil {
		return nil, fmt.Errorf("list authored exams: %w", err)
	}

	now := s.now()
	summaries := make([]model.TeacherExamSummary, 0, len(exams))
	for i := range exams {
		summaries = append(summaries, model.NewTeacherExamSummary(&exams[i], now))
	}
	return summaries, nil
}

// CreateExam creates an exam in the teacher's own department.
func (s *ExamService) CreateExam(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error) {
	teacher, err := s.requireTeacher(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	start, err := model.ParseTimestamp(req.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := model.ParseTimestamp(req.EndTime)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, ErrInvalidSchedule
	}

	authorID := teacher.UserID
	exam := &model.Exam{
		Title:           strings.TrimSpace(req.Title),
		DurationMinutes: req.Duration,
		Department:      teacher.Department,
		AllowedBatch:    strings.TrimSpace(req.AllowedBatch),
		StartTime:       start,
		EndTime:         end,
		CreatedBy:       &authorID,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.log.Info().Int64("exam_id", exam.ID).Int64("teacher_id", authorID).Msg("Exam created")
	return exam, nil
}

// UpdateExam applies a partial update to one of the teacher's exams.
func (s *ExamService) UpdateExam(ctx context.Context, examID int64, req *model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.ownedExam(ctx, req.UserID, examID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		exam.Title = strings.TrimSpace(*req.Title)
	}
	if req.Duration != nil {
		exam.DurationMinutes = *req.Duration
	}
	if req.AllowedBatch != nil {
		exam.AllowedBatch = strings.TrimSpace(*req.AllowedBatch)
	}
	if req.StartTime != nil {
		if exam.StartTime, err = model.ParseTimestamp(*req.StartTime); err != nil {
			return nil, err
		}
	}
	if req.EndTime != nil {
		if exam.EndTime, err = model.ParseTimestamp(*req.EndTime); err != nil {
			return nil, err
		}
	}
	if !exam.EndTime.After(exam.StartTime) {
		return nil, ErrInvalidSchedule
	}

	if err := s.exams.Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	return exam, nil
}

// DeleteExam removes one of the teacher's exams; questions, attempts and
// answers go with it.
func (s *ExamService) DeleteExam(ctx context.Context, userID, examID int64) error {
	if _, err := s.ownedExam(ctx, userID, examID); err != nil {
		return err
	}
	if err := s.exams.Delete(ctx, examID); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	s.invalidate(ctx, examID)
	return nil
}

// AddQuestion appends a question to one of the teacher's exams.
func (s *ExamService) AddQuestion(ctx context.Context, examID int64, req *model.CreateQuestionRequest) (*model.Question, error) {
	if _, err := s.ownedExam(ctx, req.UserID, examID); err != nil {
		return nil, err
	}

	q := &model.Question{
		ExamID:        examID,
		QuestionText:  req.QuestionText,
		OptionA:       req.OptionA,
		OptionB:       req.OptionB,
		OptionC:       req.OptionC,
		OptionD:       req.OptionD,
		CorrectOption: model.Option(req.CorrectOption),
	}
	if !q.CorrectOption.Valid() {
		return nil, ErrInvalidOption
	}
	if err := s.exams.AddQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("add question: %w", err)
	}
	s.invalidate(ctx, examID)
	return q, nil
}

func (s *ExamService) requireTeacher(ctx context.Context, userID int64) (*model.StudentProfile, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile.Role != model.RoleTeacher {
		return nil, ErrNotTeacher
	}
	return profile, nil
}

func (s *ExamService) ownedExam(ctx context.Context, userID, examID int64) (*model.Exam, error) {
	teacher, err := s.requireTeacher(ctx, userID)
	if err != nil {
		return nil, err
	}
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.CreatedBy == nil || *exam.CreatedBy != teacher.UserID {
		return nil, ErrNotExamAuthor
	}
	return exam, nil
}

func (s *ExamService) invalidate(ctx context.Context, examID int64) {
	if err := s.cache.Invalidate(ctx, examID); err != nil {
		s.log.Warn().Err(err).Int64("exam_id", examID).Msg("Exam cache invalidation failed")
	}
}
