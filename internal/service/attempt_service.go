package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-proctor/internal/model"
	"github.com/stemsi/exam-proctor/internal/observability"
)

// SubmitOutcome distinguishes the three ways a submit call ends.
type SubmitOutcome string

const (
	OutcomeGraded         SubmitOutcome = "submitted"
	OutcomeTimeOver       SubmitOutcome = "time_over"
	OutcomeViolationLimit SubmitOutcome = "violation_limit"
)

// Message returns the caller-facing text for the outcome.
func (o SubmitOutcome) Message() string {
	switch o {
	case OutcomeTimeOver:
		return "Time over. Exam auto-submitted."
	case OutcomeViolationLimit:
		return "Violation limit exceeded. Exam auto-submitted."
	default:
		return "Exam submitted"
	}
}

// TerminationReason labels a system-initiated submission.
type TerminationReason string

const (
	ReasonTimeOver       TerminationReason = "time_over"
	ReasonViolationLimit TerminationReason = "violation_limit"
)

// StartResult carries what the client needs for its countdown.
type StartResult struct {
	Attempt   *model.ExamAttempt
	StartTime time.Time
	Duration  int
	Resumed   bool
}

// SubmitResult is the terminal outcome of a submit call.
type SubmitResult struct {
	Outcome SubmitOutcome
	Message string
	Score   int
	Attempt *model.ExamAttempt
}

// AttemptResult is the read model for the result endpoint.
type AttemptResult struct {
	Score          int  `json:"score"`
	TotalQuestions int  `json:"total_questions"`
	Submitted      bool `json:"submitted"`
}

// AttemptService owns the lifecycle of a student's single attempt at an exam.
type AttemptService struct {
	profiles      ProfileDirectory
	exams         ExamStore
	attempts      AttemptStore
	cache         *ExamCache
	maxViolations int
	log           zerolog.Logger
	now           func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	profiles ProfileDirectory,
	exams ExamStore,
	attempts AttemptStore,
	cache *ExamCache,
	maxViolations int,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		profiles:      profiles,
		exams:         exams,
		attempts:      attempts,
		cache:         cache,
		maxViolations: maxViolations,
		log:           log.With().Str("component", "attempt_service").Logger(),
		now:           time.Now,
	}
}

// Start gets or creates the student's attempt. Calling it again on an
// in-progress attempt returns that attempt unchanged.
func (s *AttemptService) Start(ctx context.Context, userID, examID int64) (*StartResult, error) {
	profile, exam, err := s.loadProfileAndExam(ctx, userID, examID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := CheckAccess(profile, exam, now); err != nil {
		return nil, err
	}

	attempt, created, err := s.attempts.GetOrCreate(ctx, examID, userID, now)
	if err != nil {
		return nil, fmt.Errorf("get or create attempt: %w", err)
	}
	if attempt.IsSubmitted {
		return nil, ErrAlreadySubmitted
	}

	resumed := !created
	s.log.Info().
		Int64("user_id", userID).
		Int64("exam_id", examID).
		Int64("attempt_id", attempt.ID).
		Bool("resumed", resumed).
		Msg("Exam started")

	return &StartResult{
		Attempt:   attempt,
		StartTime: attempt.StartTime,
		Duration:  exam.DurationMinutes,
		Resumed:   resumed,
	}, nil
}

// Submit ends the attempt. Precedence: deadline passed, then violation limit,
// then a normal grade-and-submit. Expiry is evaluated here, lazily.
func (s *AttemptService) Submit(ctx context.Context, userID, examID int64, inputs []model.AnswerInput) (*SubmitResult, error) {
	attempt, err := s.attempts.GetByExamAndStudent(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.IsSubmitted {
		return nil, ErrAlreadySubmitted
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	now := s.now()
	deadline := attempt.Deadline(exam.Duration())

	if now.After(deadline) {
		final, err := s.ForceSubmit(ctx, attempt, deadline, ReasonTimeOver)
		if err != nil {
			return nil, err
		}
		return s.finish(OutcomeTimeOver, final), nil
	}

	if attempt.ViolationCount >= s.maxViolations {
		final, err := s.ForceSubmit(ctx, attempt, now, ReasonViolationLimit)
		if err != nil {
			return nil, err
		}
		return s.finish(OutcomeViolationLimit, final), nil
	}

	key, err := s.cache.AnswerKey(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}

	answers, score, err := Grade(attempt.ID, key, inputs)
	if err != nil {
		return nil, err
	}

	final, err := s.attempts.SubmitGraded(ctx, attempt.ID, answers, score, now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadySubmitted
		}
		s.log.Error().Err(err).
			Int64("attempt_id", attempt.ID).
			Msg("Graded submit failed, attempt left unchanged")
		return nil, fmt.Errorf("submit graded attempt: %w", err)
	}

	s.log.Info().
		Int64("user_id", userID).
		Int64("exam_id", examID).
		Int64("attempt_id", attempt.ID).
		Int("score", score).
		Int("answers", len(answers)).
		Msg("Exam submitted and graded")

	return s.finish(OutcomeGraded, final), nil
}

// ForceSubmit is the single system-initiated terminal transition, shared by
// the lazy deadline check, the submit-time violation check and the
// violation tracker. Only one concurrent caller wins; the others get
// ErrAlreadySubmitted.
func (s *AttemptService) ForceSubmit(ctx context.Context, attempt *model.ExamAttempt, endTime time.Time, reason TerminationReason) (*model.ExamAttempt, error) {
	final, err := s.attempts.ForceSubmit(ctx, attempt.ID, endTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadySubmitted
		}
		s.log.Error().Err(err).Int64("attempt_id", attempt.ID).Msg("Forced submit failed")
		return nil, fmt.Errorf("force submit: %w", err)
	}

	observability.AutoSubmissions().WithLabelValues(string(reason)).Inc()
	s.log.Warn().
		Int64("user_id", attempt.StudentID).
		Int64("exam_id", attempt.ExamID).
		Int64("attempt_id", attempt.ID).
		Str("reason", string(reason)).
		Int("violations", final.ViolationCount).
		Msg("Attempt force-submitted")

	return final, nil
}

// Result returns the recorded score for the student's attempt.
func (s *AttemptService) Result(ctx context.Context, userID, examID int64) (*AttemptResult, error) {
	attempt, err := s.attempts.GetByExamAndStudent(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}

	total, err := s.exams.CountQuestions(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}

	return &AttemptResult{
		Score:          attempt.Score,
		TotalQuestions: total,
		Submitted:      attempt.IsSubmitted,
	}, nil
}

func (s *AttemptService) finish(outcome SubmitOutcome, attempt *model.ExamAttempt) *SubmitResult {
	observability.Submissions().WithLabelValues(string(outcome)).Inc()
	return &SubmitResult{
		Outcome: outcome,
		Message: outcome.Message(),
		Score:   attempt.Score,
		Attempt: attempt,
	}
}

func (s *AttemptService) loadProfileAndExam(ctx context.Context, userID, examID int64) (*model.StudentProfile, *model.Exam, error) {
	return loadProfileAndExam(ctx, s.profiles, s.exams, userID, examID)
}

func loadProfileAndExam(ctx context.Context, profiles ProfileDirectory, exams ExamStore, userID, examID int64) (*model.StudentProfile, *model.Exam, error) {
	profile, err := profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrProfileNotFound
		}
		return nil, nil, fmt.Errorf("get profile: %w", err)
	}

	exam, err := exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrExamNotFound
		}
		return nil, nil, fmt.Errorf("get exam: %w", err)
	}

	return profile, exam, nil
}
