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

// attemptTerminator is the shared forced-submit transition.
type attemptTerminator interface {
	ForceSubmit(ctx context.Context, attempt *model.ExamAttempt, endTime time.Time, reason TerminationReason) (*model.ExamAttempt, error)
}

// ViolationResult reports the state after a proctoring event.
type ViolationResult struct {
	Message       string `json:"message"`
	Violations    int    `json:"violations"`
	Remaining     int    `json:"remaining"`
	AutoSubmitted bool   `json:"auto_submitted"`

	// AlreadySubmitted marks the no-op case where the attempt was terminal.
	AlreadySubmitted bool `json:"-"`
}

// ViolationStatus is the read model of an attempt's violation counter.
type ViolationStatus struct {
	Violations    int `json:"violations"`
	Remaining     int `json:"remaining"`
	MaxViolations int `json:"max_violations"`
}

// ViolationService records proctoring events and force-submits an attempt
// once its violation count reaches the configured maximum.
type ViolationService struct {
	attempts      AttemptStore
	terminator    attemptTerminator
	sink          ProctorLogSink
	maxViolations int
	log           zerolog.Logger
	now           func() time.Time
}

// NewViolationService creates a new ViolationService.
func NewViolationService(
	attempts AttemptStore,
	terminator attemptTerminator,
	sink ProctorLogSink,
	maxViolations int,
	log zerolog.Logger,
) *ViolationService {
	return &ViolationService{
		attempts:      attempts,
		terminator:    terminator,
		sink:          sink,
		maxViolations: maxViolations,
		log:           log.With().Str("component", "violation_service").Logger(),
		now:           time.Now,
	}
}

// MaxViolations returns the configured threshold.
func (s *ViolationService) MaxViolations() int {
	return s.maxViolations
}

// Record bumps the counter, logs the event and, at the threshold, submits
// the attempt immediately without waiting for a submit call.
func (s *ViolationService) Record(ctx context.Context, userID, examID int64, event string) (*ViolationResult, error) {
	attempt, err := s.attempts.GetByExamAndStudent(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.IsSubmitted {
		return s.alreadySubmitted(attempt), nil
	}

	now := s.now()
	entry := model.ProctorLog{
		StudentID: userID,
		ExamID:    examID,
		Event:     event,
		Timestamp: now,
	}
	updated, err := s.attempts.IncrementViolations(ctx, attempt.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Submitted concurrently between the read and the increment.
			return s.alreadySubmitted(attempt), nil
		}
		s.log.Error().Err(err).Int64("attempt_id", attempt.ID).Msg("Violation increment failed")
		return nil, fmt.Errorf("increment violations: %w", err)
	}

	// Only counted violations reach the audit log. A failed append does not
	// undo the count.
	if err := s.sink.Append(ctx, entry); err != nil {
		s.log.Error().Err(err).
			Int64("attempt_id", attempt.ID).
			Str("event", event).
			Msg("Proctor log append failed")
	}

	observability.Violations().WithLabelValues(eventLabel(event)).Inc()
	s.log.Info().
		Int64("user_id", userID).
		Int64("exam_id", examID).
		Int64("attempt_id", attempt.ID).
		Str("event", event).
		Int("violations", updated.ViolationCount).
		Msg(model.DescribeEvent(event))

	if updated.ViolationCount >= s.maxViolations {
		final, err := s.terminator.ForceSubmit(ctx, updated, now, ReasonViolationLimit)
		if err != nil {
			if errors.Is(err, ErrAlreadySubmitted) {
				return s.alreadySubmitted(updated), nil
			}
			return nil, err
		}
		return &ViolationResult{
			Message:       OutcomeViolationLimit.Message(),
			Violations:    final.ViolationCount,
			Remaining:     s.remaining(final.ViolationCount),
			AutoSubmitted: true,
		}, nil
	}

	return &ViolationResult{
		Message:    "Violation logged",
		Violations: updated.ViolationCount,
		Remaining:  s.remaining(updated.ViolationCount),
	}, nil
}

// Status returns the current counter. A student without an attempt has
// recorded no violations yet.
func (s *ViolationService) Status(ctx context.Context, userID, examID int64) (*ViolationStatus, error) {
	count := 0
	attempt, err := s.attempts.GetByExamAndStudent(ctx, examID, userID)
	switch {
	case err == nil:
		count = attempt.ViolationCount
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("get attempt: %w", err)
	}

	return &ViolationStatus{
		Violations:    count,
		Remaining:     s.remaining(count),
		MaxViolations: s.maxViolations,
	}, nil
}

func (s *ViolationService) alreadySubmitted(attempt *model.ExamAttempt) *ViolationResult {
	return &ViolationResult{
		Message:          "Exam already submitted",
		Violations:       attempt.ViolationCount,
		Remaining:        s.remaining(attempt.ViolationCount),
		AlreadySubmitted: true,
	}
}

func (s *ViolationService) remaining(count int) int {
	if r := s.maxViolations - count; r > 0 {
		return r
	}
	return 0
}

func eventLabel(event string) string {
	if model.IsKnownEvent(event) {
		return event
	}
	return "other"
}
