package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-proctor/internal/config"
	"github.com/stemsi/exam-proctor/internal/observability"
)

// releaseLockScript deletes the lock only if this run still owns it.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SweepResult summarizes one sweeper run.
type SweepResult struct {
	ExamsScanned int `json:"exams_scanned"`
	MarkedCount  int `json:"marked_count"`
}

// AbsenceSweeper finalizes attempts of eligible students who never
// submitted an exam whose window has closed. It is triggered externally.
type AbsenceSweeper struct {
	profiles ProfileDirectory
	exams    ExamStore
	attempts AttemptStore
	rdb      *redis.Client
	lockTTL  time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewAbsenceSweeper creates a new AbsenceSweeper. A nil Redis client skips
// the cross-process run lock.
func NewAbsenceSweeper(
	profiles ProfileDirectory,
	exams ExamStore,
	attempts AttemptStore,
	rdb *redis.Client,
	lockTTL time.Duration,
	log zerolog.Logger,
) *AbsenceSweeper {
	return &AbsenceSweeper{
		profiles: profiles,
		exams:    exams,
		attempts: attempts,
		rdb:      rdb,
		lockTTL:  lockTTL,
		log:      log.With().Str("component", "absence_sweeper").Logger(),
		now:      time.Now,
	}
}

// Sweep marks absent every eligible student of every expired exam who has
// no attempt or an unsubmitted one. Submitted attempts are never touched.
func (s *AbsenceSweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	exams, err := s.exams.ListExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list expired exams: %w", err)
	}

	result := &SweepResult{ExamsScanned: len(exams)}
	for i := range exams {
		exam := &exams[i]

		students, err := s.profiles.ListStudentsByDepartment(ctx, exam.Department)
		if err != nil {
			return result, fmt.Errorf("list students of %q: %w", exam.Department, err)
		}

		marked := 0
		for j := range students {
			if !IsEligible(&students[j], exam) {
				continue
			}
			ok, err := s.attempts.MarkAbsent(ctx, exam.ID, students[j].UserID, exam.EndTime, now)
			if err != nil {
				s.log.Error().Err(err).
					Int64("exam_id", exam.ID).
					Int64("user_id", students[j].UserID).
					Msg("Mark absent failed")
				return result, fmt.Errorf("mark absent: %w", err)
			}
			if ok {
				marked++
			}
		}

		if marked > 0 {
			s.log.Info().Int64("exam_id", exam.ID).Int("marked", marked).Msg("Students marked absent")
		}
		result.MarkedCount += marked
	}

	observability.AbsenceMarked().Add(float64(result.MarkedCount))
	s.log.Info().
		Int("exams_scanned", result.ExamsScanned).
		Int("marked_count", result.MarkedCount).
		Msg("Absence sweep finished")

	return result, nil
}

func (s *AbsenceSweeper) acquire(ctx context.Context) (func(), error) {
	if s.rdb == nil {
		return func() {}, nil
	}

	key := config.CacheKey.AbsenceSweepLockKey()
	owner := uuid.NewString()

	ok, err := s.rdb.SetNX(ctx, key, owner, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		return nil, ErrSweepInProgress
	}

	return func() {
		// The request context may already be cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseLockScript.Run(releaseCtx, s.rdb, []string{key}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("Release sweep lock failed")
		}
	}, nil
}
