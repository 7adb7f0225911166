package service

import (
	"strings"
	"time"

	"github.com/stemsi/exam-proctor/internal/model"
)

// IsEligible reports whether the student may see and take the exam: same
// department, and either no batch restriction or the student's batch.
//
// An earlier scheme matched class and batch exactly; it is superseded by
// this department plus optional batch rule.
func IsEligible(p *model.StudentProfile, e *model.Exam) bool {
	if p == nil || e == nil {
		return false
	}
	if p.Department != e.Department {
		return false
	}
	if !e.HasBatchRestriction() {
		return true
	}
	return strings.TrimSpace(p.Batch) == strings.TrimSpace(e.AllowedBatch)
}

// CheckWindow fails with ErrExamNotOpen or ErrExamClosed when now is
// outside [StartTime, EndTime].
func CheckWindow(e *model.Exam, now time.Time) error {
	if e.IsUpcoming(now) {
		return ErrExamNotOpen
	}
	if e.IsExpired(now) {
		return ErrExamClosed
	}
	return nil
}

// CheckAccess combines the eligibility predicate and the time window.
func CheckAccess(p *model.StudentProfile, e *model.Exam, now time.Time) error {
	if !IsEligible(p, e) {
		return ErrNotEligible
	}
	return CheckWindow(e, now)
}
