package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	submissionsTotal    *prometheus.CounterVec
	violationsTotal     *prometheus.CounterVec
	autoSubmissionTotal *prometheus.CounterVec
	absenceMarkedTotal  prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors for the attempt lifecycle.
func RegisterMetrics() {
	registerOnce.Do(func() {
		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_submissions_total",
			Help: "Exam submit calls that reached a terminal state, by outcome.",
		}, []string{"outcome"})

		violationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proctor_violations_total",
			Help: "Proctoring violations recorded against in-progress attempts.",
		}, []string{"event"})

		autoSubmissionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_auto_submissions_total",
			Help: "Attempts force-submitted by the system, by reason.",
		}, []string{"reason"})

		absenceMarkedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "absence_marked_total",
			Help: "Attempts marked absent by the sweeper.",
		})

		prometheus.MustRegister(submissionsTotal, violationsTotal, autoSubmissionTotal, absenceMarkedTotal)
	})
}

// Submissions exposes the submit outcome counter.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// Violations exposes the violation counter. Unknown event strings are
// bucketed as "other" to bound label cardinality.
func Violations() *prometheus.CounterVec {
	RegisterMetrics()
	return violationsTotal
}

// AutoSubmissions exposes the forced termination counter.
func AutoSubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return autoSubmissionTotal
}

// AbsenceMarked exposes the sweeper counter.
func AbsenceMarked() prometheus.Counter {
	RegisterMetrics()
	return absenceMarkedTotal
}
