package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(Submissions().WithLabelValues("time_over"))
	Submissions().WithLabelValues("time_over").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(Submissions().WithLabelValues("time_over")))

	beforeAbsent := testutil.ToFloat64(AbsenceMarked())
	AbsenceMarked().Add(3)
	require.Equal(t, beforeAbsent+3, testutil.ToFloat64(AbsenceMarked()))
}
