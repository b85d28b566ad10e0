package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/opsdesk/filetrack/internal/application/sla"
	"github.com/opsdesk/filetrack/internal/domain/file"
)

func TestMetrics_FileReceived(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.FileReceived(file.PriorityCritical, true)
	m.FileReceived(file.PriorityMedium, false)
	m.FileReceived(file.PriorityMedium, false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.FilesReceivedTotal.WithLabelValues("Critical", "classifier")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.FilesReceivedTotal.WithLabelValues("Medium", "fallback")))
}

func TestMetrics_SweepCompleted(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SweepCompleted(sla.Result{
		Scanned:  10,
		Overdue:  2,
		Reminded: 3,
		Skipped:  1,
		Elapsed:  50 * time.Millisecond,
	})
	m.SweepCompleted(sla.Result{Scanned: 5, Malformed: 1})

	assert.Equal(t, float64(2), testutil.ToFloat64(m.SweepRunsTotal))
	assert.Equal(t, float64(15), testutil.ToFloat64(m.SweepScannedTotal))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SweepOverdueTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.SweepRemindedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SweepSkippedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SweepMalformed))
}

func TestMetrics_ObserveHTTP(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveHTTP("GET", "/api/v1/files", 200, 12*time.Millisecond)
	m.ObserveHTTP("GET", "/api/v1/files", 200, 20*time.Millisecond)
	m.ObserveHTTP("POST", "/api/v1/files", 400, 5*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/files", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/files", "400")))
}
