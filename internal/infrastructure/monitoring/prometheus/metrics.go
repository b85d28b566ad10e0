// Package prometheus exposes filetrack's operational metrics.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/opsdesk/filetrack/internal/application/sla"
	"github.com/opsdesk/filetrack/internal/domain/file"
)

// Metrics holds every collector the service registers.
type Metrics struct {
	// HTTP layer
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Intake
	FilesReceivedTotal *prometheus.CounterVec

	// Sweep
	SweepRunsTotal     prometheus.Counter
	SweepDuration      prometheus.Histogram
	SweepScannedTotal  prometheus.Counter
	SweepOverdueTotal  prometheus.Counter
	SweepRemindedTotal prometheus.Counter
	SweepSkippedTotal  prometheus.Counter
	SweepMalformed     prometheus.Counter
}

// New registers all metrics on the given registerer.  Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filetrack_http_requests_total",
			Help: "HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filetrack_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		FilesReceivedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filetrack_files_received_total",
			Help: "Accepted uploads by priority and metadata source.",
		}, []string{"priority", "source"}),
		SweepRunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "filetrack_sweep_runs_total",
			Help: "Completed sweep passes.",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "filetrack_sweep_duration_seconds",
			Help:    "Sweep pass duration.",
			Buckets: []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		}),
		SweepScannedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "filetrack_sweep_files_scanned_total",
			Help: "Pending files inspected by the sweep.",
		}),
		SweepOverdueTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "filetrack_sweep_files_overdue_total",
			Help: "Files transitioned to Overdue.",
		}),
		SweepRemindedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "filetrack_sweep_reminders_total",
			Help: "Reminder alerts raised.",
		}),
		SweepSkippedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "filetrack_sweep_files_skipped_total",
			Help: "Files skipped because they left Pending mid-sweep.",
		}),
		SweepMalformed: factory.NewCounter(prometheus.CounterOpts{
			Name: "filetrack_sweep_files_malformed_total",
			Help: "Malformed records skipped by the sweep.",
		}),
	}
}

// ObserveHTTP records one handled request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// FileReceived implements the intake service's metrics port.
func (m *Metrics) FileReceived(priority file.Priority, fromClassifier bool) {
	source := "fallback"
	if fromClassifier {
		source = "classifier"
	}
	m.FilesReceivedTotal.WithLabelValues(string(priority), source).Inc()
}

// SweepCompleted implements the sweep service's metrics port.
func (m *Metrics) SweepCompleted(r sla.Result) {
	m.SweepRunsTotal.Inc()
	m.SweepDuration.Observe(r.Elapsed.Seconds())
	m.SweepScannedTotal.Add(float64(r.Scanned))
	m.SweepOverdueTotal.Add(float64(r.Overdue))
	m.SweepRemindedTotal.Add(float64(r.Reminded))
	m.SweepSkippedTotal.Add(float64(r.Skipped))
	m.SweepMalformed.Add(float64(r.Malformed))
}
