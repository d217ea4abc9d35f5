package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job outcome labels used with JobsTotal.
const (
	OutcomeCompleted   = "completed"
	OutcomeFailed      = "failed"
	OutcomeTimeout     = "timeout"
	OutcomeSubmitError = "submit_error"
	OutcomePollError   = "poll_error"
	OutcomeFetchError  = "fetch_error"
	OutcomeError       = "error"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recraft_submissions_total",
		Help: "Total number of job submissions sent to the queue, by outcome",
	}, []string{"outcome"})

	StatusChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recraft_status_checks_total",
		Help: "Total number of job status checks, by observed status",
	}, []string{"status"})

	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recraft_jobs_total",
		Help: "Total number of generation invocations, by final outcome",
	}, []string{"outcome"})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recraft_job_duration_seconds",
		Help:    "Time from submission to final outcome in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 180, 300, 600},
	})

	InFlightJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recraft_in_flight_jobs",
		Help: "Current number of generation invocations waiting on the queue",
	})
)
