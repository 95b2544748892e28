// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus metrics for the relay.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job outcomes used as label values.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSpawn     = "spawn_error"
	OutcomeCancelled = "cancelled"
	OutcomeTimeout   = "timeout"
)

var (
	jobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytrelay_jobs_submitted_total",
		Help: "Download jobs accepted by the relay",
	}, []string{"format"}) // format=mp4|mp3

	jobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytrelay_jobs_finished_total",
		Help: "Download jobs that reached a terminal state",
	}, []string{"format", "outcome"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ytrelay_job_duration_seconds",
		Help:    "Wall time from subprocess start to exit",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~34m
	}, []string{"format", "outcome"})

	jobsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ytrelay_jobs_running",
		Help: "Jobs currently holding an admission slot",
	})

	jobsQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ytrelay_jobs_queued",
		Help: "Jobs waiting for an admission slot",
	})

	admissionRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytrelay_admission_rejected_total",
		Help: "Submissions rejected because the pending queue was full",
	})

	jobsSwept = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytrelay_jobs_swept_total",
		Help: "Job records removed by the retention sweep",
	}, []string{"status"})

	registrySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ytrelay_registry_jobs",
		Help: "Job records held after the last sweep",
	})

	videoInfoTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytrelay_video_info_total",
		Help: "Metadata lookups by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	cookieFilesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ytrelay_cookie_files_active",
		Help: "Temporary cookie files currently on disk",
	})
)

// RecordJobSubmitted counts an accepted job.
func RecordJobSubmitted(format string) {
	jobsSubmitted.WithLabelValues(format).Inc()
}

// RecordJobFinished counts a terminal job and observes its runtime.
func RecordJobFinished(format, outcome string, d time.Duration) {
	jobsFinished.WithLabelValues(format, outcome).Inc()
	if d > 0 {
		jobDuration.WithLabelValues(format, outcome).Observe(d.Seconds())
	}
}

// IncJobsRunning marks an admission slot as taken.
func IncJobsRunning() { jobsRunning.Inc() }

// DecJobsRunning releases an admission slot.
func DecJobsRunning() { jobsRunning.Dec() }

// IncJobsQueued marks a job as waiting for a slot.
func IncJobsQueued() { jobsQueued.Inc() }

// DecJobsQueued marks a job as no longer waiting.
func DecJobsQueued() { jobsQueued.Dec() }

// RecordAdmissionRejected counts a busy rejection.
func RecordAdmissionRejected() { admissionRejected.Inc() }

// RecordJobSwept counts one evicted record by the status it had.
func RecordJobSwept(status string) {
	jobsSwept.WithLabelValues(status).Inc()
}

// SetRegistrySize records the number of retained jobs.
func SetRegistrySize(n int) {
	registrySize.Set(float64(n))
}

// RecordVideoInfo counts a metadata lookup.
func RecordVideoInfo(success bool) {
	if success {
		videoInfoTotal.WithLabelValues("success").Inc()
		return
	}
	videoInfoTotal.WithLabelValues("failure").Inc()
}

// IncCookieFiles tracks a cookie file written to disk.
func IncCookieFiles() { cookieFilesActive.Inc() }

// DecCookieFiles tracks a cookie file removed from disk.
func DecCookieFiles() { cookieFilesActive.Dec() }
