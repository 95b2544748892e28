// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	procTerminate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytrelay_proc_terminate_total",
		Help: "Signals sent to child process groups",
	}, []string{"signal", "result"}) // result=sent|esrch|error

	procWait = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytrelay_proc_wait_total",
		Help: "Child process exits observed after termination",
	}, []string{"outcome"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytrelay_ratelimit_rejected_total",
		Help: "Requests rejected by the per-client rate limit",
	})
)

// IncProcTerminate counts a termination signal.
func IncProcTerminate(signal, result string) {
	procTerminate.WithLabelValues(signal, result).Inc()
}

// IncProcWait counts how a terminated process exited.
func IncProcWait(outcome string) {
	procWait.WithLabelValues(outcome).Inc()
}

// RecordRateLimited counts a 429 response.
func RecordRateLimited() {
	rateLimited.Inc()
}
