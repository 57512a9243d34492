// Package metrics declares the Prometheus collectors shared by the bus, the ledger engine and the HTTP gateway.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatch outcomes
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
	OutcomeSkipped   = "skipped"
	OutcomeUnhandled = "unhandled"
)

var (
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bus_messages_sent_total",
		Help: "Messages accepted by the bus, labeled by action",
	}, []string{"action"})

	MessagesDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bus_messages_dispatched_total",
		Help: "Messages handed to agent handlers, labeled by agent and outcome",
	}, []string{"agent", "outcome"})

	HandlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bus_handler_duration_seconds",
		Help:    "Time spent inside agent handlers",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"agent"})

	MessagesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bus_messages_swept_total",
		Help: "Terminal messages removed from the store by the sweeper",
	})

	ArchiveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bus_archive_failures_total",
		Help: "Sweeper batches that could not be archived",
	})

	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Ledger engine operations, labeled by operation and outcome",
	}, []string{"operation", "outcome"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})
)

// ObserveLedger counts one ledger operation; a nil err is a success
func ObserveLedger(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	LedgerOperations.WithLabelValues(operation, outcome).Inc()
}

// ObserveHandler records how long agent's handler ran
func ObserveHandler(agent string, started time.Time) {
	HandlerDuration.WithLabelValues(agent).Observe(time.Since(started).Seconds())
}
