package metrics

import (
	"go-journal-app/internal/data"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "journal"

// Registry holds every application metric. /metrics serves it.
var Registry = prometheus.NewRegistry()

// EventRegistrations counts join attempts by outcome
// (joined, already_registered, event_full).
var EventRegistrations = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_registrations_total",
		Help:      "Total number of event join attempts by outcome",
	},
	[]string{"outcome"},
)

// LoginAttempts counts sign-in attempts by form and result (success, failure, throttled).
var LoginAttempts = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of sign-in attempts",
	},
	[]string{"form", "result"},
)

// UploadedBytes records the size of stored uploads.
var UploadedBytes = promauto.With(Registry).NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upload_size_bytes",
		Help:      "Size of stored uploads in bytes",
		// 10KB .. 20MB
		Buckets: []float64{1e4, 1e5, 5e5, 1e6, 5e6, 1e7, 2e7},
	},
)

// Init registers the Go runtime and process collectors.
func Init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// JoinCounter feeds registration outcomes into EventRegistrations.
type JoinCounter struct{}

// ObserveJoin implements service.JoinObserver.
func (JoinCounter) ObserveJoin(outcome data.JoinOutcome) {
	EventRegistrations.WithLabelValues(outcome.String()).Inc()
}
