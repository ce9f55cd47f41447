package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "praxis",
			Name:      "collaborator_fetch_total",
			Help:      "Count of collaborator fetches by kind and status.",
		},
		[]string{"kind", "status"},
	)

	staleDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "praxis",
			Name:      "stale_response_discarded_total",
			Help:      "Count of fetch responses discarded because a newer generation was issued.",
		},
	)

	mutationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "praxis",
			Name:      "appointment_mutation_total",
			Help:      "Count of appointment mutations by operation and status.",
		},
		[]string{"op", "status"},
	)

	rescheduleRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "praxis",
			Name:      "reschedule_rejected_total",
			Help:      "Count of reschedules rejected before submission.",
		},
		[]string{"reason"},
	)

	refreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "praxis",
			Name:      "window_refresh_duration_seconds",
			Help:      "Time spent loading one calendar window.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "praxis",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by route and status code.",
		},
		[]string{"route", "code"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(fetchTotal, staleDiscarded, mutationTotal, rescheduleRejected, refreshDuration, httpRequests)
	})
}

func IncFetch(kind, status string) {
	fetchTotal.WithLabelValues(kind, status).Inc()
}

func IncStaleDiscarded() {
	staleDiscarded.Inc()
}

func IncMutation(op, status string) {
	mutationTotal.WithLabelValues(op, status).Inc()
}

func IncRescheduleRejected(reason string) {
	rescheduleRejected.WithLabelValues(reason).Inc()
}

func ObserveRefresh(d time.Duration) {
	refreshDuration.Observe(d.Seconds())
}

func IncHTTP(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}
