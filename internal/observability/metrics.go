// README: Prometheus metrics for bookings and the HTTP surface.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsTotal      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "hubpool", Name: "bookings_total", Help: "Total confirmed bookings"})
	SeatConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "hubpool", Name: "seat_conflicts_total", Help: "Bookings lost to a concurrent capacity race"})
	GroupsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "hubpool", Name: "groups_created_total", Help: "New ride groups opened"})
	CancellationsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "hubpool", Name: "cancellations_total", Help: "Confirmed bookings cancelled"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hubpool", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hubpool",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
