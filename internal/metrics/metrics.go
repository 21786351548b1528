package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

const Namespace = "black_kingdom"

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	reservationsCreated prometheus.Counter
	submissionsRejected *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	transitionsRejected *prometheus.CounterVec
	authAttempts        *prometheus.CounterVec
	reservationsByState *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. Tests pass a
// fresh prometheus.NewRegistry() so repeated construction doesn't collide.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "Count of HTTP requests by route and status code.",
			},
			[]string{"route", "code"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		reservationsCreated: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "reservations_created_total",
				Help:      "Count of reservations created.",
			},
		),
		submissionsRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "reservation_submissions_rejected_total",
				Help:      "Count of rejected reservation submissions by reason.",
			},
			[]string{"reason"},
		),
		transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "reservation_transitions_total",
				Help:      "Count of applied status transitions.",
			},
			[]string{"from", "to"},
		),
		transitionsRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "reservation_transitions_rejected_total",
				Help:      "Count of rejected status changes by reason.",
			},
			[]string{"reason"},
		),
		authAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "auth_attempts_total",
				Help:      "Count of signup and login attempts by result.",
			},
			[]string{"operation", "result"},
		),
		reservationsByState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "reservations",
				Help:      "Stored reservations by status.",
			},
			[]string{"status"},
		),
	}
}

func (m *Metrics) ObserveHTTP(route string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, codeLabel(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) IncReservationCreated() {
	m.reservationsCreated.Inc()
}

func (m *Metrics) IncSubmissionRejected(reason string) {
	m.submissionsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncTransition(from, to models.Status) {
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) IncTransitionRejected(reason string) {
	m.transitionsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncAuth(operation, result string) {
	m.authAttempts.WithLabelValues(operation, result).Inc()
}

// SetReservationCounts replaces the per-status gauge values.
func (m *Metrics) SetReservationCounts(counts map[models.Status]int) {
	for status, n := range counts {
		m.reservationsByState.WithLabelValues(string(status)).Set(float64(n))
	}
}

func codeLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
