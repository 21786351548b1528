package reminders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for reminders and digests.
type Metrics struct {
	// SentTotal counts notifications by kind (reminder, digest) and outcome.
	SentTotal *prometheus.CounterVec

	// Due is the number of reminders found due on the last check.
	Due prometheus.Gauge

	SendDuration prometheus.Histogram

	Retries prometheus.Counter
}

// NewMetrics registers the reminder metrics on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_sent_total",
				Help:      "Reminder and digest notifications by outcome",
			},
			[]string{"kind", "status"},
		),

		Due: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reminders_due",
				Help:      "Reminders due on the last check",
			},
		),

		SendDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "notification_send_duration_seconds",
				Help:      "Time to deliver one notification",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5},
			},
		),

		Retries: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notification_retries_total",
				Help:      "Total number of retry attempts",
			},
		),
	}
}

func (m *Metrics) IncSent(kind, status string) {
	if m == nil {
		return
	}
	m.SentTotal.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) SetDue(n int) {
	if m == nil {
		return
	}
	m.Due.Set(float64(n))
}

func (m *Metrics) ObserveSendDuration(seconds float64) {
	if m == nil {
		return
	}
	m.SendDuration.Observe(seconds)
}

func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}
