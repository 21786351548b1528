package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveHTTP("create_reservation", 201, 10*time.Millisecond)
	m.ObserveHTTP("create_reservation", 400, time.Millisecond)
	m.ObserveHTTP("create_reservation", 404, time.Millisecond)
	m.IncReservationCreated()
	m.IncTransition(models.StatusPending, models.StatusConfirmed)
	m.IncTransitionRejected("invalid_transition")
	m.IncAuth("login", "failure")
	m.SetReservationCounts(map[models.Status]int{models.StatusPending: 3})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("create_reservation", "2xx")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("create_reservation", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reservationsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("pending", "confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitionsRejected.WithLabelValues("invalid_transition")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authAttempts.WithLabelValues("login", "failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.reservationsByState.WithLabelValues("pending")))
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestCodeLabel(t *testing.T) {
	assert.Equal(t, "2xx", codeLabel(200))
	assert.Equal(t, "3xx", codeLabel(304))
	assert.Equal(t, "4xx", codeLabel(422))
	assert.Equal(t, "5xx", codeLabel(503))
}
