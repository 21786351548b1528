package reminders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

// mockStore implements ReservationStore and ShopStore for testing.
type mockStore struct {
	mu           sync.Mutex
	reservations map[string]*models.Reservation
	shops        []models.Shop
	rows         map[int64][]models.ShopReservation
	queried      [][2]string
}

func newMockStore(rs ...models.Reservation) *mockStore {
	m := &mockStore{
		reservations: make(map[string]*models.Reservation),
		rows:         make(map[int64][]models.ShopReservation),
	}
	for i := range rs {
		r := rs[i]
		m.reservations[r.ID] = &r
	}
	return m
}

func (m *mockStore) GetReservationsForReminders(_ context.Context, fromDate, toDate string) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queried = append(m.queried, [2]string{fromDate, toDate})

	var out []models.Reservation
	for _, r := range m.reservations {
		if r.Status == models.StatusConfirmed && !r.ReminderSent &&
			r.VisitDate >= fromDate && r.VisitDate <= toDate {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockStore) MarkReminderSent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return errors.New("not found")
	}
	r.ReminderSent = true
	return nil
}

func (m *mockStore) sent(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservations[id].ReminderSent
}

func (m *mockStore) ListActiveShops(context.Context) ([]models.Shop, error) {
	return m.shops, nil
}

func (m *mockStore) ListReservationsByShop(_ context.Context, shopID int64) ([]models.ShopReservation, error) {
	return m.rows[shopID], nil
}

// mockNotifier records deliveries and fails with errs in order.
type mockNotifier struct {
	mu        sync.Mutex
	reminded  []string
	digests   map[int64][]models.ShopReservation
	errs      []error
	callCount int
}

func (n *mockNotifier) next() error {
	n.callCount++
	if len(n.errs) == 0 {
		return nil
	}
	err := n.errs[0]
	n.errs = n.errs[1:]
	return err
}

func (n *mockNotifier) SendReminder(_ context.Context, r models.Reservation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.next(); err != nil {
		return err
	}
	n.reminded = append(n.reminded, r.ID)
	return nil
}

func (n *mockNotifier) SendDigest(_ context.Context, shop models.Shop, _ string, rows []models.ShopReservation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.next(); err != nil {
		return err
	}
	if n.digests == nil {
		n.digests = make(map[int64][]models.ShopReservation)
	}
	n.digests[shop.ID] = rows
	return nil
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}

func fastSenderConfig() ReminderSenderConfig {
	return ReminderSenderConfig{
		Pacing: PacingConfig{PerSecond: 1000, Burst: 100},
		Retry:       RetryConfig{MaxRetries: 2, RetryDelays: []time.Duration{time.Millisecond}},
	}
}

func confirmed(id, date, tm string) models.Reservation {
	return models.Reservation{ID: id, ShopID: 1, CustomerID: 7, VisitDate: date, VisitTime: tm, Status: models.StatusConfirmed}
}

func TestService_CheckNow_SendsDueReminders(t *testing.T) {
	store := newMockStore(
		confirmed("soon", "2025-12-05", "19:00"),
		confirmed("tomorrow-early", "2025-12-06", "11:00"),
		confirmed("too-far", "2025-12-06", "19:00"),
		confirmed("started", "2025-12-05", "11:00"),
		confirmed("bad-time", "2025-12-05", "7pm"),
	)
	pending := confirmed("pending", "2025-12-05", "20:00")
	pending.Status = models.StatusPending
	store.reservations["pending"] = &pending

	notifier := &mockNotifier{}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics("test", reg)
	sender := NewReminderSender(notifier, store, fastSenderConfig(), metrics, nopLogger{})

	svc := NewService(&Config{LeadTime: 24 * time.Hour, Location: time.UTC}, store, sender, metrics, nopLogger{})
	svc.now = func() time.Time { return time.Date(2025, 12, 5, 12, 0, 0, 0, time.UTC) }

	n := svc.CheckNow(context.Background())
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"soon", "tomorrow-early"}, notifier.reminded)
	assert.True(t, store.sent("soon"))
	assert.False(t, store.sent("too-far"))
	assert.Equal(t, [2]string{"2025-12-05", "2025-12-06"}, store.queried[0])
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.SentTotal.WithLabelValues("reminder", "sent")))

	// Marked reservations are not reminded again.
	assert.Equal(t, 0, svc.CheckNow(context.Background()))
}

func TestSender_RetriesThenSucceeds(t *testing.T) {
	store := newMockStore(confirmed("r1", "2025-12-05", "19:00"))
	notifier := &mockNotifier{errs: []error{errors.New("timeout"), &TelegramError{Code: 429, RetryAfter: 0}}}
	sender := NewReminderSender(notifier, store, fastSenderConfig(), nil, nopLogger{})

	require.NoError(t, sender.SendWithRetry(context.Background(), *store.reservations["r1"]))
	assert.Equal(t, 3, notifier.callCount)
	assert.True(t, store.sent("r1"))
}

func TestSender_BlockedChatIsMarked(t *testing.T) {
	store := newMockStore(confirmed("r1", "2025-12-05", "19:00"))
	notifier := &mockNotifier{errs: []error{&TelegramError{Code: 403, Message: "bot was blocked by the user"}}}
	sender := NewReminderSender(notifier, store, fastSenderConfig(), nil, nopLogger{})

	err := sender.SendWithRetry(context.Background(), *store.reservations["r1"])
	assert.ErrorIs(t, err, ErrUndeliverable)
	assert.Equal(t, 1, notifier.callCount)
	assert.True(t, store.sent("r1"), "undeliverable reminders are not retried forever")
}

func TestSender_GivesUp(t *testing.T) {
	store := newMockStore(confirmed("r1", "2025-12-05", "19:00"))
	boom := errors.New("network down")
	notifier := &mockNotifier{errs: []error{boom, boom, boom}}
	sender := NewReminderSender(notifier, store, fastSenderConfig(), nil, nopLogger{})

	err := sender.SendWithRetry(context.Background(), *store.reservations["r1"])
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, notifier.callCount)
	assert.False(t, store.sent("r1"))
}

func TestScheduler_RunNow(t *testing.T) {
	store := newMockStore()
	store.shops = []models.Shop{
		{ID: 1, Name: "Gangnam", OwnerChatID: 100},
		{ID: 2, Name: "Hongdae"},
		{ID: 3, Name: "Itaewon", OwnerChatID: 300},
	}
	row := func(id, date, tm string, st models.Status) models.ShopReservation {
		return models.ShopReservation{Reservation: models.Reservation{ID: id, VisitDate: date, VisitTime: tm, Status: st}}
	}
	// Newest first, as the store returns them.
	store.rows[1] = []models.ShopReservation{
		row("tomorrow", "2025-12-06", "18:00", models.StatusPending),
		row("late", "2025-12-05", "20:00", models.StatusConfirmed),
		row("cancelled", "2025-12-05", "19:00", models.StatusCancelled),
		row("early", "2025-12-05", "17:00", models.StatusPending),
	}
	store.rows[2] = []models.ShopReservation{row("x", "2025-12-05", "18:00", models.StatusPending)}
	store.rows[3] = []models.ShopReservation{row("y", "2025-12-04", "18:00", models.StatusCompleted)}

	notifier := &mockNotifier{}
	sender := NewReminderSender(notifier, store, fastSenderConfig(), nil, nopLogger{})
	sched := NewScheduler(SchedulerConfig{Location: time.UTC}, store, sender, nopLogger{})

	sched.RunNow(context.Background(), "2025-12-05")

	require.Len(t, notifier.digests, 1, "only shops with an owner chat and bookings that day")
	got := notifier.digests[1]
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].ID)
	assert.Equal(t, "late", got[1].ID)
}

func TestScheduler_RunsOncePerDay(t *testing.T) {
	store := newMockStore()
	store.shops = []models.Shop{{ID: 1, OwnerChatID: 100}}
	store.rows[1] = []models.ShopReservation{{Reservation: models.Reservation{ID: "a", VisitDate: "2025-12-05", VisitTime: "18:00"}}}

	notifier := &mockNotifier{}
	sender := NewReminderSender(notifier, store, fastSenderConfig(), nil, nopLogger{})
	sched := NewScheduler(SchedulerConfig{Location: time.UTC, DailyHour: 10}, store, sender, nopLogger{})

	now := time.Date(2025, 12, 5, 9, 59, 0, 0, time.UTC)
	sched.now = func() time.Time { return now }

	sched.checkAndRun(context.Background())
	assert.Equal(t, 0, notifier.callCount, "before the daily time")

	now = now.Add(2 * time.Minute)
	sched.checkAndRun(context.Background())
	sched.checkAndRun(context.Background())
	assert.Equal(t, 1, notifier.callCount)
}

func TestPacer_TryAcquire(t *testing.T) {
	rl := NewPacer(PacingConfig{PerSecond: 0.001, Burst: 2})
	assert.True(t, rl.TryAcquire())
	assert.True(t, rl.TryAcquire())
	assert.False(t, rl.TryAcquire())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, rl.Wait(ctx))
}
