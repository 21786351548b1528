package reminders

import (
	"context"
	"sync"
	"time"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

// SchedulerConfig holds configuration for the owners' daily digest.
type SchedulerConfig struct {
	// Location for scheduling.
	Location *time.Location
	// DailyHour is the hour (0-23) when the digest goes out.
	DailyHour int
	// DailyMinute is the minute (0-59) when the digest goes out.
	DailyMinute int
	// CheckInterval is how often to check if it's time to run.
	CheckInterval time.Duration
}

// DefaultSchedulerConfig returns the default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Location:      time.Local,
		DailyHour:     10,
		DailyMinute:   0,
		CheckInterval: 1 * time.Minute,
	}
}

// Scheduler sends each shop owner the day's reservations once a day.
type Scheduler struct {
	config      SchedulerConfig
	shops       ShopStore
	sender      *ReminderSender
	logger      Logger
	now         func() time.Time
	mu          sync.Mutex
	lastRunDate string // YYYY-MM-DD of last run
	running     bool
	stopCh      chan struct{}
}

// NewScheduler creates a new digest scheduler.
func NewScheduler(
	config SchedulerConfig,
	shops ShopStore,
	sender *ReminderSender,
	logger Logger,
) *Scheduler {
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	return &Scheduler{
		config: config,
		shops:  shops,
		sender: sender,
		logger: logger,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Start runs the scheduler loop until ctx ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("digest scheduler started",
		"timezone", s.config.Location.String(),
		"daily_time", s.formatTime())

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("digest scheduler stopped by context")
			return
		case <-s.stopCh:
			s.logger.Info("digest scheduler stopped")
			return
		case <-ticker.C:
			s.checkAndRun(ctx)
		}
	}
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()
}

// checkAndRun sends the digest once the daily time has passed, at most once
// per day.
func (s *Scheduler) checkAndRun(ctx context.Context) {
	now := s.now().In(s.config.Location)
	today := now.Format("2006-01-02")

	s.mu.Lock()
	alreadyRan := s.lastRunDate == today
	s.mu.Unlock()
	if alreadyRan {
		return
	}

	scheduled := time.Date(now.Year(), now.Month(), now.Day(),
		s.config.DailyHour, s.config.DailyMinute, 0, 0, s.config.Location)
	if now.Before(scheduled) {
		return
	}

	s.mu.Lock()
	s.lastRunDate = today
	s.mu.Unlock()

	s.RunNow(ctx, today)
}

// RunNow sends the digest for day (YYYY-MM-DD) to every active shop whose
// owner has a Telegram chat. Shops with nothing booked are skipped.
func (s *Scheduler) RunNow(ctx context.Context, day string) {
	start := time.Now()
	stats := struct {
		shops   int
		sent    int
		skipped int
		failed  int
	}{}

	shops, err := s.shops.ListActiveShops(ctx)
	if err != nil {
		s.logger.Error("failed to list shops for digest", "error", err)
		return
	}
	stats.shops = len(shops)

	for _, shop := range shops {
		select {
		case <-ctx.Done():
			s.logger.Info("digest interrupted", "sent", stats.sent)
			return
		default:
		}

		if shop.OwnerChatID == 0 {
			stats.skipped++
			continue
		}

		rows, err := s.shops.ListReservationsByShop(ctx, shop.ID)
		if err != nil {
			s.logger.Error("failed to load shop reservations", "shop_id", shop.ID, "error", err)
			stats.failed++
			continue
		}
		rows = dayRows(rows, day)
		if len(rows) == 0 {
			stats.skipped++
			continue
		}

		if err := s.sender.SendDigest(ctx, shop, day, rows); err != nil {
			stats.failed++
			continue
		}
		stats.sent++
	}

	s.logger.Info("daily digest processed",
		"date", day,
		"shops", stats.shops,
		"sent", stats.sent,
		"skipped", stats.skipped,
		"failed", stats.failed,
		"duration", time.Since(start))
}

// dayRows keeps the day's live reservations in seating order.
func dayRows(rows []models.ShopReservation, day string) []models.ShopReservation {
	out := make([]models.ShopReservation, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		if r.VisitDate != day || r.Status == models.StatusCancelled {
			continue
		}
		out = append(out, r)
	}
	return out
}

// formatTime returns the scheduled time as a string.
func (s *Scheduler) formatTime() string {
	return time.Date(2000, 1, 1, s.config.DailyHour, s.config.DailyMinute, 0, 0, time.UTC).Format("15:04")
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
