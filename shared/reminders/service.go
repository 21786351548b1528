// Package reminders sends customers a reminder before a confirmed visit and
// shop owners a digest of the day's reservations.
package reminders

import (
	"context"
	"sync"
	"time"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

// Config holds configuration for the reminder service.
type Config struct {
	// CheckInterval is how often to look for due reminders.
	// Default: 15 minutes.
	CheckInterval time.Duration

	// LeadTime is how long before the visit the reminder goes out.
	// Default: 24 hours.
	LeadTime time.Duration

	// MaxConcurrentNotifications limits parallel sends.
	// Default: 10.
	MaxConcurrentNotifications int

	// Location is the timezone visit dates and times are written in.
	Location *time.Location
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		CheckInterval:              15 * time.Minute,
		LeadTime:                   24 * time.Hour,
		MaxConcurrentNotifications: 10,
		Location:                   time.Local,
	}
}

// Service sends visit reminders.
type Service struct {
	config  *Config
	store   ReservationStore
	sender  *ReminderSender
	metrics *Metrics
	logger  Logger
	now     func() time.Time
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewService creates a new reminder service.
func NewService(
	config *Config,
	store ReservationStore,
	sender *ReminderSender,
	metrics *Metrics,
	logger Logger,
) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.CheckInterval == 0 {
		config.CheckInterval = 15 * time.Minute
	}
	if config.LeadTime == 0 {
		config.LeadTime = 24 * time.Hour
	}
	if config.MaxConcurrentNotifications == 0 {
		config.MaxConcurrentNotifications = 10
	}
	if config.Location == nil {
		config.Location = time.Local
	}

	return &Service{
		config:  config,
		store:   store,
		sender:  sender,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Start begins the reminder check loop. It stops on Stop or when ctx ends.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Reminder service started",
		"check_interval", s.config.CheckInterval,
		"lead_time", s.config.LeadTime,
	)
}

// Stop gracefully stops the reminder service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	s.logger.Info("Reminder service stopped")
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	s.CheckNow(ctx)

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.CheckNow(ctx)
		}
	}
}

// CheckNow sends every reminder that is due and returns how many were
// attempted.
func (s *Service) CheckNow(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	due, err := s.due(ctx)
	if err != nil {
		s.logger.Error("Failed to get upcoming reservations", "error", err)
		return 0
	}
	s.metrics.SetDue(len(due))
	if len(due) == 0 {
		return 0
	}

	s.logger.Debug("Found reservations to remind", "count", len(due))

	sem := make(chan struct{}, s.config.MaxConcurrentNotifications)
	var wg sync.WaitGroup

	for _, r := range due {
		wg.Add(1)
		sem <- struct{}{}

		go func(r models.Reservation) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.sender.SendWithRetry(ctx, r); err != nil {
				s.logger.Error("Failed to send reminder",
					"reservation_id", r.ID,
					"customer_id", r.CustomerID,
					"error", err,
				)
			}
		}(r)
	}

	wg.Wait()
	return len(due)
}

// due returns unsent reminders whose visit starts within the lead time and
// has not started yet.
func (s *Service) due(ctx context.Context) ([]models.Reservation, error) {
	loc := s.config.Location
	now := s.now().In(loc)
	horizon := now.Add(s.config.LeadTime)

	candidates, err := s.store.GetReservationsForReminders(ctx,
		now.Format("2006-01-02"), horizon.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}

	due := make([]models.Reservation, 0, len(candidates))
	for _, r := range candidates {
		if r.Status != models.StatusConfirmed || r.ReminderSent {
			continue
		}
		start, ok := r.VisitStart(loc)
		if !ok {
			s.logger.Debug("Skipping reservation with malformed visit time", "reservation_id", r.ID)
			continue
		}
		if start.After(now) && !start.After(horizon) {
			due = append(due, r)
		}
	}
	return due, nil
}
