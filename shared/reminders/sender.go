package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			1 * time.Second,
			5 * time.Second,
			30 * time.Second,
		},
	}
}

// TelegramError represents an error from Telegram API.
type TelegramError struct {
	Code       int
	Message    string
	RetryAfter int // seconds to wait before retrying (for 429 errors)
}

func (e *TelegramError) Error() string {
	return fmt.Sprintf("telegram error %d: %s", e.Code, e.Message)
}

// IsTelegramError checks if the error is a TelegramError.
func IsTelegramError(err error) (*TelegramError, bool) {
	var tgErr *TelegramError
	if errors.As(err, &tgErr) {
		return tgErr, true
	}
	return nil, false
}

// ErrUndeliverable means retrying will not help: the chat blocked the bot
// or the request was malformed.
var ErrUndeliverable = errors.New("notification undeliverable")

const (
	kindReminder = "reminder"
	kindDigest   = "digest"
)

// ReminderSender delivers notifications with rate limiting and retries.
type ReminderSender struct {
	notifier    Notifier
	store       ReservationStore
	pacer       *Pacer
	retryConfig RetryConfig
	metrics     *Metrics
	logger      Logger
}

// ReminderSenderConfig holds configuration for the sender.
type ReminderSenderConfig struct {
	Pacing PacingConfig
	Retry  RetryConfig
}

// DefaultReminderSenderConfig returns the default configuration.
func DefaultReminderSenderConfig() ReminderSenderConfig {
	return ReminderSenderConfig{
		Pacing: DefaultPacingConfig(),
		Retry:  DefaultRetryConfig(),
	}
}

// NewReminderSender creates a new reminder sender. metrics may be nil.
func NewReminderSender(
	notifier Notifier,
	store ReservationStore,
	config ReminderSenderConfig,
	metrics *Metrics,
	logger Logger,
) *ReminderSender {
	return &ReminderSender{
		notifier:    notifier,
		store:       store,
		pacer:       NewPacer(config.Pacing),
		retryConfig: config.Retry,
		metrics:     metrics,
		logger:      logger,
	}
}

// SendWithRetry reminds the customer and marks the reservation. A
// reservation whose chat is undeliverable is marked too, so it is not
// retried on every check.
func (s *ReminderSender) SendWithRetry(ctx context.Context, r models.Reservation) error {
	err := s.deliver(ctx, kindReminder, r.ID, func() error {
		return s.notifier.SendReminder(ctx, r)
	})
	if err != nil && !errors.Is(err, ErrUndeliverable) {
		return err
	}

	if markErr := s.store.MarkReminderSent(ctx, r.ID); markErr != nil {
		s.logger.Error("failed to mark reminder as sent",
			"reservation_id", r.ID,
			"error", markErr)
		return markErr
	}
	return err
}

// SendDigest delivers one shop's daily digest.
func (s *ReminderSender) SendDigest(ctx context.Context, shop models.Shop, day string, rows []models.ShopReservation) error {
	return s.deliver(ctx, kindDigest, fmt.Sprintf("shop-%d", shop.ID), func() error {
		return s.notifier.SendDigest(ctx, shop, day, rows)
	})
}

func (s *ReminderSender) deliver(ctx context.Context, kind, ref string, send func() error) error {
	if err := s.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	maxRetries := s.retryConfig.MaxRetries
	delays := s.retryConfig.RetryDelays

	for attempt := 0; attempt <= maxRetries; attempt++ {
		start := time.Now()
		err := send()
		s.metrics.ObserveSendDuration(time.Since(start).Seconds())
		if err == nil {
			s.metrics.IncSent(kind, "sent")
			s.logger.Info("notification sent", "kind", kind, "ref", ref)
			return nil
		}

		lastErr = err

		if tgErr, ok := IsTelegramError(err); ok {
			switch tgErr.Code {
			case 429: // Too Many Requests
				waitTime := time.Duration(tgErr.RetryAfter) * time.Second
				if waitTime == 0 {
					waitTime = delayFor(delays, attempt)
				}
				s.logger.Info("rate limited by Telegram, waiting",
					"retry_after", waitTime,
					"attempt", attempt,
					"ref", ref)
				s.metrics.IncRetries()

				if err := sleep(ctx, waitTime); err != nil {
					return err
				}
				continue

			case 403: // Bot blocked by user
				s.logger.Info("chat blocked the bot", "kind", kind, "ref", ref)
				s.metrics.IncSent(kind, "blocked")
				return fmt.Errorf("%w: %v", ErrUndeliverable, err)

			case 400: // Bad Request
				s.logger.Error("bad request to Telegram", "error", err, "ref", ref)
				s.metrics.IncSent(kind, "bad_request")
				return fmt.Errorf("%w: %v", ErrUndeliverable, err)
			}
		}

		if attempt < maxRetries {
			delay := delayFor(delays, attempt)
			s.logger.Info("retrying notification",
				"attempt", attempt+1,
				"max_retries", maxRetries,
				"delay", delay,
				"error", err)
			s.metrics.IncRetries()

			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}
	}

	s.logger.Error("max retries exceeded",
		"kind", kind,
		"ref", ref,
		"error", lastErr)
	s.metrics.IncSent(kind, "failed")
	return fmt.Errorf("send %s %s: %w", kind, ref, lastErr)
}

func delayFor(delays []time.Duration, attempt int) time.Duration {
	if len(delays) == 0 {
		return time.Second
	}
	if attempt >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[attempt]
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
