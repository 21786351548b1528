package notify

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/Eo-0118/Black-Kingdom/internal/events"
	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

// Log records notifications instead of sending them. Used when no bot
// token is configured.
type Log struct {
	logger zerolog.Logger
}

func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "notify").Str("transport", "log").Logger()}
}

func (l *Log) SendReminder(_ context.Context, r models.Reservation) error {
	l.logger.Info().Str("reservation_id", r.ID).Int64("customer_id", r.CustomerID).Msg("reminder")
	return nil
}

func (l *Log) SendDigest(_ context.Context, shop models.Shop, day string, rows []models.ShopReservation) error {
	l.logger.Info().Int64("shop_id", shop.ID).Str("day", day).Int("rows", len(rows)).Msg("digest")
	return nil
}

func (l *Log) SendDocument(_ context.Context, filename string, _ io.Reader, _ string) error {
	l.logger.Info().Str("filename", filename).Msg("document")
	return nil
}

func (l *Log) OnReservationCreated(e events.Event) error {
	l.logger.Info().Str("event", e.Type).Str("event_id", e.ID).Msg("owner notification")
	return nil
}

func (l *Log) OnStatusChanged(e events.Event) error {
	l.logger.Info().Str("event", e.Type).Str("event_id", e.ID).Msg("customer notification")
	return nil
}
