package reminders

import (
	"context"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

// ReservationStore provides reservations that may need a reminder.
type ReservationStore interface {
	// GetReservationsForReminders returns confirmed reservations visiting
	// between fromDate and toDate (inclusive, YYYY-MM-DD) whose reminder
	// has not been sent.
	GetReservationsForReminders(ctx context.Context, fromDate, toDate string) ([]models.Reservation, error)

	// MarkReminderSent flags the reservation so it is not reminded twice.
	MarkReminderSent(ctx context.Context, id string) error
}

// ShopStore provides the data behind the owners' daily digest.
type ShopStore interface {
	ListActiveShops(ctx context.Context) ([]models.Shop, error)
	ListReservationsByShop(ctx context.Context, shopID int64) ([]models.ShopReservation, error)
}

// Notifier delivers messages to customers and owners.
type Notifier interface {
	// SendReminder tells the customer about an upcoming visit.
	SendReminder(ctx context.Context, r models.Reservation) error

	// SendDigest sends a shop owner the day's reservations.
	SendDigest(ctx context.Context, shop models.Shop, day string, rows []models.ShopReservation) error
}

// Logger interface for logging.
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
}
