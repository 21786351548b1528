package reservation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Factory builds new reservations. The clock and id source are injectable
// so creation stays deterministic in tests.
type Factory struct {
	now   func() time.Time
	newID func() string
}

// NewFactory returns a factory using the wall clock and random UUIDs.
func NewFactory() *Factory {
	return &Factory{now: time.Now, newID: uuid.NewString}
}

// NewFactoryWith returns a factory with the given clock and id source.
func NewFactoryWith(now func() time.Time, newID func() string) *Factory {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Factory{now: now, newID: newID}
}

// Create validates input and returns a pending reservation. It has no side
// effects; persistence belongs to the caller.
func (f *Factory) Create(input models.NewReservationInput) (*models.Reservation, error) {
	in := normalize(input)
	if err := Validate(in); err != nil {
		return nil, err
	}

	now := f.now()
	return &models.Reservation{
		ID:         f.newID(),
		ShopID:     in.ShopID,
		CustomerID: in.CustomerID,
		VisitDate:  in.VisitDate,
		VisitTime:  in.VisitTime,
		PartySize:  in.PartySize,
		GuestName:  in.GuestName,
		GuestPhone: in.GuestPhone,
		Requests:   in.Requests,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CreateReservation builds a pending reservation with the default factory.
func CreateReservation(input models.NewReservationInput) (*models.Reservation, error) {
	return NewFactory().Create(input)
}

// Validate checks the creation contract and reports the first failing field.
func Validate(in models.NewReservationInput) error {
	switch {
	case in.ShopID <= 0:
		return &models.ValidationError{Field: "shopId"}
	case in.CustomerID <= 0:
		return &models.ValidationError{Field: "customerId"}
	case strings.TrimSpace(in.VisitDate) == "":
		return &models.ValidationError{Field: "visitDate"}
	case !IsValidDate(in.VisitDate):
		return &models.ValidationError{Field: "visitDate", Message: "visitDate must be YYYY-MM-DD"}
	case strings.TrimSpace(in.VisitTime) == "":
		return &models.ValidationError{Field: "visitTime"}
	case !IsValidTime(in.VisitTime):
		return &models.ValidationError{Field: "visitTime", Message: "visitTime must be HH:MM"}
	case in.PartySize <= 0:
		return &models.ValidationError{Field: "partySize", Message: "partySize must be greater than zero"}
	case strings.TrimSpace(in.GuestName) == "":
		return &models.ValidationError{Field: "guestName"}
	case strings.TrimSpace(in.GuestPhone) == "":
		return &models.ValidationError{Field: "guestPhone"}
	}
	return nil
}

// IsValidDate reports whether s is a zero-padded YYYY-MM-DD calendar date.
func IsValidDate(s string) bool {
	if len(s) != len(dateLayout) {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// IsValidTime reports whether s is a zero-padded HH:MM time of day.
func IsValidTime(s string) bool {
	if len(s) != len(timeLayout) {
		return false
	}
	_, err := time.Parse(timeLayout, s)
	return err == nil
}

func normalize(in models.NewReservationInput) models.NewReservationInput {
	in.VisitDate = strings.TrimSpace(in.VisitDate)
	in.VisitTime = strings.TrimSpace(in.VisitTime)
	in.GuestName = strings.TrimSpace(in.GuestName)
	in.GuestPhone = strings.TrimSpace(in.GuestPhone)
	in.Requests = strings.TrimSpace(in.Requests)
	return in
}
