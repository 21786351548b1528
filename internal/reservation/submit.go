package reservation

import (
	"context"
	"strings"
	"time"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

// Store persists newly submitted reservations.
type Store interface {
	CreateReservation(ctx context.Context, r *models.Reservation) error
}

// Form is what a customer fills in on the reservation screen.
type Form struct {
	ShopID     int64
	VisitDate  string
	VisitTime  string
	PartySize  int
	GuestName  string
	GuestPhone string
	Requests   string
}

// SubmitterConfig controls date policy for submissions.
type SubmitterConfig struct {
	// RejectPastDates refuses visit dates earlier than today.
	RejectPastDates bool
	// Location is the timezone "today" is computed in.
	Location *time.Location
	// Now defaults to the factory's clock.
	Now func() time.Time
}

// Guard inspects a validated reservation before it is stored, for checks
// that need lookups (the shop exists, the slot is offered). Its errors are
// returned to the caller unchanged.
type Guard func(ctx context.Context, r *models.Reservation) error

// Submitter validates a customer's form and hands the result to the store.
type Submitter struct {
	store   Store
	factory *Factory
	config  SubmitterConfig
	guards  []Guard
	now     func() time.Time
}

// NewSubmitter creates a submitter.
func NewSubmitter(store Store, factory *Factory, config SubmitterConfig) *Submitter {
	if factory == nil {
		factory = NewFactory()
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	now := config.Now
	if now == nil {
		now = factory.now
	}
	return &Submitter{
		store:   store,
		factory: factory,
		config:  config,
		now:     now,
	}
}

// WithGuard appends a pre-persistence check.
func (s *Submitter) WithGuard(g Guard) *Submitter {
	s.guards = append(s.guards, g)
	return s
}

// Submit runs the checks in screen order and stops at the first failure:
// identity, time slot, guest name, guest phone, party size. Nothing reaches
// the store until every check passes. Store failures come back as
// SubmissionFailedError.
func (s *Submitter) Submit(ctx context.Context, identity *models.Identity, form Form) (*models.Reservation, error) {
	if err := CheckForm(identity, form); err != nil {
		return nil, err
	}

	r, err := s.factory.Create(models.NewReservationInput{
		ShopID:     form.ShopID,
		CustomerID: identity.UserID,
		VisitDate:  form.VisitDate,
		VisitTime:  form.VisitTime,
		PartySize:  form.PartySize,
		GuestName:  form.GuestName,
		GuestPhone: form.GuestPhone,
		Requests:   form.Requests,
	})
	if err != nil {
		return nil, err
	}

	if s.config.RejectPastDates {
		today := Today(s.now(), s.config.Location)
		if r.VisitDate < today {
			return nil, &models.ValidationError{Field: "visitDate", Message: "visitDate is in the past"}
		}
	}

	for _, guard := range s.guards {
		if err := guard(ctx, r); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateReservation(ctx, r); err != nil {
		return nil, &models.SubmissionFailedError{Err: err}
	}
	return r, nil
}

// CheckForm applies the screen-level checks without touching the store.
func CheckForm(identity *models.Identity, form Form) error {
	if identity == nil || identity.UserID <= 0 {
		return &models.UnauthenticatedError{Reason: "sign in to make a reservation"}
	}
	if strings.TrimSpace(form.VisitTime) == "" {
		return &models.ValidationError{Field: "visitTime", Message: "select a time slot"}
	}
	if strings.TrimSpace(form.GuestName) == "" {
		return &models.ValidationError{Field: "guestName", Message: "enter the guest name"}
	}
	if strings.TrimSpace(form.GuestPhone) == "" {
		return &models.ValidationError{Field: "guestPhone", Message: "enter a contact phone number"}
	}
	if form.PartySize <= 0 {
		return &models.ValidationError{Field: "partySize", Message: "select the number of people"}
	}
	return nil
}
