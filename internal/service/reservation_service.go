package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Eo-0118/Black-Kingdom/internal/database"
	"github.com/Eo-0118/Black-Kingdom/internal/events"
	"github.com/Eo-0118/Black-Kingdom/internal/models"
	"github.com/Eo-0118/Black-Kingdom/internal/reservation"
	"github.com/Eo-0118/Black-Kingdom/internal/slots"
)

// ReservationRepository is the authoritative reservation store.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	ListReservationsByCustomer(ctx context.Context, customerID int64) ([]models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id string, from, to models.Status) error
}

// ShopRepository resolves shops directly from the store.
type ShopRepository interface {
	GetShop(ctx context.Context, id int64) (*models.Shop, error)
	ListShopsByOwner(ctx context.Context, ownerID int64) ([]models.Shop, error)
}

// Listing serves the read-heavy lists, usually through the Redis cache.
type Listing interface {
	ListActiveShops(ctx context.Context) ([]models.Shop, error)
	ListReservationsByShop(ctx context.Context, shopID int64) ([]models.ShopReservation, error)
	InvalidateShopReservations(ctx context.Context, shopID int64)
}

// AccessChecker authorizes shop management.
type AccessChecker interface {
	RequireShopManager(ctx context.Context, identity *models.Identity, shopID int64) error
}

// EventPublisher is the event bus.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// ReservationConfig holds the date policy.
type ReservationConfig struct {
	RejectPastDates bool
	Location        *time.Location
}

// ReservationService runs the reservation lifecycle: submission, listing
// and owner status changes.
type ReservationService struct {
	repo      ReservationRepository
	shops     ShopRepository
	listing   Listing
	access    AccessChecker
	bus       EventPublisher
	fsm       *reservation.FSM
	submitter *reservation.Submitter
	generator *slots.Generator
	loc       *time.Location
	now       func() time.Time
	metrics   Recorder
	logger    *zerolog.Logger
}

// NewReservationService wires the service.
func NewReservationService(
	repo ReservationRepository,
	shops ShopRepository,
	listing Listing,
	access AccessChecker,
	bus EventPublisher,
	cfg ReservationConfig,
	logger *zerolog.Logger,
) *ReservationService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	l := logger.With().Str("component", "reservations").Logger()
	s := &ReservationService{
		repo:      repo,
		shops:     shops,
		listing:   listing,
		access:    access,
		bus:       bus,
		fsm:       reservation.NewFSM(),
		generator: slots.NewGenerator(),
		loc:       cfg.Location,
		now:       time.Now,
		metrics:   nopRecorder{},
		logger:    &l,
	}
	s.submitter = reservation.NewSubmitter(repo, reservation.NewFactory(), reservation.SubmitterConfig{
		RejectPastDates: cfg.RejectPastDates,
		Location:        cfg.Location,
		Now:             func() time.Time { return s.now() },
	}).WithGuard(s.requireOpenShop)
	return s
}

// WithMetrics sets the counter sink.
func (s *ReservationService) WithMetrics(r Recorder) *ReservationService {
	if r != nil {
		s.metrics = r
	}
	return s
}

// Submit creates a pending reservation for the caller.
func (s *ReservationService) Submit(ctx context.Context, identity *models.Identity, form reservation.Form) (*models.Reservation, error) {
	r, err := s.submitter.Submit(ctx, identity, form)
	if err != nil {
		s.metrics.IncSubmissionRejected(rejectReason(err))
		if models.IsSubmissionFailed(err) {
			s.logger.Error().Err(err).Int64("shop_id", form.ShopID).Msg("reservation not stored")
		}
		return nil, err
	}

	s.metrics.IncReservationCreated()
	s.logger.Info().
		Str("reservation_id", r.ID).
		Int64("shop_id", r.ShopID).
		Int64("customer_id", r.CustomerID).
		Str("visit", r.VisitDate+" "+r.VisitTime).
		Msg("reservation created")

	s.listing.InvalidateShopReservations(ctx, r.ShopID)
	s.publish(events.ReservationCreated, events.ReservationCreatedPayload{Reservation: *r})
	return r, nil
}

// ListByShop returns a shop's reservations for its owner or an admin,
// latest visit first. An empty bucket returns every reservation.
func (s *ReservationService) ListByShop(ctx context.Context, identity *models.Identity, shopID int64, bucket reservation.Bucket) ([]models.ShopReservation, error) {
	if identity == nil {
		return nil, &models.UnauthenticatedError{}
	}
	if _, err := s.getShop(ctx, shopID); err != nil {
		return nil, err
	}
	if err := s.access.RequireShopManager(ctx, identity, shopID); err != nil {
		return nil, err
	}

	rows, err := s.listing.ListReservationsByShop(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("list shop reservations: %w", err)
	}
	if bucket == "" {
		return rows, nil
	}
	return reservation.FilterShopRowsByBucket(rows, bucket, s.today()), nil
}

// ListMine returns the caller's own reservations.
func (s *ReservationService) ListMine(ctx context.Context, identity *models.Identity, bucket reservation.Bucket) ([]models.Reservation, error) {
	if identity == nil || identity.UserID <= 0 {
		return nil, &models.UnauthenticatedError{}
	}
	list, err := s.repo.ListReservationsByCustomer(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("list customer reservations: %w", err)
	}
	if bucket == "" {
		return list, nil
	}
	return reservation.FilterByBucket(list, bucket, s.today()), nil
}

// UpdateStatus moves a reservation along the status graph. Only the shop's
// owner or an admin may do so. The write is conditional on the status read
// here, so a concurrent change surfaces as ConflictError.
func (s *ReservationService) UpdateStatus(ctx context.Context, identity *models.Identity, id, rawStatus string) (*models.Reservation, error) {
	r, err := s.updateStatus(ctx, identity, id, rawStatus)
	if err != nil {
		s.metrics.IncTransitionRejected(rejectReason(err))
		return nil, err
	}
	return r, nil
}

func (s *ReservationService) updateStatus(ctx context.Context, identity *models.Identity, id, rawStatus string) (*models.Reservation, error) {
	if identity == nil {
		return nil, &models.UnauthenticatedError{}
	}
	to, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	r, err := s.repo.GetReservation(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &models.NotFoundError{Resource: "reservation", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}

	if err := s.access.RequireShopManager(ctx, identity, r.ShopID); err != nil {
		return nil, err
	}

	from := r.Status
	if err := s.fsm.Apply(r, to); err != nil {
		return nil, err
	}

	switch err := s.repo.UpdateReservationStatus(ctx, r.ID, from, to); {
	case errors.Is(err, database.ErrNotFound):
		return nil, &models.NotFoundError{Resource: "reservation", ID: id}
	case errors.Is(err, database.ErrConcurrentModification):
		return nil, &models.ConflictError{Message: "reservation was changed by someone else, reload and try again"}
	case err != nil:
		return nil, fmt.Errorf("update reservation status: %w", err)
	}

	s.metrics.IncTransition(from, to)
	s.logger.Info().
		Str("reservation_id", r.ID).
		Int64("actor_id", identity.UserID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("reservation status changed")

	s.listing.InvalidateShopReservations(ctx, r.ShopID)
	s.publish(events.ReservationStatusChanged, events.StatusChangedPayload{
		Reservation: *r,
		From:        from,
		To:          to,
		ActorID:     identity.UserID,
	})
	return r, nil
}

// ListShops returns active shops.
func (s *ReservationService) ListShops(ctx context.Context) ([]models.Shop, error) {
	shops, err := s.listing.ListActiveShops(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	return shops, nil
}

// MyShops returns the shops the caller owns.
func (s *ReservationService) MyShops(ctx context.Context, identity *models.Identity) ([]models.Shop, error) {
	if identity == nil {
		return nil, &models.UnauthenticatedError{}
	}
	if identity.IsAdmin() {
		return s.ListShops(ctx)
	}
	if !identity.IsOwner() {
		return []models.Shop{}, nil
	}
	shops, err := s.shops.ListShopsByOwner(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("list owned shops: %w", err)
	}
	return shops, nil
}

// SlotsView is what the reservation screen offers for one day.
type SlotsView struct {
	ShopID           int64            `json:"shop_id"`
	Date             string           `json:"date"`
	Slots            []slots.SlotInfo `json:"slots"`
	PartySizes       []int            `json:"party_sizes"`
	DefaultPartySize int              `json:"default_party_size"`
}

// Slots lists the seatings a shop offers on date (YYYY-MM-DD) and the
// selectable party sizes.
func (s *ReservationService) Slots(ctx context.Context, shopID int64, date string) (*SlotsView, error) {
	shop, err := s.getShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if !shop.IsActive {
		return nil, &models.NotFoundError{Resource: "shop", ID: strconv.FormatInt(shopID, 10)}
	}

	day, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return nil, &models.ValidationError{Field: "date", Message: "date must be formatted as YYYY-MM-DD"}
	}

	list, err := s.generator.GenerateSlots(day, slots.Schedule{
		FirstSeating: shop.FirstSeating,
		LastSeating:  shop.LastSeating,
		SlotMinutes:  shop.SlotMinutes,
		MaxPartySize: shop.MaxPartySize,
	})
	if err != nil {
		return nil, fmt.Errorf("generate slots for shop %d: %w", shopID, err)
	}
	return &SlotsView{
		ShopID:           shopID,
		Date:             date,
		Slots:            slots.ToSlotInfo(list),
		PartySizes:       slots.PartySizeOptions(shop.MaxPartySize),
		DefaultPartySize: slots.DefaultPartySize,
	}, nil
}

// requireOpenShop rejects submissions for unknown or inactive shops.
func (s *ReservationService) requireOpenShop(ctx context.Context, r *models.Reservation) error {
	shop, err := s.getShop(ctx, r.ShopID)
	if err != nil {
		return err
	}
	if !shop.IsActive {
		return &models.NotFoundError{Resource: "shop", ID: strconv.FormatInt(r.ShopID, 10)}
	}
	return nil
}

func (s *ReservationService) getShop(ctx context.Context, shopID int64) (*models.Shop, error) {
	shop, err := s.shops.GetShop(ctx, shopID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &models.NotFoundError{Resource: "shop", ID: strconv.FormatInt(shopID, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	return shop, nil
}

func (s *ReservationService) today() string {
	return reservation.Today(s.now(), s.loc)
}

// publish delivers an event. The change is already stored, so subscriber
// failures are only logged.
func (s *ReservationService) publish(eventType string, payload interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("event subscribers failed")
	}
}
