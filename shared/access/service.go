// Package access decides who may manage a shop's reservations.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

// ShopRepository resolves shops for ownership checks.
type ShopRepository interface {
	GetShop(ctx context.Context, id int64) (*models.Shop, error)
}

// Service implements shop-level access control.
type Service struct {
	shops  ShopRepository
	logger zerolog.Logger
}

// NewService creates a new access control service.
func NewService(shops ShopRepository, logger zerolog.Logger) *Service {
	return &Service{
		shops:  shops,
		logger: logger.With().Str("component", "access").Logger(),
	}
}

// CanManageShop reports whether the caller owns the shop or is an admin.
func (s *Service) CanManageShop(ctx context.Context, identity *models.Identity, shopID int64) (bool, error) {
	if identity == nil {
		return false, nil
	}
	if identity.IsAdmin() {
		return true, nil
	}
	if !identity.IsOwner() {
		return false, nil
	}

	shop, err := s.shops.GetShop(ctx, shopID)
	if err != nil {
		return false, err
	}
	return shop.IsOwnedBy(identity.UserID), nil
}

// RequireShopManager fails with AccessDeniedError unless the caller may
// manage the shop. Lookup errors are returned unchanged.
func (s *Service) RequireShopManager(ctx context.Context, identity *models.Identity, shopID int64) error {
	if identity == nil {
		return &models.UnauthenticatedError{}
	}

	ok, err := s.CanManageShop(ctx, identity, shopID)
	if err != nil {
		return fmt.Errorf("checking shop owner: %w", err)
	}
	if !ok {
		s.logger.Warn().
			Int64("user_id", identity.UserID).
			Int64("shop_id", shopID).
			Msg("shop access denied")
		return &AccessDeniedError{Reason: "only the shop owner can manage its reservations"}
	}
	return nil
}

// AccessDeniedError is returned when user access is denied.
type AccessDeniedError struct {
	Reason string
}

func (e *AccessDeniedError) Error() string {
	if e.Reason == "" {
		return "access denied"
	}
	return e.Reason
}

// IsAccessDenied checks if error is access denied.
func IsAccessDenied(err error) bool {
	var target *AccessDeniedError
	return errors.As(err, &target)
}
