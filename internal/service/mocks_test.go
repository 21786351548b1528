package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

type mockReservations struct {
	mock.Mock
}

func (m *mockReservations) CreateReservation(ctx context.Context, r *models.Reservation) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockReservations) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *mockReservations) ListReservationsByCustomer(ctx context.Context, customerID int64) ([]models.Reservation, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *mockReservations) UpdateReservationStatus(ctx context.Context, id string, from, to models.Status) error {
	return m.Called(ctx, id, from, to).Error(0)
}

type mockShops struct {
	mock.Mock
}

func (m *mockShops) GetShop(ctx context.Context, id int64) (*models.Shop, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shop), args.Error(1)
}

func (m *mockShops) ListShopsByOwner(ctx context.Context, ownerID int64) ([]models.Shop, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Shop), args.Error(1)
}

type mockListing struct {
	mock.Mock
}

func (m *mockListing) ListActiveShops(ctx context.Context) ([]models.Shop, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Shop), args.Error(1)
}

func (m *mockListing) ListReservationsByShop(ctx context.Context, shopID int64) ([]models.ShopReservation, error) {
	args := m.Called(ctx, shopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ShopReservation), args.Error(1)
}

func (m *mockListing) InvalidateShopReservations(ctx context.Context, shopID int64) {
	m.Called(ctx, shopID)
}

type mockAccess struct {
	mock.Mock
}

func (m *mockAccess) RequireShopManager(ctx context.Context, identity *models.Identity, shopID int64) error {
	return m.Called(ctx, identity, shopID).Error(0)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) CreateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUsers) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUsers) SetTelegramChatID(ctx context.Context, userID, chatID int64) error {
	return m.Called(ctx, userID, chatID).Error(0)
}

type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) Issue(u *models.User) (string, time.Time, error) {
	args := m.Called(u)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}
