package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Eo-0118/Black-Kingdom/internal/auth"
	"github.com/Eo-0118/Black-Kingdom/internal/models"
	"github.com/Eo-0118/Black-Kingdom/internal/reservation"
	"github.com/Eo-0118/Black-Kingdom/internal/service"
	"github.com/Eo-0118/Black-Kingdom/shared/access"
)

type mockAuth struct {
	mock.Mock
}

func (m *mockAuth) Register(ctx context.Context, req service.SignupRequest) (*service.AuthResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func (m *mockAuth) Authenticate(ctx context.Context, req service.LoginRequest) (*service.AuthResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func (m *mockAuth) Me(ctx context.Context, identity *models.Identity) (*models.User, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuth) LinkTelegram(ctx context.Context, identity *models.Identity, chatID int64) (*models.User, error) {
	args := m.Called(ctx, identity, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type mockReservations struct {
	mock.Mock
}

func (m *mockReservations) Submit(ctx context.Context, identity *models.Identity, form reservation.Form) (*models.Reservation, error) {
	args := m.Called(ctx, identity, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *mockReservations) ListByShop(ctx context.Context, identity *models.Identity, shopID int64, bucket reservation.Bucket) ([]models.ShopReservation, error) {
	args := m.Called(ctx, identity, shopID, bucket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ShopReservation), args.Error(1)
}

func (m *mockReservations) ListMine(ctx context.Context, identity *models.Identity, bucket reservation.Bucket) ([]models.Reservation, error) {
	args := m.Called(ctx, identity, bucket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *mockReservations) UpdateStatus(ctx context.Context, identity *models.Identity, id, rawStatus string) (*models.Reservation, error) {
	args := m.Called(ctx, identity, id, rawStatus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *mockReservations) ListShops(ctx context.Context) ([]models.Shop, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Shop), args.Error(1)
}

func (m *mockReservations) MyShops(ctx context.Context, identity *models.Identity) ([]models.Shop, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Shop), args.Error(1)
}

func (m *mockReservations) Slots(ctx context.Context, shopID int64, date string) (*service.SlotsView, error) {
	args := m.Called(ctx, shopID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SlotsView), args.Error(1)
}

type testServer struct {
	router       *gin.Engine
	auth         *mockAuth
	reservations *mockReservations
	tokens       *auth.Tokens
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.New(io.Discard)
	ts := &testServer{
		auth:         new(mockAuth),
		reservations: new(mockReservations),
		tokens:       auth.NewTokens("0123456789abcdef-test-secret", time.Hour),
	}
	ts.router = NewRouter(RouterConfig{
		Mode:            gin.TestMode,
		LoginRatePerMin: 60,
		LoginBurst:      2,
		Auth:            ts.auth,
		Reservations:    ts.reservations,
		Tokens:          ts.tokens,
		Logger:          &logger,
	})
	return ts
}

func (ts *testServer) tokenFor(t *testing.T, id int64, role models.Role) string {
	t.Helper()
	token, _, err := ts.tokens.Issue(&models.User{ID: id, Email: "u@example.com", Role: role})
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateReservation(t *testing.T) {
	body := CreateReservationRequest{
		ShopID: 1, VisitDate: "2025-12-05", VisitTime: "19:00",
		PartySize: 2, GuestName: "Kim", GuestPhone: "010-1234-5678",
	}

	t.Run("created", func(t *testing.T) {
		ts := newTestServer(t)
		ts.reservations.On("Submit", mock.Anything, mock.MatchedBy(func(id *models.Identity) bool {
			return id.UserID == 7
		}), mock.MatchedBy(func(f reservation.Form) bool {
			return f.GuestName == "Kim" && f.PartySize == 2
		})).Return(&models.Reservation{ID: "r1", Status: models.StatusPending}, nil).Once()

		w := ts.do(http.MethodPost, "/api/reservations", ts.tokenFor(t, 7, models.RoleCustomer), body)
		require.Equal(t, http.StatusCreated, w.Code)

		var got models.Reservation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, models.StatusPending, got.Status)
		assert.NotEmpty(t, w.Header().Get(headerRequestID))
	})

	t.Run("without token", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(http.MethodPost, "/api/reservations", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		ts.reservations.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("validation error names the field", func(t *testing.T) {
		ts := newTestServer(t)
		ts.reservations.On("Submit", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &models.ValidationError{Field: "guestPhone", Message: "enter a contact phone number"}).Once()

		w := ts.do(http.MethodPost, "/api/reservations", ts.tokenFor(t, 7, models.RoleCustomer), body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "guestPhone", decodeError(t, w).Field)
	})

	t.Run("store failure hides details", func(t *testing.T) {
		ts := newTestServer(t)
		ts.reservations.On("Submit", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &models.SubmissionFailedError{Err: errors.New("database is locked")}).Once()

		w := ts.do(http.MethodPost, "/api/reservations", ts.tokenFor(t, 7, models.RoleCustomer), body)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "locked")
	})

	t.Run("malformed body", func(t *testing.T) {
		ts := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, "/api/reservations", bytes.NewBufferString("{"))
		req.Header.Set("Authorization", "Bearer "+ts.tokenFor(t, 7, models.RoleCustomer))
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateStatus_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid transition", &models.InvalidTransitionError{From: models.StatusCompleted, To: models.StatusCancelled}, http.StatusUnprocessableEntity},
		{"forbidden", &access.AccessDeniedError{}, http.StatusForbidden},
		{"not found", &models.NotFoundError{Resource: "reservation", ID: "r1"}, http.StatusNotFound},
		{"conflict", &models.ConflictError{Message: "changed"}, http.StatusConflict},
		{"unknown status", &models.ValidationError{Field: "status"}, http.StatusBadRequest},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.reservations.On("UpdateStatus", mock.Anything, mock.Anything, "r1", "cancelled").
				Return(nil, tt.err).Once()

			w := ts.do(http.MethodPatch, "/api/reservations/r1/status", ts.tokenFor(t, 3, models.RoleOwner),
				UpdateStatusRequest{Status: "cancelled"})
			assert.Equal(t, tt.code, w.Code)
		})
	}

	t.Run("success", func(t *testing.T) {
		ts := newTestServer(t)
		ts.reservations.On("UpdateStatus", mock.Anything, mock.Anything, "r1", "confirmed").
			Return(&models.Reservation{ID: "r1", Status: models.StatusConfirmed}, nil).Once()

		w := ts.do(http.MethodPatch, "/api/reservations/r1/status", ts.tokenFor(t, 3, models.RoleOwner),
			UpdateStatusRequest{Status: "confirmed"})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestListShopReservations(t *testing.T) {
	ts := newTestServer(t)
	token := ts.tokenFor(t, 3, models.RoleOwner)
	rows := []models.ShopReservation{{Reservation: models.Reservation{ID: "r1"}, CustomerNickname: "kim"}}

	ts.reservations.On("ListByShop", mock.Anything, mock.Anything, int64(1), reservation.BucketToday).Return(rows, nil).Once()
	w := ts.do(http.MethodGet, "/api/reservations/shop/1?bucket=today", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"customer_nickname":"kim"`)

	w = ts.do(http.MethodGet, "/api/reservations/shop/1?bucket=someday", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/api/reservations/shop/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "shopId", decodeError(t, w).Field)
}

func TestAuthRoutes(t *testing.T) {
	t.Run("signup conflict", func(t *testing.T) {
		ts := newTestServer(t)
		ts.auth.On("Register", mock.Anything, mock.Anything).
			Return(nil, &models.ConflictError{Message: "email already registered"}).Once()

		w := ts.do(http.MethodPost, "/api/auth/signup", "", service.SignupRequest{Email: "kim@example.com"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("login never returns the hash", func(t *testing.T) {
		ts := newTestServer(t)
		ts.auth.On("Authenticate", mock.Anything, service.LoginRequest{Email: "kim@example.com", Password: "pw"}).
			Return(&service.AuthResult{User: &models.User{ID: 7, PasswordHash: "$2a$secret"}, Token: "t"}, nil).Once()

		w := ts.do(http.MethodPost, "/api/auth/login", "", service.LoginRequest{Email: "kim@example.com", Password: "pw"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "secret")
	})

	t.Run("login rate limited", func(t *testing.T) {
		ts := newTestServer(t)
		ts.auth.On("Authenticate", mock.Anything, mock.Anything).
			Return(nil, &models.UnauthenticatedError{Reason: "invalid email or password"})

		creds := service.LoginRequest{Email: "kim@example.com", Password: "wrong"}
		assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/api/auth/login", "", creds).Code)
		assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/api/auth/login", "", creds).Code)
		assert.Equal(t, http.StatusTooManyRequests, ts.do(http.MethodPost, "/api/auth/login", "", creds).Code)
	})

	t.Run("link telegram", func(t *testing.T) {
		ts := newTestServer(t)
		ts.auth.On("LinkTelegram", mock.Anything, mock.MatchedBy(func(id *models.Identity) bool { return id.UserID == 7 }), int64(4242)).
			Return(&models.User{ID: 7, TelegramChatID: 4242}, nil).Once()

		w := ts.do(http.MethodPut, "/api/auth/me/telegram", ts.tokenFor(t, 7, models.RoleCustomer), LinkTelegramRequest{ChatID: 4242})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"telegram_chat_id":4242`)
		ts.auth.AssertExpectations(t)
	})

	t.Run("me with bad token", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(http.MethodGet, "/api/auth/me", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPublicShopRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.reservations.On("ListShops", mock.Anything).Return([]models.Shop{{ID: 1, Name: "Gangnam"}}, nil).Once()
	ts.reservations.On("Slots", mock.Anything, int64(1), "2025-12-05").
		Return(&service.SlotsView{ShopID: 1, Date: "2025-12-05"}, nil).Once()

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/shops", "", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/shops/1/slots?date=2025-12-05", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/nowhere", "", nil).Code)
}

func TestCORSPreflight_AllowsPut(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/me/telegram", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
}
