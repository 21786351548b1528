package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Eo-0118/Black-Kingdom/internal/database"
	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

func newAuthService(users *mockUsers, tokens *mockTokens) *AuthService {
	logger := zerolog.New(io.Discard)
	return NewAuthService(users, tokens, bcrypt.MinCost, &logger)
}

func validSignup() SignupRequest {
	return SignupRequest{
		Email:    " Kim@Example.com ",
		Password: "correct horse",
		Nickname: "kim",
	}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	expires := time.Date(2025, 12, 6, 0, 0, 0, 0, time.UTC)

	t.Run("creates customer", func(t *testing.T) {
		users, tokens := new(mockUsers), new(mockTokens)
		svc := newAuthService(users, tokens)

		users.On("CreateUser", ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.Email == "kim@example.com" && u.Role == models.RoleCustomer &&
				bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse")) == nil
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.User).ID = 7
		}).Return(nil).Once()
		tokens.On("Issue", mock.Anything).Return("signed", expires, nil).Once()

		res, err := svc.Register(ctx, validSignup())
		require.NoError(t, err)
		assert.Equal(t, "signed", res.Token)
		assert.Equal(t, int64(7), res.User.ID)
		assert.Empty(t, res.User.PasswordHash)
		users.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		users, tokens := new(mockUsers), new(mockTokens)
		svc := newAuthService(users, tokens)
		users.On("CreateUser", ctx, mock.Anything).Return(database.ErrDuplicateEmail).Once()

		_, err := svc.Register(ctx, validSignup())
		assert.True(t, models.IsConflict(err))
		tokens.AssertNotCalled(t, "Issue", mock.Anything)
	})

	t.Run("invalid input names the field", func(t *testing.T) {
		svc := newAuthService(new(mockUsers), new(mockTokens))

		tests := []struct {
			field string
			edit  func(*SignupRequest)
		}{
			{"email", func(r *SignupRequest) { r.Email = "not-an-email" }},
			{"password", func(r *SignupRequest) { r.Password = "short" }},
			{"password", func(r *SignupRequest) { r.Password = strings.Repeat("비", 30) }},
			{"nickname", func(r *SignupRequest) { r.Nickname = "  " }},
			{"role", func(r *SignupRequest) { r.Role = "admin" }},
			{"date_of_birth", func(r *SignupRequest) { r.DateOfBirth = "1990/01/01" }},
		}
		for _, tt := range tests {
			t.Run(tt.field, func(t *testing.T) {
				req := validSignup()
				tt.edit(&req)
				_, err := svc.Register(ctx, req)
				var verr *models.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.field, verr.Field)
			})
		}
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := func() *models.User {
		return &models.User{ID: 7, Email: "kim@example.com", PasswordHash: string(hash), Role: models.RoleCustomer}
	}

	t.Run("success hides hash", func(t *testing.T) {
		users, tokens := new(mockUsers), new(mockTokens)
		svc := newAuthService(users, tokens)
		users.On("GetUserByEmail", ctx, "kim@example.com").Return(stored(), nil).Once()
		tokens.On("Issue", mock.Anything).Return("signed", time.Now(), nil).Once()

		res, err := svc.Authenticate(ctx, LoginRequest{Email: "KIM@example.com", Password: "correct horse"})
		require.NoError(t, err)
		assert.Equal(t, "signed", res.Token)
		assert.Empty(t, res.User.PasswordHash)
	})

	t.Run("wrong password", func(t *testing.T) {
		users := new(mockUsers)
		svc := newAuthService(users, new(mockTokens))
		users.On("GetUserByEmail", ctx, "kim@example.com").Return(stored(), nil).Once()

		_, err := svc.Authenticate(ctx, LoginRequest{Email: "kim@example.com", Password: "wrong horse"})
		assert.True(t, models.IsUnauthenticated(err))
	})

	t.Run("unknown email looks the same", func(t *testing.T) {
		users := new(mockUsers)
		svc := newAuthService(users, new(mockTokens))
		users.On("GetUserByEmail", ctx, "ghost@example.com").Return(nil, database.ErrNotFound).Once()

		_, err := svc.Authenticate(ctx, LoginRequest{Email: "ghost@example.com", Password: "whatever"})
		require.True(t, models.IsUnauthenticated(err))
		assert.Equal(t, "invalid email or password", err.Error())
	})

	t.Run("missing password", func(t *testing.T) {
		svc := newAuthService(new(mockUsers), new(mockTokens))
		_, err := svc.Authenticate(ctx, LoginRequest{Email: "kim@example.com"})
		assert.True(t, models.IsValidation(err))
	})
}

func TestAuthService_Me(t *testing.T) {
	ctx := context.Background()
	users := new(mockUsers)
	svc := newAuthService(users, new(mockTokens))

	users.On("GetUserByID", ctx, int64(7)).Return(&models.User{ID: 7, PasswordHash: "x"}, nil).Once()
	u, err := svc.Me(ctx, &models.Identity{UserID: 7})
	require.NoError(t, err)
	assert.Empty(t, u.PasswordHash)

	users.On("GetUserByID", ctx, int64(8)).Return(nil, database.ErrNotFound).Once()
	_, err = svc.Me(ctx, &models.Identity{UserID: 8})
	assert.True(t, models.IsUnauthenticated(err))

	_, err = svc.Me(ctx, nil)
	assert.True(t, models.IsUnauthenticated(err))
}

func TestAuthService_LinkTelegram(t *testing.T) {
	ctx := context.Background()
	users := new(mockUsers)
	svc := newAuthService(users, new(mockTokens))
	caller := &models.Identity{UserID: 7}

	users.On("SetTelegramChatID", ctx, int64(7), int64(4242)).Return(nil).Once()
	users.On("GetUserByID", ctx, int64(7)).Return(&models.User{ID: 7, TelegramChatID: 4242, PasswordHash: "x"}, nil).Once()
	u, err := svc.LinkTelegram(ctx, caller, 4242)
	require.NoError(t, err)
	assert.Equal(t, int64(4242), u.TelegramChatID)
	assert.Empty(t, u.PasswordHash)

	_, err = svc.LinkTelegram(ctx, caller, -100123)
	assert.True(t, models.IsValidation(err))

	users.On("SetTelegramChatID", ctx, int64(8), int64(1)).Return(database.ErrNotFound).Once()
	_, err = svc.LinkTelegram(ctx, &models.Identity{UserID: 8}, 1)
	assert.True(t, models.IsUnauthenticated(err))

	_, err = svc.LinkTelegram(ctx, nil, 1)
	assert.True(t, models.IsUnauthenticated(err))
	users.AssertExpectations(t)
}
