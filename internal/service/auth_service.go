package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Eo-0118/Black-Kingdom/internal/database"
	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

// UserRepository stores accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	SetTelegramChatID(ctx context.Context, userID, chatID int64) error
}

// TokenIssuer signs session tokens. *auth.Tokens implements it.
type TokenIssuer interface {
	Issue(u *models.User) (string, time.Time, error)
}

// SignupRequest is the registration form.
type SignupRequest struct {
	Email          string `json:"email" validate:"required,email,max=254"`
	Password       string `json:"password" validate:"required,min=8,max=72"`
	Nickname       string `json:"nickname" validate:"required,max=40"`
	Role           string `json:"role" validate:"omitempty,oneof=customer owner"`
	DateOfBirth    string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	PhoneNumber    string `json:"phone_number" validate:"omitempty,max=20"`
	Sido           string `json:"sido" validate:"max=40"`
	Sigungu        string `json:"sigungu" validate:"max=40"`
	Dong           string `json:"dong" validate:"max=40"`
	Gender         string `json:"gender" validate:"omitempty,oneof=male female other"`
	TelegramChatID int64  `json:"telegram_chat_id"`
}

// LoginRequest carries credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by Register and Authenticate. User never carries a
// password hash.
type AuthResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// AuthService handles signup and login.
type AuthService struct {
	users    UserRepository
	tokens   TokenIssuer
	validate *validator.Validate
	cost     int
	metrics  Recorder
	logger   *zerolog.Logger

	// compared against when the email is unknown so both paths cost a bcrypt round
	dummyHash []byte
}

// NewAuthService creates the service. cost is the bcrypt work factor.
func NewAuthService(users UserRepository, tokens TokenIssuer, cost int, logger *zerolog.Logger) *AuthService {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	l := logger.With().Str("component", "auth").Logger()
	dummy, _ := bcrypt.GenerateFromPassword([]byte("black-kingdom-placeholder"), cost)
	return &AuthService{
		users:     users,
		tokens:    tokens,
		validate:  newValidator(),
		cost:      cost,
		metrics:   nopRecorder{},
		logger:    &l,
		dummyHash: dummy,
	}
}

// WithMetrics sets the counter sink.
func (s *AuthService) WithMetrics(r Recorder) *AuthService {
	if r != nil {
		s.metrics = r
	}
	return s
}

const maxPasswordBytes = 72

func passwordTooLong() error {
	return &models.ValidationError{Field: "password", Message: "password must be at most 72 bytes"}
}

// Register creates an account and signs the new user in. A second account
// with the same email fails with ConflictError.
func (s *AuthService) Register(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Nickname = strings.TrimSpace(req.Nickname)
	if err := s.check(req); err != nil {
		s.metrics.IncAuth("register", "invalid")
		return nil, err
	}
	// validator counts runes; bcrypt's limit is in bytes.
	if len(req.Password) > maxPasswordBytes {
		s.metrics.IncAuth("register", "invalid")
		return nil, passwordTooLong()
	}

	role := models.Role(req.Role)
	if role == "" {
		role = models.RoleCustomer
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, passwordTooLong()
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:          req.Email,
		PasswordHash:   string(hash),
		Nickname:       req.Nickname,
		Role:           role,
		DateOfBirth:    req.DateOfBirth,
		PhoneNumber:    req.PhoneNumber,
		Sido:           req.Sido,
		Sigungu:        req.Sigungu,
		Dong:           req.Dong,
		Gender:         req.Gender,
		TelegramChatID: req.TelegramChatID,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			s.metrics.IncAuth("register", "conflict")
			return nil, &models.ConflictError{Message: "email already registered"}
		}
		s.metrics.IncAuth("register", "error")
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	s.metrics.IncAuth("register", "ok")
	return s.session(user)
}

// Authenticate verifies credentials. Unknown emails and wrong passwords fail
// the same way.
func (s *AuthService) Authenticate(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.check(req); err != nil {
		s.metrics.IncAuth("login", "invalid")
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	switch {
	case errors.Is(err, database.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		s.metrics.IncAuth("login", "denied")
		return nil, &models.UnauthenticatedError{Reason: "invalid email or password"}
	case err != nil:
		s.metrics.IncAuth("login", "error")
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Debug().Int64("user_id", user.ID).Msg("password mismatch")
		s.metrics.IncAuth("login", "denied")
		return nil, &models.UnauthenticatedError{Reason: "invalid email or password"}
	}

	s.metrics.IncAuth("login", "ok")
	return s.session(user)
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, identity *models.Identity) (*models.User, error) {
	if identity == nil {
		return nil, &models.UnauthenticatedError{}
	}
	user, err := s.users.GetUserByID(ctx, identity.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &models.UnauthenticatedError{Reason: "account no longer exists"}
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}

// LinkTelegram stores the chat that receives the caller's reminders.
// A zero chat id unlinks it.
func (s *AuthService) LinkTelegram(ctx context.Context, identity *models.Identity, chatID int64) (*models.User, error) {
	if identity == nil {
		return nil, &models.UnauthenticatedError{}
	}
	if chatID < 0 {
		return nil, &models.ValidationError{Field: "telegram_chat_id", Message: "must be a private chat id"}
	}
	err := s.users.SetTelegramChatID(ctx, identity.UserID, chatID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &models.UnauthenticatedError{Reason: "account no longer exists"}
	}
	if err != nil {
		return nil, fmt.Errorf("link telegram: %w", err)
	}
	s.logger.Info().Int64("user_id", identity.UserID).Bool("linked", chatID != 0).Msg("telegram chat updated")
	return s.Me(ctx, identity)
}

func (s *AuthService) session(user *models.User) (*AuthResult, error) {
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	user.PasswordHash = ""
	return &AuthResult{User: user, Token: token, ExpiresAt: expires}, nil
}

// check runs struct validation and reports the first failing field.
func (s *AuthService) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		return &models.ValidationError{Field: f.Field(), Message: fieldMessage(f)}
	}
	return &models.ValidationError{Field: "body", Message: err.Error()}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldMessage(f validator.FieldError) string {
	switch f.Tag() {
	case "required":
		return f.Field() + " is required"
	case "email":
		return f.Field() + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", f.Field(), f.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", f.Field(), f.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f.Field(), f.Param())
	case "datetime":
		return f.Field() + " must be formatted as " + f.Param()
	}
	return f.Field() + " is invalid"
}
