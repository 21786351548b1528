package models

import "time"

// Role is the kind of account a user holds.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleOwner || r == RoleAdmin
}

// User is an account. PasswordHash never leaves the service layer.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Nickname       string    `json:"nickname"`
	Role           Role      `json:"role"`
	DateOfBirth    string    `json:"date_of_birth,omitempty"`
	PhoneNumber    string    `json:"phone_number,omitempty"`
	Sido           string    `json:"sido,omitempty"`
	Sigungu        string    `json:"sigungu,omitempty"`
	Dong           string    `json:"dong,omitempty"`
	Gender         string    `json:"gender,omitempty"`
	TelegramChatID int64     `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Identity is the authenticated caller of an operation.
type Identity struct {
	UserID int64
	Email  string
	Role   Role
}

// IsAdmin reports whether the caller is an administrator.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// IsOwner reports whether the caller holds the owner role.
func (i *Identity) IsOwner() bool {
	return i != nil && i.Role == RoleOwner
}
