package models

import "time"

// Shop is a reservable venue.
type Shop struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address,omitempty"`
	Description  string    `json:"description,omitempty"`
	OwnerID      int64     `json:"owner_id,omitempty"`
	OwnerEmail   string    `json:"-"`
	OwnerChatID  int64     `json:"-"`
	FirstSeating string    `json:"first_seating"` // HH:MM
	LastSeating  string    `json:"last_seating"`  // HH:MM
	SlotMinutes  int       `json:"slot_minutes"`
	MaxPartySize int       `json:"max_party_size"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsOwnedBy reports whether userID owns the shop.
func (s *Shop) IsOwnedBy(userID int64) bool {
	return s.OwnerID != 0 && s.OwnerID == userID
}
