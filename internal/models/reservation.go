package models

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every valid status in lifecycle order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus converts user input into a Status. Input is trimmed and
// lower-cased, so "PENDING" and " pending " both map to StatusPending.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", &ValidationError{Field: "status", Message: "unknown status " + strings.TrimSpace(raw)}
	}
	return status, nil
}

// Reservation is a customer's request to visit a shop.
type Reservation struct {
	ID           string    `json:"id"`
	ShopID       int64     `json:"shop_id"`
	CustomerID   int64     `json:"customer_id"`
	VisitDate    string    `json:"visit_date"` // YYYY-MM-DD
	VisitTime    string    `json:"visit_time"` // HH:MM
	PartySize    int       `json:"party_size"`
	GuestName    string    `json:"guest_name"`
	GuestPhone   string    `json:"guest_phone"`
	Requests     string    `json:"requests,omitempty"`
	Status       Status    `json:"status"`
	ReminderSent bool      `json:"reminder_sent"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// VisitStart returns the visit moment in loc, or false when the date or
// time is malformed.
func (r *Reservation) VisitStart(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", r.VisitDate+" "+r.VisitTime, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ShopReservation is a reservation joined with the customer's display data,
// as shown on the owner's management screen.
type ShopReservation struct {
	Reservation
	CustomerNickname string `json:"customer_nickname"`
	CustomerEmail    string `json:"customer_email"`
}

// NewReservationInput carries the fields a customer submits.
type NewReservationInput struct {
	ShopID     int64  `json:"shop_id"`
	CustomerID int64  `json:"customer_id"`
	VisitDate  string `json:"visit_date"`
	VisitTime  string `json:"visit_time"`
	PartySize  int    `json:"party_size"`
	GuestName  string `json:"guest_name"`
	GuestPhone string `json:"guest_phone"`
	Requests   string `json:"requests,omitempty"`
}
