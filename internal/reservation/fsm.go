// Package reservation holds the reservation lifecycle: creation, the status
// transition table, temporal filters and the customer submission flow.
package reservation

import (
	"time"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

// Transition is a single edge of the status table.
type Transition struct {
	From models.Status
	To   models.Status
}

// FSM validates and applies owner-initiated status changes.
type FSM struct {
	transitions map[models.Status][]models.Status
	now         func() time.Time
}

// NewFSM creates an FSM with the reservation transition table. Forward
// actions come first, followed by the two reversals.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[models.Status][]models.Status{
			models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
			models.StatusConfirmed: {models.StatusCompleted, models.StatusCancelled},
			models.StatusCompleted: {models.StatusConfirmed},
			models.StatusCancelled: {models.StatusPending},
		},
		now: time.Now,
	}
}

// CanTransition checks if the edge from -> to exists. Self transitions are
// never listed.
func (f *FSM) CanTransition(from, to models.Status) bool {
	allowed, ok := f.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Allowed returns the statuses reachable from from in one step.
func (f *FSM) Allowed(from models.Status) []models.Status {
	allowed := f.transitions[from]
	out := make([]models.Status, len(allowed))
	copy(out, allowed)
	return out
}

// Transitions returns every edge of the table.
func (f *FSM) Transitions() []Transition {
	var out []Transition
	for _, from := range models.Statuses {
		for _, to := range f.transitions[from] {
			out = append(out, Transition{From: from, To: to})
		}
	}
	return out
}

// Apply moves r to status to. On an illegal edge r is left untouched and an
// InvalidTransitionError is returned.
func (f *FSM) Apply(r *models.Reservation, to models.Status) error {
	if !f.CanTransition(r.Status, to) {
		return &models.InvalidTransitionError{From: r.Status, To: to}
	}
	r.Status = to
	r.UpdatedAt = f.now()
	return nil
}
