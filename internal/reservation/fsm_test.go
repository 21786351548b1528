package reservation

import (
	"testing"
	"time"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

func TestFSMTransitions(t *testing.T) {
	fsm := NewFSM()

	tests := []struct {
		name        string
		from        models.Status
		to          models.Status
		shouldAllow bool
	}{
		{"owner accepts", models.StatusPending, models.StatusConfirmed, true},
		{"owner rejects", models.StatusPending, models.StatusCancelled, true},
		{"owner marks visited", models.StatusConfirmed, models.StatusCompleted, true},
		{"owner cancels", models.StatusConfirmed, models.StatusCancelled, true},
		{"owner reverses completion", models.StatusCompleted, models.StatusConfirmed, true},
		{"owner reverses cancellation", models.StatusCancelled, models.StatusPending, true},
		// Invalid transitions
		{"pending straight to completed", models.StatusPending, models.StatusCompleted, false},
		{"completed to cancelled", models.StatusCompleted, models.StatusCancelled, false},
		{"completed to pending", models.StatusCompleted, models.StatusPending, false},
		{"cancelled to confirmed", models.StatusCancelled, models.StatusConfirmed, false},
		{"cancelled to completed", models.StatusCancelled, models.StatusCompleted, false},
		{"confirmed back to pending", models.StatusConfirmed, models.StatusPending, false},
		{"unknown source", models.Status("seated"), models.StatusConfirmed, false},
		{"unknown target", models.StatusPending, models.Status("seated"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed := fsm.CanTransition(tt.from, tt.to)
			if allowed != tt.shouldAllow {
				t.Errorf("transition %s -> %s: expected allowed=%v, got %v",
					tt.from, tt.to, tt.shouldAllow, allowed)
			}
		})
	}
}

func TestSelfTransitionsRejected(t *testing.T) {
	fsm := NewFSM()
	for _, s := range models.Statuses {
		if fsm.CanTransition(s, s) {
			t.Errorf("self transition %s -> %s must be rejected", s, s)
		}
	}
}

func TestTableHasSixEdges(t *testing.T) {
	edges := NewFSM().Transitions()
	if len(edges) != 6 {
		t.Fatalf("expected 6 edges, got %d", len(edges))
	}
}

func TestApply(t *testing.T) {
	fsm := NewFSM()
	fixed := time.Date(2025, 12, 5, 18, 0, 0, 0, time.UTC)
	fsm.now = func() time.Time { return fixed }

	r := &models.Reservation{ID: "42", Status: models.StatusPending}

	if err := fsm.Apply(r, models.StatusConfirmed); err != nil {
		t.Fatalf("pending -> confirmed: %v", err)
	}
	if err := fsm.Apply(r, models.StatusCompleted); err != nil {
		t.Fatalf("confirmed -> completed: %v", err)
	}
	if !r.UpdatedAt.Equal(fixed) {
		t.Errorf("updated_at not set, got %v", r.UpdatedAt)
	}

	before := *r
	err := fsm.Apply(r, models.StatusCancelled)
	if !models.IsInvalidTransition(err) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if r.Status != models.StatusCompleted {
		t.Errorf("status should remain completed, got %s", r.Status)
	}
	if *r != before {
		t.Error("reservation must be untouched after a rejected transition")
	}
}

func TestApplySequences(t *testing.T) {
	fsm := NewFSM()

	legal := [][]models.Status{
		{models.StatusConfirmed, models.StatusCompleted, models.StatusConfirmed},
		{models.StatusCancelled, models.StatusPending, models.StatusConfirmed},
		{models.StatusConfirmed, models.StatusCancelled, models.StatusPending},
	}
	for _, seq := range legal {
		r := &models.Reservation{Status: models.StatusPending}
		for _, to := range seq {
			if err := fsm.Apply(r, to); err != nil {
				t.Fatalf("sequence %v: %v", seq, err)
			}
		}
		if r.Status != seq[len(seq)-1] {
			t.Errorf("sequence %v ended at %s", seq, r.Status)
		}
	}

	r := &models.Reservation{Status: models.StatusPending}
	if err := fsm.Apply(r, models.StatusCompleted); err == nil {
		t.Error("pending -> completed must fail")
	}
	if err := fsm.Apply(r, models.StatusPending); err == nil {
		t.Error("pending -> pending must fail")
	}
}

func TestAllowed(t *testing.T) {
	fsm := NewFSM()

	got := fsm.Allowed(models.StatusPending)
	if len(got) != 2 || got[0] != models.StatusConfirmed || got[1] != models.StatusCancelled {
		t.Errorf("unexpected targets from pending: %v", got)
	}

	// Mutating the result must not leak into the table.
	got[0] = models.StatusCompleted
	if !fsm.CanTransition(models.StatusPending, models.StatusConfirmed) {
		t.Error("table was mutated through Allowed result")
	}

	if len(fsm.Allowed(models.Status("unknown"))) != 0 {
		t.Error("unknown status should have no targets")
	}
}
