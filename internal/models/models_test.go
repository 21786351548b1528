package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	t.Run("canonical", func(t *testing.T) {
		for _, s := range Statuses {
			got, err := ParseStatus(string(s))
			require.NoError(t, err)
			assert.Equal(t, s, got)
		}
	})

	t.Run("casing drift", func(t *testing.T) {
		got, err := ParseStatus(" PENDING ")
		require.NoError(t, err)
		assert.Equal(t, StatusPending, got)

		got, err = ParseStatus("Cancelled")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ParseStatus("seated")
		require.Error(t, err)
		assert.True(t, IsValidation(err))

		_, err = ParseStatus("")
		assert.True(t, IsValidation(err))
	})
}

func TestReservation_VisitStart(t *testing.T) {
	loc := time.FixedZone("KST", 9*60*60)

	r := &Reservation{VisitDate: "2025-12-05", VisitTime: "19:00"}
	start, ok := r.VisitStart(loc)
	require.True(t, ok)
	assert.Equal(t, 19, start.Hour())
	assert.Equal(t, time.December, start.Month())
	assert.Equal(t, loc, start.Location())

	bad := &Reservation{VisitDate: "2025-13-05", VisitTime: "19:00"}
	_, ok = bad.VisitStart(loc)
	assert.False(t, ok)
}

func TestIdentityRoles(t *testing.T) {
	var nilIdentity *Identity
	assert.False(t, nilIdentity.IsAdmin())
	assert.False(t, nilIdentity.IsOwner())

	assert.True(t, (&Identity{Role: RoleAdmin}).IsAdmin())
	assert.True(t, (&Identity{Role: RoleOwner}).IsOwner())
	assert.False(t, (&Identity{Role: RoleCustomer}).IsOwner())

	assert.True(t, RoleCustomer.IsValid())
	assert.False(t, Role("guest").IsValid())
}

func TestShop_IsOwnedBy(t *testing.T) {
	shop := &Shop{ID: 1, OwnerID: 7}
	assert.True(t, shop.IsOwnedBy(7))
	assert.False(t, shop.IsOwnedBy(8))

	unowned := &Shop{ID: 2}
	assert.False(t, unowned.IsOwnedBy(0))
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", &ValidationError{Field: "guestName"}, IsValidation},
		{"unauthenticated", &UnauthenticatedError{}, IsUnauthenticated},
		{"transition", &InvalidTransitionError{From: StatusCompleted, To: StatusCancelled}, IsInvalidTransition},
		{"not found", &NotFoundError{Resource: "reservation", ID: "42"}, IsNotFound},
		{"conflict", &ConflictError{Message: "email already registered"}, IsConflict},
		{"submission", &SubmissionFailedError{Err: fmt.Errorf("db down")}, IsSubmissionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.err)))
			assert.False(t, tt.check(fmt.Errorf("plain")))
		})
	}

	assert.Equal(t, "guestPhone is required", (&ValidationError{Field: "guestPhone"}).Error())
	assert.Equal(t, "cannot change reservation status from completed to cancelled",
		(&InvalidTransitionError{From: StatusCompleted, To: StatusCancelled}).Error())
}
