package service

import (
	"github.com/Eo-0118/Black-Kingdom/internal/models"
	"github.com/Eo-0118/Black-Kingdom/shared/access"
)

// Recorder receives business counters. *metrics.Metrics implements it.
type Recorder interface {
	IncReservationCreated()
	IncSubmissionRejected(reason string)
	IncTransition(from, to models.Status)
	IncTransitionRejected(reason string)
	IncAuth(operation, result string)
}

type nopRecorder struct{}

func (nopRecorder) IncReservationCreated()           {}
func (nopRecorder) IncSubmissionRejected(string)     {}
func (nopRecorder) IncTransition(_, _ models.Status) {}
func (nopRecorder) IncTransitionRejected(string)     {}
func (nopRecorder) IncAuth(_, _ string)              {}

// rejectReason turns a service error into a low-cardinality metric label.
func rejectReason(err error) string {
	switch {
	case models.IsUnauthenticated(err):
		return "unauthenticated"
	case models.IsValidation(err):
		return "validation"
	case models.IsNotFound(err):
		return "not_found"
	case models.IsInvalidTransition(err):
		return "invalid_transition"
	case access.IsAccessDenied(err):
		return "forbidden"
	case models.IsConflict(err):
		return "conflict"
	case models.IsSubmissionFailed(err):
		return "store"
	default:
		return "other"
	}
}
