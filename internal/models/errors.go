package models

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or missing input. Field names the first
// offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return e.Message
}

// UnauthenticatedError is returned when an operation needs an identity.
type UnauthenticatedError struct {
	Reason string
}

func (e *UnauthenticatedError) Error() string {
	if e.Reason == "" {
		return "authentication required"
	}
	return e.Reason
}

// InvalidTransitionError is returned for status changes outside the
// transition table.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change reservation status from %s to %s", e.From, e.To)
}

// NotFoundError is returned when a referenced record does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError is returned for duplicate accounts and lost update races.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// SubmissionFailedError wraps a persistence or transport fault.
type SubmissionFailedError struct {
	Err error
}

func (e *SubmissionFailedError) Error() string {
	return fmt.Sprintf("reservation submission failed: %v", e.Err)
}

func (e *SubmissionFailedError) Unwrap() error {
	return e.Err
}

// IsValidation checks if err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsUnauthenticated checks if err is an UnauthenticatedError.
func IsUnauthenticated(err error) bool {
	var target *UnauthenticatedError
	return errors.As(err, &target)
}

// IsInvalidTransition checks if err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}

// IsNotFound checks if err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConflict checks if err is a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsSubmissionFailed checks if err is a SubmissionFailedError.
func IsSubmissionFailed(err error) bool {
	var target *SubmissionFailedError
	return errors.As(err, &target)
}
