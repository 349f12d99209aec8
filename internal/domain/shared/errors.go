// Package shared contains common domain types, errors and events
// that are used across the domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrLockNotAcquired        = errors.New("lock not acquired")

	// Infrastructure errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progression", "session"
	Op      string // Operation that failed, e.g., "Load", "Save"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progression domain errors
var (
	ErrProgressionNotFound = NewDomainError("progression", "Load", ErrNotFound, "progression not found")
	ErrProgressionExists   = NewDomainError("progression", "Create", ErrAlreadyExists, "progression already exists")
	ErrVersionConflict     = NewDomainError("progression", "Save", ErrConcurrentModification, "progression was modified concurrently")
	ErrInvalidUserID       = NewDomainError("progression", "Validate", ErrInvalidID, "invalid user ID")
	ErrInvalidMood         = NewDomainError("progression", "Validate", ErrInvalidInput, "mood must be one of happy, neutral, sad")
	ErrInvalidEnergy       = NewDomainError("progression", "Validate", ErrValueOutOfRange, "energy must be between 0 and 100")
	ErrInvalidPetName      = NewDomainError("progression", "Validate", ErrInvalidInput, "pet name must be 3 to 30 characters")
	ErrInvalidPetType      = NewDomainError("progression", "Validate", ErrInvalidInput, "pet type must be cat or dog")
)

// Session domain errors
var (
	ErrSessionNotFound        = NewDomainError("session", "Find", ErrNotFound, "session not found")
	ErrSessionExists          = NewDomainError("session", "Create", ErrAlreadyExists, "session already exists")
	ErrSessionNotCompleted    = NewDomainError("session", "Reward", ErrInvalidState, "session not completed")
	ErrSessionAlreadyRewarded = NewDomainError("session", "Reward", ErrAlreadyProcessed, "session already rewarded")
	ErrSessionAlreadyFinished = NewDomainError("session", "Finish", ErrInvalidState, "session already finished")
	ErrInvalidDuration        = NewDomainError("session", "Validate", ErrValueOutOfRange, "target duration must be positive")
	ErrInvalidSessionWindow   = NewDomainError("session", "Finish", ErrInvalidInput, "end time precedes start time")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrLockNotAcquired)
}
