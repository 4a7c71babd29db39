package domain

import (
	"fmt"
)

// ErrNotFound is returned when a lookup by identifier finds nothing
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found with ID: %s", e.Entity, e.ID)
}

// ErrInvalidSubscription is returned when a subscription fails validation,
// e.g. an insecure or unresolvable target URL, or an unknown dialect name.
type ErrInvalidSubscription struct {
	Reason string
}

func (e *ErrInvalidSubscription) Error() string {
	return fmt.Sprintf("invalid subscription: %s", e.Reason)
}

// ErrImmutableAttempt is returned when code attempts to resolve a
// DeliveryAttempt that has already reached a terminal status.
type ErrImmutableAttempt struct {
	AttemptID     string
	CurrentStatus string
}

func (e *ErrImmutableAttempt) Error() string {
	return fmt.Sprintf("delivery attempt %s already resolved as %s", e.AttemptID, e.CurrentStatus)
}

// ErrForeignUnitOfWork is returned when a caller other than the one that
// joined an outbox transaction attempts to drive its 2PC lifecycle.
type ErrForeignUnitOfWork struct {
	TxnID string
}

func (e *ErrForeignUnitOfWork) Error() string {
	return fmt.Sprintf("transaction %s was joined by a different caller", e.TxnID)
}

// ErrDestinationRejected is returned by a DestinationValidator when a
// target URL is refused, e.g. non-HTTPS scheme or unresolvable host.
type ErrDestinationRejected struct {
	URL    string
	Reason string
}

func (e *ErrDestinationRejected) Error() string {
	return fmt.Sprintf("destination rejected [%s]: %s", e.URL, e.Reason)
}

// ErrDialectNotFound is returned when the dialect registry has no adapter
// matching a (forType, eventType, name) lookup and no default is registered.
type ErrDialectNotFound struct {
	ForType   string
	EventType string
	Name      string
}

func (e *ErrDialectNotFound) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("no dialect named %q for (%s, %s)", e.Name, e.ForType, e.EventType)
	}
	return fmt.Sprintf("no dialect for (%s, %s)", e.ForType, e.EventType)
}

// ValidationError represents an error that occurs due to invalid input or parameters
type ValidationError struct {
	Message string
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a new validation error with the given message
func NewValidationError(message string) error {
	return ValidationError{
		Message: message,
	}
}
