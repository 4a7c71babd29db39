package domain

//go:generate mockgen -destination mocks/mock_delivery_attempt_repository.go -package mocks github.com/nti-labs/webhooks/internal/domain DeliveryAttemptRepository

import (
	"context"
	"errors"
	"sync"
	"time"
)

// AttemptStatus is one of {pending, successful, failed}; transitions only
// from pending to a terminal state, exactly once.
type AttemptStatus string

const (
	AttemptStatusPending    AttemptStatus = "pending"
	AttemptStatusSuccessful AttemptStatus = "successful"
	AttemptStatusFailed     AttemptStatus = "failed"
)

// MsgDestinationValidationFailed is the well-known message set when a
// DestinationValidator rejects a subscription's target at attempt creation.
const MsgDestinationValidationFailed = "Verification of the destination URL failed. Please check the domain."

// MsgTransportError is the well-known message set when the HTTP send itself
// fails (DNS/connection/timeout), as opposed to receiving a non-2xx response.
const MsgTransportError = "Contacting the remote server experienced an unexpected error."

// RequestRecord is an immutable snapshot of the HTTP request sent for an
// attempt. Headers are captured verbatim; no header stripping is performed
// (see DESIGN.md Open Question resolution).
type RequestRecord struct {
	URL         string
	Method      string
	Body        string
	Headers     map[string][]string
	CreatedTime time.Time
}

// ResponseRecord is an immutable snapshot of the HTTP response received for
// an attempt. Content is truncated to a bounded size by the caller before
// being stored here.
type ResponseRecord struct {
	StatusCode  int
	Reason      string
	Headers     map[string][]string
	Content     string
	Elapsed     time.Duration
	CreatedTime time.Time
}

// Originated records where and when an attempt was created, for debugging.
type Originated struct {
	PID         int
	Hostname    string
	CreatedTime time.Time
	Note        string
}

// InternalInfo is a debugging container attached to every attempt.
type InternalInfo struct {
	Originated       Originated
	ExceptionHistory []string
}

// AppendException records an exception/error text entry, append-only.
func (i *InternalInfo) AppendException(text string) {
	i.ExceptionHistory = append(i.ExceptionHistory, text)
}

// DeliveryAttempt is an immutable-once-resolved record of one HTTP exchange
// against a single subscription for a single object event.
type DeliveryAttempt struct {
	ID             string
	SubscriptionID string
	SiteID         string

	Message  string
	Request  *RequestRecord
	Response *ResponseRecord

	InternalInfo InternalInfo

	CreatedTime  time.Time
	ModifiedTime time.Time

	mu     sync.Mutex
	status AttemptStatus
}

// NewDeliveryAttempt constructs a pending attempt for subscriptionID.
func NewDeliveryAttempt(id, subscriptionID, siteID string, now time.Time, originated Originated) *DeliveryAttempt {
	return &DeliveryAttempt{
		ID:             id,
		SubscriptionID: subscriptionID,
		SiteID:         siteID,
		status:         AttemptStatusPending,
		InternalInfo:   InternalInfo{Originated: originated},
		CreatedTime:    now,
		ModifiedTime:   now,
	}
}

// HydrateDeliveryAttempt reconstructs a DeliveryAttempt from stored fields,
// bypassing the Resolve transition guard. Repository Scan paths are the only
// intended caller — every other path must go through NewDeliveryAttempt plus
// Resolve so the pending-to-terminal transition is enforced.
func HydrateDeliveryAttempt(id, subscriptionID, siteID string, status AttemptStatus, message string, request *RequestRecord, response *ResponseRecord, internalInfo InternalInfo, createdTime, modifiedTime time.Time) *DeliveryAttempt {
	return &DeliveryAttempt{
		ID:             id,
		SubscriptionID: subscriptionID,
		SiteID:         siteID,
		status:         status,
		Message:        message,
		Request:        request,
		Response:       response,
		InternalInfo:   internalInfo,
		CreatedTime:    createdTime,
		ModifiedTime:   modifiedTime,
	}
}

// Status returns the current status.
func (a *DeliveryAttempt) Status() AttemptStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Resolve transitions the attempt from pending to a terminal status exactly
// once. Any second call returns ErrImmutableAttempt and leaves the attempt
// untouched, matching the "attribute-is-immutable" semantics in spec §4.3.
func (a *DeliveryAttempt) Resolve(status AttemptStatus, message string, now time.Time) error {
	if status == AttemptStatusPending {
		return errors.New("cannot resolve an attempt to pending")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != AttemptStatusPending {
		return &ErrImmutableAttempt{AttemptID: a.ID, CurrentStatus: string(a.status)}
	}

	a.status = status
	a.Message = message
	a.ModifiedTime = now
	return nil
}

// ResolvedEventType returns the EventType that should fire for the attempt's
// current terminal status. Only meaningful once Status() is terminal.
func (a *DeliveryAttempt) ResolvedEventType() EventType {
	if a.Status() == AttemptStatusSuccessful {
		return EventAttemptSucceeded
	}
	return EventAttemptFailed
}

// DeliveryAttemptRepository is the persistence boundary for attempts.
type DeliveryAttemptRepository interface {
	Create(ctx context.Context, attempt *DeliveryAttempt) error
	GetByID(ctx context.Context, siteID, id string) (*DeliveryAttempt, error)
	ListBySubscription(ctx context.Context, siteID, subscriptionID string, limit, offset int) ([]*DeliveryAttempt, int, error)
	Resolve(ctx context.Context, attempt *DeliveryAttempt) error
	// DeleteOldestResolved deletes resolved attempts for subscriptionID in
	// insertion order until at most keep remain, per the retention-cap
	// pruning handler (spec §4.9).
	DeleteOldestResolved(ctx context.Context, siteID, subscriptionID string, keep int) (deleted int, err error)
	// CountBySubscription reports the total and the count of attempts
	// currently in AttemptStatusFailed, used by the all-failed deactivation
	// handler.
	CountBySubscription(ctx context.Context, siteID, subscriptionID string) (total, failed int, err error)
}
