package domain

//go:generate mockgen -destination mocks/mock_subscription_repository.go -package mocks github.com/nti-labs/webhooks/internal/domain SubscriptionRepository

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultAttemptLimit is the default cap on stored attempts per subscription
const DefaultAttemptLimit = 50

// DefaultPreconditionFailureLimit is the default cap on consecutive
// applicability-precondition failures before auto-deactivation
const DefaultPreconditionFailureLimit = 50

// DeactivationReason explains why Active flipped to false
type DeactivationReason string

const (
	DeactivationReasonManual              DeactivationReason = ""
	DeactivationReasonPreconditionFailure DeactivationReason = "Delivery suspended due to too many precondition failures."
	DeactivationReasonAllFailed           DeactivationReason = "Delivery suspended due to too many delivery failures."
)

// Subscription is a durable policy: deliver events matching (ForType, When)
// to To, under Owner's permission, rendered by the named Dialect.
//
// Subscription owns its DeliveryAttempts; it is the only type allowed to
// mutate Active, and it does so only through its owning SubscriptionManager.
type Subscription struct {
	ID      string
	SiteID  string
	ForType string // type tag of acceptable object classes
	When    string // event-kind identifier; "" means any object event

	To           string // destination URL; must be https://
	OwnerID      string // optional principal id gating applicability
	PermissionID string // optional permission name; defaults to "view" when OwnerID set
	DialectID    string // optional name of the Dialect used to render payloads

	Active                             bool
	StatusMessage                      string
	AttemptLimit                       int
	ApplicablePreconditionFailureLimit int

	CreatedTime  time.Time
	ModifiedTime time.Time

	// preconditionFailures is a conflict-friendly counter of consecutive
	// "missing" applicability outcomes, mutated with sync/atomic so that
	// concurrent dispatch paths can increment and reset it without a lock.
	preconditionFailures int64
}

// NewSubscription constructs a Subscription with spec defaults applied.
func NewSubscription(siteID, forType, when, to, ownerID, permissionID, dialectID string, now time.Time) *Subscription {
	if permissionID == "" && ownerID != "" {
		permissionID = "view"
	}
	return &Subscription{
		SiteID:                             siteID,
		ForType:                            forType,
		When:                               when,
		To:                                 to,
		OwnerID:                            ownerID,
		PermissionID:                       permissionID,
		DialectID:                          dialectID,
		AttemptLimit:                       DefaultAttemptLimit,
		ApplicablePreconditionFailureLimit: DefaultPreconditionFailureLimit,
		CreatedTime:                        now,
		ModifiedTime:                       now,
	}
}

// Applicability is the tri-state result of a security check: Allow, Deny, or
// Missing (principal or permission could not be located — a precondition
// failure, not a denial).
type Applicability int

const (
	ApplicabilityDeny Applicability = iota
	ApplicabilityAllow
	ApplicabilityMissing
)

// IsApplicable reports whether data matches ForType and passes the security
// check. Missing principal/permission maps to false here, but callers on the
// dispatch path should call CheckApplicability directly to distinguish
// Missing from Deny for precondition-failure counting.
func (s *Subscription) IsApplicable(ctx context.Context, auth Authentication, forType string, data any) bool {
	if forType != s.ForType {
		return false
	}
	return s.CheckApplicability(ctx, auth, data) == ApplicabilityAllow
}

// CheckApplicability performs the security check described in spec §4.4.1:
// if OwnerID and PermissionID are both unset, it passes unconditionally.
// Otherwise it looks up the principal and permission and asks auth to
// evaluate them; failure to locate either yields ApplicabilityMissing.
func (s *Subscription) CheckApplicability(ctx context.Context, auth Authentication, data any) Applicability {
	if s.OwnerID == "" && s.PermissionID == "" {
		return ApplicabilityAllow
	}

	principal, ok := auth.GetPrincipal(ctx, s.OwnerID)
	if !ok {
		return ApplicabilityMissing
	}
	permission, ok := auth.GetPermission(ctx, s.PermissionID)
	if !ok {
		return ApplicabilityMissing
	}

	if auth.CheckPermission(ctx, principal, permission, data) {
		return ApplicabilityAllow
	}
	return ApplicabilityDeny
}

// RecordPreconditionOutcome adjusts the consecutive-failure counter: a
// Missing outcome increments it and returns the new value; any other
// outcome resets it to zero.
func (s *Subscription) RecordPreconditionOutcome(result Applicability) int64 {
	if result == ApplicabilityMissing {
		return atomic.AddInt64(&s.preconditionFailures, 1)
	}
	atomic.StoreInt64(&s.preconditionFailures, 0)
	return 0
}

// PreconditionFailureCount returns the current consecutive-failure count.
func (s *Subscription) PreconditionFailureCount() int64 {
	return atomic.LoadInt64(&s.preconditionFailures)
}

// Deactivate flips Active to false and records why, never touched directly
// by API clients — only by the owning SubscriptionManager.
func (s *Subscription) Deactivate(reason DeactivationReason, now time.Time) {
	s.Active = false
	s.StatusMessage = string(reason)
	s.ModifiedTime = now
}

// Activate flips Active to true, clears StatusMessage, and resets the
// precondition-failure counter.
func (s *Subscription) Activate(now time.Time) {
	s.Active = true
	s.StatusMessage = ""
	atomic.StoreInt64(&s.preconditionFailures, 0)
	s.ModifiedTime = now
}

// SubscriptionRepository is the persistence boundary for subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, siteID, id string) (*Subscription, error)
	List(ctx context.Context, siteID string) ([]*Subscription, error)
	ListByOwner(ctx context.Context, siteID, ownerID string) ([]*Subscription, error)
	ListForTypeAndEvent(ctx context.Context, siteID, forType, when string) ([]*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	Delete(ctx context.Context, siteID, id string) error
}
