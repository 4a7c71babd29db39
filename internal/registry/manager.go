package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nti-labs/webhooks/internal/domain"
)

// subscriptionKey is the local adapter-registry key: (for_, when).
type subscriptionKey struct {
	forType string
	when    string
}

// SubscriptionManager is a site-scoped container of subscriptions. It
// registers them for (for_, when) lookup, exactly as spec §4.5 describes:
// "active" means registered in this local adapter registry.
//
// This replaces the original's component-system adapter registry (keyed on
// interfaces, resolved by lookup-order inheritance) with an explicit Go map
// keyed on a plain (forType, when) struct — see SPEC_FULL §9.
type SubscriptionManager struct {
	SiteID string

	repo   domain.SubscriptionRepository
	events domain.EventBus

	mu    sync.RWMutex
	index map[subscriptionKey]map[string]*domain.Subscription // key -> subscriptionID -> sub
}

// NewSubscriptionManager constructs a manager for one site.
func NewSubscriptionManager(siteID string, repo domain.SubscriptionRepository, events domain.EventBus) *SubscriptionManager {
	return &SubscriptionManager{
		SiteID: siteID,
		repo:   repo,
		events: events,
		index:  make(map[subscriptionKey]map[string]*domain.Subscription),
	}
}

// CreateSubscription validates and persists a new subscription, then
// activates it. Owner ids containing whitespace are rejected at create time
// (spec §8 boundary condition).
func (m *SubscriptionManager) CreateSubscription(ctx context.Context, to, forType, when, ownerID, permissionID, dialectID string, auth domain.Authentication) (*domain.Subscription, error) {
	if err := validateOwnerID(ownerID); err != nil {
		return nil, err
	}
	if len(to) < 8 || to[:8] != "https://" {
		return nil, &domain.ErrInvalidSubscription{Reason: "to must start with https://"}
	}

	now := time.Now()
	sub := domain.NewSubscription(m.SiteID, forType, when, to, ownerID, permissionID, dialectID, now)
	sub.ID = uuid.NewString()

	if err := m.repo.Create(ctx, sub); err != nil {
		return nil, err
	}

	m.ActivateSubscription(sub)

	if auth != nil && ownerID != "" {
		if err := auth.GrantDefaultSubscriptionAccess(ctx, ownerID, sub.ID); err != nil {
			return nil, err
		}
	}

	return sub, nil
}

func validateOwnerID(ownerID string) error {
	for _, r := range ownerID {
		if r == ' ' || r == '\t' || r == '\n' {
			return &domain.ErrInvalidSubscription{Reason: fmt.Sprintf("owner id %q must not contain whitespace", ownerID)}
		}
	}
	return nil
}

// ActivateSubscription registers sub in the local adapter registry and
// flips Active to true. Publishes IRegistered-equivalent bookkeeping is
// folded directly into Subscription.Activate rather than a separate
// observer dispatch, per SPEC_FULL §9's "explicit observer lists" note —
// the manager IS the observer here, there is no indirection to preserve.
func (m *SubscriptionManager) ActivateSubscription(sub *domain.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := subscriptionKey{forType: sub.ForType, when: sub.When}
	if m.index[key] == nil {
		m.index[key] = make(map[string]*domain.Subscription)
	}
	m.index[key][sub.ID] = sub
	sub.Activate(time.Now())
}

// DeactivateSubscription removes sub from the local adapter registry and
// flips Active to false with reason.
func (m *SubscriptionManager) DeactivateSubscription(sub *domain.Subscription, reason domain.DeactivationReason) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := subscriptionKey{forType: sub.ForType, when: sub.When}
	if subs, ok := m.index[key]; ok {
		delete(subs, sub.ID)
	}
	sub.Deactivate(reason, time.Now())
}

// RemoveSubscription deactivates sub, then deletes it from persistence.
func (m *SubscriptionManager) RemoveSubscription(ctx context.Context, sub *domain.Subscription) error {
	m.DeactivateSubscription(sub, domain.DeactivationReasonManual)
	return m.repo.Delete(ctx, m.SiteID, sub.ID)
}

// ActiveSubscriptions returns all subscriptions registered for (forType, when),
// a constant-time registry lookup (spec §3 SubscriptionManager).
func (m *SubscriptionManager) ActiveSubscriptions(forType, when string) []*domain.Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := subscriptionKey{forType: forType, when: when}
	subs := m.index[key]
	result := make([]*domain.Subscription, 0, len(subs))
	for _, s := range subs {
		result = append(result, s)
	}
	return result
}

// SubscriptionsToDeliver returns the subset of ActiveSubscriptions(forType,
// when) that are also applicable to data, counting precondition failures as
// it goes (spec §4.4.2) and publishing
// EventApplicabilityPreconditionFailureLimitReached when a subscription
// crosses its limit.
func (m *SubscriptionManager) SubscriptionsToDeliver(ctx context.Context, auth domain.Authentication, forType, when string, data any) []*domain.Subscription {
	candidates := m.ActiveSubscriptions(forType, when)
	result := make([]*domain.Subscription, 0, len(candidates))

	for _, sub := range candidates {
		result2 := sub.CheckApplicability(ctx, auth, data)
		count := sub.RecordPreconditionOutcome(result2)

		if result2 == domain.ApplicabilityMissing {
			if count >= int64(sub.ApplicablePreconditionFailureLimit) {
				m.events.Publish(ctx, domain.EventPayload{
					Type:     domain.EventApplicabilityPreconditionFailureLimitReached,
					SiteID:   m.SiteID,
					EntityID: sub.ID,
				})
			}
			continue
		}
		if result2 == domain.ApplicabilityAllow {
			result = append(result, sub)
		}
	}
	return result
}

// DeleteSubscriptionsForPrincipal removes every subscription owned by
// principalID from this manager, the concrete event-subscriber behavior
// behind EventPrincipalRemoved (SPEC_FULL §10, grounded on
// original_source/src/nti/webhooks/subscribers.py:remove_subscriptions_for_principal).
func (m *SubscriptionManager) DeleteSubscriptionsForPrincipal(ctx context.Context, principalID string) error {
	subs, err := m.repo.ListByOwner(ctx, m.SiteID, principalID)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if err := m.RemoveSubscription(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}
