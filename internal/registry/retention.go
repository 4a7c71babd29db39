package registry

import (
	"context"

	"github.com/nti-labs/webhooks/internal/domain"
	"github.com/nti-labs/webhooks/pkg/logger"
)

// RetentionHandler subscribes to the EventBus and implements spec §4.9's
// event-driven retention and deactivation policy: pruning the oldest
// resolved attempts past a subscription's AttemptLimit, and deactivating a
// subscription once it stores AttemptLimit attempts and every one of them
// has failed. Grounded on
// original_source/src/nti/webhooks/subscribers.py's
// trim_websafe_workspace_attempts / deactivate_on_all_attempts_failed
// handlers, re-expressed as explicit EventBus subscriptions rather than
// zope component-architecture @subscriber decorators.
type RetentionHandler struct {
	registry    *Registry
	attemptRepo domain.DeliveryAttemptRepository
	subRepo     domain.SubscriptionRepository
	log         logger.Logger
}

// NewRetentionHandler constructs a handler bound to registry's site tree.
func NewRetentionHandler(registry *Registry, attemptRepo domain.DeliveryAttemptRepository, subRepo domain.SubscriptionRepository, log logger.Logger) *RetentionHandler {
	return &RetentionHandler{registry: registry, attemptRepo: attemptRepo, subRepo: subRepo, log: log}
}

// Wire subscribes every handler method to its corresponding EventType on
// events. Call once at startup.
func (h *RetentionHandler) Wire(events domain.EventBus) {
	events.Subscribe(domain.EventAttemptSucceeded, h.onAttemptResolved)
	events.Subscribe(domain.EventAttemptFailed, h.onAttemptResolved)
	events.Subscribe(domain.EventApplicabilityPreconditionFailureLimitReached, h.onPreconditionFailureLimitReached)
	events.Subscribe(domain.EventPrincipalRemoved, h.onPrincipalRemoved)
}

// onAttemptResolved prunes the subscription's oldest resolved attempts down
// to its AttemptLimit, then deactivates the subscription if the remaining
// attempts number at least AttemptLimit and every one of them has failed
// (spec §4.9 "all attempts failed" rule).
func (h *RetentionHandler) onAttemptResolved(ctx context.Context, payload domain.EventPayload) {
	sub, err := h.subRepo.GetByID(ctx, payload.SiteID, payload.EntityID)
	if err != nil {
		h.log.WithField("error", err.Error()).Warn("retention: could not load subscription for resolved attempt")
		return
	}

	if _, err := h.attemptRepo.DeleteOldestResolved(ctx, sub.SiteID, sub.ID, sub.AttemptLimit); err != nil {
		h.log.WithField("error", err.Error()).Warn("retention: prune failed")
	}

	total, failed, err := h.attemptRepo.CountBySubscription(ctx, sub.SiteID, sub.ID)
	if err != nil {
		h.log.WithField("error", err.Error()).Warn("retention: count failed")
		return
	}
	if total >= sub.AttemptLimit && failed == total {
		h.deactivate(ctx, sub, domain.DeactivationReasonAllFailed)
	}
}

// onPreconditionFailureLimitReached deactivates a subscription whose
// consecutive applicability-precondition failures crossed its limit.
func (h *RetentionHandler) onPreconditionFailureLimitReached(ctx context.Context, payload domain.EventPayload) {
	sub, err := h.subRepo.GetByID(ctx, payload.SiteID, payload.EntityID)
	if err != nil {
		h.log.WithField("error", err.Error()).Warn("retention: could not load subscription for precondition limit event")
		return
	}
	h.deactivate(ctx, sub, domain.DeactivationReasonPreconditionFailure)
}

// onPrincipalRemoved deletes every subscription owned by the removed
// principal in the event's site and each of its ancestor sites.
func (h *RetentionHandler) onPrincipalRemoved(ctx context.Context, payload domain.EventPayload) {
	for _, m := range h.registry.ManagersUpTree(payload.SiteID) {
		if err := m.DeleteSubscriptionsForPrincipal(ctx, payload.EntityID); err != nil {
			h.log.WithField("error", err.Error()).Warn("retention: failed removing subscriptions for principal")
		}
	}
}

func (h *RetentionHandler) deactivate(ctx context.Context, sub *domain.Subscription, reason domain.DeactivationReason) {
	m := h.registry.ManagerFor(sub.SiteID)
	if m == nil {
		return
	}
	m.DeactivateSubscription(sub, reason)
	if err := h.subRepo.Update(ctx, sub); err != nil {
		h.log.WithField("error", err.Error()).Warn("retention: failed persisting deactivation")
		return
	}
	h.registry.events.Publish(ctx, domain.EventPayload{
		Type:     domain.EventSubscriptionDeactivated,
		SiteID:   sub.SiteID,
		EntityID: sub.ID,
	})
}
