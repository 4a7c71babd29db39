package registry

import (
	"context"
	"fmt"

	"github.com/nti-labs/webhooks/internal/delivery"
	"github.com/nti-labs/webhooks/internal/domain"
)

// SubscriptionService exposes operations over a single subscription that
// fall outside the site-tree lifecycle SubscriptionManager/Registry own —
// currently just the manual test-delivery trigger (SPEC_FULL §10).
type SubscriptionService struct {
	subRepo      domain.SubscriptionRepository
	dialects     *domain.DialectRegistry
	externalizer domain.Externalizer
	engine       *delivery.Engine
}

// NewSubscriptionService constructs a SubscriptionService.
func NewSubscriptionService(subRepo domain.SubscriptionRepository, dialects *domain.DialectRegistry, externalizer domain.Externalizer, engine *delivery.Engine) *SubscriptionService {
	return &SubscriptionService{
		subRepo:      subRepo,
		dialects:     dialects,
		externalizer: externalizer,
		engine:       engine,
	}
}

// SendTestDelivery loads subscriptionID, serializes payload through its
// dialect for eventType, and fires a synthetic HTTP send at its destination
// without creating or persisting a DeliveryAttempt — the "send test event"
// action a UI offers alongside a subscription's real delivery history.
func (s *SubscriptionService) SendTestDelivery(ctx context.Context, siteID, subscriptionID, eventType string, payload any) (*domain.ResponseRecord, error) {
	sub, err := s.subRepo.GetByID(ctx, siteID, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("test delivery: subscription lookup failed: %w", err)
	}

	dialect, err := s.dialects.Lookup(sub.ForType, eventType, sub.DialectID)
	if err != nil {
		return nil, fmt.Errorf("test delivery: dialect lookup failed: %w", err)
	}

	body, err := s.externalizer.ToExternalRepresentation(ctx, payload, dialect.ExternalizerFormat, dialect.ExternalizerName, dialect.ExternalizerPolicyName)
	if err != nil {
		return nil, fmt.Errorf("test delivery: serialization failed: %w", err)
	}

	return s.engine.SendTestDelivery(ctx, sub, dialect, body)
}
