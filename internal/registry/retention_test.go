package registry

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nti-labs/webhooks/internal/domain"
	"github.com/nti-labs/webhooks/internal/domain/mocks"
	"github.com/nti-labs/webhooks/pkg/logger"
)

func TestOnAttemptResolved_PrunesAndDeactivatesWhenAllFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	subRepo := mocks.NewMockSubscriptionRepository(ctrl)
	attemptRepo := mocks.NewMockDeliveryAttemptRepository(ctrl)

	sub := domain.NewSubscription("site-1", "order", "created", "https://example.com/hook", "", "", "", time.Now())
	sub.ID = "sub-1"
	sub.AttemptLimit = 5

	events := domain.NewInMemoryEventBus()
	registry := NewRegistry(subRepo, events)
	registry.AddSite(sub.SiteID, "")
	registry.ManagerFor(sub.SiteID).ActivateSubscription(sub)

	subRepo.EXPECT().GetByID(gomock.Any(), sub.SiteID, sub.ID).Return(sub, nil)
	attemptRepo.EXPECT().DeleteOldestResolved(gomock.Any(), sub.SiteID, sub.ID, sub.AttemptLimit).Return(0, nil)
	attemptRepo.EXPECT().CountBySubscription(gomock.Any(), sub.SiteID, sub.ID).Return(5, 5, nil)
	subRepo.EXPECT().Update(gomock.Any(), sub).Return(nil)

	h := NewRetentionHandler(registry, attemptRepo, subRepo, logger.NewLogger())
	h.onAttemptResolved(context.Background(), domain.EventPayload{SiteID: sub.SiteID, EntityID: sub.ID})

	assert.False(t, sub.Active)
	assert.Equal(t, string(domain.DeactivationReasonAllFailed), sub.StatusMessage)
}

func TestOnAttemptResolved_NoDeactivationWhenSomeSucceeded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	subRepo := mocks.NewMockSubscriptionRepository(ctrl)
	attemptRepo := mocks.NewMockDeliveryAttemptRepository(ctrl)

	sub := domain.NewSubscription("site-1", "order", "created", "https://example.com/hook", "", "", "", time.Now())
	sub.ID = "sub-1"
	sub.AttemptLimit = 5

	events := domain.NewInMemoryEventBus()
	registry := NewRegistry(subRepo, events)
	registry.AddSite(sub.SiteID, "")
	registry.ManagerFor(sub.SiteID).ActivateSubscription(sub)

	subRepo.EXPECT().GetByID(gomock.Any(), sub.SiteID, sub.ID).Return(sub, nil)
	attemptRepo.EXPECT().DeleteOldestResolved(gomock.Any(), sub.SiteID, sub.ID, sub.AttemptLimit).Return(0, nil)
	attemptRepo.EXPECT().CountBySubscription(gomock.Any(), sub.SiteID, sub.ID).Return(5, 2, nil)

	h := NewRetentionHandler(registry, attemptRepo, subRepo, logger.NewLogger())
	h.onAttemptResolved(context.Background(), domain.EventPayload{SiteID: sub.SiteID, EntityID: sub.ID})

	assert.True(t, sub.Active)
}

func TestOnPreconditionFailureLimitReached_Deactivates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	subRepo := mocks.NewMockSubscriptionRepository(ctrl)
	attemptRepo := mocks.NewMockDeliveryAttemptRepository(ctrl)

	sub := domain.NewSubscription("site-1", "order", "created", "https://example.com/hook", "owner-1", "view", "", time.Now())
	sub.ID = "sub-1"

	events := domain.NewInMemoryEventBus()
	registry := NewRegistry(subRepo, events)
	registry.AddSite(sub.SiteID, "")
	registry.ManagerFor(sub.SiteID).ActivateSubscription(sub)

	subRepo.EXPECT().GetByID(gomock.Any(), sub.SiteID, sub.ID).Return(sub, nil)
	subRepo.EXPECT().Update(gomock.Any(), sub).Return(nil)

	h := NewRetentionHandler(registry, attemptRepo, subRepo, logger.NewLogger())
	h.onPreconditionFailureLimitReached(context.Background(), domain.EventPayload{SiteID: sub.SiteID, EntityID: sub.ID})

	assert.False(t, sub.Active)
	assert.Equal(t, string(domain.DeactivationReasonPreconditionFailure), sub.StatusMessage)
}

func TestOnPrincipalRemoved_DeletesOwnedSubscriptionsAcrossTree(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	subRepo := mocks.NewMockSubscriptionRepository(ctrl)
	attemptRepo := mocks.NewMockDeliveryAttemptRepository(ctrl)

	sub := domain.NewSubscription("root", "order", "created", "https://example.com/hook", "principal-1", "view", "", time.Now())
	sub.ID = "sub-1"

	events := domain.NewInMemoryEventBus()
	registry := NewRegistry(subRepo, events)
	registry.AddSite("root", "")
	registry.AddSite("team", "root")
	registry.ManagerFor("root").ActivateSubscription(sub)

	subRepo.EXPECT().ListByOwner(gomock.Any(), "root", "principal-1").Return([]*domain.Subscription{sub}, nil)
	subRepo.EXPECT().ListByOwner(gomock.Any(), "team", "principal-1").Return(nil, nil)
	subRepo.EXPECT().Delete(gomock.Any(), "root", "sub-1").Return(nil)

	h := NewRetentionHandler(registry, attemptRepo, subRepo, logger.NewLogger())
	h.onPrincipalRemoved(context.Background(), domain.EventPayload{SiteID: "team", EntityID: "principal-1"})

	require.Empty(t, registry.ManagerFor("root").ActiveSubscriptions("order", "created"))
}
