package registry

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nti-labs/webhooks/internal/domain"
	"github.com/nti-labs/webhooks/internal/domain/mocks"
)

func TestCreateSubscription_ActivatesAndIndexes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSubscriptionRepository(ctrl)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	events := domain.NewInMemoryEventBus()
	m := NewSubscriptionManager("site-1", repo, events)

	sub, err := m.CreateSubscription(context.Background(), "https://example.com/hook", "order", "created", "", "", "", nil)
	require.NoError(t, err)
	assert.True(t, sub.Active)

	active := m.ActiveSubscriptions("order", "created")
	require.Len(t, active, 1)
	assert.Equal(t, sub.ID, active[0].ID)
}

func TestCreateSubscription_RejectsNonHTTPS(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSubscriptionRepository(ctrl)
	events := domain.NewInMemoryEventBus()
	m := NewSubscriptionManager("site-1", repo, events)

	_, err := m.CreateSubscription(context.Background(), "http://example.com/hook", "order", "created", "", "", "", nil)
	require.Error(t, err)
}

func TestCreateSubscription_RejectsWhitespaceOwnerID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSubscriptionRepository(ctrl)
	events := domain.NewInMemoryEventBus()
	m := NewSubscriptionManager("site-1", repo, events)

	_, err := m.CreateSubscription(context.Background(), "https://example.com/hook", "order", "created", "bad owner", "", "", nil)
	require.Error(t, err)
}

func TestDeactivateSubscription_RemovesFromIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSubscriptionRepository(ctrl)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	events := domain.NewInMemoryEventBus()
	m := NewSubscriptionManager("site-1", repo, events)

	sub, err := m.CreateSubscription(context.Background(), "https://example.com/hook", "order", "created", "", "", "", nil)
	require.NoError(t, err)

	m.DeactivateSubscription(sub, domain.DeactivationReasonManual)
	assert.False(t, sub.Active)
	assert.Empty(t, m.ActiveSubscriptions("order", "created"))
}

func TestSubscriptionsToDeliver_PublishesOnPreconditionLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSubscriptionRepository(ctrl)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	events := domain.NewInMemoryEventBus()
	received := make(chan domain.EventPayload, 1)
	events.Subscribe(domain.EventApplicabilityPreconditionFailureLimitReached, func(ctx context.Context, payload domain.EventPayload) {
		received <- payload
	})

	m := NewSubscriptionManager("site-1", repo, events)
	sub, err := m.CreateSubscription(context.Background(), "https://example.com/hook", "order", "created", "owner-1", "view", "", nil)
	require.NoError(t, err)
	sub.ApplicablePreconditionFailureLimit = 1

	auth := &missingAuth{}
	got := m.SubscriptionsToDeliver(context.Background(), auth, "order", "created", nil)
	assert.Empty(t, got)

	select {
	case payload := <-received:
		assert.Equal(t, sub.ID, payload.EntityID)
	default:
		t.Fatal("expected precondition-failure-limit event to be published")
	}
}

type missingAuth struct{}

func (missingAuth) GetPrincipal(ctx context.Context, id string) (domain.Principal, bool) {
	return domain.Principal{}, false
}
func (missingAuth) UnauthenticatedPrincipal() domain.Principal { return domain.Principal{} }
func (missingAuth) GetPermission(ctx context.Context, id string) (domain.Permission, bool) {
	return domain.Permission{}, false
}
func (missingAuth) CheckPermission(ctx context.Context, p domain.Principal, perm domain.Permission, data any) bool {
	return false
}
func (missingAuth) GrantDefaultSubscriptionAccess(ctx context.Context, ownerID, subscriptionID string) error {
	return nil
}
