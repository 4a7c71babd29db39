package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nti-labs/webhooks/internal/domain"
	"github.com/nti-labs/webhooks/internal/domain/mocks"
)

func newTestDialects() *domain.DialectRegistry {
	return domain.NewDialectRegistry(domain.NewDefaultDialect("webhooks-test/1.0"))
}

type fakeValidator struct {
	rejectErr error
}

func (f *fakeValidator) ValidateTarget(ctx context.Context, rawURL string) error {
	return f.rejectErr
}

func TestAddSubscriptions_RejectsForeignTxn(t *testing.T) {
	o := New("txn-1", newTestDialects(), nil, nil, nil, nil, nil, nil, nil)
	err := o.AddSubscriptions("txn-2", "data-1", nil, "created", nil)
	require.Error(t, err)
	var foreign *domain.ErrForeignUnitOfWork
	assert.ErrorAs(t, err, &foreign)
}

func TestAddSubscriptions_CoalescesDuplicates(t *testing.T) {
	o := New("txn-1", newTestDialects(), nil, nil, nil, nil, nil, nil, nil)
	sub := &domain.Subscription{ID: "sub-1", ForType: "order"}

	require.NoError(t, o.AddSubscriptions("txn-1", "data-1", "payload", "created", []*domain.Subscription{sub}))
	require.NoError(t, o.AddSubscriptions("txn-1", "data-1", "payload", "created", []*domain.Subscription{sub}))

	key := dataEventKey{dataID: "data-1", event: "created"}
	assert.Len(t, o.pending[key], 1)
}

func TestTPCBegin_MemoizesSerializationPerDataAndDialect(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	externalizer := mocks.NewMockExternalizer(ctrl)
	attemptRepo := mocks.NewMockDeliveryAttemptRepository(ctrl)

	externalizer.EXPECT().
		ToExternalRepresentation(gomock.Any(), "payload", "json", "", "").
		Return([]byte(`{"ok":true}`), nil).
		Times(1)
	attemptRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	o := New("txn-1", newTestDialects(), externalizer, nil, attemptRepo, nil, nil, nil, nil)

	subA := &domain.Subscription{ID: "sub-a", ForType: "order", SiteID: "site-1", To: "https://a.example.com/hook"}
	subB := &domain.Subscription{ID: "sub-b", ForType: "order", SiteID: "site-1", To: "https://b.example.com/hook"}

	require.NoError(t, o.AddSubscriptions("txn-1", "data-1", "payload", "created", []*domain.Subscription{subA, subB}))
	require.NoError(t, o.TPCBegin(context.Background(), "txn-1"))

	assert.Len(t, o.attempts, 2)
}

func TestTPCVote_BuildsShipmentPairs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	externalizer := mocks.NewMockExternalizer(ctrl)
	attemptRepo := mocks.NewMockDeliveryAttemptRepository(ctrl)

	externalizer.EXPECT().
		ToExternalRepresentation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]byte(`{}`), nil)
	attemptRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	o := New("txn-1", newTestDialects(), externalizer, nil, attemptRepo, nil, nil, nil, nil)
	sub := &domain.Subscription{ID: "sub-1", ForType: "order", SiteID: "site-1", To: "https://a.example.com/hook"}

	require.NoError(t, o.AddSubscriptions("txn-1", "data-1", "payload", "created", []*domain.Subscription{sub}))
	require.NoError(t, o.TPCBegin(context.Background(), "txn-1"))

	shipment, err := o.TPCVote("txn-1")
	require.NoError(t, err)
	require.Len(t, shipment.Pairs, 1)
	assert.Equal(t, "https://a.example.com/hook", shipment.Pairs[0].URL)
	assert.Equal(t, "sub-1", shipment.Pairs[0].SubscriptionID)
}

func TestTPCBegin_RejectsDestinationValidationFailureUpfront(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	externalizer := mocks.NewMockExternalizer(ctrl)
	attemptRepo := mocks.NewMockDeliveryAttemptRepository(ctrl)

	externalizer.EXPECT().
		ToExternalRepresentation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]byte(`{}`), nil)

	var created *domain.DeliveryAttempt
	attemptRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, attempt *domain.DeliveryAttempt) error {
			created = attempt
			return nil
		},
	)

	events := domain.NewInMemoryEventBus()
	received := make(chan domain.EventPayload, 1)
	events.Subscribe(domain.EventAttemptFailed, func(ctx context.Context, p domain.EventPayload) { received <- p })

	validator := &fakeValidator{rejectErr: &domain.ErrDestinationRejected{URL: "https://nope.invalid/hook", Reason: "host did not resolve"}}

	o := New("txn-1", newTestDialects(), externalizer, validator, attemptRepo, nil, events, nil, nil)
	sub := &domain.Subscription{ID: "sub-1", ForType: "order", SiteID: "site-1", To: "https://nope.invalid/hook"}

	require.NoError(t, o.AddSubscriptions("txn-1", "data-1", "payload", "created", []*domain.Subscription{sub}))
	require.NoError(t, o.TPCBegin(context.Background(), "txn-1"))

	require.NotNil(t, created)
	assert.Equal(t, domain.AttemptStatusFailed, created.Status())
	assert.Equal(t, domain.MsgDestinationValidationFailed, created.Message)
	assert.NotEmpty(t, created.InternalInfo.ExceptionHistory)

	// A destination-rejected attempt never reaches the shipment plan.
	assert.Empty(t, o.attempts)

	select {
	case p := <-received:
		assert.Equal(t, "sub-1", p.EntityID)
	default:
		t.Fatal("expected attempt-failed event to publish for the rejected destination")
	}
}

func TestAbort_DiscardsAccumulatedWork(t *testing.T) {
	o := New("txn-1", newTestDialects(), nil, nil, nil, nil, nil, nil, nil)
	sub := &domain.Subscription{ID: "sub-1", ForType: "order"}
	require.NoError(t, o.AddSubscriptions("txn-1", "data-1", "payload", "created", []*domain.Subscription{sub}))

	require.NoError(t, o.Abort("txn-1"))

	key := dataEventKey{dataID: "data-1", event: "created"}
	assert.Empty(t, o.pending[key])
}

func TestWriteBack_ResolvesSuccessfulAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	attemptRepo := mocks.NewMockDeliveryAttemptRepository(ctrl)
	attempt := domain.NewDeliveryAttempt("att-1", "sub-1", "site-1", time.Now(), domain.Originated{})
	attemptRepo.EXPECT().GetByID(gomock.Any(), "site-1", "att-1").Return(attempt, nil)
	attemptRepo.EXPECT().Resolve(gomock.Any(), attempt).Return(nil)

	events := domain.NewInMemoryEventBus()
	received := make(chan domain.EventPayload, 1)
	events.Subscribe(domain.EventAttemptSucceeded, func(ctx context.Context, p domain.EventPayload) { received <- p })

	shipment := &domain.ShipmentInfo{Pairs: []*domain.ShipmentPair{
		{SiteID: "site-1", SubscriptionID: "sub-1", AttemptID: "att-1", Response: &domain.ResponseRecord{StatusCode: 200}},
	}}

	writeBack := WriteBack(attemptRepo, events)
	require.NoError(t, writeBack(context.Background(), shipment))
	assert.Equal(t, domain.AttemptStatusSuccessful, attempt.Status())

	select {
	case p := <-received:
		assert.Equal(t, "sub-1", p.EntityID)
	default:
		t.Fatal("expected attempt-succeeded event to publish")
	}
}

func TestWriteBack_ResolvesTransportErrorAsFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	attemptRepo := mocks.NewMockDeliveryAttemptRepository(ctrl)
	attempt := domain.NewDeliveryAttempt("att-1", "sub-1", "site-1", time.Now(), domain.Originated{})
	attemptRepo.EXPECT().GetByID(gomock.Any(), "site-1", "att-1").Return(attempt, nil)
	attemptRepo.EXPECT().Resolve(gomock.Any(), attempt).Return(nil)

	events := domain.NewInMemoryEventBus()

	shipment := &domain.ShipmentInfo{Pairs: []*domain.ShipmentPair{
		{SiteID: "site-1", SubscriptionID: "sub-1", AttemptID: "att-1", TransportError: "connection refused"},
	}}

	writeBack := WriteBack(attemptRepo, events)
	require.NoError(t, writeBack(context.Background(), shipment))
	assert.Equal(t, domain.AttemptStatusFailed, attempt.Status())
	assert.Equal(t, domain.MsgTransportError, attempt.Message)
}
