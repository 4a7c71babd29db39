package mocks

import (
	"context"
	"reflect"

	"github.com/golang/mock/gomock"
	"github.com/nti-labs/webhooks/internal/domain"
)

// MockDeliveryAttemptRepository is a mock of DeliveryAttemptRepository interface
type MockDeliveryAttemptRepository struct {
	ctrl     *gomock.Controller
	recorder *MockDeliveryAttemptRepositoryMockRecorder
}

// MockDeliveryAttemptRepositoryMockRecorder is the mock recorder for MockDeliveryAttemptRepository
type MockDeliveryAttemptRepositoryMockRecorder struct {
	mock *MockDeliveryAttemptRepository
}

// NewMockDeliveryAttemptRepository creates a new mock instance
func NewMockDeliveryAttemptRepository(ctrl *gomock.Controller) *MockDeliveryAttemptRepository {
	mock := &MockDeliveryAttemptRepository{ctrl: ctrl}
	mock.recorder = &MockDeliveryAttemptRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use
func (m *MockDeliveryAttemptRepository) EXPECT() *MockDeliveryAttemptRepositoryMockRecorder {
	return m.recorder
}

// Create mocks base method
func (m *MockDeliveryAttemptRepository) Create(ctx context.Context, attempt *domain.DeliveryAttempt) error {
	ret := m.ctrl.Call(m, "Create", ctx, attempt)
	ret0, _ := ret[0].(error)
	return ret0
}

// Create indicates an expected call of Create
func (mr *MockDeliveryAttemptRepositoryMockRecorder) Create(ctx, attempt interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Create", reflect.TypeOf((*MockDeliveryAttemptRepository)(nil).Create), ctx, attempt)
}

// GetByID mocks base method
func (m *MockDeliveryAttemptRepository) GetByID(ctx context.Context, siteID, id string) (*domain.DeliveryAttempt, error) {
	ret := m.ctrl.Call(m, "GetByID", ctx, siteID, id)
	ret0, _ := ret[0].(*domain.DeliveryAttempt)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByID indicates an expected call of GetByID
func (mr *MockDeliveryAttemptRepositoryMockRecorder) GetByID(ctx, siteID, id interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockDeliveryAttemptRepository)(nil).GetByID), ctx, siteID, id)
}

// ListBySubscription mocks base method
func (m *MockDeliveryAttemptRepository) ListBySubscription(ctx context.Context, siteID, subscriptionID string, limit, offset int) ([]*domain.DeliveryAttempt, int, error) {
	ret := m.ctrl.Call(m, "ListBySubscription", ctx, siteID, subscriptionID, limit, offset)
	ret0, _ := ret[0].([]*domain.DeliveryAttempt)
	ret1, _ := ret[1].(int)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

// ListBySubscription indicates an expected call of ListBySubscription
func (mr *MockDeliveryAttemptRepositoryMockRecorder) ListBySubscription(ctx, siteID, subscriptionID, limit, offset interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListBySubscription", reflect.TypeOf((*MockDeliveryAttemptRepository)(nil).ListBySubscription), ctx, siteID, subscriptionID, limit, offset)
}

// Resolve mocks base method
func (m *MockDeliveryAttemptRepository) Resolve(ctx context.Context, attempt *domain.DeliveryAttempt) error {
	ret := m.ctrl.Call(m, "Resolve", ctx, attempt)
	ret0, _ := ret[0].(error)
	return ret0
}

// Resolve indicates an expected call of Resolve
func (mr *MockDeliveryAttemptRepositoryMockRecorder) Resolve(ctx, attempt interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Resolve", reflect.TypeOf((*MockDeliveryAttemptRepository)(nil).Resolve), ctx, attempt)
}

// DeleteOldestResolved mocks base method
func (m *MockDeliveryAttemptRepository) DeleteOldestResolved(ctx context.Context, siteID, subscriptionID string, keep int) (int, error) {
	ret := m.ctrl.Call(m, "DeleteOldestResolved", ctx, siteID, subscriptionID, keep)
	ret0, _ := ret[0].(int)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// DeleteOldestResolved indicates an expected call of DeleteOldestResolved
func (mr *MockDeliveryAttemptRepositoryMockRecorder) DeleteOldestResolved(ctx, siteID, subscriptionID, keep interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeleteOldestResolved", reflect.TypeOf((*MockDeliveryAttemptRepository)(nil).DeleteOldestResolved), ctx, siteID, subscriptionID, keep)
}

// CountBySubscription mocks base method
func (m *MockDeliveryAttemptRepository) CountBySubscription(ctx context.Context, siteID, subscriptionID string) (int, int, error) {
	ret := m.ctrl.Call(m, "CountBySubscription", ctx, siteID, subscriptionID)
	ret0, _ := ret[0].(int)
	ret1, _ := ret[1].(int)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

// CountBySubscription indicates an expected call of CountBySubscription
func (mr *MockDeliveryAttemptRepositoryMockRecorder) CountBySubscription(ctx, siteID, subscriptionID interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CountBySubscription", reflect.TypeOf((*MockDeliveryAttemptRepository)(nil).CountBySubscription), ctx, siteID, subscriptionID)
}
