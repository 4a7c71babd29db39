package mocks

import (
	"context"
	"reflect"

	"github.com/golang/mock/gomock"
	"github.com/nti-labs/webhooks/internal/domain"
)

// MockSubscriptionRepository is a mock of SubscriptionRepository interface
type MockSubscriptionRepository struct {
	ctrl     *gomock.Controller
	recorder *MockSubscriptionRepositoryMockRecorder
}

// MockSubscriptionRepositoryMockRecorder is the mock recorder for MockSubscriptionRepository
type MockSubscriptionRepositoryMockRecorder struct {
	mock *MockSubscriptionRepository
}

// NewMockSubscriptionRepository creates a new mock instance
func NewMockSubscriptionRepository(ctrl *gomock.Controller) *MockSubscriptionRepository {
	mock := &MockSubscriptionRepository{ctrl: ctrl}
	mock.recorder = &MockSubscriptionRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use
func (m *MockSubscriptionRepository) EXPECT() *MockSubscriptionRepositoryMockRecorder {
	return m.recorder
}

// Create mocks base method
func (m *MockSubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	ret := m.ctrl.Call(m, "Create", ctx, sub)
	ret0, _ := ret[0].(error)
	return ret0
}

// Create indicates an expected call of Create
func (mr *MockSubscriptionRepositoryMockRecorder) Create(ctx, sub interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Create", reflect.TypeOf((*MockSubscriptionRepository)(nil).Create), ctx, sub)
}

// GetByID mocks base method
func (m *MockSubscriptionRepository) GetByID(ctx context.Context, siteID, id string) (*domain.Subscription, error) {
	ret := m.ctrl.Call(m, "GetByID", ctx, siteID, id)
	ret0, _ := ret[0].(*domain.Subscription)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByID indicates an expected call of GetByID
func (mr *MockSubscriptionRepositoryMockRecorder) GetByID(ctx, siteID, id interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockSubscriptionRepository)(nil).GetByID), ctx, siteID, id)
}

// List mocks base method
func (m *MockSubscriptionRepository) List(ctx context.Context, siteID string) ([]*domain.Subscription, error) {
	ret := m.ctrl.Call(m, "List", ctx, siteID)
	ret0, _ := ret[0].([]*domain.Subscription)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// List indicates an expected call of List
func (mr *MockSubscriptionRepositoryMockRecorder) List(ctx, siteID interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "List", reflect.TypeOf((*MockSubscriptionRepository)(nil).List), ctx, siteID)
}

// ListByOwner mocks base method
func (m *MockSubscriptionRepository) ListByOwner(ctx context.Context, siteID, ownerID string) ([]*domain.Subscription, error) {
	ret := m.ctrl.Call(m, "ListByOwner", ctx, siteID, ownerID)
	ret0, _ := ret[0].([]*domain.Subscription)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListByOwner indicates an expected call of ListByOwner
func (mr *MockSubscriptionRepositoryMockRecorder) ListByOwner(ctx, siteID, ownerID interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListByOwner", reflect.TypeOf((*MockSubscriptionRepository)(nil).ListByOwner), ctx, siteID, ownerID)
}

// ListForTypeAndEvent mocks base method
func (m *MockSubscriptionRepository) ListForTypeAndEvent(ctx context.Context, siteID, forType, when string) ([]*domain.Subscription, error) {
	ret := m.ctrl.Call(m, "ListForTypeAndEvent", ctx, siteID, forType, when)
	ret0, _ := ret[0].([]*domain.Subscription)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListForTypeAndEvent indicates an expected call of ListForTypeAndEvent
func (mr *MockSubscriptionRepositoryMockRecorder) ListForTypeAndEvent(ctx, siteID, forType, when interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListForTypeAndEvent", reflect.TypeOf((*MockSubscriptionRepository)(nil).ListForTypeAndEvent), ctx, siteID, forType, when)
}

// Update mocks base method
func (m *MockSubscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	ret := m.ctrl.Call(m, "Update", ctx, sub)
	ret0, _ := ret[0].(error)
	return ret0
}

// Update indicates an expected call of Update
func (mr *MockSubscriptionRepositoryMockRecorder) Update(ctx, sub interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Update", reflect.TypeOf((*MockSubscriptionRepository)(nil).Update), ctx, sub)
}

// Delete mocks base method
func (m *MockSubscriptionRepository) Delete(ctx context.Context, siteID, id string) error {
	ret := m.ctrl.Call(m, "Delete", ctx, siteID, id)
	ret0, _ := ret[0].(error)
	return ret0
}

// Delete indicates an expected call of Delete
func (mr *MockSubscriptionRepositoryMockRecorder) Delete(ctx, siteID, id interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Delete", reflect.TypeOf((*MockSubscriptionRepository)(nil).Delete), ctx, siteID, id)
}
