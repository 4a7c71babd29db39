package mocks

import (
	"context"
	"reflect"

	"github.com/golang/mock/gomock"
	"github.com/nti-labs/webhooks/internal/domain"
)

// MockAuthentication is a mock of Authentication interface
type MockAuthentication struct {
	ctrl     *gomock.Controller
	recorder *MockAuthenticationMockRecorder
}

// MockAuthenticationMockRecorder is the mock recorder for MockAuthentication
type MockAuthenticationMockRecorder struct {
	mock *MockAuthentication
}

// NewMockAuthentication creates a new mock instance
func NewMockAuthentication(ctrl *gomock.Controller) *MockAuthentication {
	mock := &MockAuthentication{ctrl: ctrl}
	mock.recorder = &MockAuthenticationMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use
func (m *MockAuthentication) EXPECT() *MockAuthenticationMockRecorder {
	return m.recorder
}

// GetPrincipal mocks base method
func (m *MockAuthentication) GetPrincipal(ctx context.Context, id string) (domain.Principal, bool) {
	ret := m.ctrl.Call(m, "GetPrincipal", ctx, id)
	ret0, _ := ret[0].(domain.Principal)
	ret1, _ := ret[1].(bool)
	return ret0, ret1
}

// GetPrincipal indicates an expected call of GetPrincipal
func (mr *MockAuthenticationMockRecorder) GetPrincipal(ctx, id interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetPrincipal", reflect.TypeOf((*MockAuthentication)(nil).GetPrincipal), ctx, id)
}

// UnauthenticatedPrincipal mocks base method
func (m *MockAuthentication) UnauthenticatedPrincipal() domain.Principal {
	ret := m.ctrl.Call(m, "UnauthenticatedPrincipal")
	ret0, _ := ret[0].(domain.Principal)
	return ret0
}

// UnauthenticatedPrincipal indicates an expected call of UnauthenticatedPrincipal
func (mr *MockAuthenticationMockRecorder) UnauthenticatedPrincipal() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UnauthenticatedPrincipal", reflect.TypeOf((*MockAuthentication)(nil).UnauthenticatedPrincipal))
}

// GetPermission mocks base method
func (m *MockAuthentication) GetPermission(ctx context.Context, id string) (domain.Permission, bool) {
	ret := m.ctrl.Call(m, "GetPermission", ctx, id)
	ret0, _ := ret[0].(domain.Permission)
	ret1, _ := ret[1].(bool)
	return ret0, ret1
}

// GetPermission indicates an expected call of GetPermission
func (mr *MockAuthenticationMockRecorder) GetPermission(ctx, id interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetPermission", reflect.TypeOf((*MockAuthentication)(nil).GetPermission), ctx, id)
}

// CheckPermission mocks base method
func (m *MockAuthentication) CheckPermission(ctx context.Context, principal domain.Principal, permission domain.Permission, data any) bool {
	ret := m.ctrl.Call(m, "CheckPermission", ctx, principal, permission, data)
	ret0, _ := ret[0].(bool)
	return ret0
}

// CheckPermission indicates an expected call of CheckPermission
func (mr *MockAuthenticationMockRecorder) CheckPermission(ctx, principal, permission, data interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CheckPermission", reflect.TypeOf((*MockAuthentication)(nil).CheckPermission), ctx, principal, permission, data)
}

// GrantDefaultSubscriptionAccess mocks base method
func (m *MockAuthentication) GrantDefaultSubscriptionAccess(ctx context.Context, ownerID, subscriptionID string) error {
	ret := m.ctrl.Call(m, "GrantDefaultSubscriptionAccess", ctx, ownerID, subscriptionID)
	ret0, _ := ret[0].(error)
	return ret0
}

// GrantDefaultSubscriptionAccess indicates an expected call of GrantDefaultSubscriptionAccess
func (mr *MockAuthenticationMockRecorder) GrantDefaultSubscriptionAccess(ctx, ownerID, subscriptionID interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GrantDefaultSubscriptionAccess", reflect.TypeOf((*MockAuthentication)(nil).GrantDefaultSubscriptionAccess), ctx, ownerID, subscriptionID)
}
