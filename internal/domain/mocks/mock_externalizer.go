package mocks

import (
	"context"
	"reflect"

	"github.com/golang/mock/gomock"
)

// MockExternalizer is a mock of Externalizer interface
type MockExternalizer struct {
	ctrl     *gomock.Controller
	recorder *MockExternalizerMockRecorder
}

// MockExternalizerMockRecorder is the mock recorder for MockExternalizer
type MockExternalizerMockRecorder struct {
	mock *MockExternalizer
}

// NewMockExternalizer creates a new mock instance
func NewMockExternalizer(ctrl *gomock.Controller) *MockExternalizer {
	mock := &MockExternalizer{ctrl: ctrl}
	mock.recorder = &MockExternalizerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use
func (m *MockExternalizer) EXPECT() *MockExternalizerMockRecorder {
	return m.recorder
}

// ToExternalRepresentation mocks base method
func (m *MockExternalizer) ToExternalRepresentation(ctx context.Context, payload any, format, name, policyName string) ([]byte, error) {
	ret := m.ctrl.Call(m, "ToExternalRepresentation", ctx, payload, format, name, policyName)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ToExternalRepresentation indicates an expected call of ToExternalRepresentation
func (mr *MockExternalizerMockRecorder) ToExternalRepresentation(ctx, payload, format, name, policyName interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ToExternalRepresentation", reflect.TypeOf((*MockExternalizer)(nil).ToExternalRepresentation), ctx, payload, format, name, policyName)
}
