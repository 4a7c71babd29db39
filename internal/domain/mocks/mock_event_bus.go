package mocks

import (
	"context"
	"reflect"

	"github.com/golang/mock/gomock"
	"github.com/nti-labs/webhooks/internal/domain"
)

// MockEventBus is a mock of EventBus interface
type MockEventBus struct {
	ctrl     *gomock.Controller
	recorder *MockEventBusMockRecorder
}

// MockEventBusMockRecorder is the mock recorder for MockEventBus
type MockEventBusMockRecorder struct {
	mock *MockEventBus
}

// NewMockEventBus creates a new mock instance
func NewMockEventBus(ctrl *gomock.Controller) *MockEventBus {
	mock := &MockEventBus{ctrl: ctrl}
	mock.recorder = &MockEventBusMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use
func (m *MockEventBus) EXPECT() *MockEventBusMockRecorder {
	return m.recorder
}

// Publish mocks base method
func (m *MockEventBus) Publish(ctx context.Context, event domain.EventPayload) {
	m.ctrl.Call(m, "Publish", ctx, event)
}

// Publish indicates an expected call of Publish
func (mr *MockEventBusMockRecorder) Publish(ctx, event interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Publish", reflect.TypeOf((*MockEventBus)(nil).Publish), ctx, event)
}

// PublishWithAck mocks base method
func (m *MockEventBus) PublishWithAck(ctx context.Context, event domain.EventPayload, callback domain.EventAckCallback) {
	m.ctrl.Call(m, "PublishWithAck", ctx, event, callback)
}

// PublishWithAck indicates an expected call of PublishWithAck
func (mr *MockEventBusMockRecorder) PublishWithAck(ctx, event, callback interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PublishWithAck", reflect.TypeOf((*MockEventBus)(nil).PublishWithAck), ctx, event, callback)
}

// Subscribe mocks base method
func (m *MockEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) {
	m.ctrl.Call(m, "Subscribe", eventType, handler)
}

// Subscribe indicates an expected call of Subscribe
func (mr *MockEventBusMockRecorder) Subscribe(eventType, handler interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Subscribe", reflect.TypeOf((*MockEventBus)(nil).Subscribe), eventType, handler)
}

// Unsubscribe mocks base method
func (m *MockEventBus) Unsubscribe(eventType domain.EventType, handler domain.EventHandler) {
	m.ctrl.Call(m, "Unsubscribe", eventType, handler)
}

// Unsubscribe indicates an expected call of Unsubscribe
func (mr *MockEventBusMockRecorder) Unsubscribe(eventType, handler interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Unsubscribe", reflect.TypeOf((*MockEventBus)(nil).Unsubscribe), eventType, handler)
}
