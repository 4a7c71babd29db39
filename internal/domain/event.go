package domain

//go:generate mockgen -destination mocks/mock_event_bus.go -package mocks github.com/nti-labs/webhooks/internal/domain EventBus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// EventType defines the type of an event flowing through the EventBus
type EventType string

const (
	// EventAttemptSucceeded fires once a DeliveryAttempt resolves successfully
	EventAttemptSucceeded EventType = "attempt.succeeded"
	// EventAttemptFailed fires once a DeliveryAttempt resolves as failed
	EventAttemptFailed EventType = "attempt.failed"
	// EventApplicabilityPreconditionFailureLimitReached fires when a
	// subscription's consecutive precondition-failure counter crosses the
	// configured limit and the subscription is auto-deactivated
	EventApplicabilityPreconditionFailureLimitReached EventType = "subscription.precondition_failure_limit_reached"
	// EventSubscriptionDeactivated is published by the retention handler after
	// it deactivates a subscription (precondition limit, or
	// all-failed-at-retention-cap); manual deactivation does not publish it
	EventSubscriptionDeactivated EventType = "subscription.deactivated"
	// EventPrincipalRemoved is published by the hosting application when a
	// principal (user, service account, ...) is deleted, triggering cleanup
	// of subscriptions owned by that principal
	EventPrincipalRemoved EventType = "principal.removed"
)

// EventPayload represents the data associated with an event
type EventPayload struct {
	Type    EventType              `json:"type"`
	SiteID  string                 `json:"site_id"`
	EntityID string                `json:"entity_id"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, payload EventPayload)

// EventAckCallback is a function that's called after an event is processed
// to acknowledge success or failure
type EventAckCallback func(err error)

// EventBus provides a way for services to publish and subscribe to events
type EventBus interface {
	// Publish sends an event to all subscribers
	Publish(ctx context.Context, event EventPayload)

	// PublishWithAck sends an event to all subscribers and calls the acknowledgment callback
	// when all subscribers have processed the event or if an error occurs
	PublishWithAck(ctx context.Context, event EventPayload, callback EventAckCallback)

	// Subscribe registers a handler for a specific event type
	Subscribe(eventType EventType, handler EventHandler)

	// Unsubscribe removes a handler for an event type
	Unsubscribe(eventType EventType, handler EventHandler)
}

// InMemoryEventBus is a simple in-memory implementation of the EventBus
type InMemoryEventBus struct {
	subscribers map[EventType][]EventHandler
	mu          sync.RWMutex
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[EventType][]EventHandler),
	}
}

// Publish sends an event to all subscribers
func (b *InMemoryEventBus) Publish(ctx context.Context, event EventPayload) {
	b.PublishWithAck(ctx, event, nil)
}

// PublishWithAck sends an event to all subscribers and calls the acknowledgment callback
func (b *InMemoryEventBus) PublishWithAck(ctx context.Context, event EventPayload, callback EventAckCallback) {
	b.mu.RLock()
	handlers, exists := b.subscribers[event.Type]
	b.mu.RUnlock()

	if !exists || len(handlers) == 0 {
		if callback != nil {
			callback(nil)
		}
		return
	}

	if callback != nil {
		var wg sync.WaitGroup
		wg.Add(len(handlers))

		errCh := make(chan error, len(handlers))

		for _, handler := range handlers {
			go func(h EventHandler) {
				defer wg.Done()

				handlerCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()

				done := make(chan struct{})

				go func() {
					defer close(done)

					defer func() {
						if r := recover(); r != nil {
							errCh <- fmt.Errorf("panic in event handler: %v", r)
						}
					}()

					h(handlerCtx, event)
				}()

				select {
				case <-done:
				case <-handlerCtx.Done():
					errCh <- fmt.Errorf("event handler timed out: %v", handlerCtx.Err())
				}
			}(handler)
		}

		go func() {
			wg.Wait()
			close(errCh)

			var allErrors []error
			for err := range errCh {
				allErrors = append(allErrors, err)
			}

			if len(allErrors) > 0 {
				errMsg := fmt.Sprintf("%d errors occurred processing event", len(allErrors))
				for i, err := range allErrors {
					errMsg += fmt.Sprintf("\n  %d: %v", i+1, err)
				}
				callback(fmt.Errorf("%s", errMsg))
			} else {
				callback(nil)
			}
		}()
	} else {
		for _, handler := range handlers {
			go func(h EventHandler) {
				defer func() {
					if r := recover(); r != nil {
						fmt.Printf("ERROR: Panic in event handler: %v\n", r)
					}
				}()

				h(ctx, event)
			}(handler)
		}
	}
}

// Subscribe registers a handler for a specific event type
func (b *InMemoryEventBus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[eventType]; !exists {
		b.subscribers[eventType] = make([]EventHandler, 0)
	}

	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Unsubscribe removes a handler for an event type
func (b *InMemoryEventBus) Unsubscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers, exists := b.subscribers[eventType]
	if !exists {
		return
	}

	target := reflect.ValueOf(handler).Pointer()
	for i, h := range handlers {
		// Go doesn't support function comparison; the handlers' code pointers
		// are compared instead, so closures made by the same function literal
		// (or method values of the same method) count as the same handler and
		// the first one found is removed.
		if reflect.ValueOf(h).Pointer() == target {
			handlers[i] = handlers[len(handlers)-1]
			b.subscribers[eventType] = handlers[:len(handlers)-1]
			break
		}
	}
}
