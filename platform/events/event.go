// Package events provides the in-process event bus used for side effects
// that must not block or fail the operation that caused them (reminders,
// notification emails, audit logging).
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName is the subscription key, e.g. "feedback.sent".
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the occurrence time and is embedded by concrete events.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps an event with the current UTC time.
func NewBaseEvent() BaseEvent {
	return NewBaseEventAt(time.Now())
}

// NewBaseEventAt stamps an event with a caller supplied time.
func NewBaseEventAt(at time.Time) BaseEvent {
	return BaseEvent{Timestamp: at.UTC()}
}

// Handler processes one event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to subscribers.
type Bus interface {
	// Publish dispatches asynchronously; handler failures are logged only.
	Publish(ctx context.Context, event Event)
	// PublishSync dispatches in order and returns the joined handler errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
