// Package events is the in-process publish/subscribe plumbing modules use to
// react to each other's state changes. It knows nothing about the events
// themselves; those are declared by internal/events.
package events

import (
	"context"
	"time"
)

// Event is anything that can be published. EventName is the subscription
// key.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent is embedded by concrete events to carry their timestamp.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent stamps an event with the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

// Handler reacts to a published event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function subscribe.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// Bus routes events to the handlers subscribed to their name.
type Bus interface {
	// Publish is fire-and-forget: handlers run detached from the caller and
	// their errors are only logged.
	Publish(ctx context.Context, event Event)
	// PublishSync runs every handler before returning and reports their
	// combined error.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
