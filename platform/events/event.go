// Package events provides the in-process event bus that carries pipeline
// facts from the services to subscribers such as the notification forwarder.
// This is part of the platform layer and contains no business logic.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every fact published on the bus.
type Event interface {
	// EventName is the routing name subscribers register under.
	EventName() string
	// OccurredAt is when the underlying change was committed.
	OccurredAt() time.Time
}

// BaseEvent is embedded by concrete events. ID lets downstream consumers
// drop duplicates when a transport redelivers.
type BaseEvent struct {
	ID        uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns the commit time.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// EventID returns the unique id assigned when the event was built.
func (e BaseEvent) EventID() uuid.UUID {
	return e.ID
}

// NewBaseEvent stamps an event with the wall clock.
func NewBaseEvent() BaseEvent {
	return NewBaseEventAt(time.Now())
}

// NewBaseEventAt stamps an event with t; services pass their injected clock.
func NewBaseEventAt(t time.Time) BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: t.UTC()}
}

// Identified is satisfied by events that embed BaseEvent.
type Identified interface {
	EventID() uuid.UUID
}

// Handler consumes events it subscribed to.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function subscribe.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus fans events out to subscribers by name.
type Bus interface {
	// Publish dispatches without waiting; handler errors are logged.
	Publish(ctx context.Context, event Event)

	// PublishSync runs every handler and returns the first error.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe attaches handler to eventName, as returned by EventName.
	Subscribe(eventName string, handler Handler)
}
