// Package notification forwards pipeline domain events to the external
// notification system. Pipeline services never wait on it: the bus runs these
// handlers asynchronously and failures are only logged.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coaching_portal_backend/internal/events"
	"coaching_portal_backend/platform/logger"
)

// envelope is the wire shape shared by every transport.
type envelope struct {
	ID         string          `json:"id,omitempty"`
	Event      string          `json:"event"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Module handles all notification-related event subscriptions.
type Module struct {
	publisher Publisher
	log       *logger.Logger
}

func New(publisher Publisher, log *logger.Logger) *Module {
	return &Module{publisher: publisher, log: log}
}

// Name returns the module name.
func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes to the pipeline events the notification system consumes.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.LeadStageChanged{}.EventName(), m)
	bus.Subscribe(events.LeadActivityRecorded{}.EventName(), m)
	bus.Subscribe(events.FollowUpScheduled{}.EventName(), m)
	bus.Subscribe(events.FollowUpDue{}.EventName(), m)
	bus.Subscribe(events.LeadStalled{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch event.(type) {
	case events.LeadCreated,
		events.LeadStageChanged,
		events.LeadActivityRecorded,
		events.FollowUpScheduled,
		events.FollowUpDue,
		events.LeadStalled:
		return m.forward(ctx, event)
	default:
		return nil
	}
}

func (m *Module) forward(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.EventName(), err)
	}

	env := envelope{
		Event:      event.EventName(),
		OccurredAt: event.OccurredAt(),
		Payload:    payload,
	}
	if identified, ok := event.(events.Identified); ok {
		env.ID = identified.EventID().String()
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", event.EventName(), err)
	}

	if err := m.publisher.Publish(ctx, event.EventName(), body); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventName(), err)
	}
	return nil
}

// Close releases the underlying transport.
func (m *Module) Close() error {
	return m.publisher.Close()
}
