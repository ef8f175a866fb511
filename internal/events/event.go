// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"coaching_portal_backend/platform/events"
	"coaching_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	Identified  = events.Identified
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// NewInMemoryBus builds the process-local bus both binaries use.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Pipeline Domain Events
// =============================================================================

// LeadCreated is published when a coach adds a new lead to the pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID              uuid.UUID `json:"leadId"`
	OwnerID             uuid.UUID `json:"ownerId"`
	Name                string    `json:"name"`
	EstimatedValueCents int64     `json:"estimatedValueCents"`
	TotalScore          int       `json:"totalScore"`
	ScoreCategory       string    `json:"scoreCategory"`
}

func (e LeadCreated) EventName() string { return "pipeline.lead.created" }

// LeadStageChanged is published after a stage transition has been committed.
// Delivery is fire-and-forget; subscribers own their retries.
type LeadStageChanged struct {
	BaseEvent
	LeadID        uuid.UUID  `json:"leadId"`
	OwnerID       uuid.UUID  `json:"ownerId"`
	ActorID       *uuid.UUID `json:"actorId,omitempty"`
	ActivityID    uuid.UUID  `json:"activityId"`
	PreviousStage string     `json:"previousStage"`
	NewStage      string     `json:"newStage"`
	Reopened      bool       `json:"reopened"`
	Note          string     `json:"note,omitempty"`
}

func (e LeadStageChanged) EventName() string { return "pipeline.lead.stage_changed" }

// LeadActivityRecorded is published when an activity is appended to a lead.
type LeadActivityRecorded struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	OwnerID       uuid.UUID `json:"ownerId"`
	ActivityID    uuid.UUID `json:"activityId"`
	ActivityType  string    `json:"activityType"`
	TotalScore    int       `json:"totalScore"`
	ScoreCategory string    `json:"scoreCategory"`
}

func (e LeadActivityRecorded) EventName() string { return "pipeline.lead.activity_recorded" }

// FollowUpScheduled is published when a follow-up date is set or cleared.
type FollowUpScheduled struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	OwnerID    uuid.UUID  `json:"ownerId"`
	FollowUpAt *time.Time `json:"followUpAt,omitempty"`
}

func (e FollowUpScheduled) EventName() string { return "pipeline.lead.follow_up_scheduled" }

// FollowUpDue is published by the scheduler worker when a scheduled follow-up
// is reached and still matches the lead.
type FollowUpDue struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	OwnerID    uuid.UUID `json:"ownerId"`
	LeadName   string    `json:"leadName"`
	Stage      string    `json:"stage"`
	FollowUpAt time.Time `json:"followUpAt"`
}

func (e FollowUpDue) EventName() string { return "pipeline.lead.follow_up_due" }

// LeadStalled is published by the stall sweep for an open lead that has sat in
// its stage past the attention threshold.
type LeadStalled struct {
	BaseEvent
	LeadID             uuid.UUID `json:"leadId"`
	OwnerID            uuid.UUID `json:"ownerId"`
	LeadName           string    `json:"leadName"`
	Stage              string    `json:"stage"`
	DaysInCurrentStage int       `json:"daysInCurrentStage"`
}

func (e LeadStalled) EventName() string { return "pipeline.lead.stalled" }
