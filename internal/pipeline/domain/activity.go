package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActivityType classifies an entry in a lead's activity log.
type ActivityType string

const (
	ActivityCall          ActivityType = "call"
	ActivityEmail         ActivityType = "email"
	ActivityMeeting       ActivityType = "meeting"
	ActivityNote          ActivityType = "note"
	ActivityStageChange   ActivityType = "stage_change"
	ActivityTaskCompleted ActivityType = "task_completed"
	ActivityFollowUp      ActivityType = "follow_up"
)

// ParseActivityType converts raw input into an ActivityType.
func ParseActivityType(raw string) (ActivityType, error) {
	switch t := ActivityType(raw); t {
	case ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote,
		ActivityStageChange, ActivityTaskCompleted, ActivityFollowUp:
		return t, nil
	default:
		return "", fmt.Errorf("unknown activity type %q", raw)
	}
}

// IsEngagement reports whether the activity counts as contact with the lead
// and therefore refreshes engagement recency.
func (t ActivityType) IsEngagement() bool {
	switch t {
	case ActivityCall, ActivityEmail, ActivityMeeting, ActivityFollowUp:
		return true
	default:
		return false
	}
}

// IsManual reports whether callers may record this type directly.
// stage_change entries are written only by the state machine.
func (t ActivityType) IsManual() bool {
	return t != ActivityStageChange
}

// Outcome is the optional result of an interaction.
type Outcome string

const (
	OutcomePositive Outcome = "positive"
	OutcomeNeutral  Outcome = "neutral"
	OutcomeNegative Outcome = "negative"
)

// ParseOutcome converts raw input into an Outcome.
func ParseOutcome(raw string) (Outcome, error) {
	switch o := Outcome(raw); o {
	case OutcomePositive, OutcomeNeutral, OutcomeNegative:
		return o, nil
	default:
		return "", fmt.Errorf("unknown outcome %q", raw)
	}
}

// Activity is one immutable entry of a lead's activity log.
type Activity struct {
	ID            uuid.UUID
	LeadID        uuid.UUID
	OwnerID       uuid.UUID
	Type          ActivityType
	Subject       string
	Description   string
	Outcome       *Outcome
	PreviousStage *Stage
	NewStage      *Stage
	ActorID       *uuid.UUID
	CreatedAt     time.Time
}

// NewStageChangeActivity builds the log entry for a committed stage change.
func NewStageChangeActivity(lead Lead, previous Stage, actorID *uuid.UUID, note string, now time.Time) Activity {
	prev := previous
	next := lead.Stage
	return Activity{
		ID:            uuid.New(),
		LeadID:        lead.ID,
		OwnerID:       lead.OwnerID,
		Type:          ActivityStageChange,
		Subject:       fmt.Sprintf("Stage changed from %s to %s", previous, lead.Stage),
		Description:   note,
		PreviousStage: &prev,
		NewStage:      &next,
		ActorID:       actorID,
		CreatedAt:     now,
	}
}
