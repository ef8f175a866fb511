package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxTimelineUrgency is the top of the timeline urgency scale (must buy now).
const MaxTimelineUrgency = 5

// ScoreCategory is the coarse priority bucket derived from a lead's score.
type ScoreCategory string

const (
	CategoryCold ScoreCategory = "cold"
	CategoryWarm ScoreCategory = "warm"
	CategoryHot  ScoreCategory = "hot"
)

// ContactInfo holds optional contact details for a lead.
type ContactInfo struct {
	Email   string
	Phone   string
	Company string
}

// ScoreFactors are the inputs to the scoring model.
type ScoreFactors struct {
	// LastEngagementAt is maintained from engagement activities. Nil means
	// the lead was never engaged.
	LastEngagementAt   *time.Time
	BudgetConfirmed    bool
	AuthorityConfirmed bool
	NeedConfirmed      bool
	// TimelineUrgency ranges 0 (no timeline) to MaxTimelineUrgency.
	TimelineUrgency int
}

// Lead is one sales opportunity owned by a coach.
type Lead struct {
	ID                  uuid.UUID
	OwnerID             uuid.UUID
	Name                string
	Contact             ContactInfo
	Stage               Stage
	EstimatedValueCents int64
	ScoreFactors        ScoreFactors
	TotalScore          int
	ScoreCategory       ScoreCategory
	StageEnteredAt      time.Time
	NextFollowUpDate    *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ClosedAt            *time.Time
}

// IsOpen reports whether the lead is in a non-terminal stage.
func (l Lead) IsOpen() bool {
	return !l.Stage.IsTerminal()
}

// DaysInCurrentStage returns the whole days elapsed since the lead entered its
// current stage. It never goes negative.
func DaysInCurrentStage(lead Lead, now time.Time) int {
	elapsed := now.Sub(lead.StageEnteredAt)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}

// IsFollowUpOverdue reports whether an open lead's follow-up date has passed.
func IsFollowUpOverdue(lead Lead, now time.Time) bool {
	return lead.IsOpen() && lead.NextFollowUpDate != nil && lead.NextFollowUpDate.Before(now)
}
