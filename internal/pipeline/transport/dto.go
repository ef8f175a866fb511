package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type ContactInfoRequest struct {
	Email   string `json:"email" validate:"omitempty,email,max=320"`
	Phone   string `json:"phone" validate:"max=40"`
	Company string `json:"company" validate:"max=200"`
}

type ScoreFactorsRequest struct {
	BudgetConfirmed    bool `json:"budgetConfirmed"`
	AuthorityConfirmed bool `json:"authorityConfirmed"`
	NeedConfirmed      bool `json:"needConfirmed"`
	TimelineUrgency    int  `json:"timelineUrgency" validate:"min=0,max=5"`
}

type CreateLeadRequest struct {
	Name                string               `json:"name" validate:"required,min=1,max=200"`
	Contact             ContactInfoRequest   `json:"contact"`
	EstimatedValueCents int64                `json:"estimatedValueCents" validate:"min=0"`
	ScoreFactors        *ScoreFactorsRequest `json:"scoreFactors,omitempty"`
}

// UpdateLeadRequest changes descriptive fields only. Nil fields are left
// untouched; an empty contact string clears that field.
type UpdateLeadRequest struct {
	Name                *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email               *string `json:"email,omitempty" validate:"omitempty,max=320"`
	Phone               *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Company             *string `json:"company,omitempty" validate:"omitempty,max=200"`
	EstimatedValueCents *int64  `json:"estimatedValueCents,omitempty" validate:"omitempty,min=0"`
}

type TransitionRequest struct {
	Stage string `json:"stage" validate:"required"`
	Note  string `json:"note" validate:"max=2000"`
}

type ReopenRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

type RecordActivityRequest struct {
	Type        string  `json:"type" validate:"required"`
	Subject     string  `json:"subject" validate:"required,min=1,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Outcome     *string `json:"outcome,omitempty"`
}

// ScheduleFollowUpRequest sets the follow-up date, or clears it with null.
type ScheduleFollowUpRequest struct {
	Date OptionalTime `json:"date"`
}

type ListLeadsRequest struct {
	Stages    []string `form:"stage"`
	Category  string   `form:"category" validate:"omitempty,oneof=cold warm hot"`
	Search    string   `form:"search" validate:"max=100"`
	OpenOnly  bool     `form:"open"`
	Overdue   bool     `form:"overdue"`
	Page      int      `form:"page" validate:"omitempty,min=1"`
	PageSize  int      `form:"pageSize" validate:"omitempty,min=1,max=100"`
	SortBy    string   `form:"sortBy" validate:"omitempty,oneof=createdAt updatedAt name score value stageEnteredAt nextFollowUpDate"`
	SortOrder string   `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

type ListActivitiesRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=500"`
}

// Response DTOs

type ContactInfoResponse struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

type ScoreFactorsResponse struct {
	LastEngagementAt   *time.Time `json:"lastEngagementAt,omitempty"`
	BudgetConfirmed    bool       `json:"budgetConfirmed"`
	AuthorityConfirmed bool       `json:"authorityConfirmed"`
	NeedConfirmed      bool       `json:"needConfirmed"`
	TimelineUrgency    int        `json:"timelineUrgency"`
}

type ScoreBreakdownResponse struct {
	EngagementRecency  float64 `json:"engagementRecency"`
	BudgetConfirmed    float64 `json:"budgetConfirmed"`
	AuthorityConfirmed float64 `json:"authorityConfirmed"`
	NeedConfirmed      float64 `json:"needConfirmed"`
	TimelineUrgency    float64 `json:"timelineUrgency"`
}

type LeadResponse struct {
	ID                  uuid.UUID               `json:"id"`
	OwnerID             uuid.UUID               `json:"ownerId"`
	Name                string                  `json:"name"`
	Contact             ContactInfoResponse     `json:"contact"`
	Stage               string                  `json:"stage"`
	EstimatedValueCents int64                   `json:"estimatedValueCents"`
	ScoreFactors        ScoreFactorsResponse    `json:"scoreFactors"`
	TotalScore          int                     `json:"totalScore"`
	ScoreCategory       string                  `json:"scoreCategory"`
	ScoreBreakdown      *ScoreBreakdownResponse `json:"scoreBreakdown,omitempty"`
	DaysInCurrentStage  int                     `json:"daysInCurrentStage"`
	StageEnteredAt      time.Time               `json:"stageEnteredAt"`
	NextFollowUpDate    *time.Time              `json:"nextFollowUpDate,omitempty"`
	FollowUpOverdue     bool                    `json:"followUpOverdue"`
	CreatedAt           time.Time               `json:"createdAt"`
	UpdatedAt           time.Time               `json:"updatedAt"`
	ClosedAt            *time.Time              `json:"closedAt,omitempty"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type ActivityResponse struct {
	ID            uuid.UUID  `json:"id"`
	LeadID        uuid.UUID  `json:"leadId"`
	Type          string     `json:"type"`
	Subject       string     `json:"subject"`
	Description   string     `json:"description,omitempty"`
	Outcome       *string    `json:"outcome,omitempty"`
	PreviousStage *string    `json:"previousStage,omitempty"`
	NewStage      *string    `json:"newStage,omitempty"`
	ActorID       *uuid.UUID `json:"actorId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type ActivityListResponse struct {
	Items []ActivityResponse `json:"items"`
}

// RecordActivityResponse returns the new entry with the lead as rescored.
type RecordActivityResponse struct {
	Activity ActivityResponse `json:"activity"`
	Lead     LeadResponse     `json:"lead"`
}

type TransitionResponse struct {
	Lead     LeadResponse     `json:"lead"`
	Activity ActivityResponse `json:"activity"`
}

type StageSummaryResponse struct {
	Stage       string  `json:"stage"`
	Count       int     `json:"count"`
	ValueCents  int64   `json:"valueCents"`
	Probability float64 `json:"probability"`
}

type StageConversionResponse struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Reached  int     `json:"reached"`
	Advanced int     `json:"advanced"`
	Rate     float64 `json:"rate"`
}

type ConversionRatesResponse struct {
	OverallWinRate float64                   `json:"overallWinRate"`
	StageToStage   []StageConversionResponse `json:"stageToStage"`
}

type MetricsResponse struct {
	TotalPipelineValueCents    int64                   `json:"totalPipelineValueCents"`
	WeightedPipelineValueCents int64                   `json:"weightedPipelineValueCents"`
	ByStage                    []StageSummaryResponse  `json:"byStage"`
	ConversionRates            ConversionRatesResponse `json:"conversionRates"`
	AvgSalesCycleDays          float64                 `json:"avgSalesCycleDays"`
	ActivitiesThisWeek         int                     `json:"activitiesThisWeek"`
	TasksOverdue               int                     `json:"tasksOverdue"`
	OpenLeads                  int                     `json:"openLeads"`
	WonLeads                   int                     `json:"wonLeads"`
	LostLeads                  int                     `json:"lostLeads"`
	WonValueCents              int64                   `json:"wonValueCents"`
	NeedingAttention           int                     `json:"needingAttention"`
	HotLeads                   int                     `json:"hotLeads"`
	AverageOpenScore           float64                 `json:"averageOpenScore"`
	GeneratedAt                time.Time               `json:"generatedAt"`
}

type DashboardResponse struct {
	Metrics          MetricsResponse `json:"metrics"`
	NeedingAttention []LeadResponse  `json:"needingAttention"`
	HotLeads         []LeadResponse  `json:"hotLeads"`
	OverdueFollowUps []LeadResponse  `json:"overdueFollowUps"`
}
