package transport

import (
	"time"

	"coaching_portal_backend/internal/pipeline/domain"
	"coaching_portal_backend/internal/pipeline/metrics"
	"coaching_portal_backend/internal/pipeline/scoring"
)

// ToLeadResponse maps a lead to its response DTO. Read-time fields such as
// days in stage are derived against now.
func ToLeadResponse(lead domain.Lead, now time.Time) LeadResponse {
	return LeadResponse{
		ID:      lead.ID,
		OwnerID: lead.OwnerID,
		Name:    lead.Name,
		Contact: ContactInfoResponse{
			Email:   lead.Contact.Email,
			Phone:   lead.Contact.Phone,
			Company: lead.Contact.Company,
		},
		Stage:               string(lead.Stage),
		EstimatedValueCents: lead.EstimatedValueCents,
		ScoreFactors: ScoreFactorsResponse{
			LastEngagementAt:   lead.ScoreFactors.LastEngagementAt,
			BudgetConfirmed:    lead.ScoreFactors.BudgetConfirmed,
			AuthorityConfirmed: lead.ScoreFactors.AuthorityConfirmed,
			NeedConfirmed:      lead.ScoreFactors.NeedConfirmed,
			TimelineUrgency:    lead.ScoreFactors.TimelineUrgency,
		},
		TotalScore:         lead.TotalScore,
		ScoreCategory:      string(lead.ScoreCategory),
		DaysInCurrentStage: domain.DaysInCurrentStage(lead, now),
		StageEnteredAt:     lead.StageEnteredAt,
		NextFollowUpDate:   lead.NextFollowUpDate,
		FollowUpOverdue:    domain.IsFollowUpOverdue(lead, now),
		CreatedAt:          lead.CreatedAt,
		UpdatedAt:          lead.UpdatedAt,
		ClosedAt:           lead.ClosedAt,
	}
}

// ToLeadResponseWithBreakdown adds the per-factor score points.
func ToLeadResponseWithBreakdown(lead domain.Lead, breakdown scoring.Breakdown, now time.Time) LeadResponse {
	resp := ToLeadResponse(lead, now)
	resp.ScoreBreakdown = &ScoreBreakdownResponse{
		EngagementRecency:  breakdown.EngagementRecency,
		BudgetConfirmed:    breakdown.BudgetConfirmed,
		AuthorityConfirmed: breakdown.AuthorityConfirmed,
		NeedConfirmed:      breakdown.NeedConfirmed,
		TimelineUrgency:    breakdown.TimelineUrgency,
	}
	return resp
}

func ToLeadResponses(leads []domain.Lead, now time.Time) []LeadResponse {
	items := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, ToLeadResponse(lead, now))
	}
	return items
}

func ToActivityResponse(a domain.Activity) ActivityResponse {
	resp := ActivityResponse{
		ID:          a.ID,
		LeadID:      a.LeadID,
		Type:        string(a.Type),
		Subject:     a.Subject,
		Description: a.Description,
		ActorID:     a.ActorID,
		CreatedAt:   a.CreatedAt,
	}
	if a.Outcome != nil {
		o := string(*a.Outcome)
		resp.Outcome = &o
	}
	if a.PreviousStage != nil {
		s := string(*a.PreviousStage)
		resp.PreviousStage = &s
	}
	if a.NewStage != nil {
		s := string(*a.NewStage)
		resp.NewStage = &s
	}
	return resp
}

func ToActivityResponses(activities []domain.Activity) []ActivityResponse {
	items := make([]ActivityResponse, 0, len(activities))
	for _, a := range activities {
		items = append(items, ToActivityResponse(a))
	}
	return items
}

// ToMetricsResponse maps an aggregate snapshot, annotating each stage with the
// probability used for weighting.
func ToMetricsResponse(m metrics.PipelineMetrics, probabilities metrics.Probabilities, generatedAt time.Time) MetricsResponse {
	byStage := make([]StageSummaryResponse, 0, len(m.ByStage))
	for _, s := range m.ByStage {
		byStage = append(byStage, StageSummaryResponse{
			Stage:       string(s.Stage),
			Count:       s.Count,
			ValueCents:  s.ValueCents,
			Probability: probabilities.For(s.Stage),
		})
	}

	conversions := make([]StageConversionResponse, 0, len(m.ConversionRates.StageToStage))
	for _, c := range m.ConversionRates.StageToStage {
		conversions = append(conversions, StageConversionResponse{
			From:     string(c.From),
			To:       string(c.To),
			Reached:  c.Reached,
			Advanced: c.Advanced,
			Rate:     c.Rate,
		})
	}

	return MetricsResponse{
		TotalPipelineValueCents:    m.TotalPipelineValueCents,
		WeightedPipelineValueCents: m.WeightedPipelineValueCents,
		ByStage:                    byStage,
		ConversionRates: ConversionRatesResponse{
			OverallWinRate: m.ConversionRates.OverallWinRate,
			StageToStage:   conversions,
		},
		AvgSalesCycleDays:  m.AvgSalesCycleDays,
		ActivitiesThisWeek: m.ActivitiesThisWeek,
		TasksOverdue:       m.TasksOverdue,
		OpenLeads:          m.OpenLeads,
		WonLeads:           m.WonLeads,
		LostLeads:          m.LostLeads,
		WonValueCents:      m.WonValueCents,
		NeedingAttention:   m.NeedingAttention,
		HotLeads:           m.HotLeads,
		AverageOpenScore:   m.AverageOpenScore,
		GeneratedAt:        generatedAt,
	}
}
