// Package metrics derives dashboard statistics from a coach's leads and
// activities. Aggregation is a pure function of its inputs and keeps no state.
package metrics

import (
	"math"
	"sort"
	"time"

	"coaching_portal_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

// DefaultStallThresholdDays is how long an open lead may sit in one stage
// before it needs attention.
const DefaultStallThresholdDays = 7

const activityWindow = 7 * 24 * time.Hour

// Config holds the tunable inputs of the aggregator.
type Config struct {
	Probabilities      Probabilities
	StallThresholdDays int
}

// DefaultConfig returns the stock aggregator configuration.
func DefaultConfig() Config {
	return Config{
		Probabilities:      DefaultProbabilities(),
		StallThresholdDays: DefaultStallThresholdDays,
	}
}

// StageSummary is the lead count and value sitting in one stage.
type StageSummary struct {
	Stage      domain.Stage
	Count      int
	ValueCents int64
}

// StageConversion is the share of leads that reached From and later
// progressed past it.
type StageConversion struct {
	From     domain.Stage
	To       domain.Stage
	Reached  int
	Advanced int
	Rate     float64
}

// ConversionRates groups the win rate with stage-to-stage conversion.
type ConversionRates struct {
	OverallWinRate float64
	StageToStage   []StageConversion
}

// PipelineMetrics is a derived snapshot of one coach's pipeline.
type PipelineMetrics struct {
	TotalPipelineValueCents    int64
	WeightedPipelineValueCents int64
	ByStage                    []StageSummary
	ConversionRates            ConversionRates
	AvgSalesCycleDays          float64
	ActivitiesThisWeek         int
	TasksOverdue               int

	OpenLeads        int
	WonLeads         int
	LostLeads        int
	WonValueCents    int64
	NeedingAttention int
	HotLeads         int
	AverageOpenScore float64
}

// Aggregate computes the pipeline snapshot as of now.
func Aggregate(leads []domain.Lead, activities []domain.Activity, now time.Time, cfg Config) PipelineMetrics {
	m := PipelineMetrics{
		ByStage: make([]StageSummary, 0, len(domain.AllStages())),
	}

	byStage := make(map[domain.Stage]*StageSummary, len(domain.AllStages()))
	for _, stage := range domain.AllStages() {
		m.ByStage = append(m.ByStage, StageSummary{Stage: stage})
	}
	for i := range m.ByStage {
		byStage[m.ByStage[i].Stage] = &m.ByStage[i]
	}

	var (
		cycleDaysSum float64
		openScoreSum int
	)

	for _, lead := range leads {
		if summary, ok := byStage[lead.Stage]; ok {
			summary.Count++
			summary.ValueCents += lead.EstimatedValueCents
		}

		switch lead.Stage {
		case domain.StageClosedWon:
			m.WonLeads++
			m.WonValueCents += lead.EstimatedValueCents
			if lead.ClosedAt != nil {
				cycleDaysSum += lead.ClosedAt.Sub(lead.CreatedAt).Hours() / 24
			}
			continue
		case domain.StageClosedLost:
			m.LostLeads++
			continue
		}

		m.OpenLeads++
		m.TotalPipelineValueCents += lead.EstimatedValueCents
		m.WeightedPipelineValueCents += weightedValue(lead.EstimatedValueCents, cfg.Probabilities.For(lead.Stage))
		openScoreSum += lead.TotalScore

		if domain.IsFollowUpOverdue(lead, now) {
			m.TasksOverdue++
		}
		if isStalled(lead, now, cfg.StallThresholdDays) {
			m.NeedingAttention++
		}
		if lead.ScoreCategory == domain.CategoryHot {
			m.HotLeads++
		}
	}

	if closed := m.WonLeads + m.LostLeads; closed > 0 {
		m.ConversionRates.OverallWinRate = ratio(m.WonLeads, closed)
	}
	if m.WonLeads > 0 {
		m.AvgSalesCycleDays = round1(math.Max(cycleDaysSum, 0) / float64(m.WonLeads))
	}
	if m.OpenLeads > 0 {
		m.AverageOpenScore = round1(float64(openScoreSum) / float64(m.OpenLeads))
	}

	windowStart := now.Add(-activityWindow)
	for _, a := range activities {
		if a.CreatedAt.After(windowStart) && !a.CreatedAt.After(now) {
			m.ActivitiesThisWeek++
		}
	}

	m.ConversionRates.StageToStage = stageConversions(leads, activities)
	return m
}

// NeedingAttention returns open leads that have been in their current stage
// for more than days, longest-stalled first.
func NeedingAttention(leads []domain.Lead, now time.Time, days int) []domain.Lead {
	out := make([]domain.Lead, 0)
	for _, lead := range leads {
		if isStalled(lead, now, days) {
			out = append(out, lead)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StageEnteredAt.Before(out[j].StageEnteredAt)
	})
	return out
}

// HotLeads returns open leads in the hot category, highest score first.
func HotLeads(leads []domain.Lead) []domain.Lead {
	out := make([]domain.Lead, 0)
	for _, lead := range leads {
		if lead.IsOpen() && lead.ScoreCategory == domain.CategoryHot {
			out = append(out, lead)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalScore > out[j].TotalScore
	})
	return out
}

func isStalled(lead domain.Lead, now time.Time, days int) bool {
	return lead.IsOpen() && domain.DaysInCurrentStage(lead, now) > days
}

// stageConversions computes, for each adjacent pair of pipeline stages, the
// share of leads that reached the first and went on to a later stage.
// closed_lost never counts as progress.
func stageConversions(leads []domain.Lead, activities []domain.Activity) []StageConversion {
	history := make(map[uuid.UUID][]domain.Stage)
	for _, a := range activities {
		if a.Type != domain.ActivityStageChange {
			continue
		}
		if a.PreviousStage != nil {
			history[a.LeadID] = append(history[a.LeadID], *a.PreviousStage)
		}
		if a.NewStage != nil {
			history[a.LeadID] = append(history[a.LeadID], *a.NewStage)
		}
	}

	progression := []domain.Stage{
		domain.StageProspecting,
		domain.StageQualification,
		domain.StageNeedsAnalysis,
		domain.StageProposal,
		domain.StageNegotiation,
		domain.StageClosedWon,
	}

	conversions := make([]StageConversion, 0, len(progression)-1)
	for i := 0; i < len(progression)-1; i++ {
		conversions = append(conversions, StageConversion{From: progression[i], To: progression[i+1]})
	}

	for _, lead := range leads {
		furthestOpen, won := furthestProgress(lead.Stage, history[lead.ID])
		for i := range conversions {
			if i > furthestOpen {
				break
			}
			conversions[i].Reached++
			if i < furthestOpen || won {
				conversions[i].Advanced++
			}
		}
	}

	for i := range conversions {
		if conversions[i].Reached > 0 {
			conversions[i].Rate = ratio(conversions[i].Advanced, conversions[i].Reached)
		}
	}
	return conversions
}

// furthestProgress returns the ordinal of the furthest open stage a lead
// reached and whether it was ever won. Every lead starts in prospecting and
// cannot skip open stages, so reaching an open stage implies every open stage
// before it. A win does not imply the open stages it jumped over.
func furthestProgress(current domain.Stage, history []domain.Stage) (int, bool) {
	furthestOpen := 0
	won := false

	consider := func(s domain.Stage) {
		switch {
		case s == domain.StageClosedWon:
			won = true
		case s.IsTerminal(), !s.IsValid():
		default:
			if o := s.Ordinal(); o > furthestOpen {
				furthestOpen = o
			}
		}
	}

	consider(current)
	for _, s := range history {
		consider(s)
	}
	return furthestOpen, won
}

func weightedValue(valueCents int64, probability float64) int64 {
	return int64(math.Round(float64(valueCents) * probability))
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
