package metrics

import (
	"testing"
	"time"

	"coaching_portal_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

var now = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func lead(stage domain.Stage, valueCents int64, createdAgo time.Duration) domain.Lead {
	created := now.Add(-createdAgo)
	l := domain.Lead{
		ID:                  uuid.New(),
		OwnerID:             uuid.New(),
		Name:                "lead",
		Stage:               stage,
		EstimatedValueCents: valueCents,
		StageEnteredAt:      created,
		CreatedAt:           created,
		UpdatedAt:           created,
		ScoreCategory:       domain.CategoryCold,
	}
	if stage.IsTerminal() {
		closed := now
		l.ClosedAt = &closed
		l.StageEnteredAt = closed
	}
	return l
}

func stageChange(leadID uuid.UUID, from, to domain.Stage, at time.Time) domain.Activity {
	return domain.Activity{
		ID:            uuid.New(),
		LeadID:        leadID,
		Type:          domain.ActivityStageChange,
		PreviousStage: &from,
		NewStage:      &to,
		CreatedAt:     at,
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	m := Aggregate(nil, nil, now, DefaultConfig())

	if m.ConversionRates.OverallWinRate != 0 {
		t.Fatalf("expected win rate 0, got %v", m.ConversionRates.OverallWinRate)
	}
	if m.AvgSalesCycleDays != 0 {
		t.Fatalf("expected avg cycle 0, got %v", m.AvgSalesCycleDays)
	}
	if len(m.ByStage) != 7 {
		t.Fatalf("expected all 7 stages in breakdown, got %d", len(m.ByStage))
	}
	for _, c := range m.ConversionRates.StageToStage {
		if c.Rate != 0 {
			t.Fatalf("expected zero conversion without leads, got %+v", c)
		}
	}
}

func TestAggregateNewProspect(t *testing.T) {
	l := lead(domain.StageProspecting, 10000, 0)

	m := Aggregate([]domain.Lead{l}, nil, now, DefaultConfig())

	if m.TotalPipelineValueCents != 10000 {
		t.Fatalf("expected total 10000, got %d", m.TotalPipelineValueCents)
	}
	if m.WeightedPipelineValueCents != 1000 {
		t.Fatalf("expected weighted 1000, got %d", m.WeightedPipelineValueCents)
	}
	if m.ByStage[0].Stage != domain.StageProspecting || m.ByStage[0].Count != 1 || m.ByStage[0].ValueCents != 10000 {
		t.Fatalf("unexpected prospecting summary %+v", m.ByStage[0])
	}
}

func TestAggregateClosedWonLeavesPipeline(t *testing.T) {
	won := lead(domain.StageClosedWon, 5000, days(20))
	open := lead(domain.StageProposal, 2000, days(2))

	m := Aggregate([]domain.Lead{won, open}, nil, now, DefaultConfig())

	if m.TotalPipelineValueCents != 2000 {
		t.Fatalf("expected only open value in total, got %d", m.TotalPipelineValueCents)
	}
	if m.WeightedPipelineValueCents != 1200 {
		t.Fatalf("expected weighted 1200, got %d", m.WeightedPipelineValueCents)
	}
	if m.ConversionRates.OverallWinRate != 1 {
		t.Fatalf("expected win rate 1, got %v", m.ConversionRates.OverallWinRate)
	}
	if m.AvgSalesCycleDays != 20 {
		t.Fatalf("expected avg cycle 20 days, got %v", m.AvgSalesCycleDays)
	}
	if m.WonLeads != 1 || m.WonValueCents != 5000 || m.OpenLeads != 1 {
		t.Fatalf("unexpected counters %+v", m)
	}
}

func TestAggregateWinRate(t *testing.T) {
	leads := []domain.Lead{
		lead(domain.StageClosedWon, 100, days(10)),
		lead(domain.StageClosedLost, 100, days(10)),
		lead(domain.StageClosedLost, 100, days(10)),
		lead(domain.StageClosedLost, 100, days(10)),
		lead(domain.StageNegotiation, 100, days(1)),
	}

	m := Aggregate(leads, nil, now, DefaultConfig())

	if m.ConversionRates.OverallWinRate != 0.25 {
		t.Fatalf("expected win rate 0.25, got %v", m.ConversionRates.OverallWinRate)
	}
	if m.LostLeads != 3 {
		t.Fatalf("expected 3 lost, got %d", m.LostLeads)
	}
}

func TestWeightedNeverExceedsTotal(t *testing.T) {
	var leads []domain.Lead
	for i, stage := range domain.AllStages() {
		leads = append(leads, lead(stage, int64(999*(i+1)), days(i)))
	}

	m := Aggregate(leads, nil, now, DefaultConfig())

	if m.WeightedPipelineValueCents > m.TotalPipelineValueCents {
		t.Fatalf("weighted %d exceeds total %d", m.WeightedPipelineValueCents, m.TotalPipelineValueCents)
	}
	var openTotal int64
	for _, l := range leads {
		if l.IsOpen() {
			openTotal += l.EstimatedValueCents
		}
	}
	if m.TotalPipelineValueCents != openTotal {
		t.Fatalf("expected total %d to exclude closed leads, got %d", openTotal, m.TotalPipelineValueCents)
	}
}

func TestAggregateActivitiesThisWeekWindow(t *testing.T) {
	id := uuid.New()
	activities := []domain.Activity{
		{LeadID: id, Type: domain.ActivityCall, CreatedAt: now},
		{LeadID: id, Type: domain.ActivityEmail, CreatedAt: now.Add(-days(6))},
		{LeadID: id, Type: domain.ActivityNote, CreatedAt: now.Add(-days(7))},
		{LeadID: id, Type: domain.ActivityMeeting, CreatedAt: now.Add(-days(8))},
		{LeadID: id, Type: domain.ActivityMeeting, CreatedAt: now.Add(time.Hour)},
	}

	m := Aggregate(nil, activities, now, DefaultConfig())

	if m.ActivitiesThisWeek != 2 {
		t.Fatalf("expected 2 activities this week, got %d", m.ActivitiesThisWeek)
	}
}

func TestAggregateTasksOverdue(t *testing.T) {
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	overdue := lead(domain.StageQualification, 0, days(3))
	overdue.NextFollowUpDate = &past
	upcoming := lead(domain.StageQualification, 0, days(3))
	upcoming.NextFollowUpDate = &future
	closed := lead(domain.StageClosedLost, 0, days(3))
	closed.NextFollowUpDate = &past

	m := Aggregate([]domain.Lead{overdue, upcoming, closed}, nil, now, DefaultConfig())

	if m.TasksOverdue != 1 {
		t.Fatalf("expected 1 overdue task, got %d", m.TasksOverdue)
	}
}

func TestNeedingAttention(t *testing.T) {
	proposal := lead(domain.StageProposal, 0, days(10))
	lost := lead(domain.StageClosedLost, 0, days(30))
	lost.StageEnteredAt = now.Add(-days(30))
	fresh := lead(domain.StageProposal, 0, days(7))

	stalled := NeedingAttention([]domain.Lead{proposal, lost, fresh}, now, DefaultStallThresholdDays)

	if len(stalled) != 1 || stalled[0].ID != proposal.ID {
		t.Fatalf("expected only the proposal lead, got %+v", stalled)
	}

	m := Aggregate([]domain.Lead{proposal, lost, fresh}, nil, now, DefaultConfig())
	if m.NeedingAttention != 1 {
		t.Fatalf("expected 1 lead needing attention, got %d", m.NeedingAttention)
	}
}

func TestHotLeadsSortedByScore(t *testing.T) {
	a := lead(domain.StageProposal, 0, days(1))
	a.TotalScore, a.ScoreCategory = 85, domain.CategoryHot
	b := lead(domain.StageNegotiation, 0, days(1))
	b.TotalScore, b.ScoreCategory = 97, domain.CategoryHot
	won := lead(domain.StageClosedWon, 0, days(1))
	won.TotalScore, won.ScoreCategory = 100, domain.CategoryHot
	warm := lead(domain.StageProposal, 0, days(1))
	warm.TotalScore, warm.ScoreCategory = 60, domain.CategoryWarm

	hot := HotLeads([]domain.Lead{a, b, won, warm})

	if len(hot) != 2 || hot[0].ID != b.ID || hot[1].ID != a.ID {
		t.Fatalf("expected [b a], got %+v", hot)
	}
}

func TestStageToStageConversion(t *testing.T) {
	// Walked the whole pipeline and won.
	won := lead(domain.StageClosedWon, 0, days(30))
	// Sits in needs_analysis.
	midway := lead(domain.StageNeedsAnalysis, 0, days(10))
	// Reached qualification, then lost.
	lost := lead(domain.StageClosedLost, 0, days(10))
	// Never left prospecting.
	stuck := lead(domain.StageProspecting, 0, days(10))

	activities := []domain.Activity{
		stageChange(won.ID, domain.StageProspecting, domain.StageQualification, now.Add(-days(25))),
		stageChange(won.ID, domain.StageQualification, domain.StageNeedsAnalysis, now.Add(-days(20))),
		stageChange(won.ID, domain.StageNeedsAnalysis, domain.StageProposal, now.Add(-days(15))),
		stageChange(won.ID, domain.StageProposal, domain.StageNegotiation, now.Add(-days(10))),
		stageChange(won.ID, domain.StageNegotiation, domain.StageClosedWon, now.Add(-days(5))),
		stageChange(lost.ID, domain.StageProspecting, domain.StageQualification, now.Add(-days(8))),
		stageChange(lost.ID, domain.StageQualification, domain.StageClosedLost, now.Add(-days(6))),
	}

	m := Aggregate([]domain.Lead{won, midway, lost, stuck}, activities, now, DefaultConfig())
	conv := m.ConversionRates.StageToStage

	if len(conv) != 5 {
		t.Fatalf("expected 5 conversion pairs, got %d", len(conv))
	}

	want := []struct {
		from, to          domain.Stage
		reached, advanced int
	}{
		{domain.StageProspecting, domain.StageQualification, 4, 3},
		{domain.StageQualification, domain.StageNeedsAnalysis, 3, 2},
		{domain.StageNeedsAnalysis, domain.StageProposal, 2, 1},
		{domain.StageProposal, domain.StageNegotiation, 1, 1},
		{domain.StageNegotiation, domain.StageClosedWon, 1, 1},
	}
	for i, w := range want {
		c := conv[i]
		if c.From != w.from || c.To != w.to || c.Reached != w.reached || c.Advanced != w.advanced {
			t.Errorf("pair %d: expected %+v, got %+v", i, w, c)
		}
		if c.Rate < 0 || c.Rate > 1 {
			t.Errorf("pair %d: rate out of range %v", i, c.Rate)
		}
	}
	if conv[0].Rate != 0.75 {
		t.Fatalf("expected prospecting rate 0.75, got %v", conv[0].Rate)
	}
}

func TestStageToStageEarlyWinSkipsLaterStages(t *testing.T) {
	won := lead(domain.StageClosedWon, 0, days(3))
	activities := []domain.Activity{
		stageChange(won.ID, domain.StageProspecting, domain.StageClosedWon, now.Add(-days(1))),
	}

	conv := Aggregate([]domain.Lead{won}, activities, now, DefaultConfig()).ConversionRates.StageToStage

	if conv[0].Reached != 1 || conv[0].Advanced != 1 {
		t.Fatalf("expected prospecting to count the win, got %+v", conv[0])
	}
	for _, c := range conv[1:] {
		if c.Reached != 0 {
			t.Fatalf("expected skipped stage %s not to count as reached, got %+v", c.From, c)
		}
	}
}

func TestProbabilitiesValidate(t *testing.T) {
	if err := DefaultProbabilities().Validate(); err != nil {
		t.Fatalf("expected default table to be valid: %v", err)
	}

	decreasing := DefaultProbabilities()
	decreasing[domain.StageProposal] = 0.3
	if err := decreasing.Validate(); err == nil {
		t.Fatal("expected non-monotonic table to be rejected")
	}

	tooHigh := DefaultProbabilities()
	tooHigh[domain.StageNegotiation] = 1.2
	if err := tooHigh.Validate(); err == nil {
		t.Fatal("expected probability above 1 to be rejected")
	}

	missing := DefaultProbabilities()
	delete(missing, domain.StageQualification)
	if err := missing.Validate(); err == nil {
		t.Fatal("expected missing stage to be rejected")
	}

	terminal := DefaultProbabilities()
	terminal[domain.StageClosedWon] = 1
	if err := terminal.Validate(); err == nil {
		t.Fatal("expected terminal stage probability to be rejected")
	}
}
