package scoring

import (
	"testing"
	"time"

	"coaching_portal_backend/internal/pipeline/domain"
)

var asOf = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func daysAgo(days float64) *time.Time {
	t := asOf.Add(-time.Duration(days * float64(24*time.Hour)))
	return &t
}

func TestComputeMinimumFactorsIsCold(t *testing.T) {
	result := DefaultModel().Compute(domain.ScoreFactors{}, asOf)

	if result.Total != 0 {
		t.Fatalf("expected score 0, got %d", result.Total)
	}
	if result.Category != domain.CategoryCold {
		t.Fatalf("expected cold, got %s", result.Category)
	}
}

func TestComputeMaximumFactorsIsHot(t *testing.T) {
	factors := domain.ScoreFactors{
		LastEngagementAt:   daysAgo(0.5),
		BudgetConfirmed:    true,
		AuthorityConfirmed: true,
		NeedConfirmed:      true,
		TimelineUrgency:    domain.MaxTimelineUrgency,
	}

	result := DefaultModel().Compute(factors, asOf)

	if result.Total != 100 {
		t.Fatalf("expected score 100, got %d", result.Total)
	}
	if result.Category != domain.CategoryHot {
		t.Fatalf("expected hot, got %s", result.Category)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	factors := domain.ScoreFactors{
		LastEngagementAt: daysAgo(12),
		BudgetConfirmed:  true,
		TimelineUrgency:  3,
	}
	model := DefaultModel()

	first := model.Compute(factors, asOf)
	for i := 0; i < 10; i++ {
		if got := model.Compute(factors, asOf); got != first {
			t.Fatalf("expected identical results, got %+v and %+v", first, got)
		}
	}
}

func TestRecencyMultiplier(t *testing.T) {
	future := asOf.Add(time.Hour)
	cases := []struct {
		name string
		last *time.Time
		want float64
	}{
		{"never engaged", nil, 0},
		{"today", daysAgo(0), 1},
		{"future", &future, 1},
		{"seven days", daysAgo(7), 1},
		{"midway", daysAgo(18.5), 0.5},
		{"thirty days", daysAgo(30), 0},
		{"ancient", daysAgo(90), 0},
	}

	for _, tc := range cases {
		got := RecencyMultiplier(tc.last, asOf)
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestCategoryForBoundaries(t *testing.T) {
	cases := map[int]domain.ScoreCategory{
		0:   domain.CategoryCold,
		49:  domain.CategoryCold,
		50:  domain.CategoryWarm,
		79:  domain.CategoryWarm,
		80:  domain.CategoryHot,
		100: domain.CategoryHot,
	}
	for total, want := range cases {
		if got := CategoryFor(total); got != want {
			t.Errorf("score %d: expected %s, got %s", total, want, got)
		}
	}
}

func TestScoreAlwaysInRangeWithMatchingCategory(t *testing.T) {
	model := DefaultModel()
	for days := 0; days <= 40; days += 3 {
		for urgency := -2; urgency <= 7; urgency++ {
			for mask := 0; mask < 8; mask++ {
				factors := domain.ScoreFactors{
					LastEngagementAt:   daysAgo(float64(days)),
					BudgetConfirmed:    mask&1 != 0,
					AuthorityConfirmed: mask&2 != 0,
					NeedConfirmed:      mask&4 != 0,
					TimelineUrgency:    urgency,
				}
				result := model.Compute(factors, asOf)
				if result.Total < 0 || result.Total > 100 {
					t.Fatalf("score out of range: %d for %+v", result.Total, factors)
				}
				if result.Category != CategoryFor(result.Total) {
					t.Fatalf("category %s does not match score %d", result.Category, result.Total)
				}
			}
		}
	}
}

func TestComputeBreakdown(t *testing.T) {
	factors := domain.ScoreFactors{
		LastEngagementAt: daysAgo(3),
		BudgetConfirmed:  true,
		TimelineUrgency:  2,
	}

	result := DefaultModel().Compute(factors, asOf)

	want := Breakdown{EngagementRecency: 30, BudgetConfirmed: 25, TimelineUrgency: 4}
	if result.Breakdown != want {
		t.Fatalf("expected breakdown %+v, got %+v", want, result.Breakdown)
	}
	if result.Total != 59 || result.Category != domain.CategoryWarm {
		t.Fatalf("expected 59/warm, got %d/%s", result.Total, result.Category)
	}
}

func TestNewModelValidatesWeights(t *testing.T) {
	if _, err := NewModel(DefaultWeights()); err != nil {
		t.Fatalf("expected default weights to be valid: %v", err)
	}

	short := DefaultWeights()
	short.TimelineUrgency = 5
	if _, err := NewModel(short); err == nil {
		t.Fatal("expected weights summing to 95 to be rejected")
	}

	negative := Weights{EngagementRecency: 110, BudgetConfirmed: -10}
	if _, err := NewModel(negative); err == nil {
		t.Fatal("expected negative weight to be rejected")
	}
}

func TestApplyUpdatesLead(t *testing.T) {
	lead := domain.Lead{ScoreFactors: domain.ScoreFactors{BudgetConfirmed: true, AuthorityConfirmed: true, NeedConfirmed: true}}

	DefaultModel().Apply(&lead, asOf)

	if lead.TotalScore != 60 || lead.ScoreCategory != domain.CategoryWarm {
		t.Fatalf("expected 60/warm, got %d/%s", lead.TotalScore, lead.ScoreCategory)
	}
}

func TestValidateFactors(t *testing.T) {
	if err := ValidateFactors(domain.ScoreFactors{TimelineUrgency: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateFactors(domain.ScoreFactors{TimelineUrgency: 6}); err == nil {
		t.Fatal("expected urgency 6 to be rejected")
	}
	if err := ValidateFactors(domain.ScoreFactors{TimelineUrgency: -1}); err == nil {
		t.Fatal("expected negative urgency to be rejected")
	}
}
