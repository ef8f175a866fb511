// Package scoring computes the 0-100 lead priority score and its category.
// Everything here is pure: the same factors and instant always give the same result.
package scoring

import (
	"fmt"
	"math"
	"time"

	"coaching_portal_backend/internal/pipeline/domain"
)

const (
	// ModelVersion tracks the scoring model for debugging and analysis.
	// Bump this when changing scoring logic significantly.
	ModelVersion = "2026-v1"

	// Engagement within this window earns full recency credit.
	fullCreditWindow = 7 * 24 * time.Hour
	// Engagement older than this earns no recency credit.
	zeroCreditWindow = 30 * 24 * time.Hour

	hotThreshold  = 80
	warmThreshold = 50
)

// Weights is the points each factor contributes at full credit.
// A valid table is non-negative and sums to exactly 100.
type Weights struct {
	EngagementRecency  int `yaml:"engagement_recency"`
	BudgetConfirmed    int `yaml:"budget_confirmed"`
	AuthorityConfirmed int `yaml:"authority_confirmed"`
	NeedConfirmed      int `yaml:"need_confirmed"`
	TimelineUrgency    int `yaml:"timeline_urgency"`
}

// DefaultWeights returns the stock weight table.
func DefaultWeights() Weights {
	return Weights{
		EngagementRecency:  30,
		BudgetConfirmed:    25,
		AuthorityConfirmed: 20,
		NeedConfirmed:      15,
		TimelineUrgency:    10,
	}
}

// Validate checks the table is non-negative and sums to 100.
func (w Weights) Validate() error {
	values := []int{w.EngagementRecency, w.BudgetConfirmed, w.AuthorityConfirmed, w.NeedConfirmed, w.TimelineUrgency}
	sum := 0
	for _, v := range values {
		if v < 0 {
			return fmt.Errorf("score weights must be non-negative, got %d", v)
		}
		sum += v
	}
	if sum != 100 {
		return fmt.Errorf("score weights must sum to 100, got %d", sum)
	}
	return nil
}

// Breakdown reports the points each factor earned.
type Breakdown struct {
	EngagementRecency  float64 `json:"engagementRecency"`
	BudgetConfirmed    float64 `json:"budgetConfirmed"`
	AuthorityConfirmed float64 `json:"authorityConfirmed"`
	NeedConfirmed      float64 `json:"needConfirmed"`
	TimelineUrgency    float64 `json:"timelineUrgency"`
}

// Result is the output of a score computation.
type Result struct {
	Total     int
	Category  domain.ScoreCategory
	Breakdown Breakdown
}

// Model computes scores with a fixed weight table.
type Model struct {
	weights Weights
}

// NewModel validates weights and returns a model using them.
func NewModel(weights Weights) (*Model, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Model{weights: weights}, nil
}

// DefaultModel returns a model using DefaultWeights.
func DefaultModel() *Model {
	return &Model{weights: DefaultWeights()}
}

// Weights returns the table the model scores with.
func (m *Model) Weights() Weights {
	return m.weights
}

// Compute scores factors as of the given instant.
func (m *Model) Compute(factors domain.ScoreFactors, asOf time.Time) Result {
	w := m.weights
	breakdown := Breakdown{
		EngagementRecency:  float64(w.EngagementRecency) * RecencyMultiplier(factors.LastEngagementAt, asOf),
		BudgetConfirmed:    float64(w.BudgetConfirmed) * boolMultiplier(factors.BudgetConfirmed),
		AuthorityConfirmed: float64(w.AuthorityConfirmed) * boolMultiplier(factors.AuthorityConfirmed),
		NeedConfirmed:      float64(w.NeedConfirmed) * boolMultiplier(factors.NeedConfirmed),
		TimelineUrgency:    float64(w.TimelineUrgency) * urgencyMultiplier(factors.TimelineUrgency),
	}

	raw := breakdown.EngagementRecency +
		breakdown.BudgetConfirmed +
		breakdown.AuthorityConfirmed +
		breakdown.NeedConfirmed +
		breakdown.TimelineUrgency

	total := clampScore(raw)
	return Result{
		Total:     total,
		Category:  CategoryFor(total),
		Breakdown: roundBreakdown(breakdown),
	}
}

// Apply recomputes the cached score fields of lead as of asOf.
func (m *Model) Apply(lead *domain.Lead, asOf time.Time) Result {
	result := m.Compute(lead.ScoreFactors, asOf)
	lead.TotalScore = result.Total
	lead.ScoreCategory = result.Category
	return result
}

// CategoryFor maps a total score onto its bucket.
func CategoryFor(total int) domain.ScoreCategory {
	switch {
	case total >= hotThreshold:
		return domain.CategoryHot
	case total >= warmThreshold:
		return domain.CategoryWarm
	default:
		return domain.CategoryCold
	}
}

// ValidateFactors rejects factors outside their bounded ranges.
func ValidateFactors(factors domain.ScoreFactors) error {
	if factors.TimelineUrgency < 0 || factors.TimelineUrgency > domain.MaxTimelineUrgency {
		return fmt.Errorf("timeline urgency must be between 0 and %d", domain.MaxTimelineUrgency)
	}
	return nil
}

// RecencyMultiplier maps the last engagement onto [0,1]: full credit within
// seven days (or in the future), linear decay to zero at thirty days.
func RecencyMultiplier(lastEngagement *time.Time, asOf time.Time) float64 {
	if lastEngagement == nil {
		return 0
	}
	age := asOf.Sub(*lastEngagement)
	switch {
	case age <= fullCreditWindow:
		return 1
	case age >= zeroCreditWindow:
		return 0
	default:
		return float64(zeroCreditWindow-age) / float64(zeroCreditWindow-fullCreditWindow)
	}
}

func boolMultiplier(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

func urgencyMultiplier(urgency int) float64 {
	return clampFloat(float64(urgency)/domain.MaxTimelineUrgency, 0, 1)
}

func roundBreakdown(b Breakdown) Breakdown {
	return Breakdown{
		EngagementRecency:  round1(b.EngagementRecency),
		BudgetConfirmed:    round1(b.BudgetConfirmed),
		AuthorityConfirmed: round1(b.AuthorityConfirmed),
		NeedConfirmed:      round1(b.NeedConfirmed),
		TimelineUrgency:    round1(b.TimelineUrgency),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clampScore(value float64) int {
	rounded := int(math.Round(value))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

func clampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
