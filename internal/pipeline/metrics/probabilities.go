package metrics

import (
	"fmt"

	"coaching_portal_backend/internal/pipeline/domain"
)

// Probabilities maps each open stage to its chance of closing as won.
// Terminal stages have no probability and are excluded from weighted value.
type Probabilities map[domain.Stage]float64

// DefaultProbabilities returns the stock stage probability table.
func DefaultProbabilities() Probabilities {
	return Probabilities{
		domain.StageProspecting:   0.10,
		domain.StageQualification: 0.20,
		domain.StageNeedsAnalysis: 0.40,
		domain.StageProposal:      0.60,
		domain.StageNegotiation:   0.80,
	}
}

// Validate checks every open stage has a probability in [0,1] and that the
// table strictly increases along the pipeline.
func (p Probabilities) Validate() error {
	prev := -1.0
	for _, stage := range domain.OpenStages() {
		v, ok := p[stage]
		if !ok {
			return fmt.Errorf("missing probability for stage %s", stage)
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("probability for stage %s must be within [0,1], got %v", stage, v)
		}
		if v <= prev {
			return fmt.Errorf("probability for stage %s must be greater than the previous stage", stage)
		}
		prev = v
	}
	for stage := range p {
		if stage.IsTerminal() || !stage.IsValid() {
			return fmt.Errorf("stage %s cannot carry a probability", stage)
		}
	}
	return nil
}

// For returns the probability of stage, or 0 for terminal and unknown stages.
func (p Probabilities) For(stage domain.Stage) float64 {
	if stage.IsTerminal() {
		return 0
	}
	return p[stage]
}
