// Package domain holds the sales pipeline entities and the stage state machine.
// It has no persistence or transport dependencies.
package domain

import "fmt"

// Stage is a position in the sales lifecycle.
type Stage string

const (
	StageProspecting   Stage = "prospecting"
	StageQualification Stage = "qualification"
	StageNeedsAnalysis Stage = "needs_analysis"
	StageProposal      Stage = "proposal"
	StageNegotiation   Stage = "negotiation"
	StageClosedWon     Stage = "closed_won"
	StageClosedLost    Stage = "closed_lost"
)

// orderedStages is the pipeline order. The two terminal stages share the
// last position in the graph but keep a stable order for reporting.
var orderedStages = []Stage{
	StageProspecting,
	StageQualification,
	StageNeedsAnalysis,
	StageProposal,
	StageNegotiation,
	StageClosedWon,
	StageClosedLost,
}

var stageOrdinals = func() map[Stage]int {
	m := make(map[Stage]int, len(orderedStages))
	for i, s := range orderedStages {
		m[s] = i
	}
	return m
}()

// AllStages returns every stage in pipeline order.
func AllStages() []Stage {
	out := make([]Stage, len(orderedStages))
	copy(out, orderedStages)
	return out
}

// OpenStages returns the non-terminal stages in pipeline order.
func OpenStages() []Stage {
	return AllStages()[:5]
}

// ParseStage converts raw input into a Stage. Unknown values are rejected.
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown stage %q", raw)
	}
	return s, nil
}

// IsValid reports whether s is one of the known stages.
func (s Stage) IsValid() bool {
	_, ok := stageOrdinals[s]
	return ok
}

// IsTerminal reports whether s is closed_won or closed_lost.
func (s Stage) IsTerminal() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// Ordinal returns the position of s in pipeline order, or -1 when unknown.
func (s Stage) Ordinal() int {
	if i, ok := stageOrdinals[s]; ok {
		return i
	}
	return -1
}

func (s Stage) String() string { return string(s) }
