package domain

import (
	"fmt"
	"time"
)

// InvalidTransitionError reports a stage change outside the pipeline graph.
type InvalidTransitionError struct {
	Current   Stage
	Attempted Stage
	Reason    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move lead from %s to %s: %s", e.Current, e.Attempted, e.Reason)
}

// CanTransition checks whether target is reachable from current by a regular
// transition. Moves out of a terminal stage go through ApplyReopen instead.
func CanTransition(current, target Stage) error {
	invalid := func(reason string) error {
		return &InvalidTransitionError{Current: current, Attempted: target, Reason: reason}
	}

	switch {
	case !target.IsValid():
		return invalid("unknown stage")
	case current.IsTerminal():
		return invalid("lead is closed; reopen it first")
	case target == current:
		return invalid("lead is already in this stage")
	case target.IsTerminal():
		return nil
	case target.Ordinal() == current.Ordinal()+1:
		return nil
	case target.Ordinal() < current.Ordinal():
		return nil
	default:
		return invalid("stages cannot be skipped")
	}
}

// ApplyTransition returns a copy of lead moved to target. The stage clock is
// reset and ClosedAt is set when entering a terminal stage. The score is left
// to the caller.
func ApplyTransition(lead Lead, target Stage, now time.Time) (Lead, error) {
	if err := CanTransition(lead.Stage, target); err != nil {
		return lead, err
	}

	next := lead
	next.Stage = target
	next.StageEnteredAt = now
	next.UpdatedAt = now
	next.ClosedAt = nil
	if target.IsTerminal() {
		closedAt := now
		next.ClosedAt = &closedAt
	}
	return next, nil
}

// ApplyReopen returns a copy of a closed lead moved back to qualification
// with ClosedAt cleared.
func ApplyReopen(lead Lead, now time.Time) (Lead, error) {
	if !lead.Stage.IsTerminal() {
		return lead, &InvalidTransitionError{
			Current:   lead.Stage,
			Attempted: StageQualification,
			Reason:    "only closed leads can be reopened",
		}
	}

	next := lead
	next.Stage = StageQualification
	next.StageEnteredAt = now
	next.UpdatedAt = now
	next.ClosedAt = nil
	return next, nil
}
