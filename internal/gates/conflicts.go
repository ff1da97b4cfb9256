package gates

import "context"

// NoConflictsGate is the slot for cross-proposal consistency checks.
// It currently passes every proposal.
type NoConflictsGate struct{}

func (NoConflictsGate) Name() string { return NameNoConflicts }

func (NoConflictsGate) Check(context.Context, Input) Result {
	return Result{
		Passed:  true,
		Message: "No conflict detection implemented",
	}
}
