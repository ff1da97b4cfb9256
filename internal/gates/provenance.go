package gates

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// ProvenanceGate requires evidence: a sourced URL or substantive reasoning.
type ProvenanceGate struct{}

func (ProvenanceGate) Name() string { return NameProvenance }

func (ProvenanceGate) Check(_ context.Context, in Input) Result {
	reasoning := utf8.RuneCountInString(in.Reasoning)

	if len(in.Sources) == 0 && reasoning == 0 {
		return Result{
			Passed:  false,
			Message: "No sources or reasoning provided",
			Details: map[string]any{"sources_count": 0},
		}
	}

	withURL := 0
	for _, s := range in.Sources {
		if s.String("url") != "" {
			withURL++
		}
	}

	return Result{
		Passed:  withURL > 0 || reasoning > 10,
		Message: fmt.Sprintf("Found %d sources, reasoning: %d chars", withURL, reasoning),
		Details: map[string]any{"sources_count": withURL, "reasoning_length": reasoning},
	}
}
