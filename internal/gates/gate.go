// Package gates runs the validation checks a reviewer applies to a
// proposal before deciding it.
package gates

import (
	"context"
	"fmt"
	"strings"

	"github.com/JaimeStill/affwiki/pkg/jsonmap"
)

// Gate names.
const (
	NameSchema      = "schema_valid"
	NameProvenance  = "provenance_complete"
	NameURLs        = "urls_verified"
	NamePolicy      = "policy_passed"
	NameNoConflicts = "no_conflicts"
)

// Input is what every gate inspects.
type Input struct {
	Changes     jsonmap.Map
	Sources     jsonmap.List
	Reasoning   string
	RawResponse string
}

// Result is one gate's verdict.
type Result struct {
	Name    string         `json:"gate"`
	Passed  bool           `json:"passed"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// Gate is a single named check.
type Gate interface {
	Name() string
	Check(ctx context.Context, in Input) Result
}

// Decision values produced by Report.Decision. They match the
// editorial review decisions.
const (
	DecisionApprove        = "approve"
	DecisionReject         = "reject"
	DecisionRequestChanges = "request_changes"
)

// Report is the combined result of a pipeline run.
type Report struct {
	Results []Result `json:"results"`
}

// Passed reports whether every gate passed.
func (r Report) Passed() bool {
	return len(r.Failed()) == 0
}

// Failed returns the names of failing gates in run order.
func (r Report) Failed() []string {
	var failed []string
	for _, res := range r.Results {
		if !res.Passed {
			failed = append(failed, res.Name)
		}
	}
	return failed
}

// Decision approves when all gates pass. A lone URL failure asks for
// changes since it may be transient. Anything else rejects.
func (r Report) Decision() string {
	failed := r.Failed()
	switch {
	case len(failed) == 0:
		return DecisionApprove
	case len(failed) == 1 && failed[0] == NameURLs:
		return DecisionRequestChanges
	}
	return DecisionReject
}

// ValidationResults maps each gate name to whether it passed.
func (r Report) ValidationResults() jsonmap.Map {
	out := make(jsonmap.Map, len(r.Results))
	for _, res := range r.Results {
		out[res.Name] = res.Passed
	}
	return out
}

// Notes renders one ✓/✗ line per gate.
func (r Report) Notes() string {
	lines := make([]string, len(r.Results))
	for i, res := range r.Results {
		mark := "✓"
		if !res.Passed {
			mark = "✗"
		}
		lines[i] = fmt.Sprintf("%s %s: %s", mark, res.Name, res.Message)
	}
	return strings.Join(lines, "\n")
}

// Pipeline runs gates in order.
type Pipeline struct {
	gates []Gate
}

// NewPipeline creates a pipeline over the given gates.
func NewPipeline(gates ...Gate) *Pipeline {
	return &Pipeline{gates: gates}
}

// Default builds the standard gate sequence. urls checks URL liveness.
func Default(urls URLChecker) (*Pipeline, error) {
	schema, err := LoadSchema()
	if err != nil {
		return nil, err
	}
	return NewPipeline(
		SchemaGate{Schema: schema},
		ProvenanceGate{},
		URLGate{Checker: urls},
		PolicyGate{},
		NoConflictsGate{},
	), nil
}

// Run executes every gate and collects the results.
func (p *Pipeline) Run(ctx context.Context, in Input) Report {
	report := Report{Results: make([]Result, 0, len(p.gates))}
	for _, g := range p.gates {
		res := g.Check(ctx, in)
		res.Name = g.Name()
		if res.Details == nil {
			res.Details = map[string]any{}
		}
		report.Results = append(report.Results, res)
	}
	return report
}
