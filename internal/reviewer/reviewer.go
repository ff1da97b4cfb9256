// Package reviewer is the automated reviewer agent. It runs the gate
// pipeline over pending proposals and records the derived decision.
package reviewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/internal/gates"
	"github.com/JaimeStill/affwiki/internal/proposals"
	"github.com/JaimeStill/affwiki/pkg/pagination"
)

// ErrNotPending is reported when a proposal has left pending_review.
var ErrNotPending = errors.New("proposal is not pending review")

// Outcome is the result of reviewing one proposal.
type Outcome struct {
	ProposalID uuid.UUID          `json:"proposal_id"`
	EntityName string             `json:"entity_name"`
	Decision   proposals.Decision `json:"decision,omitempty"`
	Report     gates.Report       `json:"report"`
	Published  bool               `json:"published"`
	Error      string             `json:"error,omitempty"`
}

// Summary tallies a ReviewPending batch.
type Summary struct {
	Reviewed      int       `json:"reviewed"`
	Approved      int       `json:"approved"`
	Rejected      int       `json:"rejected"`
	ChangesWanted int       `json:"request_changes"`
	Published     int       `json:"published"`
	Failed        int       `json:"failed"`
	Outcomes      []Outcome `json:"outcomes"`
}

// Agent reviews proposals as a single reviewer identity.
type Agent struct {
	proposals proposals.System
	pipeline  *gates.Pipeline
	identity  agents.Identity
	logger    *slog.Logger
}

// New creates a reviewer acting as identity.
func New(sys proposals.System, pipeline *gates.Pipeline, identity agents.Identity, logger *slog.Logger) *Agent {
	return &Agent{
		proposals: sys,
		pipeline:  pipeline,
		identity:  identity,
		logger:    logger.With("agent", "reviewer"),
	}
}

// Review runs the gates over one proposal and submits the decision.
func (a *Agent) Review(ctx context.Context, id uuid.UUID) (*Outcome, error) {
	detail, err := a.proposals.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load proposal: %w", err)
	}

	p := detail.Proposal
	out := &Outcome{ProposalID: p.ID, EntityName: p.Entity.Name}

	if !p.Status.Reviewable() {
		return out, fmt.Errorf("%w: status is %s", ErrNotPending, p.Status)
	}

	in := gates.Input{
		Changes: p.Changes,
		Sources: p.Sources,
	}
	if p.Reasoning != nil {
		in.Reasoning = *p.Reasoning
	}
	if p.RawLLMResponse != nil {
		in.RawResponse = *p.RawLLMResponse
	}

	out.Report = a.pipeline.Run(ctx, in)
	out.Decision = proposals.Decision(out.Report.Decision())

	_, err = a.proposals.Review(ctx, a.identity, p.ID, proposals.ReviewCommand{
		Decision:          out.Decision,
		Notes:             out.Report.Notes(),
		ValidationResults: out.Report.ValidationResults(),
	})
	if err != nil {
		return out, fmt.Errorf("submit review: %w", err)
	}

	return out, nil
}

// ReviewPending reviews up to limit pending proposals in listing order.
// Approved proposals are published when autoPublish is set.
// A failure on one proposal is recorded and the batch continues.
func (a *Agent) ReviewPending(ctx context.Context, limit int, autoPublish bool) (*Summary, error) {
	status := proposals.StatusPendingReview
	page, err := a.proposals.List(
		ctx,
		pagination.PageRequest{Limit: limit},
		proposals.Filters{Status: &status},
	)
	if err != nil {
		return nil, fmt.Errorf("list pending proposals: %w", err)
	}

	a.logger.Info("reviewing pending proposals", "count", len(page.Data), "auto_publish", autoPublish)

	summary := &Summary{Outcomes: make([]Outcome, 0, len(page.Data))}
	for _, p := range page.Data {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		out, err := a.Review(ctx, p.ID)
		if out == nil {
			out = &Outcome{ProposalID: p.ID, EntityName: p.Entity.Name}
		}
		if err != nil {
			a.logger.Warn("review failed", "id", p.ID, "error", err)
			out.Error = err.Error()
			summary.Failed++
			summary.Outcomes = append(summary.Outcomes, *out)
			continue
		}

		summary.Reviewed++
		switch out.Decision {
		case proposals.DecisionApprove:
			summary.Approved++
			if autoPublish {
				a.publish(ctx, out, summary)
			}
		case proposals.DecisionReject:
			summary.Rejected++
		default:
			summary.ChangesWanted++
		}

		a.logger.Info("proposal reviewed", "id", out.ProposalID, "entity", out.EntityName, "decision", out.Decision)
		summary.Outcomes = append(summary.Outcomes, *out)
	}

	a.logger.Info(
		"review complete",
		"approved", summary.Approved,
		"rejected", summary.Rejected,
		"request_changes", summary.ChangesWanted,
		"published", summary.Published,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (a *Agent) publish(ctx context.Context, out *Outcome, summary *Summary) {
	res, err := a.proposals.Publish(ctx, a.identity, out.ProposalID)
	if err != nil {
		a.logger.Warn("publish failed", "id", out.ProposalID, "error", err)
		out.Error = fmt.Sprintf("publish: %v", err)
		return
	}
	out.Published = true
	summary.Published++
	a.logger.Info("proposal published", "id", out.ProposalID, "history_id", res.HistoryID)
}
