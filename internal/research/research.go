// Package research is the LLM researcher agent. It asks a model about a
// program and files the differences as an editorial proposal.
package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/internal/entities"
	"github.com/JaimeStill/affwiki/internal/proposals"
	"github.com/JaimeStill/affwiki/pkg/formatting"
	"github.com/JaimeStill/affwiki/pkg/jsonmap"
	"github.com/JaimeStill/affwiki/pkg/repository"
	"github.com/JaimeStill/affwiki/pkg/retry"
)

// MaxRawResponse caps the raw model text stored with a proposal.
const MaxRawResponse = 5000

var (
	// ErrNoProgram matches a model answer that the domain has no
	// affiliate program.
	ErrNoProgram = errors.New("no affiliate program")
	ErrNoDomain  = errors.New("program has no domain")
	ErrNoChanges = errors.New("research found no changes")
)

// Finding is the outcome of researching one program.
type Finding struct {
	Program     entities.Program `json:"-"`
	Changes     jsonmap.Map      `json:"changes"`
	Sources     jsonmap.List     `json:"sources"`
	Reasoning   string           `json:"reasoning"`
	RawResponse string           `json:"raw_response"`
	ModelUsed   string           `json:"model_used"`
	NoProgram   bool             `json:"no_program"`
	Attempts    int              `json:"attempts"`
}

// Command returns the proposal submission for the finding.
func (f *Finding) Command() proposals.CreateCommand {
	raw := f.RawResponse
	model := f.ModelUsed
	return proposals.CreateCommand{
		EntityType:     string(entities.TypeProgram),
		EntityID:       f.Program.ID,
		Changes:        f.Changes,
		Sources:        f.Sources,
		Reasoning:      f.Reasoning,
		RawLLMResponse: &raw,
		ModelUsed:      &model,
	}
}

// BatchReport summarizes ResearchBatch.
type BatchReport struct {
	Researched int      `json:"researched"`
	Submitted  int      `json:"submitted"`
	NoProgram  int      `json:"no_program"`
	Unchanged  int      `json:"unchanged"`
	Errors     []string `json:"errors"`
}

// Agent researches programs with a model and proposes the results.
type Agent struct {
	db        repository.Querier
	model     Model
	proposals proposals.System
	policy    retry.Policy
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a researcher. Model calls retry under policy; errors that
// Retryable rejects stop immediately.
func New(db repository.Querier, model Model, sys proposals.System, policy retry.Policy, logger *slog.Logger) *Agent {
	if policy.Retryable == nil {
		policy.Retryable = Retryable
	}
	return &Agent{
		db:        db,
		model:     model,
		proposals: sys,
		policy:    policy,
		logger:    logger.With("agent", "researcher"),
		now:       time.Now,
	}
}

// Research asks the model about a program and computes what changed.
func (a *Agent) Research(ctx context.Context, programID int64) (*Finding, error) {
	program, err := entities.FindProgram(ctx, a.db, programID)
	if err != nil {
		return nil, err
	}
	if program.Domain == "" {
		return nil, ErrNoDomain
	}

	res := retry.Do(ctx, a.policy, func(ctx context.Context) (string, error) {
		return a.model.Complete(ctx, Prompt(*program))
	})
	if !res.OK() {
		return nil, fmt.Errorf("research %s (%s after %d attempts): %w", program.Name, res.Outcome, res.Attempts, res.Err)
	}

	f := &Finding{
		Program:     *program,
		Sources:     jsonmap.List{},
		RawResponse: formatting.Truncate(res.Value, MaxRawResponse),
		ModelUsed:   a.model.Name(),
		Attempts:    res.Attempts,
	}

	fields, err := ParseResponse(res.Value)
	var noProgram *noProgramError
	switch {
	case errors.As(err, &noProgram):
		f.NoProgram = true
		f.Changes = jsonmap.Map{"_no_program": true, "_no_program_reason": noProgram.Reason}
		f.Reasoning = "No affiliate program: " + noProgram.Reason
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("research %s: %w", program.Name, err)
	}

	f.Changes = Diff(program.Extracted, fields)
	if len(f.Changes) > 0 {
		f.Changes["deep_researched_at"] = a.now().UTC().Format(time.RFC3339)
	}
	f.Sources = jsonmap.List{{"url": "https://" + program.Domain, "type": "primary_domain"}}
	f.Reasoning = fmt.Sprintf("Research update for %s (%s)", program.Name, program.Domain)
	return f, nil
}

// Submit files a finding as a proposal.
func (a *Agent) Submit(ctx context.Context, agent agents.Identity, f *Finding) (*proposals.CreateResult, error) {
	if len(f.Changes) == 0 {
		return nil, ErrNoChanges
	}
	result, err := a.proposals.Create(ctx, agent, f.Command())
	if err != nil {
		return nil, err
	}
	a.logger.Info(
		"research proposed",
		"program", f.Program.Name,
		"proposal_id", result.ProposalID,
		"changes", len(f.Changes),
		"no_program", f.NoProgram,
	)
	return result, nil
}

// ResearchBatch researches programs with stale or missing research using
// up to workers concurrent model calls. Failures are collected per program.
func (a *Agent) ResearchBatch(ctx context.Context, agent agents.Identity, staleDays, limit, workers int, submit bool) (*BatchReport, error) {
	programs, err := entities.StaleResearch(ctx, a.db, staleDays, limit)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{Errors: []string{}}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(max(workers, 1))

	for _, p := range programs {
		g.Go(func() error {
			f, err := a.Research(ctx, p.ID)
			switch {
			case err != nil:
			case len(f.Changes) == 0:
				err = ErrNoChanges
			case submit:
				_, err = a.Submit(ctx, agent, f)
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrNoChanges):
				report.Researched++
				report.Unchanged++
			case err != nil:
				a.logger.Warn("research failed", "program", p.Name, "error", err)
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", p.Name, err))
			default:
				report.Researched++
				if f.NoProgram {
					report.NoProgram++
				}
				if submit {
					report.Submitted++
				}
			}
			return nil
		})
	}
	g.Wait()

	a.logger.Info(
		"research batch complete",
		"researched", report.Researched,
		"submitted", report.Submitted,
		"errors", len(report.Errors),
	)
	return report, nil
}
