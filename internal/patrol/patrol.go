// Package patrol re-checks program signup URLs and opens proposals when
// they break.
package patrol

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/internal/entities"
	"github.com/JaimeStill/affwiki/internal/evidence"
	"github.com/JaimeStill/affwiki/internal/proposals"
	"github.com/JaimeStill/affwiki/internal/verification"
	"github.com/JaimeStill/affwiki/pkg/jsonmap"
	"github.com/JaimeStill/affwiki/pkg/lifecycle"
	"github.com/JaimeStill/affwiki/pkg/urlcheck"
)

// Options tune a patrol run.
type Options struct {
	BatchSize int
	Workers   int
	StaleDays int
	// CreateProposals disables remediation when false.
	CreateProposals bool
}

// DefaultOptions returns the standard patrol settings.
func DefaultOptions() Options {
	return Options{
		BatchSize:       100,
		Workers:         10,
		StaleDays:       30,
		CreateProposals: true,
	}
}

// Report summarizes one patrol run.
type Report struct {
	Checked          int      `json:"checked"`
	Success          int      `json:"success"`
	Redirect         int      `json:"redirect"`
	Broken           int      `json:"broken"`
	Timeout          int      `json:"timeout"`
	ProposalsCreated int      `json:"proposals_created"`
	Errors           []string `json:"errors"`
}

// Capturer snapshots a page. *evidence.Capturer satisfies it.
type Capturer interface {
	Capture(ctx context.Context, url string) (*evidence.Snapshot, error)
}

// Patrol finds stale signup URLs, verifies them, and proposes fixes.
type Patrol struct {
	db        *sql.DB
	keys      agents.System
	key       string
	verify    verification.System
	proposals proposals.System
	checker   verification.Checker
	capturer  Capturer
	opts      Options
	logger    *slog.Logger
}

// Deps are the systems a Patrol drives.
type Deps struct {
	DB           *sql.DB
	Keys         agents.System
	Verification verification.System
	Proposals    proposals.System
	Checker      verification.Checker
	// Capturer is optional. When set, URL fix proposals cite a snapshot.
	Capturer Capturer
}

// New creates a Patrol acting with the researcher key.
func New(deps Deps, key string, opts Options, logger *slog.Logger) *Patrol {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.StaleDays < 1 {
		opts.StaleDays = DefaultOptions().StaleDays
	}
	return &Patrol{
		db:        deps.DB,
		keys:      deps.Keys,
		key:       key,
		verify:    deps.Verification,
		proposals: deps.Proposals,
		checker:   deps.Checker,
		capturer:  deps.Capturer,
		opts:      opts,
		logger:    logger.With("agent", "patrol"),
	}
}

// Run checks one batch of stale signup URLs and opens a proposal for each
// failure. Remediation failures are collected in the report.
func (p *Patrol) Run(ctx context.Context) (*Report, error) {
	agent, err := p.keys.Authenticate(ctx, p.key, agents.RoleResearcher)
	if err != nil {
		return nil, fmt.Errorf("authenticate patrol: %w", err)
	}

	candidates, err := p.verify.StaleCandidates(ctx, p.opts.BatchSize)
	if err != nil {
		return nil, err
	}

	report := &Report{Errors: []string{}}
	if len(candidates) == 0 {
		p.logger.Info("no urls to check")
		return report, nil
	}

	byID := make(map[int64]verification.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ProgramID] = c
	}

	var failed []verification.Result
	for _, res := range p.check(ctx, *agent, candidates) {
		report.Checked++
		switch res.Status {
		case urlcheck.StatusSuccess:
			report.Success++
		case urlcheck.StatusRedirect:
			report.Redirect++
		case urlcheck.StatusBroken:
			report.Broken++
		case urlcheck.StatusTimeout:
			report.Timeout++
		}
		if res.Status.Failed() {
			failed = append(failed, res)
		}
	}

	if p.opts.CreateProposals && len(failed) > 0 {
		p.remediate(ctx, *agent, byID, failed, report)
	}

	p.logger.Info(
		"patrol complete",
		"checked", report.Checked,
		"broken", report.Broken,
		"timeout", report.Timeout,
		"proposals", report.ProposalsCreated,
		"errors", len(report.Errors),
	)
	return report, nil
}

// check verifies each candidate's signup URL on the worker pool and
// records every outcome as the patrol's own run. Only the single-run
// Record path is used; batch verification stays a reviewer operation.
func (p *Patrol) check(ctx context.Context, agent agents.Identity, candidates []verification.Candidate) []verification.Result {
	results := make([]verification.Result, len(candidates))

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, c := range candidates {
		g.Go(func() error {
			t := c.Target()
			out := p.checker.Check(ctx, t.URL)
			if _, err := p.verify.Record(ctx, agent.KeyID, t, out); err != nil {
				p.logger.Warn("verification run not recorded", "program", c.Name, "error", err)
			}
			results[i] = verification.Result{ProgramID: c.ProgramID, URLType: t.URLType, Outcome: out}
			return nil
		})
	}
	g.Wait()
	return results
}

func (p *Patrol) remediate(
	ctx context.Context,
	agent agents.Identity,
	byID map[int64]verification.Candidate,
	failed []verification.Result,
	report *Report,
) {
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(p.opts.Workers)

	for _, res := range failed {
		c := byID[res.ProgramID]
		g.Go(func() error {
			cmd := p.fixFor(ctx, c, res)
			_, err := p.proposals.Create(ctx, agent, cmd)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.Warn("proposal not created", "program", c.Name, "error", err)
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", c.Name, err))
				return nil
			}
			report.ProposalsCreated++
			p.logger.Info("url fix proposed", "program", c.Name, "needs_attention", cmd.Changes["_needs_attention"] == true)
			return nil
		})
	}
	g.Wait()
}

// fixFor probes alternative affiliate pages for a program whose signup
// URL failed. It proposes the first live alternative, or flags the
// program for attention when none responds.
func (p *Patrol) fixFor(ctx context.Context, c verification.Candidate, res verification.Result) proposals.CreateCommand {
	issue := Issue(res.Outcome)

	cmd := proposals.CreateCommand{
		EntityType: string(entities.TypeProgram),
		EntityID:   c.ProgramID,
	}

	for _, alt := range Alternatives(c.Domain) {
		out := p.checker.Check(ctx, alt)
		if out.Status.Failed() {
			continue
		}
		found := out.FinalURL
		if found == "" {
			found = alt
		}

		source := jsonmap.Map{"url": found, "verified": true, "type": "url_fix"}
		if p.capturer != nil {
			if snap, err := p.capturer.Capture(ctx, found); err == nil {
				source["snapshot_hash"] = snap.Hash
				source["captured_at"] = snap.CapturedAt.Format(time.RFC3339)
			} else {
				p.logger.Warn("snapshot failed", "url", found, "error", err)
			}
		}

		cmd.Changes = jsonmap.Map{"signup_url": found}
		cmd.Sources = jsonmap.List{source}
		cmd.Reasoning = fmt.Sprintf("Original URL (%s) is %s. Found replacement at %s", c.SignupURL, issue, found)
		return cmd
	}

	cmd.Changes = jsonmap.Map{"_needs_attention": true, "_url_issue": issue}
	cmd.Sources = jsonmap.List{}
	cmd.Reasoning = fmt.Sprintf("Signup URL (%s) is %s. No alternative found.", c.SignupURL, issue)
	return cmd
}

// StaleResearch lists programs whose deep research is older than the
// configured threshold, or missing.
func (p *Patrol) StaleResearch(ctx context.Context, days int) ([]entities.Program, error) {
	if days < 1 {
		days = p.opts.StaleDays
	}
	return entities.StaleResearch(ctx, p.db, days, p.opts.BatchSize)
}

// Schedule runs the patrol every interval until the coordinator shuts down.
func (p *Patrol) Schedule(lc *lifecycle.Coordinator, interval time.Duration) {
	p.logger.Info("patrol scheduled", "interval", interval)
	lc.Every(interval, func(ctx context.Context) {
		if _, err := p.Run(ctx); err != nil {
			p.logger.Error("patrol run failed", "error", err)
		}
	})
}

// Alternatives lists the pages probed when a signup URL breaks.
func Alternatives(domain string) []string {
	return []string{
		"https://" + domain + "/affiliate",
		"https://" + domain + "/affiliates",
		"https://" + domain + "/partners",
		"https://" + domain + "/partner",
		"https://www." + domain + "/affiliate",
	}
}

// Issue describes a failed check as "<status> (HTTP <code>)", or just the
// status when no response arrived.
func Issue(out urlcheck.Outcome) string {
	if out.HTTPCode > 0 {
		return fmt.Sprintf("%s (HTTP %d)", out.Status, out.HTTPCode)
	}
	return string(out.Status)
}
