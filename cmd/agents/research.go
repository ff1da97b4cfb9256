package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/internal/research"
	"github.com/JaimeStill/affwiki/pkg/retry"
)

type researchReport struct {
	Finding  *research.Finding `json:"finding"`
	Proposal any               `json:"proposal,omitempty"`
}

func (a *app) researchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "research",
		Short: "LLM research of affiliate programs",
	}

	var submit bool
	program := &cobra.Command{
		Use:   "program <id>",
		Short: "Research one program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id < 1 {
				return fmt.Errorf("invalid program id %q", args[0])
			}
			return a.with(cmd.Context(), func(s *session) error {
				identity, agent, err := a.researcher(cmd, s)
				if err != nil {
					return err
				}
				f, err := agent.Research(cmd.Context(), id)
				if err != nil {
					return err
				}
				report := researchReport{Finding: f}
				if submit {
					res, err := agent.Submit(cmd.Context(), *identity, f)
					if err != nil {
						return err
					}
					report.Proposal = res
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	program.Flags().BoolVar(&submit, "submit", false, "Submit the finding as a proposal")

	var (
		days, limit, workers int
		batchSubmit          bool
	)
	batch := &cobra.Command{
		Use:   "batch",
		Short: "Research programs with stale or missing research",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd.Context(), func(s *session) error {
				identity, agent, err := a.researcher(cmd, s)
				if err != nil {
					return err
				}
				if days < 1 {
					days = s.Config.Patrol.StaleDays
				}
				report, err := agent.ResearchBatch(cmd.Context(), *identity, days, limit, workers, batchSubmit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	batch.Flags().IntVar(&days, "days", 0, "Stale threshold in days (default patrol.stale_days)")
	batch.Flags().IntVar(&limit, "limit", 20, "Maximum programs to research")
	batch.Flags().IntVar(&workers, "workers", 3, "Concurrent model calls")
	batch.Flags().BoolVar(&batchSubmit, "submit", true, "Submit findings as proposals")

	cmd.AddCommand(program, batch)
	return cmd
}

func (a *app) researcher(cmd *cobra.Command, s *session) (*agents.Identity, *research.Agent, error) {
	identity, err := s.authenticate(cmd.Context(), a.key, agents.RoleResearcher, agents.RoleAdmin)
	if err != nil {
		return nil, nil, err
	}
	model, err := research.NewAgentModel(&s.Config.Agent)
	if err != nil {
		return nil, nil, fmt.Errorf("research model: %w", err)
	}
	return identity, research.New(s.DB(), model, s.Proposals, retry.DefaultPolicy(), s.Logger()), nil
}
