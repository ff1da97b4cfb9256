package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/internal/gates"
	"github.com/JaimeStill/affwiki/internal/reviewer"
)

func (a *app) reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Automated review of pending proposals",
	}

	var (
		limit   int
		publish bool
	)
	pending := &cobra.Command{
		Use:   "pending",
		Short: "Gate and decide every pending proposal, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd.Context(), func(s *session) error {
				agent, err := a.reviewer(cmd, s)
				if err != nil {
					return err
				}
				summary, err := agent.ReviewPending(cmd.Context(), limit, publish)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
	pending.Flags().IntVar(&limit, "limit", 50, "Maximum proposals to review")
	pending.Flags().BoolVar(&publish, "publish", false, "Publish approved proposals that need no SEO pass")

	one := &cobra.Command{
		Use:   "proposal <id>",
		Short: "Gate and decide a single proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid proposal id %q: %w", args[0], err)
			}
			return a.with(cmd.Context(), func(s *session) error {
				agent, err := a.reviewer(cmd, s)
				if err != nil {
					return err
				}
				out, err := agent.Review(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}

	cmd.AddCommand(pending, one)
	return cmd
}

func (a *app) reviewer(cmd *cobra.Command, s *session) (*reviewer.Agent, error) {
	identity, err := s.authenticate(cmd.Context(), a.key, agents.RoleReviewer, agents.RoleAdmin)
	if err != nil {
		return nil, err
	}
	pipeline, err := gates.Default(s.Checker)
	if err != nil {
		return nil, err
	}
	return reviewer.New(s.Proposals, pipeline, *identity, s.Logger()), nil
}
