package main

import (
	"github.com/spf13/cobra"

	"github.com/JaimeStill/affwiki/internal/evidence"
	"github.com/JaimeStill/affwiki/internal/patrol"
	"github.com/JaimeStill/affwiki/internal/verification"
)

func (a *app) patrolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patrol",
		Short: "Staleness patrol over program signup URLs",
	}

	var noProposals bool
	run := &cobra.Command{
		Use:   "run",
		Short: "Check one batch of stale signup URLs and propose fixes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd.Context(), func(s *session) error {
				p := newPatrol(s, a.key, !noProposals)
				report, err := p.Run(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	run.Flags().BoolVar(&noProposals, "no-proposals", false, "Record runs without opening remediation proposals")

	var days int
	stale := &cobra.Command{
		Use:   "stale",
		Short: "List programs whose research is stale or missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd.Context(), func(s *session) error {
				if days < 1 {
					days = s.Config.Patrol.StaleDays
				}
				programs, err := newPatrol(s, a.key, false).StaleResearch(cmd.Context(), days)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), programs)
			})
		},
	}
	stale.Flags().IntVar(&days, "days", 0, "Stale threshold in days (default patrol.stale_days)")

	cmd.AddCommand(run, stale)
	return cmd
}

func newPatrol(s *session, key string, propose bool) *patrol.Patrol {
	cfg := s.Config
	if key == "" {
		key = cfg.Patrol.Key
	}

	verify := verification.New(s.DB(), s.Checker, cfg.Editorial.VerifyWorkers, s.Logger())
	capturer := evidence.New(s.Infra.Storage, cfg.Editorial.URLTimeoutDuration(), cfg.Editorial.UserAgent, s.Logger())

	return patrol.New(
		patrol.Deps{
			DB:           s.DB(),
			Keys:         s.Keys,
			Verification: verify,
			Proposals:    s.Proposals,
			Checker:      s.Checker,
			Capturer:     capturer,
		},
		key,
		patrol.Options{
			BatchSize:       cfg.Patrol.BatchSize,
			Workers:         cfg.Patrol.Workers,
			StaleDays:       cfg.Patrol.StaleDays,
			CreateProposals: propose,
		},
		s.Logger(),
	)
}
