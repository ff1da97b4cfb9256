package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/affwiki/internal/agents"
)

// Key administration talks to the database directly; holding the database
// credentials is the authorization.
func (a *app) keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Administer agent keys",
	}

	var (
		name      string
		role      string
		scopes    []string
		rateLimit int
		ttl       time.Duration
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Issue a new agent key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := agents.ParseRole(role)
			if err != nil {
				return err
			}
			command := agents.CreateCommand{
				Name:      name,
				Role:      r,
				Scopes:    scopes,
				RateLimit: rateLimit,
			}
			if ttl > 0 {
				expires := time.Now().Add(ttl)
				command.ExpiresAt = &expires
			}
			return a.with(cmd.Context(), func(s *session) error {
				k, err := s.Keys.Create(cmd.Context(), command)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), k)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "Key name")
	create.Flags().StringVar(&role, "role", "", fmt.Sprintf("Agent role %v", agents.Roles()))
	create.Flags().StringSliceVar(&scopes, "scope", nil, "Scope (repeatable)")
	create.Flags().IntVar(&rateLimit, "rate-limit", 100, "Requests per minute")
	create.Flags().DurationVar(&ttl, "ttl", 0, "Expire the key after this duration")
	create.MarkFlagRequired("name")
	create.MarkFlagRequired("role")

	list := &cobra.Command{
		Use:   "list",
		Short: "List agent keys with usage counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd.Context(), func(s *session) error {
				keys, err := s.Keys.List(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), keys)
			})
		},
	}

	disable := &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable an agent key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd.Context(), func(s *session) error {
				k, err := s.Keys.Disable(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), k)
			})
		},
	}

	cmd.AddCommand(create, list, disable)
	return cmd
}
