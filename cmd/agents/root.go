package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const envAgentKey = "AFFWIKI_AGENT_KEY"

type app struct {
	open opener
	key  string
}

func newRootCmd(open opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:           "agents",
		Short:         "Editorial pipeline agents",
		Long:          "Runs the staleness patrol, automated reviewer and researcher against the\neditorial pipeline database, and administers agent keys.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&a.key, "key", "k", os.Getenv(envAgentKey), "Agent key to act with")

	root.AddCommand(
		a.patrolCmd(),
		a.reviewCmd(),
		a.researchCmd(),
		a.keysCmd(),
	)
	return root
}

// with opens a session for the duration of fn.
func (a *app) with(ctx context.Context, fn func(s *session) error) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
