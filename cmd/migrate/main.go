// Command migrate applies the embedded schema migrations. The target
// database comes from --dsn or, when omitted, from the service config.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/affwiki/internal/config"
	"github.com/JaimeStill/affwiki/internal/schema"
)

func main() {
	if err := newRootCmd(schema.New).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

type opener func(dsn string) (*migrate.Migrate, error)

type app struct {
	open opener
	dsn  string
}

func newRootCmd(open opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the affwiki database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.dsn, "dsn", "", "postgres:// URL (default from config)")

	root.AddCommand(
		a.command("up", "Apply all pending migrations", cobra.NoArgs,
			func(m *migrate.Migrate, _ []string, out io.Writer) error {
				if err := noChange(m.Up()); err != nil {
					return err
				}
				return printVersion(m, out)
			}),
		a.command("down", "Revert every migration", cobra.NoArgs,
			func(m *migrate.Migrate, _ []string, out io.Writer) error {
				if err := noChange(m.Down()); err != nil {
					return err
				}
				fmt.Fprintln(out, "schema reverted")
				return nil
			}),
		a.command("steps <n>", "Move n migrations; negative n reverts (pass after --)", exactInt,
			func(m *migrate.Migrate, args []string, out io.Writer) error {
				n, _ := strconv.Atoi(args[0])
				if err := noChange(m.Steps(n)); err != nil {
					return err
				}
				return printVersion(m, out)
			}),
		a.command("version", "Print the applied version", cobra.NoArgs,
			func(m *migrate.Migrate, _ []string, out io.Writer) error {
				return printVersion(m, out)
			}),
		a.command("force <version>", "Set the version without running migrations", exactInt,
			func(m *migrate.Migrate, args []string, out io.Writer) error {
				v, _ := strconv.Atoi(args[0])
				if err := m.Force(v); err != nil {
					return err
				}
				fmt.Fprintf(out, "forced to version %d\n", v)
				return nil
			}),
	)
	return root
}

func (a *app) command(use, short string, args cobra.PositionalArgs, run func(*migrate.Migrate, []string, io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.migrator()
			if err != nil {
				return err
			}
			defer m.Close()
			return run(m, args, cmd.OutOrStdout())
		},
	}
}

func (a *app) migrator() (*migrate.Migrate, error) {
	dsn := a.dsn
	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("no --dsn and config load failed: %w", err)
		}
		dsn = cfg.Database.Dsn()
	}
	return a.open(dsn)
}

// exactInt accepts a single integer argument.
func exactInt(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	if _, err := strconv.Atoi(args[0]); err != nil {
		return fmt.Errorf("invalid number %q", args[0])
	}
	return nil
}

func noChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func printVersion(m *migrate.Migrate, out io.Writer) error {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Fprintln(out, "no migrations applied")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "version %d, dirty %t\n", v, dirty)
	return nil
}
