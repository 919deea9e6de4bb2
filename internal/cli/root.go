// Package cli wires the CLI subcommands.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/session"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fintrack",
		Short: "Two-fund personal finance ledger backed by a spreadsheet",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newBalancesCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newAddCommand())
	rootCmd.AddCommand(newDeleteCommand())
	rootCmd.AddCommand(newRolloverCommand())
	rootCmd.AddCommand(newAdviceCommand())
	rootCmd.AddCommand(newRegisterCommand())

	return rootCmd
}

// openSession builds a loaded session against the configured backend.
// The cleanup func must be called when the command finishes.
func openSession(ctx context.Context) (*session.Session, func() error, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validating config: %w", err)
	}

	store, cleanup, err := backend.Create(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating backend: %w", err)
	}

	sess := session.New(store, nil)
	if err := sess.Load(ctx); err != nil {
		_ = cleanup()
		return nil, nil, fmt.Errorf("loading ledger: %w", err)
	}
	return sess, cleanup, nil
}
