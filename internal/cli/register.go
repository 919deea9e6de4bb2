package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/config"
	"fintrack/internal/registry"
	gsheet "fintrack/internal/sheets/google"
)

func newRegisterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <user-id> <spreadsheet-id>",
		Short: "Map a user id to an existing spreadsheet in the master registry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.MasterSpreadsheetID == "" {
				return fmt.Errorf("MASTER_SPREADSHEET_ID is not set")
			}

			svc, err := gsheet.NewService(cmd.Context())
			if err != nil {
				return fmt.Errorf("creating sheets service: %w", err)
			}

			reg := registry.New(svc, cfg.MasterSpreadsheetID)
			if err := reg.Register(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("registering user: %w", err)
			}
			fmt.Printf("Registered %s -> %s\n", args[0], args[1])
			return nil
		},
	}

	return cmd
}
