package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRolloverCommand() *cobra.Command {
	var dateFlag string

	cmd := &cobra.Command{
		Use:   "rollover",
		Short: "Run the monthly surplus rollover if one is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRefDate(dateFlag)
			if err != nil {
				return err
			}

			sess, cleanup, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			plan, err := sess.Rollover(cmd.Context(), ref)
			if err != nil {
				return fmt.Errorf("running rollover: %w", err)
			}
			if plan == nil {
				fmt.Println("No rollover due")
				return nil
			}
			if plan.Applies() {
				fmt.Printf("Rolled over %s surplus %s into the general fund\n",
					plan.Month, plan.Surplus.StringFixed(2))
			} else {
				fmt.Printf("Marked %s processed, no surplus to roll over\n", plan.Month)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "reference date YYYY-MM-DD (default today)")

	return cmd
}
