package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/session"
)

func newBalancesCommand() *cobra.Command {
	var dateFlag string

	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Show fund balances and current period usage",
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

			balances := sess.Balances()
			stats := sess.PeriodStats(ref)
			cfg := sess.Config()

			fmt.Printf("General:   %s\n", balances.General.StringFixed(2))
			fmt.Printf("Provision: %s\n", balances.Provision.StringFixed(2))
			fmt.Println()
			fmt.Printf("Period used: %s", stats.TotalUsed.StringFixed(2))
			if cfg.MonthlyIncomeGoal.IsPositive() {
				fmt.Printf(" of %s (%.1f%%), remaining %s",
					cfg.MonthlyIncomeGoal.StringFixed(2), stats.Progress, stats.Remaining.StringFixed(2))
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "reference date YYYY-MM-DD (default today)")

	return cmd
}

func newListCommand() *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cleanup, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tTYPE\tFUND\tAMOUNT\tDESCRIPTION\tID")
			for _, tx := range sess.Transactions() {
				if month != "" && tx.MonthKey() != month {
					continue
				}
				fund := string(tx.Source)
				if tx.Type == core.Transfer {
					fund = fmt.Sprintf("%s>%s", tx.Source, tx.Destination)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					tx.Date.Format("2006-01-02"), tx.Type, fund,
					tx.Amount.StringFixed(2), tx.Description, tx.ID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "filter by month YYYY-MM")

	return cmd
}

func newAddCommand() *cobra.Command {
	var (
		dateFlag    string
		txType      string
		source      string
		destination string
	)

	cmd := &cobra.Command{
		Use:   "add <amount> <description>",
		Short: "Record a transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := time.Now()
			if dateFlag != "" {
				var err error
				date, err = time.Parse("2006-01-02", dateFlag)
				if err != nil {
					return fmt.Errorf("parsing date: %w", err)
				}
			}

			sess, cleanup, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			tx, err := sess.Add(cmd.Context(), session.AddInput{
				Date:        date,
				Description: args[1],
				Amount:      args[0],
				Type:        core.TransactionType(txType),
				Source:      core.FundSource(source),
				Destination: core.FundSource(destination),
			})
			if err != nil {
				return fmt.Errorf("adding transaction: %w", err)
			}

			fmt.Printf("Added %s: %s %s on %s (%s)\n",
				tx.ID, tx.Type, tx.Amount.StringFixed(2), tx.Date.Format("2006-01-02"), tx.Source)
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "transaction date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&txType, "type", string(core.Expense), "INCOME, EXPENSE or TRANSFER")
	cmd.Flags().StringVar(&source, "source", string(core.General), "GENERAL or PROVISION")
	cmd.Flags().StringVar(&destination, "destination", "", "transfer destination fund")

	return cmd
}

func newDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <transaction-id>",
		Short: "Delete a transaction by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cleanup, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := sess.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deleting transaction: %w", err)
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}

	return cmd
}

func parseRefDate(flag string) (time.Time, error) {
	if flag == "" {
		return time.Now(), nil
	}
	ref, err := time.Parse("2006-01-02", flag)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date: %w", err)
	}
	return ref, nil
}
