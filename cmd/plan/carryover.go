package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/savings-plan/internal/cli"
	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/filter"
	"github.com/Veraticus/savings-plan/internal/ledger"
)

func carryOverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "carry-over <from YYYY-MM> <to YYYY-MM>",
		Short: "Move unpaid obligations of a month into a later month",
		Long: `Move every pending financial charge and recurring operation of a month into a later
month, flagged overdue with the month they originally belonged to.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parsePeriod(args[0])
			if err != nil {
				return err
			}
			to, err := parsePeriod(args[1])
			if err != nil {
				return err
			}
			if !from.Before(to) {
				return common.NewUserError(fmt.Sprintf("%s must come before %s", from, to), nil)
			}
			yes, _ := cmd.Flags().GetBool("yes")

			return withApp(cmd, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()

				txns, err := a.engine.Transactions(ctx, from)
				if err != nil {
					return explain(err, from)
				}
				candidates := ledger.OverdueCandidates(txns)
				if len(candidates) == 0 {
					fmt.Fprintln(out, cli.FormatInfo("No unpaid obligations in "+from.Label()))
					return nil
				}
				fmt.Fprintln(out, cli.RenderTransactions(candidates))

				if !yes {
					prompter := cli.NewPrompter(os.Stdin, out)
					ok, err := prompter.Confirm(ctx, fmt.Sprintf("Move %d obligations (%s) into %s?",
						len(candidates), cli.Amount(ledger.PendingDue(candidates)), to.Label()))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(out, cli.FormatInfo("Nothing moved"))
						return nil
					}
				}

				moved, err := a.engine.CarryOverdue(ctx, from, to)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Moved %d obligations from %s to %s", moved, from.Label(), to.Label())))

				overdue := true
				due, err := a.engine.Sum(ctx, to, filter.Criteria{Overdue: &overdue}.Spec())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Overdue in %s: %s\n", to.Label(), cli.Amount(due))
				return nil
			})
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}
