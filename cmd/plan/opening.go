package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/savings-plan/internal/cli"
	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/money"
)

func openingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opening",
		Short: "Show or record the opening balance of a month",
	}
	cmd.AddCommand(openingShowCmd(), openingSetCmd())
	return cmd
}

func openingShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [YYYY-MM]",
		Short: "Show the opening balance of a month",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := periodArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				amount, recorded, err := a.engine.Opening(ctx, p)
				if err != nil {
					return explain(err, p)
				}
				source := "carried from " + p.Prev().Label()
				if recorded {
					source = "recorded"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Opening balance %s: %s (%s)\n", p.Label(), cli.Amount(amount), source)
				return nil
			})
		},
	}
}

func openingSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <YYYY-MM> <amount>",
		Short: "Record the opening balance of a month",
		Long: `Record the opening balance of a month. Months without a recorded opening balance
open with the previous month's closing balance.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePeriod(args[0])
			if err != nil {
				return err
			}
			amount, err := money.Parse(args[1])
			if err != nil {
				return common.NewUserError(fmt.Sprintf("%q is not an amount", args[1]), err)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.engine.SetOpeningBalance(ctx, p, amount); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Opening balance of %s set to %s", p.Label(), money.Format(amount))))
				return nil
			})
		},
	}
}
