package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/savings-plan/internal/cli"
)

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary [YYYY-MM]",
		Short: "Show the balance summary of a month",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := periodArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				s, err := a.engine.Summary(ctx, p)
				if err != nil {
					return explain(err, p)
				}
				progress, err := a.engine.SavingsProgress(ctx, p)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.RenderSummary(s))
				fmt.Fprintf(out, "Saved %s of %s goal (%s%%, %s)\n",
					cli.Amount(progress.Saved), cli.Amount(progress.Goal), progress.Percent.StringFixed(1), progress.Status)
				return nil
			})
		},
	}
}

func detailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detail [YYYY-MM]",
		Short: "Show consumption per budget section",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := periodArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				detail, err := a.engine.DetailByTier(ctx, p)
				if err != nil {
					return explain(err, p)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderDetail(detail))
				return nil
			})
		},
	}
}

func breakdownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "breakdown [YYYY-MM]",
		Short: "Show expenses grouped by subcategory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := periodArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				groups, err := a.engine.Breakdown(ctx, p)
				if err != nil {
					return explain(err, p)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBreakdown(p, groups))
				return nil
			})
		},
	}
}

func alertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts [YYYY-MM]",
		Short: "List budget sections near or over their cap",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := periodArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				alerts, err := a.engine.Alerts(ctx, p)
				if err != nil {
					return explain(err, p)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderAlerts(p, alerts))
				return nil
			})
		},
	}
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that consecutive months chain their balances",
		Long: `Check that each month's opening balance equals the previous month's closing balance.

Months without data are reported as warnings, as are overdue obligations whose origin month
lies outside the checked range.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			periods, err := periodRange(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				report, err := a.engine.Validate(ctx, periods)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderValidation(report))
				if !report.Valid {
					return fmt.Errorf("%d inconsistent periods", len(report.Errors))
				}
				return nil
			})
		},
	}
	cmd.Flags().String("from", "", "first month (YYYY-MM, default current)")
	cmd.Flags().String("to", "", "last month (YYYY-MM, default current)")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show balances, savings progress and consistency across months",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			periods, err := periodRange(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				report, err := a.engine.Report(ctx, periods)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.RenderReport(report))
				for _, p := range report.Missing {
					fmt.Fprintln(out, cli.FormatInfo("No data for "+p.Label()))
				}
				return nil
			})
		},
	}
	cmd.Flags().String("from", "", "first month (YYYY-MM, default current)")
	cmd.Flags().String("to", "", "last month (YYYY-MM, default current)")
	return cmd
}
