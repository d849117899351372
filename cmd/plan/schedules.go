package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/savings-plan/internal/cli"
	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/money"
	"github.com/Veraticus/savings-plan/internal/storage"
)

func schedulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedules",
		Aliases: []string{"recurring"},
		Short:   "Manage recurring operations",
	}
	cmd.AddCommand(schedulesListCmd(), schedulesAddCmd(), schedulesGenerateCmd())
	return cmd
}

func schedulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recurring schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				schedules, err := a.store.ListSchedules(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSchedules(schedules))
				return nil
			})
		},
	}
}

func schedulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <id> <description> <amount>",
		Short: "Add or replace a recurring schedule",
		Long: `Add or replace a recurring schedule. Amounts are signed: rent is -900, a salary 2500.
Put negative amounts after -- so they are not read as flags:

  plan schedules add --day 5 --since 2024-01 rent "Apartment rent" -- -900`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := scheduleFromArgs(cmd, args)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.store.SaveSchedule(ctx, sched); err != nil {
					if errors.Is(err, storage.ErrInvalidSched) {
						return common.NewUserError(err.Error(), err)
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Saved schedule "+sched.ID))
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.Int("day", 0, "day of month the payment is due (0 for the last day)")
	f.String("category", string(model.CategoryExpense), "category of the generated transactions")
	f.String("instrument", string(model.InstrumentDebit), "payment instrument (debit, credit)")
	f.String("since", "", "first month (YYYY-MM)")
	f.String("until", "", "last month (YYYY-MM)")
	f.Bool("paused", false, "save the schedule without generating occurrences")
	return cmd
}

// scheduleFromArgs builds a schedule from the add command's arguments and flags.
func scheduleFromArgs(cmd *cobra.Command, args []string) (model.Schedule, error) {
	amount, err := money.Parse(args[2])
	if err != nil {
		return model.Schedule{}, common.NewUserError(fmt.Sprintf("%q is not an amount", args[2]), err)
	}

	f := cmd.Flags()
	day, _ := f.GetInt("day")
	category, _ := f.GetString("category")
	instrument, _ := f.GetString("instrument")
	paused, _ := f.GetBool("paused")

	sched := model.Schedule{
		ID:          args[0],
		Description: args[1],
		Amount:      amount,
		DayOfMonth:  day,
		Category:    model.Category(category),
		Instrument:  model.Instrument(instrument),
		Active:      !paused,
	}

	if since, _ := f.GetString("since"); since != "" {
		if sched.StartPeriod, err = parsePeriod(since); err != nil {
			return model.Schedule{}, err
		}
	}
	if until, _ := f.GetString("until"); until != "" {
		if sched.EndPeriod, err = parsePeriod(until); err != nil {
			return model.Schedule{}, err
		}
	}
	return sched, nil
}

func schedulesGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate [YYYY-MM]",
		Short: "Create the pending transactions of every active schedule for a month",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := periodArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				created, err := a.engine.GenerateOccurrences(ctx, p)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if created == 0 {
					fmt.Fprintln(out, cli.FormatInfo("Every occurrence of "+p.Label()+" already exists"))
					return nil
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Created %d pending occurrences in %s", created, p.Label())))
				return nil
			})
		},
	}
}
