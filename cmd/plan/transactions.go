package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/savings-plan/internal/cli"
	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/engine"
	"github.com/Veraticus/savings-plan/internal/filter"
	"github.com/Veraticus/savings-plan/internal/model"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions [YYYY-MM]",
		Aliases: []string{"tx"},
		Short:   "List, total or group the transactions of a month",
		Long: `List the transactions of a month that match every given filter.

With --sum only the signed total is printed. With --group-by the matches are grouped by
subcategory, category, tier or instrument, largest first.

--where takes "field op value" and can be repeated, for example:
  plan transactions 2024-08 --where "amount < -50" --where "tier in trivial,moderate"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := periodArg(args)
			if err != nil {
				return err
			}
			criteria, err := criteriaFromFlags(cmd)
			if err != nil {
				return err
			}
			spec := criteria.Spec()

			sum, _ := cmd.Flags().GetBool("sum")
			groupBy, _ := cmd.Flags().GetString("group-by")
			top, _ := cmd.Flags().GetInt("top")
			absolute, _ := cmd.Flags().GetBool("absolute")

			return withApp(cmd, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				switch {
				case groupBy != "":
					groups, err := a.engine.GroupBy(ctx, p, spec, groupBy, top, absolute)
					if err != nil {
						return explain(err, p)
					}
					fmt.Fprintln(out, cli.RenderGroups(fmt.Sprintf("By %s %s", groupBy, p.Label()), groupBy, groups))
				case sum:
					total, err := a.engine.Sum(ctx, p, spec)
					if err != nil {
						return explain(err, p)
					}
					fmt.Fprintf(out, "Total %s: %s\n", p.Label(), cli.Amount(total))
				default:
					txns, err := a.engine.Filter(ctx, p, spec)
					if err != nil {
						return explain(err, p)
					}
					fmt.Fprintln(out, cli.RenderTransactions(txns))
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringSlice("category", nil, "primary categories (expense, income, cash_movement, financial_charge)")
	f.StringSlice("user-category", nil, "user categories (recurring_operation, income, not_applicable)")
	f.Bool("no-user-category", false, "only transactions without a user category")
	f.String("settlement", "", "settlement state (settled, pending, all)")
	f.String("instrument", "", "payment instrument (debit, credit)")
	f.String("tier", "", "expense tier (automatic, trivial, moderate, exceptional)")
	f.String("description", "", "case-insensitive description substring")
	f.String("min", "", "minimum signed amount")
	f.String("max", "", "maximum signed amount")
	f.String("direction", "", "in for inflows, out for outflows")
	f.String("since", "", "first effective date (YYYY-MM-DD)")
	f.String("until", "", "last effective date (YYYY-MM-DD)")
	f.Bool("linked", false, "only linked transactions")
	f.Bool("unlinked", false, "only unlinked transactions")
	f.Bool("overdue", false, "only obligations carried over from an earlier month")
	f.StringArray("where", nil, "generic condition \"field op value\"")
	f.Bool("sum", false, "print the total instead of the list")
	f.String("group-by", "", "group by subcategory, category, tier or instrument")
	f.Int("top", 0, "keep the largest N groups and fold the rest into other")
	f.Bool("absolute", false, "group by absolute amounts")
	cmd.MarkFlagsMutuallyExclusive("linked", "unlinked")
	cmd.MarkFlagsMutuallyExclusive("sum", "group-by")

	return cmd
}

// criteriaFromFlags collects the filter flags of the transactions command.
func criteriaFromFlags(cmd *cobra.Command) (filter.Criteria, error) {
	f := cmd.Flags()
	var c filter.Criteria

	categories, _ := f.GetStringSlice("category")
	for _, s := range categories {
		cat := model.Category(s)
		if !cat.Valid() {
			return c, common.NewUserError(fmt.Sprintf("Unknown category %q", s), nil)
		}
		c.Categories = append(c.Categories, cat)
	}
	userCats, _ := f.GetStringSlice("user-category")
	for _, s := range userCats {
		c.UserCats = append(c.UserCats, model.UserCategory(s))
	}
	c.NoUserCat, _ = f.GetBool("no-user-category")

	settlement, _ := f.GetString("settlement")
	c.Settlement = model.Settlement(settlement)
	instrument, _ := f.GetString("instrument")
	c.Instrument = model.Instrument(instrument)
	tier, _ := f.GetString("tier")
	c.Tier = model.Tier(tier)
	c.Description, _ = f.GetString("description")

	var err error
	if c.MinAmount, err = amountFlag(cmd, "min"); err != nil {
		return c, err
	}
	if c.MaxAmount, err = amountFlag(cmd, "max"); err != nil {
		return c, err
	}
	if c.From, err = dateFlag(cmd, "since"); err != nil {
		return c, err
	}
	if c.To, err = dateFlag(cmd, "until"); err != nil {
		return c, err
	}
	if !c.To.IsZero() {
		c.To = c.To.Add(24*time.Hour - time.Nanosecond)
	}

	direction, _ := f.GetString("direction")
	switch strings.ToLower(direction) {
	case "":
	case "in":
		c.Direction = filter.Inflow
	case "out":
		c.Direction = filter.Outflow
	default:
		return c, common.NewUserError(fmt.Sprintf("Unknown direction %q, expected in or out", direction), nil)
	}

	if linked, _ := f.GetBool("linked"); linked {
		c.Linked = &linked
	}
	if unlinked, _ := f.GetBool("unlinked"); unlinked {
		no := false
		c.Linked = &no
	}
	if overdue, _ := f.GetBool("overdue"); overdue {
		c.Overdue = &overdue
	}

	where, _ := f.GetStringArray("where")
	for _, expr := range where {
		cond, err := filter.ParseCondition(expr)
		if err != nil {
			return c, common.NewUserError(err.Error(), err)
		}
		c.Conditions = append(c.Conditions, cond)
	}

	return c, nil
}

func amountFlag(cmd *cobra.Command, name string) (decimal.NullDecimal, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, common.NewUserError(fmt.Sprintf("--%s: %q is not an amount", name, s), err)
	}
	return decimal.NewNullDecimal(d), nil
}

func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, common.NewUserError(fmt.Sprintf("--%s: %q is not a YYYY-MM-DD date", name, s), err)
	}
	return t, nil
}

func reclassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reclassify <transaction-id> <income|recurring_operation|financial_charge>",
		Short: "Change how a transaction counts in the balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := engine.ParseTarget(args[1])
			if err != nil {
				return common.NewUserError(
					fmt.Sprintf("Unknown target %q, expected income, recurring_operation or financial_charge", args[1]), err)
			}
			link, _ := cmd.Flags().GetString("link")

			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.engine.Reclassify(ctx, args[0], target, link)
				if err != nil {
					if common.IsNotFound(err) {
						return common.NewUserError("No transaction or schedule matches "+args[0], err)
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderReclassify(res))
				return nil
			})
		},
	}
	cmd.Flags().String("link", "", "schedule to link the transaction to")
	return cmd
}

func linkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <transaction-id> <schedule-id>",
		Short: "Mark a transaction as the payment of a recurring schedule",
		Long: `Link a transaction to a recurring schedule. Linked transactions are the concrete
payment of an occurrence that is already counted, so they are left out of every balance flow.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.engine.LinkToSchedule(ctx, args[0], args[1]); err != nil {
					if common.IsNotFound(err) {
						return common.NewUserError(fmt.Sprintf("No transaction %s or schedule %s", args[0], args[1]), err)
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s linked to %s", args[0], args[1])))
				return nil
			})
		},
	}
}
