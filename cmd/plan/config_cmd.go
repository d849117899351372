package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/savings-plan/internal/classify"
	"github.com/Veraticus/savings-plan/internal/cli"
	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/config"
	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/money"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the budget configuration",
	}
	cmd.AddCommand(configShowCmd(), configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show income, savings goal, thresholds and caps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			check, _ := cmd.Flags().GetBool("check")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				cfg, err := a.engine.Configuration(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderConfiguration(cfg, classify.Resolve(cfg), config.Validate(cfg)))
				if check {
					return config.Check(cfg)
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool("check", false, "exit with an error when the configuration has warnings")
	return cmd
}

func configSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change parts of the budget configuration",
		Long: `Change parts of the budget configuration. Only the given flags are changed.

Thresholds take an amount or "auto" to derive them from the monthly income.
Caps take section=amount or section=N% (percent of monthly income), and can be repeated:
  plan config set --income 4000 --trivial auto --cap moderate=10% --cap financial_charge=1200`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			patch, err := patchFromFlags(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				warnings, err := a.engine.UpdateConfiguration(ctx, patch)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatSuccess("Configuration saved"))
				for _, w := range warnings {
					fmt.Fprintln(out, cli.FormatWarning(w.String()))
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.String("income", "", "expected monthly income")
	f.String("goal", "", "monthly savings goal")
	f.String("trivial", "", "trivial expense threshold, an amount or auto")
	f.String("moderate", "", "moderate expense threshold, an amount or auto")
	f.StringArray("cap", nil, "section cap as section=amount or section=N%")
	f.String("valid-from", "", "first day the configuration governs (YYYY-MM-DD)")
	f.Bool("retroactive", false, "also apply the configuration to months before valid-from")
	return cmd
}

// patchFromFlags builds a configuration patch from the flags that were set.
func patchFromFlags(cmd *cobra.Command) (model.ConfigurationPatch, error) {
	f := cmd.Flags()
	var patch model.ConfigurationPatch

	if f.Changed("income") {
		s, _ := f.GetString("income")
		d, err := money.Parse(s)
		if err != nil {
			return patch, common.NewUserError(fmt.Sprintf("--income: %q is not an amount", s), err)
		}
		patch.MonthlyIncome = &d
	}
	if f.Changed("goal") {
		s, _ := f.GetString("goal")
		d, err := money.Parse(s)
		if err != nil {
			return patch, common.NewUserError(fmt.Sprintf("--goal: %q is not an amount", s), err)
		}
		patch.SavingsGoal = &d
	}
	if f.Changed("trivial") {
		s, _ := f.GetString("trivial")
		setting, err := parseThreshold(s)
		if err != nil {
			return patch, common.NewUserError("--trivial: "+err.Error(), err)
		}
		patch.Trivial = &setting
	}
	if f.Changed("moderate") {
		s, _ := f.GetString("moderate")
		setting, err := parseThreshold(s)
		if err != nil {
			return patch, common.NewUserError("--moderate: "+err.Error(), err)
		}
		patch.Moderate = &setting
	}

	caps, _ := f.GetStringArray("cap")
	for _, raw := range caps {
		section, c, err := parseCap(raw)
		if err != nil {
			return patch, common.NewUserError("--cap: "+err.Error(), err)
		}
		if patch.Caps == nil {
			patch.Caps = make(map[model.Section]model.Cap)
		}
		patch.Caps[section] = c
	}

	if f.Changed("valid-from") {
		s, _ := f.GetString("valid-from")
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return patch, common.NewUserError(fmt.Sprintf("--valid-from: %q is not a YYYY-MM-DD date", s), err)
		}
		patch.ValidFrom = &t
	}
	if f.Changed("retroactive") {
		retro, _ := f.GetBool("retroactive")
		patch.AppliesToPriorPeriods = &retro
	}

	return patch, nil
}

// parseThreshold reads "auto" or a positive amount.
func parseThreshold(s string) (model.ThresholdSetting, error) {
	if strings.EqualFold(strings.TrimSpace(s), "auto") {
		return model.ThresholdSetting{Automatic: true}, nil
	}
	d, err := money.Parse(s)
	if err != nil {
		return model.ThresholdSetting{}, fmt.Errorf("%w: %q is neither auto nor an amount", common.ErrInvalidConfig, s)
	}
	if !d.IsPositive() {
		return model.ThresholdSetting{}, fmt.Errorf("%w: threshold must be positive, got %s", common.ErrInvalidConfig, s)
	}
	return model.ThresholdSetting{Amount: d}, nil
}

// parseCap reads section=amount or section=N%. An empty value removes the cap.
func parseCap(s string) (model.Section, model.Cap, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return "", model.Cap{}, fmt.Errorf("%w: %q, expected section=amount or section=N%%", common.ErrInvalidConfig, s)
	}

	section := model.Section(strings.TrimSpace(name))
	if !slices.Contains(model.Sections, section) {
		return "", model.Cap{}, fmt.Errorf("%w: unknown section %q", common.ErrInvalidConfig, name)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return section, model.Cap{}, nil
	}
	if pct, isPercent := strings.CutSuffix(value, "%"); isPercent {
		d, err := money.Parse(pct)
		if err != nil {
			return "", model.Cap{}, fmt.Errorf("%w: %q is not a percentage", common.ErrInvalidConfig, value)
		}
		return section, model.PercentCap(d), nil
	}
	d, err := money.Parse(value)
	if err != nil {
		return "", model.Cap{}, fmt.Errorf("%w: %q is not an amount", common.ErrInvalidConfig, value)
	}
	return section, model.FixedCap(d), nil
}
