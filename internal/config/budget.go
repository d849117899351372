package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/money"
)

// Defaults returns the starter plan: 4000 income, 800 savings goal, automatic thresholds,
// 10% caps on every expense tier, 30% on financial charges, cash movements and recurring
// operations uncapped.
func Defaults() model.Configuration {
	ten := model.PercentCap(decimal.NewFromInt(10))
	return model.Configuration{
		MonthlyIncome: decimal.NewFromInt(4000),
		SavingsGoal:   decimal.NewFromInt(800),
		Thresholds: model.Thresholds{
			Trivial:  model.ThresholdSetting{Automatic: true},
			Moderate: model.ThresholdSetting{Automatic: true},
		},
		Caps: map[model.Section]model.Cap{
			model.SectionAutomatic:       ten,
			model.SectionTrivial:         ten,
			model.SectionModerate:        ten,
			model.SectionExceptional:     ten,
			model.SectionFinancialCharge: model.PercentCap(decimal.NewFromInt(30)),
		},
	}
}

// FromViper overlays the budget.* keys of v onto base. Precedence follows viper: flags,
// environment (PLAN_BUDGET_...), config file, then base.
//
//	budget:
//	  monthly_income: 4000
//	  savings_goal: 800
//	  valid_from: 2024-08-01
//	  applies_to_prior_periods: false
//	  thresholds:
//	    trivial: {automatic: false, amount: 25}
//	  caps:
//	    moderate: {percentage: 10}
//	    financial_charge: {amount: 1200}
func FromViper(v *viper.Viper, base model.Configuration) (model.Configuration, error) {
	cfg := base.Clone()

	if err := readDecimal(v, "budget.monthly_income", &cfg.MonthlyIncome); err != nil {
		return cfg, err
	}
	if err := readDecimal(v, "budget.savings_goal", &cfg.SavingsGoal); err != nil {
		return cfg, err
	}
	if v.IsSet("budget.applies_to_prior_periods") {
		cfg.AppliesToPriorPeriods = v.GetBool("budget.applies_to_prior_periods")
	}
	if v.IsSet("budget.valid_from") {
		switch raw := v.Get("budget.valid_from").(type) {
		case time.Time:
			cfg.ValidFrom = raw
		default:
			s := v.GetString("budget.valid_from")
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				return cfg, fmt.Errorf("%w: budget.valid_from %q: %w", common.ErrInvalidConfig, s, err)
			}
			cfg.ValidFrom = t
		}
	}

	for name, setting := range map[string]*model.ThresholdSetting{
		"trivial":  &cfg.Thresholds.Trivial,
		"moderate": &cfg.Thresholds.Moderate,
	} {
		prefix := "budget.thresholds." + name
		if v.IsSet(prefix + ".automatic") {
			setting.Automatic = v.GetBool(prefix + ".automatic")
		}
		if err := readDecimal(v, prefix+".amount", &setting.Amount); err != nil {
			return cfg, err
		}
	}

	for _, s := range model.Sections {
		prefix := "budget.caps." + string(s)
		if !v.IsSet(prefix) {
			continue
		}
		c, err := readCap(v, prefix)
		if err != nil {
			return cfg, err
		}
		cfg.Caps[s] = c
	}

	return cfg, nil
}

func readDecimal(v *viper.Viper, key string, dst *decimal.Decimal) error {
	if !v.IsSet(key) {
		return nil
	}
	d, err := money.Parse(v.GetString(key))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, key, err)
	}
	*dst = d
	return nil
}

func readCap(v *viper.Viper, prefix string) (model.Cap, error) {
	var c model.Cap
	for key, dst := range map[string]*decimal.NullDecimal{
		prefix + ".amount":     &c.Amount,
		prefix + ".percentage": &c.Percentage,
	} {
		if !v.IsSet(key) {
			continue
		}
		var d decimal.Decimal
		if err := readDecimal(v, key, &d); err != nil {
			return c, err
		}
		*dst = decimal.NewNullDecimal(d)
	}
	return c, nil
}
