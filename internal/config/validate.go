package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/classify"
	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Warning is a configuration problem surfaced at save time. Warnings never block a save;
// the classifier and evaluator stay deterministic under any configuration.
type Warning struct {
	Field   string
	Message string
}

func (w Warning) String() string {
	return w.Field + ": " + w.Message
}

// Validate inspects cfg and returns every problem found.
func Validate(cfg model.Configuration) []Warning {
	var warnings []Warning
	add := func(field, format string, args ...any) {
		warnings = append(warnings, Warning{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !cfg.MonthlyIncome.IsPositive() {
		add("monthly_income", "must be positive, got %s", cfg.MonthlyIncome)
	}
	if cfg.SavingsGoal.IsNegative() {
		add("savings_goal", "must not be negative, got %s", cfg.SavingsGoal)
	}
	if cfg.MonthlyIncome.IsPositive() && cfg.SavingsGoal.GreaterThanOrEqual(cfg.MonthlyIncome) {
		add("savings_goal", "%s is not below monthly income %s", cfg.SavingsGoal, cfg.MonthlyIncome)
	}

	for name, s := range map[string]model.ThresholdSetting{
		"thresholds.trivial":  cfg.Thresholds.Trivial,
		"thresholds.moderate": cfg.Thresholds.Moderate,
	} {
		if !s.Automatic && s.Amount.IsNegative() {
			add(name, "manual amount must not be negative, got %s", s.Amount)
		}
	}

	th := classify.Resolve(cfg)
	if th.Inverted() {
		add("thresholds", "moderate threshold %s is below trivial threshold %s", th.Moderate, th.Trivial)
	}

	for _, s := range model.Sections {
		c := cfg.Cap(s)
		field := "caps." + string(s)
		if c.Amount.Valid && c.Amount.Decimal.IsNegative() {
			add(field, "amount must not be negative, got %s", c.Amount.Decimal)
		}
		if c.Percentage.Valid {
			p := c.Percentage.Decimal
			if p.IsNegative() || p.GreaterThan(hundred) {
				add(field, "percentage must be between 0 and 100, got %s", p)
			}
		}
	}

	// map iteration above is unordered
	sort.SliceStable(warnings, func(i, j int) bool {
		return warnings[i].Field < warnings[j].Field
	})
	return warnings
}

// Check returns an error wrapping common.ErrInvalidConfig listing every warning, or nil.
func Check(cfg model.Configuration) error {
	warnings := Validate(cfg)
	if len(warnings) == 0 {
		return nil
	}
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = "- " + w.String()
	}
	return fmt.Errorf("%w:\n%s", common.ErrInvalidConfig, strings.Join(lines, "\n"))
}
