// Package alert compares consumption against configured caps.
package alert

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/money"
)

// Level is the alert state of a capped section.
type Level string

// Alert levels, in increasing severity.
const (
	LevelNormal  Level = "normal"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// Boundaries, in percent of cap. Each boundary belongs to the stricter level.
var (
	WarningAt = decimal.NewFromInt(90)
	DangerAt  = decimal.NewFromInt(100)
)

// Severity orders levels for sorting; higher is worse.
func (l Level) Severity() int {
	switch l {
	case LevelDanger:
		return 2
	case LevelWarning:
		return 1
	}
	return 0
}

// Evaluation is the result of comparing a total with a cap.
type Evaluation struct {
	Level       Level
	Cap         decimal.NullDecimal
	PercentUsed decimal.Decimal
}

// Capped reports whether a cap was configured.
func (e Evaluation) Capped() bool {
	return e.Cap.Valid
}

// ResolveCap turns a configured cap into an amount. A fixed amount wins over a percentage
// of income; neither yields an invalid (uncapped) value.
func ResolveCap(c model.Cap, income decimal.Decimal) decimal.NullDecimal {
	if c.Amount.Valid {
		return c.Amount
	}
	if c.Percentage.Valid {
		return decimal.NewNullDecimal(money.OfPercent(income, c.Percentage.Decimal))
	}
	return decimal.NullDecimal{}
}

// Evaluate derives the alert level of total against limit. Uncapped totals are always
// normal with zero percent used. A cap of zero or less is exhausted by any consumption.
func Evaluate(total decimal.Decimal, limit decimal.NullDecimal) Evaluation {
	if !limit.Valid {
		return Evaluation{Level: LevelNormal, PercentUsed: decimal.Zero}
	}

	used := total.Abs()
	if !limit.Decimal.IsPositive() {
		if used.IsZero() {
			return Evaluation{Level: LevelNormal, Cap: limit, PercentUsed: decimal.Zero}
		}
		return Evaluation{Level: LevelDanger, Cap: limit, PercentUsed: DangerAt}
	}

	pct := money.Percent(used, limit.Decimal)
	return Evaluation{Level: LevelFor(pct), Cap: limit, PercentUsed: pct}
}

// LevelFor maps a percentage of cap to a level.
func LevelFor(pct decimal.Decimal) Level {
	switch {
	case pct.GreaterThanOrEqual(DangerAt):
		return LevelDanger
	case pct.GreaterThanOrEqual(WarningAt):
		return LevelWarning
	default:
		return LevelNormal
	}
}

// EvaluateSection resolves the section's cap from cfg and evaluates total against it.
func EvaluateSection(total decimal.Decimal, s model.Section, cfg model.Configuration) Evaluation {
	return Evaluate(total, ResolveCap(cfg.Cap(s), cfg.MonthlyIncome))
}
