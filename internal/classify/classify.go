// Package classify derives expense tiers from the budget configuration.
package classify

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/money"
)

// Formula constants for automatic thresholds.
var (
	DaysPerMonth   = decimal.NewFromInt(30)
	TrivialFactor  = decimal.RequireFromString("0.20")
	ModerateFactor = decimal.RequireFromString("0.50")
)

// Thresholds are the resolved tier boundaries.
type Thresholds struct {
	Trivial  decimal.Decimal
	Moderate decimal.Decimal
}

// DailyIncome is the monthly income spread over a 30-day month.
func DailyIncome(cfg model.Configuration) decimal.Decimal {
	return cfg.MonthlyIncome.Div(DaysPerMonth)
}

// Resolve computes the thresholds in force for cfg. Automatic thresholds are a share of
// daily income rounded down to a multiple of ten; manual thresholds are used as given.
func Resolve(cfg model.Configuration) Thresholds {
	daily := DailyIncome(cfg)
	return Thresholds{
		Trivial:  resolveOne(cfg.Thresholds.Trivial, daily, TrivialFactor),
		Moderate: resolveOne(cfg.Thresholds.Moderate, daily, ModerateFactor),
	}
}

func resolveOne(s model.ThresholdSetting, daily, factor decimal.Decimal) decimal.Decimal {
	if s.Automatic {
		return money.FloorToTen(daily.Mul(factor))
	}
	return s.Amount
}

// Tier classifies an absolute amount. Comparisons run in order and are never corrected
// for inverted thresholds.
func (th Thresholds) Tier(amount decimal.Decimal) model.Tier {
	abs := amount.Abs()
	if abs.LessThanOrEqual(th.Trivial) {
		return model.TierTrivial
	}
	if abs.LessThanOrEqual(th.Moderate) {
		return model.TierModerate
	}
	return model.TierExceptional
}

// Inverted reports whether the moderate boundary is below the trivial one.
func (th Thresholds) Inverted() bool {
	return th.Moderate.LessThan(th.Trivial)
}

// Applies reports whether txn is eligible for a derived tier: an expense not pre-tagged
// automatic.
func Applies(txn *model.Transaction) bool {
	return txn.Category == model.CategoryExpense && txn.Tier != model.TierAutomatic
}

// Classify returns the derived tier of txn, or false when the transaction is not a
// classifiable expense.
func Classify(txn *model.Transaction, cfg model.Configuration) (model.Tier, bool) {
	if !Applies(txn) {
		return model.TierNone, false
	}
	return Resolve(cfg).Tier(txn.Amount), true
}

// Materialize returns copies of txns with derived tiers written out. Input is not modified.
func Materialize(txns []model.Transaction, cfg model.Configuration) []model.Transaction {
	th := Resolve(cfg)
	out := make([]model.Transaction, len(txns))
	for i := range txns {
		out[i] = txns[i].Clone()
		if Applies(&out[i]) {
			out[i].Tier = th.Tier(out[i].Amount)
		}
	}
	return out
}

// Mismatch is a stored tier that differs from the derived one.
type Mismatch struct {
	TransactionID string
	Stored        model.Tier
	Derived       model.Tier
}

// Mismatches lists transactions whose stored tier is stale under cfg.
func Mismatches(txns []model.Transaction, cfg model.Configuration) []Mismatch {
	th := Resolve(cfg)
	var out []Mismatch
	for i := range txns {
		if !Applies(&txns[i]) {
			continue
		}
		derived := th.Tier(txns[i].Amount)
		if txns[i].Tier != derived {
			out = append(out, Mismatch{
				TransactionID: txns[i].ID,
				Stored:        txns[i].Tier,
				Derived:       derived,
			})
		}
	}
	return out
}
