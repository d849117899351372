package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/money"
)

// ResourceSummary is the balance breakdown of one period.
type ResourceSummary struct {
	Period         model.Period
	Opening        decimal.Decimal
	Income         decimal.Decimal
	RecurringNet   decimal.Decimal
	Expenses       decimal.Decimal
	CashMovements  decimal.Decimal
	SettledCharges decimal.Decimal
	PendingDue     decimal.Decimal
	Closing        decimal.Decimal
	Unclamped      decimal.Decimal // closing balance before clamping at zero
}

// Flows returns the flow part of the summary.
func (s ResourceSummary) Flows() Flows {
	return Flows{
		Income:         s.Income,
		RecurringNet:   s.RecurringNet,
		Expenses:       s.Expenses,
		CashMovements:  s.CashMovements,
		SettledCharges: s.SettledCharges,
	}
}

// Summarize builds the resource summary of a period.
func Summarize(p model.Period, opening decimal.Decimal, txns []model.Transaction) ResourceSummary {
	f := ComputeFlows(txns)
	raw := opening.Add(f.Net())
	return ResourceSummary{
		Period:         p,
		Opening:        opening,
		Income:         f.Income,
		RecurringNet:   f.RecurringNet,
		Expenses:       f.Expenses,
		CashMovements:  f.CashMovements,
		SettledCharges: f.SettledCharges,
		PendingDue:     PendingDue(txns),
		Closing:        money.ClampZero(raw),
		Unclamped:      raw,
	}
}

// Snapshot derives the period snapshot used by the consistency validator.
func Snapshot(p model.Period, opening decimal.Decimal, recorded bool, txns []model.Transaction) model.PeriodSnapshot {
	snap := model.PeriodSnapshot{
		Period:          p,
		Opening:         opening,
		Closing:         ClosingBalance(txns, opening),
		RecordedOpening: recorded,
		TransactionIDs:  make([]string, 0, len(txns)),
	}
	for i := range txns {
		snap.TransactionIDs = append(snap.TransactionIDs, txns[i].ID)
		if txns[i].Overdue {
			snap.OverdueIDs = append(snap.OverdueIDs, txns[i].ID)
		}
	}
	return snap
}

// SavingsStatus grades a period's savings against the goal.
type SavingsStatus string

// Savings statuses.
const (
	SavingsMet    SavingsStatus = "met"
	SavingsNear   SavingsStatus = "near"
	SavingsMissed SavingsStatus = "missed"
)

// NearGoalPercent is the share of the goal that counts as near.
var NearGoalPercent = decimal.NewFromInt(80)

// SavingsProgress compares what a period saved with the savings goal.
type SavingsProgress struct {
	Period  model.Period
	Saved   decimal.Decimal
	Goal    decimal.Decimal
	Percent decimal.Decimal
	Status  SavingsStatus
}

// Savings computes savings progress from a summary. Saved is the unclamped closing balance
// minus the opening balance.
func Savings(s ResourceSummary, goal decimal.Decimal) SavingsProgress {
	saved := s.Unclamped.Sub(s.Opening)
	pct := money.Percent(saved, goal)

	status := SavingsMissed
	switch {
	case !goal.IsPositive() || saved.GreaterThanOrEqual(goal):
		status = SavingsMet
	case pct.GreaterThanOrEqual(NearGoalPercent):
		status = SavingsNear
	}

	return SavingsProgress{
		Period:  s.Period,
		Saved:   saved,
		Goal:    goal,
		Percent: pct,
		Status:  status,
	}
}
