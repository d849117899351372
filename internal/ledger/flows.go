// Package ledger computes period balances from categorized flows.
//
// Every flow excludes linked transactions: their effect is carried by the schedule that
// claimed them. Income, expenses and cash movements count whatever their settlement.
// Financial charges count only once settled and recurring operations only while not
// pending; unpaid ones are reported as PendingDue instead. No amount is counted twice.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/aggregate"
	"github.com/Veraticus/savings-plan/internal/filter"
	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/money"
)

var notRecurring = filter.Not{Predicate: filter.UserCategory(model.UserCategoryRecurring)}

// Flow specs. Each is a filter over a period's transactions.
var (
	IncomeSpec = filter.Spec{
		filter.Category(model.CategoryIncome),
		notRecurring,
		filter.Unlinked(),
	}
	RecurringSpec = filter.Spec{
		filter.UserCategory(model.UserCategoryRecurring),
		filter.Not{Predicate: filter.SettlementIs{State: model.SettlementPending}},
		filter.Unlinked(),
	}
	ExpenseSpec = filter.Spec{
		filter.Category(model.CategoryExpense),
		notRecurring,
		filter.Unlinked(),
	}
	CashMovementSpec = filter.Spec{
		filter.Category(model.CategoryCashMovement),
		filter.NoUserCategory(),
		filter.Unlinked(),
	}
	SettledChargeSpec = filter.Spec{
		filter.Category(model.CategoryFinancialCharge),
		filter.SettlementIs{State: model.SettlementSettled},
		notRecurring,
		filter.Unlinked(),
	}
)

// Pending obligations: unpaid financial charges plus unpaid recurring operations of any
// other category. The two specs are disjoint.
var (
	PendingChargeSpec = filter.Spec{
		filter.Category(model.CategoryFinancialCharge),
		filter.SettlementIs{State: model.SettlementPending},
		filter.Unlinked(),
	}
	PendingRecurringSpec = filter.Spec{
		filter.UserCategory(model.UserCategoryRecurring),
		filter.Condition{Field: "category", Op: filter.OpNotEquals, Value: model.CategoryFinancialCharge},
		filter.SettlementIs{State: model.SettlementPending},
		filter.Unlinked(),
	}
)

// Flows are the signed totals feeding the closing balance.
type Flows struct {
	Income         decimal.Decimal
	RecurringNet   decimal.Decimal
	Expenses       decimal.Decimal
	CashMovements  decimal.Decimal
	SettledCharges decimal.Decimal
}

// Net is the plain sum of all flows.
func (f Flows) Net() decimal.Decimal {
	return money.Sum(f.Income, f.RecurringNet, f.Expenses, f.CashMovements, f.SettledCharges)
}

// ComputeFlows totals each flow over txns.
func ComputeFlows(txns []model.Transaction) Flows {
	return Flows{
		Income:         aggregate.Sum(txns, IncomeSpec),
		RecurringNet:   aggregate.Sum(txns, RecurringSpec),
		Expenses:       aggregate.Sum(txns, ExpenseSpec),
		CashMovements:  aggregate.Sum(txns, CashMovementSpec),
		SettledCharges: aggregate.Sum(txns, SettledChargeSpec),
	}
}

// PendingDue sums every unpaid obligation in txns, overdue carry-overs included.
func PendingDue(txns []model.Transaction) decimal.Decimal {
	return aggregate.Sum(txns, PendingChargeSpec).Add(aggregate.Sum(txns, PendingRecurringSpec))
}

// IsPendingObligation reports whether txn counts towards PendingDue.
func IsPendingObligation(txn *model.Transaction) bool {
	return PendingChargeSpec.Matches(txn) || PendingRecurringSpec.Matches(txn)
}

// ClosingBalance returns opening plus all flows, clamped at zero.
func ClosingBalance(txns []model.Transaction, opening decimal.Decimal) decimal.Decimal {
	return money.ClampZero(opening.Add(ComputeFlows(txns).Net()))
}
