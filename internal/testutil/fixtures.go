package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/model"
)

// Periods used by the fixtures.
var (
	July      = model.Period{Year: 2024, Month: time.July}
	August    = model.Period{Year: 2024, Month: time.August}
	September = model.Period{Year: 2024, Month: time.September}
)

// Builder constructs a transaction fluently.
//
//	txn := testutil.NewTransaction("dinner").Expense("-50").On(testutil.August, 2).Credit().Build()
type Builder struct {
	txn model.Transaction
}

// NewTransaction starts a debit expense with the given id.
func NewTransaction(id string) *Builder {
	return &Builder{txn: model.Transaction{
		ID:          id,
		AccountID:   "checking",
		Description: id,
		Category:    model.CategoryExpense,
		Instrument:  model.InstrumentDebit,
		Amount:      decimal.Zero,
	}}
}

func (b *Builder) amount(category model.Category, amount string) *Builder {
	b.txn.Category = category
	b.txn.Amount = decimal.RequireFromString(amount)
	return b
}

// Expense sets an expense amount.
func (b *Builder) Expense(amount string) *Builder { return b.amount(model.CategoryExpense, amount) }

// Income sets an income amount.
func (b *Builder) Income(amount string) *Builder { return b.amount(model.CategoryIncome, amount) }

// Charge sets a settled financial charge.
func (b *Builder) Charge(amount string) *Builder {
	b.txn.Settlement = model.SettlementSettled
	return b.amount(model.CategoryFinancialCharge, amount)
}

// Cash sets a cash movement of the given type.
func (b *Builder) Cash(amount string, mt model.MovementType) *Builder {
	b.txn.MovementType = mt
	return b.amount(model.CategoryCashMovement, amount)
}

// On sets the occurrence date to day of p.
func (b *Builder) On(p model.Period, day int) *Builder {
	b.txn.Date = time.Date(p.Year, p.Month, day, 0, 0, 0, 0, time.UTC)
	return b
}

// Pending marks the transaction unpaid, due on day of the date's month.
func (b *Builder) Pending(day int) *Builder {
	b.txn.Settlement = model.SettlementPending
	b.txn.DueDate = time.Date(b.txn.Date.Year(), b.txn.Date.Month(), day, 0, 0, 0, 0, time.UTC)
	return b
}

// Recurring sets the recurring user category.
func (b *Builder) Recurring(scheduleID string) *Builder {
	b.txn.UserCategory = model.UserCategoryRecurring
	b.txn.ScheduleID = scheduleID
	if b.txn.Settlement == model.SettlementNone {
		b.txn.Settlement = model.SettlementSettled
	}
	return b
}

// Linked marks the transaction as claimed by its schedule.
func (b *Builder) Linked() *Builder {
	b.txn.Linked = true
	return b
}

// Credit pays with the credit card.
func (b *Builder) Credit() *Builder {
	b.txn.Instrument = model.InstrumentCredit
	return b
}

// Subcategory sets the expense subcategory.
func (b *Builder) Subcategory(s string) *Builder {
	b.txn.Subcategory = s
	return b
}

// Tier sets a stored tier.
func (b *Builder) Tier(t model.Tier) *Builder {
	b.txn.Tier = t
	return b
}

// Build returns the transaction.
func (b *Builder) Build() model.Transaction {
	return b.txn.Clone()
}

// AugustFixture returns transactions of August 2024 whose flows net to +57: income 1500,
// expenses -131, cash -112, settled charges -300, recurring -900. A pending loan of -250 is
// due and a linked duplicate of the rent is ignored everywhere.
func AugustFixture() []model.Transaction {
	return []model.Transaction{
		NewTransaction("salary").Income("1500").On(August, 1).Build(),
		NewTransaction("dinner").Expense("-50").On(August, 2).Subcategory("restaurants").Build(),
		NewTransaction("metro").Expense("-20").On(August, 3).Subcategory("transport").Credit().Build(),
		NewTransaction("shoes").Expense("-61").On(August, 4).Subcategory("clothing").Credit().Build(),
		NewTransaction("atm").Cash("-112", model.MovementWithdrawal).On(August, 5).Build(),
		NewTransaction("card-fee").Charge("-300").On(August, 6).Build(),
		NewTransaction("rent").Expense("-900").On(August, 7).Recurring("rent").Build(),
		NewTransaction("loan").Charge("-250").On(August, 8).Pending(25).Build(),
		NewTransaction("rent-dup").Expense("-900").On(August, 7).Recurring("rent").Linked().Build(),
	}
}

// BudgetFixture is a 4000 income plan: automatic thresholds (20 and 60), a 20 fixed trivial
// cap, a 10% moderate cap (400), a 60 fixed exceptional cap and a 30% cap on financial
// charges (1200).
func BudgetFixture() model.Configuration {
	return model.Configuration{
		MonthlyIncome: decimal.NewFromInt(4000),
		SavingsGoal:   decimal.NewFromInt(800),
		Thresholds: model.Thresholds{
			Trivial:  model.ThresholdSetting{Automatic: true},
			Moderate: model.ThresholdSetting{Automatic: true},
		},
		Caps: map[model.Section]model.Cap{
			model.SectionTrivial:         model.FixedCap(decimal.NewFromInt(20)),
			model.SectionModerate:        model.PercentCap(decimal.NewFromInt(10)),
			model.SectionExceptional:     model.FixedCap(decimal.NewFromInt(60)),
			model.SectionFinancialCharge: model.PercentCap(decimal.NewFromInt(30)),
		},
	}
}
