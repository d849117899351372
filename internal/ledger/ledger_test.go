package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/savings-plan/internal/alert"
	"github.com/Veraticus/savings-plan/internal/filter"
	"github.com/Veraticus/savings-plan/internal/model"
)

var august = model.Period{Year: 2024, Month: time.August}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func on(day int) time.Time {
	return time.Date(2024, time.August, day, 0, 0, 0, 0, time.UTC)
}

// augustTxns nets to +57 across the five flows.
func augustTxns() []model.Transaction {
	return []model.Transaction{
		{ID: "salary", Date: on(1), Amount: d("1500"), Category: model.CategoryIncome, Instrument: model.InstrumentDebit},
		{ID: "dinner", Date: on(2), Amount: d("-50"), Category: model.CategoryExpense, Instrument: model.InstrumentDebit},
		{ID: "metro", Date: on(3), Amount: d("-20"), Category: model.CategoryExpense, Instrument: model.InstrumentCredit},
		{ID: "shoes", Date: on(4), Amount: d("-61"), Category: model.CategoryExpense, Instrument: model.InstrumentCredit},
		{ID: "atm", Date: on(5), Amount: d("-112"), Category: model.CategoryCashMovement, MovementType: model.MovementWithdrawal, Instrument: model.InstrumentDebit},
		{ID: "card-fee", Date: on(6), Amount: d("-300"), Category: model.CategoryFinancialCharge, Settlement: model.SettlementSettled, Instrument: model.InstrumentDebit},
		{ID: "rent", Date: on(7), Amount: d("-900"), Category: model.CategoryExpense, UserCategory: model.UserCategoryRecurring, Settlement: model.SettlementSettled, Instrument: model.InstrumentDebit, ScheduleID: "rent"},
		{ID: "loan", Date: on(8), DueDate: on(25), Amount: d("-250"), Category: model.CategoryFinancialCharge, Settlement: model.SettlementPending},
		{ID: "rent-dup", Date: on(7), Amount: d("-900"), Category: model.CategoryExpense, Linked: true, ScheduleID: "rent", UserCategory: model.UserCategoryRecurring},
	}
}

func config4000() model.Configuration {
	return model.Configuration{
		MonthlyIncome: d("4000"),
		Thresholds: model.Thresholds{
			Trivial:  model.ThresholdSetting{Automatic: true},
			Moderate: model.ThresholdSetting{Automatic: true},
		},
		Caps: map[model.Section]model.Cap{
			model.SectionTrivial:         model.FixedCap(d("20")),
			model.SectionModerate:        model.PercentCap(d("10")),
			model.SectionExceptional:     model.FixedCap(d("60")),
			model.SectionFinancialCharge: model.PercentCap(d("30")),
		},
	}
}

func TestComputeFlows(t *testing.T) {
	f := ComputeFlows(augustTxns())
	assert.True(t, f.Income.Equal(d("1500")))
	assert.True(t, f.Expenses.Equal(d("-131")))
	assert.True(t, f.CashMovements.Equal(d("-112")))
	assert.True(t, f.SettledCharges.Equal(d("-300")))
	assert.True(t, f.RecurringNet.Equal(d("-900")))
	assert.True(t, f.Net().Equal(d("57")))
}

func TestSummarize(t *testing.T) {
	s := Summarize(august, d("4000"), augustTxns())
	assert.True(t, s.Closing.Equal(d("4057")), s.Closing.String())
	assert.True(t, s.PendingDue.Equal(d("-250")))
	assert.Equal(t, august, s.Period)
	assert.True(t, s.Flows().Net().Equal(d("57")))
}

func TestClosingBalance_IgnoresLinked(t *testing.T) {
	txns := augustTxns()
	withoutLinked := filter.Exclude(txns, filter.Spec{filter.LinkedIs{Linked: true}})
	require.Less(t, len(withoutLinked), len(txns))

	assert.True(t, ClosingBalance(txns, d("4000")).Equal(ClosingBalance(withoutLinked, d("4000"))))

	// adding more linked entries of any category never moves the balance
	txns = append(txns,
		model.Transaction{ID: "l1", Amount: d("999"), Category: model.CategoryIncome, Linked: true},
		model.Transaction{ID: "l2", Amount: d("-77"), Category: model.CategoryCashMovement, Linked: true},
		model.Transaction{ID: "l3", Amount: d("-5"), Category: model.CategoryFinancialCharge, Settlement: model.SettlementPending, Linked: true},
	)
	assert.True(t, ClosingBalance(txns, d("4000")).Equal(d("4057")))
	assert.True(t, PendingDue(txns).Equal(d("-250")))
}

func TestClosingBalance_ClampsAtZero(t *testing.T) {
	txns := []model.Transaction{{ID: "x", Amount: d("-500"), Category: model.CategoryExpense}}
	assert.True(t, ClosingBalance(txns, d("100")).IsZero())

	s := Summarize(august, d("100"), txns)
	assert.True(t, s.Closing.IsZero())
	assert.True(t, s.Unclamped.Equal(d("-400")))
}

func TestClosingBalance_EmptyPeriod(t *testing.T) {
	assert.True(t, ClosingBalance(nil, d("123.45")).Equal(d("123.45")))
}

func TestPendingDue(t *testing.T) {
	txns := []model.Transaction{
		{ID: "charge", Amount: d("-100"), Category: model.CategoryFinancialCharge, Settlement: model.SettlementPending},
		{ID: "charge-recurring", Amount: d("-40"), Category: model.CategoryFinancialCharge, UserCategory: model.UserCategoryRecurring, Settlement: model.SettlementPending},
		{ID: "gym", Amount: d("-30"), Category: model.CategoryExpense, UserCategory: model.UserCategoryRecurring, Settlement: model.SettlementPending},
		{ID: "old-loan", Amount: d("-200"), Category: model.CategoryFinancialCharge, Settlement: model.SettlementPending, Overdue: true, OriginPeriod: "2024-06"},
		{ID: "paid", Amount: d("-70"), Category: model.CategoryFinancialCharge, Settlement: model.SettlementSettled},
		{ID: "linked", Amount: d("-10"), Category: model.CategoryFinancialCharge, Settlement: model.SettlementPending, Linked: true},
		{ID: "expense", Amount: d("-5"), Category: model.CategoryExpense, Settlement: model.SettlementPending},
	}
	// charge-recurring is counted once even though it matches both rules
	assert.True(t, PendingDue(txns).Equal(d("-370")), PendingDue(txns).String())

	candidates := OverdueCandidates(txns)
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"charge", "charge-recurring", "gym", "old-loan"}, ids)
}

func TestFlows_PendingRecurringExcludedFromBalance(t *testing.T) {
	txns := []model.Transaction{
		{ID: "gym", Amount: d("-30"), Category: model.CategoryExpense, UserCategory: model.UserCategoryRecurring, Settlement: model.SettlementPending},
		{ID: "netflix", Amount: d("-10"), Category: model.CategoryExpense, UserCategory: model.UserCategoryRecurring, Settlement: model.SettlementSettled},
	}
	f := ComputeFlows(txns)
	assert.True(t, f.RecurringNet.Equal(d("-10")))
	assert.True(t, f.Expenses.IsZero())
}

func TestDetailByTier(t *testing.T) {
	txns := augustTxns()
	txns = append(txns, model.Transaction{ID: "spotify", Amount: d("-9.99"), Category: model.CategoryExpense, Tier: model.TierAutomatic, Instrument: model.InstrumentCredit})
	detail := DetailByTier(august, txns, config4000())

	require.Len(t, detail.Sections, len(model.Sections))

	trivial, ok := detail.Section(model.SectionTrivial)
	require.True(t, ok)
	assert.True(t, trivial.Total.Equal(d("-20")))
	assert.True(t, trivial.Credit.Equal(d("-20")))
	assert.True(t, trivial.Debit.IsZero())
	assert.Equal(t, alert.LevelDanger, trivial.Alert.Level)

	moderate, _ := detail.Section(model.SectionModerate)
	assert.True(t, moderate.Total.Equal(d("-50")))
	assert.Equal(t, alert.LevelNormal, moderate.Alert.Level)
	assert.True(t, moderate.Alert.PercentUsed.Equal(d("12.5")))

	exceptional, _ := detail.Section(model.SectionExceptional)
	assert.True(t, exceptional.Total.Equal(d("-61")))
	assert.Equal(t, alert.LevelDanger, exceptional.Alert.Level)

	automatic, _ := detail.Section(model.SectionAutomatic)
	assert.True(t, automatic.Total.Equal(d("-9.99")))
	assert.False(t, automatic.Alert.Capped())

	charges, _ := detail.Section(model.SectionFinancialCharge)
	assert.True(t, charges.Total.Equal(d("-300")))
	assert.Equal(t, alert.LevelNormal, charges.Alert.Level)

	recurring, _ := detail.Section(model.SectionRecurring)
	assert.True(t, recurring.Total.Equal(d("-900")))
	assert.Equal(t, 1, recurring.Count)

	// tier sections partition the expense flow
	assert.True(t, detail.ExpenseTotal().Equal(ComputeFlows(txns).Expenses))
}

func TestBreakdown(t *testing.T) {
	txns := []model.Transaction{
		{ID: "1", Amount: d("-30"), Category: model.CategoryExpense, Subcategory: "groceries"},
		{ID: "2", Amount: d("-80"), Category: model.CategoryExpense, Subcategory: "transport"},
		{ID: "3", Amount: d("-5"), Category: model.CategoryExpense},
		{ID: "4", Amount: d("-500"), Category: model.CategoryExpense, Subcategory: "housing", Linked: true},
		{ID: "5", Amount: d("3000"), Category: model.CategoryIncome},
	}
	groups := Breakdown(txns)
	require.Len(t, groups, 3)
	assert.Equal(t, "transport", groups[0].Key)
	assert.True(t, groups[0].Total.Equal(d("80")))
	assert.Equal(t, "other", groups[2].Key)
}

func TestSavings(t *testing.T) {
	tests := []struct {
		name    string
		closing string
		want    SavingsStatus
	}{
		{name: "met", closing: "4800", want: SavingsMet},
		{name: "near", closing: "4640", want: SavingsNear},
		{name: "missed", closing: "4639", want: SavingsMissed},
		{name: "lost money", closing: "3900", want: SavingsMissed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ResourceSummary{Period: august, Opening: d("4000"), Unclamped: d(tt.closing)}
			got := Savings(s, d("800"))
			assert.Equal(t, tt.want, got.Status)
		})
	}

	s := ResourceSummary{Opening: d("4000"), Unclamped: d("3000")}
	assert.Equal(t, SavingsMet, Savings(s, decimal.Zero).Status)
}

func TestSnapshotAndMarkOverdue(t *testing.T) {
	loan := augustTxns()[7]
	moved := MarkOverdue(loan, august)
	assert.True(t, moved.Overdue)
	assert.Equal(t, "2024-08", moved.OriginPeriod)
	assert.False(t, loan.Overdue, "original must not change")

	again := MarkOverdue(moved, august.Next())
	assert.Equal(t, "2024-08", again.OriginPeriod)

	snap := Snapshot(august.Next(), d("4057"), false, []model.Transaction{again})
	assert.Equal(t, []string{loan.ID}, snap.OverdueIDs)
	assert.True(t, snap.Closing.Equal(d("4057")))
}

func TestDetail_KeepsStoredTiers(t *testing.T) {
	txns := []model.Transaction{
		{ID: "stale", Amount: d("-50"), Category: model.CategoryExpense, Tier: model.TierTrivial, Instrument: model.InstrumentDebit},
	}

	stored := Detail(august, txns, config4000())
	trivial, _ := stored.Section(model.SectionTrivial)
	assert.True(t, trivial.Total.Equal(d("-50")))

	derived := DetailByTier(august, txns, config4000())
	moderate, _ := derived.Section(model.SectionModerate)
	assert.True(t, moderate.Total.Equal(d("-50")))
	assert.Equal(t, model.TierTrivial, txns[0].Tier)
}
