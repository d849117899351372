package aggregate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/savings-plan/internal/filter"
	"github.com/Veraticus/savings-plan/internal/model"
)

func amt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func expenses() []model.Transaction {
	return []model.Transaction{
		{ID: "1", Amount: amt(-30), Category: model.CategoryExpense, Subcategory: "groceries"},
		{ID: "2", Amount: amt(-50), Category: model.CategoryExpense, Subcategory: "transport"},
		{ID: "3", Amount: amt(-20), Category: model.CategoryExpense, Subcategory: "groceries"},
		{ID: "4", Amount: amt(-10), Category: model.CategoryExpense},
		{ID: "5", Amount: amt(-40), Category: model.CategoryExpense, Subcategory: "health"},
		{ID: "6", Amount: amt(200), Category: model.CategoryIncome},
	}
}

func TestSum(t *testing.T) {
	txns := expenses()
	assert.True(t, Sum(txns, filter.Spec{filter.Category(model.CategoryExpense)}).Equal(amt(-150)))
	assert.True(t, Sum(txns, nil).Equal(amt(50)))
	assert.True(t, Sum(nil, nil).IsZero())
}

func TestSum_EmptySpecRoundTrip(t *testing.T) {
	txns := expenses()
	assert.True(t, Total(filter.Apply(txns, filter.Spec{})).Equal(Total(txns)))
}

func TestGroupBy_AbsoluteSortedWithTies(t *testing.T) {
	txns := filter.Apply(expenses(), filter.Spec{filter.Category(model.CategoryExpense)})
	groups := GroupBy(txns, BySubcategory, Absolute())

	require.Len(t, groups, 4)
	// groceries and transport both total 50; groceries was seen first
	assert.Equal(t, "groceries", groups[0].Key)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, "transport", groups[1].Key)
	assert.Equal(t, "health", groups[2].Key)
	assert.Equal(t, OtherKey, groups[3].Key)

	assert.True(t, groups[0].Total.Equal(amt(50)))
	assert.True(t, groups[0].Percentage.Round(2).Equal(decimal.RequireFromString("33.33")), groups[0].Percentage.String())
	assert.True(t, groups[3].Percentage.Round(2).Equal(decimal.RequireFromString("6.67")))
}

func TestGroupBy_ZeroWhole(t *testing.T) {
	txns := []model.Transaction{
		{ID: "a", Amount: amt(100), Category: model.CategoryIncome},
		{ID: "b", Amount: amt(-100), Category: model.CategoryExpense},
	}
	groups := GroupBy(txns, ByCategory)
	require.Len(t, groups, 2)
	assert.Equal(t, "income", groups[0].Key)
	for _, g := range groups {
		assert.True(t, g.Percentage.IsZero())
	}
}

func TestTop(t *testing.T) {
	txns := filter.Apply(expenses(), filter.Spec{filter.Category(model.CategoryExpense)})
	groups := GroupBy(txns, BySubcategory, Absolute())

	top := Top(groups, 2)
	require.Len(t, top, 3)
	assert.Equal(t, OtherKey, top[2].Key)
	assert.True(t, top[2].Total.Equal(amt(50)))
	assert.Equal(t, 2, top[2].Count)

	assert.Len(t, Top(groups, 10), 4)
	zero := Top(groups, 0)
	require.Len(t, zero, 1)
	assert.True(t, zero[0].Total.Equal(amt(150)))
}

func TestTop_MissingSubcategoryRanked(t *testing.T) {
	txns := []model.Transaction{
		{ID: "1", Amount: amt(-100), Category: model.CategoryExpense, Subcategory: "food"},
		{ID: "2", Amount: amt(-90), Category: model.CategoryExpense},
		{ID: "3", Amount: amt(-30), Category: model.CategoryExpense, Subcategory: "bus"},
		{ID: "4", Amount: amt(-20), Category: model.CategoryExpense, Subcategory: "gym"},
	}
	groups := GroupBy(txns, BySubcategory, Absolute())
	require.Equal(t, OtherKey, groups[1].Key)

	top := Top(groups, 2)
	require.Len(t, top, 2)
	assert.Equal(t, OtherKey, top[0].Key)
	assert.True(t, top[0].Total.Equal(amt(140)))
	assert.Equal(t, 3, top[0].Count)
	assert.Equal(t, "food", top[1].Key)

	total := decimal.Zero
	for _, g := range top {
		total = total.Add(g.Percentage)
	}
	assert.True(t, total.Round(2).Equal(amt(100)), total.String())

	// the input is left alone
	assert.True(t, groups[1].Total.Equal(amt(90)))
}

func TestSelectors(t *testing.T) {
	txn := &model.Transaction{Category: model.CategoryExpense, Instrument: model.InstrumentCredit}
	assert.Equal(t, "none", ByTier(txn))
	assert.Equal(t, "credit", Selectors["instrument"](txn))
	assert.Equal(t, OtherKey, Selectors["subcategory"](txn))
}
