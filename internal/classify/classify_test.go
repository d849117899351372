package classify

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/savings-plan/internal/model"
)

func automaticConfig(income int64) model.Configuration {
	return model.Configuration{
		MonthlyIncome: decimal.NewFromInt(income),
		Thresholds: model.Thresholds{
			Trivial:  model.ThresholdSetting{Automatic: true},
			Moderate: model.ThresholdSetting{Automatic: true},
		},
	}
}

func expense(amount string) model.Transaction {
	return model.Transaction{ID: "e", Category: model.CategoryExpense, Amount: decimal.RequireFromString(amount)}
}

func TestResolve_Automatic(t *testing.T) {
	th := Resolve(automaticConfig(4000))
	assert.True(t, th.Trivial.Equal(decimal.NewFromInt(20)), th.Trivial.String())
	assert.True(t, th.Moderate.Equal(decimal.NewFromInt(60)), th.Moderate.String())
	assert.False(t, th.Inverted())
}

func TestResolve_ManualDefaultsToZero(t *testing.T) {
	cfg := automaticConfig(4000)
	cfg.Thresholds.Trivial = model.ThresholdSetting{}
	th := Resolve(cfg)
	assert.True(t, th.Trivial.IsZero())
	assert.True(t, th.Moderate.Equal(decimal.NewFromInt(60)))
}

func TestClassify_IncomeScenario(t *testing.T) {
	cfg := automaticConfig(4000)

	tests := []struct {
		amount string
		want   model.Tier
	}{
		{"-50", model.TierModerate},
		{"-20", model.TierTrivial},
		{"-61", model.TierExceptional},
		{"-60", model.TierModerate},
		{"-20.01", model.TierModerate},
		{"20", model.TierTrivial},
		{"0", model.TierTrivial},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			txn := expense(tt.amount)
			tier, ok := Classify(&txn, cfg)
			require.True(t, ok)
			assert.Equal(t, tt.want, tier)
		})
	}
}

func TestClassify_NotApplicable(t *testing.T) {
	cfg := automaticConfig(4000)

	auto := expense("-15")
	auto.Tier = model.TierAutomatic
	tier, ok := Classify(&auto, cfg)
	assert.False(t, ok)
	assert.Equal(t, model.TierNone, tier)

	for _, c := range []model.Category{model.CategoryIncome, model.CategoryCashMovement, model.CategoryFinancialCharge} {
		txn := model.Transaction{ID: "x", Category: c, Amount: decimal.NewFromInt(-10)}
		_, ok := Classify(&txn, cfg)
		assert.False(t, ok, c)
	}
}

func TestClassify_InvertedThresholdsAreLiteral(t *testing.T) {
	cfg := model.Configuration{
		MonthlyIncome: decimal.NewFromInt(4000),
		Thresholds: model.Thresholds{
			Trivial:  model.ThresholdSetting{Amount: decimal.NewFromInt(50)},
			Moderate: model.ThresholdSetting{Amount: decimal.NewFromInt(30)},
		},
	}
	th := Resolve(cfg)
	assert.True(t, th.Inverted())

	txn := expense("-51")
	tier, _ := Classify(&txn, cfg)
	assert.Equal(t, model.TierExceptional, tier)

	txn = expense("-40")
	tier, _ = Classify(&txn, cfg)
	assert.Equal(t, model.TierTrivial, tier)
}

func TestMaterialize_IsIdempotent(t *testing.T) {
	cfg := automaticConfig(4000)
	auto := expense("-9.99")
	auto.ID = "sub"
	auto.Tier = model.TierAutomatic
	income := model.Transaction{ID: "inc", Category: model.CategoryIncome, Amount: decimal.NewFromInt(4000)}
	txns := []model.Transaction{expense("-50"), auto, income}

	first := Materialize(txns, cfg)
	second := Materialize(first, cfg)

	assert.Equal(t, model.TierModerate, first[0].Tier)
	assert.Equal(t, model.TierAutomatic, first[1].Tier)
	assert.Equal(t, model.TierNone, first[2].Tier)
	assert.Equal(t, first, second)
	assert.Equal(t, model.TierNone, txns[0].Tier, "input must not be modified")
	assert.Empty(t, Mismatches(first, cfg))
}

func TestMismatches(t *testing.T) {
	stale := expense("-50")
	stale.Tier = model.TierTrivial

	got := Mismatches([]model.Transaction{stale}, automaticConfig(4000))
	require.Len(t, got, 1)
	assert.Equal(t, Mismatch{TransactionID: "e", Stored: model.TierTrivial, Derived: model.TierModerate}, got[0])

	// raising income moves the boundary, so the stored tier becomes correct
	assert.Empty(t, Mismatches([]model.Transaction{stale}, automaticConfig(9000)))
}
