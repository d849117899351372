package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/savings-plan/internal/alert"
	"github.com/Veraticus/savings-plan/internal/cache"
	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/config"
	"github.com/Veraticus/savings-plan/internal/consistency"
	"github.com/Veraticus/savings-plan/internal/events"
	"github.com/Veraticus/savings-plan/internal/filter"
	"github.com/Veraticus/savings-plan/internal/ledger"
	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/service"
	"github.com/Veraticus/savings-plan/internal/storage"
	"github.com/Veraticus/savings-plan/internal/testutil"
)

var fixedNow = time.Date(2024, time.September, 1, 9, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store    *storage.MemoryStore
	engine   *Engine
	recorder *events.Recorder
}

// newFixture seeds August with a recorded opening of 4000 and the 4000 income budget.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	store := storage.NewMemoryStore()
	testutil.Seed(t, store, testutil.August, testutil.AugustFixture())
	testutil.SeedOpening(t, store, testutil.August, "4000")
	require.NoError(t, store.SaveConfiguration(context.Background(), testutil.BudgetFixture()))
	require.NoError(t, store.SaveSchedule(context.Background(), model.Schedule{
		ID: "rent", Description: "Rent", Amount: d("-900"), DayOfMonth: 7, Active: true,
	}))

	recorder := &events.Recorder{}
	opts = append([]Option{WithPublisher(recorder), WithClock(func() time.Time { return fixedNow })}, opts...)
	return &fixture{
		store:    store,
		engine:   New(store, store, opts...),
		recorder: recorder,
	}
}

func TestEngine_Summary(t *testing.T) {
	f := newFixture(t)

	s, err := f.engine.Summary(context.Background(), testutil.August)
	require.NoError(t, err)

	assert.True(t, s.Opening.Equal(d("4000")))
	assert.True(t, s.Income.Equal(d("1500")))
	assert.True(t, s.Expenses.Equal(d("-131")))
	assert.True(t, s.CashMovements.Equal(d("-112")))
	assert.True(t, s.SettledCharges.Equal(d("-300")))
	assert.True(t, s.RecurringNet.Equal(d("-900")))
	assert.True(t, s.PendingDue.Equal(d("-250")))
	assert.True(t, s.Closing.Equal(d("4057")), s.Closing.String())
}

func TestEngine_Summary_UnknownPeriod(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Summary(context.Background(), testutil.September)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestEngine_OpeningChainsFromPreviousClosing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.EnsurePeriod(ctx, testutil.September))

	opening, recorded, err := f.engine.Opening(ctx, testutil.September)
	require.NoError(t, err)
	assert.False(t, recorded)
	assert.True(t, opening.Equal(d("4057")))

	// a period with no recorded balance and no predecessor starts at zero
	opening, recorded, err = f.engine.Opening(ctx, testutil.July)
	require.NoError(t, err)
	assert.False(t, recorded)
	assert.True(t, opening.IsZero())
}

func TestEngine_Validate(t *testing.T) {
	ctx := context.Background()
	periods := []model.Period{testutil.August, testutil.September}

	t.Run("chained openings are consistent", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.EnsurePeriod(ctx, testutil.September))

		report, err := f.engine.Validate(ctx, periods)
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Empty(t, report.Errors)
		assert.Equal(t, 2, report.Checked)
	})

	t.Run("perturbed opening reports the difference", func(t *testing.T) {
		f := newFixture(t)
		testutil.SeedOpening(t, f.store, testutil.September, "4100")

		report, err := f.engine.Validate(ctx, periods)
		require.NoError(t, err)
		assert.False(t, report.Valid)
		require.Len(t, report.Errors, 1)

		e := report.Errors[0]
		assert.Equal(t, "2024-09", e.PeriodLabel)
		assert.Equal(t, "2024-08", e.PreviousLabel)
		assert.True(t, e.Expected.Equal(d("4057")))
		assert.True(t, e.Actual.Equal(d("4100")))
		assert.True(t, e.Difference.Equal(d("43")))
	})

	t.Run("missing periods are warnings", func(t *testing.T) {
		f := newFixture(t)

		report, err := f.engine.Validate(ctx, periods)
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Equal(t, 1, report.Checked)
		require.Len(t, report.Warnings, 1)
		assert.Equal(t, consistency.WarningMissingPeriod, report.Warnings[0].Kind)
		assert.Equal(t, "2024-09", report.Warnings[0].PeriodLabel)
	})
}

func TestEngine_DetailAndAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	detail, err := f.engine.DetailByTier(ctx, testutil.August)
	require.NoError(t, err)

	trivial, _ := detail.Section(model.SectionTrivial)
	assert.True(t, trivial.Total.Equal(d("-20")))
	assert.Equal(t, alert.LevelDanger, trivial.Alert.Level)

	moderate, _ := detail.Section(model.SectionModerate)
	assert.True(t, moderate.Total.Equal(d("-50")))
	assert.True(t, moderate.Alert.PercentUsed.Equal(d("12.5")))

	alerts, err := f.engine.Alerts(ctx, testutil.August)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, model.SectionTrivial, alerts[0].Section)
	assert.Equal(t, model.SectionExceptional, alerts[1].Section)
	assert.Contains(t, alerts[0].Message, "100.0%")
	assert.True(t, alerts[1].Cap.Equal(d("60")))
}

func TestEngine_Alerts_DangerFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 50 of a 55 moderate cap is past the warning line
	_, err := f.engine.UpdateConfiguration(ctx, model.ConfigurationPatch{
		Caps: map[model.Section]model.Cap{model.SectionModerate: model.FixedCap(d("55"))},
	})
	require.NoError(t, err)

	alerts, err := f.engine.Alerts(ctx, testutil.August)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, model.SectionTrivial, alerts[0].Section)
	assert.Equal(t, model.SectionExceptional, alerts[1].Section)
	assert.Equal(t, alert.LevelDanger, alerts[1].Level)
	assert.Equal(t, model.SectionModerate, alerts[2].Section)
	assert.Equal(t, alert.LevelWarning, alerts[2].Level)
	assert.Contains(t, alerts[2].Message, "90.9%")
}

func TestEngine_FilterSumGroupBy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.engine.Filter(ctx, testutil.August, nil)
	require.NoError(t, err)
	assert.Len(t, all, len(testutil.AugustFixture()))

	rawTotal, err := f.engine.Sum(ctx, testutil.August, filter.Spec{})
	require.NoError(t, err)
	assert.True(t, rawTotal.Equal(d("-1093")), rawTotal.String())

	credit, err := f.engine.Filter(ctx, testutil.August, filter.Spec{
		filter.InstrumentIs{Instrument: model.InstrumentCredit},
		filter.TierIs{Tier: model.TierTrivial},
	})
	require.NoError(t, err)
	require.Len(t, credit, 1)
	assert.Equal(t, "metro", credit[0].ID)

	expenses, err := f.engine.Sum(ctx, testutil.August, ledger.ExpenseSpec)
	require.NoError(t, err)
	assert.True(t, expenses.Equal(d("-131")))

	groups, err := f.engine.GroupBy(ctx, testutil.August, ledger.ExpenseSpec, "subcategory", 2, true)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "clothing", groups[0].Key)
	assert.Equal(t, "restaurants", groups[1].Key)
	assert.Equal(t, "other", groups[2].Key)
	assert.True(t, groups[2].Total.Equal(d("20")))

	_, err = f.engine.GroupBy(ctx, testutil.August, nil, "merchant", 0, false)
	assert.ErrorIs(t, err, common.ErrInvalidTarget)
}

func TestEngine_Breakdown(t *testing.T) {
	f := newFixture(t)

	groups, err := f.engine.Breakdown(context.Background(), testutil.August)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"clothing", "restaurants", "transport"},
		[]string{groups[0].Key, groups[1].Key, groups[2].Key})
	assert.True(t, groups[0].Total.Equal(d("61")))
}

func TestEngine_Reclassify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.Reclassify(ctx, "dinner", TargetIncome, "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Changed)
	assert.Equal(t, model.CategoryIncome, res.Transaction.Category)
	assert.Equal(t, model.UserCategoryIncome, res.Transaction.UserCategory)
	assert.Empty(t, res.Transaction.Subcategory)
	assert.True(t, res.Summary.Income.Equal(d("1550")))
	assert.True(t, res.Summary.Expenses.Equal(d("-81")))
	assert.True(t, res.Summary.Closing.Equal(d("4157")))

	// retrying with the same arguments is a no-op
	again, err := f.engine.Reclassify(ctx, "dinner", TargetIncome, "")
	require.NoError(t, err)
	assert.True(t, again.Success)
	assert.False(t, again.Changed)
	assert.True(t, again.Summary.Closing.Equal(d("4157")))

	got := f.recorder.Events()
	require.Len(t, got, 1)
	assert.Equal(t, events.TransactionReclassified, got[0].Type)
	assert.Equal(t, "dinner", got[0].TransactionID)
	assert.Equal(t, fixedNow, got[0].At)
}

func TestEngine_Reclassify_Targets(t *testing.T) {
	tests := []struct {
		check  func(t *testing.T, txn model.Transaction)
		name   string
		id     string
		target Target
		link   string
	}{
		{
			name:   "recurring with link",
			id:     "shoes",
			target: TargetRecurring,
			link:   "rent",
			check: func(t *testing.T, txn model.Transaction) {
				assert.Equal(t, model.CategoryExpense, txn.Category)
				assert.Equal(t, model.UserCategoryRecurring, txn.UserCategory)
				assert.True(t, txn.Linked)
				assert.Equal(t, "rent", txn.ScheduleID)
			},
		},
		{
			name:   "cash movement to financial charge",
			id:     "atm",
			target: TargetFinancialCharge,
			check: func(t *testing.T, txn model.Transaction) {
				assert.Equal(t, model.CategoryFinancialCharge, txn.Category)
				assert.Empty(t, txn.MovementType)
				assert.Equal(t, model.SettlementSettled, txn.Settlement)
				assert.False(t, txn.Linked)
			},
		},
		{
			name:   "pending charge keeps its settlement",
			id:     "loan",
			target: TargetFinancialCharge,
			check: func(t *testing.T, txn model.Transaction) {
				assert.Equal(t, model.SettlementPending, txn.Settlement)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			res, err := f.engine.Reclassify(ctx, tt.id, tt.target, tt.link)
			require.NoError(t, err)
			require.True(t, res.Success)

			stored, err := f.store.GetTransaction(ctx, tt.id)
			require.NoError(t, err)
			assert.Equal(t, res.Transaction, *stored)
			tt.check(t, *stored)
		})
	}
}

func TestEngine_Reclassify_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Reclassify(ctx, "dinner", Target("savings"), "")
	assert.ErrorIs(t, err, common.ErrInvalidTarget)

	res, err := f.engine.Reclassify(ctx, "missing", TargetIncome, "")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.False(t, res.Success)

	_, err = f.engine.Reclassify(ctx, "dinner", TargetRecurring, "no-such-schedule")
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.Empty(t, f.recorder.Events())
}

func TestParseTarget(t *testing.T) {
	target, err := ParseTarget("recurring_operation")
	require.NoError(t, err)
	assert.Equal(t, TargetRecurring, target)

	_, err = ParseTarget("expense")
	assert.ErrorIs(t, err, common.ErrInvalidTarget)
}

func TestEngine_LinkToSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.LinkToSchedule(ctx, "metro", "rent"))
	require.NoError(t, f.engine.LinkToSchedule(ctx, "metro", "rent"))

	stored, err := f.store.GetTransaction(ctx, "metro")
	require.NoError(t, err)
	assert.True(t, stored.Linked)
	assert.Equal(t, "rent", stored.ScheduleID)
	assert.Equal(t, model.UserCategoryRecurring, stored.UserCategory)

	// the linked transaction no longer counts
	s, err := f.engine.Summary(ctx, testutil.August)
	require.NoError(t, err)
	assert.True(t, s.Closing.Equal(d("4077")), s.Closing.String())

	require.Len(t, f.recorder.Events(), 1)
	assert.Equal(t, events.TransactionLinked, f.recorder.Events()[0].Type)

	assert.ErrorIs(t, f.engine.LinkToSchedule(ctx, "metro", "gym"), common.ErrNotFound)
	assert.ErrorIs(t, f.engine.LinkToSchedule(ctx, "nope", "rent"), common.ErrNotFound)
	assert.ErrorIs(t, f.engine.LinkToSchedule(ctx, "metro", ""), common.ErrInvalidTarget)
}

func TestEngine_UpdateConfiguration_InvalidatesCache(t *testing.T) {
	memo := cache.New(time.Minute, time.Minute)
	f := newFixture(t, WithCache(memo))
	ctx := context.Background()

	before, err := f.engine.DetailByTier(ctx, testutil.August)
	require.NoError(t, err)
	moderate, _ := before.Section(model.SectionModerate)
	assert.Equal(t, alert.LevelNormal, moderate.Alert.Level)

	warnings, err := f.engine.UpdateConfiguration(ctx, model.ConfigurationPatch{
		Caps: map[model.Section]model.Cap{model.SectionModerate: model.FixedCap(d("50"))},
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	after, err := f.engine.DetailByTier(ctx, testutil.August)
	require.NoError(t, err)
	moderate, _ = after.Section(model.SectionModerate)
	assert.Equal(t, alert.LevelDanger, moderate.Alert.Level)

	stored, err := f.store.GetConfiguration(ctx)
	require.NoError(t, err)
	assert.True(t, stored.Cap(model.SectionModerate).Amount.Decimal.Equal(d("50")))

	require.Len(t, f.recorder.Events(), 1)
	assert.Equal(t, events.ConfigurationUpdated, f.recorder.Events()[0].Type)
}

func TestEngine_UpdateConfiguration_Warnings(t *testing.T) {
	f := newFixture(t)
	zero := decimal.Zero

	warnings, err := f.engine.UpdateConfiguration(context.Background(), model.ConfigurationPatch{MonthlyIncome: &zero})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "monthly_income", warnings[0].Field)

	// saved anyway
	cfg, err := f.engine.Configuration(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.MonthlyIncome.IsZero())
}

func TestEngine_ConfigurationDefaults(t *testing.T) {
	store := storage.NewMemoryStore()
	e := New(store, store)

	cfg, err := e.Configuration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, config.Defaults().Hash(), cfg.Hash())
}

func TestEngine_ConfigurationNotRetroactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.SaveTransactions(ctx, testutil.August, []model.Transaction{
		testutil.NewTransaction("stale").Expense("-45").On(testutil.August, 21).Tier(model.TierTrivial).Build(),
	})
	require.NoError(t, err)

	from := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.engine.UpdateConfiguration(ctx, model.ConfigurationPatch{ValidFrom: &from})
	require.NoError(t, err)

	txns, err := f.engine.Filter(ctx, testutil.August, filter.Spec{filter.DescriptionContains{Text: "stale"}})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, model.TierTrivial, txns[0].Tier)

	mismatches, err := f.engine.RefreshTiers(ctx, testutil.August)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	retro := true
	_, err = f.engine.UpdateConfiguration(ctx, model.ConfigurationPatch{AppliesToPriorPeriods: &retro})
	require.NoError(t, err)

	txns, err = f.engine.Filter(ctx, testutil.August, filter.Spec{filter.DescriptionContains{Text: "stale"}})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, model.TierModerate, txns[0].Tier)
}

func TestEngine_RefreshTiers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mismatches, err := f.engine.RefreshTiers(ctx, testutil.August)
	require.NoError(t, err)
	// the fixture stores no tiers, so every expense is stale, linked ones included
	assert.Len(t, mismatches, 5)

	dinner, err := f.store.GetTransaction(ctx, "dinner")
	require.NoError(t, err)
	assert.Equal(t, model.TierModerate, dinner.Tier)

	rent, err := f.store.GetTransaction(ctx, "rent")
	require.NoError(t, err)
	assert.Equal(t, model.TierExceptional, rent.Tier)

	again, err := f.engine.RefreshTiers(ctx, testutil.August)
	require.NoError(t, err)
	assert.Empty(t, again)

	evs := f.recorder.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TiersRefreshed, evs[0].Type)
	assert.Equal(t, "5", evs[0].Detail)
}

func TestEngine_GenerateOccurrences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveSchedule(ctx, model.Schedule{
		ID: "gym", Description: "Gym", Amount: d("-40"), DayOfMonth: 31,
		StartPeriod: testutil.August, Active: true,
	}))
	require.NoError(t, f.store.SaveSchedule(ctx, model.Schedule{
		ID: "old-phone", Amount: d("-25"), EndPeriod: testutil.July, Active: true,
	}))

	created, err := f.engine.GenerateOccurrences(ctx, testutil.September)
	require.NoError(t, err)
	// rent and gym; the phone plan ended in July
	assert.Equal(t, 2, created)

	created, err = f.engine.GenerateOccurrences(ctx, testutil.September)
	require.NoError(t, err)
	assert.Zero(t, created)

	gym, err := f.store.GetTransaction(ctx, "gym-2024-9")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.September, 30, 0, 0, 0, 0, time.UTC), gym.DueDate)
	assert.Equal(t, model.SettlementPending, gym.Settlement)
	assert.Equal(t, model.UserCategoryRecurring, gym.UserCategory)

	s, err := f.engine.Summary(ctx, testutil.September)
	require.NoError(t, err)
	assert.True(t, s.PendingDue.Equal(d("-940")), s.PendingDue.String())
	assert.True(t, s.Opening.Equal(d("4057")))

	evs := f.recorder.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.OccurrencesGenerated, evs[0].Type)
	assert.Equal(t, "2024-09", evs[0].Period)
}

func TestEngine_CarryOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	moved, err := f.engine.CarryOverdue(ctx, testutil.August, testutil.September)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	loan, err := f.store.GetTransaction(ctx, "loan")
	require.NoError(t, err)
	assert.True(t, loan.Overdue)
	assert.Equal(t, "2024-08", loan.OriginPeriod)

	aug, err := f.engine.Summary(ctx, testutil.August)
	require.NoError(t, err)
	assert.True(t, aug.PendingDue.IsZero())
	assert.True(t, aug.Closing.Equal(d("4057")))

	sep, err := f.engine.Summary(ctx, testutil.September)
	require.NoError(t, err)
	assert.True(t, sep.PendingDue.Equal(d("-250")))
	assert.True(t, sep.Closing.Equal(d("4057")))

	report, err := f.engine.Validate(ctx, []model.Period{testutil.August, testutil.September})
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Warnings)

	// outside the window the origin is flagged
	report, err = f.engine.Validate(ctx, []model.Period{testutil.September})
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, consistency.WarningOverdueOrigin, report.Warnings[0].Kind)

	_, err = f.engine.CarryOverdue(ctx, testutil.September, testutil.August)
	assert.ErrorIs(t, err, common.ErrInvalidTarget)
}

var errDiskFull = errors.New("disk full")

// failingCarryStore lets the first allowed carries through and fails the rest.
type failingCarryStore struct {
	*storage.MemoryStore
	allowed int
	calls   int
}

func (s *failingCarryStore) CarryTransaction(ctx context.Context, txn model.Transaction, to model.Period) error {
	s.calls++
	if s.calls > s.allowed {
		return errDiskFull
	}
	return s.MemoryStore.CarryTransaction(ctx, txn, to)
}

func TestEngine_CarryOverdue_StoreFailure(t *testing.T) {
	store := storage.NewMemoryStore()
	testutil.Seed(t, store, testutil.August, testutil.AugustFixture())
	testutil.SeedOpening(t, store, testutil.August, "4000")
	failing := &failingCarryStore{MemoryStore: store}

	e := New(failing, failing, WithCache(cache.New(time.Minute, time.Minute)))
	ctx := context.Background()

	moved, err := e.CarryOverdue(ctx, testutil.August, testutil.September)
	require.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, 0, moved)

	loan, err := store.GetTransaction(ctx, "loan")
	require.NoError(t, err)
	assert.False(t, loan.Overdue)
	assert.Empty(t, loan.OriginPeriod)
	p, err := store.PeriodOf(ctx, "loan")
	require.NoError(t, err)
	assert.Equal(t, testutil.August, p)

	report, err := e.Validate(ctx, []model.Period{testutil.August})
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Warnings)
}

func TestEngine_CarryOverdue_PartialFailureInvalidatesCache(t *testing.T) {
	store := storage.NewMemoryStore()
	testutil.Seed(t, store, testutil.August, testutil.AugustFixture())
	testutil.Seed(t, store, testutil.August, []model.Transaction{
		testutil.NewTransaction("late-fee").Charge("-10").On(testutil.August, 9).Pending(28).Build(),
	})
	testutil.SeedOpening(t, store, testutil.August, "4000")
	failing := &failingCarryStore{MemoryStore: store, allowed: 1}

	e := New(failing, failing, WithCache(cache.New(time.Minute, time.Minute)))
	ctx := context.Background()

	before, err := e.Summary(ctx, testutil.August)
	require.NoError(t, err)
	assert.True(t, before.PendingDue.Equal(d("-260")))

	moved, err := e.CarryOverdue(ctx, testutil.August, testutil.September)
	require.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, 1, moved)

	after, err := e.Summary(ctx, testutil.August)
	require.NoError(t, err)
	assert.True(t, after.PendingDue.Equal(d("-10")), "got %s", after.PendingDue)

	sep, err := e.Summary(ctx, testutil.September)
	require.NoError(t, err)
	assert.True(t, sep.PendingDue.Equal(d("-250")))
}

func TestEngine_SavingsAndReport(t *testing.T) {
	october := model.Period{Year: 2024, Month: time.October}
	f := newFixture(t)
	ctx := context.Background()
	testutil.Seed(t, f.store, testutil.September, []model.Transaction{
		testutil.NewTransaction("sep-salary").Income("1000").On(testutil.September, 1).Build(),
		testutil.NewTransaction("sep-food").Expense("-300").On(testutil.September, 3).Build(),
	})

	progress, err := f.engine.SavingsProgress(ctx, testutil.August)
	require.NoError(t, err)
	assert.True(t, progress.Saved.Equal(d("57")))
	assert.Equal(t, ledger.SavingsMissed, progress.Status)

	report, err := f.engine.Report(ctx, []model.Period{testutil.August, testutil.September, october})
	require.NoError(t, err)
	assert.True(t, report.Consistency.Valid)
	assert.Equal(t, []model.Period{october}, report.Missing)
	require.Len(t, report.Summaries, 2)
	assert.True(t, report.Summaries[1].Opening.Equal(d("4057")))
	assert.True(t, report.Summaries[1].Closing.Equal(d("4757")))
	require.Len(t, report.Savings, 2)
	assert.Equal(t, ledger.SavingsNear, report.Savings[1].Status)
}

// countingRepo counts reads that reach the store.
type countingRepo struct {
	service.Store
	reads atomic.Int32
}

func (c *countingRepo) GetTransactions(ctx context.Context, p model.Period) ([]model.Transaction, error) {
	c.reads.Add(1)
	return c.Store.GetTransactions(ctx, p)
}

func TestEngine_MemoizesUntilMutation(t *testing.T) {
	store := storage.NewMemoryStore()
	testutil.Seed(t, store, testutil.August, testutil.AugustFixture())
	testutil.SeedOpening(t, store, testutil.August, "4000")
	repo := &countingRepo{Store: store}

	e := New(repo, repo, WithCache(cache.New(time.Minute, time.Minute)))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := e.Summary(ctx, testutil.August)
		require.NoError(t, err)
		_, err = e.DetailByTier(ctx, testutil.August)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), repo.reads.Load())

	_, err := e.Reclassify(ctx, "dinner", TargetIncome, "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.reads.Load())

	s, err := e.Summary(ctx, testutil.August)
	require.NoError(t, err)
	assert.True(t, s.Closing.Equal(d("4157")))
}

func TestEngine_ResultsDoNotShareCachedMemory(t *testing.T) {
	f := newFixture(t, WithCache(cache.New(time.Minute, time.Minute)))
	ctx := context.Background()
	expenses := filter.Spec{filter.Category(model.CategoryExpense)}

	filtered, err := f.engine.Filter(ctx, testutil.August, expenses)
	require.NoError(t, err)
	require.NotEmpty(t, filtered)
	want := filtered[0].Amount
	filtered[0].Amount = filtered[0].Amount.Add(d("1000000"))
	filtered[0].Tags = append(filtered[0].Tags, "edited")

	again, err := f.engine.Filter(ctx, testutil.August, expenses)
	require.NoError(t, err)
	assert.True(t, again[0].Amount.Equal(want), "got %s", again[0].Amount)
	assert.NotContains(t, again[0].Tags, "edited")

	all, err := f.engine.Transactions(ctx, testutil.August)
	require.NoError(t, err)
	all[0].Description = "edited"
	all, err = f.engine.Transactions(ctx, testutil.August)
	require.NoError(t, err)
	assert.NotEqual(t, "edited", all[0].Description)

	groups, err := f.engine.GroupBy(ctx, testutil.August, expenses, "subcategory", 0, true)
	require.NoError(t, err)
	require.NotEmpty(t, groups)
	wantGroup := groups[0]
	groups[0].Total = d("0")
	groups, err = f.engine.GroupBy(ctx, testutil.August, expenses, "subcategory", 0, true)
	require.NoError(t, err)
	assert.True(t, groups[0].Total.Equal(wantGroup.Total))

	breakdown, err := f.engine.Breakdown(ctx, testutil.August)
	require.NoError(t, err)
	require.NotEmpty(t, breakdown)
	breakdown[0].Key = "edited"
	breakdown, err = f.engine.Breakdown(ctx, testutil.August)
	require.NoError(t, err)
	assert.NotEqual(t, "edited", breakdown[0].Key)

	detail, err := f.engine.DetailByTier(ctx, testutil.August)
	require.NoError(t, err)
	require.NotEmpty(t, detail.Sections)
	wantSection := detail.Sections[0]
	detail.Sections[0].Total = d("-999999")
	detail, err = f.engine.DetailByTier(ctx, testutil.August)
	require.NoError(t, err)
	assert.True(t, detail.Sections[0].Total.Equal(wantSection.Total))
}

func TestEngine_SQLiteEndToEnd(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	testutil.Seed(t, db, testutil.August, testutil.AugustFixture())
	testutil.SeedOpening(t, db, testutil.August, "4000")
	require.NoError(t, db.SaveConfiguration(ctx, testutil.BudgetFixture()))

	e := New(db, db, WithCache(cache.New(time.Minute, time.Minute)))

	s, err := e.Summary(ctx, testutil.August)
	require.NoError(t, err)
	assert.True(t, s.Closing.Equal(d("4057")))

	moved, err := e.CarryOverdue(ctx, testutil.August, testutil.September)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	require.NoError(t, e.SetOpeningBalance(ctx, testutil.September, d("4100")))
	report, err := e.Validate(ctx, []model.Period{testutil.August, testutil.September})
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.True(t, report.Errors[0].Difference.Equal(d("43")))
}
