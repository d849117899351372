package engine

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/savings-plan/internal/aggregate"
	"github.com/Veraticus/savings-plan/internal/alert"
	"github.com/Veraticus/savings-plan/internal/cache"
	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/consistency"
	"github.com/Veraticus/savings-plan/internal/ledger"
	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/money"
)

// SectionAlert is a capped section at warning or danger level.
type SectionAlert struct {
	Section     model.Section
	Level       alert.Level
	Total       decimal.Decimal
	Cap         decimal.Decimal
	PercentUsed decimal.Decimal
	Message     string
}

// Report is the multi-period view: the consistency audit plus per-period summaries and
// savings progress. Missing lists requested periods that have no data.
type Report struct {
	Consistency consistency.Report
	Summaries   []ledger.ResourceSummary
	Savings     []ledger.SavingsProgress
	Missing     []model.Period
}

// Opening returns the opening balance of p and whether it was recorded rather than chained
// from the previous period's closing balance. A period with neither starts at zero.
func (e *Engine) Opening(ctx context.Context, p model.Period) (decimal.Decimal, bool, error) {
	type opening struct {
		amount   decimal.Decimal
		recorded bool
	}
	o, err := memoize(ctx, e, cache.Key(p.String(), "opening"), func() (opening, error) {
		amount, recorded, err := e.resolveOpening(ctx, p)
		return opening{amount: amount, recorded: recorded}, err
	})
	return o.amount, o.recorded, err
}

func (e *Engine) resolveOpening(ctx context.Context, p model.Period) (decimal.Decimal, bool, error) {
	if e.openings != nil {
		amount, ok, err := e.openings.GetOpeningBalance(ctx, p)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("failed to load opening balance of %s: %w", p, err)
		}
		if ok {
			return amount, true, nil
		}
	}

	known, err := e.knownPeriods(ctx)
	if err != nil {
		return decimal.Zero, false, err
	}

	// walk back to the nearest recorded opening or the first known period
	var chain []model.Period
	base := decimal.Zero
	for cur := p.Prev(); known[cur]; cur = cur.Prev() {
		chain = append(chain, cur)
		if e.openings == nil {
			continue
		}
		amount, ok, err := e.openings.GetOpeningBalance(ctx, cur)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("failed to load opening balance of %s: %w", cur, err)
		}
		if ok {
			base = amount
			break
		}
	}

	balance := base
	for i := len(chain) - 1; i >= 0; i-- {
		txns, err := e.fetch(ctx, chain[i])
		if err != nil {
			return decimal.Zero, false, err
		}
		balance = ledger.ClosingBalance(txns, balance)
	}
	return balance, false, nil
}

func (e *Engine) knownPeriods(ctx context.Context) (map[model.Period]bool, error) {
	periods, err := e.transactions.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	known := make(map[model.Period]bool, len(periods))
	for _, p := range periods {
		known[p] = true
	}
	return known, nil
}

// Summary returns the resource summary of p.
func (e *Engine) Summary(ctx context.Context, p model.Period) (ledger.ResourceSummary, error) {
	return memoize(ctx, e, cache.Key(p.String(), "summary"), func() (ledger.ResourceSummary, error) {
		txns, err := e.fetch(ctx, p)
		if err != nil {
			return ledger.ResourceSummary{}, err
		}
		opening, _, err := e.Opening(ctx, p)
		if err != nil {
			return ledger.ResourceSummary{}, err
		}
		return ledger.Summarize(p, opening, txns), nil
	})
}

// DetailByTier returns per-section consumption and alert state of p.
func (e *Engine) DetailByTier(ctx context.Context, p model.Period) (ledger.TierDetail, error) {
	cfg, err := e.Configuration(ctx)
	if err != nil {
		return ledger.TierDetail{}, err
	}
	detail, err := memoize(ctx, e, cache.Key(p.String(), "detail", cfg.Hash()), func() (ledger.TierDetail, error) {
		txns, err := e.classified(ctx, p, cfg)
		if err != nil {
			return ledger.TierDetail{}, err
		}
		return ledger.Detail(p, txns, cfg), nil
	})
	if err != nil {
		return ledger.TierDetail{}, err
	}
	detail.Sections = slices.Clone(detail.Sections)
	return detail, nil
}

// Breakdown returns p's expenses grouped by subcategory, largest first.
func (e *Engine) Breakdown(ctx context.Context, p model.Period) ([]aggregate.Group, error) {
	groups, err := memoize(ctx, e, cache.Key(p.String(), "breakdown"), func() ([]aggregate.Group, error) {
		txns, err := e.fetch(ctx, p)
		if err != nil {
			return nil, err
		}
		return ledger.Breakdown(txns), nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(groups), nil
}

// Alerts lists the sections of p at warning or danger level, danger first.
func (e *Engine) Alerts(ctx context.Context, p model.Period) ([]SectionAlert, error) {
	detail, err := e.DetailByTier(ctx, p)
	if err != nil {
		return nil, err
	}

	var alerts []SectionAlert
	for _, sd := range detail.Sections {
		if sd.Alert.Level == alert.LevelNormal {
			continue
		}
		alerts = append(alerts, SectionAlert{
			Section:     sd.Section,
			Level:       sd.Alert.Level,
			Total:       sd.Total,
			Cap:         sd.Alert.Cap.Decimal,
			PercentUsed: sd.Alert.PercentUsed,
			Message: fmt.Sprintf("%s has used %s%% of its %s cap",
				sd.Section, sd.Alert.PercentUsed.StringFixed(1), money.Format(sd.Alert.Cap.Decimal)),
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Level.Severity() > alerts[j].Level.Severity()
	})
	return alerts, nil
}

// SavingsProgress compares what p saved with the configured savings goal.
func (e *Engine) SavingsProgress(ctx context.Context, p model.Period) (ledger.SavingsProgress, error) {
	cfg, err := e.Configuration(ctx)
	if err != nil {
		return ledger.SavingsProgress{}, err
	}
	summary, err := e.Summary(ctx, p)
	if err != nil {
		return ledger.SavingsProgress{}, err
	}
	return ledger.Savings(summary, cfg.SavingsGoal), nil
}

// fetchAll loads several periods concurrently. Periods that do not exist are returned in
// missing instead of failing the call.
func (e *Engine) fetchAll(ctx context.Context, periods []model.Period) (map[model.Period][]model.Transaction, []model.Period, error) {
	results := make([][]model.Transaction, len(periods))
	absent := make([]bool, len(periods))

	g, gctx := errgroup.WithContext(ctx)
	if e.fetchLimit > 0 {
		g.SetLimit(e.fetchLimit)
	}
	for i, p := range periods {
		i, p := i, p
		g.Go(func() error {
			txns, err := e.fetch(gctx, p)
			if common.IsNotFound(err) {
				absent[i] = true
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = txns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	found := make(map[model.Period][]model.Transaction, len(periods))
	var missing []model.Period
	for i, p := range periods {
		if absent[i] {
			missing = append(missing, p)
			continue
		}
		found[p] = results[i]
	}
	return found, missing, nil
}

// Snapshots derives the snapshot of every period that exists, in the order given. Each
// opening is the recorded one when present, otherwise the closing of the preceding snapshot
// when it is the previous month, otherwise resolved through the store.
func (e *Engine) Snapshots(ctx context.Context, periods []model.Period) ([]model.PeriodSnapshot, []model.Period, error) {
	found, missing, err := e.fetchAll(ctx, periods)
	if err != nil {
		return nil, nil, err
	}

	snaps := make([]model.PeriodSnapshot, 0, len(found))
	for _, p := range periods {
		txns, ok := found[p]
		if !ok {
			continue
		}

		var (
			opening  decimal.Decimal
			recorded bool
		)
		if e.openings != nil {
			amount, ok, err := e.openings.GetOpeningBalance(ctx, p)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to load opening balance of %s: %w", p, err)
			}
			opening, recorded = amount, ok
		}
		if !recorded {
			if n := len(snaps); n > 0 && snaps[n-1].Period.Next() == p {
				opening = snaps[n-1].Closing
			} else if opening, _, err = e.Opening(ctx, p); err != nil {
				return nil, nil, err
			}
		}

		snaps = append(snaps, ledger.Snapshot(p, opening, recorded, txns))
	}
	return snaps, missing, nil
}

// Validate audits the balance chain across periods. Missing periods and questionable
// overdue origins are reported as warnings.
func (e *Engine) Validate(ctx context.Context, periods []model.Period) (consistency.Report, error) {
	snaps, missing, err := e.Snapshots(ctx, periods)
	if err != nil {
		return consistency.Report{}, err
	}

	report := consistency.Validate(snaps)
	for _, p := range missing {
		report.AddWarnings(consistency.Warning{
			Kind:        consistency.WarningMissingPeriod,
			PeriodLabel: p.String(),
			Message:     fmt.Sprintf("no data for %s", p.Label()),
		})
	}

	window := make([]model.Period, 0, len(snaps))
	for _, s := range snaps {
		window = append(window, s.Period)
	}
	for _, s := range snaps {
		txns, err := e.fetch(ctx, s.Period)
		if err != nil {
			return consistency.Report{}, err
		}
		report.AddWarnings(consistency.CheckOverdue(s.Period, txns, window)...)
	}
	return report, nil
}

// Report builds the multi-period view across periods.
func (e *Engine) Report(ctx context.Context, periods []model.Period) (Report, error) {
	audit, err := e.Validate(ctx, periods)
	if err != nil {
		return Report{}, err
	}
	cfg, err := e.Configuration(ctx)
	if err != nil {
		return Report{}, err
	}

	snaps, missing, err := e.Snapshots(ctx, periods)
	if err != nil {
		return Report{}, err
	}

	r := Report{Consistency: audit, Missing: missing}
	for _, s := range snaps {
		txns, err := e.fetch(ctx, s.Period)
		if err != nil {
			return Report{}, err
		}
		summary := ledger.Summarize(s.Period, s.Opening, txns)
		r.Summaries = append(r.Summaries, summary)
		r.Savings = append(r.Savings, ledger.Savings(summary, cfg.SavingsGoal))
	}
	return r, nil
}
