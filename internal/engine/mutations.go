package engine

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/classify"
	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/config"
	"github.com/Veraticus/savings-plan/internal/events"
	"github.com/Veraticus/savings-plan/internal/ledger"
	"github.com/Veraticus/savings-plan/internal/model"
)

// Target is what a transaction can be reclassified as.
type Target string

// Reclassification targets.
const (
	TargetIncome          Target = "income"
	TargetRecurring       Target = "recurring_operation"
	TargetFinancialCharge Target = "financial_charge"
)

// ParseTarget validates a reclassification target.
func ParseTarget(s string) (Target, error) {
	switch t := Target(s); t {
	case TargetIncome, TargetRecurring, TargetFinancialCharge:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", common.ErrInvalidTarget, s)
}

// ReclassifyResult is the outcome of Reclassify. Summary is the refreshed summary of the
// period holding the transaction.
type ReclassifyResult struct {
	Transaction model.Transaction
	Summary     ledger.ResourceSummary
	Success     bool
	Changed     bool
}

// Reclassify changes the category of a transaction and, when linkTarget names a schedule,
// links it. Repeating a call with the same arguments changes nothing.
func (e *Engine) Reclassify(ctx context.Context, id string, target Target, linkTarget string) (ReclassifyResult, error) {
	if _, err := ParseTarget(string(target)); err != nil {
		return ReclassifyResult{}, err
	}

	current, err := e.transactions.GetTransaction(ctx, id)
	if err != nil {
		return ReclassifyResult{}, fmt.Errorf("failed to load transaction: %w", err)
	}
	if linkTarget != "" {
		if err := e.checkSchedule(ctx, linkTarget); err != nil {
			return ReclassifyResult{}, err
		}
	}

	next := reclassified(*current, target, linkTarget)
	changed, err := e.replace(ctx, *current, next)
	if err != nil {
		return ReclassifyResult{}, err
	}
	if changed {
		slog.InfoContext(ctx, "Reclassified transaction",
			"transaction_id", id,
			"target", target,
			"link", linkTarget)
		ev := e.event(events.TransactionReclassified)
		ev.TransactionID = id
		ev.ScheduleID = next.ScheduleID
		ev.Detail = string(target)
		e.publish(ctx, ev)
	}

	p, err := e.transactions.PeriodOf(ctx, id)
	if err != nil {
		return ReclassifyResult{}, fmt.Errorf("failed to locate transaction: %w", err)
	}
	summary, err := e.Summary(ctx, p)
	if err != nil {
		return ReclassifyResult{}, err
	}

	return ReclassifyResult{
		Transaction: next,
		Summary:     summary,
		Success:     true,
		Changed:     changed,
	}, nil
}

func reclassified(txn model.Transaction, target Target, linkTarget string) model.Transaction {
	out := txn.Clone()
	switch target {
	case TargetIncome:
		out.Category = model.CategoryIncome
		out.UserCategory = model.UserCategoryIncome
		out.Subcategory = ""
		out.Tier = model.TierNone
		out.MovementType = ""
	case TargetRecurring:
		out.UserCategory = model.UserCategoryRecurring
	case TargetFinancialCharge:
		out.Category = model.CategoryFinancialCharge
		out.Subcategory = ""
		out.Tier = model.TierNone
		out.MovementType = ""
		if out.UserCategory == model.UserCategoryIncome {
			out.UserCategory = model.UserCategoryNone
		}
		if out.Settlement == model.SettlementNone {
			out.Settlement = model.SettlementSettled
		}
	}
	if linkTarget != "" {
		out.Linked = true
		out.ScheduleID = linkTarget
	}
	return out
}

// LinkToSchedule marks a transaction as claimed by a recurring schedule, so totals count
// the schedule's own entry instead. Linking again to the same schedule is a no-op.
func (e *Engine) LinkToSchedule(ctx context.Context, id, scheduleID string) error {
	if err := e.checkSchedule(ctx, scheduleID); err != nil {
		return err
	}

	current, err := e.transactions.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}

	next := current.Clone()
	next.Linked = true
	next.ScheduleID = scheduleID
	next.UserCategory = model.UserCategoryRecurring

	changed, err := e.replace(ctx, *current, next)
	if err != nil {
		return err
	}
	if changed {
		slog.InfoContext(ctx, "Linked transaction to schedule",
			"transaction_id", id,
			"schedule_id", scheduleID)
		ev := e.event(events.TransactionLinked)
		ev.TransactionID = id
		ev.ScheduleID = scheduleID
		e.publish(ctx, ev)
	}
	return nil
}

func (e *Engine) checkSchedule(ctx context.Context, scheduleID string) error {
	if scheduleID == "" {
		return fmt.Errorf("%w: empty schedule id", common.ErrInvalidTarget)
	}
	if e.schedules == nil {
		return nil
	}
	if _, err := e.schedules.GetSchedule(ctx, scheduleID); err != nil {
		return fmt.Errorf("failed to load schedule: %w", err)
	}
	return nil
}

// replace writes next when it differs from current and reports whether it did.
func (e *Engine) replace(ctx context.Context, current, next model.Transaction) (bool, error) {
	if reflect.DeepEqual(current, next) {
		return false, nil
	}
	if err := e.transactions.ReplaceTransaction(ctx, next); err != nil {
		return false, fmt.Errorf("failed to save transaction %s: %w", next.ID, err)
	}
	e.invalidate()
	return true, nil
}

// UpdateConfiguration applies patch to the stored configuration. The returned warnings
// describe questionable values; they never prevent the save.
func (e *Engine) UpdateConfiguration(ctx context.Context, patch model.ConfigurationPatch) ([]config.Warning, error) {
	current, err := e.Configuration(ctx)
	if err != nil {
		return nil, err
	}

	next := current.Apply(patch)
	warnings := config.Validate(next)
	if err := e.configs.SaveConfiguration(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save configuration: %w", err)
	}
	e.invalidate()

	for _, w := range warnings {
		slog.WarnContext(ctx, "Configuration warning", "field", w.Field, "message", w.Message)
	}
	slog.InfoContext(ctx, "Updated configuration", "hash", next.Hash(), "warnings", len(warnings))

	ev := e.event(events.ConfigurationUpdated)
	ev.Detail = next.Hash()
	e.publish(ctx, ev)

	return warnings, nil
}

// SetOpeningBalance records the opening balance of p.
func (e *Engine) SetOpeningBalance(ctx context.Context, p model.Period, amount decimal.Decimal) error {
	if e.openings == nil {
		return fmt.Errorf("%w: opening balances", common.ErrMissingConfig)
	}
	if err := e.openings.SetOpeningBalance(ctx, p, amount); err != nil {
		return fmt.Errorf("failed to save opening balance: %w", err)
	}
	e.invalidate()
	return nil
}

// GenerateOccurrences creates the pending transaction of every schedule active in p.
// Occurrences that already exist are left untouched. It returns how many were created.
func (e *Engine) GenerateOccurrences(ctx context.Context, p model.Period) (int, error) {
	if e.schedules == nil {
		return 0, fmt.Errorf("%w: schedules", common.ErrMissingConfig)
	}

	schedules, err := e.schedules.ListSchedules(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list schedules: %w", err)
	}

	occurrences := []model.Transaction{}
	for i := range schedules {
		if schedules[i].ActiveIn(p) {
			occurrences = append(occurrences, schedules[i].Occurrence(p))
		}
	}

	created, err := e.transactions.SaveTransactions(ctx, p, occurrences)
	if err != nil {
		return 0, fmt.Errorf("failed to save occurrences: %w", err)
	}
	if created == 0 {
		return 0, nil
	}
	e.invalidate()

	slog.InfoContext(ctx, "Generated schedule occurrences", "period", p.String(), "created", created)
	ev := e.event(events.OccurrencesGenerated)
	ev.Period = p.String()
	ev.Detail = fmt.Sprint(created)
	e.publish(ctx, ev)

	return created, nil
}

// CarryOverdue moves the unpaid obligations of from into to, flagged overdue with their
// first origin period. It returns how many were moved.
func (e *Engine) CarryOverdue(ctx context.Context, from, to model.Period) (int, error) {
	if !from.Before(to) {
		return 0, fmt.Errorf("%w: %s is not before %s", common.ErrInvalidTarget, from, to)
	}

	txns, err := e.transactions.GetTransactions(ctx, from)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", from, err)
	}

	moved := 0
	defer func() {
		if moved > 0 {
			e.invalidate()
			slog.InfoContext(ctx, "Carried overdue obligations", "from", from.String(), "to", to.String(), "count", moved)
		}
	}()

	for _, txn := range ledger.OverdueCandidates(txns) {
		carried := ledger.MarkOverdue(txn, from)
		if err := e.transactions.CarryTransaction(ctx, carried, to); err != nil {
			return moved, fmt.Errorf("failed to carry %s: %w", txn.ID, err)
		}
		moved++

		ev := e.event(events.TransactionCarried)
		ev.TransactionID = txn.ID
		ev.Period = to.String()
		ev.Detail = carried.OriginPeriod
		e.publish(ctx, ev)
	}
	return moved, nil
}

// RefreshTiers rewrites stored tiers of p that differ from the tiers derived under the
// current configuration. Periods the configuration does not govern are left alone.
func (e *Engine) RefreshTiers(ctx context.Context, p model.Period) ([]classify.Mismatch, error) {
	cfg, err := e.Configuration(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.EffectiveFor(p) {
		return nil, nil
	}

	txns, err := e.transactions.GetTransactions(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", p, err)
	}

	mismatches := classify.Mismatches(txns, cfg)
	byID := make(map[string]model.Transaction, len(txns))
	for _, txn := range txns {
		byID[txn.ID] = txn
	}
	for i, m := range mismatches {
		txn := byID[m.TransactionID].Clone()
		txn.Tier = m.Derived
		if err := e.transactions.ReplaceTransaction(ctx, txn); err != nil {
			if i > 0 {
				e.invalidate()
			}
			return nil, fmt.Errorf("failed to refresh tier of %s: %w", txn.ID, err)
		}
	}

	if len(mismatches) > 0 {
		e.invalidate()
		slog.InfoContext(ctx, "Refreshed stale tiers", "period", p.String(), "count", len(mismatches))
		ev := e.event(events.TiersRefreshed)
		ev.Period = p.String()
		ev.Detail = fmt.Sprint(len(mismatches))
		e.publish(ctx, ev)
	}
	return mismatches, nil
}
