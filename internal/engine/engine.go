// Package engine answers budget queries over stored periods and applies the mutations that
// change them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/aggregate"
	"github.com/Veraticus/savings-plan/internal/cache"
	"github.com/Veraticus/savings-plan/internal/classify"
	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/config"
	"github.com/Veraticus/savings-plan/internal/events"
	"github.com/Veraticus/savings-plan/internal/filter"
	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/service"
)

// Engine is the query and mutation facade over a transaction store.
type Engine struct {
	transactions service.TransactionRepository
	configs      service.ConfigProvider
	openings     service.OpeningBalances
	schedules    service.ScheduleRepository
	memo         cache.Memo
	publisher    events.Publisher
	now          func() time.Time
	fetchLimit   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache memoizes computed results in m.
func WithCache(m cache.Memo) Option {
	return func(e *Engine) { e.memo = m }
}

// WithSchedules sets the schedule repository used for linking and occurrence generation.
func WithSchedules(s service.ScheduleRepository) Option {
	return func(e *Engine) { e.schedules = s }
}

// WithOpeningBalances sets where recorded opening balances are read from and written to.
func WithOpeningBalances(o service.OpeningBalances) Option {
	return func(e *Engine) { e.openings = o }
}

// WithPublisher publishes mutation events to p.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithFetchLimit bounds how many periods are fetched concurrently.
func WithFetchLimit(n int) Option {
	return func(e *Engine) { e.fetchLimit = n }
}

// New creates an engine. When transactions also stores opening balances or schedules, it is
// used for those unless an option says otherwise.
func New(transactions service.TransactionRepository, configs service.ConfigProvider, opts ...Option) *Engine {
	e := &Engine{
		transactions: transactions,
		configs:      configs,
		memo:         cache.Nop{},
		publisher:    events.Nop{},
		now:          time.Now,
		fetchLimit:   4,
	}
	if o, ok := transactions.(service.OpeningBalances); ok {
		e.openings = o
	}
	if s, ok := transactions.(service.ScheduleRepository); ok {
		e.schedules = s
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Configuration returns the stored configuration, or config.Defaults when none is stored.
func (e *Engine) Configuration(ctx context.Context) (model.Configuration, error) {
	cfg, err := e.configs.GetConfiguration(ctx)
	if errors.Is(err, common.ErrMissingConfig) {
		slog.DebugContext(ctx, "No stored configuration, using defaults")
		return config.Defaults(), nil
	}
	if err != nil {
		return model.Configuration{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// Transactions returns the period's transactions with tiers derived from the configuration
// in force.
func (e *Engine) Transactions(ctx context.Context, p model.Period) ([]model.Transaction, error) {
	cfg, err := e.Configuration(ctx)
	if err != nil {
		return nil, err
	}
	txns, err := e.classified(ctx, p, cfg)
	if err != nil {
		return nil, err
	}
	return cloneTransactions(txns), nil
}

// Filter returns the period's transactions matching spec.
func (e *Engine) Filter(ctx context.Context, p model.Period, spec filter.Spec) ([]model.Transaction, error) {
	cfg, err := e.Configuration(ctx)
	if err != nil {
		return nil, err
	}
	matched, err := memoize(ctx, e, cache.Key(p.String(), "filter", spec.Key(), cfg.Hash()), func() ([]model.Transaction, error) {
		txns, err := e.classified(ctx, p, cfg)
		if err != nil {
			return nil, err
		}
		return filter.Apply(txns, spec), nil
	})
	if err != nil {
		return nil, err
	}
	return cloneTransactions(matched), nil
}

// Sum returns the signed total of the period's transactions matching spec.
func (e *Engine) Sum(ctx context.Context, p model.Period, spec filter.Spec) (decimal.Decimal, error) {
	cfg, err := e.Configuration(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return memoize(ctx, e, cache.Key(p.String(), "sum", spec.Key(), cfg.Hash()), func() (decimal.Decimal, error) {
		txns, err := e.classified(ctx, p, cfg)
		if err != nil {
			return decimal.Zero, err
		}
		return aggregate.Sum(txns, spec), nil
	})
}

// GroupBy groups the period's transactions matching spec by the named selector (see
// aggregate.Selectors). When top is positive, groups beyond it are folded into "other".
func (e *Engine) GroupBy(ctx context.Context, p model.Period, spec filter.Spec, by string, top int, absolute bool) ([]aggregate.Group, error) {
	sel, ok := aggregate.Selectors[by]
	if !ok {
		return nil, fmt.Errorf("%w: unknown grouping %q", common.ErrInvalidTarget, by)
	}

	cfg, err := e.Configuration(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.Key(p.String(), "group", spec.Key(), by, fmt.Sprint(top), fmt.Sprint(absolute), cfg.Hash())
	groups, err := memoize(ctx, e, key, func() ([]aggregate.Group, error) {
		txns, err := e.classified(ctx, p, cfg)
		if err != nil {
			return nil, err
		}
		var opts []aggregate.Option
		if absolute {
			opts = append(opts, aggregate.Absolute())
		}
		groups := aggregate.GroupBy(filter.Apply(txns, spec), sel, opts...)
		if top > 0 {
			groups = aggregate.Top(groups, top)
		}
		return groups, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(groups), nil
}

// classified fetches the period and derives tiers when cfg governs it. Periods before the
// configuration's validity keep their stored tiers.
func (e *Engine) classified(ctx context.Context, p model.Period, cfg model.Configuration) ([]model.Transaction, error) {
	txns, err := e.fetch(ctx, p)
	if err != nil {
		return nil, err
	}
	if !cfg.EffectiveFor(p) {
		return txns, nil
	}
	return classify.Materialize(txns, cfg), nil
}

func (e *Engine) fetch(ctx context.Context, p model.Period) ([]model.Transaction, error) {
	return memoize(ctx, e, cache.Key(p.String(), "transactions"), func() ([]model.Transaction, error) {
		txns, err := e.transactions.GetTransactions(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", p, err)
		}
		return txns, nil
	})
}

// invalidate drops every memoized result. Mutations call it after a successful write.
func (e *Engine) invalidate() {
	e.memo.Flush()
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if err := e.publisher.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "Failed to publish event",
			"type", ev.Type,
			"transaction_id", ev.TransactionID,
			"error", err)
	}
}

func (e *Engine) event(t events.Type) events.Event {
	return events.New(t, e.now().UTC())
}

// cloneTransactions copies txns so that callers never share memory with memoized results.
func cloneTransactions(txns []model.Transaction) []model.Transaction {
	if txns == nil {
		return nil
	}
	out := make([]model.Transaction, len(txns))
	for i := range txns {
		out[i] = txns[i].Clone()
	}
	return out
}

func memoize[T any](ctx context.Context, e *Engine, key string, compute func() (T, error)) (T, error) {
	v, hit, err := cache.Memoize(e.memo, key, compute)
	if hit {
		slog.DebugContext(ctx, "Cache hit", "key", key)
	}
	return v, err
}
