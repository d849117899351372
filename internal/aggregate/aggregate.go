// Package aggregate sums transactions and builds ranked groupings.
package aggregate

import (
	"slices"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/filter"
	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/money"
)

// OtherKey names the synthetic bucket produced by Top.
const OtherKey = "other"

// Group is one entry of a grouping.
type Group struct {
	Key        string
	Total      decimal.Decimal
	Percentage decimal.Decimal
	Count      int
}

// Selector extracts the grouping key from a transaction.
type Selector func(txn *model.Transaction) string

// Sum returns the signed total of the transactions matching spec.
func Sum(txns []model.Transaction, spec filter.Spec) decimal.Decimal {
	total := decimal.Zero
	for i := range txns {
		if spec.Matches(&txns[i]) {
			total = total.Add(txns[i].Amount)
		}
	}
	return total
}

// Total returns the signed total of all transactions.
func Total(txns []model.Transaction) decimal.Decimal {
	return Sum(txns, nil)
}

type options struct {
	absolute bool
}

// Option configures GroupBy.
type Option func(*options)

// Absolute groups by absolute amounts, so outflows rank by size.
func Absolute() Option {
	return func(o *options) { o.absolute = true }
}

// GroupBy totals transactions per key. Groups are sorted by total descending; ties keep the
// order in which keys were first seen. Percentage is relative to the sum of all groups and
// is zero when that sum is zero.
func GroupBy(txns []model.Transaction, sel Selector, opts ...Option) []Group {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	index := make(map[string]int)
	var groups []Group
	whole := decimal.Zero

	for i := range txns {
		key := sel(&txns[i])
		amount := txns[i].Amount
		if o.absolute {
			amount = amount.Abs()
		}
		whole = whole.Add(amount)

		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, Group{Key: key, Total: decimal.Zero})
		}
		groups[pos].Total = groups[pos].Total.Add(amount)
		groups[pos].Count++
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Total.GreaterThan(groups[j].Total)
	})

	for i := range groups {
		groups[i].Percentage = money.Percent(groups[i].Total, whole)
	}
	return groups
}

// Top keeps the first n groups and folds the rest into a single OtherKey bucket. Groups are
// expected in GroupBy order. When an OtherKey group is already among the first n, the rest
// is folded into it and the result is sorted again.
func Top(groups []Group, n int) []Group {
	if n < 0 {
		n = 0
	}
	if len(groups) <= n {
		return groups
	}

	out := make([]Group, 0, n+1)
	out = append(out, groups[:n]...)

	pos := slices.IndexFunc(out, func(g Group) bool { return g.Key == OtherKey })
	merged := pos >= 0
	if !merged {
		out = append(out, Group{Key: OtherKey, Total: decimal.Zero, Percentage: decimal.Zero})
		pos = len(out) - 1
	}

	for _, g := range groups[n:] {
		out[pos].Total = out[pos].Total.Add(g.Total)
		out[pos].Percentage = out[pos].Percentage.Add(g.Percentage)
		out[pos].Count += g.Count
	}

	if merged {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Total.GreaterThan(out[j].Total)
		})
	}
	return out
}

// BySubcategory groups expenses by subcategory; a missing subcategory counts as OtherKey.
func BySubcategory(txn *model.Transaction) string {
	if txn.Subcategory == "" {
		return OtherKey
	}
	return txn.Subcategory
}

// ByCategory groups by primary category.
func ByCategory(txn *model.Transaction) string {
	return string(txn.Category)
}

// ByTier groups by expense tier.
func ByTier(txn *model.Transaction) string {
	if txn.Tier == model.TierNone {
		return "none"
	}
	return string(txn.Tier)
}

// ByInstrument groups by payment instrument.
func ByInstrument(txn *model.Transaction) string {
	return string(txn.Instrument)
}

// Selectors maps selector names to selectors, for callers that pick one by name.
var Selectors = map[string]Selector{
	"subcategory": BySubcategory,
	"category":    ByCategory,
	"tier":        ByTier,
	"instrument":  ByInstrument,
}
