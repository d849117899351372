package filter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/model"
)

// CategoryIn matches transactions whose primary category is one of Categories.
type CategoryIn struct {
	Categories []model.Category
}

// Category is shorthand for a single-category CategoryIn.
func Category(c ...model.Category) CategoryIn {
	return CategoryIn{Categories: c}
}

func (p CategoryIn) Match(txn *model.Transaction) bool {
	for _, c := range p.Categories {
		if txn.Category == c {
			return true
		}
	}
	return false
}

func (p CategoryIn) Key() string {
	vals := make([]string, len(p.Categories))
	for i, c := range p.Categories {
		vals[i] = string(c)
	}
	return "category=" + sortedJoin(vals)
}

// UserCategoryIn matches transactions whose user category is one of Values. When Unset is
// true it also matches transactions with no user category or an explicit not-applicable.
type UserCategoryIn struct {
	Values []model.UserCategory
	Unset  bool
}

// UserCategory is shorthand for a UserCategoryIn over the given values.
func UserCategory(u ...model.UserCategory) UserCategoryIn {
	return UserCategoryIn{Values: u}
}

// NoUserCategory matches transactions without a meaningful user category.
func NoUserCategory() UserCategoryIn {
	return UserCategoryIn{Unset: true}
}

func (p UserCategoryIn) Match(txn *model.Transaction) bool {
	if p.Unset && txn.UserCategory.IsUnset() {
		return true
	}
	for _, u := range p.Values {
		if txn.UserCategory == u && !u.IsUnset() {
			return true
		}
	}
	return false
}

func (p UserCategoryIn) Key() string {
	vals := make([]string, 0, len(p.Values)+1)
	for _, u := range p.Values {
		vals = append(vals, string(u))
	}
	if p.Unset {
		vals = append(vals, "<unset>")
	}
	return "user_category=" + sortedJoin(vals)
}

// SettlementIs matches a settlement state. model.SettlementAll disables the predicate.
type SettlementIs struct {
	State model.Settlement
}

func (p SettlementIs) Match(txn *model.Transaction) bool {
	if p.State == model.SettlementAll {
		return true
	}
	return txn.Settlement == p.State
}

func (p SettlementIs) Key() string {
	return "settlement=" + string(p.State)
}

// Direction is the sign of a transaction amount.
type Direction int

// Directions.
const (
	Inflow Direction = iota + 1
	Outflow
)

// DirectionIs matches positive (Inflow) or negative (Outflow) amounts. Zero amounts match
// neither.
type DirectionIs struct {
	Direction Direction
}

func (p DirectionIs) Match(txn *model.Transaction) bool {
	switch p.Direction {
	case Inflow:
		return txn.IsInflow()
	case Outflow:
		return txn.IsOutflow()
	}
	return false
}

func (p DirectionIs) Key() string {
	return fmt.Sprintf("direction=%d", p.Direction)
}

// DateRange matches effective dates within [From, To]. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// InPeriod matches transactions whose effective date falls in p.
func InPeriod(p model.Period) DateRange {
	return DateRange{From: p.Start(), To: p.End()}
}

func (p DateRange) Match(txn *model.Transaction) bool {
	d := txn.EffectiveDate()
	if !p.From.IsZero() && d.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && d.After(p.To) {
		return false
	}
	return true
}

func (p DateRange) Key() string {
	return fmt.Sprintf("date=%s..%s", fmtTime(p.From), fmtTime(p.To))
}

// AmountRange matches absolute amounts within [Min, Max]. An invalid bound is open.
type AmountRange struct {
	Min decimal.NullDecimal
	Max decimal.NullDecimal
}

func (p AmountRange) Match(txn *model.Transaction) bool {
	abs := txn.Amount.Abs()
	if p.Min.Valid && abs.LessThan(p.Min.Decimal) {
		return false
	}
	if p.Max.Valid && abs.GreaterThan(p.Max.Decimal) {
		return false
	}
	return true
}

func (p AmountRange) Key() string {
	return fmt.Sprintf("amount=%s..%s", fmtNull(p.Min), fmtNull(p.Max))
}

// DescriptionContains matches a case-insensitive substring of the description.
type DescriptionContains struct {
	Text string
}

func (p DescriptionContains) Match(txn *model.Transaction) bool {
	return strings.Contains(strings.ToLower(txn.Description), strings.ToLower(p.Text))
}

func (p DescriptionContains) Key() string {
	return "description~" + strings.ToLower(p.Text)
}

// LinkedIs matches the link state.
type LinkedIs struct {
	Linked bool
}

// Unlinked matches transactions not claimed by a recurring schedule.
func Unlinked() LinkedIs {
	return LinkedIs{Linked: false}
}

func (p LinkedIs) Match(txn *model.Transaction) bool {
	return txn.Linked == p.Linked
}

func (p LinkedIs) Key() string {
	return fmt.Sprintf("linked=%t", p.Linked)
}

// InstrumentIs matches the payment instrument.
type InstrumentIs struct {
	Instrument model.Instrument
}

func (p InstrumentIs) Match(txn *model.Transaction) bool {
	return txn.Instrument == p.Instrument
}

func (p InstrumentIs) Key() string {
	return "instrument=" + string(p.Instrument)
}

// TierIs matches the expense tier.
type TierIs struct {
	Tier model.Tier
}

func (p TierIs) Match(txn *model.Transaction) bool {
	return txn.Tier == p.Tier
}

func (p TierIs) Key() string {
	return "tier=" + string(p.Tier)
}

// OverdueIs matches the lateness marker.
type OverdueIs struct {
	Overdue bool
}

func (p OverdueIs) Match(txn *model.Transaction) bool {
	return txn.Overdue == p.Overdue
}

func (p OverdueIs) Key() string {
	return fmt.Sprintf("overdue=%t", p.Overdue)
}

// Not negates a predicate.
type Not struct {
	Predicate Predicate
}

func (p Not) Match(txn *model.Transaction) bool {
	if p.Predicate == nil {
		return false
	}
	return !p.Predicate.Match(txn)
}

func (p Not) Key() string {
	if p.Predicate == nil {
		return "!<nil>"
	}
	return "!(" + p.Predicate.Key() + ")"
}

func sortedJoin(vals []string) string {
	s := append([]string(nil), vals...)
	sort.Strings(s)
	return strings.Join(s, "|")
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func fmtNull(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
