package filter

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/model"
)

// Criteria is a flat set of optional filter fields, as collected from command-line flags.
// Zero values mean "not applied".
type Criteria struct {
	From        time.Time
	To          time.Time
	Linked      *bool
	Overdue     *bool
	Description string
	Settlement  model.Settlement
	Instrument  model.Instrument
	Tier        model.Tier
	Categories  []model.Category
	UserCats    []model.UserCategory
	Conditions  []Condition
	MinAmount   decimal.NullDecimal
	MaxAmount   decimal.NullDecimal
	Direction   Direction
	NoUserCat   bool
}

// Spec converts the criteria into a predicate list.
func (c Criteria) Spec() Spec {
	var s Spec
	if len(c.Categories) > 0 {
		s = append(s, CategoryIn{Categories: c.Categories})
	}
	if len(c.UserCats) > 0 || c.NoUserCat {
		s = append(s, UserCategoryIn{Values: c.UserCats, Unset: c.NoUserCat})
	}
	if c.Settlement != model.SettlementNone {
		s = append(s, SettlementIs{State: c.Settlement})
	}
	if c.Direction != 0 {
		s = append(s, DirectionIs{Direction: c.Direction})
	}
	if !c.From.IsZero() || !c.To.IsZero() {
		s = append(s, DateRange{From: c.From, To: c.To})
	}
	if c.MinAmount.Valid || c.MaxAmount.Valid {
		s = append(s, AmountRange{Min: c.MinAmount, Max: c.MaxAmount})
	}
	if c.Description != "" {
		s = append(s, DescriptionContains{Text: c.Description})
	}
	if c.Linked != nil {
		s = append(s, LinkedIs{Linked: *c.Linked})
	}
	if c.Instrument != "" {
		s = append(s, InstrumentIs{Instrument: c.Instrument})
	}
	if c.Tier != model.TierNone {
		s = append(s, TierIs{Tier: c.Tier})
	}
	if c.Overdue != nil {
		s = append(s, OverdueIs{Overdue: *c.Overdue})
	}
	for _, cond := range c.Conditions {
		s = append(s, cond)
	}
	return s
}
