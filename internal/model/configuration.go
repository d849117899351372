package model

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Section identifies a budget area that can carry a monthly cap.
type Section string

// Budget sections.
const (
	SectionAutomatic       Section = "automatic"
	SectionTrivial         Section = "trivial"
	SectionModerate        Section = "moderate"
	SectionExceptional     Section = "exceptional"
	SectionFinancialCharge Section = "financial_charge"
	SectionCashMovement    Section = "cash_movement"
	SectionRecurring       Section = "recurring"
)

// Sections lists every section in display order.
var Sections = []Section{
	SectionAutomatic,
	SectionTrivial,
	SectionModerate,
	SectionExceptional,
	SectionFinancialCharge,
	SectionCashMovement,
	SectionRecurring,
}

// SectionForTier maps an expense tier to its budget section.
func SectionForTier(t Tier) (Section, bool) {
	switch t {
	case TierAutomatic:
		return SectionAutomatic, true
	case TierTrivial:
		return SectionTrivial, true
	case TierModerate:
		return SectionModerate, true
	case TierExceptional:
		return SectionExceptional, true
	}
	return "", false
}

// ThresholdSetting is either derived from income or a manual amount.
type ThresholdSetting struct {
	Amount    decimal.Decimal `json:"amount"`
	Automatic bool            `json:"automatic"`
}

// Thresholds holds the tier boundaries.
type Thresholds struct {
	Trivial  ThresholdSetting `json:"trivial"`
	Moderate ThresholdSetting `json:"moderate"`
}

// Cap is a monthly ceiling. A fixed Amount wins over Percentage; neither means uncapped.
type Cap struct {
	Amount     decimal.NullDecimal `json:"amount"`
	Percentage decimal.NullDecimal `json:"percentage"`
}

// FixedCap returns a cap of a fixed amount.
func FixedCap(amount decimal.Decimal) Cap {
	return Cap{Amount: decimal.NewNullDecimal(amount)}
}

// PercentCap returns a cap expressed as a percentage of monthly income.
func PercentCap(pct decimal.Decimal) Cap {
	return Cap{Percentage: decimal.NewNullDecimal(pct)}
}

// Configuration is the budget plan in force for a validity window.
type Configuration struct {
	ValidFrom             time.Time       `json:"valid_from"`
	Caps                  map[Section]Cap `json:"caps"`
	MonthlyIncome         decimal.Decimal `json:"monthly_income"`
	SavingsGoal           decimal.Decimal `json:"savings_goal"`
	Thresholds            Thresholds      `json:"thresholds"`
	AppliesToPriorPeriods bool            `json:"applies_to_prior_periods"`
}

// Cap returns the cap configured for a section, or an uncapped value.
func (c Configuration) Cap(s Section) Cap {
	if c.Caps == nil {
		return Cap{}
	}
	return c.Caps[s]
}

// Clone returns a deep copy.
func (c Configuration) Clone() Configuration {
	caps := make(map[Section]Cap, len(c.Caps))
	for k, v := range c.Caps {
		caps[k] = v
	}
	c.Caps = caps
	return c
}

// Hash returns a content hash of the configuration, used to key memoized results.
func (c Configuration) Hash() string {
	// map keys are sorted by encoding/json, so the output is stable
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// EffectiveFor reports whether the configuration governs computations for p.
func (c Configuration) EffectiveFor(p Period) bool {
	if c.ValidFrom.IsZero() || c.AppliesToPriorPeriods {
		return true
	}
	return !p.End().Before(c.ValidFrom)
}

// ConfigurationPatch is a partial update. Nil fields are left unchanged.
type ConfigurationPatch struct {
	MonthlyIncome         *decimal.Decimal
	SavingsGoal           *decimal.Decimal
	Trivial               *ThresholdSetting
	Moderate              *ThresholdSetting
	Caps                  map[Section]Cap
	ValidFrom             *time.Time
	AppliesToPriorPeriods *bool
}

// Apply returns a new configuration with the patch applied. c is not modified.
func (c Configuration) Apply(p ConfigurationPatch) Configuration {
	out := c.Clone()
	if p.MonthlyIncome != nil {
		out.MonthlyIncome = *p.MonthlyIncome
	}
	if p.SavingsGoal != nil {
		out.SavingsGoal = *p.SavingsGoal
	}
	if p.Trivial != nil {
		out.Thresholds.Trivial = *p.Trivial
	}
	if p.Moderate != nil {
		out.Thresholds.Moderate = *p.Moderate
	}
	for s, cp := range p.Caps {
		out.Caps[s] = cp
	}
	if p.ValidFrom != nil {
		out.ValidFrom = *p.ValidFrom
	}
	if p.AppliesToPriorPeriods != nil {
		out.AppliesToPriorPeriods = *p.AppliesToPriorPeriods
	}
	return out
}
