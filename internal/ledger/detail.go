package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/aggregate"
	"github.com/Veraticus/savings-plan/internal/alert"
	"github.com/Veraticus/savings-plan/internal/classify"
	"github.com/Veraticus/savings-plan/internal/filter"
	"github.com/Veraticus/savings-plan/internal/model"
)

// SectionDetail is the consumption of one budget section, split by payment instrument.
type SectionDetail struct {
	Section model.Section
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Total   decimal.Decimal
	Alert   alert.Evaluation
	Count   int
}

// TierDetail is the per-section consumption of a period.
type TierDetail struct {
	Period   model.Period
	Sections []SectionDetail
}

// Section returns the detail of s, if present.
func (d TierDetail) Section(s model.Section) (SectionDetail, bool) {
	for _, sd := range d.Sections {
		if sd.Section == s {
			return sd, true
		}
	}
	return SectionDetail{}, false
}

// ExpenseTotal sums the four expense-tier sections.
func (d TierDetail) ExpenseTotal() decimal.Decimal {
	total := decimal.Zero
	for _, sd := range d.Sections {
		if _, isTier := tierOf(sd.Section); isTier {
			total = total.Add(sd.Total)
		}
	}
	return total
}

func tierOf(s model.Section) (model.Tier, bool) {
	switch s {
	case model.SectionAutomatic:
		return model.TierAutomatic, true
	case model.SectionTrivial:
		return model.TierTrivial, true
	case model.SectionModerate:
		return model.TierModerate, true
	case model.SectionExceptional:
		return model.TierExceptional, true
	}
	return model.TierNone, false
}

// SectionSpec returns the filter selecting a section's transactions. Tier sections split the
// expense flow; the other sections mirror their flow.
func SectionSpec(s model.Section) filter.Spec {
	if tier, ok := tierOf(s); ok {
		return ExpenseSpec.And(filter.TierIs{Tier: tier})
	}
	switch s {
	case model.SectionFinancialCharge:
		return SettledChargeSpec
	case model.SectionCashMovement:
		return CashMovementSpec
	case model.SectionRecurring:
		return RecurringSpec
	}
	// unknown sections select nothing
	return filter.Spec{filter.Condition{}}
}

// DetailByTier computes consumption and alert state for every section. Tiers are derived
// from cfg before grouping.
func DetailByTier(p model.Period, txns []model.Transaction, cfg model.Configuration) TierDetail {
	return Detail(p, classify.Materialize(txns, cfg), cfg)
}

// Detail is DetailByTier using the tiers stored on txns, for periods the configuration does
// not reclassify.
func Detail(p model.Period, txns []model.Transaction, cfg model.Configuration) TierDetail {
	detail := TierDetail{Period: p, Sections: make([]SectionDetail, 0, len(model.Sections))}
	for _, s := range model.Sections {
		selected := filter.Apply(txns, SectionSpec(s))
		debit := aggregate.Sum(selected, filter.Spec{filter.InstrumentIs{Instrument: model.InstrumentDebit}})
		credit := aggregate.Sum(selected, filter.Spec{filter.InstrumentIs{Instrument: model.InstrumentCredit}})
		total := aggregate.Total(selected)

		detail.Sections = append(detail.Sections, SectionDetail{
			Section: s,
			Debit:   debit,
			Credit:  credit,
			Total:   total,
			Count:   len(selected),
			Alert:   alert.EvaluateSection(total, s, cfg),
		})
	}
	return detail
}

// Breakdown groups a period's unlinked expenses by subcategory using absolute amounts.
func Breakdown(txns []model.Transaction) []aggregate.Group {
	return aggregate.GroupBy(filter.Apply(txns, ExpenseSpec), aggregate.BySubcategory, aggregate.Absolute())
}
