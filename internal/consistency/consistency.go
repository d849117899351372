// Package consistency audits that chained period balances agree with each other.
package consistency

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/money"
)

// Error is a broken link in the balance chain: a period whose opening balance differs from
// the previous period's closing balance.
type Error struct {
	PeriodLabel   string          `json:"period_label"`
	PreviousLabel string          `json:"previous_label"`
	Expected      decimal.Decimal `json:"expected"`
	Actual        decimal.Decimal `json:"actual"`
	Difference    decimal.Decimal `json:"difference"`
	Period        model.Period    `json:"-"`
	Previous      model.Period    `json:"-"`
}

func (e Error) Error() string {
	return fmt.Sprintf("%s opening %s does not match %s closing %s (difference %s)",
		e.PeriodLabel, e.Actual.StringFixed(2), e.PreviousLabel, e.Expected.StringFixed(2), e.Difference.StringFixed(2))
}

// WarningKind categorizes a warning.
type WarningKind string

const (
	// WarningOutOfOrder indicates periods were not given in chronological order.
	WarningOutOfOrder WarningKind = "out_of_order"
	// WarningGap indicates adjacent entries are not consecutive months.
	WarningGap WarningKind = "gap"
	// WarningMissingPeriod indicates a requested period had no data.
	WarningMissingPeriod WarningKind = "missing_period"
	// WarningOverdueOrigin indicates an overdue transaction whose origin period is unknown
	// or not earlier than the period carrying it.
	WarningOverdueOrigin WarningKind = "overdue_origin"
)

// Warning is a non-fatal observation about the validated window.
type Warning struct {
	Kind          WarningKind `json:"kind"`
	PeriodLabel   string      `json:"period_label"`
	TransactionID string      `json:"transaction_id,omitempty"`
	Message       string      `json:"message"`
}

// Report is the outcome of a validation run. Valid is true iff Errors is empty.
type Report struct {
	Errors   []Error   `json:"errors"`
	Warnings []Warning `json:"warnings,omitempty"`
	Checked  int       `json:"checked"`
	Valid    bool      `json:"valid"`
}

// AddWarnings appends warnings to the report.
func (r *Report) AddWarnings(w ...Warning) {
	r.Warnings = append(r.Warnings, w...)
}

// Validate walks adjacent snapshots and checks that each opening balance equals the
// previous closing balance within money.Tolerance. Snapshots are expected in chronological
// order; disorder and gaps are reported as warnings and the pairs are still checked as given.
func Validate(snaps []model.PeriodSnapshot) Report {
	report := Report{Errors: []Error{}, Checked: len(snaps)}

	for i := 1; i < len(snaps); i++ {
		prev, cur := snaps[i-1], snaps[i]

		switch {
		case !prev.Period.Before(cur.Period):
			report.AddWarnings(Warning{
				Kind:        WarningOutOfOrder,
				PeriodLabel: cur.Period.String(),
				Message:     fmt.Sprintf("%s does not follow %s", cur.Period, prev.Period),
			})
		case prev.Period.Next() != cur.Period:
			report.AddWarnings(Warning{
				Kind:        WarningGap,
				PeriodLabel: cur.Period.String(),
				Message:     fmt.Sprintf("months between %s and %s are not in the window", prev.Period, cur.Period),
			})
		}

		if money.WithinTolerance(cur.Opening, prev.Closing) {
			continue
		}
		report.Errors = append(report.Errors, Error{
			PeriodLabel:   cur.Period.String(),
			PreviousLabel: prev.Period.String(),
			Period:        cur.Period,
			Previous:      prev.Period,
			Expected:      prev.Closing,
			Actual:        cur.Opening,
			Difference:    cur.Opening.Sub(prev.Closing),
		})
	}

	report.Valid = len(report.Errors) == 0
	return report
}

// CheckOverdue reports overdue transactions of period p whose origin period cannot be
// parsed or is not earlier than p. Origins outside window are reported when window is
// non-empty.
func CheckOverdue(p model.Period, txns []model.Transaction, window []model.Period) []Warning {
	inWindow := make(map[model.Period]bool, len(window))
	for _, w := range window {
		inWindow[w] = true
	}

	var warnings []Warning
	for i := range txns {
		txn := &txns[i]
		if !txn.Overdue {
			continue
		}

		origin, err := model.ParsePeriod(txn.OriginPeriod)
		switch {
		case err != nil:
			warnings = append(warnings, Warning{
				Kind:          WarningOverdueOrigin,
				PeriodLabel:   p.String(),
				TransactionID: txn.ID,
				Message:       fmt.Sprintf("overdue transaction has no valid origin period (%q)", txn.OriginPeriod),
			})
		case !origin.Before(p):
			warnings = append(warnings, Warning{
				Kind:          WarningOverdueOrigin,
				PeriodLabel:   p.String(),
				TransactionID: txn.ID,
				Message:       fmt.Sprintf("overdue origin %s is not before %s", origin, p),
			})
		case len(window) > 0 && !inWindow[origin]:
			warnings = append(warnings, Warning{
				Kind:          WarningOverdueOrigin,
				PeriodLabel:   p.String(),
				TransactionID: txn.ID,
				Message:       fmt.Sprintf("overdue origin %s is outside the validated window", origin),
			})
		}
	}
	return warnings
}
