package model

import "github.com/shopspring/decimal"

// PeriodSnapshot is the derived state of one period. It is recomputed, never persisted.
type PeriodSnapshot struct {
	Period          Period
	TransactionIDs  []string
	OverdueIDs      []string
	Opening         decimal.Decimal
	Closing         decimal.Decimal
	RecordedOpening bool // Opening was stored rather than chained from the previous closing
}

// OpeningBalance is a stored opening balance for a period.
type OpeningBalance struct {
	Period Period
	Amount decimal.Decimal
}
