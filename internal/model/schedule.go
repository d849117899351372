package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Schedule is a recurring operation that produces one transaction per month.
type Schedule struct {
	StartPeriod Period
	EndPeriod   Period // zero means open ended
	ID          string
	Description string
	Category    Category
	Instrument  Instrument
	Amount      decimal.Decimal
	DayOfMonth  int // 0 means last day of the month
	Active      bool
}

// ActiveIn reports whether the schedule produces an occurrence in p.
func (s *Schedule) ActiveIn(p Period) bool {
	if !s.Active {
		return false
	}
	if !s.StartPeriod.IsZero() && p.Before(s.StartPeriod) {
		return false
	}
	if !s.EndPeriod.IsZero() && s.EndPeriod.Before(p) {
		return false
	}
	return true
}

// DueDate returns the due date in p, clamping the day to the month's length.
func (s *Schedule) DueDate(p Period) time.Time {
	last := p.Days()
	day := s.DayOfMonth
	if day <= 0 || day > last {
		day = last
	}
	return time.Date(p.Year, p.Month, day, 0, 0, 0, 0, time.UTC)
}

// OccurrenceID is the stable id of the transaction generated for p.
func (s *Schedule) OccurrenceID(p Period) string {
	return fmt.Sprintf("%s-%d-%d", s.ID, p.Year, int(p.Month))
}

// Occurrence builds the pending transaction the schedule generates for p.
func (s *Schedule) Occurrence(p Period) Transaction {
	category := s.Category
	if category == "" {
		category = CategoryExpense
	}
	instrument := s.Instrument
	if instrument == "" {
		instrument = InstrumentDebit
	}
	due := s.DueDate(p)
	return Transaction{
		ID:           s.OccurrenceID(p),
		Date:         due,
		DueDate:      due,
		Description:  s.Description,
		Amount:       s.Amount,
		Category:     category,
		UserCategory: UserCategoryRecurring,
		Instrument:   instrument,
		Settlement:   SettlementPending,
		ScheduleID:   s.ID,
	}
}
