// Package storage persists periods, transactions, opening balances, the budget
// configuration and recurring schedules.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrZeroPeriod   = errors.New("period cannot be zero")
	ErrInvalidSched = errors.New("invalid schedule")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validatePeriod(p model.Period) error {
	if p.IsZero() {
		return ErrZeroPeriod
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", common.ErrInvalidTransaction)
	}
	if err := txn.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidTransaction, err)
	}
	return nil
}

func validateSchedule(s *model.Schedule) error {
	if s == nil {
		return fmt.Errorf("%w: schedule", ErrNilParameter)
	}
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSched)
	}
	if s.Category != "" && !s.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidSched, s.Category)
	}
	if s.DayOfMonth < 0 || s.DayOfMonth > 31 {
		return fmt.Errorf("%w: day of month %d", ErrInvalidSched, s.DayOfMonth)
	}
	if !s.StartPeriod.IsZero() && !s.EndPeriod.IsZero() && s.EndPeriod.Before(s.StartPeriod) {
		return fmt.Errorf("%w: ends before it starts", ErrInvalidSched)
	}
	return nil
}
