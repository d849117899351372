// Package service defines the boundaries between the engine and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/model"
)

// TransactionRepository is the Transaction Store the engine reads from and writes whole
// records back to.
type TransactionRepository interface {
	// GetTransactions returns a period's transactions ordered by effective date.
	// An unknown period yields an error wrapping common.ErrNotFound; a known period
	// without transactions yields an empty slice.
	GetTransactions(ctx context.Context, period model.Period) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	// ReplaceTransaction atomically swaps the stored record with the same ID.
	ReplaceTransaction(ctx context.Context, txn model.Transaction) error
	SaveTransactions(ctx context.Context, period model.Period, txns []model.Transaction) (int, error)
	// CarryTransaction atomically swaps the stored record and files it under another period.
	CarryTransaction(ctx context.Context, txn model.Transaction, to model.Period) error
	PeriodOf(ctx context.Context, id string) (model.Period, error)
	ListPeriods(ctx context.Context) ([]model.Period, error)
}

// OpeningBalances stores the recorded opening balance of periods.
type OpeningBalances interface {
	// GetOpeningBalance returns the recorded opening balance and whether one exists.
	GetOpeningBalance(ctx context.Context, period model.Period) (decimal.Decimal, bool, error)
	SetOpeningBalance(ctx context.Context, period model.Period, amount decimal.Decimal) error
}

// ConfigProvider supplies the budget configuration in force.
type ConfigProvider interface {
	GetConfiguration(ctx context.Context) (model.Configuration, error)
	SaveConfiguration(ctx context.Context, cfg model.Configuration) error
}

// ScheduleRepository stores recurring schedules.
type ScheduleRepository interface {
	GetSchedule(ctx context.Context, id string) (*model.Schedule, error)
	ListSchedules(ctx context.Context) ([]model.Schedule, error)
	SaveSchedule(ctx context.Context, s model.Schedule) error
}

// Store is everything the engine needs from one backing store.
type Store interface {
	TransactionRepository
	OpeningBalances
	ConfigProvider
	ScheduleRepository
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
