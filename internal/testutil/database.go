// Package testutil provides test stores and transaction fixtures shared across packages.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/service"
	"github.com/Veraticus/savings-plan/internal/storage"
)

// SetupTestDB creates a migrated SQLite store in a temporary directory. The store is closed
// when the test finishes.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	testutil.Seed(t, db, testutil.August, testutil.AugustFixture())
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	// migrations run on their own connection, so the database must live in a file
	db, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "plan.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// Seed stores txns under p and fails the test on error.
func Seed(t *testing.T, store service.TransactionRepository, p model.Period, txns []model.Transaction) {
	t.Helper()

	if _, err := store.SaveTransactions(context.Background(), p, txns); err != nil {
		t.Fatalf("failed to seed %s: %v", p, err)
	}
}

// SeedOpening records an opening balance and fails the test on error.
func SeedOpening(t *testing.T, store service.OpeningBalances, p model.Period, amount string) {
	t.Helper()

	if err := store.SetOpeningBalance(context.Background(), p, decimal.RequireFromString(amount)); err != nil {
		t.Fatalf("failed to seed opening balance of %s: %v", p, err)
	}
}
