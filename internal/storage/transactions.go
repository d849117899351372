package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/model"
)

const dateLayout = "2006-01-02"

const transactionColumns = `id, date, due_date, account_id, description, amount, category,
	user_category, subcategory, instrument, tier, movement_type, settlement, linked,
	schedule_id, overdue, origin_period, notes, hash, tags`

// EnsurePeriod registers p so that reads of an empty period succeed.
func (s *SQLiteStorage) EnsurePeriod(ctx context.Context, p model.Period) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePeriod(p); err != nil {
		return err
	}
	return ensurePeriod(ctx, s.db, p)
}

func ensurePeriod(ctx context.Context, q queryer, p model.Period) error {
	if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO periods (period) VALUES (?)`, p.String()); err != nil {
		return fmt.Errorf("failed to register period %s: %w", p, err)
	}
	return nil
}

func periodExists(ctx context.Context, q queryer, p model.Period) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM periods WHERE period = ?`, p.String()).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to look up period %s: %w", p, err)
	}
	return n > 0, nil
}

// ListPeriods returns every known period in chronological order.
func (s *SQLiteStorage) ListPeriods(ctx context.Context) ([]model.Period, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT period FROM periods ORDER BY period`)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var periods []model.Period
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		p, err := model.ParsePeriod(raw)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// GetTransactions returns the transactions of p ordered by effective date.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, p model.Period) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	ok, err := periodExists(ctx, s.db, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.NotFound("period", p.String())
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+transactionColumns+`
		FROM transactions WHERE period = ? ORDER BY effective_date, rowid`, p.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	txns := []model.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// GetTransaction returns the transaction with the given id.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("transaction", id)
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// PeriodOf returns the period the transaction is currently filed under.
func (s *SQLiteStorage) PeriodOf(ctx context.Context, id string) (model.Period, error) {
	if err := validateContext(ctx); err != nil {
		return model.Period{}, err
	}

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT period FROM transactions WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Period{}, common.NotFound("transaction", id)
	}
	if err != nil {
		return model.Period{}, fmt.Errorf("failed to query period of %s: %w", id, err)
	}
	return model.ParsePeriod(raw)
}

// SaveTransactions inserts txns into p, skipping ids that already exist. It returns the
// number of rows inserted.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, p model.Period, txns []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validatePeriod(p); err != nil {
		return 0, err
	}
	if err := validateTransactions(txns); err != nil {
		return 0, err
	}

	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensurePeriod(ctx, tx, p); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO transactions (
				period, effective_date, `+transactionColumns+`
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, txn := range txns {
			if txn.Hash == "" {
				txn.Hash = txn.GenerateHash()
			}
			args, err := transactionArgs(&txn)
			if err != nil {
				return err
			}
			res, err := stmt.ExecContext(ctx, append([]any{p.String(), txn.EffectiveDate().Format(dateLayout)}, args...)...)
			if err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to count inserted rows: %w", err)
			}
			if n == 0 {
				slog.Debug("Skipping existing transaction", "id", txn.ID, "period", p.String())
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ReplaceTransaction overwrites the stored record with the same id in one statement.
func (s *SQLiteStorage) ReplaceTransaction(ctx context.Context, txn model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(&txn); err != nil {
		return err
	}
	return updateTransaction(ctx, s.db, txn, sql.NullString{})
}

// CarryTransaction overwrites the stored record and files it under to, in one database
// transaction. Either both changes are visible or neither is.
func (s *SQLiteStorage) CarryTransaction(ctx context.Context, txn model.Transaction, to model.Period) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePeriod(to); err != nil {
		return err
	}
	if err := validateTransaction(&txn); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensurePeriod(ctx, tx, to); err != nil {
			return err
		}
		return updateTransaction(ctx, tx, txn, sql.NullString{String: to.String(), Valid: true})
	})
}

// updateTransaction rewrites every column of txn. A null period keeps the current one.
func updateTransaction(ctx context.Context, q queryer, txn model.Transaction, period sql.NullString) error {
	if txn.Hash == "" {
		txn.Hash = txn.GenerateHash()
	}

	args, err := transactionArgs(&txn)
	if err != nil {
		return err
	}
	// args[0] is the id; the UPDATE takes it last.
	updateArgs := append([]any{txn.EffectiveDate().Format(dateLayout)}, args[1:]...)
	updateArgs = append(updateArgs, time.Now().UTC(), period, txn.ID)

	res, err := q.ExecContext(ctx, `
		UPDATE transactions SET
			effective_date = ?, date = ?, due_date = ?, account_id = ?, description = ?,
			amount = ?, category = ?, user_category = ?, subcategory = ?, instrument = ?,
			tier = ?, movement_type = ?, settlement = ?, linked = ?, schedule_id = ?,
			overdue = ?, origin_period = ?, notes = ?, hash = ?, tags = ?, updated_at = ?,
			period = COALESCE(?, period)
		WHERE id = ?
	`, updateArgs...)
	if err != nil {
		return fmt.Errorf("failed to replace transaction %s: %w", txn.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check replaced rows: %w", err)
	}
	if n == 0 {
		return common.NotFound("transaction", txn.ID)
	}
	return nil
}

// transactionArgs returns the column values in transactionColumns order.
func transactionArgs(txn *model.Transaction) ([]any, error) {
	tags := txn.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags of %s: %w", txn.ID, err)
	}

	var due sql.NullString
	if !txn.DueDate.IsZero() {
		due = sql.NullString{String: txn.DueDate.Format(dateLayout), Valid: true}
	}

	return []any{
		txn.ID,
		txn.Date.Format(dateLayout),
		due,
		txn.AccountID,
		txn.Description,
		txn.Amount.String(),
		string(txn.Category),
		string(txn.UserCategory),
		txn.Subcategory,
		string(txn.Instrument),
		string(txn.Tier),
		string(txn.MovementType),
		string(txn.Settlement),
		txn.Linked,
		txn.ScheduleID,
		txn.Overdue,
		txn.OriginPeriod,
		txn.Notes,
		txn.Hash,
		string(tagsJSON),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn                                               model.Transaction
		date, amount, tagsJSON                            string
		category, userCategory, instrument, tier, mt, stl string
		due                                               sql.NullString
	)

	err := row.Scan(
		&txn.ID,
		&date,
		&due,
		&txn.AccountID,
		&txn.Description,
		&amount,
		&category,
		&userCategory,
		&txn.Subcategory,
		&instrument,
		&tier,
		&mt,
		&stl,
		&txn.Linked,
		&txn.ScheduleID,
		&txn.Overdue,
		&txn.OriginPeriod,
		&txn.Notes,
		&txn.Hash,
		&tagsJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if txn.Date, err = time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("transaction %s has invalid date %q: %w", txn.ID, date, err)
	}
	if due.Valid {
		if txn.DueDate, err = time.Parse(dateLayout, due.String); err != nil {
			return nil, fmt.Errorf("transaction %s has invalid due date %q: %w", txn.ID, due.String, err)
		}
	}
	if txn.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("transaction %s has invalid amount %q: %w", txn.ID, amount, err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &txn.Tags); err != nil {
		slog.Warn("Failed to unmarshal tags", "transaction_id", txn.ID, "error", err)
	}
	if len(txn.Tags) == 0 {
		txn.Tags = nil
	}

	txn.Category = model.Category(category)
	txn.UserCategory = model.UserCategory(userCategory)
	txn.Instrument = model.Instrument(instrument)
	txn.Tier = model.Tier(tier)
	txn.MovementType = model.MovementType(mt)
	txn.Settlement = model.Settlement(stl)

	return &txn, nil
}
