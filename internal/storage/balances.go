package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/model"
)

// GetOpeningBalance returns the recorded opening balance of p and whether one exists.
func (s *SQLiteStorage) GetOpeningBalance(ctx context.Context, p model.Period) (decimal.Decimal, bool, error) {
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, false, err
	}

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT amount FROM opening_balances WHERE period = ?`, p.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to query opening balance of %s: %w", p, err)
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("opening balance of %s is invalid %q: %w", p, raw, err)
	}
	return amount, true, nil
}

// SetOpeningBalance records the opening balance of p, registering the period.
func (s *SQLiteStorage) SetOpeningBalance(ctx context.Context, p model.Period, amount decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePeriod(p); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensurePeriod(ctx, tx, p); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO opening_balances (period, amount, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(period) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at
		`, p.String(), amount.String(), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to save opening balance of %s: %w", p, err)
		}
		return nil
	})
}

// GetConfiguration returns the stored configuration, or common.ErrMissingConfig when none
// has been saved yet.
func (s *SQLiteStorage) GetConfiguration(ctx context.Context) (model.Configuration, error) {
	if err := validateContext(ctx); err != nil {
		return model.Configuration{}, err
	}

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM configuration WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Configuration{}, common.ErrMissingConfig
	}
	if err != nil {
		return model.Configuration{}, fmt.Errorf("failed to query configuration: %w", err)
	}

	var cfg model.Configuration
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return model.Configuration{}, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	if cfg.Caps == nil {
		cfg.Caps = map[model.Section]model.Cap{}
	}
	return cfg, nil
}

// SaveConfiguration replaces the stored configuration.
func (s *SQLiteStorage) SaveConfiguration(ctx context.Context, cfg model.Configuration) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO configuration (id, data, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// GetSchedule returns the schedule with the given id.
func (s *SQLiteStorage) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, description, category, instrument, amount, day_of_month, start_period, end_period, active
		FROM schedules WHERE id = ?`, id)
	sched, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("schedule", id)
	}
	return sched, err
}

// ListSchedules returns every schedule ordered by id.
func (s *SQLiteStorage) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, category, instrument, amount, day_of_month, start_period, end_period, active
		FROM schedules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var schedules []model.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *sched)
	}
	return schedules, rows.Err()
}

// SaveSchedule inserts or replaces a schedule.
func (s *SQLiteStorage) SaveSchedule(ctx context.Context, sched model.Schedule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSchedule(&sched); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (id, description, category, instrument, amount, day_of_month, start_period, end_period, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			category = excluded.category,
			instrument = excluded.instrument,
			amount = excluded.amount,
			day_of_month = excluded.day_of_month,
			start_period = excluded.start_period,
			end_period = excluded.end_period,
			active = excluded.active
	`,
		sched.ID,
		sched.Description,
		string(sched.Category),
		string(sched.Instrument),
		sched.Amount.String(),
		sched.DayOfMonth,
		periodString(sched.StartPeriod),
		periodString(sched.EndPeriod),
		sched.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to save schedule %s: %w", sched.ID, err)
	}
	return nil
}

func scanSchedule(row rowScanner) (*model.Schedule, error) {
	var (
		sched                        model.Schedule
		category, instrument, amount string
		start, end                   string
	)
	err := row.Scan(&sched.ID, &sched.Description, &category, &instrument, &amount,
		&sched.DayOfMonth, &start, &end, &sched.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}

	if sched.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("schedule %s has invalid amount %q: %w", sched.ID, amount, err)
	}
	if sched.StartPeriod, err = parseOptionalPeriod(start); err != nil {
		return nil, err
	}
	if sched.EndPeriod, err = parseOptionalPeriod(end); err != nil {
		return nil, err
	}
	sched.Category = model.Category(category)
	sched.Instrument = model.Instrument(instrument)
	return &sched, nil
}

func periodString(p model.Period) string {
	if p.IsZero() {
		return ""
	}
	return p.String()
}

func parseOptionalPeriod(s string) (model.Period, error) {
	if s == "" {
		return model.Period{}, nil
	}
	return model.ParsePeriod(s)
}
