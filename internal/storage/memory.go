package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/service"
)

var _ service.Store = (*MemoryStore)(nil)

// MemoryStore is an in-process service.Store. Records are copied in and out, so callers
// never share memory with the store.
type MemoryStore struct {
	periods   map[model.Period][]string
	txns      map[string]model.Transaction
	openings  map[model.Period]decimal.Decimal
	schedules map[string]model.Schedule
	config    *model.Configuration
	mu        sync.RWMutex
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		periods:   make(map[model.Period][]string),
		txns:      make(map[string]model.Transaction),
		openings:  make(map[model.Period]decimal.Decimal),
		schedules: make(map[string]model.Schedule),
	}
}

// EnsurePeriod registers p so that reads of an empty period succeed.
func (m *MemoryStore) EnsurePeriod(_ context.Context, p model.Period) error {
	if err := validatePeriod(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(p)
	return nil
}

func (m *MemoryStore) ensure(p model.Period) {
	if _, ok := m.periods[p]; !ok {
		m.periods[p] = []string{}
	}
}

// ListPeriods returns every known period in chronological order.
func (m *MemoryStore) ListPeriods(_ context.Context) ([]model.Period, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	periods := make([]model.Period, 0, len(m.periods))
	for p := range m.periods {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	return periods, nil
}

// GetTransactions returns the transactions of p ordered by effective date, ties kept in
// insertion order.
func (m *MemoryStore) GetTransactions(_ context.Context, p model.Period) ([]model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids, ok := m.periods[p]
	if !ok {
		return nil, common.NotFound("period", p.String())
	}

	txns := make([]model.Transaction, 0, len(ids))
	for _, id := range ids {
		txns = append(txns, m.txns[id].Clone())
	}
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].EffectiveDate().Before(txns[j].EffectiveDate())
	})
	return txns, nil
}

// GetTransaction returns a copy of the transaction with the given id.
func (m *MemoryStore) GetTransaction(_ context.Context, id string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txn, ok := m.txns[id]
	if !ok {
		return nil, common.NotFound("transaction", id)
	}
	clone := txn.Clone()
	return &clone, nil
}

// PeriodOf returns the period the transaction is filed under.
func (m *MemoryStore) PeriodOf(_ context.Context, id string) (model.Period, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.locate(id)
	if !ok {
		return model.Period{}, common.NotFound("transaction", id)
	}
	return p, nil
}

func (m *MemoryStore) locate(id string) (model.Period, bool) {
	for p, ids := range m.periods {
		for _, candidate := range ids {
			if candidate == id {
				return p, true
			}
		}
	}
	return model.Period{}, false
}

// SaveTransactions inserts txns into p, skipping ids that already exist.
func (m *MemoryStore) SaveTransactions(_ context.Context, p model.Period, txns []model.Transaction) (int, error) {
	if err := validatePeriod(p); err != nil {
		return 0, err
	}
	if err := validateTransactions(txns); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensure(p)
	inserted := 0
	for _, txn := range txns {
		if _, exists := m.txns[txn.ID]; exists {
			continue
		}
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}
		m.txns[txn.ID] = txn.Clone()
		m.periods[p] = append(m.periods[p], txn.ID)
		inserted++
	}
	return inserted, nil
}

// ReplaceTransaction swaps the stored record with the same id.
func (m *MemoryStore) ReplaceTransaction(_ context.Context, txn model.Transaction) error {
	if err := validateTransaction(&txn); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.txns[txn.ID]; !ok {
		return common.NotFound("transaction", txn.ID)
	}
	if txn.Hash == "" {
		txn.Hash = txn.GenerateHash()
	}
	m.txns[txn.ID] = txn.Clone()
	return nil
}

// CarryTransaction swaps the stored record and files it under to, appending it there.
// Both changes happen under one lock.
func (m *MemoryStore) CarryTransaction(_ context.Context, txn model.Transaction, to model.Period) error {
	if err := validatePeriod(to); err != nil {
		return err
	}
	if err := validateTransaction(&txn); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	from, ok := m.locate(txn.ID)
	if !ok {
		return common.NotFound("transaction", txn.ID)
	}
	if txn.Hash == "" {
		txn.Hash = txn.GenerateHash()
	}
	m.txns[txn.ID] = txn.Clone()
	if from == to {
		return nil
	}

	ids := m.periods[from]
	kept := make([]string, 0, len(ids))
	for _, candidate := range ids {
		if candidate != txn.ID {
			kept = append(kept, candidate)
		}
	}
	m.periods[from] = kept
	m.ensure(to)
	m.periods[to] = append(m.periods[to], txn.ID)
	return nil
}

// GetOpeningBalance returns the recorded opening balance of p and whether one exists.
func (m *MemoryStore) GetOpeningBalance(_ context.Context, p model.Period) (decimal.Decimal, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	amount, ok := m.openings[p]
	return amount, ok, nil
}

// SetOpeningBalance records the opening balance of p, registering the period.
func (m *MemoryStore) SetOpeningBalance(_ context.Context, p model.Period, amount decimal.Decimal) error {
	if err := validatePeriod(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(p)
	m.openings[p] = amount
	return nil
}

// GetConfiguration returns the stored configuration.
func (m *MemoryStore) GetConfiguration(_ context.Context) (model.Configuration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return model.Configuration{}, common.ErrMissingConfig
	}
	return m.config.Clone(), nil
}

// SaveConfiguration replaces the stored configuration.
func (m *MemoryStore) SaveConfiguration(_ context.Context, cfg model.Configuration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := cfg.Clone()
	m.config = &clone
	return nil
}

// GetSchedule returns the schedule with the given id.
func (m *MemoryStore) GetSchedule(_ context.Context, id string) (*model.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sched, ok := m.schedules[id]
	if !ok {
		return nil, common.NotFound("schedule", id)
	}
	return &sched, nil
}

// ListSchedules returns every schedule ordered by id.
func (m *MemoryStore) ListSchedules(_ context.Context) ([]model.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	schedules := make([]model.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		schedules = append(schedules, s)
	}
	sort.Slice(schedules, func(i, j int) bool { return schedules[i].ID < schedules[j].ID })
	return schedules, nil
}

// SaveSchedule inserts or replaces a schedule.
func (m *MemoryStore) SaveSchedule(_ context.Context, sched model.Schedule) error {
	if err := validateSchedule(&sched); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[sched.ID] = sched
	return nil
}
