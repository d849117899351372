package ofx

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/service"
)

// ImportResult summarizes one import batch.
type ImportResult struct {
	BatchID    string
	Periods    []model.Period
	Parsed     int
	Created    int
	Duplicates int
}

// Importer stores parsed statement transactions under the period of their posting date.
type Importer struct {
	repo service.TransactionRepository
}

// NewImporter creates an importer writing to repo.
func NewImporter(repo service.TransactionRepository) *Importer {
	return &Importer{repo: repo}
}

// Import saves txns, skipping any whose hash is already stored in its period or appeared
// earlier in the batch. Transactions without an id get a generated one.
func (i *Importer) Import(ctx context.Context, txns []model.Transaction) (ImportResult, error) {
	result := ImportResult{BatchID: uuid.NewString(), Parsed: len(txns)}

	byPeriod := make(map[model.Period][]model.Transaction)
	for _, txn := range txns {
		p := model.PeriodOf(txn.Date)
		byPeriod[p] = append(byPeriod[p], txn)
	}
	for p := range byPeriod {
		result.Periods = append(result.Periods, p)
	}
	sort.Slice(result.Periods, func(a, b int) bool {
		return result.Periods[a].Before(result.Periods[b])
	})

	for _, p := range result.Periods {
		seen, err := i.storedHashes(ctx, p)
		if err != nil {
			return result, err
		}

		var batch []model.Transaction
		for _, txn := range byPeriod[p] {
			if txn.Hash == "" {
				txn.Hash = txn.GenerateHash()
			}
			if seen[txn.Hash] {
				result.Duplicates++
				continue
			}
			seen[txn.Hash] = true
			if txn.ID == "" {
				txn.ID = uuid.NewString()
			}
			batch = append(batch, txn)
		}

		created, err := i.repo.SaveTransactions(ctx, p, batch)
		if err != nil {
			return result, fmt.Errorf("failed to save %s: %w", p, err)
		}
		result.Created += created
		// ids already stored were ignored by the store
		result.Duplicates += len(batch) - created
	}

	slog.InfoContext(ctx, "Imported transactions",
		"batch_id", result.BatchID,
		"parsed", result.Parsed,
		"created", result.Created,
		"duplicates", result.Duplicates,
		"periods", len(result.Periods))

	return result, nil
}

func (i *Importer) storedHashes(ctx context.Context, p model.Period) (map[string]bool, error) {
	existing, err := i.repo.GetTransactions(ctx, p)
	if common.IsNotFound(err) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", p, err)
	}

	seen := make(map[string]bool, len(existing))
	for idx := range existing {
		if existing[idx].Hash != "" {
			seen[existing[idx].Hash] = true
		}
	}
	return seen, nil
}
