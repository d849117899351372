package ledger

import "github.com/Veraticus/savings-plan/internal/model"

// OverdueCandidates returns the unpaid obligations of a period that should follow the user
// into the next one.
func OverdueCandidates(txns []model.Transaction) []model.Transaction {
	var out []model.Transaction
	for i := range txns {
		if IsPendingObligation(&txns[i]) {
			out = append(out, txns[i])
		}
	}
	return out
}

// MarkOverdue returns a copy of txn flagged as overdue from origin. A transaction that is
// already overdue keeps its first origin period.
func MarkOverdue(txn model.Transaction, origin model.Period) model.Transaction {
	out := txn.Clone()
	if !out.Overdue || out.OriginPeriod == "" {
		out.OriginPeriod = origin.String()
	}
	out.Overdue = true
	return out
}
