// Package filter evaluates declarative predicate lists against transactions.
//
// A Spec is a list of predicates combined with logical AND. Predicates that accept several
// values (CategoryIn, UserCategoryIn) match when any of their values match. An empty Spec
// matches every transaction.
package filter

import (
	"strings"

	"github.com/Veraticus/savings-plan/internal/model"
)

// Predicate is one typed filter condition.
type Predicate interface {
	// Match reports whether the transaction satisfies the predicate.
	Match(txn *model.Transaction) bool
	// Key is a stable textual fingerprint of the predicate and its payload.
	Key() string
}

// Spec is an AND-combined list of predicates.
type Spec []Predicate

// And returns a new spec with the extra predicates appended. s is not modified.
func (s Spec) And(preds ...Predicate) Spec {
	out := make(Spec, 0, len(s)+len(preds))
	out = append(out, s...)
	return append(out, preds...)
}

// Matches reports whether txn satisfies every predicate.
func (s Spec) Matches(txn *model.Transaction) bool {
	for _, p := range s {
		if p == nil {
			continue
		}
		if !p.Match(txn) {
			return false
		}
	}
	return true
}

// Key fingerprints the spec for memoization. Equal specs produce equal keys.
func (s Spec) Key() string {
	if len(s) == 0 {
		return "*"
	}
	parts := make([]string, 0, len(s))
	for _, p := range s {
		if p == nil {
			continue
		}
		parts = append(parts, p.Key())
	}
	return strings.Join(parts, "&")
}

// Apply returns the transactions matching spec, preserving input order.
func Apply(txns []model.Transaction, spec Spec) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for i := range txns {
		if spec.Matches(&txns[i]) {
			out = append(out, txns[i])
		}
	}
	return out
}

// Exclude returns the transactions that do not match spec.
func Exclude(txns []model.Transaction, spec Spec) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for i := range txns {
		if !spec.Matches(&txns[i]) {
			out = append(out, txns[i])
		}
	}
	return out
}

// Count returns how many transactions match spec.
func Count(txns []model.Transaction, spec Spec) int {
	n := 0
	for i := range txns {
		if spec.Matches(&txns[i]) {
			n++
		}
	}
	return n
}
