// Package filter selects transactions matching a set of predicates.
package filter

import (
	"slices"

	"github.com/spendwise-dev/spendwise/internal/model"
)

// Filter is an AND of optional predicates; a zero field imposes no
// constraint. Date bounds are inclusive.
type Filter struct {
	StartDate  model.Date
	EndDate    model.Date
	CategoryID string
	Type       model.TransactionType
	AccountID  string
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Merge overlays the set fields of other onto f.
func (f Filter) Merge(other Filter) Filter {
	if !other.StartDate.IsZero() {
		f.StartDate = other.StartDate
	}
	if !other.EndDate.IsZero() {
		f.EndDate = other.EndDate
	}
	if other.CategoryID != "" {
		f.CategoryID = other.CategoryID
	}
	if other.Type != "" {
		f.Type = other.Type
	}
	if other.AccountID != "" {
		f.AccountID = other.AccountID
	}
	return f
}

// Match reports whether tx satisfies every set predicate.
func (f Filter) Match(tx model.Transaction) bool {
	if !f.StartDate.IsZero() && tx.Date.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && tx.Date.After(f.EndDate) {
		return false
	}
	if f.CategoryID != "" && tx.ResolvedCategoryID() != f.CategoryID {
		return false
	}
	if f.Type != "" && !tx.Type.Is(f.Type) {
		return false
	}
	if f.AccountID != "" && tx.AccountID != f.AccountID {
		return false
	}
	return true
}

// Apply returns the transactions matching f, preserving input order.
func Apply(txs []model.Transaction, f Filter) []model.Transaction {
	out := make([]model.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// SortByDateDesc returns a copy of txs ordered newest first. Ties keep their
// input order.
func SortByDateDesc(txs []model.Transaction) []model.Transaction {
	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, func(a, b model.Transaction) int {
		return b.Date.Compare(a.Date)
	})
	return sorted
}
