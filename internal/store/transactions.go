package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/spendwise-dev/spendwise/internal/aggregate"
	"github.com/spendwise-dev/spendwise/internal/filter"
	"github.com/spendwise-dev/spendwise/internal/gateway"
	"github.com/spendwise-dev/spendwise/internal/model"
)

// TransactionStore holds transactions, their categories and the active
// filter.
type TransactionStore struct {
	*Collection[model.Transaction]
	Categories *Collection[model.Category]

	fmu     sync.RWMutex
	filters filter.Filter
}

// NewTransactionStore wires the transactions and categories collections.
func NewTransactionStore(txs gateway.Resource[model.Transaction], cats gateway.Resource[model.Category], opts ...Option) *TransactionStore {
	return &TransactionStore{
		Collection: NewCollection(gateway.CollectionTransactions, txs, opts...),
		Categories: NewCollection(gateway.CollectionCategories, cats, opts...),
	}
}

// FetchCategories refreshes the categories collection.
func (s *TransactionStore) FetchCategories(ctx context.Context) error {
	return s.Categories.FetchAll(ctx)
}

// Loading reports whether either collection has a call in flight.
func (s *TransactionStore) Loading() bool {
	return s.Collection.Loading() || s.Categories.Loading()
}

// Reset clears both collections and the filter.
func (s *TransactionStore) Reset() {
	s.Collection.Reset()
	s.Categories.Reset()
	s.ClearFilters()
}

// Filters returns the active filter.
func (s *TransactionStore) Filters() filter.Filter {
	s.fmu.RLock()
	defer s.fmu.RUnlock()
	return s.filters
}

// SetFilters merges f into the active filter.
func (s *TransactionStore) SetFilters(f filter.Filter) {
	s.fmu.Lock()
	s.filters = s.filters.Merge(f)
	s.fmu.Unlock()
}

// ClearFilters removes every predicate.
func (s *TransactionStore) ClearFilters() {
	s.fmu.Lock()
	s.filters = filter.Filter{}
	s.fmu.Unlock()
}

// Filtered returns the transactions matching the active filter.
func (s *TransactionStore) Filtered() []model.Transaction {
	return filter.Apply(s.Items(), s.Filters())
}

func (s *TransactionStore) TotalIncome() decimal.Decimal {
	return aggregate.TotalIncome(s.Items())
}

func (s *TransactionStore) TotalExpenses() decimal.Decimal {
	return aggregate.TotalExpenses(s.Items())
}

func (s *TransactionStore) Balance() decimal.Decimal {
	return aggregate.Balance(s.Items())
}

// CategoryTotals sums amounts by category name.
func (s *TransactionStore) CategoryTotals() map[string]decimal.Decimal {
	return aggregate.CategoryTotals(s.Items(), s.Categories.Items())
}

// Summary aggregates the filtered transactions.
func (s *TransactionStore) Summary() aggregate.Summary {
	return aggregate.Summarize(s.Filtered(), s.Categories.Items())
}

// Recent returns the n newest transactions.
func (s *TransactionStore) Recent(n int) []model.Transaction {
	return aggregate.Recent(s.Items(), n)
}
