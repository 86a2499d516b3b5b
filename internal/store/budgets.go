package store

import (
	"github.com/shopspring/decimal"

	"github.com/spendwise-dev/spendwise/internal/aggregate"
	"github.com/spendwise-dev/spendwise/internal/gateway"
	"github.com/spendwise-dev/spendwise/internal/model"
)

// TransactionSource supplies the transactions budget progress is computed
// from.
type TransactionSource interface {
	Items() []model.Transaction
}

// BudgetStore holds budgets. Progress is derived on every read from the
// current transactions and never cached.
type BudgetStore struct {
	*Collection[model.Budget]
	txs TransactionSource
}

func NewBudgetStore(res gateway.Resource[model.Budget], txs TransactionSource, opts ...Option) *BudgetStore {
	return &BudgetStore{
		Collection: NewCollection(gateway.CollectionBudgets, res, opts...),
		txs:        txs,
	}
}

func (s *BudgetStore) transactions() []model.Transaction {
	if s.txs == nil {
		return nil
	}
	return s.txs.Items()
}

// Progress computes progress for the budget with id.
func (s *BudgetStore) Progress(id string) (aggregate.Progress, bool) {
	return aggregate.ProgressByID(id, s.Items(), s.transactions())
}

// AllProgress computes progress for every budget.
func (s *BudgetStore) AllProgress() []aggregate.Progress {
	return aggregate.AllBudgetProgress(s.Items(), s.transactions())
}

// IsOverBudget reports whether the budget with id has been overspent. An
// unknown id is never over budget.
func (s *BudgetStore) IsOverBudget(id string) bool {
	p, ok := s.Progress(id)
	return ok && p.IsOverBudget
}

// Active returns budgets running on today.
func (s *BudgetStore) Active(today model.Date) []model.Budget {
	return aggregate.ActiveBudgets(s.Items(), today)
}

// TotalBudgetAmount sums the amounts of budgets running on today.
func (s *BudgetStore) TotalBudgetAmount(today model.Date) decimal.Decimal {
	return aggregate.TotalBudgetAmount(s.Items(), today)
}

// Alerts returns budgets that have reached their alert threshold.
func (s *BudgetStore) Alerts() []aggregate.Progress {
	return aggregate.Alerts(s.Items(), s.transactions())
}
