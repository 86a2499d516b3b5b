package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwise-dev/spendwise/internal/filter"
	"github.com/spendwise-dev/spendwise/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func newTxStore(t *testing.T, txs ...model.Transaction) *TransactionStore {
	t.Helper()
	s := NewTransactionStore(
		newFakeTransactions(txs...),
		newFakeCategories(
			model.Category{ID: "c1", Name: "Food", Type: model.TypeExpense},
			model.Category{ID: "c2", Name: "Salary", Type: model.TypeIncome},
		),
		quiet(),
	)
	ctx := context.Background()
	require.NoError(t, s.FetchAll(ctx))
	require.NoError(t, s.FetchCategories(ctx))
	return s
}

func TestTransactionStore_Aggregates(t *testing.T) {
	s := newTxStore(t,
		tx("1", "income", "1000", "2024-01-01", "c2"),
		tx("2", "expense", "250.50", "2024-01-03", "c1"),
		tx("3", "EXPENSE", "49.50", "2024-02-03", "c1"),
	)

	assert.Equal(t, "1000", s.TotalIncome().String())
	assert.Equal(t, "300", s.TotalExpenses().String())
	assert.Equal(t, "700", s.Balance().String())

	totals := s.CategoryTotals()
	assert.Equal(t, "300", totals["Food"].String())
	assert.Equal(t, "1000", totals["Salary"].String())

	recent := s.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "3", recent[0].ID)
}

func TestTransactionStore_Filters(t *testing.T) {
	s := newTxStore(t,
		tx("1", "income", "1000", "2024-01-01", "c2"),
		tx("2", "expense", "20", "2024-01-15", "c1"),
		tx("3", "expense", "30", "2024-02-03", "c1"),
	)

	assert.Len(t, s.Filtered(), 3)

	s.SetFilters(filter.Filter{Type: model.TypeExpense})
	s.SetFilters(filter.Filter{StartDate: model.MustParseDate("2024-02-01")})
	got := s.Filtered()
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)
	assert.Equal(t, model.TypeExpense, s.Filters().Type)

	sum := s.Summary()
	assert.Equal(t, 1, sum.TotalTransactions)
	assert.Equal(t, "30", sum.TotalExpenses.String())

	s.ClearFilters()
	assert.True(t, s.Filters().IsZero())
	assert.Len(t, s.Filtered(), 3)
}

func TestTransactionStore_Reset(t *testing.T) {
	s := newTxStore(t, tx("1", "income", "1", "2024-01-01", "c2"))
	s.SetFilters(filter.Filter{CategoryID: "c2"})

	s.Reset()
	assert.Empty(t, s.Items())
	assert.Empty(t, s.Categories.Items())
	assert.True(t, s.Filters().IsZero())
	assert.False(t, s.Loading())
}

func TestAccountStore(t *testing.T) {
	s := NewAccountStore(newFakeAccounts(
		model.Account{ID: "a1", Name: "Checking", Type: model.AccountChecking, Balance: dec("2500")},
		model.Account{ID: "a2", Name: "Visa", Type: model.AccountCredit, Balance: dec("-1250")},
		model.Account{ID: "a3", Name: "Old", Type: model.AccountSavings, Balance: dec("900"), IsActive: boolPtr(false)},
	), quiet())
	require.NoError(t, s.FetchAll(context.Background()))

	assert.Equal(t, "1250", s.TotalBalance().String())
	nw := s.NetWorth()
	assert.Equal(t, "2500", nw.Assets.String())
	assert.Equal(t, "1250", nw.Liabilities.String())

	assert.Len(t, s.ByType("CREDIT"), 1)
	assert.Len(t, s.Active(), 2)
}

func TestAccountStore_CreateDoesNotTouchOtherBalances(t *testing.T) {
	s := NewAccountStore(newFakeAccounts(
		model.Account{ID: "a1", Name: "Checking", Type: model.AccountChecking, Balance: dec("100")},
	), quiet())
	ctx := context.Background()
	require.NoError(t, s.FetchAll(ctx))

	_, err := s.Create(ctx, model.Account{Name: "Cash", Type: model.AccountCash, Balance: dec("40"), Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "140", s.TotalBalance().String())
	a1, _ := s.Get("a1")
	assert.Equal(t, "100", a1.Balance.String())
}

func TestBudgetStore_ProgressTracksTransactions(t *testing.T) {
	txs := newTxStore(t,
		tx("1", "expense", "40", "2024-03-05", "c1"),
		tx("2", "expense", "5", "2024-04-05", "c1"),
		tx("3", "income", "500", "2024-03-06", "c1"),
	)
	s := NewBudgetStore(newFakeBudgets(model.Budget{
		ID:         "b1",
		CategoryID: "c1",
		Amount:     dec("100"),
		Period:     model.PeriodMonthly,
		StartDate:  model.MustParseDate("2024-03-01"),
	}), txs, quiet())
	ctx := context.Background()
	require.NoError(t, s.FetchAll(ctx))

	p, ok := s.Progress("b1")
	require.True(t, ok)
	assert.Equal(t, "40", p.Spent.String())
	assert.Equal(t, "60", p.Remaining.String())
	assert.False(t, s.IsOverBudget("b1"))

	_, err := txs.Create(ctx, tx("", "expense", "70", "2024-03-20", "c1"))
	require.NoError(t, err)

	p, _ = s.Progress("b1")
	assert.Equal(t, "110", p.Spent.String())
	assert.True(t, s.IsOverBudget("b1"))
	assert.Equal(t, "100", p.Percent.String())
	require.Len(t, s.Alerts(), 1)

	_, ok = s.Progress("missing")
	assert.False(t, ok)
	assert.False(t, s.IsOverBudget("missing"))
}

func TestBudgetStore_ActiveAndTotals(t *testing.T) {
	s := NewBudgetStore(newFakeBudgets(
		model.Budget{ID: "b1", CategoryID: "c1", Amount: dec("100"), Period: model.PeriodMonthly, StartDate: model.MustParseDate("2024-03-01")},
		model.Budget{ID: "b2", CategoryID: "c1", Amount: dec("50"), Period: model.PeriodWeekly, StartDate: model.MustParseDate("2024-01-01")},
		model.Budget{ID: "b3", CategoryID: "c1", Amount: dec("70"), Period: model.PeriodYearly, StartDate: model.MustParseDate("2024-01-01"), IsActive: boolPtr(false)},
	), nil, quiet())
	require.NoError(t, s.FetchAll(context.Background()))

	today := model.MustParseDate("2024-03-15")
	active := s.Active(today)
	require.Len(t, active, 1)
	assert.Equal(t, "b1", active[0].ID)
	assert.Equal(t, "100", s.TotalBudgetAmount(today).String())
	assert.Len(t, s.AllProgress(), 3)
}
