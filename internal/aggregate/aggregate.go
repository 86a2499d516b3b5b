// Package aggregate derives totals, category sums and budget progress from
// transaction, budget and account collections.
//
// Every function is pure and recomputes from its input on each call. None of
// them panic: malformed or partially-loaded input degrades to zero or empty
// results.
package aggregate

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendwise-dev/spendwise/internal/filter"
	"github.com/spendwise-dev/spendwise/internal/model"
)

// TotalIncome sums the amounts of income transactions.
func TotalIncome(txs []model.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.IsIncome() {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// TotalExpenses sums the absolute amounts of expense transactions.
func TotalExpenses(txs []model.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.IsExpense() {
			total = total.Add(tx.Amount.Abs())
		}
	}
	return total
}

// Balance is TotalIncome minus TotalExpenses.
func Balance(txs []model.Transaction) decimal.Decimal {
	return TotalIncome(txs).Sub(TotalExpenses(txs))
}

// CategoryTotal is the summed amount for one category.
type CategoryTotal struct {
	CategoryID string
	Name       string
	Color      string
	Icon       string
	Type       model.TransactionType
	Amount     decimal.Decimal
	Count      int
}

// resolver finds the category a transaction belongs to: an embedded
// category with a name wins, then a lookup by id in the known list.
type resolver map[string]model.Category

func newResolver(cats []model.Category) resolver {
	r := make(resolver, len(cats))
	for _, c := range cats {
		if c.ID != "" {
			r[c.ID] = c
		}
	}
	return r
}

func (r resolver) resolve(tx model.Transaction) (model.Category, bool) {
	if tx.Category != nil && strings.TrimSpace(tx.Category.Name) != "" {
		return *tx.Category, true
	}
	id := tx.ResolvedCategoryID()
	if id == "" {
		return model.Category{}, false
	}
	c, ok := r[id]
	if !ok || strings.TrimSpace(c.Name) == "" {
		return model.Category{}, false
	}
	return c, true
}

// CategoryTotals maps category display name to the summed absolute amount of
// its income and expense transactions. Transactions whose category cannot be
// resolved are skipped; category data may still be loading.
func CategoryTotals(txs []model.Transaction, cats []model.Category) map[string]decimal.Decimal {
	r := newResolver(cats)
	totals := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if !tx.Type.Valid() {
			continue
		}
		c, ok := r.resolve(tx)
		if !ok {
			continue
		}
		totals[c.Name] = totals[c.Name].Add(tx.Amount.Abs())
	}
	return totals
}

// CategoryBreakdown groups transactions of one type by category, largest
// amount first. An empty typ includes both directions.
func CategoryBreakdown(txs []model.Transaction, cats []model.Category, typ model.TransactionType) []CategoryTotal {
	r := newResolver(cats)
	byName := make(map[string]*CategoryTotal)
	var order []string
	for _, tx := range txs {
		if !tx.Type.Valid() || (typ != "" && !tx.Type.Is(typ)) {
			continue
		}
		c, ok := r.resolve(tx)
		if !ok {
			continue
		}
		ct, seen := byName[c.Name]
		if !seen {
			ct = &CategoryTotal{
				CategoryID: c.ID,
				Name:       c.Name,
				Color:      c.Color,
				Icon:       c.Icon,
				Type:       c.Type,
			}
			if ct.Type == "" {
				ct.Type = tx.Type
			}
			byName[c.Name] = ct
			order = append(order, c.Name)
		}
		ct.Amount = ct.Amount.Add(tx.Amount.Abs())
		ct.Count++
	}

	out := make([]CategoryTotal, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	slices.SortStableFunc(out, func(a, b CategoryTotal) int {
		return b.Amount.Cmp(a.Amount)
	})
	return out
}

// MonthTotal is income and expense for one calendar month.
type MonthTotal struct {
	Year     int
	Month    time.Month
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// Net is Income minus Expenses.
func (m MonthTotal) Net() decimal.Decimal {
	return m.Income.Sub(m.Expenses)
}

// Label renders the month as "2006-01".
func (m MonthTotal) Label() string {
	return model.NewDate(m.Year, m.Month, 1).Format("2006-01")
}

// MonthlyTotals buckets transactions by calendar month, oldest first.
// Transactions without a date are skipped.
func MonthlyTotals(txs []model.Transaction) []MonthTotal {
	type key struct {
		year  int
		month time.Month
	}
	buckets := make(map[key]*MonthTotal)
	for _, tx := range txs {
		if tx.Date.IsZero() || !tx.Type.Valid() {
			continue
		}
		k := key{tx.Date.Year(), tx.Date.Month()}
		m, ok := buckets[k]
		if !ok {
			m = &MonthTotal{Year: k.year, Month: k.month}
			buckets[k] = m
		}
		if tx.IsIncome() {
			m.Income = m.Income.Add(tx.Amount.Abs())
		} else {
			m.Expenses = m.Expenses.Add(tx.Amount.Abs())
		}
	}

	out := make([]MonthTotal, 0, len(buckets))
	for _, m := range buckets {
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b MonthTotal) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return cmp.Compare(a.Month, b.Month)
	})
	return out
}

// Summary is the dashboard view over a transaction collection.
type Summary struct {
	TotalIncome       decimal.Decimal
	TotalExpenses     decimal.Decimal
	NetBalance        decimal.Decimal
	TotalTransactions int
	CategorySpending  []CategoryTotal
	MonthlyData       []MonthTotal
}

// Summarize builds the dashboard summary.
func Summarize(txs []model.Transaction, cats []model.Category) Summary {
	income := TotalIncome(txs)
	expenses := TotalExpenses(txs)
	return Summary{
		TotalIncome:       income,
		TotalExpenses:     expenses,
		NetBalance:        income.Sub(expenses),
		TotalTransactions: len(txs),
		CategorySpending:  CategoryBreakdown(txs, cats, model.TypeExpense),
		MonthlyData:       MonthlyTotals(txs),
	}
}

// Recent returns the n newest transactions. The input is not modified.
func Recent(txs []model.Transaction, n int) []model.Transaction {
	if n <= 0 {
		return nil
	}
	sorted := filter.SortByDateDesc(txs)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
