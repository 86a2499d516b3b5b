package aggregate

import (
	"github.com/shopspring/decimal"

	"github.com/spendwise-dev/spendwise/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Progress is a budget's spend over its window, derived on every read.
type Progress struct {
	Budget       model.Budget
	WindowStart  model.Date
	WindowEnd    model.Date // exclusive
	Spent        decimal.Decimal
	Remaining    decimal.Decimal
	Percent      decimal.Decimal // clamped to 100
	IsOverBudget bool
	Transactions []model.Transaction
}

// AlertTriggered reports whether spend has reached the budget's alert threshold.
func (p Progress) AlertTriggered() bool {
	return p.Percent.GreaterThanOrEqual(decimal.NewFromInt(int64(p.Budget.Threshold())))
}

// BudgetProgress sums expense transactions in the budget's category dated
// within [StartDate, StartDate+Period). A budget without a category matches
// nothing.
func BudgetProgress(b model.Budget, txs []model.Transaction) Progress {
	p := Progress{
		Budget:      b,
		WindowStart: b.StartDate,
		WindowEnd:   b.WindowEnd(),
		Spent:       decimal.Zero,
	}

	if !b.StartDate.IsZero() && b.CategoryID != "" {
		for _, tx := range txs {
			if !tx.IsExpense() || tx.ResolvedCategoryID() != b.CategoryID {
				continue
			}
			if tx.Date.Before(p.WindowStart) || !tx.Date.Before(p.WindowEnd) {
				continue
			}
			p.Transactions = append(p.Transactions, tx)
			p.Spent = p.Spent.Add(tx.Amount.Abs())
		}
	}

	p.Remaining = b.Amount.Sub(p.Spent)
	p.IsOverBudget = p.Spent.GreaterThan(b.Amount)
	p.Percent = percent(p.Spent, b.Amount)
	return p
}

// percent is spent/amount*100 clamped to [0, 100]. A non-positive amount
// reads as fully used once anything is spent.
func percent(spent, amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		if spent.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	pct := spent.Mul(hundred).Div(amount).Round(2)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// ProgressByID finds the budget with id and computes its progress. The bool
// is false when no such budget exists.
func ProgressByID(id string, budgets []model.Budget, txs []model.Transaction) (Progress, bool) {
	for _, b := range budgets {
		if b.ID == id {
			return BudgetProgress(b, txs), true
		}
	}
	return Progress{}, false
}

// AllBudgetProgress computes progress for every budget in collection order.
func AllBudgetProgress(budgets []model.Budget, txs []model.Transaction) []Progress {
	out := make([]Progress, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, BudgetProgress(b, txs))
	}
	return out
}

// Alerts returns progress for budgets that have reached their alert
// threshold, skipping inactive ones.
func Alerts(budgets []model.Budget, txs []model.Transaction) []Progress {
	var out []Progress
	for _, b := range budgets {
		if b.IsActive != nil && !*b.IsActive {
			continue
		}
		if p := BudgetProgress(b, txs); p.AlertTriggered() {
			out = append(out, p)
		}
	}
	return out
}

// IsActiveOn reports whether today falls within the budget's run. An
// explicit EndDate is inclusive; without one the first window is used.
func IsActiveOn(b model.Budget, today model.Date) bool {
	if b.IsActive != nil && !*b.IsActive {
		return false
	}
	if b.StartDate.IsZero() || today.Before(b.StartDate) {
		return false
	}
	if !b.EndDate.IsZero() {
		return !today.After(b.EndDate)
	}
	return today.Before(b.WindowEnd())
}

// ActiveBudgets filters budgets running on today.
func ActiveBudgets(budgets []model.Budget, today model.Date) []model.Budget {
	var out []model.Budget
	for _, b := range budgets {
		if IsActiveOn(b, today) {
			out = append(out, b)
		}
	}
	return out
}

// TotalBudgetAmount sums the amounts of budgets running on today.
func TotalBudgetAmount(budgets []model.Budget, today model.Date) decimal.Decimal {
	total := decimal.Zero
	for _, b := range ActiveBudgets(budgets, today) {
		total = total.Add(b.Amount)
	}
	return total
}
