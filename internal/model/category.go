package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category groups transactions of one direction.
type Category struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Type          TransactionType  `json:"type"`
	Color         string           `json:"color,omitempty"`
	Icon          string           `json:"icon,omitempty"`
	MonthlyBudget *decimal.Decimal `json:"monthlyBudget,omitempty"`
}

func (c Category) EntityID() string { return c.ID }

func (c Category) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(c.Name) == "" {
		errs.add("name", "is required")
	}
	if !c.Type.Valid() {
		errs.add("type", "must be income or expense, got %q", c.Type)
	}
	if c.MonthlyBudget != nil && c.MonthlyBudget.IsNegative() {
		errs.add("monthlyBudget", "must not be negative")
	}
	return errs.err()
}

// DefaultCategories returns the starter category set offered to a new user.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Food & Dining", Type: TypeExpense, Color: "#ef4444", Icon: "🍽️"},
		{Name: "Transportation", Type: TypeExpense, Color: "#f97316", Icon: "🚗"},
		{Name: "Shopping", Type: TypeExpense, Color: "#eab308", Icon: "🛍️"},
		{Name: "Entertainment", Type: TypeExpense, Color: "#a855f7", Icon: "🎬"},
		{Name: "Bills & Utilities", Type: TypeExpense, Color: "#3b82f6", Icon: "💡"},
		{Name: "Healthcare", Type: TypeExpense, Color: "#ec4899", Icon: "🏥"},
		{Name: "Education", Type: TypeExpense, Color: "#14b8a6", Icon: "📚"},
		{Name: "Salary", Type: TypeIncome, Color: "#22c55e", Icon: "💼"},
		{Name: "Freelance", Type: TypeIncome, Color: "#10b981", Icon: "💻"},
		{Name: "Investments", Type: TypeIncome, Color: "#06b6d4", Icon: "📈"},
	}
}
