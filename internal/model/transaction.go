package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction. Comparisons are
// case-insensitive since backends send both "income" and "INCOME".
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// ParseTransactionType normalizes s to a known type.
func ParseTransactionType(s string) (TransactionType, bool) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Is reports whether t equals other ignoring case.
func (t TransactionType) Is(other TransactionType) bool {
	return strings.EqualFold(string(t), string(other))
}

func (t TransactionType) Valid() bool {
	return t.Is(TypeIncome) || t.Is(TypeExpense)
}

// Transaction is one income or expense record. Amount is always a
// non-negative magnitude; the direction lives in Type.
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CategoryID  string          `json:"categoryId,omitempty"`
	AccountID   string          `json:"accountId,omitempty"`
	Date        Date            `json:"date"`
	Notes       string          `json:"notes,omitempty"`
	Category    *Category       `json:"category,omitempty"`
}

func (t Transaction) EntityID() string { return t.ID }

// IsIncome and IsExpense compare Type case-insensitively.
func (t Transaction) IsIncome() bool { return t.Type.Is(TypeIncome) }
func (t Transaction) IsExpense() bool { return t.Type.Is(TypeExpense) }

// ResolvedCategoryID prefers the embedded category's id over CategoryID.
func (t Transaction) ResolvedCategoryID() string {
	if t.Category != nil && t.Category.ID != "" {
		return t.Category.ID
	}
	return t.CategoryID
}

// Validate checks a draft before it is sent anywhere.
func (t Transaction) Validate() error {
	var errs ValidationErrors
	if !t.Type.Valid() {
		errs.add("type", "must be income or expense, got %q", t.Type)
	}
	switch {
	case !t.Amount.IsPositive():
		errs.add("amount", "must be greater than zero")
	case !hasCents(t.Amount):
		errs.add("amount", "%s has more than 2 decimal places", t.Amount)
	}
	if strings.TrimSpace(t.Description) == "" {
		errs.add("description", "is required")
	}
	if t.Date.IsZero() {
		errs.add("date", "is required")
	}
	return errs.err()
}

// BankTransaction represents a parsed bank CSV row.
type BankTransaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal // negative = expense, positive = income
	Reference   string
	Type        string // bank transaction type (ACH_DEBIT, etc.)
}

// Draft turns a signed bank row into a transaction draft, folding the sign
// into Type.
func (b BankTransaction) Draft() Transaction {
	typ := TypeIncome
	if b.Amount.IsNegative() {
		typ = TypeExpense
	}
	return Transaction{
		Type:        typ,
		Amount:      b.Amount.Abs(),
		Description: b.Description,
		Date:        DateOf(b.Date),
		Notes:       b.Reference,
	}
}
