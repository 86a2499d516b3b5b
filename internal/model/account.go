package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AccountType classifies a money account.
type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
	AccountCash       AccountType = "cash"
)

// AccountTypes lists every known account type in display order.
var AccountTypes = []AccountType{AccountChecking, AccountSavings, AccountCredit, AccountInvestment, AccountCash}

func (t AccountType) Valid() bool {
	for _, known := range AccountTypes {
		if strings.EqualFold(string(t), string(known)) {
			return true
		}
	}
	return false
}

// DefaultCurrency is used when an account arrives without a currency.
const DefaultCurrency = "USD"

// Account holds money in one currency.
//
// Balance is signed from the holder's point of view: a negative balance is
// money owed. A credit card with 1250 outstanding has Balance -1250. Every
// aggregate over balances sums them as stored.
type Account struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     AccountType     `json:"type"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency,omitempty"`
	IsActive *bool           `json:"isActive,omitempty"`
}

func (a Account) EntityID() string { return a.ID }

// Active treats a missing flag as active.
func (a Account) Active() bool {
	return a.IsActive == nil || *a.IsActive
}

// IsLiability reports whether the account currently represents debt.
func (a Account) IsLiability() bool {
	return a.Balance.IsNegative()
}

func (a Account) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(a.Name) == "" {
		errs.add("name", "is required")
	}
	if !a.Type.Valid() {
		errs.add("type", "unknown account type %q", a.Type)
	}
	if a.Currency != "" && len(a.Currency) != 3 {
		errs.add("currency", "must be a 3-letter code, got %q", a.Currency)
	}
	if !hasCents(a.Balance) {
		errs.add("balance", "%s has more than 2 decimal places", a.Balance)
	}
	return errs.err()
}
