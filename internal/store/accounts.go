package store

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spendwise-dev/spendwise/internal/aggregate"
	"github.com/spendwise-dev/spendwise/internal/gateway"
	"github.com/spendwise-dev/spendwise/internal/model"
)

// AccountStore holds the user's money accounts. Balances are whatever the
// backend reports; transaction writes never touch them locally.
type AccountStore struct {
	*Collection[model.Account]
}

func NewAccountStore(res gateway.Resource[model.Account], opts ...Option) *AccountStore {
	return &AccountStore{Collection: NewCollection(gateway.CollectionAccounts, res, opts...)}
}

// TotalBalance sums signed balances of active accounts.
func (s *AccountStore) TotalBalance() decimal.Decimal {
	return aggregate.TotalBalance(s.Items())
}

// NetWorth splits active balances into assets and liabilities.
func (s *AccountStore) NetWorth() aggregate.NetWorth {
	return aggregate.NetWorthOf(s.Items())
}

// ByType returns the accounts of type t, compared case-insensitively.
func (s *AccountStore) ByType(t model.AccountType) []model.Account {
	var out []model.Account
	for _, a := range s.Items() {
		if strings.EqualFold(string(a.Type), string(t)) {
			out = append(out, a)
		}
	}
	return out
}

// Active returns accounts that are not switched off.
func (s *AccountStore) Active() []model.Account {
	var out []model.Account
	for _, a := range s.Items() {
		if a.Active() {
			out = append(out, a)
		}
	}
	return out
}
