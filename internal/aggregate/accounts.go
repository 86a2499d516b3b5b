package aggregate

import (
	"github.com/shopspring/decimal"

	"github.com/spendwise-dev/spendwise/internal/model"
)

// TotalBalance sums the signed balances of active accounts. A credit card
// carrying debt has a negative balance and so reduces the total.
func TotalBalance(accounts []model.Account) decimal.Decimal {
	total := decimal.Zero
	for _, a := range accounts {
		if a.Active() {
			total = total.Add(a.Balance)
		}
	}
	return total
}

// NetWorth splits active balances into what is held and what is owed.
// Liabilities is a magnitude; Net equals TotalBalance.
type NetWorth struct {
	Assets      decimal.Decimal
	Liabilities decimal.Decimal
	Net         decimal.Decimal
}

// NetWorthOf classifies each active account by the sign of its balance.
func NetWorthOf(accounts []model.Account) NetWorth {
	nw := NetWorth{Assets: decimal.Zero, Liabilities: decimal.Zero}
	for _, a := range accounts {
		if !a.Active() {
			continue
		}
		if a.IsLiability() {
			nw.Liabilities = nw.Liabilities.Add(a.Balance.Abs())
		} else {
			nw.Assets = nw.Assets.Add(a.Balance)
		}
	}
	nw.Net = nw.Assets.Sub(nw.Liabilities)
	return nw
}

// BalancesByType sums active balances per account type.
func BalancesByType(accounts []model.Account) map[model.AccountType]decimal.Decimal {
	out := make(map[model.AccountType]decimal.Decimal)
	for _, a := range accounts {
		if a.Active() {
			out[a.Type] = out[a.Type].Add(a.Balance)
		}
	}
	return out
}
