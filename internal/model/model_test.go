package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-02-10", "2024-02-10"},
		{"2024-02-10T15:04:05Z", "2024-02-10"},
		{"2024-02-10T23:59:59", "2024-02-10"},
		{"2024-02-10T08:00:00.123", "2024-02-10"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.String(), "ParseDate(%q)", tt.in)
	}

	_, err := ParseDate("10/02/2024")
	assert.Error(t, err)
}

func TestDateJSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2025-01-15"`), &d))
	assert.Equal(t, NewDate(2025, time.January, 15), d)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2025-01-15"`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())
}

func TestAddMonthsClampsDay(t *testing.T) {
	assert.Equal(t, "2024-02-29", MustParseDate("2024-01-31").AddMonths(1).String())
	assert.Equal(t, "2025-02-28", MustParseDate("2025-01-31").AddMonths(1).String())
	assert.Equal(t, "2025-04-15", MustParseDate("2025-01-15").AddMonths(3).String())
	assert.Equal(t, "2026-01-15", MustParseDate("2025-01-15").AddMonths(12).String())
	assert.Equal(t, "2025-02-28", MustParseDate("2025-02-10").EndOfMonth().String())
}

func TestPeriodEnd(t *testing.T) {
	start := MustParseDate("2025-01-01")
	tests := []struct {
		period Period
		want   string
	}{
		{PeriodWeekly, "2025-01-08"},
		{PeriodMonthly, "2025-02-01"},
		{PeriodQuarterly, "2025-04-01"},
		{PeriodYearly, "2026-01-01"},
		{"Monthly", "2025-02-01"},
		{"fortnightly", "2025-01-01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.period.End(start).String(), "period %q", tt.period)
	}
}

func TestTransactionTypeCaseInsensitive(t *testing.T) {
	tx := Transaction{Type: "INCOME"}
	assert.True(t, tx.IsIncome())
	assert.False(t, tx.IsExpense())

	typ, ok := ParseTransactionType(" Expense ")
	assert.True(t, ok)
	assert.Equal(t, TypeExpense, typ)

	_, ok = ParseTransactionType("transfer")
	assert.False(t, ok)
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		Type:        TypeExpense,
		Amount:      decimal.RequireFromString("12.50"),
		Description: "Lunch",
		Date:        MustParseDate("2025-01-15"),
	}
	require.NoError(t, valid.Validate())

	bad := Transaction{Type: "transfer", Amount: decimal.RequireFromString("1.005")}
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Field("type"), "income or expense")
	assert.Contains(t, verrs.Field("amount"), "more than 2 decimal places")
	assert.Equal(t, "is required", verrs.Field("description"))
	assert.Equal(t, "is required", verrs.Field("date"))

	zero := valid
	zero.Amount = decimal.Zero
	verrs = nil
	require.ErrorAs(t, zero.Validate(), &verrs)
	assert.Equal(t, "must be greater than zero", verrs.Field("amount"))
}

func TestResolvedCategoryID(t *testing.T) {
	tx := Transaction{CategoryID: "1"}
	assert.Equal(t, "1", tx.ResolvedCategoryID())

	tx.Category = &Category{ID: "7", Name: "Food"}
	assert.Equal(t, "7", tx.ResolvedCategoryID())
}

func TestBankTransactionDraft(t *testing.T) {
	b := BankTransaction{
		Date:        time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
		Description: "GITHUB",
		Amount:      decimal.RequireFromString("-4.00"),
		Reference:   "chase_20250103_GITHUB",
	}
	d := b.Draft()
	assert.Equal(t, TypeExpense, d.Type)
	assert.Equal(t, "4", d.Amount.String())
	assert.Equal(t, "2025-01-03", d.Date.String())

	b.Amount = decimal.RequireFromString("3500")
	assert.Equal(t, TypeIncome, b.Draft().Type)
}

func TestCategoryValidate(t *testing.T) {
	assert.NoError(t, Category{Name: "Food", Type: TypeExpense}.Validate())

	var verrs ValidationErrors
	require.ErrorAs(t, Category{Type: "other"}.Validate(), &verrs)
	assert.Len(t, verrs, 2)

	for _, c := range DefaultCategories() {
		assert.NoError(t, c.Validate(), c.Name)
	}
}

func TestAccount(t *testing.T) {
	card := Account{Name: "Visa", Type: AccountCredit, Balance: decimal.NewFromInt(-1250)}
	require.NoError(t, card.Validate())
	assert.True(t, card.Active())
	assert.True(t, card.IsLiability())

	inactive := false
	card.IsActive = &inactive
	assert.False(t, card.Active())

	var verrs ValidationErrors
	require.ErrorAs(t, Account{Name: "x", Type: "crypto", Currency: "DOLLARS"}.Validate(), &verrs)
	assert.NotEmpty(t, verrs.Field("type"))
	assert.NotEmpty(t, verrs.Field("currency"))
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{
		CategoryID: "1",
		Amount:     decimal.NewFromInt(1000),
		Period:     PeriodMonthly,
		StartDate:  MustParseDate("2025-01-01"),
	}
	require.NoError(t, b.Validate())
	assert.Equal(t, DefaultAlertThreshold, b.Threshold())
	assert.Equal(t, "2025-02-01", b.WindowEnd().String())

	b.AlertThreshold = 101
	b.EndDate = MustParseDate("2024-12-01")
	var verrs ValidationErrors
	require.ErrorAs(t, b.Validate(), &verrs)
	assert.NotEmpty(t, verrs.Field("alertThreshold"))
	assert.NotEmpty(t, verrs.Field("endDate"))
}
