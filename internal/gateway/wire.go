package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spendwise-dev/spendwise/internal/id"
	"github.com/spendwise-dev/spendwise/internal/model"
)

// listKeys are the envelope keys a list payload may hide under, checked in
// order: {data:[...]}, {data:{content:[...]}}, {accounts:[...]}.
var listKeys = []string{"data", "content", "items", "results"}

// unwrapList accepts a bare array or any known envelope around one. more is
// true when a paged envelope reports further pages.
func unwrapList(raw []byte, collection string) (items []json.RawMessage, more bool, err error) {
	return unwrapListDepth(bytes.TrimSpace(raw), collection, 0)
}

func unwrapListDepth(raw []byte, collection string, depth int) ([]json.RawMessage, bool, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false, nil
	}
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, false, fmt.Errorf("decoding list: %w", err)
		}
		return items, false, nil
	case '{':
	default:
		return nil, false, fmt.Errorf("unexpected list payload starting with %q", raw[0])
	}
	if depth > 2 {
		return nil, false, fmt.Errorf("list envelope nested too deeply")
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, fmt.Errorf("decoding list envelope: %w", err)
	}
	keys := append([]string{collection}, listKeys...)
	for _, k := range keys {
		inner, ok := env[k]
		if !ok {
			continue
		}
		items, more, err := unwrapListDepth(bytes.TrimSpace(inner), collection, depth+1)
		if err != nil {
			return nil, false, err
		}
		if !more {
			more = hasMorePages(env)
		}
		return items, more, nil
	}
	return nil, false, fmt.Errorf("list envelope has none of %v", keys)
}

// hasMorePages reads Spring-style paging metadata: {"last": false}.
func hasMorePages(env map[string]json.RawMessage) bool {
	raw, ok := env["last"]
	if !ok {
		return false
	}
	var last bool
	if err := json.Unmarshal(raw, &last); err != nil {
		return false
	}
	return !last
}

// unwrapOne strips a {data:{...}} envelope from a single-record payload.
func unwrapOne(raw []byte) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return raw
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return raw
	}
	if inner, ok := env["data"]; ok && len(env) <= 3 {
		inner = bytes.TrimSpace(inner)
		if len(inner) > 0 && inner[0] == '{' {
			return inner
		}
	}
	return raw
}

type wireRef struct {
	ID id.Flex `json:"id"`
}

// wireTags accepts notes sent as a string or as a list of tags.
type wireTags string

func (t *wireTags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("decoding tags: %w", err)
		}
		*t = wireTags(strings.Join(list, ", "))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding tags: %w", err)
	}
	*t = wireTags(s)
	return nil
}

type wireTransaction struct {
	ID              id.Flex         `json:"id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	CategoryID      id.Flex         `json:"categoryId"`
	AccountID       id.Flex         `json:"accountId"`
	Date            string          `json:"date"`
	TransactionDate string          `json:"transactionDate"`
	Notes           wireTags        `json:"notes"`
	Tags            wireTags        `json:"tags"`
	Category        *wireCategory   `json:"category"`
	Account         *wireRef        `json:"account"`
}

// decodeTransaction maps every known transaction shape onto model.Transaction.
// A negative amount without a recognizable type is read as an expense.
func decodeTransaction(raw json.RawMessage) (model.Transaction, error) {
	var w wireTransaction
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Transaction{}, fmt.Errorf("decoding transaction: %w", err)
	}

	dateStr := w.TransactionDate
	if dateStr == "" {
		dateStr = w.Date
	}
	date, err := model.ParseDate(dateStr)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", w.ID, err)
	}

	typ, ok := model.ParseTransactionType(w.Type)
	if !ok {
		typ = model.TypeIncome
		if w.Amount.IsNegative() {
			typ = model.TypeExpense
		}
	}

	tx := model.Transaction{
		ID:          w.ID.String(),
		Type:        typ,
		Amount:      w.Amount.Abs(),
		Description: w.Description,
		CategoryID:  w.CategoryID.String(),
		AccountID:   w.AccountID.String(),
		Date:        date,
		Notes:       string(w.Notes),
	}
	if tx.Notes == "" {
		tx.Notes = string(w.Tags)
	}
	if w.Category != nil {
		c := w.Category.model()
		tx.Category = &c
		if tx.CategoryID == "" {
			tx.CategoryID = c.ID
		}
	}
	if tx.AccountID == "" && w.Account != nil {
		tx.AccountID = w.Account.ID.String()
	}
	return tx, nil
}

type transactionBody struct {
	Description     string      `json:"description"`
	Amount          json.Number `json:"amount"`
	Type            string      `json:"type"`
	CategoryID      any         `json:"categoryId,omitempty"`
	AccountID       any         `json:"accountId,omitempty"`
	TransactionDate string      `json:"transactionDate"`
	Date            string      `json:"date"`
	Notes           string      `json:"notes,omitempty"`
}

func encodeTransaction(tx model.Transaction) any {
	return transactionBody{
		Description:     tx.Description,
		Amount:          json.Number(tx.Amount.Abs().String()),
		Type:            strings.ToUpper(string(tx.Type)),
		CategoryID:      id.Wire(tx.ResolvedCategoryID()),
		AccountID:       id.Wire(tx.AccountID),
		TransactionDate: tx.Date.String(),
		Date:            tx.Date.String(),
		Notes:           tx.Notes,
	}
}

type wireCategory struct {
	ID            id.Flex          `json:"id"`
	Name          string           `json:"name"`
	Type          string           `json:"type"`
	Color         string           `json:"color"`
	Icon          string           `json:"icon"`
	MonthlyBudget *decimal.Decimal `json:"monthlyBudget"`
}

func (w wireCategory) model() model.Category {
	typ, _ := model.ParseTransactionType(w.Type)
	return model.Category{
		ID:            w.ID.String(),
		Name:          w.Name,
		Type:          typ,
		Color:         w.Color,
		Icon:          w.Icon,
		MonthlyBudget: w.MonthlyBudget,
	}
}

func decodeCategory(raw json.RawMessage) (model.Category, error) {
	var w wireCategory
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Category{}, fmt.Errorf("decoding category: %w", err)
	}
	return w.model(), nil
}

type categoryBody struct {
	Name          string       `json:"name"`
	Type          string       `json:"type"`
	Color         string       `json:"color,omitempty"`
	Icon          string       `json:"icon,omitempty"`
	MonthlyBudget *json.Number `json:"monthlyBudget,omitempty"`
}

func encodeCategory(c model.Category) any {
	body := categoryBody{
		Name:  c.Name,
		Type:  strings.ToUpper(string(c.Type)),
		Color: c.Color,
		Icon:  c.Icon,
	}
	if c.MonthlyBudget != nil {
		n := json.Number(c.MonthlyBudget.String())
		body.MonthlyBudget = &n
	}
	return body
}

type wireAccount struct {
	ID       id.Flex         `json:"id"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
	IsActive *bool           `json:"isActive"`
	Active   *bool           `json:"active"`
}

func decodeAccount(raw json.RawMessage) (model.Account, error) {
	var w wireAccount
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Account{}, fmt.Errorf("decoding account: %w", err)
	}
	a := model.Account{
		ID:       w.ID.String(),
		Name:     w.Name,
		Type:     model.AccountType(strings.ToLower(w.Type)),
		Balance:  w.Balance,
		Currency: strings.ToUpper(w.Currency),
		IsActive: w.IsActive,
	}
	if a.IsActive == nil {
		a.IsActive = w.Active
	}
	if a.Currency == "" {
		a.Currency = model.DefaultCurrency
	}
	return a, nil
}

type accountBody struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Balance  json.Number `json:"balance"`
	Currency string      `json:"currency,omitempty"`
	IsActive *bool       `json:"isActive,omitempty"`
}

func encodeAccount(a model.Account) any {
	return accountBody{
		Name:     a.Name,
		Type:     strings.ToUpper(string(a.Type)),
		Balance:  json.Number(a.Balance.String()),
		Currency: a.Currency,
		IsActive: a.IsActive,
	}
}

type wireBudget struct {
	ID             id.Flex         `json:"id"`
	Name           string          `json:"name"`
	CategoryID     id.Flex         `json:"categoryId"`
	Category       *wireRef        `json:"category"`
	CategoryName   string          `json:"categoryName"`
	Amount         decimal.Decimal `json:"amount"`
	Period         string          `json:"period"`
	StartDate      string          `json:"startDate"`
	EndDate        string          `json:"endDate"`
	AlertThreshold int             `json:"alertThreshold"`
	IsActive       *bool           `json:"isActive"`
	Notes          string          `json:"notes"`
}

// decodeBudget ignores any server-side "spent": spend is always derived.
func decodeBudget(raw json.RawMessage) (model.Budget, error) {
	var w wireBudget
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Budget{}, fmt.Errorf("decoding budget: %w", err)
	}
	start, err := model.ParseDate(w.StartDate)
	if err != nil {
		return model.Budget{}, fmt.Errorf("budget %s startDate: %w", w.ID, err)
	}
	end, err := model.ParseDate(w.EndDate)
	if err != nil {
		return model.Budget{}, fmt.Errorf("budget %s endDate: %w", w.ID, err)
	}
	period, _ := model.ParsePeriod(w.Period)

	b := model.Budget{
		ID:             w.ID.String(),
		Name:           w.Name,
		CategoryID:     w.CategoryID.String(),
		Amount:         w.Amount,
		Period:         period,
		StartDate:      start,
		EndDate:        end,
		AlertThreshold: w.AlertThreshold,
		IsActive:       w.IsActive,
		Notes:          w.Notes,
	}
	if b.CategoryID == "" && w.Category != nil {
		b.CategoryID = w.Category.ID.String()
	}
	if b.Name == "" {
		b.Name = w.CategoryName
	}
	return b, nil
}

type budgetBody struct {
	Name           string      `json:"name,omitempty"`
	CategoryID     any         `json:"categoryId"`
	Amount         json.Number `json:"amount"`
	Period         string      `json:"period"`
	StartDate      string      `json:"startDate"`
	EndDate        string      `json:"endDate,omitempty"`
	AlertThreshold int         `json:"alertThreshold"`
	IsActive       *bool       `json:"isActive,omitempty"`
	Notes          string      `json:"notes,omitempty"`
}

func encodeBudget(b model.Budget) any {
	return budgetBody{
		Name:           b.Name,
		CategoryID:     id.Wire(b.CategoryID),
		Amount:         json.Number(b.Amount.String()),
		Period:         strings.ToUpper(string(b.Period)),
		StartDate:      b.StartDate.String(),
		EndDate:        b.EndDate.String(),
		AlertThreshold: b.Threshold(),
		IsActive:       b.IsActive,
		Notes:          b.Notes,
	}
}
