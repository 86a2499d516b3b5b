// Package format renders amounts and dates for display.
package format

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyInfo describes a supported display currency.
type CurrencyInfo struct {
	Code   string
	Name   string
	Symbol string
}

// SupportedCurrencies lists the currencies a user can pick in settings.
var SupportedCurrencies = []CurrencyInfo{
	{Code: "INR", Name: "Indian Rupee", Symbol: "₹"},
	{Code: "USD", Name: "US Dollar", Symbol: "$"},
	{Code: "EUR", Name: "Euro", Symbol: "€"},
	{Code: "GBP", Name: "British Pound", Symbol: "£"},
	{Code: "CAD", Name: "Canadian Dollar", Symbol: "C$"},
	{Code: "AUD", Name: "Australian Dollar", Symbol: "A$"},
}

// DefaultCurrency is the display currency for a fresh install.
const DefaultCurrency = "INR"

// LookupCurrency finds code in SupportedCurrencies, ignoring case.
func LookupCurrency(code string) (CurrencyInfo, bool) {
	for _, c := range SupportedCurrencies {
		if strings.EqualFold(c.Code, code) {
			return c, true
		}
	}
	return CurrencyInfo{}, false
}

// Symbol returns the display symbol for code, falling back to the code itself.
func Symbol(code string) string {
	if c, ok := LookupCurrency(code); ok {
		return c.Symbol
	}
	if code == "" {
		return Symbol(DefaultCurrency)
	}
	return strings.ToUpper(code) + " "
}

// Currency formats amount with its symbol, digit grouping and exactly two
// decimals. Negative amounts get a leading "-".
func Currency(amount decimal.Decimal, code string) string {
	body := Symbol(code) + group(amount.Abs().StringFixed(2), indianGrouping(code))
	if amount.Round(2).IsNegative() {
		return "-" + body
	}
	return body
}

// AmountOptions controls sign rendering in Amount.
type AmountOptions struct {
	HideSign bool // render the magnitude only
	ShowPlus bool // prefix positive amounts with "+"
}

// Amount formats a signed amount for list display.
func Amount(amount decimal.Decimal, code string, opts AmountOptions) string {
	formatted := Currency(amount.Abs(), code)
	if opts.HideSign {
		return formatted
	}
	switch {
	case amount.Round(2).IsPositive() && opts.ShowPlus:
		return "+" + formatted
	case amount.Round(2).IsNegative():
		return "-" + formatted
	}
	return formatted
}

var nonNumeric = regexp.MustCompile(`[^\d.-]`)

// ParseCurrency strips symbols and separators from s and parses what is
// left. Anything unparseable yields zero.
func ParseCurrency(s string) decimal.Decimal {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func indianGrouping(code string) bool {
	return code == "" || strings.EqualFold(code, "INR")
}

// group inserts thousands separators into a non-negative fixed-point string.
// Indian grouping keeps the last three digits together and then groups by two.
func group(fixed string, indian bool) string {
	intPart, frac, _ := strings.Cut(fixed, ".")
	if len(intPart) <= 3 {
		return fixed
	}

	head, tail := intPart[:len(intPart)-3], intPart[len(intPart)-3:]
	size := 3
	if indian {
		size = 2
	}
	var groups []string
	for len(head) > size {
		groups = append([]string{head[len(head)-size:]}, groups...)
		head = head[:len(head)-size]
	}
	groups = append([]string{head}, groups...)
	groups = append(groups, tail)

	out := strings.Join(groups, ",")
	if frac != "" {
		out += "." + frac
	}
	return out
}
