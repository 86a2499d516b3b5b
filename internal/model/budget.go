package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Period is the length of one budget window.
type Period string

const (
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

// ParsePeriod normalizes s to a known period.
func ParsePeriod(s string) (Period, bool) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return p, true
	}
	return p, false
}

func (p Period) Valid() bool {
	_, ok := ParsePeriod(string(p))
	return ok
}

// End returns the exclusive end of the window that begins at start.
// An unknown period yields start, i.e. an empty window.
func (p Period) End(start Date) Date {
	norm, _ := ParsePeriod(string(p))
	switch norm {
	case PeriodWeekly:
		return start.AddDays(7)
	case PeriodMonthly:
		return start.AddMonths(1)
	case PeriodQuarterly:
		return start.AddMonths(3)
	case PeriodYearly:
		return start.AddMonths(12)
	}
	return start
}

// DefaultAlertThreshold is the percent of a budget at which an alert fires.
const DefaultAlertThreshold = 80

// Budget caps spending in one category over a recurring period. The amount
// spent is never stored; it is derived from transactions on every read.
type Budget struct {
	ID             string          `json:"id"`
	Name           string          `json:"name,omitempty"`
	CategoryID     string          `json:"categoryId"`
	Amount         decimal.Decimal `json:"amount"`
	Period         Period          `json:"period"`
	StartDate      Date            `json:"startDate"`
	EndDate        Date            `json:"endDate,omitempty"`
	AlertThreshold int             `json:"alertThreshold,omitempty"`
	IsActive       *bool           `json:"isActive,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

func (b Budget) EntityID() string { return b.ID }

// Threshold returns AlertThreshold, or the default when unset.
func (b Budget) Threshold() int {
	if b.AlertThreshold <= 0 {
		return DefaultAlertThreshold
	}
	return b.AlertThreshold
}

// WindowEnd is the exclusive end of the budget's first period.
func (b Budget) WindowEnd() Date {
	return b.Period.End(b.StartDate)
}

func (b Budget) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(b.CategoryID) == "" {
		errs.add("categoryId", "is required")
	}
	if !b.Amount.IsPositive() {
		errs.add("amount", "must be greater than zero")
	}
	if !b.Period.Valid() {
		errs.add("period", "must be weekly, monthly, quarterly or yearly, got %q", b.Period)
	}
	if b.StartDate.IsZero() {
		errs.add("startDate", "is required")
	}
	if !b.EndDate.IsZero() && b.EndDate.Before(b.StartDate) {
		errs.add("endDate", "is before startDate")
	}
	if b.AlertThreshold < 0 || b.AlertThreshold > 100 {
		errs.add("alertThreshold", "must be between 1 and 100")
	}
	return errs.err()
}
