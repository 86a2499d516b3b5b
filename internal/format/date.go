package format

import (
	"strings"

	"github.com/spendwise-dev/spendwise/internal/model"
)

// DefaultDatePattern is the settings date format for a fresh install.
const DefaultDatePattern = "DD/MM/YYYY"

// DatePatterns lists the date formats offered in settings.
var DatePatterns = []string{"DD/MM/YYYY", "MM/DD/YYYY", "YYYY-MM-DD", "DD MMM YYYY"}

// tokens maps pattern tokens to Go layout elements; longer tokens come first
// so "MMM" wins over "MM".
var tokens = strings.NewReplacer(
	"YYYY", "2006",
	"yyyy", "2006",
	"MMM", "Jan",
	"MM", "01",
	"DD", "02",
	"dd", "02",
)

// Layout converts a settings pattern such as "DD/MM/YYYY" to a Go layout.
func Layout(pattern string) string {
	if pattern == "" {
		pattern = DefaultDatePattern
	}
	return tokens.Replace(pattern)
}

// Date renders d with a settings pattern; a zero date renders as "".
func Date(d model.Date, pattern string) string {
	return d.Format(Layout(pattern))
}

// RelativeDate renders d as "Today", "Yesterday", or "Jan 02, 2006".
func RelativeDate(d, today model.Date) string {
	switch {
	case d.IsZero():
		return ""
	case d.Equal(today):
		return "Today"
	case d.Equal(today.AddDays(-1)):
		return "Yesterday"
	}
	return d.Format("Jan 02, 2006")
}

// DateRangeLabel renders an inclusive range, or "All time" when open-ended.
func DateRangeLabel(start, end model.Date) string {
	if start.IsZero() || end.IsZero() {
		return "All time"
	}
	return start.Format("Jan 02") + " - " + end.Format("Jan 02, 2006")
}

// Range is an inclusive span of calendar dates.
type Range struct {
	Start model.Date
	End   model.Date
}

// CurrentMonth spans the month containing today.
func CurrentMonth(today model.Date) Range {
	return Range{Start: today.StartOfMonth(), End: today.EndOfMonth()}
}

// PreviousMonth spans the month before today's.
func PreviousMonth(today model.Date) Range {
	prev := today.StartOfMonth().AddMonths(-1)
	return Range{Start: prev, End: prev.EndOfMonth()}
}
