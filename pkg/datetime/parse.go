// Package datetime provides date and time utility functions.
package datetime

import (
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/demand-dashboard/pkg/constants"
)

const (
	// DateLayout is the date format of series entries.
	DateLayout = constants.DateLayout

	// MonthDayLabel is the fine-grained axis label, e.g. "Jan 2".
	MonthDayLabel = "Jan 2"

	// MonthYearLabel is the coarse axis label, e.g. "Jan 24".
	MonthYearLabel = "Jan 06"
)

// layouts accepted for series dates, most specific first.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateLayout,
	"2006/01/02",
	"2006-01",
}

// ParseDate parses a series date in any of the layouts the backend has been
// seen to emit.
func ParseDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return parseEpoch(trimmed)
}

// parseEpoch reads Unix seconds (10 digits) or milliseconds (13 digits), the
// encodings pandas uses for datetime columns.
func parseEpoch(value string) (time.Time, bool) {
	if len(value) != 10 && len(value) != 13 {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return time.Time{}, false
	}
	if len(value) == 13 {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Unix(n, 0).UTC(), true
}

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// Label formats a series date for an axis tick using the given label layout.
// Dates that cannot be parsed are returned unchanged.
func Label(value, layout string) string {
	t, ok := ParseDate(value)
	if !ok {
		return value
	}
	return t.Format(layout)
}
