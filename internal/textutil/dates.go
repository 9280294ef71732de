package textutil

import (
	"regexp"
	"strings"
	"time"
)

// Layouts tried in order against the cleaned candidate string. Event pages
// rarely agree on a format, so the list is deliberately long.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"January 2, 2006 3:04 PM",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
}

var (
	weekdayPrefix = regexp.MustCompile(`(?i)^(monday|tuesday|wednesday|thursday|friday|saturday|sunday)[,\s]+`)
	ordinalSuffix = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	monthDay      = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\.?\s+(\d{1,2})(?:,?\s*(\d{4}))?`)
	numericDate   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// ParseEventDate extracts a concrete instant from free-form date text.
// Year-less dates resolve to their next occurrence relative to now, so a
// "Dec 30" scraped in January points backward one year less than forward.
func ParseEventDate(raw string, now time.Time) (time.Time, bool) {
	s := CleanText(raw)
	if s == "" {
		return time.Time{}, false
	}
	s = weekdayPrefix.ReplaceAllString(s, "")
	s = ordinalSuffix.ReplaceAllString(s, "$1")

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if t, ok := scanMonthDay(s, now); ok {
		return t, true
	}
	if t, ok := scanNumeric(s, now); ok {
		return t, true
	}
	return time.Time{}, false
}

func scanMonthDay(s string, now time.Time) (time.Time, bool) {
	m := monthDay.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	month, ok := monthsByName[strings.ToLower(strings.TrimSuffix(m[1], "."))]
	if !ok {
		return time.Time{}, false
	}
	day := atoiBounded(m[2], 1, 31)
	if day == 0 {
		return time.Time{}, false
	}
	if m[3] != "" {
		year := atoiBounded(m[3], 1900, 2200)
		if year == 0 {
			return time.Time{}, false
		}
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
	}
	return nextOccurrence(month, day, now), true
}

func scanNumeric(s string, now time.Time) (time.Time, bool) {
	m := numericDate.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	month := atoiBounded(m[1], 1, 12)
	day := atoiBounded(m[2], 1, 31)
	if month == 0 || day == 0 {
		return time.Time{}, false
	}
	if m[3] == "" {
		return nextOccurrence(time.Month(month), day, now), true
	}
	year := atoiBounded(m[3], 0, 2200)
	if year < 100 {
		year += 2000
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

func nextOccurrence(month time.Month, day int, now time.Time) time.Time {
	t := time.Date(now.UTC().Year(), month, day, 0, 0, 0, 0, time.UTC)
	if t.Before(now.UTC().Truncate(24 * time.Hour)) {
		t = t.AddDate(1, 0, 0)
	}
	return t
}

func atoiBounded(s string, lo, hi int) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	if n < lo || n > hi {
		return 0
	}
	return n
}
