package util

import (
	"regexp"
	"time"
)

const DateLayout = "2006-01-02"

var (
	reSlashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	reDashDate  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
	reOrdinal   = regexp.MustCompile(`(\d)(st|nd|rd|th)\b`)

	nativeLayouts = []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		time.RFC1123,
		time.RFC1123Z,
		time.RFC850,
		time.ANSIC,
	}

	monthLayouts = []string{
		"January 2, 2006",
		"January 2 2006",
		"Jan 2, 2006",
		"Jan 2 2006",
		"Jan. 2, 2006",
		"2 January 2006",
		"2 Jan 2006",
		"2-Jan-2006",
		"02-Jan-2006",
		"Monday, January 2, 2006",
		"Mon, Jan 2, 2006",
		"January 2006",
		"Jan 2006",
	}
)

// ParseDate tries native timestamps, MM/DD/YYYY then DD/MM/YYYY (slash and
// dash forms), ISO dates and month-name forms, in that order.
func ParseDate(input string) (time.Time, bool) {
	s := CollapseSpaces(input)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range nativeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	for _, re := range []*regexp.Regexp{reSlashDate, reDashDate} {
		if m := re.FindStringSubmatch(s); m != nil {
			if t, ok := dayMonthYear(m[2], m[1], m[3]); ok {
				return t, true
			}
			if t, ok := dayMonthYear(m[1], m[2], m[3]); ok {
				return t, true
			}
			return time.Time{}, false
		}
	}

	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006/01/02", s); err == nil {
		return t, true
	}

	textual := reOrdinal.ReplaceAllString(s, "$1")
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, textual); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func dayMonthYear(day, month, year string) (time.Time, bool) {
	t, err := time.Parse("2-1-2006", day+"-"+month+"-"+year)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
