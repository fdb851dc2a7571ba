package recognizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDateRe   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ]\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:?\d{2})?)?$`)
	slashDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dotDateRe   = regexp.MustCompile(`^(\d{1,2})[.\-](\d{1,2})[.\-](\d{4})$`)
	namedDateRe = regexp.MustCompile(`^(?i)(?:(\d{1,2})(?:st|nd|rd|th)?\s+([a-z]{3,9})\.?,?\s+(\d{4})|([a-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4}))$`)
)

var dateFields = []string{"date", "dob", "birthday", "birthdate", "born", "created", "updated", "timestamp", "when", "day", "dated"}

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// Date recognizes ISO, US (MM/DD/YYYY), European (DD.MM.YYYY) and
// named-month dates and normalizes them to YYYY-MM-DD.
type Date struct{}

func (Date) Kind() Kind { return KindDate }

func (d Date) IsLikelyType(field, value string) bool {
	return d.Confidence(field, value) >= DefaultMinConfidence
}

func (Date) Confidence(field, value string) float64 {
	if _, err := parseDate(strings.TrimSpace(value)); err != nil {
		return 0
	}
	score := 0.8
	if isoDateRe.MatchString(strings.TrimSpace(value)) {
		score = 0.9
	}
	if fieldHas(field, dateFields...) {
		score += 0.1
	}
	return min(score, 1)
}

func (Date) Normalize(value string) (any, error) {
	t, err := parseDate(strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}
	return t.Format(time.DateOnly), nil
}

func parseDate(value string) (time.Time, error) {
	if m := isoDateRe.FindStringSubmatch(value); m != nil {
		return buildDate(m[1], m[2], m[3])
	}
	if m := slashDateRe.FindStringSubmatch(value); m != nil {
		// US order unless the first part cannot be a month.
		if n, _ := strconv.Atoi(m[1]); n > 12 {
			return buildDate(m[3], m[2], m[1])
		}
		return buildDate(m[3], m[1], m[2])
	}
	if m := dotDateRe.FindStringSubmatch(value); m != nil {
		return buildDate(m[3], m[2], m[1])
	}
	if m := namedDateRe.FindStringSubmatch(value); m != nil {
		day, month, year := m[1], m[2], m[3]
		if m[4] != "" {
			month, day, year = m[4], m[5], m[6]
		}
		mon, ok := months[strings.ToLower(month)]
		if !ok {
			return time.Time{}, fmt.Errorf("unknown month %q", month)
		}
		return buildDate(year, strconv.Itoa(int(mon)), day)
	}
	return time.Time{}, ErrUnrecognized
}

func buildDate(year, month, day string) (time.Time, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, err
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return time.Time{}, err
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, err
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("invalid date %s-%s-%s", year, month, day)
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, fmt.Errorf("invalid date %s-%s-%s", year, month, day)
	}
	return t, nil
}
