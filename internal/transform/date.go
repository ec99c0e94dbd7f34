package transform

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Spreadsheet serial day 0. 1899-12-30 absorbs Lotus' phantom 1900-02-29.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Largest serial a spreadsheet accepts (9999-12-31).
const maxSerial = 2958465

var (
	isoDate      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ].*)?$`)
	slashDate    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d+)$`)
	dotDate      = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d+)$`)
	shortYearAny = regexp.MustCompile(`^\d{1,2}[-/.]\d{1,2}[-/.]\d{2}$`)
)

// Layouts tried when no unambiguous form matches. A parse with one of these
// succeeds with an ambiguity warning.
var genericLayouts = []string{
	"2006/01/02", "2006/1/2", "2006.01.02", "20060102",
	"Jan 2, 2006", "January 2, 2006", "Jan 2 2006", "January 2 2006",
	"2 Jan 2006", "2 January 2006", "02-Jan-2006", "2-Jan-2006",
	"Mon, Jan 2, 2006", "Monday, January 2, 2006",
	"1-2-2006", "01-02-2006",
	time.RFC1123, time.RFC1123Z, time.RFC822,
}

// ParseDate reads a date and returns it as YYYY-MM-DD.
//
// Accepted without warning: time.Time, spreadsheet serial numbers, ISO
// (YYYY-MM-DD), US (MM/DD/YYYY), and EU (DD.MM.YYYY, or DD/MM/YYYY when the
// first part can't be a month). Two-digit years are rejected. Other layouts
// that parse are accepted with a warning.
func ParseDate(value any) (date string, warning string, err error) {
	switch v := value.(type) {
	case time.Time:
		return v.Format(DateLayout), "", nil
	case float64:
		return fromSerial(v)
	case int:
		return fromSerial(float64(v))
	case int64:
		return fromSerial(float64(v))
	case string:
		return parseDateString(v)
	}

	return "", "", fmt.Errorf("%v is not a date", value)
}

func fromSerial(serial float64) (string, string, error) {
	if serial < 1 || serial > maxSerial || math.IsNaN(serial) {
		return "", "", fmt.Errorf("%v is out of range for a spreadsheet date", serial)
	}

	days := int(math.Floor(serial))
	return serialEpoch.AddDate(0, 0, days).Format(DateLayout), "", nil
}

func parseDateString(raw string) (string, string, error) {
	s := strings.TrimSpace(raw)

	if m := isoDate.FindStringSubmatch(s); m != nil {
		return makeDate(raw, m[1], m[2], m[3])
	}

	if shortYearAny.MatchString(s) {
		return "", "", fmt.Errorf("%w in %q: write the year with 4 digits, e.g. 03/01/2025", ErrTwoDigitYear, raw)
	}

	if m := slashDate.FindStringSubmatch(s); m != nil && len(m[3]) == 4 {
		first, _ := strconv.Atoi(m[1])
		if first > 12 {
			return makeDate(raw, m[3], m[2], m[1]) // DD/MM/YYYY
		}
		return makeDate(raw, m[3], m[1], m[2]) // MM/DD/YYYY
	}

	if m := dotDate.FindStringSubmatch(s); m != nil && len(m[3]) == 4 {
		return makeDate(raw, m[3], m[2], m[1])
	}

	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), fmt.Sprintf("date %q has an ambiguous format, read as %s", raw, t.Format(DateLayout)), nil
		}
	}

	return "", "", fmt.Errorf("%q is not a recognised date (use YYYY-MM-DD)", raw)
}

// makeDate validates the calendar date and formats it.
func makeDate(raw, year, month, day string) (string, string, error) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", "", fmt.Errorf("%q is not a valid calendar date", raw)
	}

	return t.Format(DateLayout), "", nil
}
