// Package transform coerces raw cell values into a field's declared type.
//
// Spreadsheets arrive in every shape people type them: currency symbols and
// thousand separators in numbers, US, EU and ISO dates side by side, and
// booleans spelled as yes/no, x, or checked. The functions here accept those
// forms and normalise them; anything they cannot read is an error.
package transform

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/workbook"
)

// ErrTwoDigitYear is returned for dates written with a 2-digit year.
var ErrTwoDigitYear = errors.New("2-digit year")

// DateLayout is the normalised output format for dates.
const DateLayout = time.DateOnly

// Outcome is a successfully transformed value plus an optional non-blocking
// warning. Value is nil when the input was empty.
type Outcome struct {
	Value   any
	Warning string
}

// Transform coerces value to field's declared type.
//
//	string          trimmed text
//	number          float64
//	date            "YYYY-MM-DD"
//	boolean         bool
//	enum, reference trimmed text, resolved later during validation
func Transform(value any, field schema.FieldSchema) (Outcome, error) {
	if workbook.IsEmptyCell(value) {
		return Outcome{}, nil
	}

	switch field.Type {
	case schema.FieldNumber:
		n, err := ParseNumber(value)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Value: n}, nil

	case schema.FieldDate:
		d, warning, err := ParseDate(value)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Value: d, Warning: warning}, nil

	case schema.FieldBoolean:
		b, warning := ParseBool(value)
		return Outcome{Value: b, Warning: warning}, nil
	}

	return Outcome{Value: strings.TrimSpace(workbook.CellText(value))}, nil
}

var numberNoise = strings.NewReplacer(
	"$", "", "€", "", "£", "", "¥", "",
	"USD", "", "EUR", "", "GBP", "",
	",", "", " ", "", "\u00a0", "", "\t", "",
)

// ParseNumber reads a number, tolerating currency symbols and codes,
// thousand separators, whitespace, accounting parentheses for negatives, and
// a trailing percent sign (kept at face value: "45%" is 45).
func ParseNumber(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return parseNumberString(v)
	}

	return 0, fmt.Errorf("%v is not a number", value)
}

func parseNumberString(raw string) (float64, error) {
	s := strings.TrimSpace(raw)

	// Accounting format "(123.45)"
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	s = numberNoise.Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil || s == "" {
		return 0, fmt.Errorf("%q is not a number", raw)
	}

	if negative {
		d = d.Neg()
	}

	return d.InexactFloat64(), nil
}

var (
	trueWords  = map[string]bool{"yes": true, "y": true, "1": true, "on": true, "x": true, "checked": true, "true": true, "t": true}
	falseWords = map[string]bool{"no": true, "n": true, "0": true, "off": true, "": true, "unchecked": true, "false": true, "f": true}
)

// ParseBool reads a boolean. Numbers are true when non-zero. Unrecognised
// text is false with a warning.
func ParseBool(value any) (bool, string) {
	switch v := value.(type) {
	case nil:
		return false, ""
	case bool:
		return v, ""
	case float64:
		return v != 0, ""
	case int:
		return v != 0, ""
	case int64:
		return v != 0, ""
	}

	s := strings.ToLower(strings.TrimSpace(workbook.CellText(value)))
	switch {
	case trueWords[s]:
		return true, ""
	case falseWords[s]:
		return false, ""
	}

	return false, fmt.Sprintf("unrecognised boolean %q, treated as false", s)
}
