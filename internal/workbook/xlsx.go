package workbook

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Built-in number format ids that render as dates.
var dateNumFmts = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	45: true, 46: true, 47: true,
}

// ReadXLSX decodes every sheet of an Excel workbook.
// Numeric cells become float64, boolean cells bool, and numeric cells with a
// date number format time.Time.
func ReadXLSX(r io.Reader) (Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Workbook{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var wb Workbook
	for _, name := range f.GetSheetList() {
		sheet, err := readSheet(f, name)
		if err != nil {
			return Workbook{}, fmt.Errorf("read sheet %q: %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}

	return wb, nil
}

func readSheet(f *excelize.File, name string) (Sheet, error) {
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return Sheet{}, err
	}

	dateStyles := make(map[int]bool)
	rows := make([][]any, len(raw))

	for r, cols := range raw {
		row := make([]any, len(cols))

		for c, text := range cols {
			if text == "" {
				continue
			}

			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return Sheet{}, err
			}

			row[c] = typedCell(f, name, cell, text, dateStyles)
		}

		rows[r] = row
	}

	headers, data := splitHeader(rows)
	return Sheet{Name: name, Headers: headers, Rows: data}, nil
}

// typedCell converts the raw text of a cell to its native type.
// Falls back to the raw text when the cell metadata can't be read.
func typedCell(f *excelize.File, sheet, cell, text string, dateStyles map[int]bool) any {
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return text
	}

	switch typ {
	case excelize.CellTypeBool:
		return text == "1" || strings.EqualFold(text, "true")

	case excelize.CellTypeNumber, excelize.CellTypeUnset, excelize.CellTypeDate:
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return text
		}

		if isDateCell(f, sheet, cell, dateStyles) {
			if t, err := excelize.ExcelDateToTime(n, false); err == nil {
				return t
			}
		}

		return n
	}

	return text
}

func isDateCell(f *excelize.File, sheet, cell string, cache map[int]bool) bool {
	styleID, err := f.GetCellStyle(sheet, cell)
	if err != nil || styleID == 0 {
		return false
	}

	if isDate, ok := cache[styleID]; ok {
		return isDate
	}

	isDate := false
	if style, err := f.GetStyle(styleID); err == nil && style != nil {
		isDate = dateNumFmts[style.NumFmt]
		if style.CustomNumFmt != nil {
			isDate = isDateFormat(*style.CustomNumFmt)
		}
	}

	cache[styleID] = isDate
	return isDate
}

// isDateFormat reports whether a custom number format renders a date.
// Quoted literals and bracketed sections are ignored.
func isDateFormat(format string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false

	for _, r := range strings.ToLower(format) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == '[' && !inQuote:
			inBracket = true
		case r == ']' && !inQuote:
			inBracket = false
		case !inQuote && !inBracket:
			b.WriteRune(r)
		}
	}

	return strings.ContainsAny(b.String(), "dy")
}
