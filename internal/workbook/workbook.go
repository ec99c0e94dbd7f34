// Package workbook decodes uploaded spreadsheets into raw tabular sheets.
//
// Cells keep their native type where the source format carries one:
// string, float64, int, bool, time.Time or nil.
package workbook

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrUnsupportedFormat is returned when a file extension is not recognised.
var ErrUnsupportedFormat = errors.New("unsupported workbook format")

// Sheet is one tab of a workbook. Headers come from the first non-empty row;
// Rows holds every row after it, including blank ones.
type Sheet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
}

// Workbook is a decoded file.
type Workbook struct {
	Name   string  `json:"name"`
	Sheets []Sheet `json:"sheets"`
}

// Sheet returns the sheet with the given name.
func (w Workbook) Sheet(name string) (Sheet, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return Sheet{}, false
}

// SheetNames returns the sheet names in file order.
func (w Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// Cell returns row[idx], or nil when the row is shorter.
func Cell(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

// CellText renders a cell as display text. Dates render as YYYY-MM-DD and
// floats without trailing zeros.
func CellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format(time.DateOnly)
	}
	return fmt.Sprint(v)
}

// IsEmptyCell reports whether v is nil or a blank string.
func IsEmptyCell(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case time.Time:
		return val.IsZero()
	}
	return false
}

// IsEmptyRow reports whether every cell of row is empty.
func IsEmptyRow(row []any) bool {
	for _, v := range row {
		if !IsEmptyCell(v) {
			return false
		}
	}
	return true
}

// Read decodes r according to the extension of fileName.
func Read(r io.Reader, fileName string) (Workbook, error) {
	var (
		wb  Workbook
		err error
	)

	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".xlsx", ".xlsm":
		wb, err = ReadXLSX(r)
	case ".csv":
		var sheet Sheet
		sheet, err = ReadCSV(r, strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName)))
		wb = Workbook{Sheets: []Sheet{sheet}}
	default:
		return Workbook{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err != nil {
		return Workbook{}, err
	}

	wb.Name = filepath.Base(fileName)
	return wb, nil
}

// splitHeader finds the first non-empty row, returns it as trimmed header
// text, and returns the rows after it.
func splitHeader(rows [][]any) ([]string, [][]any) {
	for i, row := range rows {
		if IsEmptyRow(row) {
			continue
		}

		headers := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				headers[j] = strings.TrimSpace(CellText(v))
			}
		}

		return headers, rows[i+1:]
	}

	return nil, nil
}
