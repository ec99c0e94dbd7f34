package workbook

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadCSV decodes a single-sheet CSV file. Every non-blank cell is a string;
// blank cells are nil.
func ReadCSV(r io.Reader, name string) (Sheet, error) {
	reader := csv.NewReader(cleanText(r))
	reader.FieldsPerRecord = -1 // allow ragged rows
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Sheet{}, fmt.Errorf("read csv: %w", err)
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, v := range rec {
			if strings.TrimSpace(v) != "" {
				row[j] = v
			}
		}
		rows[i] = row
	}

	headers, data := splitHeader(rows)
	return Sheet{Name: name, Headers: headers, Rows: data}, nil
}
