package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrEmptyCSV is returned for a CSV upload without a header row
	ErrEmptyCSV = errors.New("CSV file is empty")
	// ErrMissingTextColumn is returned when no column maps to comment_text
	ErrMissingTextColumn = fmt.Errorf("required column %q not found in CSV", FieldText)
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a CSV upload with a header row. Header names go through the
// alias table. Rows that cannot be parsed are skipped; empty cells are left
// out of the record so the comment builder applies defaults.
func ParseCSV(data []byte) ([]Record, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("invalid CSV header: %w", err)
	}

	columns := make([]string, len(header))
	hasText := false
	for i, name := range header {
		columns[i] = CanonicalKey(name)
		if columns[i] == FieldText {
			hasText = true
		}
	}
	if !hasText {
		return nil, ErrMissingTextColumn
	}

	var records []Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		rec := make(Record, len(columns))
		for i, value := range row {
			if i >= len(columns) || value == "" {
				continue
			}
			if _, taken := rec[columns[i]]; taken {
				continue
			}
			rec[columns[i]] = value
		}
		records = append(records, rec)
	}
	return records, nil
}
