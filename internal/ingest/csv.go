// Package ingest reads simulator session logs into raw tables.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/verte-zerg/simdash/internal/model"
)

// ErrNotText is returned for input that decodes but carries NUL bytes.
var ErrNotText = errors.New("binary content is not a CSV log")

// ReadTable parses one CSV stream. The first record is the header. The reader
// honours UTF-8 and UTF-16 byte-order marks; headers are returned as written
// so the pipeline can clean them. Input that is not valid UTF-8 text fails.
func ReadTable(name string, r io.Reader) (model.RawTable, error) {
	data, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(encoding.UTF8Validator)))
	if err != nil {
		return model.RawTable{Name: name}, fmt.Errorf("failed to decode: %w", err)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return model.RawTable{Name: name}, ErrNotText
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	table := model.RawTable{Name: name}
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return table, nil
	}
	if err != nil {
		return table, fmt.Errorf("failed to read header: %w", err)
	}
	table.Columns = make([]string, len(header))
	for i, h := range header {
		table.Columns[i] = strings.TrimSpace(h)
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return table, fmt.Errorf("failed to read record: %w", err)
		}
		row := make(map[string]model.Value, len(table.Columns))
		for i, col := range table.Columns {
			if i >= len(rec) {
				row[col] = model.Value{}
				continue
			}
			if prev, ok := row[col]; ok && !prev.IsEmpty() {
				continue
			}
			row[col] = ParseCell(rec[i])
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// ParseCell classifies a raw cell: blank cells are empty, numbers become
// numeric values, everything else stays text.
func ParseCell(raw string) model.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return model.Value{}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !isSpecialFloat(s) {
		return model.NumberValue(f)
	}
	return model.StringValue(s)
}

// isSpecialFloat rejects spellings strconv accepts but a log never means as numbers.
func isSpecialFloat(s string) bool {
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "inf", "infinity", "nan":
		return true
	}
	return strings.ContainsAny(s, "xX_")
}
