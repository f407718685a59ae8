// Package pipeline turns raw simulator session tables into derived statistics.
//
// Every function is pure: inputs are never mutated and no state survives a call.
package pipeline

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/verte-zerg/simdash/internal/model"
)

// headerMarker is the byte-order mark that spreadsheet exports leave in headers.
const headerMarker = "\uFEFF"

// CleanColumnName strips stray byte-order marks and edge whitespace from a header.
func CleanColumnName(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, headerMarker, ""))
}

// Normalize merges the tables in supply order and derives the parsed date and
// duration of every row. Unparseable fields become nil; nothing is dropped.
func Normalize(tables []model.RawTable) []model.Session {
	total := 0
	for _, t := range tables {
		total += len(t.Rows)
	}
	out := make([]model.Session, 0, total)
	for _, t := range tables {
		keys := tableKeys(t)
		columns, rename := cleanColumns(keys)
		for _, row := range t.Rows {
			values := make(map[string]model.Value, len(row))
			for _, key := range keys {
				v, ok := row[key]
				if !ok {
					continue
				}
				clean := rename[key]
				if prev, dup := values[clean]; dup && !prev.IsEmpty() {
					continue
				}
				values[clean] = v
			}
			out = append(out, model.Session{
				Source:          t.Name,
				Columns:         columns,
				Values:          values,
				ParsedDate:      ParseDate(values[model.ColDate]),
				DurationSeconds: ParseDuration(values[model.ColTotalTime]),
			})
		}
	}
	return out
}

// tableKeys lists the header followed by any row keys missing from it.
func tableKeys(t model.RawTable) []string {
	keys := append([]string(nil), t.Columns...)
	known := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		known[k] = struct{}{}
	}
	for _, row := range t.Rows {
		var extra []string
		for k := range row {
			if _, ok := known[k]; !ok {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		for _, k := range extra {
			known[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

func cleanColumns(columns []string) ([]string, map[string]string) {
	rename := make(map[string]string, len(columns))
	out := make([]string, 0, len(columns))
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		clean := CleanColumnName(c)
		rename[c] = clean
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out, rename
}

// ParseDate parses a date cell with a layout-detecting parser. Slash dates are
// read month first; one that is impossible that way is retried day first, so
// 13/02/2024 is 13 February. It returns nil for empty or unrecognised values.
func ParseDate(v model.Value) *time.Time {
	if v.Kind != model.KindString {
		return nil
	}
	s := strings.TrimSpace(v.Str)
	if s == "" {
		return nil
	}
	t, err := dateparse.ParseAny(s, dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil {
		return nil
	}
	return &t
}

// ParseDuration converts a "M:S" cell into seconds. Exactly one colon is
// accepted; both parts must be finite non-negative numbers.
func ParseDuration(v model.Value) *float64 {
	if v.Kind != model.KindString {
		return nil
	}
	minutesPart, secondsPart, ok := strings.Cut(strings.TrimSpace(v.Str), ":")
	if !ok || strings.Contains(secondsPart, ":") {
		return nil
	}
	minutes, ok := parseComponent(minutesPart)
	if !ok {
		return nil
	}
	seconds, ok := parseComponent(secondsPart)
	if !ok {
		return nil
	}
	d := minutes*60 + seconds
	return &d
}

func parseComponent(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}

// FormatDuration renders seconds in the "M:SS" form ParseDuration accepts.
func FormatDuration(seconds float64) string {
	minutes := math.Floor(seconds / 60)
	rest := seconds - minutes*60
	secText := strconv.FormatFloat(rest, 'f', -1, 64)
	if rest < 10 {
		secText = "0" + secText
	}
	return strconv.FormatFloat(minutes, 'f', -1, 64) + ":" + secText
}

// Denormalize rebuilds a raw table from sessions, writing the derived date and
// duration back into the Date and Total Time columns.
func Denormalize(name string, rows []model.Session) model.RawTable {
	table := model.RawTable{Name: name, Columns: MergedColumns(rows)}
	for _, s := range rows {
		values := make(map[string]model.Value, len(s.Values))
		for k, v := range s.Values {
			values[k] = v
		}
		if s.ParsedDate != nil {
			values[model.ColDate] = model.StringValue(formatDate(*s.ParsedDate))
		} else {
			values[model.ColDate] = model.Value{}
		}
		if s.DurationSeconds != nil {
			values[model.ColTotalTime] = model.StringValue(FormatDuration(*s.DurationSeconds))
		} else {
			values[model.ColTotalTime] = model.Value{}
		}
		table.Rows = append(table.Rows, values)
	}
	return table
}

func formatDate(t time.Time) string {
	if t.Location() == time.UTC {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format(time.RFC3339Nano)
}

// MergedColumns returns the union of the sessions' headers in first-seen order.
func MergedColumns(rows []model.Session) []string {
	var out []string
	seen := map[string]struct{}{}
	var last []string
	for _, s := range rows {
		if sameSlice(last, s.Columns) {
			continue
		}
		last = s.Columns
		for _, c := range s.Columns {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func sameSlice(a, b []string) bool {
	return len(a) == len(b) && len(a) > 0 && &a[0] == &b[0]
}
