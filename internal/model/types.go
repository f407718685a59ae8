// Package model defines shared data structures.
package model

import (
	"strconv"
	"time"
)

// Well-known simulator log columns.
const (
	ColDate          = "Date"
	ColTotalTime     = "Total Time"
	ColAverageSpeed  = "Average Speed (km/h)"
	ColTopSpeed      = "Top Speed (Km/h)"
	ColTrackMaterial = "Setting Track Material"
	// ColTotalSeconds is the derived duration column.
	ColTotalSeconds = "Total Seconds"
)

// ValueKind tells how a raw cell was read.
type ValueKind uint8

const (
	KindEmpty ValueKind = iota
	KindString
	KindNumber
)

// Value is a single raw cell: empty, a string, or a number.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
}

// StringValue wraps a text cell.
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// NumberValue wraps a numeric cell.
func NumberValue(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// IsEmpty reports whether the cell carries no value.
func (v Value) IsEmpty() bool {
	return v.Kind == KindEmpty
}

// Float returns the numeric value of a number cell.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// String returns the cell as text; empty cells yield "".
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// RawTable is one parsed input file.
type RawTable struct {
	Name    string
	Columns []string
	Rows    []map[string]Value
}

// Session is one normalized row of the merged table.
type Session struct {
	Source string
	// Columns is the header order of the table the row came from.
	Columns []string
	Values  map[string]Value

	ParsedDate      *time.Time
	DurationSeconds *float64
}

// Number returns the numeric value of a column, if present.
func (s Session) Number(col string) (float64, bool) {
	if s.Values == nil {
		return 0, false
	}
	return s.Values[col].Float()
}

// Text returns the textual value of a column.
func (s Session) Text(col string) string {
	if s.Values == nil {
		return ""
	}
	return s.Values[col].String()
}

// SummaryMetrics holds the headline numbers. Nil means no data was observed.
type SummaryMetrics struct {
	TotalSessions        int
	DistinctDays         int
	MeanDurationSeconds  *float64
	TotalDurationSeconds *float64
	MeanAverageSpeed     *float64
	MaxTopSpeed          *float64
}

// DayAggregate summarizes the sessions of one calendar day.
type DayAggregate struct {
	Day                 time.Time
	MeanDurationSeconds *float64
	MeanAverageSpeed    *float64
	SessionCount        int
}

// ColumnSummary holds descriptive statistics for one numeric column.
// Std is nil when fewer than two values exist.
type ColumnSummary struct {
	Column string
	Count  int
	Mean   float64
	Std    *float64
	Min    float64
	P25    float64
	P50    float64
	P75    float64
	Max    float64
}

// CorrelationMatrix holds pairwise Pearson coefficients.
// Values[i][j] is nil when the pair has too few points or zero variance.
type CorrelationMatrix struct {
	Columns []string
	Values  [][]*float64
}

// Result bundles every pipeline output for presentation.
type Result struct {
	Columns      []string
	Sessions     []Session
	Summary      SummaryMetrics
	Days         []DayAggregate
	Numeric      []ColumnSummary
	Correlation  CorrelationMatrix
	CorrelateErr error
}

// Filter narrows the sessions shown by the dashboard and report.
type Filter struct {
	Material string
	Since    *time.Time
	Until    *time.Time
}

// Active reports whether any filter field is set.
func (f Filter) Active() bool {
	return f.Material != "" || f.Since != nil || f.Until != nil
}

// DayOf truncates t to its calendar date in UTC.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
