package pipeline

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/verte-zerg/simdash/internal/model"
)

// ErrInsufficientColumns is returned when fewer than two numeric columns exist.
var ErrInsufficientColumns = errors.New("insufficient numeric columns for correlation")

// NumericColumns lists the columns whose non-empty values are all numbers,
// in merged header order. The derived Total Seconds column is appended when
// any session has a duration.
func NumericColumns(rows []model.Session) []string {
	var out []string
	for _, col := range MergedColumns(rows) {
		if col == model.ColTotalSeconds {
			continue
		}
		if isNumericColumn(rows, col) {
			out = append(out, col)
		}
	}
	for _, s := range rows {
		if s.DurationSeconds != nil {
			out = append(out, model.ColTotalSeconds)
			break
		}
	}
	return out
}

func isNumericColumn(rows []model.Session, col string) bool {
	seen := false
	for _, s := range rows {
		v := s.Values[col]
		switch v.Kind {
		case model.KindEmpty:
			continue
		case model.KindNumber:
			seen = true
		default:
			return false
		}
	}
	return seen
}

// columnValues returns the observed values of a numeric column. The result
// is aligned with rows; ok[i] is false where the row has no value.
func columnValues(rows []model.Session, col string) ([]float64, []bool) {
	values := make([]float64, len(rows))
	ok := make([]bool, len(rows))
	for i, s := range rows {
		if col == model.ColTotalSeconds {
			if s.DurationSeconds != nil {
				values[i], ok[i] = *s.DurationSeconds, true
			}
			continue
		}
		values[i], ok[i] = s.Number(col)
	}
	return values, ok
}

// DescribeNumeric computes count, mean, sample standard deviation (N-1), min,
// quartiles and max for every numeric column. Quartiles use linear
// interpolation between closest ranks.
func DescribeNumeric(rows []model.Session) []model.ColumnSummary {
	cols := NumericColumns(rows)
	out := make([]model.ColumnSummary, 0, len(cols))
	for _, col := range cols {
		values, ok := columnValues(rows, col)
		observed := make([]float64, 0, len(values))
		for i, v := range values {
			if ok[i] {
				observed = append(observed, v)
			}
		}
		if len(observed) == 0 {
			continue
		}
		out = append(out, describe(col, observed))
	}
	return out
}

func describe(col string, values []float64) model.ColumnSummary {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	summary := model.ColumnSummary{
		Column: col,
		Count:  len(sorted),
		Mean:   stat.Mean(sorted, nil),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		P25:    Percentile(sorted, 0.25),
		P50:    Percentile(sorted, 0.50),
		P75:    Percentile(sorted, 0.75),
	}
	if len(sorted) > 1 {
		std := stat.StdDev(sorted, nil)
		summary.Std = &std
	}
	return summary
}

// Percentile returns the p-th quantile (0..1) of ascending values using
// linear interpolation at rank p*(n-1).
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	rank := p * float64(n-1)
	lo := int(math.Floor(rank))
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Correlate computes the Pearson correlation of every pair of numeric
// columns over the rows where both are present.
func Correlate(rows []model.Session) (model.CorrelationMatrix, error) {
	cols := NumericColumns(rows)
	if len(cols) < 2 {
		return model.CorrelationMatrix{Columns: cols}, ErrInsufficientColumns
	}
	values := make([][]float64, len(cols))
	present := make([][]bool, len(cols))
	for i, col := range cols {
		values[i], present[i] = columnValues(rows, col)
	}

	matrix := model.CorrelationMatrix{
		Columns: cols,
		Values:  make([][]*float64, len(cols)),
	}
	for i := range cols {
		matrix.Values[i] = make([]*float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := pairCorrelation(values[i], present[i], values[j], present[j])
			matrix.Values[i][j] = r
			matrix.Values[j][i] = r
		}
	}
	return matrix, nil
}

func pairCorrelation(x []float64, xok []bool, y []float64, yok []bool) *float64 {
	var xs, ys []float64
	for i := range x {
		if xok[i] && yok[i] {
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
	}
	if len(xs) < 2 {
		return nil
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil
	}
	return &r
}
