package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/simdash/internal/model"
)

func table(name string, columns []string, rows ...map[string]model.Value) model.RawTable {
	return model.RawTable{Name: name, Columns: columns, Rows: rows}
}

func str(s string) model.Value { return model.StringValue(s) }

func num(f float64) model.Value { return model.NumberValue(f) }

func ptr(f float64) *float64 { return &f }

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func sessionsCols() []string {
	return []string{"Date", "Total Time", "Average Speed (km/h)"}
}

func TestScenarioTwoTablesSameDay(t *testing.T) {
	tables := []model.RawTable{
		table("a.csv", sessionsCols(), map[string]model.Value{
			"Date": str("2024-01-01"), "Total Time": str("1:30"), "Average Speed (km/h)": num(80),
		}),
		table("b.csv", sessionsCols(), map[string]model.Value{
			"Date": str("2024-01-01"), "Total Time": str("2:00"), "Average Speed (km/h)": num(100),
		}),
	}
	res := Run(tables)

	assert.Equal(t, 2, res.Summary.TotalSessions)
	assert.Equal(t, 1, res.Summary.DistinctDays)
	require.NotNil(t, res.Summary.MeanDurationSeconds)
	assert.InDelta(t, 105.0, *res.Summary.MeanDurationSeconds, 1e-9)
	require.NotNil(t, res.Summary.TotalDurationSeconds)
	assert.InDelta(t, 210.0, *res.Summary.TotalDurationSeconds, 1e-9)
	require.NotNil(t, res.Summary.MeanAverageSpeed)
	assert.InDelta(t, 90.0, *res.Summary.MeanAverageSpeed, 1e-9)
	assert.Nil(t, res.Summary.MaxTopSpeed)

	require.Len(t, res.Days, 1)
	assert.Equal(t, day(2024, 1, 1), res.Days[0].Day)
	assert.Equal(t, 2, res.Days[0].SessionCount)
	require.NotNil(t, res.Days[0].MeanDurationSeconds)
	assert.InDelta(t, 105.0, *res.Days[0].MeanDurationSeconds, 1e-9)
}

func TestScenarioMalformedDuration(t *testing.T) {
	rows := Normalize([]model.RawTable{
		table("a.csv", sessionsCols(),
			map[string]model.Value{"Date": str("2024-01-01"), "Total Time": str("abc"), "Average Speed (km/h)": num(70)},
			map[string]model.Value{"Date": str("2024-01-02"), "Total Time": str("1:00"), "Average Speed (km/h)": num(90)},
		),
	})
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].DurationSeconds)

	summary := ComputeSummary(rows)
	assert.Equal(t, 2, summary.TotalSessions)
	require.NotNil(t, summary.MeanDurationSeconds)
	assert.InDelta(t, 60.0, *summary.MeanDurationSeconds, 1e-9)
	require.NotNil(t, summary.MeanAverageSpeed)
	assert.InDelta(t, 80.0, *summary.MeanAverageSpeed, 1e-9)
}

func TestScenarioEmptyInput(t *testing.T) {
	for _, tables := range [][]model.RawTable{nil, {table("empty.csv", sessionsCols())}} {
		res := Run(tables)
		assert.Equal(t, 0, res.Summary.TotalSessions)
		assert.Equal(t, 0, res.Summary.DistinctDays)
		assert.Nil(t, res.Summary.MeanDurationSeconds)
		assert.Nil(t, res.Summary.TotalDurationSeconds)
		assert.Nil(t, res.Summary.MeanAverageSpeed)
		assert.Nil(t, res.Summary.MaxTopSpeed)
		assert.Empty(t, res.Days)
		assert.Empty(t, res.Numeric)
		assert.ErrorIs(t, res.CorrelateErr, ErrInsufficientColumns)
	}
}

func TestScenarioMarkedHeaderMerges(t *testing.T) {
	tables := []model.RawTable{
		table("a.csv", []string{"\uFEFFDate", "Total Time"}, map[string]model.Value{
			"\uFEFFDate": str("2024-03-01"), "Total Time": str("0:45"),
		}),
		table("b.csv", []string{"Date", "Total Time"}, map[string]model.Value{
			"Date": str("2024-03-01"), "Total Time": str("1:15"),
		}),
	}
	rows := Normalize(tables)
	require.Len(t, rows, 2)
	for _, s := range rows {
		require.NotNil(t, s.ParsedDate)
		_, marked := s.Values["\uFEFFDate"]
		assert.False(t, marked)
	}
	assert.Equal(t, []string{"Date", "Total Time"}, MergedColumns(rows))

	days := AggregateByDay(rows)
	require.Len(t, days, 1)
	assert.Equal(t, 2, days[0].SessionCount)
}

func TestScenarioSingleNumericColumn(t *testing.T) {
	rows := Normalize([]model.RawTable{
		table("a.csv", []string{"Date", "Top Speed (Km/h)", "Setting Track Material"},
			map[string]model.Value{"Date": str("2024-01-01"), "Top Speed (Km/h)": num(120), "Setting Track Material": str("Asphalt")},
			map[string]model.Value{"Date": str("2024-01-02"), "Top Speed (Km/h)": num(140), "Setting Track Material": str("Gravel")},
		),
	})
	described := DescribeNumeric(rows)
	require.Len(t, described, 1)
	assert.Equal(t, "Top Speed (Km/h)", described[0].Column)

	matrix, err := Correlate(rows)
	require.ErrorIs(t, err, ErrInsufficientColumns)
	assert.Nil(t, matrix.Values)
}

func TestConcatenationPreservesOrder(t *testing.T) {
	tables := []model.RawTable{
		table("a.csv", []string{"Lap"}, map[string]model.Value{"Lap": num(1)}, map[string]model.Value{"Lap": num(2)}),
		table("b.csv", []string{"Lap"}),
		table("c.csv", []string{"Lap"}, map[string]model.Value{"Lap": num(3)}),
	}
	rows := Normalize(tables)
	require.Len(t, rows, 3)
	for i, s := range rows {
		v, ok := s.Number("Lap")
		require.True(t, ok)
		assert.Equal(t, float64(i+1), v)
	}
	assert.Equal(t, "c.csv", rows[2].Source)
	assert.Equal(t, 3, ComputeSummary(rows).TotalSessions)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name string
		in   model.Value
		want *float64
	}{
		{"minutes and seconds", str("1:30"), ptr(90)},
		{"padded", str("01:05"), ptr(65)},
		{"fractional seconds", str("2:03.5"), ptr(123.5)},
		{"surrounding space", str(" 0:59 "), ptr(59)},
		{"no separator", str("90"), nil},
		{"non numeric", str("abc"), nil},
		{"hours form", str("1:02:03"), nil},
		{"empty minutes", str(":30"), nil},
		{"negative", str("-1:30"), nil},
		{"number cell", num(90), nil},
		{"empty cell", model.Value{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDuration(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestParseDate(t *testing.T) {
	got := ParseDate(str("2024-02-29"))
	require.NotNil(t, got)
	assert.Equal(t, day(2024, 2, 29), model.DayOf(*got))

	withTime := ParseDate(str("2024-02-29 18:45:00"))
	require.NotNil(t, withTime)
	assert.Equal(t, day(2024, 2, 29), model.DayOf(*withTime))

	dayFirst := ParseDate(str("13/02/2024"))
	require.NotNil(t, dayFirst)
	assert.Equal(t, day(2024, 2, 13), model.DayOf(*dayFirst))

	dayFirstTime := ParseDate(str("25/12/2023 10:00"))
	require.NotNil(t, dayFirstTime)
	assert.Equal(t, day(2023, 12, 25), model.DayOf(*dayFirstTime))
	assert.Equal(t, 10, dayFirstTime.Hour())

	assert.Nil(t, ParseDate(str("not a date")))
	assert.Nil(t, ParseDate(str("")))
	assert.Nil(t, ParseDate(model.Value{}))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	first := Normalize([]model.RawTable{
		table("a.csv", sessionsCols(),
			map[string]model.Value{"Date": str("2024-01-01 10:15:00"), "Total Time": str("1:30"), "Average Speed (km/h)": num(80)},
			map[string]model.Value{"Date": str("garbage"), "Total Time": str("2:07.25")},
			map[string]model.Value{"Date": str("2024-01-03"), "Total Time": str("x:y")},
		),
	})
	second := Normalize([]model.RawTable{Denormalize("again", first)})
	require.Len(t, second, len(first))
	for i := range first {
		if first[i].ParsedDate == nil {
			assert.Nil(t, second[i].ParsedDate, "row %d date", i)
		} else {
			require.NotNil(t, second[i].ParsedDate, "row %d date", i)
			assert.True(t, first[i].ParsedDate.Equal(*second[i].ParsedDate), "row %d date", i)
		}
		assert.Equal(t, first[i].DurationSeconds, second[i].DurationSeconds, "row %d duration", i)
	}
}

func TestCountInvariants(t *testing.T) {
	rows := Normalize([]model.RawTable{
		table("a.csv", sessionsCols(),
			map[string]model.Value{"Date": str("2024-01-01"), "Total Time": str("1:00")},
			map[string]model.Value{"Date": str("2024-01-02"), "Total Time": str("bad")},
			map[string]model.Value{"Date": str("nope"), "Total Time": str("3:00")},
			map[string]model.Value{"Date": str("2024-01-01"), "Total Time": str("")},
		),
	})
	summary := ComputeSummary(rows)
	days := AggregateByDay(rows)

	dated := 0
	for _, s := range rows {
		if s.ParsedDate != nil {
			dated++
		}
	}
	sum := 0
	for _, d := range days {
		sum += d.SessionCount
	}
	assert.Equal(t, 4, summary.TotalSessions)
	assert.Equal(t, 2, summary.DistinctDays)
	assert.LessOrEqual(t, summary.DistinctDays, summary.TotalSessions)
	assert.Equal(t, dated, sum)
	assert.LessOrEqual(t, sum, summary.TotalSessions)

	require.Len(t, days, 2)
	assert.True(t, days[0].Day.Before(days[1].Day))
	assert.Equal(t, 2, days[0].SessionCount)
	assert.Nil(t, days[1].MeanDurationSeconds)
	assert.Nil(t, days[1].MeanAverageSpeed)
}

func TestDescribeNumeric(t *testing.T) {
	var rows []map[string]model.Value
	for _, v := range []float64{1, 2, 3, 4} {
		rows = append(rows, map[string]model.Value{"Laps": num(v), "Track": str("Monza")})
	}
	rows = append(rows, map[string]model.Value{"Track": str("Spa")})
	described := DescribeNumeric(Normalize([]model.RawTable{table("a.csv", []string{"Laps", "Track"}, rows...)}))
	require.Len(t, described, 1)
	d := described[0]
	assert.Equal(t, "Laps", d.Column)
	assert.Equal(t, 4, d.Count)
	assert.InDelta(t, 2.5, d.Mean, 1e-9)
	require.NotNil(t, d.Std)
	assert.InDelta(t, 1.2909944487, *d.Std, 1e-9)
	assert.Equal(t, 1.0, d.Min)
	assert.InDelta(t, 1.75, d.P25, 1e-9)
	assert.InDelta(t, 2.5, d.P50, 1e-9)
	assert.InDelta(t, 3.25, d.P75, 1e-9)
	assert.Equal(t, 4.0, d.Max)
}

func TestDescribeSingleValueHasNoStd(t *testing.T) {
	described := DescribeNumeric(Normalize([]model.RawTable{
		table("a.csv", []string{"Laps"}, map[string]model.Value{"Laps": num(7)}),
	}))
	require.Len(t, described, 1)
	assert.Nil(t, described[0].Std)
	assert.Equal(t, 7.0, described[0].P75)
}

func TestMixedColumnIsNotNumeric(t *testing.T) {
	rows := Normalize([]model.RawTable{
		table("a.csv", []string{"Fuel"}, map[string]model.Value{"Fuel": num(3)}),
		table("b.csv", []string{"Fuel"}, map[string]model.Value{"Fuel": str("full")}),
	})
	assert.Empty(t, NumericColumns(rows))
}

func TestCorrelate(t *testing.T) {
	rows := Normalize([]model.RawTable{
		table("a.csv", []string{"Total Time", "Average Speed (km/h)", "Flat"},
			map[string]model.Value{"Total Time": str("1:00"), "Average Speed (km/h)": num(60), "Flat": num(1)},
			map[string]model.Value{"Total Time": str("2:00"), "Average Speed (km/h)": num(80), "Flat": num(1)},
			map[string]model.Value{"Total Time": str("3:00"), "Average Speed (km/h)": num(100), "Flat": num(1)},
		),
	})
	matrix, err := Correlate(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"Average Speed (km/h)", "Flat", "Total Seconds"}, matrix.Columns)
	require.NotNil(t, matrix.Values[0][2])
	assert.InDelta(t, 1.0, *matrix.Values[0][2], 1e-9)
	assert.Equal(t, matrix.Values[0][2], matrix.Values[2][0])
	assert.Nil(t, matrix.Values[0][1], "zero variance column has no coefficient")
}

func TestPercentile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50}
	assert.Equal(t, 10.0, Percentile(sorted, 0))
	assert.Equal(t, 20.0, Percentile(sorted, 0.25))
	assert.Equal(t, 30.0, Percentile(sorted, 0.5))
	assert.Equal(t, 50.0, Percentile(sorted, 1))
	assert.InDelta(t, 14.0, Percentile(sorted, 0.1), 1e-9)
}

func TestApplyFilter(t *testing.T) {
	rows := Normalize([]model.RawTable{
		table("a.csv", []string{"Date", "Setting Track Material"},
			map[string]model.Value{"Date": str("2024-01-01"), "Setting Track Material": str("Asphalt")},
			map[string]model.Value{"Date": str("2024-01-05"), "Setting Track Material": str("Gravel")},
			map[string]model.Value{"Date": str("bad"), "Setting Track Material": str("asphalt")},
		),
	})
	assert.Len(t, Apply(rows, model.Filter{}), 3)
	assert.Len(t, Apply(rows, model.Filter{Material: "ASPHALT"}), 2)

	since := day(2024, 1, 2)
	filtered := Apply(rows, model.Filter{Since: &since})
	require.Len(t, filtered, 1)
	assert.Equal(t, "Gravel", filtered[0].Text("Setting Track Material"))
	assert.Equal(t, []string{"Asphalt", "Gravel", "asphalt"}, Materials(rows))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1:30", FormatDuration(90))
	assert.Equal(t, "0:05", FormatDuration(5))
	assert.Equal(t, "2:03.5", FormatDuration(123.5))
}
