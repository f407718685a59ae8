package stats

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/verte-zerg/simdash/internal/model"
	"github.com/verte-zerg/simdash/internal/pipeline"
)

const missing = "-"

// Metric is one labelled headline value.
type Metric struct {
	Label string
	Value string
}

// SummaryMetrics formats the headline numbers the way the report prints them.
func SummaryMetrics(m model.SummaryMetrics) []Metric {
	return []Metric{
		{Label: "Total sessions", Value: strconv.Itoa(m.TotalSessions)},
		{Label: "Days of use", Value: strconv.Itoa(m.DistinctDays)},
		{Label: "Mean duration (s)", Value: formatOptional(m.MeanDurationSeconds, 1)},
		{Label: "Total duration (min)", Value: formatOptional(scale(m.TotalDurationSeconds, 1.0/60), 1)},
		{Label: "Mean speed (km/h)", Value: formatOptional(m.MeanAverageSpeed, 1)},
		{Label: "Top speed (km/h)", Value: formatOptional(m.MaxTopSpeed, 1)},
	}
}

// RenderSummary writes the headline metrics as a two-column table.
func RenderSummary(w io.Writer, m model.SummaryMetrics) error {
	metrics := SummaryMetrics(m)
	rows := make([][]string, 0, len(metrics))
	for _, metric := range metrics {
		rows = append(rows, []string{metric.Label, metric.Value})
	}
	return writeSection(w, "Summary", formatTable(nil, rows, map[int]bool{1: true}))
}

// DailyRows formats per-day aggregates as table cells.
func DailyRows(days []model.DayAggregate) ([]string, [][]string) {
	headers := []string{"Day", "Sessions", "Mean duration (s)", "Mean speed (km/h)"}
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{
			d.Day.Format("2006-01-02"),
			strconv.Itoa(d.SessionCount),
			formatOptional(d.MeanDurationSeconds, 1),
			formatOptional(d.MeanAverageSpeed, 1),
		})
	}
	return headers, rows
}

// RenderDaily writes one row per calendar day.
func RenderDaily(w io.Writer, days []model.DayAggregate) error {
	if len(days) == 0 {
		return writeSection(w, "Per day", []string{"No dated sessions."})
	}
	headers, rows := DailyRows(days)
	return writeSection(w, "Per day", formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true}))
}

// DescribeRows formats descriptive statistics as table cells.
func DescribeRows(cols []model.ColumnSummary) ([]string, [][]string) {
	headers := []string{"Column", "Count", "Mean", "Std", "Min", "25%", "50%", "75%", "Max"}
	rows := make([][]string, 0, len(cols))
	for _, c := range cols {
		rows = append(rows, []string{
			c.Column,
			strconv.Itoa(c.Count),
			formatFloat(c.Mean, 2),
			formatOptional(c.Std, 2),
			formatFloat(c.Min, 2),
			formatFloat(c.P25, 2),
			formatFloat(c.P50, 2),
			formatFloat(c.P75, 2),
			formatFloat(c.Max, 2),
		})
	}
	return headers, rows
}

// RenderDescribe writes count, mean, std, min, quartiles and max per numeric column.
func RenderDescribe(w io.Writer, cols []model.ColumnSummary) error {
	if len(cols) == 0 {
		return writeSection(w, "Describe", []string{"No numeric columns."})
	}
	headers, rows := DescribeRows(cols)
	right := map[int]bool{}
	for i := 1; i < len(headers); i++ {
		right[i] = true
	}
	return writeSection(w, "Describe", formatTable(headers, rows, right))
}

// CorrelationLines renders the matrix, or the reason it could not be built.
func CorrelationLines(m model.CorrelationMatrix, err error) []string {
	if errors.Is(err, pipeline.ErrInsufficientColumns) {
		return []string{"Not enough numeric columns for a correlation matrix."}
	}
	if err != nil {
		return []string{fmt.Sprintf("Correlation unavailable: %v", err)}
	}
	headers := append([]string{""}, m.Columns...)
	rows := make([][]string, 0, len(m.Columns))
	right := map[int]bool{}
	for i, col := range m.Columns {
		row := []string{col}
		for _, v := range m.Values[i] {
			row = append(row, formatOptional(v, 2))
		}
		rows = append(rows, row)
		right[i+1] = true
	}
	return formatTable(headers, rows, right)
}

// RenderCorrelation writes the Pearson matrix of the numeric columns.
func RenderCorrelation(w io.Writer, m model.CorrelationMatrix, err error) error {
	return writeSection(w, "Correlation", CorrelationLines(m, err))
}

// RenderDurationPlot draws session duration in minutes over time.
func RenderDurationPlot(w io.Writer, sessions []model.Session, opts PlotOptions) error {
	series := PointSeries{Name: "duration"}
	var first, last string
	for _, s := range pipeline.ByDate(sessions) {
		if s.DurationSeconds == nil {
			continue
		}
		date := s.ParsedDate.Format("2006-01-02")
		if first == "" {
			first = date
		}
		last = date
		series.Points = append(series.Points, Point{X: float64(s.ParsedDate.Unix()), Y: *s.DurationSeconds / 60})
	}
	if len(series.Points) == 0 {
		return writeSection(w, "Duration over time", []string{"No dated sessions with a duration."})
	}
	opts.XLabels = [2]string{first, last}
	return PlotTimeline(w, "Duration over time (min)", series, opts)
}

// RenderSpeedScatter plots average speed against date, one color per track material.
func RenderSpeedScatter(w io.Writer, sessions []model.Session, opts PlotOptions) error {
	dated := pipeline.ByDate(sessions)
	index := map[string]int{}
	var groups []PointSeries
	var first, last string
	for _, s := range dated {
		speed, ok := s.Number(model.ColAverageSpeed)
		if !ok {
			continue
		}
		date := s.ParsedDate.Format("2006-01-02")
		if first == "" {
			first = date
		}
		last = date
		material := pipeline.MaterialOf(s)
		i, ok := index[material]
		if !ok {
			i = len(groups)
			index[material] = i
			groups = append(groups, PointSeries{Name: material})
		}
		groups[i].Points = append(groups[i].Points, Point{X: float64(s.ParsedDate.Unix()), Y: speed})
	}
	if len(groups) == 0 {
		return writeSection(w, "Average speed", []string{"No dated sessions with an average speed."})
	}
	opts.XLabels = [2]string{first, last}
	return ScatterPoints(w, "Average speed by material (km/h)", groups, opts)
}

// RenderDailyTrend plots the mean session duration of each day of use in
// day order. Days without a duration are left out.
func RenderDailyTrend(w io.Writer, days []model.DayAggregate, opts PlotOptions) error {
	var values []float64
	var first, last string
	for _, d := range days {
		if d.MeanDurationSeconds == nil {
			continue
		}
		label := d.Day.Format("2006-01-02")
		if first == "" {
			first = label
		}
		last = label
		values = append(values, *d.MeanDurationSeconds/60)
	}
	if len(values) == 0 {
		return writeSection(w, "Mean duration per day of use", []string{"No dated sessions with a duration."})
	}
	opts.XLabels = [2]string{first, last}
	return PlotSeries(w, "Mean duration per day of use (min)", []Series{{Name: "mean duration", Values: values}}, opts)
}

// RenderSessionsPerDay draws one bar per calendar day.
func RenderSessionsPerDay(w io.Writer, days []model.DayAggregate, width int) error {
	bars := make([]Bar, 0, len(days))
	for _, d := range days {
		bars = append(bars, Bar{Label: d.Day.Format("2006-01-02"), Value: d.SessionCount})
	}
	if len(bars) == 0 {
		return writeSection(w, "Sessions per day", []string{"No dated sessions."})
	}
	return PlotBars(w, "Sessions per day", bars, width)
}

// RenderReport writes every section of the text report.
func RenderReport(w io.Writer, res model.Result, opts PlotOptions) error {
	if len(res.Sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	steps := []func() error{
		func() error { return RenderSummary(w, res.Summary) },
		func() error { return RenderDaily(w, res.Days) },
		func() error { return RenderDurationPlot(w, res.Sessions, opts) },
		func() error { return RenderSpeedScatter(w, res.Sessions, opts) },
		func() error { return RenderSessionsPerDay(w, res.Days, opts.Width) },
		func() error { return RenderDailyTrend(w, res.Days, opts) },
		func() error { return RenderDescribe(w, res.Numeric) },
		func() error { return RenderCorrelation(w, res.Correlation, res.CorrelateErr) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func writeSection(w io.Writer, title string, lines []string) error {
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func formatOptional(v *float64, prec int) string {
	if v == nil {
		return missing
	}
	return formatFloat(*v, prec)
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func scale(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v * factor
	return &out
}
