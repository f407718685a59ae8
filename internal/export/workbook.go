// Package export writes session statistics to spreadsheets, CSV files and PNG charts.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/verte-zerg/simdash/internal/model"
)

// Workbook sheet names.
const (
	SheetSummary     = "Summary"
	SheetPerDay      = "Per Day"
	SheetDescribe    = "Describe"
	SheetCorrelation = "Correlation"
)

const defaultSheet = "Sheet1"

// WriteWorkbook saves the summary, per-day, describe and correlation tables as one xlsx file.
// Missing values are written as empty cells.
func WriteWorkbook(path string, res model.Result) error {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close; SaveAs already reported write errors.
			_ = cerr
		}
	}()

	if err := f.SetSheetName(defaultSheet, SheetSummary); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetSummary, summaryRows(res.Summary)},
		{SheetPerDay, dailyRows(res.Days)},
		{SheetDescribe, describeRows(res.Numeric)},
		{SheetCorrelation, correlationRows(res.Correlation, res.CorrelateErr)},
	}
	for i, sheet := range sheets {
		if i > 0 {
			if _, err := f.NewSheet(sheet.name); err != nil {
				return fmt.Errorf("failed to add sheet %s: %w", sheet.name, err)
			}
		}
		if err := writeRows(f, sheet.name, sheet.rows); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func summaryRows(m model.SummaryMetrics) [][]any {
	return [][]any{
		{"Metric", "Value"},
		{"Total sessions", m.TotalSessions},
		{"Days of use", m.DistinctDays},
		{"Mean duration (s)", cellFloat(m.MeanDurationSeconds)},
		{"Total duration (s)", cellFloat(m.TotalDurationSeconds)},
		{"Mean speed (km/h)", cellFloat(m.MeanAverageSpeed)},
		{"Top speed (km/h)", cellFloat(m.MaxTopSpeed)},
	}
}

func dailyRows(days []model.DayAggregate) [][]any {
	rows := [][]any{{"Day", "Sessions", "Mean duration (s)", "Mean speed (km/h)"}}
	for _, d := range days {
		rows = append(rows, []any{
			d.Day.Format("2006-01-02"),
			d.SessionCount,
			cellFloat(d.MeanDurationSeconds),
			cellFloat(d.MeanAverageSpeed),
		})
	}
	return rows
}

func describeRows(cols []model.ColumnSummary) [][]any {
	rows := [][]any{{"Column", "Count", "Mean", "Std", "Min", "25%", "50%", "75%", "Max"}}
	for _, c := range cols {
		rows = append(rows, []any{c.Column, c.Count, c.Mean, cellFloat(c.Std), c.Min, c.P25, c.P50, c.P75, c.Max})
	}
	return rows
}

func correlationRows(m model.CorrelationMatrix, err error) [][]any {
	if err != nil {
		return [][]any{{err.Error()}}
	}
	header := []any{""}
	for _, col := range m.Columns {
		header = append(header, col)
	}
	rows := [][]any{header}
	for i, col := range m.Columns {
		row := []any{col}
		for _, v := range m.Values[i] {
			row = append(row, cellFloat(v))
		}
		rows = append(rows, row)
	}
	return rows
}

func cellFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
