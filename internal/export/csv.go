package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"

	"github.com/verte-zerg/simdash/internal/model"
)

// Derived columns appended to the merged CSV.
const (
	ColParsedDate   = "Parsed Date"
	ColTotalSeconds = model.ColTotalSeconds
)

// WriteMergedCSV writes the merged sessions with their parsed date and duration.
// Cells keep their raw text; derived cells are empty when the field did not parse.
// A derived column is left out when the logs already carry a column of that name.
func WriteMergedCSV(w io.Writer, sessions []model.Session, columns []string) error {
	withDate := !contains(columns, ColParsedDate)
	withSeconds := !contains(columns, ColTotalSeconds)
	header := append([]string(nil), columns...)
	if withDate {
		header = append(header, ColParsedDate)
	}
	if withSeconds {
		header = append(header, ColTotalSeconds)
	}

	records := make([][]string, 0, len(sessions)+1)
	records = append(records, header)
	for _, s := range sessions {
		record := make([]string, 0, len(header))
		for _, col := range columns {
			record = append(record, s.Text(col))
		}
		if withDate {
			record = append(record, formatParsedDate(s.ParsedDate))
		}
		if withSeconds {
			record = append(record, formatSeconds(s.DurationSeconds))
		}
		records = append(records, record)
	}
	if len(sessions) == 0 {
		// Dataframes need at least one row.
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
		cw.Flush()
		return cw.Error()
	}

	df := dataframe.LoadRecords(records, dataframe.DetectTypes(false), dataframe.HasHeader(true))
	if df.Err != nil {
		return fmt.Errorf("failed to build merged table: %w", df.Err)
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("failed to write merged csv: %w", err)
	}
	return nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func formatParsedDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatSeconds(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
