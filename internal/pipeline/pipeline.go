package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/simdash/internal/model"
)

// Run normalizes the tables and derives every statistic from the result.
func Run(tables []model.RawTable) model.Result {
	return Analyze(Normalize(tables))
}

// Analyze derives the statistics of already-normalized sessions.
func Analyze(rows []model.Session) model.Result {
	matrix, err := Correlate(rows)
	return model.Result{
		Columns:      MergedColumns(rows),
		Sessions:     rows,
		Summary:      ComputeSummary(rows),
		Days:         AggregateByDay(rows),
		Numeric:      DescribeNumeric(rows),
		Correlation:  matrix,
		CorrelateErr: err,
	}
}

// Apply returns the sessions matching the filter. Date bounds are inclusive
// calendar days; sessions without a date never match a date bound.
func Apply(rows []model.Session, f model.Filter) []model.Session {
	if !f.Active() {
		return rows
	}
	out := make([]model.Session, 0, len(rows))
	for _, s := range rows {
		if f.Material != "" && !strings.EqualFold(strings.TrimSpace(s.Text(model.ColTrackMaterial)), f.Material) {
			continue
		}
		if f.Since != nil || f.Until != nil {
			if s.ParsedDate == nil {
				continue
			}
			day := model.DayOf(*s.ParsedDate)
			if f.Since != nil && day.Before(model.DayOf(*f.Since)) {
				continue
			}
			if f.Until != nil && day.After(model.DayOf(*f.Until)) {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// Materials lists the distinct track materials in first-seen order.
// Sessions without a material are grouped under "unknown".
func Materials(rows []model.Session) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, s := range rows {
		m := MaterialOf(s)
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// MaterialOf returns the session's track material label.
func MaterialOf(s model.Session) string {
	m := strings.TrimSpace(s.Text(model.ColTrackMaterial))
	if m == "" {
		return "unknown"
	}
	return m
}

// ByDate returns the dated sessions sorted by date; the sort is stable so
// sessions sharing a timestamp keep their merged order.
func ByDate(rows []model.Session) []model.Session {
	out := make([]model.Session, 0, len(rows))
	for _, s := range rows {
		if s.ParsedDate != nil {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ParsedDate.Before(*out[j].ParsedDate)
	})
	return out
}

// ParseDay parses a YYYY-MM-DD filter bound.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.UTC)
}
