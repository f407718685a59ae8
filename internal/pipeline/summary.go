package pipeline

import (
	"github.com/verte-zerg/simdash/internal/model"
)

// ComputeSummary derives the headline metrics. Metrics with no observed
// values stay nil rather than zero.
func ComputeSummary(rows []model.Session) model.SummaryMetrics {
	summary := model.SummaryMetrics{TotalSessions: len(rows)}

	days := map[int64]struct{}{}
	var duration, speed accumulator
	var top maxAccumulator
	for _, s := range rows {
		if s.ParsedDate != nil {
			days[model.DayOf(*s.ParsedDate).Unix()] = struct{}{}
		}
		if s.DurationSeconds != nil {
			duration.add(*s.DurationSeconds)
		}
		if v, ok := s.Number(model.ColAverageSpeed); ok {
			speed.add(v)
		}
		if v, ok := s.Number(model.ColTopSpeed); ok {
			top.add(v)
		}
	}

	summary.DistinctDays = len(days)
	summary.MeanDurationSeconds = duration.mean()
	summary.TotalDurationSeconds = duration.total()
	summary.MeanAverageSpeed = speed.mean()
	summary.MaxTopSpeed = top.value()
	return summary
}

type accumulator struct {
	sum   float64
	count int
}

func (a *accumulator) add(v float64) {
	a.sum += v
	a.count++
}

func (a accumulator) mean() *float64 {
	if a.count == 0 {
		return nil
	}
	m := a.sum / float64(a.count)
	return &m
}

func (a accumulator) total() *float64 {
	if a.count == 0 {
		return nil
	}
	s := a.sum
	return &s
}

type maxAccumulator struct {
	max float64
	set bool
}

func (m *maxAccumulator) add(v float64) {
	if !m.set || v > m.max {
		m.max = v
		m.set = true
	}
}

func (m maxAccumulator) value() *float64 {
	if !m.set {
		return nil
	}
	v := m.max
	return &v
}
