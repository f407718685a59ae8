package pipeline

import (
	"sort"
	"time"

	"github.com/verte-zerg/simdash/internal/model"
)

// AggregateByDay groups dated sessions by calendar day, ordered by day.
// Sessions without a parsed date are left out entirely.
func AggregateByDay(rows []model.Session) []model.DayAggregate {
	type bucket struct {
		day      time.Time
		duration accumulator
		speed    accumulator
		count    int
	}
	buckets := map[int64]*bucket{}
	for _, s := range rows {
		if s.ParsedDate == nil {
			continue
		}
		day := model.DayOf(*s.ParsedDate)
		key := day.Unix()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{day: day}
			buckets[key] = b
		}
		b.count++
		if s.DurationSeconds != nil {
			b.duration.add(*s.DurationSeconds)
		}
		if v, ok := s.Number(model.ColAverageSpeed); ok {
			b.speed.add(v)
		}
	}

	out := make([]model.DayAggregate, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, model.DayAggregate{
			Day:                 b.day,
			MeanDurationSeconds: b.duration.mean(),
			MeanAverageSpeed:    b.speed.mean(),
			SessionCount:        b.count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Day.Before(out[j].Day)
	})
	return out
}
