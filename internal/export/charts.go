package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/verte-zerg/simdash/internal/model"
	"github.com/verte-zerg/simdash/internal/pipeline"
)

// Chart file names written by WriteCharts.
const (
	ChartDuration       = "duration.png"
	ChartSpeed          = "speed.png"
	ChartSessionsPerDay = "sessions_per_day.png"
)

const (
	chartWidth  = 1024
	chartHeight = 512
	barWidth    = 40
	barSpacing  = 12
)

// ChartFiles lists the charts that were written and the ones skipped for lack of data.
type ChartFiles struct {
	Written []string
	Skipped []string
}

// WriteCharts renders the duration, speed and sessions-per-day charts as PNG files in dir.
func WriteCharts(dir string, res model.Result) (ChartFiles, error) {
	var files ChartFiles
	charts := []struct {
		name  string
		build func(model.Result) (renderer, bool)
	}{
		{ChartDuration, durationChart},
		{ChartSpeed, speedChart},
		{ChartSessionsPerDay, sessionsPerDayChart},
	}
	for _, c := range charts {
		r, ok := c.build(res)
		if !ok {
			files.Skipped = append(files.Skipped, c.name)
			continue
		}
		path := filepath.Join(dir, c.name)
		if err := renderPNG(path, r); err != nil {
			return files, err
		}
		files.Written = append(files.Written, path)
	}
	return files, nil
}

type renderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func renderPNG(path string, r renderer) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close chart: %w", cerr)
		}
	}()
	if err := r.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
	}
	return nil
}

func durationChart(res model.Result) (renderer, bool) {
	var times []time.Time
	var minutes []float64
	for _, s := range pipeline.ByDate(res.Sessions) {
		if s.DurationSeconds == nil {
			continue
		}
		times = append(times, *s.ParsedDate)
		minutes = append(minutes, *s.DurationSeconds/60)
	}
	if len(times) == 0 {
		return nil, false
	}
	times, minutes = padTimes(times, minutes)
	graph := &chart.Chart{
		Title:  "Duration over time",
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Name: "Date", ValueFormatter: chart.TimeDateValueFormatter},
		YAxis:  chart.YAxis{Name: "Minutes", Range: valueRange(minutes)},
		Series: []chart.Series{
			chart.TimeSeries{Name: "Duration", XValues: times, YValues: minutes},
		},
	}
	return graph, true
}

func speedChart(res model.Result) (renderer, bool) {
	type group struct {
		times  []time.Time
		speeds []float64
	}
	var order []string
	groups := map[string]*group{}
	var all []float64
	var first, last time.Time
	for _, s := range pipeline.ByDate(res.Sessions) {
		speed, ok := s.Number(model.ColAverageSpeed)
		if !ok {
			continue
		}
		material := pipeline.MaterialOf(s)
		g, ok := groups[material]
		if !ok {
			g = &group{}
			groups[material] = g
			order = append(order, material)
		}
		if len(all) == 0 {
			first = *s.ParsedDate
		}
		last = *s.ParsedDate
		g.times = append(g.times, *s.ParsedDate)
		g.speeds = append(g.speeds, speed)
		all = append(all, speed)
	}
	if len(all) == 0 {
		return nil, false
	}
	series := make([]chart.Series, 0, len(order))
	for i, material := range order {
		g := groups[material]
		times, speeds := g.times, g.speeds
		if i == 0 && first.Equal(last) {
			times, speeds = padTimes(times, speeds)
		}
		series = append(series, chart.TimeSeries{
			Name:    material,
			XValues: times,
			YValues: speeds,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    4,
				DotColor:    chart.GetDefaultColor(i),
			},
		})
	}
	graph := &chart.Chart{
		Title:  "Average speed by material",
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Name: "Date", ValueFormatter: chart.TimeDateValueFormatter},
		YAxis:  chart.YAxis{Name: "km/h", Range: valueRange(all)},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(graph)}
	return graph, true
}

func sessionsPerDayChart(res model.Result) (renderer, bool) {
	if len(res.Days) == 0 {
		return nil, false
	}
	bars := make([]chart.Value, 0, len(res.Days))
	peak := 0
	for _, d := range res.Days {
		bars = append(bars, chart.Value{Label: d.Day.Format("2006-01-02"), Value: float64(d.SessionCount)})
		if d.SessionCount > peak {
			peak = d.SessionCount
		}
	}
	width := chartWidth
	if need := 2*barWidth + len(bars)*(barWidth+barSpacing); need > width {
		width = need
	}
	return &chart.BarChart{
		Title:      "Sessions per day",
		Width:      width,
		Height:     chartHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Bars:       bars,
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: float64(peak + 1)}},
	}, true
}

// padTimes adds a second point a minute later when every point shares one time,
// so the x axis has a non-zero range.
func padTimes(times []time.Time, values []float64) ([]time.Time, []float64) {
	for _, t := range times[1:] {
		if !t.Equal(times[0]) {
			return times, values
		}
	}
	return append(times, times[0].Add(time.Minute)), append(values, values[len(values)-1])
}

func valueRange(values []float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	pad := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
