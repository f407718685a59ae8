package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/simdash/internal/model"
	"github.com/verte-zerg/simdash/internal/pipeline"
)

func sampleResult() model.Result {
	columns := []string{model.ColDate, model.ColTotalTime, model.ColAverageSpeed, model.ColTopSpeed, model.ColTrackMaterial}
	return pipeline.Run([]model.RawTable{{
		Name:    "log.csv",
		Columns: columns,
		Rows: []map[string]model.Value{
			{
				model.ColDate:          model.StringValue("2024-01-01 10:00"),
				model.ColTotalTime:     model.StringValue("1:30"),
				model.ColAverageSpeed:  model.NumberValue(80),
				model.ColTopSpeed:      model.NumberValue(120),
				model.ColTrackMaterial: model.StringValue("Asphalt"),
			},
			{
				model.ColDate:          model.StringValue("2024-01-02 10:00"),
				model.ColTotalTime:     model.StringValue("2:00"),
				model.ColAverageSpeed:  model.NumberValue(60),
				model.ColTopSpeed:      model.NumberValue(131),
				model.ColTrackMaterial: model.StringValue("Gravel"),
			},
		},
	}})
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, sampleResult().Summary); err != nil {
		t.Fatalf("RenderSummary failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Total sessions", "105.0", "3.5", "70.0", "131.0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in summary: %q", want, out)
		}
	}
}

func TestRenderSummaryMissingValues(t *testing.T) {
	metrics := SummaryMetrics(model.SummaryMetrics{})
	for _, m := range metrics[2:] {
		if m.Value != missing {
			t.Fatalf("expected %q for %s, got %q", missing, m.Label, m.Value)
		}
	}
	if metrics[0].Value != "0" || metrics[1].Value != "0" {
		t.Fatalf("expected zero counts, got %v", metrics[:2])
	}
}

func TestRenderDaily(t *testing.T) {
	var buf bytes.Buffer
	speed := 70.0
	days := []model.DayAggregate{{Day: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), MeanAverageSpeed: &speed, SessionCount: 2}}
	if err := RenderDaily(&buf, days); err != nil {
		t.Fatalf("RenderDaily failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected title, header and one row, got %q", lines)
	}
	if !strings.HasPrefix(lines[2], "2024-01-01") || !strings.Contains(lines[2], "70.0") || !strings.Contains(lines[2], "-") {
		t.Fatalf("unexpected day row %q", lines[2])
	}
}

func TestRenderCorrelationInsufficientColumns(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderCorrelation(&buf, model.CorrelationMatrix{}, pipeline.ErrInsufficientColumns); err != nil {
		t.Fatalf("RenderCorrelation failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Not enough numeric columns") {
		t.Fatalf("expected insufficient columns message, got %q", buf.String())
	}
}

func TestRenderCorrelationMatrix(t *testing.T) {
	one := 1.0
	m := model.CorrelationMatrix{Columns: []string{"A", "B"}, Values: [][]*float64{{&one, nil}, {nil, &one}}}
	lines := CorrelationLines(m, nil)
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", lines)
	}
	if !strings.Contains(lines[1], "1.00") || !strings.HasSuffix(lines[1], "-") {
		t.Fatalf("unexpected matrix row %q", lines[1])
	}
}

func TestRenderReport(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderReport(&buf, sampleResult(), PlotOptions{Width: 40, Height: 4}); err != nil {
		t.Fatalf("RenderReport failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Summary", "Per day", "Duration over time", "Average speed by material", "Sessions per day", "Mean duration per day of use", "Describe", "Correlation", "Asphalt (1)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected section %q in report", want)
		}
	}
}

func TestRenderReportNoSessions(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderReport(&buf, pipeline.Run(nil), PlotOptions{}); err != nil {
		t.Fatalf("RenderReport failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No sessions found." {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestPlotBars(t *testing.T) {
	var buf bytes.Buffer
	err := PlotBars(&buf, "Bars", []Bar{{Label: "a", Value: 4}, {Label: "bb", Value: 1}}, 30)
	if err != nil {
		t.Fatalf("PlotBars failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected title and two bars, got %q", lines)
	}
	if strings.Count(lines[1], barFull) <= strings.Count(lines[2], barFull) {
		t.Fatalf("expected longer bar for larger value: %q", lines)
	}
	if !strings.HasSuffix(lines[1], "4") || !strings.HasSuffix(lines[2], "1") {
		t.Fatalf("expected counts at line end: %q", lines)
	}
}
