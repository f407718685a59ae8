package stats

import (
	"fmt"
	"io"
	"strings"
)

// Bar is one labelled count.
type Bar struct {
	Label string
	Value int
}

const (
	barFull     = "█"
	minBarWidth = 10
)

var barEighths = []string{"", "▏", "▎", "▍", "▌", "▋", "▊", "▉"}

// PlotBars renders one horizontal bar per entry, scaled to the largest value.
func PlotBars(w io.Writer, title string, bars []Bar, width int) error {
	if len(bars) == 0 {
		return nil
	}
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	labelWidth, countWidth, peak := 0, 0, 0
	for _, b := range bars {
		labelWidth = maxInt(labelWidth, displayWidth(b.Label))
		countWidth = maxInt(countWidth, len(fmt.Sprint(b.Value)))
		peak = maxInt(peak, b.Value)
	}
	if width <= 0 {
		width = terminalWidth()
	}
	barWidth := width - labelWidth - countWidth - 2*displayWidth(axisSeparator)
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}
	for _, b := range bars {
		line := padCell(b.Label, labelWidth, false) + axisSeparator +
			padCell(renderBar(b.Value, peak, barWidth), barWidth, false) + axisSeparator +
			padCell(fmt.Sprint(b.Value), countWidth, true)
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func renderBar(value, peak, width int) string {
	if value <= 0 || peak <= 0 {
		return ""
	}
	eighths := value * width * 8 / peak
	if eighths == 0 {
		eighths = 1
	}
	return strings.Repeat(barFull, eighths/8) + barEighths[eighths%8]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
