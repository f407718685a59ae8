// Package stats renders session statistics as text tables and terminal plots.
package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series is a named sequence of values plotted left to right.
type Series struct {
	Name   string
	Values []float64
}

// Point is one scatter sample.
type Point struct {
	X float64
	Y float64
}

// PointSeries is a named group of scatter samples.
type PointSeries struct {
	Name   string
	Points []Point
}

// ColorMode selects when plots use ANSI colors.
type ColorMode int

const (
	// ColorAuto colors output written to a terminal.
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// PlotOptions sizes a plot. Zero width follows the terminal.
type PlotOptions struct {
	Width  int
	Height int
	Color  ColorMode
	// XLabels are printed under the left and right plot edges.
	XLabels [2]string
}

type lineStyle struct {
	name   string
	period int
	on     int
}

const (
	defaultPlotHeight   = 10
	minPlotWidth        = 10
	axisLabelWidth      = 8
	axisSeparator       = " │ "
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

var lineStyles = []lineStyle{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
	{name: "dashdot", period: 8, on: 3},
}

var colorPalette = []string{
	"\x1b[36m", // cyan
	"\x1b[35m", // magenta
	"\x1b[33m", // yellow
	"\x1b[32m", // green
	"\x1b[34m", // blue
	"\x1b[31m", // red
}

// canvas is a grid of braille cells, each holding 2x4 dots.
type canvas struct {
	width  int
	height int
	cells  [][]uint8
	owner  [][]int
}

func newCanvas(width, height int) *canvas {
	c := &canvas{width: width, height: height}
	c.cells = make([][]uint8, height)
	c.owner = make([][]int, height)
	for y := range c.cells {
		c.cells[y] = make([]uint8, width)
		c.owner[y] = make([]int, width)
		for x := range c.owner[y] {
			c.owner[y][x] = -1
		}
	}
	return c
}

func (c *canvas) dotWidth() int  { return c.width * 2 }
func (c *canvas) dotHeight() int { return c.height * 4 }

// set turns on the dot at (x, y); y grows downward.
func (c *canvas) set(x, y, series int) {
	if x < 0 || y < 0 || x >= c.dotWidth() || y >= c.dotHeight() {
		return
	}
	cy, cx := y/4, x/2
	c.cells[cy][cx] |= brailleDotMask(x%2, y%4)
	if c.owner[cy][cx] < 0 {
		c.owner[cy][cx] = series
	}
}

func (c *canvas) line(x0, y0, x1, y1, series int, style lineStyle) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		if style.shouldPlot(x0) {
			c.set(x0, y0, series)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *canvas) render(useColor bool) []string {
	lines := make([]string, c.height)
	for y := 0; y < c.height; y++ {
		var b strings.Builder
		for x := 0; x < c.width; x++ {
			ch := rune(0x2800 + int(c.cells[y][x]))
			owner := c.owner[y][x]
			if useColor && owner >= 0 {
				b.WriteString(colorPalette[owner%len(colorPalette)])
				b.WriteRune(ch)
				b.WriteString(colorReset)
				continue
			}
			b.WriteRune(ch)
		}
		lines[y] = b.String()
	}
	return lines
}

func (ls lineStyle) shouldPlot(x int) bool {
	if ls.period <= 1 {
		return true
	}
	return absInt(x)%ls.period < ls.on
}

// PlotSeries renders value series as connected lines on a shared scale.
func PlotSeries(w io.Writer, title string, series []Series, opts PlotOptions) error {
	series = filterSeries(series)
	if len(series) == 0 {
		return nil
	}
	width, height := plotSize(opts)
	lo, hi := valueRange(series)
	c := newCanvas(width, height)
	for si, s := range series {
		values := resampleSeries(s.Values, width)
		style := lineStyles[si%len(lineStyles)]
		prevX, prevY := -1, -1
		for i, v := range values {
			x := i * 2
			y := valueToRow(v, lo, hi, c.dotHeight())
			if prevX >= 0 {
				c.line(prevX, prevY, x, y, si, style)
			} else {
				c.set(x, y, si)
			}
			prevX, prevY = x, y
		}
	}
	names := make([]string, len(series))
	for i, s := range series {
		names[i] = fmt.Sprintf("%s (%s)", s.Name, lineStyles[i%len(lineStyles)].name)
	}
	return writePlot(w, title, c, lo, hi, names, opts)
}

// ScatterPoints renders point groups on shared axes, one color per group.
func ScatterPoints(w io.Writer, title string, groups []PointSeries, opts PlotOptions) error {
	var all []Point
	kept := make([]PointSeries, 0, len(groups))
	for _, g := range groups {
		if len(g.Points) == 0 {
			continue
		}
		kept = append(kept, g)
		all = append(all, g.Points...)
	}
	if len(all) == 0 {
		return nil
	}
	width, height := plotSize(opts)
	xlo, xhi := pointRange(all, func(p Point) float64 { return p.X })
	ylo, yhi := pointRange(all, func(p Point) float64 { return p.Y })
	c := newCanvas(width, height)
	for gi, g := range kept {
		for _, p := range g.Points {
			x := int(math.Round((p.X - xlo) / (xhi - xlo) * float64(c.dotWidth()-1)))
			c.set(x, valueToRow(p.Y, ylo, yhi, c.dotHeight()), gi)
		}
	}
	names := make([]string, len(kept))
	for i, g := range kept {
		names[i] = fmt.Sprintf("%s (%d)", g.Name, len(g.Points))
	}
	return writePlot(w, title, c, ylo, yhi, names, opts)
}

// PlotTimeline draws one series as a line through x-positioned points, so a
// busy stretch of x keeps its true width. Points must be sorted by X.
func PlotTimeline(w io.Writer, title string, s PointSeries, opts PlotOptions) error {
	if len(s.Points) == 0 {
		return nil
	}
	width, height := plotSize(opts)
	xlo, xhi := pointRange(s.Points, func(p Point) float64 { return p.X })
	ylo, yhi := pointRange(s.Points, func(p Point) float64 { return p.Y })
	c := newCanvas(width, height)
	col := func(p Point) int {
		return int(math.Round((p.X - xlo) / (xhi - xlo) * float64(c.dotWidth()-1)))
	}
	px, py := col(s.Points[0]), valueToRow(s.Points[0].Y, ylo, yhi, c.dotHeight())
	c.set(px, py, 0)
	for _, p := range s.Points[1:] {
		x, y := col(p), valueToRow(p.Y, ylo, yhi, c.dotHeight())
		c.line(px, py, x, y, 0, lineStyles[0])
		px, py = x, y
	}
	names := []string{fmt.Sprintf("%s (%d)", s.Name, len(s.Points))}
	return writePlot(w, title, c, ylo, yhi, names, opts)
}

func writePlot(w io.Writer, title string, c *canvas, lo, hi float64, names []string, opts PlotOptions) error {
	useColor := shouldUseColor(w, opts.Color)
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	labels := axisLabels(c.height, lo, hi)
	for y, row := range c.render(useColor) {
		if _, err := fmt.Fprintf(w, "%*s%s%s\n", axisLabelWidth, labels[y], axisSeparator, row); err != nil {
			return err
		}
	}
	if opts.XLabels[0] != "" || opts.XLabels[1] != "" {
		if _, err := fmt.Fprintln(w, xAxisLine(opts.XLabels, c.width)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, renderLegend(names, useColor)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func xAxisLine(labels [2]string, width int) string {
	pad := strings.Repeat(" ", axisLabelWidth+runewidth.StringWidth(axisSeparator))
	gap := width - runewidth.StringWidth(labels[0]) - runewidth.StringWidth(labels[1])
	if gap < 1 {
		gap = 1
	}
	return pad + labels[0] + strings.Repeat(" ", gap) + labels[1]
}

func axisLabels(height int, lo, hi float64) []string {
	labels := make([]string, height)
	if height <= 0 {
		return labels
	}
	labels[0] = formatAxis(hi)
	if height > 2 {
		labels[height/2] = formatAxis((lo + hi) / 2)
	}
	if height > 1 {
		labels[height-1] = formatAxis(lo)
	}
	return labels
}

func formatAxis(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	if len(s) > axisLabelWidth {
		s = fmt.Sprintf("%.2g", v)
	}
	return s
}

func renderLegend(names []string, useColor bool) string {
	parts := make([]string, 0, len(names))
	for i, name := range names {
		label := "⠿ " + name
		if useColor {
			label = colorPalette[i%len(colorPalette)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

func plotSize(opts PlotOptions) (int, int) {
	height := opts.Height
	if height <= 0 {
		height = defaultPlotHeight
	}
	width := opts.Width
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}
	return width, height
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	plotWidth := totalWidth - axisLabelWidth - runewidth.StringWidth(axisSeparator)
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, mode ColorMode) bool {
	if mode == ColorNever || os.Getenv("NO_COLOR") != "" {
		return false
	}
	if mode == ColorAlways {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func filterSeries(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// valueRange returns the shared min and max, widened when flat.
func valueRange(series []Series) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return widen(lo, hi)
}

func pointRange(points []Point, axis func(Point) float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		lo = math.Min(lo, axis(p))
		hi = math.Max(hi, axis(p))
	}
	return widen(lo, hi)
}

func widen(lo, hi float64) (float64, float64) {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return 0, 1
	}
	if math.Abs(hi-lo) < 1e-9 {
		return lo - 1, hi + 1
	}
	return lo, hi
}

// resampleSeries averages down or linearly interpolates up to width samples.
func resampleSeries(values []float64, width int) []float64 {
	n := len(values)
	if n == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	switch {
	case n == width:
		copy(out, values)
	case n > width:
		for i := range out {
			start := i * n / width
			end := (i + 1) * n / width
			if end <= start {
				end = start + 1
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(n-1) / float64(width-1)
			idx := int(pos)
			if idx >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func valueToRow(v, lo, hi float64, rows int) int {
	if rows <= 1 {
		return 0
	}
	pos := (v - lo) / (hi - lo)
	row := int(math.Round((1 - pos) * float64(rows-1)))
	return clampInt(row, 0, rows-1)
}

func brailleDotMask(x, y int) uint8 {
	if x == 0 {
		return [4]uint8{0x01, 0x02, 0x04, 0x40}[y]
	}
	return [4]uint8{0x08, 0x10, 0x20, 0x80}[y]
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
