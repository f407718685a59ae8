// Package statsui provides the Bubble Tea session dashboard.
package statsui

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/simdash/internal/model"
	"github.com/verte-zerg/simdash/internal/pipeline"
	"github.com/verte-zerg/simdash/internal/stats"
)

const (
	tabOverview = iota
	tabDuration
	tabSpeed
	tabCorrelations
	tabPerDay
	tabDescribe
)

const (
	defaultPlotHeight = 10
	noSessions        = "No sessions found."
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Options configures the dashboard.
type Options struct {
	Filter     model.Filter
	PlotHeight int
}

// Model implements the Bubble Tea dashboard.
type Model struct {
	sessions []model.Session
	filter   model.Filter
	result   model.Result

	plotHeight int

	tabs           []string
	activeTab      int
	viewports      []viewport.Model
	describeTable  table.Model
	describeLayout tableLayout

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

type tableLayout struct {
	width  int
	height int
}

// NewModel constructs a dashboard over normalized sessions.
func NewModel(sessions []model.Session, opts Options) *Model {
	m := &Model{
		sessions:   sessions,
		filter:     opts.Filter,
		plotHeight: opts.PlotHeight,
		tabs:       []string{"Overview", "Duration", "Speed", "Correlations", "Per Day", "Describe"},
	}
	if m.plotHeight <= 0 {
		m.plotHeight = defaultPlotHeight
	}
	m.initInputs()
	m.describeTable = newDescribeTable()
	m.initViewports()
	m.refreshResult()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "/":
			return m.startFilter()
		case "g", "home":
			if m.activeTab == tabDescribe {
				m.describeTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabDescribe {
				m.describeTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabDescribe {
				var cmd tea.Cmd
				m.describeTable, cmd = m.describeTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

// Result returns the statistics behind the current view.
func (m *Model) Result() model.Result {
	return m.result
}

// Filter returns the active session filter.
func (m *Model) Filter() model.Filter {
	return m.filter
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Material: "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Until (YYYY-MM-DD): "),
	}
	m.filterInputs[0].Placeholder = strings.Join(pipeline.Materials(m.sessions), ", ")
	m.setInputsFromFilter()
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromFilter() {
	m.filterInputs[0].SetValue(m.filter.Material)
	m.filterInputs[1].SetValue(formatDay(m.filter.Since))
	m.filterInputs[2].SetValue(formatDay(m.filter.Until))
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.setDescribeTableSize(m.width, vpHeight)
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabDescribe {
		m.describeTable.Focus()
	} else {
		m.describeTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	material := m.filter.Material
	if material == "" {
		material = "any"
	}
	since, until := "any", "any"
	if m.filter.Since != nil {
		since = formatDay(m.filter.Since)
	}
	if m.filter.Until != nil {
		until = formatDay(m.filter.Until)
	}
	summary := fmt.Sprintf("Filter: material=%s  since=%s  until=%s  sessions=%d/%d",
		material, since, until, len(m.result.Sessions), len(m.sessions))
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel  quit: ctrl+c")
	}
	return headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Filter: /  Quit: q")
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Filter (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabDescribe {
		switch {
		case len(m.result.Sessions) == 0:
			return fitLines(noSessions, m.width, height)
		case len(m.result.Numeric) == 0:
			return fitLines("No numeric columns found.", m.width, height)
		default:
			return fitLines(tableMutedStyle.Render(m.describeTable.View()), m.width, height)
		}
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshResult() {
	m.result = pipeline.Analyze(pipeline.Apply(m.sessions, m.filter))
	cols, rows := describeTableData(m.result.Numeric)
	m.describeTable.SetRows(nil)
	m.describeTable.SetColumns(cols)
	m.describeTable.SetRows(rows)
	m.describeLayout = tableLayout{}
	_, bodyHeight, _ := m.layoutHeights()
	m.setDescribeTableSize(m.contentWidth(), bodyHeight)
	m.renderTabContents()
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	width := m.contentWidth()
	opts := stats.PlotOptions{Width: stats.PlotWidthFor(width), Height: m.plotHeight, Color: stats.ColorAlways}
	res := m.result
	m.viewports[tabOverview].SetContent(renderOverview(res, width))
	m.viewports[tabDuration].SetContent(renderSection(res, func(buf *bytes.Buffer) error {
		return stats.RenderDurationPlot(buf, res.Sessions, opts)
	}))
	m.viewports[tabSpeed].SetContent(renderSection(res, func(buf *bytes.Buffer) error {
		return stats.RenderSpeedScatter(buf, res.Sessions, opts)
	}))
	m.viewports[tabCorrelations].SetContent(renderSection(res, func(buf *bytes.Buffer) error {
		return stats.RenderCorrelation(buf, res.Correlation, res.CorrelateErr)
	}))
	m.viewports[tabPerDay].SetContent(renderSection(res, func(buf *bytes.Buffer) error {
		if err := stats.RenderSessionsPerDay(buf, res.Days, width); err != nil {
			return err
		}
		if err := stats.RenderDailyTrend(buf, res.Days, opts); err != nil {
			return err
		}
		return stats.RenderDaily(buf, res.Days)
	}))
}

func renderSection(res model.Result, render func(*bytes.Buffer) error) string {
	if len(res.Sessions) == 0 {
		return noSessions
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Sprintf("Failed to render: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderOverview(res model.Result, width int) string {
	if len(res.Sessions) == 0 {
		return noSessions
	}
	metrics := stats.SummaryMetrics(res.Summary)
	cards := make([]string, 0, len(metrics))
	for _, metric := range metrics {
		cards = append(cards, metricCard(metric.Label, metric.Value))
	}
	sources := fmt.Sprintf("Files: %s", strings.Join(sourceNames(res.Sessions), ", "))
	materials := fmt.Sprintf("Materials: %s", strings.Join(pipeline.Materials(res.Sessions), ", "))
	info := headerStyle.Render(truncateLine(sources, width)) + "\n" + headerStyle.Render(truncateLine(materials, width))
	if width < 80 {
		return strings.Join(cards, "\n") + "\n\n" + info
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[:3]...)
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3:]...)
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2) + "\n\n" + info
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func sourceNames(sessions []model.Session) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, s := range sessions {
		if _, ok := seen[s.Source]; ok {
			continue
		}
		seen[s.Source] = struct{}{}
		out = append(out, s.Source)
	}
	return out
}

func newDescribeTable() table.Model {
	cols, _ := describeTableData(nil)
	t := table.New(
		table.WithColumns(cols),
		table.WithHeight(1),
	)
	t.SetStyles(describeTableStyles())
	return t
}

func describeTableData(cols []model.ColumnSummary) ([]table.Column, []table.Row) {
	headers, cells := stats.DescribeRows(cols)
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range cells {
		for i, cell := range row {
			widths[i] = maxInt(widths[i], lipgloss.Width(cell))
		}
	}
	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		columns[i] = table.Column{Title: h, Width: widths[i]}
	}
	rows := make([]table.Row, 0, len(cells))
	for _, row := range cells {
		rows = append(rows, table.Row(row))
	}
	return columns, rows
}

func (m *Model) setDescribeTableSize(width, height int) {
	viewportHeight := maxInt(1, height-1)
	if m.describeLayout.width == width && m.describeLayout.height == viewportHeight {
		return
	}
	m.describeLayout.width = width
	m.describeLayout.height = viewportHeight
	m.describeTable.SetWidth(width)
	m.describeTable.SetHeight(viewportHeight)
	viewportHeight = m.adjustDescribeTableHeight(height)
	if m.describeLayout.height != viewportHeight {
		m.describeLayout.height = viewportHeight
		m.describeTable.SetHeight(viewportHeight)
	}
}

func (m *Model) adjustDescribeTableHeight(bodyHeight int) int {
	target := maxInt(1, bodyHeight)
	height := m.describeTable.Height()
	viewHeight := lipgloss.Height(m.describeTable.View())
	if viewHeight == target {
		return height
	}
	height += target - viewHeight
	if height < 1 {
		height = 1
	}
	return height
}

func describeTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromFilter()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshResult()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	material := strings.TrimSpace(m.filterInputs[0].Value())
	since, err := parseDayInput(m.filterInputs[1].Value(), "since")
	if err != nil {
		return err
	}
	until, err := parseDayInput(m.filterInputs[2].Value(), "until")
	if err != nil {
		return err
	}
	if since != nil && until != nil && until.Before(*since) {
		return fmt.Errorf("until date is before since date")
	}
	m.filter = model.Filter{Material: material, Since: since, Until: until}
	return nil
}

func parseDayInput(input, name string) (*time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	parsed, err := pipeline.ParseDay(input)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date (expected YYYY-MM-DD)", name)
	}
	return &parsed, nil
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
