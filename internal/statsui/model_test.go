package statsui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/simdash/internal/model"
	"github.com/verte-zerg/simdash/internal/pipeline"
)

func testSessions() []model.Session {
	columns := []string{model.ColDate, model.ColTotalTime, model.ColAverageSpeed, model.ColTopSpeed, model.ColTrackMaterial}
	row := func(date, total string, avg, top float64, material string) map[string]model.Value {
		return map[string]model.Value{
			model.ColDate:          model.StringValue(date),
			model.ColTotalTime:     model.StringValue(total),
			model.ColAverageSpeed:  model.NumberValue(avg),
			model.ColTopSpeed:      model.NumberValue(top),
			model.ColTrackMaterial: model.StringValue(material),
		}
	}
	return pipeline.Normalize([]model.RawTable{{
		Name:    "log.csv",
		Columns: columns,
		Rows: []map[string]model.Value{
			row("2024-01-01", "1:30", 80, 120, "Asphalt"),
			row("2024-01-02", "2:00", 60, 131, "Gravel"),
			row("2024-01-03", "0:45", 70, 110, "Asphalt"),
		},
	}})
}

func sized(t *testing.T, m *Model) *Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(*Model)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewShowsOverview(t *testing.T) {
	m := sized(t, NewModel(testSessions(), Options{}))
	view := m.View()
	assert.Contains(t, view, "Overview")
	assert.Contains(t, view, "Total sessions")
	assert.Contains(t, view, "sessions=3/3")
	assert.Contains(t, view, "Files: log.csv")
}

func TestViewBeforeResizeIsEmpty(t *testing.T) {
	assert.Empty(t, NewModel(testSessions(), Options{}).View())
}

func TestEmptyDashboard(t *testing.T) {
	m := sized(t, NewModel(nil, Options{}))
	assert.Contains(t, m.View(), noSessions)
	for i := 0; i < len(m.tabs); i++ {
		m.moveTab(1)
		assert.Contains(t, m.View(), noSessions, "tab %s", m.tabs[m.activeTab])
	}
}

func TestMoveTabWraps(t *testing.T) {
	m := sized(t, NewModel(testSessions(), Options{}))
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, tabDescribe, m.activeTab)
	assert.Contains(t, m.View(), "Average Speed (km/h)")
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabOverview, m.activeTab)
}

func TestFilterFormAppliesMaterial(t *testing.T) {
	m := sized(t, NewModel(testSessions(), Options{}))
	m.Update(keyRunes("/"))
	require.True(t, m.filterMode)
	m.Update(keyRunes("asphalt"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.False(t, m.filterMode)
	assert.Equal(t, "asphalt", m.Filter().Material)
	assert.Equal(t, 2, m.Result().Summary.TotalSessions)
	assert.Contains(t, m.View(), "sessions=2/3")
}

func TestFilterFormDateBounds(t *testing.T) {
	m := sized(t, NewModel(testSessions(), Options{}))
	m.Update(keyRunes("/"))
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.Update(keyRunes("2024-01-02"))
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.Update(keyRunes("2024-01-02"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.False(t, m.filterMode)
	require.Len(t, m.Result().Sessions, 1)
	assert.Equal(t, "Gravel", m.Result().Sessions[0].Text(model.ColTrackMaterial))
}

func TestFilterFormRejectsBadDate(t *testing.T) {
	m := sized(t, NewModel(testSessions(), Options{}))
	m.Update(keyRunes("/"))
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.Update(keyRunes("yesterday"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.True(t, m.filterMode)
	assert.Contains(t, m.filterError, "invalid since date")
	assert.Contains(t, m.View(), "invalid since date")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.filterMode)
	assert.Len(t, m.Result().Sessions, 3)
}

func TestQuitKey(t *testing.T) {
	m := sized(t, NewModel(testSessions(), Options{}))
	_, cmd := m.Update(keyRunes("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestNarrowOverviewStacksCards(t *testing.T) {
	out := renderOverview(pipeline.Analyze(testSessions()), 60)
	assert.GreaterOrEqual(t, strings.Count(out, "╭"), 6)
}
