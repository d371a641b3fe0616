package tui

import (
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/render"
	"github.com/recera/conceptmap/pkg/conceptmap/viewport"
)

func TestCellsClearAndText(t *testing.T) {
	c := NewCells(10, 3)
	w, h := c.Size()
	assert.Equal(t, 80.0, w)
	assert.Equal(t, 48.0, h)

	c.Clear("#000000")
	c.Text(ToPixel(5, 1), "abc", render.TextStyle{Color: "#ffffff", Alpha: 1, Align: render.AlignCenter})
	assert.Equal(t, "    abc   ", c.Row(1))
	assert.Equal(t, "#ffffff", c.At(4, 1).FG)

	c.Text(ToPixel(9, 0), "end", render.TextStyle{Color: "#ffffff", Alpha: 1, Align: render.AlignRight})
	assert.Equal(t, "       end", c.Row(0))

	c.Text(ToPixel(8, 2), "clipped", render.TextStyle{Color: "#ffffff", Alpha: 1})
	assert.Equal(t, "        cl", c.Row(2))
}

func TestCellsCircleUsesTransform(t *testing.T) {
	c := NewCells(20, 10)
	c.Clear("#000000")
	c.SetTransform(viewport.Transform{Zoom: 2, Pan: viewport.Point{X: 0, Y: 0}})
	// world (40, 40) is pixel (80, 80): cell (10, 5)
	c.Circle(render.Point{X: 40, Y: 40}, 10, render.Paint{Color: "#ff0000", Alpha: 1}, render.None)
	assert.Equal(t, "#ff0000", c.At(10, 5).BG)
	assert.Equal(t, "#000000", c.At(0, 0).BG)

	// half alpha blends with the background
	c.SetTransform(viewport.Identity)
	c.Circle(ToPixel(2, 2), 4, render.Paint{Color: "#ffffff", Alpha: 0.5}, render.None)
	assert.Equal(t, render.Blend("#ffffff", "#000000", 0.5), c.At(2, 2).BG)
}

func TestCellsTinyCircleGetsDot(t *testing.T) {
	c := NewCells(4, 4)
	c.Clear("#000000")
	c.Circle(render.Point{X: 1, Y: 1}, 1, render.Paint{Color: "#00ff00", Alpha: 1}, render.None)
	assert.Equal(t, '●', c.At(0, 0).Ch)
}

func TestCellsLine(t *testing.T) {
	c := NewCells(10, 3)
	c.Clear("#000000")
	c.Line(ToPixel(1, 1), ToPixel(8, 1), render.Paint{Color: "#ffffff", Alpha: 1, Width: 1})
	assert.Equal(t, " ──────── ", c.Row(1))

	c.Clear("#000000")
	c.Line(ToPixel(4, 0), ToPixel(4, 2), render.Paint{Color: "#ffffff", Alpha: 1, Width: 1})
	for row := range 3 {
		assert.Equal(t, '│', c.At(4, row).Ch)
	}

	c.Clear("#000000")
	c.Line(ToPixel(0, 0), ToPixel(9, 0), render.None)
	assert.Equal(t, strings.Repeat(" ", 10), c.Row(0))
}

func TestCellsArrow(t *testing.T) {
	c := NewCells(4, 4)
	c.Clear("#000000")
	tip := ToPixel(2, 1)
	c.Polygon([]render.Point{tip, {X: tip.X - 9, Y: tip.Y - 4}, {X: tip.X - 9, Y: tip.Y + 4}}, render.Paint{Color: "#ffffff", Alpha: 1})
	assert.Equal(t, '▸', c.At(2, 1).Ch)
}

func payload() graph.Payload {
	return graph.Payload{
		Concepts: []graph.Concept{
			{ID: "A", Name: "Entity", Category: "tactical", Difficulty: graph.Beginner, Description: "Has identity", Examples: []string{"Order"}},
			{ID: "B", Name: "Value Object", Category: "tactical", Difficulty: graph.Beginner},
			{ID: "C", Name: "Bounded Context", Category: "strategic", Difficulty: graph.Advanced},
		},
		Relationships: []graph.Relationship{
			{From: "A", To: "B", Type: graph.UsedBy},
			{From: "B", To: "C", Type: graph.BelongsTo},
		},
	}
}

func newModel(t *testing.T) Model {
	t.Helper()
	m, err := New(Options{Payload: payload()})
	require.NoError(t, err)
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelLayout(t *testing.T) {
	m := newModel(t)
	cols, rows := m.cells.Dims()
	assert.Equal(t, 120-panelWidth, cols)
	assert.Equal(t, 40-chromeRows, rows)

	m = update(t, m, tickMsg(time.Unix(0, 0)))
	m = update(t, m, tickMsg(time.Unix(1, 0)))
	w, h := m.eng.Size()
	assert.Equal(t, float64(cols*CellWidth), w, "resize applied after the debounce")
	assert.Equal(t, float64(rows*CellHeight), h)

	view := m.View()
	assert.Contains(t, view, "Click a concept")
	assert.Contains(t, view, "3 concepts loaded")

	narrow := update(t, m, tea.WindowSizeMsg{Width: 50, Height: 20})
	cols, _ = narrow.cells.Dims()
	assert.Equal(t, 50, cols, "panel hidden on narrow terminals")
}

func TestModelCycleShowsDetail(t *testing.T) {
	m := newModel(t)
	m = update(t, m, keyMsg("tab"))
	require.NotNil(t, m.state.detail)
	assert.Equal(t, "A", m.state.detail.ID)

	view := m.View()
	assert.Contains(t, view, "Entity")
	assert.Contains(t, view, "Has identity")
	assert.Contains(t, view, "• Order")
	assert.Contains(t, view, "→ Value Object")

	m = update(t, m, keyMsg("p"))
	assert.Equal(t, "C", m.state.detail.ID, "wraps backwards")

	m = update(t, m, keyMsg("esc"))
	m = update(t, m, tickMsg(time.Now()))
	assert.Nil(t, m.state.detail)
}

func TestModelSearch(t *testing.T) {
	m := newModel(t)
	m = update(t, m, keyMsg("/"))
	assert.True(t, m.searching)
	for _, r := range "bound" {
		m = update(t, m, keyMsg(string(r)))
	}
	assert.Equal(t, "bound", m.Filter().Query)
	visible := 0
	for _, c := range m.eng.Concepts() {
		if c.Visible {
			visible++
		}
	}
	assert.Equal(t, 1, visible)

	// q is text while searching
	m = update(t, m, keyMsg("q"))
	assert.False(t, m.quitting)

	m = update(t, m, keyMsg("esc"))
	assert.False(t, m.searching)
	assert.True(t, m.Filter().IsZero())
}

func TestModelCategoryAndLevelCycles(t *testing.T) {
	m := newModel(t)
	m = update(t, m, keyMsg("c"))
	assert.Equal(t, []graph.Category{"strategic"}, m.Filter().Categories)
	m = update(t, m, keyMsg("c"))
	assert.Equal(t, []graph.Category{"tactical"}, m.Filter().Categories)
	m = update(t, m, keyMsg("c"))
	assert.Empty(t, m.Filter().Categories)

	m = update(t, m, keyMsg("d"))
	assert.Equal(t, []graph.Difficulty{graph.Beginner}, m.Filter().Difficulties)
	assert.Equal(t, m.Filter(), m.eng.Filter())
}

func TestModelKeysDriveViewport(t *testing.T) {
	m := newModel(t)
	m = update(t, m, keyMsg("r"))
	m = update(t, m, tickMsg(time.Now()))
	assert.Equal(t, viewport.Identity, m.eng.Transform())

	m = update(t, m, keyMsg("+"))
	m = update(t, m, tickMsg(time.Now()))
	assert.Greater(t, m.eng.Transform().Zoom, 1.0)

	m = update(t, m, keyMsg("r"))
	m = update(t, m, tickMsg(time.Now()))
	m = update(t, m, keyMsg("l"))
	assert.Equal(t, viewport.Point{X: -panStep}, m.eng.Transform().Pan)
}

func TestModelMouseClickSelects(t *testing.T) {
	m := newModel(t)
	m = update(t, m, keyMsg("r"))
	m = update(t, m, tickMsg(time.Unix(0, 0)))

	world, ok := m.eng.Position("B")
	require.True(t, ok)
	s := m.eng.Transform().WorldToScreen(world)
	col, row := int(math.Floor(s.X/CellWidth)), int(math.Floor(s.Y/CellHeight))

	m = update(t, m, tea.MouseMsg{X: col, Y: row, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = update(t, m, tea.MouseMsg{X: col, Y: row, Action: tea.MouseActionRelease})
	m = update(t, m, tickMsg(time.Unix(0, int64(16*time.Millisecond))))
	require.NotNil(t, m.state.detail)
	assert.Equal(t, "B", m.state.detail.ID)
}

func TestModelPayloadAndQuit(t *testing.T) {
	m := newModel(t)
	p := payload()
	p.Relationships = append(p.Relationships, graph.Relationship{From: "A", To: "ghost"})
	m = update(t, m, PayloadMsg{Payload: p})
	assert.Contains(t, m.View(), "warning")

	next, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.View())
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Engine: conceptmap.Options{MinZoom: 3, MaxZoom: 1}})
	var cfgErr *conceptmap.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
