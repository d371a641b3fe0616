// Package tui hosts the concept map in a terminal with bubbletea. The
// engine draws into a grid of cells, mouse input is mapped to pointer
// events and the detail panel sits to the right of the map.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/interact"
)

// Layout constants in terminal cells
const (
	panelWidth     = 34
	minCanvasWidth = 40
	chromeRows     = 2
	panStep        = 40.0
)

// Options configures a Model
type Options struct {
	Engine  conceptmap.Options
	Payload graph.Payload
	// FPS is the tick rate (default 30)
	FPS    int
	Logger *slog.Logger
}

// PayloadMsg replaces the concept set, e.g. after the content changed
type PayloadMsg struct {
	Payload graph.Payload
}

// ErrMsg shows an error in the status line
type ErrMsg struct {
	Err error
}

type tickMsg time.Time

// panel is written by the engine callbacks. It is shared by pointer
// because bubbletea copies the Model on every update.
type panel struct {
	detail  *conceptmap.Detail
	hovered string
}

// Model is the bubbletea model
type Model struct {
	eng   *conceptmap.Engine
	cells *Cells
	state *panel
	log   *slog.Logger

	keys      KeyMap
	help      help.Model
	search    textinput.Model
	searching bool
	// indices into categories / graph.Difficulties; -1 means any
	category int
	level    int

	width, height int
	fps           int
	last          time.Time
	status        string
	quitting      bool
}

// New creates the model and lays out the payload. A data-integrity
// problem is reported in the status line, not returned.
func New(o Options) (Model, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	state := &panel{}
	cells := NewCells(80, 22)

	opts := o.Engine
	opts.Logger = logger
	opts.OnSelect = func(d conceptmap.Detail) { state.detail = &d }
	opts.OnClose = func() { state.detail = nil }
	opts.OnHover = func(id string) { state.hovered = id }
	eng, err := conceptmap.New(cells, opts)
	if err != nil {
		return Model{}, err
	}

	search := textinput.New()
	search.Placeholder = "search concepts"
	search.Prompt = "/ "
	search.CharLimit = 64

	fps := o.FPS
	if fps <= 0 {
		fps = 30
	}

	m := Model{
		eng:      eng,
		cells:    cells,
		state:    state,
		log:      logger,
		keys:     DefaultKeyMap,
		help:     help.New(),
		search:   search,
		category: -1,
		level:    -1,
		fps:      fps,
	}
	m.load(o.Payload)
	return m, nil
}

func (m *Model) load(p graph.Payload) {
	err := m.eng.SetConceptsData(p)
	m.eng.FitGraph(m.eng.Options().FitPadding)
	var integrity *graph.DataIntegrityError
	switch {
	case errors.As(err, &integrity):
		m.status = "warning: " + integrity.Error()
	case err != nil:
		m.status = "error: " + err.Error()
	default:
		m.status = fmt.Sprintf("%d concepts loaded", len(p.Concepts))
	}
}

// Engine exposes the engine for tests and hosts
func (m Model) Engine() *conceptmap.Engine { return m.eng }

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the frame ticker
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		cols, rows := m.canvasDims()
		m.cells.Resize(cols, rows)
		m.eng.Resize(float64(cols*CellWidth), float64(rows*CellHeight))
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		t := time.Time(msg)
		var dt time.Duration
		if !m.last.IsZero() {
			dt = t.Sub(m.last)
		}
		m.last = t
		m.eng.Frame(dt)
		return m, m.tick()

	case PayloadMsg:
		m.load(msg.Payload)
		return m, nil

	case ErrMsg:
		m.log.Error("content", "error", msg.Err)
		m.status = "error: " + msg.Err.Error()
		return m, nil

	case tea.MouseMsg:
		if ev, ok := pointerEvent(msg); ok {
			m.eng.Dispatch(ev)
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Filter):
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Up):
		m.eng.PanBy(0, panStep)
	case key.Matches(msg, m.keys.Down):
		m.eng.PanBy(0, -panStep)
	case key.Matches(msg, m.keys.Left):
		m.eng.PanBy(panStep, 0)
	case key.Matches(msg, m.keys.Right):
		m.eng.PanBy(-panStep, 0)
	case key.Matches(msg, m.keys.ZoomIn):
		m.forward(interact.ZoomIn)
	case key.Matches(msg, m.keys.ZoomOut):
		m.forward(interact.ZoomOut)
	case key.Matches(msg, m.keys.Reset):
		m.forward(interact.ResetView)
	case key.Matches(msg, m.keys.Fit):
		m.forward(interact.FitGraph)
	case key.Matches(msg, m.keys.Close):
		m.forward(interact.ClosePanel)
	case key.Matches(msg, m.keys.Next):
		m.cycle(1)
	case key.Matches(msg, m.keys.Prev):
		m.cycle(-1)
	case key.Matches(msg, m.keys.Category):
		cats := m.categories()
		m.category = step(m.category, len(cats))
		m.applyFilter()
	case key.Matches(msg, m.keys.Level):
		m.level = step(m.level, len(graph.Difficulties))
		m.applyFilter()
	}
	return m, nil
}

// forward sends the engine the key its keymap binds to c
func (m Model) forward(c interact.Command) {
	keys := m.eng.Options().Keymap.Keys(c)
	if len(keys) == 0 {
		return
	}
	m.eng.Dispatch(interact.Event{Type: interact.Key, Key: keys[0]})
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.applyFilter()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.applyFilter()
	return m, cmd
}

// Filter returns the filter built from the search box and the category
// and difficulty cycles
func (m Model) Filter() conceptmap.Filter {
	f := conceptmap.Filter{Query: m.search.Value()}
	if cats := m.categories(); m.category >= 0 && m.category < len(cats) {
		f.Categories = []graph.Category{cats[m.category]}
	}
	if m.level >= 0 && m.level < len(graph.Difficulties) {
		f.Difficulties = []graph.Difficulty{graph.Difficulties[m.level]}
	}
	return f
}

func (m Model) applyFilter() {
	m.eng.SetFilter(m.Filter())
}

func (m Model) categories() []graph.Category {
	var cats []graph.Category
	for _, c := range m.eng.Concepts() {
		if !slices.Contains(cats, c.Category) {
			cats = append(cats, c.Category)
		}
	}
	slices.Sort(cats)
	return cats
}

// step advances a -1..n-1 cycle
func step(i, n int) int {
	if n == 0 {
		return -1
	}
	i++
	if i >= n {
		return -1
	}
	return i
}

// cycle focuses the next or previous visible concept
func (m Model) cycle(dir int) {
	m.eng.FocusNext(dir)
}

// pointerEvent maps a terminal mouse event to the centre of its cell
func pointerEvent(msg tea.MouseMsg) (interact.Event, bool) {
	p := ToPixel(msg.X, msg.Y)
	ev := interact.Event{X: p.X, Y: p.Y}
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		ev.Type, ev.DeltaY = interact.Wheel, -100
	case msg.Button == tea.MouseButtonWheelDown:
		ev.Type, ev.DeltaY = interact.Wheel, 100
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		ev.Type = interact.PointerDown
	case msg.Action == tea.MouseActionRelease:
		ev.Type = interact.PointerUp
	case msg.Action == tea.MouseActionMotion:
		ev.Type = interact.PointerMove
	default:
		return interact.Event{}, false
	}
	return ev, true
}

// canvasDims returns the map size in cells for the current window
func (m Model) canvasDims() (cols, rows int) {
	cols = m.width
	if m.width-panelWidth >= minCanvasWidth {
		cols = m.width - panelWidth
	}
	return max(cols, 1), max(m.height-chromeRows, 1)
}

var (
	mutedColor   = lipgloss.Color("#94a3b8")
	accentColor  = lipgloss.Color("#9ad0ff")
	warningColor = lipgloss.Color("#f59e0b")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	statusStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	warnStyle = lipgloss.NewStyle().
			Foreground(warningColor)
)

// View renders the map, the panel and the status and help lines
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	body := m.cells.View()
	cols, rows := m.canvasDims()
	if m.width-cols > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.panelView(m.width-cols, rows))
	}

	var status string
	switch {
	case m.searching:
		status = m.search.View()
	case strings.HasPrefix(m.status, "warning") || strings.HasPrefix(m.status, "error"):
		status = warnStyle.Render(m.status)
	default:
		status = statusStyle.Render(m.statusLine())
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, status, m.help.View(m.keys))
}

func (m Model) statusLine() string {
	parts := []string{m.status}
	if f := m.Filter(); !f.IsZero() {
		var crit []string
		if f.Query != "" {
			crit = append(crit, fmt.Sprintf("%q", f.Query))
		}
		for _, c := range f.Categories {
			crit = append(crit, string(c))
		}
		for _, d := range f.Difficulties {
			crit = append(crit, d.String())
		}
		parts = append(parts, "filter: "+strings.Join(crit, ", "))
	}
	if m.state.hovered != "" {
		if d, ok := m.eng.Detail(m.state.hovered); ok {
			parts = append(parts, "› "+d.Name)
		}
	}
	return strings.Join(parts, "  ·  ")
}

func (m Model) panelView(width, height int) string {
	inner := width - panelStyle.GetHorizontalFrameSize()
	style := panelStyle.Width(inner).Height(max(height-panelStyle.GetVerticalFrameSize(), 1))
	d := m.state.detail
	if d == nil {
		return style.Render(mutedStyle.Render("Click a concept or press tab to see its details."))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(d.Name))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(d.Difficulty.Title() + " · " + string(d.Category)))
	if d.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Width(inner).Render(d.Description))
	}
	if len(d.Examples) > 0 {
		b.WriteString("\n\nExamples\n")
		for _, ex := range d.Examples {
			b.WriteString("• " + ex + "\n")
		}
	}
	if len(d.RelatedConceptIDs) > 0 {
		b.WriteString("\nRelated\n")
		for _, id := range d.RelatedConceptIDs {
			name := id
			if rd, ok := m.eng.Detail(id); ok {
				name = rd.Name
			}
			b.WriteString("→ " + name + "\n")
		}
	}
	return style.Render(strings.TrimRight(b.String(), "\n"))
}

// NewProgram wraps m in a full-screen program with mouse tracking. Payload
// updates can be pushed with the program's Send.
func NewProgram(m Model, opts ...tea.ProgramOption) *tea.Program {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseAllMotion()}, opts...)
	return tea.NewProgram(m, opts...)
}
