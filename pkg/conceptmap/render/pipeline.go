package render

import (
	"fmt"
	"math"

	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/viewport"
)

// Theme holds the non-tier colors of a frame
type Theme struct {
	Background string `mapstructure:"background" yaml:"background" validate:"omitempty,hexcolor"`
	Edge       string `mapstructure:"edge" yaml:"edge" validate:"omitempty,hexcolor"`
	Label      string `mapstructure:"label" yaml:"label" validate:"omitempty,hexcolor"`
	Caption    string `mapstructure:"caption" yaml:"caption" validate:"omitempty,hexcolor"`
	Hover      string `mapstructure:"hover" yaml:"hover" validate:"omitempty,hexcolor"`
	Selected   string `mapstructure:"selected" yaml:"selected" validate:"omitempty,hexcolor"`
	Overlay    string `mapstructure:"overlay" yaml:"overlay" validate:"omitempty,hexcolor"`
}

// DefaultTheme returns the dark theme
func DefaultTheme() Theme {
	return Theme{
		Background: "#0b0e14",
		Edge:       "#39424e",
		Label:      "#eaeef3",
		Caption:    "#94a3b8",
		Hover:      "#9ad0ff",
		Selected:   "#ffcf33",
		Overlay:    "#94a3b8",
	}
}

// WithDefaults fills empty colors from DefaultTheme
func (t Theme) WithDefaults() Theme {
	d := DefaultTheme()
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return Theme{
		Background: pick(t.Background, d.Background),
		Edge:       pick(t.Edge, d.Edge),
		Label:      pick(t.Label, d.Label),
		Caption:    pick(t.Caption, d.Caption),
		Hover:      pick(t.Hover, d.Hover),
		Selected:   pick(t.Selected, d.Selected),
		Overlay:    pick(t.Overlay, d.Overlay),
	}
}

// Frame is the read-only state one Draw call renders. Hovered and Selected
// are arena indices, -1 for none.
type Frame struct {
	Model     *graph.Model
	Transform viewport.Transform
	Hovered   int
	Selected  int
}

const (
	arrowLength  = 9.0
	arrowWidth   = 4.5
	glowSpread   = 6.0
	labelSize    = 12.0
	captionSize  = 10.0
	overlaySize  = 12.0
	overlayInset = 12.0
)

// Pipeline draws frames with a fixed theme
type Pipeline struct {
	Theme Theme
	// Overlay toggles the screen-space zoom and count readout
	Overlay bool
}

// NewPipeline creates a pipeline; empty theme colors take defaults
func NewPipeline(theme Theme) *Pipeline {
	return &Pipeline{Theme: theme.WithDefaults(), Overlay: true}
}

// Draw renders f onto s. It only reads f.
func (p *Pipeline) Draw(s Surface, f Frame) {
	th := p.Theme
	s.Clear(th.Background)

	m := f.Model
	if m == nil {
		m = graph.NewModel(nil)
	}
	t := f.Transform
	if t.Zoom <= 0 {
		t = viewport.Identity
	}
	px := 1 / t.Zoom

	s.SetTransform(t)
	p.drawEdges(s, m, f.Selected, px)
	p.drawNodes(s, m, f, px)
	p.drawLabels(s, m, px)
	s.SetTransform(viewport.Identity)

	if p.Overlay {
		p.drawOverlay(s, m, t)
	}
}

func (p *Pipeline) drawEdges(s Surface, m *graph.Model, selected int, px float64) {
	nodes := m.Nodes()
	for _, e := range m.Edges() {
		a, b := &nodes[e.Source], &nodes[e.Target]
		alpha := math.Min(a.Alpha, b.Alpha)
		if alpha <= 0 || e.Source == e.Target {
			continue
		}
		ra, rb := m.Radius(e.Source), m.Radius(e.Target)
		from := Point{X: a.X, Y: a.Y}
		to := Point{X: b.X, Y: b.Y}
		d := to.Sub(from)
		dist := d.Len()
		if dist <= ra+rb {
			continue
		}
		dir := d.Scale(1 / dist)
		start := from.Add(dir.Scale(ra))
		tip := to.Sub(dir.Scale(rb))

		color := p.Theme.Edge
		width := 1.5 * px
		if selected >= 0 && (e.Source == selected || e.Target == selected) {
			color = p.Theme.Selected
			width = 2.5 * px
		}

		base := tip.Sub(dir.Scale(arrowLength * px))
		s.Line(start, base, Paint{Color: color, Alpha: alpha, Width: width})

		normal := Point{X: -dir.Y, Y: dir.X}.Scale(arrowWidth * px)
		s.Polygon([]Point{tip, base.Add(normal), base.Sub(normal)}, Paint{Color: color, Alpha: alpha})
	}
}

func (p *Pipeline) drawNodes(s Surface, m *graph.Model, f Frame, px float64) {
	for i, n := range m.Nodes() {
		if n.Alpha <= 0 {
			continue
		}
		c := Point{X: n.X, Y: n.Y}
		r := m.Radius(i)

		stroke := None
		switch i {
		case f.Selected:
			s.Circle(c, r+glowSpread*px, Paint{Color: p.Theme.Selected, Alpha: 0.25 * n.Alpha}, None)
			stroke = Paint{Color: p.Theme.Selected, Alpha: n.Alpha, Width: 3 * px}
		case f.Hovered:
			s.Circle(c, r+glowSpread*px, Paint{Color: p.Theme.Hover, Alpha: 0.2 * n.Alpha}, None)
			stroke = Paint{Color: p.Theme.Hover, Alpha: n.Alpha, Width: 2 * px}
		}
		s.Circle(c, r, Paint{Color: m.Color(i), Alpha: n.Alpha}, stroke)
	}
}

func (p *Pipeline) drawLabels(s Surface, m *graph.Model, px float64) {
	for i, n := range m.Nodes() {
		if n.Alpha <= 0 {
			continue
		}
		r := m.Radius(i)
		at := Point{X: n.X, Y: n.Y + r + (labelSize+2)*px}
		s.Text(at, n.Name, TextStyle{Color: p.Theme.Label, Alpha: n.Alpha, Size: labelSize * px, Align: AlignCenter, Bold: true})

		at.Y += (captionSize + 4) * px
		s.Text(at, n.Difficulty.Title(), TextStyle{Color: p.Theme.Caption, Alpha: n.Alpha, Size: captionSize * px, Align: AlignCenter})
	}
}

func (p *Pipeline) drawOverlay(s Surface, m *graph.Model, t viewport.Transform) {
	w, h := s.Size()
	visible := 0
	for _, n := range m.Nodes() {
		if n.Visible {
			visible++
		}
	}
	style := TextStyle{Color: p.Theme.Overlay, Alpha: 1, Size: overlaySize, Align: AlignRight}
	s.Text(Point{X: w - overlayInset, Y: h - overlayInset}, ZoomLabel(t.Zoom), style)

	style.Align = AlignLeft
	s.Text(Point{X: overlayInset, Y: h - overlayInset}, fmt.Sprintf("%d/%d concepts", visible, m.Len()), style)
}

// ZoomLabel formats a zoom factor as a percentage
func ZoomLabel(zoom float64) string {
	return fmt.Sprintf("%.0f%%", zoom*100)
}
