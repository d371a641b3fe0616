// Package physics lays out the concept graph with a damped
// repulsion/attraction model integrated by explicit Euler steps.
package physics

import (
	"math"

	"github.com/recera/conceptmap/pkg/conceptmap/graph"
)

// Config holds the force constants. They are tuned by eye, not derived.
type Config struct {
	// Repulsion scales the inverse-square push between every visible pair
	Repulsion float64 `mapstructure:"repulsion" yaml:"repulsion" validate:"gt=0"`
	// Attraction scales the linear pull along every edge
	Attraction float64 `mapstructure:"attraction" yaml:"attraction" validate:"gte=0"`
	// Damping multiplies velocity each step, in (0, 1)
	Damping float64 `mapstructure:"damping" yaml:"damping" validate:"gt=0,lt=1"`
	// MaxVelocity caps the per-step displacement
	MaxVelocity float64 `mapstructure:"max_velocity" yaml:"max_velocity" validate:"gte=0"`
	// Padding is kept between a node's rim and the canvas border
	Padding float64 `mapstructure:"padding" yaml:"padding" validate:"gte=0"`
	// Iterations is the synchronous budget of the initial layout
	Iterations int `mapstructure:"iterations" yaml:"iterations" validate:"gte=0,lte=10000"`
}

// DefaultConfig returns the stock constants
func DefaultConfig() Config {
	return Config{
		Repulsion:   5000,
		Attraction:  0.01,
		Damping:     0.85,
		MaxVelocity: 50,
		Padding:     20,
		Iterations:  100,
	}
}

// minDistance is the separation below which a pair is treated as
// coincident and pushed apart along a synthetic direction
const minDistance = 0.01

// nudge is the step used to pull apart nodes left on the same spot
const (
	nudge     = 0.5
	maxNudges = 8
)

// Simulator integrates node positions of a graph.Model inside the canvas
// bounds. It keeps the last finite position of every node so a diverging
// step can be rolled back.
type Simulator struct {
	cfg    Config
	width  float64
	height float64

	gen  uint64
	good []lastGood
	fx   []float64
	fy   []float64
}

type lastGood struct {
	x, y float64
	ok   bool
}

// New creates a simulator for a canvas of the given size
func New(cfg Config, width, height float64) *Simulator {
	return &Simulator{cfg: cfg, width: width, height: height}
}

// Config returns the force constants
func (s *Simulator) Config() Config { return s.cfg }

// SetBounds changes the canvas size used for clamping and seeding
func (s *Simulator) SetBounds(width, height float64) {
	s.width = width
	s.height = height
}

// Bounds returns the canvas size
func (s *Simulator) Bounds() (width, height float64) { return s.width, s.height }

// Seed places every node evenly on a circle by arena index so a given node
// ordering always starts from the same configuration. Velocities are reset.
func (s *Simulator) Seed(m *graph.Model) {
	nodes := m.Nodes()
	cx, cy := s.width/2, s.height/2
	r := math.Min(s.width, s.height) * 0.35
	n := len(nodes)
	for i := range nodes {
		nd := &nodes[i]
		nd.VX, nd.VY = 0, 0
		if n == 1 {
			nd.X, nd.Y = cx, cy
			continue
		}
		angle := 2 * math.Pi * float64(i) / float64(n)
		nd.X = cx + r*math.Cos(angle)
		nd.Y = cy + r*math.Sin(angle)
	}
	s.reset(m)
	s.Clamp(m, -1)
}

// Layout seeds the model and runs the configured iteration budget
func (s *Simulator) Layout(m *graph.Model) {
	s.Seed(m)
	s.Run(m, s.cfg.Iterations)
}

// Run performs n steps with no pinned node
func (s *Simulator) Run(m *graph.Model, n int) {
	for i := 0; i < n; i++ {
		s.Step(m, -1)
	}
}

// Step performs one iteration: accumulate forces into velocity, damp,
// integrate, clamp to bounds, then roll back any non-finite position.
// The node at index pinned (if >= 0) exerts forces but is not moved.
func (s *Simulator) Step(m *graph.Model, pinned int) {
	nodes := m.Nodes()
	n := len(nodes)
	if n == 0 {
		return
	}
	if s.gen != m.Generation() || len(s.good) != n {
		s.reset(m)
	}
	if cap(s.fx) < n {
		s.fx = make([]float64, n)
		s.fy = make([]float64, n)
	}
	fx, fy := s.fx[:n], s.fy[:n]
	for i := range fx {
		fx[i], fy[i] = 0, 0
	}

	// Repulsion between every unordered pair of visible nodes
	for i := 0; i < n; i++ {
		if !nodes[i].Visible {
			continue
		}
		for j := i + 1; j < n; j++ {
			if !nodes[j].Visible {
				continue
			}
			dx := nodes[j].X - nodes[i].X
			dy := nodes[j].Y - nodes[i].Y
			dist := math.Hypot(dx, dy)
			if dist < minDistance {
				// Coincident: pick a direction from the pair indices
				angle := float64(i+j) * 2.399963229728653
				dx, dy = math.Cos(angle), math.Sin(angle)
				dist = minDistance
			} else {
				dx /= dist
				dy /= dist
			}
			force := s.cfg.Repulsion / (dist * dist)
			if !finite(force) {
				continue
			}
			fx[i] -= force * dx
			fy[i] -= force * dy
			fx[j] += force * dx
			fy[j] += force * dy
		}
	}

	// Linear attraction along edges
	for _, e := range m.Edges() {
		a, b := &nodes[e.Source], &nodes[e.Target]
		if e.Source == e.Target || !a.Visible || !b.Visible {
			continue
		}
		dx := b.X - a.X
		dy := b.Y - a.Y
		fx[e.Source] += s.cfg.Attraction * dx
		fy[e.Source] += s.cfg.Attraction * dy
		fx[e.Target] -= s.cfg.Attraction * dx
		fy[e.Target] -= s.cfg.Attraction * dy
	}

	for i := range nodes {
		nd := &nodes[i]
		if i == pinned || !nd.Visible {
			nd.VX, nd.VY = 0, 0
			continue
		}
		nd.VX = (nd.VX + fx[i]) * s.cfg.Damping
		nd.VY = (nd.VY + fy[i]) * s.cfg.Damping
		if v := math.Hypot(nd.VX, nd.VY); s.cfg.MaxVelocity > 0 && v > s.cfg.MaxVelocity {
			nd.VX *= s.cfg.MaxVelocity / v
			nd.VY *= s.cfg.MaxVelocity / v
		}
		nd.X += nd.VX
		nd.Y += nd.VY
	}

	s.Clamp(m, pinned)
	s.separate(m, pinned)
	s.recover(m)
}

// separate moves visible nodes that share an exact position apart. Later
// nodes step toward the canvas centre, which keeps them in bounds when
// they were stacked against a wall or corner.
func (s *Simulator) separate(m *graph.Model, pinned int) {
	nodes := m.Nodes()
	taken := make(map[[2]float64]struct{}, len(nodes))
	if pinned >= 0 && pinned < len(nodes) && nodes[pinned].Visible {
		taken[[2]float64{nodes[pinned].X, nodes[pinned].Y}] = struct{}{}
	}
	cx, cy := s.width/2, s.height/2
	for i := range nodes {
		nd := &nodes[i]
		if i == pinned || !nd.Visible || !finite(nd.X) || !finite(nd.Y) {
			continue
		}
		key := [2]float64{nd.X, nd.Y}
		for k := 1; k <= maxNudges; k++ {
			if _, ok := taken[key]; !ok {
				break
			}
			dx, dy := cx-nd.X, cy-nd.Y
			if d := math.Hypot(dx, dy); d > minDistance {
				dx, dy = dx/d, dy/d
			} else {
				angle := float64(i) * 2.399963229728653
				dx, dy = math.Cos(angle), math.Sin(angle)
			}
			nd.X += dx * nudge * float64(k)
			nd.Y += dy * nudge * float64(k)
			s.ClampNode(m, i)
			key = [2]float64{nd.X, nd.Y}
		}
		taken[key] = struct{}{}
	}
}

// Clamp keeps every node's rendered extent (position ± radius ± padding)
// inside the canvas. The node at index skip is left alone.
func (s *Simulator) Clamp(m *graph.Model, skip int) {
	nodes := m.Nodes()
	for i := range nodes {
		if i == skip {
			continue
		}
		s.ClampNode(m, i)
	}
}

// ClampNode clamps a single node
func (s *Simulator) ClampNode(m *graph.Model, i int) {
	nd := m.Node(i)
	if nd == nil {
		return
	}
	margin := m.Radius(i) + s.cfg.Padding
	nd.X = clampAxis(nd.X, margin, s.width)
	nd.Y = clampAxis(nd.Y, margin, s.height)
}

func clampAxis(v, margin, size float64) float64 {
	lo, hi := margin, size-margin
	if lo > hi {
		// Canvas narrower than the node: centre it
		return size / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// recover restores the last finite position of any node that diverged and
// records the current position of every healthy node
func (s *Simulator) recover(m *graph.Model) {
	nodes := m.Nodes()
	for i := range nodes {
		nd := &nodes[i]
		if finite(nd.X) && finite(nd.Y) {
			s.good[i] = lastGood{nd.X, nd.Y, true}
			continue
		}
		if g := s.good[i]; g.ok {
			nd.X, nd.Y = g.x, g.y
		} else {
			nd.X, nd.Y = s.width/2, s.height/2
		}
		nd.VX, nd.VY = 0, 0
	}
}

func (s *Simulator) reset(m *graph.Model) {
	nodes := m.Nodes()
	s.gen = m.Generation()
	s.good = make([]lastGood, len(nodes))
	for i, nd := range nodes {
		if finite(nd.X) && finite(nd.Y) {
			s.good[i] = lastGood{nd.X, nd.Y, true}
		}
	}
}

// MarkGood records the current positions as known-good, e.g. after a drag
func (s *Simulator) MarkGood(m *graph.Model) {
	s.reset(m)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
