// Package conceptmap is the concept knowledge-map engine: a force-directed
// graph layout with pan/zoom, hit-testing, gestures and animated filtering,
// drawn through an injected render.Surface.
//
// The engine is single-threaded. The host owns the loop and calls Tick (or
// Frame) once per display refresh; Dispatch only queues input for the next
// tick.
package conceptmap

import (
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/recera/conceptmap/pkg/conceptmap/anim"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/hittest"
	"github.com/recera/conceptmap/pkg/conceptmap/interact"
	"github.com/recera/conceptmap/pkg/conceptmap/physics"
	"github.com/recera/conceptmap/pkg/conceptmap/render"
	"github.com/recera/conceptmap/pkg/conceptmap/viewport"
)

// Engine ties the model, simulator, viewport, controller and scheduler
// together. It is not safe for concurrent use.
type Engine struct {
	opts    Options
	log     *slog.Logger
	surface render.Surface

	model *graph.Model
	sim   *physics.Simulator
	vp    *viewport.Viewport
	anim  *anim.Scheduler
	ctrl  *interact.Controller
	pipe  *render.Pipeline

	width, height float64
	queue         []interact.Event
	selected      int
	filter        Filter
	resize        *pendingResize
}

type pendingResize struct {
	width, height float64
	quiet         time.Duration
}

// New creates an engine drawing onto surface. The canvas size is taken
// from the surface, or from Options when the surface reports none.
func New(surface render.Surface, opts Options) (*Engine, error) {
	if surface == nil {
		return nil, &ConfigurationError{Field: "surface", Reason: "a drawing surface is required"}
	}
	o := opts.withDefaults()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	vp, err := viewport.New(o.MinZoom, o.MaxZoom)
	if err != nil {
		return nil, &ConfigurationError{Field: "MinZoom", Reason: err.Error()}
	}

	w, h := surface.Size()
	if !(w > 0) || !(h > 0) {
		w, h = o.Width, o.Height
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		opts:     o,
		log:      logger.With("component", "conceptmap"),
		surface:  surface,
		model:    graph.NewModel(o.Tiers),
		sim:      physics.New(o.Physics, w, h),
		vp:       vp,
		anim:     anim.New(o.FadeDuration, o.FocusDuration),
		pipe:     render.NewPipeline(o.Theme),
		width:    w,
		height:   h,
		selected: -1,
	}
	e.ctrl = interact.NewController((*gestures)(e), o.Keymap)
	return e, nil
}

// Options returns the effective options after defaults
func (e *Engine) Options() Options { return e.opts }

// SetConceptsData replaces the whole concept set and lays it out. Bad
// relationships and duplicate ids are dropped; the rest still loads and
// the problems are returned as a *graph.DataIntegrityError.
func (e *Engine) SetConceptsData(p graph.Payload) error {
	var prevSelected string
	if n := e.model.Node(e.selected); n != nil {
		prevSelected = n.ID
	}

	loadErr := e.model.Load(p)
	var integrity *graph.DataIntegrityError
	if errors.As(loadErr, &integrity) {
		for _, d := range integrity.Dropped {
			e.log.Warn("relationship dropped", "relationship", d.Relationship.String(), "reason", d.Reason)
		}
		for _, id := range integrity.Duplicates {
			e.log.Warn("duplicate concept id ignored", "id", id)
		}
		if integrity.Invalid > 0 {
			e.log.Warn("concepts without id ignored", "count", integrity.Invalid)
		}
	}

	hadHover := e.ctrl.Hovered() >= 0
	e.queue = e.queue[:0]
	e.ctrl.Reset()
	if hadHover {
		e.emitHover("")
	}
	e.anim.Reset()
	e.applyVisibility(true)

	e.sim.Layout(e.model)
	e.log.Debug("initial layout", "nodes", e.model.Len(), "edges", len(e.model.Edges()), "iterations", e.opts.Physics.Iterations)

	e.selected = -1
	if prevSelected != "" {
		if i, ok := e.model.Index(prevSelected); ok {
			e.selected = i
		} else {
			e.emitClose()
		}
	}
	return loadErr
}

// Dispatch queues an input event for the next Tick
func (e *Engine) Dispatch(ev interact.Event) {
	e.queue = append(e.queue, ev)
}

// Tick advances one frame: queued input, then animations, then the
// dragged node and one pinned physics step, then a debounced resize.
func (e *Engine) Tick(dt time.Duration) {
	if dt < 0 {
		dt = 0
	}

	queue := e.queue
	e.queue = nil
	for _, ev := range queue {
		e.ctrl.Handle(ev)
	}

	e.anim.Advance(dt, e.model, e.vp)

	if i, world, ok := e.ctrl.DragTarget(); ok {
		e.placeNode(i, world)
		e.sim.Step(e.model, i)
	}

	if r := e.resize; r != nil {
		r.quiet += dt
		if r.quiet >= e.opts.ResizeDebounce {
			e.resize = nil
			e.applyResize(r.width, r.height)
		}
	}
}

// Render draws the current state onto the surface. It does not mutate the
// engine.
func (e *Engine) Render() {
	e.pipe.Draw(e.surface, render.Frame{
		Model:     e.model,
		Transform: e.vp.Snapshot(),
		Hovered:   e.ctrl.Hovered(),
		Selected:  e.selected,
	})
}

// Frame is Tick followed by Render
func (e *Engine) Frame(dt time.Duration) {
	e.Tick(dt)
	e.Render()
}

// Animating reports whether the host should keep scheduling frames
func (e *Engine) Animating() bool {
	_, dragging := e.ctrl.Drag()
	return dragging || e.anim.Active() || e.resize != nil || len(e.queue) > 0
}

// Resize records a new canvas size. Bursts are coalesced: the size is
// applied once no newer resize has arrived for Options.ResizeDebounce.
func (e *Engine) Resize(width, height float64) {
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return
	}
	e.resize = &pendingResize{width: width, height: height}
}

// Size returns the canvas size in use
func (e *Engine) Size() (width, height float64) { return e.width, e.height }

func (e *Engine) applyResize(width, height float64) {
	if width == e.width && height == e.height {
		return
	}
	e.width, e.height = width, height
	e.sim.SetBounds(width, height)
	e.sim.Run(e.model, e.opts.Physics.Iterations)
	e.sim.Clamp(e.model, -1)
	e.log.Debug("relayout after resize", "width", width, "height", height)
}

// SetFilter changes the visible set and fades nodes toward their new
// alpha, restarting any fade in flight from its current value.
func (e *Engine) SetFilter(f Filter) {
	e.filter = f.clone()
	e.applyVisibility(false)
}

// Filter returns the active filter
func (e *Engine) Filter() Filter { return e.filter.clone() }

func (e *Engine) applyVisibility(snap bool) {
	nodes := e.model.Nodes()
	for i := range nodes {
		nodes[i].Visible = e.filter.Matches(nodes[i].Concept)
		if snap {
			nodes[i].Alpha = 0
			if nodes[i].Visible {
				nodes[i].Alpha = 1
			}
		}
	}
	e.anim.Retarget(e.model)

	if h := e.model.Node(e.ctrl.Hovered()); h != nil && !h.Visible {
		e.ctrl.ClearHover()
		e.emitHover("")
	}
}

// Select marks the concept selected and notifies OnSelect without moving
// the camera
func (e *Engine) Select(id string) bool {
	i, ok := e.model.Index(id)
	if !ok {
		return false
	}
	e.selectIndex(i)
	return true
}

// Focus selects the concept and starts focus travel toward it, as a click
// or a related-concept link does
func (e *Engine) Focus(id string) bool {
	i, ok := e.model.Index(id)
	if !ok {
		return false
	}
	e.focusIndex(i)
	return true
}

// FocusNext focuses the visible concept after the selected one in model
// order, or before it when dir < 0, wrapping at the ends. Keyboard hosts
// use it in place of tab order. It reports the focused id.
func (e *Engine) FocusNext(dir int) (string, bool) {
	nodes := e.model.Nodes()
	if len(nodes) == 0 {
		return "", false
	}
	step := 1
	if dir < 0 {
		step = -1
	}
	start := e.selected
	if start < 0 || start >= len(nodes) {
		// so the first step lands on the first (or last) node
		start = -1
		if step < 0 {
			start = len(nodes)
		}
	}
	for k := 1; k <= len(nodes); k++ {
		i := ((start+step*k)%len(nodes) + len(nodes)) % len(nodes)
		if nodes[i].Visible {
			e.focusIndex(i)
			return nodes[i].ID, true
		}
	}
	return "", false
}

func (e *Engine) focusIndex(i int) {
	e.selectIndex(i)
	n := e.model.Node(i)
	target := e.vp.CenterOn(viewport.Point{X: n.X, Y: n.Y}, e.width, e.height)
	e.anim.Travel(e.vp.Pan(), target)
}

func (e *Engine) selectIndex(i int) {
	e.selected = i
	if e.opts.OnSelect != nil {
		e.opts.OnSelect(detailOf(e.model, e.model.Node(i)))
	}
}

// ClearSelection deselects and tells the detail panel to close
func (e *Engine) ClearSelection() {
	e.selected = -1
	e.emitClose()
}

// Selected returns the selected concept
func (e *Engine) Selected() (Detail, bool) {
	n := e.model.Node(e.selected)
	if n == nil {
		return Detail{}, false
	}
	return detailOf(e.model, n), true
}

// Hovered returns the id of the hovered concept, or ""
func (e *Engine) Hovered() string {
	if n := e.model.Node(e.ctrl.Hovered()); n != nil {
		return n.ID
	}
	return ""
}

// FitGraph zooms and pans so every visible node fits with padding screen
// pixels to spare. It cancels focus travel.
func (e *Engine) FitGraph(padding float64) {
	e.anim.CancelTravel()
	minP, maxP, ok := e.visibleBounds()
	if !ok {
		e.vp.Reset()
		return
	}
	e.vp.Fit(minP, maxP, e.width, e.height, padding)
}

// ResetView restores zoom 1 and zero pan. It cancels focus travel.
func (e *Engine) ResetView() {
	e.anim.CancelTravel()
	e.vp.Reset()
}

// ZoomBy zooms about the canvas centre
func (e *Engine) ZoomBy(factor float64) {
	e.anim.CancelTravel()
	e.vp.ZoomAt(viewport.Point{X: e.width / 2, Y: e.height / 2}, factor)
}

// PanBy shifts the view by a screen-space delta, as arrow keys do in
// hosts that offer them. It cancels focus travel.
func (e *Engine) PanBy(dx, dy float64) { (*gestures)(e).PanBy(dx, dy) }

// Transform returns a snapshot of the viewport transform
func (e *Engine) Transform() viewport.Transform { return e.vp.Snapshot() }

// NodeAt returns the id of the visible concept under a screen point
func (e *Engine) NodeAt(screen viewport.Point) (string, bool) {
	i, ok := hittest.NodeAt(e.model, e.vp.Snapshot(), screen)
	if !ok {
		return "", false
	}
	return e.model.Node(i).ID, true
}

// Position returns the world position of a concept
func (e *Engine) Position(id string) (viewport.Point, bool) {
	n, ok := e.model.FindNode(id)
	if !ok {
		return viewport.Point{}, false
	}
	return viewport.Point{X: n.X, Y: n.Y}, true
}

// Concepts lists every concept in model order. It is the accessible
// side-channel for what the canvas shows.
func (e *Engine) Concepts() []Detail {
	nodes := e.model.Nodes()
	out := make([]Detail, len(nodes))
	for i := range nodes {
		out[i] = detailOf(e.model, &nodes[i])
	}
	return out
}

// Detail returns one concept
func (e *Engine) Detail(id string) (Detail, bool) {
	n, ok := e.model.FindNode(id)
	if !ok {
		return Detail{}, false
	}
	return detailOf(e.model, n), true
}

// Gesture returns the name of the current gesture state
func (e *Engine) Gesture() string { return interact.StateName(e.ctrl.State()) }

func (e *Engine) placeNode(i int, world viewport.Point) {
	n := e.model.Node(i)
	if n == nil || math.IsNaN(world.X) || math.IsNaN(world.Y) || math.IsInf(world.X, 0) || math.IsInf(world.Y, 0) {
		return
	}
	n.X, n.Y = world.X, world.Y
	n.VX, n.VY = 0, 0
}

func (e *Engine) visibleBounds() (minP, maxP viewport.Point, ok bool) {
	for i, n := range e.model.Nodes() {
		if !n.Visible {
			continue
		}
		r := e.model.Radius(i)
		lo := viewport.Point{X: n.X - r, Y: n.Y - r}
		hi := viewport.Point{X: n.X + r, Y: n.Y + r}
		if !ok {
			minP, maxP, ok = lo, hi, true
			continue
		}
		minP = viewport.Point{X: math.Min(minP.X, lo.X), Y: math.Min(minP.Y, lo.Y)}
		maxP = viewport.Point{X: math.Max(maxP.X, hi.X), Y: math.Max(maxP.Y, hi.Y)}
	}
	return minP, maxP, ok
}

func (e *Engine) emitClose() {
	if e.opts.OnClose != nil {
		e.opts.OnClose()
	}
}

func (e *Engine) emitHover(id string) {
	if e.opts.OnHover != nil {
		e.opts.OnHover(id)
	}
}

// gestures is the engine as seen by the interaction controller
type gestures Engine

func (g *gestures) engine() *Engine { return (*Engine)(g) }

func (g *gestures) NodeAt(screen viewport.Point) (int, bool) {
	return hittest.NodeAt(g.model, g.vp.Snapshot(), screen)
}

func (g *gestures) NodeWorld(i int) viewport.Point {
	n := g.model.Node(i)
	return viewport.Point{X: n.X, Y: n.Y}
}

func (g *gestures) ScreenToWorld(screen viewport.Point) viewport.Point {
	return g.vp.ScreenToWorld(screen)
}

func (g *gestures) MoveNode(i int, world viewport.Point) { g.engine().placeNode(i, world) }

func (g *gestures) PanBy(dx, dy float64) {
	g.anim.CancelTravel()
	g.vp.PanBy(dx, dy)
}

func (g *gestures) ZoomAt(screen viewport.Point, factor float64) {
	g.anim.CancelTravel()
	g.vp.ZoomAt(screen, factor)
}

func (g *gestures) Hover(i int) {
	id := ""
	if n := g.model.Node(i); n != nil {
		id = n.ID
	}
	g.engine().emitHover(id)
}

func (g *gestures) Click(i int) { g.engine().focusIndex(i) }

func (g *gestures) ClickEmpty() { g.engine().ClearSelection() }

func (g *gestures) Command(c interact.Command) {
	e := g.engine()
	switch c {
	case interact.ResetView:
		e.ResetView()
	case interact.ClosePanel:
		e.ClearSelection()
	case interact.ZoomIn:
		e.ZoomBy(interact.ZoomStep)
	case interact.ZoomOut:
		e.ZoomBy(1 / interact.ZoomStep)
	case interact.FitGraph:
		e.FitGraph(e.opts.FitPadding)
	}
}
