package interact

import "math"

// ClickThreshold is the screen distance in pixels a pointer may travel
// between down and up and still count as a click. Movement beyond it turns
// the gesture into a drag or a pan.
const ClickThreshold = 3.0

// wheelDivisor and wheelLimit shape wheel deltas into zoom factors
const (
	wheelDivisor = 500.0
	wheelLimit   = 0.5
)

// Target receives the intents the controller derives from input. The
// engine implements it on top of the model, viewport and scheduler.
type Target interface {
	// NodeAt hit-tests a screen point
	NodeAt(screen Point) (int, bool)
	// NodeWorld returns the world position of node i
	NodeWorld(i int) Point
	ScreenToWorld(screen Point) Point
	// MoveNode places node i at a world position
	MoveNode(i int, world Point)
	PanBy(dx, dy float64)
	ZoomAt(screen Point, factor float64)
	// Hover reports the node under the pointer, -1 for none
	Hover(i int)
	// Click is a click on node i
	Click(i int)
	// ClickEmpty is a click on empty canvas
	ClickEmpty()
	Command(c Command)
}

// State is the gesture state: Idle, *Dragging or *Panning
type State interface {
	gesture() string
}

// Idle waits for a pointer press
type Idle struct{}

// Dragging follows a press that landed on a node. Offset is the world
// distance from the pointer to the node centre at press time.
type Dragging struct {
	Node    int
	Offset  Point
	Origin  Point
	Pointer Point
	// Moved turns true once the pointer leaves ClickThreshold
	Moved bool
}

// Panning follows a press on empty canvas
type Panning struct {
	Origin Point
	Last   Point
	Moved  bool
}

func (Idle) gesture() string { return "idle" }
func (*Dragging) gesture() string { return "dragging" }
func (*Panning) gesture() string { return "panning" }

// StateName returns "idle", "dragging" or "panning"
func StateName(s State) string { return s.gesture() }

// Controller runs the gesture state machine
type Controller struct {
	target Target
	keys   Keymap
	touch  TouchNormalizer
	state  State
	hover  int
}

// NewController creates a controller. A nil keymap uses DefaultKeymap.
func NewController(target Target, keys Keymap) *Controller {
	if keys == nil {
		keys = DefaultKeymap()
	}
	return &Controller{target: target, keys: keys, state: Idle{}, hover: -1}
}

// State returns the current gesture state
func (c *Controller) State() State { return c.state }

// Hovered returns the hovered node index or -1
func (c *Controller) Hovered() int { return c.hover }

// Drag returns the active drag, if any
func (c *Controller) Drag() (*Dragging, bool) {
	d, ok := c.state.(*Dragging)
	return d, ok
}

// DragTarget returns where the dragged node belongs for the current
// pointer. ok is false until the drag has crossed ClickThreshold.
func (c *Controller) DragTarget() (node int, world Point, ok bool) {
	d, dragging := c.state.(*Dragging)
	if !dragging || !d.Moved {
		return -1, Point{}, false
	}
	return d.Node, c.target.ScreenToWorld(d.Pointer).Add(d.Offset), true
}

// Handle applies one event. Touch events are normalized first.
func (c *Controller) Handle(e Event) {
	if e.IsTouch() {
		for _, ne := range c.touch.Normalize(e) {
			c.handle(ne)
		}
		return
	}
	c.handle(e)
}

func (c *Controller) handle(e Event) {
	switch e.Type {
	case PointerDown:
		c.down(e.Pos())
	case PointerMove:
		c.move(e.Pos())
	case PointerUp:
		c.up(e.Pos())
	case PointerCancel:
		c.cancel()
	case PointerLeave:
		c.setHover(-1)
	case Wheel:
		c.target.ZoomAt(e.Pos(), WheelFactor(e.DeltaY))
	case Pinch:
		if e.Scale > 0 && !math.IsInf(e.Scale, 0) {
			c.target.ZoomAt(e.Pos(), e.Scale)
		}
	case Key:
		if e.InTextInput {
			return
		}
		if cmd, ok := c.keys.Lookup(e.Key); ok {
			c.target.Command(cmd)
		}
	}
}

func (c *Controller) down(p Point) {
	if _, idle := c.state.(Idle); !idle {
		c.cancel()
	}
	if i, ok := c.target.NodeAt(p); ok {
		offset := c.target.NodeWorld(i).Sub(c.target.ScreenToWorld(p))
		c.state = &Dragging{Node: i, Offset: offset, Origin: p, Pointer: p}
		return
	}
	c.state = &Panning{Origin: p, Last: p}
}

func (c *Controller) move(p Point) {
	switch s := c.state.(type) {
	case *Dragging:
		s.Pointer = p
		if !s.Moved && p.Dist(s.Origin) > ClickThreshold {
			s.Moved = true
		}
		return
	case *Panning:
		if !s.Moved && p.Dist(s.Origin) > ClickThreshold {
			s.Moved = true
		}
		if s.Moved {
			c.target.PanBy(p.X-s.Last.X, p.Y-s.Last.Y)
			s.Last = p
		}
	}
	i, ok := c.target.NodeAt(p)
	if !ok {
		i = -1
	}
	c.setHover(i)
}

func (c *Controller) up(p Point) {
	switch s := c.state.(type) {
	case *Dragging:
		s.Pointer = p
		if !s.Moved && p.Dist(s.Origin) > ClickThreshold {
			s.Moved = true
		}
		c.state = Idle{}
		if s.Moved {
			c.target.MoveNode(s.Node, c.target.ScreenToWorld(p).Add(s.Offset))
			return
		}
		c.target.Click(s.Node)
	case *Panning:
		if !s.Moved && p.Dist(s.Origin) > ClickThreshold {
			c.target.PanBy(p.X-s.Last.X, p.Y-s.Last.Y)
			s.Moved = true
		}
		c.state = Idle{}
		if !s.Moved {
			c.target.ClickEmpty()
		}
	}
}

// cancel abandons the gesture without a click. A dragged node stays
// wherever it was last placed.
func (c *Controller) cancel() {
	c.state = Idle{}
}

// ClearHover drops hover state without notifying the target
func (c *Controller) ClearHover() { c.hover = -1 }

// Reset returns to Idle and forgets hover and touch state
func (c *Controller) Reset() {
	c.state = Idle{}
	c.hover = -1
	c.touch.Reset()
}

func (c *Controller) setHover(i int) {
	if i == c.hover {
		return
	}
	c.hover = i
	c.target.Hover(i)
}

// WheelFactor converts a wheel delta to a zoom factor. Scrolling down
// (positive delta) zooms out.
func WheelFactor(deltaY float64) float64 {
	d := deltaY / wheelDivisor
	if math.IsNaN(d) {
		return 1
	}
	return 1 - math.Max(-wheelLimit, math.Min(wheelLimit, d))
}
