// Package viewport converts between screen space (surface pixels) and
// world space (where node positions live).
package viewport

import (
	"fmt"
	"math"
)

// Point is a 2D coordinate in either space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }
func (p Point) Len() float64 { return math.Hypot(p.X, p.Y) }
func (p Point) Dist(q Point) float64 { return p.Sub(q).Len() }
func (p Point) Lerp(q Point, t float64) Point {
	return Point{p.X + (q.X-p.X)*t, p.Y + (q.Y-p.Y)*t}
}

// Transform is an immutable snapshot: screen = world*Zoom + Pan.
// Every conversion inside one query or one frame goes through a single
// snapshot so a concurrent pan/zoom update cannot tear it.
type Transform struct {
	Zoom float64 `json:"zoom"`
	Pan  Point   `json:"pan"`
}

// Identity is the screen-space transform
var Identity = Transform{Zoom: 1}

// ScreenToWorld maps a surface pixel to world space
func (t Transform) ScreenToWorld(p Point) Point {
	return Point{(p.X - t.Pan.X) / t.Zoom, (p.Y - t.Pan.Y) / t.Zoom}
}

// WorldToScreen maps a world point to a surface pixel
func (t Transform) WorldToScreen(p Point) Point {
	return Point{p.X*t.Zoom + t.Pan.X, p.Y*t.Zoom + t.Pan.Y}
}

// Viewport holds the mutable zoom and pan of one canvas
type Viewport struct {
	t        Transform
	min, max float64
}

// New creates a viewport at zoom 1 with no pan. min must be positive and
// not greater than max.
func New(min, max float64) (*Viewport, error) {
	if !(min > 0) || math.IsInf(max, 0) || min > max {
		return nil, fmt.Errorf("invalid zoom bounds [%v, %v]", min, max)
	}
	return &Viewport{t: Transform{Zoom: clamp(1, min, max)}, min: min, max: max}, nil
}

// Snapshot returns the current transform
func (v *Viewport) Snapshot() Transform { return v.t }

// Zoom returns the current zoom factor
func (v *Viewport) Zoom() float64 { return v.t.Zoom }

// Pan returns the current pan offset in screen pixels
func (v *Viewport) Pan() Point { return v.t.Pan }

// Bounds returns the zoom bounds
func (v *Viewport) Bounds() (min, max float64) { return v.min, v.max }

// PanBy moves the view by a screen-space delta
func (v *Viewport) PanBy(dx, dy float64) {
	if !finite(dx) || !finite(dy) {
		return
	}
	v.t.Pan.X += dx
	v.t.Pan.Y += dy
}

// SetPan sets the pan offset directly
func (v *Viewport) SetPan(p Point) {
	if !finite(p.X) || !finite(p.Y) {
		return
	}
	v.t.Pan = p
}

// SetZoom sets the zoom, silently truncated to the bounds
func (v *Viewport) SetZoom(z float64) {
	if !finite(z) || z <= 0 {
		return
	}
	v.t.Zoom = clamp(z, v.min, v.max)
}

// ZoomAt multiplies the zoom by factor, keeping the world point under
// screen fixed. The result is truncated to the zoom bounds.
func (v *Viewport) ZoomAt(screen Point, factor float64) {
	if !finite(factor) || factor <= 0 || !finite(screen.X) || !finite(screen.Y) {
		return
	}
	world := v.t.ScreenToWorld(screen)
	z := clamp(v.t.Zoom*factor, v.min, v.max)
	v.t.Zoom = z
	v.t.Pan = Point{screen.X - world.X*z, screen.Y - world.Y*z}
}

// ScreenToWorld converts with the current transform
func (v *Viewport) ScreenToWorld(p Point) Point { return v.t.ScreenToWorld(p) }

// WorldToScreen converts with the current transform
func (v *Viewport) WorldToScreen(p Point) Point { return v.t.WorldToScreen(p) }

// CenterOn returns the pan that puts world at the centre of a canvas of
// the given size at the current zoom
func (v *Viewport) CenterOn(world Point, width, height float64) Point {
	return Point{width*0.5 - world.X*v.t.Zoom, height*0.5 - world.Y*v.t.Zoom}
}

// Fit zooms and pans so the world rectangle [min, max] fills a canvas of
// the given size minus padding on each side
func (v *Viewport) Fit(min, max Point, width, height, padding float64) {
	gw := max.X - min.X
	gh := max.Y - min.Y
	if gw <= 0 {
		gw = 1
	}
	if gh <= 0 {
		gh = 1
	}
	sx := (width - 2*padding) / gw
	sy := (height - 2*padding) / gh
	s := math.Min(sx, sy)
	if !(s > 0) {
		s = 1
	}
	v.SetZoom(s)
	z := v.t.Zoom
	v.t.Pan = Point{width*0.5 - (min.X+gw*0.5)*z, height*0.5 - (min.Y+gh*0.5)*z}
}

// Reset restores zoom 1 (clamped) and zero pan
func (v *Viewport) Reset() {
	v.t = Transform{Zoom: clamp(1, v.min, v.max)}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
