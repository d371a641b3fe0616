// Package render draws one frame of the concept map onto a Surface.
package render

import (
	"github.com/recera/conceptmap/pkg/conceptmap/viewport"
)

// Point is a coordinate in whatever space the surface transform maps from
type Point = viewport.Point

// Paint describes a fill or stroke. An empty Color means "do not paint".
type Paint struct {
	Color string  `json:"color,omitempty"`
	Alpha float64 `json:"alpha"`
	Width float64 `json:"width,omitempty"`
}

// None is the empty paint
var None = Paint{}

// Align is the horizontal anchor of a text run
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

var alignNames = [...]string{"left", "center", "right"}

func (a Align) String() string {
	if a >= 0 && int(a) < len(alignNames) {
		return alignNames[a]
	}
	return "left"
}

// MarshalText encodes the canvas textAlign name
func (a Align) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// TextStyle describes a text run
type TextStyle struct {
	Color string  `json:"color"`
	Alpha float64 `json:"alpha"`
	// Size is the font size in the current transform's units
	Size  float64 `json:"size"`
	Align Align   `json:"align"`
	Bold  bool    `json:"bold,omitempty"`
}

// Surface is the minimal drawing-command interface a host provides. All
// coordinates and lengths passed after SetTransform are in the space that
// transform maps to the screen; viewport.Identity means screen pixels.
type Surface interface {
	// Size returns the surface size in screen pixels
	Size() (width, height float64)
	Clear(color string)
	SetTransform(t viewport.Transform)
	Line(a, b Point, stroke Paint)
	Circle(center Point, radius float64, fill, stroke Paint)
	Polygon(points []Point, fill Paint)
	Text(at Point, s string, style TextStyle)
}

// Mapper applies a transform for surfaces that draw in screen pixels.
// Hosts embed it to implement SetTransform.
type Mapper struct {
	T viewport.Transform
}

// SetTransform records t
func (m *Mapper) SetTransform(t viewport.Transform) { m.T = t }

// Pt maps p to screen space
func (m *Mapper) Pt(p Point) Point {
	if m.T.Zoom == 0 {
		return p
	}
	return m.T.WorldToScreen(p)
}

// Len maps a length to screen space
func (m *Mapper) Len(l float64) float64 {
	if m.T.Zoom == 0 {
		return l
	}
	return l * m.T.Zoom
}

// Nop discards every command
type Nop struct {
	Width, Height float64
}

func (n Nop) Size() (float64, float64) { return n.Width, n.Height }
func (Nop) Clear(string) {}
func (Nop) SetTransform(viewport.Transform) {}
func (Nop) Line(Point, Point, Paint) {}
func (Nop) Circle(Point, float64, Paint, Paint) {}
func (Nop) Polygon([]Point, Paint) {}
func (Nop) Text(Point, string, TextStyle) {}
