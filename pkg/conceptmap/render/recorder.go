package render

import (
	"github.com/recera/conceptmap/pkg/conceptmap/viewport"
)

// Op names a recorded drawing command
type Op string

const (
	OpClear     Op = "clear"
	OpTransform Op = "transform"
	OpLine      Op = "line"
	OpCircle    Op = "circle"
	OpPolygon   Op = "polygon"
	OpText      Op = "text"
)

// Command is one recorded call. Fields not used by Op are zero.
type Command struct {
	Op        Op                  `json:"op"`
	Color     string              `json:"color,omitempty"`
	Transform *viewport.Transform `json:"transform,omitempty"`
	Points    []Point             `json:"points,omitempty"`
	Radius    float64             `json:"radius,omitempty"`
	Fill      *Paint              `json:"fill,omitempty"`
	Stroke    *Paint              `json:"stroke,omitempty"`
	Text      string              `json:"text,omitempty"`
	Style     *TextStyle          `json:"style,omitempty"`
}

// Recorder is a Surface that keeps every command. Tests use it in place of
// a real canvas and the live host serialises its frames to clients.
type Recorder struct {
	Width, Height float64
	Commands      []Command
}

// NewRecorder creates a recorder of the given size
func NewRecorder(width, height float64) *Recorder {
	return &Recorder{Width: width, Height: height}
}

// Reset drops recorded commands
func (r *Recorder) Reset() { r.Commands = r.Commands[:0] }

// Resize changes the reported size
func (r *Recorder) Resize(width, height float64) {
	r.Width, r.Height = width, height
}

func (r *Recorder) Size() (float64, float64) { return r.Width, r.Height }

func (r *Recorder) Clear(color string) {
	r.Commands = append(r.Commands, Command{Op: OpClear, Color: color})
}

func (r *Recorder) SetTransform(t viewport.Transform) {
	r.Commands = append(r.Commands, Command{Op: OpTransform, Transform: &t})
}

func (r *Recorder) Line(a, b Point, stroke Paint) {
	r.Commands = append(r.Commands, Command{Op: OpLine, Points: []Point{a, b}, Stroke: &stroke})
}

func (r *Recorder) Circle(center Point, radius float64, fill, stroke Paint) {
	r.Commands = append(r.Commands, Command{Op: OpCircle, Points: []Point{center}, Radius: radius, Fill: &fill, Stroke: &stroke})
}

func (r *Recorder) Polygon(points []Point, fill Paint) {
	pts := append([]Point(nil), points...)
	r.Commands = append(r.Commands, Command{Op: OpPolygon, Points: pts, Fill: &fill})
}

func (r *Recorder) Text(at Point, s string, style TextStyle) {
	r.Commands = append(r.Commands, Command{Op: OpText, Points: []Point{at}, Text: s, Style: &style})
}

// Ops returns the sequence of recorded ops
func (r *Recorder) Ops() []Op {
	ops := make([]Op, len(r.Commands))
	for i, c := range r.Commands {
		ops[i] = c.Op
	}
	return ops
}

// Filter returns the recorded commands with the given op
func (r *Recorder) Filter(op Op) []Command {
	var out []Command
	for _, c := range r.Commands {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}
