package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/recera/conceptmap/pkg/conceptmap/render"
)

// SVG streams frames as an SVG document. Call Close once after the last
// frame to end the document.
type SVG struct {
	render.Mapper
	canvas        *svg.SVG
	width, height int
}

// NewSVG starts a document of the given size on w
func NewSVG(w io.Writer, width, height int) (*SVG, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("export: invalid size %dx%d", width, height)
	}
	canvas := svg.New(w)
	canvas.Start(width, height)
	return &SVG{canvas: canvas, width: width, height: height}, nil
}

func (s *SVG) Size() (float64, float64) { return float64(s.width), float64(s.height) }

func (s *SVG) Clear(c string) {
	s.canvas.Rect(0, 0, s.width, s.height, "fill:"+css(c))
}

func (s *SVG) Line(a, b render.Point, stroke render.Paint) {
	if !visible(stroke) {
		return
	}
	a, b = s.Pt(a), s.Pt(b)
	s.canvas.Line(px(a.X), px(a.Y), px(b.X), px(b.Y), s.strokeStyle(stroke)+";stroke-linecap:round")
}

func (s *SVG) Circle(center render.Point, radius float64, fill, stroke render.Paint) {
	c, r := s.Pt(center), px(s.Len(radius))
	if r <= 0 {
		return
	}
	var style []string
	if visible(fill) {
		style = append(style, fmt.Sprintf("fill:%s;fill-opacity:%s", css(fill.Color), num(fill.Alpha)))
	} else {
		style = append(style, "fill:none")
	}
	if visible(stroke) {
		style = append(style, s.strokeStyle(stroke))
	}
	s.canvas.Circle(px(c.X), px(c.Y), r, strings.Join(style, ";"))
}

func (s *SVG) Polygon(points []render.Point, fill render.Paint) {
	if len(points) < 3 || !visible(fill) {
		return
	}
	xs := make([]int, len(points))
	ys := make([]int, len(points))
	for i, p := range points {
		p = s.Pt(p)
		xs[i], ys[i] = px(p.X), px(p.Y)
	}
	s.canvas.Polygon(xs, ys, fmt.Sprintf("fill:%s;fill-opacity:%s", css(fill.Color), num(fill.Alpha)))
}

func (s *SVG) Text(at render.Point, t string, style render.TextStyle) {
	if t == "" || style.Color == "" || style.Alpha <= 0 {
		return
	}
	at = s.Pt(at)
	parts := []string{
		"fill:" + css(style.Color),
		"fill-opacity:" + num(style.Alpha),
		"font-family:sans-serif",
		"font-size:" + num(s.Len(style.Size)) + "px",
		"dominant-baseline:middle",
		"text-anchor:" + textAnchor(style.Align),
	}
	if style.Bold {
		parts = append(parts, "font-weight:bold")
	}
	s.canvas.Text(px(at.X), px(at.Y), t, strings.Join(parts, ";"))
}

// Close ends the document
func (s *SVG) Close() error {
	s.canvas.End()
	return nil
}

func (s *SVG) strokeStyle(p render.Paint) string {
	return fmt.Sprintf("stroke:%s;stroke-opacity:%s;stroke-width:%s", css(p.Color), num(p.Alpha), num(s.Len(p.Width)))
}

// css normalizes a theme color; unparseable input falls back to magenta
// like the raster surface does.
func css(hex string) string {
	c, err := render.ParseColor(hex)
	if err != nil {
		return "#ff00ff"
	}
	return c.Hex()
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

func px(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(v))
}

func textAnchor(a render.Align) string {
	switch a {
	case render.AlignCenter:
		return "middle"
	case render.AlignRight:
		return "end"
	}
	return "start"
}
