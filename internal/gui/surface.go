package gui

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/recera/conceptmap/pkg/conceptmap/render"
)

// Screen draws onto the ebiten frame image. Draw points it at the screen
// before each Render.
type Screen struct {
	render.Mapper
	img           *ebiten.Image
	width, height float64

	regular, bold *text.GoTextFaceSource
	// white is the source texture for filled polygons
	white *ebiten.Image
}

// NewScreen creates a surface of the given logical size
func NewScreen(width, height float64) (*Screen, error) {
	regular, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, fmt.Errorf("gui: load font: %w", err)
	}
	bold, err := text.NewGoTextFaceSource(bytes.NewReader(gobold.TTF))
	if err != nil {
		return nil, fmt.Errorf("gui: load font: %w", err)
	}
	white := ebiten.NewImage(3, 3)
	white.Fill(color.White)
	return &Screen{
		width:   width,
		height:  height,
		regular: regular,
		bold:    bold,
		white:   white,
	}, nil
}

// Target sets the image the next frame draws on
func (s *Screen) Target(img *ebiten.Image) { s.img = img }

// Resize changes the reported size
func (s *Screen) Resize(width, height float64) { s.width, s.height = width, height }

func (s *Screen) Size() (float64, float64) { return s.width, s.height }

func (s *Screen) Clear(c string) {
	if s.img == nil {
		return
	}
	s.img.Fill(render.NRGBA(c, 1))
}

func (s *Screen) Line(a, b render.Point, stroke render.Paint) {
	if s.img == nil || !visible(stroke) {
		return
	}
	a, b = s.Pt(a), s.Pt(b)
	vector.StrokeLine(s.img, float32(a.X), float32(a.Y), float32(b.X), float32(b.Y),
		float32(s.Len(stroke.Width)), render.NRGBA(stroke.Color, stroke.Alpha), true)
}

func (s *Screen) Circle(center render.Point, radius float64, fill, stroke render.Paint) {
	if s.img == nil {
		return
	}
	c, r := s.Pt(center), float32(s.Len(radius))
	if visible(fill) {
		vector.DrawFilledCircle(s.img, float32(c.X), float32(c.Y), r, render.NRGBA(fill.Color, fill.Alpha), true)
	}
	if visible(stroke) {
		vector.StrokeCircle(s.img, float32(c.X), float32(c.Y), r, float32(s.Len(stroke.Width)),
			render.NRGBA(stroke.Color, stroke.Alpha), true)
	}
}

func (s *Screen) Polygon(points []render.Point, fill render.Paint) {
	if s.img == nil || len(points) < 3 || !visible(fill) {
		return
	}
	var path vector.Path
	for i, p := range points {
		p = s.Pt(p)
		if i == 0 {
			path.MoveTo(float32(p.X), float32(p.Y))
		} else {
			path.LineTo(float32(p.X), float32(p.Y))
		}
	}
	path.Close()

	vs, is := path.AppendVerticesAndIndicesForFilling(nil, nil)
	col := render.NRGBA(fill.Color, fill.Alpha)
	for i := range vs {
		vs[i].SrcX, vs[i].SrcY = 1, 1
		vs[i].ColorR = float32(col.R) / 0xff
		vs[i].ColorG = float32(col.G) / 0xff
		vs[i].ColorB = float32(col.B) / 0xff
		vs[i].ColorA = float32(col.A) / 0xff
	}
	op := &ebiten.DrawTrianglesOptions{AntiAlias: true}
	s.img.DrawTriangles(vs, is, s.white, op)
}

func (s *Screen) Text(at render.Point, str string, style render.TextStyle) {
	if s.img == nil || str == "" || style.Color == "" || style.Alpha <= 0 {
		return
	}
	size := s.Len(style.Size)
	if size < 1 {
		return
	}
	src := s.regular
	if style.Bold {
		src = s.bold
	}
	at = s.Pt(at)
	op := &text.DrawOptions{}
	op.GeoM.Translate(at.X, at.Y)
	op.ColorScale.ScaleWithColor(render.NRGBA(style.Color, style.Alpha))
	op.PrimaryAlign = align(style.Align)
	op.SecondaryAlign = text.AlignCenter
	text.Draw(s.img, str, &text.GoTextFace{Source: src, Size: size}, op)
}

func visible(p render.Paint) bool { return p.Color != "" && p.Alpha > 0 }

func align(a render.Align) text.Align {
	switch a {
	case render.AlignCenter:
		return text.AlignCenter
	case render.AlignRight:
		return text.AlignEnd
	}
	return text.AlignStart
}
