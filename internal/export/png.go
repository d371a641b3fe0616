package export

import (
	"fmt"
	"image"
	"io"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/recera/conceptmap/pkg/conceptmap/render"
)

type faceKey struct {
	size float64
	bold bool
}

// PNG rasterizes frames with gg
type PNG struct {
	render.Mapper
	dc            *gg.Context
	regular, bold *truetype.Font
	faces         map[faceKey]font.Face
}

// NewPNG creates a raster surface of the given pixel size
func NewPNG(width, height int) (*PNG, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("export: invalid size %dx%d", width, height)
	}
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("export: parse font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("export: parse font: %w", err)
	}
	return &PNG{
		dc:      gg.NewContext(width, height),
		regular: regular,
		bold:    bold,
		faces:   make(map[faceKey]font.Face),
	}, nil
}

func (p *PNG) Size() (float64, float64) {
	return float64(p.dc.Width()), float64(p.dc.Height())
}

func (p *PNG) Clear(c string) {
	p.dc.SetColor(render.NRGBA(c, 1))
	p.dc.Clear()
}

func (p *PNG) Line(a, b render.Point, stroke render.Paint) {
	if !visible(stroke) {
		return
	}
	a, b = p.Pt(a), p.Pt(b)
	p.dc.SetColor(render.NRGBA(stroke.Color, stroke.Alpha))
	p.dc.SetLineWidth(p.Len(stroke.Width))
	p.dc.DrawLine(a.X, a.Y, b.X, b.Y)
	p.dc.Stroke()
}

func (p *PNG) Circle(center render.Point, radius float64, fill, stroke render.Paint) {
	c, r := p.Pt(center), p.Len(radius)
	if visible(fill) {
		p.dc.SetColor(render.NRGBA(fill.Color, fill.Alpha))
		p.dc.DrawCircle(c.X, c.Y, r)
		p.dc.Fill()
	}
	if visible(stroke) {
		p.dc.SetColor(render.NRGBA(stroke.Color, stroke.Alpha))
		p.dc.SetLineWidth(p.Len(stroke.Width))
		p.dc.DrawCircle(c.X, c.Y, r)
		p.dc.Stroke()
	}
}

func (p *PNG) Polygon(points []render.Point, fill render.Paint) {
	if len(points) < 3 || !visible(fill) {
		return
	}
	for i, pt := range points {
		pt = p.Pt(pt)
		if i == 0 {
			p.dc.MoveTo(pt.X, pt.Y)
		} else {
			p.dc.LineTo(pt.X, pt.Y)
		}
	}
	p.dc.ClosePath()
	p.dc.SetColor(render.NRGBA(fill.Color, fill.Alpha))
	p.dc.Fill()
}

func (p *PNG) Text(at render.Point, s string, style render.TextStyle) {
	if s == "" || style.Color == "" || style.Alpha <= 0 {
		return
	}
	size := p.Len(style.Size)
	if size < 1 {
		return
	}
	p.dc.SetFontFace(p.face(size, style.Bold))
	p.dc.SetColor(render.NRGBA(style.Color, style.Alpha))
	at = p.Pt(at)
	p.dc.DrawStringAnchored(s, at.X, at.Y, anchor(style.Align), 0.5)
}

func (p *PNG) face(size float64, bold bool) font.Face {
	k := faceKey{size: size, bold: bold}
	if f, ok := p.faces[k]; ok {
		return f
	}
	ttf := p.regular
	if bold {
		ttf = p.bold
	}
	f := truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	p.faces[k] = f
	return f
}

// Image returns the backing image
func (p *PNG) Image() image.Image { return p.dc.Image() }

// Encode writes the image as PNG
func (p *PNG) Encode(w io.Writer) error { return p.dc.EncodePNG(w) }

func visible(paint render.Paint) bool {
	return paint.Color != "" && paint.Alpha > 0
}

func anchor(a render.Align) float64 {
	switch a {
	case render.AlignCenter:
		return 0.5
	case render.AlignRight:
		return 1
	}
	return 0
}
