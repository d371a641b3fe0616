package render

import (
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ParseColor parses a #rgb or #rrggbb hex color
func ParseColor(hex string) (colorful.Color, error) {
	return colorful.Hex(expandHex(hex))
}

// ValidColor reports whether hex parses
func ValidColor(hex string) bool {
	_, err := ParseColor(hex)
	return err == nil
}

// NRGBA converts a hex color and alpha to a non-premultiplied color.
// Unparseable colors come back as opaque magenta so they stand out.
func NRGBA(hex string, alpha float64) color.NRGBA {
	c, err := ParseColor(hex)
	if err != nil {
		return color.NRGBA{R: 0xff, B: 0xff, A: 0xff}
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(clamp01(alpha) * 255))}
}

// Blend composites fg at alpha over bg and returns the hex result. Hosts
// without an alpha channel (terminals) use it to fade nodes.
func Blend(fg, bg string, alpha float64) string {
	f, err := ParseColor(fg)
	if err != nil {
		return fg
	}
	b, err := ParseColor(bg)
	if err != nil {
		return f.Hex()
	}
	return b.BlendRgb(f, clamp01(alpha)).Clamped().Hex()
}

func expandHex(hex string) string {
	if len(hex) == 4 && hex[0] == '#' {
		return string([]byte{'#', hex[1], hex[1], hex[2], hex[2], hex[3], hex[3]})
	}
	return hex
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
