// Package canvas hosts the engine on an HTML canvas when compiled for
// js/wasm. Other targets get a Mount that returns ErrUnsupported.
package canvas

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/recera/conceptmap/pkg/conceptmap/render"
)

// ErrUnsupported is returned by Mount outside the browser
var ErrUnsupported = errors.New("canvas: requires GOOS=js GOARCH=wasm")

// Global is the name of the object Mount installs on window
const Global = "conceptMap"

// cssColor turns a paint into a canvas fillStyle/strokeStyle
func cssColor(hex string, alpha float64) string {
	c := render.NRGBA(hex, alpha)
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, strconv.FormatFloat(float64(c.A)/0xff, 'f', 3, 64))
}

// font returns the canvas font shorthand for a text style
func font(style render.TextStyle) string {
	weight := ""
	if style.Bold {
		weight = "600 "
	}
	return weight + strconv.FormatFloat(style.Size, 'f', -1, 64) + "px system-ui, sans-serif"
}
