// Package export renders a laid-out concept map to PNG or SVG without a
// display.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/recera/conceptmap/internal/cache"
	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/render"
)

// Format is an output image format
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat accepts "png" or "svg" in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatPNG, FormatSVG:
		return f, nil
	}
	return "", fmt.Errorf("export: unsupported format %q", s)
}

// FormatFromPath picks the format from the file extension
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Request describes one snapshot
type Request struct {
	Format  Format
	Width   int
	Height  int
	Payload graph.Payload
	Options conceptmap.Options
	// Filter is applied before fitting when set
	Filter conceptmap.Filter
	// Select highlights a concept id
	Select string
}

// Snapshot lays out the payload, fits it to the canvas and writes one
// frame to w. Integrity problems in the payload are returned alongside a
// successful image so callers can warn.
func Snapshot(w io.Writer, req Request) error {
	switch req.Format {
	case FormatPNG:
		surface, err := NewPNG(req.Width, req.Height)
		if err != nil {
			return err
		}
		warn, err := draw(surface, req)
		if err != nil {
			return err
		}
		if err := surface.Encode(w); err != nil {
			return fmt.Errorf("export: encode png: %w", err)
		}
		return warn
	case FormatSVG:
		surface, err := NewSVG(w, req.Width, req.Height)
		if err != nil {
			return err
		}
		warn, err := draw(surface, req)
		if err != nil {
			return err
		}
		if err := surface.Close(); err != nil {
			return err
		}
		return warn
	}
	return fmt.Errorf("export: unsupported format %q", req.Format)
}

func draw(surface render.Surface, req Request) (warn error, err error) {
	opts := req.Options
	opts.Width, opts.Height = float64(req.Width), float64(req.Height)
	eng, err := conceptmap.New(surface, opts)
	if err != nil {
		return nil, err
	}
	if loadErr := eng.SetConceptsData(req.Payload); loadErr != nil {
		var integrity *graph.DataIntegrityError
		if !errors.As(loadErr, &integrity) {
			return nil, loadErr
		}
		warn = loadErr
	}
	if !req.Filter.IsZero() {
		eng.SetFilter(req.Filter)
		// settle the fade so hidden nodes are gone from the image
		eng.Tick(eng.Options().FadeDuration)
	}
	if req.Select != "" && !eng.Select(req.Select) {
		return nil, fmt.Errorf("export: unknown concept %q", req.Select)
	}
	eng.FitGraph(eng.Options().FitPadding)
	eng.Render()
	return warn, nil
}

// Key identifies the image a request produces. Requests with equal keys
// render identical bytes.
func Key(req Request) (string, error) {
	o := req.Options
	body, err := json.Marshal(struct {
		Format  Format            `json:"format"`
		Width   int               `json:"width"`
		Height  int               `json:"height"`
		Payload graph.Payload     `json:"payload"`
		Filter  conceptmap.Filter `json:"filter"`
		Select  string            `json:"select"`
	}{req.Format, req.Width, req.Height, req.Payload, req.Filter, req.Select})
	if err != nil {
		return "", fmt.Errorf("export: key: %w", err)
	}
	look := fmt.Sprintf("%+v|%v|%v|%v|%+v|%v", o.Physics, o.MinZoom, o.MaxZoom, o.Tiers, o.Theme, o.FitPadding)
	return cache.Key(string(body), look), nil
}

// Cached returns the snapshot for req from c, rendering and storing it on a
// miss. Integrity warnings are returned with the image on a miss only.
func Cached(c *cache.Cache, req Request) (data []byte, hit bool, err error) {
	key, err := Key(req)
	if err != nil {
		return nil, false, err
	}
	if data, ok := c.Get(key); ok {
		return data, true, nil
	}
	var buf bytes.Buffer
	warn := Snapshot(&buf, req)
	var integrity *graph.DataIntegrityError
	if warn != nil && !errors.As(warn, &integrity) {
		return nil, false, warn
	}
	if err := c.Put(key, buf.Bytes()); err != nil {
		return nil, false, err
	}
	return buf.Bytes(), false, warn
}

// ContentType returns the MIME type of f
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}
