package export

import (
	"bytes"
	"encoding/xml"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/conceptmap/internal/cache"
	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/render"
	"github.com/recera/conceptmap/pkg/conceptmap/viewport"
)

func payload() graph.Payload {
	return graph.Payload{
		Concepts: []graph.Concept{
			{ID: "fork", Name: "Fork", Category: "tactical", Difficulty: graph.Beginner},
			{ID: "pin", Name: "Pin", Category: "tactical", Difficulty: graph.Intermediate},
			{ID: "outpost", Name: "Outpost & <Hole>", Category: "strategic", Difficulty: graph.Advanced},
		},
		Relationships: []graph.Relationship{
			{From: "fork", To: "pin", Type: graph.UsedBy},
			{From: "outpost", To: "pin", Type: graph.BelongsTo},
		},
	}
}

func TestFormats(t *testing.T) {
	f, err := FormatFromPath("map.PNG")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)
	f, err = ParseFormat("svg")
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, f)
	_, err = FormatFromPath("map.gif")
	assert.Error(t, err)
}

func near(t *testing.T, want, got color.Color) {
	t.Helper()
	wr, wg, wb, _ := want.RGBA()
	gr, gg, gb, _ := got.RGBA()
	d := func(a, b uint32) float64 { return math.Abs(float64(a>>8) - float64(b>>8)) }
	assert.LessOrEqual(t, d(wr, gr)+d(wg, gg)+d(wb, gb), 6.0, "want %v got %v", want, got)
}

func TestPNGDrawsNodesAtTheirScreenPositions(t *testing.T) {
	surface, err := NewPNG(400, 300)
	require.NoError(t, err)
	eng, err := conceptmap.New(surface, conceptmap.Options{})
	require.NoError(t, err)
	require.NoError(t, eng.SetConceptsData(payload()))
	eng.FitGraph(40)
	eng.Render()

	img := surface.Image()
	theme := render.DefaultTheme()
	near(t, render.NRGBA(theme.Background, 1), img.At(1, 1))

	tr := eng.Transform()
	for id, hex := range map[string]string{"fork": "#10b981", "outpost": "#ef4444"} {
		world, ok := eng.Position(id)
		require.True(t, ok)
		s := tr.WorldToScreen(world)
		// offset a little from centre to stay clear of the label
		near(t, render.NRGBA(hex, 1), img.At(int(s.X), int(s.Y-4)))
	}
}

func TestPNGSnapshot(t *testing.T) {
	var buf bytes.Buffer
	err := Snapshot(&buf, Request{Format: FormatPNG, Width: 320, Height: 240, Payload: payload(), Select: "pin"})
	require.NoError(t, err)

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

func TestSVGSnapshot(t *testing.T) {
	var buf bytes.Buffer
	err := Snapshot(&buf, Request{Format: FormatSVG, Width: 640, Height: 480, Payload: payload()})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<?xml"))
	assert.Equal(t, 3, strings.Count(out, "fill:#10b981")+strings.Count(out, "fill:#3b82f6")+strings.Count(out, "fill:#ef4444"))
	assert.Contains(t, out, "Outpost &amp; &lt;Hole&gt;")
	assert.Contains(t, out, "3/3 concepts")

	// well formed
	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		if _, err := dec.Token(); err != nil {
			assert.EqualError(t, err, "EOF")
			break
		}
	}
}

func TestSnapshotFilterAndErrors(t *testing.T) {
	var buf bytes.Buffer
	err := Snapshot(&buf, Request{
		Format:  FormatSVG,
		Width:   640,
		Height:  480,
		Payload: payload(),
		Filter:  conceptmap.Filter{Categories: []graph.Category{"strategic"}},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1/3 concepts")
	assert.NotContains(t, buf.String(), "fill:#10b981")

	err = Snapshot(&bytes.Buffer{}, Request{Format: FormatPNG, Width: 100, Height: 100, Payload: payload(), Select: "nope"})
	assert.Error(t, err)

	err = Snapshot(&bytes.Buffer{}, Request{Format: FormatPNG, Width: 0, Height: 100})
	assert.Error(t, err)

	err = Snapshot(&bytes.Buffer{}, Request{Format: "bmp", Width: 10, Height: 10})
	assert.Error(t, err)
}

func TestSnapshotIntegrityWarning(t *testing.T) {
	p := payload()
	p.Relationships = append(p.Relationships, graph.Relationship{From: "fork", To: "ghost"})
	var buf bytes.Buffer
	err := Snapshot(&buf, Request{Format: FormatPNG, Width: 100, Height: 100, Payload: p})
	var integrity *graph.DataIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.NotZero(t, buf.Len(), "image still written")
}

func TestSVGStyles(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewSVG(&buf, 100, 100)
	require.NoError(t, err)
	s.SetTransform(viewport.Transform{Zoom: 2, Pan: viewport.Point{X: 10}})
	s.Circle(render.Point{X: 5, Y: 5}, 4, render.Paint{Color: "#abc", Alpha: 0.5}, render.None)
	s.Line(render.Point{}, render.Point{X: 1}, render.None)
	require.NoError(t, s.Close())

	out := buf.String()
	assert.Contains(t, out, `cx="20" cy="10" r="8"`)
	assert.Contains(t, out, "fill:#aabbcc;fill-opacity:0.5")
	assert.NotContains(t, out, "<line")
}

func TestCachedSnapshot(t *testing.T) {
	c, err := cache.New(cache.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	req := Request{Format: FormatSVG, Width: 320, Height: 200, Payload: payload()}

	first, hit, err := Cached(c, req)
	require.NoError(t, err)
	assert.False(t, hit)

	again, hit, err := Cached(c, req)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, again)

	req.Width = 321
	_, hit, err = Cached(c, req)
	require.NoError(t, err)
	assert.False(t, hit, "size is part of the key")

	req.Options.Theme.Background = "#ffffff"
	k1, err := Key(req)
	require.NoError(t, err)
	req.Options.Theme.Background = "#000000"
	k2, err := Key(req)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2, "theme is part of the key")
}

func TestCachedKeepsIntegrityWarning(t *testing.T) {
	c, err := cache.New(cache.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	p := payload()
	p.Relationships = append(p.Relationships, graph.Relationship{From: "fork", To: "ghost"})

	data, hit, err := Cached(c, Request{Format: FormatPNG, Width: 64, Height: 64, Payload: p})
	var integrity *graph.DataIntegrityError
	assert.ErrorAs(t, err, &integrity)
	assert.False(t, hit)
	assert.NotEmpty(t, data)
	assert.Equal(t, "image/png", FormatPNG.ContentType())
	assert.Equal(t, "image/svg+xml", FormatSVG.ContentType())
}
