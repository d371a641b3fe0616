package hittest

import (
	"testing"

	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/viewport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func model(t *testing.T) *graph.Model {
	t.Helper()
	m := graph.NewModel(graph.TierTable{
		graph.Beginner:     {Radius: 10, Color: "#10b981"},
		graph.Intermediate: {Radius: 20, Color: "#3b82f6"},
		graph.Advanced:     {Radius: 30, Color: "#ef4444"},
	})
	require.NoError(t, m.Load(graph.Payload{Concepts: []graph.Concept{
		{ID: "A", Name: "A", Difficulty: graph.Beginner},
		{ID: "B", Name: "B", Difficulty: graph.Intermediate},
		{ID: "C", Name: "C", Difficulty: graph.Advanced},
	}}))
	place := map[string]viewport.Point{"A": {100, 100}, "B": {300, 120}, "C": {320, 130}}
	for id, p := range place {
		n, _ := m.FindNode(id)
		n.X, n.Y = p.X, p.Y
	}
	return m
}

func transforms() []viewport.Transform {
	return []viewport.Transform{
		viewport.Identity,
		{Zoom: 2, Pan: viewport.Point{X: -50, Y: 30}},
		{Zoom: 0.5, Pan: viewport.Point{X: 200, Y: -100}},
	}
}

func TestNodeAt_CentreResolves(t *testing.T) {
	m := model(t)
	for _, tr := range transforms() {
		for _, id := range []string{"A", "C"} {
			n, _ := m.FindNode(id)
			screen := tr.WorldToScreen(viewport.Point{X: n.X, Y: n.Y})
			i, ok := NodeAt(m, tr, screen)
			require.True(t, ok, "zoom %v id %s", tr.Zoom, id)
			assert.Equal(t, id, m.Node(i).ID)
		}
	}
}

func TestNodeAt_TopmostWins(t *testing.T) {
	m := model(t)
	// B and C overlap at (310, 125); C is drawn later
	i, ok := NodeAt(m, viewport.Identity, viewport.Point{X: 310, Y: 125})
	require.True(t, ok)
	assert.Equal(t, "C", m.Node(i).ID)
}

func TestNodeAt_RadiusEdge(t *testing.T) {
	m := model(t)
	tr := viewport.Transform{Zoom: 2}

	// A has radius 10 world units, 20 pixels at zoom 2
	_, ok := NodeAt(m, tr, viewport.Point{X: 200 + 20, Y: 200})
	assert.True(t, ok)
	_, ok = NodeAt(m, tr, viewport.Point{X: 200 + 21, Y: 200})
	assert.False(t, ok)
}

func TestNodeAt_SkipsHidden(t *testing.T) {
	m := model(t)
	c, _ := m.FindNode("C")
	c.Visible = false

	i, ok := NodeAt(m, viewport.Identity, viewport.Point{X: 310, Y: 125})
	require.True(t, ok)
	assert.Equal(t, "B", m.Node(i).ID)
}

func TestNodeAt_None(t *testing.T) {
	m := model(t)
	i, ok := NodeAt(m, viewport.Identity, viewport.Point{X: 700, Y: 500})
	assert.False(t, ok)
	assert.Equal(t, -1, i)

	_, ok = NodeAt(graph.NewModel(nil), viewport.Identity, viewport.Point{})
	assert.False(t, ok)
}
