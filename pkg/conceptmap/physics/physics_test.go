package physics

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPayload(rng *rand.Rand, n, e int) graph.Payload {
	var p graph.Payload
	for i := 0; i < n; i++ {
		p.Concepts = append(p.Concepts, graph.Concept{
			ID:         fmt.Sprintf("c%d", i),
			Name:       fmt.Sprintf("Concept %d", i),
			Difficulty: graph.Difficulties[rng.Intn(len(graph.Difficulties))],
		})
	}
	for i := 0; i < e && n > 1; i++ {
		a, b := rng.Intn(n), rng.Intn(n)
		p.Relationships = append(p.Relationships, graph.Relationship{
			From: fmt.Sprintf("c%d", a),
			To:   fmt.Sprintf("c%d", b),
			Type: graph.UsedBy,
		})
	}
	return p
}

func loaded(t *testing.T, p graph.Payload) *graph.Model {
	t.Helper()
	m := graph.NewModel(nil)
	require.NoError(t, m.Load(p))
	return m
}

func assertInBounds(t *testing.T, s *Simulator, m *graph.Model) {
	t.Helper()
	w, h := s.Bounds()
	pad := s.Config().Padding
	for i, n := range m.Nodes() {
		if !n.Visible {
			continue
		}
		r := m.Radius(i)
		assert.GreaterOrEqual(t, n.X-r-pad, -1e-9, "node %s left edge", n.ID)
		assert.LessOrEqual(t, n.X+r+pad, w+1e-9, "node %s right edge", n.ID)
		assert.GreaterOrEqual(t, n.Y-r-pad, -1e-9, "node %s top edge", n.ID)
		assert.LessOrEqual(t, n.Y+r+pad, h+1e-9, "node %s bottom edge", n.ID)
	}
}

func TestLayout_StaysInBoundsAndSeparated(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sizes := []struct{ nodes, edges int }{{1, 0}, {2, 1}, {4, 3}, {12, 20}, {40, 60}, {120, 200}, {150, 149}, {200, 199}, {200, 400}}
	for _, sz := range sizes {
		t.Run(fmt.Sprintf("%d_nodes", sz.nodes), func(t *testing.T) {
			m := loaded(t, randomPayload(rng, sz.nodes, sz.edges))
			s := New(DefaultConfig(), 800, 600)
			s.Layout(m)

			assertInBounds(t, s, m)

			nodes := m.Nodes()
			for i := range nodes {
				assert.False(t, math.IsNaN(nodes[i].X) || math.IsNaN(nodes[i].Y))
				for j := i + 1; j < len(nodes); j++ {
					d := math.Hypot(nodes[i].X-nodes[j].X, nodes[i].Y-nodes[j].Y)
					assert.NotZero(t, d, "%s and %s coincide", nodes[i].ID, nodes[j].ID)
				}
			}
		})
	}
}

func TestSeed_IsReproducible(t *testing.T) {
	p := randomPayload(rand.New(rand.NewSource(1)), 10, 12)
	m1, m2 := loaded(t, p), loaded(t, p)
	s := New(DefaultConfig(), 800, 600)

	s.Layout(m1)
	s.Layout(m2)
	for i := range m1.Nodes() {
		assert.Equal(t, m1.Nodes()[i].X, m2.Nodes()[i].X)
		assert.Equal(t, m1.Nodes()[i].Y, m2.Nodes()[i].Y)
	}
}

func TestSeed_Circle(t *testing.T) {
	m := loaded(t, randomPayload(rand.New(rand.NewSource(3)), 4, 0))
	s := New(DefaultConfig(), 800, 600)
	s.Seed(m)

	nodes := m.Nodes()
	// index 0 sits at angle 0, index 2 opposite it
	assert.InDelta(t, 400+210, nodes[0].X, 1e-9)
	assert.InDelta(t, 300, nodes[0].Y, 1e-9)
	assert.InDelta(t, 400-210, nodes[2].X, 1e-9)
}

func TestStep_ConnectedPairSettles(t *testing.T) {
	m := loaded(t, graph.Payload{
		Concepts:      []graph.Concept{{ID: "a", Name: "a"}, {ID: "b", Name: "b"}},
		Relationships: []graph.Relationship{{From: "a", To: "b", Type: graph.UsedBy}},
	})
	cfg := DefaultConfig()
	s := New(cfg, 2000, 2000)
	s.Seed(m)
	s.Run(m, 2000)

	a, b := m.Nodes()[0], m.Nodes()[1]
	d := math.Hypot(a.X-b.X, a.Y-b.Y)
	// each end feels k_r/d^2 outward and k_a*d inward
	want := math.Cbrt(cfg.Repulsion / cfg.Attraction)
	assert.InDelta(t, want, d, want*0.05)
}

func TestStep_CoincidentNodesSeparate(t *testing.T) {
	m := loaded(t, randomPayload(rand.New(rand.NewSource(5)), 3, 0))
	s := New(DefaultConfig(), 800, 600)
	for i := range m.Nodes() {
		m.Nodes()[i].X, m.Nodes()[i].Y = 400, 300
	}
	s.Step(m, -1)

	nodes := m.Nodes()
	for i := range nodes {
		assert.False(t, math.IsNaN(nodes[i].X))
		for j := i + 1; j < len(nodes); j++ {
			assert.NotEqual(t, [2]float64{nodes[i].X, nodes[i].Y}, [2]float64{nodes[j].X, nodes[j].Y})
		}
	}
}

func TestStep_NodesStackedInCornerSeparate(t *testing.T) {
	m := loaded(t, randomPayload(rand.New(rand.NewSource(11)), 6, 0))
	s := New(DefaultConfig(), 800, 600)
	for i := range m.Nodes() {
		// far outside the top-left corner, so every node clamps to it
		m.Nodes()[i].X, m.Nodes()[i].Y = -1e4, -1e4
	}
	s.Step(m, -1)

	assertInBounds(t, s, m)
	nodes := m.Nodes()
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			assert.NotEqual(t, [2]float64{nodes[i].X, nodes[i].Y}, [2]float64{nodes[j].X, nodes[j].Y},
				"%s and %s share a corner", nodes[i].ID, nodes[j].ID)
		}
	}
}

func TestStep_ChainLayoutHasNoStackedNodes(t *testing.T) {
	for _, n := range []int{100, 150, 200} {
		t.Run(fmt.Sprintf("%d_nodes", n), func(t *testing.T) {
			var p graph.Payload
			for i := 0; i < n; i++ {
				p.Concepts = append(p.Concepts, graph.Concept{ID: fmt.Sprintf("c%d", i), Name: fmt.Sprintf("Concept %d", i)})
				if i > 0 {
					p.Relationships = append(p.Relationships, graph.Relationship{
						From: fmt.Sprintf("c%d", i-1), To: fmt.Sprintf("c%d", i), Type: graph.UsedBy,
					})
				}
			}
			m := loaded(t, p)
			s := New(DefaultConfig(), 800, 600)
			s.Layout(m)

			assertInBounds(t, s, m)
			seen := make(map[[2]float64]string, n)
			for _, nd := range m.Nodes() {
				key := [2]float64{nd.X, nd.Y}
				if other, ok := seen[key]; ok {
					t.Errorf("%s and %s coincide at %v", other, nd.ID, key)
				}
				seen[key] = nd.ID
			}
		})
	}
}

func TestStep_DivergenceRollsBack(t *testing.T) {
	m := loaded(t, randomPayload(rand.New(rand.NewSource(9)), 5, 4))
	s := New(DefaultConfig(), 800, 600)
	s.Layout(m)

	before := m.Nodes()[2]
	m.Nodes()[2].VX = math.NaN()
	s.Step(m, -1)

	after := m.Nodes()[2]
	assert.Equal(t, before.X, after.X)
	assert.Equal(t, before.Y, after.Y)
	assert.Zero(t, after.VX)

	for _, n := range m.Nodes() {
		assert.False(t, math.IsNaN(n.X) || math.IsNaN(n.Y))
	}
}

func TestStep_PinnedNodeDoesNotMove(t *testing.T) {
	m := loaded(t, randomPayload(rand.New(rand.NewSource(13)), 6, 8))
	s := New(DefaultConfig(), 800, 600)
	s.Seed(m)

	m.Nodes()[1].X, m.Nodes()[1].Y = 123, 456
	for i := 0; i < 20; i++ {
		s.Step(m, 1)
	}
	assert.Equal(t, 123.0, m.Nodes()[1].X)
	assert.Equal(t, 456.0, m.Nodes()[1].Y)
}

func TestStep_HiddenNodesIgnored(t *testing.T) {
	m := loaded(t, randomPayload(rand.New(rand.NewSource(17)), 4, 0))
	s := New(DefaultConfig(), 800, 600)
	s.Seed(m)

	hidden := m.Nodes()[3]
	m.Nodes()[3].Visible = false
	s.Run(m, 10)

	assert.Equal(t, hidden.X, m.Nodes()[3].X)
	assert.Equal(t, hidden.Y, m.Nodes()[3].Y)
}

func TestClamp_NarrowCanvasCentres(t *testing.T) {
	m := loaded(t, randomPayload(rand.New(rand.NewSource(19)), 2, 0))
	s := New(DefaultConfig(), 30, 600)
	s.Layout(m)

	for _, n := range m.Nodes() {
		assert.Equal(t, 15.0, n.X)
	}
}
