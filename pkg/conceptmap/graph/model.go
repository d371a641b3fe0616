// Package graph holds the concept graph: nodes in a single arena owned by
// Model, edges referencing them by index. It has no rendering knowledge.
package graph

import (
	"fmt"
	"iter"
	"strings"
)

// Node is a concept plus its layout state. Nodes live in the Model arena
// and are addressed by index; other subsystems never copy them.
type Node struct {
	Concept

	X, Y   float64
	VX, VY float64

	// Visible is true when the node passes the active filter
	Visible bool
	// Alpha is the current compositing alpha, animated toward 0 or 1
	Alpha float64
}

// Edge references its endpoints by arena index
type Edge struct {
	Source int
	Target int
	Type   RelationType
}

// DroppedEdge is a relationship rejected at load time
type DroppedEdge struct {
	Relationship Relationship
	Reason       string
}

// DataIntegrityError reports malformed input that was filtered out while
// the rest of the payload loaded normally.
type DataIntegrityError struct {
	Dropped    []DroppedEdge
	Duplicates []string
	Invalid    int
}

func (e *DataIntegrityError) Error() string {
	var parts []string
	if n := len(e.Dropped); n > 0 {
		parts = append(parts, fmt.Sprintf("%d relationship(s) dropped", n))
	}
	if n := len(e.Duplicates); n > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicate concept id(s): %s", n, strings.Join(e.Duplicates, ", ")))
	}
	if e.Invalid > 0 {
		parts = append(parts, fmt.Sprintf("%d concept(s) without id", e.Invalid))
	}
	return "data integrity: " + strings.Join(parts, "; ")
}

func (e *DataIntegrityError) empty() bool {
	return len(e.Dropped) == 0 && len(e.Duplicates) == 0 && e.Invalid == 0
}

// Model is the node/edge arena
type Model struct {
	nodes []Node
	edges []Edge
	index map[string]int
	// adj lists edge indices touching each node, in insertion order
	adj   [][]int
	tiers TierTable
	gen   uint64
}

// NewModel creates an empty model using tiers for radius and color
func NewModel(tiers TierTable) *Model {
	if tiers == nil {
		tiers = DefaultTiers()
	}
	return &Model{
		index: make(map[string]int),
		tiers: tiers,
	}
}

// Load replaces the entire model. Relationships with an unknown endpoint,
// concepts without id and repeated ids are dropped and reported through a
// *DataIntegrityError; everything else is loaded regardless.
func (m *Model) Load(p Payload) error {
	integrity := &DataIntegrityError{}

	nodes := make([]Node, 0, len(p.Concepts))
	index := make(map[string]int, len(p.Concepts))
	for _, c := range p.Concepts {
		if c.ID == "" {
			integrity.Invalid++
			continue
		}
		if _, dup := index[c.ID]; dup {
			integrity.Duplicates = append(integrity.Duplicates, c.ID)
			continue
		}
		c.Examples = append([]string(nil), c.Examples...)
		index[c.ID] = len(nodes)
		nodes = append(nodes, Node{Concept: c, Visible: true, Alpha: 1})
	}

	edges := make([]Edge, 0, len(p.Relationships))
	adj := make([][]int, len(nodes))
	for _, r := range p.Relationships {
		src, okS := index[r.From]
		dst, okT := index[r.To]
		switch {
		case !okS && !okT:
			integrity.Dropped = append(integrity.Dropped, DroppedEdge{r, "unknown source and target"})
			continue
		case !okS:
			integrity.Dropped = append(integrity.Dropped, DroppedEdge{r, "unknown source " + r.From})
			continue
		case !okT:
			integrity.Dropped = append(integrity.Dropped, DroppedEdge{r, "unknown target " + r.To})
			continue
		}
		ei := len(edges)
		edges = append(edges, Edge{Source: src, Target: dst, Type: r.Type})
		adj[src] = append(adj[src], ei)
		if dst != src {
			adj[dst] = append(adj[dst], ei)
		}
	}

	m.nodes = nodes
	m.edges = edges
	m.index = index
	m.adj = adj
	m.gen++

	if integrity.empty() {
		return nil
	}
	return integrity
}

// Generation increments on every Load
func (m *Model) Generation() uint64 { return m.gen }

// Len returns the number of nodes
func (m *Model) Len() int { return len(m.nodes) }

// Node returns the node at arena index i
func (m *Model) Node(i int) *Node {
	if i < 0 || i >= len(m.nodes) {
		return nil
	}
	return &m.nodes[i]
}

// Nodes returns the arena. Callers may mutate layout fields in place.
func (m *Model) Nodes() []Node { return m.nodes }

// Edges returns every loaded edge in insertion order
func (m *Model) Edges() []Edge { return m.edges }

// Index returns the arena index of id
func (m *Model) Index(id string) (int, bool) {
	i, ok := m.index[id]
	return i, ok
}

// FindNode returns the node with the given id
func (m *Model) FindNode(id string) (*Node, bool) {
	i, ok := m.index[id]
	if !ok {
		return nil, false
	}
	return &m.nodes[i], true
}

// NeighborsOf yields the nodes connected to id by any edge, in edge
// insertion order. Each neighbor is yielded once. The sequence can be
// ranged over any number of times.
func (m *Model) NeighborsOf(id string) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		i, ok := m.index[id]
		if !ok {
			return
		}
		seen := make(map[int]bool)
		for _, ei := range m.adj[i] {
			e := m.edges[ei]
			other := e.Target
			if other == i {
				other = e.Source
			}
			if other == i || seen[other] {
				continue
			}
			seen[other] = true
			if !yield(&m.nodes[other]) {
				return
			}
		}
	}
}

// Tiers returns the appearance table
func (m *Model) Tiers() TierTable { return m.tiers }

// Radius returns the radius of the node at index i, derived from its tier
func (m *Model) Radius(i int) float64 {
	return m.tiers.Radius(m.nodes[i].Difficulty)
}

// Color returns the fill color of the node at index i
func (m *Model) Color(i int) string {
	return m.tiers.Color(m.nodes[i].Difficulty)
}
