// Package hittest resolves which node lies under a screen point
package hittest

import (
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/viewport"
)

// NodeAt converts screen to world space with the single transform snapshot
// t and returns the arena index of the first visible node whose centre is
// within its radius of that point. Nodes are scanned in reverse draw order
// so the visually topmost one wins on overlap.
func NodeAt(m *graph.Model, t viewport.Transform, screen viewport.Point) (int, bool) {
	world := t.ScreenToWorld(screen)
	nodes := m.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		n := &nodes[i]
		if !n.Visible {
			continue
		}
		r := m.Radius(i)
		dx := world.X - n.X
		dy := world.Y - n.Y
		if dx*dx+dy*dy <= r*r {
			return i, true
		}
	}
	return -1, false
}
