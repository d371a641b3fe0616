// Package anim advances the two time-driven animations of the map: per-node
// filter fades and the focus-travel camera pan. Both are retargetable; a new
// request restarts from the current interpolated value.
package anim

import (
	"math"
	"time"

	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/viewport"
)

// EaseOutCubic maps t in [0, 1] to 1-(1-t)^3
func EaseOutCubic(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	u := 1 - t
	return 1 - u*u*u
}

type fade struct {
	from, to float64
	elapsed  time.Duration
	active   bool
}

type travel struct {
	from, to viewport.Point
	elapsed  time.Duration
	active   bool
}

// Scheduler owns the in-flight animations. It is not safe for concurrent
// use; the engine drives it from its tick.
type Scheduler struct {
	fadeDur  time.Duration
	focusDur time.Duration

	fades  []fade
	travel travel
}

// New creates a scheduler. A zero duration makes that kind snap.
func New(fadeDuration, focusDuration time.Duration) *Scheduler {
	return &Scheduler{fadeDur: fadeDuration, focusDur: focusDuration}
}

// Durations returns the fade and focus durations
func (s *Scheduler) Durations() (fadeDur, focusDur time.Duration) {
	return s.fadeDur, s.focusDur
}

// Reset drops every animation, e.g. after the model is reloaded
func (s *Scheduler) Reset() {
	s.fades = s.fades[:0]
	s.travel = travel{}
}

// Retarget points every node's fade at 1 when it is visible and 0 when it
// is not. Nodes already heading to the right value keep their progress;
// others restart from their current alpha.
func (s *Scheduler) Retarget(m *graph.Model) {
	nodes := m.Nodes()
	if len(s.fades) != len(nodes) {
		s.fades = make([]fade, len(nodes))
		for i := range nodes {
			s.fades[i] = fade{from: nodes[i].Alpha, to: nodes[i].Alpha}
		}
	}
	for i := range nodes {
		n := &nodes[i]
		target := 0.0
		if n.Visible {
			target = 1
		}
		f := &s.fades[i]
		if f.to == target && (f.active || n.Alpha == target) {
			continue
		}
		if s.fadeDur <= 0 {
			n.Alpha = target
			*f = fade{from: target, to: target}
			continue
		}
		*f = fade{from: n.Alpha, to: target, active: true}
	}
}

// Travel starts a pan from the current pan to target, replacing any
// travel in flight.
func (s *Scheduler) Travel(from, to viewport.Point) {
	s.travel = travel{from: from, to: to, active: true}
}

// CancelTravel stops focus travel where it is
func (s *Scheduler) CancelTravel() { s.travel.active = false }

// Traveling reports whether focus travel is in flight, and its target
func (s *Scheduler) Traveling() (viewport.Point, bool) {
	return s.travel.to, s.travel.active
}

// Fading reports whether any node is still fading
func (s *Scheduler) Fading() bool {
	for i := range s.fades {
		if s.fades[i].active {
			return true
		}
	}
	return false
}

// Active reports whether another frame is needed to finish an animation
func (s *Scheduler) Active() bool { return s.travel.active || s.Fading() }

// Advance moves every animation forward by dt, writing node alphas into m
// and the pan into vp.
func (s *Scheduler) Advance(dt time.Duration, m *graph.Model, vp *viewport.Viewport) {
	if dt < 0 {
		dt = 0
	}
	nodes := m.Nodes()
	for i := range s.fades {
		f := &s.fades[i]
		if !f.active || i >= len(nodes) {
			continue
		}
		f.elapsed += dt
		t := progress(f.elapsed, s.fadeDur)
		nodes[i].Alpha = f.from + (f.to-f.from)*EaseOutCubic(t)
		if t >= 1 {
			nodes[i].Alpha = f.to
			f.active = false
		}
	}

	if s.travel.active {
		s.travel.elapsed += dt
		t := progress(s.travel.elapsed, s.focusDur)
		vp.SetPan(s.travel.from.Lerp(s.travel.to, EaseOutCubic(t)))
		if t >= 1 {
			vp.SetPan(s.travel.to)
			s.travel.active = false
		}
	}
}

func progress(elapsed, total time.Duration) float64 {
	if total <= 0 {
		return 1
	}
	return math.Min(1, float64(elapsed)/float64(total))
}
