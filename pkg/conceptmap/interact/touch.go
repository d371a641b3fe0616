package interact

import "math"

type touchMode uint8

const (
	touchIdle touchMode = iota
	touchSingle
	touchPinch
	// touchBlocked swallows input after a pinch until every finger lifts
	touchBlocked
)

// TouchNormalizer maps touch events onto pointer and pinch events so the
// controller never branches on input modality. One finger behaves like a
// mouse pointer. A second finger cancels the pointer gesture and starts a
// pinch zoom about the midpoint of the first two contacts.
type TouchNormalizer struct {
	mode     touchMode
	last     Point
	lastDist float64
}

// Normalize converts a touch event. Non-touch events pass through unchanged.
func (n *TouchNormalizer) Normalize(e Event) []Event {
	if !e.IsTouch() {
		return []Event{e}
	}
	switch e.Type {
	case TouchStart:
		return n.start(e.Touches)
	case TouchMove:
		return n.move(e.Touches)
	case TouchEnd:
		return n.end(e.Touches, false)
	case TouchCancel:
		return n.end(e.Touches, true)
	}
	return nil
}

func (n *TouchNormalizer) start(touches []Touch) []Event {
	switch {
	case len(touches) == 0:
		return nil
	case len(touches) == 1 && n.mode == touchIdle:
		n.mode = touchSingle
		n.last = touchPoint(touches[0])
		return []Event{{Type: PointerDown, X: n.last.X, Y: n.last.Y}}
	case len(touches) >= 2 && (n.mode == touchIdle || n.mode == touchSingle):
		var out []Event
		if n.mode == touchSingle {
			out = append(out, Event{Type: PointerCancel, X: n.last.X, Y: n.last.Y})
		}
		n.mode = touchPinch
		_, n.lastDist = pinchGeometry(touches)
		return out
	}
	return nil
}

func (n *TouchNormalizer) move(touches []Touch) []Event {
	switch n.mode {
	case touchSingle:
		if len(touches) == 0 {
			return nil
		}
		n.last = touchPoint(touches[0])
		return []Event{{Type: PointerMove, X: n.last.X, Y: n.last.Y}}
	case touchPinch:
		if len(touches) < 2 {
			return nil
		}
		mid, dist := pinchGeometry(touches)
		prev := n.lastDist
		n.lastDist = dist
		if prev <= 0 || dist <= 0 {
			return nil
		}
		return []Event{{Type: Pinch, X: mid.X, Y: mid.Y, Scale: dist / prev}}
	}
	return nil
}

func (n *TouchNormalizer) end(remaining []Touch, cancel bool) []Event {
	var out []Event
	switch n.mode {
	case touchSingle:
		typ := PointerUp
		if cancel {
			typ = PointerCancel
		}
		out = append(out, Event{Type: typ, X: n.last.X, Y: n.last.Y})
		n.mode = touchIdle
	case touchPinch:
		n.mode = touchBlocked
	}
	if len(remaining) == 0 {
		n.mode = touchIdle
	} else if n.mode == touchIdle {
		n.mode = touchBlocked
	}
	return out
}

// Reset forgets any gesture in progress
func (n *TouchNormalizer) Reset() { *n = TouchNormalizer{} }

func touchPoint(t Touch) Point { return Point{X: t.X, Y: t.Y} }

func pinchGeometry(touches []Touch) (Point, float64) {
	a, b := touchPoint(touches[0]), touchPoint(touches[1])
	return a.Lerp(b, 0.5), math.Hypot(b.X-a.X, b.Y-a.Y)
}
