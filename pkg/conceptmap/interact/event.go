// Package interact turns pointer, touch, wheel and key input into viewport
// and selection intents. Gestures run through an explicit state machine.
package interact

import (
	"encoding/json"
	"fmt"

	"github.com/recera/conceptmap/pkg/conceptmap/viewport"
)

// Point is a screen-space coordinate
type Point = viewport.Point

// EventType discriminates Event
type EventType uint8

const (
	PointerDown EventType = iota + 1
	PointerMove
	PointerUp
	PointerCancel
	PointerLeave
	Wheel
	Pinch
	Key
	TouchStart
	TouchMove
	TouchEnd
	TouchCancel
)

var eventNames = map[EventType]string{
	PointerDown:   "pointerdown",
	PointerMove:   "pointermove",
	PointerUp:     "pointerup",
	PointerCancel: "pointercancel",
	PointerLeave:  "pointerleave",
	Wheel:         "wheel",
	Pinch:         "pinch",
	Key:           "key",
	TouchStart:    "touchstart",
	TouchMove:     "touchmove",
	TouchEnd:      "touchend",
	TouchCancel:   "touchcancel",
}

func (t EventType) String() string {
	if s, ok := eventNames[t]; ok {
		return s
	}
	return fmt.Sprintf("event(%d)", uint8(t))
}

func (t EventType) MarshalText() ([]byte, error) {
	if _, ok := eventNames[t]; !ok {
		return nil, fmt.Errorf("unknown event type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *EventType) UnmarshalText(b []byte) error {
	for k, v := range eventNames {
		if v == string(b) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown event type %q", b)
}

// Touch is one active contact
type Touch struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Event is one input intent in screen space.
//
// Pointer events use X, Y. Wheel uses X, Y and DeltaY. Pinch uses X, Y as
// the gesture midpoint and Scale as the ratio since the last pinch event.
// Touch events list every contact still down after the change.
type Event struct {
	Type        EventType `json:"type"`
	X           float64   `json:"x,omitempty"`
	Y           float64   `json:"y,omitempty"`
	DeltaY      float64   `json:"deltaY,omitempty"`
	Scale       float64   `json:"scale,omitempty"`
	Key         string    `json:"key,omitempty"`
	InTextInput bool      `json:"inTextInput,omitempty"`
	Touches     []Touch   `json:"touches,omitempty"`
}

// Pos returns the event position
func (e Event) Pos() Point { return Point{X: e.X, Y: e.Y} }

// IsTouch reports whether e needs touch normalization
func (e Event) IsTouch() bool {
	switch e.Type {
	case TouchStart, TouchMove, TouchEnd, TouchCancel:
		return true
	}
	return false
}

// DecodeEvent parses a JSON event as sent by browser hosts
func DecodeEvent(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == 0 {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return e, nil
}
