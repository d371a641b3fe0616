package gui

import (
	"slices"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/recera/conceptmap/pkg/conceptmap/interact"
	"github.com/recera/conceptmap/pkg/conceptmap/viewport"
)

// wheelStep converts ebiten wheel ticks to browser deltaY pixels
const wheelStep = 100

// keyName maps a key press to the browser key name the engine keymap uses
func keyName(k ebiten.Key, shift bool) (string, bool) {
	switch k {
	case ebiten.KeyEscape:
		return "Escape", true
	case ebiten.KeyEqual:
		if shift {
			return "+", true
		}
		return "=", true
	case ebiten.KeyNumpadAdd:
		return "+", true
	case ebiten.KeyMinus, ebiten.KeyNumpadSubtract:
		return "-", true
	case ebiten.Key0, ebiten.KeyNumpad0:
		return "0", true
	}
	if s := k.String(); len(s) == 1 && s[0] >= 'A' && s[0] <= 'Z' {
		return strings.ToLower(s), true
	}
	return "", false
}

// arrowPan returns the pan delta for an arrow key
func arrowPan(k ebiten.Key, step float64) (dx, dy float64, ok bool) {
	switch k {
	case ebiten.KeyArrowLeft:
		return step, 0, true
	case ebiten.KeyArrowRight:
		return -step, 0, true
	case ebiten.KeyArrowUp:
		return 0, step, true
	case ebiten.KeyArrowDown:
		return 0, -step, true
	}
	return 0, 0, false
}

// touchChange compares two touch snapshots and returns the event a
// browser would have fired for the difference
func touchChange(prev, cur map[ebiten.TouchID]viewport.Point) (interact.Event, bool) {
	typ := interact.EventType(0)
	for id := range cur {
		if _, ok := prev[id]; !ok {
			typ = interact.TouchStart
			break
		}
	}
	if typ == 0 {
		for id := range prev {
			if _, ok := cur[id]; !ok {
				typ = interact.TouchEnd
				break
			}
		}
	}
	if typ == 0 {
		for id, p := range cur {
			if prev[id] != p {
				typ = interact.TouchMove
				break
			}
		}
	}
	if typ == 0 {
		return interact.Event{}, false
	}

	ids := make([]ebiten.TouchID, 0, len(cur))
	for id := range cur {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	touches := make([]interact.Touch, len(ids))
	for i, id := range ids {
		touches[i] = interact.Touch{ID: int(id), X: cur[id].X, Y: cur[id].Y}
	}
	return interact.Event{Type: typ, Touches: touches}, true
}

// wrap breaks s into lines of at most width runes on word boundaries
func wrap(s string, width int) []string {
	var (
		lines []string
		line  []rune
	)
	for _, word := range strings.Fields(s) {
		w := []rune(word)
		if len(line) > 0 && len(line)+1+len(w) > width {
			lines = append(lines, string(line))
			line = line[:0]
		}
		if len(line) > 0 {
			line = append(line, ' ')
		}
		line = append(line, w...)
	}
	if len(line) > 0 {
		lines = append(lines, string(line))
	}
	return lines
}
