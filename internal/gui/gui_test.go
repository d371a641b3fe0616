package gui

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"

	"github.com/recera/conceptmap/pkg/conceptmap/interact"
	"github.com/recera/conceptmap/pkg/conceptmap/viewport"
)

func TestKeyName(t *testing.T) {
	tests := []struct {
		key   ebiten.Key
		shift bool
		want  string
		ok    bool
	}{
		{ebiten.KeyEscape, false, "Escape", true},
		{ebiten.KeyEqual, true, "+", true},
		{ebiten.KeyEqual, false, "=", true},
		{ebiten.KeyNumpadAdd, false, "+", true},
		{ebiten.KeyMinus, false, "-", true},
		{ebiten.Key0, false, "0", true},
		{ebiten.KeyR, false, "r", true},
		{ebiten.KeyF, true, "f", true},
		{ebiten.KeyF1, false, "", false},
	}
	for _, tt := range tests {
		got, ok := keyName(tt.key, tt.shift)
		assert.Equal(t, tt.ok, ok, tt.key.String())
		assert.Equal(t, tt.want, got, tt.key.String())
	}
}

func TestArrowPan(t *testing.T) {
	dx, dy, ok := arrowPan(ebiten.KeyArrowLeft, 40)
	assert.True(t, ok)
	assert.Equal(t, 40.0, dx)
	assert.Zero(t, dy)

	_, dy, _ = arrowPan(ebiten.KeyArrowDown, 40)
	assert.Equal(t, -40.0, dy)

	_, _, ok = arrowPan(ebiten.KeyA, 40)
	assert.False(t, ok)
}

func TestTouchChange(t *testing.T) {
	none := map[ebiten.TouchID]viewport.Point{}
	one := map[ebiten.TouchID]viewport.Point{1: {X: 10, Y: 10}}
	moved := map[ebiten.TouchID]viewport.Point{1: {X: 20, Y: 10}}
	two := map[ebiten.TouchID]viewport.Point{1: {X: 20, Y: 10}, 2: {X: 50, Y: 50}}

	ev, ok := touchChange(none, one)
	assert.True(t, ok)
	assert.Equal(t, interact.TouchStart, ev.Type)
	assert.Equal(t, []interact.Touch{{ID: 1, X: 10, Y: 10}}, ev.Touches)

	ev, _ = touchChange(one, moved)
	assert.Equal(t, interact.TouchMove, ev.Type)

	ev, _ = touchChange(moved, two)
	assert.Equal(t, interact.TouchStart, ev.Type)
	assert.Len(t, ev.Touches, 2)
	assert.Equal(t, 1, ev.Touches[0].ID)

	ev, _ = touchChange(two, moved)
	assert.Equal(t, interact.TouchEnd, ev.Type)
	assert.Len(t, ev.Touches, 1)

	ev, _ = touchChange(moved, none)
	assert.Equal(t, interact.TouchEnd, ev.Type)
	assert.Empty(t, ev.Touches)

	_, ok = touchChange(moved, moved)
	assert.False(t, ok)
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"a bounded", "context is", "a boundary"}, wrap("a bounded context is a boundary", 10))
	assert.Equal(t, []string{"supercalifragilistic"}, wrap("supercalifragilistic", 5))
	assert.Empty(t, wrap("   ", 10))
}
