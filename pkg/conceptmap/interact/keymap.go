package interact

import (
	"fmt"
	"slices"
	"strings"
)

// Command is a discrete keyboard action
type Command uint8

const (
	NoCommand Command = iota
	ResetView
	ClosePanel
	ZoomIn
	ZoomOut
	FitGraph
)

var commandNames = map[Command]string{
	ResetView:  "reset-view",
	ClosePanel: "close-panel",
	ZoomIn:     "zoom-in",
	ZoomOut:    "zoom-out",
	FitGraph:   "fit-graph",
}

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return "none"
}

// ParseCommand parses a command name such as "zoom-in"
func ParseCommand(s string) (Command, error) {
	for c, name := range commandNames {
		if name == s {
			return c, nil
		}
	}
	return NoCommand, fmt.Errorf("unknown command %q", s)
}

// ZoomStep is the factor applied by ZoomIn and the inverse applied by ZoomOut
const ZoomStep = 1.2

// Keymap binds key names to commands. Key names follow the browser's
// KeyboardEvent.key values ("Escape", "+", "r").
type Keymap map[string]Command

// DefaultKeymap returns the standard bindings
func DefaultKeymap() Keymap {
	return Keymap{
		"r":      ResetView,
		"0":      ResetView,
		"Escape": ClosePanel,
		"+":      ZoomIn,
		"=":      ZoomIn,
		"-":      ZoomOut,
		"f":      FitGraph,
	}
}

// Lookup returns the command bound to key. Single letters match either case.
func (k Keymap) Lookup(key string) (Command, bool) {
	if c, ok := k[key]; ok {
		return c, true
	}
	if len(key) == 1 {
		if c, ok := k[strings.ToLower(key)]; ok {
			return c, true
		}
	}
	return NoCommand, false
}

// Keys returns the keys bound to c, sorted
func (k Keymap) Keys(c Command) []string {
	var keys []string
	for key, cmd := range k {
		if cmd == c {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}
