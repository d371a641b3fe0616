package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the terminal shortcuts. Reset, zoom, fit and close are
// forwarded to the engine keymap; the rest are terminal-only.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	Reset    key.Binding
	Fit      key.Binding
	Next     key.Binding
	Prev     key.Binding
	Close    key.Binding
	Filter   key.Binding
	Category key.Binding
	Level    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap is the stock binding set
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "pan up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "pan down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "pan left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "pan right"),
	),
	ZoomIn: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "zoom in"),
	),
	ZoomOut: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "zoom out"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r", "0"),
		key.WithHelp("r", "reset view"),
	),
	Fit: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "fit"),
	),
	Next: key.NewBinding(
		key.WithKeys("tab", "n"),
		key.WithHelp("tab", "next concept"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab", "p"),
		key.WithHelp("shift+tab", "previous concept"),
	),
	Close: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close panel"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Category: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "cycle category"),
	),
	Level: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "cycle difficulty"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Filter, k.Fit, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.ZoomIn, k.ZoomOut, k.Reset, k.Fit},
		{k.Next, k.Prev, k.Close},
		{k.Filter, k.Category, k.Level},
		{k.Help, k.Quit},
	}
}
