// Package gui runs the concept map in a desktop window with ebiten.
package gui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/interact"
	"github.com/recera/conceptmap/pkg/conceptmap/render"
	"github.com/recera/conceptmap/pkg/conceptmap/viewport"
)

const (
	panelWidth = 300
	panelInset = 16
	lineHeight = 18
	panStep    = 40
	wrapWidth  = 40
)

// Options configures the window
type Options struct {
	Engine  conceptmap.Options
	Payload graph.Payload
	Logger  *slog.Logger
}

// Game is an ebiten.Game hosting one engine
type Game struct {
	eng    *conceptmap.Engine
	screen *Screen
	theme  render.Theme
	log    *slog.Logger

	payloads chan graph.Payload
	detail   *conceptmap.Detail
	status   string

	cursor   viewport.Point
	touches  map[ebiten.TouchID]viewport.Point
	width    int
	height   int
	quitting context.Context
}

// New creates the game and loads the initial payload
func New(o Options) (*Game, error) {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	opts := o.Engine
	if opts.Width == 0 || opts.Height == 0 {
		def := conceptmap.DefaultOptions()
		opts.Width, opts.Height = def.Width, def.Height
	}
	screen, err := NewScreen(opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}
	g := &Game{
		screen:   screen,
		log:      o.Logger,
		payloads: make(chan graph.Payload, 1),
		touches:  make(map[ebiten.TouchID]viewport.Point),
		width:    int(opts.Width),
		height:   int(opts.Height),
		quitting: context.Background(),
	}
	opts.Logger = o.Logger
	opts.OnSelect = func(d conceptmap.Detail) { g.detail = &d }
	opts.OnClose = func() { g.detail = nil }
	g.eng, err = conceptmap.New(screen, opts)
	if err != nil {
		return nil, err
	}
	g.theme = g.eng.Options().Theme
	g.load(o.Payload)
	return g, nil
}

// Engine returns the hosted engine. Use it only from ebiten callbacks.
func (g *Game) Engine() *conceptmap.Engine { return g.eng }

// SetPayload hands a new concept set to the game loop. It may be called
// from any goroutine; only the latest pending payload is kept.
func (g *Game) SetPayload(p graph.Payload) {
	for {
		select {
		case g.payloads <- p:
			return
		default:
		}
		select {
		case <-g.payloads:
		default:
		}
	}
}

func (g *Game) load(p graph.Payload) {
	err := g.eng.SetConceptsData(p)
	g.eng.FitGraph(g.eng.Options().FitPadding)
	var integrity *graph.DataIntegrityError
	switch {
	case errors.As(err, &integrity):
		g.status = "warning: " + integrity.Error()
	case err != nil:
		g.log.Error("load concepts", "error", err)
		g.status = "error: " + err.Error()
	default:
		g.status = fmt.Sprintf("%d concepts loaded", len(p.Concepts))
	}
}

func (g *Game) Update() error {
	if g.quitting.Err() != nil {
		return ebiten.Termination
	}
	select {
	case p := <-g.payloads:
		g.load(p)
	default:
	}
	g.input()
	g.eng.Tick(time.Second / time.Duration(ebiten.TPS()))
	return nil
}

func (g *Game) input() {
	x, y := ebiten.CursorPosition()
	pos := viewport.Point{X: float64(x), Y: float64(y)}
	if pos != g.cursor {
		g.cursor = pos
		g.eng.Dispatch(interact.Event{Type: interact.PointerMove, X: pos.X, Y: pos.Y})
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.eng.Dispatch(interact.Event{Type: interact.PointerDown, X: pos.X, Y: pos.Y})
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		g.eng.Dispatch(interact.Event{Type: interact.PointerUp, X: pos.X, Y: pos.Y})
	}
	if _, wy := ebiten.Wheel(); wy != 0 {
		g.eng.Dispatch(interact.Event{Type: interact.Wheel, X: pos.X, Y: pos.Y, DeltaY: -wy * wheelStep})
	}

	cur := make(map[ebiten.TouchID]viewport.Point)
	for _, id := range ebiten.AppendTouchIDs(nil) {
		tx, ty := ebiten.TouchPosition(id)
		cur[id] = viewport.Point{X: float64(tx), Y: float64(ty)}
	}
	if ev, ok := touchChange(g.touches, cur); ok {
		g.eng.Dispatch(ev)
	}
	g.touches = cur

	shift := ebiten.IsKeyPressed(ebiten.KeyShift)
	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		if dx, dy, ok := arrowPan(k, panStep); ok {
			g.eng.PanBy(dx, dy)
			continue
		}
		if k == ebiten.KeyTab {
			dir := 1
			if shift {
				dir = -1
			}
			g.eng.FocusNext(dir)
			continue
		}
		if name, ok := keyName(k, shift); ok {
			g.eng.Dispatch(interact.Event{Type: interact.Key, Key: name})
		}
	}
}

func (g *Game) Draw(img *ebiten.Image) {
	g.screen.Target(img)
	g.eng.Render()
	if g.detail != nil && g.width >= 2*panelWidth {
		g.drawPanel(img, *g.detail)
	}
	if g.status != "" {
		g.screen.Text(render.Point{X: panelInset, Y: panelInset}, g.status,
			render.TextStyle{Color: g.theme.Caption, Alpha: 1, Size: 12})
	}
}

func (g *Game) drawPanel(img *ebiten.Image, d conceptmap.Detail) {
	lines := []string{d.Difficulty.Title() + " · " + string(d.Category), ""}
	lines = append(lines, wrap(d.Description, wrapWidth)...)
	for _, ex := range d.Examples {
		lines = append(lines, "• "+ex)
	}
	if len(d.RelatedConceptIDs) > 0 {
		lines = append(lines, "", "Related: "+strings.Join(d.RelatedConceptIDs, ", "))
	}

	x := float64(g.width - panelWidth - panelInset)
	h := float64((len(lines) + 2) * lineHeight)
	vector.DrawFilledRect(img, float32(x), panelInset, panelWidth, float32(h),
		render.NRGBA(g.theme.Background, 0.92), false)
	vector.StrokeRect(img, float32(x), panelInset, panelWidth, float32(h), 1,
		render.NRGBA(g.theme.Edge, 1), false)

	y := float64(panelInset + lineHeight)
	g.screen.Text(render.Point{X: x + 12, Y: y}, d.Name,
		render.TextStyle{Color: g.theme.Label, Alpha: 1, Size: 16, Bold: true})
	for _, l := range lines {
		y += lineHeight
		g.screen.Text(render.Point{X: x + 12, Y: y}, l,
			render.TextStyle{Color: g.theme.Label, Alpha: 0.9, Size: 13})
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		g.screen.Resize(float64(outsideWidth), float64(outsideHeight))
		g.eng.Resize(float64(outsideWidth), float64(outsideHeight))
	}
	return outsideWidth, outsideHeight
}

// Run opens the window and blocks until it is closed or ctx is done
func Run(ctx context.Context, g *Game, title string) error {
	g.quitting = ctx
	ebiten.SetWindowSize(g.width, g.height)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
