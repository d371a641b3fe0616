//go:build js && wasm

package canvas

import (
	"encoding/json"
	"fmt"
	"math"
	"syscall/js"
	"time"

	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/interact"
	"github.com/recera/conceptmap/pkg/conceptmap/render"
	"github.com/recera/conceptmap/pkg/conceptmap/viewport"
)

// surface draws through a CanvasRenderingContext2D
type surface struct {
	el, ctx js.Value
	dpr     float64
	w, h    float64
}

func (s *surface) Size() (float64, float64) { return s.w, s.h }

func (s *surface) Clear(c string) {
	s.ctx.Call("setTransform", s.dpr, 0, 0, s.dpr, 0, 0)
	s.ctx.Set("fillStyle", cssColor(c, 1))
	s.ctx.Call("fillRect", 0, 0, s.w, s.h)
}

func (s *surface) SetTransform(t viewport.Transform) {
	z := s.dpr * t.Zoom
	s.ctx.Call("setTransform", z, 0, 0, z, s.dpr*t.Pan.X, s.dpr*t.Pan.Y)
}

func (s *surface) Line(a, b render.Point, stroke render.Paint) {
	if stroke.Color == "" || stroke.Alpha <= 0 {
		return
	}
	s.ctx.Call("beginPath")
	s.ctx.Call("moveTo", a.X, a.Y)
	s.ctx.Call("lineTo", b.X, b.Y)
	s.stroke(stroke)
}

func (s *surface) Circle(c render.Point, r float64, fill, stroke render.Paint) {
	s.ctx.Call("beginPath")
	s.ctx.Call("arc", c.X, c.Y, r, 0, 2*math.Pi)
	if fill.Color != "" && fill.Alpha > 0 {
		s.ctx.Set("fillStyle", cssColor(fill.Color, fill.Alpha))
		s.ctx.Call("fill")
	}
	if stroke.Color != "" && stroke.Alpha > 0 {
		s.stroke(stroke)
	}
}

func (s *surface) Polygon(points []render.Point, fill render.Paint) {
	if len(points) < 3 || fill.Color == "" || fill.Alpha <= 0 {
		return
	}
	s.ctx.Call("beginPath")
	s.ctx.Call("moveTo", points[0].X, points[0].Y)
	for _, p := range points[1:] {
		s.ctx.Call("lineTo", p.X, p.Y)
	}
	s.ctx.Call("closePath")
	s.ctx.Set("fillStyle", cssColor(fill.Color, fill.Alpha))
	s.ctx.Call("fill")
}

func (s *surface) Text(at render.Point, str string, style render.TextStyle) {
	if str == "" || style.Color == "" || style.Alpha <= 0 {
		return
	}
	s.ctx.Set("font", font(style))
	s.ctx.Set("textAlign", style.Align.String())
	s.ctx.Set("textBaseline", "middle")
	s.ctx.Set("fillStyle", cssColor(style.Color, style.Alpha))
	s.ctx.Call("fillText", str, at.X, at.Y)
}

func (s *surface) stroke(p render.Paint) {
	s.ctx.Set("strokeStyle", cssColor(p.Color, p.Alpha))
	w := p.Width
	if w <= 0 {
		w = 1
	}
	s.ctx.Set("lineWidth", w)
	s.ctx.Call("stroke")
}

// fit sizes the backing store to the element and reports the CSS size
func (s *surface) fit() (float64, float64) {
	s.dpr = 1
	if v := js.Global().Get("devicePixelRatio"); v.Truthy() {
		s.dpr = v.Float()
	}
	rect := s.el.Call("getBoundingClientRect")
	s.w, s.h = rect.Get("width").Float(), rect.Get("height").Float()
	s.el.Set("width", int(s.w*s.dpr))
	s.el.Set("height", int(s.h*s.dpr))
	return s.w, s.h
}

// Host owns one mounted engine and its JS callbacks
type Host struct {
	eng     *conceptmap.Engine
	surface *surface
	funcs   []js.Func
	release []func()
	last    time.Time
	stopped bool
}

// Mount attaches an engine to the canvas with the given element id,
// drives it from requestAnimationFrame and installs window.conceptMap.
// Selection, close and hover are delivered as DOM CustomEvents named
// conceptmap:select, conceptmap:close and conceptmap:hover on the canvas.
func Mount(id string, opts conceptmap.Options, p graph.Payload) (*Host, error) {
	doc := js.Global().Get("document")
	el := doc.Call("getElementById", id)
	if !el.Truthy() {
		return nil, fmt.Errorf("canvas: no element #%s", id)
	}
	s := &surface{el: el, ctx: el.Call("getContext", "2d")}
	opts.Width, opts.Height = s.fit()

	h := &Host{surface: s}
	opts.OnSelect = func(d conceptmap.Detail) { h.emit("select", d) }
	opts.OnClose = func() { h.emit("close", nil) }
	opts.OnHover = func(id string) { h.emit("hover", id) }
	eng, err := conceptmap.New(s, opts)
	if err != nil {
		return nil, err
	}
	h.eng = eng
	if err := eng.SetConceptsData(p); err != nil {
		js.Global().Get("console").Call("warn", err.Error())
	}
	eng.FitGraph(eng.Options().FitPadding)

	h.listen(el, "pointerdown", func(e js.Value) { h.pointer(interact.PointerDown, e) })
	h.listen(el, "pointermove", func(e js.Value) { h.pointer(interact.PointerMove, e) })
	h.listen(el, "pointerup", func(e js.Value) { h.pointer(interact.PointerUp, e) })
	h.listen(el, "pointercancel", func(e js.Value) { h.pointer(interact.PointerCancel, e) })
	h.listen(el, "pointerleave", func(e js.Value) { h.pointer(interact.PointerLeave, e) })
	h.listen(el, "wheel", func(e js.Value) {
		e.Call("preventDefault")
		x, y := h.offset(e)
		h.eng.Dispatch(interact.Event{Type: interact.Wheel, X: x, Y: y, DeltaY: e.Get("deltaY").Float()})
	})
	for name, typ := range map[string]interact.EventType{
		"touchstart": interact.TouchStart, "touchmove": interact.TouchMove,
		"touchend": interact.TouchEnd, "touchcancel": interact.TouchCancel,
	} {
		h.listen(el, name, func(e js.Value) {
			e.Call("preventDefault")
			h.eng.Dispatch(interact.Event{Type: typ, Touches: h.touches(e)})
		})
	}
	h.listen(js.Global(), "keydown", func(e js.Value) {
		tag := e.Get("target").Get("tagName").String()
		h.eng.Dispatch(interact.Event{
			Type:        interact.Key,
			Key:         e.Get("key").String(),
			InTextInput: tag == "INPUT" || tag == "TEXTAREA" || e.Get("target").Get("isContentEditable").Truthy(),
		})
	})
	h.listen(js.Global(), "resize", func(js.Value) {
		w, ht := s.fit()
		h.eng.Resize(w, ht)
	})

	h.installAPI()
	h.last = time.Now()
	h.schedule()
	return h, nil
}

// Release stops the frame loop and frees every JS callback
func (h *Host) Release() {
	h.stopped = true
	for _, fn := range h.release {
		fn()
	}
	for _, f := range h.funcs {
		f.Release()
	}
	js.Global().Delete(Global)
}

func (h *Host) listen(target js.Value, name string, fn func(js.Value)) {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		fn(args[0])
		return nil
	})
	opts := map[string]any{"passive": false}
	target.Call("addEventListener", name, f, opts)
	h.funcs = append(h.funcs, f)
	h.release = append(h.release, func() { target.Call("removeEventListener", name, f) })
}

func (h *Host) schedule() {
	var frame js.Func
	frame = js.FuncOf(func(js.Value, []js.Value) any {
		if h.stopped {
			return nil
		}
		now := time.Now()
		h.eng.Frame(now.Sub(h.last))
		h.last = now
		js.Global().Call("requestAnimationFrame", frame)
		return nil
	})
	h.funcs = append(h.funcs, frame)
	js.Global().Call("requestAnimationFrame", frame)
}

func (h *Host) offset(e js.Value) (float64, float64) {
	rect := h.surface.el.Call("getBoundingClientRect")
	return e.Get("clientX").Float() - rect.Get("left").Float(), e.Get("clientY").Float() - rect.Get("top").Float()
}

func (h *Host) pointer(t interact.EventType, e js.Value) {
	if e.Get("pointerType").String() == "touch" {
		// touch arrives through the touch listeners
		return
	}
	x, y := h.offset(e)
	h.eng.Dispatch(interact.Event{Type: t, X: x, Y: y})
}

func (h *Host) touches(e js.Value) []interact.Touch {
	list := e.Get("touches")
	rect := h.surface.el.Call("getBoundingClientRect")
	out := make([]interact.Touch, list.Length())
	for i := range out {
		t := list.Index(i)
		out[i] = interact.Touch{
			ID: t.Get("identifier").Int(),
			X:  t.Get("clientX").Float() - rect.Get("left").Float(),
			Y:  t.Get("clientY").Float() - rect.Get("top").Float(),
		}
	}
	return out
}

func (h *Host) emit(kind string, detail any) {
	init := map[string]any{}
	if detail != nil {
		b, err := json.Marshal(detail)
		if err == nil {
			init["detail"] = js.Global().Get("JSON").Call("parse", string(b))
		}
	}
	ev := js.Global().Get("CustomEvent").New("conceptmap:"+kind, init)
	h.surface.el.Call("dispatchEvent", ev)
}

// installAPI exposes setConceptsData, setFilter, focus, fit and concepts.
// Payloads and filters are passed as JSON strings.
func (h *Host) installAPI() {
	fn := func(body func(args []js.Value) any) js.Func {
		f := js.FuncOf(func(_ js.Value, args []js.Value) any { return body(args) })
		h.funcs = append(h.funcs, f)
		return f
	}
	api := map[string]any{
		"setConceptsData": fn(func(args []js.Value) any {
			var p graph.Payload
			if err := json.Unmarshal([]byte(args[0].String()), &p); err != nil {
				return err.Error()
			}
			if err := h.eng.SetConceptsData(p); err != nil {
				return err.Error()
			}
			return nil
		}),
		"setFilter": fn(func(args []js.Value) any {
			var f conceptmap.Filter
			if err := json.Unmarshal([]byte(args[0].String()), &f); err != nil {
				return err.Error()
			}
			h.eng.SetFilter(f)
			return nil
		}),
		"focus": fn(func(args []js.Value) any { return h.eng.Focus(args[0].String()) }),
		"fit": fn(func([]js.Value) any {
			h.eng.FitGraph(h.eng.Options().FitPadding)
			return nil
		}),
		"concepts": fn(func([]js.Value) any {
			b, _ := json.Marshal(h.eng.Concepts())
			return string(b)
		}),
	}
	js.Global().Set(Global, api)
}
