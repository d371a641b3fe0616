package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/recera/conceptmap/internal/frameloop"
	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/render"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 64 << 10
)

// Session is one connected canvas. Its engine lives on the session's
// frame loop; everything else reaches it through Post.
type Session struct {
	ID string

	conn *websocket.Conn
	log  *slog.Logger
	eng  *conceptmap.Engine
	rec  *render.Recorder
	loop *frameloop.Loop

	// frames holds at most the latest unsent frame
	frames chan []byte
	// events carries select/close/hover/error messages, in order
	events chan []byte
}

func newSession(conn *websocket.Conn, opts conceptmap.Options, fps int, log *slog.Logger) (*Session, error) {
	s := &Session{
		ID:     uuid.NewString(),
		conn:   conn,
		rec:    render.NewRecorder(opts.Width, opts.Height),
		frames: make(chan []byte, 1),
		events: make(chan []byte, 64),
	}
	s.log = log.With("session", s.ID)

	opts.Logger = s.log
	opts.OnSelect = func(d conceptmap.Detail) { s.emit(Outbound{Type: MsgOpen, Detail: &d}) }
	opts.OnClose = func() { s.emit(Outbound{Type: MsgClose}) }
	opts.OnHover = func(id string) { s.emit(Outbound{Type: MsgHover, ID: &id}) }
	eng, err := conceptmap.New(s.rec, opts)
	if err != nil {
		return nil, err
	}
	s.eng = eng
	s.loop = frameloop.New(eng, fps, frameloop.WithLogger(s.log), frameloop.WithOnFrame(s.publishFrame))
	return s, nil
}

// Load replaces the session's concept set on its loop. A session whose
// loop has stopped ignores it.
func (s *Session) Load(p graph.Payload) {
	posted := s.loop.Post(func() {
		var integrity *graph.DataIntegrityError
		if err := s.eng.SetConceptsData(p); err != nil && errors.As(err, &integrity) {
			s.emit(Outbound{Type: MsgError, Message: integrity.Error()})
		}
		s.eng.FitGraph(s.eng.Options().FitPadding)
	})
	if !posted {
		s.log.Debug("session stopped, reload skipped")
		return
	}
	s.loop.RequestFrame()
}

// run serves the connection until it closes or ctx is done
func (s *Session) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.emit(Outbound{Type: MsgHello, Session: s.ID})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.loop.Run(ctx) })
	g.Go(func() error { return s.writer(ctx) })
	g.Go(func() error {
		defer cancel()
		return s.reader()
	})
	g.Go(func() error {
		<-ctx.Done()
		// unblocks the reader
		return s.conn.Close()
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return err
}

func (s *Session) reader() error {
	s.conn.SetReadLimit(maxMessage)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("connection closed", "error", err)
			}
			return err
		}
		if kind != websocket.TextMessage {
			continue
		}
		s.handle(data)
	}
}

func (s *Session) handle(data []byte) {
	in, ev, err := Decode(data)
	if err != nil {
		s.log.Debug("bad message", "error", err)
		s.emit(Outbound{Type: MsgError, Message: err.Error()})
		return
	}
	if ev != nil {
		s.loop.Post(func() { s.eng.Dispatch(*ev) })
		s.loop.RequestFrame()
		return
	}
	switch in.Type {
	case MsgResize:
		s.loop.Post(func() {
			s.rec.Resize(in.Width, in.Height)
			s.eng.Resize(in.Width, in.Height)
		})
	case MsgFilter:
		var f conceptmap.Filter
		if in.Filter != nil {
			f = *in.Filter
		}
		s.loop.Post(func() { s.eng.SetFilter(f) })
	case MsgFocus:
		s.loop.Post(func() {
			if !s.eng.Focus(in.ID) {
				s.emit(Outbound{Type: MsgError, Message: "unknown concept " + in.ID})
			}
		})
	case MsgFit:
		s.loop.Post(func() { s.eng.FitGraph(s.eng.Options().FitPadding) })
	}
	s.loop.RequestFrame()
}

func (s *Session) writer(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		var (
			kind = websocket.TextMessage
			data []byte
		)
		// events first so a select is never overtaken by the next frame
		select {
		case data = <-s.events:
		default:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case data = <-s.events:
			case data = <-s.frames:
			case <-ticker.C:
				kind = websocket.PingMessage
			}
		}
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(kind, data); err != nil {
			return err
		}
	}
}

// publishFrame runs on the loop after every frame and replaces any frame
// the writer has not picked up yet
func (s *Session) publishFrame() {
	w, h := s.rec.Size()
	data, err := json.Marshal(Outbound{Type: MsgFrame, Width: w, Height: h, Commands: s.rec.Commands})
	s.rec.Reset()
	if err != nil {
		s.log.Error("encode frame", "error", err)
		return
	}
	for {
		select {
		case s.frames <- data:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

func (s *Session) emit(m Outbound) {
	data, err := json.Marshal(m)
	if err != nil {
		s.log.Error("encode message", "type", m.Type, "error", err)
		return
	}
	select {
	case s.events <- data:
	default:
		s.log.Warn("client too slow, message dropped", "type", m.Type)
	}
}
