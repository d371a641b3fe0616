package live

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/recera/conceptmap/internal/cache"
	"github.com/recera/conceptmap/internal/export"
	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
)

//go:embed index.html
var indexHTML []byte

const (
	shutdownTimeout = 10 * time.Second
	maxSnapshotSide = 4096
)

// Server serves the browser canvas over a WebSocket plus a small JSON API
// listing the concepts for screen readers and scripts.
type Server struct {
	hub      *Hub
	opts     conceptmap.Options
	fps      int
	log      *slog.Logger
	upgrader websocket.Upgrader
	cache    *cache.Cache
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithSnapshotCache keeps rendered /snapshot images in c
func WithSnapshotCache(c *cache.Cache) ServerOption {
	return func(s *Server) { s.cache = c }
}

// NewServer creates a server. opts seeds every session's engine.
func NewServer(hub *Hub, opts conceptmap.Options, fps int, log *slog.Logger, options ...ServerOption) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		hub:  hub,
		opts: opts,
		fps:  fps,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/ws", s.handleWS)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.hub.Sessions()})
	})
	r.Get("/snapshot.{format}", s.handleSnapshot)
	r.Route("/api", func(r chi.Router) {
		r.Get("/concepts", s.handleConcepts)
		r.Get("/concepts/{id}", s.handleConcept)
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", "http://"+ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	// sessions watch ctx, so hijacked connections close too
	cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", "error", err)
		return
	}
	sess, err := newSession(conn, s.opts, s.fps, s.log)
	if err != nil {
		s.log.Error("create session", "error", err)
		conn.Close()
		return
	}

	s.hub.add(sess)
	defer s.hub.remove(sess)
	sess.Load(s.hub.Payload())

	s.log.Info("session opened", "session", sess.ID, "remote", r.RemoteAddr)
	if err := sess.run(r.Context()); err != nil {
		s.log.Debug("session ended", "session", sess.ID, "error", err)
	}
	s.log.Info("session closed", "session", sess.ID)
}

// handleConcepts lists concepts, optionally narrowed by
// ?category=..&difficulty=..&q=.. (category and difficulty repeat).
func (s *Server) handleConcepts(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	out := []conceptmap.Detail{}
	for _, d := range s.hub.Concepts() {
		c := graph.Concept{Name: d.Name, Category: d.Category, Difficulty: d.Difficulty, Description: d.Description}
		if f.Matches(c) {
			out = append(out, d)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConcept(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, ok := s.hub.Concept(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "concept " + id + " not found"})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSnapshot renders the current concept set as a PNG or SVG.
// Query: width, height, select plus the /api/concepts filter parameters.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	f, err := filterFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	def := conceptmap.DefaultOptions()
	if s.opts.Width > 0 && s.opts.Height > 0 {
		def.Width, def.Height = s.opts.Width, s.opts.Height
	}
	width, err := dimension(r, "width", int(def.Width))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	height, err := dimension(r, "height", int(def.Height))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	req := export.Request{
		Format:  format,
		Width:   width,
		Height:  height,
		Payload: s.hub.Payload(),
		Options: s.opts,
		Filter:  f,
		Select:  r.URL.Query().Get("select"),
	}
	req.Options.Logger = s.log

	var (
		data []byte
		hit  bool
	)
	if s.cache != nil {
		data, hit, err = export.Cached(s.cache, req)
	} else {
		var buf strings.Builder
		err = export.Snapshot(&buf, req)
		data = []byte(buf.String())
	}
	var integrity *graph.DataIntegrityError
	if err != nil && !errors.As(err, &integrity) {
		if req.Select != "" {
			if _, ok := s.hub.Concept(req.Select); !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
				return
			}
		}
		s.log.Error("render snapshot", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	w.Write(data)
}

// filterFromQuery reads q, category and difficulty (both repeatable)
func filterFromQuery(r *http.Request) (conceptmap.Filter, error) {
	q := r.URL.Query()
	f := conceptmap.Filter{Query: q.Get("q")}
	for _, c := range q["category"] {
		f.Categories = append(f.Categories, graph.Category(c))
	}
	for _, d := range q["difficulty"] {
		level, err := graph.ParseDifficulty(d)
		if err != nil {
			return conceptmap.Filter{}, err
		}
		f.Difficulties = append(f.Difficulties, level)
	}
	return f, nil
}

func dimension(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > maxSnapshotSide {
		return 0, fmt.Errorf("%s must be between 1 and %d", name, maxSnapshotSide)
	}
	return n, nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if strings.HasPrefix(r.URL.Path, "/ws") {
			return
		}
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
