package live

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/render"
)

// Hub owns the current concept set and the connected sessions. A
// headless engine answers the REST queries so they see the same
// neighbour and integrity rules as the canvas.
type Hub struct {
	log *slog.Logger

	mu       sync.RWMutex
	payload  graph.Payload
	index    *conceptmap.Engine
	sessions map[string]*Session
}

// NewHub creates a hub with an empty concept set
func NewHub(opts conceptmap.Options, log *slog.Logger) (*Hub, error) {
	if log == nil {
		log = slog.Default()
	}
	opts.Logger = log
	opts.OnSelect, opts.OnClose, opts.OnHover = nil, nil, nil
	index, err := conceptmap.New(render.Nop{}, opts)
	if err != nil {
		return nil, err
	}
	return &Hub{
		log:      log,
		index:    index,
		sessions: make(map[string]*Session),
	}, nil
}

// SetPayload replaces the concept set and reloads every session.
// Integrity problems are logged and returned; the payload is still used.
func (h *Hub) SetPayload(p graph.Payload) error {
	h.mu.Lock()
	h.payload = p
	err := h.index.SetConceptsData(p)
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	var integrity *graph.DataIntegrityError
	if err != nil && !errors.As(err, &integrity) {
		return err
	}
	for _, s := range sessions {
		s.Load(p)
	}
	h.log.Info("concepts published", "concepts", len(p.Concepts), "sessions", len(sessions))
	return err
}

// Payload returns the current concept set
func (h *Hub) Payload() graph.Payload {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.payload
}

// Concepts lists every concept with its related ids
func (h *Hub) Concepts() []conceptmap.Detail {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.index.Concepts()
}

// Concept returns one concept
func (h *Hub) Concept(id string) (conceptmap.Detail, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.index.Detail(id)
}

// Sessions returns the number of connected sessions
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) add(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID] = s
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s.ID)
}
