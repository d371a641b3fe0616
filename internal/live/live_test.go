package live

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/conceptmap/internal/cache"
	"github.com/recera/conceptmap/internal/logging"
	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/interact"
	"github.com/recera/conceptmap/pkg/conceptmap/render"
)

func payload() graph.Payload {
	return graph.Payload{
		Concepts: []graph.Concept{
			{ID: "A", Name: "Entity", Category: "tactical", Difficulty: graph.Beginner},
			{ID: "B", Name: "Value Object", Category: "tactical", Difficulty: graph.Intermediate},
			{ID: "C", Name: "Bounded Context", Category: "strategic", Difficulty: graph.Advanced, Description: "A linguistic boundary"},
		},
		Relationships: []graph.Relationship{
			{From: "A", To: "B", Type: graph.UsedBy},
			{From: "B", To: "C", Type: graph.BelongsTo},
		},
	}
}

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	opts := conceptmap.DefaultOptions()
	hub, err := NewHub(opts, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, hub.SetPayload(payload()))
	srv := httptest.NewServer(NewServer(hub, opts, 60, logging.Discard()).Handler())
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads messages until one of type want arrives
func next(t *testing.T, conn *websocket.Conn, want string) Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var m Outbound
		require.NoError(t, json.Unmarshal(data, &m))
		if m.Type == want {
			return m
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func TestDecode(t *testing.T) {
	in, ev, err := Decode([]byte(`{"type":"resize","width":640,"height":480}`))
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, 640.0, in.Width)

	in, ev, err = Decode([]byte(`{"type":"filter","filter":{"difficulties":["advanced"]}}`))
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, []graph.Difficulty{graph.Advanced}, in.Filter.Difficulties)

	in, ev, err = Decode([]byte(`{"type":"wheel","x":10,"y":20,"deltaY":-100}`))
	require.NoError(t, err)
	assert.Nil(t, in)
	assert.Equal(t, interact.Event{Type: interact.Wheel, X: 10, Y: 20, DeltaY: -100}, *ev)

	_, _, err = Decode([]byte(`{"type":"teleport"}`))
	assert.Error(t, err)
	_, _, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestSessionHelloAndFrame(t *testing.T) {
	hub, srv := newTestServer(t)
	conn := dial(t, srv)

	hello := next(t, conn, MsgHello)
	assert.NotEmpty(t, hello.Session)

	frame := next(t, conn, MsgFrame)
	assert.Equal(t, 800.0, frame.Width)
	require.NotEmpty(t, frame.Commands)
	assert.Equal(t, render.OpClear, frame.Commands[0].Op)

	labels := 0
	for _, c := range frame.Commands {
		if c.Op == render.OpText && c.Text == "Bounded Context" {
			labels++
		}
	}
	assert.Equal(t, 1, labels)
	assert.Equal(t, 1, hub.Sessions())
}

func TestSessionFocusAndClose(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	next(t, conn, MsgHello)

	send(t, conn, Inbound{Type: MsgFocus, ID: "B"})
	sel := next(t, conn, MsgOpen)
	require.NotNil(t, sel.Detail)
	assert.Equal(t, "B", sel.Detail.ID)
	assert.ElementsMatch(t, []string{"A", "C"}, sel.Detail.RelatedConceptIDs)

	send(t, conn, interact.Event{Type: interact.Key, Key: "Escape"})
	next(t, conn, MsgClose)

	send(t, conn, Inbound{Type: MsgFocus, ID: "ghost"})
	msg := next(t, conn, MsgError)
	assert.Contains(t, msg.Message, "ghost")
}

func TestSessionResizeAndFilter(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	next(t, conn, MsgHello)

	send(t, conn, Inbound{Type: MsgResize, Width: 1024, Height: 700})
	deadline := time.Now().Add(5 * time.Second)
	for {
		f := next(t, conn, MsgFrame)
		if f.Width == 1024 {
			assert.Equal(t, 700.0, f.Height)
			break
		}
		require.True(t, time.Now().Before(deadline), "resize never reached a frame")
	}

	send(t, conn, Inbound{Type: MsgFilter, Filter: &conceptmap.Filter{Query: "zzz"}})
	for {
		f := next(t, conn, MsgFrame)
		var hud string
		for _, c := range f.Commands {
			if c.Op == render.OpText && strings.Contains(c.Text, "concepts") {
				hud = c.Text
			}
		}
		if strings.HasPrefix(hud, "0/3") {
			break
		}
		require.True(t, time.Now().Before(deadline), "filter never reached a frame")
	}
}

func TestHubReloadReachesSessions(t *testing.T) {
	hub, srv := newTestServer(t)
	conn := dial(t, srv)
	next(t, conn, MsgHello)
	next(t, conn, MsgFrame)

	p := payload()
	p.Concepts = append(p.Concepts, graph.Concept{ID: "D", Name: "Aggregate", Category: "tactical"})
	p.Relationships = append(p.Relationships, graph.Relationship{From: "D", To: "ghost"})
	var integrity *graph.DataIntegrityError
	require.ErrorAs(t, hub.SetPayload(p), &integrity)

	msg := next(t, conn, MsgError)
	assert.Contains(t, msg.Message, "1 relationship(s) dropped")

	deadline := time.Now().Add(5 * time.Second)
	for {
		f := next(t, conn, MsgFrame)
		found := false
		for _, c := range f.Commands {
			if c.Op == render.OpText && c.Text == "Aggregate" {
				found = true
			}
		}
		if found {
			break
		}
		require.True(t, time.Now().Before(deadline), "new concept never drawn")
	}
}

func TestReloadSkipsStoppedSession(t *testing.T) {
	hub, err := NewHub(conceptmap.DefaultOptions(), logging.Discard())
	require.NoError(t, err)
	sess, err := newSession(nil, conceptmap.DefaultOptions(), 60, logging.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sess.loop.Run(ctx), context.Canceled)
	hub.add(sess)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// more reloads than the loop queue holds
		for range 300 {
			hub.SetPayload(payload())
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("SetPayload blocked on a stopped session")
	}
}

func TestConceptsAPI(t *testing.T) {
	_, srv := newTestServer(t)

	get := func(path string) (*http.Response, []byte) {
		res, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer res.Body.Close()
		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		return res, body
	}

	res, body := get("/api/concepts")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	var all []conceptmap.Detail
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Len(t, all, 3)

	_, body = get("/api/concepts?difficulty=advanced&q=boundary")
	var some []conceptmap.Detail
	require.NoError(t, json.Unmarshal(body, &some))
	require.Len(t, some, 1)
	assert.Equal(t, "C", some[0].ID)

	_, body = get("/api/concepts?category=strategic&category=tactical")
	require.NoError(t, json.Unmarshal(body, &some))
	assert.Len(t, some, 3)

	res, _ = get("/api/concepts?difficulty=expert")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, body = get("/api/concepts/B")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	var b conceptmap.Detail
	require.NoError(t, json.Unmarshal(body, &b))
	assert.Equal(t, "Value Object", b.Name)
	assert.Equal(t, graph.Intermediate, b.Difficulty)

	res, _ = get("/api/concepts/ghost")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, body = get("/")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "<canvas")

	res, body = get("/healthz")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestSnapshot(t *testing.T) {
	opts := conceptmap.DefaultOptions()
	hub, err := NewHub(opts, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, hub.SetPayload(payload()))
	c, err := cache.New(cache.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	srv := httptest.NewServer(NewServer(hub, opts, 60, logging.Discard(), WithSnapshotCache(c)).Handler())
	t.Cleanup(srv.Close)

	get := func(path string) (*http.Response, []byte) {
		res, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer res.Body.Close()
		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		return res, body
	}

	res, body := get("/snapshot.svg?width=320&height=240&select=B")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/svg+xml", res.Header.Get("Content-Type"))
	assert.Equal(t, "miss", res.Header.Get("X-Cache"))
	assert.Contains(t, string(body), `width="320"`)
	assert.Contains(t, string(body), "Value Object")

	res, again := get("/snapshot.svg?width=320&height=240&select=B")
	assert.Equal(t, "hit", res.Header.Get("X-Cache"))
	assert.Equal(t, body, again)

	res, body = get("/snapshot.png?width=64&height=48")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(string(body), "\x89PNG"))

	res, _ = get("/snapshot.gif")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res, _ = get("/snapshot.png?width=0")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res, _ = get("/snapshot.png?difficulty=expert")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res, _ = get("/snapshot.png?select=ghost")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
