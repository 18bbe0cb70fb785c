package collab

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/diagram/internal/auth"
	"github.com/inamate/diagram/internal/engine"
	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/session"
	"github.com/inamate/diagram/internal/store"
)

type testEnv struct {
	registry *session.Registry
	store    *store.Memory
	hub      *Hub
	auth     *auth.Service
	server   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewMemory()
	reg := session.NewRegistry(st, engine.DefaultOptions())
	hub := NewHub(reg)
	go hub.Run()

	authSvc := auth.NewService("secret", true)
	r := mux.NewRouter()
	r.Handle("/ws/session/{sessionId}", NewHandler(hub, authSvc, nil))
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		hub.Stop(context.Background())
		srv.Close()
	})
	return &testEnv{registry: reg, store: st, hub: hub, auth: authSvc, server: srv}
}

func (e *testEnv) dial(t *testing.T, sessionID, name string) *websocket.Conn {
	t.Helper()
	guest, err := e.auth.Guest(name)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws/session/" + sessionID + "?token=" + guest.Token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// next reads messages until one of type typ arrives.
func next(t *testing.T, conn *websocket.Conn, typ string) *Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %s", typ)
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == typ {
			return &msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	data, err := json.Marshal(newMessage(typ, payload))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func insertOp(id string) engine.Operation {
	r := geom.R(10, 10, 80, 40)
	return engine.Operation{ID: "op-" + id, Type: engine.OpInsertVertex, CellID: id, Value: id, Geometry: &r}
}

func TestCollaborationFlow(t *testing.T) {
	env := newTestEnv(t)
	s, err := env.registry.Create(context.Background(), "flow", false)
	require.NoError(t, err)

	alice := env.dial(t, s.ID, "Alice")
	welcome := next(t, alice, TypeWelcome)
	var w WelcomePayload
	require.NoError(t, json.Unmarshal(welcome.Payload, &w))
	assert.Equal(t, "Alice", w.DisplayName)
	assert.NotEmpty(t, w.Color)

	sync := next(t, alice, TypeDocSync)
	var doc DocSyncPayload
	require.NoError(t, json.Unmarshal(sync.Payload, &doc))
	assert.Equal(t, int64(0), doc.ServerSeq)
	assert.Contains(t, string(doc.Document), s.ID)

	bob := env.dial(t, s.ID, "Bob")
	next(t, bob, TypeDocSync)
	state := next(t, bob, TypePresenceState)
	var presences PresenceStatePayload
	require.NoError(t, json.Unmarshal(state.Payload, &presences))
	assert.Len(t, presences.Presences, 1)
	next(t, alice, TypePresenceJoin)
	assert.Equal(t, 2, env.hub.Clients(s.ID))

	t.Run("submitted operations are acked and broadcast", func(t *testing.T) {
		send(t, alice, TypeOpSubmit, OperationSubmitPayload{Operation: insertOp("a")})

		ack := next(t, alice, TypeOpAck)
		var a OperationAckPayload
		require.NoError(t, json.Unmarshal(ack.Payload, &a))
		assert.Equal(t, "op-a", a.OperationID)
		assert.Equal(t, int64(1), a.ServerSeq)
		assert.True(t, a.Result.Applied)

		msg := next(t, bob, TypeOpBroadcast)
		var b OperationBroadcastPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &b))
		assert.Equal(t, "a", b.Operation.CellID)
		assert.Equal(t, int64(1), b.ServerSeq)

		changed := next(t, bob, TypeStateChanged)
		var c StateChangedPayload
		require.NoError(t, json.Unmarshal(changed.Payload, &c))
		assert.Contains(t, c.Cells, "a")
	})

	t.Run("malformed operations are nacked", func(t *testing.T) {
		send(t, alice, TypeOpSubmit, OperationSubmitPayload{Operation: engine.Operation{
			ID: "op-bad", Type: engine.OpRemove, Cells: []string{"ghost"},
		}})
		nack := next(t, alice, TypeOpNack)
		var n OperationNackPayload
		require.NoError(t, json.Unmarshal(nack.Payload, &n))
		assert.Equal(t, "op-bad", n.OperationID)
		assert.NotEmpty(t, n.Reason)
	})

	t.Run("commits from outside the hub reach every client", func(t *testing.T) {
		_, err := s.Apply(session.Actor{UserID: "api"}, insertOp("b"))
		require.NoError(t, err)
		for _, conn := range []*websocket.Conn{alice, bob} {
			msg := next(t, conn, TypeOpBroadcast)
			assert.Equal(t, int64(2), msg.Seq)
		}
	})

	t.Run("removed cells leave selections", func(t *testing.T) {
		send(t, bob, TypePresenceUpdate, PresencePayload{Selection: []string{"a", "b"}})
		next(t, alice, TypePresenceUpdate)

		send(t, alice, TypeOpSubmit, OperationSubmitPayload{Operation: engine.Operation{
			Type: engine.OpRemove, Cells: []string{"a"},
		}})
		msg := next(t, alice, TypePresenceState)
		var p PresenceStatePayload
		require.NoError(t, json.Unmarshal(msg.Payload, &p))
		found := false
		for _, presence := range p.Presences {
			if presence.DisplayName == "Bob" {
				found = true
				assert.Equal(t, []string{"b"}, presence.Selection)
			}
		}
		assert.True(t, found)
	})

	t.Run("resync returns the current document", func(t *testing.T) {
		send(t, bob, TypeDocSync, struct{}{})
		msg := next(t, bob, TypeDocSync)
		assert.Equal(t, int64(3), msg.Seq)
	})

	alice.Close(websocket.StatusNormalClosure, "")
	next(t, bob, TypePresenceLeave)

	bob.Close(websocket.StatusNormalClosure, "")
	assert.Eventually(t, func() bool { return env.hub.Clients(s.ID) == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		snap, err := env.store.Latest(context.Background(), s.ID)
		return err == nil && snap.Version == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStopClosesClientsAndSaves(t *testing.T) {
	env := newTestEnv(t)
	s, err := env.registry.Create(context.Background(), "flow", false)
	require.NoError(t, err)

	alice := env.dial(t, s.ID, "Alice")
	next(t, alice, TypeDocSync)
	bob := env.dial(t, s.ID, "Bob")
	next(t, bob, TypeDocSync)
	next(t, alice, TypePresenceJoin)

	_, err = s.Apply(session.Actor{UserID: "api"}, insertOp("a"))
	require.NoError(t, err)

	env.hub.Stop(context.Background())
	assert.Equal(t, 0, env.hub.Clients(s.ID))

	for _, conn := range []*websocket.Conn{alice, bob} {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var readErr error
		for readErr == nil {
			_, _, readErr = conn.Read(ctx)
		}
		cancel()
		assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(readErr))
	}

	snap, err := env.store.Latest(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), snap.Version)
	assert.False(t, s.Dirty())
}

func TestHandlerRejects(t *testing.T) {
	env := newTestEnv(t)
	s, err := env.registry.Create(context.Background(), "", false)
	require.NoError(t, err)
	guest, err := env.auth.Guest("")
	require.NoError(t, err)

	ctx := context.Background()
	base := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/session/"
	tests := []struct {
		name   string
		url    string
		status int
	}{
		{"missing token", base + s.ID, 401},
		{"bad token", base + s.ID + "?token=nope", 401},
		{"unknown session", base + "sess_01h455vb4pex5vsknk084sn02q?token=" + guest.Token, 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.Dial(ctx, tt.url, nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestPresenceForget(t *testing.T) {
	pm := NewPresenceManager()
	pm.Update("c1", &PresencePayload{Selection: []string{"a", "b"}})
	pm.Update("c2", &PresencePayload{Selection: []string{"c"}})

	assert.False(t, pm.Forget(nil))
	assert.False(t, pm.Forget([]string{"z"}))
	assert.True(t, pm.Forget([]string{"a", "c"}))

	all := pm.GetAll()
	assert.Equal(t, []string{"b"}, all["c1"].Selection)
	assert.Empty(t, all["c2"].Selection)
}

func TestColorForIsStable(t *testing.T) {
	assert.Equal(t, colorFor("u1"), colorFor("u1"))
	assert.Contains(t, palette, colorFor("anything"))
}
