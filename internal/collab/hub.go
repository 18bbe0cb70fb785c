// Package collab fans session commits out to websocket clients and relays
// their operations and presence back into the session.
package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/diagram/internal/engine"
	"github.com/inamate/diagram/internal/metrics"
	"github.com/inamate/diagram/internal/session"
)

// Sessions is the part of the session registry the hub needs.
type Sessions interface {
	Open(ctx context.Context, id string) (*session.Session, error)
	Flush(ctx context.Context, id string) error
}

type Room struct {
	sessionID   string
	session     *session.Session
	clients     map[string]*Client // clientID -> client
	presence    *PresenceManager
	unsubscribe func()
}

func NewRoom(s *session.Session) *Room {
	return &Room{
		sessionID: s.ID,
		session:   s,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
	}
}

// Hub owns the rooms. Rooms are created and dropped only on the Run
// goroutine. h.mu may be taken while a session is locked, never the other
// way round.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // sessionID -> room
	sessions   Sessions
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub(sessions Sessions) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		sessions:   sessions,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Register queues client to join its session's room. It reports false once
// the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Stop ends Run, disconnects every client and saves unsaved sessions.
func (h *Hub) Stop(ctx context.Context) {
	h.stopOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*Room)
	clients := make(map[string][]*Client, len(rooms))
	for id, room := range rooms {
		for _, c := range room.clients {
			clients[id] = append(clients[id], c)
		}
		clear(room.clients)
	}
	h.mu.Unlock()

	for id, room := range rooms {
		room.unsubscribe()
		for _, c := range clients[id] {
			c.closeSend()
			metrics.Clients.Dec()
		}
		metrics.Rooms.Dec()
		if err := h.sessions.Flush(ctx, id); err != nil {
			slog.Error("save session on shutdown", "session", id, "error", err)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	sessionID := client.SessionID

	h.mu.RLock()
	room, ok := h.rooms[sessionID]
	h.mu.RUnlock()
	if !ok {
		room = NewRoom(client.session)
		room.unsubscribe = client.session.Subscribe(func(c session.Commit) {
			h.onCommit(sessionID, c)
		})
		h.mu.Lock()
		h.rooms[sessionID] = room
		h.mu.Unlock()
		metrics.Rooms.Inc()
	}

	client.Send(newMessage(TypeWelcome, WelcomePayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
		Color:       client.Color,
	}))

	// Joining under the session lock orders doc.sync before any later
	// commit broadcast.
	live := false
	err := room.session.Sync(func(doc json.RawMessage, seq int64) {
		live = h.join(room, client)
		msg := newMessage(TypeDocSync, DocSyncPayload{Document: doc, ServerSeq: seq})
		msg.Seq = seq
		client.Send(msg)
	})
	if err != nil {
		slog.Error("sync document", "session", sessionID, "error", err)
		client.Send(newMessage(TypeError, ErrorPayload{Message: "document unavailable"}))
		live = h.join(room, client)
	}
	if !live {
		// Stop ran while the client was joining.
		client.closeSend()
		return
	}
	metrics.Clients.Inc()

	// Send current presence state to new client
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	room.presence.Update(client.ClientID, &PresencePayload{
		DisplayName: client.DisplayName,
		Color:       client.Color,
	})

	// Broadcast join to other clients
	joinMsg := newMessage(TypePresenceJoin, PresenceJoinPayload{
		UserID:      client.UserID,
		ClientID:    client.ClientID,
		DisplayName: client.DisplayName,
		Color:       client.Color,
	})
	joinMsg.UserID = client.UserID
	h.broadcastToRoom(sessionID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "session", sessionID)
}

// join adds client to room unless Stop already dropped the room.
func (h *Hub) join(room *Room, client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room.sessionID] != room {
		return false
	}
	room.clients[client.ClientID] = client
	return true
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.closeSend()
	room.presence.Remove(client.ClientID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.SessionID)
	}
	h.mu.Unlock()
	metrics.Clients.Dec()

	if empty {
		metrics.Rooms.Dec()
		room.unsubscribe()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := h.sessions.Flush(ctx, client.SessionID); err != nil {
			slog.Error("save session", "session", client.SessionID, "error", err)
		}
		cancel()
	} else {
		// Broadcast leave to remaining clients
		leaveMsg := newMessage(TypePresenceLeave, PresenceLeavePayload{
			UserID:   client.UserID,
			ClientID: client.ClientID,
		})
		leaveMsg.UserID = client.UserID
		h.broadcastToRoom(client.SessionID, leaveMsg, "")
	}

	slog.Info("client left", "user", client.UserID, "session", client.SessionID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	metrics.Messages.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	case TypeDocSync:
		h.handleDocSync(sender)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "unknown message type " + msg.Type}))
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName
	presence.Color = sender.Color

	h.mu.RLock()
	room, ok := h.rooms[sender.SessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.presence.Update(sender.ClientID, &presence)

	// Broadcast to other clients in room
	outMsg := newMessage(TypePresenceUpdate, presence)
	outMsg.UserID = sender.UserID
	outMsg.ClientID = sender.ClientID
	h.broadcastToRoom(sender.SessionID, outMsg, sender.ClientID)
}

// handleOpSubmit applies the operation and acknowledges it to the sender.
// Other clients learn about it through the session subscription.
func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	var payload OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{Reason: "invalid operation payload"}))
		return
	}

	commit, err := sender.session.Apply(session.Actor{UserID: sender.UserID, ClientID: sender.ClientID}, payload.Operation)
	if err != nil {
		slog.Debug("operation refused", "session", sender.SessionID, "op", payload.Operation.Type, "error", err)
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{
			OperationID: payload.Operation.ID,
			Reason:      err.Error(),
		}))
		return
	}

	ack := newMessage(TypeOpAck, OperationAckPayload{
		OperationID:     commit.Operation.ID,
		ServerSeq:       commit.Seq,
		ServerTimestamp: commit.Timestamp,
		Result:          commit.Result,
	})
	ack.Seq = commit.Seq
	sender.Send(ack)
}

func (h *Hub) handleDocSync(sender *Client) {
	err := sender.session.Sync(func(doc json.RawMessage, seq int64) {
		msg := newMessage(TypeDocSync, DocSyncPayload{Document: doc, ServerSeq: seq})
		msg.Seq = seq
		sender.Send(msg)
	})
	if err != nil {
		slog.Error("sync document", "session", sender.SessionID, "error", err)
	}
}

// onCommit runs with the session locked, in the goroutine that applied the
// commit.
func (h *Hub) onCommit(sessionID string, c session.Commit) {
	broadcast := newMessage(TypeOpBroadcast, OperationBroadcastPayload{
		Operation: c.Operation,
		Result:    c.Result,
		UserID:    c.Actor.UserID,
		ServerSeq: c.Seq,
	})
	broadcast.Seq = c.Seq
	broadcast.UserID = c.Actor.UserID
	h.broadcastToRoom(sessionID, broadcast, c.Actor.ClientID)

	if len(c.Changed) > 0 {
		changed := newMessage(TypeStateChanged, StateChangedPayload{Cells: c.Changed, ServerSeq: c.Seq})
		changed.Seq = c.Seq
		h.broadcastToRoom(sessionID, changed, "")
	}

	if c.Operation.Type == engine.OpRemove {
		h.mu.RLock()
		room, ok := h.rooms[sessionID]
		h.mu.RUnlock()
		if ok && room.presence.Forget(c.Result.Cells) {
			if msg := room.presence.StateMessage(); msg != nil {
				h.broadcastToRoom(sessionID, msg, "")
			}
		}
	}
}

func (h *Hub) broadcastToRoom(sessionID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[sessionID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	msg.SessionID = sessionID
	for _, c := range clients {
		c.Send(msg)
	}
}

// Clients returns the number of clients connected to a session.
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[sessionID]; ok {
		return len(room.clients)
	}
	return 0
}
