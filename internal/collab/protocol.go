package collab

import (
	"encoding/json"

	"github.com/inamate/diagram/internal/engine"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
	Color       string     `json:"color,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	ClientID    string `json:"clientId"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

type PresenceLeavePayload struct {
	UserID   string `json:"userId"`
	ClientID string `json:"clientId"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync. Clients may send doc.sync to request a fresh copy.
	TypeDocSync = "doc.sync"

	// Operation message types
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"

	// Rendered states recomputed by a commit
	TypeStateChanged = "state.changed"
)

// WelcomePayload is sent once after a client joins a session.
type WelcomePayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

// DocSyncPayload carries the full document as of ServerSeq. Broadcasts with
// a sequence number at or below ServerSeq are already reflected in it.
type DocSyncPayload struct {
	Document  json.RawMessage `json:"document"`
	ServerSeq int64           `json:"serverSeq"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation engine.Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages. Result.Applied is
// false when the operation was rejected or changed nothing.
type OperationAckPayload struct {
	OperationID     string        `json:"operationId"`
	ServerSeq       int64         `json:"serverSeq"`
	ServerTimestamp int64         `json:"serverTimestamp"`
	Result          engine.Result `json:"result"`
}

// OperationNackPayload is the payload for op.nack messages, sent for
// operations the engine refused as malformed.
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages
type OperationBroadcastPayload struct {
	Operation engine.Operation `json:"operation"`
	Result    engine.Result    `json:"result"`
	UserID    string           `json:"userId"`
	ServerSeq int64            `json:"serverSeq"`
}

// StateChangedPayload lists the cells whose rendered state was recomputed
// or dropped by the commit ServerSeq.
type StateChangedPayload struct {
	Cells     []string `json:"cells"`
	ServerSeq int64    `json:"serverSeq"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func newMessage(typ string, payload any) *Message {
	data, _ := json.Marshal(payload)
	return &Message{Type: typ, Payload: data}
}
