// Package session keeps live diagram engines addressable by id, serialises
// access to each of them, and persists their documents as snapshots.
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/inamate/diagram/internal/engine"
	"github.com/inamate/diagram/internal/typeid"
)

// Actor identifies who submitted an operation.
type Actor struct {
	UserID   string `json:"userId,omitempty"`
	ClientID string `json:"clientId,omitempty"`
}

// Commit is the outcome of one operation applied to a session. Changed lists
// the cells whose rendered state was recomputed or dropped.
type Commit struct {
	Seq       int64            `json:"seq"`
	Actor     Actor            `json:"actor"`
	Operation engine.Operation `json:"operation"`
	Result    engine.Result    `json:"result"`
	Changed   []string         `json:"changed,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// Info summarises a session for listings.
type Info struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Seq  int64  `json:"seq"`
}

// Session is one live diagram. All methods are safe for concurrent use.
type Session struct {
	ID string

	mu        sync.Mutex
	engine    *engine.Engine
	seq       int64
	dirty     bool
	changed   []string
	listeners map[int]func(Commit)
	nextID    int
}

func newSession(id string, e *engine.Engine) *Session {
	s := &Session{
		ID:        id,
		engine:    e,
		listeners: make(map[int]func(Commit)),
	}
	e.OnStatesChanged(func(ids []string) {
		s.changed = append(s.changed, ids...)
	})
	return s
}

// Apply runs op on the engine. Applied commits advance the sequence number
// and are delivered to every listener before Apply returns.
func (s *Session) Apply(actor Actor, op engine.Operation) (Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if op.ID == "" {
		op.ID = typeid.NewOpID()
	}
	s.changed = nil
	res, err := s.engine.Apply(op)
	if err != nil {
		return Commit{}, err
	}

	c := Commit{
		Actor:     actor,
		Operation: op,
		Result:    res,
		Changed:   s.changed,
		Timestamp: time.Now().UnixMilli(),
	}
	s.changed = nil
	if !res.Applied {
		c.Seq = s.seq
		return c, nil
	}

	s.seq++
	s.dirty = true
	c.Seq = s.seq
	for _, fn := range s.listeners {
		fn(c)
	}
	return c, nil
}

// Subscribe registers fn for applied commits and returns a function that
// removes it. fn runs with the session locked and must not call back into it.
func (s *Session) Subscribe(fn func(Commit)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Document returns the encoded document and the sequence number it reflects.
func (s *Session) Document() (json.RawMessage, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(s.engine.Document())
	if err != nil {
		return nil, 0, fmt.Errorf("encode document: %w", err)
	}
	return data, s.seq, nil
}

// Sync calls fn with the encoded document while holding the session, so no
// commit lands between the copy and whatever fn registers.
func (s *Session) Sync(fn func(doc json.RawMessage, seq int64)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(s.engine.Document())
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	fn(data, s.seq)
	return nil
}

func (s *Session) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Render()
}

func (s *Session) HitTest(x, y float64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.HitTest(x, y)
}

// Validate runs whole-graph validation and returns the findings by cell id.
func (s *Session) Validate() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string)
	for id, reason := range s.engine.ValidateGraph() {
		out[id] = reason
	}
	return out
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{ID: s.ID, Name: s.engine.Meta().Name, Seq: s.seq}
}

// Seq returns the number of applied commits.
func (s *Session) Seq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Dirty reports whether commits were applied since the last snapshot.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// checkpoint encodes the document and clears the dirty flag. The flag is
// restored by restore if persisting fails.
func (s *Session) checkpoint() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(s.engine.Document())
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	s.dirty = false
	return data, nil
}

func (s *Session) restore() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}
