// Package store persists encoded diagram documents as versioned snapshots.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/inamate/diagram/internal/typeid"
)

var ErrNotFound = errors.New("snapshot not found")

type Snapshot struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Version   int32           `json:"version"`
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"createdAt"`
}

// SnapshotStore saves documents under increasing versions per session.
type SnapshotStore interface {
	Save(ctx context.Context, sessionID string, doc []byte) (*Snapshot, error)
	Latest(ctx context.Context, sessionID string) (*Snapshot, error)
	List(ctx context.Context, sessionID string, limit int) ([]Snapshot, error)
}

// Memory is a SnapshotStore kept in process memory, used when no database
// is configured.
type Memory struct {
	mu    sync.RWMutex
	snaps map[string][]Snapshot
}

func NewMemory() *Memory {
	return &Memory{snaps: make(map[string][]Snapshot)}
}

func (s *Memory) Save(_ context.Context, sessionID string, doc []byte) (*Snapshot, error) {
	if !json.Valid(doc) {
		return nil, fmt.Errorf("save snapshot: document is not valid JSON")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:        typeid.NewSnapshotID(),
		SessionID: sessionID,
		Version:   int32(len(s.snaps[sessionID]) + 1),
		Document:  append(json.RawMessage(nil), doc...),
		CreatedAt: time.Now().UTC(),
	}
	s.snaps[sessionID] = append(s.snaps[sessionID], snap)
	return &snap, nil
}

func (s *Memory) Latest(_ context.Context, sessionID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.snaps[sessionID]
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	snap := list[len(list)-1]
	return &snap, nil
}

// List returns up to limit snapshots, newest first. A limit of zero or less
// returns all of them.
func (s *Memory) List(_ context.Context, sessionID string, limit int) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.snaps[sessionID]
	out := make([]Snapshot, 0, len(list))
	for i := len(list) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, list[i])
	}
	return out, nil
}
