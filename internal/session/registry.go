package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/inamate/diagram/internal/document"
	"github.com/inamate/diagram/internal/engine"
	"github.com/inamate/diagram/internal/store"
	"github.com/inamate/diagram/internal/typeid"
)

var ErrNotFound = errors.New("session not found")

// Registry owns the live sessions. Sessions that are not in memory are
// restored from their latest snapshot on first access.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	store    store.SnapshotStore
	opts     engine.Options
	logger   *slog.Logger
}

func NewRegistry(st store.SnapshotStore, opts engine.Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		store:    st,
		opts:     opts,
		logger:   logger,
	}
}

// Create starts a new session, optionally seeded with the sample diagram,
// and stores its first snapshot.
func (r *Registry) Create(ctx context.Context, name string, sample bool) (*Session, error) {
	id := typeid.NewSessionID()
	e := engine.NewEngine(r.opts)
	if sample {
		e.LoadSampleDocument(id)
	}
	meta := e.Meta()
	meta.ID = id
	meta.Version = document.FormatVersion
	if meta.CreatedAt == "" {
		meta.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if name != "" {
		meta.Name = name
	} else if meta.Name == "" {
		meta.Name = "Untitled"
	}
	e.SetMeta(meta)

	s := newSession(id, e)
	if _, err := r.persist(ctx, s); err != nil {
		e.Close()
		return nil, err
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Info("session created", "session", id, "name", meta.Name)
	return s, nil
}

// Open returns the live session, restoring it from the store if needed.
func (r *Registry) Open(ctx context.Context, id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	if err := typeid.Validate(id, typeid.PrefixSession); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	snap, err := r.store.Latest(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	e := engine.NewEngine(r.opts)
	if err := e.LoadDocument(string(snap.Document)); err != nil {
		e.Close()
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another caller may have restored it meanwhile.
	if existing, ok := r.sessions[id]; ok {
		e.Close()
		return existing, nil
	}
	s = newSession(id, e)
	r.sessions[id] = s
	r.logger.Info("session restored", "session", id, "snapshot", snap.ID, "version", snap.Version)
	return s, nil
}

// Get returns a live session without touching the store.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// List returns the live sessions ordered by id.
func (r *Registry) List() []Info {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	out := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Save stores a snapshot of the session's current document.
func (r *Registry) Save(ctx context.Context, id string) (*store.Snapshot, error) {
	s, ok := r.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return r.persist(ctx, s)
}

// Snapshots lists stored snapshots of a session, newest first.
func (r *Registry) Snapshots(ctx context.Context, id string, limit int) ([]store.Snapshot, error) {
	return r.store.List(ctx, id, limit)
}

// SaveAll snapshots every session with unsaved commits.
func (r *Registry) SaveAll(ctx context.Context) error {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	var errs []error
	for _, s := range sessions {
		if !s.Dirty() {
			continue
		}
		if _, err := r.persist(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush stores a snapshot if the session has unsaved commits.
func (r *Registry) Flush(ctx context.Context, id string) error {
	s, ok := r.Get(id)
	if !ok || !s.Dirty() {
		return nil
	}
	_, err := r.persist(ctx, s)
	return err
}

func (r *Registry) persist(ctx context.Context, s *Session) (*store.Snapshot, error) {
	data, err := s.checkpoint()
	if err != nil {
		return nil, err
	}
	snap, err := r.store.Save(ctx, s.ID, data)
	if err != nil {
		s.restore()
		return nil, fmt.Errorf("save session %s: %w", s.ID, err)
	}
	r.logger.Debug("snapshot saved", "session", s.ID, "version", snap.Version, "bytes", len(data))
	return snap, nil
}
