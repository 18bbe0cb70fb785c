package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/diagram/internal/document"
	"github.com/inamate/diagram/internal/engine"
	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/model"
	"github.com/inamate/diagram/internal/store"
	"github.com/inamate/diagram/internal/typeid"
)

func newRegistry(t *testing.T, st store.SnapshotStore) *Registry {
	t.Helper()
	if st == nil {
		st = store.NewMemory()
	}
	return NewRegistry(st, engine.DefaultOptions())
}

func insertOp(id string, x float64) engine.Operation {
	r := geom.R(x, 0, 80, 40)
	return engine.Operation{Type: engine.OpInsertVertex, CellID: id, Value: id, Geometry: &r}
}

func decode(t *testing.T, s *Session) *document.Document {
	t.Helper()
	data, _, err := s.Document()
	require.NoError(t, err)
	var doc document.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	return &doc
}

func hasCell(doc *document.Document, id string) bool {
	for _, n := range doc.Cells {
		if n.ID == id {
			return true
		}
	}
	return false
}

func TestApplyNotifiesListeners(t *testing.T) {
	ctx := context.Background()
	s, err := newRegistry(t, nil).Create(ctx, "flow", false)
	require.NoError(t, err)

	var commits []Commit
	unsubscribe := s.Subscribe(func(c Commit) { commits = append(commits, c) })

	actor := Actor{UserID: "u1", ClientID: "c1"}
	c, err := s.Apply(actor, insertOp("a", 0))
	require.NoError(t, err)
	assert.True(t, c.Result.Applied)
	assert.Equal(t, int64(1), c.Seq)
	assert.NotEmpty(t, c.Operation.ID)
	assert.Contains(t, c.Changed, "a")
	require.Len(t, commits, 1)
	assert.Equal(t, actor, commits[0].Actor)

	t.Run("operations that change nothing are not broadcast", func(t *testing.T) {
		c, err := s.Apply(actor, engine.Operation{Type: engine.OpRedo})
		require.NoError(t, err)
		assert.False(t, c.Result.Applied)
		assert.Equal(t, int64(1), c.Seq)
		assert.Len(t, commits, 1)
	})

	t.Run("errors are returned", func(t *testing.T) {
		_, err := s.Apply(actor, engine.Operation{Type: engine.OpRemove, Cells: []string{"missing"}})
		assert.ErrorIs(t, err, model.ErrUnknownCell)
		assert.Equal(t, int64(1), s.Seq())
	})

	unsubscribe()
	_, err = s.Apply(actor, insertOp("b", 100))
	require.NoError(t, err)
	assert.Len(t, commits, 1)
	assert.Equal(t, int64(2), s.Seq())
}

func TestCreateSample(t *testing.T) {
	s, err := newRegistry(t, nil).Create(context.Background(), "", true)
	require.NoError(t, err)

	doc := decode(t, s)
	assert.Equal(t, s.ID, doc.Meta.ID)
	assert.NotEmpty(t, doc.Meta.Name)
	assert.NotEmpty(t, doc.Cells)
	assert.NotEmpty(t, s.Render())
}

func TestOpenRestoresLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	first := newRegistry(t, st)

	s, err := first.Create(ctx, "flow", false)
	require.NoError(t, err)
	assert.False(t, s.Dirty())

	_, err = s.Apply(Actor{}, insertOp("a", 0))
	require.NoError(t, err)
	assert.True(t, s.Dirty())

	snap, err := first.Save(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), snap.Version)
	assert.False(t, s.Dirty())

	second := newRegistry(t, st)
	_, ok := second.Get(s.ID)
	require.False(t, ok)

	restored, err := second.Open(ctx, s.ID)
	require.NoError(t, err)
	doc := decode(t, restored)
	assert.True(t, hasCell(doc, "a"))
	assert.Equal(t, "flow", doc.Meta.Name)

	again, err := second.Open(ctx, s.ID)
	require.NoError(t, err)
	assert.Same(t, restored, again)
}

func TestOpenUnknownSession(t *testing.T) {
	r := newRegistry(t, nil)

	_, err := r.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Open(context.Background(), typeid.NewSessionID())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Save(context.Background(), typeid.NewSessionID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAllAndFlush(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	r := newRegistry(t, st)

	clean, err := r.Create(ctx, "clean", false)
	require.NoError(t, err)
	dirty, err := r.Create(ctx, "dirty", false)
	require.NoError(t, err)
	_, err = dirty.Apply(Actor{}, insertOp("a", 0))
	require.NoError(t, err)

	require.NoError(t, r.SaveAll(ctx))

	snaps, err := r.Snapshots(ctx, clean.ID, 0)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
	snaps, err = r.Snapshots(ctx, dirty.ID, 0)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)

	_, err = dirty.Apply(Actor{}, insertOp("b", 100))
	require.NoError(t, err)
	require.NoError(t, r.Flush(ctx, dirty.ID))
	require.NoError(t, r.Flush(ctx, dirty.ID))
	require.NoError(t, r.Flush(ctx, clean.ID))

	latest, err := st.Latest(ctx, dirty.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(3), latest.Version)
	snaps, err = r.Snapshots(ctx, clean.ID, 0)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)

	assert.Len(t, r.List(), 2)
}
