package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/diagram/internal/typeid"
)

func testSnapshotStore(t *testing.T, s SnapshotStore) {
	ctx := context.Background()
	session := typeid.NewSessionID()

	_, err := s.Latest(ctx, session)
	require.ErrorIs(t, err, ErrNotFound)

	first, err := s.Save(ctx, session, []byte(`{"cells":[]}`))
	require.NoError(t, err)
	assert.Equal(t, int32(1), first.Version)
	assert.Equal(t, session, first.SessionID)

	second, err := s.Save(ctx, session, []byte(`{"cells":[{"id":"a"}]}`))
	require.NoError(t, err)
	assert.Equal(t, int32(2), second.Version)

	latest, err := s.Latest(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.JSONEq(t, `{"cells":[{"id":"a"}]}`, string(latest.Document))

	list, err := s.List(ctx, session, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int32(2), list[0].Version)

	list, err = s.List(ctx, session, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	other, err := s.List(ctx, typeid.NewSessionID(), 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemory(t *testing.T) {
	testSnapshotStore(t, NewMemory())

	t.Run("rejects invalid json", func(t *testing.T) {
		_, err := NewMemory().Save(context.Background(), "s", []byte(`{`))
		assert.Error(t, err)
	})
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := NewPostgres(pool)
	require.NoError(t, s.Migrate(ctx))
	testSnapshotStore(t, s)
}
