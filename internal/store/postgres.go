package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inamate/diagram/internal/typeid"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	version    INTEGER NOT NULL,
	document   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (session_id, version)
)`

// NewPool connects to Postgres and checks the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Postgres stores snapshots in the snapshots table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the snapshots table if it does not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate snapshots: %w", err)
	}
	return nil
}

// Save inserts doc as the next version of the session. Concurrent saves of
// one session race on the unique version and the loser gets an error.
func (s *Postgres) Save(ctx context.Context, sessionID string, doc []byte) (*Snapshot, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO snapshots (id, session_id, version, document)
		SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3
		FROM snapshots WHERE session_id = $2
		RETURNING id, session_id, version, document, created_at`,
		typeid.NewSnapshotID(), sessionID, doc)

	snap, err := scanSnapshot(row)
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}
	return snap, nil
}

func (s *Postgres) Latest(ctx context.Context, sessionID string) (*Snapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, session_id, version, document, created_at
		FROM snapshots WHERE session_id = $1
		ORDER BY version DESC LIMIT 1`, sessionID)

	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return snap, nil
}

func (s *Postgres) List(ctx context.Context, sessionID string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, version, document, created_at
		FROM snapshots WHERE session_id = $1
		ORDER BY version DESC
		LIMIT NULLIF($2, -1)`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

func scanSnapshot(row pgx.Row) (*Snapshot, error) {
	var snap Snapshot
	var doc []byte
	if err := row.Scan(&snap.ID, &snap.SessionID, &snap.Version, &doc, &snap.CreatedAt); err != nil {
		return nil, err
	}
	snap.Document = doc
	return &snap, nil
}
