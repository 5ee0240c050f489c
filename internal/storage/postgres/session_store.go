// Package postgres provides Postgres-backed persistence for visitor sessions.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultTable = "sessions"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SessionStoreConfig controls the Postgres connection pool used for session rows.
type SessionStoreConfig struct {
	DSN      string
	Table    string
	MaxConns int32
	MinConns int32
	// TTL bounds how old a row may be before Get ignores it. Zero keeps rows forever.
	TTL time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// SessionStore persists per-session JSON payloads keyed by (session_id, key).
type SessionStore struct {
	pool  pool
	table string
	ttl   time.Duration
	now   func() time.Time
}

// NewSessionStore connects to Postgres and returns a SessionStore.
func NewSessionStore(ctx context.Context, cfg SessionStoreConfig) (*SessionStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewSessionStoreWithPool(p, cfg.Table, cfg.TTL)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewSessionStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewSessionStoreWithPool(p pool, table string, ttl time.Duration) (*SessionStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SessionStore{pool: p, table: table, ttl: ttl, now: time.Now}, nil
}

// Close releases the underlying pool resources.
func (s *SessionStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the session table when it does not exist.
func (s *SessionStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	session_id TEXT NOT NULL,
	key TEXT NOT NULL,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, key)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create session table: %w", err)
	}
	return nil
}

// Put upserts the payload stored for (sessionID, key).
func (s *SessionStore) Put(ctx context.Context, sessionID, key string, payload []byte) error {
	if sessionID == "" || key == "" {
		return fmt.Errorf("session id and key are required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (session_id, key, payload, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (session_id, key) DO UPDATE
SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`, s.table)
	if _, err := s.pool.Exec(ctx, query, sessionID, key, payload, s.now().UTC()); err != nil {
		return fmt.Errorf("upsert session %s: %w", key, err)
	}
	return nil
}

// Get returns the payload for (sessionID, key). Missing or expired rows report false.
func (s *SessionStore) Get(ctx context.Context, sessionID, key string) ([]byte, bool, error) {
	var (
		payload   []byte
		updatedAt time.Time
	)
	query := fmt.Sprintf(`SELECT payload, updated_at FROM %s WHERE session_id = $1 AND key = $2`, s.table)
	err := s.pool.QueryRow(ctx, query, sessionID, key).Scan(&payload, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select session %s: %w", key, err)
	}
	if s.ttl > 0 && s.now().Sub(updatedAt) > s.ttl {
		return nil, false, nil
	}
	return payload, true, nil
}

// Delete removes the payload for (sessionID, key). Deleting a missing row is not an error.
func (s *SessionStore) Delete(ctx context.Context, sessionID, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1 AND key = $2`, s.table)
	if _, err := s.pool.Exec(ctx, query, sessionID, key); err != nil {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	return nil
}
