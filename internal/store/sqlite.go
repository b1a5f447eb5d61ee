package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/geniusjr001/claimsvoice/internal/convo"
)

// SQLite persists sessions in a local SQLite database, for single-node
// deployments that need to survive restarts.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions (updated_at);
`

// OpenSQLite opens (and if needed creates) the database at path and applies
// the schema.
func OpenSQLite(path string, ttl time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %q: %w", path, err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent turns.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: apply schema: %w", err)
	}
	return &SQLite{db: db, ttl: ttl}, nil
}

// Create implements convo.SessionStore.
func (s *SQLite) Create(ctx context.Context, sess *convo.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("sqlite store: encode session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, data, updated_at) VALUES (?, ?, ?)`,
		sess.ID, string(data), sess.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite store: create %q: %w", sess.ID, err)
	}
	return nil
}

// Get implements convo.SessionStore.
func (s *SQLite) Get(ctx context.Context, id string) (*convo.Session, error) {
	var (
		data      string
		updatedMS int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM sessions WHERE id = ?`, id).
		Scan(&data, &updatedMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite store: get %q: %w", id, convo.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite store: get %q: %w", id, err)
	}
	if expired(time.UnixMilli(updatedMS), s.ttl, time.Now()) {
		_ = s.Delete(ctx, id)
		return nil, fmt.Errorf("sqlite store: get %q: %w", id, convo.ErrSessionNotFound)
	}
	var sess convo.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("sqlite store: decode %q: %w", id, err)
	}
	return &sess, nil
}

// Put implements convo.SessionStore.
func (s *SQLite) Put(ctx context.Context, sess *convo.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("sqlite store: encode session: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET data = ?, updated_at = ? WHERE id = ?`,
		string(data), sess.UpdatedAt.UnixMilli(), sess.ID)
	if err != nil {
		return fmt.Errorf("sqlite store: put %q: %w", sess.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite store: put %q: %w", sess.ID, convo.ErrSessionNotFound)
	}
	return nil
}

// Delete implements convo.SessionStore.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite store: delete %q: %w", id, err)
	}
	return nil
}

// PurgeExpired implements Purger.
func (s *SQLite) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-s.ttl).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sqlite store: purge: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Count implements Store. Expired-but-unswept rows are excluded.
func (s *SQLite) Count(ctx context.Context) (int64, error) {
	query, args := `SELECT COUNT(*) FROM sessions`, []any(nil)
	if s.ttl > 0 {
		query += ` WHERE updated_at >= ?`
		args = append(args, time.Now().Add(-s.ttl).UnixMilli())
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite store: count: %w", err)
	}
	return n, nil
}

// Ping implements Store.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}
