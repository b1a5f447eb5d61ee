package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geniusjr001/claimsvoice/internal/convo"
)

// Postgres persists sessions in a claim_sessions table, for deployments
// with more than one intake node.
//
// All methods are safe for concurrent use.
type Postgres struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS claim_sessions (
	id         TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// OpenPostgres connects to dsn, verifies the connection, and applies the
// schema.
func OpenPostgres(ctx context.Context, dsn string, ttl time.Duration) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: apply schema: %w", err)
	}
	return &Postgres{pool: pool, ttl: ttl}, nil
}

// Create implements convo.SessionStore.
func (p *Postgres) Create(ctx context.Context, sess *convo.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("postgres store: encode session: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO claim_sessions (id, data, updated_at) VALUES ($1, $2, $3)`,
		sess.ID, data, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres store: create %q: %w", sess.ID, err)
	}
	return nil
}

// Get implements convo.SessionStore.
func (p *Postgres) Get(ctx context.Context, id string) (*convo.Session, error) {
	var (
		data    []byte
		updated time.Time
	)
	err := p.pool.QueryRow(ctx,
		`SELECT data, updated_at FROM claim_sessions WHERE id = $1`, id).
		Scan(&data, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres store: get %q: %w", id, convo.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: get %q: %w", id, err)
	}
	if expired(updated, p.ttl, time.Now()) {
		_ = p.Delete(ctx, id)
		return nil, fmt.Errorf("postgres store: get %q: %w", id, convo.ErrSessionNotFound)
	}
	var sess convo.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("postgres store: decode %q: %w", id, err)
	}
	return &sess, nil
}

// Put implements convo.SessionStore.
func (p *Postgres) Put(ctx context.Context, sess *convo.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("postgres store: encode session: %w", err)
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE claim_sessions SET data = $2, updated_at = $3 WHERE id = $1`,
		sess.ID, data, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres store: put %q: %w", sess.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres store: put %q: %w", sess.ID, convo.ErrSessionNotFound)
	}
	return nil
}

// Delete implements convo.SessionStore.
func (p *Postgres) Delete(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM claim_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres store: delete %q: %w", id, err)
	}
	return nil
}

// PurgeExpired implements Purger.
func (p *Postgres) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	if p.ttl <= 0 {
		return 0, nil
	}
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM claim_sessions WHERE updated_at < $1`, now.Add(-p.ttl))
	if err != nil {
		return 0, fmt.Errorf("postgres store: purge: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Count implements Store. Expired-but-unswept rows are excluded.
func (p *Postgres) Count(ctx context.Context) (int64, error) {
	query, args := `SELECT COUNT(*) FROM claim_sessions`, []any(nil)
	if p.ttl > 0 {
		query += ` WHERE updated_at >= $1`
		args = append(args, time.Now().Add(-p.ttl))
	}
	var n int64
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres store: count: %w", err)
	}
	return n, nil
}

// Ping implements Store.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close implements Store.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
