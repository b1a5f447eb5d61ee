package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/geniusjr001/claimsvoice/internal/convo"
)

// Memory is the in-process session store, the default backend. Sessions are
// deep-copied on the way in and out so callers never share mutable state
// with the store.
type Memory struct {
	ttl time.Duration

	mu       sync.RWMutex
	sessions map[string]*convo.Session
}

// NewMemory creates a memory store with the given idle TTL. A non-positive
// TTL disables expiry.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:      ttl,
		sessions: make(map[string]*convo.Session),
	}
}

// Create implements convo.SessionStore.
func (m *Memory) Create(_ context.Context, s *convo.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return nil
}

// Get implements convo.SessionStore. Sessions past their idle TTL are
// dropped and reported as not found.
func (m *Memory) Get(_ context.Context, id string) (*convo.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok && expired(s.UpdatedAt, m.ttl, time.Now()) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		ok = false
	}
	if !ok {
		return nil, fmt.Errorf("memory store: get %q: %w", id, convo.ErrSessionNotFound)
	}
	return s.Clone(), nil
}

// Put implements convo.SessionStore.
func (m *Memory) Put(_ context.Context, s *convo.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return fmt.Errorf("memory store: put %q: %w", s.ID, convo.ErrSessionNotFound)
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

// Delete implements convo.SessionStore. Deleting an unknown id is a no-op.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// PurgeExpired implements Purger.
func (m *Memory) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if expired(s.UpdatedAt, m.ttl, now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of live sessions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Count implements Store. Sessions past their TTL but not yet swept are
// not counted.
func (m *Memory) Count(_ context.Context) (int64, error) {
	now := time.Now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, s := range m.sessions {
		if !expired(s.UpdatedAt, m.ttl, now) {
			n++
		}
	}
	return n, nil
}

// Ping implements Store.
func (m *Memory) Ping(context.Context) error { return nil }

// Close implements Store.
func (m *Memory) Close() error { return nil }
