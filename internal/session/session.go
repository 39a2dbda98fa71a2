// Package session tracks live client sessions keyed by an opaque id. It
// records activity timestamps and evicts sessions that stay idle past a
// configured timeout, either through the periodic sweep or on explicit
// removal at disconnect.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/evalmcp/calculator-mcp/internal/metrics"
)

// ErrNotFound is returned when an operation names a session id that is
// not live. It is an expected branch, never fatal: the caller decides
// whether to mint a fresh session or ask the client to reconnect.
var ErrNotFound = errors.New("session not found")

// Session is a client connection context. Once evicted or removed an id
// never comes back; a new session gets a new id.
type Session struct {
	ID         string
	CreatedAt  time.Time
	LastActive time.Time
}

// Manager owns the session map. All mutations take the same lock, so
// request handlers and the eviction sweep never race on the map. The
// zero value is not usable; construct with NewManager and pass the
// handle to whoever needs it.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration
	logger   *log.Logger
}

// NewManager creates a session manager whose background sweep evicts
// sessions idle longer than timeout.
func NewManager(timeout time.Duration, logger *log.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		logger:   logger,
	}
}

// GetOrCreate returns the live session for id, refreshing its activity
// timestamp. An empty id mints a fresh session under a new unique id.
// A non-empty id with no live session returns ErrNotFound; creating a
// replacement is the caller's policy, not ours.
func (m *Manager) GetOrCreate(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		return m.createLocked(uuid.NewString()), nil
	}
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	s.LastActive = time.Now()
	return *s, nil
}

// Register returns the live session for the given transport-assigned id,
// creating one if none exists. Transports mint their own session ids, so
// unlike GetOrCreate this never fails.
func (m *Manager) Register(id string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		s.LastActive = time.Now()
		return *s
	}
	return m.createLocked(id)
}

func (m *Manager) createLocked(id string) Session {
	now := time.Now()
	s := &Session{ID: id, CreatedAt: now, LastActive: now}
	m.sessions[id] = s
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return *s
}

// Touch refreshes the session's activity timestamp, or returns
// ErrNotFound if the id is not live.
func (m *Manager) Touch(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.LastActive = time.Now()
	return nil
}

// EvictExpired removes every session idle longer than timeout and
// returns the removed ids. Safe to call concurrently with any other
// operation; the lock is never held across an external call.
func (m *Manager) EvictExpired(timeout time.Duration) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var evicted []string
	now := time.Now()
	for id, s := range m.sessions {
		if now.Sub(s.LastActive) > timeout {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	if len(evicted) > 0 {
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
		metrics.SessionsEvicted.Add(float64(len(evicted)))
	}
	return evicted
}

// Remove deletes the session at disconnect. Reports whether one existed.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return true
}

// Count returns the number of live sessions, for health reporting.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run drives the eviction sweep on a fixed interval until ctx is done.
// Intended to run in its own goroutine, independent of request traffic.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("session sweep stopped")
			return
		case <-ticker.C:
			if ids := m.EvictExpired(m.timeout); len(ids) > 0 {
				m.logger.Info("evicted idle sessions", "count", len(ids), "ids", ids)
			}
		}
	}
}
