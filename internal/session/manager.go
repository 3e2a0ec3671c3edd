package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/petrol-logbook/internal/domain"
)

// Manager keeps live sessions in memory. Sessions idle for longer than the
// TTL are treated as logged out.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a Manager expiring sessions after ttl of inactivity.
// now is used for expiry; pass nil for time.Now.
func NewManager(ttl time.Duration, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{sessions: make(map[uuid.UUID]*Session), ttl: ttl, now: now}
}

// Start creates a Browsing session for user positioned on month.
func (m *Manager) Start(user domain.UserProfile, month domain.Month) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := newSession(user, month, m.now())
	m.sessions[s.ID] = s
	return s
}

// Get returns a live session and marks it as used.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	now := m.now()
	if m.ttl > 0 && s.idleSince(now) > m.ttl {
		delete(m.sessions, id)
		return nil, false
	}
	s.touch(now)
	return s, true
}

// End logs the session out. Its state is discarded entirely.
func (m *Manager) End(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Sweep drops every expired session and returns how many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()
	n := 0
	for id, s := range m.sessions {
		if s.idleSince(now) > m.ttl {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of sessions currently held.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
