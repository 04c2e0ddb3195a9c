package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionIdleTimeout is how long an unused conversation is kept.
const DefaultSessionIdleTimeout = 2 * time.Hour

type session struct {
	orchestrator *Orchestrator
	lastUsed     time.Time
}

// SessionManager holds one Orchestrator per session id. Conversations are
// isolated; the memory store behind them is shared.
type SessionManager struct {
	factory     func() *Orchestrator
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionManager creates a manager that builds orchestrators with factory.
func NewSessionManager(factory func() *Orchestrator, idleTimeout time.Duration) *SessionManager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultSessionIdleTimeout
	}
	return &SessionManager{
		factory:     factory,
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*session),
	}
}

// Get returns the orchestrator for id, creating a new session when id is
// empty, unknown or expired. The returned id is the one to hand back to the
// client.
func (m *SessionManager) Get(id string) (string, *Orchestrator) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evictLocked(now)

	if s, ok := m.sessions[id]; ok && id != "" {
		s.lastUsed = now
		return id, s.orchestrator
	}

	id = uuid.NewString()
	s := &session{orchestrator: m.factory(), lastUsed: now}
	m.sessions[id] = s
	return id, s.orchestrator
}

// Delete drops a session.
func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) evictLocked(now time.Time) {
	for id, s := range m.sessions {
		if now.Sub(s.lastUsed) > m.idleTimeout {
			delete(m.sessions, id)
		}
	}
}
