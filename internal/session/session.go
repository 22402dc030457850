// Package session tracks the single peer connected to this process over
// stdio. A Session is born on initialize and is removed on EOF or shutdown
// (CloseAll), by Close, or by Touch once it has been idle past the TTL; it
// never crosses a process restart (spec §3). Expiry of the credential that
// opened a session does not remove it.
package session

import (
	"sync"
	"time"

	"github.com/skywire-labs/drone-nlp-gateway/internal/security"
)

// Session is one connected peer's state.
type Session struct {
	Principal    security.Principal
	StartedAt    time.Time
	LastActivity time.Time
	RequestCount int64
}

// Manager owns the (in this deployment, typically singular) session table.
// It is written from the worker goroutines that handle initialize (Open)
// and shutdown (CloseAll), so it is protected by a mutex rather than an
// actor/channel, matching the teacher's style of small mutex-guarded maps.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idleTTL  time.Duration
}

// NewManager creates a session table with the given idle timeout.
func NewManager(idleTTL time.Duration) *Manager {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &Manager{sessions: make(map[string]*Session), idleTTL: idleTTL}
}

// Open registers a new session for principal, keyed by principal ID.
func (m *Manager) Open(principal security.Principal) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	sess := &Session{Principal: principal, StartedAt: now, LastActivity: now}
	m.sessions[principal.ID] = sess
	return sess
}

// Touch records activity on a principal's session, evicting it first if
// idle beyond the configured TTL.
func (m *Manager) Touch(principalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[principalID]
	if !ok {
		return
	}
	if time.Since(sess.LastActivity) > m.idleTTL {
		delete(m.sessions, principalID)
		return
	}
	sess.LastActivity = time.Now()
	sess.RequestCount++
}

// Close removes a single session (peer disconnect).
func (m *Manager) Close(principalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, principalID)
}

// CloseAll tears down every session, used when the server starts draining.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*Session)
}

// Count returns the number of live sessions, for the active_sessions gauge.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
