package workflow

import (
	"context"
	"sync"
	"time"
)

type Step int

const (
	StepIdle Step = iota
	StepAwaitingName
	StepAwaitingPlatform
	StepAwaitingLink
	StepAwaitingViews
)

// Session is one user's progress through the registration/submission
// conversation. The embedded mutex is the user's processing lane: an
// event is fully applied, store writes included, before the next event
// for the same user may start.
type Session struct {
	mu       sync.Mutex
	Step     Step
	Platform string
	Link     string
	LastSeen time.Time
}

func (s *Session) reset() {
	s.Step = StepIdle
	s.Platform = ""
	s.Link = ""
}

type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
	}
}

// Acquire returns the user's session with its lane locked. The caller
// must call release when the event has been fully applied.
func (m *SessionManager) Acquire(userID string) (session *Session, release func()) {
	m.mu.Lock()
	session, ok := m.sessions[userID]
	if !ok {
		session = &Session{}
		m.sessions[userID] = session
	}
	m.mu.Unlock()

	session.mu.Lock()
	session.LastSeen = time.Now()
	return session, session.mu.Unlock
}

// Evict drops sessions idle for longer than ttl and returns how many
// were removed. Sessions mid-conversation are evicted too; the next
// event from that user simply starts over from idle.
func (m *SessionManager) Evict(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, session := range m.sessions {
		if session.LastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Janitor periodically evicts abandoned sessions until ctx is done.
func (m *SessionManager) Janitor(ctx context.Context, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Evict(ttl)
		case <-ctx.Done():
			return
		}
	}
}
