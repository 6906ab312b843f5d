// Package bot implements the Telegram conversation flow for customers:
// registration, check redemption, profile and stats.
package bot

import (
	"sync"
	"time"
)

// Step is the current position in a multi-message conversation
type Step int

const (
	StepIdle Step = iota
	StepAwaitContact
	StepAwaitName
)

// Session holds in-flight conversation state for one telegram user
type Session struct {
	Step             Step
	Phone            string
	PendingCheckCode string
	updatedAt        time.Time
}

// SessionStore keeps conversation sessions in memory with a TTL. A session
// untouched longer than the TTL is treated as absent, so stale flows restart
// from scratch instead of resuming mid-conversation.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a session store with the given TTL
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the live session for a telegram id, or nil if none exists or
// the existing one has expired.
func (s *SessionStore) Get(telegramID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[telegramID]
	if !ok {
		return nil
	}
	if s.now().Sub(session.updatedAt) > s.ttl {
		delete(s.sessions, telegramID)
		return nil
	}
	return session
}

// Put stores a session and refreshes its TTL. Expired sessions for other
// users are purged opportunistically on each write.
func (s *SessionStore) Put(telegramID string, session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	session.updatedAt = now
	s.sessions[telegramID] = session

	for id, other := range s.sessions {
		if now.Sub(other.updatedAt) > s.ttl {
			delete(s.sessions, id)
		}
	}
}

// Clear removes the session for a telegram id
func (s *SessionStore) Clear(telegramID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, telegramID)
}
