package memory

import (
	"sync"
	"time"

	"tubequiz/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionStore. Sessions
// expire lazily after the TTL since a quiz-taking pass is short-lived.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[string]storedSession
}

type storedSession struct {
	session   *app.Session
	expiresAt time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]storedSession),
	}
}

// NewSessionStoreWithClock is test-only for deterministic expiry.
func NewSessionStoreWithClock(ttl time.Duration, clock func() time.Time) *SessionStore {
	store := NewSessionStore(ttl)
	store.clock = clock
	return store
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = storedSession{
		session:   session,
		expiresAt: s.clock().Add(s.ttl),
	}
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.After(s.clock()) {
		delete(s.sessions, id)
		return nil, false
	}
	return entry.session, true
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
