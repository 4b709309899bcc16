package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"tubequiz/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionStore.
// Notes:
//   - Sessions themselves stay in a local map; a *app.Session carries a mutex
//     and live grading state that does not serialize across processes.
//   - Redis holds TTL-bound liveness markers, so an operator can see active
//     sessions and stale ids expire even if the process never deletes them.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ID), session.VideoID, s.ttl).Err()
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	// the marker expiring means the session outlived its TTL
	if err := s.client.Get(context.Background(), s.key(id)).Err(); err == redis.Nil {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, false
	}
	return session, true
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

func (s *SessionStore) key(id string) string {
	return "tubequiz:session:" + id
}
