package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"gridcapacity/internal/backends/native"
)

// Session is one solver session. The backend is not safe for concurrent
// use; callers hold the session lock across every backend interaction.
type Session struct {
	ID        string
	Backend   *native.Backend
	CreatedAt time.Time

	mu        sync.Mutex
	expiresAt time.Time
}

// Lock acquires the session for exclusive backend access.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// ExpiresAt reports the current expiry.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// SessionStore keeps live solver sessions with a sliding TTL.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	done     chan struct{}
}

// NewSessionStore starts a store whose idle sessions expire after ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	go s.cleanup()
	return s
}

// Create registers a new session around the given backend.
func (s *SessionStore) Create(backend *native.Backend) *Session {
	now := time.Now()
	session := &Session{
		ID:        generateSessionID(),
		Backend:   backend,
		CreatedAt: now,
		expiresAt: now.Add(s.ttl),
	}
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

// Get returns a live session and slides its expiry forward.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	session.mu.Lock()
	expired := time.Now().After(session.expiresAt)
	if !expired {
		session.expiresAt = time.Now().Add(s.ttl)
	}
	session.mu.Unlock()
	if expired {
		s.Delete(id)
		return nil, false
	}
	return session, true
}

// Delete removes a session and closes its backend.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		session.Lock()
		_ = session.Backend.Close()
		session.Unlock()
	}
}

// Close stops the cleanup loop and drops every session.
func (s *SessionStore) Close() {
	close(s.done)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		_ = session.Backend.Close()
		delete(s.sessions, id)
	}
}

func (s *SessionStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			var expired []string
			for id, session := range s.sessions {
				if now.After(session.ExpiresAt()) {
					expired = append(expired, id)
				}
			}
			s.mu.Unlock()
			for _, id := range expired {
				s.Delete(id)
			}
		}
	}
}

func generateSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(buf)
}
