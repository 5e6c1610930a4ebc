package api

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/technova/attrition-console/internal/metrics"
	"github.com/technova/attrition-console/internal/services"
)

// ErrTooManySessions is returned when the store is full of active sessions.
var ErrTooManySessions = errors.New("too many active sessions")

type session struct {
	console  *services.Console
	lastSeen time.Time
}

// SessionStore keeps one Console per operator session in memory.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	max      int
	idleTTL  time.Duration
	factory  func() *services.Console
	now      func() time.Time
}

// NewSessionStore returns a store that builds consoles with factory.
func NewSessionStore(maxSessions int, idleTTL time.Duration, factory func() *services.Console) *SessionStore {
	if maxSessions <= 0 {
		maxSessions = 1
	}
	return &SessionStore{
		sessions: make(map[string]*session),
		max:      maxSessions,
		idleTTL:  idleTTL,
		factory:  factory,
		now:      time.Now,
	}
}

// Create registers a new session, evicting idle ones first.
func (s *SessionStore) Create() (string, *services.Console, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	if len(s.sessions) >= s.max {
		return "", nil, ErrTooManySessions
	}
	id := uuid.NewString()
	console := s.factory()
	s.sessions[id] = &session{console: console, lastSeen: s.now()}
	metrics.SetActiveSessions(len(s.sessions))
	return id, console, nil
}

// Get returns the console for id and marks the session as used.
func (s *SessionStore) Get(id string) (*services.Console, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.expired(sess) {
		delete(s.sessions, id)
		metrics.SetActiveSessions(len(s.sessions))
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.console, true
}

// Delete removes a session. It reports whether the session existed.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	metrics.SetActiveSessions(len(s.sessions))
	return ok
}

// Sweep drops idle sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

// Len returns the number of sessions held.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) sweepLocked() int {
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.SetActiveSessions(len(s.sessions))
	}
	return removed
}

func (s *SessionStore) expired(sess *session) bool {
	return s.idleTTL > 0 && s.now().Sub(sess.lastSeen) > s.idleTTL
}
