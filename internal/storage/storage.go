package storage

import (
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/tapsight/internal/overlay"
)

// DefaultCapacity bounds how many sessions are remembered
const DefaultCapacity = 100

// SessionStore keeps the latest snapshot of recent sessions, including
// superseded and closed ones, so clients can look a session up by id.
type SessionStore struct {
	sessions map[string]overlay.Session
	capacity int
	mu       sync.RWMutex
}

func New(capacity int) *SessionStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &SessionStore{
		sessions: make(map[string]overlay.Session),
		capacity: capacity,
	}
}

// Observe stores s. It is meant to be passed to overlay.WithObserver.
func (s *SessionStore) Observe(session overlay.Session) {
	s.Set(session)
}

// Set stores a snapshot unless a newer revision of the same session is already held
func (s *SessionStore) Set(session overlay.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[session.ID]; ok && existing.Revision >= session.Revision {
		return
	}
	s.sessions[session.ID] = session
	s.evictLocked()
}

func (s *SessionStore) Get(sessionID string) (overlay.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

// GetAll returns every stored session, newest first
func (s *SessionStore) GetAll() []overlay.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]overlay.Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Generation > result[j].Generation
	})
	return result
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// evictLocked drops the oldest generations beyond capacity
func (s *SessionStore) evictLocked() {
	for len(s.sessions) > s.capacity {
		var oldestID string
		var oldest uint64
		first := true
		for id, v := range s.sessions {
			if first || v.Generation < oldest {
				oldestID, oldest, first = id, v.Generation, false
			}
		}
		delete(s.sessions, oldestID)
	}
}
