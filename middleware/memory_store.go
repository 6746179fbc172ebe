package middleware

import (
	"context"
	"sync"
	"time"

	"babelbeam/pipeline"
)

type memorySession struct {
	state    pipeline.State
	lastSeen time.Time
}

// MemoryStore keeps sessions in process memory. Expired sessions are dropped
// lazily and by a background sweep.
type MemoryStore struct {
	sessions map[string]*memorySession
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

// NewMemoryStore creates the store and starts the sweep, which runs every
// interval until Close is called.
func NewMemoryStore(ttl, interval time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = SessionTimeout
	}
	if interval <= 0 {
		interval = time.Hour
	}
	s := &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go s.cleanupExpiredSessions(interval)
	return s
}

func (s *MemoryStore) Load(_ context.Context, id string) (pipeline.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[id]
	if !exists {
		return pipeline.State{}, false, nil
	}

	now := s.now()
	if now.Sub(session.lastSeen) >= s.ttl {
		delete(s.sessions, id)
		return pipeline.State{}, false, nil
	}

	session.lastSeen = now
	return session.state, true, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, st pipeline.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if session, exists := s.sessions[id]; exists {
		session.state = st
		session.lastSeen = now
		return nil
	}

	s.sessions[id] = &memorySession{state: st, lastSeen: now}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the background sweep.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) cleanupExpiredSessions(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, session := range s.sessions {
		if now.Sub(session.lastSeen) >= s.ttl {
			delete(s.sessions, id)
		}
	}
}
