package services

import (
	"context"
	"sync"
	"time"
)

// MemorySessionStore implements SessionStore and StateStore in process.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	states   map[string]time.Time
	ttl      time.Duration
	now      func() time.Time

	// DestroyErr, when set, is returned by Destroy.
	DestroyErr error
}

type memorySession struct {
	userID  string
	expires time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
		states:   make(map[string]time.Time),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Create(_ context.Context, userID string) (string, error) {
	sid, err := newSessionID()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sid] = memorySession{userID: userID, expires: s.now().Add(s.ttl)}
	return sid, nil
}

func (s *MemorySessionStore) Get(_ context.Context, sid string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok || !sess.expires.After(s.now()) {
		return "", ErrSessionNotFound
	}
	return sess.userID, nil
}

func (s *MemorySessionStore) Destroy(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DestroyErr != nil {
		return s.DestroyErr
	}
	delete(s.sessions, sid)
	return nil
}

func (s *MemorySessionStore) DestroyUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sid, sess := range s.sessions {
		if sess.userID == userID {
			delete(s.sessions, sid)
		}
	}
	return nil
}

// Count returns the number of live sessions of userID.
func (s *MemorySessionStore) Count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.sessions {
		if sess.userID == userID && sess.expires.After(s.now()) {
			n++
		}
	}
	return n
}

func (s *MemorySessionStore) PutState(_ context.Context, state string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = s.now().Add(ttl)
	return nil
}

func (s *MemorySessionStore) ConsumeState(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.states[state]
	delete(s.states, state)
	if !ok || !exp.After(s.now()) {
		return ErrInvalidOAuthState
	}
	return nil
}

// MemoryWindowCounter is the in-process counterpart of RedisWindowCounter.
type MemoryWindowCounter struct {
	mu      sync.Mutex
	windows map[string]memoryWindow
	now     func() time.Time
}

type memoryWindow struct {
	count   int64
	expires time.Time
}

func NewMemoryWindowCounter() *MemoryWindowCounter {
	return &MemoryWindowCounter{windows: make(map[string]memoryWindow), now: time.Now}
}

func (c *MemoryWindowCounter) Hit(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	w := c.windows[key]
	if !w.expires.After(now) {
		w = memoryWindow{expires: now.Add(window)}
	}
	w.count++
	c.windows[key] = w
	return w.count, nil
}

var (
	_ SessionStore = (*RedisSessionStore)(nil)
	_ StateStore   = (*RedisSessionStore)(nil)
	_ SessionStore = (*MemorySessionStore)(nil)
	_ StateStore   = (*MemorySessionStore)(nil)
)
