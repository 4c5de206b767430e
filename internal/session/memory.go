package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Sessions are lost on restart
// and not shared between instances.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session), now: time.Now}
}

func (m *MemoryStore) Put(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	m.evictLocked()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.Expired(m.now()) {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) evictLocked() {
	now := m.now()
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
		}
	}
}
