package session

import (
	"context"
	"sync"
	"time"

	"upi-pay-simulator-go/internal/clock"
)

// MemoryStore is a process-local Store used when no Redis address is configured.
type MemoryStore struct {
	mu       sync.Mutex
	clock    clock.Clock
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

func NewMemoryStore(c clock.Clock) *MemoryStore {
	if c == nil {
		c = clock.RealClock{}
	}
	return &MemoryStore{
		clock:    c,
		sessions: make(map[string]memoryEntry),
	}
}

func (m *MemoryStore) Create(_ context.Context, s Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.Id] = memoryEntry{session: s, expiresAt: m.clock.Now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Lookup(_ context.Context, sessionId string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[sessionId]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !m.clock.Now().Before(entry.expiresAt) {
		delete(m.sessions, sessionId)
		return nil, ErrSessionNotFound
	}
	s := entry.session
	return &s, nil
}

func (m *MemoryStore) Revoke(_ context.Context, sessionId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionId)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	removed := 0
	for id, entry := range m.sessions {
		if !now.Before(entry.expiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
