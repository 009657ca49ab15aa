package state

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps snapshots in process. It is used when no Upstash
// credentials are configured and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Snapshot)}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*Snapshot, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.items[sessionID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return &snap, nil
}

func (m *MemoryStore) Save(_ context.Context, snap *Snapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	if strings.TrimSpace(snap.SessionID) == "" {
		return ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[snap.SessionID] = *snap
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, sessionID)
	return nil
}
