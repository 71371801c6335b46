// Package session is the conversation state store: one draft per citizen,
// keyed by Telegram chat ID. The Redis implementation keeps drafts across
// process restarts; the in-memory one is for tests and redis-less runs.
package session

import (
	"context"
	"sync"

	"cityhelper/backend/internal/models"
)

// Store is the per-citizen draft store. Get returns (nil, nil) when the
// citizen has no draft. Implementations must be safe for concurrent use
// across different chat IDs; callers serialize accesses per citizen.
type Store interface {
	Get(ctx context.Context, chatID int64) (*models.Draft, error)
	Put(ctx context.Context, chatID int64, draft *models.Draft) error
	Clear(ctx context.Context, chatID int64) error
}

// MemoryStore keeps drafts in a mutex-guarded map. Drafts are copied in and
// out so callers can mutate their copy without racing the store.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[int64]models.Draft
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[int64]models.Draft)}
}

func (m *MemoryStore) Get(ctx context.Context, chatID int64) (*models.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drafts[chatID]
	if !ok {
		return nil, nil
	}
	out := d
	out.Photos = append([]string(nil), d.Photos...)
	return &out, nil
}

func (m *MemoryStore) Put(ctx context.Context, chatID int64, draft *models.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := *draft
	d.Photos = append([]string(nil), draft.Photos...)
	m.drafts[chatID] = d
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, chatID)
	return nil
}
