package draftstore

import (
	"context"
	"sync"

	"admissions-wizard/internal/models"
)

// Memory keeps drafts in process memory.
type Memory struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{slots: map[string][]byte{}}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Repository(key string) Repository {
	return &memoryRepository{store: m, key: key}
}

// Raw returns the stored bytes for key.
func (m *Memory) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.slots[key]
	return data, ok
}

// Put stores raw bytes for key.
func (m *Memory) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = append([]byte(nil), data...)
}

type memoryRepository struct {
	store *Memory
	key   string
}

func (r *memoryRepository) Load(ctx context.Context, institution models.Institution) (*models.ApplicationDraft, error) {
	data, _ := r.store.Raw(r.key)
	return decode(data, institution), nil
}

func (r *memoryRepository) Save(ctx context.Context, draft *models.ApplicationDraft) error {
	data, err := encode(draft)
	if err != nil {
		return err
	}
	r.store.Put(r.key, data)
	return nil
}

func (r *memoryRepository) Clear(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.slots, r.key)
	return nil
}
