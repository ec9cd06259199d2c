package mock

import (
	"context"
	"sync"

	"github.com/fwojciec/dentdir"
)

var _ dentdir.KVStore = (*KVStore)(nil)

// KVStore is a mock implementation of dentdir.KVStore.
type KVStore struct {
	GetFn func(ctx context.Context, key string) (string, bool, error)
	SetFn func(ctx context.Context, key, value string) error
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	return s.GetFn(ctx, key)
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	return s.SetFn(ctx, key, value)
}

// MemoryKV is an in-memory dentdir.KVStore that counts writes.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
	sets   int
}

var _ dentdir.KVStore = (*MemoryKV)(nil)

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.sets++
	return nil
}

// Sets returns the number of Set calls.
func (m *MemoryKV) Sets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}
