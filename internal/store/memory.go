// internal/store/memory.go
package store

import (
	"context"
	"sync"

	custom_errors "github-dashboard/internal/errors"
	"github-dashboard/internal/model"
)

// MemoryBackend keeps serialized records in process memory.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Load(_ context.Context, key string) (*model.CacheRecord, error) {
	m.mu.Lock()
	payload, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	rec, err := decodeRecord(payload)
	if err != nil {
		return nil, &custom_errors.StorageError{Op: "load", Err: err}
	}
	return rec, nil
}

func (m *MemoryBackend) Save(_ context.Context, key string, record model.CacheRecord) error {
	payload, err := encodeRecord(record)
	if err != nil {
		return &custom_errors.StorageError{Op: "save", Err: err}
	}
	m.mu.Lock()
	m.data[key] = payload
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
