package blobstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory BlobStore implementation for tests and scratch use.
// Thread-safe for concurrent reads and writes.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

// NewMemory creates a new in-memory blob store.
func NewMemory() *Memory {
	return &Memory{
		blobs: make(map[string]memoryObject),
	}
}

// Put writes a blob, copying data to prevent external mutation.
func (m *Memory) Put(_ context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]byte, len(data))
	copy(copied, data)

	m.blobs[key] = memoryObject{
		data:        copied,
		contentType: contentType,
		metadata:    metadata,
	}
	return nil
}

// Get returns a copy of the blob stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.blobs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	copied := make([]byte, len(obj.data))
	copy(copied, obj.data)
	return copied, nil
}

// List returns all keys with the given prefix, sorted for determinism.
func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.blobs))
	for key := range m.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes a blob. Deleting an absent key is not an error.
// Not part of the engine contract; used by retention tooling and tests.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, key)
	return nil
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.blobs)
}

// ContentType returns the content type recorded for key, if present.
func (m *Memory) ContentType(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.blobs[key]
	return obj.contentType, ok
}
