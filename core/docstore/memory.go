package docstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/btree"
)

// MemoryStore keeps documents in an ordered in-process map.
type MemoryStore struct {
	mu   sync.RWMutex
	docs *btree.Map[string, Document]
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: btree.NewMap[string, Document](0)}
}

func memoryKey(schema, id string) string {
	return schema + "\x00" + id
}

// Add implements Store.
func (m *MemoryStore) Add(_ context.Context, schema string, doc Document) error {
	id := doc.ID()
	if id == "" {
		return fmt.Errorf("document for %s has no id", schema)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey(schema, id)
	if _, ok := m.docs.Get(key); ok {
		return fmt.Errorf("%s/%s: %w", schema, id, ErrExists)
	}
	stored := doc.Clone()
	stored[KeySchema] = schema
	m.docs.Set(key, stored)
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, schema, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs.Get(memoryKey(schema, id))
	if !ok {
		return nil, nil
	}
	return doc.Clone(), nil
}

// Update implements Store.
func (m *MemoryStore) Update(_ context.Context, schema, id string, fields Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey(schema, id)
	doc, ok := m.docs.Get(key)
	if !ok {
		return fmt.Errorf("%s/%s: %w", schema, id, ErrNotFound)
	}
	updated := doc.Clone()
	for k, v := range fields {
		if k == KeySchema || k == KeyID {
			continue
		}
		updated[k] = v
	}
	m.docs.Set(key, updated)
	return nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, schema string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := schema + "\x00"
	var out []Document
	m.docs.Ascend(prefix, func(key string, doc Document) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
		out = append(out, doc.Clone())
		return true
	})
	return out, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs.Clear()
	return nil
}
