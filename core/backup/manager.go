package backup

import (
	"context"
	"fmt"
	"sync"

	"files-kraken/core/snapshot"

	"go.uber.org/zap"
)

// Manager serializes access to a Store and merges partial snapshots into backups.
type Manager struct {
	store  Store
	logger *zap.Logger
	mu     sync.Mutex
}

// NewManager wraps store.
func NewManager(store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, logger: logger}
}

// Load returns the named backup.
func (m *Manager) Load(ctx context.Context, name string) (snapshot.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Load(ctx, name)
}

// Save replaces the named backup.
func (m *Manager) Save(ctx context.Context, name string, node snapshot.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Save(ctx, name, node)
}

// Update replaces each top-level entry of node in the named backup and stores the result.
// Entries are replaced whole, so files missing from node leave the backup.
func (m *Manager) Update(ctx context.Context, name string, node snapshot.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.store.Load(ctx, name)
	if err != nil {
		return err
	}
	if current == nil {
		current = snapshot.Node{}
	}
	for key, sub := range node {
		current[key] = snapshot.Clone(sub)
	}
	if err := m.store.Save(ctx, name, current); err != nil {
		return fmt.Errorf("failed to update backup %s: %w", name, err)
	}
	m.logger.Debug("backup updated", zap.String("name", name), zap.Int("entries", len(node)))
	return nil
}

// Remove deletes the named backup.
func (m *Manager) Remove(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Remove(ctx, name)
}

// Names lists stored backups.
func (m *Manager) Names(ctx context.Context) ([]string, error) {
	return m.store.Names(ctx)
}
