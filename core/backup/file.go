package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"files-kraken/core/snapshot"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// FileStore keeps each backup as <Dir>/<name>.json.
type FileStore struct {
	Fs     afero.Fs
	Dir    string
	Logger *zap.Logger

	mu sync.Mutex
}

// NewFileStore returns a store writing to dir on the OS filesystem.
func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{Fs: afero.NewOsFs(), Dir: dir, Logger: logger}
}

func (s *FileStore) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.Dir, name+extension)
}

// lock takes a cross-process lock next to the target. Only real files can be locked,
// so in-memory filesystems rely on the store mutex alone.
func (s *FileStore) lock(target string) (func(), error) {
	if _, ok := s.Fs.(*afero.OsFs); !ok {
		return func() {}, nil
	}
	fl := flock.New(target + ".lock")
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("failed to acquire lock on %s: %w", target, err)
	}
	return func() { _ = fl.Unlock() }, nil
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, name string) (snapshot.Node, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(name)
	data, err := afero.ReadFile(s.Fs, target)
	if errors.Is(err, os.ErrNotExist) {
		s.logger().Warn("backup not found, starting from an empty snapshot", zap.String("path", target))
		return snapshot.Node{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup %s: %w", target, err)
	}
	node, err := snapshot.Decode(data)
	if err != nil {
		s.logger().Warn("malformed backup, starting from an empty snapshot",
			zap.String("path", target), zap.Error(err))
		return snapshot.Node{}, nil
	}
	return node, nil
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(_ context.Context, name string, node snapshot.Node) error {
	if err := checkName(name); err != nil {
		return err
	}
	data, err := snapshot.Encode(node)
	if err != nil {
		return fmt.Errorf("failed to encode backup %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Fs.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", s.Dir, err)
	}
	target := s.path(name)
	unlock, err := s.lock(target)
	if err != nil {
		return err
	}
	defer unlock()
	return s.atomicWrite(target, data)
}

func (s *FileStore) atomicWrite(target string, data []byte) error {
	tmp, err := afero.TempFile(s.Fs, s.Dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = s.Fs.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := s.Fs.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", target, err)
	}
	committed = true
	return nil
}

// Remove implements Store. Removing a missing backup is not an error.
func (s *FileStore) Remove(_ context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.Fs.Remove(s.path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove backup %s: %w", name, err)
	}
	return nil
}

// Names implements Store.
func (s *FileStore) Names(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos, err := afero.ReadDir(s.Fs, s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list backups in %s: %w", s.Dir, err)
	}
	var names []string
	for _, info := range infos {
		n := info.Name()
		if info.IsDir() || strings.HasPrefix(n, ".") || !strings.HasSuffix(n, extension) {
			continue
		}
		names = append(names, strings.TrimSuffix(n, extension))
	}
	sort.Strings(names)
	return names, nil
}
