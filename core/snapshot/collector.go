package snapshot

import (
	"fmt"
	"path/filepath"

	"files-kraken/core/pattern"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Collector builds a snapshot of a directory tree.
type Collector struct {
	Fs     afero.Fs
	Root   string
	Logger *zap.Logger

	// Matcher filters file names. Nil accepts everything.
	Matcher pattern.Matcher
	// MatchDirs also prunes directories whose name the Matcher rejects.
	MatchDirs bool
	// MaxDepth limits recursion (0 = unlimited, 1 = root entries only).
	// Directories at the limit are listed without their content.
	MaxDepth int
	// KeepEmptyDirs keeps directories without collected entries.
	KeepEmptyDirs bool
}

// NewCollector returns a collector for root on the OS filesystem.
func NewCollector(root string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{Fs: afero.NewOsFs(), Root: root, Logger: logger}
}

// Collect returns {absRoot: tree}. An unset root yields an empty snapshot.
func (c *Collector) Collect() (Node, error) {
	if c.Root == "" {
		return Node{}, nil
	}
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	root, err := filepath.Abs(c.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", c.Root, err)
	}
	info, err := c.Fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	tree, err := c.walk(root, 1)
	if err != nil {
		return nil, err
	}
	return Node{root: tree}, nil
}

func (c *Collector) walk(dir string, depth int) (Node, error) {
	entries, err := afero.ReadDir(c.Fs, dir)
	if err != nil {
		return nil, err
	}

	out := Node{}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() {
			if c.Matcher == nil || c.Matcher.MatchBool(name) {
				out[name] = nil
			}
			continue
		}

		if c.MatchDirs && c.Matcher != nil && !c.Matcher.MatchBool(name) {
			continue
		}

		sub := Node{}
		if c.MaxDepth == 0 || depth < c.MaxDepth {
			sub, err = c.walk(filepath.Join(dir, name), depth+1)
			if err != nil {
				c.Logger.Warn("skipping unreadable directory",
					zap.String("path", filepath.Join(dir, name)),
					zap.Error(err))
				continue
			}
		}
		if len(sub) == 0 && !c.KeepEmptyDirs {
			continue
		}
		out[name] = sub
	}
	return out, nil
}
