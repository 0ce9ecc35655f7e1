package monitor

import (
	"fmt"
	"time"

	"files-kraken/core/pattern"
	"files-kraken/core/snapshot"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Config describes the main watcher and its coworker.
type Config struct {
	// Name of the main watcher; its backup is stored under this name.
	Name string `mapstructure:"name" default:"main"`
	// Root is the directory whose top-level entries are watched.
	Root string `mapstructure:"root" default:"."`
	// Include lists patterns for top-level names. Empty accepts everything.
	Include []string `mapstructure:"include" default:""`
	// Exclude lists patterns rejecting top-level names.
	Exclude []string `mapstructure:"exclude" default:""`
	// Files lists patterns for the files collected inside new directories.
	// The coworker is disabled when empty.
	Files []string `mapstructure:"files" default:""`
	// SortKey is a pattern whose first group orders reported paths numerically.
	SortKey  string        `mapstructure:"sort_key" default:""`
	Interval time.Duration `mapstructure:"interval" default:"10s"`
	Reindex  time.Duration `mapstructure:"reindex" default:"0s"`
	Backup   bool          `mapstructure:"backup" default:"true"`
	ExitFile string        `mapstructure:"exit_file" default:""`
}

// Options returns the scheduling options of the main watcher.
func (c Config) Options() Options {
	return Options{Interval: c.Interval, Reindex: c.Reindex, Backup: c.Backup}
}

func searchSpecs(patterns []string) []pattern.Spec {
	specs := make([]pattern.Spec, 0, len(patterns))
	for _, p := range patterns {
		specs = append(specs, pattern.Search(p, 0))
	}
	return specs
}

// Build creates the main watcher and, when Files is set, its coworker.
func Build(cfg Config, fs afero.Fs, logger *zap.Logger) (*Watcher, *Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	mainCollector := &snapshot.Collector{
		Fs:            fs,
		Root:          cfg.Root,
		Logger:        logger,
		MatchDirs:     true,
		MaxDepth:      1,
		KeepEmptyDirs: true,
	}
	if len(cfg.Include) > 0 || len(cfg.Exclude) > 0 {
		include := cfg.Include
		if len(include) == 0 {
			include = []string{".*"}
		}
		m, err := pattern.NewMultimatcher(pattern.ModeAny, searchSpecs(include), searchSpecs(cfg.Exclude))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid watch filter: %w", err)
		}
		mainCollector.Matcher = m
	}

	primary := NewWatcher(cfg.Name, mainCollector)
	primary.KeepEmptyDirs = true
	if cfg.SortKey != "" {
		sorter, err := pattern.NewKeySorter(cfg.SortKey, 1)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid sort key: %w", err)
		}
		primary.Sorter = sorter
	} else {
		primary.Sorter = pattern.NewDigitSorter()
	}

	if len(cfg.Files) == 0 {
		return primary, nil, nil
	}
	m, err := pattern.NewMultimatcher(pattern.ModeAny, searchSpecs(cfg.Files), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid file filter: %w", err)
	}
	coworker := NewWatcher(cfg.Name+"_files", &snapshot.Collector{
		Fs:      fs,
		Logger:  logger,
		Matcher: m,
	})
	return primary, coworker, nil
}
