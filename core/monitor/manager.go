package monitor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"files-kraken/core/backup"
	"files-kraken/core/metrics"
	"files-kraken/core/snapshot"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Handler receives the changes of one cycle. A returned error leaves the watcher
// state and backups untouched so the same changes are reported again next cycle.
type Handler func(ctx context.Context, changes snapshot.Changes) error

// Options configure a main watcher.
type Options struct {
	// Interval is the minimum time between two scans.
	Interval time.Duration
	// Reindex replays coworkers over every known directory at this period. Zero disables it.
	Reindex time.Duration
	// Backup restores the state on Add and saves it after each reported change.
	Backup bool
}

type entry struct {
	watcher     *Watcher
	opts        Options
	coworkers   []*Watcher
	lastRun     time.Time
	lastReindex time.Time
}

// backupUpdate is a coworker result waiting for the handler to accept its batch.
type backupUpdate struct {
	name string
	node snapshot.Node
}

// Manager polls watchers, runs coworkers over new directories and hands changes to Handler.
type Manager struct {
	Backups *backup.Manager
	Handler Handler
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// Fs resolves the exit file and coworker directories.
	Fs afero.Fs
	// ExitFile stops Run when it exists and is not empty.
	ExitFile string
	// Tick is the polling resolution of Run.
	Tick time.Duration

	now     func() time.Time
	entries []*entry
}

// NewManager returns a manager on the OS filesystem. backups may be nil.
func NewManager(backups *backup.Manager, handler Handler, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		Backups: backups,
		Handler: handler,
		Logger:  logger,
		Fs:      afero.NewOsFs(),
		Tick:    time.Second,
		now:     time.Now,
	}
}

// Add registers a main watcher and restores its state from the backup when enabled.
func (m *Manager) Add(ctx context.Context, w *Watcher, opts Options) error {
	if m.find(w) != nil {
		return fmt.Errorf("watcher %s already added", w.Name)
	}
	if opts.Backup && m.Backups != nil {
		state, err := m.Backups.Load(ctx, w.Name)
		if err != nil {
			return fmt.Errorf("failed to restore %s: %w", w.Name, err)
		}
		w.SetState(state)
	}
	m.entries = append(m.entries, &entry{watcher: w, opts: opts})
	return nil
}

// AddCoworker attaches a coworker to an added main watcher.
func (m *Manager) AddCoworker(primary, coworker *Watcher) error {
	en := m.find(primary)
	if en == nil {
		return fmt.Errorf("watcher %s is not added", primary.Name)
	}
	en.coworkers = append(en.coworkers, coworker)
	return nil
}

func (m *Manager) find(w *Watcher) *entry {
	for _, en := range m.entries {
		if en.watcher == w {
			return en
		}
	}
	return nil
}

// RunOnce scans every watcher regardless of its interval.
func (m *Manager) RunOnce(ctx context.Context) error {
	return m.cycle(ctx, true)
}

// Run polls until ctx is cancelled or the exit file appears.
// A cycle that has started always completes.
func (m *Manager) Run(ctx context.Context) error {
	tick := m.Tick
	if tick <= 0 {
		tick = time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	m.Logger.Info("monitor started", zap.Int("watchers", len(m.entries)))
	for {
		if m.exitRequested() {
			m.Logger.Info("exit file found, stopping", zap.String("path", m.ExitFile))
			return nil
		}
		if err := m.cycle(ctx, false); err != nil {
			m.Logger.Error("cycle failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			m.Logger.Info("monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Manager) exitRequested() bool {
	if m.ExitFile == "" {
		return false
	}
	info, err := m.fs().Stat(m.ExitFile)
	return err == nil && info.Size() > 0
}

func (m *Manager) fs() afero.Fs {
	if m.Fs == nil {
		m.Fs = afero.NewOsFs()
	}
	return m.Fs
}

func (m *Manager) clock() time.Time {
	if m.now == nil {
		m.now = time.Now
	}
	return m.now()
}

// cycle runs every due watcher. The first error is returned after all watchers ran.
func (m *Manager) cycle(ctx context.Context, force bool) error {
	var errs []error
	for _, en := range m.entries {
		now := m.clock()
		if force || en.lastRun.IsZero() || now.Sub(en.lastRun) >= en.opts.Interval {
			if err := m.scan(ctx, en); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", en.watcher.Name, err))
			}
			en.lastRun = now
		}
		if en.opts.Reindex > 0 && len(en.coworkers) > 0 &&
			(en.lastReindex.IsZero() || now.Sub(en.lastReindex) >= en.opts.Reindex) {
			if err := m.reindex(ctx, en); err != nil {
				errs = append(errs, fmt.Errorf("%s reindex: %w", en.watcher.Name, err))
			}
			en.lastReindex = now
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) scan(ctx context.Context, en *entry) error {
	w := en.watcher
	log := m.Logger.With(zap.String("watcher", w.Name))

	prev := w.State()
	start := time.Now()
	changes, err := w.Changes()
	m.Metrics.ObserveScan(w.Name, time.Since(start), !changes.Empty(), err)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if changes.Empty() {
		log.Debug("no changes")
		return nil
	}
	logChanges(log, changes)

	var pending []backupUpdate
	if len(en.coworkers) > 0 && len(changes.Created) > 0 {
		extra, updates := m.runCoworkers(ctx, en.coworkers, changes.Created)
		changes.Extend(extra)
		pending = updates
	}

	if err := m.report(ctx, changes); err != nil {
		w.SetState(prev)
		return err
	}
	if en.opts.Backup && m.Backups != nil {
		if err := m.Backups.Save(ctx, w.Name, w.State()); err != nil {
			log.Error("failed to save backup", zap.Error(err))
		}
	}
	m.commit(ctx, pending)
	return nil
}

func (m *Manager) reindex(ctx context.Context, en *entry) error {
	log := m.Logger.With(zap.String("watcher", en.watcher.Name))
	log.Info("reindexing")

	changes, pending := m.runCoworkers(ctx, en.coworkers, en.watcher.Paths())
	if changes.Empty() {
		return nil
	}
	if err := m.report(ctx, changes); err != nil {
		return err
	}
	m.commit(ctx, pending)
	return nil
}

// runCoworkers scans each directory with every coworker, starting from the slice of the
// coworker's backup keyed by that directory.
func (m *Manager) runCoworkers(ctx context.Context, coworkers []*Watcher, paths []string) (snapshot.Changes, []backupUpdate) {
	var all snapshot.Changes
	var pending []backupUpdate
	backups := make(map[string]snapshot.Node, len(coworkers))

	for _, p := range paths {
		dir, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if info, err := m.fs().Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		for _, cw := range coworkers {
			log := m.Logger.With(zap.String("watcher", cw.Name), zap.String("root", dir))
			log.Info("starting coworker")

			prev := snapshot.Node{}
			if m.Backups != nil {
				stored, ok := backups[cw.Name]
				if !ok {
					stored, err = m.Backups.Load(ctx, cw.Name)
					if err != nil {
						log.Error("failed to load coworker backup", zap.Error(err))
						stored = snapshot.Node{}
					}
					backups[cw.Name] = stored
				}
				prev = snapshot.CutToKey(stored, dir)
			}

			cw.SetState(prev)
			cw.SetRoot(dir)
			start := time.Now()
			changes, err := cw.Changes()
			m.Metrics.ObserveScan(cw.Name, time.Since(start), !changes.Empty(), err)
			if err != nil {
				log.Warn("coworker scan failed", zap.Error(err))
			} else if !changes.Empty() {
				logChanges(log, changes)
				all.Extend(changes)
				pending = append(pending, backupUpdate{name: cw.Name, node: cw.State()})
			}
			cw.Reset()
		}
	}
	return all, pending
}

func (m *Manager) commit(ctx context.Context, pending []backupUpdate) {
	if m.Backups == nil {
		return
	}
	// one write per coworker; each pending node holds distinct directory keys
	byName := make(map[string]snapshot.Node)
	var order []string
	for _, u := range pending {
		if _, ok := byName[u.name]; !ok {
			byName[u.name] = snapshot.Node{}
			order = append(order, u.name)
		}
		byName[u.name] = snapshot.Extend(byName[u.name], u.node)
	}
	for _, name := range order {
		if err := m.Backups.Update(ctx, name, byName[name]); err != nil {
			m.Logger.Error("failed to update coworker backup", zap.String("watcher", name), zap.Error(err))
		}
	}
}

func (m *Manager) report(ctx context.Context, changes snapshot.Changes) error {
	if m.Handler == nil {
		return nil
	}
	if err := m.Handler(ctx, changes); err != nil {
		return fmt.Errorf("handler failed: %w", err)
	}
	return nil
}

func logChanges(log *zap.Logger, changes snapshot.Changes) {
	log.Info("changes found",
		zap.Int("created", len(changes.Created)),
		zap.Int("deleted", len(changes.Deleted)))
	for _, p := range changes.Deleted {
		log.Debug("deleted", zap.String("path", p))
	}
	for _, p := range changes.Created {
		log.Debug("created", zap.String("path", p))
	}
}
