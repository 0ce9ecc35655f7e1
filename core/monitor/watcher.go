package monitor

import (
	"files-kraken/core/snapshot"
)

// Watcher diffs successive snapshots of one collector.
type Watcher struct {
	Name      string
	Collector *snapshot.Collector
	// Sorter orders reported paths. Lexicographic order is used when nil.
	Sorter snapshot.Sorter
	// KeepEmptyDirs reports empty directories as paths of their own.
	KeepEmptyDirs bool

	state snapshot.Node
}

// NewWatcher returns a watcher with an empty previous state.
func NewWatcher(name string, collector *snapshot.Collector) *Watcher {
	return &Watcher{Name: name, Collector: collector, state: snapshot.Node{}}
}

// Changes collects the current tree and diffs it against the previous state.
// The state only advances when something changed.
func (w *Watcher) Changes() (snapshot.Changes, error) {
	cur, err := w.Collector.Collect()
	if err != nil {
		return snapshot.Changes{}, err
	}
	changes := snapshot.Diff(w.State(), cur, snapshot.DiffOptions{
		KeepEmptyDirs: w.KeepEmptyDirs,
		Sorter:        w.Sorter,
	})
	if !changes.Empty() {
		w.state = cur
	}
	return changes, nil
}

// State returns the last tree that produced changes.
func (w *Watcher) State() snapshot.Node {
	if w.state == nil {
		w.state = snapshot.Node{}
	}
	return w.state
}

// SetState replaces the previous state.
func (w *Watcher) SetState(n snapshot.Node) {
	if n == nil {
		n = snapshot.Node{}
	}
	w.state = n
}

// Reset forgets the previous state.
func (w *Watcher) Reset() { w.state = snapshot.Node{} }

// SetRoot points the collector at another directory.
func (w *Watcher) SetRoot(root string) { w.Collector.Root = root }

// Paths lists the paths of the current state.
func (w *Watcher) Paths() []string {
	return snapshot.Flatten(w.State(), w.KeepEmptyDirs)
}

func (w *Watcher) String() string { return w.Name }
