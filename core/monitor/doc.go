// Package monitor schedules snapshot watchers and reports their changes.
//
// A main Watcher usually lists only the top-level directories of a root. When it
// reports new directories, each coworker Watcher is pointed at them in turn and
// scanned in full. The coworker's previous state for a directory is the slice of its
// backup keyed by that directory, so unrelated directories keep their history; its
// result is merged back into the backup and its in-memory state is cleared.
//
// The Manager calls Handler once per cycle with the combined changes. If the handler
// fails, watcher states and backups are left as they were and the same changes are
// reported again on the next cycle.
//
// # Usage
//
//	main, coworker, err := monitor.Build(cfg, afero.NewOsFs(), logger)
//	mgr := monitor.NewManager(backups, engineHandler, logger)
//	_ = mgr.Add(ctx, main, cfg.Options())
//	_ = mgr.AddCoworker(main, coworker)
//	err = mgr.Run(ctx)
package monitor
