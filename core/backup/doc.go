// Package backup persists watcher snapshots between runs.
//
// A backup is a snapshot tree stored under a name, usually the watcher name. The main
// watcher loads it on startup so that files created while the process was down are
// reported as changes. Coworker watchers merge their results back with Manager.Update.
//
// Two stores are provided: FileStore writes JSON files through afero, holding a file
// lock during the write and replacing the target with a rename; ObjectStore keeps the
// same JSON in an S3-compatible bucket. A missing or malformed backup is never fatal:
// Load logs a warning and returns an empty tree.
package backup
