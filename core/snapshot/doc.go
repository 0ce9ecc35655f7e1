// Package snapshot represents a directory tree as a nested name map and computes
// created/deleted path sets between two trees.
//
// A Node maps entry names to child nodes. A nil child is a file, an empty non-nil child
// is an empty directory. The JSON form is isomorphic: objects are directories and null
// values are files. Any other JSON shape is rejected with ErrFormat.
//
// The Collector walks a root through an afero.Fs, optionally filtering files by name,
// pruning directories whose name does not match, bounding the depth and dropping empty
// directories. The result is keyed by the absolute root path so that trees collected from
// different roots can be merged into a single backup.
package snapshot
