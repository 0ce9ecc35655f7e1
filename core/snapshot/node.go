package snapshot

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// ErrFormat reports a tree entry that is neither a directory nor a file.
var ErrFormat = errors.New("snapshot format error")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Node is a directory: entry name -> child. A nil child is a file.
type Node map[string]Node

// IsFile reports whether a child value denotes a file.
func IsFile(n Node) bool { return n == nil }

// FromAny converts decoded JSON (maps, nils) into a Node, validating every entry.
func FromAny(v interface{}) (Node, error) {
	if v == nil {
		return Node{}, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: root must be an object, got %T", ErrFormat, v)
	}
	return fromMap(m, "")
}

func fromMap(m map[string]interface{}, at string) (Node, error) {
	out := make(Node, len(m))
	for k, v := range m {
		switch child := v.(type) {
		case nil:
			out[k] = nil
		case map[string]interface{}:
			n, err := fromMap(child, filepath.Join(at, k))
			if err != nil {
				return nil, err
			}
			out[k] = n
		default:
			return nil, fmt.Errorf("%w: wrong value type %T for key %q", ErrFormat, v, filepath.Join(at, k))
		}
	}
	return out, nil
}

// UnmarshalJSON decodes and validates a snapshot.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	node, err := FromAny(raw)
	if err != nil {
		return err
	}
	*n = node
	return nil
}

// Encode returns the JSON form of the tree.
func Encode(n Node) ([]byte, error) {
	if n == nil {
		n = Node{}
	}
	return json.Marshal(map[string]Node(n))
}

// Decode parses the JSON form of a tree.
func Decode(data []byte) (Node, error) {
	var n Node
	if err := n.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return n, nil
}

// Flatten lists every path in the tree. Directories are joined with their children.
// When keepEmptyDirs is set an empty directory yields its own path.
func Flatten(n Node, keepEmptyDirs bool) []string {
	var out []string
	flattenInto(n, "", keepEmptyDirs, &out)
	return out
}

func flattenInto(n Node, prefix string, keepEmptyDirs bool, out *[]string) {
	for name, child := range n {
		p := name
		if prefix != "" {
			p = filepath.Join(prefix, name)
		}
		switch {
		case child == nil:
			*out = append(*out, p)
		case len(child) == 0:
			if keepEmptyDirs {
				*out = append(*out, p)
			}
		default:
			flattenInto(child, p, keepEmptyDirs, out)
		}
	}
}

// Set returns the flattened paths as a set.
func Set(n Node, keepEmptyDirs bool) map[string]struct{} {
	paths := Flatten(n, keepEmptyDirs)
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

// Clone returns a deep copy.
func Clone(n Node) Node {
	if n == nil {
		return nil
	}
	out := make(Node, len(n))
	for k, v := range n {
		out[k] = Clone(v)
	}
	return out
}

// Extend merges src into dst recursively and returns dst.
// A non-empty directory in src is merged into a directory of dst; any other src entry replaces dst's.
func Extend(dst, src Node) Node {
	if dst == nil {
		dst = Node{}
	}
	for name, child := range src {
		cur, exists := dst[name]
		if exists && len(child) > 0 && len(cur) > 0 {
			dst[name] = Extend(cur, child)
			continue
		}
		dst[name] = Clone(child)
	}
	return dst
}

// CutToKey returns a tree holding only the top-level entry key, or an empty tree.
func CutToKey(n Node, key string) Node {
	child, ok := n[key]
	if !ok {
		return Node{}
	}
	return Node{key: Clone(child)}
}

// Apply inserts created paths as files and removes deleted paths.
// Directories emptied by a removal are pruned.
func Apply(n Node, changes Changes) Node {
	if n == nil {
		n = Node{}
	}
	for _, p := range changes.Created {
		insert(n, p)
	}
	for _, p := range changes.Deleted {
		remove(n, p)
	}
	return n
}

// locate finds the longest entry of n that names p or a parent of p.
func locate(n Node, p string) (key, rest string, ok bool) {
	sep := string(filepath.Separator)
	for k := range n {
		switch {
		case p == k:
			if !ok || len(k) > len(key) {
				key, rest, ok = k, "", true
			}
		case strings.HasPrefix(p, strings.TrimSuffix(k, sep)+sep):
			if !ok || len(k) > len(key) {
				key, rest, ok = k, strings.TrimPrefix(p[len(strings.TrimSuffix(k, sep)):], sep), true
			}
		}
	}
	return key, rest, ok
}

func insert(n Node, p string) {
	if key, rest, ok := locate(n, p); ok {
		if rest == "" {
			// path already present as file or directory
			return
		}
		child := n[key]
		if child == nil {
			child = Node{}
			n[key] = child
		}
		insert(child, rest)
		return
	}
	head, tail := splitFirst(p)
	if tail == "" {
		n[head] = nil
		return
	}
	child := Node{}
	n[head] = child
	insert(child, tail)
}

func remove(n Node, p string) bool {
	key, rest, ok := locate(n, p)
	if !ok {
		return false
	}
	if rest == "" {
		delete(n, key)
		return true
	}
	child := n[key]
	if child == nil {
		return false
	}
	if remove(child, rest) && len(child) == 0 {
		delete(n, key)
	}
	return true
}

func splitFirst(p string) (string, string) {
	sep := string(filepath.Separator)
	start := 0
	if strings.HasPrefix(p, sep) {
		start = 1
	}
	i := strings.Index(p[start:], sep)
	if i < 0 {
		return p, ""
	}
	return p[:start+i], strings.TrimPrefix(p[start+i:], sep)
}

// Sorter orders change lists in place.
type Sorter interface {
	Sort(items []string)
}

// Changes is one created/deleted batch.
type Changes struct {
	Created []string `json:"created"`
	Deleted []string `json:"deleted"`
}

// Len returns the number of changed paths.
func (c Changes) Len() int { return len(c.Created) + len(c.Deleted) }

// Empty reports whether nothing changed.
func (c Changes) Empty() bool { return c.Len() == 0 }

// Extend appends other's paths.
func (c *Changes) Extend(other Changes) {
	c.Created = append(c.Created, other.Created...)
	c.Deleted = append(c.Deleted, other.Deleted...)
}

// DiffOptions controls Diff.
type DiffOptions struct {
	// KeepEmptyDirs reports empty directories as paths of their own.
	KeepEmptyDirs bool
	// Sorter orders the result. Lexicographic order is used when nil.
	Sorter Sorter
}

// Diff returns paths present in cur but not prev (created) and the reverse (deleted).
func Diff(prev, cur Node, opts DiffOptions) Changes {
	prevSet := Set(prev, opts.KeepEmptyDirs)
	curSet := Set(cur, opts.KeepEmptyDirs)

	var changes Changes
	for p := range curSet {
		if _, ok := prevSet[p]; !ok {
			changes.Created = append(changes.Created, p)
		}
	}
	for p := range prevSet {
		if _, ok := curSet[p]; !ok {
			changes.Deleted = append(changes.Deleted, p)
		}
	}

	if opts.Sorter != nil {
		opts.Sorter.Sort(changes.Created)
		opts.Sorter.Sort(changes.Deleted)
	} else {
		sort.Strings(changes.Created)
		sort.Strings(changes.Deleted)
	}
	return changes
}
