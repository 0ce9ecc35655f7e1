package backup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"files-kraken/core/snapshot"
)

// ErrInvalidName is returned for names that cannot be mapped to a single file or key.
var ErrInvalidName = errors.New("invalid backup name")

// Store loads and saves named snapshot trees.
type Store interface {
	// Load returns the stored tree, or an empty tree when it is missing or unreadable.
	Load(ctx context.Context, name string) (snapshot.Node, error)
	Save(ctx context.Context, name string, node snapshot.Node) error
	Remove(ctx context.Context, name string) error
	// Names lists the stored backups in lexical order.
	Names(ctx context.Context) ([]string, error)
}

const extension = ".json"

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
