package docstore

import (
	"context"
	"errors"

	"files-kraken/core/utils"
)

var (
	// ErrNotFound is returned when updating a document that does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrExists is returned when adding a document whose identity is taken.
	ErrExists = errors.New("document already exists")
)

// Reserved keys carried by every document.
const (
	KeySchema = "schema"
	KeyID     = "id"
)

// Document is a flat map of field name to a JSON-serializable value.
type Document map[string]any

// Schema returns the schema name stored in the document.
func (d Document) Schema() string { return stringKey(d, KeySchema) }

// ID returns the identity stored in the document.
func (d Document) ID() string { return stringKey(d, KeyID) }

func stringKey(d Document, key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	return utils.ToString(v)
}

// Clone returns a shallow copy.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Store persists record documents keyed by (schema, id).
type Store interface {
	// Add inserts a new document. It must carry schema and id keys.
	Add(ctx context.Context, schema string, doc Document) error
	// Get returns the document or nil when it does not exist.
	Get(ctx context.Context, schema, id string) (Document, error)
	// Update merges fields into an existing document.
	Update(ctx context.Context, schema, id string, fields Document) error
	// List returns every document of schema ordered by id.
	List(ctx context.Context, schema string) ([]Document, error)
	Close() error
}
