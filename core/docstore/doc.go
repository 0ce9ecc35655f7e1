// Package docstore persists record documents.
//
// A Document is a flat map of field name to JSON-serializable value, always carrying
// "schema" and "id" keys. Stores support adding a new document, fetching one by
// (schema, id), merging a partial field map into an existing one and listing a schema.
//
// Backends:
//   - memory: an ordered in-process map, used by tests and dry runs
//   - sql: one "blueprints" table (schema_name, id, JSON body) on MySQL, PostgreSQL or SQLite
//   - consul: one KV entry per document under <prefix>/<schema>/<id>
package docstore
