package blueprint

import (
	"fmt"

	"files-kraken/core/docstore"
	"files-kraken/core/pattern"
	"files-kraken/core/utils"
)

// Record is one instance of a schema. Each record owns its field values.
type Record struct {
	Schema   *Schema
	ID       string
	Required map[string]string

	values   map[string]Value
	optional *pattern.Scheme
}

// NewRecord returns a record holding only its required values.
func NewRecord(s *Schema, required map[string]string) (*Record, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	values := make([]string, 0, len(s.Required))
	own := make(map[string]string, len(s.Required))
	for _, name := range s.RequiredFields() {
		v, ok := required[name]
		if !ok || v == "" {
			return nil, fmt.Errorf("schema %s: missing required field %s", s.Name, name)
		}
		own[name] = v
		values = append(values, v)
	}
	return &Record{
		Schema:   s,
		ID:       Identity(values...),
		Required: own,
		values:   make(map[string]Value, len(s.Fields)),
	}, nil
}

// FromDocument hydrates a record from its stored form.
func FromDocument(s *Schema, doc docstore.Document) (*Record, error) {
	required := make(map[string]string, len(s.Required))
	for _, name := range s.RequiredFields() {
		if v, ok := doc[name]; ok && v != nil {
			required[name] = utils.ToString(v)
		}
	}
	r, err := NewRecord(s, required)
	if err != nil {
		return nil, err
	}
	if id := doc.ID(); id != "" {
		r.ID = id
	}
	for i := range s.Fields {
		f := &s.Fields[i]
		v, err := FromDB(f.Kind, doc[f.Name])
		if err != nil {
			return nil, fmt.Errorf("schema %s: record %s: field %s: %w", s.Name, r.ID, f.Name, err)
		}
		r.values[f.Name] = v
	}
	return r, nil
}

// Get returns the current value of a required or optional field.
func (r *Record) Get(field string) Value {
	if v, ok := r.Required[field]; ok {
		return String(v)
	}
	return r.values[field]
}

// Set replaces an optional field value.
func (r *Record) Set(field string, v Value) {
	r.values[field] = v
}

// Computed reports whether a derived field already holds a value.
func (r *Record) Computed(field string) bool {
	return !r.values[field].IsEmpty()
}

// Ready reports whether a dependent derived field can be computed now.
func (r *Record) Ready(f *FieldDef) bool {
	if !f.Dependent() || r.Computed(f.Name) {
		return false
	}
	for _, dep := range f.DependsOn {
		if r.Get(dep).IsEmpty() {
			return false
		}
	}
	return true
}

// Compute runs the parser of a dependent derived field over its dependency values.
func (r *Record) Compute(f *FieldDef) (Value, error) {
	args := make([]Value, len(f.DependsOn))
	for i, dep := range f.DependsOn {
		args[i] = r.Get(dep)
	}
	v, err := f.Parser.Parse(args...)
	if err != nil {
		return Value{}, err
	}
	return DerivedValue(v), nil
}

// Match applies the optional rules bound to this record's required values.
func (r *Record) Match(name string) (map[string]string, error) {
	if r.optional == nil {
		scheme, err := r.Schema.optionalScheme(r.Required)
		if err != nil {
			return nil, fmt.Errorf("schema %s: record %s: %w", r.Schema.Name, r.ID, err)
		}
		r.optional = scheme
	}
	if r.optional.Len() == 0 {
		return nil, nil
	}
	return r.optional.Match(name), nil
}

// Encode returns the storage form of one field.
func (r *Record) Encode(field string) any {
	if v, ok := r.Required[field]; ok {
		return v
	}
	f, ok := r.Schema.Field(field)
	if !ok {
		return nil
	}
	return ToDB(f.Kind, r.values[field])
}

// Document serializes every field.
func (r *Record) Document() docstore.Document {
	doc := docstore.Document{
		docstore.KeySchema: r.Schema.Name,
		docstore.KeyID:     r.ID,
	}
	for name, v := range r.Required {
		doc[name] = v
	}
	for i := range r.Schema.Fields {
		name := r.Schema.Fields[i].Name
		doc[name] = r.Encode(name)
	}
	return doc
}
