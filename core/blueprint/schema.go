package blueprint

import (
	"fmt"
	"strings"
	"sync"

	"files-kraken/core/docstore"
	"files-kraken/core/pattern"
)

// IDSeparator joins required values into a record identity.
const IDSeparator = "__"

// Parser computes a derived value from its arguments.
// Rule-bound derived fields receive the matched file path, dependent ones the dependency values in order.
type Parser interface {
	Parse(args ...Value) (any, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(args ...Value) (any, error)

// Parse implements Parser.
func (f ParserFunc) Parse(args ...Value) (any, error) { return f(args...) }

// FieldDef declares an optional field.
type FieldDef struct {
	Name string
	Kind Kind
	// Rule may reference required fields as {name}.
	Rule pattern.Spec
	// DependsOn lists the fields a derived value is computed from.
	DependsOn []string
	Parser    Parser
}

// Dependent reports whether the field is computed from other fields.
func (f *FieldDef) Dependent() bool { return f.Kind == Derived && len(f.DependsOn) > 0 }

// Schema describes one record type.
type Schema struct {
	Name     string
	Required pattern.FieldSpecs
	Fields   []FieldDef

	once     sync.Once
	err      error
	required *pattern.Scheme
	index    map[string]int
}

// Validate compiles the required scheme and checks field declarations.
func (s *Schema) Validate() error {
	s.once.Do(func() { s.err = s.compile() })
	return s.err
}

func (s *Schema) compile() error {
	if s.Name == "" {
		return fmt.Errorf("schema has no name")
	}
	if len(s.Required) == 0 {
		return fmt.Errorf("schema %s: no required fields", s.Name)
	}
	required, err := pattern.CompileScheme(s.Required)
	if err != nil {
		return fmt.Errorf("schema %s: %w", s.Name, err)
	}

	names := make(map[string]bool)
	for _, r := range s.Required {
		if err := checkName(r.Field); err != nil {
			return fmt.Errorf("schema %s: %w", s.Name, err)
		}
		names[r.Field] = true
	}

	index := make(map[string]int, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if err := checkName(f.Name); err != nil {
			return fmt.Errorf("schema %s: %w", s.Name, err)
		}
		if names[f.Name] {
			return fmt.Errorf("schema %s: duplicate field %q", s.Name, f.Name)
		}
		if _, err := behaviourOf(f.Kind); err != nil {
			return fmt.Errorf("schema %s: field %s: %w", s.Name, f.Name, err)
		}
		names[f.Name] = true
		index[f.Name] = i
	}

	for i := range s.Fields {
		if err := s.checkField(&s.Fields[i], names); err != nil {
			return fmt.Errorf("schema %s: field %s: %w", s.Name, s.Fields[i].Name, err)
		}
	}

	s.required = required
	s.index = index
	return nil
}

func (s *Schema) checkField(f *FieldDef, names map[string]bool) error {
	hasRule := !f.Rule.IsZero()
	if f.Kind == Derived {
		if hasRule == (len(f.DependsOn) > 0) {
			return fmt.Errorf("derived field needs exactly one of a rule or dependencies")
		}
		if f.Parser == nil {
			return fmt.Errorf("derived field has no parser")
		}
		for _, dep := range f.DependsOn {
			if dep == f.Name || !names[dep] {
				return fmt.Errorf("unknown dependency %q", dep)
			}
		}
	} else {
		if !hasRule {
			return fmt.Errorf("no rule")
		}
		if len(f.DependsOn) > 0 {
			return fmt.Errorf("only derived fields may declare dependencies")
		}
	}
	if !hasRule {
		return nil
	}
	for _, p := range f.Rule.Placeholders() {
		if !s.isRequired(p) {
			return fmt.Errorf("placeholder {%s} is not a required field", p)
		}
	}
	// compile once with dummy values so broken patterns fail at load time
	probe := make(map[string]string)
	for _, r := range s.Required {
		probe[r.Field] = "x"
	}
	expanded, err := f.Rule.Expand(probe)
	if err != nil {
		return err
	}
	_, err = expanded.Compile(pattern.SchemeContext)
	return err
}

func (s *Schema) isRequired(name string) bool {
	for _, r := range s.Required {
		if r.Field == name {
			return true
		}
	}
	return false
}

func checkName(name string) error {
	switch name {
	case "":
		return fmt.Errorf("field without a name")
	case docstore.KeySchema, docstore.KeyID:
		return fmt.Errorf("field name %q is reserved", name)
	}
	return nil
}

// Field returns the optional field named name.
func (s *Schema) Field(name string) (*FieldDef, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return &s.Fields[i], true
}

// RequiredFields returns the required field names in identity order.
func (s *Schema) RequiredFields() []string {
	out := make([]string, len(s.Required))
	for i, r := range s.Required {
		out[i] = r.Field
	}
	return out
}

// Identify matches the required scheme against name.
// It returns the required values and the identity when every required field matched.
func (s *Schema) Identify(name string) (map[string]string, string, bool) {
	if s.required == nil {
		return nil, "", false
	}
	match := s.required.Match(name)
	if !s.required.Complete(match) {
		return nil, "", false
	}
	return match, Identity(s.required.Values(match)...), true
}

// Identity joins required values.
func Identity(values ...string) string {
	return strings.Join(values, IDSeparator)
}

// optionalScheme compiles the optional rules bound to a record's required values.
func (s *Schema) optionalScheme(required map[string]string) (*pattern.Scheme, error) {
	scheme := pattern.NewScheme()
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Rule.IsZero() {
			continue
		}
		spec, err := f.Rule.Expand(required)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		rule, err := spec.Compile(pattern.SchemeContext)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if err := scheme.Add(f.Name, rule); err != nil {
			return nil, err
		}
	}
	return scheme, nil
}

// Registry holds the schemas the engine reconciles.
type Registry struct {
	mu     sync.RWMutex
	order  []*Schema
	byName map[string]*Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Schema)}
}

// Register validates and adds a schema.
func (r *Registry) Register(s *Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[s.Name]; dup {
		return fmt.Errorf("schema %s already registered", s.Name)
	}
	r.order = append(r.order, s)
	r.byName[s.Name] = s
	return nil
}

// Schemas returns the registered schemas in registration order.
func (r *Registry) Schemas() []*Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Schema(nil), r.order...)
}

// Get returns the schema named name.
func (r *Registry) Get(name string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}
