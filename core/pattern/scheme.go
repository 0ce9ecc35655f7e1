package pattern

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FieldSpec pairs a field name with its rule spec.
type FieldSpec struct {
	Field string
	Spec  Spec
}

// FieldSpecs keeps declaration order, which defines record identity order.
type FieldSpecs []FieldSpec

// UnmarshalYAML decodes a mapping of field -> rule, preserving key order.
func (fs *FieldSpecs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of field names to rules", node.Line)
	}
	out := make(FieldSpecs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var spec Spec
		if err := spec.UnmarshalYAML(node.Content[i+1]); err != nil {
			return fmt.Errorf("field %s: %w", node.Content[i].Value, err)
		}
		out = append(out, FieldSpec{Field: node.Content[i].Value, Spec: spec})
	}
	*fs = out
	return nil
}

// Scheme is an ordered set of named rules applied to the same text.
type Scheme struct {
	fields []string
	rules  map[string]Rule
}

// NewScheme returns an empty scheme.
func NewScheme() *Scheme {
	return &Scheme{rules: make(map[string]Rule)}
}

// CompileScheme compiles specs in scheme context.
func CompileScheme(specs FieldSpecs) (*Scheme, error) {
	s := NewScheme()
	for _, fs := range specs {
		rule, err := fs.Spec.Compile(SchemeContext)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fs.Field, err)
		}
		if err := s.Add(fs.Field, rule); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends a field rule. Field names must be unique.
func (s *Scheme) Add(field string, rule Rule) error {
	if _, dup := s.rules[field]; dup {
		return fmt.Errorf("duplicate field %q in scheme", field)
	}
	if rule == nil {
		return fmt.Errorf("field %q has no rule", field)
	}
	s.fields = append(s.fields, field)
	s.rules[field] = rule
	return nil
}

// Fields returns the field names in declaration order.
func (s *Scheme) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of fields.
func (s *Scheme) Len() int { return len(s.fields) }

// Match applies every rule to text and returns the fields that matched.
func (s *Scheme) Match(text string) map[string]string {
	result := make(map[string]string)
	for _, f := range s.fields {
		if v, ok := s.rules[f].Match(text); ok {
			result[f] = v
		}
	}
	return result
}

// Complete reports whether match holds a value for every field of the scheme.
func (s *Scheme) Complete(match map[string]string) bool {
	if len(match) != len(s.fields) {
		return false
	}
	for _, f := range s.fields {
		if _, ok := match[f]; !ok {
			return false
		}
	}
	return true
}

// Values returns match values in field order.
func (s *Scheme) Values(match map[string]string) []string {
	out := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		out = append(out, match[f])
	}
	return out
}
