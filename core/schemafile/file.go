package schemafile

import (
	"bytes"
	"fmt"

	"files-kraken/core/blueprint"
	"files-kraken/core/pattern"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// File is the decoded form of a schema file.
type File struct {
	Schemas []SchemaDef `yaml:"schemas"`
}

// SchemaDef declares one schema.
type SchemaDef struct {
	Name     string             `yaml:"name"`
	Required pattern.FieldSpecs `yaml:"required"`
	Fields   FieldDefs          `yaml:"fields"`
}

// FieldDef declares one optional field.
type FieldDef struct {
	Name      string         `yaml:"-"`
	Kind      blueprint.Kind `yaml:"kind"`
	Rule      pattern.Spec   `yaml:"rule"`
	DependsOn []string       `yaml:"depends_on"`
	Parser    string         `yaml:"parser"`
}

// FieldDefs keeps the declaration order of a fields mapping.
type FieldDefs []FieldDef

// UnmarshalYAML implements yaml.Unmarshaler.
func (fd *FieldDefs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: fields must be a mapping", node.Line)
	}
	out := make(FieldDefs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var def FieldDef
		if err := node.Content[i+1].Decode(&def); err != nil {
			return fmt.Errorf("field %s: %w", node.Content[i].Value, err)
		}
		def.Name = node.Content[i].Value
		out = append(out, def)
	}
	*fd = out
	return nil
}

// Parse decodes a schema file. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}
	return &f, nil
}

// Build converts the definitions into validated schemas.
func (f *File) Build(parsers Parsers) ([]*blueprint.Schema, error) {
	schemas := make([]*blueprint.Schema, 0, len(f.Schemas))
	for _, def := range f.Schemas {
		s := &blueprint.Schema{Name: def.Name, Required: def.Required}
		for _, fd := range def.Fields {
			field := blueprint.FieldDef{
				Name:      fd.Name,
				Kind:      fd.Kind,
				Rule:      fd.Rule,
				DependsOn: fd.DependsOn,
			}
			if fd.Parser != "" {
				p, ok := parsers[fd.Parser]
				if !ok {
					return nil, fmt.Errorf("schema %s field %s: unknown parser %q", def.Name, fd.Name, fd.Parser)
				}
				field.Parser = p
			}
			s.Fields = append(s.Fields, field)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// Load reads path and registers every schema it declares.
func Load(fs afero.Fs, path string, registry *blueprint.Registry) ([]*blueprint.Schema, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	schemas, err := f.Build(DefaultParsers(fs))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, s := range schemas {
		if err := registry.Register(s); err != nil {
			return nil, err
		}
	}
	return schemas, nil
}
