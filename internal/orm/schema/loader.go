package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is the on-disk form of a models file
type Definition struct {
	Models []ModelDefinition `yaml:"models"`
}

// ModelDefinition describes one model in a models file
type ModelDefinition struct {
	Name         string                  `yaml:"name"`
	Table        string                  `yaml:"table,omitempty"`
	Doc          string                  `yaml:"doc,omitempty"`
	Fields       []FieldDefinition       `yaml:"fields"`
	Associations []AssociationDefinition `yaml:"associations,omitempty"`
}

// FieldDefinition describes one field of a model
type FieldDefinition struct {
	Name     string      `yaml:"name"`
	Type     string      `yaml:"type"`
	Length   *int        `yaml:"length,omitempty"`
	Nullable bool        `yaml:"nullable,omitempty"`
	Primary  bool        `yaml:"primary,omitempty"`
	Auto     bool        `yaml:"auto,omitempty"`
	Unique   bool        `yaml:"unique,omitempty"`
	Default  interface{} `yaml:"default,omitempty"`
}

// AssociationDefinition describes one association of a model
type AssociationDefinition struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Target     string `yaml:"target"`
	ForeignKey string `yaml:"foreign_key,omitempty"`
	OrderBy    string `yaml:"order_by,omitempty"`
	Nullable   bool   `yaml:"nullable,omitempty"`
}

// LoadFile reads a models file and returns a sealed registry
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read models file: %w", err)
	}
	return Load(data)
}

// Load parses YAML model definitions and returns a sealed registry
func Load(data []byte) (*Registry, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse models: %w", err)
	}
	return def.Registry()
}

// Registry builds and seals a registry from the definition
func (d *Definition) Registry() (*Registry, error) {
	registry := NewRegistry()
	for _, m := range d.Models {
		schema, err := m.Schema()
		if err != nil {
			return nil, err
		}
		if err := registry.Register(schema); err != nil {
			return nil, err
		}
	}
	if err := registry.Seal(); err != nil {
		return nil, err
	}
	return registry, nil
}

// Schema converts the definition into a ResourceSchema
func (m ModelDefinition) Schema() (*ResourceSchema, error) {
	if m.Name == "" {
		return nil, fmt.Errorf("model definition without a name")
	}

	schema := NewResourceSchema(m.Name)
	schema.Documentation = m.Doc
	if m.Table != "" {
		schema.TableName = m.Table
	}

	for _, f := range m.Fields {
		base, err := ParsePrimitiveType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", m.Name, f.Name, err)
		}
		field := &Field{
			Name: f.Name,
			Type: &TypeSpec{
				BaseType: base,
				Nullable: f.Nullable,
				Default:  f.Default,
				Length:   f.Length,
			},
		}
		if f.Primary {
			field.Annotations = append(field.Annotations, Annotation{Name: "primary"})
		}
		if f.Auto {
			field.Annotations = append(field.Annotations, Annotation{Name: "auto"})
		}
		if f.Unique {
			field.Annotations = append(field.Annotations, Annotation{Name: "unique"})
		}
		schema.AddField(field)
	}

	for _, a := range m.Associations {
		relType, err := ParseRelationType(a.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", m.Name, a.Name, err)
		}
		schema.AddRelationship(&Relationship{
			Type:           relType,
			TargetResource: a.Target,
			FieldName:      a.Name,
			ForeignKey:     a.ForeignKey,
			OrderBy:        a.OrderBy,
			Nullable:       a.Nullable,
		})
	}

	return schema, nil
}
