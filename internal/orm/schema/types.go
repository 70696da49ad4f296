// Package schema defines the model metadata the data service exposes: resources, their fields,
// primary keys and associations. Schemas are loaded once at startup and treated as immutable
// once the registry holding them is sealed.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// PrimitiveType represents the column types a model field may declare
type PrimitiveType int

const (
	// Text types
	TypeString PrimitiveType = iota
	TypeText

	// Numeric types
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDecimal

	// Boolean
	TypeBool

	// Time types
	TypeTimestamp
	TypeDate

	// Unique identifiers
	TypeUUID

	// JSON types
	TypeJSON
)

// String returns the string representation of the primitive type
func (p PrimitiveType) String() string {
	switch p {
	case TypeString:
		return "string"
	case TypeText:
		return "text"
	case TypeInt:
		return "int"
	case TypeBigInt:
		return "bigint"
	case TypeFloat:
		return "float"
	case TypeDecimal:
		return "decimal"
	case TypeBool:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	case TypeDate:
		return "date"
	case TypeUUID:
		return "uuid"
	case TypeJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParsePrimitiveType converts a string to a PrimitiveType
func ParsePrimitiveType(s string) (PrimitiveType, error) {
	switch strings.ToLower(s) {
	case "string":
		return TypeString, nil
	case "text":
		return TypeText, nil
	case "int", "integer":
		return TypeInt, nil
	case "bigint":
		return TypeBigInt, nil
	case "float", "double":
		return TypeFloat, nil
	case "decimal":
		return TypeDecimal, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "timestamp", "datetime":
		return TypeTimestamp, nil
	case "date":
		return TypeDate, nil
	case "uuid":
		return TypeUUID, nil
	case "json", "jsonb":
		return TypeJSON, nil
	default:
		return 0, fmt.Errorf("unknown primitive type: %s", s)
	}
}

// TypeSpec represents a field type with nullability
type TypeSpec struct {
	BaseType PrimitiveType
	Nullable bool
	Default  interface{}
	Length   *int // For string(N)
}

// String returns a string representation of the TypeSpec
func (t *TypeSpec) String() string {
	s := t.BaseType.String()
	if t.Length != nil {
		s = fmt.Sprintf("%s(%d)", s, *t.Length)
	}
	if t.Nullable {
		return s + "?"
	}
	return s + "!"
}

// Field represents a column of a resource
type Field struct {
	Name        string
	Type        *TypeSpec
	Annotations []Annotation
}

// Annotation represents field annotations like primary, auto and unique
type Annotation struct {
	Name string
	Args []interface{}
}

// HasAnnotation reports whether the field carries the named annotation
func (f *Field) HasAnnotation(name string) bool {
	for _, a := range f.Annotations {
		if a.Name == name {
			return true
		}
	}
	return false
}

// RelationType represents the type of relationship
type RelationType int

const (
	RelationshipBelongsTo RelationType = iota
	RelationshipHasMany
	RelationshipHasOne
)

// String returns the string representation of the relationship type
func (r RelationType) String() string {
	switch r {
	case RelationshipBelongsTo:
		return "belongs_to"
	case RelationshipHasMany:
		return "has_many"
	case RelationshipHasOne:
		return "has_one"
	default:
		return "unknown"
	}
}

// ParseRelationType converts a string to a RelationType
func ParseRelationType(s string) (RelationType, error) {
	switch strings.ToLower(s) {
	case "belongs_to", "belongsto":
		return RelationshipBelongsTo, nil
	case "has_many", "hasmany":
		return RelationshipHasMany, nil
	case "has_one", "hasone":
		return RelationshipHasOne, nil
	default:
		return 0, fmt.Errorf("unknown relationship type: %s", s)
	}
}

// Relationship is an association from one resource to another. FieldName is the alias the
// associated records are attached under; TargetTable is filled in by Registry.ValidateAll.
type Relationship struct {
	Type           RelationType
	TargetResource string
	TargetTable    string
	FieldName      string
	Nullable       bool

	// For belongs_to the column lives on the owner, otherwise on the target
	ForeignKey string

	// For has_many
	OrderBy string
}

// ResourceSchema represents the complete schema for a model
type ResourceSchema struct {
	Name          string
	Documentation string
	TableName     string

	Fields        map[string]*Field
	Relationships map[string]*Relationship

	// PrimaryKeys lists the primary key fields in declaration order
	PrimaryKeys []string

	fieldOrder        []string
	relationshipOrder []string
}

// NewResourceSchema creates a new ResourceSchema
func NewResourceSchema(name string) *ResourceSchema {
	return &ResourceSchema{
		Name:          name,
		Fields:        make(map[string]*Field),
		Relationships: make(map[string]*Relationship),
		TableName:     ToTableName(name),
	}
}

// AddField adds a field, recording it as part of the primary key when annotated so
func (r *ResourceSchema) AddField(field *Field) {
	if _, exists := r.Fields[field.Name]; !exists {
		r.fieldOrder = append(r.fieldOrder, field.Name)
	}
	r.Fields[field.Name] = field
	if field.HasAnnotation("primary") && !contains(r.PrimaryKeys, field.Name) {
		r.PrimaryKeys = append(r.PrimaryKeys, field.Name)
	}
}

// AddRelationship adds an association keyed by its alias
func (r *ResourceSchema) AddRelationship(rel *Relationship) {
	if _, exists := r.Relationships[rel.FieldName]; !exists {
		r.relationshipOrder = append(r.relationshipOrder, rel.FieldName)
	}
	r.Relationships[rel.FieldName] = rel
}

// LookupKey returns the field single-record lookups match on: the first declared
// primary key, or "id" when none is declared.
func (r *ResourceSchema) LookupKey() string {
	if len(r.PrimaryKeys) > 0 {
		return r.PrimaryKeys[0]
	}
	return "id"
}

// CoerceKey converts a path identifier to the lookup key's type. ok is false when
// the identifier cannot name any row, such as a non-numeric id for an integer key.
func (r *ResourceSchema) CoerceKey(id string) (interface{}, bool) {
	field, exists := r.Fields[r.LookupKey()]
	if !exists || field.Type == nil {
		return id, true
	}

	switch field.Type.BaseType {
	case TypeInt, TypeBigInt:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case TypeUUID:
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, false
		}
		return u.String(), true
	}
	return id, true
}

// OrderedFields returns fields in declaration order
func (r *ResourceSchema) OrderedFields() []*Field {
	fields := make([]*Field, 0, len(r.Fields))
	for _, name := range r.fieldOrder {
		if f, ok := r.Fields[name]; ok {
			fields = append(fields, f)
		}
	}
	// Fields assigned to the map directly are appended in name order
	if len(fields) < len(r.Fields) {
		for _, name := range sortedKeys(r.Fields) {
			if !contains(r.fieldOrder, name) {
				fields = append(fields, r.Fields[name])
			}
		}
	}
	return fields
}

// OrderedRelationships returns associations in declaration order
func (r *ResourceSchema) OrderedRelationships() []*Relationship {
	rels := make([]*Relationship, 0, len(r.Relationships))
	for _, name := range r.relationshipOrder {
		if rel, ok := r.Relationships[name]; ok {
			rels = append(rels, rel)
		}
	}
	if len(rels) < len(r.Relationships) {
		for _, name := range sortedKeys(r.Relationships) {
			if !contains(r.relationshipOrder, name) {
				rels = append(rels, r.Relationships[name])
			}
		}
	}
	return rels
}

// HasField returns true if the resource has a field with the given name
func (r *ResourceSchema) HasField(name string) bool {
	_, exists := r.Fields[name]
	return exists
}

// ToTableName converts a model name to its conventional table name ("BlogPost" -> "blog_posts")
func ToTableName(name string) string {
	return pluralize(ToSnakeCase(name))
}

// ToSnakeCase converts a string to snake_case
func ToSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			if prev >= 'a' && prev <= 'z' {
				result = append(result, '_')
			} else if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				result = append(result, '_')
			}
		}
		if r >= 'A' && r <= 'Z' {
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}
	return string(result)
}

func pluralize(s string) string {
	switch {
	case s == "":
		return s
	case strings.HasSuffix(s, "s"), strings.HasSuffix(s, "x"), strings.HasSuffix(s, "z"),
		strings.HasSuffix(s, "ch"), strings.HasSuffix(s, "sh"):
		return s + "es"
	case strings.HasSuffix(s, "y") && len(s) > 1 && !strings.ContainsAny(s[len(s)-2:len(s)-1], "aeiou"):
		return s[:len(s)-1] + "ies"
	default:
		return s + "s"
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
