package schema

import (
	"fmt"
	"strings"
)

// ValidationError represents a schema validation error with context
type ValidationError struct {
	Resource string
	Field    string
	Message  string
	Hint     string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder

	if e.Resource != "" {
		b.WriteString(e.Resource)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}

	return b.String()
}

// SchemaValidator validates resource schemas
type SchemaValidator struct {
	errors []*ValidationError
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{errors: make([]*ValidationError, 0)}
}

// ValidateStructural validates a single resource schema without cross-resource checks
func (v *SchemaValidator) ValidateStructural(schema *ResourceSchema) error {
	v.errors = make([]*ValidationError, 0)

	v.validateName(schema)
	v.validatePrimaryKey(schema)
	v.validateFields(schema)

	return v.result()
}

// Validate validates a resource's relationships against the full set of schemas
func (v *SchemaValidator) Validate(schema *ResourceSchema, registry map[string]*ResourceSchema) error {
	if err := v.ValidateStructural(schema); err != nil {
		return err
	}

	v.validateRelationships(schema, registry)
	return v.result()
}

func (v *SchemaValidator) result() error {
	if len(v.errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		msgs = append(msgs, err.Error())
	}
	if len(msgs) == 1 {
		return v.errors[0]
	}
	return fmt.Errorf("schema validation failed with %d errors:\n%s", len(v.errors), strings.Join(msgs, "\n"))
}

func (v *SchemaValidator) validateName(schema *ResourceSchema) {
	if schema.Name == "" {
		v.errors = append(v.errors, &ValidationError{Message: "resource name is required"})
	}
	if schema.TableName == "" {
		v.errors = append(v.errors, &ValidationError{
			Resource: schema.Name,
			Message:  "table name is required",
		})
	}
}

func (v *SchemaValidator) validatePrimaryKey(schema *ResourceSchema) {
	for _, pk := range schema.PrimaryKeys {
		if _, ok := schema.Fields[pk]; !ok {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    pk,
				Message:  "primary key references an unknown field",
			})
		}
	}
	if len(schema.PrimaryKeys) == 0 && !schema.HasField("id") {
		v.errors = append(v.errors, &ValidationError{
			Resource: schema.Name,
			Message:  "no primary key declared",
			Hint:     "mark a field as primary or declare an id field",
		})
	}
}

func (v *SchemaValidator) validateFields(schema *ResourceSchema) {
	for name, field := range schema.Fields {
		if field.Type == nil {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  "field has no type",
			})
		}
		if field.HasAnnotation("auto") && field.Type != nil &&
			field.Type.BaseType != TypeUUID && field.Type.BaseType != TypeInt && field.Type.BaseType != TypeBigInt &&
			field.Type.BaseType != TypeTimestamp {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  fmt.Sprintf("auto is not supported for %s fields", field.Type.BaseType),
			})
		}
	}
}

func (v *SchemaValidator) validateRelationships(schema *ResourceSchema, registry map[string]*ResourceSchema) {
	for name, rel := range schema.Relationships {
		if _, ok := registry[rel.TargetResource]; !ok {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  fmt.Sprintf("relationship references unknown resource %s", rel.TargetResource),
			})
			continue
		}
		if schema.HasField(name) {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  "relationship alias collides with a field",
			})
		}
	}
}
