package migrate

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
)

// DDLGenerator generates CREATE TABLE statements from resource schemas
type DDLGenerator struct {
	dialect    query.Dialect
	typeMapper *TypeMapper
}

// NewDDLGenerator creates a new DDL generator for the dialect
func NewDDLGenerator(dialect query.Dialect) *DDLGenerator {
	return &DDLGenerator{
		dialect:    dialect,
		typeMapper: NewTypeMapper(dialect),
	}
}

// GenerateCreateTable generates a CREATE TABLE statement for a resource. Relationship
// target tables are read from resolved relationships, so the schema registry should be
// validated first.
func (g *DDLGenerator) GenerateCreateTable(resource *schema.ResourceSchema, targets map[string]*schema.ResourceSchema) (string, error) {
	if resource == nil {
		return "", fmt.Errorf("resource cannot be nil")
	}

	var defs []string
	inlinePK := len(resource.PrimaryKeys) == 1

	for _, field := range resource.OrderedFields() {
		def, err := g.generateColumnDefinition(field, inlinePK && field.HasAnnotation("primary"))
		if err != nil {
			return "", fmt.Errorf("field %s: %w", field.Name, err)
		}
		defs = append(defs, def)
	}

	if len(resource.PrimaryKeys) > 1 {
		cols := make([]string, len(resource.PrimaryKeys))
		for i, pk := range resource.PrimaryKeys {
			cols[i] = g.dialect.QuoteIdentifier(pk)
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(cols, ", ")))
	}

	for _, rel := range resource.OrderedRelationships() {
		if rel.Type != schema.RelationshipBelongsTo || !resource.HasField(rel.ForeignKey) {
			continue
		}
		target, ok := targets[rel.TargetResource]
		if !ok {
			continue
		}
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			g.dialect.QuoteIdentifier(rel.ForeignKey),
			g.dialect.QuoteIdentifier(target.TableName),
			g.dialect.QuoteIdentifier(target.LookupKey()),
		))
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", g.dialect.QuoteIdentifier(resource.TableName)))
	for i, def := range defs {
		b.WriteString("  ")
		b.WriteString(def)
		if i < len(defs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")

	return b.String(), nil
}

func (g *DDLGenerator) generateColumnDefinition(field *schema.Field, primary bool) (string, error) {
	column := g.dialect.QuoteIdentifier(field.Name)
	isInt := field.Type.BaseType == schema.TypeInt || field.Type.BaseType == schema.TypeBigInt

	// Auto-increment integer keys
	if primary && isInt && field.HasAnnotation("auto") {
		if g.dialect == query.SQLite {
			return column + " INTEGER PRIMARY KEY AUTOINCREMENT", nil
		}
		if field.Type.BaseType == schema.TypeBigInt {
			return column + " BIGSERIAL PRIMARY KEY", nil
		}
		return column + " SERIAL PRIMARY KEY", nil
	}

	columnType, err := g.typeMapper.MapType(field.Type)
	if err != nil {
		return "", fmt.Errorf("mapping type: %w", err)
	}

	parts := []string{column, columnType, g.typeMapper.MapNullability(field.Type)}

	defaultValue, err := g.typeMapper.MapDefault(field.Type)
	if err != nil {
		return "", fmt.Errorf("mapping default value: %w", err)
	}

	if field.HasAnnotation("auto") {
		switch {
		case field.Type.BaseType == schema.TypeUUID && g.dialect != query.SQLite:
			parts = append(parts, "DEFAULT gen_random_uuid()")
		case field.Type.BaseType == schema.TypeTimestamp:
			parts = append(parts, "DEFAULT CURRENT_TIMESTAMP")
		}
	} else if defaultValue != "" {
		parts = append(parts, "DEFAULT "+defaultValue)
	}

	if primary {
		parts = append(parts, "PRIMARY KEY")
	} else if field.HasAnnotation("unique") {
		parts = append(parts, "UNIQUE")
	}

	return strings.Join(parts, " "), nil
}
