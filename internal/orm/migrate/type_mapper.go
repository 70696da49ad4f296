// Package migrate creates the tables backing registered models
package migrate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
)

// column types per dialect; strings are special-cased for their length
var columnTypes = map[query.Dialect]map[schema.PrimitiveType]string{
	query.Postgres: {
		schema.TypeText:      "TEXT",
		schema.TypeInt:       "INTEGER",
		schema.TypeBigInt:    "BIGINT",
		schema.TypeFloat:     "DOUBLE PRECISION",
		schema.TypeDecimal:   "NUMERIC",
		schema.TypeBool:      "BOOLEAN",
		schema.TypeTimestamp: "TIMESTAMP WITH TIME ZONE",
		schema.TypeDate:      "DATE",
		schema.TypeUUID:      "UUID",
		schema.TypeJSON:      "JSONB",
	},
	// go-sqlite3 converts BOOLEAN, TIMESTAMP and DATE columns on scan
	query.SQLite: {
		schema.TypeText:      "TEXT",
		schema.TypeInt:       "INTEGER",
		schema.TypeBigInt:    "INTEGER",
		schema.TypeFloat:     "REAL",
		schema.TypeDecimal:   "NUMERIC",
		schema.TypeBool:      "BOOLEAN",
		schema.TypeTimestamp: "TIMESTAMP",
		schema.TypeDate:      "DATE",
		schema.TypeUUID:      "TEXT",
		schema.TypeJSON:      "TEXT",
	},
}

// TypeMapper renders column types and defaults for one dialect
type TypeMapper struct {
	dialect query.Dialect
}

func NewTypeMapper(dialect query.Dialect) *TypeMapper {
	return &TypeMapper{dialect: dialect}
}

// MapType returns the column type declared for spec
func (tm *TypeMapper) MapType(spec *schema.TypeSpec) (string, error) {
	if spec == nil {
		return "", errors.New("type spec cannot be nil")
	}

	if spec.BaseType == schema.TypeString {
		switch {
		case spec.Length != nil:
			return "VARCHAR(" + strconv.Itoa(*spec.Length) + ")", nil
		case tm.dialect == query.SQLite:
			return "TEXT", nil
		default:
			return "VARCHAR(255)", nil
		}
	}

	if t, ok := columnTypes[tm.dialect][spec.BaseType]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unsupported type: %s", spec.BaseType)
}

func (tm *TypeMapper) MapNullability(spec *schema.TypeSpec) string {
	if spec.Nullable {
		return "NULL"
	}
	return "NOT NULL"
}

// MapDefault renders spec.Default as a SQL literal, or "" when there is none
func (tm *TypeMapper) MapDefault(spec *schema.TypeSpec) (string, error) {
	switch v := spec.Default.(type) {
	case nil:
		return "", nil
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", nil
	case bool:
		literal := strings.ToUpper(strconv.FormatBool(v))
		if tm.dialect == query.SQLite {
			literal = map[bool]string{true: "1", false: "0"}[v]
		}
		return literal, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("unsupported default value %v (%T)", spec.Default, spec.Default)
}
