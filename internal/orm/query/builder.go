package query

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/dataservice/internal/orm/schema"
)

// Builder compiles queries against one resource into SQL for a dialect
type Builder struct {
	resource *schema.ResourceSchema
	dialect  Dialect
}

// NewBuilder creates a new builder for the given resource
func NewBuilder(resource *schema.ResourceSchema, dialect Dialect) *Builder {
	return &Builder{resource: resource, dialect: dialect}
}

// Columns returns the resource's columns in declaration order
func (b *Builder) Columns() []string {
	fields := b.resource.OrderedFields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	return cols
}

// Table returns the quoted table name
func (b *Builder) Table() string {
	return b.dialect.QuoteIdentifier(b.resource.TableName)
}

// SelectList returns the quoted, comma separated column list
func (b *Builder) SelectList() string {
	cols := b.Columns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = b.dialect.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

// Select builds the row query. Includes are not part of the SQL; they are loaded separately.
func (b *Builder) Select(q *Query) (string, []interface{}, error) {
	if q == nil {
		q = &Query{}
	}

	var sql strings.Builder
	pb := b.dialect.NewParamBuilder()

	sql.WriteString(fmt.Sprintf("SELECT %s FROM %s", b.SelectList(), b.Table()))

	if err := b.writeWhere(&sql, q, pb); err != nil {
		return "", nil, err
	}

	if len(q.Order) > 0 {
		order, err := b.orderClause(q.Order)
		if err != nil {
			return "", nil, err
		}
		sql.WriteString(" ORDER BY ")
		sql.WriteString(order)
	}

	if q.Limit != nil {
		sql.WriteString(" LIMIT ")
		sql.WriteString(pb.Add(*q.Limit))
	}

	if q.Offset != nil {
		if q.Limit == nil {
			sql.WriteString(b.dialect.OffsetWithoutLimit())
		}
		sql.WriteString(" OFFSET ")
		sql.WriteString(pb.Add(*q.Offset))
	}

	return sql.String(), pb.Params(), nil
}

// Count builds the count query; ordering and pagination do not apply
func (b *Builder) Count(q *Query) (string, []interface{}, error) {
	if q == nil {
		q = &Query{}
	}

	var sql strings.Builder
	pb := b.dialect.NewParamBuilder()

	sql.WriteString(fmt.Sprintf("SELECT COUNT(*) FROM %s", b.Table()))

	if err := b.writeWhere(&sql, q, pb); err != nil {
		return "", nil, err
	}

	return sql.String(), pb.Params(), nil
}

func (b *Builder) writeWhere(sql *strings.Builder, q *Query, pb *ParamBuilder) error {
	if len(q.Where) == 0 {
		return nil
	}

	group, err := ParseWhere(b.resource, q.Where)
	if err != nil {
		return err
	}

	clause, err := group.ToSQL(b.dialect, pb)
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}
	if clause != "" {
		sql.WriteString(" WHERE ")
		sql.WriteString(clause)
	}
	return nil
}

func (b *Builder) orderClause(terms []OrderTerm) (string, error) {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		if !b.resource.HasField(term.Field) {
			return "", fmt.Errorf("%w: cannot order %s by %s", ErrUnknownField, b.resource.Name, term.Field)
		}

		part := b.dialect.QuoteIdentifier(term.Field)
		switch strings.ToUpper(term.Direction) {
		case "":
		case "ASC":
			part += " ASC"
		case "DESC":
			part += " DESC"
		default:
			return "", fmt.Errorf("%w: invalid order direction %q", ErrInvalidFilter, term.Direction)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", "), nil
}
