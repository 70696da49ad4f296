package query

import (
	"fmt"
	"strings"
)

// Operator is the SQL text of a comparison
type Operator string

const (
	OpEqual              Operator = "="
	OpNotEqual           Operator = "!="
	OpGreaterThan        Operator = ">"
	OpGreaterThanOrEqual Operator = ">="
	OpLessThan           Operator = "<"
	OpLessThanOrEqual    Operator = "<="
	OpIn                 Operator = "IN"
	OpNotIn              Operator = "NOT IN"
	OpLike               Operator = "LIKE"
	OpNotLike            Operator = "NOT LIKE"
	OpILike              Operator = "ILIKE"
	OpIsNull             Operator = "IS NULL"
	OpIsNotNull          Operator = "IS NOT NULL"
	OpBetween            Operator = "BETWEEN"
)

// Condition compares one column against a value
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// PredicateGroup joins conditions and nested groups with AND, or OR when Or is set
type PredicateGroup struct {
	Conditions []*Condition
	Groups     []*PredicateGroup
	Or         bool
}

func NewPredicateGroup(or bool) *PredicateGroup {
	return &PredicateGroup{Or: or}
}

func (pg *PredicateGroup) AddCondition(cond *Condition) {
	pg.Conditions = append(pg.Conditions, cond)
}

func (pg *PredicateGroup) AddGroup(group *PredicateGroup) {
	pg.Groups = append(pg.Groups, group)
}

// Empty reports whether the group renders to nothing
func (pg *PredicateGroup) Empty() bool {
	return pg == nil || (len(pg.Conditions) == 0 && len(pg.Groups) == 0)
}

// ToSQL renders the group. Values are bound through pb in rendering order.
func (pg *PredicateGroup) ToSQL(d Dialect, pb *ParamBuilder) (string, error) {
	if pg.Empty() {
		return "", nil
	}

	var parts []string
	for _, cond := range pg.Conditions {
		clause, err := cond.toSQL(d, pb)
		if err != nil {
			return "", err
		}
		parts = append(parts, clause)
	}
	for _, group := range pg.Groups {
		clause, err := group.ToSQL(d, pb)
		if err != nil {
			return "", err
		}
		if clause != "" {
			parts = append(parts, "("+clause+")")
		}
	}

	if pg.Or {
		return strings.Join(parts, " OR "), nil
	}
	return strings.Join(parts, " AND "), nil
}

func (c *Condition) toSQL(d Dialect, pb *ParamBuilder) (string, error) {
	column := d.QuoteIdentifier(c.Field)

	switch c.Operator {
	case OpIsNull, OpIsNotNull:
		return column + " " + string(c.Operator), nil

	case OpILike:
		return d.ILike(column, pb.Add(c.Value)), nil

	case OpIn, OpNotIn:
		values, ok := c.Value.([]interface{})
		if !ok {
			return "", fmt.Errorf("%w: %s needs a list", ErrInvalidFilter, c.Operator)
		}
		if len(values) == 0 {
			if c.Operator == OpIn {
				return "1 = 0", nil
			}
			return "1 = 1", nil
		}
		marks := make([]string, len(values))
		for i, v := range values {
			marks[i] = pb.Add(v)
		}
		return fmt.Sprintf("%s %s (%s)", column, c.Operator, strings.Join(marks, ", ")), nil

	case OpBetween:
		bounds, ok := c.Value.([]interface{})
		if !ok || len(bounds) != 2 {
			return "", fmt.Errorf("%w: between needs [min, max]", ErrInvalidFilter)
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", column, pb.Add(bounds[0]), pb.Add(bounds[1])), nil

	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual, OpLike, OpNotLike:
		return fmt.Sprintf("%s %s %s", column, c.Operator, pb.Add(c.Value)), nil
	}
	return "", fmt.Errorf("%w: operator %q", ErrInvalidFilter, string(c.Operator))
}
