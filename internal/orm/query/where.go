package query

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/conduit-lang/dataservice/internal/orm/schema"
)

var operatorNames = map[string]Operator{
	"eq":      OpEqual,
	"ne":      OpNotEqual,
	"gt":      OpGreaterThan,
	"gte":     OpGreaterThanOrEqual,
	"lt":      OpLessThan,
	"lte":     OpLessThanOrEqual,
	"in":      OpIn,
	"notin":   OpNotIn,
	"like":    OpLike,
	"notlike": OpNotLike,
	"ilike":   OpILike,
	"between": OpBetween,
}

// ParseWhere translates a JSON-style filter object into predicates.
//
//	{"status": "open"}                     status = ?
//	{"deleted_at": null}                   deleted_at IS NULL
//	{"id": [1, 2]}                         id IN (?, ?)
//	{"views": {"gte": 10, "lt": 100}}      views >= ? AND views < ?
//	{"or": [{"a": 1}, {"b": 2}]}           (a = ?) OR (b = ?)
//
// Operator keys may carry a leading "$". Keys are processed in sorted order so the
// generated SQL is stable.
func ParseWhere(resource *schema.ResourceSchema, where map[string]interface{}) (*PredicateGroup, error) {
	group := NewPredicateGroup(false)

	for _, key := range sortedWhereKeys(where) {
		value := where[key]
		name := strings.TrimPrefix(key, "$")

		switch strings.ToLower(name) {
		case "or", "and":
			sub, err := parseJunction(resource, value, strings.EqualFold(name, "or"))
			if err != nil {
				return nil, err
			}
			if !sub.Empty() {
				group.AddGroup(sub)
			}
			continue
		}

		if resource != nil && !resource.HasField(key) {
			return nil, fmt.Errorf("%w: %s on %s", ErrUnknownField, key, resource.Name)
		}

		conds, err := parseFieldFilter(key, value)
		if err != nil {
			return nil, err
		}
		for _, c := range conds {
			group.AddCondition(c)
		}
	}

	return group, nil
}

func parseJunction(resource *schema.ResourceSchema, value interface{}, or bool) (*PredicateGroup, error) {
	group := NewPredicateGroup(or)

	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: junction members must be objects", ErrInvalidFilter)
			}
			sub, err := ParseWhere(resource, obj)
			if err != nil {
				return nil, err
			}
			if !sub.Empty() {
				group.AddGroup(sub)
			}
		}
	case map[string]interface{}:
		// {"or": {"a": 1, "b": 2}} joins each key
		for _, key := range sortedWhereKeys(v) {
			sub, err := ParseWhere(resource, map[string]interface{}{key: v[key]})
			if err != nil {
				return nil, err
			}
			if !sub.Empty() {
				group.AddGroup(sub)
			}
		}
	default:
		return nil, fmt.Errorf("%w: junction requires a list or object", ErrInvalidFilter)
	}

	return group, nil
}

func parseFieldFilter(field string, value interface{}) ([]*Condition, error) {
	switch v := value.(type) {
	case nil:
		return []*Condition{{Field: field, Operator: OpIsNull}}, nil
	case []interface{}:
		return []*Condition{{Field: field, Operator: OpIn, Value: normalizeList(v)}}, nil
	case map[string]interface{}:
		conds := make([]*Condition, 0, len(v))
		for _, opKey := range sortedWhereKeys(v) {
			opName := strings.ToLower(strings.TrimPrefix(opKey, "$"))
			arg := v[opKey]

			if opName == "is" || ((opName == "eq" || opName == "ne") && arg == nil) {
				op := OpIsNull
				if opName == "ne" {
					op = OpIsNotNull
				}
				if opName == "is" && arg != nil {
					return nil, fmt.Errorf("%w: %s only supports null", ErrInvalidFilter, opKey)
				}
				conds = append(conds, &Condition{Field: field, Operator: op})
				continue
			}

			op, ok := operatorNames[opName]
			if !ok {
				return nil, fmt.Errorf("%w: unknown operator %s on %s", ErrInvalidFilter, opKey, field)
			}

			switch op {
			case OpIn, OpNotIn, OpBetween:
				list, ok := arg.([]interface{})
				if !ok {
					return nil, fmt.Errorf("%w: %s on %s requires a list", ErrInvalidFilter, opKey, field)
				}
				arg = normalizeList(list)
			default:
				if !isScalar(arg) {
					return nil, fmt.Errorf("%w: %s on %s requires a scalar", ErrInvalidFilter, opKey, field)
				}
				arg = normalize(arg)
			}
			conds = append(conds, &Condition{Field: field, Operator: op, Value: arg})
		}
		return conds, nil
	default:
		return []*Condition{{Field: field, Operator: OpEqual, Value: normalize(v)}}, nil
	}
}

func isScalar(v interface{}) bool {
	switch v.(type) {
	case []interface{}, map[string]interface{}, nil:
		return false
	}
	return true
}

// normalize turns whole JSON numbers into integers so they bind as integer parameters
func normalize(v interface{}) interface{} {
	if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return v
}

func normalizeList(list []interface{}) []interface{} {
	out := make([]interface{}, len(list))
	for i, v := range list {
		out[i] = normalize(v)
	}
	return out
}

func sortedWhereKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
