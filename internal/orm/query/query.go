// Package query describes model queries independently of any storage engine and compiles
// them to SQL for the supported dialects.
package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/conduit-lang/dataservice/internal/orm/schema"
)

var (
	// ErrPaginationWithIncludes is returned when offset or limit is combined with includes
	ErrPaginationWithIncludes = errors.New("offset and limit cannot be combined with includes")

	// ErrUnknownField is returned when a query names a field the model does not have
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidFilter is returned for filter values that cannot be translated
	ErrInvalidFilter = errors.New("invalid filter")
)

// Query is a structured request against a single model
type Query struct {
	Where    map[string]interface{} `json:"where,omitempty"`
	Order    []OrderTerm            `json:"order,omitempty"`
	Offset   *int                   `json:"offset,omitempty"`
	Limit    *int                   `json:"limit,omitempty"`
	Includes []Include              `json:"include,omitempty"`
}

// Paginated reports whether an offset or limit is set
func (q *Query) Paginated() bool {
	return q.Offset != nil || q.Limit != nil
}

// Validate checks the combination rules that hold for every query
func (q *Query) Validate() error {
	if q.Paginated() && len(q.Includes) > 0 {
		return ErrPaginationWithIncludes
	}
	if q.Offset != nil && *q.Offset < 0 {
		return fmt.Errorf("%w: negative offset", ErrInvalidFilter)
	}
	if q.Limit != nil && *q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidFilter)
	}
	return nil
}

// OrderTerm is one ordering instruction. Direction is empty when the request named only
// a field; it is kept as written otherwise.
type OrderTerm struct {
	Field     string
	Direction string
}

// MarshalJSON encodes a bare field as "field" and a directed term as ["field", "dir"]
func (o OrderTerm) MarshalJSON() ([]byte, error) {
	if o.Direction == "" {
		return json.Marshal(o.Field)
	}
	return json.Marshal([]string{o.Field, o.Direction})
}

// UnmarshalJSON accepts both encodings produced by MarshalJSON
func (o *OrderTerm) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		o.Direction = ""
		return json.Unmarshal(data, &o.Field)
	}

	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) == 0 || len(pair) > 2 {
		return fmt.Errorf("order term must have one or two elements, got %d", len(pair))
	}
	o.Field = pair[0]
	o.Direction = ""
	if len(pair) == 2 {
		o.Direction = pair[1]
	}
	return nil
}

// Include asks for an association to be loaded with the result and attached under As
type Include struct {
	Model *schema.ResourceSchema
	As    string
}

// MarshalJSON encodes the include as {"model": <name>, "as": <alias>}
func (i Include) MarshalJSON() ([]byte, error) {
	name := ""
	if i.Model != nil {
		name = i.Model.Name
	}
	return json.Marshal(struct {
		Model string `json:"model"`
		As    string `json:"as"`
	}{name, i.As})
}
