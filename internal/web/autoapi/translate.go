package autoapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	ormquery "github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
	webquery "github.com/conduit-lang/dataservice/internal/web/query"
)

var (
	// ErrMissingBody is returned when a write carries no body or a JSON null
	ErrMissingBody = errors.New("request body is required")

	// ErrInvalidBody is returned when the body is not a JSON object
	ErrInvalidBody = errors.New("request body must be a JSON object")
)

// listQuery is the query for GET /<model>. Ordering and pagination are not read.
func listQuery(includes []ormquery.Include) *ormquery.Query {
	return &ormquery.Query{Includes: includes}
}

// searchQuery builds the query for POST /<model>/search from the filter body and the
// order, offset and limit parameters
func searchQuery(r *http.Request, where map[string]interface{}, includes []ormquery.Include) (*ormquery.Query, error) {
	offset, limit, err := webquery.ParsePagination(r)
	if err != nil {
		return nil, err
	}

	q := &ormquery.Query{
		Where:    where,
		Order:    webquery.ParseOrder(r),
		Offset:   offset,
		Limit:    limit,
		Includes: includes,
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// lookupQuery selects the instance whose lookup key equals id. ok is false when id
// cannot match any row.
func lookupQuery(resource *schema.ResourceSchema, id string, includes []ormquery.Include) (q *ormquery.Query, ok bool) {
	key, ok := resource.CoerceKey(id)
	if !ok {
		return nil, false
	}
	return &ormquery.Query{
		Where:    map[string]interface{}{resource.LookupKey(): key},
		Includes: includes,
	}, true
}

// decodeObject reads the request body as a JSON object. An empty body or a JSON null
// returns a nil map and a nil error.
func decodeObject(r *http.Request) (map[string]interface{}, error) {
	if r.Body == nil {
		return nil, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return obj, nil
}

// requireObject is decodeObject for writes, where an absent body is an error
func requireObject(r *http.Request) (map[string]interface{}, error) {
	obj, err := decodeObject(r)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ErrMissingBody
	}
	return obj, nil
}
