package query

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	ormquery "github.com/conduit-lang/dataservice/internal/orm/query"
)

// IncludeHeader names the header listing associations to load
const IncludeHeader = "X-Include"

// ErrInvalidPagination is returned when offset or limit is not a non-negative integer
var ErrInvalidPagination = errors.New("invalid pagination")

// ParseIncludeHeader parses the X-Include header into lower-cased association names.
// Example: "Comments, Tags" returns ["comments", "tags"]
// Returns nil if the header is absent or holds only empty tokens.
func ParseIncludeHeader(r *http.Request) []string {
	header := r.Header.Get(IncludeHeader)
	if header == "" {
		return nil
	}

	var result []string
	for _, part := range strings.Split(header, ",") {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// ParseOrder parses every order query parameter into order terms.
// Example: ?order=created_at%20DESC&order=title returns [["created_at","DESC"], "title"]
// Each value is split on whitespace into at most a field and a direction. A direction other
// than asc or desc (any case) is dropped and the bare field kept.
func ParseOrder(r *http.Request) []ormquery.OrderTerm {
	values := r.URL.Query()["order"]
	if len(values) == 0 {
		return nil
	}

	terms := make([]ormquery.OrderTerm, 0, len(values))
	for _, value := range values {
		parts := strings.Fields(value)
		if len(parts) == 0 {
			continue
		}

		term := ormquery.OrderTerm{Field: parts[0]}
		if len(parts) > 1 {
			switch strings.ToLower(parts[1]) {
			case "asc", "desc":
				term.Direction = parts[1]
			}
		}
		terms = append(terms, term)
	}

	return terms
}

// ParsePagination parses the offset and limit query parameters. A parameter that is absent
// or empty yields nil.
func ParsePagination(r *http.Request) (offset, limit *int, err error) {
	q := r.URL.Query()

	if offset, err = parseNonNegative("offset", q.Get("offset")); err != nil {
		return nil, nil, err
	}
	if limit, err = parseNonNegative("limit", q.Get("limit")); err != nil {
		return nil, nil, err
	}
	return offset, limit, nil
}

func parseNonNegative(name, raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: %s must be a non-negative integer, got %q", ErrInvalidPagination, name, raw)
	}
	return &n, nil
}
