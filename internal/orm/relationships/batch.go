package relationships

import (
	"context"
	"fmt"
	"strings"

	"github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
)

// loadBelongsTo loads belongs-to relationships using a batched IN query
// Example: Post belongs_to Author
//   - Collect all unique author_ids from posts
//   - Single query: SELECT ... FROM authors WHERE id IN (...)
//   - Map authors back to posts
func (l *Loader) loadBelongsTo(
	ctx context.Context,
	records []map[string]interface{},
	loaded []map[string]interface{},
	rel *schema.Relationship,
) error {
	target, ok := l.getSchema(rel.TargetResource)
	if !ok {
		return fmt.Errorf("unknown resource: %s", rel.TargetResource)
	}

	ids := collectKeys(records, rel.ForeignKey)
	for i := range loaded {
		loaded[i][rel.FieldName] = nil
	}
	if len(ids) == 0 {
		return nil
	}

	results, err := l.fetch(ctx, target, target.LookupKey(), ids, "")
	if err != nil {
		return fmt.Errorf("failed to query belongs_to relationship: %w", err)
	}

	related := make(map[string]map[string]interface{}, len(results))
	for _, record := range results {
		related[idToString(record[target.LookupKey()])] = record
	}

	for i, record := range records {
		if fk := record[rel.ForeignKey]; fk != nil {
			if relRecord, ok := related[idToString(fk)]; ok {
				loaded[i][rel.FieldName] = relRecord
			}
		}
	}

	return nil
}

// loadHasMany loads has-many (and, with single set, has-one) relationships
// Example: Post has_many Comment
//   - Collect all post IDs
//   - Single query: SELECT ... FROM comments WHERE post_id IN (...)
//   - Group comments by post_id and attach to posts
func (l *Loader) loadHasMany(
	ctx context.Context,
	records []map[string]interface{},
	loaded []map[string]interface{},
	rel *schema.Relationship,
	resource *schema.ResourceSchema,
	single bool,
) error {
	target, ok := l.getSchema(rel.TargetResource)
	if !ok {
		return fmt.Errorf("unknown resource: %s", rel.TargetResource)
	}

	pk := resource.LookupKey()
	for i := range loaded {
		if single {
			loaded[i][rel.FieldName] = nil
		} else {
			loaded[i][rel.FieldName] = []map[string]interface{}{}
		}
	}

	parentIDs := collectKeys(records, pk)
	if len(parentIDs) == 0 {
		return nil
	}

	results, err := l.fetch(ctx, target, rel.ForeignKey, parentIDs, rel.OrderBy)
	if err != nil {
		return fmt.Errorf("failed to query %s relationship: %w", rel.Type, err)
	}

	grouped := make(map[string][]map[string]interface{})
	for _, record := range results {
		key := idToString(record[rel.ForeignKey])
		grouped[key] = append(grouped[key], record)
	}

	for i, record := range records {
		children, ok := grouped[idToString(record[pk])]
		if !ok {
			continue
		}
		if single {
			loaded[i][rel.FieldName] = children[0]
		} else {
			loaded[i][rel.FieldName] = children
		}
	}

	return nil
}

func (l *Loader) fetch(
	ctx context.Context,
	target *schema.ResourceSchema,
	column string,
	values []interface{},
	orderBy string,
) ([]map[string]interface{}, error) {
	q := &query.Query{
		Where: map[string]interface{}{column: values},
		Order: parseOrderBy(orderBy),
	}

	sql, args, err := query.NewBuilder(target, l.dialect).Select(q)
	if err != nil {
		return nil, err
	}

	rows, err := l.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return query.ScanRows(rows)
}

// collectKeys returns the distinct non-nil values of column, in first-seen order
func collectKeys(records []map[string]interface{}, column string) []interface{} {
	seen := make(map[string]bool)
	keys := make([]interface{}, 0, len(records))
	for _, record := range records {
		v, ok := record[column]
		if !ok || v == nil {
			continue
		}
		key := idToString(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, v)
	}
	return keys
}

// parseOrderBy turns "created_at desc, id" into order terms
func parseOrderBy(orderBy string) []query.OrderTerm {
	if strings.TrimSpace(orderBy) == "" {
		return nil
	}

	var terms []query.OrderTerm
	for _, part := range strings.Split(orderBy, ",") {
		tokens := strings.Fields(part)
		if len(tokens) == 0 {
			continue
		}
		term := query.OrderTerm{Field: tokens[0]}
		if len(tokens) > 1 {
			term.Direction = tokens[1]
		}
		terms = append(terms, term)
	}
	return terms
}

func idToString(id interface{}) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return fmt.Sprintf("%d", v)
	case int:
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
