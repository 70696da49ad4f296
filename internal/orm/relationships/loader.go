package relationships

import (
	"context"
	"fmt"

	"github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
)

// EagerLoad loads every include for the given records. The result is aligned with records:
// result[i][alias] holds the associated record (belongs_to, has_one, nil when absent) or the
// list of associated records (has_many, empty when absent).
func (l *Loader) EagerLoad(
	ctx context.Context,
	records []map[string]interface{},
	resource *schema.ResourceSchema,
	includes []query.Include,
) ([]map[string]interface{}, error) {
	loaded := make([]map[string]interface{}, len(records))
	for i := range loaded {
		loaded[i] = make(map[string]interface{}, len(includes))
	}

	if len(records) == 0 {
		return loaded, nil
	}

	for _, include := range includes {
		rel, ok := resource.Relationships[include.As]
		if !ok {
			return nil, fmt.Errorf("%w: %s on %s", ErrUnknownRelationship, include.As, resource.Name)
		}

		if err := l.loadRelationship(ctx, records, loaded, rel, resource); err != nil {
			return nil, fmt.Errorf("failed to load relationship %s: %w", include.As, err)
		}
	}

	return loaded, nil
}

func (l *Loader) loadRelationship(
	ctx context.Context,
	records []map[string]interface{},
	loaded []map[string]interface{},
	rel *schema.Relationship,
	resource *schema.ResourceSchema,
) error {
	switch rel.Type {
	case schema.RelationshipBelongsTo:
		return l.loadBelongsTo(ctx, records, loaded, rel)
	case schema.RelationshipHasMany:
		return l.loadHasMany(ctx, records, loaded, rel, resource, false)
	case schema.RelationshipHasOne:
		return l.loadHasMany(ctx, records, loaded, rel, resource, true)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidRelationType, rel.Type)
	}
}
