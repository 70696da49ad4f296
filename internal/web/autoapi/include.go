package autoapi

import (
	"strings"

	"github.com/conduit-lang/dataservice/internal/orm/model"
	ormquery "github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
)

// ResolveIncludes maps requested include names to associations of resource. A name
// matches an association when it equals the association's target table, ignoring case;
// the first association in declaration order wins. When a name matches nothing the
// name is returned as missing and includes is nil. No names yields (nil, "").
func ResolveIncludes(registry *model.Registry, resource *schema.ResourceSchema, names []string) (includes []ormquery.Include, missing string) {
	if len(names) == 0 {
		return nil, ""
	}

	includes = make([]ormquery.Include, 0, len(names))
	for _, name := range names {
		include, ok := resolveInclude(registry, resource, strings.ToLower(name))
		if !ok {
			return nil, name
		}
		includes = append(includes, include)
	}
	return includes, ""
}

func resolveInclude(registry *model.Registry, resource *schema.ResourceSchema, name string) (ormquery.Include, bool) {
	for _, rel := range resource.OrderedRelationships() {
		if strings.ToLower(rel.TargetTable) != name {
			continue
		}
		target, ok := registry.Get(rel.TargetResource)
		if !ok {
			return ormquery.Include{}, false
		}
		return ormquery.Include{Model: target.Schema(), As: rel.FieldName}, true
	}
	return ormquery.Include{}, false
}
