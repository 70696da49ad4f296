package schema

import (
	"fmt"
	"strings"
)

// tableOrder sorts resources so that every belongs_to target precedes the
// resources pointing at it. Ties are broken by depth, then by name.
func tableOrder(schemas map[string]*ResourceSchema) ([]string, error) {
	parents := make(map[string][]string, len(schemas))
	for name, s := range schemas {
		for _, rel := range s.OrderedRelationships() {
			if rel.Type != RelationshipBelongsTo || rel.TargetResource == name {
				continue
			}
			if _, ok := schemas[rel.TargetResource]; ok {
				parents[name] = append(parents[name], rel.TargetResource)
			}
		}
	}

	depth := make(map[string]int, len(schemas))
	const visiting = -1

	var walk func(name string, trail []string) (int, error)
	walk = func(name string, trail []string) (int, error) {
		switch d, seen := depth[name]; {
		case seen && d == visiting:
			start := 0
			for i, n := range trail {
				if n == name {
					start = i
				}
			}
			loop := append(append([]string{}, trail[start:]...), name)
			return 0, fmt.Errorf("circular belongs_to chain: %s", strings.Join(loop, " -> "))
		case seen:
			return d, nil
		}

		depth[name] = visiting
		level := 0
		for _, parent := range parents[name] {
			d, err := walk(parent, append(trail, name))
			if err != nil {
				return 0, err
			}
			if d+1 > level {
				level = d + 1
			}
		}
		depth[name] = level
		return level, nil
	}

	names := sortedKeys(schemas)
	for _, name := range names {
		if _, err := walk(name, nil); err != nil {
			return nil, err
		}
	}

	// names is already sorted, so a stable pass by depth keeps name order within a level
	ordered := make([]string, 0, len(names))
	for level := 0; len(ordered) < len(names); level++ {
		for _, name := range names {
			if depth[name] == level {
				ordered = append(ordered, name)
			}
		}
	}
	return ordered, nil
}
