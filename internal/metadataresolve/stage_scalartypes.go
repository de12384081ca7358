package metadataresolve

import (
	"sort"

	"github.com/opendd/ddnengine/internal/opendd"
)

// stageScalarTypes is stage 4 of spec.md §4.1: records graphql type names
// and enforces uniqueness across object/scalar graphql names.
func (b *builder) stageScalarTypes() error {
	seenGraphQLNames := map[string]Qualified[CustomTypeName]{}
	for name, obj := range b.md.ObjectTypesWithRelationships {
		if obj.GraphQLTypeName != "" {
			seenGraphQLNames[obj.GraphQLTypeName] = name
		}
	}

	names := make([]Qualified[CustomTypeName], 0, len(b.raw.ScalarTypes))
	for name := range b.raw.ScalarTypes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Less(names[j]) })

	for _, name := range names {
		raw := b.raw.ScalarTypes[name]
		if raw.GraphQLTypeName != "" {
			if owner, exists := seenGraphQLNames[raw.GraphQLTypeName]; exists && owner != name {
				b.fail(violation(ErrConflictingGraphQLTypeName, name.Subgraph, string(name.Name),
					"graphql type name %q is used by both %s and %s", raw.GraphQLTypeName, owner, name))
				continue
			}
			seenGraphQLNames[raw.GraphQLTypeName] = name
		}
		b.md.ScalarTypes[name] = &ScalarType{
			Name:            name,
			GraphQLTypeName: raw.GraphQLTypeName,
			Representations: map[Qualified[DataConnectorName]]opendd.DataConnectorScalarRepresentation{},
		}
	}
	return nil
}
