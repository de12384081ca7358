package metadataresolve

import (
	"sort"
)

// stageObjectTypes is stage 3 of spec.md §4.1: resolves fields, global-id
// fields, Apollo keys, and records the global_id_enabled_types and
// apollo_federation_entity_enabled_types side-tables the apollo stage
// (stage 10) later validates. Fails on duplicate field, unknown field
// referenced in global-id/key, `id` field collision with global-id, or an
// empty key list.
func (b *builder) stageObjectTypes() error {
	names := make([]Qualified[CustomTypeName], 0, len(b.raw.ObjectTypes))
	for name := range b.raw.ObjectTypes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Less(names[j]) })

	for _, name := range names {
		raw := b.raw.ObjectTypes[name]
		resolved := &ObjectType{
			Name:            name,
			Fields:          map[FieldName]FieldDefinition{},
			GraphQLTypeName: raw.GraphQLTypeName,
			GraphQLInput:    raw.GraphQLInput,
			Apollo:          raw.Apollo,
			Relationships:   map[RelationshipName]*Relationship{},
			TypeMappings:    map[Qualified[DataConnectorName]]*TypeMapping{},
		}

		seen := map[FieldName]struct{}{}
		for _, fname := range raw.FieldOrder {
			if _, dup := seen[fname]; dup {
				b.fail(violation(ErrDuplicateDefinition, name.Subgraph, string(name.Name),
					"duplicate field %q", fname))
				continue
			}
			seen[fname] = struct{}{}
			resolved.Fields[fname] = FieldDefinition{FieldDefinition: raw.Fields[fname]}
			resolved.FieldOrder = append(resolved.FieldOrder, fname)
		}

		if len(raw.GlobalIDFields) > 0 {
			for _, f := range raw.GlobalIDFields {
				if _, ok := resolved.Fields[f]; !ok {
					b.fail(violation(ErrUnknownField, name.Subgraph, string(name.Name),
						"global_id field %q is not a field of %s", f, name))
				}
				if f == "id" {
					b.fail(violation(ErrInvalidGlobalID, name.Subgraph, string(name.Name),
						"global_id field list cannot include a field literally named \"id\": it collides with the generated global id field"))
				}
			}
			resolved.GlobalIDFields = raw.GlobalIDFields
			b.md.GlobalIDEnabledTypes[name] = struct{}{}
		}

		if raw.Apollo != nil {
			if len(raw.Apollo.Keys) == 0 {
				b.fail(violation(ErrInvalidApolloFederation, name.Subgraph, string(name.Name),
					"apollo federation config for %s must declare at least one @key", name))
			}
			for _, key := range raw.Apollo.Keys {
				if len(key.Fields) == 0 {
					b.fail(violation(ErrInvalidApolloFederation, name.Subgraph, string(name.Name),
						"apollo federation @key on %s cannot have an empty field list", name))
					continue
				}
				for _, f := range key.Fields {
					if _, ok := resolved.Fields[f]; !ok {
						b.fail(violation(ErrUnknownField, name.Subgraph, string(name.Name),
							"apollo federation @key field %q is not a field of %s", f, name))
					}
				}
			}
			b.md.ApolloFederationEntityEnabledTypes[name] = struct{}{}
		}

		b.md.ObjectTypesWithRelationships[name] = resolved
	}
	return nil
}
