package executor

import (
	"context"

	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/planner"
	"github.com/opendd/ddnengine/internal/schema"
)

// ServiceSDL builds the value Apollo's `_service { sdl }` root field
// returns for one role: the role's rendered schema with every
// Apollo-entity-enabled object type's `@key` directives applied, prefixed
// with the federation `@link` preamble (spec.md §4.5's "Apollo _service.sdl"
// paragraph). Callers resolve this once per (schema, role) pair — it does
// not depend on the request's operation — and pass it to Execute as
// serviceSDL.
func ServiceSDL(s *schema.Schema, md *metadataresolve.Metadata) string {
	entityTypes := map[string][][]string{}
	for qname := range md.ApolloFederationEntityEnabledTypes {
		ot, ok := md.ObjectTypesWithRelationships[qname]
		if !ok || ot.Apollo == nil {
			continue
		}
		typeName := ot.GraphQLTypeName
		if typeName == "" {
			typeName = ot.Name.String()
		}
		for _, key := range ot.Apollo.Keys {
			fields := make([]string, len(key.Fields))
			for i, f := range key.Fields {
				fields[i] = string(f)
			}
			entityTypes[typeName] = append(entityTypes[typeName], fields)
		}
	}
	return schema.FederationSDL(s, entityTypes)
}

// executeApolloEntities resolves the `_entities(representations: [_Any!]!)`
// root field: one result per representation, aligned by index. A
// representation the planner did not attach a resolution plan for (no
// ExecutionTree at that index) yields null rather than an error — Apollo's
// `[_Entity]!` return type allows individual null entities, and nothing in
// this deployment's metadata names which model/command a bare
// `{__typename, ...key fields}` representation should resolve against
// without a convention beyond what spec.md's ApolloEntitiesPlan captures.
func (e *executor) executeApolloEntities(ctx context.Context, plan *planner.ApolloEntitiesPlan) (any, error) {
	values := make([]any, len(plan.Representations))
	for i, tree := range plan.Entities {
		if tree == nil {
			values[i] = nil
			continue
		}
		v, err := e.executeTree(ctx, tree)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}
