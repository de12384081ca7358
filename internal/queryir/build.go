package queryir

import (
	"fmt"
	"strings"

	"github.com/opendd/ddnengine/internal/language"
	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/schema"
)

// buildContext threads the request-scoped inputs every build_*.go helper
// needs: the resolved metadata, the document (for fragment expansion), the
// coerced variable values, and the UsagesCounts side-channel every
// model/command reference bumps.
type buildContext struct {
	doc         *language.QueryDocument
	schema      *schema.Schema
	md          *metadataresolve.Metadata
	role        metadataresolve.RoleName
	vars        map[string]any
	sessionVars map[string]any
	usages      *UsagesCounts
}

// BuildRequest is spec.md §4.3's IR.Builder entry point: given a normalized
// operation and a role-scoped schema, it dispatches each root field on its
// Annotation and returns either query root fields or mutation root fields
// (never both populated from one well-formed GraphQL operation, though the
// planner still defends against a caller handing it both).
func BuildRequest(
	doc *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	sessionVariables map[string]any,
	s *schema.Schema,
	md *metadataresolve.Metadata,
	role string,
) ([]QueryRootField, []MutationRootField, *UsagesCounts, error) {
	op, err := selectOperation(doc, operationName)
	if err != nil {
		return nil, nil, nil, err
	}

	vars := CoerceVariables(op, variableValues)

	ctx := &buildContext{
		doc:         doc,
		schema:      s,
		md:          md,
		role:        metadataresolve.RoleName(role),
		vars:        vars,
		sessionVars: sessionVariables,
		usages:      newUsagesCounts(),
	}

	fields := flattenSelectionSet(doc, op.SelectionSet)

	switch op.Operation {
	case language.Mutation:
		rootName := s.MutationType
		if rootName == "" {
			return nil, nil, nil, fmt.Errorf("operation is a mutation but the role %q has no mutation root field", role)
		}
		out := make([]MutationRootField, 0, len(fields))
		for _, f := range fields {
			mrf, err := ctx.buildMutationRootField(rootName, f)
			if err != nil {
				return nil, nil, nil, err
			}
			out = append(out, mrf)
		}
		return nil, out, ctx.usages, nil
	default:
		rootName := s.QueryType
		out := make([]QueryRootField, 0, len(fields))
		for _, f := range fields {
			qrf, err := ctx.buildQueryRootField(rootName, f)
			if err != nil {
				return nil, nil, nil, err
			}
			out = append(out, qrf)
		}
		return out, nil, ctx.usages, nil
	}
}

// RootFields selects the named operation and flattens its top-level
// selection set, the same way BuildRequest does internally. Exported so
// callers can inspect root field names (e.g. internal/server's
// "__schema"/"__type" interception) before committing to the full IR/plan
// pipeline.
func RootFields(doc *language.QueryDocument, operationName string) (*language.OperationDefinition, []*language.Field, error) {
	op, err := selectOperation(doc, operationName)
	if err != nil {
		return nil, nil, err
	}
	return op, flattenSelectionSet(doc, op.SelectionSet), nil
}

// CoerceVariables merges an operation's variable definitions' default values
// with the request's supplied variableValues, producing the map every
// astValueToGo lookup of a "$var" reference resolves against. Exported so
// internal/introspection's meta-field short-circuit can apply the same
// default-filling behavior BuildRequest does for the normal pipeline.
func CoerceVariables(op *language.OperationDefinition, variableValues map[string]any) map[string]any {
	vars := map[string]any{}
	for _, vd := range op.VariableDefinitions {
		if v, ok := variableValues[vd.Variable]; ok {
			vars[vd.Variable] = v
		} else if vd.DefaultValue != nil {
			vars[vd.Variable] = astValueToGo(vd.DefaultValue, variableValues)
		}
	}
	return vars
}

func selectOperation(doc *language.QueryDocument, operationName string) (*language.OperationDefinition, error) {
	if len(doc.Operations) == 0 {
		return nil, fmt.Errorf("document has no operations")
	}
	if operationName == "" {
		if len(doc.Operations) > 1 {
			return nil, fmt.Errorf("must provide operation name if document contains multiple operations")
		}
		return doc.Operations[0], nil
	}
	for _, op := range doc.Operations {
		if op.Name == operationName {
			return op, nil
		}
	}
	return nil, fmt.Errorf("unknown operation %q", operationName)
}

// flattenSelectionSet expands fragment spreads and inline fragments into a
// flat list of concrete fields. This engine's schema has no interfaces or
// unions beyond the fixed Apollo `_Entity`/Node types, so a type condition
// never changes which fields are legal to select.
func flattenSelectionSet(doc *language.QueryDocument, set language.SelectionSet) []*language.Field {
	var out []*language.Field
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			out = append(out, s)
		case *language.InlineFragment:
			out = append(out, flattenSelectionSet(doc, s.SelectionSet)...)
		case *language.FragmentSpread:
			def := doc.Fragments.ForName(s.Name)
			if def == nil {
				continue
			}
			out = append(out, flattenSelectionSet(doc, def.SelectionSet)...)
		}
	}
	return out
}

func (c *buildContext) buildQueryRootField(rootTypeName string, f *language.Field) (QueryRootField, error) {
	alias := fieldAlias(f)
	nullable := c.fieldIsNullable(rootTypeName, f.Name)

	if f.Name == "__typename" {
		name := rootTypeName
		return QueryRootField{Alias: alias, IsNullable: false, TypeName: &name}, nil
	}

	ann := c.schema.Annotations.Get(rootTypeName, f.Name)
	if ann == nil {
		return QueryRootField{}, fmt.Errorf("field %q not found on %s", f.Name, rootTypeName)
	}

	switch {
	case ann.ModelSelectOne != nil:
		model, ok := c.lookupModel(ann.ModelSelectOne.Model)
		if !ok {
			return QueryRootField{}, fmt.Errorf("select_one field %q references unknown model %s", f.Name, ann.ModelSelectOne.Model)
		}
		sel, err := c.buildModelSelection(model, f, false, ann.ModelSelectOne.UniqueFields)
		if err != nil {
			return QueryRootField{}, err
		}
		return QueryRootField{Alias: alias, IsNullable: nullable, ModelSelectOne: sel}, nil

	case ann.ModelSelectMany != nil:
		model, ok := c.lookupModel(ann.ModelSelectMany.Model)
		if !ok {
			return QueryRootField{}, fmt.Errorf("select_many field %q references unknown model %s", f.Name, ann.ModelSelectMany.Model)
		}
		sel, err := c.buildModelSelection(model, f, true, nil)
		if err != nil {
			return QueryRootField{}, err
		}
		return QueryRootField{Alias: alias, IsNullable: nullable, ModelSelectMany: sel}, nil

	case ann.Command != nil:
		cmd, ok := c.lookupCommand(ann.Command.Command)
		if !ok {
			return QueryRootField{}, fmt.Errorf("command field %q references unknown command %s", f.Name, ann.Command.Command)
		}
		sel, err := c.buildCommandSelection(cmd, f)
		if err != nil {
			return QueryRootField{}, err
		}
		return QueryRootField{Alias: alias, IsNullable: nullable, Command: sel}, nil

	case ann.Node != nil:
		args := argumentMap(f.Arguments, c.vars)
		id, _ := args["id"].(string)
		return QueryRootField{Alias: alias, IsNullable: nullable, Node: &NodeSelection{ID: id}}, nil

	case ann.ApolloService != nil:
		return QueryRootField{Alias: alias, IsNullable: nullable, ApolloService: true}, nil

	case ann.ApolloEntities != nil:
		args := argumentMap(f.Arguments, c.vars)
		reps, _ := asList(args["representations"])
		out := make([]map[string]any, 0, len(reps))
		for _, r := range reps {
			if m, ok := asObject(r); ok {
				out = append(out, m)
			}
		}
		return QueryRootField{Alias: alias, IsNullable: nullable, ApolloEntities: &ApolloEntitiesSelection{Representations: out}}, nil

	default:
		return QueryRootField{}, fmt.Errorf("field %q has no recognized annotation", f.Name)
	}
}

// fieldIsNullable looks up a root field's declared return type on the
// role-scoped schema. A field absent from the schema (shouldn't happen for
// anything that reached this point) is treated as nullable, the safer
// default for error containment.
func (c *buildContext) fieldIsNullable(typeName, fieldName string) bool {
	t := c.schema.Types[typeName]
	if t == nil {
		return true
	}
	for _, f := range t.Fields {
		if f.Name == fieldName {
			return !schema.IsNonNull(f.Type)
		}
	}
	return true
}

func (c *buildContext) buildMutationRootField(rootTypeName string, f *language.Field) (MutationRootField, error) {
	alias := fieldAlias(f)
	ann := c.schema.Annotations.Get(rootTypeName, f.Name)
	if ann == nil || ann.Command == nil {
		return MutationRootField{}, fmt.Errorf("mutation field %q has no command annotation", f.Name)
	}
	cmd, ok := c.lookupCommand(ann.Command.Command)
	if !ok {
		return MutationRootField{}, fmt.Errorf("mutation field %q references unknown command %s", f.Name, ann.Command.Command)
	}
	sel, err := c.buildCommandSelection(cmd, f)
	if err != nil {
		return MutationRootField{}, err
	}
	return MutationRootField{Alias: alias, IsNullable: c.fieldIsNullable(rootTypeName, f.Name), Command: sel}, nil
}

func fieldAlias(f *language.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func (c *buildContext) lookupModel(qualifiedName string) (*metadataresolve.Model, bool) {
	q, ok := parseQualifiedString[metadataresolve.ModelName](qualifiedName)
	if !ok {
		return nil, false
	}
	m, ok := c.md.ModelsWithPermissions[q]
	return m, ok
}

func (c *buildContext) lookupCommand(qualifiedName string) (*metadataresolve.Command, bool) {
	q, ok := parseQualifiedString[metadataresolve.CommandName](qualifiedName)
	if !ok {
		return nil, false
	}
	cmd, ok := c.md.CommandsWithPermissions[q]
	return cmd, ok
}

func (c *buildContext) lookupObjectType(qualifiedName string) (*metadataresolve.ObjectType, bool) {
	q, ok := parseQualifiedString[metadataresolve.CustomTypeName](qualifiedName)
	if !ok {
		return nil, false
	}
	ot, ok := c.md.ObjectTypesWithRelationships[q]
	return ot, ok
}

// parseQualifiedString parses the "subgraph/name" form produced by
// opendd.Qualified[T].String(), the only representation an Annotation can
// carry since it is a plain string field.
func parseQualifiedString[T ~string](s string) (metadataresolve.Qualified[T], bool) {
	i := strings.IndexByte(s, '/')
	if i < 0 {
		return metadataresolve.Qualified[T]{}, false
	}
	return metadataresolve.Qualified[T]{Subgraph: s[:i], Name: T(s[i+1:])}, true
}
