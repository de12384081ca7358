package schema

import (
	"fmt"
	"sort"

	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/opendd"
)

// BuildForRole builds the GraphQL schema one role is permitted to see from
// a resolved metadataresolve.Metadata document, per spec.md §4.2. It walks
// every model and command and emits output/filter/input types annotated so
// internal/queryir can reinterpret a selection set without re-resolving any
// name against md.
func BuildForRole(md *metadataresolve.Metadata, role string) (*Schema, error) {
	b := &roleBuilder{
		md:   md,
		role: metadataresolve.RoleName(role),
		s: &Schema{
			QueryType:    "Query",
			MutationType: "Mutation",
			Types:        map[string]*Type{},
			Directives:   map[string]*Directive{},
			Annotations:  Annotations{},
			Role:         role,
		},
	}
	b.s.Types[stringType.Name] = stringType
	b.s.Types[intType.Name] = intType
	b.s.Types[floatType.Name] = floatType
	b.s.Types[booleanType.Name] = booleanType
	b.s.Types[idType.Name] = idType
	b.s.Directives[includeDirective.Name] = includeDirective
	b.s.Directives[skipDirective.Name] = skipDirective
	b.s.Directives[KeyDirectiveDefinition.Name] = KeyDirectiveDefinition
	b.s.Directives[LinkDirectiveDefinition.Name] = LinkDirectiveDefinition
	b.s.Directives[ExternalDirectiveDefinition.Name] = ExternalDirectiveDefinition
	b.s.Directives[ShareableDirectiveDefinition.Name] = ShareableDirectiveDefinition

	queryType := &Type{Name: "Query", Kind: TypeKindObject}
	mutationType := &Type{Name: "Mutation", Kind: TypeKindObject}

	for _, name := range sortedObjectTypeNames(md) {
		b.buildObjectType(md.ObjectTypesWithRelationships[name])
	}
	for _, name := range sortedScalarTypeNames(md) {
		b.buildScalarType(md.ScalarTypes[name])
	}
	for _, name := range sortedBooleanExpressionNames(md) {
		b.buildFilterType(md.BooleanExpressionTypes[name])
	}
	for _, name := range sortedModelNames(md) {
		b.buildModelFields(md.ModelsWithPermissions[name], queryType)
	}
	for _, name := range sortedCommandNames(md) {
		b.buildCommandField(md.CommandsWithPermissions[name], queryType, mutationType)
	}

	b.addNodeField(queryType)
	b.addApolloFields(queryType)

	b.s.Types[queryType.Name] = queryType
	if len(mutationType.Fields) > 0 {
		b.s.Types[mutationType.Name] = mutationType
	} else {
		b.s.MutationType = ""
	}

	return b.s, nil
}

type roleBuilder struct {
	md   *metadataresolve.Metadata
	role metadataresolve.RoleName
	s    *Schema
}

func sortedObjectTypeNames(md *metadataresolve.Metadata) []metadataresolve.Qualified[metadataresolve.CustomTypeName] {
	names := make([]metadataresolve.Qualified[metadataresolve.CustomTypeName], 0, len(md.ObjectTypesWithRelationships))
	for n := range md.ObjectTypesWithRelationships {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Less(names[j]) })
	return names
}

func sortedScalarTypeNames(md *metadataresolve.Metadata) []metadataresolve.Qualified[metadataresolve.CustomTypeName] {
	names := make([]metadataresolve.Qualified[metadataresolve.CustomTypeName], 0, len(md.ScalarTypes))
	for n := range md.ScalarTypes {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Less(names[j]) })
	return names
}

func sortedBooleanExpressionNames(md *metadataresolve.Metadata) []metadataresolve.Qualified[opendd.BooleanExpressionTypeName] {
	names := make([]metadataresolve.Qualified[opendd.BooleanExpressionTypeName], 0, len(md.BooleanExpressionTypes))
	for n := range md.BooleanExpressionTypes {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Less(names[j]) })
	return names
}

func sortedModelNames(md *metadataresolve.Metadata) []metadataresolve.Qualified[metadataresolve.ModelName] {
	names := make([]metadataresolve.Qualified[metadataresolve.ModelName], 0, len(md.ModelsWithPermissions))
	for n := range md.ModelsWithPermissions {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Less(names[j]) })
	return names
}

func sortedCommandNames(md *metadataresolve.Metadata) []metadataresolve.Qualified[metadataresolve.CommandName] {
	names := make([]metadataresolve.Qualified[metadataresolve.CommandName], 0, len(md.CommandsWithPermissions))
	for n := range md.CommandsWithPermissions {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Less(names[j]) })
	return names
}

// graphqlTypeName falls back to the qualified name when the author didn't
// set an explicit graphql type name.
func graphqlTypeName(explicit string, q fmt.Stringer) string {
	if explicit != "" {
		return explicit
	}
	return q.String()
}

func (b *roleBuilder) buildObjectType(ot *metadataresolve.ObjectType) {
	perm := ot.Permissions[b.role]
	name := graphqlTypeName(ot.GraphQLTypeName, ot.Name)
	t := &Type{Name: name, Kind: TypeKindObject}

	for _, fname := range ot.FieldOrder {
		if perm != nil && len(perm.AllowedFields) > 0 {
			if _, allowed := perm.AllowedFields[fname]; !allowed {
				continue
			}
		}
		field := ot.Fields[fname]
		t.Fields = append(t.Fields, &Field{
			Name:        string(fname),
			Description: field.Description,
			Type:        b.typeRef(field.Type),
		})
	}

	for relName, rel := range ot.Relationships {
		if rel.Category != metadataresolve.Local && rel.Category != metadataresolve.RemoteForEach {
			continue
		}
		var fieldType *TypeRef
		if rel.Target.Model != nil {
			targetModel, ok := b.md.ModelsWithPermissions[*rel.Target.Model]
			if !ok {
				continue
			}
			targetObj := b.md.ObjectTypesWithRelationships[targetModel.DataType]
			targetTypeName := graphqlTypeName(targetObj.GraphQLTypeName, targetObj.Name)
			fieldType = NamedType(targetTypeName)
			if rel.ListType {
				fieldType = NonNullType(ListType(fieldType))
			}
		} else if rel.Target.Command != nil {
			targetCommand, ok := b.md.CommandsWithPermissions[*rel.Target.Command]
			if !ok {
				continue
			}
			fieldType = b.typeRef(targetCommand.OutputType)
		} else {
			continue
		}
		t.Fields = append(t.Fields, &Field{Name: string(relName), Type: fieldType, Async: true})
	}

	b.s.Annotations.Set(t.Name, "", &Annotation{TypeName: &TypeNameAnnotation{ObjectType: ot.Name.String()}})
	b.s.Types[t.Name] = t
}

func (b *roleBuilder) buildScalarType(st *metadataresolve.ScalarType) {
	name := graphqlTypeName(st.GraphQLTypeName, st.Name)
	if _, exists := b.s.Types[name]; exists {
		return
	}
	b.s.Types[name] = &Type{Name: name, Kind: TypeKindScalar}
}

func (b *roleBuilder) buildFilterType(be *metadataresolve.BooleanExpressionType) {
	if be.Object == nil {
		return
	}
	obj := be.Object
	name := graphqlTypeName(obj.GraphQLTypeName, obj.Name) + "BoolExp"
	t := &Type{Name: name, Kind: TypeKindInputObject}

	t.InputFields = append(t.InputFields,
		&InputValue{Name: obj.LogicalOperators.And, Type: ListType(NonNullType(NamedType(name)))},
		&InputValue{Name: obj.LogicalOperators.Or, Type: ListType(NonNullType(NamedType(name)))},
		&InputValue{Name: obj.LogicalOperators.Not, Type: NamedType(name)},
	)

	dataType, ok := b.md.ObjectTypesWithRelationships[obj.ObjectType]
	if !ok {
		b.s.Types[name] = t
		return
	}

	fieldNames := make([]metadataresolve.FieldName, 0, len(obj.ComparableFields))
	for f := range obj.ComparableFields {
		fieldNames = append(fieldNames, f)
	}
	sort.Slice(fieldNames, func(i, j int) bool { return fieldNames[i] < fieldNames[j] })

	for _, fname := range fieldNames {
		if _, ok := dataType.Fields[fname]; !ok {
			continue
		}
		scalarExpName := obj.ComparableFields[fname].String() + "BoolExp"
		t.InputFields = append(t.InputFields, &InputValue{Name: string(fname), Type: NamedType(scalarExpName)})
		b.s.Annotations.Set(name, string(fname), &Annotation{
			ModelFilterArgument: &ModelFilterArgumentAnnotation{
				BooleanExpressionType: obj.ComparableFields[fname].String(),
				Field:                 string(fname),
			},
		})
	}

	for relName, rel := range dataType.Relationships {
		if rel.Category != metadataresolve.Local {
			continue
		}
		var targetBEName string
		if rel.Target.Model != nil {
			if m, ok := b.md.ModelsWithPermissions[*rel.Target.Model]; ok && m.FilterExpression != nil {
				targetBEName = m.FilterExpression.String() + "BoolExp"
			}
		}
		if targetBEName == "" {
			continue
		}
		t.InputFields = append(t.InputFields, &InputValue{Name: string(relName), Type: NamedType(targetBEName)})
		b.s.Annotations.Set(name, string(relName), &Annotation{
			FilterRelationship: &FilterRelationshipAnnotation{Relationship: string(relName)},
		})
	}

	b.s.Types[name] = t
}

func (b *roleBuilder) buildModelFields(m *metadataresolve.Model, queryType *Type) {
	perm := m.Permissions[b.role]
	if perm == nil || perm.Select == nil {
		return
	}
	if m.GraphQL == nil {
		return
	}
	dataType, ok := b.md.ObjectTypesWithRelationships[m.DataType]
	if !ok {
		return
	}
	outputTypeName := graphqlTypeName(dataType.GraphQLTypeName, dataType.Name)

	for _, su := range m.GraphQL.SelectUniques {
		args := make([]*InputValue, 0, len(su.UniqueFields))
		for _, uf := range su.UniqueFields {
			field, ok := dataType.Fields[uf]
			if !ok {
				continue
			}
			args = append(args, &InputValue{Name: string(uf), Type: b.typeRef(field.Type)})
		}
		fieldName := su.QueryRootField
		queryType.Fields = append(queryType.Fields, &Field{
			Name:      fieldName,
			Type:      NamedType(outputTypeName),
			Arguments: args,
			Async:     true,
		})
		b.s.Annotations.Set(queryType.Name, fieldName, &Annotation{
			ModelSelectOne: &ModelSelectOneAnnotation{Model: m.Name.String(), UniqueFields: stringFields(su.UniqueFields)},
		})
	}

	if m.GraphQL.SelectMany != nil {
		fieldName := *m.GraphQL.SelectMany
		filterArgType := ""
		if m.FilterExpression != nil {
			filterArgType = m.FilterExpression.String() + "BoolExp"
		}
		args := []*InputValue{
			{Name: "limit", Type: NamedType("Int")},
			{Name: "offset", Type: NamedType("Int")},
		}
		if filterArgType != "" {
			args = append(args, &InputValue{Name: "where", Type: NamedType(filterArgType)})
		}
		queryType.Fields = append(queryType.Fields, &Field{
			Name:      fieldName,
			Type:      NonNullType(ListType(NonNullType(NamedType(outputTypeName)))),
			Arguments: args,
			Async:     true,
		})
		b.s.Annotations.Set(queryType.Name, fieldName, &Annotation{
			ModelSelectMany: &ModelSelectManyAnnotation{Model: m.Name.String()},
		})
	}
}

func (b *roleBuilder) buildCommandField(c *metadataresolve.Command, queryType, mutationType *Type) {
	perm := c.Permissions[b.role]
	if perm == nil || perm.Execute == nil {
		return
	}
	if c.GraphQL == nil {
		return
	}
	argNames := make([]metadataresolve.ArgumentName, 0, len(c.Arguments))
	for a := range c.Arguments {
		argNames = append(argNames, a)
	}
	sort.Slice(argNames, func(i, j int) bool { return argNames[i] < argNames[j] })

	args := make([]*InputValue, 0, len(argNames))
	for _, a := range argNames {
		if _, preset := perm.Execute.ArgumentPresets[a]; preset {
			continue
		}
		args = append(args, &InputValue{Name: string(a), Type: b.typeRef(c.Arguments[a].Type)})
	}

	field := &Field{
		Name:      c.GraphQL.RootFieldName,
		Type:      b.typeRef(c.OutputType),
		Arguments: args,
		Async:     true,
	}
	ann := &Annotation{Command: &CommandAnnotation{Command: c.Name.String()}}

	switch c.GraphQL.RootFieldKind {
	case opendd.CommandMutationField:
		mutationType.Fields = append(mutationType.Fields, field)
		b.s.Annotations.Set(mutationType.Name, field.Name, ann)
	default:
		queryType.Fields = append(queryType.Fields, field)
		b.s.Annotations.Set(queryType.Name, field.Name, ann)
	}
}

func (b *roleBuilder) addNodeField(queryType *Type) {
	queryType.Fields = append(queryType.Fields, &Field{
		Name:      "node",
		Type:      NamedType("Node"),
		Arguments: []*InputValue{{Name: "id", Type: NonNullType(NamedType("ID"))}},
		Async:     true,
	})
	b.s.Annotations.Set(queryType.Name, "node", &Annotation{Node: &NodeAnnotation{}})
	if _, exists := b.s.Types["Node"]; !exists {
		b.s.Types["Node"] = &Type{Name: "Node", Kind: TypeKindInterface,
			Fields: []*Field{{Name: "id", Type: NonNullType(NamedType("ID"))}}}
	}
}

func (b *roleBuilder) addApolloFields(queryType *Type) {
	if _, exists := b.s.Types["_Service"]; !exists {
		b.s.Types["_Service"] = &Type{Name: "_Service", Kind: TypeKindObject,
			Fields: []*Field{{Name: "sdl", Type: NamedType("String")}}}
	}
	queryType.Fields = append(queryType.Fields, &Field{Name: "_service", Type: NonNullType(NamedType("_Service"))})
	b.s.Annotations.Set(queryType.Name, "_service", &Annotation{ApolloService: &ApolloServiceAnnotation{}})

	hasEntities := false
	for _, ot := range b.md.ObjectTypesWithRelationships {
		if ot.Apollo != nil {
			hasEntities = true
			break
		}
	}
	if !hasEntities {
		return
	}
	if _, exists := b.s.Types["_Entity"]; !exists {
		b.s.Types["_Entity"] = &Type{Name: "_Entity", Kind: TypeKindUnion}
	}
	queryType.Fields = append(queryType.Fields, &Field{
		Name:      "_entities",
		Type:      NonNullType(ListType(NamedType("_Entity"))),
		Arguments: []*InputValue{{Name: "representations", Type: NonNullType(ListType(NonNullType(NamedType("_Any"))))}},
	})
	b.s.Annotations.Set(queryType.Name, "_entities", &Annotation{ApolloEntities: &ApolloEntitiesAnnotation{}})
	if _, exists := b.s.Types["_Any"]; !exists {
		b.s.Types["_Any"] = &Type{Name: "_Any", Kind: TypeKindScalar}
	}
}

// typeRef converts an opendd.TypeReference (shared by the metadataresolve
// alias of the same name) into the schema package's own TypeRef tree,
// resolving a named custom type to its graphql type name.
func (b *roleBuilder) typeRef(t *opendd.TypeReference) *TypeRef {
	if t == nil {
		return NamedType("String")
	}
	var inner *TypeRef
	if t.List != nil {
		inner = ListType(b.typeRef(t.List))
	} else if t.Named != nil {
		inner = NamedType(b.namedTypeName(*t.Named))
	} else {
		inner = NamedType("String")
	}
	if !t.Nullable {
		inner = NonNullType(inner)
	}
	return inner
}

func (b *roleBuilder) namedTypeName(n opendd.QualifiedTypeName) string {
	if n.Custom == nil {
		return string(n.Inbuilt)
	}
	if ot, ok := b.md.ObjectTypesWithRelationships[*n.Custom]; ok {
		return graphqlTypeName(ot.GraphQLTypeName, ot.Name)
	}
	if st, ok := b.md.ScalarTypes[*n.Custom]; ok {
		return graphqlTypeName(st.GraphQLTypeName, st.Name)
	}
	return n.Custom.String()
}

func stringFields(fs []metadataresolve.FieldName) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}
