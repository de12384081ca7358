package metadataresolve

import "github.com/opendd/ddnengine/internal/opendd"

// stageBooleanExpressions is stage 7 of spec.md §4.1: validates that every
// comparable field exists in both OpenDD and NDC, that the connector's
// mapping exists, and — for the legacy Object shape — that ALL fields are
// comparable (partial-field comparison is rejected with UnsupportedFeature,
// per spec.md §9's resolved Open Question distinguishing the two shapes).
func (b *builder) stageBooleanExpressions() error {
	for _, raw := range b.raw.BooleanExpressionTypes {
		switch {
		case raw.Object != nil:
			b.resolveObjectBooleanExpression(raw.Object)
		case raw.Scalar != nil:
			b.md.BooleanExpressionTypes[raw.Scalar.Name] = &BooleanExpressionType{Scalar: raw.Scalar}
		}
	}
	return nil
}

func (b *builder) resolveObjectBooleanExpression(raw *opendd.ObjectBooleanExpressionType) {
	name := raw.Name
	obj, ok := b.md.ObjectTypesWithRelationships[raw.ObjectType]
	if !ok {
		b.fail(violation(ErrUnknownType, name.Subgraph, string(name.Name),
			"boolean expression %s references unknown object type %s", name, raw.ObjectType))
		return
	}
	dc, ok := b.lookupConnector(raw.DataConnectorName)
	if !ok {
		b.fail(violation(ErrUnknownDataConnector, name.Subgraph, string(name.Name),
			"boolean expression %s references unknown data connector %s", name, raw.DataConnectorName))
		return
	}
	ndcObjType, ok := dc.Schema.ObjectTypes[raw.DataConnectorObjectType]
	if !ok {
		b.fail(violation(ErrUnknownType, name.Subgraph, string(name.Name),
			"boolean expression %s references unknown connector object type %q", name, raw.DataConnectorObjectType))
		return
	}

	mapping := b.collectTypeMapping(obj, raw.DataConnectorName, raw.DataConnectorObjectType, ndcObjType)

	comparable := map[FieldName]Qualified[opendd.BooleanExpressionTypeName]{}
	for _, cf := range raw.ComparableFields {
		if _, exists := obj.Fields[cf.FieldName]; !exists {
			b.fail(violation(ErrUnknownField, name.Subgraph, string(name.Name),
				"boolean expression %s: comparable field %q does not exist on %s", name, cf.FieldName, raw.ObjectType))
			continue
		}
		if _, exists := mapping.FieldMappings[cf.FieldName]; !exists {
			b.fail(violation(ErrMappingMissing, name.Subgraph, string(name.Name),
				"boolean expression %s: field %q has no mapping on connector %s object type %q", name, cf.FieldName, raw.DataConnectorName, raw.DataConnectorObjectType))
			continue
		}
		comparable[cf.FieldName] = cf.BooleanExpressionType
	}

	if raw.IsLegacy && len(comparable) != len(obj.Fields) {
		b.fail(violation(ErrUnsupportedFeature, name.Subgraph, string(name.Name),
			"legacy boolean expression %s must make every field of %s comparable (partial-field comparison is unsupported in the legacy shape); got %d of %d",
			name, raw.ObjectType, len(comparable), len(obj.Fields)))
		return
	}

	b.md.BooleanExpressionTypes[name] = &BooleanExpressionType{
		Object: &ObjectBooleanExpressionType{
			Name:                    name,
			ObjectType:              raw.ObjectType,
			DataConnectorName:       raw.DataConnectorName,
			DataConnectorObjectType: raw.DataConnectorObjectType,
			ComparableFields:        comparable,
			IsLegacy:                raw.IsLegacy,
			GraphQLTypeName:         raw.GraphQLTypeName,
			LogicalOperators:        b.md.GraphQLConfig.Operators,
		},
	}
}
