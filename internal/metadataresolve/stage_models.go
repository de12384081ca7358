package metadataresolve

import (
	"sort"

	"github.com/opendd/ddnengine/internal/opendd"
)

// stageModels is stage 8 of spec.md §4.1: resolves each Model's source
// (connector + collection, argument mappings, field type mapping), its
// GraphQL root-field configuration, and its aggregate expression, if any.
// Models whose data_type is unknown, or whose source names a collection or
// argument the connector does not have, are rejected.
func (b *builder) stageModels() error {
	for _, raw := range b.raw.Models {
		name := raw.Name
		dataType, ok := b.md.ObjectTypesWithRelationships[raw.DataType]
		if !ok {
			b.fail(violation(ErrUnknownType, name.Subgraph, string(name.Name),
				"model %s has unknown data type %s", name, raw.DataType))
			continue
		}

		resolved := &Model{
			Name:               name,
			DataType:           raw.DataType,
			GraphQL:            raw.GraphQL,
			GlobalIDSource:     raw.GlobalIDSource,
			ApolloEntitySource: raw.ApolloEntitySource,
			Arguments:          raw.Arguments,
			FilterExpression:   raw.FilterExpression,
			Permissions:        map[RoleName]*ModelPermission{},
		}

		// global_id_source / apollo_entity_source are cross-checked against
		// the object_types side tables by stageApollo, once every model is
		// resolved.

		if raw.FilterExpression != nil {
			be, ok := b.md.BooleanExpressionTypes[*raw.FilterExpression]
			if !ok {
				b.fail(violation(ErrUnknownType, name.Subgraph, string(name.Name),
					"model %s filter_expression references unknown boolean expression type %s", name, *raw.FilterExpression))
			} else if be.Object == nil || be.Object.ObjectType != raw.DataType {
				b.fail(violation(ErrUnsupportedFeature, name.Subgraph, string(name.Name),
					"model %s filter_expression %s must be an object boolean expression over %s", name, *raw.FilterExpression, raw.DataType))
			}
		}

		if raw.Source != nil {
			src, ok := b.resolveModelSource(name, dataType, raw.Source)
			if ok {
				resolved.Source = src
			}
		}

		if raw.AggregateExpr != nil {
			agg, ok := b.resolveAggregateExpression(name, dataType, resolved.Source, *raw.AggregateExpr)
			if ok {
				resolved.Aggregate = agg
			}
		}

		b.md.ModelsWithPermissions[name] = resolved
	}
	return nil
}

func (b *builder) resolveModelSource(name Qualified[ModelName], dataType *ObjectType, raw *opendd.ModelSource) (*ModelSource, bool) {
	dc, ok := b.lookupConnector(raw.DataConnector)
	if !ok {
		b.fail(violation(ErrUnknownDataConnector, name.Subgraph, string(name.Name),
			"model %s source references unknown data connector %s", name, raw.DataConnector))
		return nil, false
	}
	collection, ok := dc.Schema.Collections[raw.Collection]
	if !ok {
		b.fail(violation(ErrNoSuchCollection, name.Subgraph, string(name.Name),
			"model %s source references unknown collection %q on connector %s", name, raw.Collection, raw.DataConnector))
		return nil, false
	}
	for arg := range raw.ArgumentMappings {
		if _, ok := collection.Arguments[raw.ArgumentMappings[arg]]; !ok {
			b.fail(violation(ErrNoSuchArgument, name.Subgraph, string(name.Name),
				"model %s source maps argument %q to unknown connector argument %q", name, arg, raw.ArgumentMappings[arg]))
		}
	}

	ndcObjType, ok := dc.Schema.ObjectTypes[collection.ResultType]
	if !ok {
		b.fail(violation(ErrUnknownType, name.Subgraph, string(name.Name),
			"model %s source's collection %q has unknown result type %q on connector %s", name, raw.Collection, collection.ResultType, raw.DataConnector))
		return nil, false
	}
	mapping := b.collectTypeMapping(dataType, raw.DataConnector, collection.ResultType, ndcObjType)

	return &ModelSource{
		DataConnector:    raw.DataConnector,
		Collection:       raw.Collection,
		ArgumentMappings: raw.ArgumentMappings,
		TypeMappings:     map[Qualified[DataConnectorName]]*TypeMapping{raw.DataConnector: mapping},
	}, true
}

// resolveAggregateExpression resolves the supplemented aggregate-expression
// feature (SPEC_FULL.md §9) for a model with a source: for every mapped
// field of the model's data type whose custom scalar type has a
// representation on the source connector, the field's functions are that
// representation's comparison-operator names, sorted. Fields without a
// mapping, a custom scalar type, a representation, or any operator are
// left out; no field is validated or rejected here.
func (b *builder) resolveAggregateExpression(name Qualified[ModelName], dataType *ObjectType, source *ModelSource, aggName Qualified[string]) (*AggregateExpression, bool) {
	if source == nil {
		b.fail(violation(ErrUnsupportedFeature, name.Subgraph, string(name.Name),
			"model %s declares an aggregate expression but has no source", name))
		return nil, false
	}
	mapping := source.TypeMappings[source.DataConnector]
	agg := &AggregateExpression{
		Name:           string(aggName.Name),
		CountEnabled:   true,
		FieldFunctions: map[FieldName][]string{},
	}
	for fname := range dataType.Fields {
		if _, ok := mapping.FieldMappings[fname]; !ok {
			continue
		}
		scalarName := opendd.UnderlyingName(dataType.Fields[fname].Type)
		if scalarName.Custom == nil {
			continue
		}
		scalar, ok := b.md.ScalarTypes[*scalarName.Custom]
		if !ok {
			continue
		}
		rep, ok := scalar.Representations[source.DataConnector]
		if !ok {
			continue
		}
		functions := make([]string, 0, len(rep.ComparisonOperators))
		for op := range rep.ComparisonOperators {
			functions = append(functions, op)
		}
		sort.Strings(functions)
		if len(functions) > 0 {
			agg.FieldFunctions[fname] = functions
		}
	}
	return agg, true
}
