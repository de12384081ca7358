package planner

import (
	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/ndc"
	"github.com/opendd/ddnengine/internal/queryir"
)

// translatePredicate converts queryir's boolean-expression IR into an NDC
// Expression tree, resolving field names to connector columns as it goes.
// A nil Predicate translates to the zero Expression, which ndc.Query
// encodes as "predicate": {"type": ""}, since omitempty does not drop a
// struct value (the connector treats a type-less predicate as
// unconditionally true in every reference connector in the pack).
func (p *planContext) translatePredicate(dataType *metadataresolve.ObjectType, connector metadataresolve.Qualified[metadataresolve.DataConnectorName], pred *queryir.Predicate, path []string) (ndc.Expression, error) {
	if pred == nil {
		return ndc.Expression{}, nil
	}

	switch {
	case len(pred.And) > 0:
		exprs := make([]ndc.Expression, 0, len(pred.And))
		for _, child := range pred.And {
			e, err := p.translatePredicate(dataType, connector, child, path)
			if err != nil {
				return ndc.Expression{}, err
			}
			exprs = append(exprs, e)
		}
		return ndc.Expression{Type: "and", Expressions: exprs}, nil

	case len(pred.Or) > 0:
		exprs := make([]ndc.Expression, 0, len(pred.Or))
		for _, child := range pred.Or {
			e, err := p.translatePredicate(dataType, connector, child, path)
			if err != nil {
				return ndc.Expression{}, err
			}
			exprs = append(exprs, e)
		}
		return ndc.Expression{Type: "or", Expressions: exprs}, nil

	case pred.Not != nil:
		e, err := p.translatePredicate(dataType, connector, pred.Not, path)
		if err != nil {
			return ndc.Expression{}, err
		}
		return ndc.Expression{Type: "not", Expr: &e}, nil

	case pred.Relationship != nil:
		rel, ok := dataType.Relationships[pred.Relationship.Name]
		if !ok {
			return ndc.Expression{}, userError(path, "FieldNotFoundInService", "where clause references unknown relationship %q", pred.Relationship.Name)
		}
		if rel.Category != metadataresolve.Local {
			return ndc.Expression{}, userError(path, "RemoteRelationshipUnsupported", "where clause cannot filter through non-local relationship %q", pred.Relationship.Name)
		}
		targetModel, ok := p.targetModel(rel)
		if !ok {
			return ndc.Expression{}, internalError(path, "relationship %q has no queryable model target", pred.Relationship.Name)
		}
		targetType, ok := p.md.ObjectTypesWithRelationships[targetModel.DataType]
		if !ok {
			return ndc.Expression{}, internalError(path, "relationship %q targets unresolved type %s", pred.Relationship.Name, targetModel.DataType)
		}
		inner, err := p.translatePredicate(targetType, targetModel.Source.DataConnector, pred.Relationship.Predicate, path)
		if err != nil {
			return ndc.Expression{}, err
		}
		return ndc.Expression{
			Type:      "exists",
			InCollection: &ndc.ExistsInCollection{Type: "related", Relationship: string(pred.Relationship.Name)},
			Predicate: &inner,
		}, nil

	default:
		column, err := resolveColumn(dataType, connector, pred.Field, path)
		if err != nil {
			return ndc.Expression{}, err
		}
		return ndc.Expression{
			Type:     "binary_comparison_operator",
			Column:   &ndc.ComparisonTarget{Type: "column", Name: column},
			Operator: pred.Operator,
			Value:    &ndc.ComparisonValue{Type: "scalar", Value: pred.Value},
		}, nil
	}
}

func (p *planContext) targetModel(rel *metadataresolve.Relationship) (*metadataresolve.Model, bool) {
	if rel.Target.Model == nil {
		return nil, false
	}
	m, ok := p.md.ModelsWithPermissions[*rel.Target.Model]
	return m, ok
}
