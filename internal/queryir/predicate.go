package queryir

import (
	"fmt"

	"github.com/opendd/ddnengine/internal/metadataresolve"
)

// buildPredicate interprets a `where` argument's coerced value against
// dataType, producing the same IR shape metadataresolve.ModelPredicate uses
// for permission filters (see stage_modelpermissions.go#resolveModelPredicate,
// which this mirrors) so the two can be ANDed together by andCombine.
func (c *buildContext) buildPredicate(dataType *metadataresolve.ObjectType, where map[string]any) (*Predicate, error) {
	if len(where) == 0 {
		return nil, nil
	}
	ops := c.md.GraphQLConfig.Operators

	var pred Predicate
	for key, val := range where {
		switch key {
		case ops.And:
			items, _ := asList(val)
			for _, item := range items {
				m, ok := asObject(item)
				if !ok {
					continue
				}
				child, err := c.buildPredicate(dataType, m)
				if err != nil {
					return nil, err
				}
				pred.And = append(pred.And, child)
			}
			continue
		case ops.Or:
			items, _ := asList(val)
			for _, item := range items {
				m, ok := asObject(item)
				if !ok {
					continue
				}
				child, err := c.buildPredicate(dataType, m)
				if err != nil {
					return nil, err
				}
				pred.Or = append(pred.Or, child)
			}
			continue
		case ops.Not:
			m, ok := asObject(val)
			if !ok {
				continue
			}
			child, err := c.buildPredicate(dataType, m)
			if err != nil {
				return nil, err
			}
			pred.Not = child
			continue
		}

		if rel, ok := dataType.Relationships[metadataresolve.RelationshipName(key)]; ok {
			if rel.Category != metadataresolve.Local {
				return nil, fmt.Errorf("where clause cannot filter through non-local relationship %q", key)
			}
			var targetType *metadataresolve.ObjectType
			if rel.Target.Model != nil {
				if m, ok := c.md.ModelsWithPermissions[*rel.Target.Model]; ok {
					targetType = c.md.ObjectTypesWithRelationships[m.DataType]
				}
			}
			if targetType == nil {
				return nil, fmt.Errorf("where clause relationship %q has no queryable target", key)
			}
			m, ok := asObject(val)
			if !ok {
				continue
			}
			child, err := c.buildPredicate(targetType, m)
			if err != nil {
				return nil, err
			}
			pred.And = append(pred.And, &Predicate{Relationship: &RelationshipPredicate{
				Name:      metadataresolve.RelationshipName(key),
				Predicate: child,
			}})
			continue
		}

		fname := metadataresolve.FieldName(key)
		if _, ok := dataType.Fields[fname]; !ok {
			return nil, fmt.Errorf("where clause references unknown field %q on %s", key, dataType.Name)
		}
		m, ok := asObject(val)
		if !ok {
			return nil, fmt.Errorf("where clause value for field %q must be a comparison object", key)
		}
		for op, opVal := range m {
			pred.And = append(pred.And, &Predicate{Field: fname, Operator: op, Value: opVal})
		}
	}

	if len(pred.And) == 1 && len(pred.Or) == 0 && pred.Not == nil && pred.Field == "" {
		return pred.And[0], nil
	}
	return &pred, nil
}

// convertModelPredicate lifts an already-resolved metadataresolve.ModelPredicate
// (from a role's select permission) into queryir's own Predicate shape.
func convertModelPredicate(p *metadataresolve.ModelPredicate) *Predicate {
	if p == nil {
		return nil
	}
	out := &Predicate{Field: p.Field, Operator: p.Op, Value: p.Value}
	for _, c := range p.And {
		out.And = append(out.And, convertModelPredicate(c))
	}
	for _, c := range p.Or {
		out.Or = append(out.Or, convertModelPredicate(c))
	}
	if p.Not != nil {
		out.Not = convertModelPredicate(p.Not)
	}
	if p.Relationship != nil {
		out.Relationship = &RelationshipPredicate{
			Name:      p.Relationship.Name,
			Predicate: convertModelPredicate(p.Relationship.Predicate),
		}
	}
	return out
}

// andCombine ANDs together a user-supplied filter and a role's permission
// filter; either may be nil. Both must hold for a row to be visible.
func andCombine(user, permission *Predicate) *Predicate {
	switch {
	case user == nil:
		return permission
	case permission == nil:
		return user
	default:
		return &Predicate{And: []*Predicate{user, permission}}
	}
}
