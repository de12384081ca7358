package metadataresolve

import (
	"fmt"

	"github.com/opendd/ddnengine/internal/opendd"
)

// stageModelPermissions is stage 12 of spec.md §4.1: typechecks each
// role's select-permission filter predicate against the model's data type
// and its comparable boolean-expression fields, and validates argument
// presets against the model's declared arguments.
func (b *builder) stageModelPermissions() error {
	for _, raw := range b.raw.ModelPermissions {
		model, ok := b.md.ModelsWithPermissions[raw.Model]
		if !ok {
			b.fail(violation(ErrUnknownType, raw.Model.Subgraph, string(raw.Model.Name),
				"model permission references unknown model %s", raw.Model))
			continue
		}
		resolved := &ModelPermission{Role: raw.Role}
		if raw.Select != nil {
			resolved.Select = &ModelSelectPermission{
				ArgumentPresets:   raw.Select.ArgumentPresets,
				AllowSubscription: raw.Select.AllowSubscription,
			}
			for arg := range raw.Select.ArgumentPresets {
				if _, ok := model.Arguments[arg]; !ok {
					b.fail(violation(ErrUnknownField, raw.Model.Subgraph, string(raw.Model.Name),
						"role %q select permission on %s presets unknown argument %q", raw.Role, raw.Model, arg))
				}
			}
			if raw.Select.Filter != nil {
				dataType := b.md.ObjectTypesWithRelationships[model.DataType]
				pred, err := b.resolveModelPredicate(dataType, raw.Select.Filter)
				if err != nil {
					b.fail(violation(ErrUnsupportedFeature, raw.Model.Subgraph, string(raw.Model.Name),
						"role %q select permission filter on %s: %s", raw.Role, raw.Model, err))
				} else {
					resolved.Select.Filter = pred
				}
			}
		}
		model.Permissions[raw.Role] = resolved
		b.md.Roles[raw.Role] = struct{}{}
	}
	return nil
}

// resolveModelPredicate typechecks one node of a raw
// opendd.BooleanExpressionValue permission filter against dataType's fields,
// producing the resolved ModelPredicate internal/queryir later compiles
// into an NDC expression. Relationship-scoped predicates recurse into the
// relationship's target object type.
func (b *builder) resolveModelPredicate(dataType *ObjectType, raw *opendd.BooleanExpressionValue) (*ModelPredicate, error) {
	if raw == nil {
		return nil, nil
	}
	pred := &ModelPredicate{}
	switch {
	case len(raw.And) > 0:
		for i := range raw.And {
			child, err := b.resolveModelPredicate(dataType, &raw.And[i])
			if err != nil {
				return nil, err
			}
			pred.And = append(pred.And, child)
		}
	case len(raw.Or) > 0:
		for i := range raw.Or {
			child, err := b.resolveModelPredicate(dataType, &raw.Or[i])
			if err != nil {
				return nil, err
			}
			pred.Or = append(pred.Or, child)
		}
	case raw.Not != nil:
		child, err := b.resolveModelPredicate(dataType, raw.Not)
		if err != nil {
			return nil, err
		}
		pred.Not = child
	case raw.RelationshipField != nil:
		rel, ok := dataType.Relationships[raw.RelationshipField.Relationship]
		if !ok {
			return nil, fmt.Errorf("predicate references unknown relationship %q on %s", raw.RelationshipField.Relationship, dataType.Name)
		}
		var targetType *ObjectType
		if rel.Target.Model != nil {
			if m, ok := b.md.ModelsWithPermissions[*rel.Target.Model]; ok {
				targetType = b.md.ObjectTypesWithRelationships[m.DataType]
			}
		}
		if targetType == nil {
			return nil, fmt.Errorf("predicate relationship %q on %s has no queryable target model", raw.RelationshipField.Relationship, dataType.Name)
		}
		child, err := b.resolveModelPredicate(targetType, raw.RelationshipField.Predicate)
		if err != nil {
			return nil, err
		}
		pred.Relationship = &RelationshipPredicate{Name: raw.RelationshipField.Relationship, Predicate: child}
	default:
		field, ok := dataType.Fields[raw.Field]
		if !ok {
			return nil, fmt.Errorf("predicate references unknown field %q on %s", raw.Field, dataType.Name)
		}
		if err := typecheckValue(field.Type, raw.Value); err != nil {
			return nil, err
		}
		pred.Field = raw.Field
		pred.Op = raw.Op
		pred.Value = raw.Value
	}
	return pred, nil
}
