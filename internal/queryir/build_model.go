package queryir

import (
	"fmt"

	"github.com/opendd/ddnengine/internal/language"
	"github.com/opendd/ddnengine/internal/metadataresolve"
)

// buildModelSelection builds spec.md §3's ModelSelection for a select_one or
// select_many root/relationship field: it parses limit/offset/where/order_by,
// merges the role's permission filter and argument presets, bumps usages,
// and recurses into the selection set classifying each field as a column or
// a relationship.
func (c *buildContext) buildModelSelection(model *metadataresolve.Model, field *language.Field, isMany bool, uniqueFields []string) (*ModelSelection, error) {
	c.usages.bumpModel(model.Name)

	dataType, ok := c.lookupObjectType(model.DataType.String())
	if !ok {
		return nil, fmt.Errorf("model %s references unknown data type %s", model.Name, model.DataType)
	}

	args := argumentMap(field.Arguments, c.vars)

	var perm *metadataresolve.ModelSelectPermission
	if mp := model.Permissions[c.role]; mp != nil {
		perm = mp.Select
	}
	if perm == nil {
		return nil, fmt.Errorf("role %q has no select permission on model %s", c.role, model.Name)
	}

	sel := &ModelSelection{Model: model, IsMany: isMany, Arguments: map[metadataresolve.ArgumentName]any{}}

	if isMany {
		if limit, ok := asInt(args["limit"]); ok {
			sel.Limit = &limit
		}
		if offset, ok := asInt(args["offset"]); ok {
			sel.Offset = &offset
		}
		if orderBy, ok := asList(args["order_by"]); ok {
			for _, item := range orderBy {
				m, ok := asObject(item)
				if !ok {
					continue
				}
				for k, v := range m {
					dir, _ := v.(string)
					sel.OrderBy = append(sel.OrderBy, OrderByElement{
						Field:     metadataresolve.FieldName(k),
						Ascending: dir != "Desc" && dir != "DESC",
					})
				}
			}
		}
		var userFilter *Predicate
		if whereMap, ok := asObject(args["where"]); ok {
			p, err := c.buildPredicate(dataType, whereMap)
			if err != nil {
				return nil, fmt.Errorf("model %s: %w", model.Name, err)
			}
			userFilter = p
		}
		sel.Filter = andCombine(userFilter, convertModelPredicate(perm.Filter))
	} else {
		sel.Filter = convertModelPredicate(perm.Filter)
	}

	// A select_one root field identifies its row by equality on its
	// declared unique fields rather than by a model source argument, so
	// those keys are pulled out of args into a predicate instead of
	// sel.Arguments.
	uniqueSet := make(map[string]bool, len(uniqueFields))
	var uniquePred *Predicate
	for _, uf := range uniqueFields {
		uniqueSet[uf] = true
		v, ok := args[uf]
		if !ok {
			continue
		}
		eq := &Predicate{Field: metadataresolve.FieldName(uf), Operator: "_eq", Value: v}
		if uniquePred == nil {
			uniquePred = eq
		} else {
			uniquePred = &Predicate{And: []*Predicate{uniquePred, eq}}
		}
	}
	if uniquePred != nil {
		sel.Filter = andCombine(uniquePred, sel.Filter)
	}

	for k, v := range args {
		if k == "limit" || k == "offset" || k == "where" || k == "order_by" || uniqueSet[k] {
			continue
		}
		sel.Arguments[metadataresolve.ArgumentName(k)] = v
	}
	// Presets are applied after user-supplied arguments so a role's preset
	// always wins over a client-supplied value of the same name.
	for name, presetVal := range perm.ArgumentPresets {
		sel.Arguments[name] = resolveArgumentPreset(presetVal, c.sessionVars)
	}

	fields := flattenSelectionSet(c.doc, field.SelectionSet)
	selection, aggregate, err := c.buildSelectionFields(dataType, model.Aggregate, fields)
	if err != nil {
		return nil, err
	}
	sel.Selection = selection
	sel.Aggregate = aggregate

	return sel, nil
}

// buildSelectionFields walks a flattened selection set against dataType,
// splitting "aggregate"-annotated fields into the AggregateSelection and
// classifying every other field as a column or a relationship crossing,
// per the target relationship's resolved ExecutionCategory.
func (c *buildContext) buildSelectionFields(dataType *metadataresolve.ObjectType, aggExpr *metadataresolve.AggregateExpression, fields []*language.Field) ([]SelectionField, *AggregateSelection, error) {
	var out []SelectionField
	var agg *AggregateSelection

	for _, f := range fields {
		alias := fieldAlias(f)

		if f.Name == "__typename" {
			out = append(out, SelectionField{Alias: alias, Column: &ColumnSelection{Field: "__typename"}})
			continue
		}

		if f.Name == "aggregate" && aggExpr != nil {
			a, err := c.buildAggregateSelection(aggExpr, flattenSelectionSet(c.doc, f.SelectionSet))
			if err != nil {
				return nil, nil, err
			}
			agg = a
			continue
		}

		if rel, ok := dataType.Relationships[metadataresolve.RelationshipName(f.Name)]; ok {
			sf, err := c.buildRelationshipField(rel, alias, f)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, sf)
			continue
		}

		fname := metadataresolve.FieldName(f.Name)
		if _, ok := dataType.Fields[fname]; !ok {
			return nil, nil, fmt.Errorf("field %q not found on type %s", f.Name, dataType.Name)
		}
		col := &ColumnSelection{Field: fname}
		if nested := flattenSelectionSet(c.doc, f.SelectionSet); len(nested) > 0 {
			if nestedType, ok := c.nestedObjectType(dataType, fname); ok {
				nestedSel, _, err := c.buildSelectionFields(nestedType, nil, nested)
				if err != nil {
					return nil, nil, err
				}
				col.Nested = nestedSel
			}
		}
		out = append(out, SelectionField{Alias: alias, Column: col})
	}

	return out, agg, nil
}

// nestedObjectType resolves a scalar/object field's named type back to an
// ObjectType, for fields whose value is itself an object (NDC nested_fields).
func (c *buildContext) nestedObjectType(dataType *metadataresolve.ObjectType, field metadataresolve.FieldName) (*metadataresolve.ObjectType, bool) {
	fd, ok := dataType.Fields[field]
	if !ok {
		return nil, false
	}
	t := fd.Type
	for t != nil && t.List != nil {
		t = t.List
	}
	if t == nil || t.Named == nil || t.Named.Custom == nil {
		return nil, false
	}
	ot, ok := c.md.ObjectTypesWithRelationships[*t.Named.Custom]
	return ot, ok
}

func (c *buildContext) buildRelationshipField(rel *metadataresolve.Relationship, alias string, f *language.Field) (SelectionField, error) {
	switch {
	case rel.Target.Model != nil:
		model, ok := c.md.ModelsWithPermissions[*rel.Target.Model]
		if !ok {
			return SelectionField{}, fmt.Errorf("relationship %q targets unknown model %s", rel.Name, *rel.Target.Model)
		}
		sel, err := c.buildModelSelection(model, f, rel.ListType, nil)
		if err != nil {
			return SelectionField{}, err
		}
		if rel.Category == metadataresolve.Local {
			return SelectionField{Alias: alias, ModelRelationshipLocal: &ModelRelationshipLocal{Relationship: rel, Query: sel}}, nil
		}
		return SelectionField{Alias: alias, ModelRelationshipRemote: &ModelRelationshipRemote{Relationship: rel, Query: sel}}, nil

	case rel.Target.Command != nil:
		cmd, ok := c.md.CommandsWithPermissions[*rel.Target.Command]
		if !ok {
			return SelectionField{}, fmt.Errorf("relationship %q targets unknown command %s", rel.Name, *rel.Target.Command)
		}
		sel, err := c.buildCommandSelection(cmd, f)
		if err != nil {
			return SelectionField{}, err
		}
		if rel.Category == metadataresolve.Local {
			return SelectionField{Alias: alias, CommandRelationshipLocal: &CommandRelationshipLocal{Relationship: rel, Command: sel}}, nil
		}
		return SelectionField{Alias: alias, CommandRelationshipRemote: &CommandRelationshipRemote{Relationship: rel, Command: sel}}, nil

	default:
		return SelectionField{}, fmt.Errorf("relationship %q has neither a model nor a command target", rel.Name)
	}
}

func (c *buildContext) buildAggregateSelection(expr *metadataresolve.AggregateExpression, fields []*language.Field) (*AggregateSelection, error) {
	agg := &AggregateSelection{}
	for _, f := range fields {
		alias := fieldAlias(f)
		if f.Name == "_count" {
			agg.Count = append(agg.Count, AggregateCountField{Alias: alias})
			continue
		}
		args := argumentMap(f.Arguments, c.vars)
		fieldName, _ := args["field"].(string)
		if fieldName == "" {
			agg.Count = append(agg.Count, AggregateCountField{Alias: alias, Field: metadataresolve.FieldName(f.Name)})
			continue
		}
		if _, ok := expr.FieldFunctions[metadataresolve.FieldName(fieldName)]; !ok {
			return nil, fmt.Errorf("aggregate field %q is not aggregatable", fieldName)
		}
		agg.Functions = append(agg.Functions, AggregateFunctionField{
			Alias:    alias,
			Field:    metadataresolve.FieldName(fieldName),
			Function: f.Name,
		})
	}
	return agg, nil
}
