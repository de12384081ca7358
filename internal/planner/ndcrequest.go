package planner

import (
	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/ndc"
	"github.com/opendd/ddnengine/internal/queryir"
)

// planModelSelection builds the local NDC query request for one
// ModelSelection subtree, recording any remote relationships it finds as
// RemoteJoin nodes in the returned JoinLocations instead of NDC fields.
func (p *planContext) planModelSelection(sel *queryir.ModelSelection, path []string) (*ExecutionTree, error) {
	model := sel.Model
	if model.Source == nil {
		return nil, userError(path, "NoDataConnectorSource", "model %s has no data connector source", model.Name)
	}
	dataType, ok := p.md.ObjectTypesWithRelationships[model.DataType]
	if !ok {
		return nil, internalError(path, "model %s references unresolved data type %s", model.Name, model.DataType)
	}
	connector := model.Source.DataConnector

	arguments, err := buildArguments(sel.Arguments, model.Source.ArgumentMappings, path)
	if err != nil {
		return nil, err
	}

	fields, relationships, joins, err := p.planSelectionFields(dataType, connector, sel.Selection, path)
	if err != nil {
		return nil, err
	}

	var aggregates map[string]ndc.Aggregate
	if sel.Aggregate != nil {
		aggregates = buildAggregates(sel.Aggregate)
	}

	predicate, err := p.translatePredicate(dataType, connector, sel.Filter, path)
	if err != nil {
		return nil, err
	}

	var orderBy *ndc.OrderBy
	if len(sel.OrderBy) > 0 {
		orderBy = &ndc.OrderBy{}
		for _, o := range sel.OrderBy {
			column, err := resolveColumn(dataType, connector, o.Field, path)
			if err != nil {
				return nil, err
			}
			dir := "asc"
			if !o.Ascending {
				dir = "desc"
			}
			orderBy.Elements = append(orderBy.Elements, ndc.OrderByElement{
				OrderDirection: dir,
				Target:         ndc.OrderByTarget{Type: "column", Name: column},
			})
		}
	}

	req := &ndc.QueryRequest{
		Collection: string(model.Source.Collection),
		Query: ndc.Query{
			Fields:     fields,
			Aggregates: aggregates,
			Limit:      sel.Limit,
			Offset:     sel.Offset,
			OrderBy:    orderBy,
			Predicate:  predicate,
		},
		Arguments:               arguments,
		CollectionRelationships: relationships,
	}

	shape := ProcessAsObject
	if sel.IsMany {
		shape = ProcessAsArray
	}
	return &ExecutionTree{DataConnector: connector, Query: req, RemoteJoins: joins, ResultShape: shape}, nil
}

// planSelectionFields walks a SelectionSet against dataType's per-connector
// type mapping: plain columns and local relationships become NDC fields;
// remote relationships are excluded from the request and recorded in the
// returned JoinLocations instead (spec.md §4.4 / Testable Property 7).
func (p *planContext) planSelectionFields(
	dataType *metadataresolve.ObjectType,
	connector metadataresolve.Qualified[metadataresolve.DataConnectorName],
	selection []queryir.SelectionField,
	path []string,
) (map[string]ndc.Field, map[string]ndc.Relationship, *JoinLocations, error) {
	fields := map[string]ndc.Field{}
	relationships := map[string]ndc.Relationship{}
	var locations *JoinLocations

	addLocation := func(alias string, node *JoinLocationNode) {
		if locations == nil {
			locations = &JoinLocations{Locations: map[string]*JoinLocationNode{}}
		}
		locations.Locations[alias] = node
	}

	for _, sf := range selection {
		fieldPath := append(append([]string{}, path...), sf.Alias)

		switch {
		case sf.Column != nil:
			if sf.Column.Field == "__typename" {
				fields[sf.Alias] = ndc.Field{Type: "column", Column: "__typename"}
				continue
			}
			column, err := resolveColumn(dataType, connector, sf.Column.Field, fieldPath)
			if err != nil {
				return nil, nil, nil, err
			}
			f := ndc.Field{Type: "column", Column: column}
			if len(sf.Column.Nested) > 0 {
				nestedType, err := p.nestedObjectType(dataType, sf.Column.Field)
				if err != nil {
					return nil, nil, nil, err
				}
				nestedFields, _, nestedJoins, err := p.planSelectionFields(nestedType, connector, sf.Column.Nested, fieldPath)
				if err != nil {
					return nil, nil, nil, err
				}
				if nestedJoins != nil {
					return nil, nil, nil, userError(fieldPath, "RemoteRelationshipUnsupported", "remote relationships are not supported inside a nested object field")
				}
				f.Fields = &ndc.NestedField{Type: "object", Fields: nestedFields}
			}
			fields[sf.Alias] = f

		case sf.ModelRelationshipLocal != nil:
			rel := sf.ModelRelationshipLocal.Relationship
			relName := string(rel.Name)
			targetModel := sf.ModelRelationshipLocal.Query.Model
			ndcRel, err := p.buildNDCRelationship(dataType, connector, rel, targetModel)
			if err != nil {
				return nil, nil, nil, err
			}
			relationships[relName] = ndcRel

			subTree, err := p.planModelSelection(sf.ModelRelationshipLocal.Query, fieldPath)
			if err != nil {
				return nil, nil, nil, err
			}
			fields[sf.Alias] = ndc.Field{
				Type:         "relationship",
				Relationship: relName,
				Query:        &subTree.Query.Query,
			}
			if subTree.RemoteJoins != nil {
				addLocation(sf.Alias, &JoinLocationNode{Local: subTree.RemoteJoins})
			}

		case sf.ModelRelationshipRemote != nil:
			rj, err := p.planRemoteModelJoin(dataType, connector, sf.ModelRelationshipRemote.Relationship, sf.ModelRelationshipRemote.Query, fieldPath)
			if err != nil {
				return nil, nil, nil, err
			}
			addLocation(sf.Alias, &JoinLocationNode{Remote: rj})
			addJoinKeyFields(fields, rj.JoinMapping)

		case sf.CommandRelationshipLocal != nil:
			rel := sf.CommandRelationshipLocal.Relationship
			relName := string(rel.Name)
			cmdSel := sf.CommandRelationshipLocal.Command
			ndcRel, err := p.buildNDCCommandRelationship(dataType, connector, rel, cmdSel.Command)
			if err != nil {
				return nil, nil, nil, err
			}
			relationships[relName] = ndcRel

			var subFields map[string]ndc.Field
			if outputType, ok := p.commandOutputObjectType(cmdSel.Command); ok && len(cmdSel.Selection) > 0 {
				built, subRels, subJoins, err := p.planSelectionFields(outputType, cmdSel.Command.Source.DataConnector, cmdSel.Selection, fieldPath)
				if err != nil {
					return nil, nil, nil, err
				}
				if subJoins != nil {
					return nil, nil, nil, userError(fieldPath, "RemoteRelationshipUnsupported", "remote relationships are not supported inside a local command relationship")
				}
				for k, v := range subRels {
					relationships[k] = v
				}
				subFields = built
			}
			fields[sf.Alias] = ndc.Field{
				Type:         "relationship",
				Relationship: relName,
				Query:        &ndc.Query{Fields: subFields},
			}

		case sf.CommandRelationshipRemote != nil:
			rj, err := p.planRemoteCommandJoin(dataType, connector, sf.CommandRelationshipRemote.Relationship, sf.CommandRelationshipRemote.Command, fieldPath)
			if err != nil {
				return nil, nil, nil, err
			}
			addLocation(sf.Alias, &JoinLocationNode{Remote: rj})
			addJoinKeyFields(fields, rj.JoinMapping)

		default:
			return nil, nil, nil, internalError(fieldPath, "selection field has no recognized variant")
		}
	}

	return fields, relationships, locations, nil
}

// addJoinKeyFields ensures a remote join's source-side key columns are
// present in the parent query's own field selection, using the connector
// column name as the alias. A relationship's join key is rarely something
// the GraphQL selection asked for by name, but the executor needs it in the
// parent's response rows to build the far side's foreach variable batch.
func addJoinKeyFields(fields map[string]ndc.Field, mapping []JoinMappingEntry) {
	for _, m := range mapping {
		alias := string(m.SourceField)
		if _, ok := fields[alias]; ok {
			continue
		}
		fields[alias] = ndc.Field{Type: "column", Column: alias}
	}
}

func buildArguments(args map[metadataresolve.ArgumentName]any, mappings map[metadataresolve.ArgumentName]metadataresolve.ArgumentName, path []string) (map[string]ndc.Argument, error) {
	out := map[string]ndc.Argument{}
	for name, val := range args {
		connArg, ok := mappings[name]
		if !ok {
			return nil, userError(path, "MissingArgumentMapping", "argument %q has no connector mapping", name)
		}
		out[string(connArg)] = ndc.Argument{Type: "literal", Value: val}
	}
	return out, nil
}

func buildAggregates(agg *queryir.AggregateSelection) map[string]ndc.Aggregate {
	out := map[string]ndc.Aggregate{}
	for _, c := range agg.Count {
		if c.Field == "" {
			out[c.Alias] = ndc.Aggregate{Type: "star_count"}
		} else {
			out[c.Alias] = ndc.Aggregate{Type: "column_count", Column: string(c.Field)}
		}
	}
	for _, f := range agg.Functions {
		out[f.Alias] = ndc.Aggregate{Type: "single_column", Column: string(f.Field), Function: f.Function}
	}
	return out
}

func resolveColumn(dataType *metadataresolve.ObjectType, connector metadataresolve.Qualified[metadataresolve.DataConnectorName], field metadataresolve.FieldName, path []string) (string, error) {
	tm, ok := dataType.TypeMappings[connector]
	if !ok {
		return "", internalError(path, "no type mapping for %s on connector %s", dataType.Name, connector)
	}
	fm, ok := tm.FieldMappings[field]
	if !ok {
		return "", userError(path, "MissingFieldMapping", "field %q has no mapping on connector %s", field, connector)
	}
	return string(fm.Column), nil
}

// nestedObjectType resolves a field's declared type back to an ObjectType,
// for fields whose value is itself an object the connector can return via
// NDC nested_fields.
func (p *planContext) nestedObjectType(dataType *metadataresolve.ObjectType, field metadataresolve.FieldName) (*metadataresolve.ObjectType, error) {
	fd, ok := dataType.Fields[field]
	if !ok {
		return nil, internalError(nil, "field %q not found on %s", field, dataType.Name)
	}
	t := fd.Type
	for t != nil && t.List != nil {
		t = t.List
	}
	if t == nil || t.Named == nil || t.Named.Custom == nil {
		return nil, internalError(nil, "field %q has no nested object type", field)
	}
	ot, ok := p.md.ObjectTypesWithRelationships[*t.Named.Custom]
	if !ok {
		return nil, internalError(nil, "field %q references unresolved type %s", field, *t.Named.Custom)
	}
	return ot, nil
}

func (p *planContext) buildNDCRelationship(sourceType *metadataresolve.ObjectType, connector metadataresolve.Qualified[metadataresolve.DataConnectorName], rel *metadataresolve.Relationship, targetModel *metadataresolve.Model) (ndc.Relationship, error) {
	targetType, ok := p.md.ObjectTypesWithRelationships[targetModel.DataType]
	if !ok {
		return ndc.Relationship{}, internalError(nil, "relationship %q targets unresolved type %s", rel.Name, targetModel.DataType)
	}
	columnMapping := map[string]string{}
	for _, m := range rel.Mappings {
		srcCol, err := resolveColumn(sourceType, connector, m.SourceField, nil)
		if err != nil {
			return ndc.Relationship{}, err
		}
		if m.TargetField == nil {
			continue
		}
		tgtCol, err := resolveColumn(targetType, targetModel.Source.DataConnector, *m.TargetField, nil)
		if err != nil {
			return ndc.Relationship{}, err
		}
		columnMapping[srcCol] = tgtCol
	}
	relType := "object"
	if rel.ListType {
		relType = "array"
	}
	return ndc.Relationship{
		TargetCollection: string(targetModel.Source.Collection),
		RelationshipType: relType,
		ColumnMapping:    columnMapping,
	}, nil
}

// buildNDCCommandRelationship builds the NDC relationship entry for a local
// relationship targeting a function-based command: the source row's mapped
// columns are passed as the function's arguments rather than joined through
// a column_mapping, since a function is not itself a row-bearing collection.
func (p *planContext) buildNDCCommandRelationship(sourceType *metadataresolve.ObjectType, connector metadataresolve.Qualified[metadataresolve.DataConnectorName], rel *metadataresolve.Relationship, cmd *metadataresolve.Command) (ndc.Relationship, error) {
	if cmd.Source == nil || cmd.Source.Function == nil {
		return ndc.Relationship{}, userError(nil, "UnsupportedFeature", "local command relationship %q must target a function-based command", rel.Name)
	}
	args := map[string]ndc.Argument{}
	for _, m := range rel.Mappings {
		if m.TargetArgument == nil {
			continue
		}
		srcCol, err := resolveColumn(sourceType, connector, m.SourceField, nil)
		if err != nil {
			return ndc.Relationship{}, err
		}
		connArg, ok := cmd.Source.ArgumentMappings[*m.TargetArgument]
		if !ok {
			return ndc.Relationship{}, userError(nil, "MissingArgumentMapping", "relationship %q target argument %q has no connector mapping", rel.Name, *m.TargetArgument)
		}
		args[string(connArg)] = ndc.Argument{Type: "column", Column: srcCol}
	}
	relType := "object"
	if rel.ListType {
		relType = "array"
	}
	return ndc.Relationship{
		TargetCollection: string(*cmd.Source.Function),
		RelationshipType: relType,
		Arguments:        args,
	}, nil
}
