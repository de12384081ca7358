package planner

import (
	"reflect"

	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/ndc"
	"github.com/opendd/ddnengine/internal/queryir"
)

// addJoinVariablePredicate ANDs an equality comparison against each join
// variable onto req's predicate. The planner fixes the query's shape once;
// the executor supplies the actual per-batch key values via
// ndc.QueryRequest.Variables at request time (spec.md §4.5's foreach
// facility), so only the variable name is baked in here.
func addJoinVariablePredicate(req *ndc.QueryRequest, mapping []JoinMappingEntry) {
	if len(mapping) == 0 {
		return
	}
	exprs := make([]ndc.Expression, 0, len(mapping)+1)
	if req.Query.Predicate.Type != "" {
		exprs = append(exprs, req.Query.Predicate)
	}
	for _, m := range mapping {
		exprs = append(exprs, ndc.Expression{
			Type:     "binary_comparison_operator",
			Column:   &ndc.ComparisonTarget{Type: "column", Name: string(m.TargetField)},
			Operator: "_eq",
			Value:    &ndc.ComparisonValue{Type: "variable", Name: m.TargetVariable},
		})
	}
	if len(exprs) == 1 {
		req.Query.Predicate = exprs[0]
		return
	}
	req.Query.Predicate = ndc.Expression{Type: "and", Expressions: exprs}
}

// joinAssigner deduplicates RemoteJoin values by structural equality,
// assigning each distinct shape a JoinId. Spec.md §9 explicitly calls for a
// linear scan rather than hashing: request bodies embed maps and slices
// that would need a canonical hash encoding the reference implementation
// does not bother with.
type joinAssigner struct {
	joins []*RemoteJoin
}

func (a *joinAssigner) assign(rj *RemoteJoin) JoinId {
	for i, existing := range a.joins {
		if remoteJoinsEqual(existing, rj) {
			return JoinId(i + 1)
		}
	}
	a.joins = append(a.joins, rj)
	return JoinId(len(a.joins))
}

// remoteJoinsEqual compares everything that determines the far-side
// request and how results splice back. SubJoins and Id are deliberately
// excluded: Id is what this function is computing, and nested remote joins
// are deduplicated independently when they are themselves assigned.
func remoteJoinsEqual(a, b *RemoteJoin) bool {
	return reflect.DeepEqual(a.TargetQuery, b.TargetQuery) &&
		a.TargetConnector == b.TargetConnector &&
		a.ProcessResponseAs == b.ProcessResponseAs &&
		reflect.DeepEqual(a.JoinMapping, b.JoinMapping)
}

// planRemoteModelJoin builds the far-side ExecutionTree for a remote model
// relationship and records it as a RemoteJoin, deduplicated against every
// other remote join planned so far in this request.
func (p *planContext) planRemoteModelJoin(
	sourceType *metadataresolve.ObjectType,
	sourceConnector metadataresolve.Qualified[metadataresolve.DataConnectorName],
	rel *metadataresolve.Relationship,
	targetSel *queryir.ModelSelection,
	path []string,
) (*RemoteJoin, error) {
	targetTree, err := p.planModelSelection(targetSel, path)
	if err != nil {
		return nil, err
	}

	mapping, err := p.buildJoinMapping(sourceType, sourceConnector, rel, targetSel.Model.DataType, targetSel.Model.Source.DataConnector, path)
	if err != nil {
		return nil, err
	}
	addJoinVariablePredicate(targetTree.Query, mapping)

	processAs := ProcessAsObject
	if rel.ListType {
		processAs = ProcessAsArray
	}

	rj := &RemoteJoin{
		TargetQuery:       targetTree.Query,
		TargetConnector:   targetTree.DataConnector,
		JoinMapping:       mapping,
		ProcessResponseAs: processAs,
		SubJoins:          targetTree.RemoteJoins,
	}
	rj.Id = p.assigner.assign(rj)
	return rj, nil
}

// planRemoteCommandJoin is the command-relationship analogue: the far side
// is a single command invocation rather than a collection query, so its
// "query" is expressed as a one-row NDC function query.
func (p *planContext) planRemoteCommandJoin(
	sourceType *metadataresolve.ObjectType,
	sourceConnector metadataresolve.Qualified[metadataresolve.DataConnectorName],
	rel *metadataresolve.Relationship,
	cmdSel *queryir.CommandSelection,
	path []string,
) (*RemoteJoin, error) {
	cmd := cmdSel.Command
	if cmd.Source == nil || cmd.Source.Function == nil {
		return nil, userError(path, "RemoteRelationshipUnsupported", "command relationship %q must target a function-based command", rel.Name)
	}

	req, err := p.buildCommandFunctionRequest(cmdSel, path)
	if err != nil {
		return nil, err
	}

	// A function-based command has no rows of its own to filter by
	// predicate: the join key is passed straight in as one of the
	// function's own arguments, referencing the batch variable the
	// executor fills in per foreach row (spec.md §4.5).
	var mapping []JoinMappingEntry
	if req.Arguments == nil {
		req.Arguments = map[string]ndc.Argument{}
	}
	for _, m := range rel.Mappings {
		if m.TargetArgument == nil {
			continue
		}
		srcCol, err := resolveColumn(sourceType, sourceConnector, m.SourceField, path)
		if err != nil {
			return nil, err
		}
		connArg, ok := cmd.Source.ArgumentMappings[*m.TargetArgument]
		if !ok {
			return nil, userError(path, "MissingArgumentMapping", "relationship %q target argument %q has no connector mapping", rel.Name, *m.TargetArgument)
		}
		req.Arguments[string(connArg)] = ndc.Argument{Type: "variable", Name: string(connArg)}
		// TargetField is left empty: a function argument is not a row
		// column to compare against, unlike a model relationship's
		// predicate-based join.
		mapping = append(mapping, JoinMappingEntry{
			SourceField:    metadataresolve.FieldName(srcCol),
			TargetVariable: string(connArg),
		})
	}

	rj := &RemoteJoin{
		TargetQuery:       req,
		TargetConnector:   cmd.Source.DataConnector,
		JoinMapping:       mapping,
		ProcessResponseAs: ProcessAsObject,
	}
	rj.Id = p.assigner.assign(rj)
	return rj, nil
}

// buildJoinMapping resolves a relationship's field-level mapping into
// connector column names on both sides, for the foreach variable set the
// executor builds at splice time.
func (p *planContext) buildJoinMapping(
	sourceType *metadataresolve.ObjectType,
	sourceConnector metadataresolve.Qualified[metadataresolve.DataConnectorName],
	rel *metadataresolve.Relationship,
	targetType metadataresolve.Qualified[metadataresolve.CustomTypeName],
	targetConnector metadataresolve.Qualified[metadataresolve.DataConnectorName],
	path []string,
) ([]JoinMappingEntry, error) {
	targetObjType, ok := p.md.ObjectTypesWithRelationships[targetType]
	if !ok {
		return nil, internalError(path, "relationship %q targets unresolved type %s", rel.Name, targetType)
	}
	var mapping []JoinMappingEntry
	for i, m := range rel.Mappings {
		if m.TargetField == nil {
			continue
		}
		srcCol, err := resolveColumn(sourceType, sourceConnector, m.SourceField, path)
		if err != nil {
			return nil, err
		}
		tgtCol, err := resolveColumn(targetObjType, targetConnector, *m.TargetField, path)
		if err != nil {
			return nil, err
		}
		mapping = append(mapping, JoinMappingEntry{
			SourceField:    metadataresolve.FieldName(srcCol),
			TargetVariable: joinVariableName(rel.Name, i),
			TargetField:    metadataresolve.FieldName(tgtCol),
		})
	}
	return mapping, nil
}

func joinVariableName(rel metadataresolve.RelationshipName, i int) string {
	if i == 0 {
		return string(rel)
	}
	return string(rel) + "_" + string(rune('a'+i))
}
