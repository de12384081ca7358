package planner

import (
	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/ndc"
	"github.com/opendd/ddnengine/internal/queryir"
)

// ScalarValueField is the NDC convention a function/procedure response uses
// to carry a scalar (non-object) result: a row with a single "__value"
// column, rather than the command's own named fields.
const ScalarValueField = "__value"

// commandOutputObjectType resolves a command's (possibly list-wrapped)
// output type down to the ObjectType its selection set is checked against,
// or ok=false for a scalar-returning command.
func (p *planContext) commandOutputObjectType(cmd *metadataresolve.Command) (*metadataresolve.ObjectType, bool) {
	t := cmd.OutputType
	for t != nil && t.List != nil {
		t = t.List
	}
	if t == nil || t.Named == nil || t.Named.Custom == nil {
		return nil, false
	}
	ot, ok := p.md.ObjectTypesWithRelationships[*t.Named.Custom]
	return ot, ok
}

// commandResultShape reports whether a command's output type is list-valued
// at its outermost level, for root-field response shaping (executor.go
// treats an object-shaped command result as a single row/null and an
// array-shaped one as all matching rows).
func commandResultShape(cmd *metadataresolve.Command) ProcessResponseAs {
	if cmd.OutputType != nil && cmd.OutputType.List != nil {
		return ProcessAsArray
	}
	return ProcessAsObject
}

// buildCommandFunctionRequest builds the single NDC query request for a
// function-based command: spec.md treats functions like a one-row
// collection query keyed by the function's own name.
func (p *planContext) buildCommandFunctionRequest(cmdSel *queryir.CommandSelection, path []string) (*ndc.QueryRequest, error) {
	cmd := cmdSel.Command
	arguments, err := buildArguments(cmdSel.Arguments, cmd.Source.ArgumentMappings, path)
	if err != nil {
		return nil, err
	}

	var fields map[string]ndc.Field
	var relationships map[string]ndc.Relationship
	if outputType, ok := p.commandOutputObjectType(cmd); ok {
		if len(cmdSel.Selection) > 0 {
			built, rels, joins, err := p.planSelectionFields(outputType, cmd.Source.DataConnector, cmdSel.Selection, path)
			if err != nil {
				return nil, err
			}
			if joins != nil {
				return nil, userError(path, "RemoteRelationshipUnsupported", "remote relationships are not supported on command output fields")
			}
			fields = built
			relationships = rels
		}
	} else {
		fields = map[string]ndc.Field{ScalarValueField: {Type: "column", Column: ScalarValueField}}
	}

	req := &ndc.QueryRequest{
		Collection:              string(*cmd.Source.Function),
		Query:                   ndc.Query{Fields: fields},
		Arguments:               arguments,
		CollectionRelationships: relationships,
	}
	return req, nil
}

// buildCommandMutationOperation builds the NDC mutation operation for a
// procedure-based command, plus any local relationships its output
// selection requires in CollectionRelationships.
func (p *planContext) buildCommandMutationOperation(cmdSel *queryir.CommandSelection, path []string) (*ndc.MutationOperation, map[string]ndc.Relationship, error) {
	cmd := cmdSel.Command
	if cmd.Source == nil || cmd.Source.Procedure == nil {
		return nil, nil, userError(path, "PlanError", "command %s is not procedure-based and cannot be used as a mutation", cmd.Name)
	}

	args := map[string]any{}
	for name, val := range cmdSel.Arguments {
		connArg, ok := cmd.Source.ArgumentMappings[name]
		if !ok {
			return nil, nil, userError(path, "MissingArgumentMapping", "argument %q has no connector mapping", name)
		}
		args[string(connArg)] = val
	}

	var nested *ndc.NestedField
	var relationships map[string]ndc.Relationship
	if outputType, ok := p.commandOutputObjectType(cmd); ok {
		if len(cmdSel.Selection) > 0 {
			fields, rels, joins, err := p.planSelectionFields(outputType, cmd.Source.DataConnector, cmdSel.Selection, path)
			if err != nil {
				return nil, nil, err
			}
			if joins != nil {
				return nil, nil, userError(path, "RemoteRelationshipUnsupported", "remote relationships are not supported on command output fields")
			}
			nested = &ndc.NestedField{Type: "object", Fields: fields}
			relationships = rels
		}
	} else {
		nested = &ndc.NestedField{Type: "object", Fields: map[string]ndc.Field{ScalarValueField: {Type: "column", Column: ScalarValueField}}}
	}

	return &ndc.MutationOperation{
		Type:      "procedure",
		Name:      string(*cmd.Source.Procedure),
		Arguments: args,
		Fields:    nested,
	}, relationships, nil
}
