package planner

import (
	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/ndc"
	"github.com/opendd/ddnengine/internal/queryir"
)

// planMutations groups mutation root fields by data connector, in
// first-seen order, preserving document order within each group (spec.md
// §4.4). Remote relationships anywhere in a mutation's command selection
// are rejected at plan time rather than silently dropped, per §9's
// resolution of that open question.
func (p *planContext) planMutations(fields []queryir.MutationRootField) (*MutationPlan, error) {
	plan := &MutationPlan{}
	groupIndex := map[metadataresolve.Qualified[metadataresolve.DataConnectorName]]int{}

	for _, f := range fields {
		path := []string{f.Alias}
		cmd := f.Command.Command
		if cmd.Source == nil {
			return nil, userError(path, "NoDataConnectorSource", "command %s has no data connector source", cmd.Name)
		}
		if err := p.rejectRemoteRelationships(f.Command.Selection, path); err != nil {
			return nil, err
		}

		op, relationships, err := p.buildCommandMutationOperation(f.Command, path)
		if err != nil {
			return nil, err
		}

		idx, ok := groupIndex[cmd.Source.DataConnector]
		if !ok {
			idx = len(plan.Groups)
			groupIndex[cmd.Source.DataConnector] = idx
			plan.Groups = append(plan.Groups, MutationGroup{DataConnector: cmd.Source.DataConnector})
		}
		req := &ndc.MutationRequest{Operations: []ndc.MutationOperation{*op}, CollectionRelationships: relationships}
		_, isObject := p.commandOutputObjectType(cmd)
		plan.Groups[idx].Fields = append(plan.Groups[idx].Fields, MutationPlanField{
			Alias:              f.Alias,
			IsNullable:         f.IsNullable,
			Query:              req,
			Command:            cmd,
			CommandScalarValue: !isObject,
		})
	}

	return plan, nil
}

// rejectRemoteRelationships walks a selection set looking for any
// relationship field the planner would otherwise turn into a RemoteJoin;
// mutations have no executor-side remote-join support (spec.md §4.5/§9).
func (p *planContext) rejectRemoteRelationships(selection []queryir.SelectionField, path []string) error {
	for _, sf := range selection {
		fieldPath := append(append([]string{}, path...), sf.Alias)
		switch {
		case sf.ModelRelationshipRemote != nil:
			return userError(fieldPath, "RemoteRelationshipUnsupported", "remote relationships are not supported inside a mutation")
		case sf.CommandRelationshipRemote != nil:
			return userError(fieldPath, "RemoteRelationshipUnsupported", "remote relationships are not supported inside a mutation")
		case sf.ModelRelationshipLocal != nil:
			if err := p.rejectRemoteRelationships(sf.ModelRelationshipLocal.Query.Selection, fieldPath); err != nil {
				return err
			}
		case sf.CommandRelationshipLocal != nil:
			if err := p.rejectRemoteRelationships(sf.CommandRelationshipLocal.Command.Selection, fieldPath); err != nil {
				return err
			}
		case sf.Column != nil:
			if len(sf.Column.Nested) > 0 {
				if err := p.rejectRemoteRelationships(sf.Column.Nested, fieldPath); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
