package planner

import (
	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/queryir"
)

// planContext threads the resolved metadata and the in-flight join
// deduplication table through every planning call for one request. A fresh
// planContext is created per Plan call; it is never shared across requests.
type planContext struct {
	md       *metadataresolve.Metadata
	assigner *joinAssigner
}

// Plan is spec.md §4.4's entry point: it takes the IR builder's output and
// produces either a QueryPlan or a MutationPlan, never both. GraphQL itself
// prevents an operation from mixing query and mutation root fields, but
// Plan still defends against being handed both non-empty, since nothing
// upstream of it is trusted to enforce that invariant.
func Plan(md *metadataresolve.Metadata, queryFields []queryir.QueryRootField, mutationFields []queryir.MutationRootField) (*QueryPlan, *MutationPlan, error) {
	if len(queryFields) > 0 && len(mutationFields) > 0 {
		return nil, nil, userError(nil, "MixedMutationAndQuery", "an operation cannot mix query and mutation root fields")
	}

	p := &planContext{md: md, assigner: &joinAssigner{}}

	if len(mutationFields) > 0 {
		mp, err := p.planMutations(mutationFields)
		if err != nil {
			return nil, nil, err
		}
		return nil, mp, nil
	}

	qp := &QueryPlan{}
	for _, f := range queryFields {
		root, err := p.planQueryRootField(f)
		if err != nil {
			return nil, nil, err
		}
		qp.Roots = append(qp.Roots, QueryPlanRoot{Alias: f.Alias, IsNullable: f.IsNullable, Tree: root})
	}
	return qp, nil, nil
}

func (p *planContext) planQueryRootField(f queryir.QueryRootField) (*RootPlan, error) {
	path := []string{f.Alias}
	switch {
	case f.TypeName != nil:
		return &RootPlan{TypeName: f.TypeName}, nil

	case f.Node != nil:
		return &RootPlan{Node: &NodePlan{ID: f.Node.ID}}, nil

	case f.ApolloService:
		return &RootPlan{ApolloService: true}, nil

	case f.ApolloEntities != nil:
		entities := make([]*ExecutionTree, len(f.ApolloEntities.Representations))
		return &RootPlan{ApolloEntities: &ApolloEntitiesPlan{
			Representations: f.ApolloEntities.Representations,
			Entities:        entities,
		}}, nil

	case f.ModelSelectOne != nil:
		tree, err := p.planModelSelection(f.ModelSelectOne, path)
		if err != nil {
			return nil, err
		}
		return &RootPlan{Query: tree}, nil

	case f.ModelSelectMany != nil:
		tree, err := p.planModelSelection(f.ModelSelectMany, path)
		if err != nil {
			return nil, err
		}
		return &RootPlan{Query: tree}, nil

	case f.Command != nil:
		cmd := f.Command.Command
		if cmd.Source == nil {
			return nil, userError(path, "NoDataConnectorSource", "command %s has no data connector source", cmd.Name)
		}
		req, err := p.buildCommandFunctionRequest(f.Command, path)
		if err != nil {
			return nil, err
		}
		_, isObject := p.commandOutputObjectType(cmd)
		return &RootPlan{Query: &ExecutionTree{
			DataConnector:      cmd.Source.DataConnector,
			Query:              req,
			ResultShape:        commandResultShape(cmd),
			Command:            cmd,
			CommandScalarValue: !isObject,
		}}, nil

	default:
		return nil, internalError(path, "query root field %q has no recognized variant", f.Alias)
	}
}
