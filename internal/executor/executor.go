package executor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/opendd/ddnengine/internal/ndc"
	"github.com/opendd/ddnengine/internal/planner"
)

// executor threads the per-request clients through the recursive join
// resolution in remotejoin.go. It holds no other state and is cheap to
// construct per call to Execute.
type executor struct {
	clients    Clients
	serviceSDL string
}

// Execute is spec.md §4.5's entry point: exactly one of qp/mp is non-nil,
// matching planner.Plan's own contract. Query root fields are dispatched
// concurrently with errgroup.Group; mutation groups, and the fields within
// a group, run strictly sequentially in document order.
//
// serviceSDL is the already-rendered Apollo `_service.sdl` value for this
// request's role (built by apollo.go's ServiceSDL from the role's schema);
// it is only consulted if the operation selects the `_service { sdl }`
// root field, since building it requires the role-scoped schema.Schema the
// executor is not otherwise handed.
func Execute(ctx context.Context, qp *planner.QueryPlan, mp *planner.MutationPlan, clients Clients, serviceSDL string, traceID string) *Response {
	e := &executor{clients: clients, serviceSDL: serviceSDL}
	if mp != nil {
		return assembleResponse(e.executeMutation(ctx, mp), traceID)
	}
	return assembleResponse(e.executeQuery(ctx, qp), traceID)
}

// executeQuery runs every root field concurrently, without cancelling
// siblings when one field fails, and returns their outcomes in document order (spec.md §5's "concurrent
// query root fields are independent; final assembly order matches the
// document").
func (e *executor) executeQuery(ctx context.Context, qp *planner.QueryPlan) []rootFieldOutcome {
	outcomes := make([]rootFieldOutcome, len(qp.Roots))
	g, gctx := errgroup.WithContext(ctx)
	for i, root := range qp.Roots {
		i, root := i, root
		outcomes[i] = rootFieldOutcome{alias: root.Alias, isNullable: root.IsNullable}
		g.Go(func() error {
			value, err := e.executeRoot(gctx, root.Tree)
			outcomes[i].value = value
			outcomes[i].err = err
			return nil
		})
	}
	// errgroup's returned error is ignored: every goroutine above always
	// returns nil so one field's failure never cancels its siblings'
	// in-flight requests (spec.md §4.5 nullability containment is applied
	// per field, not by aborting the whole query).
	_ = g.Wait()
	return outcomes
}

// executeMutation runs every group, and every field within a group,
// strictly in order; after a non-nullable field fails, its siblings later
// in the same operation are not issued (spec.md §8 property 10, and the "insertB NOT
// issued" concrete scenario).
func (e *executor) executeMutation(ctx context.Context, mp *planner.MutationPlan) []rootFieldOutcome {
	var outcomes []rootFieldOutcome
	aborted := false
	for _, group := range mp.Groups {
		client, clientErr := e.clients.get(group.DataConnector)
		for _, f := range group.Fields {
			if aborted {
				continue
			}
			outcome := rootFieldOutcome{alias: f.Alias, isNullable: f.IsNullable}
			if clientErr != nil {
				outcome.err = clientErr
			} else {
				value, err := e.executeMutationField(ctx, client, f)
				outcome.value = value
				outcome.err = err
			}
			outcomes = append(outcomes, outcome)
			if outcome.err != nil && !f.IsNullable {
				aborted = true
			}
		}
	}
	return outcomes
}

func (e *executor) executeMutationField(ctx context.Context, client *ndc.Client, f planner.MutationPlanField) (any, error) {
	resp, err := client.Mutation(ctx, f.Query)
	if err != nil {
		return nil, userError([]string{f.Alias}, "NDCRequestFailed", "%v", err)
	}
	if len(resp.OperationResults) != 1 {
		return nil, internalError([]string{f.Alias}, "expected exactly one mutation operation result, got %d", len(resp.OperationResults))
	}
	return shapeCommandResult(resp.OperationResults[0].Result, f.CommandScalarValue), nil
}

// executeRoot dispatches one query root field per its tagged-union variant
// (spec.md §4.3's TypeName/Node/ApolloService/ApolloEntities/Query kinds
// survive unchanged from queryir through the planner into RootPlan).
func (e *executor) executeRoot(ctx context.Context, root *planner.RootPlan) (any, error) {
	switch {
	case root.TypeName != nil:
		return *root.TypeName, nil
	case root.Node != nil:
		return e.executeNode(ctx, root.Node)
	case root.ApolloService:
		return map[string]any{"sdl": e.serviceSDL}, nil
	case root.ApolloEntities != nil:
		return e.executeApolloEntities(ctx, root.ApolloEntities)
	case root.Query != nil:
		return e.executeTree(ctx, root.Query)
	default:
		return nil, internalError(nil, "root plan has no recognized variant")
	}
}

// executeTree issues one NDC request, resolves every remote join its
// JoinLocations names, and shapes the result per ResultShape.
func (e *executor) executeTree(ctx context.Context, tree *planner.ExecutionTree) (any, error) {
	client, err := e.clients.get(tree.DataConnector)
	if err != nil {
		return nil, err
	}
	resp, err := client.Query(ctx, tree.Query)
	if err != nil {
		return nil, userError(nil, "NDCRequestFailed", "%v", err)
	}
	if len(resp) != 1 {
		return nil, internalError(nil, "expected exactly one row set for a non-foreach query, got %d", len(resp))
	}
	rows := resp[0].Rows
	if err := e.resolveJoins(ctx, rows, tree.RemoteJoins, e.clients, nil); err != nil {
		return nil, err
	}

	if tree.Command != nil {
		// A command root is always a one-row function collection: its
		// shape comes from the command's own output type, not from
		// whether the underlying NDC collection could return many rows.
		if len(rows) == 0 {
			if tree.ResultShape == planner.ProcessAsArray {
				return []any{}, nil
			}
			return nil, nil
		}
		if tree.ResultShape == planner.ProcessAsArray {
			values := make([]any, len(rows))
			for i, r := range rows {
				values[i] = shapeCommandResult(r, tree.CommandScalarValue)
			}
			return values, nil
		}
		return shapeCommandResult(rows[0], tree.CommandScalarValue), nil
	}

	if tree.ResultShape == planner.ProcessAsArray {
		values := make([]any, len(rows))
		for i, r := range rows {
			values[i] = r
		}
		return values, nil
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// shapeCommandResult unwraps a scalar-output command's row down to its bare
// value; an object-output command's row is already shaped correctly and is
// returned as-is.
func shapeCommandResult(row any, scalarValue bool) any {
	if !scalarValue {
		return row
	}
	m, ok := row.(map[string]any)
	if !ok {
		return row
	}
	return m[planner.ScalarValueField]
}

// executeNode resolves the Relay-style node(id: ID!) root field. Decoding
// the opaque id into a model and unique-field values is left a host concern
// by spec.md §3's NodeSelection doc comment; no deployment-specific scheme
// is assumed here, so every node lookup reports itself unsupported rather
// than guessing one.
func (e *executor) executeNode(ctx context.Context, node *planner.NodePlan) (any, error) {
	return nil, userError(nil, "NodeLookupUnsupported", "node(id: %q) lookup requires a deployment-specific id scheme", node.ID)
}
