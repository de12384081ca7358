package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendd/ddnengine/internal/executor"
	"github.com/opendd/ddnengine/internal/ndc"
	"github.com/opendd/ddnengine/internal/planner"
)

// TestNullableFieldErrorContainment is spec.md §8 property 8: a failing
// nullable root field yields data[field]=null plus one error, and a
// sibling field's data survives untouched.
func TestNullableFieldErrorContainment(t *testing.T) {
	_, okClient := newTestConnector(t, rowsHandler([]map[string]any{{"id": float64(1), "name": "A"}}))
	_, failClient := newTestConnector(t, errorHandler(500, "boom"))

	okConn := connectorName("ok")
	failConn := connectorName("fail")
	clients := executor.Clients{okConn: okClient, failConn: failClient}

	qp := &planner.QueryPlan{Roots: []planner.QueryPlanRoot{
		{Alias: "actors", IsNullable: false, Tree: &planner.RootPlan{Query: &planner.ExecutionTree{
			DataConnector: okConn,
			Query:         &ndc.QueryRequest{Collection: "actors"},
			ResultShape:   planner.ProcessAsArray,
		}}},
		{Alias: "brokenThing", IsNullable: true, Tree: &planner.RootPlan{Query: &planner.ExecutionTree{
			DataConnector: failConn,
			Query:         &ndc.QueryRequest{Collection: "broken"},
			ResultShape:   planner.ProcessAsObject,
		}}},
	}}

	resp := executor.Execute(context.Background(), qp, nil, clients, "", "trace-1")

	require.NotNil(t, resp.Data)
	data := resp.Data.(executor.OrderedData)
	actors, _ := data.Get("actors")
	require.Equal(t, []any{map[string]any{"id": float64(1), "name": "A"}}, actors)
	broken, ok := data.Get("brokenThing")
	require.True(t, ok)
	require.Nil(t, broken)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, []any{"brokenThing"}, resp.Errors[0].Path)
}

// TestNonNullableFieldErrorNullifiesResponse is spec.md §8 property 9: a
// failing non-nullable root field nulls the whole response and is the sole
// error, even when a sibling field already succeeded.
func TestNonNullableFieldErrorNullifiesResponse(t *testing.T) {
	_, okClient := newTestConnector(t, rowsHandler([]map[string]any{{"id": float64(1)}}))
	_, failClient := newTestConnector(t, errorHandler(500, "boom"))

	okConn := connectorName("ok")
	failConn := connectorName("fail")
	clients := executor.Clients{okConn: okClient, failConn: failClient}

	qp := &planner.QueryPlan{Roots: []planner.QueryPlanRoot{
		{Alias: "actors", IsNullable: true, Tree: &planner.RootPlan{Query: &planner.ExecutionTree{
			DataConnector: okConn,
			Query:         &ndc.QueryRequest{Collection: "actors"},
			ResultShape:   planner.ProcessAsArray,
		}}},
		{Alias: "criticalThing", IsNullable: false, Tree: &planner.RootPlan{Query: &planner.ExecutionTree{
			DataConnector: failConn,
			Query:         &ndc.QueryRequest{Collection: "broken"},
			ResultShape:   planner.ProcessAsObject,
		}}},
	}}

	resp := executor.Execute(context.Background(), qp, nil, clients, "", "")

	require.Nil(t, resp.Data)
	require.Len(t, resp.Errors, 1)
}

// TestTypeNameNeverNull mirrors spec.md §8's `{ __typename }` concrete
// scenario: the root name is carried verbatim and never errors.
func TestTypeNameNeverNull(t *testing.T) {
	name := "query_root"
	qp := &planner.QueryPlan{Roots: []planner.QueryPlanRoot{
		{Alias: "__typename", IsNullable: false, Tree: &planner.RootPlan{TypeName: &name}},
	}}

	resp := executor.Execute(context.Background(), qp, nil, executor.Clients{}, "", "")

	require.Nil(t, resp.Errors)
	data := resp.Data.(executor.OrderedData)
	typename, _ := data.Get("__typename")
	require.Equal(t, "query_root", typename)
}
