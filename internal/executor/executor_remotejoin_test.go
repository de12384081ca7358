package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendd/ddnengine/internal/executor"
	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/ndc"
	"github.com/opendd/ddnengine/internal/planner"
)

// TestRemoteJoinDeduplicatesVariableSet is spec.md §8's concrete scenario:
// two movies sharing the same director id 7 collapse into a single foreach
// variable set entry, so the director connector is asked for director 7
// exactly once, and both movie rows get the same spliced-back director.
func TestRemoteJoinDeduplicatesVariableSet(t *testing.T) {
	_, movieClient := newTestConnector(t, rowsHandler([]map[string]any{
		{"id": float64(1), "title": "A", "director_id": float64(7)},
		{"id": float64(2), "title": "B", "director_id": float64(7)},
	}))

	var seenVariableSets [][]map[string]any
	_, directorClient := newTestConnector(t, foreachHandler(t, "director_id", map[any][]map[string]any{
		float64(7): {{"id": float64(7), "name": "Director Seven"}},
	}, &seenVariableSets))

	movieConn, directorConn := connectorName("movies"), connectorName("directors")
	clients := executor.Clients{movieConn: movieClient, directorConn: directorClient}

	remoteJoin := &planner.RemoteJoin{
		TargetQuery:     &ndc.QueryRequest{Collection: "directors"},
		TargetConnector: directorConn,
		JoinMapping: []planner.JoinMappingEntry{
			{SourceField: metadataresolve.FieldName("director_id"), TargetVariable: "director_id", TargetField: metadataresolve.FieldName("id")},
		},
		ProcessResponseAs: planner.ProcessAsObject,
	}

	qp := &planner.QueryPlan{Roots: []planner.QueryPlanRoot{
		{Alias: "movies", IsNullable: false, Tree: &planner.RootPlan{Query: &planner.ExecutionTree{
			DataConnector: movieConn,
			Query:         &ndc.QueryRequest{Collection: "movies"},
			ResultShape:   planner.ProcessAsArray,
			RemoteJoins: &planner.JoinLocations{Locations: map[string]*planner.JoinLocationNode{
				"director": {Remote: remoteJoin},
			}},
		}}},
	}}

	resp := executor.Execute(context.Background(), qp, nil, clients, "", "")

	require.Empty(t, resp.Errors)
	require.Len(t, seenVariableSets, 1, "expected the two movies' shared director id to collapse into one foreach variable set")
	require.Equal(t, []map[string]any{{"director_id": float64(7)}}, seenVariableSets[0])

	data := resp.Data.(executor.OrderedData)
	moviesVal, _ := data.Get("movies")
	movies := moviesVal.([]any)
	require.Len(t, movies, 2)
	for _, m := range movies {
		row := m.(map[string]any)
		require.Equal(t, map[string]any{"id": float64(7), "name": "Director Seven"}, row["director"])
	}
}
