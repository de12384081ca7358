package executor_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opendd/ddnengine/internal/executor"
	"github.com/opendd/ddnengine/internal/ndc"
	"github.com/opendd/ddnengine/internal/planner"
)

// TestQueryRootFieldsRunConcurrently is spec.md §8 property 11: independent
// query root fields are dispatched concurrently rather than one at a time,
// and the assembled data still lands in document order regardless of which
// connector answered first.
func TestQueryRootFieldsRunConcurrently(t *testing.T) {
	started := make(chan string, 2)
	release := make(chan struct{})

	blocking := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			started <- name
			<-release
			rowsHandler([]map[string]any{{"name": name}})(w, r)
		}
	}

	_, slowClient := newTestConnector(t, blocking("slow"))
	_, fastClient := newTestConnector(t, blocking("fast"))

	slowConn, fastConn := connectorName("slow"), connectorName("fast")
	clients := executor.Clients{slowConn: slowClient, fastConn: fastClient}

	qp := &planner.QueryPlan{Roots: []planner.QueryPlanRoot{
		{Alias: "slow", IsNullable: false, Tree: &planner.RootPlan{Query: &planner.ExecutionTree{
			DataConnector: slowConn, Query: &ndc.QueryRequest{Collection: "slow"}, ResultShape: planner.ProcessAsObject,
		}}},
		{Alias: "fast", IsNullable: false, Tree: &planner.RootPlan{Query: &planner.ExecutionTree{
			DataConnector: fastConn, Query: &ndc.QueryRequest{Collection: "fast"}, ResultShape: planner.ProcessAsObject,
		}}},
	}}

	done := make(chan *executor.Response, 1)
	go func() {
		done <- executor.Execute(context.Background(), qp, nil, clients, "", "")
	}()

	// Both handlers must have started before either is allowed to return,
	// proving the two root fields were in flight at the same time.
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case name := <-started:
			seen[name] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for both root fields to start concurrently")
		}
	}
	require.True(t, seen["slow"] && seen["fast"])
	close(release)

	var resp *executor.Response
	select {
	case resp = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for execution to finish")
	}

	require.Empty(t, resp.Errors)
	data := resp.Data.(executor.OrderedData)
	require.Equal(t, executor.OrderedData{
		{Name: "slow", Value: map[string]any{"name": "slow"}},
		{Name: "fast", Value: map[string]any{"name": "fast"}},
	}, data)
}
