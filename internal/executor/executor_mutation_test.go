package executor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendd/ddnengine/internal/executor"
	"github.com/opendd/ddnengine/internal/ndc"
	"github.com/opendd/ddnengine/internal/planner"
)

// TestMutationsAreOrderedAndAbortOnNonNullableFailure is spec.md §8
// property 10 plus the "insertB NOT issued" concrete scenario: mutation
// root fields run strictly in document order, and a non-nullable failure
// stops every later field in the operation from being issued at all.
func TestMutationsAreOrderedAndAbortOnNonNullableFailure(t *testing.T) {
	var mu sync.Mutex
	var calls []string

	record := func(name string, status int) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			calls = append(calls, name)
			mu.Unlock()
			if status != 0 {
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(ndc.ErrorResponse{Message: "insert failed"})
				return
			}
			_ = json.NewEncoder(w).Encode(ndc.MutationResponse{
				OperationResults: []ndc.MutationOperationResult{{Type: "procedure", Result: map[string]any{"id": float64(1)}}},
			})
		}
	}

	_, clientA := newTestConnector(t, record("insertA", 0))
	_, clientB := newTestConnector(t, record("insertB", 500))
	_, clientC := newTestConnector(t, record("insertC", 0))

	connA, connB, connC := connectorName("a"), connectorName("b"), connectorName("c")
	clients := executor.Clients{connA: clientA, connB: clientB, connC: clientC}

	op := func() *ndc.MutationRequest {
		return &ndc.MutationRequest{Operations: []ndc.MutationOperation{{Type: "procedure", Name: "insert"}}}
	}

	mp := &planner.MutationPlan{Groups: []planner.MutationGroup{
		{DataConnector: connA, Fields: []planner.MutationPlanField{{Alias: "insertA", IsNullable: false, Query: op()}}},
		{DataConnector: connB, Fields: []planner.MutationPlanField{{Alias: "insertB", IsNullable: false, Query: op()}}},
		{DataConnector: connC, Fields: []planner.MutationPlanField{{Alias: "insertC", IsNullable: false, Query: op()}}},
	}}

	resp := executor.Execute(context.Background(), nil, mp, clients, "", "")

	require.Nil(t, resp.Data)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, []any{"insertB"}, resp.Errors[0].Path)
	require.Equal(t, []string{"insertA", "insertB"}, calls)
}

// TestMutationGroupFieldsPreserveDocumentOrder checks a successful sequence
// of mutations within and across connector groups lands in the plan's
// document order.
func TestMutationGroupFieldsPreserveDocumentOrder(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	record := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			calls = append(calls, name)
			mu.Unlock()
			_ = json.NewEncoder(w).Encode(ndc.MutationResponse{
				OperationResults: []ndc.MutationOperationResult{{Type: "procedure", Result: map[string]any{"ok": true}}},
			})
		}
	}
	_, clientA := newTestConnector(t, record("a1"))
	_, clientB := newTestConnector(t, record("b1"))

	connA, connB := connectorName("a"), connectorName("b")
	clients := executor.Clients{connA: clientA, connB: clientB}

	op := func() *ndc.MutationRequest {
		return &ndc.MutationRequest{Operations: []ndc.MutationOperation{{Type: "procedure", Name: "insert"}}}
	}

	mp := &planner.MutationPlan{Groups: []planner.MutationGroup{
		{DataConnector: connA, Fields: []planner.MutationPlanField{{Alias: "a1", IsNullable: false, Query: op()}}},
		{DataConnector: connB, Fields: []planner.MutationPlanField{{Alias: "b1", IsNullable: false, Query: op()}}},
	}}

	resp := executor.Execute(context.Background(), nil, mp, clients, "", "")

	require.Empty(t, resp.Errors)
	require.Equal(t, []string{"a1", "b1"}, calls)
	data := resp.Data.(executor.OrderedData)
	a1, _ := data.Get("a1")
	b1, _ := data.Get("b1")
	require.Equal(t, map[string]any{"ok": true}, a1)
	require.Equal(t, map[string]any{"ok": true}, b1)
}
