package executor_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/ndc"
)

// newTestConnector starts an httptest server backing a single NDC client
// and returns both, so a test can both point planner.ExecutionTree.Query at
// it and assert on the requests it received via handler.
func newTestConnector(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *ndc.Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := ndc.NewClient(srv.URL, "", nil, 5*time.Second)
	return srv, client
}

func connectorName(name string) metadataresolve.Qualified[metadataresolve.DataConnectorName] {
	return metadataresolve.Qualified[metadataresolve.DataConnectorName]{Subgraph: "app", Name: metadataresolve.DataConnectorName(name)}
}

// rowsHandler replies to POST /query with a single RowSet containing rows,
// ignoring the request body.
func rowsHandler(rows []map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ndc.QueryResponse{{Rows: rows}}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// foreachHandler replies with one RowSet per entry of the request's
// Variables, looked up by keyField in each variable map, so a test can
// assert the deduplicated foreach variable set it was actually sent.
func foreachHandler(t *testing.T, keyField string, byKey map[any][]map[string]any, seenVariableSets *[][]map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ndc.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		*seenVariableSets = append(*seenVariableSets, req.Variables)
		resp := make(ndc.QueryResponse, len(req.Variables))
		for i, v := range req.Variables {
			resp[i] = ndc.RowSet{Rows: byKey[v[keyField]]}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func errorHandler(status int, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(ndc.ErrorResponse{Message: message})
	}
}
