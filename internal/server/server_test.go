package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opendd/ddnengine/internal/executor"
	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/ndc"
	"github.com/opendd/ddnengine/internal/opendd"
	"github.com/opendd/ddnengine/internal/schema"
	"github.com/opendd/ddnengine/internal/server"
)

// newTestHandler wires the fixture used by internal/planner's own tests
// (app.json: one "pg" connector, a single "actors" model) into a real
// server.Handler, with the connector backed by an httptest.Server so
// requests exercise the full queryir -> planner -> executor pipeline.
func newTestHandler(t *testing.T, connectorHandler http.HandlerFunc, opts ...server.Option) *server.Handler {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "queryir", "testdata", "app.json"))
	require.NoError(t, err)

	loader := opendd.NewInMemoryLoader(map[string][]byte{"app.json": raw})
	doc, err := opendd.Load(context.Background(), loader)
	require.NoError(t, err)

	md, err := metadataresolve.Resolve(doc)
	require.NoError(t, err)

	s, err := schema.BuildForRole(md, "admin")
	require.NoError(t, err)

	clients := executor.Clients{}
	if connectorHandler != nil {
		srv := httptest.NewServer(connectorHandler)
		t.Cleanup(srv.Close)
		clients[metadataresolve.Qualified[metadataresolve.DataConnectorName]{Subgraph: "app", Name: "pg"}] = ndc.NewClient(srv.URL, "", nil, 5*time.Second)
	}

	h, err := server.New(md, doc, map[string]*schema.Schema{"admin": s}, clients, opts...)
	require.NoError(t, err)
	return h
}

func actorsHandler(rows []map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ndc.QueryResponse{{Rows: rows}}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestServeHTTPExecutesQuery(t *testing.T) {
	h := newTestHandler(t, actorsHandler([]map[string]any{{"id": "1", "name": "Keanu", "bio": nil}}))

	req := httptest.NewRequest("POST", "/graphql", bytes.NewBufferString(`{"query":"{ actors { id name } }"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var out executor.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Empty(t, out.Errors)
	data := out.Data.(map[string]any)
	require.Equal(t, []any{map[string]any{"id": "1", "name": "Keanu"}}, data["actors"])
}

func TestServeHTTPUnknownRole(t *testing.T) {
	h := newTestHandler(t, actorsHandler(nil))

	req := httptest.NewRequest("POST", "/graphql", bytes.NewBufferString(`{"query":"{ actors { id } }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-hasura-role", "nonexistent")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var out executor.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Errors, 1)
}

func TestHealthMetadataAndHashEndpoints(t *testing.T) {
	h := newTestHandler(t, nil)

	hReq := httptest.NewRequest("GET", "/health", nil)
	hw := httptest.NewRecorder()
	h.ServeHTTP(hw, hReq)
	require.Equal(t, http.StatusOK, hw.Code)

	mReq := httptest.NewRequest("GET", "/metadata", nil)
	mw := httptest.NewRecorder()
	h.ServeHTTP(mw, mReq)
	require.Equal(t, http.StatusOK, mw.Code)
	require.NotEmpty(t, mw.Body.Bytes())

	hashReq := httptest.NewRequest("GET", "/metadata-hash", nil)
	hashW := httptest.NewRecorder()
	h.ServeHTTP(hashW, hashReq)
	require.Equal(t, http.StatusOK, hashW.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(hashW.Body.Bytes(), &body))
	require.NotEmpty(t, body["hash"])
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, nil, server.WithMaxBodyBytes(10))

	req := httptest.NewRequest("POST", "/graphql", bytes.NewBufferString(`{"query":"1234567890"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, actorsHandler(nil), server.WithCORS("*"))

	req := httptest.NewRequest("POST", "/graphql", bytes.NewBufferString(`{"query":"{ actors { id } }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRequest("OPTIONS", "/graphql", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	require.Equal(t, http.StatusNoContent, pw.Code)
	require.Equal(t, "*", pw.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Test", pw.Header().Get("Access-Control-Allow-Headers"))
}

func TestExplainEndpointDoesNotCallConnector(t *testing.T) {
	called := false
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		actorsHandler(nil)(w, r)
	})

	req := httptest.NewRequest("POST", "/v1/explain", bytes.NewBufferString(`{"query":"{ actors { id } }"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, called, "/v1/explain must not issue any NDC request")
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Contains(t, out, "query")
}
