// Package server adapts the engine's query pipeline (internal/queryir,
// internal/planner, internal/executor) to an HTTP GraphQL endpoint, the way
// the teacher's server.go adapts its own IR/Runtime pipeline.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	eventbus "github.com/opendd/ddnengine/internal/eventbus"
	events "github.com/opendd/ddnengine/internal/events"
	executor "github.com/opendd/ddnengine/internal/executor"
	introspection "github.com/opendd/ddnengine/internal/introspection"
	language "github.com/opendd/ddnengine/internal/language"
	metadataresolve "github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/ndc"
	"github.com/opendd/ddnengine/internal/opendd"
	"github.com/opendd/ddnengine/internal/planner"
	"github.com/opendd/ddnengine/internal/queryir"
	reqid "github.com/opendd/ddnengine/internal/reqid"
	schema "github.com/opendd/ddnengine/internal/schema"
)

// sessionVariableHeaderPrefix is the convention used to turn inbound HTTP
// headers into OpenDD session variables: every "x-hasura-*" header becomes
// a session variable of the same name, and "x-hasura-role" additionally
// selects which per-role schema.Schema the request is built against.
const sessionVariableHeaderPrefix = "x-hasura-"
const roleHeader = "x-hasura-role"

// DefaultRole is used when a request carries no x-hasura-role header.
const DefaultRole = "admin"

// Handler is an http.Handler serving the GraphQL endpoint plus the
// auxiliary metadata/health/explain routes of spec.md §6.
type Handler struct {
	schemas  map[string]*schema.Schema
	sdls     map[string]string
	metadata *metadataresolve.Metadata
	raw      *opendd.Metadata
	rawJSON  []byte
	rawHash  string
	clients  executor.Clients
	opt      Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// MetadataHeaders lists additional inbound HTTP headers to forward on
	// every outbound NDC connector request, e.g. for a downstream tracing
	// sidecar.
	MetadataHeaders []string

	// GraphiQL enables the in-browser IDE when true.
	GraphiQL bool
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithMetadataHeaders(headers ...string) Option {
	return func(o *Options) { o.MetadataHeaders = headers }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

func WithGraphiQL(enable bool) Option { return func(o *Options) { o.GraphiQL = enable } }

// New builds the HTTP handler for one resolved metadata document: schemas
// is the per-role schema.Schema map built by schema.BuildForRole, and
// clients is the NDC client for every data connector the metadata names.
func New(md *metadataresolve.Metadata, raw *opendd.Metadata, schemas map[string]*schema.Schema, clients executor.Clients, opts ...Option) (*Handler, error) {
	if len(schemas) == 0 {
		return nil, fmt.Errorf("server: at least one role schema is required")
	}
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("server: marshal metadata: %w", err)
	}
	sum := sha256.Sum256(rawJSON)

	sdls := make(map[string]string, len(schemas))
	for role, s := range schemas {
		sdls[role] = executor.ServiceSDL(s, md)
	}

	op := Options{Timeout: 10 * time.Second, GraphiQL: true}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{
		schemas:  schemas,
		sdls:     sdls,
		metadata: md,
		raw:      raw,
		rawJSON:  rawJSON,
		rawHash:  base64.StdEncoding.EncodeToString(sum[:]),
		clients:  clients,
		opt:      op,
	}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.NewContext(ctx)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	switch {
	case r.URL.Path == "/health" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"}, h.opt.Pretty)
		return
	case r.URL.Path == "/metadata" && r.Method == http.MethodGet:
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(h.rawJSON)
		return
	case r.URL.Path == "/metadata-hash" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"hash": h.rawHash}, h.opt.Pretty)
		return
	case r.URL.Path == "/v1/explain" && r.Method == http.MethodPost:
		h.serveExplain(w, r)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, parseErrorResponse(fmt.Errorf("method not allowed")), h.opt.Pretty)
		return
	}

	// A bare GET /graphql with an Upgrade header is the WebSocket
	// subprotocol handshake; subscriptions themselves are out of scope
	// (spec.md §1 Non-goals), so only the handshake is honored.
	if r.Method == http.MethodGet && isWebSocketUpgrade(r) {
		h.serveWebSocketHandshake(w, r)
		return
	}

	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	forwarded := make(map[string][]string, len(h.opt.MetadataHeaders)+1)
	if len(h.opt.MetadataHeaders) > 0 {
		allowed := make(map[string]struct{}, len(h.opt.MetadataHeaders))
		for _, hdr := range h.opt.MetadataHeaders {
			allowed[strings.ToLower(hdr)] = struct{}{}
		}
		for k, v := range r.Header {
			if _, ok := allowed[strings.ToLower(k)]; ok {
				forwarded[strings.ToLower(k)] = v
			}
		}
	}
	forwarded["graphql-request-id"] = []string{rid}
	ctx = ndc.ContextWithForwardedHeaders(ctx, forwarded)

	role, sessionVars := sessionContext(r.Header)

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = http.StatusBadRequest
		if berr.Message == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse(berr), h.opt.Pretty)
		return
	}

	if batch != nil {
		op := make([]any, len(batch))
		for i := range batch {
			op[i] = h.executeOne(ctx, batch[i], role, sessionVars, rid)
		}
		writeJSON(w, status, op, h.opt.Pretty)
		return
	}

	res := h.executeOne(ctx, req, role, sessionVars, rid)
	writeJSON(w, status, res, h.opt.Pretty)
}

// sessionContext extracts the requesting role and its session variables
// from the inbound headers, per the x-hasura-* header convention.
func sessionContext(header http.Header) (string, map[string]any) {
	role := DefaultRole
	vars := map[string]any{}
	for k, v := range header {
		lk := strings.ToLower(k)
		if !strings.HasPrefix(lk, sessionVariableHeaderPrefix) || len(v) == 0 {
			continue
		}
		if lk == roleHeader {
			role = v[0]
			continue
		}
		vars[lk] = v[0]
	}
	return role, vars
}

func (h *Handler) executeOne(ctx context.Context, req GraphQLRequest, role string, sessionVars map[string]any, rid string) *executor.Response {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return parseErrorResponse(err)
	}

	s, ok := h.schemas[role]
	if !ok {
		return parseErrorResponse(fmt.Errorf("unknown role %q", role))
	}

	opType := operationType(doc, req.OperationName)
	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: req.OperationName, OperationType: opType})

	var resp *executor.Response
	if opType == "query" {
		if op, rootFields, rerr := queryir.RootFields(doc, req.OperationName); rerr == nil && allMetaFields(rootFields) {
			resp = h.executeIntrospection(doc, s, op, rootFields, req.Variables)
		}
	}
	if resp == nil {
		queryFields, mutationFields, _, err := queryir.BuildRequest(doc, req.OperationName, req.Variables, sessionVars, s, h.metadata, role)
		if err != nil {
			resp = parseErrorResponse(err)
		} else {
			qp, mp, perr := planner.Plan(h.metadata, queryFields, mutationFields)
			if perr != nil {
				resp = parseErrorResponse(perr)
			} else {
				resp = executor.Execute(ctx, qp, mp, h.clients, h.sdls[role], rid)
			}
		}
	}

	var errs []error
	for _, e := range resp.Errors {
		errs = append(errs, fmt.Errorf("%s", e.Message))
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        errs,
		Duration:      time.Since(start),
	})
	return resp
}

// allMetaFields reports whether every root field of a query is a schema
// introspection meta-field ("__schema"/"__type"/"__typename"), the only
// shape internal/introspection short-circuits. A query mixing a meta-field
// with a real data field falls through to the normal IR/plan/execute
// pipeline, where the meta-field fails as a field not found on the root type:
// GraphiQL and generic schema-fetching tools always send a pure
// introspection query, so this covers the cases that matter in practice.
func allMetaFields(fields []*language.Field) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if f.Name != "__typename" && !introspection.IsMetaField(f.Name) {
			return false
		}
	}
	return true
}

// executeIntrospection answers a query whose root fields are all schema
// meta-fields, bypassing queryir/planner/executor entirely since none of
// them ever reaches a data connector.
func (h *Handler) executeIntrospection(doc *language.QueryDocument, s *schema.Schema, op *language.OperationDefinition, fields []*language.Field, variableValues map[string]any) *executor.Response {
	vars := queryir.CoerceVariables(op, variableValues)
	data := make(executor.OrderedData, 0, len(fields))
	for _, f := range fields {
		alias := f.Alias
		if alias == "" {
			alias = f.Name
		}
		if f.Name == "__typename" {
			data = append(data, executor.DataField{Name: alias, Value: "Query"})
			continue
		}
		v, err := introspection.Resolve(doc, f, s, vars)
		if err != nil {
			return parseErrorResponse(err)
		}
		data = append(data, executor.DataField{Name: alias, Value: v})
	}
	return &executor.Response{Data: data}
}

func operationType(doc *language.QueryDocument, operationName string) string {
	op := doc.Operations.ForName(operationName)
	if op == nil && len(doc.Operations) == 1 {
		op = doc.Operations[0]
	}
	if op == nil {
		return ""
	}
	return string(op.Operation)
}

// serveExplain runs the IR builder and planner without executing anything,
// returning the resulting QueryPlan/MutationPlan as JSON (spec.md §6's
// `POST /v1/explain`).
func (h *Handler) serveExplain(w http.ResponseWriter, r *http.Request) {
	role, sessionVars := sessionContext(r.Header)
	req, _, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(berr), h.opt.Pretty)
		return
	}
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, parseErrorResponse(err), h.opt.Pretty)
		return
	}
	s, ok := h.schemas[role]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": fmt.Sprintf("unknown role %q", role)}, h.opt.Pretty)
		return
	}
	queryFields, mutationFields, _, err := queryir.BuildRequest(doc, req.OperationName, req.Variables, sessionVars, s, h.metadata, role)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()}, h.opt.Pretty)
		return
	}
	qp, mp, err := planner.Plan(h.metadata, queryFields, mutationFields)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()}, h.opt.Pretty)
		return
	}
	out := map[string]any{}
	if qp != nil {
		out["query"] = qp
	}
	if mp != nil {
		out["mutation"] = mp
	}
	writeJSON(w, http.StatusOK, out, h.opt.Pretty)
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// requestError is a malformed-request failure raised while parsing the HTTP
// envelope itself, before any GraphQL document exists to attach errors to.
type requestError struct {
	Message string
}

func (e *requestError) Error() string { return e.Message }

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, *requestError) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return GraphQLRequest{}, nil, &requestError{Message: "missing 'query'"}
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return GraphQLRequest{}, nil, &requestError{Message: "invalid 'variables' JSON"}
			}
		}
		op := r.URL.Query().Get("operationName")
		return GraphQLRequest{Query: q, Variables: vars, OperationName: op}, nil, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct == "" || ct == "application/json" || startsWith(ct, "application/json;") {
		reader := io.Reader(r.Body)
		if maxBody > 0 {
			reader = io.LimitReader(r.Body, maxBody+1)
		}
		body, err := io.ReadAll(reader)
		if err != nil {
			return GraphQLRequest{}, nil, &requestError{Message: "failed to read body"}
		}
		defer r.Body.Close()
		if maxBody > 0 && int64(len(body)) > maxBody {
			return GraphQLRequest{}, nil, &requestError{Message: errBodyTooLargeMessage}
		}

		var arr []GraphQLRequest
		if len(body) > 0 && body[0] == '[' {
			if err := json.Unmarshal(body, &arr); err != nil {
				return GraphQLRequest{}, nil, &requestError{Message: "invalid JSON"}
			}
			if len(arr) == 0 {
				return GraphQLRequest{}, nil, &requestError{Message: "empty batch"}
			}
			return GraphQLRequest{}, arr, nil
		}
		var req GraphQLRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return GraphQLRequest{}, nil, &requestError{Message: "invalid JSON"}
		}
		if req.Query == "" {
			return GraphQLRequest{}, nil, &requestError{Message: "missing 'query'"}
		}
		if req.Variables == nil {
			req.Variables = map[string]any{}
		}
		return req, nil, nil
	}

	return GraphQLRequest{}, nil, &requestError{Message: "unsupported Content-Type"}
}

// ------------------ Response formatting ------------------

func errorResponse(err *requestError) *executor.Response {
	return &executor.Response{Errors: []*executor.ResponseError{{Message: err.Message}}}
}

func parseErrorResponse(err error) *executor.Response {
	return &executor.Response{Errors: []*executor.ResponseError{{Message: err.Error()}}}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func startsWith(s, prefix string) bool { return len(s) >= len(prefix) && s[:len(prefix)] == prefix }

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func acceptsHTML(accept string) bool {
	if accept == "" {
		return false
	}
	parts := strings.Split(accept, ",")
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if startsWith(p, "text/html") || p == "*/*" {
			return true
		}
	}
	return false
}
