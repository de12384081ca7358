package ndc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	eventbus "github.com/opendd/ddnengine/internal/eventbus"
	events "github.com/opendd/ddnengine/internal/events"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var callSeq atomic.Int64

type forwardedHeadersKey struct{}

// ContextWithForwardedHeaders attaches request headers (selected by the
// server's metadata_headers allowlist) that every outbound NDC call made
// within ctx should carry, on top of each Client's own static headers.
func ContextWithForwardedHeaders(ctx context.Context, headers map[string][]string) context.Context {
	return context.WithValue(ctx, forwardedHeadersKey{}, headers)
}

func forwardedHeadersFromContext(ctx context.Context) map[string][]string {
	headers, _ := ctx.Value(forwardedHeadersKey{}).(map[string][]string)
	return headers
}

// Client is a thin HTTP client for one connector link, instrumented with
// otelhttp so every outbound NDC call gets a span the engine's own trace can
// nest under. One Client is built per DataConnectorLink at startup and
// shared read-only across request goroutines.
type Client struct {
	baseURL    string
	writeURL   string
	headers    map[string]string
	httpClient *http.Client
}

// NewClient wraps http.Client's Transport with otelhttp.NewTransport so
// every request/response pair becomes a span tagged with the connector's
// host, matching the teacher's pattern of instrumenting at the transport
// layer rather than hand-writing span calls at each call site.
func NewClient(baseURL, writeURL string, headers map[string]string, timeout time.Duration) *Client {
	transport := otelhttp.NewTransport(http.DefaultTransport)
	return &Client{
		baseURL:  baseURL,
		writeURL: writeURL,
		headers:  headers,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

func (c *Client) Schema(ctx context.Context) (*SchemaResponse, error) {
	var resp SchemaResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/schema", nil, &resp); err != nil {
		return nil, fmt.Errorf("ndc schema request: %w", err)
	}
	return &resp, nil
}

func (c *Client) Capabilities(ctx context.Context) (*CapabilitiesResponse, error) {
	var resp CapabilitiesResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/capabilities", nil, &resp); err != nil {
		return nil, fmt.Errorf("ndc capabilities request: %w", err)
	}
	return &resp, nil
}

func (c *Client) Query(ctx context.Context, req *QueryRequest) (resp QueryResponse, err error) {
	url := c.baseURL + "/query"
	defer c.traceCall(ctx, "query", url, &err)()

	if err = c.do(ctx, http.MethodPost, url, req, &resp); err != nil {
		return nil, fmt.Errorf("ndc query request: %w", err)
	}
	return resp, nil
}

// Mutation posts to the connector's write URL when the link declares one
// separately from its read URL, matching DataConnectorURL's ReadWrite split
// in spec.md §3.
func (c *Client) Mutation(ctx context.Context, req *MutationRequest) (resp *MutationResponse, err error) {
	base := c.baseURL
	if c.writeURL != "" {
		base = c.writeURL
	}
	url := base + "/mutation"
	defer c.traceCall(ctx, "mutation", url, &err)()

	resp = &MutationResponse{}
	if err = c.do(ctx, http.MethodPost, url, req, resp); err != nil {
		return nil, fmt.Errorf("ndc mutation request: %w", err)
	}
	return resp, nil
}

// traceCall publishes matched Start/Finish connector-call events, keyed by
// a monotonic id since concurrent root fields can hold several calls to the
// same connector in flight at once.
func (c *Client) traceCall(ctx context.Context, op, url string, errp *error) func() {
	id := callSeq.Add(1)
	start := time.Now()
	eventbus.Publish(ctx, events.ConnectorCallStart{CallID: id, Operation: op, URL: url})
	return func() {
		eventbus.Publish(ctx, events.ConnectorCallFinish{
			CallID:    id,
			Operation: op,
			URL:       url,
			Err:       *errp,
			Duration:  time.Since(start),
		})
	}
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, vs := range forwardedHeadersFromContext(ctx) {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errResp ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Message == "" {
			errResp.Message = resp.Status
		}
		return &ConnectorError{StatusCode: resp.StatusCode, Message: errResp.Message, Details: errResp.Details}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ConnectorError wraps a non-2xx NDC response, letting callers distinguish
// "connector rejected the request" from transport-level failures.
type ConnectorError struct {
	StatusCode int
	Message    string
	Details    map[string]any
}

func (e *ConnectorError) Error() string {
	return fmt.Sprintf("ndc connector error (status %d): %s", e.StatusCode, e.Message)
}
