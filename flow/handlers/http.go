package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/flowmaestro/flowmaestro-go/flow"
)

// HTTP executes http nodes: it performs a request against an external
// service and emits the response.
//
// Configuration:
//   - url: target URL (required)
//   - method: GET, POST, PUT, PATCH or DELETE (defaults to GET)
//   - headers: map of request headers (optional)
//   - body: request body string (optional)
//
// Output: {"status_code": <int>, "headers": <map>, "body": <string>}.
//
// A transport error fails the node. A non-2xx response does not: it
// activates the node's error port instead, so workflows can wire an `error`
// edge to a fallback branch while siblings continue.
type HTTP struct {
	client *http.Client
}

// NewHTTP creates the http node handler with a default client. Timeouts are
// applied through the request context.
func NewHTTP() *HTTP {
	return &HTTP{client: &http.Client{}}
}

// NewHTTPWithClient creates the http node handler with a custom client.
func NewHTTPWithClient(client *http.Client) *HTTP {
	return &HTTP{client: client}
}

// CanHandle implements flow.Handler.
func (h *HTTP) CanHandle(t flow.NodeType) bool {
	return t == flow.NodeHTTP
}

// Execute implements flow.Handler.
func (h *HTTP) Execute(ctx context.Context, req flow.Request) (flow.Result, error) {
	urlStr, _ := req.Config["url"].(string)
	if urlStr == "" {
		return flow.Result{}, fmt.Errorf("http node %s: config has no url", req.NodeID)
	}

	method := "GET"
	if m, ok := req.Config["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	switch method {
	case "GET", "POST", "PUT", "PATCH", "DELETE":
	default:
		return flow.Result{}, fmt.Errorf("http node %s: unsupported method %s", req.NodeID, method)
	}

	var body io.Reader
	if bodyStr, ok := req.Config["body"].(string); ok && bodyStr != "" {
		body = bytes.NewBufferString(bodyStr)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return flow.Result{}, fmt.Errorf("http node %s: %w", req.NodeID, err)
	}
	if headers, ok := req.Config["headers"].(map[string]any); ok {
		for key, value := range headers {
			if s, ok := value.(string); ok {
				httpReq.Header.Set(key, s)
			}
		}
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return flow.Result{}, fmt.Errorf("http node %s: %w", req.NodeID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return flow.Result{}, fmt.Errorf("http node %s: read response: %w", req.NodeID, err)
	}

	respHeaders := make(map[string]any, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) == 1 {
			respHeaders[key] = values[0]
		} else {
			respHeaders[key] = values
		}
	}

	result := flow.Result{
		Output: map[string]any{
			"status_code": resp.StatusCode,
			"headers":     respHeaders,
			"body":        string(respBody),
		},
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Signals.ActivateErrorPort = string(flow.HandleError)
	}
	return result, nil
}
