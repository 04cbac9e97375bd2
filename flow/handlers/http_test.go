package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowmaestro/flowmaestro-go/flow"
)

func TestHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/echo":
			body, _ := io.ReadAll(r.Body)
			w.Header().Set("X-Method", r.Method)
			w.Header().Set("X-Token", r.Header.Get("Authorization"))
			_, _ = w.Write(body)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not here"))
		}
	}))
	defer server.Close()

	h := NewHTTP()

	t.Run("get", func(t *testing.T) {
		res, err := h.Execute(context.Background(), flow.Request{NodeID: "call", Config: map[string]any{
			"url": server.URL + "/echo",
		}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := res.Output.(map[string]any)
		if out["status_code"] != 200 {
			t.Errorf("expected 200, got %v", out["status_code"])
		}
		headers := out["headers"].(map[string]any)
		if headers["X-Method"] != "GET" {
			t.Errorf("expected GET echoed, got %v", headers["X-Method"])
		}
		if res.Signals.ActivateErrorPort != "" {
			t.Errorf("unexpected error port signal %q", res.Signals.ActivateErrorPort)
		}
	})

	t.Run("post with headers and body", func(t *testing.T) {
		res, err := h.Execute(context.Background(), flow.Request{NodeID: "call", Config: map[string]any{
			"url":    server.URL + "/echo",
			"method": "post",
			"body":   `{"hello":"world"}`,
			"headers": map[string]any{
				"Authorization": "Bearer token",
			},
		}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := res.Output.(map[string]any)
		if out["body"] != `{"hello":"world"}` {
			t.Errorf("expected body echoed, got %v", out["body"])
		}
		headers := out["headers"].(map[string]any)
		if headers["X-Token"] != "Bearer token" {
			t.Errorf("expected auth header forwarded, got %v", headers["X-Token"])
		}
	})

	t.Run("non-2xx activates the error port", func(t *testing.T) {
		res, err := h.Execute(context.Background(), flow.Request{NodeID: "call", Config: map[string]any{
			"url": server.URL + "/missing",
		}})
		if err != nil {
			t.Fatalf("expected no handler error on 404, got %v", err)
		}
		out := res.Output.(map[string]any)
		if out["status_code"] != 404 || out["body"] != "not here" {
			t.Errorf("expected 404 response surfaced, got %v", out)
		}
		if res.Signals.ActivateErrorPort != "error" {
			t.Errorf("expected error port signal, got %q", res.Signals.ActivateErrorPort)
		}
	})

	t.Run("invalid config fails", func(t *testing.T) {
		if _, err := h.Execute(context.Background(), flow.Request{NodeID: "call", Config: map[string]any{}}); err == nil {
			t.Error("expected error for missing url")
		}
		if _, err := h.Execute(context.Background(), flow.Request{NodeID: "call", Config: map[string]any{
			"url":    server.URL,
			"method": "TRACE",
		}}); err == nil {
			t.Error("expected error for unsupported method")
		}
	})

	t.Run("transport failure fails the node", func(t *testing.T) {
		if _, err := h.Execute(context.Background(), flow.Request{NodeID: "call", Config: map[string]any{
			"url": "http://127.0.0.1:1/unreachable",
		}}); err == nil {
			t.Error("expected transport error")
		}
	})
}
