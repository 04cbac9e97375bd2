package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/flowmaestro/flowmaestro-go/flow"
	"github.com/flowmaestro/flowmaestro-go/flow/model"
)

func routerConfig() map[string]any {
	return map[string]any{
		"input": "My invoice is wrong",
		"routes": []any{
			map[string]any{"name": "billing", "description": "payment and invoice issues"},
			map[string]any{"name": "support", "description": "technical problems"},
		},
		"defaultRoute": "support",
	}
}

func TestRouter(t *testing.T) {
	t.Run("routes on the classifier decision", func(t *testing.T) {
		chat := &model.MockChatModel{Responses: []model.ChatOut{
			{Text: `{"route":"billing","confidence":0.92,"reasoning":"mentions an invoice"}`, TokensUsed: 30},
		}}
		h := NewRouter(chat)

		res, err := h.Execute(context.Background(), flow.Request{NodeID: "router", Config: routerConfig()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Signals.SelectedRoute != "billing" {
			t.Errorf("expected billing, got %q", res.Signals.SelectedRoute)
		}
		out := res.Output.(map[string]any)
		if out["confidence"] != 0.92 {
			t.Errorf("expected confidence preserved, got %v", out["confidence"])
		}
		if res.Metrics.TokensUsed != 30 {
			t.Errorf("expected token usage surfaced, got %d", res.Metrics.TokensUsed)
		}
	})

	t.Run("tolerates markdown fences", func(t *testing.T) {
		chat := &model.MockChatModel{Responses: []model.ChatOut{
			{Text: "```json\n{\"route\":\"billing\",\"confidence\":0.8}\n```"},
		}}
		h := NewRouter(chat)

		res, err := h.Execute(context.Background(), flow.Request{NodeID: "router", Config: routerConfig()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Signals.SelectedRoute != "billing" {
			t.Errorf("expected billing, got %q", res.Signals.SelectedRoute)
		}
	})

	t.Run("unknown route falls back to default", func(t *testing.T) {
		chat := &model.MockChatModel{Responses: []model.ChatOut{
			{Text: `{"route":"refunds","confidence":0.99}`},
		}}
		h := NewRouter(chat)

		res, err := h.Execute(context.Background(), flow.Request{NodeID: "router", Config: routerConfig()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Signals.SelectedRoute != "support" {
			t.Errorf("expected default route, got %q", res.Signals.SelectedRoute)
		}
	})

	t.Run("unparseable response falls back to default", func(t *testing.T) {
		chat := &model.MockChatModel{Responses: []model.ChatOut{
			{Text: "I think this belongs to billing, probably."},
		}}
		h := NewRouter(chat)

		res, err := h.Execute(context.Background(), flow.Request{NodeID: "router", Config: routerConfig()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Signals.SelectedRoute != "support" {
			t.Errorf("expected default route, got %q", res.Signals.SelectedRoute)
		}
	})

	t.Run("provider failure fails the node", func(t *testing.T) {
		chat := &model.MockChatModel{Err: errors.New("rate limited")}
		h := NewRouter(chat)

		if _, err := h.Execute(context.Background(), flow.Request{NodeID: "router", Config: routerConfig()}); err == nil {
			t.Error("expected provider error to propagate")
		}
	})

	t.Run("prompt lists routes and input", func(t *testing.T) {
		chat := &model.MockChatModel{Responses: []model.ChatOut{{Text: `{"route":"billing"}`}}}
		h := NewRouter(chat)

		if _, err := h.Execute(context.Background(), flow.Request{NodeID: "router", Config: routerConfig()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(chat.Calls) != 1 {
			t.Fatalf("expected one chat call, got %d", len(chat.Calls))
		}
		prompt := chat.Calls[0][len(chat.Calls[0])-1].Content
		if !strings.Contains(prompt, "billing") || !strings.Contains(prompt, "My invoice is wrong") {
			t.Errorf("prompt missing routes or input: %q", prompt)
		}
	})

	t.Run("invalid config fails", func(t *testing.T) {
		h := NewRouter(&model.MockChatModel{})
		if _, err := h.Execute(context.Background(), flow.Request{NodeID: "router", Config: map[string]any{"routes": []any{}}}); err == nil {
			t.Error("expected error for missing input")
		}
		if _, err := h.Execute(context.Background(), flow.Request{NodeID: "router", Config: map[string]any{"input": "x"}}); err == nil {
			t.Error("expected error for missing routes")
		}
	})
}
