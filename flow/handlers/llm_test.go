package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/flowmaestro/flowmaestro-go/flow"
	"github.com/flowmaestro/flowmaestro-go/flow/model"
)

func TestLLM(t *testing.T) {
	t.Run("sends prompt and surfaces the completion", func(t *testing.T) {
		chat := &model.MockChatModel{Responses: []model.ChatOut{{Text: "a haiku", TokensUsed: 17}}}
		h := NewLLM(chat)

		res, err := h.Execute(context.Background(), flow.Request{NodeID: "llm", Config: map[string]any{
			"prompt": "Write a haiku about rivers",
		}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := res.Output.(map[string]any)
		if out["text"] != "a haiku" {
			t.Errorf("expected completion text, got %v", out["text"])
		}
		if res.Metrics.TokensUsed != 17 {
			t.Errorf("expected 17 tokens, got %d", res.Metrics.TokensUsed)
		}

		if len(chat.Calls) != 1 || len(chat.Calls[0]) != 1 {
			t.Fatalf("expected one user message, got %v", chat.Calls)
		}
		if chat.Calls[0][0].Role != model.RoleUser {
			t.Errorf("expected user role, got %q", chat.Calls[0][0].Role)
		}
	})

	t.Run("system prompt prepended", func(t *testing.T) {
		chat := &model.MockChatModel{Responses: []model.ChatOut{{Text: "ok"}}}
		h := NewLLM(chat)

		_, err := h.Execute(context.Background(), flow.Request{NodeID: "llm", Config: map[string]any{
			"prompt": "hello",
			"system": "You are terse.",
		}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		msgs := chat.Calls[0]
		if len(msgs) != 2 || msgs[0].Role != model.RoleSystem || msgs[0].Content != "You are terse." {
			t.Errorf("expected system message first, got %v", msgs)
		}
	})

	t.Run("missing prompt fails", func(t *testing.T) {
		h := NewLLM(&model.MockChatModel{})
		if _, err := h.Execute(context.Background(), flow.Request{NodeID: "llm", Config: map[string]any{}}); err == nil {
			t.Error("expected error for missing prompt")
		}
	})

	t.Run("provider failure fails the node", func(t *testing.T) {
		h := NewLLM(&model.MockChatModel{Err: errors.New("overloaded")})
		if _, err := h.Execute(context.Background(), flow.Request{NodeID: "llm", Config: map[string]any{"prompt": "x"}}); err == nil {
			t.Error("expected provider error to propagate")
		}
	})
}
