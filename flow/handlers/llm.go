package handlers

import (
	"context"
	"fmt"

	"github.com/flowmaestro/flowmaestro-go/flow"
	"github.com/flowmaestro/flowmaestro-go/flow/model"
)

// LLM executes llm nodes: it sends a prompt to a chat model and emits the
// completion.
//
// Configuration:
//   - prompt: the user prompt (required; placeholders resolved before
//     dispatch)
//   - system: a system prompt (optional)
//
// Output: {"text": <completion>}. Token usage reported by the provider is
// surfaced through the result metrics.
type LLM struct {
	chat model.ChatModel
}

// NewLLM creates the llm node handler backed by the given chat model.
func NewLLM(chat model.ChatModel) *LLM {
	return &LLM{chat: chat}
}

// CanHandle implements flow.Handler.
func (l *LLM) CanHandle(t flow.NodeType) bool {
	return t == flow.NodeLLM
}

// Execute implements flow.Handler.
func (l *LLM) Execute(ctx context.Context, req flow.Request) (flow.Result, error) {
	prompt, _ := req.Config["prompt"].(string)
	if prompt == "" {
		return flow.Result{}, fmt.Errorf("llm node %s: config has no prompt", req.NodeID)
	}

	var messages []model.Message
	if system, _ := req.Config["system"].(string); system != "" {
		messages = append(messages, model.Message{Role: model.RoleSystem, Content: system})
	}
	messages = append(messages, model.Message{Role: model.RoleUser, Content: prompt})

	out, err := l.chat.Chat(ctx, messages)
	if err != nil {
		return flow.Result{}, fmt.Errorf("llm node %s: %w", req.NodeID, err)
	}

	return flow.Result{
		Output:  map[string]any{"text": out.Text},
		Metrics: flow.Metrics{TokensUsed: out.TokensUsed},
	}, nil
}
