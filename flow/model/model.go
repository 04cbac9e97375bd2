// Package model provides the LLM chat abstraction used by the llm and
// router node handlers.
package model

import "context"

// Standard role constants for chat conversations, aligned with the
// conventions of the major providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single message in a chat conversation.
type Message struct {
	// Role identifies the sender; use the Role* constants.
	Role string

	// Content is the message text.
	Content string
}

// ChatOut is a provider response.
type ChatOut struct {
	// Text is the generated completion.
	Text string

	// TokensUsed is the total token count the provider reported, zero if
	// unavailable.
	TokensUsed int
}

// ChatModel abstracts an LLM chat provider (OpenAI, Anthropic, Google,
// local models) behind a single call.
//
// Implementations handle provider-specific authentication and message
// formats, translate errors to plain Go errors, and respect context
// cancellation. They must be safe for concurrent use: several workflow
// nodes may call the same model at once.
type ChatModel interface {
	// Chat sends the conversation to the provider and returns its reply.
	Chat(ctx context.Context, messages []Message) (ChatOut, error)
}
