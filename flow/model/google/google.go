// Package google adapts Google's Gemini API to the model.ChatModel
// interface.
package google

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/flowmaestro/flowmaestro-go/flow/model"
)

const defaultModel = "gemini-2.0-flash"

// ChatModel implements model.ChatModel for Gemini models.
type ChatModel struct {
	client    *genai.Client
	modelName string
}

// NewChatModel creates a Gemini-backed chat model. An empty model name
// selects a default. Close the returned model when done.
func NewChatModel(ctx context.Context, apiKey, modelName string) (*ChatModel, error) {
	if apiKey == "" {
		return nil, errors.New("Google API key is required")
	}
	if modelName == "" {
		modelName = defaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &ChatModel{client: client, modelName: modelName}, nil
}

// Close releases the underlying client connection.
func (m *ChatModel) Close() error {
	return m.client.Close()
}

// Chat implements model.ChatModel. System messages become the system
// instruction; the final user message is sent as the prompt with earlier
// turns as chat history.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	gm := m.client.GenerativeModel(m.modelName)

	var system strings.Builder
	var turns []model.Message
	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n")
			}
			system.WriteString(msg.Content)
			continue
		}
		turns = append(turns, msg)
	}
	if system.Len() > 0 {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system.String())}}
	}
	if len(turns) == 0 {
		return model.ChatOut{}, errors.New("no user messages to send")
	}

	session := gm.StartChat()
	for _, msg := range turns[:len(turns)-1] {
		role := "user"
		if msg.Role == model.RoleAssistant {
			role = "model"
		}
		session.History = append(session.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	resp, err := session.SendMessage(ctx, genai.Text(turns[len(turns)-1].Content))
	if err != nil {
		return model.ChatOut{}, err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return model.ChatOut{}, errors.New("no response from Gemini API")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if text.Len() == 0 {
		return model.ChatOut{}, errors.New("no text content in Gemini response")
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return model.ChatOut{Text: text.String(), TokensUsed: tokens}, nil
}
