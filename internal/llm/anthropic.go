package llm

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// AnthropicClient implements Reasoner with the Anthropic messages API
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a messages client. baseURL may be empty.
func NewAnthropicClient(apiKey, model, baseURL string) *AnthropicClient {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &AnthropicClient{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

// Provider implements Reasoner
func (c *AnthropicClient) Provider() string { return "anthropic" }

// Complete implements Reasoner. System messages become system parts, the rest keep their order.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	var systemParts []anthropic.MessageSystemPart
	var messages []anthropic.Message

	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			systemParts = append(systemParts, anthropic.MessageSystemPart{
				Type: "text",
				Text: m.Content,
			})
		case RoleAssistant:
			messages = append(messages, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
			})
		default:
			messages = append(messages, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
			})
		}
	}

	temperature := req.Temperature
	mr := anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: &temperature,
	}
	if len(systemParts) > 0 {
		mr.MultiSystem = systemParts
	}

	resp, err := c.client.CreateMessages(ctx, mr)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text.WriteString(*block.Text)
		}
	}
	if text.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return text.String(), nil
}
