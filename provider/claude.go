package provider

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cort-sh/cort/cort"
)

// ClaudeClient talks to Anthropic's native Messages API.
type ClaudeClient struct {
	model   string
	client  *anthropic.Client
	onChunk StreamFunc
}

func newClaudeClient(opts Options) (*ClaudeClient, error) {
	if opts.APIKey == "" {
		return nil, cort.NewConfigError("Claude backend requires an API key (ANTHROPIC_API_KEY)")
	}

	model := opts.Model
	if model == "" {
		model = defaultClaudeModel
	}

	client := anthropic.NewClient(option.WithAPIKey(opts.APIKey))
	return &ClaudeClient{
		model:   model,
		client:  &client,
		onChunk: opts.OnChunk,
	}, nil
}

// Name identifies the backend in logs and sentinel error text.
func (c *ClaudeClient) Name() string {
	return "Claude"
}

// Model returns the model identifier requests are issued against.
func (c *ClaudeClient) Model() string {
	return c.model
}

// Call sends one Messages request. The Messages API takes no system role
// inside the turn list, so system messages are folded into user turns. The
// response is delivered to the OnChunk callback in one piece; the thinking
// loop only ever consumes completed text either way.
func (c *ClaudeClient) Call(ctx context.Context, messages []cort.Message, temperature float64, stream bool) (string, error) {
	response, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   8192,
		Temperature: anthropic.Float(temperature),
		Messages:    convertClaudeMessages(messages),
	})
	if err != nil {
		return "", cort.WrapCallError("Claude", err)
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	if stream && c.onChunk != nil && text != "" {
		c.onChunk(text)
	}
	return text, nil
}

func convertClaudeMessages(messages []cort.Message) []anthropic.MessageParam {
	converted := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case cort.RoleAssistant:
			converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case cort.RoleSystem:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock("System: "+m.Content)))
		default:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return converted
}
