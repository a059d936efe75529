package groq

import (
	"context"
	"fmt"

	"github.com/conneroisu/groq-go"

	"interviewcast/internal/llm"
)

const providerName = "groq"

var _ llm.Provider = (*Client)(nil)

type Client struct {
	client *groq.Client
	model  string
}

type Options struct {
	APIKey  string
	Model   string
	BaseURL string
}

func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("groq api key is required")
	}

	var (
		client *groq.Client
		err    error
	)
	if opts.BaseURL != "" {
		client, err = groq.NewClient(opts.APIKey, groq.WithBaseURL(opts.BaseURL))
	} else {
		client, err = groq.NewClient(opts.APIKey)
	}
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}

	return &Client{
		client: client,
		model:  opts.Model,
	}, nil
}

func (c *Client) Name() string { return providerName }

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	model := req.ModelOr(c.model)
	if err := req.Validate(); err != nil {
		return "", llm.Fail(providerName, model, err)
	}

	messages := make([]groq.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msg := groq.ChatCompletionMessage{Role: groq.RoleUser, Content: m.Content}
		switch m.Role {
		case llm.RoleSystem:
			msg.Role = groq.RoleSystem
		case llm.RoleAssistant:
			msg.Role = groq.RoleAssistant
		}
		messages = append(messages, msg)
	}

	resp, err := c.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model:     groq.ChatModel(model),
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return "", llm.Fail(providerName, model, fmt.Errorf("generate: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", llm.Failf(providerName, model, "no response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", llm.Failf(providerName, model, "empty response")
	}

	return content, nil
}
