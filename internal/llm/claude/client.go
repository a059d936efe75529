package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"interviewcast/internal/llm"
)

const providerName = "claude"

var _ llm.Provider = (*Client)(nil)

type Client struct {
	client anthropic.Client
	model  string
}

type Options struct {
	APIKey  string
	Model   string
	BaseURL string
}

func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &Client{
		client: anthropic.NewClient(reqOpts...),
		model:  opts.Model,
	}, nil
}

func (c *Client) Name() string { return providerName }

// Complete sends system messages as the system block and the remaining turns
// in order. Anthropic rejects a history whose first turn is not a user turn.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	model := req.ModelOr(c.model)
	if err := req.Validate(); err != nil {
		return "", llm.Fail(providerName, model, err)
	}

	system, turns := llm.SplitSystem(req.Messages)
	if len(turns) == 0 {
		return "", llm.Failf(providerName, model, "history has no user turn")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(turns)),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, m := range turns {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == llm.RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", llm.Fail(providerName, model, fmt.Errorf("generate: %w", err))
	}

	text := extractText(msg)
	if text == "" {
		return "", llm.Failf(providerName, model, "empty response")
	}
	return text, nil
}

func extractText(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}
