// Package bedrock completes chat histories through the Amazon Bedrock
// Converse API, which fronts Nova, Claude and other hosted models.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"interviewcast/internal/llm"
)

const (
	providerName = "bedrock"
	defaultModel = "us.amazon.nova-2-lite-v1:0"
)

var _ llm.Provider = (*Client)(nil)

// ConverseAPI is the part of *bedrockruntime.Client the provider calls.
type ConverseAPI interface {
	Converse(ctx context.Context, in *bedrockruntime.ConverseInput, opts ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type Client struct {
	api   ConverseAPI
	model string
}

func NewClient(api ConverseAPI, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{api: api, model: model}
}

func NewFromConfig(cfg aws.Config, model string) *Client {
	return NewClient(bedrockruntime.NewFromConfig(cfg), model)
}

func (c *Client) Name() string { return providerName }

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	model := req.ModelOr(c.model)
	if err := req.Validate(); err != nil {
		return "", llm.Fail(providerName, model, err)
	}

	system, turns := llm.SplitSystem(req.Messages)
	if len(turns) == 0 {
		return "", llm.Failf(providerName, model, "history has no user turn")
	}

	in := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: make([]types.Message, 0, len(turns)),
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens: aws.Int32(int32(req.MaxTokens)),
		},
	}
	if system != "" {
		in.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}}
	}
	for _, m := range turns {
		role := types.ConversationRoleUser
		if m.Role == llm.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		in.Messages = append(in.Messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}

	resp, err := c.api.Converse(ctx, in)
	if err != nil {
		return "", llm.Fail(providerName, model, fmt.Errorf("converse: %w", err))
	}

	text := extractText(resp)
	if text == "" {
		return "", llm.Fail(providerName, model, errors.New("empty response"))
	}
	return text, nil
}

func extractText(resp *bedrockruntime.ConverseOutput) string {
	if resp == nil {
		return ""
	}
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var parts []string
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			parts = append(parts, tb.Value)
		}
	}
	return strings.Join(parts, "")
}
