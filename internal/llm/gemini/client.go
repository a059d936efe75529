package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"interviewcast/internal/llm"
)

const providerName = "gemini"

var _ llm.Provider = (*Client)(nil)

type Client struct {
	client *genai.Client
	model  string
}

// Options selects the Gemini API backend when APIKey is set and Vertex AI
// otherwise.
type Options struct {
	APIKey   string
	Project  string
	Location string
	Model    string
	BaseURL  string
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	cfg := &genai.ClientConfig{}
	switch {
	case opts.APIKey != "":
		cfg.APIKey = opts.APIKey
		cfg.Backend = genai.BackendGeminiAPI
	case opts.Project != "":
		location := opts.Location
		if location == "" {
			location = "us-central1"
		}
		cfg.Project = opts.Project
		cfg.Location = location
		cfg.Backend = genai.BackendVertexAI
	default:
		return nil, fmt.Errorf("gemini requires an api key or a gcp project")
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{client: client, model: opts.Model}, nil
}

func (c *Client) Name() string { return providerName }

// Complete flattens the history into one prompt.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	model := req.ModelOr(c.model)
	if err := req.Validate(); err != nil {
		return "", llm.Fail(providerName, model, err)
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(llm.Flatten(req.Messages)), config)
	if err != nil {
		return "", llm.Fail(providerName, model, fmt.Errorf("generate: %w", err))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", llm.Failf(providerName, model, "no response")
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", llm.Failf(providerName, model, "empty response")
	}
	return text, nil
}
