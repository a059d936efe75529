// Package openai talks to any OpenAI-compatible chat completions endpoint.
// DeepSeek and OpenAI are both served by this client with different base URLs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"interviewcast/internal/llm"
)

const (
	DeepSeekBaseURL = "https://api.deepseek.com/v1"
	OpenAIBaseURL   = "https://api.openai.com/v1"

	completionsPath = "/chat/completions"
)

var _ llm.Provider = (*Client)(nil)

type Client struct {
	name       string
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type Options struct {
	// Name is reported in failures and logs, e.g. "deepseek".
	Name       string
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type response struct {
	ID      string    `json:"id"`
	Choices []choice  `json:"choices"`
	Error   *apiError `json:"error,omitempty"`
}

type choice struct {
	Message message `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewClient(opts Options) (*Client, error) {
	if opts.Name == "" {
		opts.Name = "openai"
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%s api key is required", opts.Name)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = OpenAIBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		name:       opts.Name,
		apiKey:     opts.APIKey,
		model:      opts.Model,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

func (c *Client) Name() string { return c.name }

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	model := req.ModelOr(c.model)
	if err := req.Validate(); err != nil {
		return "", llm.Fail(c.name, model, err)
	}

	body := request{
		Model:     model,
		Messages:  make([]message, 0, len(req.Messages)),
		MaxTokens: req.MaxTokens,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, message{Role: string(m.Role), Content: m.Content})
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", llm.Fail(c.name, model, fmt.Errorf("marshal request: %w", err))
	}

	raw, err := c.doRequest(ctx, data)
	if err != nil {
		return "", llm.Fail(c.name, model, err)
	}

	content, err := parseResponse(raw)
	if err != nil {
		return "", llm.Fail(c.name, model, err)
	}
	return content, nil
}

func (c *Client) doRequest(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

func parseResponse(data []byte) (string, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("api error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty response")
	}
	return content, nil
}
