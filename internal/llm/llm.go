package llm

import (
	"context"
	"errors"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Request is one completion call. Model is optional; providers use their
// configured default when it is empty.
type Request struct {
	Messages  []Message
	Model     string
	MaxTokens int
}

// Provider turns an ordered message history into a single text reply.
// Implementations never retry and report every failure as a *CompletionFailure.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

var (
	ErrEmptyHistory     = errors.New("history must contain at least one message")
	ErrInvalidMaxTokens = errors.New("max tokens must be positive")
)

func (r Request) Validate() error {
	if len(r.Messages) == 0 {
		return ErrEmptyHistory
	}
	if r.MaxTokens <= 0 {
		return ErrInvalidMaxTokens
	}
	return nil
}

// SingleShot builds a request from one system prompt and one user prompt.
func SingleShot(system, user, model string, maxTokens int) Request {
	return Request{
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: user},
		},
		Model:     model,
		MaxTokens: maxTokens,
	}
}

// ModelOr returns the request model, or fallback when none was requested.
func (r Request) ModelOr(fallback string) string {
	if r.Model != "" {
		return r.Model
	}
	return fallback
}
