package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"interviewcast/internal/llm"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

func makeResponse(content string) chatResponse {
	return chatResponse{
		ID:      "test-id",
		Object:  "chat.completion",
		Created: 1234567890,
		Model:   "llama-3.3-70b-versatile",
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c, err := NewClient(Options{APIKey: "test-api-key", Model: "llama-3.3-70b-versatile", BaseURL: serverURL + "/"})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return c
}

func TestComplete(t *testing.T) {
	noChoices := makeResponse("")
	noChoices.Choices = nil

	tests := []struct {
		name           string
		responseBody   string
		statusCode     int
		wantErr        bool
		wantErrContain string
		wantContent    string
	}{
		{
			name:         "successfulCompletion",
			responseBody: mustJSON(makeResponse("What is dependency injection?")),
			statusCode:   http.StatusOK,
			wantContent:  "What is dependency injection?",
		},
		{
			name:           "emptyResponse",
			responseBody:   mustJSON(makeResponse("")),
			statusCode:     http.StatusOK,
			wantErr:        true,
			wantErrContain: "empty response",
		},
		{
			name:           "noChoices",
			responseBody:   mustJSON(noChoices),
			statusCode:     http.StatusOK,
			wantErr:        true,
			wantErrContain: "no response",
		},
		{
			name:           "httpErrorUnauthorized",
			responseBody:   `{"error": {"message": "invalid api key", "type": "authentication_error"}}`,
			statusCode:     http.StatusUnauthorized,
			wantErr:        true,
			wantErrContain: "generate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			got, err := client.Complete(context.Background(), llm.SingleShot("system", "user", "", 100))

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Complete() expected error containing %q, got nil", tt.wantErrContain)
				}
				if !llm.IsCompletionFailure(err) {
					t.Errorf("Complete() error %T is not a CompletionFailure", err)
				}
				if !strings.Contains(err.Error(), tt.wantErrContain) {
					t.Errorf("Complete() error = %v, want error containing %q", err, tt.wantErrContain)
				}
				return
			}

			if err != nil {
				t.Fatalf("Complete() unexpected error: %v", err)
			}
			if got != tt.wantContent {
				t.Errorf("Complete() = %q, want %q", got, tt.wantContent)
			}
		})
	}
}

func TestCompleteSendsHistory(t *testing.T) {
	var body struct {
		Model     string        `json:"model"`
		MaxTokens int           `json:"max_tokens"`
		Messages  []chatMessage `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mustJSON(makeResponse("ok"))))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "rules"},
			{Role: llm.RoleUser, Content: "ask"},
			{Role: llm.RoleAssistant, Content: "question"},
			{Role: llm.RoleUser, Content: "answer"},
		},
		Model:     "custom-model",
		MaxTokens: 321,
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	if body.Model != "custom-model" {
		t.Errorf("model = %q, want custom-model", body.Model)
	}
	if body.MaxTokens != 321 {
		t.Errorf("max_tokens = %d, want 321", body.MaxTokens)
	}
	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(body.Messages) != len(wantRoles) {
		t.Fatalf("messages = %d, want %d", len(body.Messages), len(wantRoles))
	}
	for i, role := range wantRoles {
		if body.Messages[i].Role != role {
			t.Errorf("messages[%d].role = %q, want %q", i, body.Messages[i].Role, role)
		}
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Error("NewClient() should fail without api key")
	}
}
