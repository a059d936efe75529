package mock

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"interviewcast/internal/llm"
)

const providerName = "mock"

var _ llm.Provider = (*Provider)(nil)

// Responder produces the reply for the n-th call (zero based).
type Responder func(n int, req llm.Request) (string, error)

// Provider is an offline LLM that answers from a Responder and records
// every request it receives.
type Provider struct {
	mu        sync.Mutex
	responder Responder
	calls     []llm.Request
}

func New(responder Responder) *Provider {
	if responder == nil {
		responder = func(_ int, req llm.Request) (string, error) { return Canned(req), nil }
	}
	return &Provider{responder: responder}
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Complete(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", llm.Fail(providerName, req.Model, err)
	}
	if err := req.Validate(); err != nil {
		return "", llm.Fail(providerName, req.Model, err)
	}

	p.mu.Lock()
	n := len(p.calls)
	p.calls = append(p.calls, copyRequest(req))
	p.mu.Unlock()

	text, err := p.responder(n, req)
	if err != nil {
		return "", llm.Fail(providerName, req.Model, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", llm.Failf(providerName, req.Model, "empty response")
	}
	return text, nil
}

// Calls returns a copy of the recorded requests in call order.
func (p *Provider) Calls() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.Request, len(p.calls))
	copy(out, p.calls)
	return out
}

func copyRequest(req llm.Request) llm.Request {
	msgs := make([]llm.Message, len(req.Messages))
	copy(msgs, req.Messages)
	req.Messages = msgs
	return req
}

var (
	quotedInterjection = regexp.MustCompile(`interjection: "([^"]*)"`)
	firstQuoted        = regexp.MustCompile(`"([^"]+)"`)
	questionNumber     = regexp.MustCompile(`(?:#|n°)(\d+)`)
	listedOption       = regexp.MustCompile(`(?m)^\s*1\.`)
)

// Canned answers a request with fixed text chosen from keywords in its last
// user message.
func Canned(req llm.Request) string {
	user := lastUser(req.Messages)
	lower := strings.ToLower(user)
	french := isFrench(req.Messages)

	switch {
	case strings.Contains(lower, "respond in json") || strings.Contains(lower, "répondez en json"):
		return `{"type": "text", "reason": "key points", "content_suggestion": "Summary", "key_points": ["fundamentals", "practice"]}`
	case strings.Contains(lower, "suitable for audio") || strings.Contains(lower, "adaptée à l'audio"):
		if french {
			return "Dans cet exemple de code, on définit une fonction simple."
		}
		return "In this code example, a simple function is defined."
	case strings.Contains(lower, "respond with only the number") || strings.Contains(lower, "uniquement avec le numéro"):
		if listedOption.MatchString(user) {
			return "1"
		}
		return "none"
	case strings.Contains(lower, "captivating introduction") || strings.Contains(lower, "introduction captivante"):
		if french {
			return "Vous êtes-vous déjà demandé ce qui se passe vraiment en coulisses? Ce n'est pas de la magie. Découvrons-le ensemble."
		}
		return "Have you ever wondered what really happens behind the scenes? It is not magic. Let's find out."
	case strings.Contains(lower, "welcome your guest") || strings.Contains(lower, "accueillez votre invité"):
		if french {
			return "Avec moi aujourd'hui, notre invité expert. Bienvenue! Comment allez-vous?"
		}
		return "Joining me today is our expert guest. Welcome! How are you doing today?"
	case strings.Contains(lower, "how are you doing today") || strings.Contains(lower, "comment allez-vous aujourd'hui"):
		if french {
			return "Merci beaucoup! Je vais très bien, ravi d'être ici."
		}
		return "Thank you! I'm doing great, happy to be here."
	case strings.Contains(lower, "react briefly") || strings.Contains(lower, "réagissez brièvement"):
		reaction := ""
		if m := firstQuoted.FindStringSubmatch(user); m != nil {
			reaction = m[1]
		}
		if french {
			return reaction + "Cela éclaire bien le sujet."
		}
		return reaction + "That really clarifies things."
	case strings.Contains(lower, "ask question") || strings.Contains(lower, "posez la question"):
		n := "1"
		if m := questionNumber.FindStringSubmatch(user); m != nil {
			n = m[1]
		}
		if french {
			return fmt.Sprintf("Question %s: pouvez-vous aller plus loin sur ce point?", n)
		}
		return fmt.Sprintf("Question %s: can you take us one level deeper on this?", n)
	case strings.Contains(lower, "answer the question") || strings.Contains(lower, "répondez à la question"):
		prefix := ""
		if m := quotedInterjection.FindStringSubmatch(user); m != nil {
			prefix = m[1]
		}
		if french {
			return prefix + "il faut d'abord comprendre les bases. Ensuite on applique le concept à un cas réel. Par exemple, un service web. On mesure, on ajuste, puis on documente."
		}
		return prefix + "you first need the fundamentals. Then you apply them to a real case. For example, a web service. You measure, adjust, and document the result."
	case strings.Contains(lower, "conclusion"):
		if french {
			return "Merci d'avoir regardé! Abonnez-vous et à très bientôt pour la suite."
		}
		return "Thanks for watching! Like, subscribe, and see you next time for more."
	case strings.Contains(lower, "title") || strings.Contains(lower, "titre"):
		return `"Mastering the Topic: Expert Interview"`
	}
	return "This is a mock response generated for offline runs."
}

func lastUser(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

func isFrench(messages []llm.Message) bool {
	for _, m := range messages {
		if m.Role == llm.RoleSystem && strings.Contains(m.Content, "français") {
			return true
		}
	}
	return false
}
