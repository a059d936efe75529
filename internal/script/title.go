package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"interviewcast/internal/llm"
	"interviewcast/pkg/prompts"
)

const (
	DefaultTitleMaxTokens = 200
	maxTitleRunes         = 100
)

type TitleGenerator struct {
	provider  llm.Provider
	prompts   *prompts.Prompts
	maxTokens int
}

func NewTitleGenerator(provider llm.Provider, p *prompts.Prompts, maxTokens int) *TitleGenerator {
	if maxTokens <= 0 {
		maxTokens = DefaultTitleMaxTokens
	}
	return &TitleGenerator{provider: provider, prompts: p, maxTokens: maxTokens}
}

// Generate returns an SEO title for the interview. Failures are not retried.
func (g *TitleGenerator) Generate(ctx context.Context, topic, lang string, questions int, model string) (string, error) {
	lp := g.prompts.For(lang)
	rendered, err := lp.RenderTitle(prompts.TitleParams{Topic: topic, LanguageName: lp.Name, Questions: questions})
	if err != nil {
		return "", Abort(PhaseTitle, fmt.Errorf("render prompt: %w", err))
	}

	raw, err := complete(ctx, g.provider, PhaseTitle, llm.SingleShot(rendered.System, rendered.User, model, g.maxTokens))
	if err != nil {
		return "", err
	}

	title := CleanTitle(raw)
	if title == "" {
		return "", Abort(PhaseTitle, errors.New("model returned an empty title"))
	}
	return title, nil
}

// CleanTitle strips surrounding quotes and keeps only the first line.
func CleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, "\"'“”«» ")

	if idx := strings.Index(title, "\n"); idx > 0 {
		title = strings.Trim(strings.TrimSpace(title[:idx]), "\"'“”«» ")
	}

	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) > maxTitleRunes {
		title = string([]rune(title)[:maxTitleRunes])
	}
	return title
}
