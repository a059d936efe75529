// Package spoken rewrites code-bearing dialogue into text that reads well aloud.
package spoken

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"interviewcast/internal/llm"
	"interviewcast/pkg/prompts"
)

const DefaultMaxTokens = 1000

var codePatterns = []*regexp.Regexp{
	regexp.MustCompile("(?im)```[\\s\\S]+?```"),
	regexp.MustCompile(`(?im)public\s+(class|interface|void|static)`),
	regexp.MustCompile(`(?im)private\s+(class|interface|void|static)`),
	regexp.MustCompile(`(?im)def\s+\w+\s*\(`),
	regexp.MustCompile(`(?im)function\s+\w+\s*\(`),
	regexp.MustCompile(`(?im)const\s+\w+\s*=\s*\(`),
	regexp.MustCompile(`(?im)\{[\s\S]{30,}\}`),
	regexp.MustCompile(`(?im)if\s*\([^)]+\)\s*\{`),
	regexp.MustCompile(`(?im)for\s*\([^)]+\)\s*\{`),
	regexp.MustCompile(`(?im)while\s*\([^)]+\)\s*\{`),
}

// At most one annotation, with no braces or brackets anywhere else.
var simpleAnnotation = regexp.MustCompile(`(?s)^[^@]*@\w+(\([^{}\[\]]*\))?[^@{}\[\]]*$`)

var fencedBlock = regexp.MustCompile("```[\\s\\S]+?```")

func ContainsCode(text string) bool {
	for _, re := range codePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// IsReadableAnnotation reports whether the only code-like content of text is
// a simple annotation such as @Override or @RequestMapping("/api").
func IsReadableAnnotation(text string) bool {
	return simpleAnnotation.MatchString(text)
}

// CodeBlocks returns every fenced block in text.
func CodeBlocks(text string) []string {
	return fencedBlock.FindAllString(text, -1)
}

type Adapter struct {
	provider  llm.Provider
	prompts   *prompts.Prompts
	model     string
	maxTokens int
	logger    *slog.Logger
}

type Options struct {
	Provider  llm.Provider
	Prompts   *prompts.Prompts
	Model     string
	MaxTokens int
	Logger    *slog.Logger
}

func NewAdapter(opts Options) *Adapter {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Adapter{
		provider:  opts.Provider,
		prompts:   opts.Prompts,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		logger:    opts.Logger,
	}
}

// Result describes one adaptation.
type Result struct {
	Text      string
	Original  string
	HasCode   bool
	Rewritten bool
}

// ForSpeech returns text suitable for synthesis. Plain text and text whose
// only code is a readable annotation pass through. A failed rewrite falls
// back to the original text.
func (a *Adapter) ForSpeech(ctx context.Context, text, lang string) Result {
	res := Result{Text: text, Original: text}
	if !ContainsCode(text) || IsReadableAnnotation(text) {
		return res
	}
	res.HasCode = true

	if a.provider == nil {
		return res
	}

	rendered, err := a.prompts.For(lang).RenderSpoken(prompts.SpokenParams{Text: text})
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to render spoken prompt", "error", err)
		return res
	}

	reply, err := a.provider.Complete(llm.WithPhase(ctx, "spoken"),
		llm.SingleShot(rendered.System, rendered.User, a.model, a.maxTokens))
	if err != nil {
		a.logger.WarnContext(ctx, "Spoken rewrite failed, using original text", "error", err)
		return res
	}
	if reply = strings.TrimSpace(reply); reply == "" {
		a.logger.WarnContext(ctx, "Spoken rewrite returned nothing, using original text")
		return res
	}

	res.Text = reply
	res.Rewritten = true
	return res
}
