// Package visuals decides what to show on screen while a turn is spoken.
package visuals

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"interviewcast/internal/llm"
	"interviewcast/internal/script"
	"interviewcast/pkg/prompts"
)

const (
	DefaultMaxTokens = 500

	fallbackReason     = "fallback"
	suggestionRunes    = 100
	maxCaptionPoints   = 4
	maxCaptionRunes    = 60
	maxCodeCaptionRows = 20
)

type Kind string

const (
	KindCode    Kind = "code"
	KindDiagram Kind = "diagram"
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindNone    Kind = "none"
)

func (k Kind) valid() bool {
	switch k {
	case KindCode, KindDiagram, KindText, KindImage, KindNone:
		return true
	}
	return false
}

// Decision is the planned visual for one turn.
type Decision struct {
	Kind       Kind     `json:"type"`
	Reason     string   `json:"reason"`
	Suggestion string   `json:"content_suggestion"`
	KeyPoints  []string `json:"key_points"`
	Code       string   `json:"-"`
}

var (
	jsonObject = regexp.MustCompile(`\{[\s\S]+\}`)
	codeFence  = regexp.MustCompile("```\\w*\\n([\\s\\S]+?)```")
)

// Fallback is the decision used whenever the model reply is unusable.
func Fallback(text string) Decision {
	return Decision{
		Kind:       KindText,
		Reason:     fallbackReason,
		Suggestion: truncateRunes(text, suggestionRunes),
	}
}

// ParseDecision extracts the first {...} span of reply. Invalid JSON or an
// unknown type yields Fallback(text).
func ParseDecision(reply, text string) Decision {
	span := jsonObject.FindString(reply)
	if span == "" {
		return Fallback(text)
	}

	var d Decision
	if err := json.Unmarshal([]byte(span), &d); err != nil {
		return Fallback(text)
	}
	d.Kind = Kind(strings.ToLower(strings.TrimSpace(string(d.Kind))))
	if !d.Kind.valid() {
		return Fallback(text)
	}
	if d.Kind == KindCode {
		if m := codeFence.FindStringSubmatch(text); m != nil {
			d.Code = strings.TrimRight(m[1], "\n")
		} else {
			d.Code = d.Suggestion
		}
	}
	return d
}

// Captions returns the on-screen lines for the decision.
func (d Decision) Captions() []string {
	switch d.Kind {
	case KindNone:
		return nil
	case KindCode:
		lines := strings.Split(d.Code, "\n")
		if len(lines) > maxCodeCaptionRows {
			lines = lines[:maxCodeCaptionRows]
		}
		return lines
	}

	var out []string
	for _, p := range d.KeyPoints {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		out = append(out, truncateRunes(p, maxCaptionRunes))
		if len(out) == maxCaptionPoints {
			break
		}
	}
	if len(out) == 0 && d.Suggestion != "" {
		out = append(out, truncateRunes(d.Suggestion, maxCaptionRunes))
	}
	return out
}

type Planner struct {
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

func NewPlanner(opts Options) *Planner {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Planner{
		provider:  opts.Provider,
		prompts:   opts.Prompts,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		logger:    opts.Logger,
	}
}

// Plan never fails; any provider or parse error degrades to Fallback.
func (p *Planner) Plan(ctx context.Context, turn script.DialogueTurn, topic, lang string, seconds float64) Decision {
	if p.provider == nil {
		return Fallback(turn.Text)
	}

	rendered, err := p.prompts.For(lang).RenderVisuals(prompts.VisualsParams{
		Topic:    topic,
		Duration: fmt.Sprintf("%.1f", seconds),
		Text:     turn.Text,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to render visuals prompt", "error", err)
		return Fallback(turn.Text)
	}

	reply, err := p.provider.Complete(llm.WithPhase(ctx, "visuals"),
		llm.SingleShot(rendered.System, rendered.User, p.model, p.maxTokens))
	if err != nil {
		p.logger.WarnContext(ctx, "Visual planning failed, using text fallback",
			"question", turn.QuestionNumber, "error", err)
		return Fallback(turn.Text)
	}

	d := ParseDecision(reply, turn.Text)
	p.logger.DebugContext(ctx, "Visual planned", "question", turn.QuestionNumber, "type", d.Kind, "reason", d.Reason)
	return d
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
