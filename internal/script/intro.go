package script

import (
	"context"
	"fmt"
	"strings"

	"interviewcast/internal/llm"
	"interviewcast/internal/persona"
	"interviewcast/pkg/prompts"
)

const DefaultMaxTokens = 4000

// Request describes one generation run.
type Request struct {
	Topic       string
	Questions   int
	Language    string
	Model       string
	Interviewer persona.Persona
	Candidate   persona.Persona
	Seed        int64
}

const (
	MinQuestions = 1
	MaxQuestions = 20
)

func (r Request) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("topic is required")
	}
	if r.Questions < MinQuestions || r.Questions > MaxQuestions {
		return fmt.Errorf("questions must be between %d and %d, got %d", MinQuestions, MaxQuestions, r.Questions)
	}
	if r.Interviewer.Name == "" || r.Candidate.Name == "" {
		return fmt.Errorf("interviewer and candidate personas are required")
	}
	return nil
}

func (r Request) introParams(lp *prompts.LanguagePrompts) prompts.IntroParams {
	return prompts.IntroParams{
		Topic:        r.Topic,
		LanguageName: lp.Name,
		Interviewer:  r.Interviewer.Prompt(),
		Candidate:    r.Candidate.Prompt(),
	}
}

// Introducer writes the opening exchange. Each of its three calls is an
// independent single-shot completion.
type Introducer struct {
	provider  llm.Provider
	prompts   *prompts.Prompts
	maxTokens int
}

func NewIntroducer(provider llm.Provider, p *prompts.Prompts, maxTokens int) *Introducer {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Introducer{provider: provider, prompts: p, maxTokens: maxTokens}
}

type introStep struct {
	role   Role
	render func(prompts.IntroParams) (prompts.Rendered, error)
}

// Generate returns the hook, the welcome and the candidate's greeting, all
// numbered 0. Any failure aborts the whole introduction.
func (in *Introducer) Generate(ctx context.Context, req Request) ([]DialogueTurn, error) {
	lp := in.prompts.For(req.Language)
	params := req.introParams(lp)

	steps := []introStep{
		{RoleInterviewer, lp.RenderHook},
		{RoleInterviewer, lp.RenderWelcome},
		{RoleCandidate, lp.RenderGreeting},
	}

	turns := make([]DialogueTurn, 0, len(steps))
	for _, step := range steps {
		rendered, err := step.render(params)
		if err != nil {
			return nil, Abort(PhaseIntroduction, fmt.Errorf("render prompt: %w", err))
		}

		text, err := complete(ctx, in.provider, PhaseIntroduction,
			llm.SingleShot(rendered.System, rendered.User, req.Model, in.maxTokens))
		if err != nil {
			return nil, err
		}

		turns = append(turns, DialogueTurn{QuestionNumber: IntroductionNumber, Role: step.role, Text: text})
	}
	return turns, nil
}

// complete issues one gateway call for phase, checking for cancellation first.
func complete(ctx context.Context, provider llm.Provider, phase string, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", Abort(phase, err)
	}

	text, err := provider.Complete(llm.WithPhase(ctx, phase), req)
	if err != nil {
		return "", Abort(phase, err)
	}
	return strings.TrimSpace(text), nil
}
