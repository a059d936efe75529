package persona

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"interviewcast/internal/llm"
	"interviewcast/pkg/prompts"
)

const DefaultSelectionMaxTokens = 10

var firstNumber = regexp.MustCompile(`\d+`)

// Selection is the resolved pair plus the degraded paths taken to get it.
type Selection struct {
	Interviewer      Persona
	Candidate        Persona
	LanguageFallback bool
	// PickFallback is set when the model was asked to choose but its reply
	// could not be used.
	PickFallback bool
	AIPicked     bool
}

type Selector struct {
	store     Store
	provider  llm.Provider
	prompts   *prompts.Prompts
	maxTokens int
	logger    *slog.Logger
}

type SelectorOptions struct {
	// Provider may be nil, in which case the first interviewer always wins.
	Provider  llm.Provider
	Prompts   *prompts.Prompts
	MaxTokens int
	Logger    *slog.Logger
}

func NewSelector(store Store, opts SelectorOptions) *Selector {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultSelectionMaxTokens
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Selector{
		store:     store,
		provider:  opts.Provider,
		prompts:   opts.Prompts,
		maxTokens: opts.MaxTokens,
		logger:    opts.Logger,
	}
}

// Select picks an interviewer and a candidate for topic. Personas in lang
// are preferred; when none exist the whole active pool is used.
func (s *Selector) Select(ctx context.Context, topic, lang, model string) (*Selection, error) {
	all, err := ListActive(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}

	lang = strings.ToLower(strings.TrimSpace(lang))
	sel := &Selection{}
	pool := filterLanguage(all, lang)
	if len(pool) == 0 {
		s.logger.WarnContext(ctx, "No personas for language, using all available", "language", lang, "available", len(all))
		pool = all
		sel.LanguageFallback = true
	}

	var interviewers, candidates []Persona
	for _, p := range pool {
		switch p.Type {
		case Interviewer:
			interviewers = append(interviewers, p)
		case Candidate:
			candidates = append(candidates, p)
		}
	}
	if len(interviewers) == 0 || len(candidates) == 0 {
		return nil, ErrInsufficientPersonas
	}

	sel.Interviewer = interviewers[0]
	if s.provider != nil && len(interviewers) > 1 {
		picked, ok := s.pickInterviewer(ctx, topic, lang, model, interviewers)
		sel.Interviewer = picked
		sel.AIPicked = ok
		sel.PickFallback = !ok
	}
	sel.Candidate = candidates[0]

	s.logger.InfoContext(ctx, "Selected personas",
		"interviewer", sel.Interviewer.Name,
		"specialty", sel.Interviewer.Specialty,
		"candidate", sel.Candidate.Name,
		"language_fallback", sel.LanguageFallback,
	)
	return sel, nil
}

// pickInterviewer asks the model for a 1-based index. Any failure resolves to
// the first interviewer and reports false.
func (s *Selector) pickInterviewer(ctx context.Context, topic, lang, model string, interviewers []Persona) (Persona, bool) {
	options := make([]prompts.SelectionOption, len(interviewers))
	for i, p := range interviewers {
		options[i] = prompts.SelectionOption{
			Index:     i + 1,
			Name:      p.Name,
			Specialty: p.SpecialtyOr("General"),
			Traits:    p.TraitList(),
		}
	}

	rendered, err := s.prompts.For(lang).RenderSelection(prompts.SelectionParams{Topic: topic, Options: options})
	if err != nil {
		s.logger.WarnContext(ctx, "Interviewer selection prompt failed, using first interviewer", "error", err)
		return interviewers[0], false
	}

	reply, err := s.provider.Complete(llm.WithPhase(ctx, "personas"), llm.SingleShot(rendered.System, rendered.User, model, s.maxTokens))
	if err != nil {
		s.logger.WarnContext(ctx, "AI interviewer selection failed, using first interviewer", "error", err)
		return interviewers[0], false
	}

	index, ok := ParseChoice(reply, len(interviewers))
	if !ok {
		s.logger.WarnContext(ctx, "Unusable interviewer choice, using first interviewer", "reply", reply)
		return interviewers[0], false
	}
	return interviewers[index], true
}

// ParseChoice reads the first integer in reply as a 1-based index into n
// options and returns it 0-based.
func ParseChoice(reply string, n int) (int, bool) {
	match := firstNumber.FindString(reply)
	if match == "" {
		return 0, false
	}
	v, err := strconv.Atoi(match)
	if err != nil || v < 1 || v > n {
		return 0, false
	}
	return v - 1, true
}

func filterLanguage(personas []Persona, lang string) []Persona {
	var out []Persona
	for _, p := range personas {
		if p.Language == lang {
			out = append(out, p)
		}
	}
	return out
}
