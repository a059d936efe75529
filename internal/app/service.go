package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"interviewcast/internal/audio"
	"interviewcast/internal/llm"
	"interviewcast/internal/persona"
	"interviewcast/internal/script"
	"interviewcast/internal/spoken"
	"interviewcast/internal/storage"
	"interviewcast/internal/transcript"
	"interviewcast/internal/video"
	"interviewcast/internal/visuals"
	"interviewcast/pkg/config"
	"interviewcast/pkg/prompts"
)

// Service owns the long-lived collaborators. Components bound to an LLM
// provider are built once per provider name and shared across requests.
type Service struct {
	cfg       *config.Config
	prompts   *prompts.Prompts
	llm       *llm.Registry
	personas  persona.Store
	sink      *transcript.Sink
	audio     audio.Options
	assembler *video.Assembler
	artifacts storage.Storage
	tracer    trace.Tracer
	logger    *slog.Logger
	closers   []func() error

	mu         sync.Mutex
	components map[string]*components
}

type ServiceOptions struct {
	Config    *config.Config
	Prompts   *prompts.Prompts
	LLM       *llm.Registry
	Personas  persona.Store
	Sink      *transcript.Sink
	Audio     audio.Options
	Assembler *video.Assembler
	Artifacts storage.Storage
	Tracer    trace.Tracer
	Logger    *slog.Logger
	Closers   []func() error
}

func NewService(opts ServiceOptions) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		cfg:        opts.Config,
		prompts:    opts.Prompts,
		llm:        opts.LLM,
		personas:   opts.Personas,
		sink:       opts.Sink,
		audio:      opts.Audio,
		assembler:  opts.Assembler,
		artifacts:  opts.Artifacts,
		tracer:     opts.Tracer,
		logger:     opts.Logger,
		closers:    opts.Closers,
		components: make(map[string]*components),
	}
}

func (s *Service) Config() *config.Config      { return s.cfg }
func (s *Service) Personas() persona.Store     { return s.personas }
func (s *Service) Sink() *transcript.Sink      { return s.sink }
func (s *Service) Assembler() *video.Assembler { return s.assembler }
func (s *Service) Artifacts() storage.Storage  { return s.artifacts }

// Close releases store handles and clients in reverse construction order.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type components struct {
	provider     llm.Provider
	resolution   llm.Resolution
	selector     *persona.Selector
	titles       *script.TitleGenerator
	orchestrator *script.Orchestrator
	adapter      *spoken.Adapter
	planner      *visuals.Planner
	renderer     *audio.Renderer
}

// componentsFor resolves name (empty means the configured provider) and
// returns the LLM-backed collaborators for it.
func (s *Service) componentsFor(name string) (*components, error) {
	if name == "" {
		name = s.cfg.LLM.Provider
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.components[name]; ok {
		return c, nil
	}

	provider, res, err := s.llm.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("resolve llm provider: %w", err)
	}
	provider = llm.WithTimeout(provider, s.cfg.LLM.Timeout)
	if s.tracer != nil {
		provider = llm.WithTracing(provider, s.tracer)
	}

	g := s.cfg.Generation
	c := &components{
		provider:   provider,
		resolution: res,
		selector: persona.NewSelector(s.personas, persona.SelectorOptions{
			Provider:  provider,
			Prompts:   s.prompts,
			MaxTokens: g.SelectionMaxTokens,
			Logger:    s.logger,
		}),
		titles: script.NewTitleGenerator(provider, s.prompts, g.TitleMaxTokens),
		orchestrator: script.NewOrchestrator(script.Options{
			Provider:                provider,
			Prompts:                 s.prompts,
			MaxTokens:               s.cfg.LLM.MaxTokens,
			InterjectionProbability: g.Interjection(),
			ReactionProbability:     g.Reaction(),
			Logger:                  s.logger,
		}),
		adapter: spoken.NewAdapter(spoken.Options{
			Provider:  provider,
			Prompts:   s.prompts,
			Model:     s.cfg.LLM.Model,
			MaxTokens: g.SpokenMaxTokens,
			Logger:    s.logger,
		}),
		planner: visuals.NewPlanner(visuals.Options{
			Provider:  provider,
			Prompts:   s.prompts,
			Model:     s.cfg.LLM.Model,
			MaxTokens: g.VisualMaxTokens,
			Logger:    s.logger,
		}),
	}
	audioOpts := s.audio
	audioOpts.Adapter = c.adapter
	audioOpts.Logger = s.logger
	c.renderer = audio.NewRenderer(audioOpts)

	s.components[name] = c
	return c, nil
}
