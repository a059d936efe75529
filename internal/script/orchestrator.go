package script

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"interviewcast/internal/interjection"
	"interviewcast/internal/llm"
	"interviewcast/pkg/prompts"
)

type state int

const (
	stateInit state = iota
	stateReaction
	stateQuestion
	stateAnswer
	stateConclusion
	stateDone
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateReaction:
		return "reaction"
	case stateQuestion:
		return "question"
	case stateAnswer:
		return "answer"
	case stateConclusion:
		return "conclusion"
	default:
		return "done"
	}
}

type Options struct {
	Provider                llm.Provider
	Prompts                 *prompts.Prompts
	MaxTokens               int
	InterjectionProbability float64
	ReactionProbability     float64
	Logger                  *slog.Logger
	// OnTurn, when set, is called after every transcript turn is produced.
	OnTurn func(DialogueTurn)
}

// Orchestrator runs the question and answer loop. It holds no per-run state
// and may serve concurrent requests.
type Orchestrator struct {
	provider                llm.Provider
	prompts                 *prompts.Prompts
	introducer              *Introducer
	maxTokens               int
	interjectionProbability float64
	reactionProbability     float64
	logger                  *slog.Logger
	onTurn                  func(DialogueTurn)
}

func NewOrchestrator(opts Options) *Orchestrator {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		provider:                opts.Provider,
		prompts:                 opts.Prompts,
		introducer:              NewIntroducer(opts.Provider, opts.Prompts, opts.MaxTokens),
		maxTokens:               opts.MaxTokens,
		interjectionProbability: opts.InterjectionProbability,
		reactionProbability:     opts.ReactionProbability,
		logger:                  opts.Logger,
		onTurn:                  opts.OnTurn,
	}
}

// WithOnTurn returns a copy of o that reports turns to fn.
func (o *Orchestrator) WithOnTurn(fn func(DialogueTurn)) *Orchestrator {
	cp := *o
	cp.onTurn = fn
	return &cp
}

// run is the request-scoped state of one Generate call.
type run struct {
	o      *Orchestrator
	req    Request
	lp     *prompts.LanguagePrompts
	picker *interjection.Picker
	memory *Conversation
	script *Script

	question     int
	interjection string
}

// Generate produces a full transcript for req. Gate draws come from a source
// seeded with req.Seed, so equal requests against a deterministic provider
// yield equal scripts. No partial script is returned on failure.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Script, error) {
	return o.GenerateWithRand(ctx, req, rand.New(rand.NewSource(req.Seed)))
}

func (o *Orchestrator) GenerateWithRand(ctx context.Context, req Request, rng *rand.Rand) (*Script, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r := &run{
		o:   o,
		req: req,
		lp:  o.prompts.For(req.Language),
		picker: interjection.NewPicker(rng, interjection.Options{
			Language:                req.Language,
			InterjectionProbability: o.interjectionProbability,
			ReactionProbability:     o.reactionProbability,
		}),
		script: &Script{
			Topic:       req.Topic,
			Language:    req.Language,
			Interviewer: req.Interviewer,
			Candidate:   req.Candidate,
			Body:        make([]DialogueTurn, 0, 3*req.Questions),
		},
	}

	o.logger.InfoContext(ctx, "Generating script", "topic", req.Topic, "questions", req.Questions, "language", req.Language)

	st := stateInit
	for st != stateDone {
		next, err := r.step(ctx, st)
		if err != nil {
			o.logger.ErrorContext(ctx, "Script generation aborted", "state", st.String(), "question", r.question, "error", err)
			return nil, err
		}
		st = next
	}

	o.logger.InfoContext(ctx, "Script generated", "turns", len(r.script.Body)+len(r.script.IntroTurns))
	return r.script, nil
}

func (r *run) step(ctx context.Context, st state) (state, error) {
	switch st {
	case stateInit:
		return r.init(ctx)
	case stateReaction:
		return r.reaction(ctx)
	case stateQuestion:
		return r.ask(ctx)
	case stateAnswer:
		return r.answer(ctx)
	case stateConclusion:
		return r.conclude(ctx)
	}
	return stateDone, fmt.Errorf("unexpected state %v", st)
}

func (r *run) init(ctx context.Context) (state, error) {
	intro, err := r.o.introducer.Generate(ctx, r.req)
	if err != nil {
		return stateDone, err
	}
	r.script.IntroTurns = intro
	r.script.Introduction = JoinIntroduction(intro)
	for _, t := range intro {
		r.emit(t)
	}

	system, err := r.lp.RenderInterviewSystem(prompts.InterviewParams{
		Topic:               r.req.Topic,
		LanguageName:        r.lp.Name,
		Interviewer:         r.req.Interviewer.Prompt(),
		Candidate:           r.req.Candidate.Prompt(),
		Questions:           r.req.Questions,
		ReactionPercent:     percent(r.o.reactionProbability),
		InterjectionPercent: percent(r.o.interjectionProbability),
	})
	if err != nil {
		return stateDone, Abort(QuestionPhase(1), fmt.Errorf("render system prompt: %w", err))
	}
	r.memory = NewConversation(system)
	r.question = 1
	return stateQuestion, nil
}

// reaction runs the gate ahead of question r.question (always > 1). The reply
// is tagged with the previous question number.
func (r *run) reaction(ctx context.Context) (state, error) {
	phrase, ok := r.picker.Reaction()
	if !ok {
		return stateQuestion, nil
	}

	phase := ReactionPhase(r.question)
	prompt, err := r.lp.RenderReaction(prompts.ReactionParams{Interviewer: r.req.Interviewer.Name, Reaction: phrase})
	if err != nil {
		return stateDone, Abort(phase, fmt.Errorf("render prompt: %w", err))
	}

	text, err := r.converse(ctx, phase, prompt)
	if err != nil {
		return stateDone, err
	}
	r.memory.Reply(text)
	r.append(DialogueTurn{QuestionNumber: r.question - 1, Role: RoleInterviewer, Text: text})
	return stateQuestion, nil
}

func (r *run) ask(ctx context.Context) (state, error) {
	phase := QuestionPhase(r.question)
	prompt, err := r.lp.RenderQuestion(prompts.QuestionParams{
		Number:      r.question,
		Topic:       r.req.Topic,
		Interviewer: r.req.Interviewer.Name,
	})
	if err != nil {
		return stateDone, Abort(phase, fmt.Errorf("render prompt: %w", err))
	}

	text, err := r.converse(ctx, phase, prompt)
	if err != nil {
		return stateDone, err
	}
	r.memory.Reply(text)
	r.append(DialogueTurn{QuestionNumber: r.question, Role: RoleInterviewer, Text: text})

	r.interjection, _ = r.picker.Interjection()
	return stateAnswer, nil
}

func (r *run) answer(ctx context.Context) (state, error) {
	phase := AnswerPhase(r.question)
	prompt, err := r.lp.RenderAnswer(prompts.AnswerParams{Candidate: r.req.Candidate.Name, Interjection: r.interjection})
	if err != nil {
		return stateDone, Abort(phase, fmt.Errorf("render prompt: %w", err))
	}

	text, err := r.converse(ctx, phase, prompt)
	if err != nil {
		return stateDone, err
	}
	if fixed := interjection.EnsurePrefix(text, r.interjection); fixed != text {
		r.o.logger.DebugContext(ctx, "Prepended requested interjection", "question", r.question, "interjection", r.interjection)
		text = fixed
	}
	r.memory.Reply(text)
	r.append(DialogueTurn{QuestionNumber: r.question, Role: RoleCandidate, Text: text})
	r.interjection = ""

	if r.question >= r.req.Questions {
		return stateConclusion, nil
	}
	r.question++
	return stateReaction, nil
}

// conclude is a single-shot call; the closing line never enters the memory.
func (r *run) conclude(ctx context.Context) (state, error) {
	rendered, err := r.lp.RenderConclusion(r.req.introParams(r.lp))
	if err != nil {
		return stateDone, Abort(PhaseConclusion, fmt.Errorf("render prompt: %w", err))
	}

	text, err := complete(ctx, r.o.provider, PhaseConclusion,
		llm.SingleShot(rendered.System, rendered.User, r.req.Model, r.o.maxTokens))
	if err != nil {
		return stateDone, err
	}
	r.script.Conclusion = text
	return stateDone, nil
}

// converse appends an instruction and sends the whole memory.
func (r *run) converse(ctx context.Context, phase, instruction string) (string, error) {
	r.memory.Instruct(instruction)
	return complete(ctx, r.o.provider, phase, llm.Request{
		Messages:  r.memory.Messages(),
		Model:     r.req.Model,
		MaxTokens: r.o.maxTokens,
	})
}

func (r *run) append(t DialogueTurn) {
	r.script.Body = append(r.script.Body, t)
	r.emit(t)
}

func (r *run) emit(t DialogueTurn) {
	if r.o.onTurn != nil {
		r.o.onTurn(t)
	}
}

func percent(p float64) int {
	return int(math.Round(p * 100))
}
