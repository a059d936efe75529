package prompts

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const (
	defaultPromptsPath = "prompts.yaml"
	DefaultLanguage    = "en"
)

//go:embed prompts.yaml
var embedded []byte

type Prompts struct {
	Languages map[string]*LanguagePrompts `yaml:"languages"`
}

type LanguagePrompts struct {
	Name       string           `yaml:"name"`
	Hook       Pair             `yaml:"hook"`
	Welcome    Pair             `yaml:"welcome"`
	Greeting   Pair             `yaml:"greeting"`
	Interview  InterviewPrompts `yaml:"interview"`
	Conclusion Pair             `yaml:"conclusion"`
	Title      Pair             `yaml:"title"`
	Selection  Pair             `yaml:"selection"`
	Spoken     Pair             `yaml:"spoken"`
	Visuals    Pair             `yaml:"visuals"`
}

// Pair holds a system template and a user template for one single-shot call.
type Pair struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type InterviewPrompts struct {
	System        string `yaml:"system"`
	FirstQuestion string `yaml:"first_question"`
	NextQuestion  string `yaml:"next_question"`
	Reaction      string `yaml:"reaction"`
	Answer        string `yaml:"answer"`
}

// Rendered is a system/user prompt pair ready to send.
type Rendered struct {
	System string
	User   string
}

type Persona struct {
	Name        string
	Specialty   string
	Traits      string
	Description string
}

type IntroParams struct {
	Topic        string
	LanguageName string
	Interviewer  Persona
	Candidate    Persona
}

type InterviewParams struct {
	Topic               string
	LanguageName        string
	Interviewer         Persona
	Candidate           Persona
	Questions           int
	ReactionPercent     int
	InterjectionPercent int
}

type QuestionParams struct {
	Number      int
	Topic       string
	Interviewer string
}

type ReactionParams struct {
	Interviewer string
	Reaction    string
}

type AnswerParams struct {
	Candidate    string
	Interjection string
}

type TitleParams struct {
	Topic        string
	LanguageName string
	Questions    int
}

// QuestionsOrDefault is used by title examples when the count is unknown.
func (p TitleParams) QuestionsOrDefault() int {
	if p.Questions > 0 {
		return p.Questions
	}
	return 10
}

type SelectionOption struct {
	Index     int
	Name      string
	Specialty string
	Traits    string
}

type SelectionParams struct {
	Topic   string
	Options []SelectionOption
}

type SpokenParams struct {
	Text string
}

type VisualsParams struct {
	Topic    string
	Duration string
	Text     string
}

// Default returns the prompts compiled into the binary.
func Default() (*Prompts, error) {
	return parse(embedded)
}

// Load reads prompts.yaml from the working directory, falling back to the
// compiled-in defaults when the file does not exist.
func Load() (*Prompts, error) {
	p, err := LoadFrom(defaultPromptsPath)
	if errors.Is(err, os.ErrNotExist) {
		return Default()
	}
	return p, err
}

func LoadFrom(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	if _, ok := p.Languages[DefaultLanguage]; !ok {
		return nil, fmt.Errorf("prompts file has no %q language section", DefaultLanguage)
	}
	return &p, nil
}

// For returns the prompt set for lang, or the English set when lang is unknown.
func (p *Prompts) For(lang string) *LanguagePrompts {
	if lp, ok := p.Languages[lang]; ok {
		return lp
	}
	return p.Languages[DefaultLanguage]
}

func (p *Prompts) Has(lang string) bool {
	_, ok := p.Languages[lang]
	return ok
}

func (l *LanguagePrompts) RenderHook(params IntroParams) (Rendered, error) {
	return renderPair(l.Hook, params)
}

func (l *LanguagePrompts) RenderWelcome(params IntroParams) (Rendered, error) {
	return renderPair(l.Welcome, params)
}

func (l *LanguagePrompts) RenderGreeting(params IntroParams) (Rendered, error) {
	return renderPair(l.Greeting, params)
}

func (l *LanguagePrompts) RenderConclusion(params IntroParams) (Rendered, error) {
	return renderPair(l.Conclusion, params)
}

func (l *LanguagePrompts) RenderInterviewSystem(params InterviewParams) (string, error) {
	return render(l.Interview.System, params)
}

func (l *LanguagePrompts) RenderQuestion(params QuestionParams) (string, error) {
	if params.Number <= 1 {
		return render(l.Interview.FirstQuestion, params)
	}
	return render(l.Interview.NextQuestion, params)
}

func (l *LanguagePrompts) RenderReaction(params ReactionParams) (string, error) {
	return render(l.Interview.Reaction, params)
}

func (l *LanguagePrompts) RenderAnswer(params AnswerParams) (string, error) {
	return render(l.Interview.Answer, params)
}

func (l *LanguagePrompts) RenderTitle(params TitleParams) (Rendered, error) {
	return renderPair(l.Title, params)
}

func (l *LanguagePrompts) RenderSelection(params SelectionParams) (Rendered, error) {
	return renderPair(l.Selection, params)
}

func (l *LanguagePrompts) RenderSpoken(params SpokenParams) (Rendered, error) {
	return renderPair(l.Spoken, params)
}

func (l *LanguagePrompts) RenderVisuals(params VisualsParams) (Rendered, error) {
	return renderPair(l.Visuals, params)
}

func renderPair(pair Pair, data any) (Rendered, error) {
	system, err := render(pair.System, data)
	if err != nil {
		return Rendered{}, err
	}
	user, err := render(pair.User, data)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{System: system, User: user}, nil
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return strings.TrimSpace(buf.String()), nil
}
