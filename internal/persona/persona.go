package persona

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"interviewcast/pkg/prompts"
)

type Type string

const (
	Interviewer Type = "INTERVIEWER"
	Candidate   Type = "CANDIDATE"
)

func ParseType(s string) (Type, error) {
	switch Type(strings.ToUpper(strings.TrimSpace(s))) {
	case Interviewer:
		return Interviewer, nil
	case Candidate:
		return Candidate, nil
	}
	return "", fmt.Errorf("unknown persona type %q", s)
}

var (
	ErrNotFound             = errors.New("persona not found")
	ErrInsufficientPersonas = errors.New("not enough personas available: need at least one interviewer and one candidate")
)

type Persona struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        Type      `json:"type"`
	Specialty   string    `json:"specialty,omitempty"`
	VoiceID     string    `json:"voice_id"`
	Language    string    `json:"language"`
	Traits      []string  `json:"personality_traits"`
	Description string    `json:"description"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TraitList joins personality traits for prompt text.
func (p Persona) TraitList() string {
	return strings.Join(p.Traits, ", ")
}

// SpecialtyOr returns the specialty or fallback when none is set.
func (p Persona) SpecialtyOr(fallback string) string {
	if p.Specialty == "" {
		return fallback
	}
	return p.Specialty
}

func (p Persona) Prompt() prompts.Persona {
	return prompts.Persona{
		Name:        p.Name,
		Specialty:   p.SpecialtyOr("General"),
		Traits:      p.TraitList(),
		Description: p.Description,
	}
}

// Input describes a persona to create.
type Input struct {
	Name        string
	Type        Type
	Specialty   string
	VoiceID     string
	Language    string
	Traits      []string
	Description string
	Inactive    bool
}

func (in Input) Validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return errors.New("persona name is required")
	case in.Type != Interviewer && in.Type != Candidate:
		return fmt.Errorf("invalid persona type %q", in.Type)
	case in.VoiceID == "":
		return errors.New("persona voice id is required")
	case in.Language == "":
		return errors.New("persona language is required")
	}
	return nil
}

// Normalize trims fields and drops the specialty of candidates.
func (in Input) Normalize() Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Language = strings.ToLower(strings.TrimSpace(in.Language))
	if in.Type == Candidate {
		in.Specialty = ""
	}
	traits := make([]string, 0, len(in.Traits))
	for _, t := range in.Traits {
		if t = strings.TrimSpace(t); t != "" {
			traits = append(traits, t)
		}
	}
	in.Traits = traits
	return in
}

// Update holds optional field changes; nil fields are left untouched.
type Update struct {
	Name        *string
	Specialty   *string
	VoiceID     *string
	Language    *string
	Traits      []string
	Description *string
	Active      *bool
}

func (u Update) Empty() bool {
	return u.Name == nil && u.Specialty == nil && u.VoiceID == nil && u.Language == nil &&
		u.Traits == nil && u.Description == nil && u.Active == nil
}

// Apply writes the set fields of u onto p.
func (u Update) Apply(p *Persona) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Specialty != nil && p.Type == Interviewer {
		p.Specialty = *u.Specialty
	}
	if u.VoiceID != nil {
		p.VoiceID = *u.VoiceID
	}
	if u.Language != nil {
		p.Language = *u.Language
	}
	if u.Traits != nil {
		p.Traits = append([]string(nil), u.Traits...)
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Active != nil {
		p.Active = *u.Active
	}
}

type Filter struct {
	ActiveOnly bool
	Type       Type
	Language   string
}

func (f Filter) Match(p Persona) bool {
	if f.ActiveOnly && !p.Active {
		return false
	}
	if f.Type != "" && p.Type != f.Type {
		return false
	}
	if f.Language != "" && p.Language != f.Language {
		return false
	}
	return true
}
