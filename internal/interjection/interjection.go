// Package interjection supplies the canned conversational fillers used to
// texture generated interviews.
package interjection

import (
	"math/rand"
	"strings"
)

const (
	DefaultInterjectionProbability = 0.7
	DefaultReactionProbability     = 0.4
)

// Picker draws gated phrases from an injected random source. A Picker is not
// safe for concurrent use; each generation run owns its own.
type Picker struct {
	rng                     *rand.Rand
	lang                    string
	interjectionProbability float64
	reactionProbability     float64
}

type Options struct {
	Language                string
	InterjectionProbability float64
	ReactionProbability     float64
}

func NewPicker(rng *rand.Rand, opts Options) *Picker {
	return &Picker{
		rng:                     rng,
		lang:                    opts.Language,
		interjectionProbability: opts.InterjectionProbability,
		reactionProbability:     opts.ReactionProbability,
	}
}

// Interjection returns an answer opener, or false when the gate did not fire.
func (p *Picker) Interjection() (string, bool) {
	return p.draw(p.interjectionProbability, Interjections(p.lang))
}

// Reaction returns an interviewer reaction, or false when the gate did not fire.
func (p *Picker) Reaction() (string, bool) {
	return p.draw(p.reactionProbability, Reactions(p.lang))
}

func (p *Picker) draw(probability float64, phrases []string) (string, bool) {
	if p.rng.Float64() >= probability {
		return "", false
	}
	return phrases[p.rng.Intn(len(phrases))], true
}

// EnsurePrefix prepends phrase to text unless text already opens with it or
// with any known interjection in any language.
func EnsurePrefix(text, phrase string) string {
	if phrase == "" {
		return text
	}

	trimmed := strings.TrimLeft(text, " \t\r\n")
	if startsWith(trimmed, phrase) {
		return text
	}
	for _, phrases := range candidateInterjections {
		for _, known := range phrases {
			if startsWith(trimmed, known) {
				return text
			}
		}
	}
	return phrase + text
}

func startsWith(text, phrase string) bool {
	p := strings.TrimSpace(phrase)
	return p != "" && strings.HasPrefix(text, p)
}
