// Package script generates interview transcripts: the three-turn opening, the
// memory-carrying question and answer loop, the closing line and the title.
package script

import (
	"fmt"
	"strings"

	"interviewcast/internal/persona"
)

type Role string

const (
	RoleInterviewer Role = "INTERVIEWER"
	RoleCandidate   Role = "CANDIDATE"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(s)) {
	case RoleInterviewer:
		return RoleInterviewer, nil
	case RoleCandidate:
		return RoleCandidate, nil
	}
	return "", fmt.Errorf("unknown dialogue role %q", s)
}

// IntroductionNumber tags the three opening turns.
const IntroductionNumber = 0

// DialogueTurn is one spoken line of the transcript.
type DialogueTurn struct {
	QuestionNumber int    `json:"question_number"`
	Role           Role   `json:"role"`
	Text           string `json:"text"`
}

// Script is a finished transcript. Body holds questions 1..N in emission
// order, including reaction turns tagged with the previous question number.
type Script struct {
	Topic        string          `json:"topic"`
	Language     string          `json:"language"`
	Introduction string          `json:"introduction"`
	IntroTurns   []DialogueTurn  `json:"intro_turns"`
	Body         []DialogueTurn  `json:"body"`
	Conclusion   string          `json:"conclusion"`
	Interviewer  persona.Persona `json:"interviewer"`
	Candidate    persona.Persona `json:"candidate"`
}

// Turns returns the introduction followed by the body.
func (s *Script) Turns() []DialogueTurn {
	out := make([]DialogueTurn, 0, len(s.IntroTurns)+len(s.Body))
	out = append(out, s.IntroTurns...)
	return append(out, s.Body...)
}

// Questions counts the distinct question numbers in the body.
func (s *Script) Questions() int {
	max := 0
	for _, t := range s.Body {
		if t.QuestionNumber > max {
			max = t.QuestionNumber
		}
	}
	return max
}

// CheckOrder reports the first turn whose question number decreases.
func CheckOrder(turns []DialogueTurn) error {
	for i := 1; i < len(turns); i++ {
		if turns[i].QuestionNumber < turns[i-1].QuestionNumber {
			return fmt.Errorf("turn %d has question number %d after %d", i, turns[i].QuestionNumber, turns[i-1].QuestionNumber)
		}
	}
	return nil
}

// JoinIntroduction renders the opening turns as one text block.
func JoinIntroduction(turns []DialogueTurn) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, "\n\n")
}
