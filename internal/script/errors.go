package script

import (
	"errors"
	"fmt"
)

const (
	PhaseIntroduction = "introduction"
	PhaseConclusion   = "conclusion"
	PhaseTitle        = "title"
	PhasePersonas     = "personas"
	PhasePersist      = "persist"
)

func ReactionPhase(i int) string { return fmt.Sprintf("reaction_%d", i) }
func QuestionPhase(i int) string { return fmt.Sprintf("question_%d", i) }
func AnswerPhase(i int) string   { return fmt.Sprintf("answer_%d", i) }

// GenerationAborted reports the phase in which a generation run stopped.
type GenerationAborted struct {
	Phase string
	Err   error
}

func (e *GenerationAborted) Error() string {
	return fmt.Sprintf("generation aborted at %s: %v", e.Phase, e.Err)
}

func (e *GenerationAborted) Unwrap() error {
	return e.Err
}

// Abort wraps err with phase unless it already carries one.
func Abort(phase string, err error) error {
	if err == nil {
		return nil
	}
	var ga *GenerationAborted
	if errors.As(err, &ga) {
		return err
	}
	return &GenerationAborted{Phase: phase, Err: err}
}

// PhaseOf returns the aborted phase of err, or "".
func PhaseOf(err error) string {
	var ga *GenerationAborted
	if errors.As(err, &ga) {
		return ga.Phase
	}
	return ""
}
