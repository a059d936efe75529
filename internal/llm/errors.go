package llm

import (
	"errors"
	"fmt"
)

// CompletionFailure is the only error kind a Provider returns.
type CompletionFailure struct {
	Provider string
	Model    string
	Message  string
	Err      error
}

func (e *CompletionFailure) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Model != "" {
		return fmt.Sprintf("%s completion failed (model %s): %s", e.Provider, e.Model, msg)
	}
	return fmt.Sprintf("%s completion failed: %s", e.Provider, msg)
}

func (e *CompletionFailure) Unwrap() error {
	return e.Err
}

// Fail wraps err as a CompletionFailure unless it already is one.
func Fail(provider, model string, err error) error {
	if err == nil {
		return nil
	}
	var cf *CompletionFailure
	if errors.As(err, &cf) {
		return err
	}
	return &CompletionFailure{Provider: provider, Model: model, Message: err.Error(), Err: err}
}

// Failf builds a CompletionFailure from a formatted vendor message.
func Failf(provider, model, format string, args ...any) error {
	return &CompletionFailure{Provider: provider, Model: model, Message: fmt.Sprintf(format, args...)}
}

func IsCompletionFailure(err error) bool {
	var cf *CompletionFailure
	return errors.As(err, &cf)
}
