package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type timeoutProvider struct {
	next    Provider
	timeout time.Duration
}

// WithTimeout bounds every call to next. An expired deadline is reported
// as a CompletionFailure.
func WithTimeout(next Provider, timeout time.Duration) Provider {
	if timeout <= 0 {
		return next
	}
	return &timeoutProvider{next: next, timeout: timeout}
}

func (p *timeoutProvider) Name() string { return p.next.Name() }

func (p *timeoutProvider) Complete(ctx context.Context, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	text, err := p.next.Complete(callCtx, req)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return "", &CompletionFailure{
			Provider: p.next.Name(),
			Model:    req.Model,
			Message:  fmt.Sprintf("timed out after %s", p.timeout),
			Err:      context.DeadlineExceeded,
		}
	}
	return text, err
}

type phaseKey struct{}

// WithPhase tags ctx with the generation phase a call belongs to.
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseKey{}, phase)
}

func PhaseFrom(ctx context.Context) string {
	phase, _ := ctx.Value(phaseKey{}).(string)
	return phase
}

type tracedProvider struct {
	next   Provider
	tracer trace.Tracer
}

// WithTracing opens one span per completion call.
func WithTracing(next Provider, tracer trace.Tracer) Provider {
	return &tracedProvider{next: next, tracer: tracer}
}

func (p *tracedProvider) Name() string { return p.next.Name() }

func (p *tracedProvider) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := p.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.provider", p.next.Name()),
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.max_tokens", req.MaxTokens),
		attribute.Int("llm.messages", len(req.Messages)),
		attribute.String("generation.phase", PhaseFrom(ctx)),
	))
	defer span.End()

	text, err := p.next.Complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("llm.response_chars", len(text)))
	return text, nil
}
