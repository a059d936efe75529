package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type fakeProvider struct {
	reply string
	err   error
	delay time.Duration
	calls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req Request) (string, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", Fail("fake", req.Model, ctx.Err())
		}
	}
	if f.err != nil {
		return "", Fail("fake", req.Model, f.err)
	}
	return f.reply, nil
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"valid", SingleShot("s", "u", "", 10), nil},
		{"emptyHistory", Request{MaxTokens: 10}, ErrEmptyHistory},
		{"zeroTokens", Request{Messages: []Message{{Role: RoleUser, Content: "x"}}}, ErrInvalidMaxTokens},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestModelOr(t *testing.T) {
	if got := (Request{}).ModelOr("default"); got != "default" {
		t.Errorf("ModelOr() = %q, want default", got)
	}
	if got := (Request{Model: "custom"}).ModelOr("default"); got != "custom" {
		t.Errorf("ModelOr() = %q, want custom", got)
	}
}

func TestFailKeepsExistingFailure(t *testing.T) {
	inner := &CompletionFailure{Provider: "groq", Message: "rate limited"}
	err := Fail("other", "", inner)

	var cf *CompletionFailure
	if !errors.As(err, &cf) || cf.Provider != "groq" {
		t.Errorf("Fail() rewrapped an existing failure: %v", err)
	}
	if Fail("x", "", nil) != nil {
		t.Error("Fail(nil) should be nil")
	}
}

func TestCompletionFailureMessage(t *testing.T) {
	err := Failf("deepseek", "deepseek-chat", "status %d: %s", 429, "slow down")
	want := "deepseek completion failed (model deepseek-chat): status 429: slow down"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestFlatten(t *testing.T) {
	got := Flatten([]Message{
		{Role: RoleSystem, Content: "rules"},
		{Role: RoleUser, Content: "ask"},
		{Role: RoleAssistant, Content: "question?"},
	})
	want := "System Instructions: rules\n\nUser: ask\n\nAssistant: question?"
	if got != want {
		t.Errorf("Flatten() = %q, want %q", got, want)
	}
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "b"},
		{Role: RoleAssistant, Content: "c"},
	})
	if system != "a" {
		t.Errorf("system = %q, want a", system)
	}
	if len(rest) != 2 || rest[0].Role != RoleUser {
		t.Errorf("rest = %+v", rest)
	}
}

func TestWithTimeout(t *testing.T) {
	slow := &fakeProvider{reply: "late", delay: 200 * time.Millisecond}
	p := WithTimeout(slow, 20*time.Millisecond)

	_, err := p.Complete(context.Background(), SingleShot("s", "u", "", 10))
	var cf *CompletionFailure
	if !errors.As(err, &cf) {
		t.Fatalf("error = %v, want CompletionFailure", err)
	}
	if !strings.Contains(cf.Message, "timed out") {
		t.Errorf("Message = %q, want timeout", cf.Message)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("timeout failure should unwrap to DeadlineExceeded")
	}
}

func TestWithTimeoutPassesThrough(t *testing.T) {
	fast := &fakeProvider{reply: "ok"}
	p := WithTimeout(fast, time.Second)

	got, err := p.Complete(context.Background(), SingleShot("s", "u", "", 10))
	if err != nil || got != "ok" {
		t.Errorf("Complete() = %q, %v", got, err)
	}
	if WithTimeout(fast, 0) != Provider(fast) {
		t.Error("zero timeout should return the provider unchanged")
	}
}

func TestWithTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	failing := &fakeProvider{err: errors.New("boom")}
	p := WithTracing(failing, tp.Tracer("test"))

	ctx := WithPhase(context.Background(), "question_2")
	if _, err := p.Complete(ctx, SingleShot("s", "u", "m", 10)); err == nil {
		t.Fatal("expected error")
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	var phase string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "generation.phase" {
			phase = kv.Value.AsString()
		}
	}
	if phase != "question_2" {
		t.Errorf("phase attribute = %q, want question_2", phase)
	}
	if len(spans[0].Events()) == 0 {
		t.Error("error was not recorded on span")
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry("deepseek", nil)
	r.Register("deepseek", func() (Provider, error) { return &fakeProvider{reply: "d"}, nil })
	r.Register("broken", func() (Provider, error) { return nil, errors.New("missing key") })

	tests := []struct {
		name         string
		provider     string
		wantFellBack bool
		wantUsed     string
		wantErr      bool
	}{
		{"known", "deepseek", false, "deepseek", false},
		{"unknownFallsBack", "nope", true, "deepseek", false},
		{"factoryError", "broken", false, "broken", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res, err := r.Resolve(tt.provider)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve() error = %v, wantErr %v", err, tt.wantErr)
			}
			if res.FellBack != tt.wantFellBack || res.Used != tt.wantUsed {
				t.Errorf("Resolve() = %+v", res)
			}
		})
	}

	if got := r.Names(); len(got) != 2 || got[0] != "broken" {
		t.Errorf("Names() = %v", got)
	}
}

func TestRegistryNoFallback(t *testing.T) {
	r := NewRegistry("missing", nil)
	if _, _, err := r.Resolve("anything"); err == nil {
		t.Error("Resolve() should fail without a registered fallback")
	}
}
