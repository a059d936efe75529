package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"interviewcast/internal/interjection"
	"interviewcast/internal/llm"
	"interviewcast/internal/llm/mock"
	"interviewcast/internal/persona"
	"interviewcast/pkg/prompts"
)

var (
	testInterviewer = persona.Persona{
		ID: "i1", Name: "Marcus", Type: persona.Interviewer, Specialty: "Java Spring Boot",
		VoiceID: "Kevin", Language: "en", Traits: []string{"professional", "thorough"}, Active: true,
	}
	testCandidate = persona.Persona{
		ID: "c1", Name: "Mike", Type: persona.Candidate,
		VoiceID: "Kevin", Language: "en", Traits: []string{"curious"}, Active: true,
	}
)

func mustPrompts(t *testing.T) *prompts.Prompts {
	t.Helper()
	p, err := prompts.Default()
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func newOrchestrator(t *testing.T, provider llm.Provider, interjectionP, reactionP float64) *Orchestrator {
	t.Helper()
	return NewOrchestrator(Options{
		Provider:                provider,
		Prompts:                 mustPrompts(t),
		MaxTokens:               500,
		InterjectionProbability: interjectionP,
		ReactionProbability:     reactionP,
	})
}

func request(topic, lang string, n int) Request {
	return Request{
		Topic:       topic,
		Questions:   n,
		Language:    lang,
		Interviewer: testInterviewer,
		Candidate:   testCandidate,
		Seed:        7,
	}
}

func questionNumbers(turns []DialogueTurn) []int {
	out := make([]int, len(turns))
	for i, t := range turns {
		out[i] = t.QuestionNumber
	}
	return out
}

func TestGenerateStructure(t *testing.T) {
	tests := []struct {
		name      string
		questions int
		reactionP float64
		wantBody  int
	}{
		{"springBootNoReactions", 3, 0, 6},
		{"springBootAllReactions", 3, 1, 8},
		{"singleQuestion", 1, 1, 2},
		{"maxQuestions", 20, 0, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrchestrator(t, mock.New(nil), interjection.DefaultInterjectionProbability, tt.reactionP)

			s, err := o.Generate(context.Background(), request("Spring Boot AOP", "en", tt.questions))
			if err != nil {
				t.Fatalf("Generate() error: %v", err)
			}

			if len(s.IntroTurns) != 3 {
				t.Fatalf("intro turns = %d, want 3", len(s.IntroTurns))
			}
			wantRoles := []Role{RoleInterviewer, RoleInterviewer, RoleCandidate}
			for i, turn := range s.IntroTurns {
				if turn.QuestionNumber != 0 || turn.Role != wantRoles[i] {
					t.Errorf("intro[%d] = %+v", i, turn)
				}
			}

			if len(s.Body) != tt.wantBody {
				t.Errorf("body turns = %d, want %d", len(s.Body), tt.wantBody)
			}
			if err := CheckOrder(s.Turns()); err != nil {
				t.Errorf("CheckOrder() = %v, numbers %v", err, questionNumbers(s.Turns()))
			}
			if s.Conclusion == "" || s.Introduction == "" {
				t.Error("conclusion and introduction must be set")
			}
			if s.Questions() != tt.questions {
				t.Errorf("Questions() = %d, want %d", s.Questions(), tt.questions)
			}
		})
	}
}

func TestGenerateScenarioSpringBoot(t *testing.T) {
	o := newOrchestrator(t, mock.New(nil), 0.7, 0.4)

	s, err := o.Generate(context.Background(), request("Spring Boot AOP", "en", 3))
	if err != nil {
		t.Fatal(err)
	}

	turns := s.Turns()
	if len(turns) < 9 {
		t.Fatalf("turns = %d, want at least 9", len(turns))
	}

	counts := map[int]map[Role]int{}
	for _, turn := range turns {
		if counts[turn.QuestionNumber] == nil {
			counts[turn.QuestionNumber] = map[Role]int{}
		}
		counts[turn.QuestionNumber][turn.Role]++
	}
	for q := 1; q <= 3; q++ {
		if counts[q][RoleCandidate] != 1 {
			t.Errorf("question %d has %d answers, want 1", q, counts[q][RoleCandidate])
		}
		if c := counts[q][RoleInterviewer]; c < 1 || c > 2 {
			t.Errorf("question %d has %d interviewer turns", q, c)
		}
	}
}

func TestReactionTagging(t *testing.T) {
	o := newOrchestrator(t, mock.New(nil), 0, 1)

	s, err := o.Generate(context.Background(), request("Go", "en", 3))
	if err != nil {
		t.Fatal(err)
	}

	// q1, a1, r(1), q2, a2, r(2), q3, a3
	want := []struct {
		number int
		role   Role
		prefix string
	}{
		{1, RoleInterviewer, "Question 1"},
		{1, RoleCandidate, ""},
		{1, RoleInterviewer, ""},
		{2, RoleInterviewer, "Question 2"},
		{2, RoleCandidate, ""},
		{2, RoleInterviewer, ""},
		{3, RoleInterviewer, "Question 3"},
		{3, RoleCandidate, ""},
	}
	if len(s.Body) != len(want) {
		t.Fatalf("body = %d turns, want %d: %v", len(s.Body), len(want), questionNumbers(s.Body))
	}

	reactions := strings.Join(interjection.Reactions("en"), "\n")
	for i, w := range want {
		got := s.Body[i]
		if got.QuestionNumber != w.number || got.Role != w.role {
			t.Errorf("body[%d] = (%d, %s), want (%d, %s)", i, got.QuestionNumber, got.Role, w.number, w.role)
		}
		if w.prefix != "" && !strings.HasPrefix(got.Text, w.prefix) {
			t.Errorf("body[%d] text = %q, want prefix %q", i, got.Text, w.prefix)
		}
	}
	for _, i := range []int{2, 5} {
		opener := strings.SplitAfter(s.Body[i].Text, " ")[0]
		if !strings.Contains(reactions, strings.TrimSpace(opener)) {
			t.Errorf("reaction turn %q does not open with a canned reaction", s.Body[i].Text)
		}
	}
}

func TestMemoryOrder(t *testing.T) {
	provider := mock.New(nil)
	o := newOrchestrator(t, provider, 1, 1)

	if _, err := o.Generate(context.Background(), request("Go", "en", 3)); err != nil {
		t.Fatal(err)
	}

	calls := provider.Calls()
	// 3 intro + q1 a1 + (r q a) x2 + conclusion
	if len(calls) != 3+2+3*2+1 {
		t.Fatalf("calls = %d", len(calls))
	}

	for i := 0; i < 3; i++ {
		if len(calls[i].Messages) != 2 {
			t.Errorf("intro call %d carries %d messages, want 2", i, len(calls[i].Messages))
		}
	}
	if last := calls[len(calls)-1]; len(last.Messages) != 2 {
		t.Errorf("conclusion call carries %d messages, want 2", len(last.Messages))
	}

	loop := calls[3 : len(calls)-1]
	system := loop[0].Messages[0]
	for i, call := range loop {
		msgs := call.Messages
		if msgs[0] != system || msgs[0].Role != llm.RoleSystem {
			t.Fatalf("loop call %d does not start with the system turn", i)
		}
		if want := 2 + 2*i; len(msgs) != want {
			t.Errorf("loop call %d has %d messages, want %d", i, len(msgs), want)
		}
		for j := 1; j < len(msgs); j++ {
			want := llm.RoleUser
			if j%2 == 0 {
				want = llm.RoleAssistant
			}
			if msgs[j].Role != want {
				t.Errorf("loop call %d message %d role = %s, want %s", i, j, msgs[j].Role, want)
			}
		}
		if i > 0 {
			prev := loop[i-1].Messages
			for j := range prev {
				if msgs[j] != prev[j] {
					t.Fatalf("loop call %d rewrote memory entry %d", i, j)
				}
			}
		}
	}

	q2 := loop[3]
	if !strings.Contains(q2.Messages[len(q2.Messages)-1].Content, "#2") {
		t.Errorf("fourth loop call should ask question 2: %q", q2.Messages[len(q2.Messages)-1].Content)
	}
	if !strings.Contains(q2.Messages[len(q2.Messages)-1].Content, "Build on the previous conversation") {
		t.Error("later questions should use the follow-up instruction")
	}
	if !strings.Contains(loop[0].Messages[1].Content, "This is the first question") {
		t.Error("question 1 should use the first-question instruction")
	}
}

func TestInterjectionPostCheck(t *testing.T) {
	provider := mock.New(func(n int, req llm.Request) (string, error) {
		user := req.Messages[len(req.Messages)-1].Content
		if strings.Contains(user, "answer the question") {
			return "Dependency injection decouples construction from use.", nil
		}
		return mock.Canned(req), nil
	})
	o := newOrchestrator(t, provider, 1, 0)

	s, err := o.Generate(context.Background(), request("Go", "en", 2))
	if err != nil {
		t.Fatal(err)
	}

	memory := provider.Calls()[len(provider.Calls())-2].Messages
	for _, turn := range s.Body {
		if turn.Role != RoleCandidate {
			continue
		}
		if !strings.HasSuffix(turn.Text, "Dependency injection decouples construction from use.") {
			t.Errorf("answer = %q", turn.Text)
		}
		if turn.Text == "Dependency injection decouples construction from use." {
			t.Errorf("answer %q missing interjection", turn.Text)
		}
		if interjection.EnsurePrefix(turn.Text, "Well, ") != turn.Text {
			t.Errorf("answer %q does not open with a known interjection", turn.Text)
		}
	}

	found := false
	for _, m := range memory {
		if m.Role == llm.RoleAssistant && m.Content == s.Body[1].Text {
			found = true
		}
	}
	if !found {
		t.Error("memory should hold the prefixed answer")
	}
}

func TestGenerateFrench(t *testing.T) {
	provider := mock.New(nil)
	o := newOrchestrator(t, provider, 1, 1)

	req := request("Python FastAPI", "fr", 3)
	req.Interviewer.Language, req.Candidate.Language = "fr", "fr"

	s, err := o.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	for _, call := range provider.Calls() {
		if !strings.Contains(call.Messages[0].Content, "français") {
			t.Errorf("system prompt is not french: %q", call.Messages[0].Content)
		}
	}

	english := append(interjection.Interjections("en"), interjection.Reactions("en")...)
	french := strings.Join(append(interjection.Interjections("fr"), interjection.Reactions("fr")...), "\n")
	for _, call := range provider.Calls() {
		user := call.Messages[len(call.Messages)-1].Content
		for _, phrase := range english {
			if strings.Contains(user, `"`+phrase+`"`) && !strings.Contains(french, phrase) {
				t.Errorf("french run used english phrase %q", phrase)
			}
		}
	}

	for _, turn := range s.Body {
		if turn.Role == RoleCandidate && interjection.EnsurePrefix(turn.Text, "Eh bien, ") != turn.Text {
			t.Errorf("french answer %q lacks interjection", turn.Text)
		}
	}
}

type stallingProvider struct {
	inner llm.Provider
	stall string
}

func (p *stallingProvider) Name() string { return "stalling" }

func (p *stallingProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	if llm.PhaseFrom(ctx) == p.stall {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return p.inner.Complete(ctx, req)
}

func TestGenerateQuestionTimeout(t *testing.T) {
	provider := llm.WithTimeout(&stallingProvider{inner: mock.New(nil), stall: QuestionPhase(2)}, 20*time.Millisecond)
	o := newOrchestrator(t, provider, 0.7, 0.4)

	s, err := o.Generate(context.Background(), request("Go", "en", 3))
	if err == nil {
		t.Fatal("Generate() should fail")
	}
	if s != nil {
		t.Error("no partial script may be returned")
	}

	var aborted *GenerationAborted
	if !errors.As(err, &aborted) || aborted.Phase != "question_2" {
		t.Fatalf("error = %v, want GenerationAborted at question_2", err)
	}
	if !llm.IsCompletionFailure(err) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want timed-out CompletionFailure", err)
	}
}

func TestGenerateFailurePhases(t *testing.T) {
	tests := []struct {
		name      string
		failOn    string
		reactionP float64
		wantPhase string
	}{
		{"hook", "captivating introduction", 0, PhaseIntroduction},
		{"greeting", "How are you doing today?\n", 0, PhaseIntroduction},
		{"firstAnswer", "answer the question", 0, AnswerPhase(1)},
		{"reaction", "react briefly", 1, ReactionPhase(2)},
		{"conclusion", "conclusion", 0, PhaseConclusion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mock.New(func(n int, req llm.Request) (string, error) {
				if strings.Contains(req.Messages[len(req.Messages)-1].Content, tt.failOn) {
					return "", errors.New("quota exceeded")
				}
				return mock.Canned(req), nil
			})
			o := newOrchestrator(t, provider, 0, tt.reactionP)

			_, err := o.Generate(context.Background(), request("Go", "en", 2))
			if got := PhaseOf(err); got != tt.wantPhase {
				t.Errorf("phase = %q, want %q (err %v)", got, tt.wantPhase, err)
			}
			if !strings.Contains(err.Error(), "quota exceeded") {
				t.Errorf("error %q should carry the vendor message", err)
			}
		})
	}
}

func TestGenerateCancelled(t *testing.T) {
	provider := mock.New(nil)
	o := newOrchestrator(t, provider, 0.7, 0.4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Generate(ctx, request("Go", "en", 2))
	if !errors.Is(err, context.Canceled) || PhaseOf(err) != PhaseIntroduction {
		t.Errorf("error = %v, want cancelled introduction", err)
	}
	if len(provider.Calls()) != 0 {
		t.Errorf("calls = %d, want 0", len(provider.Calls()))
	}
}

func TestGenerateDeterministic(t *testing.T) {
	gen := func() *Script {
		o := newOrchestrator(t, mock.New(nil), 0.7, 0.4)
		s, err := o.Generate(context.Background(), request("Go", "en", 5))
		if err != nil {
			t.Fatal(err)
		}
		return s
	}

	a, b := gen(), gen()
	if fmt.Sprint(a.Body) != fmt.Sprint(b.Body) {
		t.Error("equal seeds produced different scripts")
	}
}

func TestGenerateValidates(t *testing.T) {
	o := newOrchestrator(t, mock.New(nil), 0.7, 0.4)

	for _, n := range []int{0, 21} {
		if _, err := o.Generate(context.Background(), request("Go", "en", n)); err == nil {
			t.Errorf("Generate() with %d questions should fail", n)
		}
	}
	if _, err := o.Generate(context.Background(), request(" ", "en", 2)); err == nil {
		t.Error("Generate() with blank topic should fail")
	}
}

func TestOnTurn(t *testing.T) {
	var seen []DialogueTurn
	o := NewOrchestrator(Options{
		Provider: mock.New(nil),
		Prompts:  mustPrompts(t),
		OnTurn:   func(turn DialogueTurn) { seen = append(seen, turn) },
	})

	s, err := o.Generate(context.Background(), request("Go", "en", 2))
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != len(s.Turns()) {
		t.Errorf("OnTurn saw %d turns, script has %d", len(seen), len(s.Turns()))
	}
}

func TestConversation(t *testing.T) {
	c := NewConversation("rules")
	c.Instruct("ask")
	c.Reply("question")

	msgs := c.Messages()
	want := []llm.Role{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant}
	if len(msgs) != len(want) {
		t.Fatalf("Messages() = %d", len(msgs))
	}
	for i, role := range want {
		if msgs[i].Role != role {
			t.Errorf("msgs[%d].Role = %s, want %s", i, msgs[i].Role, role)
		}
	}

	turns := c.Turns()
	turns[0].Content = "mutated"
	if c.Messages()[0].Content != "rules" {
		t.Error("Turns() must return a copy")
	}
}

func TestCheckOrder(t *testing.T) {
	ok := []DialogueTurn{{QuestionNumber: 0}, {QuestionNumber: 1}, {QuestionNumber: 1}, {QuestionNumber: 2}}
	if err := CheckOrder(ok); err != nil {
		t.Errorf("CheckOrder() = %v", err)
	}
	bad := []DialogueTurn{{QuestionNumber: 2}, {QuestionNumber: 1}}
	if err := CheckOrder(bad); err == nil {
		t.Error("CheckOrder() should reject decreasing numbers")
	}
}
