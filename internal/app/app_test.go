package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"interviewcast/internal/audio"
	"interviewcast/internal/llm"
	"interviewcast/internal/llm/mock"
	"interviewcast/internal/persona"
	"interviewcast/internal/script"
	"interviewcast/internal/speech"
	"interviewcast/internal/storage"
	"interviewcast/internal/transcript"
	"interviewcast/pkg/config"
	"interviewcast/pkg/prompts"
)

type fakeStitcher struct{ calls int }

func (f *fakeStitcher) Concat(_ context.Context, inputs []string, _ time.Duration, output string) error {
	f.calls++
	return os.WriteFile(output, []byte(strings.Join(inputs, "\n")), 0644)
}

type fixture struct {
	service  *Service
	pipeline *Pipeline
	provider *mock.Provider
	personas *persona.FileStore
	repo     *transcript.MemoryRepository
	stitcher *fakeStitcher
	outDir   string
	artDir   string
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LLM: config.LLMConfig{
			Provider:  "mock",
			Fallback:  "mock",
			MaxTokens: 4000,
			Timeout:   5 * time.Second,
		},
		Generation: config.GenerationConfig{
			Questions:               3,
			Language:                "en",
			InterjectionProbability: config.Ptr(0.7),
			ReactionProbability:     config.Ptr(0.4),
			Seed:                    config.Ptr(int64(42)),
			TitleMaxTokens:          200,
			SelectionMaxTokens:      10,
			SpokenMaxTokens:         1000,
			VisualMaxTokens:         500,
		},
		Audio:     config.AudioConfig{OutputDir: t.TempDir(), PauseMillis: 500},
		Video:     config.VideoConfig{Visuals: true},
		Artifacts: config.ArtifactsConfig{Backend: "local", Prefix: "videos"},
	}
}

func newFixture(t *testing.T, responder mock.Responder) *fixture {
	t.Helper()

	cfg := testConfig(t)
	p, err := prompts.Default()
	if err != nil {
		t.Fatalf("prompts.Default() error = %v", err)
	}

	f := &fixture{
		provider: mock.New(responder),
		repo:     transcript.NewMemoryRepository(),
		stitcher: &fakeStitcher{},
		outDir:   cfg.Audio.OutputDir,
		artDir:   t.TempDir(),
	}
	f.personas, err = persona.NewFileStore("")
	if err != nil {
		t.Fatal(err)
	}

	registry := llm.NewRegistry("mock", nil)
	registry.Register("mock", func() (llm.Provider, error) { return f.provider, nil })

	f.service = NewService(ServiceOptions{
		Config:   cfg,
		Prompts:  p,
		LLM:      registry,
		Personas: f.personas,
		Sink:     transcript.NewSink(f.repo),
		Audio: audio.Options{
			TTS:      speech.NewStubProvider(0),
			Stitcher: f.stitcher,
			Pause:    cfg.Pause(),
		},
		Artifacts: storage.NewLocalStorage(f.artDir),
	})
	f.pipeline = NewPipeline(f.service)
	return f
}

func questionNumbers(turns []script.DialogueTurn) []int {
	out := make([]int, len(turns))
	for i, tr := range turns {
		out[i] = tr.QuestionNumber
	}
	return out
}

func TestGenerateInitializesEmptyCatalog(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.pipeline.Generate(ctx, GenerateRequest{Topic: "Spring Boot AOP", Questions: 3, Language: "en"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	all, err := f.personas.List(ctx, persona.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) < 10 {
		t.Errorf("catalog has %d personas after initialization, want >= 10", len(all))
	}

	turns := res.Script.Turns()
	if len(turns) < 9 {
		t.Fatalf("turns = %d, want at least 9", len(turns))
	}
	if err := script.CheckOrder(turns); err != nil {
		t.Error(err)
	}
	if got := questionNumbers(turns[:3]); !reflect.DeepEqual(got, []int{0, 0, 0}) {
		t.Errorf("intro question numbers = %v", got)
	}
	if res.Title == "" || strings.HasPrefix(res.Title, `"`) {
		t.Errorf("title = %q", res.Title)
	}
	if res.Selection.Interviewer.Type != persona.Interviewer || res.Selection.Candidate.Type != persona.Candidate {
		t.Errorf("selection = %+v", res.Selection)
	}
}

func TestGenerateRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := persona.Initialize(ctx, f.personas); err != nil {
		t.Fatal(err)
	}

	res, err := f.pipeline.Generate(ctx, GenerateRequest{Topic: "Go channels", Questions: 2})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	fetched, err := f.service.Sink().Fetch(ctx, res.VideoID)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !reflect.DeepEqual(fetched.Turns(), res.Script.Turns()) {
		t.Error("fetched turns differ from generated turns")
	}
	if fetched.Video.Title != res.Title {
		t.Errorf("stored title = %q, want %q", fetched.Video.Title, res.Title)
	}
	if fetched.Video.Metadata.Provider != "mock" || fetched.Video.Metadata.Seed != 42 {
		t.Errorf("metadata = %+v", fetched.Video.Metadata)
	}

	reqs, err := f.service.Sink().Requests(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 1 || reqs[0].Status != transcript.RequestCompleted || reqs[0].VideoID != res.VideoID {
		t.Errorf("requests = %+v", reqs)
	}
	if res.RequestID != reqs[0].ID {
		t.Errorf("request id = %q, want %q", res.RequestID, reqs[0].ID)
	}
}

func TestGenerateExplicitZeroSeed(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := persona.Initialize(ctx, f.personas); err != nil {
		t.Fatal(err)
	}

	res, err := f.pipeline.Generate(ctx, GenerateRequest{Topic: "Go channels", Questions: 1, Seed: config.Ptr(int64(0))})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	fetched, err := f.service.Sink().Fetch(ctx, res.VideoID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Video.Metadata.Seed != 0 {
		t.Errorf("stored seed = %d, want 0", fetched.Video.Metadata.Seed)
	}
}

func TestGenerateNormalizesLanguage(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := persona.Initialize(ctx, f.personas); err != nil {
		t.Fatal(err)
	}

	res, err := f.pipeline.Generate(ctx, GenerateRequest{Topic: "Droit des contrats", Questions: 1, Language: " FR "})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Script.Language != "fr" {
		t.Errorf("script language = %q, want fr", res.Script.Language)
	}
	if res.Script.Interviewer.Language != "fr" || res.Script.Candidate.Language != "fr" {
		t.Errorf("personas = %s (%s) / %s (%s), want french pair",
			res.Script.Interviewer.Name, res.Script.Interviewer.Language,
			res.Script.Candidate.Name, res.Script.Candidate.Language)
	}
}

func TestGenerateRejectsInvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  GenerateRequest
	}{
		{"blankTopic", GenerateRequest{Topic: "   ", Questions: 2}},
		{"tooManyQuestions", GenerateRequest{Topic: "Go", Questions: script.MaxQuestions + 1}},
		{"negativeQuestions", GenerateRequest{Topic: "Go", Questions: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			ctx := context.Background()

			if _, err := f.pipeline.Generate(ctx, tt.req); err == nil {
				t.Fatal("expected error")
			}
			if n := len(f.provider.Calls()); n != 0 {
				t.Errorf("provider calls = %d, want 0", n)
			}
			all, err := f.personas.List(ctx, persona.Filter{})
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 0 {
				t.Errorf("catalog initialized with %d personas for a rejected request", len(all))
			}
			reqs, _ := f.service.Sink().Requests(ctx, 10)
			if len(reqs) != 1 || reqs[0].Status != transcript.RequestFailed {
				t.Errorf("requests = %+v", reqs)
			}
		})
	}
}

func TestGenerateFailureNotPersisted(t *testing.T) {
	f := newFixture(t, func(_ int, req llm.Request) (string, error) {
		last := req.Messages[len(req.Messages)-1].Content
		if strings.Contains(last, "ask question #2") {
			return "", errors.New("vendor timeout")
		}
		return mock.Canned(req), nil
	})
	ctx := context.Background()
	if _, err := persona.Initialize(ctx, f.personas); err != nil {
		t.Fatal(err)
	}

	_, err := f.pipeline.Generate(ctx, GenerateRequest{Topic: "Python FastAPI", Questions: 3})
	if err == nil {
		t.Fatal("expected error")
	}
	var aborted *script.GenerationAborted
	if !errors.As(err, &aborted) || aborted.Phase != "question_2" {
		t.Fatalf("error = %v, want GenerationAborted at question_2", err)
	}
	if !llm.IsCompletionFailure(err) {
		t.Errorf("error %v should wrap a CompletionFailure", err)
	}

	videos, _ := f.service.Sink().List(ctx, 10)
	if len(videos) != 0 {
		t.Errorf("persisted %d videos after failure", len(videos))
	}
	reqs, _ := f.service.Sink().Requests(ctx, 10)
	if len(reqs) != 1 || reqs[0].Status != transcript.RequestFailed || reqs[0].Phase != "question_2" {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestGenerateTitleFailure(t *testing.T) {
	f := newFixture(t, func(_ int, req llm.Request) (string, error) {
		if strings.Contains(strings.ToLower(req.Messages[0].Content), "title") {
			return "", errors.New("rate limited")
		}
		return mock.Canned(req), nil
	})
	ctx := context.Background()
	if _, err := persona.Initialize(ctx, f.personas); err != nil {
		t.Fatal(err)
	}

	_, err := f.pipeline.Generate(ctx, GenerateRequest{Topic: "Kubernetes", Questions: 1})
	if script.PhaseOf(err) != script.PhaseTitle {
		t.Errorf("phase = %q, want title (err %v)", script.PhaseOf(err), err)
	}
}

func TestGenerateExplicitPersonas(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	interviewer, err := f.personas.Create(ctx, persona.Input{
		Name: "Nadia", Type: persona.Interviewer, Specialty: "Rust", VoiceID: "Joanna", Language: "en",
	})
	if err != nil {
		t.Fatal(err)
	}
	candidate, err := f.personas.Create(ctx, persona.Input{
		Name: "Tom", Type: persona.Candidate, VoiceID: "Matthew", Language: "en",
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := f.pipeline.Generate(ctx, GenerateRequest{
		Topic:         "Ownership",
		Questions:     1,
		InterviewerID: interviewer.ID,
		CandidateID:   candidate.ID,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Script.Interviewer.Name != "Nadia" || res.Script.Candidate.Name != "Tom" {
		t.Errorf("personas = %s / %s", res.Script.Interviewer.Name, res.Script.Candidate.Name)
	}

	_, err = f.pipeline.Generate(ctx, GenerateRequest{Topic: "Ownership", Questions: 1, InterviewerID: candidate.ID, CandidateID: candidate.ID})
	if script.PhaseOf(err) != script.PhasePersonas {
		t.Errorf("wrong-role override: phase = %q (err %v)", script.PhaseOf(err), err)
	}
}

func TestGenerateOnTurn(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := persona.Initialize(ctx, f.personas); err != nil {
		t.Fatal(err)
	}

	var seen []script.DialogueTurn
	f.pipeline.OnTurn = func(tr script.DialogueTurn) { seen = append(seen, tr) }

	res, err := f.pipeline.Generate(ctx, GenerateRequest{Topic: "Go", Questions: 2})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(seen, res.Script.Turns()) {
		t.Errorf("OnTurn saw %d turns, script has %d", len(seen), len(res.Script.Turns()))
	}
}

func TestRender(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := persona.Initialize(ctx, f.personas); err != nil {
		t.Fatal(err)
	}

	res, err := f.pipeline.Generate(ctx, GenerateRequest{Topic: "Go generics", Questions: 2, Render: true})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	r := res.Render
	if r == nil {
		t.Fatal("render result missing")
	}

	wantSegments := len(res.Script.Turns()) + 1
	if r.Segments != wantSegments {
		t.Errorf("segments = %d, want %d", r.Segments, wantSegments)
	}
	if r.Duration <= 0 {
		t.Errorf("duration = %v", r.Duration)
	}
	for _, name := range []string{"00_interviewer.mp3", "00_candidate.mp3", "01_candidate.mp3", audio.ConclusionFile, audio.FinalFile} {
		if _, err := os.Stat(filepath.Join(r.OutputDir, "audio", name)); err != nil {
			t.Errorf("missing %s", name)
		}
	}
	srt, err := os.ReadFile(r.SubtitlePath)
	if err != nil {
		t.Fatalf("subtitles: %v", err)
	}
	if !strings.Contains(string(srt), "00:00:00,000 --> ") {
		t.Errorf("unexpected srt:\n%s", srt)
	}
	if r.VideoPath != "" {
		t.Errorf("video path = %q, want none while video is disabled", r.VideoPath)
	}
	if _, ok := r.Artifacts[audio.FinalFile]; !ok {
		t.Errorf("artifacts = %v, want final audio uploaded", r.Artifacts)
	}
	if _, err := os.Stat(filepath.Join(f.artDir, "videos", res.VideoID, "interview.srt")); err != nil {
		t.Error("subtitles were not uploaded")
	}

	fetched, err := f.service.Sink().Fetch(ctx, res.VideoID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Video.Status != transcript.StatusRendered || fetched.Video.Metadata.AudioPath != r.AudioPath {
		t.Errorf("video after render = %+v", fetched.Video)
	}
}

func TestRenderUnknownVideo(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.pipeline.Render(context.Background(), "missing"); !errors.Is(err, transcript.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSanitizeForPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple", input: "Hello World", want: "hello_world"},
		{name: "punctuation", input: "Go: Channels & Goroutines!", want: "go_channels_goroutines"},
		{name: "accents", input: "Révolution", want: "r_volution"},
		{name: "empty", input: "!!!", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeForPath(tt.input); got != tt.want {
				t.Errorf("sanitizeForPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewSession(t *testing.T) {
	base := t.TempDir()
	s, err := newSession(base, "01ABC", "")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(s.dir) != "01ABC_untitled" {
		t.Errorf("dir = %s", s.dir)
	}
	if _, err := os.Stat(s.audioDir()); err != nil {
		t.Errorf("audio dir not created: %v", err)
	}
}

func TestMappedVoice(t *testing.T) {
	voices := map[string]string{"Ruth": "21m00Tcm4TlvDq8ikWAM"}
	p := persona.Persona{VoiceID: "Ruth", Language: "fr"}
	other := persona.Persona{VoiceID: "Matthew", Language: "en"}

	tests := []struct {
		name     string
		fallback string
		p        persona.Persona
		want     speech.Voice
	}{
		{"mapped", "", p, speech.Voice{ID: "21m00Tcm4TlvDq8ikWAM", Language: "fr"}},
		{"passThrough", "", other, speech.Voice{ID: "Matthew", Language: "en"}},
		{"fallback", "en-US-Chirp3-HD-Charon", other, speech.Voice{ID: "en-US-Chirp3-HD-Charon", Language: "en"}},
		{"mappedBeatsFallback", "en-US-Chirp3-HD-Charon", p, speech.Voice{ID: "21m00Tcm4TlvDq8ikWAM", Language: "fr"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mappedVoice(voices, tt.fallback)(tt.p); got != tt.want {
				t.Errorf("mappedVoice() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
