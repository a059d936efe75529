package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"interviewcast/internal/audio"
	"interviewcast/internal/llm"
	"interviewcast/internal/llm/bedrock"
	"interviewcast/internal/llm/claude"
	"interviewcast/internal/llm/gemini"
	"interviewcast/internal/llm/groq"
	"interviewcast/internal/llm/mock"
	"interviewcast/internal/llm/openai"
	"interviewcast/internal/observability"
	"interviewcast/internal/persona"
	"interviewcast/internal/speech"
	"interviewcast/internal/speech/elevenlabs"
	"interviewcast/internal/speech/google"
	"interviewcast/internal/speech/polly"
	"interviewcast/internal/storage"
	"interviewcast/internal/store/dynamo"
	"interviewcast/internal/store/sqlite"
	"interviewcast/internal/transcript"
	"interviewcast/internal/video"
	"interviewcast/pkg/config"
	"interviewcast/pkg/prompts"
)

// BuildService wires every collaborator from cfg. Call Close on the result.
func BuildService(ctx context.Context, cfg *config.Config) (*Service, error) {
	b := &builder{ctx: ctx, cfg: cfg, logger: slog.Default()}
	svc, err := b.build()
	if err != nil {
		for i := len(b.closers) - 1; i >= 0; i-- {
			_ = b.closers[i]()
		}
		return nil, err
	}
	return svc, nil
}

type builder struct {
	ctx     context.Context
	cfg     *config.Config
	logger  *slog.Logger
	closers []func() error
	sqlite  *sqlite.Store
}

func (b *builder) build() (*Service, error) {
	p, err := prompts.Load()
	if err != nil {
		return nil, err
	}

	personas, err := b.personaStore()
	if err != nil {
		return nil, err
	}
	if b.cfg.Personas.AutoInit {
		created, err := persona.Initialize(b.ctx, personas)
		if err != nil {
			return nil, fmt.Errorf("initialize personas: %w", err)
		}
		if len(created) > 0 {
			b.logger.Info("Default personas created", "count", len(created))
		}
	}

	repo, err := b.transcriptRepository()
	if err != nil {
		return nil, err
	}

	tts, voice, err := b.speechProvider()
	if err != nil {
		return nil, err
	}

	artifacts, err := b.artifactStorage()
	if err != nil {
		return nil, err
	}

	runner := video.ExecRunner{}
	a := b.cfg.Audio
	v := b.cfg.Video

	opts := ServiceOptions{
		Config:   b.cfg,
		Prompts:  p,
		LLM:      b.registry(),
		Personas: personas,
		Sink:     transcript.NewSink(repo),
		Audio: audio.Options{
			TTS:          tts,
			Prober:       video.NewProber(runner, a.FFprobePath),
			Stitcher:     video.NewStitcher(runner, a.FFmpegPath),
			Voice:        voice,
			Pause:        b.cfg.Pause(),
			SkipExisting: a.SkipExisting,
		},
		Assembler: video.NewAssembler(video.AssemblerOptions{
			Runner:          runner,
			FFmpegPath:      a.FFmpegPath,
			Resolution:      v.Resolution,
			BackgroundColor: v.BackgroundColor,
			FontFile:        v.FontFile,
			FontSize:        v.FontSize,
		}),
		Artifacts: artifacts,
		Logger:    b.logger,
		Closers:   b.closers,
	}
	if b.cfg.Telemetry.Tracing {
		opts.Tracer = observability.Tracer()
	}
	return NewService(opts), nil
}

// registry registers every provider lazily; only the one a request resolves
// to needs credentials.
func (b *builder) registry() *llm.Registry {
	l := b.cfg.LLM
	r := llm.NewRegistry(l.Fallback, b.logger)

	r.Register("deepseek", func() (llm.Provider, error) {
		return openai.NewClient(openai.Options{
			Name:    "deepseek",
			APIKey:  b.cfg.DeepSeekAPIKey,
			Model:   l.DeepSeek.Model,
			BaseURL: l.DeepSeek.BaseURL,
		})
	})
	r.Register("openai", func() (llm.Provider, error) {
		return openai.NewClient(openai.Options{
			APIKey:  b.cfg.OpenAIAPIKey,
			Model:   l.OpenAI.Model,
			BaseURL: l.OpenAI.BaseURL,
		})
	})
	r.Register("groq", func() (llm.Provider, error) {
		return groq.NewClient(groq.Options{
			APIKey:  b.cfg.GroqAPIKey,
			Model:   l.Groq.Model,
			BaseURL: l.Groq.BaseURL,
		})
	})
	anthropic := func() (llm.Provider, error) {
		return claude.NewClient(claude.Options{
			APIKey:  b.cfg.AnthropicAPIKey,
			Model:   l.Anthropic.Model,
			BaseURL: l.Anthropic.BaseURL,
		})
	}
	r.Register("anthropic", anthropic)
	r.Register("claude", anthropic)
	r.Register("gemini", func() (llm.Provider, error) {
		return gemini.NewClient(b.ctx, gemini.Options{
			APIKey:  b.cfg.GeminiAPIKey,
			Project: b.cfg.GCPProject,
			Model:   l.Gemini.Model,
			BaseURL: l.Gemini.BaseURL,
		})
	})
	r.Register("bedrock", func() (llm.Provider, error) {
		awsCfg, err := b.awsConfig(l.Bedrock.Region)
		if err != nil {
			return nil, err
		}
		return bedrock.NewFromConfig(awsCfg, l.Bedrock.Model), nil
	})
	r.Register("mock", func() (llm.Provider, error) {
		return mock.New(nil), nil
	})
	return r
}

func (b *builder) openSQLite() (*sqlite.Store, error) {
	if b.sqlite != nil {
		return b.sqlite, nil
	}
	s, err := sqlite.New(b.cfg.Store.SQLitePath)
	if err != nil {
		return nil, err
	}
	b.sqlite = s
	b.closers = append(b.closers, s.Close)
	return s, nil
}

func (b *builder) personaStore() (persona.Store, error) {
	switch b.cfg.Personas.Backend {
	case "file":
		return persona.NewFileStore(b.cfg.Personas.Path)
	case "sqlite":
		return b.openSQLite()
	}
	return nil, fmt.Errorf("unknown persona backend %q", b.cfg.Personas.Backend)
}

func (b *builder) transcriptRepository() (transcript.Repository, error) {
	switch b.cfg.Store.Driver {
	case "dynamodb":
		awsCfg, err := b.awsConfig(b.cfg.Store.DynamoRegion)
		if err != nil {
			return nil, err
		}
		return dynamo.NewStore(dynamodb.NewFromConfig(awsCfg), b.cfg.Store.DynamoTable), nil
	case "sqlite":
		return b.openSQLite()
	}
	return nil, fmt.Errorf("unknown store driver %q", b.cfg.Store.Driver)
}

// awsConfig loads the default credential chain. An empty region keeps the
// one from the environment.
func (b *builder) awsConfig(region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(b.ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if b.cfg.Telemetry.Tracing {
		otelaws.AppendMiddlewares(&cfg.APIOptions)
	}
	return cfg, nil
}

func (b *builder) speechProvider() (speech.Provider, audio.VoiceFunc, error) {
	t := b.cfg.TTS
	switch t.Provider {
	case "stub":
		return speech.NewStubProvider(speech.DefaultWordsPerMinute), audio.PersonaVoice, nil
	case "elevenlabs":
		client, err := elevenlabs.NewClient(elevenlabs.Config{
			APIKeys:    strings.Split(b.cfg.ElevenLabsAPIKey, ","),
			BaseURL:    t.ElevenLabs.BaseURL,
			Model:      t.ElevenLabs.Model,
			Stability:  t.ElevenLabs.Stability,
			Similarity: t.ElevenLabs.Similarity,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, mappedVoice(t.ElevenLabs.Voices, ""), nil
	case "polly":
		awsCfg, err := b.awsConfig(t.Polly.Region)
		if err != nil {
			return nil, nil, err
		}
		return polly.NewFromConfig(awsCfg, t.Polly.Engine), audio.PersonaVoice, nil
	case "google":
		client, err := google.NewClient(b.ctx, google.Options{Speed: t.Google.Speed, Pitch: t.Google.Pitch})
		if err != nil {
			return nil, nil, err
		}
		b.closers = append(b.closers, client.Close)
		return client, mappedVoice(t.Google.Voices, t.Google.DefaultVoice), nil
	}
	return nil, nil, fmt.Errorf("unknown tts provider %q", t.Provider)
}

// mappedVoice translates persona voice names into provider voice ids. Names
// without a mapping use fallback, or pass through when fallback is empty.
func mappedVoice(voices map[string]string, fallback string) audio.VoiceFunc {
	return func(p persona.Persona) speech.Voice {
		v := audio.PersonaVoice(p)
		if id, ok := voices[p.VoiceID]; ok {
			v.ID = id
		} else if fallback != "" {
			v.ID = fallback
		}
		return v
	}
}

func (b *builder) artifactStorage() (storage.Storage, error) {
	a := b.cfg.Artifacts
	switch a.Backend {
	case "none":
		return nil, nil
	case "local":
		return storage.NewLocalStorage(a.LocalDir), nil
	case "gcs":
		s, err := storage.NewGCSStorage(b.ctx, a.Bucket, a.BaseURL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, s.Close)
		return s, nil
	case "s3":
		awsCfg, err := b.awsConfig("")
		if err != nil {
			return nil, err
		}
		return storage.NewS3FromConfig(awsCfg, a.Bucket, a.BaseURL), nil
	}
	return nil, fmt.Errorf("unknown artifact backend %q", a.Backend)
}
