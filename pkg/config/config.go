package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath = "config.yaml"

	defaultLLMProvider      = "deepseek"
	defaultFallbackProvider = "deepseek"
	defaultMaxTokens        = 4000
	defaultLLMTimeout       = 90 * time.Second
	defaultDeepSeekModel    = "deepseek-chat"
	defaultDeepSeekURL      = "https://api.deepseek.com"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultOpenAIURL        = "https://api.openai.com/v1"
	defaultGroqModel        = "llama-3.3-70b-versatile"
	defaultAnthropicModel   = "claude-sonnet-4-5"
	defaultGeminiModel      = "gemini-2.5-flash"
	defaultBedrockModel     = "us.amazon.nova-2-lite-v1:0"

	defaultQuestions               = 5
	defaultLanguage                = "en"
	defaultInterjectionProbability = 0.7
	defaultReactionProbability     = 0.4
	defaultTitleMaxTokens          = 200
	defaultSelectionMaxTokens      = 10
	defaultSpokenMaxTokens         = 1000
	defaultVisualMaxTokens         = 500

	defaultPersonaBackend = "sqlite"
	defaultPersonaPath    = "./data/personas.json"

	defaultStoreDriver  = "sqlite"
	defaultSQLitePath   = "./data/interviewcast.db"
	defaultDynamoTable  = "interviewcast"
	defaultDynamoRegion = "us-east-1"

	defaultTTSProvider     = "stub"
	defaultElevenLabsModel = "eleven_flash_v2_5"
	defaultElevenLabsURL   = "https://api.elevenlabs.io/v1"
	defaultStability       = 0.5
	defaultSimilarity      = 0.75
	defaultPollyEngine     = "neural"
	defaultGoogleVoice     = "en-US-Chirp3-HD-Charon"

	defaultAudioOutputDir = "./output"
	defaultPauseMillis    = 500
	defaultFFmpegPath     = "ffmpeg"
	defaultFFprobePath    = "ffprobe"

	defaultResolution      = "1920x1080"
	defaultBackgroundColor = "0x1e1e2e"
	defaultFontSize        = 36

	defaultArtifactBackend = "none"
	defaultArtifactDir     = "./artifacts"
	defaultArtifactPrefix  = "videos"

	defaultServiceName  = "interviewcast"
	defaultOTLPEndpoint = "localhost:4317"
	defaultLogFormat    = "text"
)

type Config struct {
	GroqAPIKey       string
	DeepSeekAPIKey   string
	OpenAIAPIKey     string
	AnthropicAPIKey  string
	GeminiAPIKey     string
	ElevenLabsAPIKey string
	GCPProject       string

	LLM        LLMConfig        `yaml:"llm"`
	Generation GenerationConfig `yaml:"generation"`
	Personas   PersonasConfig   `yaml:"personas"`
	Store      StoreConfig      `yaml:"store"`
	TTS        TTSConfig        `yaml:"tts"`
	Audio      AudioConfig      `yaml:"audio"`
	Video      VideoConfig      `yaml:"video"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

type LLMConfig struct {
	Provider  string         `yaml:"provider"`
	Fallback  string         `yaml:"fallback"`
	Model     string         `yaml:"model"`
	MaxTokens int            `yaml:"max_tokens"`
	Timeout   time.Duration  `yaml:"timeout"`
	DeepSeek  ProviderConfig `yaml:"deepseek"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Groq      ProviderConfig `yaml:"groq"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	Gemini    ProviderConfig `yaml:"gemini"`
	Bedrock   ProviderConfig `yaml:"bedrock"`
}

type ProviderConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	Region  string `yaml:"region"` // bedrock only
}

// GenerationConfig uses pointers where zero is a meaningful setting: a 0
// probability turns a gate off and seed 0 is a valid seed. Nil means unset.
type GenerationConfig struct {
	Questions               int      `yaml:"questions"`
	Language                string   `yaml:"language"`
	InterjectionProbability *float64 `yaml:"interjection_probability"`
	ReactionProbability     *float64 `yaml:"reaction_probability"`
	Seed                    *int64   `yaml:"seed"` // nil draws a fresh seed per run
	TitleMaxTokens          int      `yaml:"title_max_tokens"`
	SelectionMaxTokens      int      `yaml:"selection_max_tokens"`
	SpokenMaxTokens         int      `yaml:"spoken_max_tokens"`
	VisualMaxTokens         int      `yaml:"visual_max_tokens"`
}

// Interjection returns the candidate interjection probability, or the default
// when unset.
func (g GenerationConfig) Interjection() float64 {
	if g.InterjectionProbability == nil {
		return defaultInterjectionProbability
	}
	return *g.InterjectionProbability
}

// Reaction returns the interviewer reaction probability, or the default when
// unset.
func (g GenerationConfig) Reaction() float64 {
	if g.ReactionProbability == nil {
		return defaultReactionProbability
	}
	return *g.ReactionProbability
}

// Ptr returns a pointer to v, for filling optional fields.
func Ptr[T any](v T) *T {
	return &v
}

type PersonasConfig struct {
	Backend  string `yaml:"backend"` // "sqlite" or "file"
	Path     string `yaml:"path"`
	AutoInit bool   `yaml:"auto_init"`
}

type StoreConfig struct {
	Driver       string `yaml:"driver"` // "sqlite" or "dynamodb"
	SQLitePath   string `yaml:"sqlite_path"`
	DynamoTable  string `yaml:"dynamo_table"`
	DynamoRegion string `yaml:"dynamo_region"`
}

type TTSConfig struct {
	Provider   string           `yaml:"provider"` // "stub", "elevenlabs", "polly" or "google"
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Polly      PollyConfig      `yaml:"polly"`
	Google     GoogleTTSConfig  `yaml:"google"`
}

type ElevenLabsConfig struct {
	Model      string            `yaml:"model"`
	BaseURL    string            `yaml:"base_url"`
	Stability  float64           `yaml:"stability"`
	Similarity float64           `yaml:"similarity"`
	Voices     map[string]string `yaml:"voices"`
}

type PollyConfig struct {
	Engine string `yaml:"engine"`
	Region string `yaml:"region"`
}

// GoogleTTSConfig maps persona voice names to Cloud Text-to-Speech voices.
// DefaultVoice speaks for personas without a mapping.
type GoogleTTSConfig struct {
	DefaultVoice string            `yaml:"default_voice"`
	Speed        float64           `yaml:"speed"`
	Pitch        float64           `yaml:"pitch"`
	Voices       map[string]string `yaml:"voices"`
}

type AudioConfig struct {
	OutputDir    string `yaml:"output_dir"`
	PauseMillis  int    `yaml:"pause_ms"`
	FFmpegPath   string `yaml:"ffmpeg_path"`
	FFprobePath  string `yaml:"ffprobe_path"`
	SkipExisting bool   `yaml:"skip_existing"`
}

type VideoConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Resolution      string `yaml:"resolution"`
	BackgroundColor string `yaml:"background_color"`
	FontFile        string `yaml:"font_file"`
	FontSize        int    `yaml:"font_size"`
	Visuals         bool   `yaml:"visuals"`
}

type ArtifactsConfig struct {
	Backend  string `yaml:"backend"` // "none", "local", "gcs" or "s3"
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	LocalDir string `yaml:"local_dir"`
	BaseURL  string `yaml:"base_url"`
}

type TelemetryConfig struct {
	Tracing      bool   `yaml:"tracing"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
	LogFormat    string `yaml:"log_format"` // "text" or "json"
}

func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, defaultConfigPath)
}

func LoadFrom(ctx context.Context, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		GroqAPIKey:       os.Getenv("GROQ_API_KEY"),
		DeepSeekAPIKey:   os.Getenv("DEEPSEEK_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		GCPProject:       os.Getenv("GOOGLE_CLOUD_PROJECT"),
	}

	if err := loadYAMLConfig(cfg, path); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := resolveSecrets(ctx, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAMLConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("No config file found, using defaults", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	g := c.Generation
	if g.Questions < 1 || g.Questions > 20 {
		return fmt.Errorf("generation.questions must be between 1 and 20, got %d", g.Questions)
	}
	if p := g.Interjection(); p < 0 || p > 1 {
		return fmt.Errorf("generation.interjection_probability out of range: %v", p)
	}
	if p := g.Reaction(); p < 0 || p > 1 {
		return fmt.Errorf("generation.reaction_probability out of range: %v", p)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	switch c.Store.Driver {
	case "sqlite", "dynamodb":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// APIKey returns the credential for a named LLM provider.
func (c *Config) APIKey(provider string) string {
	switch provider {
	case "groq":
		return c.GroqAPIKey
	case "deepseek":
		return c.DeepSeekAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic", "claude":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GeminiAPIKey
	}
	return ""
}

func (c *Config) Pause() time.Duration {
	return time.Duration(c.Audio.PauseMillis) * time.Millisecond
}

func applyDefaults(cfg *Config) {
	applyStoreDefaults(cfg)
	applyLLMDefaults(cfg)
	applyGenerationDefaults(cfg)
	applyPersonasDefaults(cfg)
	applyTTSDefaults(cfg)
	applyAudioDefaults(cfg)
	applyVideoDefaults(cfg)
	applyArtifactsDefaults(cfg)
	applyTelemetryDefaults(cfg)
}

func applyLLMDefaults(cfg *Config) {
	l := &cfg.LLM
	if l.Provider == "" {
		l.Provider = defaultLLMProvider
	}
	if l.Fallback == "" {
		l.Fallback = defaultFallbackProvider
	}
	if l.MaxTokens == 0 {
		l.MaxTokens = defaultMaxTokens
	}
	if l.Timeout == 0 {
		l.Timeout = defaultLLMTimeout
	}
	setDefault(&l.DeepSeek.Model, defaultDeepSeekModel)
	setDefault(&l.DeepSeek.BaseURL, defaultDeepSeekURL)
	setDefault(&l.OpenAI.Model, defaultOpenAIModel)
	setDefault(&l.OpenAI.BaseURL, defaultOpenAIURL)
	setDefault(&l.Groq.Model, defaultGroqModel)
	setDefault(&l.Anthropic.Model, defaultAnthropicModel)
	setDefault(&l.Gemini.Model, defaultGeminiModel)
	setDefault(&l.Bedrock.Model, defaultBedrockModel)
	setDefault(&l.Bedrock.Region, cfg.Store.DynamoRegion)
}

func applyGenerationDefaults(cfg *Config) {
	g := &cfg.Generation
	if g.Questions == 0 {
		g.Questions = defaultQuestions
	}
	if g.Language == "" {
		g.Language = defaultLanguage
	}
	if g.InterjectionProbability == nil {
		g.InterjectionProbability = Ptr(defaultInterjectionProbability)
	}
	if g.ReactionProbability == nil {
		g.ReactionProbability = Ptr(defaultReactionProbability)
	}
	if g.TitleMaxTokens == 0 {
		g.TitleMaxTokens = defaultTitleMaxTokens
	}
	if g.SelectionMaxTokens == 0 {
		g.SelectionMaxTokens = defaultSelectionMaxTokens
	}
	if g.SpokenMaxTokens == 0 {
		g.SpokenMaxTokens = defaultSpokenMaxTokens
	}
	if g.VisualMaxTokens == 0 {
		g.VisualMaxTokens = defaultVisualMaxTokens
	}
}

func applyPersonasDefaults(cfg *Config) {
	setDefault(&cfg.Personas.Backend, defaultPersonaBackend)
	setDefault(&cfg.Personas.Path, defaultPersonaPath)
}

func applyStoreDefaults(cfg *Config) {
	setDefault(&cfg.Store.Driver, defaultStoreDriver)
	setDefault(&cfg.Store.SQLitePath, defaultSQLitePath)
	setDefault(&cfg.Store.DynamoTable, defaultDynamoTable)
	setDefault(&cfg.Store.DynamoRegion, defaultDynamoRegion)
}

func applyTTSDefaults(cfg *Config) {
	t := &cfg.TTS
	setDefault(&t.Provider, defaultTTSProvider)
	setDefault(&t.ElevenLabs.Model, defaultElevenLabsModel)
	setDefault(&t.ElevenLabs.BaseURL, defaultElevenLabsURL)
	if t.ElevenLabs.Stability == 0 {
		t.ElevenLabs.Stability = defaultStability
	}
	if t.ElevenLabs.Similarity == 0 {
		t.ElevenLabs.Similarity = defaultSimilarity
	}
	setDefault(&t.Polly.Engine, defaultPollyEngine)
	setDefault(&t.Polly.Region, cfg.Store.DynamoRegion)
	setDefault(&t.Google.DefaultVoice, defaultGoogleVoice)
}

func applyAudioDefaults(cfg *Config) {
	a := &cfg.Audio
	setDefault(&a.OutputDir, defaultAudioOutputDir)
	setDefault(&a.FFmpegPath, defaultFFmpegPath)
	setDefault(&a.FFprobePath, defaultFFprobePath)
	if a.PauseMillis == 0 {
		a.PauseMillis = defaultPauseMillis
	}
}

func applyVideoDefaults(cfg *Config) {
	v := &cfg.Video
	setDefault(&v.Resolution, defaultResolution)
	setDefault(&v.BackgroundColor, defaultBackgroundColor)
	if v.FontSize == 0 {
		v.FontSize = defaultFontSize
	}
}

func applyArtifactsDefaults(cfg *Config) {
	a := &cfg.Artifacts
	setDefault(&a.Backend, defaultArtifactBackend)
	setDefault(&a.Prefix, defaultArtifactPrefix)
	setDefault(&a.LocalDir, defaultArtifactDir)
}

func applyTelemetryDefaults(cfg *Config) {
	t := &cfg.Telemetry
	setDefault(&t.ServiceName, defaultServiceName)
	setDefault(&t.OTLPEndpoint, defaultOTLPEndpoint)
	setDefault(&t.LogFormat, defaultLogFormat)
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
