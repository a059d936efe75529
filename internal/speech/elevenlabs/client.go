package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"interviewcast/internal/speech"
	"interviewcast/pkg/httputil"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultModel   = "eleven_flash_v2_5"
	requestTimeout = 120 * time.Second
)

var errQuota = errors.New("elevenlabs quota exceeded")

type Config struct {
	APIKeys    []string
	BaseURL    string
	Model      string
	Stability  float64
	Similarity float64
	HTTPClient *http.Client
	Retry      httputil.RetryConfig
}

type Client struct {
	apiKeys    []string
	keyIndex   uint64
	http       *httputil.RetryClient
	baseURL    string
	model      string
	stability  float64
	similarity float64
}

var _ speech.Provider = (*Client)(nil)

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type timestampResponse struct {
	AudioBase64 string     `json:"audio_base64"`
	Alignment   *alignment `json:"alignment"`
}

type alignment struct {
	Characters          []string  `json:"characters"`
	CharacterStartTimes []float64 `json:"character_start_times_seconds"`
	CharacterEndTimes   []float64 `json:"character_end_times_seconds"`
}

func NewClient(cfg Config) (*Client, error) {
	var keys []string
	for _, k := range cfg.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("elevenlabs: at least one API key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	return &Client{
		apiKeys:    keys,
		http:       httputil.NewRetryClient(httpClient, cfg.Retry),
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		stability:  cfg.Stability,
		similarity: cfg.Similarity,
	}, nil
}

func (c *Client) Name() string { return "elevenlabs" }

// Synthesize tries each API key in turn while the service reports quota or
// rate-limit exhaustion.
func (c *Client) Synthesize(ctx context.Context, text string, voice speech.Voice) (*speech.Result, error) {
	if voice.ID == "" {
		return nil, errors.New("elevenlabs: voice id is required")
	}
	url := fmt.Sprintf("%s/text-to-speech/%s/with-timestamps", c.baseURL, voice.ID)

	start := atomic.AddUint64(&c.keyIndex, 1)
	var lastErr error
	for i := 0; i < len(c.apiKeys); i++ {
		key := c.apiKeys[(start+uint64(i))%uint64(len(c.apiKeys))]
		res, err := c.do(ctx, url, text, key)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, errQuota) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (c *Client) do(ctx context.Context, url, text, apiKey string) (*speech.Result, error) {
	payload, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: c.model,
		VoiceSettings: voiceSettings{
			Stability:       c.stability,
			SimilarityBoost: c.similarity,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if isQuotaResponse(resp.StatusCode, body) {
			return nil, fmt.Errorf("%w: %s", errQuota, resp.Status)
		}
		return nil, fmt.Errorf("elevenlabs: %s - %s", resp.Status, string(body))
	}

	return parseResponse(text, body)
}

func isQuotaResponse(status int, body []byte) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	msg := string(body)
	return strings.Contains(msg, "quota_exceeded") || strings.Contains(msg, "rate_limit")
}

func parseResponse(text string, body []byte) (*speech.Result, error) {
	var ts timestampResponse
	if err := json.Unmarshal(body, &ts); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(ts.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("elevenlabs: empty audio")
	}

	timings := parseTimings(text, ts.Alignment)
	duration := speech.Duration(timings)
	if duration == 0 {
		duration = speech.EstimateMP3Duration(audio)
		timings = speech.EstimateTimingsFromDuration(text, duration)
	}

	return &speech.Result{
		Audio:    audio,
		Format:   speech.FormatMP3,
		Duration: duration,
		Timings:  timings,
	}, nil
}

// parseTimings folds character alignment into word timings.
func parseTimings(text string, align *alignment) []speech.WordTiming {
	if align == nil || len(align.Characters) == 0 {
		return nil
	}

	words := strings.Fields(text)
	timings := make([]speech.WordTiming, 0, len(words))
	pos := 0

	for _, word := range words {
		for pos < len(align.Characters) && strings.TrimSpace(align.Characters[pos]) == "" {
			pos++
		}
		if pos >= len(align.Characters) {
			break
		}

		first := pos
		remaining := len([]rune(word))
		for pos < len(align.Characters) && remaining > 0 {
			if strings.TrimSpace(align.Characters[pos]) != "" {
				remaining--
			}
			pos++
		}
		last := pos - 1

		if first < len(align.CharacterStartTimes) && last < len(align.CharacterEndTimes) {
			timings = append(timings, speech.WordTiming{
				Word:      word,
				StartTime: align.CharacterStartTimes[first],
				EndTime:   align.CharacterEndTimes[last],
			})
		}
	}
	return timings
}
