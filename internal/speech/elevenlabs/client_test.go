package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"interviewcast/internal/speech"
	"interviewcast/pkg/httputil"
)

func helloWorld(audio []byte) []byte {
	data, _ := json.Marshal(timestampResponse{
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
		Alignment: &alignment{
			Characters:          []string{"H", "e", "l", "l", "o", " ", "w", "o", "r", "l", "d"},
			CharacterStartTimes: []float64{0.0, 0.05, 0.1, 0.15, 0.2, 0.25, 0.3, 0.35, 0.4, 0.45, 0.5},
			CharacterEndTimes:   []float64{0.05, 0.1, 0.15, 0.2, 0.25, 0.3, 0.35, 0.4, 0.45, 0.5, 0.55},
		},
	})
	return data
}

func fastRetry() httputil.RetryConfig {
	return httputil.RetryConfig{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Error("missing or incorrect API key header")
		}
		if r.URL.Path != "/text-to-speech/voice-1/with-timestamps" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body synthesisRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Text != "Hello world" || body.ModelID != defaultModel || body.VoiceSettings.Stability != 0.5 {
			t.Errorf("unexpected body: %+v", body)
		}
		_, _ = w.Write(helloWorld([]byte("mp3-bytes")))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKeys: []string{"test-key"}, BaseURL: server.URL, Stability: 0.5, Similarity: 0.75})
	if err != nil {
		t.Fatal(err)
	}

	res, err := client.Synthesize(context.Background(), "Hello world", speech.Voice{ID: "voice-1"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(res.Audio) != "mp3-bytes" || res.Format != speech.FormatMP3 {
		t.Errorf("Synthesize() = %+v", res)
	}
	if len(res.Timings) != 2 || res.Timings[1].Word != "world" || res.Timings[1].StartTime != 0.3 {
		t.Errorf("Timings = %+v", res.Timings)
	}
	if res.Duration != 0.55 {
		t.Errorf("Duration = %v, want 0.55", res.Duration)
	}
}

func TestSynthesizeRotatesKeysOnQuota(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("xi-api-key") == "exhausted" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":{"status":"quota_exceeded"}}`))
			return
		}
		_, _ = w.Write(helloWorld([]byte("ok")))
	}))
	defer server.Close()

	client, _ := NewClient(Config{APIKeys: []string{"exhausted", "fresh"}, BaseURL: server.URL, Retry: fastRetry()})

	for i := 0; i < 2; i++ {
		if _, err := client.Synthesize(context.Background(), "Hello world", speech.Voice{ID: "v"}); err != nil {
			t.Fatalf("Synthesize() attempt %d error = %v", i, err)
		}
	}
}

func TestSynthesizeAllKeysExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := NewClient(Config{APIKeys: []string{"a", "b"}, BaseURL: server.URL, Retry: fastRetry()})
	_, err := client.Synthesize(context.Background(), "Hello", speech.Voice{ID: "v"})
	if err == nil || !strings.Contains(err.Error(), "exhausted") {
		t.Errorf("Synthesize() error = %v, want exhausted", err)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		voice   string
		wantErr string
	}{
		{"badRequest", http.StatusBadRequest, `{"detail":"bad"}`, "v", "400"},
		{"invalidJSON", http.StatusOK, `not json`, "v", "parse response"},
		{"emptyAudio", http.StatusOK, `{"audio_base64":""}`, "v", "empty audio"},
		{"noVoice", http.StatusOK, ``, "", "voice id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, _ := NewClient(Config{APIKeys: []string{"k"}, BaseURL: server.URL, Retry: fastRetry()})
			_, err := client.Synthesize(context.Background(), "Hello", speech.Voice{ID: tt.voice})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Synthesize() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestSynthesizeWithoutAlignmentEstimates(t *testing.T) {
	audio := make([]byte, 32000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := json.Marshal(timestampResponse{AudioBase64: base64.StdEncoding.EncodeToString(audio)})
		_, _ = w.Write(data)
	}))
	defer server.Close()

	client, _ := NewClient(Config{APIKeys: []string{"k"}, BaseURL: server.URL})
	res, err := client.Synthesize(context.Background(), "three little words", speech.Voice{ID: "v"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Duration != 2 || len(res.Timings) != 3 {
		t.Errorf("Synthesize() duration = %v timings = %d", res.Duration, len(res.Timings))
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Config{APIKeys: []string{" "}}); err == nil {
		t.Error("NewClient() should fail without keys")
	}
}
