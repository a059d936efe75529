package polly

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awspolly "github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"

	"interviewcast/internal/speech"
)

type fakePolly struct {
	last  *awspolly.SynthesizeSpeechInput
	audio string
	err   error
}

func (f *fakePolly) SynthesizeSpeech(_ context.Context, in *awspolly.SynthesizeSpeechInput, _ ...func(*awspolly.Options)) (*awspolly.SynthesizeSpeechOutput, error) {
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return &awspolly.SynthesizeSpeechOutput{AudioStream: io.NopCloser(strings.NewReader(f.audio))}, nil
}

func TestSynthesize(t *testing.T) {
	tests := []struct {
		name     string
		voice    speech.Voice
		wantLang types.LanguageCode
	}{
		{"english", speech.Voice{ID: "Ruth", Language: "en"}, types.LanguageCodeEnUs},
		{"french", speech.Voice{ID: "Lea", Language: "fr"}, types.LanguageCodeFrFr},
		{"unknownLanguage", speech.Voice{ID: "Hans", Language: "de"}, types.LanguageCodeEnUs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakePolly{audio: "ID3mp3"}
			res, err := NewProvider(fake, "").Synthesize(context.Background(), "Bonjour", tt.voice)
			if err != nil {
				t.Fatalf("Synthesize() error = %v", err)
			}
			if string(res.Audio) != "ID3mp3" || res.Format != speech.FormatMP3 {
				t.Errorf("Synthesize() = %+v", res)
			}
			if fake.last.LanguageCode != tt.wantLang {
				t.Errorf("LanguageCode = %q, want %q", fake.last.LanguageCode, tt.wantLang)
			}
			if fake.last.Engine != types.EngineNeural || string(fake.last.VoiceId) != tt.voice.ID {
				t.Errorf("input = engine %q voice %q", fake.last.Engine, fake.last.VoiceId)
			}
			if aws.ToString(fake.last.Text) != "Bonjour" {
				t.Errorf("Text = %q", aws.ToString(fake.last.Text))
			}
		})
	}
}

func TestSynthesizeErrors(t *testing.T) {
	if _, err := NewProvider(&fakePolly{err: errors.New("throttled")}, "").Synthesize(context.Background(), "x", speech.Voice{ID: "Ruth"}); err == nil {
		t.Error("Synthesize() should surface API errors")
	}
	if _, err := NewProvider(&fakePolly{}, "").Synthesize(context.Background(), "x", speech.Voice{ID: "Ruth"}); err == nil {
		t.Error("Synthesize() should reject an empty stream")
	}
	if _, err := NewProvider(&fakePolly{audio: "a"}, "").Synthesize(context.Background(), "x", speech.Voice{}); err == nil {
		t.Error("Synthesize() should require a voice")
	}
}

func TestEngineOverride(t *testing.T) {
	fake := &fakePolly{audio: "a"}
	_, _ = NewProvider(fake, "generative").Synthesize(context.Background(), "x", speech.Voice{ID: "Ruth"})
	if fake.last.Engine != types.EngineGenerative {
		t.Errorf("Engine = %q", fake.last.Engine)
	}
}
