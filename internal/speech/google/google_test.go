package google

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"

	"interviewcast/internal/speech"
)

type fakeTTS struct {
	last  *texttospeechpb.SynthesizeSpeechRequest
	audio []byte
	err   error
}

func (f *fakeTTS) SynthesizeSpeech(_ context.Context, req *texttospeechpb.SynthesizeSpeechRequest, _ ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &texttospeechpb.SynthesizeSpeechResponse{AudioContent: f.audio}, nil
}

func TestSynthesize(t *testing.T) {
	fake := &fakeTTS{audio: []byte("ID3mp3")}
	p := NewProvider(fake, Options{Speed: 1.1})

	res, err := p.Synthesize(context.Background(), "Hello", speech.Voice{ID: "en-US-Chirp3-HD-Charon", Language: "en"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(res.Audio) != "ID3mp3" || res.Format != speech.FormatMP3 {
		t.Errorf("Synthesize() = %+v", res)
	}
	if got := fake.last.GetVoice().GetName(); got != "en-US-Chirp3-HD-Charon" {
		t.Errorf("voice name = %q", got)
	}
	if got := fake.last.GetAudioConfig().GetSpeakingRate(); got != 1.1 {
		t.Errorf("speaking rate = %v, want 1.1", got)
	}
	if got := fake.last.GetInput().GetText(); got != "Hello" {
		t.Errorf("text = %q", got)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	tests := []struct {
		name  string
		fake  *fakeTTS
		voice speech.Voice
	}{
		{"missingVoice", &fakeTTS{audio: []byte("x")}, speech.Voice{}},
		{"apiError", &fakeTTS{err: errors.New("quota")}, speech.Voice{ID: "en-US-Chirp3-HD-Leda"}},
		{"emptyAudio", &fakeTTS{}, speech.Voice{ID: "en-US-Chirp3-HD-Leda"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewProvider(tt.fake, Options{}).Synthesize(context.Background(), "hi", tt.voice); err == nil {
				t.Error("Synthesize() error = nil, want error")
			}
		})
	}
}

func TestLanguageCode(t *testing.T) {
	tests := []struct {
		name  string
		voice speech.Voice
		want  string
	}{
		{"fromVoiceName", speech.Voice{ID: "fr-FR-Chirp3-HD-Leda", Language: "en"}, "fr-FR"},
		{"fromLanguage", speech.Voice{ID: "Charon", Language: "fr"}, "fr-FR"},
		{"unknownLanguage", speech.Voice{ID: "Charon", Language: "de"}, "en-US"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LanguageCode(tt.voice); got != tt.want {
				t.Errorf("LanguageCode() = %q, want %q", got, tt.want)
			}
		})
	}
}
