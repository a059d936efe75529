// Package google synthesizes speech with Google Cloud Text-to-Speech.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"

	"interviewcast/internal/speech"
)

var languageCodes = map[string]string{
	"en": "en-US",
	"fr": "fr-FR",
}

// SynthesizeAPI is the part of *texttospeech.Client the provider calls.
type SynthesizeAPI interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
}

type Options struct {
	Speed float64
	Pitch float64
}

type Provider struct {
	client SynthesizeAPI
	closer func() error
	speed  float64
	pitch  float64
}

var _ speech.Provider = (*Provider)(nil)

func NewProvider(client SynthesizeAPI, opts Options) *Provider {
	return &Provider{client: client, speed: opts.Speed, pitch: opts.Pitch}
}

// NewClient dials Cloud Text-to-Speech with application default credentials.
func NewClient(ctx context.Context, opts Options) (*Provider, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}
	p := NewProvider(client, opts)
	p.closer = client.Close
	return p, nil
}

func (p *Provider) Name() string { return "google" }

func (p *Provider) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

func (p *Provider) Synthesize(ctx context.Context, text string, voice speech.Voice) (*speech.Result, error) {
	if voice.ID == "" {
		return nil, errors.New("google tts: voice id is required")
	}

	resp, err := p.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: LanguageCode(voice),
			Name:         voice.ID,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  p.speed,
			Pitch:         p.pitch,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("google tts synthesize: %w", err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, errors.New("google tts: empty audio")
	}

	return &speech.Result{Audio: resp.GetAudioContent(), Format: speech.FormatMP3}, nil
}

// LanguageCode takes the locale from a voice name such as
// "fr-FR-Chirp3-HD-Leda", falling back to the persona language.
func LanguageCode(voice speech.Voice) string {
	parts := strings.SplitN(voice.ID, "-", 3)
	if len(parts) == 3 && len(parts[0]) == 2 && len(parts[1]) == 2 {
		return parts[0] + "-" + parts[1]
	}
	if code, ok := languageCodes[voice.Language]; ok {
		return code
	}
	return languageCodes["en"]
}
