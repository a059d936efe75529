// Package polly synthesizes speech with Amazon Polly.
package polly

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awspolly "github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"

	"interviewcast/internal/speech"
)

const sampleRate = "24000"

var languageCodes = map[string]types.LanguageCode{
	"en": types.LanguageCodeEnUs,
	"fr": types.LanguageCodeFrFr,
}

// SynthesizeAPI is the part of *polly.Client the provider calls.
type SynthesizeAPI interface {
	SynthesizeSpeech(ctx context.Context, in *awspolly.SynthesizeSpeechInput, opts ...func(*awspolly.Options)) (*awspolly.SynthesizeSpeechOutput, error)
}

type Provider struct {
	client SynthesizeAPI
	engine types.Engine
}

var _ speech.Provider = (*Provider)(nil)

// NewProvider uses engine "neural" when engine is empty.
func NewProvider(client SynthesizeAPI, engine string) *Provider {
	e := types.Engine(engine)
	if e == "" {
		e = types.EngineNeural
	}
	return &Provider{client: client, engine: e}
}

func NewFromConfig(cfg aws.Config, engine string) *Provider {
	return NewProvider(awspolly.NewFromConfig(cfg), engine)
}

func (p *Provider) Name() string { return "polly" }

func (p *Provider) Synthesize(ctx context.Context, text string, voice speech.Voice) (*speech.Result, error) {
	if voice.ID == "" {
		return nil, errors.New("polly: voice id is required")
	}
	lang, ok := languageCodes[voice.Language]
	if !ok {
		lang = types.LanguageCodeEnUs
	}

	resp, err := p.client.SynthesizeSpeech(ctx, &awspolly.SynthesizeSpeechInput{
		Engine:       p.engine,
		OutputFormat: types.OutputFormatMp3,
		SampleRate:   aws.String(sampleRate),
		Text:         aws.String(text),
		TextType:     types.TextTypeText,
		VoiceId:      types.VoiceId(voice.ID),
		LanguageCode: lang,
	})
	if err != nil {
		return nil, fmt.Errorf("polly synthesize: %w", err)
	}
	defer resp.AudioStream.Close()

	data, err := io.ReadAll(resp.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("polly read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("polly: empty audio stream")
	}

	return &speech.Result{Audio: data, Format: speech.FormatMP3}, nil
}
