// Package speech synthesizes dialogue turns into audio.
package speech

import (
	"context"
	"strings"
)

const DefaultWordsPerMinute = 150.0

type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

type WordTiming struct {
	Word      string
	StartTime float64
	EndTime   float64
}

// Result is one synthesized utterance. Duration is zero when the provider
// cannot tell it without probing the audio.
type Result struct {
	Audio    []byte
	Format   Format
	Duration float64
	Timings  []WordTiming
}

// Voice selects the speaker. ID is provider specific (an ElevenLabs voice id,
// a Polly voice name).
type Voice struct {
	ID       string
	Language string
}

type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string, voice Voice) (*Result, error)
}

// EstimateTimingsFromDuration spreads duration over the words of text,
// weighting longer words.
func EstimateTimingsFromDuration(text string, duration float64) []WordTiming {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	avg := duration / float64(len(words))
	timings := make([]WordTiming, len(words))
	current := 0.0

	for i, word := range words {
		d := avg * (0.8 + 0.4*float64(len([]rune(word)))/5.0)
		timings[i] = WordTiming{Word: word, StartTime: current, EndTime: current + d}
		current += d
	}

	if current > 0 {
		scale := duration / current
		for i := range timings {
			timings[i].StartTime *= scale
			timings[i].EndTime *= scale
		}
	}
	return timings
}

// EstimateMP3Duration assumes a 128 kbps constant bitrate.
func EstimateMP3Duration(audio []byte) float64 {
	return float64(len(audio)*8) / 128000.0
}

func SpokenDuration(text string, wordsPerMinute float64) float64 {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	return float64(len(strings.Fields(text))) * 60.0 / wordsPerMinute
}

// Duration is the end time of the last timing.
func Duration(timings []WordTiming) float64 {
	if len(timings) == 0 {
		return 0
	}
	return timings[len(timings)-1].EndTime
}
