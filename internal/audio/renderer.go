package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"interviewcast/internal/persona"
	"interviewcast/internal/script"
	"interviewcast/internal/speech"
	"interviewcast/internal/spoken"
	"interviewcast/internal/video"
)

const DefaultPause = 500 * time.Millisecond

// SpeechAdapter rewrites text that does not read well aloud.
type SpeechAdapter interface {
	ForSpeech(ctx context.Context, text, lang string) spoken.Result
}

type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

type Concatenator interface {
	Concat(ctx context.Context, inputs []string, pause time.Duration, output string) error
}

// VoiceFunc maps a persona onto a provider voice.
type VoiceFunc func(p persona.Persona) speech.Voice

func PersonaVoice(p persona.Persona) speech.Voice {
	return speech.Voice{ID: p.VoiceID, Language: p.Language}
}

type Options struct {
	TTS          speech.Provider
	Adapter      SpeechAdapter
	Prober       DurationProber
	Stitcher     Concatenator
	Voice        VoiceFunc
	Pause        time.Duration
	SkipExisting bool
	Logger       *slog.Logger
}

type Renderer struct {
	tts          speech.Provider
	adapter      SpeechAdapter
	prober       DurationProber
	stitcher     Concatenator
	voice        VoiceFunc
	pause        time.Duration
	skipExisting bool
	logger       *slog.Logger
}

func NewRenderer(opts Options) *Renderer {
	if opts.Voice == nil {
		opts.Voice = PersonaVoice
	}
	if opts.Pause <= 0 {
		opts.Pause = DefaultPause
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Renderer{
		tts:          opts.TTS,
		adapter:      opts.Adapter,
		prober:       opts.Prober,
		stitcher:     opts.Stitcher,
		voice:        opts.Voice,
		pause:        opts.Pause,
		skipExisting: opts.SkipExisting,
		logger:       opts.Logger,
	}
}

func (r *Renderer) Pause() time.Duration { return r.pause }

type Result struct {
	Dir       string
	FinalPath string
	Segments  []video.Segment
	Duration  float64
}

// Render synthesizes every turn of s into dir and concatenates them into
// FinalFile. Segments come back in playback order.
func (r *Renderer) Render(ctx context.Context, s *script.Script, dir string) (*Result, error) {
	if r.tts == nil {
		return nil, errors.New("no speech provider configured")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}

	entries := Plan(s.Turns(), s.Conclusion)
	if len(entries) == 0 {
		return nil, errors.New("transcript has no turns")
	}

	res := &Result{Dir: dir, Segments: make([]video.Segment, 0, len(entries))}
	paths := make([]string, 0, len(entries))
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		speaker := s.Interviewer
		if e.Role == script.RoleCandidate {
			speaker = s.Candidate
		}

		seg, err := r.renderEntry(ctx, e, speaker, s.Language, dir)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", e.File, err)
		}
		r.logger.DebugContext(ctx, "Rendered turn", "index", i, "file", e.File, "duration", seg.Duration)

		res.Segments = append(res.Segments, seg)
		paths = append(paths, seg.AudioPath)
	}

	res.FinalPath = filepath.Join(dir, FinalFile)
	if r.stitcher != nil {
		if err := r.stitcher.Concat(ctx, paths, r.pause, res.FinalPath); err != nil {
			return nil, fmt.Errorf("concatenate audio: %w", err)
		}
	}

	res.Duration = video.TotalDuration(video.BuildTimeline(res.Segments, r.pause))
	r.logger.InfoContext(ctx, "Audio rendered", "files", len(paths), "duration", res.Duration, "path", res.FinalPath)
	return res, nil
}

func (r *Renderer) renderEntry(ctx context.Context, e Entry, speaker persona.Persona, lang, dir string) (video.Segment, error) {
	path := filepath.Join(dir, e.File)
	seg := video.Segment{
		QuestionNumber: e.QuestionNumber,
		Role:           e.Role,
		Speaker:        speaker.Name,
		Text:           e.Text,
		AudioPath:      path,
	}

	if r.skipExisting {
		if _, err := os.Stat(path); err == nil {
			r.logger.WarnContext(ctx, "Reusing existing audio file", "file", e.File)
			seg.Duration = r.probe(ctx, path, e.Text)
			return seg, nil
		}
	}

	text := e.Text
	if r.adapter != nil {
		text = r.adapter.ForSpeech(ctx, e.Text, lang).Text
	}

	out, err := r.tts.Synthesize(ctx, text, r.voice(speaker))
	if err != nil {
		return seg, fmt.Errorf("synthesize: %w", err)
	}
	// Stub audio is WAV; ffmpeg and ffprobe sniff the container, so the
	// .mp3 name the downstream tools expect is kept either way.
	if err := os.WriteFile(path, out.Audio, 0644); err != nil {
		return seg, fmt.Errorf("write audio: %w", err)
	}

	seg.Duration = out.Duration
	if seg.Duration <= 0 {
		seg.Duration = r.probe(ctx, path, text)
	}
	return seg, nil
}

func (r *Renderer) probe(ctx context.Context, path, text string) float64 {
	if r.prober != nil {
		d, err := r.prober.Duration(ctx, path)
		if err == nil && d > 0 {
			return d
		}
		r.logger.WarnContext(ctx, "Duration probe failed, estimating from text", "path", path, "error", err)
	}
	return speech.SpokenDuration(text, speech.DefaultWordsPerMinute)
}
