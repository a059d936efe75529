package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"interviewcast/internal/audio"
	"interviewcast/internal/persona"
	"interviewcast/internal/script"
	"interviewcast/internal/storage"
	"interviewcast/internal/transcript"
	"interviewcast/internal/video"
	"interviewcast/pkg/config"
)

type Pipeline struct {
	service *Service
	tracer  trace.Tracer
	logger  *slog.Logger
	// OnTurn, when set, receives every transcript turn as it is generated.
	OnTurn func(script.DialogueTurn)
}

type GenerateRequest struct {
	Topic     string
	Questions int
	Language  string
	Model     string
	Provider  string
	// Seed makes interjection and reaction draws reproducible. Nil falls back
	// to the configured seed, then to a fresh one.
	Seed *int64
	// InterviewerID and CandidateID bypass selection when set.
	InterviewerID string
	CandidateID   string
	Render        bool
}

type GenerateResult struct {
	VideoID   string
	RequestID string
	Title     string
	Script    *script.Script
	Selection *persona.Selection
	Render    *RenderResult
}

type RenderResult struct {
	VideoID      string
	OutputDir    string
	AudioPath    string
	SubtitlePath string
	VideoPath    string
	Duration     float64
	Segments     int
	Artifacts    map[string]string
}

func NewPipeline(service *Service) *Pipeline {
	tracer := service.tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Pipeline{service: service, tracer: tracer, logger: service.logger}
}

func (p *Pipeline) withDefaults(req GenerateRequest) GenerateRequest {
	g := p.service.cfg.Generation
	if req.Questions == 0 {
		req.Questions = g.Questions
	}
	if strings.TrimSpace(req.Language) == "" {
		req.Language = g.Language
	}
	req.Language = strings.ToLower(strings.TrimSpace(req.Language))
	if req.Model == "" {
		req.Model = p.service.cfg.LLM.Model
	}
	if req.Provider == "" {
		req.Provider = p.service.cfg.LLM.Provider
	}
	if req.Seed == nil {
		req.Seed = g.Seed
	}
	if req.Seed == nil {
		req.Seed = config.Ptr(time.Now().UnixNano())
	}
	return req
}

// validate rejects requests before any completion is spent on them.
func (r GenerateRequest) validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return errors.New("topic is required")
	}
	if r.Questions < script.MinQuestions || r.Questions > script.MaxQuestions {
		return fmt.Errorf("questions must be between %d and %d, got %d", script.MinQuestions, script.MaxQuestions, r.Questions)
	}
	return nil
}

// Generate runs persona selection, title, script and persistence. Nothing is
// persisted unless every generation step succeeded; the request itself is
// always recorded.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	req = p.withDefaults(req)

	ctx, span := p.tracer.Start(ctx, "pipeline.generate", trace.WithAttributes(
		attribute.String("topic", req.Topic),
		attribute.Int("questions", req.Questions),
		attribute.String("language", req.Language),
	))
	defer span.End()

	result, err := p.generate(ctx, req)

	record := transcript.GenerationRequest{
		Topic:     req.Topic,
		Questions: req.Questions,
		Language:  req.Language,
		Model:     req.Model,
		Provider:  req.Provider,
		Status:    transcript.RequestCompleted,
	}
	if result != nil {
		record.VideoID = result.VideoID
	}
	if err != nil {
		record.Status = transcript.RequestFailed
		record.Error = err.Error()
		record.Phase = script.PhaseOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if saved, recErr := p.service.sink.Record(ctx, record); recErr != nil {
		p.logger.WarnContext(ctx, "Failed to record generation request", "error", recErr)
	} else if result != nil {
		result.RequestID = saved.ID
	}

	if err != nil {
		return nil, err
	}

	if req.Render {
		rendered, err := p.Render(ctx, result.VideoID)
		if err != nil {
			return result, fmt.Errorf("render %s: %w", result.VideoID, err)
		}
		result.Render = rendered
	}
	return result, nil
}

func (p *Pipeline) generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	c, err := p.service.componentsFor(req.Provider)
	if err != nil {
		return nil, err
	}
	sel, err := p.resolvePersonas(ctx, c, req)
	if err != nil {
		return nil, script.Abort(script.PhasePersonas, err)
	}

	title, err := p.step(ctx, "pipeline.title", func(ctx context.Context) (string, error) {
		return c.titles.Generate(ctx, req.Topic, req.Language, req.Questions, req.Model)
	})
	if err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "Title generated", "title", title)

	scriptCtx, span := p.tracer.Start(ctx, "pipeline.script")
	orchestrator := c.orchestrator
	if p.OnTurn != nil {
		orchestrator = orchestrator.WithOnTurn(p.OnTurn)
	}
	sc, err := orchestrator.Generate(scriptCtx, script.Request{
		Topic:       req.Topic,
		Questions:   req.Questions,
		Language:    req.Language,
		Model:       req.Model,
		Interviewer: sel.Interviewer,
		Candidate:   sel.Candidate,
		Seed:        *req.Seed,
	})
	span.End()
	if err != nil {
		return nil, err
	}

	videoID, err := p.service.sink.Persist(ctx, transcript.PersistInput{
		Script: sc,
		Title:  title,
		Metadata: transcript.Metadata{
			Provider:         c.resolution.Used,
			Model:            req.Model,
			Questions:        req.Questions,
			Seed:             *req.Seed,
			LanguageFallback: sel.LanguageFallback,
		},
	})
	if err != nil {
		return nil, script.Abort(script.PhasePersist, err)
	}

	return &GenerateResult{
		VideoID:   videoID,
		Title:     title,
		Script:    sc,
		Selection: sel,
	}, nil
}

func (p *Pipeline) step(ctx context.Context, name string, fn func(context.Context) (string, error)) (string, error) {
	ctx, span := p.tracer.Start(ctx, name)
	defer span.End()
	out, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

// resolvePersonas honours explicit ids, otherwise selects. An empty catalog
// is seeded with the defaults and selection is retried once.
func (p *Pipeline) resolvePersonas(ctx context.Context, c *components, req GenerateRequest) (*persona.Selection, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.personas")
	defer span.End()

	if req.InterviewerID != "" || req.CandidateID != "" {
		return p.explicitPersonas(ctx, c, req)
	}

	sel, err := c.selector.Select(ctx, req.Topic, req.Language, req.Model)
	if !errors.Is(err, persona.ErrInsufficientPersonas) {
		return sel, err
	}

	p.logger.WarnContext(ctx, "Persona catalog insufficient, initializing defaults")
	created, initErr := persona.Initialize(ctx, p.service.personas)
	if initErr != nil {
		return nil, fmt.Errorf("initialize personas: %w", initErr)
	}
	p.logger.InfoContext(ctx, "Default personas created", "count", len(created))

	return c.selector.Select(ctx, req.Topic, req.Language, req.Model)
}

func (p *Pipeline) explicitPersonas(ctx context.Context, c *components, req GenerateRequest) (*persona.Selection, error) {
	var sel *persona.Selection
	if req.InterviewerID == "" || req.CandidateID == "" {
		selected, err := c.selector.Select(ctx, req.Topic, req.Language, req.Model)
		if err != nil {
			return nil, err
		}
		sel = selected
	} else {
		sel = &persona.Selection{}
	}

	lookup := func(id string, want persona.Type, dst *persona.Persona) error {
		if id == "" {
			return nil
		}
		got, err := p.service.personas.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("persona %s: %w", id, err)
		}
		if got.Type != want {
			return fmt.Errorf("persona %s is %s, not %s", id, got.Type, want)
		}
		if !got.Active {
			return fmt.Errorf("persona %s is inactive", id)
		}
		*dst = *got
		return nil
	}

	if err := lookup(req.InterviewerID, persona.Interviewer, &sel.Interviewer); err != nil {
		return nil, err
	}
	if err := lookup(req.CandidateID, persona.Candidate, &sel.Candidate); err != nil {
		return nil, err
	}
	return sel, nil
}

// Render synthesizes audio for a stored transcript, lays out the timeline,
// writes subtitles and, when enabled, composites the video. Produced files
// are uploaded to the artifact store.
func (p *Pipeline) Render(ctx context.Context, videoID string) (*RenderResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.render", trace.WithAttributes(attribute.String("video_id", videoID)))
	defer span.End()

	t, err := p.service.sink.Fetch(ctx, videoID)
	if err != nil {
		return nil, err
	}
	c, err := p.service.componentsFor(t.Video.Metadata.Provider)
	if err != nil {
		return nil, err
	}

	meta := t.Video.Metadata
	if err := p.service.sink.MarkStatus(ctx, videoID, transcript.StatusRendering, meta); err != nil {
		return nil, err
	}

	result, err := p.render(ctx, c, t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if markErr := p.service.sink.MarkStatus(ctx, videoID, transcript.StatusFailed, meta); markErr != nil {
			p.logger.WarnContext(ctx, "Failed to mark video as failed", "video_id", videoID, "error", markErr)
		}
		return nil, err
	}

	meta.AudioPath = result.AudioPath
	meta.VideoPath = result.VideoPath
	if err := p.service.sink.MarkRendered(ctx, videoID, meta); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) render(ctx context.Context, c *components, t *transcript.Transcript) (*RenderResult, error) {
	cfg := p.service.cfg
	sc := t.Script()

	sess, err := newSession(cfg.Audio.OutputDir, t.Video.ID, t.Video.Title)
	if err != nil {
		return nil, err
	}
	if err := sess.writeScript(sc); err != nil {
		p.logger.WarnContext(ctx, "Failed to write script file", "error", err)
	}

	p.logger.InfoContext(ctx, "Generating audio...", "video_id", t.Video.ID, "turns", len(t.Dialogues))
	rendered, err := c.renderer.Render(ctx, sc, sess.audioDir())
	if err != nil {
		return nil, fmt.Errorf("render audio: %w", err)
	}

	segments := rendered.Segments
	if cfg.Video.Visuals {
		p.planVisuals(ctx, c, sc, segments)
	}

	cues := video.BuildTimeline(segments, c.renderer.Pause())
	if err := video.WriteSRT(cues, sess.subtitlePath()); err != nil {
		return nil, fmt.Errorf("write subtitles: %w", err)
	}

	result := &RenderResult{
		VideoID:      t.Video.ID,
		OutputDir:    sess.dir,
		AudioPath:    rendered.FinalPath,
		SubtitlePath: sess.subtitlePath(),
		Duration:     video.TotalDuration(cues),
		Segments:     len(cues),
	}

	if cfg.Video.Enabled && p.service.assembler != nil {
		p.logger.InfoContext(ctx, "Assembling video...", "cues", len(cues))
		assembled, err := p.service.assembler.Assemble(ctx, video.AssembleRequest{
			AudioPath:    rendered.FinalPath,
			SubtitlePath: sess.subtitlePath(),
			OutputPath:   sess.videoPath(),
			Interviewer:  sc.Interviewer.Name,
			Candidate:    sc.Candidate.Name,
			Cues:         cues,
		})
		if err != nil {
			return nil, fmt.Errorf("assemble video: %w", err)
		}
		result.VideoPath = assembled.OutputPath
	}

	if p.service.artifacts != nil {
		result.Artifacts = p.upload(ctx, t.Video.ID, result)
	}
	return result, nil
}

// planVisuals attaches on-screen captions to each segment. The conclusion
// gets none.
func (p *Pipeline) planVisuals(ctx context.Context, c *components, sc *script.Script, segments []video.Segment) {
	for i := range segments {
		seg := &segments[i]
		if seg.QuestionNumber == audio.ConclusionNumber {
			continue
		}
		turn := script.DialogueTurn{QuestionNumber: seg.QuestionNumber, Role: seg.Role, Text: seg.Text}
		seg.Captions = c.planner.Plan(ctx, turn, sc.Topic, sc.Language, seg.Duration).Captions()
	}
}

// upload publishes the produced files. Failures are logged and skipped.
func (p *Pipeline) upload(ctx context.Context, videoID string, r *RenderResult) map[string]string {
	prefix := p.service.cfg.Artifacts.Prefix
	out := make(map[string]string)
	for _, path := range []string{r.AudioPath, r.SubtitlePath, r.VideoPath} {
		if path == "" {
			continue
		}
		key := storage.Key(prefix, videoID, filepath.Base(path))
		url, err := p.service.artifacts.Upload(ctx, path, key)
		if err != nil {
			p.logger.WarnContext(ctx, "Artifact upload failed", "key", key, "error", err)
			continue
		}
		out[filepath.Base(path)] = url
	}
	return out
}
