package transcript

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"interviewcast/internal/script"
)

const defaultListLimit = 20

// Sink maps generated scripts onto a Repository.
type Sink struct {
	repo Repository
	now  func() time.Time
}

func NewSink(repo Repository) *Sink {
	return &Sink{repo: repo, now: time.Now}
}

type PersistInput struct {
	Script      *script.Script
	Title       string
	Description string
	Metadata    Metadata
}

// NewVideoID returns a time-ordered ULID.
func NewVideoID(at time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(at), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate ulid: %w", err)
	}
	return id.String(), nil
}

// Persist stores s and returns the new video id. Turns are numbered in
// emission order, introduction first.
func (s *Sink) Persist(ctx context.Context, in PersistInput) (string, error) {
	if in.Script == nil {
		return "", errors.New("script is required")
	}
	if err := script.CheckOrder(in.Script.Turns()); err != nil {
		return "", fmt.Errorf("refusing to persist out-of-order script: %w", err)
	}

	now := s.now().UTC()
	id, err := NewVideoID(now)
	if err != nil {
		return "", err
	}

	video := Video{
		ID:           id,
		Title:        in.Title,
		Topic:        in.Script.Topic,
		Description:  in.Description,
		Language:     in.Script.Language,
		Introduction: in.Script.Introduction,
		Conclusion:   in.Script.Conclusion,
		Interviewer:  in.Script.Interviewer,
		Candidate:    in.Script.Candidate,
		Metadata:     in.Metadata,
		Status:       StatusScriptReady,
		CreatedAt:    now,
	}
	if video.Description == "" {
		video.Description = Describe(in.Script)
	}

	turns := in.Script.Turns()
	dialogues := make([]Dialogue, len(turns))
	for i, t := range turns {
		dialogues[i] = Dialogue{
			ID:             uuid.NewString(),
			VideoID:        id,
			Seq:            i,
			QuestionNumber: t.QuestionNumber,
			Role:           t.Role,
			Text:           t.Text,
		}
	}

	if err := s.repo.SaveTranscript(ctx, video, dialogues); err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}

	slog.InfoContext(ctx, "Transcript persisted", "video_id", id, "dialogues", len(dialogues))
	return id, nil
}

// Fetch returns the video and its dialogues ordered by sequence.
func (s *Sink) Fetch(ctx context.Context, id string) (*Transcript, error) {
	video, err := s.repo.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}

	dialogues, err := s.repo.ListDialogues(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list dialogues: %w", err)
	}
	sort.SliceStable(dialogues, func(i, j int) bool { return dialogues[i].Seq < dialogues[j].Seq })

	return &Transcript{Video: *video, Dialogues: dialogues}, nil
}

// List returns videos newest first.
func (s *Sink) List(ctx context.Context, limit int) ([]Video, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListVideos(ctx, limit)
}

func (s *Sink) MarkRendered(ctx context.Context, id string, meta Metadata) error {
	return s.repo.UpdateVideo(ctx, id, StatusRendered, meta)
}

func (s *Sink) MarkStatus(ctx context.Context, id string, status VideoStatus, meta Metadata) error {
	return s.repo.UpdateVideo(ctx, id, status, meta)
}

// Record stores a generation request, assigning an id and timestamp when unset.
func (s *Sink) Record(ctx context.Context, req GenerationRequest) (GenerationRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = s.now().UTC()
	}
	if err := s.repo.SaveRequest(ctx, req); err != nil {
		return req, fmt.Errorf("save generation request: %w", err)
	}
	return req, nil
}

func (s *Sink) Requests(ctx context.Context, limit int) ([]GenerationRequest, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListRequests(ctx, limit)
}

// Describe builds a short video description from the script.
func Describe(s *script.Script) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s interviews %s about %s.", s.Interviewer.Name, s.Candidate.Name, s.Topic)
	if n := s.Questions(); n > 0 {
		fmt.Fprintf(&b, " %d questions", n)
		if s.Interviewer.Specialty != "" {
			fmt.Fprintf(&b, " from a %s specialist", s.Interviewer.Specialty)
		}
		b.WriteString(".")
	}
	return b.String()
}
