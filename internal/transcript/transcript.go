// Package transcript persists generated scripts as a video record plus its
// ordered dialogue turns.
package transcript

import (
	"context"
	"errors"
	"time"

	"interviewcast/internal/persona"
	"interviewcast/internal/script"
)

var ErrNotFound = errors.New("video not found")

type VideoStatus string

const (
	StatusScriptReady VideoStatus = "script_ready"
	StatusRendering   VideoStatus = "rendering"
	StatusRendered    VideoStatus = "rendered"
	StatusFailed      VideoStatus = "failed"
)

type Metadata struct {
	Provider         string `json:"provider,omitempty"`
	Model            string `json:"model,omitempty"`
	Questions        int    `json:"questions"`
	Seed             int64  `json:"seed"`
	LanguageFallback bool   `json:"language_fallback,omitempty"`
	AudioPath        string `json:"audio_path,omitempty"`
	VideoPath        string `json:"video_path,omitempty"`
}

type Video struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Topic        string          `json:"topic"`
	Description  string          `json:"description"`
	Language     string          `json:"language"`
	Introduction string          `json:"introduction"`
	Conclusion   string          `json:"conclusion"`
	Interviewer  persona.Persona `json:"interviewer"`
	Candidate    persona.Persona `json:"candidate"`
	Metadata     Metadata        `json:"metadata"`
	Status       VideoStatus     `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Dialogue is one persisted turn. Seq is the emission ordinal across the
// whole transcript, introduction included.
type Dialogue struct {
	ID             string      `json:"id"`
	VideoID        string      `json:"video_id"`
	Seq            int         `json:"seq"`
	QuestionNumber int         `json:"question_number"`
	Role           script.Role `json:"role"`
	Text           string      `json:"text"`
}

func (d Dialogue) Turn() script.DialogueTurn {
	return script.DialogueTurn{QuestionNumber: d.QuestionNumber, Role: d.Role, Text: d.Text}
}

type RequestStatus string

const (
	RequestCompleted RequestStatus = "completed"
	RequestFailed    RequestStatus = "failed"
)

// GenerationRequest records one pipeline run, successful or not.
type GenerationRequest struct {
	ID        string        `json:"id"`
	Topic     string        `json:"topic"`
	Questions int           `json:"questions"`
	Language  string        `json:"language"`
	Model     string        `json:"model,omitempty"`
	Provider  string        `json:"provider,omitempty"`
	Status    RequestStatus `json:"status"`
	VideoID   string        `json:"video_id,omitempty"`
	Error     string        `json:"error,omitempty"`
	Phase     string        `json:"phase,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Repository is the storage contract behind the Sink.
type Repository interface {
	SaveTranscript(ctx context.Context, video Video, dialogues []Dialogue) error
	GetVideo(ctx context.Context, id string) (*Video, error)
	ListDialogues(ctx context.Context, videoID string) ([]Dialogue, error)
	ListVideos(ctx context.Context, limit int) ([]Video, error)
	UpdateVideo(ctx context.Context, id string, status VideoStatus, meta Metadata) error
	SaveRequest(ctx context.Context, req GenerationRequest) error
	ListRequests(ctx context.Context, limit int) ([]GenerationRequest, error)
}

// Transcript is a fetched video with its turns in emission order.
type Transcript struct {
	Video     Video
	Dialogues []Dialogue
}

func (t *Transcript) Turns() []script.DialogueTurn {
	out := make([]script.DialogueTurn, len(t.Dialogues))
	for i, d := range t.Dialogues {
		out[i] = d.Turn()
	}
	return out
}

// Script rebuilds the generated script. The leading question-0 turns form
// the introduction; everything after is the body.
func (t *Transcript) Script() *script.Script {
	s := &script.Script{
		Topic:        t.Video.Topic,
		Language:     t.Video.Language,
		Introduction: t.Video.Introduction,
		Conclusion:   t.Video.Conclusion,
		Interviewer:  t.Video.Interviewer,
		Candidate:    t.Video.Candidate,
	}
	turns := t.Turns()
	split := 0
	for split < len(turns) && turns[split].QuestionNumber == script.IntroductionNumber {
		split++
	}
	s.IntroTurns = turns[:split]
	s.Body = turns[split:]
	return s
}
