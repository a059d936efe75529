package video

import (
	"time"

	"interviewcast/internal/script"
)

// Segment is one rendered turn in playback order.
type Segment struct {
	QuestionNumber int
	Role           script.Role
	Speaker        string
	Text           string
	AudioPath      string
	Duration       float64
	Captions       []string
}

type Cue struct {
	Segment
	Start float64
	End   float64
}

// BuildTimeline places segment k at the summed durations of the previous
// segments plus k pauses.
func BuildTimeline(segments []Segment, pause time.Duration) []Cue {
	cues := make([]Cue, len(segments))
	at := 0.0
	for i, s := range segments {
		if i > 0 {
			at += pause.Seconds()
		}
		cues[i] = Cue{Segment: s, Start: at, End: at + s.Duration}
		at += s.Duration
	}
	return cues
}

// TotalDuration is the end of the last cue.
func TotalDuration(cues []Cue) float64 {
	if len(cues) == 0 {
		return 0
	}
	return cues[len(cues)-1].End
}
