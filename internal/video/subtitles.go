package video

import (
	"fmt"
	"math"
	"os"
	"strings"
)

// FormatSRT renders one subtitle entry per cue, prefixed with the speaker.
func FormatSRT(cues []Cue) string {
	var sb strings.Builder
	for i, c := range cues {
		text := strings.TrimSpace(c.Text)
		if c.Speaker != "" {
			text = c.Speaker + ": " + text
		}
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n", i+1, formatSRTTime(c.Start), formatSRTTime(c.End), text)
	}
	return sb.String()
}

func WriteSRT(cues []Cue, path string) error {
	if err := os.WriteFile(path, []byte(FormatSRT(cues)), 0644); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}
	return nil
}

func formatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	m := (ms % 3_600_000) / 60_000
	s := (ms % 60_000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
