package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"interviewcast/internal/script"
)

// session is the output directory of one rendered video.
type session struct {
	id  string
	dir string
}

var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func newSession(baseDir, videoID, title string) (*session, error) {
	sanitized := sanitizeForPath(title)
	if sanitized == "" {
		sanitized = "untitled"
	}
	if len(sanitized) > 50 {
		sanitized = strings.TrimRight(sanitized[:50], "_")
	}

	s := &session{
		id:  videoID,
		dir: filepath.Join(baseDir, fmt.Sprintf("%s_%s", videoID, sanitized)),
	}
	if err := os.MkdirAll(s.audioDir(), 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return s, nil
}

func (s *session) audioDir() string     { return filepath.Join(s.dir, "audio") }
func (s *session) videoPath() string    { return filepath.Join(s.dir, "interview.mp4") }
func (s *session) subtitlePath() string { return filepath.Join(s.dir, "interview.srt") }
func (s *session) scriptPath() string   { return filepath.Join(s.dir, "script.json") }

func (s *session) writeScript(sc *script.Script) error {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode script: %w", err)
	}
	return os.WriteFile(s.scriptPath(), data, 0644)
}

func sanitizeForPath(s string) string {
	s = strings.ToLower(s)
	s = sanitizeRegex.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
