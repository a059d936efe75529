// Package video concatenates turn audio, lays out the subtitle timeline and
// composites the final interview video with ffmpeg.
package video

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	DefaultFFmpegPath  = "ffmpeg"
	DefaultFFprobePath = "ffprobe"
)

// Runner executes an external tool and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s failed: %w, output: %s", name, err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// Prober reads media durations.
type Prober struct {
	runner  Runner
	ffprobe string
}

func NewProber(runner Runner, ffprobePath string) *Prober {
	if runner == nil {
		runner = ExecRunner{}
	}
	if ffprobePath == "" {
		ffprobePath = DefaultFFprobePath
	}
	return &Prober{runner: runner, ffprobe: ffprobePath}
}

func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	out, err := p.runner.Run(ctx, p.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, err
	}
	return parseDuration(out)
}

func parseDuration(out []byte) (float64, error) {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", s, err)
	}
	return d, nil
}

func parseResolution(res string) (int, int) {
	w, h, ok := strings.Cut(res, "x")
	if !ok {
		return 1920, 1080
	}
	width, err1 := strconv.Atoi(w)
	height, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return 1920, 1080
	}
	return width, height
}
