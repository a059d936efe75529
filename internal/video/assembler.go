package video

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"interviewcast/internal/script"
)

const (
	defaultBackground = "0x1e1e2e"
	defaultFontSize   = 36
	videoEndBuffer    = 0.5
	avatarIdle        = "0x45475a"
	avatarActive      = "0xf9e2af"
)

type AssemblerOptions struct {
	Runner          Runner
	FFmpegPath      string
	Resolution      string
	BackgroundColor string
	FontFile        string
	FontSize        int
}

// Assembler composites the interview video over the final audio track.
type Assembler struct {
	runner     Runner
	ffmpegPath string
	width      int
	height     int
	background string
	fontFile   string
	fontSize   int
}

func NewAssembler(opts AssemblerOptions) *Assembler {
	a := &Assembler{
		runner:     opts.Runner,
		ffmpegPath: opts.FFmpegPath,
		background: opts.BackgroundColor,
		fontFile:   opts.FontFile,
		fontSize:   opts.FontSize,
	}
	a.width, a.height = parseResolution(opts.Resolution)
	if a.runner == nil {
		a.runner = ExecRunner{}
	}
	if a.ffmpegPath == "" {
		a.ffmpegPath = DefaultFFmpegPath
	}
	if a.background == "" {
		a.background = defaultBackground
	}
	if a.fontSize <= 0 {
		a.fontSize = defaultFontSize
	}
	return a
}

type AssembleRequest struct {
	AudioPath    string
	SubtitlePath string
	OutputPath   string
	Interviewer  string
	Candidate    string
	Cues         []Cue
}

type AssembleResult struct {
	OutputPath string
	Duration   float64
}

func (a *Assembler) Assemble(ctx context.Context, req AssembleRequest) (*AssembleResult, error) {
	args, err := a.BuildArgs(req)
	if err != nil {
		return nil, err
	}
	if _, err := a.runner.Run(ctx, a.ffmpegPath, args...); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w", err)
	}
	return &AssembleResult{OutputPath: req.OutputPath, Duration: TotalDuration(req.Cues)}, nil
}

// BuildArgs returns the ffmpeg arguments for req without running anything.
func (a *Assembler) BuildArgs(req AssembleRequest) ([]string, error) {
	switch {
	case req.AudioPath == "":
		return nil, errors.New("audio path is required")
	case req.OutputPath == "":
		return nil, errors.New("output path is required")
	case len(req.Cues) == 0:
		return nil, errors.New("timeline is empty")
	}

	duration := TotalDuration(req.Cues) + videoEndBuffer
	background := fmt.Sprintf("color=c=%s:s=%dx%d:d=%.2f", a.background, a.width, a.height, duration)

	return []string{
		"-y",
		"-f", "lavfi", "-i", background,
		"-i", req.AudioPath,
		"-filter_complex", a.buildFilterComplex(req),
		"-map", "[v]",
		"-map", "1:a",
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		req.OutputPath,
	}, nil
}

func (a *Assembler) buildFilterComplex(req AssembleRequest) string {
	box := a.width / 4
	top := a.height/2 - box/2 - a.height/8
	left := a.width/4 - box/2
	right := 3*a.width/4 - box/2

	var filters []string
	filters = append(filters,
		fmt.Sprintf("drawbox=x=%d:y=%d:w=%d:h=%d:color=%s:t=fill", left, top, box, box, avatarIdle),
		fmt.Sprintf("drawbox=x=%d:y=%d:w=%d:h=%d:color=%s:t=fill", right, top, box, box, avatarIdle),
	)

	for _, c := range req.Cues {
		x := left
		if c.Role == script.RoleCandidate {
			x = right
		}
		filters = append(filters, fmt.Sprintf(
			"drawbox=x=%d:y=%d:w=%d:h=%d:color=%s:t=8:enable='between(t,%.2f,%.2f)'",
			x, top, box, box, avatarActive, c.Start, c.End,
		))
	}

	nameY := top + box + a.fontSize/2
	filters = append(filters,
		a.drawText(req.Interviewer, fmt.Sprintf("%d-text_w/2", left+box/2), fmt.Sprint(nameY), ""),
		a.drawText(req.Candidate, fmt.Sprintf("%d-text_w/2", right+box/2), fmt.Sprint(nameY), ""),
	)

	captionY := nameY + 2*a.fontSize
	for _, c := range req.Cues {
		enable := fmt.Sprintf("between(t,%.2f,%.2f)", c.Start, c.End)
		for i, line := range c.Captions {
			y := fmt.Sprint(captionY + i*(a.fontSize+8))
			filters = append(filters, a.drawText(line, "(w-text_w)/2", y, enable))
		}
	}

	if req.SubtitlePath != "" {
		filters = append(filters, fmt.Sprintf("subtitles='%s'", escapeFilterPath(req.SubtitlePath)))
	}

	return "[0:v]" + strings.Join(filters, ",") + "[v]"
}

func (a *Assembler) drawText(text, x, y, enable string) string {
	var sb strings.Builder
	sb.WriteString("drawtext=")
	if a.fontFile != "" {
		fmt.Fprintf(&sb, "fontfile='%s':", escapeFilterPath(a.fontFile))
	}
	fmt.Fprintf(&sb, "text='%s':fontcolor=white:fontsize=%d:x=%s:y=%s", escapeDrawText(text), a.fontSize, x, y)
	if enable != "" {
		fmt.Fprintf(&sb, ":enable='%s'", enable)
	}
	return sb.String()
}

var drawTextEscaper = strings.NewReplacer(
	`\`, `\\\\`,
	`'`, `\\\'`,
	`:`, `\\:`,
	`%`, `\\%`,
	",", `\,`,
	"\n", " ",
)

func escapeDrawText(s string) string {
	return drawTextEscaper.Replace(s)
}

func escapeFilterPath(p string) string {
	return strings.NewReplacer(`\`, `/`, `'`, `\'`, `:`, `\:`).Replace(p)
}
